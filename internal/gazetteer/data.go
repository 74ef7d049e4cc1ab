package gazetteer

// capitalRegion qualifies every district match.
const capitalRegion = "İstanbul"

// provinces lists the 81 provinces of Türkiye.
var provinces = []string{
	"Adana", "Adıyaman", "Afyonkarahisar", "Ağrı", "Amasya", "Ankara", "Antalya", "Artvin",
	"Aydın", "Balıkesir", "Bilecik", "Bingöl", "Bitlis", "Bolu", "Burdur", "Bursa",
	"Çanakkale", "Çankırı", "Çorum", "Denizli", "Diyarbakır", "Edirne", "Elazığ", "Erzincan",
	"Erzurum", "Eskişehir", "Gaziantep", "Giresun", "Gümüşhane", "Hakkari", "Hatay", "Isparta",
	"Mersin", "İstanbul", "İzmir", "Kars", "Kastamonu", "Kayseri", "Kırklareli", "Kırşehir",
	"Kocaeli", "Konya", "Kütahya", "Malatya", "Manisa", "Kahramanmaraş", "Mardin", "Muğla",
	"Muş", "Nevşehir", "Niğde", "Ordu", "Rize", "Sakarya", "Samsun", "Siirt",
	"Sinop", "Sivas", "Tekirdağ", "Tokat", "Trabzon", "Tunceli", "Şanlıurfa", "Uşak",
	"Van", "Yozgat", "Zonguldak", "Aksaray", "Bayburt", "Karaman", "Kırıkkale", "Batman",
	"Şırnak", "Bartın", "Ardahan", "Iğdır", "Yalova", "Karabük", "Kilis", "Osmaniye",
	"Düzce",
}

// capitalDistricts lists the districts of İstanbul.
var capitalDistricts = []string{
	"Adalar", "Arnavutköy", "Ataşehir", "Avcılar", "Bağcılar", "Bahçelievler", "Bakırköy", "Başakşehir",
	"Bayrampaşa", "Beşiktaş", "Beykoz", "Beylikdüzü", "Beyoğlu", "Büyükçekmece", "Çatalca", "Çekmeköy",
	"Esenler", "Esenyurt", "Eyüpsultan", "Fatih", "Gaziosmanpaşa", "Güngören", "Halkalı", "Kadıköy",
	"Kağıthane", "Kartal", "Küçükçekmece", "Maltepe", "Pendik", "Sancaktepe", "Sarıyer", "Silivri",
	"Sultanbeyli", "Sultangazi", "Şile", "Şişli", "Tuzla", "Ümraniye", "Üsküdar", "Zeytinburnu",
}

var bridges = []string{
	"15 Temmuz Şehitler Köprüsü",
	"Boğaziçi Köprüsü",
	"Fatih Sultan Mehmet Köprüsü",
	"FSM Köprüsü",
	"Yavuz Sultan Selim Köprüsü",
	"Kuzey Marmara Köprüsü",
	"Osmangazi Köprüsü",
}

var highways = []string{
	"Kuzey Marmara Otoyolu",
	"TEM Otoyolu",
	"O-7",
	"O-4",
	"E-5",
	"D100",
}

// DefaultData returns the built-in gazetteer tables.
func DefaultData() Data {
	return Data{
		Capital:   capitalRegion,
		Regions:   append([]string(nil), provinces...),
		Districts: append([]string(nil), capitalDistricts...),
		Bridges:   append([]string(nil), bridges...),
		Highways:  append([]string(nil), highways...),
	}
}
