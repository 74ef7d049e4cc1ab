package holiday

import "time"

const religiousMultiplier = 1.05

// DefaultRules returns the national holidays that fall on the same day every year.
func DefaultRules() []Rule {
	return []Rule{
		{Month: time.January, Day: 1, Name: "Yılbaşı", Type: TypeOfficial, Multiplier: 1.05},
		{Month: time.April, Day: 23, Name: "Ulusal Egemenlik ve Çocuk Bayramı", Type: TypeOfficial, Multiplier: 1.02},
		{Month: time.May, Day: 1, Name: "Emek ve Dayanışma Günü", Type: TypeOfficial, Multiplier: 1.05},
		{Month: time.May, Day: 19, Name: "Atatürk'ü Anma, Gençlik ve Spor Bayramı", Type: TypeOfficial, Multiplier: 1.02},
		{Month: time.July, Day: 15, Name: "Demokrasi ve Milli Birlik Günü", Type: TypeOfficial, Multiplier: 1.02},
		{Month: time.August, Day: 30, Name: "Zafer Bayramı", Type: TypeOfficial, Multiplier: 1.02},
		{Month: time.October, Day: 29, Name: "Cumhuriyet Bayramı", Type: TypeOfficial, Multiplier: 1.02},
	}
}

// DefaultDated returns the lunar-calendar holidays per year.
func DefaultDated() []Holiday {
	var out []Holiday
	add := func(name string, year int, month time.Month, days ...int) {
		for _, d := range days {
			out = append(out, Holiday{
				Name:              name,
				Date:              time.Date(year, month, d, 0, 0, 0, 0, time.UTC),
				Type:              TypeReligious,
				TrafficMultiplier: religiousMultiplier,
			})
		}
	}

	add("Ramazan Bayramı", 2024, time.April, 10, 11, 12)
	add("Kurban Bayramı", 2024, time.June, 17, 18, 19, 20)

	add("Ramazan Bayramı", 2025, time.March, 31)
	add("Ramazan Bayramı", 2025, time.April, 1, 2)
	add("Kurban Bayramı", 2025, time.June, 7, 8, 9, 10)

	add("Ramazan Bayramı", 2026, time.March, 20, 21, 22)
	add("Kurban Bayramı", 2026, time.May, 27, 28, 29, 30)

	return out
}
