package openweathermap

import (
	"time"

	"github.com/smartroute/smartroute/internal/weather"
)

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			ID          int    `json:"id"`
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
			Gust  float64 `json:"gust"`
		} `json:"wind"`
		Pop float64 `json:"pop"`
	} `json:"list"`
	City struct {
		Coord struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
	} `json:"city"`
}

func (r *forecastResponse) forecast(fetchedAt time.Time) *weather.Forecast {
	f := &weather.Forecast{
		Lat:       r.City.Coord.Lat,
		Lon:       r.City.Coord.Lon,
		Entries:   make([]weather.Entry, 0, len(r.List)),
		FetchedAt: fetchedAt,
	}
	for _, item := range r.List {
		e := weather.Entry{
			Time:        time.Unix(item.Dt, 0).UTC(),
			Temperature: item.Main.Temp,
			Humidity:    item.Main.Humidity,
			WindSpeed:   item.Wind.Speed,
			WindGust:    item.Wind.Gust,
			PrecipProb:  item.Pop,
			Condition:   weather.ConditionUnknown,
		}
		if len(item.Weather) > 0 {
			w := item.Weather[0]
			e.Condition = classify(w.ID, w.Main)
			e.Description = w.Description
		}
		f.Entries = append(f.Entries, e)
	}
	return f
}

// classify maps an OpenWeatherMap condition code to a Condition, falling
// back to the group name when the code is missing or unknown. See
// https://openweathermap.org/weather-conditions.
func classify(id int, group string) weather.Condition {
	switch {
	case id >= 200 && id < 300:
		return weather.ConditionThunderstorm
	case id >= 300 && id < 400:
		return weather.ConditionDrizzle
	case id == 511: // freezing rain
		return weather.ConditionSnow
	case id >= 500 && id < 600:
		return weather.ConditionRain
	case id >= 600 && id < 700:
		return weather.ConditionSnow
	case id == 701:
		return weather.ConditionMist
	case id == 741:
		return weather.ConditionFog
	case id == 771, id == 781: // squall, tornado
		return weather.ConditionThunderstorm
	case id >= 700 && id < 800:
		return weather.ConditionHaze
	case id == 800:
		return weather.ConditionClear
	case id > 800 && id < 900:
		return weather.ConditionClouds
	}

	switch group {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionClouds
	case "Rain":
		return weather.ConditionRain
	case "Drizzle":
		return weather.ConditionDrizzle
	case "Thunderstorm", "Squall", "Tornado":
		return weather.ConditionThunderstorm
	case "Snow":
		return weather.ConditionSnow
	case "Mist":
		return weather.ConditionMist
	case "Fog":
		return weather.ConditionFog
	case "Haze", "Dust", "Sand", "Ash", "Smoke":
		return weather.ConditionHaze
	}
	return weather.ConditionUnknown
}
