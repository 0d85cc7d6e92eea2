package weather

// Classification is the result of mapping a WMO weather code.
type Classification struct {
	Condition   Condition `json:"condition"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
}

// Classify maps a WMO weather interpretation code and the day/night flag
// to a condition, description and icon. Unknown codes fall back to cloudy.
//
// See https://open-meteo.com/en/docs for the code table.
func Classify(code int, isDay bool) Classification {
	switch {
	case code == 0:
		if isDay {
			return Classification{ConditionSunny, "Clear sky", "☀️"}
		}
		return Classification{ConditionClear, "Clear night", "🌙"}
	case code == 1 || code == 2:
		if isDay {
			return Classification{ConditionSunny, "Partly cloudy", "🌤️"}
		}
		return Classification{ConditionClear, "Partly cloudy", "☁️"}
	case code == 3:
		return Classification{ConditionOvercast, "Overcast", "☁️"}
	case code >= 45 && code <= 48:
		return Classification{ConditionFoggy, "Foggy", "🌫️"}
	case code >= 51 && code <= 57:
		return Classification{ConditionRainy, "Drizzle", "🌧️"}
	case code >= 61 && code <= 67:
		return Classification{ConditionRainy, "Rain", "🌧️"}
	case code >= 71 && code <= 77:
		return Classification{ConditionSnowy, "Snow", "❄️"}
	case code >= 80 && code <= 82:
		return Classification{ConditionRainy, "Rain showers", "🌦️"}
	case code >= 85 && code <= 86:
		return Classification{ConditionSnowy, "Snow showers", "🌨️"}
	case code >= 95 && code <= 99:
		return Classification{ConditionStormy, "Thunderstorm", "⛈️"}
	default:
		return Classification{ConditionCloudy, "Cloudy", "☁️"}
	}
}
