package diorama

import "github.com/i474232898/sky-diorama/internal/weather"

var demoGradients = map[string]string{
	"sunny-day":   "linear-gradient(135deg, #fbbf24 0%, #f97316 100%)",
	"clear-night": "linear-gradient(135deg, #1e1b4b 0%, #312e81 100%)",
	"cloudy-day":  "linear-gradient(135deg, #94a3b8 0%, #64748b 100%)",
	"rainy-day":   "linear-gradient(135deg, #0ea5e9 0%, #0369a1 100%)",
	"stormy-day":  "linear-gradient(135deg, #475569 0%, #1e293b 100%)",
	"snowy-day":   "linear-gradient(135deg, #e0f2fe 0%, #bae6fd 100%)",
}

// DemoGradient returns a CSS placeholder gradient shown while no diorama exists.
func DemoGradient(condition weather.Condition, isDay bool) string {
	suffix := "-night"
	if isDay {
		suffix = "-day"
	}
	if g, ok := demoGradients[string(condition)+suffix]; ok {
		return g
	}
	return demoGradients["cloudy-day"]
}
