package weather

import (
	"math"
	"time"
)

// Normalize turns a raw provider reading into a WeatherSnapshot.
// Temperatures and wind speed are rounded to whole units, humidity is kept
// as reported, and UpdatedAt is the retrieval time rather than anything the
// upstream claims.
func Normalize(r ProviderReading, retrievedAt time.Time) WeatherSnapshot {
	c := Classify(r.WeatherCode, r.IsDay)

	return WeatherSnapshot{
		Temperature: round(r.TemperatureC),
		FeelsLike:   round(r.ApparentC),
		Humidity:    r.HumidityPct,
		WindSpeed:   round(r.WindSpeedKmh),
		Condition:   c.Condition,
		Description: c.Description,
		Icon:        c.Icon,
		IsDay:       r.IsDay,
		UpdatedAt:   retrievedAt.UTC(),
	}
}

// round rounds half up, so -2.5 becomes -2.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
