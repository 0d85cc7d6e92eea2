package weather

import (
	"context"
)

// ProviderReading represents a single provider's raw current-conditions reading.
type ProviderReading struct {
	ProviderName string

	TemperatureC float64
	ApparentC    float64
	HumidityPct  float64
	WindSpeedKmh float64
	WeatherCode  int
	IsDay        bool
}

// Provider abstracts a current-conditions data source (e.g. Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, lat, lon float64) (ProviderReading, error)
}

// Geocoder resolves free text to ranked candidate places.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]GeocodingResult, error)
}

// ReverseGeocoder resolves coordinates to the best-matching place name.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}

// Store is the slice of application state the weather service reads and mutates.
type Store interface {
	AddCity(loc Location) bool
	SetCurrentCity(id string) error
	City(id string) (Location, bool)
	Cities() []Location
	Weather(id string) (WeatherSnapshot, bool)
	SetWeather(id string, snapshot WeatherSnapshot)
	SetError(msg string)
}
