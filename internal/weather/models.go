package weather

import (
	"strconv"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionClear    Condition = "clear"
	ConditionSunny    Condition = "sunny"
	ConditionCloudy   Condition = "cloudy"
	ConditionOvercast Condition = "overcast"
	ConditionRainy    Condition = "rainy"
	ConditionStormy   Condition = "stormy"
	ConditionSnowy    Condition = "snowy"
	ConditionFoggy    Condition = "foggy"
	ConditionWindy    Condition = "windy"
)

// Conditions lists every supported condition in declaration order.
var Conditions = []Condition{
	ConditionClear,
	ConditionSunny,
	ConditionCloudy,
	ConditionOvercast,
	ConditionRainy,
	ConditionStormy,
	ConditionSnowy,
	ConditionFoggy,
	ConditionWindy,
}

// Valid reports whether c is one of the fixed conditions.
func (c Condition) Valid() bool {
	for _, known := range Conditions {
		if c == known {
			return true
		}
	}
	return false
}

// DefaultStaleAfter is how old a snapshot may get before a view refetches it.
const DefaultStaleAfter = 30 * time.Minute

// Location represents a place the user has picked.
// ID is derived from the coordinates only, so the same place always maps to the same key.
type Location struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// LocationID returns the canonical key for a coordinate pair.
func LocationID(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "-" + strconv.FormatFloat(lon, 'f', -1, 64)
}

// NewLocation builds a Location with its coordinate-derived ID.
func NewLocation(name, country string, lat, lon float64) Location {
	return Location{
		ID:      LocationID(lat, lon),
		Name:    name,
		Country: country,
		Lat:     lat,
		Lon:     lon,
	}
}

// GeocodingResult is a single candidate returned by a geocoding lookup.
type GeocodingResult struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Admin1      string  `json:"admin1,omitempty"`
}

// Location converts the candidate into a Location.
func (r GeocodingResult) Location() Location {
	return NewLocation(r.Name, r.Country, r.Latitude, r.Longitude)
}

// WeatherSnapshot is the normalized current-conditions view for a location.
// Snapshots are replaced wholesale on refetch.
type WeatherSnapshot struct {
	Temperature int       `json:"temperature"`
	FeelsLike   int       `json:"feelsLike"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   int       `json:"windSpeed"`
	Condition   Condition `json:"condition"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	IsDay       bool      `json:"isDay"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Stale reports whether the snapshot is older than maxAge at now.
func (w WeatherSnapshot) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(w.UpdatedAt) > maxAge
}
