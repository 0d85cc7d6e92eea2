package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/i474232898/sky-diorama/internal/logger"
)

const (
	// MinQueryLength is the shortest query that reaches the geocoder.
	MinQueryLength = 2
	// MaxSearchResults caps the candidates returned by a search.
	MaxSearchResults = 5
	// CurrentLocationName names a place whose reverse lookup failed.
	CurrentLocationName = "Current Location"

	fetchFailedMessage = "Failed to fetch weather data"
)

var (
	// ErrFetchFailed is returned when the weather upstream fails or sends garbage.
	ErrFetchFailed = errors.New("weather fetch failed")
	// ErrUnknownCity is returned when an operation names a city that is not known.
	ErrUnknownCity = errors.New("unknown city")
)

// Service orchestrates geocoding and weather lookups and writes results into the store.
type Service struct {
	store      Store
	provider   Provider
	geocoder   Geocoder
	reverse    ReverseGeocoder
	log        *logger.Logger
	staleAfter time.Duration
	now        func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithStaleAfter overrides DefaultStaleAfter.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new Service.
func NewService(store Store, provider Provider, geocoder Geocoder, reverse ReverseGeocoder, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		store:      store,
		provider:   provider,
		geocoder:   geocoder,
		reverse:    reverse,
		log:        log.With("service", "weather"),
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StaleAfter returns the configured staleness window.
func (s *Service) StaleAfter() time.Duration {
	return s.staleAfter
}

// SearchCities returns at most MaxSearchResults candidates for query.
// Short queries never reach the network, and lookup failures degrade to an
// empty result instead of an error.
func (s *Service) SearchCities(ctx context.Context, query string) []GeocodingResult {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength || s.geocoder == nil {
		return []GeocodingResult{}
	}

	results, err := s.geocoder.Search(ctx, query)
	if err != nil {
		s.log.Warn("geocoding search failed", "query", query, "error", err)
		return []GeocodingResult{}
	}
	if results == nil {
		return []GeocodingResult{}
	}
	if len(results) > MaxSearchResults {
		results = results[:MaxSearchResults]
	}
	return results
}

// ReverseGeocode resolves coordinates to a place. It never fails: when the
// lookup does not work out, a "Current Location" candidate with empty
// country fields is returned.
func (s *Service) ReverseGeocode(ctx context.Context, lat, lon float64) GeocodingResult {
	fallback := GeocodingResult{
		Name:      CurrentLocationName,
		Latitude:  lat,
		Longitude: lon,
	}
	if s.reverse == nil {
		return fallback
	}

	r, err := s.reverse.Reverse(ctx, lat, lon)
	if err != nil {
		s.log.Warn("reverse geocoding failed", "lat", lat, "lon", lon, "error", err)
		return fallback
	}
	if r.Name == "" {
		r.Name = CurrentLocationName
	}
	r.Latitude = lat
	r.Longitude = lon
	return r
}

// GetWeather fetches and normalizes current conditions for a coordinate pair.
func (s *Service) GetWeather(ctx context.Context, lat, lon float64) (WeatherSnapshot, error) {
	if s.provider == nil {
		return WeatherSnapshot{}, fmt.Errorf("%w: no weather provider configured", ErrFetchFailed)
	}

	reading, err := s.provider.Fetch(ctx, lat, lon)
	if err != nil {
		if errors.Is(err, ErrFetchFailed) {
			return WeatherSnapshot{}, err
		}
		return WeatherSnapshot{}, fmt.Errorf("%w: %s: %v", ErrFetchFailed, s.provider.Name(), err)
	}

	return Normalize(reading, s.now()), nil
}

// Select adds the chosen search result as a city, makes it current and
// fetches its weather. A weather failure is returned and recorded as the
// current error; the city stays selected.
func (s *Service) Select(ctx context.Context, r GeocodingResult) (Location, WeatherSnapshot, error) {
	loc := r.Location()

	s.store.AddCity(loc)
	if err := s.store.SetCurrentCity(loc.ID); err != nil {
		return loc, WeatherSnapshot{}, err
	}
	s.store.SetError("")

	snap, err := s.refresh(ctx, loc)
	if err != nil {
		return loc, WeatherSnapshot{}, err
	}
	return loc, snap, nil
}

// Locate reverse-geocodes a coordinate pair and selects the result.
func (s *Service) Locate(ctx context.Context, lat, lon float64) (Location, WeatherSnapshot, error) {
	return s.Select(ctx, s.ReverseGeocode(ctx, lat, lon))
}

// View makes a known city current and returns its weather, refetching when
// the cached snapshot is missing or stale.
func (s *Service) View(ctx context.Context, id string) (WeatherSnapshot, error) {
	loc, ok := s.store.City(id)
	if !ok {
		return WeatherSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownCity, id)
	}
	if err := s.store.SetCurrentCity(id); err != nil {
		return WeatherSnapshot{}, err
	}
	s.store.SetError("")

	return s.ensure(ctx, loc)
}

// Ensure returns the weather for a known city without changing the active
// city, refetching when the cached snapshot is missing or stale.
func (s *Service) Ensure(ctx context.Context, id string) (WeatherSnapshot, error) {
	loc, ok := s.store.City(id)
	if !ok {
		return WeatherSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownCity, id)
	}
	return s.ensure(ctx, loc)
}

func (s *Service) ensure(ctx context.Context, loc Location) (WeatherSnapshot, error) {
	if snap, ok := s.store.Weather(loc.ID); ok && !snap.Stale(s.now(), s.staleAfter) {
		return snap, nil
	}
	return s.refresh(ctx, loc)
}

// NeedsRefresh reports whether the city has no weather yet or a stale one.
func (s *Service) NeedsRefresh(id string) bool {
	snap, ok := s.store.Weather(id)
	return !ok || snap.Stale(s.now(), s.staleAfter)
}

// RefreshStale refetches weather for every known city whose snapshot is
// missing or stale. Failures are logged and skipped.
func (s *Service) RefreshStale(ctx context.Context) int {
	refreshed := 0
	for _, loc := range s.store.Cities() {
		if ctx.Err() != nil {
			break
		}
		if !s.NeedsRefresh(loc.ID) {
			continue
		}

		snap, err := s.GetWeather(ctx, loc.Lat, loc.Lon)
		if err != nil {
			s.log.Warn("background refresh failed", "city", loc.ID, "error", err)
			continue
		}
		s.store.SetWeather(loc.ID, snap)
		refreshed++
	}
	return refreshed
}

func (s *Service) refresh(ctx context.Context, loc Location) (WeatherSnapshot, error) {
	snap, err := s.GetWeather(ctx, loc.Lat, loc.Lon)
	if err != nil {
		s.log.Error("weather fetch failed", "city", loc.ID, "error", err)
		s.store.SetError(fetchFailedMessage)
		return WeatherSnapshot{}, err
	}
	s.store.SetWeather(loc.ID, snap)
	return snap, nil
}
