package providers

import (
	"context"
	"errors"

	"github.com/i474232898/sky-diorama/internal/common"
	"github.com/i474232898/sky-diorama/internal/weather"
	"github.com/kelvins/geocoder"
	"golang.org/x/time/rate"
)

// geocoder keeps its key in a package variable, so lookups are serialized.
// The slot is a channel so waiting callers can give up with their context.
var (
	googleSlot    = make(chan struct{}, 1)
	reverseLookup = geocoder.GeocodingReverse
)

type googleResult struct {
	addresses []geocoder.Address
	err       error
}

// GoogleReverseGeocoder implements weather.ReverseGeocoder with the Google
// Geocoding API. It is used instead of maps.co when a Google key is configured.
type GoogleReverseGeocoder struct {
	apiKey      string
	rateLimiter *rate.Limiter
}

func NewGoogleReverseGeocoder(apiKey string, perSecond float64) *GoogleReverseGeocoder {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &GoogleReverseGeocoder{
		apiKey:      apiKey,
		rateLimiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

func (g *GoogleReverseGeocoder) Reverse(ctx context.Context, lat, lon float64) (weather.GeocodingResult, error) {
	if g.apiKey == "" {
		return weather.GeocodingResult{}, errors.New("google geocoding api key is not configured")
	}
	if err := g.rateLimiter.Wait(ctx); err != nil {
		return weather.GeocodingResult{}, err
	}

	addresses, err := g.lookup(ctx, lat, lon)
	if err != nil {
		return weather.GeocodingResult{}, err
	}
	if len(addresses) == 0 {
		return weather.GeocodingResult{}, errors.New("google geocoding returned no addresses")
	}

	a := addresses[0]
	return weather.GeocodingResult{
		Name:      common.FirstNonEmpty(a.City, a.State),
		Latitude:  lat,
		Longitude: lon,
		Country:   a.Country,
	}, nil
}

// lookup runs the blocking geocoder call in the background. The library takes
// no context, so an abandoned call keeps the slot until it returns on its own.
func (g *GoogleReverseGeocoder) lookup(ctx context.Context, lat, lon float64) ([]geocoder.Address, error) {
	select {
	case googleSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	done := make(chan googleResult, 1)
	go func() {
		defer func() { <-googleSlot }()
		geocoder.ApiKey = g.apiKey
		addresses, err := reverseLookup(geocoder.Location{Latitude: lat, Longitude: lon})
		done <- googleResult{addresses: addresses, err: err}
	}()

	select {
	case r := <-done:
		return r.addresses, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
