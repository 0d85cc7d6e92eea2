package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/sky-diorama/internal/common"
	"github.com/i474232898/sky-diorama/internal/weather"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const DefaultReverseBaseURL = "https://geocode.maps.co"

// MapsCoReverseGeocoder implements weather.ReverseGeocoder using geocode.maps.co.
// The free tier allows one request per second, so calls wait on a limiter.
type MapsCoReverseGeocoder struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	circuit     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

// Models the subset of the reverse response that we care about.
type reverseResponse struct {
	Address struct {
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

func NewMapsCoReverseGeocoder(client *http.Client, baseURL, apiKey string, perSecond float64) *MapsCoReverseGeocoder {
	if baseURL == "" {
		baseURL = DefaultReverseBaseURL
	}
	if perSecond <= 0 {
		perSecond = 1
	}
	return &MapsCoReverseGeocoder{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		client:      client,
		circuit:     newBreaker("reverse-geocoding"),
		rateLimiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Reverse performs a coordinate to place lookup.
func (g *MapsCoReverseGeocoder) Reverse(ctx context.Context, lat, lon float64) (weather.GeocodingResult, error) {
	if err := g.rateLimiter.Wait(ctx); err != nil {
		return weather.GeocodingResult{}, err
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
		if g.apiKey != "" {
			values.Set("api_key", g.apiKey)
		}

		u := fmt.Sprintf("%s/reverse?%s", g.baseURL, values.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept-Language", "en")
		return req, nil
	}

	resp, err := doRequest(ctx, g.client, g.circuit, buildRequest)
	if err != nil {
		return weather.GeocodingResult{}, fmt.Errorf("reverse geocoding failed: %w", err)
	}
	defer resp.Body.Close()

	var data reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return weather.GeocodingResult{}, fmt.Errorf("reverse geocoding failed: decode response: %w", err)
	}

	return weather.GeocodingResult{
		Name:        common.FirstNonEmpty(data.Address.City, data.Address.Town, data.Address.Village),
		Latitude:    lat,
		Longitude:   lon,
		Country:     data.Address.Country,
		CountryCode: strings.ToUpper(data.Address.CountryCode),
	}, nil
}
