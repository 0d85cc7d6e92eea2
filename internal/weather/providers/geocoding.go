package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/sky-diorama/internal/weather"
	"github.com/sony/gobreaker"
)

const DefaultGeocodingBaseURL = "https://geocoding-api.open-meteo.com/v1"

// OpenMeteoGeocoder implements weather.Geocoder on top of the Open-Meteo geocoding API.
type OpenMeteoGeocoder struct {
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoGeocoder(client *http.Client, baseURL string) *OpenMeteoGeocoder {
	if baseURL == "" {
		baseURL = DefaultGeocodingBaseURL
	}
	return &OpenMeteoGeocoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		circuit: newBreaker("openmeteo-geocoding"),
	}
}

// Search returns up to weather.MaxSearchResults candidates ranked by the upstream.
func (g *OpenMeteoGeocoder) Search(ctx context.Context, query string) ([]weather.GeocodingResult, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("name", query)
		values.Set("count", strconv.Itoa(weather.MaxSearchResults))
		values.Set("language", "en")
		values.Set("format", "json")

		u := fmt.Sprintf("%s/search?%s", g.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, g.client, g.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("geocoding failed: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Results []weather.GeocodingResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("geocoding failed: decode response: %w", err)
	}

	if len(payload.Results) > weather.MaxSearchResults {
		payload.Results = payload.Results[:weather.MaxSearchResults]
	}
	return payload.Results, nil
}
