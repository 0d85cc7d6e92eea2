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

const (
	DefaultOpenMeteoBaseURL = "https://api.open-meteo.com/v1"

	openMeteoCurrentFields = "temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m,is_day"
)

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, baseURL string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoBaseURL
	}
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		circuit: newBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, lat, lon float64) (weather.ProviderReading, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
		values.Set("current", openMeteoCurrentFields)
		values.Set("timezone", "auto")

		u := fmt.Sprintf("%s/forecast?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.client, p.circuit, buildRequest)
	if err != nil {
		return weather.ProviderReading{}, fmt.Errorf("%w: %v", weather.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Current *struct {
			Temperature         float64 `json:"temperature_2m"`
			RelativeHumidity    float64 `json:"relative_humidity_2m"`
			ApparentTemperature float64 `json:"apparent_temperature"`
			WeatherCode         int     `json:"weather_code"`
			WindSpeed           float64 `json:"wind_speed_10m"`
			IsDay               int     `json:"is_day"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.ProviderReading{}, fmt.Errorf("%w: decode response: %v", weather.ErrFetchFailed, err)
	}
	if payload.Current == nil {
		return weather.ProviderReading{}, fmt.Errorf("%w: response has no current conditions", weather.ErrFetchFailed)
	}

	c := payload.Current
	return weather.ProviderReading{
		ProviderName: p.name,
		TemperatureC: c.Temperature,
		ApparentC:    c.ApparentTemperature,
		HumidityPct:  c.RelativeHumidity,
		WindSpeedKmh: c.WindSpeed,
		WeatherCode:  c.WeatherCode,
		IsDay:        c.IsDay == 1,
	}, nil
}
