package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/sky-diorama/internal/diorama"
	"github.com/i474232898/sky-diorama/internal/logger"
	"github.com/i474232898/sky-diorama/internal/state"
	"github.com/i474232898/sky-diorama/internal/storage"
	"github.com/i474232898/sky-diorama/internal/weather"
)

type fakeProvider struct {
	reading weather.ProviderReading
	err     error
	calls   int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Fetch(context.Context, float64, float64) (weather.ProviderReading, error) {
	f.calls++
	return f.reading, f.err
}

type fakeGeocoder struct {
	results []weather.GeocodingResult
	calls   int
}

func (f *fakeGeocoder) Search(context.Context, string) ([]weather.GeocodingResult, error) {
	f.calls++
	return f.results, nil
}

type fakeGenerator struct {
	uri   string
	err   error
	calls int
}

func (f *fakeGenerator) Generate(context.Context, diorama.Request, string) (string, error) {
	f.calls++
	return f.uri, f.err
}

type testEnv struct {
	app       *fiber.App
	state     *state.State
	provider  *fakeProvider
	geocoder  *fakeGeocoder
	generator *fakeGenerator
}

func pngDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: 30, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	kv := storage.NewMemoryKV()
	st := state.New(state.NewKVMetadataStore(kv), logger.Nop())

	env := &testEnv{
		state: st,
		provider: &fakeProvider{reading: weather.ProviderReading{
			TemperatureC: 21.6,
			ApparentC:    20.2,
			HumidityPct:  55,
			WindSpeedKmh: 12.4,
			WeatherCode:  0,
			IsDay:        true,
		}},
		geocoder: &fakeGeocoder{results: []weather.GeocodingResult{
			{ID: 1, Name: "Porto", Country: "Portugal", CountryCode: "PT", Latitude: 41.15, Longitude: -8.61},
		}},
		generator: &fakeGenerator{uri: pngDataURI(t)},
	}

	weatherSvc := weather.NewService(st, env.provider, env.geocoder, nil, logger.Nop())
	dioramaSvc := diorama.NewService(st, env.generator, storage.NewArtifacts(kv, logger.Nop()), logger.Nop())

	env.app = fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(logger.Nop())})
	RegisterRoutes(env.app, Services{
		Weather:  weatherSvc,
		Dioramas: dioramaSvc,
		State:    st,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

const portoBody = `{"name":"Porto","country":"Portugal","country_code":"PT","latitude":41.15,"longitude":-8.61}`

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSearchShortQuerySkipsGeocoder(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/v1/cities/search?q=P", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Results []weather.GeocodingResult `json:"results"`
	}
	decode(t, resp, &body)
	assert.Empty(t, body.Results)
	assert.Zero(t, env.geocoder.calls)

	resp = env.do(t, http.MethodGet, "/api/v1/cities/search?q=Po", "")
	decode(t, resp, &body)
	assert.Len(t, body.Results, 1)
	assert.Equal(t, 1, env.geocoder.calls)
}

func TestSelectCity(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/cities", portoBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		City    weather.Location        `json:"city"`
		Weather weather.WeatherSnapshot `json:"weather"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "41.15--8.61", body.City.ID)
	assert.Equal(t, 22, body.Weather.Temperature)
	assert.Equal(t, weather.ConditionSunny, body.Weather.Condition)

	cur, ok := env.state.Current()
	require.True(t, ok)
	assert.Equal(t, body.City.ID, cur.ID)
}

func TestSelectCityValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := map[string]string{
		"missing name":      `{"latitude":41.15,"longitude":-8.61}`,
		"missing latitude":  `{"name":"Porto","longitude":-8.61}`,
		"latitude too high": `{"name":"Porto","latitude":95,"longitude":-8.61}`,
		"not json":          `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/v1/cities", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
	assert.Zero(t, env.provider.calls)
}

func TestSelectCityWeatherFailure(t *testing.T) {
	env := newTestEnv(t)
	env.provider.err = errors.New("boom")

	resp := env.do(t, http.MethodPost, "/api/v1/cities", portoBody)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, KindUpstream, body.Kind)
	assert.Equal(t, "Failed to fetch weather data", env.state.Error())
	assert.Len(t, env.state.Cities(), 1)
}

func TestLocateAcceptsZeroCoordinates(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/cities/locate", `{"lat":0,"lon":0}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		City weather.Location `json:"city"`
	}
	decode(t, resp, &body)
	assert.Equal(t, weather.CurrentLocationName, body.City.Name)
	assert.Equal(t, "0-0", body.City.ID)
}

func TestUnknownCity(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPut, "/api/v1/cities/current", `{"id":"nowhere"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/weather/nowhere", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/v1/cities/nowhere", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/cities", portoBody)

	resp := env.do(t, http.MethodPost, "/api/v1/dioramas/41.15--8.61", "")
	require.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)

	var body ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, KindAPIKeyRequired, body.Kind)
	assert.Zero(t, env.generator.calls)
}

func TestGenerateAndServeImage(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/cities", portoBody)

	resp := env.do(t, http.MethodPut, "/api/v1/settings/api-key", `{"apiKey":"secret"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/dioramas/41.15--8.61", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, env.generator.calls)

	resp = env.do(t, http.MethodGet, "/api/v1/dioramas/41.15--8.61", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/dioramas/41.15--8.61/image?download=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "skydiorama-Porto-")

	resp = env.do(t, http.MethodGet, "/api/v1/dioramas/41.15--8.61/thumbnail?w=10", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	resp = env.do(t, http.MethodGet, "/api/v1/dioramas/41.15--8.61/thumbnail?w=abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var stats diorama.CacheStats
	decode(t, env.do(t, http.MethodGet, "/api/v1/cache", ""), &stats)
	assert.Equal(t, 1, stats.Count)
	assert.Positive(t, stats.SizeBytes)

	resp = env.do(t, http.MethodDelete, "/api/v1/dioramas/41.15--8.61", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/dioramas/41.15--8.61/image", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/v1/dioramas/41.15--8.61", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGenerateNoImage(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/cities", portoBody)
	env.state.SetAPIKey("secret")
	env.generator.err = diorama.ErrNoImage

	resp := env.do(t, http.MethodPost, "/api/v1/dioramas/41.15--8.61", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestGenerateUpstreamError(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/cities", portoBody)
	env.state.SetAPIKey("secret")
	env.generator.err = &diorama.UpstreamError{StatusCode: 400, Message: "API key not valid"}

	resp := env.do(t, http.MethodPost, "/api/v1/dioramas/41.15--8.61", "")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, KindUpstream, body.Kind)
	assert.Contains(t, body.Message, "API key not valid")
}

func TestGenerateRateLimited(t *testing.T) {
	kv := storage.NewMemoryKV()
	st := state.New(state.NewKVMetadataStore(kv), logger.Nop())
	gen := &fakeGenerator{err: diorama.ErrNoImage}

	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(logger.Nop())})
	RegisterRoutes(app, Services{
		Weather:       weather.NewService(st, &fakeProvider{}, nil, nil, logger.Nop()),
		Dioramas:      diorama.NewService(st, gen, storage.NewArtifacts(kv, logger.Nop()), logger.Nop()),
		State:         st,
		GenerateLimit: 1,
	})

	first, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/dioramas/x", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, first.StatusCode)

	second, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/dioramas/x", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}

func TestStateHidesAPIKey(t *testing.T) {
	env := newTestEnv(t)
	env.state.SetAPIKey("secret")
	env.state.SetError("something went wrong")

	resp := env.do(t, http.MethodGet, "/api/v1/state", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	assert.Contains(t, string(raw), `"hasApiKey":true`)

	resp = env.do(t, http.MethodDelete, "/api/v1/state/error", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, env.state.Error())

	resp = env.do(t, http.MethodDelete, "/api/v1/settings/api-key", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, env.state.APIKey())
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		code int
		kind string
	}{
		{diorama.ErrAPIKeyRequired, 412, KindAPIKeyRequired},
		{state.ErrCityNotFound, 404, KindNotFound},
		{diorama.ErrNoImage, 422, KindNoImage},
		{&diorama.UpstreamError{StatusCode: 404, Err: diorama.ErrModelUnavailable}, 502, KindModelUnavailable},
		{&diorama.UpstreamError{StatusCode: 500}, 502, KindUpstream},
		{weather.ErrFetchFailed, 502, KindUpstream},
		{fiber.NewError(400, "bad"), 400, KindValidation},
		{errors.New("other"), 500, KindInternal},
	}
	for _, tc := range cases {
		code, kind := classify(tc.err)
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.Equal(t, tc.kind, kind, tc.err.Error())
	}
}
