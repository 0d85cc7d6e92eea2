package weather_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/sky-diorama/internal/state"
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
	err     error
	queries []string
}

func (f *fakeGeocoder) Search(_ context.Context, q string) ([]weather.GeocodingResult, error) {
	f.queries = append(f.queries, q)
	return f.results, f.err
}

type fakeReverse struct {
	result weather.GeocodingResult
	err    error
}

func (f *fakeReverse) Reverse(context.Context, float64, float64) (weather.GeocodingResult, error) {
	return f.result, f.err
}

var portoResult = weather.GeocodingResult{
	ID: 2735943, Name: "Porto", Country: "Portugal", CountryCode: "PT",
	Latitude: 41.15, Longitude: -8.61,
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newService(t *testing.T, p *fakeProvider, g *fakeGeocoder, r *fakeReverse, c *clock) (*weather.Service, *state.State) {
	t.Helper()
	st := state.New(nil, nil)
	var rev weather.ReverseGeocoder
	if r != nil {
		rev = r
	}
	var geo weather.Geocoder
	if g != nil {
		geo = g
	}
	opts := []weather.Option{}
	if c != nil {
		opts = append(opts, weather.WithClock(c.Now))
	}
	return weather.NewService(st, p, geo, rev, nil, opts...), st
}

func TestSearchCitiesShortQueryMakesNoCall(t *testing.T) {
	geo := &fakeGeocoder{results: []weather.GeocodingResult{portoResult}}
	svc, _ := newService(t, &fakeProvider{}, geo, nil, nil)

	for _, q := range []string{"", "P", "  P  ", "é"} {
		assert.Empty(t, svc.SearchCities(context.Background(), q))
	}
	assert.Empty(t, geo.queries)

	assert.Len(t, svc.SearchCities(context.Background(), " Po "), 1)
	assert.Equal(t, []string{"Po"}, geo.queries)
}

func TestSearchCitiesDegradesToEmpty(t *testing.T) {
	geo := &fakeGeocoder{err: errors.New("dns failure")}
	svc, _ := newService(t, &fakeProvider{}, geo, nil, nil)

	results := svc.SearchCities(context.Background(), "Porto")
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearchCitiesCapsResults(t *testing.T) {
	many := make([]weather.GeocodingResult, 8)
	for i := range many {
		many[i] = weather.GeocodingResult{ID: int64(i), Name: "Springfield"}
	}
	svc, _ := newService(t, &fakeProvider{}, &fakeGeocoder{results: many}, nil, nil)

	results := svc.SearchCities(context.Background(), "Springfield")
	assert.Len(t, results, weather.MaxSearchResults)
}

func TestReverseGeocodeFallsBack(t *testing.T) {
	svc, _ := newService(t, &fakeProvider{}, nil, &fakeReverse{err: errors.New("rate limited")}, nil)

	r := svc.ReverseGeocode(context.Background(), 10.5, -20.25)
	assert.Equal(t, weather.CurrentLocationName, r.Name)
	assert.Empty(t, r.Country)
	assert.Empty(t, r.CountryCode)
	assert.Equal(t, 10.5, r.Latitude)
	assert.Equal(t, -20.25, r.Longitude)
}

func TestReverseGeocodeKeepsRequestedCoordinates(t *testing.T) {
	rev := &fakeReverse{result: weather.GeocodingResult{Name: "Vila Nova de Gaia", Country: "Portugal", CountryCode: "PT", Latitude: 41.13, Longitude: -8.6}}
	svc, _ := newService(t, &fakeProvider{}, nil, rev, nil)

	r := svc.ReverseGeocode(context.Background(), 41.1, -8.61)
	assert.Equal(t, "Vila Nova de Gaia", r.Name)
	assert.Equal(t, "PT", r.CountryCode)
	assert.Equal(t, 41.1, r.Latitude)
	assert.Equal(t, -8.61, r.Longitude)

	rev.result = weather.GeocodingResult{Country: "Atlantic"}
	assert.Equal(t, weather.CurrentLocationName, svc.ReverseGeocode(context.Background(), 0, 0).Name)
}

func TestGetWeatherWrapsFailures(t *testing.T) {
	svc, _ := newService(t, &fakeProvider{err: errors.New("timeout")}, nil, nil, nil)

	_, err := svc.GetWeather(context.Background(), 1, 2)
	assert.ErrorIs(t, err, weather.ErrFetchFailed)
}

func TestSelectIsDeterministic(t *testing.T) {
	p := &fakeProvider{reading: weather.ProviderReading{TemperatureC: 18.4, WeatherCode: 3, IsDay: true}}
	svc, st := newService(t, p, nil, nil, nil)

	loc, snap, err := svc.Select(context.Background(), portoResult)
	require.NoError(t, err)
	assert.Equal(t, "41.15--8.61", loc.ID)
	assert.Equal(t, 18, snap.Temperature)
	assert.Equal(t, weather.ConditionOvercast, snap.Condition)

	again, _, err := svc.Select(context.Background(), portoResult)
	require.NoError(t, err)
	assert.Equal(t, loc.ID, again.ID)
	assert.Len(t, st.Cities(), 1)

	cur, ok := st.Current()
	require.True(t, ok)
	assert.Equal(t, loc.ID, cur.ID)
}

func TestSelectRecordsFetchFailure(t *testing.T) {
	svc, st := newService(t, &fakeProvider{err: errors.New("503")}, nil, nil, nil)

	loc, _, err := svc.Select(context.Background(), portoResult)
	assert.ErrorIs(t, err, weather.ErrFetchFailed)
	assert.Equal(t, "Failed to fetch weather data", st.Error())

	// The city stays selected even though its weather is missing.
	cur, ok := st.Current()
	require.True(t, ok)
	assert.Equal(t, loc.ID, cur.ID)
	_, ok = st.Weather(loc.ID)
	assert.False(t, ok)
}

func TestLocateUsesFallbackName(t *testing.T) {
	p := &fakeProvider{reading: weather.ProviderReading{TemperatureC: 5}}
	svc, st := newService(t, p, nil, &fakeReverse{err: errors.New("down")}, nil)

	loc, _, err := svc.Locate(context.Background(), 60.1, 24.9)
	require.NoError(t, err)
	assert.Equal(t, weather.CurrentLocationName, loc.Name)
	assert.Equal(t, "60.1-24.9", loc.ID)
	assert.Len(t, st.Cities(), 1)
}

func TestViewRefetchesOnlyWhenStale(t *testing.T) {
	c := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	p := &fakeProvider{reading: weather.ProviderReading{TemperatureC: 10}}
	svc, _ := newService(t, p, nil, nil, c)

	loc, _, err := svc.Select(context.Background(), portoResult)
	require.NoError(t, err)
	require.Equal(t, 1, p.calls)

	c.now = c.now.Add(29 * time.Minute)
	_, err = svc.View(context.Background(), loc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls, "29 minutes old is still fresh")
	assert.False(t, svc.NeedsRefresh(loc.ID))

	c.now = c.now.Add(2 * time.Minute)
	assert.True(t, svc.NeedsRefresh(loc.ID))
	_, err = svc.View(context.Background(), loc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls, "31 minutes old is stale")
}

func TestViewUnknownCity(t *testing.T) {
	svc, _ := newService(t, &fakeProvider{}, nil, nil, nil)

	_, err := svc.View(context.Background(), "nowhere")
	assert.ErrorIs(t, err, weather.ErrUnknownCity)
	_, err = svc.Ensure(context.Background(), "nowhere")
	assert.ErrorIs(t, err, weather.ErrUnknownCity)
}

func TestEnsureKeepsCurrentCity(t *testing.T) {
	p := &fakeProvider{reading: weather.ProviderReading{TemperatureC: 10}}
	svc, st := newService(t, p, nil, nil, nil)

	porto, _, err := svc.Select(context.Background(), portoResult)
	require.NoError(t, err)
	paris, _, err := svc.Select(context.Background(), weather.GeocodingResult{Name: "Paris", Latitude: 48.85, Longitude: 2.35})
	require.NoError(t, err)

	_, err = svc.Ensure(context.Background(), porto.ID)
	require.NoError(t, err)
	cur, _ := st.Current()
	assert.Equal(t, paris.ID, cur.ID)
}

func TestRefreshStale(t *testing.T) {
	c := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	p := &fakeProvider{reading: weather.ProviderReading{TemperatureC: 10}}
	svc, st := newService(t, p, nil, nil, c)

	_, _, err := svc.Select(context.Background(), portoResult)
	require.NoError(t, err)
	st.AddCity(weather.NewLocation("Oslo", "Norway", 59.91, 10.75))

	// Only Oslo has no weather yet.
	assert.Equal(t, 1, svc.RefreshStale(context.Background()))
	assert.Equal(t, 0, svc.RefreshStale(context.Background()))

	c.now = c.now.Add(time.Hour)
	assert.Equal(t, 2, svc.RefreshStale(context.Background()))

	c.now = c.now.Add(time.Hour)
	p.err = errors.New("down")
	assert.Equal(t, 0, svc.RefreshStale(context.Background()))
}

func TestWithStaleAfter(t *testing.T) {
	svc := weather.NewService(state.New(nil, nil), nil, nil, nil, nil, weather.WithStaleAfter(5*time.Minute))
	assert.Equal(t, 5*time.Minute, svc.StaleAfter())

	svc = weather.NewService(state.New(nil, nil), nil, nil, nil, nil, weather.WithStaleAfter(0))
	assert.Equal(t, weather.DefaultStaleAfter, svc.StaleAfter())
}
