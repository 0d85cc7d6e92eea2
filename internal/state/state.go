// Package state owns the application state: known cities, the active city,
// weather and diorama metadata per city, the user credential and the
// transient UI flags. Mutations notify registered observers and persist the
// durable subset through a MetadataStore.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/i474232898/sky-diorama/internal/logger"
	"github.com/i474232898/sky-diorama/internal/storage"
	"github.com/i474232898/sky-diorama/internal/weather"
)

const persistTimeout = 5 * time.Second

var (
	ErrCityNotFound = errors.New("city not found")
	ErrNoWeather    = errors.New("no weather data for city")
)

// Diorama describes the latest generated image for a city. It never holds
// the image itself.
type Diorama struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	City        string            `json:"city"`
	Condition   weather.Condition `json:"condition"`
	IsDay       bool              `json:"isDay"`
	AltText     string            `json:"altText,omitempty"`
}

// Field names the part of the state a Change touched.
type Field string

const (
	FieldCities       Field = "cities"
	FieldCurrentCity  Field = "currentCityId"
	FieldWeather      Field = "weatherData"
	FieldDioramas     Field = "dioramas"
	FieldAPIKey       Field = "apiKey"
	FieldUseCustomKey Field = "useCustomKey"
	FieldGenerating   Field = "isGenerating"
	FieldError        Field = "error"
)

// Change is delivered to observers after every mutation.
type Change struct {
	Field  Field
	CityID string
}

// Observer receives changes. It runs synchronously on the mutating goroutine
// and must not call back into mutators.
type Observer func(Change)

// Snapshot is a read-only copy of the whole state.
type Snapshot struct {
	Cities        []weather.Location                 `json:"cities"`
	CurrentCityID string                             `json:"currentCityId,omitempty"`
	Weather       map[string]weather.WeatherSnapshot `json:"weatherData"`
	Dioramas      map[string]Diorama                 `json:"dioramas"`
	HasAPIKey     bool                               `json:"hasApiKey"`
	UseCustomKey  bool                               `json:"useCustomKey"`
	Generating    bool                               `json:"isGenerating"`
	Error         string                             `json:"error,omitempty"`
}

type State struct {
	mu sync.RWMutex
	// persistMu orders saves so a stale copy never lands after a newer one.
	persistMu sync.Mutex

	cities       []weather.Location
	currentID    string
	weather      map[string]weather.WeatherSnapshot
	dioramas     map[string]Diorama
	apiKey       string
	useCustomKey bool
	generating   bool
	err          string

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObs   int

	store MetadataStore
	log   *logger.Logger
}

// New creates an empty State. store may be nil, in which case nothing is persisted.
func New(store MetadataStore, log *logger.Logger) *State {
	if log == nil {
		log = logger.Nop()
	}
	return &State{
		weather:   make(map[string]weather.WeatherSnapshot),
		dioramas:  make(map[string]Diorama),
		observers: make(map[int]Observer),
		store:     store,
		log:       log.With("component", "state"),
	}
}

// Restore loads the persisted subset. A corrupt blob is discarded and the
// state starts empty; only read failures of the store itself are returned.
func (s *State) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	p, ok, err := s.store.Load(ctx)
	if errors.Is(err, storage.ErrCorrupt) {
		s.log.Warn("discarding corrupt persisted state", "error", err)
		if clearErr := s.store.Clear(ctx); clearErr != nil {
			s.log.Warn("failed to clear corrupt persisted state", "error", clearErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load persisted state: %w", err)
	}
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.cities = append([]weather.Location(nil), p.Cities...)
	s.currentID = p.CurrentCityID
	s.apiKey = p.APIKey
	s.useCustomKey = p.UseCustomKey
	s.dioramas = make(map[string]Diorama, len(p.Dioramas))
	for id, d := range p.Dioramas {
		s.dioramas[id] = d
	}
	if s.currentID != "" && s.indexOf(s.currentID) < 0 {
		s.currentID = ""
	}
	s.mu.Unlock()

	s.log.Info("restored persisted state", "cities", len(p.Cities), "dioramas", len(p.Dioramas))
	return nil
}

// Subscribe registers an observer and returns a function that removes it.
func (s *State) Subscribe(o Observer) func() {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = o
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *State) notify(c Change) {
	s.obsMu.RLock()
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.obsMu.RUnlock()

	for _, o := range observers {
		o(c)
	}
}

// persist saves the durable subset. Failures are logged and never block the caller.
func (s *State) persist() {
	if s.store == nil {
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	p := Persisted{
		Cities:        append([]weather.Location(nil), s.cities...),
		CurrentCityID: s.currentID,
		APIKey:        s.apiKey,
		UseCustomKey:  s.useCustomKey,
		Dioramas:      make(map[string]Diorama, len(s.dioramas)),
	}
	for id, d := range s.dioramas {
		p.Dioramas[id] = d
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.store.Save(ctx, p); err != nil {
		s.log.Warn("failed to persist state", "error", err)
	}
}

func (s *State) changed(c Change, durable bool) {
	if durable {
		s.persist()
	}
	s.notify(c)
}

// indexOf must be called with mu held.
func (s *State) indexOf(id string) int {
	for i, c := range s.cities {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Cities returns the known cities in insertion order.
func (s *State) Cities() []weather.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]weather.Location(nil), s.cities...)
}

func (s *State) City(id string) (weather.Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.cities[i], true
	}
	return weather.Location{}, false
}

// Current returns the active city, if any.
func (s *State) Current() (weather.Location, bool) {
	s.mu.RLock()
	id := s.currentID
	s.mu.RUnlock()
	if id == "" {
		return weather.Location{}, false
	}
	return s.City(id)
}

func (s *State) Weather(id string) (weather.WeatherSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.weather[id]
	return w, ok
}

func (s *State) Diorama(id string) (Diorama, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dioramas[id]
	return d, ok
}

func (s *State) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey
}

func (s *State) UseCustomKey() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.useCustomKey
}

func (s *State) Generating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generating
}

// Error returns the current user-facing error, or "".
func (s *State) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Snapshot copies the whole state. The credential itself is never included.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Cities:        append([]weather.Location{}, s.cities...),
		CurrentCityID: s.currentID,
		Weather:       make(map[string]weather.WeatherSnapshot, len(s.weather)),
		Dioramas:      make(map[string]Diorama, len(s.dioramas)),
		HasAPIKey:     s.apiKey != "",
		UseCustomKey:  s.useCustomKey,
		Generating:    s.generating,
		Error:         s.err,
	}
	for id, w := range s.weather {
		snap.Weather[id] = w
	}
	for id, d := range s.dioramas {
		snap.Dioramas[id] = d
	}
	return snap
}

// AddCity appends loc unless a city with the same ID is already known.
// It reports whether the city was added.
func (s *State) AddCity(loc weather.Location) bool {
	s.mu.Lock()
	if s.indexOf(loc.ID) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.cities = append(s.cities, loc)
	s.mu.Unlock()

	s.changed(Change{Field: FieldCities, CityID: loc.ID}, true)
	return true
}

// RemoveCity forgets a city together with its weather and diorama metadata,
// and clears the active city when it was the one removed. Cached artifacts
// are not touched.
func (s *State) RemoveCity(id string) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.cities = append(s.cities[:i:i], s.cities[i+1:]...)
	delete(s.weather, id)
	delete(s.dioramas, id)
	wasCurrent := s.currentID == id
	if wasCurrent {
		s.currentID = ""
	}
	s.mu.Unlock()

	s.changed(Change{Field: FieldCities, CityID: id}, true)
	if wasCurrent {
		s.notify(Change{Field: FieldCurrentCity})
	}
	return true
}

// SetCurrentCity makes a known city active.
func (s *State) SetCurrentCity(id string) error {
	s.mu.Lock()
	if s.indexOf(id) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCityNotFound, id)
	}
	s.currentID = id
	s.mu.Unlock()

	s.changed(Change{Field: FieldCurrentCity, CityID: id}, true)
	return nil
}

// SetWeather replaces the weather snapshot for a city.
func (s *State) SetWeather(id string, snapshot weather.WeatherSnapshot) {
	s.mu.Lock()
	s.weather[id] = snapshot
	s.mu.Unlock()

	s.changed(Change{Field: FieldWeather, CityID: id}, false)
}

// SetDiorama overwrites the diorama metadata for a city.
func (s *State) SetDiorama(id string, d Diorama) {
	s.mu.Lock()
	s.dioramas[id] = d
	s.mu.Unlock()

	s.changed(Change{Field: FieldDioramas, CityID: id}, true)
}

// RemoveDiorama drops the metadata for a city.
func (s *State) RemoveDiorama(id string) {
	s.mu.Lock()
	_, ok := s.dioramas[id]
	delete(s.dioramas, id)
	s.mu.Unlock()

	if ok {
		s.changed(Change{Field: FieldDioramas, CityID: id}, true)
	}
}

// SetAPIKey sets the credential; "" clears it.
func (s *State) SetAPIKey(key string) {
	s.mu.Lock()
	s.apiKey = key
	s.mu.Unlock()

	s.changed(Change{Field: FieldAPIKey}, true)
}

func (s *State) SetUseCustomKey(use bool) {
	s.mu.Lock()
	s.useCustomKey = use
	s.mu.Unlock()

	s.changed(Change{Field: FieldUseCustomKey}, true)
}

func (s *State) SetGenerating(generating bool) {
	s.mu.Lock()
	s.generating = generating
	s.mu.Unlock()

	s.changed(Change{Field: FieldGenerating}, false)
}

// SetError sets the single current error; "" dismisses it.
func (s *State) SetError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()

	s.changed(Change{Field: FieldError}, false)
}
