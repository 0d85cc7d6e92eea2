package diorama

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/i474232898/sky-diorama/internal/logger"
	"github.com/i474232898/sky-diorama/internal/state"
	"github.com/i474232898/sky-diorama/internal/storage"
)

const (
	msgSelectCity    = "Please select a city first"
	msgAddAPIKey     = "Please add your Gemini API key to generate dioramas"
	msgGenerateFault = "Failed to generate diorama"
)

// Artifact is a decoded cached image ready to be served.
type Artifact struct {
	MIMEType string
	Data     []byte
	Filename string
}

// CacheStats is the diagnostic view of the artifact cache.
type CacheStats struct {
	SizeBytes int64  `json:"sizeBytes"`
	Size      string `json:"size"`
	Count     int    `json:"count"`
}

// Service runs the generation pipeline: it reads the city and its weather
// from state, calls the generator, then writes the artifact and metadata.
//
// Writes are not transactional. The artifact is written first, so a failure
// in between leaves an orphaned artifact rather than metadata pointing at nothing.
type Service struct {
	state     *state.State
	generator Generator
	artifacts storage.ArtifactStore
	altText   AltTexter
	log       *logger.Logger
	now       func() time.Time
}

type Option func(*Service)

// WithAltTexter enables accessibility descriptions for new dioramas.
func WithAltTexter(a AltTexter) Option {
	return func(s *Service) {
		s.altText = a
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(st *state.State, generator Generator, artifacts storage.ArtifactStore, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		state:     st,
		generator: generator,
		artifacts: artifacts,
		log:       log.With("service", "diorama"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate creates a new diorama for a known city with weather data.
// It fails with ErrAPIKeyRequired before any network call when no
// credential is set. The caller is expected to avoid overlapping calls.
func (s *Service) Generate(ctx context.Context, cityID string) (state.Diorama, error) {
	loc, ok := s.state.City(cityID)
	if !ok {
		s.state.SetError(msgSelectCity)
		return state.Diorama{}, fmt.Errorf("%w: %s", state.ErrCityNotFound, cityID)
	}
	snap, ok := s.state.Weather(cityID)
	if !ok {
		s.state.SetError(msgSelectCity)
		return state.Diorama{}, fmt.Errorf("%w: %s", state.ErrNoWeather, cityID)
	}
	apiKey := s.state.APIKey()
	if apiKey == "" {
		s.state.SetError(msgAddAPIKey)
		return state.Diorama{}, ErrAPIKeyRequired
	}

	s.state.SetGenerating(true)
	defer s.state.SetGenerating(false)
	s.state.SetError("")

	req := RequestFor(loc, snap)
	s.log.Info("generating diorama",
		"city", req.City,
		"country", req.Country,
		"condition", req.Condition,
		"temperature", req.Temperature,
		"isDay", req.IsDay,
	)

	uri, err := s.generator.Generate(ctx, req, apiKey)
	if err != nil {
		s.log.Error("diorama generation failed", "city", cityID, "error", err)
		s.state.SetError(errorMessage(err))
		return state.Diorama{}, err
	}

	if err := s.artifacts.Put(ctx, cityID, uri); err != nil {
		s.log.Error("failed to cache diorama", "city", cityID, "error", err)
		s.state.SetError(errorMessage(err))
		return state.Diorama{}, err
	}

	meta := state.Diorama{
		GeneratedAt: s.now().UTC(),
		City:        loc.Name,
		Condition:   snap.Condition,
		IsDay:       snap.IsDay,
	}
	meta.AltText = s.describe(ctx, cityID, uri)

	s.state.SetDiorama(cityID, meta)
	s.log.Info("diorama generated", "city", cityID, "bytes", len(uri))
	return meta, nil
}

// describe is best effort: a failure only costs the alt text.
func (s *Service) describe(ctx context.Context, cityID, uri string) string {
	if s.altText == nil {
		return ""
	}
	mimeType, data, err := DecodeDataURI(uri)
	if err != nil {
		s.log.Warn("cannot describe diorama", "city", cityID, "error", err)
		return ""
	}
	text, err := s.altText.Describe(ctx, mimeType, data)
	if err != nil {
		s.log.Warn("alt-text generation failed", "city", cityID, "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// Image returns the cached image for a city.
func (s *Service) Image(ctx context.Context, cityID string) (Artifact, error) {
	uri, ok, err := s.artifacts.Get(ctx, cityID)
	if err != nil {
		return Artifact{}, err
	}
	if !ok {
		return Artifact{}, fmt.Errorf("%w: %s", ErrNoArtifact, cityID)
	}

	mimeType, data, err := DecodeDataURI(uri)
	if err != nil {
		return Artifact{}, err
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = mimetype.Detect(data).String()
	}

	name := cityID
	if loc, ok := s.state.City(cityID); ok {
		name = loc.Name
	}
	return Artifact{
		MIMEType: mimeType,
		Data:     data,
		Filename: DownloadName(name, s.now(), mimeType),
	}, nil
}

// DataURI returns the cached payload exactly as stored.
func (s *Service) DataURI(ctx context.Context, cityID string) (string, error) {
	uri, ok, err := s.artifacts.Get(ctx, cityID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoArtifact, cityID)
	}
	return uri, nil
}

// Delete removes both the artifact and the metadata of a city.
func (s *Service) Delete(ctx context.Context, cityID string) error {
	if err := s.artifacts.Delete(ctx, cityID); err != nil {
		return err
	}
	s.state.RemoveDiorama(cityID)
	return nil
}

// ClearAll removes every cached artifact. Metadata is left alone.
func (s *Service) ClearAll(ctx context.Context) error {
	return s.artifacts.ClearAll(ctx)
}

// Stats reports cache size and count; both tolerate an unreadable store.
func (s *Service) Stats(ctx context.Context) CacheStats {
	size := s.artifacts.Size(ctx)
	return CacheStats{
		SizeBytes: size,
		Size:      storage.FormatSize(size),
		Count:     s.artifacts.Count(ctx),
	}
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrAPIKeyRequired) {
		return msgAddAPIKey
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return msgGenerateFault
}
