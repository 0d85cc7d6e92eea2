package diorama

import (
	"context"

	"github.com/i474232898/sky-diorama/internal/weather"
)

// Request holds the inputs of one generation.
type Request struct {
	City        string
	Country     string
	Condition   weather.Condition
	Temperature int
	IsDay       bool
}

// RequestFor builds a Request from a location and its current weather.
func RequestFor(loc weather.Location, snap weather.WeatherSnapshot) Request {
	return Request{
		City:        loc.Name,
		Country:     loc.Country,
		Condition:   snap.Condition,
		Temperature: snap.Temperature,
		IsDay:       snap.IsDay,
	}
}

// Prompt renders the request with BuildPrompt.
func (r Request) Prompt() string {
	return BuildPrompt(r.City, r.Country, r.Condition, r.Temperature, r.IsDay)
}

// Generator turns a request into an image, returned as a data URI.
// Implementations make a single attempt and never write to any cache.
type Generator interface {
	Generate(ctx context.Context, req Request, apiKey string) (string, error)
}

// AltTexter describes a generated image for accessibility.
type AltTexter interface {
	Describe(ctx context.Context, mimeType string, data []byte) (string, error)
}
