package diorama

import (
	"errors"
	"fmt"
)

var (
	// ErrAPIKeyRequired is returned before any network call when no credential is set.
	ErrAPIKeyRequired = errors.New("API key required: add your Gemini API key in settings")
	// ErrNoImage is returned when the upstream answered but sent no image part,
	// for example a text-only safety refusal.
	ErrNoImage = errors.New("no image generated: the model may not support image generation or the prompt was rejected")
	// ErrModelUnavailable is wrapped by UpstreamError when the upstream says the model cannot be used.
	ErrModelUnavailable = errors.New("the image model is not available with your current API key or region")
	// ErrNoArtifact is returned when no image is cached for a city.
	ErrNoArtifact = errors.New("no cached diorama for city")
	// ErrInvalidDataURI is returned for a cached payload that is not a base64 data URI.
	ErrInvalidDataURI = errors.New("invalid data URI")
)

// UpstreamError describes a failed call to the generation endpoint.
// StatusCode is zero when the request never got an HTTP response.
type UpstreamError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("image generation failed: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("image generation failed: %s", e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
