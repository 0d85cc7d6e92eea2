package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/i474232898/sky-diorama/internal/common"
	"github.com/i474232898/sky-diorama/internal/diorama"
	"github.com/sony/gobreaker"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-2.5-flash-image"
)

// GeminiGenerator implements diorama.Generator against the Gemini
// generateContent endpoint. The credential is passed per call.
type GeminiGenerator struct {
	baseURL string
	model   string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewGeminiGenerator(client *http.Client, baseURL, model string) *GeminiGenerator {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  client,
		circuit: newBreaker("gemini"),
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []diorama.Part `json:"parts"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate makes a single generation attempt.
func (g *GeminiGenerator) Generate(ctx context.Context, req diorama.Request, apiKey string) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", diorama.ErrAPIKeyRequired
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Parts: []diorama.Part{{Text: "Please generate a high-quality image of: " + req.Prompt()}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode generation request: %w", err)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		u := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, url.QueryEscape(apiKey))
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		return r, nil
	}

	resp, err := doRequest(ctx, g.client, g.circuit, buildRequest)
	if err != nil {
		return "", upstreamError(err)
	}
	defer resp.Body.Close()

	var payload geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &diorama.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    "invalid response body",
			Err:        err,
		}
	}

	var parts []diorama.Part
	if len(payload.Candidates) > 0 {
		parts = payload.Candidates[0].Content.Parts
	}
	return diorama.ExtractImage(parts)
}

func upstreamError(err error) error {
	var se *StatusError
	if !errors.As(err, &se) {
		return &diorama.UpstreamError{Message: err.Error(), Err: err}
	}

	msg := fmt.Sprintf("API error: %d", se.StatusCode)
	var body geminiErrorBody
	if json.Unmarshal(se.Body, &body) == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}

	ue := &diorama.UpstreamError{StatusCode: se.StatusCode, Message: msg, Err: se}
	if common.HasAny(strings.ToLower(msg), "not found", "not supported") {
		ue.Err = diorama.ErrModelUnavailable
	}
	return ue
}
