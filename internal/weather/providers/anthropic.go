package providers

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultAltTextModel     = "claude-3-haiku-20240307"
	DefaultAltTextMaxTokens = 120
)

const altTextPrompt = `Describe this miniature city diorama in one short sentence for a screen reader.
Aim for ~20 words. Mention the city, the weather shown and whether it is day or night.
Output ONLY the description - no markdown, no headers, no formatting.`

// ClaudeAltTexter implements diorama.AltTexter with Claude vision.
type ClaudeAltTexter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewClaudeAltTexter(apiKey, model string, maxTokens int) *ClaudeAltTexter {
	if model == "" {
		model = DefaultAltTextModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultAltTextMaxTokens
	}
	return &ClaudeAltTexter{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

// Describe returns a one-sentence description of the image.
func (c *ClaudeAltTexter) Describe(ctx context.Context, mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("image data is empty")
	}
	if !isAltTextMimeType(mimeType) {
		return "", fmt.Errorf("invalid MIME type for image: %s", mimeType)
	}

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(data)),
				anthropic.NewTextBlock(altTextPrompt),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate alt-text: %w", err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	if message.Content[0].Type != "text" {
		return "", fmt.Errorf("unexpected response type: %s", message.Content[0].Type)
	}
	return message.Content[0].Text, nil
}

// isAltTextMimeType reports whether Claude accepts the image type.
func isAltTextMimeType(mimeType string) bool {
	switch mimeType {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return true
	}
	return false
}
