package diorama

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultMIMEType is used when an inline image part declares no media type.
const DefaultMIMEType = "image/png"

// Part is one content part of a generation response. It carries either text
// or inline base64 data.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData is a base64 payload with its declared media type.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// ExtractImage returns the first image part as a data URI. Text parts are
// ignored. An inline part without a media type is treated as DefaultMIMEType.
// ErrNoImage is returned when nothing usable is found.
func ExtractImage(parts []Part) (string, error) {
	for _, p := range parts {
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		mimeType := p.InlineData.MimeType
		if mimeType == "" {
			mimeType = DefaultMIMEType
		}
		if !strings.HasPrefix(mimeType, "image/") {
			continue
		}
		return DataURI(mimeType, p.InlineData.Data), nil
	}
	return "", ErrNoImage
}

// DataURI builds a base64 data URI from an already encoded payload.
func DataURI(mimeType, encoded string) string {
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	return "data:" + mimeType + ";base64," + encoded
}

// DecodeDataURI splits a base64 data URI into its media type and raw bytes.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: payload is not base64", ErrInvalidDataURI)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return mimeType, data, nil
}

var unsafeFilename = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// DownloadName returns the file name offered when a diorama is downloaded.
func DownloadName(city string, at time.Time, mimeType string) string {
	name := unsafeFilename.ReplaceAllString(strings.TrimSpace(city), "-")
	if name == "" {
		name = "weather"
	}
	ext := "png"
	if sub, ok := strings.CutPrefix(mimeType, "image/"); ok && sub != "" {
		ext = strings.TrimSuffix(sub, "+xml")
		if ext == "jpeg" {
			ext = "jpg"
		}
	}
	return fmt.Sprintf("skydiorama-%s-%d.%s", name, at.UnixMilli(), ext)
}
