package diorama

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	DefaultThumbnailWidth = 256
	MaxThumbnailWidth     = 1024
)

// Thumbnail returns a JPEG of the cached image scaled to width, keeping the aspect ratio.
func (s *Service) Thumbnail(ctx context.Context, cityID string, width int) ([]byte, error) {
	if width <= 0 {
		width = DefaultThumbnailWidth
	}
	if width > MaxThumbnailWidth {
		width = MaxThumbnailWidth
	}

	art, err := s.Image(ctx, cityID)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(art.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode diorama: %w", err)
	}

	thumb := imaging.Resize(img, width, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
