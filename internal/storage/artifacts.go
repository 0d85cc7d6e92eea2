package storage

import (
	"context"
	"fmt"

	"github.com/i474232898/sky-diorama/internal/logger"
)

const (
	// ArtifactPrefix separates diorama artifacts from anything else in the same KV.
	ArtifactPrefix = "diorama-"
	// SizeUnknown is reported by Size when the store cannot be read.
	SizeUnknown int64 = -1
)

// ArtifactStore keeps generated images keyed by location ID.
type ArtifactStore interface {
	Put(ctx context.Context, locationID, imageData string) error
	// Get returns false when no artifact exists; that is not an error.
	Get(ctx context.Context, locationID string) (string, bool, error)
	Delete(ctx context.Context, locationID string) error
	// ClearAll removes every artifact and nothing else.
	ClearAll(ctx context.Context) error
	// Size is the total byte size of all artifacts, or SizeUnknown.
	Size(ctx context.Context) int64
	// Count is the number of artifacts, or zero when the store cannot be read.
	Count(ctx context.Context) int
}

// Artifacts implements ArtifactStore on top of any KV.
type Artifacts struct {
	kv  KV
	log *logger.Logger
}

func NewArtifacts(kv KV, log *logger.Logger) *Artifacts {
	if log == nil {
		log = logger.Nop()
	}
	return &Artifacts{kv: kv, log: log.With("store", "artifacts")}
}

func artifactKey(locationID string) string {
	return ArtifactPrefix + locationID
}

func (a *Artifacts) Put(ctx context.Context, locationID, imageData string) error {
	if err := a.kv.Set(ctx, artifactKey(locationID), []byte(imageData)); err != nil {
		return fmt.Errorf("failed to cache diorama: %w", err)
	}
	return nil
}

func (a *Artifacts) Get(ctx context.Context, locationID string) (string, bool, error) {
	data, ok, err := a.kv.Get(ctx, artifactKey(locationID))
	if err != nil {
		return "", false, fmt.Errorf("failed to read cached diorama: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return string(data), true, nil
}

func (a *Artifacts) Delete(ctx context.Context, locationID string) error {
	if err := a.kv.Delete(ctx, artifactKey(locationID)); err != nil {
		return fmt.Errorf("failed to delete cached diorama: %w", err)
	}
	return nil
}

func (a *Artifacts) ClearAll(ctx context.Context) error {
	keys, err := a.kv.Keys(ctx, ArtifactPrefix)
	if err != nil {
		return fmt.Errorf("failed to list cached dioramas: %w", err)
	}
	for _, k := range keys {
		if err := a.kv.Delete(ctx, k); err != nil {
			return fmt.Errorf("failed to clear cached dioramas: %w", err)
		}
	}
	return nil
}

func (a *Artifacts) Size(ctx context.Context) int64 {
	keys, err := a.kv.Keys(ctx, ArtifactPrefix)
	if err != nil {
		a.log.Warn("failed to get cache size", "error", err)
		return SizeUnknown
	}

	var total int64
	for _, k := range keys {
		data, ok, err := a.kv.Get(ctx, k)
		if err != nil {
			a.log.Warn("failed to get cache size", "key", k, "error", err)
			return SizeUnknown
		}
		if ok {
			total += int64(len(data))
		}
	}
	return total
}

func (a *Artifacts) Count(ctx context.Context) int {
	keys, err := a.kv.Keys(ctx, ArtifactPrefix)
	if err != nil {
		a.log.Warn("failed to get cached diorama count", "error", err)
		return 0
	}
	return len(keys)
}

// FormatSize renders a byte count the way the cache panel shows it.
func FormatSize(n int64) string {
	if n < 0 {
		return "Unknown"
	}
	return fmt.Sprintf("%.2f KB (%.2f MB)", float64(n)/1024, float64(n)/(1024*1024))
}
