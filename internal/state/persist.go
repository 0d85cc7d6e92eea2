package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/i474232898/sky-diorama/internal/storage"
	"github.com/i474232898/sky-diorama/internal/weather"
)

// StorageKey names the persisted blob.
const StorageKey = "skydiorama-storage"

// Persisted is the subset of state that survives restarts. Weather, the
// generating flag and the current error are deliberately absent, and so are
// image payloads: those live in the artifact store.
type Persisted struct {
	Cities        []weather.Location `json:"cities"`
	CurrentCityID string             `json:"currentCityId,omitempty"`
	APIKey        string             `json:"apiKey,omitempty"`
	UseCustomKey  bool               `json:"useCustomKey"`
	Dioramas      map[string]Diorama `json:"dioramas"`
}

// MetadataStore loads and saves the persisted blob.
type MetadataStore interface {
	Load(ctx context.Context) (Persisted, bool, error)
	Save(ctx context.Context, p Persisted) error
	Clear(ctx context.Context) error
}

// KVMetadataStore keeps the blob as JSON under StorageKey in a KV.
type KVMetadataStore struct {
	kv storage.KV
}

func NewKVMetadataStore(kv storage.KV) *KVMetadataStore {
	return &KVMetadataStore{kv: kv}
}

// Load returns false when nothing was saved yet. A blob that does not decode
// yields storage.ErrCorrupt.
func (m *KVMetadataStore) Load(ctx context.Context) (Persisted, bool, error) {
	data, ok, err := m.kv.Get(ctx, StorageKey)
	if err != nil {
		return Persisted{}, false, err
	}
	if !ok {
		return Persisted{}, false, nil
	}

	var p Persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return Persisted{}, false, fmt.Errorf("%w: %v", storage.ErrCorrupt, err)
	}
	return p, true, nil
}

func (m *KVMetadataStore) Save(ctx context.Context, p Persisted) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return m.kv.Set(ctx, StorageKey, data)
}

func (m *KVMetadataStore) Clear(ctx context.Context) error {
	return m.kv.Delete(ctx, StorageKey)
}
