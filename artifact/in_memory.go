package artifact

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/assetflow/core"
)

// Options configures the repository backends in this package tree.
type Options struct {
	// IDGenerator produces server ids for created assets.
	IDGenerator func() string
	// Clock stamps server-side timestamps.
	Clock func() time.Time
}

// DefaultOptions returns uuid ids and a UTC wall clock.
func DefaultOptions() Options {
	return Options{
		IDGenerator: core.NewID,
		Clock:       func() time.Time { return time.Now().UTC() },
	}
}

// InMemoryStore is a trivial in‑process AssetRepository useful for tests,
// examples and single‑process prototypes. Assets and file payloads are kept
// in maps guarded by an RWMutex and copied on the way in and out.
//
// It does not enforce retention limits or size quotas. For anything that
// must survive a restart use the sqlite or redis backends.
type InMemoryStore struct {
	mu     sync.RWMutex
	assets map[string]core.Asset
	order  []string
	files  map[string][]byte // asset id -> raw bytes
	opts   Options
}

// NewInMemoryStore returns an empty in‑memory asset repository.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{
		assets: make(map[string]core.Asset),
		files:  make(map[string][]byte),
		opts:   opts,
	}
}

// Create stores a new asset under a fresh server id.
func (s *InMemoryStore) Create(_ context.Context, in core.AssetInput) (core.Asset, error) {
	if err := ValidateInput(in); err != nil {
		return core.Asset{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := NewRecord(s.opts.IDGenerator(), in, s.opts.Clock())
	s.assets[a.ID] = a
	s.order = append(s.order, a.ID)
	return a.Clone(), nil
}

// Update replaces the stored fields of id with in.
func (s *InMemoryStore) Update(_ context.Context, id string, in core.AssetInput) (core.Asset, error) {
	if err := ValidateInput(in); err != nil {
		return core.Asset{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.assets[id]
	if !ok {
		return core.Asset{}, NotFound(id)
	}
	next := UpdateRecord(cur, in, s.opts.Clock())
	s.assets[id] = next
	return next.Clone(), nil
}

// Delete removes the asset and its file payload or returns ErrNotFound.
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[id]; !ok {
		return NotFound(id)
	}
	delete(s.assets, id)
	delete(s.files, id)
	out := s.order[:0]
	for _, v := range s.order {
		if v != id {
			out = append(out, v)
		}
	}
	s.order = out
	return nil
}

// List returns stored assets in creation order. The slice is a snapshot and
// safe for caller mutation.
func (s *InMemoryStore) List(_ context.Context, dataType core.DataType) ([]core.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Asset, 0, len(s.order))
	for _, id := range s.order {
		if a := s.assets[id]; Matches(a, dataType) {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

// Upload stores file as a FILE asset. The input bytes are copied.
func (s *InMemoryStore) Upload(_ context.Context, file core.FileUpload) (core.Asset, error) {
	if file.Name == "" {
		file.Name = file.FileName
	}
	a := FileRecord(s.opts.IDGenerator(), file, s.opts.Clock())
	if err := ValidateInput(core.InputFromAsset(a)); err != nil {
		return core.Asset{}, err
	}
	cp := make([]byte, len(file.Data))
	copy(cp, file.Data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.ID] = a
	s.order = append(s.order, a.ID)
	s.files[a.ID] = cp
	return a.Clone(), nil
}

// Download returns a copy of the stored file bytes.
func (s *InMemoryStore) Download(_ context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.assets[id]; !ok {
		return nil, NotFound(id)
	}
	data, ok := s.files[id]
	if !ok {
		return nil, ErrNoFile
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}
