package session

import (
	"sync"
	"time"

	"github.com/hupe1980/assetflow/core"
)

// Mutation is a whole-state transform. Returning an error discards every
// change made through tx.
type Mutation func(tx *Tx) error

// Options configures a Store.
type Options struct {
	// IDGenerator produces ids for entities added without one.
	IDGenerator func() string
	// Clock stamps createdAt/updatedAt on add when they are zero.
	Clock func() time.Time
}

// Store is a copy-on-write container for one session's entity tables.
// It is safe for concurrent use; mutations are serialized.
type Store struct {
	mu    sync.RWMutex
	state core.State
	opts  Options
}

// New constructs an empty Store.
func New(optFns ...func(o *Options)) *Store {
	opts := Options{
		IDGenerator: core.NewID,
		Clock:       func() time.Time { return time.Now().UTC() },
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	s := &Store{opts: opts}
	s.state = s.emptyState()
	return s
}

func (s *Store) emptyState() core.State {
	now := s.opts.Clock()
	return core.State{
		Assets:   map[string]core.Asset{},
		Agents:   map[string]core.Agent{},
		Messages: []core.Message{},
		Metadata: core.SessionMetadata{SessionID: s.opts.IDGenerator(), CreatedAt: now, UpdatedAt: now},
	}
}

// Snapshot returns the current published state. The returned value shares
// memory with the store and must not be modified.
func (s *Store) Snapshot() core.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Asset returns the asset stored under id.
func (s *Store) Asset(id string) (core.Asset, bool) {
	return s.Snapshot().Asset(id)
}

// Agent returns the agent stored under id.
func (s *Store) Agent(id string) (core.Agent, bool) {
	return s.Snapshot().Agent(id)
}

// Dispatch applies fn atomically. fn runs on a private clone of the current
// state; the clone replaces the published state only if fn returns nil.
func (s *Store) Dispatch(fn Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.Clone()
	tx := &Tx{state: &next, opts: s.opts}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = next
	return nil
}

// AddAsset stores a new asset and returns the stored value.
func (s *Store) AddAsset(a core.Asset) (core.Asset, error) {
	var out core.Asset
	err := s.Dispatch(func(tx *Tx) (err error) {
		out, err = tx.AddAsset(a)
		return err
	})
	return out, err
}

// UpdateAsset merges p into the asset stored under id.
func (s *Store) UpdateAsset(id string, p core.AssetPatch) (core.Asset, error) {
	var out core.Asset
	err := s.Dispatch(func(tx *Tx) (err error) {
		out, err = tx.UpdateAsset(id, p)
		return err
	})
	return out, err
}

// RemoveAsset deletes the asset stored under id.
func (s *Store) RemoveAsset(id string) error {
	return s.Dispatch(func(tx *Tx) error { return tx.RemoveAsset(id) })
}

// AddAgent stores a new agent and returns the stored value.
func (s *Store) AddAgent(a core.Agent) (core.Agent, error) {
	var out core.Agent
	err := s.Dispatch(func(tx *Tx) (err error) {
		out, err = tx.AddAgent(a)
		return err
	})
	return out, err
}

// UpdateAgent merges p into the agent stored under id.
func (s *Store) UpdateAgent(id string, p core.AgentPatch) (core.Agent, error) {
	var out core.Agent
	err := s.Dispatch(func(tx *Tx) (err error) {
		out, err = tx.UpdateAgent(id, p)
		return err
	})
	return out, err
}

// RemoveAgent deletes the agent stored under id. Its output assets are kept.
func (s *Store) RemoveAgent(id string) error {
	return s.Dispatch(func(tx *Tx) error { return tx.RemoveAgent(id) })
}

// AddMessage appends m to the conversation log.
func (s *Store) AddMessage(m core.Message) (core.Message, error) {
	var out core.Message
	err := s.Dispatch(func(tx *Tx) (err error) {
		out, err = tx.AddMessage(m)
		return err
	})
	return out, err
}

// ClearMessages empties the conversation log.
func (s *Store) ClearMessages() {
	_ = s.Dispatch(func(tx *Tx) error {
		tx.ClearMessages()
		return nil
	})
}

// UpdateMetadata merges p into the session metadata.
func (s *Store) UpdateMetadata(p core.MetadataPatch) core.SessionMetadata {
	var out core.SessionMetadata
	_ = s.Dispatch(func(tx *Tx) error {
		out = tx.UpdateMetadata(p)
		return nil
	})
	return out
}

// Reset restores empty tables under a fresh session id.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.emptyState()
}
