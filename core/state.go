package core

import "time"

// SessionMetadata describes the session owning the entity tables.
type SessionMetadata struct {
	SessionID    string         `json:"sessionId"`
	IsProcessing bool           `json:"isProcessing"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// MetadataPatch is a partial update of SessionMetadata.
type MetadataPatch struct {
	IsProcessing *bool
	UpdatedAt    *time.Time
	Extra        map[string]any
}

// Apply returns a copy of m with p merged in.
func (m SessionMetadata) Apply(p MetadataPatch) SessionMetadata {
	if p.IsProcessing != nil {
		m.IsProcessing = *p.IsProcessing
	}
	if p.UpdatedAt != nil {
		m.UpdatedAt = *p.UpdatedAt
	}
	m.Extra = mergeMap(m.Extra, p.Extra)
	return m
}

// State is a snapshot of the session container: three independent tables
// plus session metadata. Snapshots handed out by the store are never
// modified afterwards and must be treated as read-only.
type State struct {
	Assets     map[string]Asset
	AssetOrder []string
	Agents     map[string]Agent
	AgentOrder []string
	Messages   []Message
	Metadata   SessionMetadata
}

// NewState returns an empty state for a fresh session.
func NewState() State {
	now := time.Now().UTC()
	return State{
		Assets:   map[string]Asset{},
		Agents:   map[string]Agent{},
		Messages: []Message{},
		Metadata: SessionMetadata{SessionID: NewID(), CreatedAt: now, UpdatedAt: now},
	}
}

// Clone copies the tables so the result can be modified without affecting s.
// Entity values are copied by value; their nested slices are replaced, never
// mutated in place, by Apply.
func (s State) Clone() State {
	out := State{
		Assets:     make(map[string]Asset, len(s.Assets)),
		AssetOrder: append([]string(nil), s.AssetOrder...),
		Agents:     make(map[string]Agent, len(s.Agents)),
		AgentOrder: append([]string(nil), s.AgentOrder...),
		Messages:   append(make([]Message, 0, len(s.Messages)), s.Messages...),
		Metadata:   s.Metadata,
	}
	for k, v := range s.Assets {
		out.Assets[k] = v
	}
	for k, v := range s.Agents {
		out.Agents[k] = v
	}
	out.Metadata.Extra = cloneMap(s.Metadata.Extra)
	return out
}

// Asset returns the asset with the given id.
func (s State) Asset(id string) (Asset, bool) {
	a, ok := s.Assets[id]
	return a, ok
}

// Agent returns the agent with the given id.
func (s State) Agent(id string) (Agent, bool) {
	a, ok := s.Agents[id]
	return a, ok
}

// AssetList returns all assets in insertion order.
func (s State) AssetList() []Asset {
	out := make([]Asset, 0, len(s.Assets))
	for _, id := range s.AssetOrder {
		if a, ok := s.Assets[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// AgentList returns all agents in insertion order.
func (s State) AgentList() []Agent {
	out := make([]Agent, 0, len(s.Agents))
	for _, id := range s.AgentOrder {
		if a, ok := s.Agents[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// ResolveAssets dereferences ids against the asset table preserving order.
// Dangling ids are dropped silently.
func (s State) ResolveAssets(ids []string) []Asset {
	out := make([]Asset, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.Assets[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// AssetsByAgent returns the assets whose metadata links them to agentID.
func (s State) AssetsByAgent(agentID string) []Asset {
	var out []Asset
	for _, a := range s.AssetList() {
		if a.Metadata.AgentID == agentID {
			out = append(out, a)
		}
	}
	return out
}
