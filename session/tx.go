package session

import (
	"fmt"

	"github.com/hupe1980/assetflow/core"
)

// maxIDAttempts bounds how often a colliding generated id is re-drawn.
const maxIDAttempts = 16

// Tx is the write handle passed to a Mutation. It operates on the private
// clone owned by the surrounding Dispatch and must not escape it.
type Tx struct {
	state *core.State
	opts  Options
}

// State returns the in-progress state, including changes already made
// through tx.
func (tx *Tx) State() core.State { return *tx.state }

func (tx *Tx) freshID(taken func(string) bool) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := tx.opts.IDGenerator()
		if id != "" && !taken(id) {
			return id, nil
		}
	}
	return "", core.NewValidation("could not generate a unique id")
}

func (tx *Tx) assetExists(id string) bool {
	_, ok := tx.state.Assets[id]
	return ok
}

func (tx *Tx) agentExists(id string) bool {
	_, ok := tx.state.Agents[id]
	return ok
}

// AddAsset inserts a. A missing id is generated, a missing status defaults to
// PENDING and zero timestamps are stamped with the store clock.
func (tx *Tx) AddAsset(a core.Asset) (core.Asset, error) {
	a = a.Clone()
	if a.ID == "" {
		id, err := tx.freshID(tx.assetExists)
		if err != nil {
			return core.Asset{}, err
		}
		a.ID = id
	} else if tx.assetExists(a.ID) {
		return core.Asset{}, core.NewValidation(fmt.Sprintf("asset already exists: %s", a.ID))
	}
	if err := core.CheckContent(a.DataType, a.Content); err != nil {
		return core.Asset{}, err
	}
	if a.Status == "" {
		a.Status = core.AssetStatusPending
	}
	now := tx.opts.Clock()
	if a.Metadata.CreatedAt.IsZero() {
		a.Metadata.CreatedAt = now
	}
	if a.Metadata.UpdatedAt.IsZero() {
		a.Metadata.UpdatedAt = a.Metadata.CreatedAt
	}
	tx.state.Assets[a.ID] = a
	tx.state.AssetOrder = append(tx.state.AssetOrder, a.ID)
	return a, nil
}

// UpdateAsset merges p into the asset stored under id. A patch that does not
// touch persistence marks a previously synced asset dirty.
func (tx *Tx) UpdateAsset(id string, p core.AssetPatch) (core.Asset, error) {
	cur, ok := tx.state.Assets[id]
	if !ok {
		return core.Asset{}, core.NewNotFound("asset", id)
	}
	next := cur.Apply(p)
	if err := core.CheckContent(next.DataType, next.Content); err != nil {
		return core.Asset{}, err
	}
	if p.Persistence == nil && cur.Persistence.LastSyncedAt != nil {
		next.Persistence.IsDirty = true
	}
	tx.state.Assets[id] = next
	return next, nil
}

// RemoveAsset deletes the asset stored under id. References held by agents
// are left dangling.
func (tx *Tx) RemoveAsset(id string) error {
	if !tx.assetExists(id) {
		return core.NewNotFound("asset", id)
	}
	delete(tx.state.Assets, id)
	tx.state.AssetOrder = without(tx.state.AssetOrder, id)
	return nil
}

// AddAgent inserts a. The agent must declare one output asset id per output
// config.
func (tx *Tx) AddAgent(a core.Agent) (core.Agent, error) {
	a = a.Clone()
	if a.Type == "" {
		return core.Agent{}, core.NewValidation("agent type is required")
	}
	if err := checkOutputArity(a); err != nil {
		return core.Agent{}, err
	}
	if a.ID == "" {
		id, err := tx.freshID(tx.agentExists)
		if err != nil {
			return core.Agent{}, err
		}
		a.ID = id
	} else if tx.agentExists(a.ID) {
		return core.Agent{}, core.NewValidation(fmt.Sprintf("agent already exists: %s", a.ID))
	}
	if a.Status == "" {
		a.Status = core.AgentStatusIdle
	}
	now := tx.opts.Clock()
	if a.Metadata.CreatedAt.IsZero() {
		a.Metadata.CreatedAt = now
	}
	if a.Metadata.UpdatedAt.IsZero() {
		a.Metadata.UpdatedAt = a.Metadata.CreatedAt
	}
	tx.state.Agents[a.ID] = a
	tx.state.AgentOrder = append(tx.state.AgentOrder, a.ID)
	return a, nil
}

// UpdateAgent merges p into the agent stored under id.
func (tx *Tx) UpdateAgent(id string, p core.AgentPatch) (core.Agent, error) {
	cur, ok := tx.state.Agents[id]
	if !ok {
		return core.Agent{}, core.NewNotFound("agent", id)
	}
	next := cur.Apply(p)
	if err := checkOutputArity(next); err != nil {
		return core.Agent{}, err
	}
	tx.state.Agents[id] = next
	return next, nil
}

// checkOutputArity requires one output asset id per output config.
func checkOutputArity(a core.Agent) error {
	if len(a.OutputAssetIDs) != len(a.OutputAssetConfigs) {
		return core.NewValidation(fmt.Sprintf(
			"agent declares %d output asset ids for %d output configs",
			len(a.OutputAssetIDs), len(a.OutputAssetConfigs)))
	}
	return nil
}

// RemoveAgent deletes the agent stored under id.
func (tx *Tx) RemoveAgent(id string) error {
	if !tx.agentExists(id) {
		return core.NewNotFound("agent", id)
	}
	delete(tx.state.Agents, id)
	tx.state.AgentOrder = without(tx.state.AgentOrder, id)
	return nil
}

// AddMessage appends m to the log, filling in a missing id or timestamp.
func (tx *Tx) AddMessage(m core.Message) (core.Message, error) {
	if m.Role != core.RoleUser && m.Role != core.RoleAssistant {
		return core.Message{}, core.NewValidation(fmt.Sprintf("invalid message role: %q", m.Role))
	}
	if m.ID == "" {
		m.ID = tx.opts.IDGenerator()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = tx.opts.Clock()
	}
	tx.state.Messages = append(tx.state.Messages, m)
	return m, nil
}

// ClearMessages empties the log.
func (tx *Tx) ClearMessages() {
	tx.state.Messages = []core.Message{}
}

// UpdateMetadata merges p into the session metadata.
func (tx *Tx) UpdateMetadata(p core.MetadataPatch) core.SessionMetadata {
	tx.state.Metadata = tx.state.Metadata.Apply(p)
	return tx.state.Metadata
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
