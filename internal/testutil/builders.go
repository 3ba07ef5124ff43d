package testutil

import (
	"github.com/hupe1980/assetflow/core"
)

// AssetBuilder helps construct assets with fluent chaining for tests.
// Example:
//
//	a := NewAssetBuilder("a1").Name("inbox").Content(core.EmailList{e}).Build()
type AssetBuilder struct {
	asset core.Asset
}

// NewAssetBuilder creates a builder for a READY asset with the given id.
func NewAssetBuilder(id string) *AssetBuilder {
	return &AssetBuilder{asset: core.Asset{ID: id, Name: id, Status: core.AssetStatusReady}}
}

// Name sets the asset name (chainable).
func (b *AssetBuilder) Name(name string) *AssetBuilder {
	b.asset.Name = name
	return b
}

// Content sets the content and derives the data type from it (chainable).
func (b *AssetBuilder) Content(c core.Content) *AssetBuilder {
	b.asset.Content = c
	if c != nil {
		b.asset.DataType = c.DataType()
	}
	return b
}

// DataType overrides the declared data type (chainable).
func (b *AssetBuilder) DataType(dt core.DataType) *AssetBuilder {
	b.asset.DataType = dt
	return b
}

// FileType sets the storage format tag (chainable).
func (b *AssetBuilder) FileType(ft core.FileType) *AssetBuilder {
	b.asset.FileType = ft
	return b
}

// Status sets the asset status (chainable).
func (b *AssetBuilder) Status(s core.AssetStatus) *AssetBuilder {
	b.asset.Status = s
	return b
}

// Pending marks the asset as a PENDING placeholder without content (chainable).
func (b *AssetBuilder) Pending() *AssetBuilder {
	b.asset.Status = core.AssetStatusPending
	b.asset.Content = nil
	return b
}

// AgentID links the asset to its producing agent (chainable).
func (b *AssetBuilder) AgentID(id string) *AssetBuilder {
	b.asset.Metadata.AgentID = id
	return b
}

// Persisted marks the asset as stored remotely under remoteID (chainable).
func (b *AssetBuilder) Persisted(remoteID string) *AssetBuilder {
	b.asset.Persistence.IsInDB = true
	b.asset.Persistence.RemoteID = remoteID
	return b
}

// Build returns the asset.
func (b *AssetBuilder) Build() core.Asset {
	return b.asset.Clone()
}

// AgentBuilder helps construct agents with fluent chaining for tests.
// Example:
//
//	ag := NewAgentBuilder("ag1", core.AgentTypeEmailSummarizer).Inputs("a1").Output("o1", cfg).Build()
type AgentBuilder struct {
	agent core.Agent
}

// NewAgentBuilder creates a builder for an IDLE agent of type t.
func NewAgentBuilder(id string, t core.AgentType) *AgentBuilder {
	return &AgentBuilder{agent: core.Agent{
		ID:             id,
		Name:           id,
		Type:           t,
		Status:         core.AgentStatusIdle,
		InputAssetIDs:  []string{},
		OutputAssetIDs: []string{},
	}}
}

// Param sets one input parameter (chainable).
func (b *AgentBuilder) Param(key string, val any) *AgentBuilder {
	if b.agent.InputParameters == nil {
		b.agent.InputParameters = map[string]any{}
	}
	b.agent.InputParameters[key] = val
	return b
}

// Inputs appends input asset ids (chainable).
func (b *AgentBuilder) Inputs(ids ...string) *AgentBuilder {
	b.agent.InputAssetIDs = append(b.agent.InputAssetIDs, ids...)
	return b
}

// Output appends one output asset id with its config (chainable).
func (b *AgentBuilder) Output(id string, cfg core.OutputAssetConfig) *AgentBuilder {
	b.agent.OutputAssetIDs = append(b.agent.OutputAssetIDs, id)
	b.agent.OutputAssetConfigs = append(b.agent.OutputAssetConfigs, cfg)
	return b
}

// Status sets the agent status (chainable).
func (b *AgentBuilder) Status(s core.AgentStatus) *AgentBuilder {
	b.agent.Status = s
	return b
}

// Build returns the agent.
func (b *AgentBuilder) Build() core.Agent {
	return b.agent.Clone()
}
