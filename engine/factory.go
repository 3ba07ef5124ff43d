package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/assetflow/core"
)

// FactoryOptions configures an AgentFactory.
type FactoryOptions struct {
	IDGenerator func() string
	Clock       func() time.Time
}

// AgentFactory is the default core.AgentFactory. It assigns a fresh agent id
// and one fresh output asset id per declared output config.
type AgentFactory struct {
	opts FactoryOptions
}

// NewAgentFactory creates an AgentFactory.
func NewAgentFactory(optFns ...func(o *FactoryOptions)) *AgentFactory {
	opts := FactoryOptions{
		IDGenerator: core.NewID,
		Clock:       func() time.Time { return time.Now().UTC() },
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &AgentFactory{opts: opts}
}

// CreateAgent builds an IDLE agent from spec. Blank names default to the
// agent type and unnamed outputs to "Output N".
func (f *AgentFactory) CreateAgent(spec core.AgentSpec) (core.Agent, error) {
	if spec.AgentType == "" {
		return core.Agent{}, core.NewValidation("agent type is required")
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		name = string(spec.AgentType)
	}

	configs := make([]core.OutputAssetConfig, len(spec.OutputAssetConfigs))
	outputIDs := make([]string, len(spec.OutputAssetConfigs))
	for i, cfg := range spec.OutputAssetConfigs {
		if strings.TrimSpace(cfg.Name) == "" {
			cfg.Name = fmt.Sprintf("Output %d", i+1)
		}
		configs[i] = cfg
		outputIDs[i] = f.opts.IDGenerator()
	}

	inputs := append([]string{}, spec.InputAssetIDs...)
	now := f.opts.Clock()
	agent := core.Agent{
		ID:                 f.opts.IDGenerator(),
		Name:               name,
		Description:        spec.Description,
		Type:               spec.AgentType,
		Status:             core.AgentStatusIdle,
		InputParameters:    spec.InputParameters,
		InputAssetIDs:      inputs,
		OutputAssetIDs:     outputIDs,
		OutputAssetConfigs: configs,
		Metadata: core.AgentMetadata{
			CreatedAt: now,
			UpdatedAt: now,
			Extra:     spec.Metadata,
		},
	}
	return agent.Clone(), nil
}

// specFromJob converts a chat agent job into a factory spec.
func specFromJob(job core.AgentJob) core.AgentSpec {
	return core.AgentSpec{
		AgentType:          job.AgentType,
		Name:               job.Name,
		Description:        job.Description,
		InputParameters:    job.InputParameters,
		InputAssetIDs:      job.InputAssetIDs,
		OutputAssetConfigs: job.OutputAssetConfigs,
	}
}

// placeholder is the PENDING asset created for the i-th output of agent.
func placeholder(agent core.Agent, i int, now time.Time) core.Asset {
	cfg := agent.OutputAssetConfigs[i]
	return core.Asset{
		ID:          agent.OutputAssetIDs[i],
		Name:        cfg.Name,
		Description: cfg.Description,
		FileType:    cfg.FileType,
		DataType:    cfg.DataType,
		Status:      core.AssetStatusPending,
		Metadata: core.AssetMetadata{
			CreatedAt: now,
			UpdatedAt: now,
			AgentID:   agent.ID,
		},
	}
}
