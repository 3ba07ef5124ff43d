package core

import "time"

// AgentType is the closed tag set selecting an agent's executor.
type AgentType string

const (
	// AgentTypeEmailAccess searches the mailbox and emits an EMAIL_LIST asset.
	AgentTypeEmailAccess AgentType = "EMAIL_ACCESS"
	// AgentTypeEmailFetch fetches a single message by id.
	AgentTypeEmailFetch AgentType = "EMAIL_FETCH"
	// AgentTypeEmailSummarizer produces a text digest of one email record.
	AgentTypeEmailSummarizer AgentType = "EMAIL_SUMMARIZER"
)

// AgentStatus is the lifecycle state of an agent:
//
//	IDLE -> RUNNING -> {COMPLETED, ERROR}
//	COMPLETED/ERROR -> RUNNING on re-invocation
type AgentStatus string

const (
	AgentStatusIdle      AgentStatus = "IDLE"
	AgentStatusRunning   AgentStatus = "RUNNING"
	AgentStatusCompleted AgentStatus = "COMPLETED"
	AgentStatusError     AgentStatus = "ERROR"
)

// OutputAssetConfig declares one output asset of an agent.
type OutputAssetConfig struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	FileType    FileType `json:"fileType,omitempty"`
	DataType    DataType `json:"dataType,omitempty"`
}

// AgentMetadata is the typed core metadata of an agent plus an open Extra map.
type AgentMetadata struct {
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
	LastExecutedAt      *time.Time       `json:"lastExecutedAt,omitempty"`
	LastExecutionResult *ExecutionResult `json:"lastExecutionResult,omitempty"`
	LastError           string           `json:"lastError,omitempty"`
	Extra               map[string]any   `json:"extra,omitempty"`
}

// Agent is a declarative unit of work. OutputAssetIDs[i] is the placeholder
// asset created for OutputAssetConfigs[i]; both slices have equal length.
type Agent struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Description        string              `json:"description,omitempty"`
	Type               AgentType           `json:"type"`
	Status             AgentStatus         `json:"status"`
	InputParameters    map[string]any      `json:"input_parameters,omitempty"`
	InputAssetIDs      []string            `json:"input_asset_ids"`
	OutputAssetIDs     []string            `json:"output_asset_ids"`
	OutputAssetConfigs []OutputAssetConfig `json:"output_asset_configs,omitempty"`
	Metadata           AgentMetadata       `json:"metadata"`
}

// Clone returns a copy of the agent whose slices and maps are not shared.
func (a Agent) Clone() Agent {
	a.InputParameters = cloneMap(a.InputParameters)
	a.InputAssetIDs = cloneIDs(a.InputAssetIDs)
	a.OutputAssetIDs = cloneIDs(a.OutputAssetIDs)
	if a.OutputAssetConfigs != nil {
		a.OutputAssetConfigs = append(make([]OutputAssetConfig, 0, len(a.OutputAssetConfigs)), a.OutputAssetConfigs...)
	}
	if a.Metadata.LastExecutedAt != nil {
		t := *a.Metadata.LastExecutedAt
		a.Metadata.LastExecutedAt = &t
	}
	a.Metadata.Extra = cloneMap(a.Metadata.Extra)
	return a
}

// AgentMetadataPatch is a partial update of AgentMetadata.
type AgentMetadataPatch struct {
	UpdatedAt           *time.Time
	LastExecutedAt      *time.Time
	LastExecutionResult *ExecutionResult
	LastError           *string
	Extra               map[string]any
}

// AgentPatch is a partial agent. Non-nil slices and maps replace the current
// value wholesale; Metadata is merged field by field.
type AgentPatch struct {
	Name            *string
	Description     *string
	Status          *AgentStatus
	InputParameters map[string]any
	InputAssetIDs   []string
	OutputAssetIDs  []string
	Metadata        *AgentMetadataPatch
}

// Apply returns a copy of a with p merged in.
func (a Agent) Apply(p AgentPatch) Agent {
	out := a.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.InputParameters != nil {
		out.InputParameters = cloneMap(p.InputParameters)
	}
	if p.InputAssetIDs != nil {
		out.InputAssetIDs = cloneIDs(p.InputAssetIDs)
	}
	if p.OutputAssetIDs != nil {
		out.OutputAssetIDs = cloneIDs(p.OutputAssetIDs)
	}
	if mp := p.Metadata; mp != nil {
		if mp.UpdatedAt != nil {
			out.Metadata.UpdatedAt = *mp.UpdatedAt
		}
		if mp.LastExecutedAt != nil {
			t := *mp.LastExecutedAt
			out.Metadata.LastExecutedAt = &t
		}
		if mp.LastExecutionResult != nil {
			out.Metadata.LastExecutionResult = mp.LastExecutionResult
		}
		if mp.LastError != nil {
			out.Metadata.LastError = *mp.LastError
		}
		out.Metadata.Extra = mergeMap(out.Metadata.Extra, mp.Extra)
	}
	return out
}

// cloneIDs copies ids, keeping an empty slice distinct from nil.
func cloneIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	return append(make([]string, 0, len(ids)), ids...)
}
