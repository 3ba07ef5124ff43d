package chat

import (
	"github.com/hupe1980/assetflow/core"
)

// AgentDescriptor documents an agent type for the model.
type AgentDescriptor struct {
	Type        core.AgentType  `json:"type"`
	Description string          `json:"description"`
	Parameters  []string        `json:"parameters,omitempty"`
	Inputs      []core.DataType `json:"inputs,omitempty"`
	Output      core.DataType   `json:"output"`
}

// DefaultCatalog describes the built-in executors.
func DefaultCatalog() []AgentDescriptor {
	return []AgentDescriptor{
		{
			Type:        core.AgentTypeEmailAccess,
			Description: "Searches the mailbox and returns matching emails.",
			Parameters:  []string{"query", "from", "to", "subject", "label", "maxResults"},
			Output:      core.DataTypeEmailList,
		},
		{
			Type:        core.AgentTypeEmailFetch,
			Description: "Fetches a single email by its mailbox id. Emits EMAIL, or a one-element EMAIL_LIST when the output declares that.",
			Parameters:  []string{"messageId"},
			Output:      core.DataTypeEmail,
		},
		{
			Type:        core.AgentTypeEmailSummarizer,
			Description: "Writes a text digest of exactly one email taken from its single input asset.",
			Inputs:      []core.DataType{core.DataTypeEmailList, core.DataTypeEmail},
			Output:      core.DataTypeText,
		},
	}
}

// DefaultSystemPrompt is rendered with "agents" ([]AgentDescriptor) and
// "assets" ([]assetSummary).
const DefaultSystemPrompt = `You are the planning assistant of an email workspace.
Users ask for emails to be found, fetched and summarized. You do not do the
work yourself; you declare agents that the user runs later.

Available agent types:
{{range .agents}}- {{.Type}}: {{.Description}}{{if .Parameters}} Parameters: {{join ", " .Parameters}}.{{end}} Produces {{.Output}}.
{{end}}
Assets in the workspace:
{{range .assets}}- id={{.ID}} name={{json .Name}} dataType={{.DataType}} status={{.Status}}{{if .Records}} records={{.Records}}{{end}}
{{else}}(none)
{{end}}
Answer with a single JSON object and nothing else:
{"message": "<reply to the user>",
 "agent_jobs": [{"agentType": "<type>", "name": "<short name>", "description": "<optional>",
   "input_parameters": {}, "input_asset_ids": [],
   "output_asset_configs": [{"name": "<name>", "dataType": "<data type>", "fileType": "JSON"}]}],
 "assets": []}
Reference existing assets by id in input_asset_ids. Use "agent_jobs": [] when
no agent is needed.`

// assetSummary is the prompt view of an asset. Content is never sent.
type assetSummary struct {
	ID       string
	Name     string
	DataType core.DataType
	Status   core.AssetStatus
	Records  int
}

func summarize(assets []core.Asset, limit int) []assetSummary {
	if limit > 0 && len(assets) > limit {
		assets = assets[len(assets)-limit:]
	}
	out := make([]assetSummary, len(assets))
	for i, a := range assets {
		out[i] = assetSummary{
			ID:       a.ID,
			Name:     a.Name,
			DataType: a.DataType,
			Status:   a.Status,
			Records:  core.RecordCount(a.Content),
		}
	}
	return out
}
