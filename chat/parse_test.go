package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/assetflow/core"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantMsg   string
		wantJobs  int
		wantAsset int
	}{
		{
			name:    "plain text",
			input:   "Hello there!",
			wantMsg: "Hello there!",
		},
		{
			name:     "json with job",
			input:    `{"message":"Searching.","agent_jobs":[{"agentType":"EMAIL_ACCESS","name":"Alice","input_parameters":{"from":"alice"},"output_asset_configs":[{"name":"Results","dataType":"EMAIL_LIST","fileType":"JSON"}]}]}`,
			wantMsg:  "Searching.",
			wantJobs: 1,
		},
		{
			name:     "fenced json",
			input:    "```json\n{\"message\":\"ok\",\"agent_jobs\":[]}\n```",
			wantMsg:  "ok",
			wantJobs: 0,
		},
		{
			name:      "json with text asset",
			input:     `{"message":"Saved a note.","assets":[{"name":"note","dataType":"TEXT","content":"remember the milk"}]}`,
			wantMsg:   "Saved a note.",
			wantAsset: 1,
		},
		{
			name:     "missing message gets default",
			input:    `{"agent_jobs":[{"agentType":"email_summarizer","output_asset_configs":[]}]}`,
			wantMsg:  "I've created 1 agent for you.",
			wantJobs: 1,
		},
		{
			name:     "job without type dropped",
			input:    `{"message":"hm","agent_jobs":[{"name":"nameless"}]}`,
			wantMsg:  "hm",
			wantJobs: 0,
		},
		{
			name:    "broken json falls back to text",
			input:   `{"message": "unterminated`,
			wantMsg: `{"message": "unterminated`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseReply(tt.input)
			require.NoError(t, err)
			assert.Equal(t, core.RoleAssistant, resp.Message.Role)
			assert.Equal(t, tt.wantMsg, resp.Message.Content)
			assert.Len(t, resp.SideEffects.AgentJobs, tt.wantJobs)
			assert.Len(t, resp.SideEffects.Assets, tt.wantAsset)
		})
	}
}

func TestParseReply_JobFields(t *testing.T) {
	resp, err := ParseReply(`{"message":"x","agent_jobs":[{"agentType":" email_access ","name":"Alice","input_parameters":{"from":"alice"},"output_asset_configs":[{"name":"Results","dataType":"EMAIL_LIST","fileType":"JSON"}]}]}`)
	require.NoError(t, err)
	require.Len(t, resp.SideEffects.AgentJobs, 1)
	job := resp.SideEffects.AgentJobs[0]
	assert.Equal(t, core.AgentTypeEmailAccess, job.AgentType)
	assert.Equal(t, "alice", job.InputParameters["from"])
	require.Len(t, job.OutputAssetConfigs, 1)
	assert.Equal(t, core.OutputAssetConfig{Name: "Results", DataType: core.DataTypeEmailList, FileType: core.FileTypeJSON}, job.OutputAssetConfigs[0])
}

func TestParseReply_AssetFields(t *testing.T) {
	resp, err := ParseReply(`{"message":"x","assets":[{"name":"note","dataType":"TEXT","content":"hi","tags":["a"]}]}`)
	require.NoError(t, err)
	a := resp.SideEffects.Assets[0]
	assert.Equal(t, core.Text("hi"), a.Content)
	assert.Equal(t, core.AssetStatusReady, a.Status)
	assert.Equal(t, []string{"a"}, a.Metadata.Tags)
	assert.False(t, a.Persistence.IsInDB)
}

func TestParseReply_InvalidAsset(t *testing.T) {
	_, err := ParseReply(`{"message":"x","assets":[{"name":"bad","dataType":"EMAIL_LIST","content":"not a list"}]}`)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = ParseReply(`{"message":"x","assets":[{"dataType":"TEXT","content":"nameless"}]}`)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
