package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/assetflow/model"
)

var _ model.Model = (*Model)(nil)

func TestBuildMessages_MergesConsecutiveRoles(t *testing.T) {
	msgs := buildMessages([]model.Message{
		{Role: model.RoleUser, Content: "one"},
		{Role: model.RoleUser, Content: "two"},
		{Role: model.RoleAssistant, Content: ""},
		{Role: model.RoleAssistant, Content: "three"},
		{Role: "system", Content: "four"},
	})
	require.Len(t, msgs, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[0].Role)
	assert.Len(t, msgs[0].Content, 2)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[2].Role)
}

func TestInfo(t *testing.T) {
	m := NewModelFromClient(nil, func(o *Options) { o.Model = "claude-test" })
	assert.Equal(t, model.Info{Name: "claude-test", Provider: "anthropic"}, m.Info())
}
