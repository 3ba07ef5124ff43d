package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/assetflow/model"
)

var _ model.Model = (*Model)(nil)

func TestBuildMessages(t *testing.T) {
	msgs := buildMessages(model.Request{
		Instructions: "be brief",
		Messages: []model.Message{
			{Role: model.RoleUser, Content: "hi"},
			{Role: model.RoleAssistant, Content: "hello"},
			{Role: model.RoleUser, Content: ""},
			{Role: model.RoleUser, Content: "find mail"},
		},
	})
	require.Len(t, msgs, 4)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	assert.NotNil(t, msgs[2].OfAssistant)
	assert.NotNil(t, msgs[3].OfUser)
}

func TestBuildParams(t *testing.T) {
	m := NewModelFromClient(nil, func(o *Options) { o.Model = "gpt-test" })
	params := m.buildParams(model.Request{JSONMode: true}, nil)
	assert.Equal(t, "gpt-test", params.Model)
	assert.NotNil(t, params.ResponseFormat.OfJSONObject)

	params = m.buildParams(model.Request{}, nil)
	assert.Nil(t, params.ResponseFormat.OfJSONObject)
	assert.Equal(t, model.Info{Name: "gpt-test", Provider: "openai"}, m.Info())
}
