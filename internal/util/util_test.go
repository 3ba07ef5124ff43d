package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleSchema struct {
	A string `json:"a" description:"Field A"`
	B *int   `json:"b" description:"Optional pointer field"`
	C int    `json:"c,omitempty" description:"Omit empty field"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleSchema{})
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")
	// Required only includes non-pointer, non-omitempty exported fields
	assert.Equal(t, []string{"a"}, schema["required"])
	assert.Equal(t, "integer", props["b"].(map[string]any)["type"])
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		"required": []string{"x"},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"x": 5}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"x": float64(5)}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"x": 5, "extra": true}, schema))

	err := ValidateParameters(map[string]any{}, schema)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "x", vErr.Field)

	err = ValidateParameters(map[string]any{"x": "not-int"}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "expected type integer")

	err = ValidateParameters(map[string]any{"x": 2.5}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 2.5, vErr.Value)
}

func TestValidateParameters_CreatedSchemaEnforcesRequired(t *testing.T) {
	schema := CreateSchema(sampleSchema{})
	err := ValidateParameters(map[string]any{"c": 1}, schema)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "a", vErr.Field)
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("no markers", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers", out)

	out, err = RenderTemplate(`{{upper .name}} <{{default "none" .missing}}>`, map[string]any{"name": "inbox"})
	require.NoError(t, err)
	assert.Equal(t, "INBOX <none>", out)
}

func TestRenderTemplate_Helpers(t *testing.T) {
	data := map[string]any{
		"types": []string{"EMAIL_ACCESS", "EMAIL_FETCH"},
		"asset": map[string]any{"id": "a1"},
		"body":  "hello world",
	}
	out, err := RenderTemplate(`{{join ", " .types}} {{json .asset}} {{truncate 5 .body}}`, data)
	require.NoError(t, err)
	assert.Equal(t, `EMAIL_ACCESS, EMAIL_FETCH {"id":"a1"} hello...`, out)

	_, err = RenderTemplate("{{ .unclosed", nil)
	assert.Error(t, err)
}
