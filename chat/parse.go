package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/assetflow/core"
)

// reply is the JSON shape the model is asked to produce.
type reply struct {
	Message   string            `json:"message"`
	AgentJobs []core.AgentJob   `json:"agent_jobs"`
	Assets    []core.AssetInput `json:"assets"`
}

// ParseReply converts raw model output into a ChatResponse.
//
// Markdown code fences around the JSON object are ignored. Output that is not
// a JSON object yields a plain assistant message. A JSON object whose assets
// carry content contradicting their data type is a ValidationError. Jobs
// without an agent type are dropped.
func ParseReply(text string) (*core.ChatResponse, error) {
	text = strings.TrimSpace(text)
	body := stripFences(text)

	if !strings.HasPrefix(body, "{") {
		return plain(text), nil
	}

	var r reply
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		if errors.Is(err, core.ErrValidation) {
			return nil, err
		}
		return plain(text), nil
	}

	resp := &core.ChatResponse{
		Message: core.Message{Role: core.RoleAssistant, Content: strings.TrimSpace(r.Message)},
	}
	for _, job := range r.AgentJobs {
		if job.AgentType == "" {
			continue
		}
		job.AgentType = core.AgentType(strings.ToUpper(strings.TrimSpace(string(job.AgentType))))
		resp.SideEffects.AgentJobs = append(resp.SideEffects.AgentJobs, job)
	}
	for i, in := range r.Assets {
		a, err := assetFromInput(in)
		if err != nil {
			return nil, fmt.Errorf("asset %d: %w", i, err)
		}
		resp.SideEffects.Assets = append(resp.SideEffects.Assets, a)
	}

	if resp.Message.Content == "" {
		resp.Message.Content = defaultMessage(resp.SideEffects)
	}
	return resp, nil
}

func assetFromInput(in core.AssetInput) (core.Asset, error) {
	if strings.TrimSpace(in.Name) == "" {
		return core.Asset{}, core.NewValidation("asset name is required")
	}
	dt := in.DataType
	if dt == "" && in.Content != nil {
		dt = in.Content.DataType()
	}
	if err := core.CheckContent(dt, in.Content); err != nil {
		return core.Asset{}, err
	}
	return core.Asset{
		Name:        in.Name,
		Description: in.Description,
		FileType:    in.FileType,
		DataType:    dt,
		Content:     in.Content,
		Status:      core.AssetStatusReady,
		Metadata: core.AssetMetadata{
			Creator: in.Creator,
			Tags:    in.Tags,
		},
	}, nil
}

func plain(text string) *core.ChatResponse {
	return &core.ChatResponse{Message: core.Message{Role: core.RoleAssistant, Content: text}}
}

func defaultMessage(se core.SideEffects) string {
	switch n := len(se.AgentJobs); {
	case n == 1:
		return "I've created 1 agent for you."
	case n > 1:
		return fmt.Sprintf("I've created %d agents for you.", n)
	default:
		return "Done."
	}
}

// stripFences removes a surrounding ``` or ```json fence.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
