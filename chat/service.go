package chat

import (
	"context"
	"time"

	"github.com/hupe1980/assetflow/core"
	"github.com/hupe1980/assetflow/internal/util"
	"github.com/hupe1980/assetflow/logging"
	"github.com/hupe1980/assetflow/model"
)

// Compile-time check.
var _ core.ChatService = (*ModelService)(nil)

// Options configures a ModelService.
type Options struct {
	// SystemPrompt is a text/template rendered with "agents" and "assets".
	SystemPrompt string
	// Catalog lists the agent types offered to the model.
	Catalog []AgentDescriptor
	// MaxHistory caps the number of prior messages sent. Zero sends all.
	MaxHistory int
	// MaxAssets caps the number of (most recent) assets listed in the prompt.
	MaxAssets int
	// Stream requests streamed generation from the model.
	Stream bool
	Logger logging.Logger
}

// ModelService is a core.ChatService backed by a language model.
type ModelService struct {
	model  model.Model
	opts   Options
	logger logging.Logger
}

// NewModelService creates a ModelService over m.
func NewModelService(m model.Model, optFns ...func(o *Options)) *ModelService {
	opts := Options{
		SystemPrompt: DefaultSystemPrompt,
		Catalog:      DefaultCatalog(),
		MaxHistory:   20,
		MaxAssets:    50,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &ModelService{model: m, opts: opts, logger: opts.Logger}
}

// SendMessage implements core.ChatService.
func (s *ModelService) SendMessage(ctx context.Context, text string, history []core.Message, assets []core.Asset) (*core.ChatResponse, error) {
	instructions, err := util.RenderTemplate(s.opts.SystemPrompt, map[string]any{
		"agents": s.opts.Catalog,
		"assets": summarize(assets, s.opts.MaxAssets),
	})
	if err != nil {
		return nil, core.NewValidation(err.Error())
	}

	req := model.Request{
		Instructions: instructions,
		Messages:     s.conversation(history, text),
		JSONMode:     true,
		Stream:       s.opts.Stream,
	}

	info := s.model.Info()
	start := time.Now()
	resp, err := model.Collect(ctx, s.model, req)
	if err != nil {
		s.logger.Error("model generation failed", "provider", info.Provider, "model", info.Name, "error", err)
		return nil, core.NewTransportFailure("generate", err)
	}

	args := []any{"provider", info.Provider, "model", info.Name, "finish_reason", resp.FinishReason, "duration", time.Since(start)}
	if resp.Usage != nil {
		args = append(args, "total_tokens", resp.Usage.TotalTokens)
	}
	s.logger.Debug("model replied", args...)

	out, err := ParseReply(resp.Text)
	if err != nil {
		s.logger.Warn("model reply rejected", "error", err)
		return nil, err
	}
	if resp.ID != "" {
		out.Message.Metadata = map[string]any{"modelResponseId": resp.ID}
	}
	return out, nil
}

// conversation maps the message log onto model turns and appends text.
func (s *ModelService) conversation(history []core.Message, text string) []model.Message {
	if s.opts.MaxHistory > 0 && len(history) > s.opts.MaxHistory {
		history = history[len(history)-s.opts.MaxHistory:]
	}
	out := make([]model.Message, 0, len(history)+1)
	for _, m := range history {
		role := model.RoleUser
		if m.Role == core.RoleAssistant {
			role = model.RoleAssistant
		}
		out = append(out, model.Message{Role: role, Content: m.Content})
	}
	return append(out, model.Message{Role: model.RoleUser, Content: text})
}
