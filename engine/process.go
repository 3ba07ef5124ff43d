package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/assetflow/core"
	"github.com/hupe1980/assetflow/session"
	"github.com/hupe1980/assetflow/telemetry"
)

// ProcessMessage runs one chat turn.
//
// The user message is appended before the chat collaborator is called, so it
// always precedes the reply it triggers. isProcessing is set for the whole
// turn and cleared on every exit path. On success the assistant reply, the
// side-effect assets (isInDb=false) and one IDLE agent plus its PENDING
// output placeholders per agent job are committed in a single store
// mutation. On failure a notification is emitted, nothing but the user
// message is kept and the error is returned.
//
// Blank input is a no-op returning (nil, nil).
func (c *Controller) ProcessMessage(ctx context.Context, text string) (resp *core.ChatResponse, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if c.chat == nil {
		return nil, core.NewValidation("no chat service configured")
	}

	sessionID := c.store.Snapshot().Metadata.SessionID
	ctx, span := telemetry.StartSpan(ctx, c.instruments.Tracer, "chat.process_message",
		telemetry.AttrSessionID.String(sessionID))

	var (
		chatDuration time.Duration
		agents       int
	)
	defer func() {
		c.instruments.Metrics.RecordMessage(ctx, chatDuration, agents, err)
		telemetry.EndSpan(span, err)
	}()

	userMsg := core.NewUserMessage(text)
	userMsg.Timestamp = c.clock()
	userMsg, err = c.store.AddMessage(userMsg)
	if err != nil {
		return nil, err
	}

	c.setProcessing(true)
	defer c.setProcessing(false)

	snapshot := c.store.Snapshot()
	history := historyBefore(snapshot.Messages, userMsg.ID)
	assets := snapshot.AssetList()

	c.logger.Debug("sending message", "session_id", sessionID, "history", len(history), "assets", len(assets))

	start := time.Now()
	resp, err = c.chat.SendMessage(ctx, text, history, assets)
	chatDuration = time.Since(start)
	if err == nil && resp == nil {
		err = errors.New("empty chat response")
	}
	if err != nil {
		err = asTransportFailure("send message", err)
		return nil, c.failTurn(ctx, err)
	}

	committed, created, err := c.applyResponse(resp)
	if err != nil {
		return nil, c.failTurn(ctx, err)
	}
	agents = created

	c.logger.Info("message processed",
		"session_id", sessionID,
		"agents_created", created,
		"assets_added", len(resp.SideEffects.Assets),
	)
	c.runCallbacks(ctx, CallbackOnMessage, &CallbackContext{Message: &committed})

	out := *resp
	out.Message = committed
	return &out, nil
}

// applyResponse commits the assistant reply and its side effects atomically.
func (c *Controller) applyResponse(resp *core.ChatResponse) (core.Message, int, error) {
	now := c.clock()
	var committed core.Message
	created := 0

	err := c.store.Dispatch(func(tx *session.Tx) error {
		msg := resp.Message
		msg.Role = core.RoleAssistant
		if msg.ID == "" {
			msg.ID = core.NewID()
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}
		var err error
		committed, err = tx.AddMessage(msg)
		if err != nil {
			return err
		}

		for _, a := range resp.SideEffects.Assets {
			a = a.Clone()
			a.Persistence = core.Persistence{}
			if _, taken := tx.State().Asset(a.ID); taken {
				a.ID = ""
			}
			if _, err := tx.AddAsset(a); err != nil {
				return fmt.Errorf("side-effect asset %q: %w", a.Name, err)
			}
		}

		for _, job := range resp.SideEffects.AgentJobs {
			agent, err := c.factory.CreateAgent(specFromJob(job))
			if err != nil {
				return fmt.Errorf("agent job %q: %w", job.Name, err)
			}
			agent, err = tx.AddAgent(agent)
			if err != nil {
				return fmt.Errorf("agent job %q: %w", job.Name, err)
			}
			for i := range agent.OutputAssetConfigs {
				if _, err := tx.AddAsset(placeholder(agent, i, now)); err != nil {
					return fmt.Errorf("agent job %q output %d: %w", job.Name, i, err)
				}
			}
			created++
		}

		tx.UpdateMetadata(core.MetadataPatch{UpdatedAt: &now})
		return nil
	})
	if err != nil {
		return core.Message{}, 0, err
	}
	return committed, created, nil
}

// failTurn surfaces a failed chat turn and returns err.
func (c *Controller) failTurn(ctx context.Context, err error) error {
	c.logger.Error("message processing failed", "error", err, "code", string(core.CodeOf(err)))
	c.notify(ctx, core.NotificationError, "Message failed", err.Error())
	c.runCallbacks(ctx, CallbackOnError, &CallbackContext{Err: err})
	return err
}

func (c *Controller) setProcessing(v bool) {
	now := c.clock()
	c.store.UpdateMetadata(core.MetadataPatch{IsProcessing: &v, UpdatedAt: &now})
}

// historyBefore returns the messages preceding the message with id.
func historyBefore(messages []core.Message, id string) []core.Message {
	for i, m := range messages {
		if m.ID == id {
			return append([]core.Message{}, messages[:i]...)
		}
	}
	return append([]core.Message{}, messages...)
}

// asTransportFailure keeps transport failures intact and wraps everything
// else as one.
func asTransportFailure(op string, err error) error {
	if errors.Is(err, core.ErrTransportFailure) {
		return err
	}
	return core.NewTransportFailure(op, err)
}
