package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Role identifies the speaker of a conversation message sent to a model.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation handed to a model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request captures the normalized model input produced by the chat layer.
type Request struct {
	Instructions string    `json:"instructions"` // System prompt
	Messages     []Message `json:"messages"`
	// JSONMode asks providers that support it to reply with a single JSON
	// object.
	JSONMode bool `json:"json_mode,omitempty"`
	Stream   bool `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID           string      `json:"id"`
	Partial      bool        `json:"partial"` // Indicates if this is a partial response
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface required by the chat layer to drive
// generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrNoResponse is returned by Collect when a model closes its channels
// without a final response.
var ErrNoResponse = errors.New("model returned no response")

// Collect drains a Generate call and returns the final response. Partial
// chunks are concatenated into the final text when the provider leaves it
// empty.
func Collect(ctx context.Context, m Model, req Request) (*Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		final   *Response
		partial strings.Builder
	)
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if r.Partial {
				partial.WriteString(r.Text)
				continue
			}
			final = &r
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return nil, err
			}
		}
	}

	if final == nil {
		if partial.Len() == 0 {
			return nil, ErrNoResponse
		}
		final = &Response{Text: partial.String(), FinishReason: "stop"}
	}
	if final.Text == "" {
		final.Text = partial.String()
	}
	return final, nil
}

// MockModel is a lightweight in-memory Model useful for tests and examples.
// Replies are looked up by the text of the last message; unknown prompts are
// answered from the fallback queue and then with an echo.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	queue     []string
	err       error
	requests  []Request
}

// NewMockModel constructs a MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:     name,
			Provider: provider,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// QueueResponse appends a completion returned for prompts without a canned
// response, in FIFO order.
func (m *MockModel) QueueResponse(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, response)
}

// FailWith makes every following Generate call fail with err.
func (m *MockModel) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Requests returns the requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Generate implements Model; emits optional streaming chunks then the final
// response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	failure := m.err
	var full string
	if len(req.Messages) > 0 {
		inputText := req.Messages[len(req.Messages)-1].Content
		full = m.responses[inputText]
		if full == "" && len(m.queue) > 0 {
			full, m.queue = m.queue[0], m.queue[1:]
		}
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", inputText)
		}
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if failure != nil {
			errCh <- failure
			return
		}
		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}
		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Text: string(r)}:
				}
			}
		}
		respCh <- Response{
			Partial:      false,
			Text:         full,
			FinishReason: "stop",
		}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
