package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/assetflow/core"
)

// ChatCall records one SendMessage invocation.
type ChatCall struct {
	Text    string
	History []core.Message
	Assets  []core.Asset
}

// StubChat is a scripted core.ChatService. Responses are returned in order;
// once exhausted the last one repeats. Err, when set, is returned instead.
type StubChat struct {
	mu        sync.Mutex
	Responses []*core.ChatResponse
	Err       error
	Calls     []ChatCall
}

// NewStubChat returns a StubChat replying with responses.
func NewStubChat(responses ...*core.ChatResponse) *StubChat {
	return &StubChat{Responses: responses}
}

// SendMessage implements core.ChatService.
func (s *StubChat) SendMessage(_ context.Context, text string, history []core.Message, assets []core.Asset) (*core.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, ChatCall{Text: text, History: history, Assets: assets})
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Responses) == 0 {
		return &core.ChatResponse{Message: core.Message{Content: "ok"}}, nil
	}
	idx := len(s.Calls) - 1
	if idx >= len(s.Responses) {
		idx = len(s.Responses) - 1
	}
	return s.Responses[idx], nil
}

// CallCount returns the number of SendMessage calls.
func (s *StubChat) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}

// StubExecutor is a core.Executor driven by a function.
type StubExecutor struct {
	Fn       func(ctx context.Context, execCtx *core.ExecutionContext) (*core.ExecutionResult, error)
	Valid    bool
	Required []core.DataType
}

// NewStubExecutor returns an executor whose inputs always validate.
func NewStubExecutor(fn func(ctx context.Context, execCtx *core.ExecutionContext) (*core.ExecutionResult, error)) *StubExecutor {
	return &StubExecutor{Fn: fn, Valid: true}
}

// Succeed returns an executor succeeding with the given output patches.
func Succeed(outputs ...*core.AssetPatch) *StubExecutor {
	return NewStubExecutor(func(context.Context, *core.ExecutionContext) (*core.ExecutionResult, error) {
		return &core.ExecutionResult{Success: true, OutputAssets: outputs}, nil
	})
}

// Execute implements core.Executor.
func (s *StubExecutor) Execute(ctx context.Context, execCtx *core.ExecutionContext) (*core.ExecutionResult, error) {
	return s.Fn(ctx, execCtx)
}

// ValidateInputs implements core.Executor.
func (s *StubExecutor) ValidateInputs(*core.ExecutionContext) bool { return s.Valid }

// RequiredInputTypes implements core.Executor.
func (s *StubExecutor) RequiredInputTypes() []core.DataType { return s.Required }

// FixedClock is a manually advanced clock.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock returns a clock frozen at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{now: t}
}

// Now returns the current fake time.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
