package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/assetflow/logging"
)

// ExecutionContext is the transient view handed to an executor for one run:
// the agent, its resolved input and output assets, and a read-only snapshot
// of the full session state.
type ExecutionContext struct {
	loggerAdapter

	Agent        Agent
	InputAssets  []Asset
	OutputAssets []Asset
	State        State
}

// NewExecutionContext builds an ExecutionContext. A nil logger is replaced by
// a NoOpLogger.
func NewExecutionContext(agent Agent, inputs, outputs []Asset, state State, logger logging.Logger) *ExecutionContext {
	return &ExecutionContext{
		loggerAdapter: newLoggerAdapter(logger),
		Agent:         agent,
		InputAssets:   inputs,
		OutputAssets:  outputs,
		State:         state,
	}
}

// Param returns the raw input parameter stored under key.
func (c *ExecutionContext) Param(key string) (any, bool) {
	v, ok := c.Agent.InputParameters[key]
	return v, ok
}

// StringParam returns the trimmed string parameter stored under key, or "".
func (c *ExecutionContext) StringParam(key string) string {
	v, ok := c.Param(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// IntParam returns the integer parameter stored under key, or fallback when
// absent or not a number. JSON numbers (float64) are accepted.
func (c *ExecutionContext) IntParam(key string, fallback int) int {
	v, ok := c.Param(key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

// ExecutionResult is the outcome of one executor run. OutputAssets is
// positional: OutputAssets[i] is merged into the agent's i-th output asset and
// nil entries leave that asset untouched.
type ExecutionResult struct {
	Success      bool          `json:"success"`
	OutputAssets []*AssetPatch `json:"outputAssets,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Executor is the capability contract implemented by every agent type.
type Executor interface {
	// Execute performs the agent's work. It may block on network I/O and is
	// the only blocking point of an agent run.
	Execute(ctx context.Context, execCtx *ExecutionContext) (*ExecutionResult, error)

	// ValidateInputs is a synchronous, side-effect free pre-check.
	ValidateInputs(execCtx *ExecutionContext) bool

	// RequiredInputTypes lists the semantic input tags the executor expects.
	// Advisory only.
	RequiredInputTypes() []DataType
}

// ExecutorRegistry resolves the executor responsible for an agent type.
type ExecutorRegistry interface {
	Lookup(t AgentType) (Executor, error)
}
