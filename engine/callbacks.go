package engine

import (
	"context"
	"fmt"

	"github.com/hupe1980/assetflow/core"
)

// CallbackType defines the lifecycle points where callbacks run.
//
// Callbacks hook into the controller's pipeline without modifying core logic.
// Available callback types:
//   - BeforeExecute/AfterExecute: around an executor run
//   - OnError: when an agent run or a chat turn fails
//   - OnMessage: after an assistant reply has been committed
//
// BeforeExecute and AfterExecute callbacks can fail the run by returning an
// error; the error is routed through the agent's failure branch. Errors from
// OnError and OnMessage callbacks are logged and otherwise ignored.
type CallbackType string

const (
	// CallbackBeforeExecute is triggered after the agent entered RUNNING and
	// its executor was resolved, right before Execute is called.
	CallbackBeforeExecute CallbackType = "before_execute"

	// CallbackAfterExecute is triggered after a successful Execute, before
	// outputs are written back to the store.
	CallbackAfterExecute CallbackType = "after_execute"

	// CallbackOnError is triggered when an agent run or a chat turn fails.
	CallbackOnError CallbackType = "on_error"

	// CallbackOnMessage is triggered after an assistant reply and its side
	// effects have been committed.
	CallbackOnMessage CallbackType = "on_message"
)

// CallbackContext carries the information a callback may inspect.
type CallbackContext struct {
	// CallbackType indicates which lifecycle point triggered the callback.
	CallbackType CallbackType

	// AgentID and AgentType identify the agent of an execution callback.
	// Both are empty for chat callbacks.
	AgentID   string
	AgentType core.AgentType

	// Agent is the agent snapshot the run was started with.
	Agent *core.Agent

	// Message is the committed assistant reply (OnMessage only).
	Message *core.Message

	// Result is the executor result (AfterExecute only).
	Result *core.ExecutionResult

	// Err is the failure being reported (OnError only).
	Err error

	// Metadata provides extensible storage for custom callback data.
	Metadata map[string]any
}

// Callback defines the interface for lifecycle hooks.
//
// Implementations should be fast since callbacks run synchronously on the
// caller's goroutine.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic with the provided context.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	audit := NewFunctionCallback(
//	    CallbackBeforeExecute,
//	    func(ctx context.Context, cc *CallbackContext) error {
//	        log.Printf("running agent: %s", cc.AgentID)
//	        return nil
//	    },
//	)
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager routes callbacks by type and runs them in registration
// order. The first error stops the chain.
//
// Thread Safety:
// Registration is not synchronized. Register every callback before handing
// the manager to a Controller; execution is safe for concurrent use.
type CallbackManager struct {
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback for its type.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks executes all registered callbacks for callbackType and
// returns the first error.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	if cm == nil {
		return nil
	}
	callbacks, exists := cm.callbacks[callbackType]
	if !exists {
		return nil // No callbacks registered for this type
	}

	callbackCtx.CallbackType = callbackType
	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}

	return nil
}

// LoggingCallback forwards lifecycle events to a logging function.
//
// Example:
//
//	callback := NewLoggingCallback(CallbackOnError, func(message string) {
//	    log.Printf("[ENGINE] %s", message)
//	})
type LoggingCallback struct {
	callbackType CallbackType
	logger       func(message string)
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger func(message string)) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logger,
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the event with agent and error details when available.
func (c *LoggingCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	if c.logger == nil {
		return nil
	}
	message := fmt.Sprintf("[%s] Agent: %s (%s)", c.callbackType, callbackCtx.AgentID, callbackCtx.AgentType)
	if callbackCtx.Err != nil {
		message += fmt.Sprintf(", Error: %v", callbackCtx.Err)
	}
	if callbackCtx.Message != nil {
		message += fmt.Sprintf(", Message: %s", callbackCtx.Message.ID)
	}
	c.logger(message)
	return nil
}

// ResultValidationCallback checks executor results before their outputs are
// written. A returned error fails the run and the agent ends in ERROR.
//
// Example:
//
//	callback := NewResultValidationCallback(func(r *core.ExecutionResult) error {
//	    if len(r.OutputAssets) == 0 {
//	        return errors.New("executor produced no outputs")
//	    }
//	    return nil
//	})
type ResultValidationCallback struct {
	validator func(result *core.ExecutionResult) error
}

// NewResultValidationCallback creates a new result validation callback.
func NewResultValidationCallback(validator func(result *core.ExecutionResult) error) *ResultValidationCallback {
	return &ResultValidationCallback{
		validator: validator,
	}
}

// Type returns the callback type (always CallbackAfterExecute).
func (c *ResultValidationCallback) Type() CallbackType {
	return CallbackAfterExecute
}

// Execute runs the validator against the result.
func (c *ResultValidationCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	if c.validator != nil && callbackCtx.Result != nil {
		return c.validator(callbackCtx.Result)
	}
	return nil
}
