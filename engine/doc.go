// Package engine provides the orchestration controller of assetflow.
//
// The Controller composes the session store (entity tables), the executor
// registry and the external collaborators (chat, asset repository, mailbox,
// notifier) into two entry points:
//
//   - ProcessMessage: one chat turn. The user message is logged first, the
//     chat collaborator is called with the history and the asset snapshot,
//     and the reply plus its side effects (assets, agent jobs) are committed
//     in a single store mutation. Each agent job yields an IDLE agent and one
//     PENDING placeholder asset per declared output, linked through
//     metadata.agentId.
//   - ExecuteAgent: one agent run. The agent goes IDLE/COMPLETED/ERROR ->
//     RUNNING -> COMPLETED or ERROR. Outputs are merged positionally into the
//     placeholder assets and forced to READY.
//
// Architecture Overview:
//
//	┌──────────────┐  ProcessMessage   ┌─────────────┐
//	│    Client    │ ────────────────▶ │ ChatService │
//	└──────┬───────┘                   └─────────────┘
//	       │ ExecuteAgent
//	       ▼
//	┌──────────────┐   Lookup(type)    ┌──────────────────┐
//	│  Controller  │ ────────────────▶ │ ExecutorRegistry │
//	└──────┬───────┘                   └──────────────────┘
//	       │ Dispatch / Snapshot
//	       ▼
//	┌──────────────┐   Save/Load       ┌─────────────────┐
//	│ session.Store│ ◀───────────────▶ │ AssetRepository │ (via persistence.Bridge)
//	└──────────────┘                   └─────────────────┘
//
// Failure Semantics:
//
// ExecuteAgent failures (unknown type, executor error, success=false,
// panics, invalid outputs) are recorded on the agent as status ERROR with
// lastError and returned. ProcessMessage and asset persistence failures are
// surfaced through the Notifier and returned. Nothing in the controller
// panics or terminates the process.
//
// Input Validation:
//
// Executors expose ValidateInputs. By default the controller only logs a
// warning when it returns false and runs the executor anyway. Set
// Options.StrictValidation to fail such runs with a ValidationError instead.
//
// Lifecycle Hooks:
//
// Register callbacks on a CallbackManager (BeforeExecute, AfterExecute,
// OnError, OnMessage) and pass it through Options.Callbacks.
//
// Usage:
//
//	ctrl := engine.New(func(o *engine.Options) {
//	    o.Chat = chat.NewModelService(m)
//	    o.Messaging = mailbox.NewInMemoryMailbox(emails...)
//	    o.Repository = artifact.NewInMemoryStore()
//	})
//
//	resp, err := ctrl.ProcessMessage(ctx, "summarize my latest email from alice")
//	for _, agent := range ctrl.State().AgentList() {
//	    if _, err := ctrl.ExecuteAgent(ctx, agent.ID); err != nil {
//	        log.Printf("agent %s failed: %v", agent.ID, err)
//	    }
//	}
package engine
