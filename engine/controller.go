package engine

import (
	"context"
	"time"

	"github.com/hupe1980/assetflow/core"
	"github.com/hupe1980/assetflow/executor"
	"github.com/hupe1980/assetflow/logging"
	"github.com/hupe1980/assetflow/notify"
	"github.com/hupe1980/assetflow/persistence"
	"github.com/hupe1980/assetflow/session"
	"github.com/hupe1980/assetflow/telemetry"
)

// Options configures a Controller using the functional options pattern.
//
// Every collaborator has a default so New() alone yields a working, if
// chat-less, controller:
//   - Store: a fresh session.Store
//   - Registry: executor.DefaultRegistry over Messaging
//   - Factory: NewAgentFactory()
//   - Notifier: notify.Discard
//   - Instruments: telemetry.NoopInstruments()
//   - Logger: logging.NoOpLogger
//
// Example:
//
//	ctrl := engine.New(func(o *engine.Options) {
//	    o.Chat = chatService
//	    o.Messaging = mailbox.NewInMemoryMailbox(emails...)
//	    o.Repository = artifact.NewInMemoryStore()
//	    o.Logger = logger
//	})
type Options struct {
	// Store holds the session's entity tables. The controller does not own
	// its lifecycle beyond Reset.
	Store *session.Store

	// Registry resolves executors by agent type. When nil the built-in
	// registry is assembled over Messaging.
	Registry core.ExecutorRegistry

	// Messaging backs the built-in email executors.
	Messaging core.MessagingService

	// Chat answers user messages. ProcessMessage fails with a validation
	// error when it is nil.
	Chat core.ChatService

	// Repository is the remote of record used by the persistence bridge.
	Repository core.AssetRepository

	// Factory creates agents declared by chat side effects.
	Factory core.AgentFactory

	// Notifier surfaces transient user-visible notifications.
	Notifier core.Notifier

	// Callbacks are run at the lifecycle points listed in CallbackType.
	Callbacks *CallbackManager

	// Instruments carries tracer and metric instruments.
	Instruments *telemetry.Instruments

	// Logger provides structured logging.
	Logger logging.Logger

	// Clock stamps execution and update times.
	Clock func() time.Time

	// StrictValidation turns a false ValidateInputs result into a
	// ValidationError routed through the agent failure branch. When false
	// the result is only logged.
	StrictValidation bool
}

// Controller composes the session store, the executor registry and the
// external collaborators into the two orchestration entry points,
// ProcessMessage and ExecuteAgent, plus the asset persistence façade.
//
// Concurrency Model:
//   - Store mutations are serialized and indivisible.
//   - The read-decide-write sequence of an operation is not atomic across
//     its blocking collaborator call. Two concurrent ExecuteAgent calls on
//     one agent both run and the later terminal write wins.
//   - No timeouts are imposed; ctx is passed to every collaborator.
type Controller struct {
	store       *session.Store
	registry    core.ExecutorRegistry
	chat        core.ChatService
	factory     core.AgentFactory
	notifier    core.Notifier
	bridge      *persistence.Bridge
	callbacks   *CallbackManager
	instruments *telemetry.Instruments
	logger      logging.Logger
	clock       func() time.Time
	strict      bool
}

// New creates a Controller with sensible defaults and optional configuration.
func New(optFns ...func(o *Options)) *Controller {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Clock:  func() time.Time { return time.Now().UTC() },
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Store == nil {
		opts.Store = session.New(func(o *session.Options) { o.Clock = opts.Clock })
	}
	if opts.Registry == nil {
		opts.Registry = executor.DefaultRegistry(opts.Messaging)
	}
	if opts.Factory == nil {
		opts.Factory = NewAgentFactory(func(o *FactoryOptions) { o.Clock = opts.Clock })
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard{}
	}
	if opts.Callbacks == nil {
		opts.Callbacks = NewCallbackManager()
	}
	if opts.Instruments == nil {
		opts.Instruments = telemetry.NoopInstruments()
	}

	bridge := persistence.NewBridge(opts.Store, opts.Repository, func(o *persistence.Options) {
		o.Clock = opts.Clock
		o.Logger = logging.With(opts.Logger, "component", "persistence")
		o.Instruments = opts.Instruments
	})

	return &Controller{
		store:       opts.Store,
		registry:    opts.Registry,
		chat:        opts.Chat,
		factory:     opts.Factory,
		notifier:    opts.Notifier,
		bridge:      bridge,
		callbacks:   opts.Callbacks,
		instruments: opts.Instruments,
		logger:      opts.Logger,
		clock:       opts.Clock,
		strict:      opts.StrictValidation,
	}
}

// Store returns the underlying session store.
func (c *Controller) Store() *session.Store {
	return c.store
}

// State returns a private copy of the current session state.
func (c *Controller) State() core.State {
	return c.store.Snapshot().Clone()
}

// RegisteredTypes lists the agent types the registry can execute. It returns
// nil when the registry does not enumerate its entries.
func (c *Controller) RegisteredTypes() []core.AgentType {
	if lister, ok := c.registry.(interface{ Types() []core.AgentType }); ok {
		return lister.Types()
	}
	return nil
}

// RemoveAgent deletes the agent. Its output assets are kept.
func (c *Controller) RemoveAgent(id string) error {
	if err := c.store.RemoveAgent(id); err != nil {
		return err
	}
	c.logger.Info("agent removed", "agent_id", id)
	return nil
}

// Reset discards the whole session and starts a new one.
func (c *Controller) Reset() {
	c.store.Reset()
	c.logger.Info("session reset", "session_id", c.store.Snapshot().Metadata.SessionID)
}

func (c *Controller) notify(ctx context.Context, level core.NotificationLevel, title, message string) {
	c.notifier.Notify(ctx, core.Notification{
		Level:     level,
		Title:     title,
		Message:   message,
		Timestamp: c.clock(),
	})
}

// runCallbacks executes callbacks whose errors cannot change the outcome.
func (c *Controller) runCallbacks(ctx context.Context, t CallbackType, cc *CallbackContext) {
	if err := c.callbacks.ExecuteCallbacks(ctx, t, cc); err != nil {
		c.logger.Warn("callback failed", "callback", string(t), "error", err)
	}
}
