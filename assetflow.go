// Package assetflow wires the conversational asset workflow into a runnable
// application. It turns a config.Config into a chat service, an executor
// registry, an asset repository and an orchestration controller, and exposes
// them over HTTP.
//
// Most applications interact with this package by:
//  1. Loading a configuration via config.Load (or starting from config.Default)
//  2. Creating an App via New, optionally overriding the model, mailbox or
//     repository
//  3. Serving App.Router, or driving App.Controller directly
//
// All defaults are safe for local development and testing: an in-memory
// repository, an empty in-memory mailbox and a scripted mock model.
package assetflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"

	"github.com/hupe1980/assetflow/artifact"
	"github.com/hupe1980/assetflow/artifact/redis"
	"github.com/hupe1980/assetflow/artifact/sqlite"
	"github.com/hupe1980/assetflow/chat"
	"github.com/hupe1980/assetflow/config"
	"github.com/hupe1980/assetflow/core"
	"github.com/hupe1980/assetflow/engine"
	"github.com/hupe1980/assetflow/executor"
	"github.com/hupe1980/assetflow/logging"
	"github.com/hupe1980/assetflow/mailbox"
	"github.com/hupe1980/assetflow/model"
	anthropicmodel "github.com/hupe1980/assetflow/model/anthropic"
	openaimodel "github.com/hupe1980/assetflow/model/openai"
	"github.com/hupe1980/assetflow/notify"
	"github.com/hupe1980/assetflow/server"
	"github.com/hupe1980/assetflow/telemetry"
)

// Options configures App construction. Unset overrides are derived from
// Config.
type Options struct {
	// Config defaults to config.Default().
	Config *config.Config

	// Model replaces the provider selected by Config.Model.
	Model model.Model
	// Messaging replaces the in-memory mailbox.
	Messaging core.MessagingService
	// Repository replaces the backend selected by Config.Repository.
	Repository core.AssetRepository

	// Callbacks are registered on the controller after the built-in audit
	// loggers.
	Callbacks []engine.Callback

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// App is an assembled assetflow instance.
type App struct {
	Controller    *engine.Controller
	Handler       *server.Handler
	Notifications *notify.Recorder
	// Mailbox is nil when Options.Messaging was supplied.
	Mailbox *mailbox.InMemoryMailbox

	cfg       *config.Config
	logger    logging.Logger
	telemetry *telemetry.Provider
	closers   []func() error
}

// New assembles an App. The returned App must be closed.
func New(ctx context.Context, optFns ...func(o *Options)) (*App, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	cfg := opts.Config

	app := &App{cfg: cfg, logger: opts.Logger}

	provider, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	app.telemetry = provider
	instruments, err := telemetry.NewInstruments(provider)
	if err != nil {
		_ = app.Close(ctx)
		return nil, fmt.Errorf("create instruments: %w", err)
	}

	repo := opts.Repository
	if repo == nil {
		r, closeFn, err := NewRepository(ctx, cfg.Repository)
		if err != nil {
			_ = app.Close(ctx)
			return nil, err
		}
		repo = r
		if closeFn != nil {
			app.closers = append(app.closers, closeFn)
		}
	}

	messaging := opts.Messaging
	if messaging == nil {
		mb := mailbox.NewInMemoryMailbox()
		if cfg.Mailbox.Path != "" {
			if err := mb.LoadFile(cfg.Mailbox.Path); err != nil {
				_ = app.Close(ctx)
				return nil, err
			}
		}
		app.Mailbox = mb
		messaging = mb
		opts.Logger.Info("mailbox ready", "messages", mb.Len())
	}

	m := opts.Model
	if m == nil {
		m, err = NewModel(cfg.Model)
		if err != nil {
			_ = app.Close(ctx)
			return nil, err
		}
	}
	info := m.Info()
	opts.Logger.Info("model ready", "provider", info.Provider, "name", info.Name)

	chatSvc := chat.NewModelService(m, func(o *chat.Options) {
		o.MaxHistory = cfg.Chat.MaxHistory
		o.MaxAssets = cfg.Chat.MaxAssets
		o.Stream = cfg.Chat.Stream
		o.Logger = logging.With(opts.Logger, "component", "chat")
	})

	app.Notifications = notify.NewRecorder(cfg.Notifications.Capacity)
	notifier := notify.Multi{
		app.Notifications,
		notify.NewLogNotifier(logging.With(opts.Logger, "component", "notify")),
	}

	registry := executor.DefaultRegistry(messaging, func(o *executor.Options) {
		o.MaxResults = cfg.Engine.MaxResults
		o.SummaryBodyLimit = cfg.Engine.SummaryBodyLimit
	})

	callbacks := engine.NewCallbackManager()
	audit := logging.With(opts.Logger, "component", "callbacks")
	for _, t := range []engine.CallbackType{
		engine.CallbackBeforeExecute,
		engine.CallbackAfterExecute,
		engine.CallbackOnError,
		engine.CallbackOnMessage,
	} {
		callbacks.RegisterCallback(engine.NewLoggingCallback(t, func(message string) {
			audit.Debug(message)
		}))
	}
	for _, cb := range opts.Callbacks {
		callbacks.RegisterCallback(cb)
	}

	app.Controller = engine.New(func(o *engine.Options) {
		o.Registry = registry
		o.Messaging = messaging
		o.Chat = chatSvc
		o.Repository = repo
		o.Notifier = notifier
		o.Callbacks = callbacks
		o.Instruments = instruments
		o.Logger = logging.With(opts.Logger, "component", "engine")
		o.StrictValidation = cfg.Engine.StrictValidation
	})

	app.Handler = server.NewHandler(app.Controller, func(o *server.Options) {
		o.Notifications = app.Notifications
		o.Logger = logging.With(opts.Logger, "component", "server")
	})

	return app, nil
}

// Router returns the HTTP handler serving the API.
func (a *App) Router() http.Handler {
	return server.NewRouter(a.Handler)
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Close releases the repository and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
		a.telemetry = nil
	}
	return errors.Join(errs...)
}

// NewModel creates the model selected by cfg.Provider.
func NewModel(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case "", "mock":
		name := cfg.Name
		if name == "" {
			name = "mock"
		}
		return model.NewMockModel(name, "mock"), nil
	case "openai":
		var clientOpts []openaioption.RequestOption
		if cfg.APIKey != "" {
			clientOpts = append(clientOpts, openaioption.WithAPIKey(cfg.APIKey))
		}
		client := openaisdk.NewClient(clientOpts...)
		return openaimodel.NewModelFromClient(&client, func(o *openaimodel.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			if cfg.Temperature > 0 {
				o.Temperature = cfg.Temperature
			}
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
		}), nil
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.APIKey = cfg.APIKey
			if cfg.Name != "" {
				o.Model = anthropic.Model(cfg.Name)
			}
			if cfg.Temperature > 0 {
				o.Temperature = cfg.Temperature
			}
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// NewRepository opens the asset repository selected by cfg.Driver. The
// returned close function is nil for the in-memory driver.
func NewRepository(ctx context.Context, cfg config.RepositoryConfig) (core.AssetRepository, func() error, error) {
	switch cfg.Driver {
	case "", "memory":
		return artifact.NewInMemoryStore(), nil, nil
	case "sqlite":
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite repository: %w", err)
		}
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("sqlite health check: %w", err)
		}
		return store, store.Close, nil
	case "redis":
		store, err := redis.New(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis repository: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown repository driver %q", cfg.Driver)
	}
}
