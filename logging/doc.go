// Package logging provides a minimal logging interface and adapters for assetflow.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the controller, executors and persistence bridge use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.ParseLevel("debug"), Format: "text", Output: os.Stderr})
//	ctrl := engine.New(func(o *engine.Options) { o.Logger = logger })
package logging
