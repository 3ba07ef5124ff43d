package core

import (
	"github.com/google/uuid"
	"github.com/hupe1980/assetflow/logging"
)

// NewID generates a new unique identifier for assets, agents, messages and
// sessions.
func NewID() string { return uuid.NewString() }

// Ptr returns a pointer to v. It keeps patch literals short:
//
//	core.AssetPatch{Status: core.Ptr(core.AssetStatusReady)}
func Ptr[T any](v T) *T { return &v }

// loggerAdapter guarantees a non-nil logger by substituting a NoOpLogger when
// constructed with nil.
type loggerAdapter struct {
	logger logging.Logger
}

func newLoggerAdapter(l logging.Logger) loggerAdapter {
	if l == nil {
		l = logging.NoOpLogger{}
	}
	return loggerAdapter{logger: l}
}

// Logger returns the underlying logger.
func (l loggerAdapter) Logger() logging.Logger {
	return l.logger
}
