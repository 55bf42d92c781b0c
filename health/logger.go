package health

import (
	"github.com/rs/zerolog"
)

// LeveledLogger adapts zerolog to retryablehttp's leveled logger.
type LeveledLogger struct {
	Logger zerolog.Logger
}

func (l LeveledLogger) Error(msg string, kv ...any) { l.log(l.Logger.Error(), msg, kv) }
func (l LeveledLogger) Info(msg string, kv ...any)  { l.log(l.Logger.Debug(), msg, kv) }
func (l LeveledLogger) Debug(msg string, kv ...any) { l.log(l.Logger.Trace(), msg, kv) }
func (l LeveledLogger) Warn(msg string, kv ...any)  { l.log(l.Logger.Warn(), msg, kv) }

func (l LeveledLogger) log(e *zerolog.Event, msg string, kv []any) {
	e.Fields(kv).Msg(msg)
}
