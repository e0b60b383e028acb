package discord

import (
	"log/slog"

	"github.com/Jacobbrewer1/supportbot/pkg/logging"
)

// BestEffort runs an outbound effect whose failure must not abort the surrounding operation. A
// failure is logged, counted and discarded. It reports whether the effect succeeded.
func BestEffort(l *slog.Logger, effect string, fn func() error) bool {
	if err := fn(); err != nil {
		discarded(l, effect, err)
		return false
	}
	return true
}

// BestEffortValue is BestEffort for effects that produce a value. The zero value is returned on
// failure.
func BestEffortValue[T any](l *slog.Logger, effect string, fn func() (T, error)) (T, bool) {
	v, err := fn()
	if err != nil {
		discarded(l, effect, err)
		var zero T
		return zero, false
	}
	return v, true
}

func discarded(l *slog.Logger, effect string, err error) {
	BestEffortFailures.WithLabelValues(effect).Inc()
	if l == nil {
		l = slog.Default()
	}
	l.Warn("Best effort call failed",
		slog.String(logging.KeyEffect, effect),
		slog.String(logging.KeyError, err.Error()),
	)
}
