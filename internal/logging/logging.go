// Package logging implements the "thread-local default log routing"
// design note of spec §9: the core calls log(level, fmt, ...) without
// prescribing storage. cdixfer models this as a process-wide default
// logger plus an optional per-connection override, both backed by
// logrus, so an embedding application can redirect logging without the
// core importing anything connection-specific.
package logging

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bluenviron/cdixfer/pkg/liberrors"
)

var (
	mu   sync.RWMutex
	dflt = logrus.StandardLogger()
)

// SetDefault replaces the process-wide default logger.
func SetDefault(l *logrus.Logger) {
	mu.Lock()
	defer mu.Unlock()
	dflt = l
}

// Default returns the process-wide default logger.
func Default() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return dflt
}

// Router picks between a per-connection logger and the process default,
// and forwards warnings to an optional caller-supplied callback so an
// application can react to them without scraping log lines (spec §9).
type Router struct {
	Logger    *logrus.Logger
	OnWarning func(error)
}

func (r *Router) logger() *logrus.Logger {
	if r != nil && r.Logger != nil {
		return r.Logger
	}
	return Default()
}

// Warn logs a non-fatal condition absorbed per spec §7 ("wire-level
// errors... are absorbed and logged; they never abort the connection")
// and, if a hook is installed, also surfaces it to the caller wrapped as
// ErrNonFatal, since the hook exists precisely for callers that "asked
// to observe" an otherwise-absorbed condition.
func (r *Router) Warn(fields logrus.Fields, err error) {
	r.logger().WithFields(fields).Warn(err)
	if r != nil && r.OnWarning != nil {
		r.OnWarning(&liberrors.ErrNonFatal{Reason: err.Error()})
	}
}

// Debug logs a low-level tracing message.
func (r *Router) Debug(fields logrus.Fields, msg string) {
	r.logger().WithFields(fields).Debug(msg)
}

// Error logs a condition that results in payload or connection failure.
func (r *Router) Error(fields logrus.Fields, err error) {
	r.logger().WithFields(fields).Error(err)
	if r != nil && r.OnWarning != nil {
		r.OnWarning(err)
	}
}
