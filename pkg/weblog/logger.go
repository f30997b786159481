// Package weblog provides the structured diagnostic logger and the
// common-log-format access logger that pkg/web's Config accepts as
// its two injectable loggers (spec.md §6), both built on
// go.uber.org/zap.
package weblog

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Logger adapts a *zap.Logger to web.Logger's single Errorf method.
type Logger struct {
	z *zap.Logger
}

// New wraps z as a web.Logger-compatible diagnostic logger.
func New(z *zap.Logger) *Logger {
	return &Logger{z: z}
}

// NewProduction builds a Logger over zap's production configuration.
func NewProduction() (*Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(z), nil
}

// Errorf logs a formatted diagnostic message at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.z.Error(fmt.Sprintf(format, args...))
}

// AccessLogger emits one record per request in common-log-format by
// default, or as structured zap fields when Structured is true,
// matching spec.md §4.4 step 10 and §6's access-log record shape.
type AccessLogger struct {
	z          *zap.Logger
	Structured bool
	// Ident/AuthUser are placeholder fields the source's log record
	// always carries but this server never populates (no identd,
	// no session auth in the core).
	Ident    string
	AuthUser string
}

// NewAccessLogger wraps z as an access logger. Ident and AuthUser
// default to "-", matching the common-log-format convention for
// absent fields.
func NewAccessLogger(z *zap.Logger) *AccessLogger {
	return &AccessLogger{z: z, Ident: "-", AuthUser: "-"}
}

// LogAccess implements web.AccessLogger.
func (a *AccessLogger) LogAccess(host, request string, code, size int, level string) {
	if a.Structured {
		a.z.Info("access",
			zap.String("host", host),
			zap.String("request", request),
			zap.Int("code", code),
			zap.Int("size", size),
			zap.String("level", level),
		)
		return
	}
	a.z.Info(commonLogFormat(host, a.Ident, a.AuthUser, request, code, size))
}

// commonLogFormat renders the default formatter named in spec.md §6:
// `host ident authuser [dd/Mon/yyyy:HH:MM:SS ±zzzz] "request" code size`.
func commonLogFormat(host, ident, authuser, request string, code, size int) string {
	ts := time.Now().Format("02/Jan/2006:15:04:05 -0700")
	return fmt.Sprintf("%s %s %s [%s] %q %d %d", host, ident, authuser, ts, request, code, size)
}
