// Package logging carries the explicit logging configuration handed to every
// registry. It writes through the trekker loggers.
package logging

import (
	"github.com/shrimpsizemoose/trekker/logger"
)

type Logger struct {
	debug bool
	quiet bool
}

func New(debug bool) *Logger {
	return &Logger{debug: debug}
}

// Nop discards everything, used by tests and library callers that don't care.
func Nop() *Logger {
	return &Logger{quiet: true}
}

func (l *Logger) DebugEnabled() bool {
	return l != nil && l.debug && !l.quiet
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if !l.DebugEnabled() {
		return
	}
	logger.Debug.Printf(format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l == nil || l.quiet {
		return
	}
	logger.Info.Printf(format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	if l == nil || l.quiet {
		return
	}
	logger.Info.Printf("WARN "+format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l == nil || l.quiet {
		return
	}
	logger.Error.Printf(format, args...)
}
