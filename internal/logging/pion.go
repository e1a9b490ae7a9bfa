package logging

import (
	"fmt"
	"log/slog"

	pionlog "github.com/pion/logging"
)

// PionFactory adapts slog to pion's LoggerFactory so the WebRTC stack
// logs through the same handler as the rest of the CLI.
type PionFactory struct{}

// NewLogger returns a leveled logger scoped to a pion subsystem (e.g. "pc", "ice").
func (f *PionFactory) NewLogger(scope string) pionlog.LeveledLogger {
	return &pionLogger{l: slog.Default().With("scope", scope)}
}

type pionLogger struct {
	l *slog.Logger
}

// Pion's trace level has no slog equivalent; fold it into debug.
func (p *pionLogger) Trace(msg string) { p.l.Debug(msg) }
func (p *pionLogger) Tracef(format string, args ...any) {
	p.l.Debug(fmt.Sprintf(format, args...))
}

func (p *pionLogger) Debug(msg string) { p.l.Debug(msg) }
func (p *pionLogger) Debugf(format string, args ...any) {
	p.l.Debug(fmt.Sprintf(format, args...))
}

func (p *pionLogger) Info(msg string) { p.l.Info(msg) }
func (p *pionLogger) Infof(format string, args ...any) {
	p.l.Info(fmt.Sprintf(format, args...))
}

func (p *pionLogger) Warn(msg string) { p.l.Warn(msg) }
func (p *pionLogger) Warnf(format string, args ...any) {
	p.l.Warn(fmt.Sprintf(format, args...))
}

func (p *pionLogger) Error(msg string) { p.l.Error(msg) }
func (p *pionLogger) Errorf(format string, args ...any) {
	p.l.Error(fmt.Sprintf(format, args...))
}
