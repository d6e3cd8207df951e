package logging

import (
	"context"
	"log/slog"
)

// LevelSecurity sits between WARN and ERROR so security events are never
// filtered out by a warn-level sink while still sorting below real errors.
const LevelSecurity = slog.LevelWarn + 2

// HandlerOptions returns slog options that render LevelSecurity as
// "SECURITY" instead of "WARN+2".
func HandlerOptions(level slog.Leveler) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelSecurity {
					a.Value = slog.StringValue("SECURITY")
				}
			}
			return a
		},
	}
}

type SlogLogger struct {
	l *slog.Logger
}

// NewDiscardLogger returns a logger that drops everything. Used in tests.
func NewDiscardLogger() *SlogLogger {
	return &SlogLogger{l: slog.New(slog.DiscardHandler)}
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

func (s *SlogLogger) Security(ctx context.Context, msg string, args ...any) {
	s.l.Log(ctx, LevelSecurity, msg, args...)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}
