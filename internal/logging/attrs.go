package logging

import (
	"context"
	"log/slog"
	"time"
)

type Attr = slog.Attr

func String(key, value string) Attr { return slog.String(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Keys used by the posting pipeline across packages.
const (
	FieldMediaID    = "media_id"
	FieldEncoder    = "encoder"
	FieldReelSource = "reel_source"
	FieldPath       = "path"
)

// MediaID tags the platform identifier of an uploaded reel.
func MediaID(id string) Attr { return slog.String(FieldMediaID, id) }

func Encoder(name string) Attr { return slog.String(FieldEncoder, name) }

// ReelSource is the content kind a reel was built from (apod, news, fallback).
func ReelSource(kind string) Attr { return slog.String(FieldReelSource, kind) }

func Trigger(trigger string) Attr { return slog.String(FieldTrigger, trigger) }

func RunID(id string) Attr { return slog.String(FieldRunID, id) }

func Path(path string) Attr { return slog.String(FieldPath, path) }

// SizeMB renders a byte count in megabytes, truncated to two decimals.
func SizeMB(key string, bytes int64) Attr {
	return slog.Float64(key, float64(int64(float64(bytes)/(1024*1024)*100))/100)
}

// Hint attaches an operator-facing next step to a log line.
func Hint(value string) Attr { return slog.String(FieldErrorHint, value) }

// Impact describes what the failure means for today's post.
func Impact(value string) Attr { return slog.String(FieldImpact, value) }

const (
	defaultHint   = "check skyreel.log for details"
	defaultImpact = "reel run continues with degraded output"
)

// WarnWithContext logs a warning carrying an event type, a hint and an
// impact. Missing fields get defaults so every warning names its cause,
// consequence and next step.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withEventDefaults(attrs, eventType)
	if !hasKey(attrs, FieldImpact) {
		attrs = append(attrs, Impact(defaultImpact))
	}
	logger.Warn(msg, attrsToArgs(attrs)...)
}

// ErrorWithContext is WarnWithContext for failures; impact stays optional.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	logger.Error(msg, attrsToArgs(withEventDefaults(attrs, eventType))...)
}

func withEventDefaults(attrs []Attr, eventType string) []Attr {
	if !hasKey(attrs, FieldEventType) {
		attrs = append(attrs, slog.String(FieldEventType, eventType))
	}
	if !hasKey(attrs, FieldErrorHint) {
		attrs = append(attrs, Hint(defaultHint))
	}
	return attrs
}

func hasKey(attrs []Attr, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

func attrsToArgs(attrs []Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

func NewNop() *slog.Logger {
	return slog.New(noopHandler{})
}

// NewComponentLogger tags logger with a component name; nil means no-op.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (noopHandler) Handle(context.Context, slog.Record) error { return nil }

func (noopHandler) WithAttrs([]slog.Attr) slog.Handler { return noopHandler{} }

func (noopHandler) WithGroup(string) slog.Handler { return noopHandler{} }
