// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package log provides structured logging utilities and configuration for the subscriber service.
package log

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	slogotel "github.com/remychantenay/slog-otel"
)

type ctxKey string

const (
	slogFields      ctxKey = "slog_fields"
	logLevelDefault        = slog.LevelDebug

	priorityCritical = "critical"
)

type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(Fields(ctx)...)
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

// AppendCtx returns a copy of parent carrying attr. Every record logged with
// the returned context includes attr.
func AppendCtx(parent context.Context, attr slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}

	existing := Fields(parent)
	attrs := make([]slog.Attr, 0, len(existing)+1)
	attrs = append(attrs, existing...)
	attrs = append(attrs, attr)
	return context.WithValue(parent, slogFields, attrs)
}

// parseLevel maps LOG_LEVEL onto a slog level, falling back to debug.
func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return logLevelDefault
	}
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// NewHandler builds the service handler chain on top of w: context fields,
// then trace correlation, then the formatter named by format.
func NewHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	return contextHandler{slogotel.OtelHandler{Next: newHandler(w, format, opts)}}
}

// InitStructureLogConfig installs the default logger from LOG_LEVEL,
// LOG_FORMAT (json or text) and LOG_ADD_SOURCE.
func InitStructureLogConfig() {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(os.Getenv("LOG_LEVEL")),
		AddSource: os.Getenv("LOG_ADD_SOURCE") == "true",
	}
	format := os.Getenv("LOG_FORMAT")

	log.SetFlags(log.Llongfile)
	slog.SetDefault(slog.New(NewHandler(os.Stdout, format, opts)))
	slog.Info("log config",
		"level", opts.Level,
		"format", format,
		"add_source", opts.AddSource,
	)
}

// Priority creates a slog.Attr for error priority classification
func Priority(level string) slog.Attr {
	return slog.String("priority", level)
}

// PriorityCritical creates a slog.Attr for critical errors
// this is used to identify critical errors in the logs
// the ones that should be escalated to the team
func PriorityCritical() slog.Attr {
	return Priority(priorityCritical)
}

// Fields returns the attributes accumulated in ctx by AppendCtx.
func Fields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(slogFields).([]slog.Attr)
	return attrs
}
