// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package logging configures the JSON logger of the recording reconciler.
// Loops attach bot, meeting and request ids to the context with AppendCtx so
// that every line logged while a bot is reconciled carries them.
package logging

import (
	"context"
	"io"
	"log"
	"log/slog"
	"strconv"
	"strings"

	slogotel "github.com/remychantenay/slog-otel"
)

// ErrKey is the attribute key errors are logged under.
const ErrKey = "error"

type ctxKey string

const (
	slogFields      ctxKey = "slog_fields"
	logLevelDefault        = slog.LevelDebug

	// Marks failures an operator has to act on, such as a transcript the
	// backfill loop gave up on.
	priorityCritical = "critical"
)

// Options selects the level and source annotation of the logger.
type Options struct {
	Level     slog.Level
	AddSource bool
}

// OptionsFromEnv reads LOG_LEVEL and LOG_ADD_SOURCE. An unknown or empty
// level logs everything.
func OptionsFromEnv(getenv func(string) string) Options {
	addSource, _ := strconv.ParseBool(getenv("LOG_ADD_SOURCE"))
	return Options{
		Level:     parseLevel(getenv("LOG_LEVEL")),
		AddSource: addSource,
	}
}

// parseLevel maps debug, info, warn and error to their slog level.
func parseLevel(value string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return logLevelDefault
	}
	return level
}

// contextHandler copies the attributes stored by AppendCtx onto each record.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(slogFields).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

// AppendCtx returns a context whose log lines also carry attr.
func AppendCtx(parent context.Context, attr slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	existing, _ := parent.Value(slogFields).([]slog.Attr)
	attrs := make([]slog.Attr, 0, len(existing)+1)
	attrs = append(attrs, existing...)
	return context.WithValue(parent, slogFields, append(attrs, attr))
}

// Setup installs the default logger: JSON lines on w, stamped with the trace
// and span of the active span and with the context attributes.
func Setup(w io.Writer, opts Options) slog.Handler {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.AddSource,
	})
	log.SetFlags(log.Llongfile)
	slog.SetDefault(slog.New(contextHandler{slogotel.OtelHandler{Next: h}}))

	slog.Info("log config",
		"logLevel", opts.Level,
		"addSource", opts.AddSource,
	)
	return h
}

// PriorityCritical tags a log line for escalation.
func PriorityCritical() slog.Attr {
	return slog.String("priority", priorityCritical)
}
