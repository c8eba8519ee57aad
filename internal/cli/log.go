// Package cli implements the vpcmap command-line interface.
//
// # Commands
//
//   - graph: build the topology of the selected accounts and regions and
//     write it as svg, png, pdf, dot, json or yaml
//   - accounts: list the annotated profiles of the credentials file, or
//     pick some interactively
//   - snapshot: record live resources into a YAML/JSON document
//   - serve: serve the rendered topology and metrics over HTTP
//   - cache: inspect or clear the listing and artifact cache
//
// # Logging
//
// All commands log through charmbracelet/log; --verbose (-v) switches to
// debug level, which also logs every route table, association and route
// the builder walks.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs completion of an operation with its elapsed time.
// It is safe for sequential use by a single goroutine.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Listed 3 regions (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the attached logger or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
