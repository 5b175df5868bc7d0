// Package testlog routes slog output into testing.T logs so that it is only
// printed for failing or verbose tests.
package testlog

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/ggoodman/odoo-mcp-go/internal/logctx"
)

// Bridge is a slog.Handler that writes each record with t.Log.
type Bridge struct {
	slog.Handler
	t   testing.TB
	buf *bytes.Buffer
	mu  *sync.Mutex
}

// Handle implements slog.Handler.
func (b *Bridge) Handle(ctx context.Context, rec slog.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.Handler.Handle(ctx, rec); err != nil {
		return err
	}

	output := bytes.TrimSuffix(b.buf.Bytes(), []byte("\n"))
	b.t.Helper()
	b.t.Log(string(output))
	b.buf.Reset()

	return nil
}

// WithAttrs implements slog.Handler.
func (b *Bridge) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Bridge{t: b.t, buf: b.buf, mu: b.mu, Handler: b.Handler.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (b *Bridge) WithGroup(name string) slog.Handler {
	return &Bridge{t: b.t, buf: b.buf, mu: b.mu, Handler: b.Handler.WithGroup(name)}
}

// Handler returns a debug-level Bridge for t.
func Handler(t testing.TB) *Bridge {
	b := &Bridge{
		t:   t,
		buf: &bytes.Buffer{},
		mu:  &sync.Mutex{},
	}
	b.Handler = slog.NewTextHandler(b.buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return b
}

// Logger returns a logger that decorates records with the logctx groups and
// writes them through a Bridge.
func Logger(t testing.TB) *slog.Logger {
	return slog.New(logctx.Handler{Handler: Handler(t)})
}
