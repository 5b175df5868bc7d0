package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ggoodman/odoo-mcp-go/cache"
	"github.com/ggoodman/odoo-mcp-go/config"
	"github.com/ggoodman/odoo-mcp-go/fields"
	"github.com/ggoodman/odoo-mcp-go/gateway"
	"github.com/ggoodman/odoo-mcp-go/odoo"
	"github.com/ggoodman/odoo-mcp-go/retry"
	"github.com/ggoodman/odoo-mcp-go/tools"
)

// app holds the process-wide components shared by every command.
type app struct {
	settings config.Settings
	log      *slog.Logger
	session  *odoo.Session
	fields   *fields.Registry
	metrics  *prometheus.Registry
	server   *tools.Server
}

func newApp(ctx context.Context, args []string) (*app, error) {
	settings, err := config.Load(args)
	if err != nil {
		return nil, err
	}
	// stdout carries the MCP stream.
	log, err := settings.Logger(os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)

	sess, err := odoo.New(odoo.Config{
		URL:      settings.URL,
		Database: settings.Database,
		Username: settings.Username,
		Password: settings.Password,
		Language: settings.DefaultLanguage,
		Timeout:  settings.Timeout(),
		Protocol: settings.Protocol,
	}, odoo.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := sess.Start(ctx); err != nil {
		return nil, err
	}

	c, err := cache.New(settings.CacheTTL(), cache.WithMaxEntries(settings.CacheMaxEntries))
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := gateway.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	gw := gateway.New(sess, c, retry.Policy{
		MaxAttempts: settings.MaxRetries,
		BaseDelay:   settings.RetryBaseDelay(),
	}, gateway.WithLogger(log), gateway.WithMetrics(m))

	fopts := []fields.Option{fields.WithLogger(log)}
	if d := settings.FieldReprobe(); d > 0 {
		fopts = append(fopts, fields.WithFailedProbeRetry(d))
	}
	fr := fields.NewRegistry(gw, fopts...)

	srv := tools.New(tools.Deps{
		Gateway:  gw,
		Fields:   fr,
		Session:  sess,
		Cache:    c,
		Settings: settings,
	}, tools.WithLogger(log))

	return &app{
		settings: settings,
		log:      log,
		session:  sess,
		fields:   fr,
		metrics:  reg,
		server:   srv,
	}, nil
}

// serveMetrics exposes the registry on addr until ctx is done.
func (a *app) serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{Registry: a.metrics}))
	hs := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()
	go func() {
		a.log.InfoContext(ctx, "metrics.listen", slog.String("addr", addr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.ErrorContext(ctx, "metrics.listen.failed", slog.String("err", err.Error()))
		}
	}()
}

func describeStartup(a *app) string {
	v := a.session.Version()
	return fmt.Sprintf("Odoo %s (major %d) as uid %d, language %s", v.ServerVersion, v.Major, a.session.UID(), a.session.Language())
}
