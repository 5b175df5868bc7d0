// Package gateway is the single call path from domain consumers to Odoo.
//
// Gateway.Call injects the session locale into the call context, serves
// read-only methods from the result cache while fresh, and wraps the backend
// invocation in the retry policy. It is the only place where those three
// concerns meet.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/ggoodman/odoo-mcp-go/cache"
	"github.com/ggoodman/odoo-mcp-go/internal/logctx"
	"github.com/ggoodman/odoo-mcp-go/retry"
	"github.com/google/uuid"
)

// Invoker is the low-level call primitive, satisfied by *odoo.Session.
type Invoker interface {
	Invoke(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error)
	Language() string
}

// DefaultReadMethods are the side-effect free methods whose results may be
// cached.
var DefaultReadMethods = []string{
	"search_read", "read", "search", "name_get",
	"search_count", "name_search", "read_group",
}

// labelledWriteMethods are the non-cacheable methods that keep their own
// metric label. Any other method is recorded as OtherLabel.
var labelledWriteMethods = []string{
	"create", "write", "unlink", "copy",
	"fields_get", "default_get", "name_create",
}

// Error reports a call that failed after retries. Cause is the final
// backend error, unchanged.
type Error struct {
	Model  string
	Method string
	Cause  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: %s.%s: %v", e.Model, e.Method, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

type Gateway struct {
	inv     Invoker
	cache   *cache.Cache
	policy  retry.Policy
	log     *slog.Logger
	metrics *Metrics
	reads   map[string]struct{}
	writes  map[string]struct{}
}

type Option func(*Gateway)

func WithLogger(log *slog.Logger) Option {
	return func(g *Gateway) {
		g.log = log
	}
}

func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithReadMethods replaces the cacheable method allow-list.
func WithReadMethods(methods ...string) Option {
	return func(g *Gateway) {
		g.reads = toSet(methods)
	}
}

// New composes a gateway. A nil cache disables caching entirely.
func New(inv Invoker, c *cache.Cache, policy retry.Policy, opts ...Option) *Gateway {
	g := &Gateway{
		inv:    inv,
		cache:  c,
		policy: policy,
		log:    slog.Default(),
		reads:  toSet(DefaultReadMethods),
		writes: toSet(labelledWriteMethods),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func toSet(xs []string) map[string]struct{} {
	out := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		out[x] = struct{}{}
	}
	return out
}

type callOptions struct {
	useCache bool
}

type CallOption func(*callOptions)

// WithoutCache bypasses the result cache for both lookup and store.
func WithoutCache() CallOption {
	return func(o *callOptions) {
		o.useCache = false
	}
}

// IsReadMethod reports whether method is on the cacheable allow-list.
func (g *Gateway) IsReadMethod(method string) bool {
	_, ok := g.reads[method]
	return ok
}

func (g *Gateway) methodLabel(method string) string {
	if _, ok := g.reads[method]; ok {
		return method
	}
	if _, ok := g.writes[method]; ok {
		return method
	}
	return OtherLabel
}

// Language returns the session locale injected into calls.
func (g *Gateway) Language() string {
	return g.inv.Language()
}

// Call executes model.method(*args, **options) through the cache and the
// retry policy. options is never mutated.
func (g *Gateway) Call(ctx context.Context, model, method string, args []any, options map[string]any, opts ...CallOption) (any, error) {
	co := callOptions{useCache: true}
	for _, opt := range opts {
		opt(&co)
	}

	ctx = logctx.WithGatewayCall(ctx, &logctx.GatewayCall{
		CallID: uuid.NewString(),
		Model:  model,
		Method: method,
	})
	start := time.Now()

	if args == nil {
		args = []any{}
	}
	kwargs, ok := withLanguage(options, g.inv.Language())
	if !ok {
		g.log.DebugContext(ctx, "gateway.lang.skipped", slog.String("context_type", fmt.Sprintf("%T", options["context"])))
	}

	var sig cache.Signature
	cacheable := co.useCache && g.cache != nil && g.IsReadMethod(method)
	if cacheable {
		s, err := cache.NewSignature(model, method, args, kwargs)
		if err != nil {
			g.log.WarnContext(ctx, "gateway.cache.unkeyable", slog.String("err", err.Error()))
			cacheable = false
		} else {
			sig = s
			v, hit := g.cache.Get(sig)
			g.metrics.observeLookup(hit)
			if hit {
				g.log.DebugContext(ctx, "gateway.cache.hit")
				g.metrics.observeCall(model, g.methodLabel(method), OutcomeCacheHit, time.Since(start))
				return v, nil
			}
		}
	}

	policy := g.policy
	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		g.log.WarnContext(ctx, "gateway.call.retry",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("err", err.Error()),
		)
		g.metrics.observeRetry()
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}

	g.log.DebugContext(ctx, "gateway.call.start", slog.Bool("cacheable", cacheable))
	res, err := retry.Do(ctx, policy, func(ctx context.Context) (any, error) {
		return g.inv.Invoke(ctx, model, method, args, kwargs)
	})
	if err != nil {
		g.log.ErrorContext(ctx, "gateway.call.failed", slog.String("err", err.Error()))
		g.metrics.observeCall(model, g.methodLabel(method), OutcomeError, time.Since(start))
		return nil, &Error{Model: model, Method: method, Cause: err}
	}

	if cacheable {
		g.cache.Put(sig, res)
	}
	g.metrics.observeCall(model, g.methodLabel(method), OutcomeOK, time.Since(start))
	return res, nil
}

// FieldsGet returns the field metadata of model, bypassing the cache. It
// satisfies fields.Introspector.
func (g *Gateway) FieldsGet(ctx context.Context, model string) (map[string]any, error) {
	res, err := g.Call(ctx, model, "fields_get", nil, map[string]any{
		"attributes": []any{"string", "type", "required", "readonly", "relation"},
	}, WithoutCache())
	if err != nil {
		return nil, err
	}
	m, ok := res.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("gateway: %s.fields_get returned %T", model, res)
	}
	return m, nil
}

// withLanguage returns a copy of options whose context carries lang, unless
// lang is empty or a lang is already present. A context given as any other
// string-keyed map is converted to map[string]any first. The caller's maps
// are left untouched. ok is false when the context could not carry lang.
func withLanguage(options map[string]any, lang string) (out map[string]any, ok bool) {
	out = make(map[string]any, len(options)+1)
	for k, v := range options {
		out[k] = v
	}
	if lang == "" {
		return out, true
	}
	if out["context"] == nil {
		out["context"] = map[string]any{"lang": lang}
		return out, true
	}

	c, ok := contextMap(out["context"])
	if !ok {
		return out, false
	}
	if _, ok := c["lang"]; ok {
		return out, true
	}
	ctx := make(map[string]any, len(c)+1)
	for k, v := range c {
		ctx[k] = v
	}
	ctx["lang"] = lang
	out["context"] = ctx
	return out, true
}

func contextMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}
