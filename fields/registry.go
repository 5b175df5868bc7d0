// Package fields answers which candidate fields can be requested from a model
// on the connected server without triggering an "Invalid field" error.
//
// Two independent concerns meet here: the static Tiers table says what a
// consumer would like to read at a given richness level, and the Registry
// says what the live server supports, learned once per model through
// fields_get.
package fields

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Introspector returns the fields_get map of a model.
type Introspector interface {
	FieldsGet(ctx context.Context, model string) (map[string]any, error)
}

// Schema is the probed field set of one model. A failed probe is recorded
// with Probed set, an empty field set and the probe error.
type Schema struct {
	Fields   map[string]struct{}
	Probed   bool
	Err      error
	ProbedAt time.Time
}

// Has reports whether the model exposes field.
func (s Schema) Has(field string) bool {
	_, ok := s.Fields[field]
	return ok
}

// Filtered partitions a requested field list. Both lists keep request order.
type Filtered struct {
	Accepted []string `json:"accepted"`
	Rejected []string `json:"rejected"`
}

// Summary describes one probed model for diagnostics.
type Summary struct {
	Model  string `json:"model"`
	Fields int    `json:"fields"`
	Error  string `json:"error,omitempty"`
}

// Registry caches probed schemas per model. It is safe for concurrent use;
// concurrent first access to a model may probe it twice, and the later store
// wins.
type Registry struct {
	src     Introspector
	log     *slog.Logger
	now     func() time.Time
	reprobe time.Duration

	mu      sync.RWMutex
	schemas map[string]Schema
}

type Option func(*Registry)

func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		r.log = log
	}
}

// WithFailedProbeRetry lets a model whose probe failed be probed again once d
// has elapsed. By default a failed probe is permanent for the process.
func WithFailedProbeRetry(d time.Duration) Option {
	return func(r *Registry) {
		r.reprobe = d
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(src Introspector, opts ...Option) *Registry {
	r := &Registry{
		src:     src,
		log:     slog.Default(),
		now:     time.Now,
		schemas: make(map[string]Schema),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Probe calls fields_get for model and stores the result, replacing any
// previous schema. Failures are stored as an empty probed schema.
func (r *Registry) Probe(ctx context.Context, model string) Schema {
	s := Schema{Fields: map[string]struct{}{}, Probed: true}

	meta, err := r.src.FieldsGet(ctx, model)
	if err != nil {
		s.Err = err
		r.log.WarnContext(ctx, "fields.probe.failed", slog.String("model", model), slog.String("err", err.Error()))
	} else {
		for name := range meta {
			s.Fields[name] = struct{}{}
		}
		r.log.DebugContext(ctx, "fields.probe.ok", slog.String("model", model), slog.Int("fields", len(s.Fields)))
	}
	s.ProbedAt = r.now()

	r.mu.Lock()
	r.schemas[model] = s
	r.mu.Unlock()
	return s
}

// Lookup returns the stored schema without probing. ok is false when the
// model has never been probed.
func (r *Registry) Lookup(model string) (Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[model]
	return s, ok
}

func (r *Registry) schema(ctx context.Context, model string) Schema {
	s, ok := r.Lookup(model)
	if !ok {
		return r.Probe(ctx, model)
	}
	if s.Err != nil && r.reprobe > 0 && r.now().Sub(s.ProbedAt) >= r.reprobe {
		r.log.InfoContext(ctx, "fields.probe.retry", slog.String("model", model))
		return r.Probe(ctx, model)
	}
	return s
}

// FilterAvailable probes model if needed and partitions requested into the
// fields the server knows and those it does not. Rejected fields are logged
// at debug level; nothing here ever fails.
func (r *Registry) FilterAvailable(ctx context.Context, model string, requested []string) Filtered {
	s := r.schema(ctx, model)

	out := Filtered{
		Accepted: make([]string, 0, len(requested)),
		Rejected: []string{},
	}
	for _, f := range requested {
		if s.Has(f) {
			out.Accepted = append(out.Accepted, f)
		} else {
			out.Rejected = append(out.Rejected, f)
		}
	}

	if len(out.Rejected) > 0 {
		r.log.DebugContext(ctx, "fields.filtered", slog.String("model", model), slog.Any("rejected", out.Rejected))
	}
	return out
}

// ResolveTier returns the fields of (model, tier) that the server supports,
// in table order.
func (r *Registry) ResolveTier(ctx context.Context, model string, tier Tier) []string {
	return r.ResolveTierDetailed(ctx, model, tier).Accepted
}

// ResolveTierDetailed is ResolveTier with the rejected candidates.
func (r *Registry) ResolveTierDetailed(ctx context.Context, model string, tier Tier) Filtered {
	return r.FilterAvailable(ctx, model, Candidates(model, tier))
}

// Warm probes every model that has not been probed yet.
func (r *Registry) Warm(ctx context.Context, models ...string) {
	for _, m := range models {
		if ctx.Err() != nil {
			return
		}
		if _, ok := r.Lookup(m); ok {
			continue
		}
		r.Probe(ctx, m)
	}
}

// Snapshot lists probed models sorted by name.
func (r *Registry) Snapshot() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Summary, 0, len(r.schemas))
	for model, s := range r.schemas {
		sum := Summary{Model: model, Fields: len(s.Fields)}
		if s.Err != nil {
			sum.Error = s.Err.Error()
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}
