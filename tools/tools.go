// Package tools exposes Odoo business-object queries as MCP tools. Every
// backend read goes through the access gateway and every field list through
// the field registry, so tools degrade gracefully on servers that lack a
// field and benefit from the result cache.
//
// Failures are reported to the client as {"error": ...} payloads with
// isError set; a tool never returns a partial result.
package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/ggoodman/odoo-mcp-go/cache"
	"github.com/ggoodman/odoo-mcp-go/config"
	"github.com/ggoodman/odoo-mcp-go/fields"
	"github.com/ggoodman/odoo-mcp-go/gateway"
	"github.com/ggoodman/odoo-mcp-go/mcpservice"
	"github.com/ggoodman/odoo-mcp-go/odoo"
)

// Version is reported by the system tools.
const Version = "1.5.0"

// searchCap bounds the id-collecting searches that back product and global
// filters.
const searchCap = 1000

// Caller is the backend call path. *gateway.Gateway satisfies it.
type Caller interface {
	Call(ctx context.Context, model, method string, args []any, options map[string]any, opts ...gateway.CallOption) (any, error)
	Language() string
}

// Session exposes connection state. *odoo.Session satisfies it.
type Session interface {
	Connected() bool
	UID() int64
	Version() odoo.VersionInfo
	Language() string
	LanguageSource() string
	ReadUser(ctx context.Context, fields ...string) (map[string]any, error)
}

// Deps are the components a Server reads from.
type Deps struct {
	Gateway  Caller
	Fields   *fields.Registry
	Session  Session
	Cache    *cache.Cache
	Settings config.Settings
}

type Server struct {
	gw       Caller
	fields   *fields.Registry
	sess     Session
	cache    *cache.Cache
	settings config.Settings
	log      *slog.Logger
	now      func() time.Time
}

type Option func(*Server)

func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithClock overrides the timestamp source of reports.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func New(deps Deps, opts ...Option) *Server {
	s := &Server{
		gw:       deps.Gateway,
		fields:   deps.Fields,
		sess:     deps.Session,
		cache:    deps.Cache,
		settings: deps.Settings,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tools returns every tool descriptor with its handler.
func (s *Server) Tools() []mcpservice.StaticTool {
	var out []mcpservice.StaticTool
	out = append(out, s.systemTools()...)
	out = append(out, s.documentTools()...)
	out = append(out, s.productTools()...)
	out = append(out, s.partnerTools()...)
	return out
}

// Container registers Tools in a new ToolsContainer.
func (s *Server) Container() *mcpservice.ToolsContainer {
	return mcpservice.NewToolsContainer(s.Tools()...)
}

func (s *Server) timestamp() string {
	return s.now().Format(time.RFC3339)
}

func (s *Server) baseURL() string {
	return s.settings.URL
}

// fail reports err as the tool result.
func (s *Server) fail(ctx context.Context, w mcpservice.ToolResponseWriter, err error) error {
	s.log.ErrorContext(ctx, "tools.call.failed", slog.String("err", err.Error()))
	w.SetError(true)
	return w.WriteJSON(map[string]any{
		"error":     err.Error(),
		"timestamp": s.timestamp(),
	})
}

// failMsg reports a lookup miss or a usage problem, with extra keys merged in.
func (s *Server) failMsg(w mcpservice.ToolResponseWriter, msg string, extra map[string]any) error {
	out := map[string]any{"error": msg, "timestamp": s.timestamp()}
	for k, v := range extra {
		out[k] = v
	}
	w.SetError(true)
	return w.WriteJSON(out)
}

func (s *Server) searchRead(ctx context.Context, model string, domain []any, options map[string]any, opts ...gateway.CallOption) ([]map[string]any, error) {
	if domain == nil {
		domain = []any{}
	}
	res, err := s.gw.Call(ctx, model, "search_read", []any{domain}, options, opts...)
	if err != nil {
		return nil, err
	}
	return rows(res), nil
}

func (s *Server) read(ctx context.Context, model string, id int64, fieldNames []string) (map[string]any, error) {
	res, err := s.gw.Call(ctx, model, "read", []any{[]any{id}}, map[string]any{"fields": stringArgs(fieldNames)})
	if err != nil {
		return nil, err
	}
	recs := rows(res)
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

func (s *Server) search(ctx context.Context, model string, domain []any, limit int) ([]int64, error) {
	res, err := s.gw.Call(ctx, model, "search", []any{domain}, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	return ids(res), nil
}

func (s *Server) standardFields(ctx context.Context, model string) []string {
	return s.fields.ResolveTier(ctx, model, fields.Standard)
}

// partnerDetails reads the language and currency settings of a partner.
// Failures are logged and yield an empty map.
func (s *Server) partnerDetails(ctx context.Context, id int64) map[string]any {
	want := s.fields.FilterAvailable(ctx, "res.partner",
		[]string{"name", "lang", "country_id", "tz", "property_product_pricelist", "vat"}).Accepted
	p, err := s.read(ctx, "res.partner", id, want)
	if err != nil || p == nil {
		if err != nil {
			s.log.WarnContext(ctx, "tools.partner.read_failed", slog.Int64("partner_id", id), slog.String("err", err.Error()))
		}
		return map[string]any{}
	}

	out := map[string]any{
		"name":      asString(p["name"]),
		"lang":      partnerLang(p),
		"country":   many2oneLabel(p["country_id"], "Not Set"),
		"timezone":  stringOr(p["tz"], "Not Set"),
		"vat":       asString(p["vat"]),
		"pricelist": many2oneLabel(p["property_product_pricelist"], "Default"),
	}

	if plID, _, ok := many2one(p["property_product_pricelist"]); ok {
		pl, err := s.read(ctx, "product.pricelist", plID, []string{"currency_id"})
		switch {
		case err != nil:
			s.log.WarnContext(ctx, "tools.pricelist.read_failed", slog.Int64("pricelist_id", plID), slog.String("err", err.Error()))
		case pl != nil:
			if cur, ok := pl["currency_id"].([]any); ok {
				out["pricelist_currency"] = cur
			}
		}
	}
	return out
}

// partnerLang defaults to zh_TW when the partner has no language set.
func partnerLang(p map[string]any) string {
	return stringOr(p["lang"], "zh_TW")
}

func stringOr(v any, def string) string {
	if s := asString(v); s != "" {
		return s
	}
	return def
}
