package tools

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/ggoodman/odoo-mcp-go/gateway"
	"github.com/ggoodman/odoo-mcp-go/mcp"
	"github.com/ggoodman/odoo-mcp-go/mcpservice"
)

var urlModels = map[string]string{
	"quotation":      "sale.order",
	"partner":        "res.partner",
	"purchase_order": "purchase.order",
	"delivery_order": "stock.picking",
	"product":        "product.product",
}

func (s *Server) urlPatterns() map[string]any {
	out := make(map[string]any, len(urlModels))
	for name, model := range urlModels {
		out[name+"_url_pattern"] = urlPattern(s.baseURL(), model)
	}
	return out
}

func (s *Server) connectionStatus() string {
	if s.sess.Connected() {
		return "connected"
	}
	return "disconnected"
}

// SystemInfo reports the connection, the detected server version and the
// probed field sets.
func (s *Server) SystemInfo() map[string]any {
	probed := s.fields.Snapshot()
	models := make([]string, 0, len(probed))
	counts := make(map[string]int, len(probed))
	for _, p := range probed {
		models = append(models, p.Model)
		counts[p.Model] = p.Fields
	}
	return map[string]any{
		"mcp_server_info": map[string]any{
			"name":    "Odoo MCP Server",
			"version": Version,
		},
		"connection_status":  s.connectionStatus(),
		"version_info":       s.sess.Version(),
		"database":           s.settings.Database,
		"user_id":            s.sess.UID(),
		"base_url":           s.baseURL(),
		"protocol":           s.settings.Protocol,
		"cached_models":      models,
		"model_field_counts": counts,
		"url_generation":     s.urlPatterns(),
		"supported_modules": map[string]any{
			"sales":     []string{"quotations", "sales_orders", "customers"},
			"purchase":  []string{"purchase_orders", "rfq", "suppliers"},
			"inventory": []string{"delivery_orders", "stock_picking", "stock_moves", "products"},
			"contacts":  []string{"partners", "customers", "suppliers"},
		},
		"timestamp": s.timestamp(),
	}
}

// Health performs an uncached probe call and reports its latency together
// with cache and field-registry state. A failed probe yields status
// "unhealthy" and the error, never a Go error.
func (s *Server) Health(ctx context.Context) map[string]any {
	start := time.Now()
	_, err := s.gw.Call(ctx, "res.partner", "search", []any{[]any{}}, map[string]any{"limit": 1}, gateway.WithoutCache())
	elapsed := time.Since(start)

	status, probe := "healthy", "OK"
	if err != nil {
		status, probe = "unhealthy", "FAILED"
		s.log.WarnContext(ctx, "tools.health.failed", slog.String("err", err.Error()))
	}

	probed := s.fields.Snapshot()
	models := make([]string, 0, len(probed))
	total := 0
	for _, p := range probed {
		models = append(models, p.Model)
		total += p.Fields
	}
	version := s.sess.Version()

	out := map[string]any{
		"status":    status,
		"timestamp": s.timestamp(),
		"mcp_server_info": map[string]any{
			"version": Version,
		},
		"odoo_connection": map[string]any{
			"status":           probe,
			"response_time_ms": math.Round(float64(elapsed.Microseconds())/10) / 100,
			"url":              s.baseURL(),
			"database":         s.settings.Database,
			"username":         s.settings.Username,
			"user_id":          s.sess.UID(),
			"version":          stringOr(version.ServerVersion, "Unknown"),
			"major_version":    version.Major,
		},
		"cache": s.cache.Stats(),
		"field_cache": map[string]any{
			"cached_models":       models,
			"total_cached_fields": total,
		},
		"configuration": s.settings.Redacted(),
		"url_generation": map[string]any{
			"base_url":                  s.baseURL(),
			"sample_quotation_url":      recordURL(s.baseURL(), "sale.order", 1),
			"sample_partner_url":        recordURL(s.baseURL(), "res.partner", 1),
			"sample_purchase_order_url": recordURL(s.baseURL(), "purchase.order", 1),
			"sample_delivery_order_url": recordURL(s.baseURL(), "stock.picking", 1),
		},
	}
	if err != nil {
		out["error"] = err.Error()
	}
	return out
}

type rawCallArgs struct {
	Model  string         `json:"model" jsonschema:"description=Odoo model name such as sale.order"`
	Method string         `json:"method" jsonschema:"description=Model method such as search_read"`
	Args   []any          `json:"args,omitempty" jsonschema:"description=Positional arguments"`
	Kwargs map[string]any `json:"kwargs,omitempty" jsonschema:"description=Keyword arguments"`
}

type modelFieldsArgs struct {
	Model string `json:"model,omitempty" jsonschema:"description=Odoo model name,default=sale.order"`
}

// RawCall performs one uncached call. Integral JSON numbers are sent as
// integers so that ids survive the XML-RPC encoding.
func (s *Server) RawCall(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	if args == nil {
		args = []any{}
	}
	normArgs, _ := integralNumbers(args).([]any)
	normKwargs, _ := integralNumbers(kwargs).(map[string]any)
	return s.gw.Call(ctx, model, method, normArgs, normKwargs, gateway.WithoutCache())
}

func integralNumbers(v any) any {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = integralNumbers(e)
		}
		return out
	case map[string]any:
		if x == nil {
			return x
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = integralNumbers(e)
		}
		return out
	}
	return v
}

func (s *Server) modelFields(ctx context.Context, model string) (map[string]any, error) {
	res, err := s.gw.Call(ctx, model, "fields_get", nil, map[string]any{
		"attributes": stringArgs([]string{"string", "type", "required", "readonly"}),
	}, gateway.WithoutCache())
	if err != nil {
		return nil, err
	}
	raw, _ := res.(map[string]any)
	summary := make(map[string]any, len(raw))
	for name, v := range raw {
		meta, _ := v.(map[string]any)
		summary[name] = map[string]any{
			"type":     meta["type"],
			"string":   meta["string"],
			"required": asBool(meta["required"]),
			"readonly": asBool(meta["readonly"]),
		}
	}
	return map[string]any{
		"model":        model,
		"total_fields": len(summary),
		"fields":       summary,
		"timestamp":    s.timestamp(),
	}, nil
}

func (s *Server) currentUserLanguage(ctx context.Context) (map[string]any, error) {
	u, err := s.sess.ReadUser(ctx, "name", "lang", "tz", "company_id")
	if err != nil {
		return nil, err
	}
	lang := stringOr(u["lang"], "en_US")
	return map[string]any{
		"user": map[string]any{
			"id":            s.sess.UID(),
			"name":          stringOr(u["name"], "Unknown"),
			"language":      lang,
			"language_name": languageName(lang),
			"timezone":      stringOr(u["tz"], "UTC"),
			"company":       many2oneLabel(u["company_id"], "Unknown"),
		},
		"cached_language":             s.gw.Language(),
		"configured_default_language": s.settings.DefaultLanguage,
		"language_source":             s.sess.LanguageSource(),
		"supported_languages":         append([]string(nil), SupportedLanguages...),
		"timestamp":                   s.timestamp(),
	}, nil
}

func (s *Server) systemTools() []mcpservice.StaticTool {
	return []mcpservice.StaticTool{
		mcpservice.NewTool[struct{}]("get_odoo_system_info",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[struct{}]) error {
				return w.WriteJSON(s.SystemInfo())
			},
			mcpservice.WithToolDescription("Get Odoo connection, server version, probed models and URL patterns."),
			mcpservice.WithToolReadOnly(),
		),
		mcpservice.NewTool[struct{}]("health_check",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[struct{}]) error {
				return w.WriteJSON(s.Health(ctx))
			},
			mcpservice.WithToolDescription("Check the Odoo connection with a live call and report latency, cache and field cache state."),
			mcpservice.WithToolReadOnly(),
		),
		mcpservice.NewTool[rawCallArgs]("odoo_raw_call",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[rawCallArgs]) error {
				a := r.Args()
				if a.Model == "" || a.Method == "" {
					return s.failMsg(w, "model and method are required", nil)
				}
				res, err := s.RawCall(ctx, a.Model, a.Method, a.Args, a.Kwargs)
				if err != nil {
					return s.fail(ctx, w, err)
				}
				return w.WriteJSON(res)
			},
			mcpservice.WithToolDescription("Execute an arbitrary Odoo model method with positional and keyword arguments. Results are never cached."),
			mcpservice.WithToolAnnotations(mcp.ToolAnnotations{DestructiveHint: true, OpenWorldHint: true}),
		),
		mcpservice.NewTool[modelFieldsArgs]("get_model_fields",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[modelFieldsArgs]) error {
				model := r.Args().Model
				if model == "" {
					model = "sale.order"
				}
				res, err := s.modelFields(ctx, model)
				if err != nil {
					return s.fail(ctx, w, err)
				}
				return w.WriteJSON(res)
			},
			mcpservice.WithToolDescription("List the fields of an Odoo model with type, label, required and readonly flags."),
			mcpservice.WithToolReadOnly(),
		),
		mcpservice.NewTool[struct{}]("get_current_user_language",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[struct{}]) error {
				res, err := s.currentUserLanguage(ctx)
				if err != nil {
					return s.failMsg(w, err.Error(), map[string]any{"cached_language": s.gw.Language()})
				}
				return w.WriteJSON(res)
			},
			mcpservice.WithToolDescription("Get the language of the connected Odoo user and how the request language was chosen."),
			mcpservice.WithToolReadOnly(),
		),
		mcpservice.NewTool[struct{}]("clear_cache",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[struct{}]) error {
				s.cache.Clear()
				s.log.InfoContext(ctx, "tools.cache.cleared")
				return w.WriteJSON(map[string]any{
					"status":    "success",
					"message":   "Cache cleared successfully",
					"timestamp": s.timestamp(),
				})
			},
			mcpservice.WithToolDescription("Drop every cached Odoo result."),
		),
		mcpservice.NewTool[struct{}]("cache_stats",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[struct{}]) error {
				st := s.cache.Stats()
				return w.WriteJSON(map[string]any{
					"total_keys":  st.Total,
					"active_keys": st.Active,
					"ttl_seconds": st.TTL,
					"max_entries": st.MaxEntries,
					"timestamp":   s.timestamp(),
				})
			},
			mcpservice.WithToolDescription("Report the number of cached entries, how many are still fresh and the TTL."),
			mcpservice.WithToolReadOnly(),
		),
	}
}
