package tools

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ggoodman/odoo-mcp-go/cache"
	"github.com/ggoodman/odoo-mcp-go/config"
	"github.com/ggoodman/odoo-mcp-go/fields"
	"github.com/ggoodman/odoo-mcp-go/gateway"
	"github.com/ggoodman/odoo-mcp-go/internal/testlog"
	"github.com/ggoodman/odoo-mcp-go/mcp"
	"github.com/ggoodman/odoo-mcp-go/odoo"
)

const testURL = "https://erp.example.com"

type recordedCall struct {
	model   string
	method  string
	args    []any
	options map[string]any
	opts    int
}

type route func(args []any, options map[string]any) (any, error)

type fakeCaller struct {
	mu     sync.Mutex
	calls  []recordedCall
	routes map[string]route
}

func (f *fakeCaller) Call(ctx context.Context, model, method string, args []any, options map[string]any, opts ...gateway.CallOption) (any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{model: model, method: method, args: args, options: options, opts: len(opts)})
	r := f.routes[model+"."+method]
	f.mu.Unlock()
	if r == nil {
		return []any{}, nil
	}
	return r(args, options)
}

func (f *fakeCaller) Language() string { return "en_US" }

func (f *fakeCaller) find(model, method string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.model == model && c.method == method {
			out = append(out, c)
		}
	}
	return out
}

// schemaSource reports every tier candidate of a model as present, plus
// extra fields for models without tiers.
type schemaSource struct{}

var extraFields = map[string][]string{
	"stock.quant":          quantFields,
	"product.product":      {"incoming_qty", "outgoing_qty", "seller_ids"},
	"product.supplierinfo": {"partner_id", "price", "min_qty", "delay", "product_code"},
}

func (schemaSource) FieldsGet(ctx context.Context, model string) (map[string]any, error) {
	out := map[string]any{}
	for _, tier := range []fields.Tier{fields.Basic, fields.Standard, fields.Extended} {
		for _, f := range fields.Candidates(model, tier) {
			out[f] = map[string]any{"type": "char"}
		}
	}
	for _, f := range extraFields[model] {
		out[f] = map[string]any{"type": "char"}
	}
	return out, nil
}

type fakeSession struct {
	user map[string]any
	err  error
}

func (s *fakeSession) Connected() bool { return true }
func (s *fakeSession) UID() int64      { return 7 }
func (s *fakeSession) Version() odoo.VersionInfo {
	return odoo.VersionInfo{ServerVersion: "16.0", Major: 16}
}
func (s *fakeSession) Language() string       { return "en_US" }
func (s *fakeSession) LanguageSource() string { return "user_preference" }
func (s *fakeSession) ReadUser(ctx context.Context, fields ...string) (map[string]any, error) {
	return s.user, s.err
}

func newTestServer(t *testing.T, caller *fakeCaller, sess *fakeSession) *Server {
	t.Helper()
	c, err := cache.New(time.Minute)
	if err != nil {
		t.Fatalf("cache.New() failed: %v", err)
	}
	if sess == nil {
		sess = &fakeSession{}
	}
	reg := fields.NewRegistry(schemaSource{}, fields.WithLogger(testlog.Logger(t)))
	return New(Deps{
		Gateway:  caller,
		Fields:   reg,
		Session:  sess,
		Cache:    c,
		Settings: config.Settings{URL: testURL, Database: "prod", Username: "bot", Protocol: "xmlrpc"},
	},
		WithLogger(testlog.Logger(t)),
		WithClock(func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }),
	)
}

func callTool(t *testing.T, s *Server, name, args string) *mcp.CallToolResult {
	t.Helper()
	res, err := s.Container().Call(t.Context(), &mcp.CallToolRequestReceived{Name: name, Arguments: json.RawMessage(args)})
	if err != nil {
		t.Fatalf("%s: Call() failed: %v", name, err)
	}
	return res
}

func structured(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	if res.StructuredContent == nil {
		t.Fatalf("result has no structured content: %+v", res)
	}
	return res.StructuredContent
}

// domainOf returns the search domain of a search or search_read call.
func domainOf(c recordedCall) []any {
	if len(c.args) == 0 {
		return nil
	}
	d, _ := c.args[0].([]any)
	return d
}

func isProductSearch(args []any) bool {
	d, _ := args[0].([]any)
	return len(d) > 0 && d[0] == "|"
}

func m2o(id int64, label string) []any { return []any{id, label} }

func TestToolsRegistered(t *testing.T) {
	s := newTestServer(t, &fakeCaller{}, nil)
	var names []string
	for _, tool := range s.Container().ListTools("").Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	want := []string{
		"cache_stats", "clear_cache",
		"get_all_partners",
		"get_current_user_language", "get_delivery_order_details", "get_model_fields",
		"get_odoo_system_info", "get_partner_language_currency", "get_partner_statistics",
		"get_product_details",
		"get_product_stock", "get_purchase_order_details", "get_quotation_details",
		"health_check", "odoo_raw_call",
		"search_delivery_orders", "search_partners", "search_products",
		"search_purchase_orders", "search_quotations",
	}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("tools = %v\nwant %v", names, want)
	}
}

func TestSearchQuotationsByProduct(t *testing.T) {
	caller := &fakeCaller{routes: map[string]route{
		"sale.order.line.search_read": func(args []any, _ map[string]any) (any, error) {
			if isProductSearch(args) {
				return []any{
					map[string]any{"order_id": m2o(3, "SO003")},
					map[string]any{"order_id": m2o(1, "SO001")},
					map[string]any{"order_id": m2o(3, "SO003")},
				}, nil
			}
			return []any{map[string]any{
				"name":            "Widget\nBlue, large",
				"product_id":      m2o(5, "[W1] Widget"),
				"product_uom_qty": 2.0,
				"price_unit":      625.25,
				"price_subtotal":  1250.5,
				"sequence":        int64(10),
			}}, nil
		},
		"sale.order.search_read": func(args []any, _ map[string]any) (any, error) {
			return []any{map[string]any{
				"id":           int64(3),
				"name":         "SO003",
				"state":        "sale",
				"partner_id":   m2o(9, "Acme"),
				"currency_id":  m2o(1, "US Dollar (USD)"),
				"amount_total": 1250.5,
				"date_order":   "2024-02-28 09:30:00",
			}}, nil
		},
		"res.partner.read": func(args []any, _ map[string]any) (any, error) {
			return []any{map[string]any{"id": int64(9), "name": "Acme", "lang": "en_US"}}, nil
		},
	}}
	s := newTestServer(t, caller, nil)

	res := callTool(t, s, "search_quotations", `{"product_name":"widget"}`)
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content[0].Text)
	}
	out := structured(t, res)

	searches := caller.find("sale.order", "search_read")
	if len(searches) != 1 {
		t.Fatalf("expected one sale.order search_read, got %d", len(searches))
	}
	d := domainOf(searches[0])
	wantID := []any{"id", "in", []any{int64(1), int64(3)}}
	if !reflect.DeepEqual(d[len(d)-1], wantID) {
		t.Fatalf("domain = %v, want trailing %v", d, wantID)
	}
	if got := searches[0].options["limit"]; got != 100 {
		t.Fatalf("search limit = %v, want 100", got)
	}
	if got := searches[0].options["order"]; got != "date_order desc" {
		t.Fatalf("order = %v", got)
	}

	quotes := out["quotations"].([]any)
	if len(quotes) != 1 {
		t.Fatalf("expected 1 quotation, got %d", len(quotes))
	}
	q := quotes[0].(map[string]any)
	if q["odoo_url"] != testURL+"/web#id=3&model=sale.order&view_type=form" {
		t.Fatalf("odoo_url = %v", q["odoo_url"])
	}
	if q["state_translated"] != "Sales Order" {
		t.Fatalf("state_translated = %v", q["state_translated"])
	}
	if q["amount_total_formatted"] != "1250.50 USD" {
		t.Fatalf("amount_total_formatted = %v", q["amount_total_formatted"])
	}
	if q["customer_url"] != testURL+"/web#id=9&model=res.partner&view_type=form" {
		t.Fatalf("customer_url = %v", q["customer_url"])
	}
	lines := q["services_products"].([]any)
	if len(lines) != 1 || lines[0].(map[string]any)["product_name"] != "Widget" {
		t.Fatalf("unexpected lines %v", lines)
	}

	summary := out["summary"].(map[string]any)
	if summary["total_found"] != 1.0 {
		t.Fatalf("total_found = %v", summary["total_found"])
	}
	if cb := summary["currency_breakdown"].(map[string]any); cb["USD"] != 1.0 {
		t.Fatalf("currency_breakdown = %v", cb)
	}
	if m := out["query_info"].(map[string]any)["search_method"]; m != "product_line_search" {
		t.Fatalf("search_method = %v", m)
	}
}

func TestSearchWithoutProductMatchesIsEmpty(t *testing.T) {
	caller := &fakeCaller{}
	s := newTestServer(t, caller, nil)

	out := structured(t, callTool(t, s, "search_quotations", `{"product_name":"nothing"}`))
	if got := out["quotations"].([]any); len(got) != 0 {
		t.Fatalf("expected no quotations, got %v", got)
	}
	if n := len(caller.find("sale.order", "search_read")); n != 0 {
		t.Fatalf("header search must be skipped, got %d calls", n)
	}
}

func TestGlobalSearchSkipsRejectedFields(t *testing.T) {
	caller := &fakeCaller{routes: map[string]route{
		"purchase.order.search": func(args []any, _ map[string]any) (any, error) {
			d := args[0].([]any)
			c, ok := d[0].([]any)
			switch {
			case ok && c[0] == "notes":
				return nil, errors.New("Invalid field 'notes'")
			case ok && c[0] == "name":
				return []any{int64(4)}, nil
			}
			return []any{}, nil
		},
		"purchase.order.search_read": func(args []any, _ map[string]any) (any, error) {
			return []any{map[string]any{"id": int64(4), "name": "PO004", "state": "purchase"}}, nil
		},
	}}
	s := newTestServer(t, caller, nil)

	res := callTool(t, s, "search_purchase_orders", `{"global_search":"PO004","limit":5}`)
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content[0].Text)
	}
	out := structured(t, res)
	pos := out["purchase_orders"].([]any)
	if len(pos) != 1 {
		t.Fatalf("expected 1 purchase order, got %d", len(pos))
	}
	po := pos[0].(map[string]any)
	if po["state_translated"] != "採購單" {
		t.Fatalf("state_translated = %v", po["state_translated"])
	}
	searches := caller.find("purchase.order", "search_read")
	d := domainOf(searches[0])
	if !reflect.DeepEqual(d[len(d)-1], []any{"id", "in", []any{int64(4)}}) {
		t.Fatalf("domain = %v", d)
	}
	if got := searches[0].options["limit"]; got != 50 {
		t.Fatalf("search limit = %v, want 50", got)
	}
}

func TestSearchRejectsBadDate(t *testing.T) {
	s := newTestServer(t, &fakeCaller{}, nil)
	res := callTool(t, s, "search_delivery_orders", `{"date_from":"01/02/2024"}`)
	if !res.IsError {
		t.Fatalf("expected error result")
	}
	if !strings.Contains(res.Content[0].Text, "date_from") {
		t.Fatalf("unexpected error text %s", res.Content[0].Text)
	}
}

func TestGetDeliveryOrderDetails(t *testing.T) {
	caller := &fakeCaller{routes: map[string]route{
		"stock.picking.read": func(args []any, _ map[string]any) (any, error) {
			return []any{map[string]any{
				"id":               int64(12),
				"name":             "WH/OUT/00012",
				"state":            "done",
				"origin":           "SO042",
				"partner_id":       m2o(9, "Acme"),
				"picking_type_id":  m2o(2, "Delivery Orders"),
				"location_id":      m2o(8, "WH/Stock"),
				"location_dest_id": m2o(5, "Partners/Customers"),
				"scheduled_date":   "2024-02-28 09:30:00",
			}}, nil
		},
		"res.partner.read": func(args []any, _ map[string]any) (any, error) {
			return []any{map[string]any{"id": int64(9), "name": "Acme", "lang": false}}, nil
		},
		"sale.order.search": func(args []any, _ map[string]any) (any, error) {
			return []any{int64(42)}, nil
		},
		"stock.move.search_read": func(args []any, _ map[string]any) (any, error) {
			return []any{map[string]any{
				"name":            "Widget",
				"product_id":      m2o(5, "Widget"),
				"product_uom_qty": 3.0,
				"quantity_done":   3.0,
				"product_uom":     m2o(1, "Units"),
				"state":           "done",
			}}, nil
		},
	}}
	s := newTestServer(t, caller, nil)

	out := structured(t, callTool(t, s, "get_delivery_order_details", `{"delivery_id":12}`))
	d := out["delivery_order"].(map[string]any)
	if d["state_translated"] != "已完成" {
		t.Fatalf("state_translated = %v", d["state_translated"])
	}
	if d["related_sale_order_url"] != testURL+"/web#id=42&model=sale.order&view_type=form" {
		t.Fatalf("related_sale_order_url = %v", d["related_sale_order_url"])
	}
	if d["source_location"] != "WH/Stock" || d["picking_type_name"] != "Delivery Orders" {
		t.Fatalf("locations not labelled: %v", d)
	}
	moves := d["products_moved"].([]any)
	if len(moves) != 1 || moves[0].(map[string]any)["unit_of_measure"] != "Units" {
		t.Fatalf("unexpected moves %v", moves)
	}
	settings := out["display_settings"].(map[string]any)
	if settings["language"] != "chinese" || settings["is_english_partner"] != false {
		t.Fatalf("display_settings = %v", settings)
	}

	moveCalls := caller.find("stock.move", "search_read")
	if !reflect.DeepEqual(domainOf(moveCalls[0]), []any{[]any{"picking_id", "=", int64(12)}}) {
		t.Fatalf("move domain = %v", domainOf(moveCalls[0]))
	}
}

func TestDetailsNotFound(t *testing.T) {
	s := newTestServer(t, &fakeCaller{}, nil)
	res := callTool(t, s, "get_quotation_details", `{"quotation_id":99}`)
	if !res.IsError {
		t.Fatalf("expected error result")
	}
	out := structured(t, res)
	if out["error"] != "quotation 99 not found" {
		t.Fatalf("error = %v", out["error"])
	}
}

func TestBackendErrorBecomesErrorResult(t *testing.T) {
	caller := &fakeCaller{routes: map[string]route{
		"sale.order.search_read": func([]any, map[string]any) (any, error) {
			return nil, errors.New("access denied")
		},
	}}
	s := newTestServer(t, caller, nil)
	res := callTool(t, s, "search_quotations", `{}`)
	if !res.IsError {
		t.Fatalf("expected error result")
	}
	out := structured(t, res)
	if out["error"] != "access denied" || out["timestamp"] != "2024-03-01T12:00:00Z" {
		t.Fatalf("unexpected error payload %v", out)
	}
}

func TestSearchPartnersDomain(t *testing.T) {
	caller := &fakeCaller{routes: map[string]route{
		"res.partner.search_read": func([]any, map[string]any) (any, error) {
			return []any{
				map[string]any{"id": int64(1), "name": "Acme", "is_company": true, "customer_rank": int64(2), "street": "1 Main St", "city": "Springfield", "country_id": m2o(233, "United States"), "lang": "en_US"},
				map[string]any{"id": int64(2), "name": "Jane", "is_company": false, "customer_rank": int64(1), "supplier_rank": int64(1)},
			}, nil
		},
	}}
	s := newTestServer(t, caller, nil)

	out := structured(t, callTool(t, s, "search_partners", `{"phone":"555","is_customer":true,"limit":0}`))
	c := caller.find("res.partner", "search_read")[0]
	want := []any{
		"|", []any{"phone", "ilike", "555"}, []any{"mobile", "ilike", "555"},
		[]any{"customer_rank", ">", 0},
	}
	if !reflect.DeepEqual(domainOf(c), want) {
		t.Fatalf("domain = %v\nwant %v", domainOf(c), want)
	}
	if _, ok := c.options["limit"]; ok {
		t.Fatalf("limit 0 must not be sent, got %v", c.options)
	}

	partners := out["partners"].([]any)
	first := partners[0].(map[string]any)
	if first["formatted_address"] != "1 Main St, Springfield, United States" || first["is_english_customer"] != true {
		t.Fatalf("unexpected partner %v", first)
	}
	if second := partners[1].(map[string]any); second["formatted_address"] != "No address" || second["is_english_customer"] != false {
		t.Fatalf("unexpected partner %v", second)
	}
	summary := out["summary"].(map[string]any)
	if summary["customers"] != 2.0 || summary["suppliers"] != 1.0 || summary["companies"] != 1.0 || summary["individuals"] != 1.0 {
		t.Fatalf("summary = %v", summary)
	}
}

func TestGetAllPartners(t *testing.T) {
	caller := &fakeCaller{routes: map[string]route{
		"res.partner.search_read": func([]any, map[string]any) (any, error) {
			return []any{
				map[string]any{"id": int64(1), "name": "Acme", "is_company": true, "customer_rank": int64(3), "email": "sales@acme.test", "lang": "en_US"},
				map[string]any{"id": int64(2), "name": "Lin", "is_company": true, "supplier_rank": int64(1), "mobile": "0912", "lang": "zh_TW"},
			}, nil
		},
	}}
	s := newTestServer(t, caller, nil)

	out := structured(t, callTool(t, s, "get_all_partners", `{"include_individuals":false,"limit":5}`))
	c := caller.find("res.partner", "search_read")[0]
	if want := []any{[]any{"is_company", "=", true}}; !reflect.DeepEqual(domainOf(c), want) {
		t.Fatalf("domain = %v, want %v", domainOf(c), want)
	}
	if c.options["limit"] != 5 {
		t.Fatalf("options = %v", c.options)
	}

	first := out["partners"].([]any)[0].(map[string]any)
	if first["contact_type"] != "Company" || first["is_customer"] != true || first["odoo_url"] != testURL+"/web#id=1&model=res.partner&view_type=form" {
		t.Fatalf("unexpected partner %v", first)
	}
	stats := out["statistics"].(map[string]any)
	want := map[string]float64{
		"total_records": 2, "companies": 2, "individuals": 0, "customers": 1, "suppliers": 1,
		"with_email": 1, "with_phone": 1, "english_customers": 1, "chinese_customers": 1,
	}
	for k, v := range want {
		if stats[k] != v {
			t.Errorf("statistics[%s] = %v, want %v", k, stats[k], v)
		}
	}

	// Both flags off means no record-type filter, as with both on.
	callTool(t, s, "get_all_partners", `{"include_companies":false,"include_individuals":false}`)
	if d := domainOf(caller.find("res.partner", "search_read")[1]); len(d) != 0 {
		t.Fatalf("domain = %v, want none", d)
	}
}

func TestPartnerStatistics(t *testing.T) {
	counts := map[string]int64{
		"":              200,
		"customer_rank": 50,
		"supplier_rank": 20,
		"is_company=1":  30,
		"is_company=0":  170,
		"email":         120,
		"|":             3,
	}
	caller := &fakeCaller{routes: map[string]route{
		"res.partner.search_count": func(args []any, _ map[string]any) (any, error) {
			d := args[0].([]any)
			if len(d) == 0 {
				return counts[""], nil
			}
			if d[0] == "|" {
				return counts["|"], nil
			}
			leaf := d[0].([]any)
			key := leaf[0].(string)
			if key == "is_company" {
				if leaf[2] == true {
					key += "=1"
				} else {
					key += "=0"
				}
			}
			return counts[key], nil
		},
		"res.partner.search_read": func([]any, map[string]any) (any, error) {
			return []any{
				map[string]any{"id": int64(1), "lang": "en_US"},
				map[string]any{"id": int64(2), "lang": "zh_TW"},
				map[string]any{"id": int64(3), "lang": "zh_TW"},
			}, nil
		},
	}}
	s := newTestServer(t, caller, nil)

	out := structured(t, callTool(t, s, "get_partner_statistics", `{}`))
	if n := len(caller.find("res.partner", "search_count")); n != 7 {
		t.Fatalf("search_count calls = %d, want 7", n)
	}
	for _, c := range caller.find("res.partner", "search_count") {
		if c.opts != 0 {
			t.Fatalf("search_count must go through the cache, got %d call options", c.opts)
		}
	}
	sample := caller.find("res.partner", "search_read")[0]
	if sample.options["limit"] != languageSampleSize {
		t.Fatalf("sample options = %v", sample.options)
	}

	overview := out["overview"].(map[string]any)
	if overview["total_partners"] != 200.0 || overview["with_phone"] != 3.0 || overview["individuals"] != 170.0 {
		t.Fatalf("overview = %v", overview)
	}
	pct := out["percentages"].(map[string]any)
	if pct["customer_percentage"] != 25.0 || pct["company_percentage"] != 15.0 || pct["phone_coverage"] != 1.5 {
		t.Fatalf("percentages = %v", pct)
	}
	langs := out["language_distribution"].(map[string]any)
	if langs["zh_TW"] != 2.0 || langs["en_US"] != 1.0 {
		t.Fatalf("language_distribution = %v", langs)
	}
}

func TestPartnerStatisticsWithoutPartners(t *testing.T) {
	caller := &fakeCaller{routes: map[string]route{
		"res.partner.search_count": func([]any, map[string]any) (any, error) { return int64(0), nil },
	}}
	s := newTestServer(t, caller, nil)

	out := structured(t, callTool(t, s, "get_partner_statistics", `{}`))
	if pct := out["percentages"].(map[string]any); pct["customer_percentage"] != 0.0 {
		t.Fatalf("percentages = %v", pct)
	}
}

func TestPartnerLanguageCurrency(t *testing.T) {
	caller := &fakeCaller{routes: map[string]route{
		"res.partner.read": func([]any, map[string]any) (any, error) {
			return []any{map[string]any{
				"id": int64(9), "name": "Acme", "lang": "zh_TW", "is_company": true,
				"property_product_pricelist": m2o(3, "Public Pricelist"),
				"customer_rank":              int64(1),
			}}, nil
		},
		"product.pricelist.read": func([]any, map[string]any) (any, error) {
			return []any{map[string]any{"id": int64(3), "currency_id": m2o(2, "New Taiwan Dollar (TWD)")}}, nil
		},
	}}
	s := newTestServer(t, caller, nil)

	out := structured(t, callTool(t, s, "get_partner_language_currency", `{"partner_id":9}`))
	info := out["partner_info"].(map[string]any)
	if info["language_name"] != "繁體中文" || info["type"] != "Company" || info["is_english_customer"] != false {
		t.Fatalf("partner_info = %v", info)
	}
	cur := out["currency_settings"].(map[string]any)
	if cur["currency_code"] != "TWD" || cur["pricelist"] != "Public Pricelist" {
		t.Fatalf("currency_settings = %v", cur)
	}
	if cls := out["classification"].(map[string]any); cls["is_customer"] != true || cls["is_supplier"] != false {
		t.Fatalf("classification = %v", cls)
	}
}

func TestSearchProductsNameBypassesCache(t *testing.T) {
	caller := &fakeCaller{routes: map[string]route{
		"product.product.search_read": func([]any, map[string]any) (any, error) {
			return []any{map[string]any{
				"id": int64(5), "name": "Widget", "display_name": "[W1] Widget (copy)",
				"type": "product", "categ_id": m2o(1, "All"), "uom_id": m2o(1, "Units"),
				"qty_available": 4.0,
			}}, nil
		},
	}}
	s := newTestServer(t, caller, nil)

	out := structured(t, callTool(t, s, "search_products", `{"name":"widg"}`))
	c := caller.find("product.product", "search_read")[0]
	if c.opts != 1 {
		t.Fatalf("name search must bypass the cache")
	}
	if c.options["limit"] != 250 {
		t.Fatalf("limit = %v, want 250", c.options["limit"])
	}
	want := []any{[]any{"name", "ilike", "widg"}, []any{"active", "=", true}}
	if !reflect.DeepEqual(domainOf(c), want) {
		t.Fatalf("domain = %v", domainOf(c))
	}
	p := out["products"].([]any)[0].(map[string]any)
	if p["display_name"] != "Widget" || p["original_display_name"] != "[W1] Widget (copy)" {
		t.Fatalf("display name not cleaned: %v", p)
	}
	if p["type_display"] != "可庫存產品 (Storable Product)" {
		t.Fatalf("type_display = %v", p["type_display"])
	}

	callTool(t, s, "search_products", `{"category_name":"All","active_only":false}`)
	c = caller.find("product.product", "search_read")[1]
	if c.opts != 0 {
		t.Fatalf("plain search should use the cache")
	}
	if !reflect.DeepEqual(domainOf(c), []any{[]any{"categ_id.name", "ilike", "All"}}) {
		t.Fatalf("domain = %v", domainOf(c))
	}
}

func TestProductStock(t *testing.T) {
	product := map[string]any{
		"id": int64(5), "name": "Widget", "display_name": "Widget", "type": "product",
		"uom_id": m2o(1, "Units"), "qty_available": 7.0, "virtual_available": 9.0,
	}
	caller := &fakeCaller{routes: map[string]route{
		"product.product.read": func([]any, map[string]any) (any, error) {
			return []any{product}, nil
		},
		"stock.quant.search_read": func([]any, map[string]any) (any, error) {
			return []any{
				map[string]any{"location_id": m2o(8, "WH/Stock"), "quantity": 4.0, "reserved_quantity": 1.0, "available_quantity": 3.0},
				map[string]any{"location_id": m2o(9, "WH/Shelf"), "quantity": 1.0, "reserved_quantity": 0.0, "available_quantity": 1.0},
				map[string]any{"location_id": m2o(8, "WH/Stock"), "quantity": 2.0, "reserved_quantity": 0.0, "available_quantity": 2.0},
			}, nil
		},
	}}
	s := newTestServer(t, caller, nil)

	out := structured(t, callTool(t, s, "get_product_stock", `{"product_id":5}`))
	locs := out["stock_by_location"].([]any)
	if len(locs) != 2 {
		t.Fatalf("expected 2 locations, got %v", locs)
	}
	first := locs[0].(map[string]any)
	if first["location_name"] != "WH/Stock" || first["quantity"] != 6.0 || first["available"] != 5.0 {
		t.Fatalf("unexpected aggregate %v", first)
	}
	summary := out["stock_summary"].(map[string]any)
	if summary["total_on_hand"] != 7.0 || summary["system_on_hand"] != 7.0 || summary["system_forecasted"] != 9.0 {
		t.Fatalf("stock_summary = %v", summary)
	}
	q := caller.find("stock.quant", "search_read")[0]
	want := []any{[]any{"product_id", "=", int64(5)}, []any{"location_id.usage", "=", "internal"}}
	if !reflect.DeepEqual(domainOf(q), want) {
		t.Fatalf("quant domain = %v", domainOf(q))
	}
}

func TestProductStockLookupOutcomes(t *testing.T) {
	caller := &fakeCaller{routes: map[string]route{
		"product.product.search_read": func([]any, map[string]any) (any, error) {
			return []any{
				map[string]any{"id": int64(5), "name": "Widget"},
				map[string]any{"id": int64(6), "name": "Widget XL"},
			}, nil
		},
		"product.product.read": func([]any, map[string]any) (any, error) {
			return []any{map[string]any{"id": int64(7), "name": "Consulting", "type": "service"}}, nil
		},
	}}
	s := newTestServer(t, caller, nil)

	res := callTool(t, s, "get_product_stock", `{"product_name":"widget"}`)
	if !res.IsError {
		t.Fatalf("ambiguous name must be an error")
	}
	out := structured(t, res)
	if out["error"] != "Multiple products found" || len(out["products"].([]any)) != 2 {
		t.Fatalf("unexpected payload %v", out)
	}

	out = structured(t, callTool(t, s, "get_product_stock", `{"product_id":7}`))
	if !strings.Contains(out["message"].(string), "not stockable") {
		t.Fatalf("unexpected payload %v", out)
	}
	if n := len(caller.find("stock.quant", "search_read")); n != 0 {
		t.Fatalf("service product must not query quants, got %d calls", n)
	}

	if res := callTool(t, s, "get_product_stock", `{}`); !res.IsError {
		t.Fatalf("missing product must be an error")
	}
}

func TestRawCallSendsIntegers(t *testing.T) {
	caller := &fakeCaller{routes: map[string]route{
		"res.partner.read": func(args []any, _ map[string]any) (any, error) {
			return []any{map[string]any{"id": int64(1)}}, nil
		},
	}}
	s := newTestServer(t, caller, nil)

	res := callTool(t, s, "odoo_raw_call", `{"model":"res.partner","method":"read","args":[[1,2]],"kwargs":{"fields":["name"],"limit":3,"ratio":0.5}}`)
	if res.IsError {
		t.Fatalf("unexpected error %s", res.Content[0].Text)
	}
	c := caller.find("res.partner", "read")[0]
	if !reflect.DeepEqual(c.args, []any{[]any{int64(1), int64(2)}}) {
		t.Fatalf("args = %#v", c.args)
	}
	if c.options["limit"] != int64(3) || c.options["ratio"] != 0.5 {
		t.Fatalf("kwargs = %#v", c.options)
	}
	if c.opts != 1 {
		t.Fatalf("raw calls must bypass the cache")
	}

	if res := callTool(t, s, "odoo_raw_call", `{"model":"res.partner"}`); !res.IsError {
		t.Fatalf("missing method must be an error")
	}
}

func TestHealthCheck(t *testing.T) {
	fail := false
	caller := &fakeCaller{routes: map[string]route{
		"res.partner.search": func([]any, map[string]any) (any, error) {
			if fail {
				return nil, errors.New("connection refused")
			}
			return []any{int64(1)}, nil
		},
	}}
	s := newTestServer(t, caller, nil)

	out := structured(t, callTool(t, s, "health_check", `{}`))
	if out["status"] != "healthy" {
		t.Fatalf("status = %v", out["status"])
	}
	conn := out["odoo_connection"].(map[string]any)
	if conn["version"] != "16.0" || conn["major_version"] != 16.0 {
		t.Fatalf("odoo_connection = %v", conn)
	}

	fail = true
	res := callTool(t, s, "health_check", `{}`)
	if res.IsError {
		t.Fatalf("an unhealthy report is still a result")
	}
	out = structured(t, res)
	if out["status"] != "unhealthy" || out["error"] != "connection refused" {
		t.Fatalf("unexpected report %v", out)
	}
	for _, c := range caller.find("res.partner", "search") {
		if c.opts != 1 {
			t.Fatalf("health probe must bypass the cache")
		}
	}
}

func TestModelFieldsDefaultsToSaleOrder(t *testing.T) {
	caller := &fakeCaller{routes: map[string]route{
		"sale.order.fields_get": func([]any, map[string]any) (any, error) {
			return map[string]any{
				"name":  map[string]any{"type": "char", "string": "Order Reference", "required": true},
				"state": map[string]any{"type": "selection", "string": "Status", "readonly": true},
			}, nil
		},
	}}
	s := newTestServer(t, caller, nil)

	out := structured(t, callTool(t, s, "get_model_fields", `{}`))
	if out["model"] != "sale.order" || out["total_fields"] != 2.0 {
		t.Fatalf("unexpected payload %v", out)
	}
	name := out["fields"].(map[string]any)["name"].(map[string]any)
	if name["required"] != true || name["readonly"] != false || name["type"] != "char" {
		t.Fatalf("name field = %v", name)
	}
}

func TestCurrentUserLanguage(t *testing.T) {
	s := newTestServer(t, &fakeCaller{}, &fakeSession{user: map[string]any{
		"name": "Bot", "lang": "zh_TW", "tz": "Asia/Taipei", "company_id": m2o(1, "My Company"),
	}})
	out := structured(t, callTool(t, s, "get_current_user_language", `{}`))
	user := out["user"].(map[string]any)
	if user["language_name"] != "繁體中文" || user["company"] != "My Company" || user["id"] != 7.0 {
		t.Fatalf("user = %v", user)
	}
	if out["language_source"] != "user_preference" || out["cached_language"] != "en_US" {
		t.Fatalf("unexpected payload %v", out)
	}

	s = newTestServer(t, &fakeCaller{}, &fakeSession{err: errors.New("session expired")})
	res := callTool(t, s, "get_current_user_language", `{}`)
	if !res.IsError || structured(t, res)["cached_language"] != "en_US" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestClearCacheAndStats(t *testing.T) {
	s := newTestServer(t, &fakeCaller{}, nil)
	sig, err := cache.NewSignature("res.partner", "search", []any{[]any{}}, nil)
	if err != nil {
		t.Fatalf("NewSignature() failed: %v", err)
	}
	s.cache.Put(sig, []any{int64(1)})

	out := structured(t, callTool(t, s, "cache_stats", `{}`))
	if out["total_keys"] != 1.0 || out["ttl_seconds"] != 60.0 {
		t.Fatalf("stats before clear = %v", out)
	}
	if out := structured(t, callTool(t, s, "clear_cache", `{}`)); out["status"] != "success" {
		t.Fatalf("clear_cache = %v", out)
	}
	if out := structured(t, callTool(t, s, "cache_stats", `{}`)); out["total_keys"] != 0.0 {
		t.Fatalf("stats after clear = %v", out)
	}
}

func TestSystemInfo(t *testing.T) {
	s := newTestServer(t, &fakeCaller{}, nil)
	s.fields.Warm(t.Context(), "sale.order")

	out := structured(t, callTool(t, s, "get_odoo_system_info", `{}`))
	if out["connection_status"] != "connected" || out["user_id"] != 7.0 {
		t.Fatalf("unexpected payload %v", out)
	}
	counts := out["model_field_counts"].(map[string]any)
	if counts["sale.order"] == nil || counts["sale.order"].(float64) == 0 {
		t.Fatalf("model_field_counts = %v", counts)
	}
	urls := out["url_generation"].(map[string]any)
	if urls["delivery_order_url_pattern"] != testURL+"/web#id={ID}&model=stock.picking&view_type=form" {
		t.Fatalf("url_generation = %v", urls)
	}
}
