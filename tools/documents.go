package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ggoodman/odoo-mcp-go/mcpservice"
)

// docKind describes one family of business documents with order lines:
// quotations, purchase orders and delivery orders share the search and
// detail flows below.
type docKind struct {
	name         string
	label        string
	model        string
	lineModel    string
	lineLink     string
	lineOrder    string
	linesKey     string
	dateField    string
	notesField   string
	partnerRole  string
	// globalFields are searched one by one by a global search, in addition
	// to the partner name.
	globalFields []string
	dateFields   []string
	states       map[string]stateLabel
	lineInfo     func(line map[string]any) map[string]any
	// extra adds kind-specific keys to an enriched record.
	extra        func(ctx context.Context, s *Server, rec, out map[string]any)
}

var amountFields = []string{"amount_untaxed", "amount_tax", "amount_total"}

var quotations = docKind{
	name:         "quotation",
	label:        "quotations",
	model:        "sale.order",
	lineModel:    "sale.order.line",
	lineLink:     "order_id",
	lineOrder:    "sequence",
	linesKey:     "services_products",
	dateField:    "date_order",
	notesField:   "note",
	partnerRole:  "customer",
	globalFields: []string{"name", "note", "client_order_ref", "origin", "user_id.name"},
	dateFields:   []string{"date_order", "validity_date", "create_date", "write_date"},
	states:       quotationStates,
	lineInfo:     saleLine,
}

var purchaseOrders = docKind{
	name:         "purchase_order",
	label:        "purchase_orders",
	model:        "purchase.order",
	lineModel:    "purchase.order.line",
	lineLink:     "order_id",
	lineOrder:    "sequence",
	linesKey:     "products",
	dateField:    "date_order",
	notesField:   "notes",
	partnerRole:  "supplier",
	globalFields: []string{"name", "notes", "partner_ref", "origin", "user_id.name"},
	dateFields:   []string{"date_order", "date_planned", "date_approve", "create_date", "write_date"},
	states:       purchaseStates,
	lineInfo:     purchaseLine,
}

var deliveryOrders = docKind{
	name:         "delivery_order",
	label:        "delivery_orders",
	model:        "stock.picking",
	lineModel:    "stock.move",
	lineLink:     "picking_id",
	lineOrder:    "name",
	linesKey:     "products_moved",
	dateField:    "scheduled_date",
	notesField:   "note",
	partnerRole:  "partner",
	globalFields: []string{"name", "note", "origin", "carrier_tracking_ref"},
	dateFields:   []string{"scheduled_date", "date_done", "date_deadline", "create_date", "write_date"},
	states:       deliveryStates,
	lineInfo:     moveLine,
	extra:        deliveryExtra,
}

func cond(field, op string, value any) []any {
	return []any{field, op, value}
}

func partnerNameDomain(prefix, term string) []any {
	return []any{"|", cond(prefix+"name", "ilike", term), cond(prefix+"display_name", "ilike", term)}
}

func productDomain(term string) []any {
	return []any{"|", cond("product_id.name", "ilike", term), cond("name", "ilike", term)}
}

func checkDate(name, v string) error {
	if v == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05"} {
		if _, err := time.Parse(layout, v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%s must be YYYY-MM-DD, got %q", name, v)
}

type docQuery struct {
	Partner     string
	Number      string
	State       string
	DateFrom    string
	DateTo      string
	Product     string
	Notes       string
	Origin      string
	PickingType string
	Global      string
	Limit       int
}

func (q docQuery) method() string {
	switch {
	case q.Global != "":
		return "global_search"
	case q.Product != "":
		return "product_line_search"
	}
	return "standard_search"
}

func (q docQuery) info(limit int) map[string]any {
	return map[string]any{
		"partner_name_filter": q.Partner,
		"number_filter":       q.Number,
		"state_filter":        q.State,
		"date_from":           q.DateFrom,
		"date_to":             q.DateTo,
		"product_name_filter": q.Product,
		"notes_filter":        q.Notes,
		"origin_filter":       q.Origin,
		"picking_type_filter": q.PickingType,
		"global_search":       q.Global,
		"limit":               limit,
		"search_method":       q.method(),
	}
}

func (s *Server) searchDocuments(ctx context.Context, k docKind, q docQuery) (map[string]any, error) {
	if err := checkDate("date_from", q.DateFrom); err != nil {
		return nil, err
	}
	if err := checkDate("date_to", q.DateTo); err != nil {
		return nil, err
	}
	limit := limitOr(q.Limit, 10)

	domain := []any{}
	if q.Partner != "" {
		domain = append(domain, partnerNameDomain("partner_id.", q.Partner)...)
	}
	if q.Number != "" {
		domain = append(domain, cond("name", "ilike", q.Number))
	}
	if q.State != "" {
		domain = append(domain, cond("state", "=", q.State))
	}
	if q.DateFrom != "" {
		domain = append(domain, cond(k.dateField, ">=", q.DateFrom))
	}
	if q.DateTo != "" {
		domain = append(domain, cond(k.dateField, "<=", q.DateTo))
	}
	if q.Notes != "" {
		domain = append(domain, cond(k.notesField, "ilike", q.Notes))
	}
	if q.Origin != "" {
		domain = append(domain, cond("origin", "ilike", q.Origin))
	}
	if q.PickingType != "" {
		domain = append(domain, cond("picking_type_id.name", "ilike", q.PickingType))
	}

	narrowed := q.Product != "" || q.Global != ""
	var found idSet
	if q.Global != "" {
		found.add(s.globalDocumentIDs(ctx, k, q.Global)...)
	}
	if narrowed {
		term := q.Product
		if term == "" {
			term = q.Global
		}
		found.add(s.lineDocumentIDs(ctx, k, term)...)
	}

	info := q.info(limit)
	info["timestamp"] = s.timestamp()
	if narrowed && len(found.list) == 0 {
		return map[string]any{
			k.label: []any{},
			"summary": map[string]any{
				"total_found": 0,
				"message":     fmt.Sprintf("No %s matched the product or global search", strings.ReplaceAll(k.label, "_", " ")),
			},
			"query_info": info,
		}, nil
	}
	searchLimit := limit
	if narrowed {
		domain = append(domain, cond("id", "in", idArgs(found.sorted())))
		searchLimit = min(limit*10, searchCap)
	}

	fieldList := s.standardFields(ctx, k.model)
	recs, err := s.searchRead(ctx, k.model, domain, map[string]any{
		"fields": stringArgs(fieldList),
		"limit":  searchLimit,
		"order":  k.dateField + " desc",
	})
	if err != nil {
		return nil, err
	}
	if len(recs) > limit {
		recs = recs[:limit]
	}

	enriched := make([]map[string]any, 0, len(recs))
	currencies := map[string]int{}
	states := map[string]int{}
	for _, r := range recs {
		out := s.enrichDocument(ctx, k, r, true)
		enriched = append(enriched, out)

		code, _ := out["currency_code"].(string)
		if code == "" {
			code = "Unknown"
		}
		currencies[code]++
		state := asString(r["state"])
		if state == "" {
			state = "unknown"
		}
		states[state]++
	}

	info["actual_search_limit"] = searchLimit
	info["fields_used"] = len(fieldList)
	info["odoo_version"] = s.sess.Version().Major
	return map[string]any{
		k.label: enriched,
		"summary": map[string]any{
			"total_found":        len(enriched),
			"currency_breakdown": currencies,
			"state_breakdown":    states,
			"url_base":           s.baseURL(),
		},
		"query_info": info,
	}, nil
}

// globalDocumentIDs runs one search per header field. Fields the server
// rejects are skipped.
func (s *Server) globalDocumentIDs(ctx context.Context, k docKind, term string) []int64 {
	domains := make([][]any, 0, len(k.globalFields)+1)
	for _, f := range k.globalFields {
		domains = append(domains, []any{cond(f, "ilike", term)})
	}
	domains = append(domains, partnerNameDomain("partner_id.", term))

	var found idSet
	for _, d := range domains {
		got, err := s.search(ctx, k.model, d, searchCap)
		if err != nil {
			s.log.DebugContext(ctx, "tools.global_search.skipped", slog.Any("domain", d), slog.String("err", err.Error()))
			continue
		}
		found.add(got...)
	}
	s.log.InfoContext(ctx, "tools.global_search.done", slog.String("model", k.model), slog.Int("found", len(found.list)))
	return found.list
}

// lineDocumentIDs finds the documents whose lines mention term in the product
// name or the line description.
func (s *Server) lineDocumentIDs(ctx context.Context, k docKind, term string) []int64 {
	lines, err := s.searchRead(ctx, k.lineModel, productDomain(term), map[string]any{
		"fields": stringArgs([]string{k.lineLink, "product_id", "name"}),
		"limit":  searchCap,
	})
	if err != nil {
		s.log.WarnContext(ctx, "tools.line_search.failed", slog.String("model", k.lineModel), slog.String("err", err.Error()))
		return nil
	}
	var found idSet
	for _, l := range lines {
		if id, _, ok := many2one(l[k.lineLink]); ok {
			found.add(id)
		}
	}
	return found.list
}

func (s *Server) enrichDocument(ctx context.Context, k docKind, rec map[string]any, withLines bool) map[string]any {
	out := cloneRecord(rec)
	id, _ := asInt64(rec["id"])
	out["odoo_url"] = recordURL(s.baseURL(), k.model, id)

	code := currencyCode(rec["currency_id"])
	if code != "" {
		out["currency_code"] = code
		for _, f := range amountFields {
			if v, ok := rec[f]; ok {
				out[f+"_formatted"] = formatAmount(v, code)
			}
		}
	}

	english := false
	if pid, _, ok := many2one(rec["partner_id"]); ok {
		details := s.partnerDetails(ctx, pid)
		lang, _ := details["lang"].(string)
		english = isEnglish(lang)
		out[k.partnerRole+"_details"] = details
		out[k.partnerRole+"_url"] = recordURL(s.baseURL(), "res.partner", pid)
		out["display_language"] = displayLanguage(lang)
	}
	if k.states != nil {
		out["state_translated"] = translateState(k.states, asString(rec["state"]), english)
	}
	for _, f := range k.dateFields {
		if asString(rec[f]) != "" {
			out[f+"_formatted"] = formatDatetime(rec[f])
		}
	}
	if k.extra != nil {
		k.extra(ctx, s, rec, out)
	}

	if withLines {
		lines, err := s.documentLines(ctx, k, id)
		if err != nil {
			s.log.WarnContext(ctx, "tools.lines.failed", slog.String("model", k.lineModel), slog.Int64("id", id), slog.String("err", err.Error()))
			lines = []map[string]any{}
		}
		out[k.linesKey] = lines
		out["line_count"] = len(lines)
	}
	return out
}

func (s *Server) documentLines(ctx context.Context, k docKind, id int64) ([]map[string]any, error) {
	recs, err := s.searchRead(ctx, k.lineModel, []any{cond(k.lineLink, "=", id)}, map[string]any{
		"fields": stringArgs(s.standardFields(ctx, k.lineModel)),
		"order":  k.lineOrder,
	})
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(recs))
	for i, l := range recs {
		out[i] = k.lineInfo(l)
	}
	return out, nil
}

func lineBase(l map[string]any) map[string]any {
	desc := asString(l["name"])
	info := map[string]any{
		"product_name": firstLine(desc),
		"description":  desc,
		"product_id":   nil,
		"product_ref":  "",
	}
	if pid, label, ok := many2one(l["product_id"]); ok {
		info["product_id"] = pid
		info["product_ref"] = label
		if desc == "" {
			info["product_name"] = label
		}
	}
	return info
}

func saleLine(l map[string]any) map[string]any {
	info := lineBase(l)
	info["sequence"] = asFloat(l["sequence"])
	info["quantity"] = asFloat(l["product_uom_qty"])
	info["unit_price"] = asFloat(l["price_unit"])
	info["subtotal"] = asFloat(l["price_subtotal"])
	if uom, ok := l["product_uom"]; ok {
		info["uom_name"] = many2oneLabel(uom, "")
	}
	return info
}

func purchaseLine(l map[string]any) map[string]any {
	info := lineBase(l)
	info["sequence"] = asFloat(l["sequence"])
	info["quantity"] = asFloat(l["product_qty"])
	info["qty_received"] = asFloat(l["qty_received"])
	info["qty_invoiced"] = asFloat(l["qty_invoiced"])
	info["unit_price"] = asFloat(l["price_unit"])
	info["subtotal"] = asFloat(l["price_subtotal"])
	info["planned_date"] = formatDatetime(l["date_planned"])
	return info
}

func moveLine(l map[string]any) map[string]any {
	info := lineBase(l)
	info["quantity_expected"] = asFloat(l["product_uom_qty"])
	info["quantity_done"] = asFloat(l["quantity_done"])
	info["unit_of_measure"] = many2oneLabel(l["product_uom"], "Unit")
	info["state"] = asString(l["state"])
	info["date_expected"] = formatDatetime(l["date"])
	info["date_deadline"] = formatDatetime(l["date_deadline"])
	return info
}

// deliveryExtra labels the picking type and locations and links the source
// sale or purchase order named in origin.
func deliveryExtra(ctx context.Context, s *Server, rec, out map[string]any) {
	if _, label, ok := many2one(rec["picking_type_id"]); ok {
		out["picking_type_name"] = label
	}
	if _, label, ok := many2one(rec["location_id"]); ok {
		out["source_location"] = label
	}
	if _, label, ok := many2one(rec["location_dest_id"]); ok {
		out["destination_location"] = label
	}

	origin := asString(rec["origin"])
	if origin == "" {
		return
	}
	lower := strings.ToLower(origin)
	var model, key string
	switch {
	case strings.HasPrefix(origin, "SO") || strings.Contains(lower, "sale"):
		model, key = "sale.order", "related_sale_order_url"
	case strings.HasPrefix(origin, "PO") || strings.Contains(lower, "purchase"):
		model, key = "purchase.order", "related_purchase_order_url"
	default:
		return
	}
	found, err := s.search(ctx, model, []any{cond("name", "=", origin)}, 1)
	if err != nil {
		s.log.DebugContext(ctx, "tools.origin.lookup_failed", slog.String("origin", origin), slog.String("err", err.Error()))
		return
	}
	if len(found) > 0 {
		out[key] = recordURL(s.baseURL(), model, found[0])
	}
}

func (s *Server) documentDetails(ctx context.Context, k docKind, id int64, withLines bool) (map[string]any, error) {
	rec, err := s.read(ctx, k.model, id, s.standardFields(ctx, k.model))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	out := s.enrichDocument(ctx, k, rec, withLines)
	english := out["display_language"] == "en"
	language := "chinese"
	if english {
		language = "english"
	}
	code, _ := out["currency_code"].(string)
	urls := map[string]any{
		k.name + "_url": out["odoo_url"],
		"base_odoo_url": s.baseURL(),
	}
	if u, ok := out[k.partnerRole+"_url"]; ok {
		urls[k.partnerRole+"_url"] = u
	}

	display := map[string]any{
		"language":      language,
		"currency_code": code,
	}
	display["is_english_"+k.partnerRole] = english

	return map[string]any{
		k.name:             out,
		"display_settings": display,
		"url_info":         urls,
		"query_info": map[string]any{
			k.name + "_id":  id,
			"include_lines": withLines,
			"timestamp":     s.timestamp(),
		},
	}, nil
}

type searchQuotationsArgs struct {
	PartnerName         string `json:"partner_name,omitempty" jsonschema:"description=Customer name (partial match on name or display name)"`
	QuotationNumber     string `json:"quotation_number,omitempty" jsonschema:"description=Quotation number (partial match)"`
	State               string `json:"state,omitempty" jsonschema:"description=State filter,enum=draft,enum=sent,enum=sale,enum=done,enum=cancel"`
	DateFrom            string `json:"date_from,omitempty" jsonschema:"description=Order date lower bound (YYYY-MM-DD)"`
	DateTo              string `json:"date_to,omitempty" jsonschema:"description=Order date upper bound (YYYY-MM-DD)"`
	ProductName         string `json:"product_name,omitempty" jsonschema:"description=Product or service name searched in quotation lines"`
	DescriptionContains string `json:"description_contains,omitempty" jsonschema:"description=Text searched in the quotation notes"`
	GlobalSearch        string `json:"global_search,omitempty" jsonschema:"description=Text searched in the header fields and the lines of every quotation"`
	Limit               int    `json:"limit,omitempty" jsonschema:"description=Maximum number of quotations,default=10"`
}

type searchPurchaseOrdersArgs struct {
	PartnerName   string `json:"partner_name,omitempty" jsonschema:"description=Supplier name (partial match on name or display name)"`
	PONumber      string `json:"po_number,omitempty" jsonschema:"description=Purchase order number (partial match)"`
	State         string `json:"state,omitempty" jsonschema:"description=State filter,enum=draft,enum=sent,enum=to approve,enum=purchase,enum=done,enum=cancel"`
	DateFrom      string `json:"date_from,omitempty" jsonschema:"description=Order date lower bound (YYYY-MM-DD)"`
	DateTo        string `json:"date_to,omitempty" jsonschema:"description=Order date upper bound (YYYY-MM-DD)"`
	ProductName   string `json:"product_name,omitempty" jsonschema:"description=Product name searched in purchase order lines"`
	NotesContains string `json:"notes_contains,omitempty" jsonschema:"description=Text searched in the purchase order notes"`
	GlobalSearch  string `json:"global_search,omitempty" jsonschema:"description=Text searched in the header fields and the lines of every purchase order"`
	Limit         int    `json:"limit,omitempty" jsonschema:"description=Maximum number of purchase orders,default=10"`
}

type searchDeliveryOrdersArgs struct {
	PartnerName    string `json:"partner_name,omitempty" jsonschema:"description=Partner name (partial match on name or display name)"`
	DeliveryNumber string `json:"delivery_number,omitempty" jsonschema:"description=Delivery order number (partial match)"`
	State          string `json:"state,omitempty" jsonschema:"description=State filter,enum=draft,enum=waiting,enum=confirmed,enum=assigned,enum=done,enum=cancel"`
	PickingType    string `json:"picking_type,omitempty" jsonschema:"description=Operation type name such as Delivery Orders or Receipts"`
	DateFrom       string `json:"date_from,omitempty" jsonschema:"description=Scheduled date lower bound (YYYY-MM-DD)"`
	DateTo         string `json:"date_to,omitempty" jsonschema:"description=Scheduled date upper bound (YYYY-MM-DD)"`
	ProductName    string `json:"product_name,omitempty" jsonschema:"description=Product name searched in stock moves"`
	OriginFilter   string `json:"origin_filter,omitempty" jsonschema:"description=Source document such as SO001 or PO001"`
	GlobalSearch   string `json:"global_search,omitempty" jsonschema:"description=Text searched in the header fields and the moves of every delivery order"`
	Limit          int    `json:"limit,omitempty" jsonschema:"description=Maximum number of delivery orders,default=10"`
}

type quotationDetailsArgs struct {
	QuotationID  int64 `json:"quotation_id" jsonschema:"description=Quotation (sale.order) id"`
	IncludeLines *bool `json:"include_lines,omitempty" jsonschema:"description=Include quotation lines,default=true"`
}

type purchaseOrderDetailsArgs struct {
	POID         int64 `json:"po_id" jsonschema:"description=Purchase order id"`
	IncludeLines *bool `json:"include_lines,omitempty" jsonschema:"description=Include purchase order lines,default=true"`
}

type deliveryOrderDetailsArgs struct {
	DeliveryID   int64 `json:"delivery_id" jsonschema:"description=Delivery order (stock.picking) id"`
	IncludeMoves *bool `json:"include_moves,omitempty" jsonschema:"description=Include stock moves,default=true"`
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func (s *Server) runSearch(ctx context.Context, w mcpservice.ToolResponseWriter, k docKind, q docQuery) error {
	res, err := s.searchDocuments(ctx, k, q)
	if err != nil {
		return s.fail(ctx, w, err)
	}
	return w.WriteJSON(res)
}

func (s *Server) runDetails(ctx context.Context, w mcpservice.ToolResponseWriter, k docKind, id int64, withLines bool) error {
	res, err := s.documentDetails(ctx, k, id, withLines)
	if err != nil {
		return s.fail(ctx, w, err)
	}
	if res == nil {
		return s.failMsg(w, fmt.Sprintf("%s %d not found", strings.ReplaceAll(k.name, "_", " "), id), nil)
	}
	return w.WriteJSON(res)
}

func (s *Server) documentTools() []mcpservice.StaticTool {
	return []mcpservice.StaticTool{
		mcpservice.NewTool[searchQuotationsArgs]("search_quotations",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[searchQuotationsArgs]) error {
				a := r.Args()
				return s.runSearch(ctx, w, quotations, docQuery{
					Partner: a.PartnerName, Number: a.QuotationNumber, State: a.State,
					DateFrom: a.DateFrom, DateTo: a.DateTo, Product: a.ProductName,
					Notes: a.DescriptionContains, Global: a.GlobalSearch, Limit: a.Limit,
				})
			},
			mcpservice.WithToolDescription("Search quotations and sales orders with customer language/currency details, line items and direct Odoo URLs."),
			mcpservice.WithToolReadOnly(),
		),
		mcpservice.NewTool[quotationDetailsArgs]("get_quotation_details",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[quotationDetailsArgs]) error {
				a := r.Args()
				return s.runDetails(ctx, w, quotations, a.QuotationID, boolOr(a.IncludeLines, true))
			},
			mcpservice.WithToolDescription("Get one quotation with its lines, customer settings and direct Odoo URLs."),
			mcpservice.WithToolReadOnly(),
		),
		mcpservice.NewTool[searchPurchaseOrdersArgs]("search_purchase_orders",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[searchPurchaseOrdersArgs]) error {
				a := r.Args()
				return s.runSearch(ctx, w, purchaseOrders, docQuery{
					Partner: a.PartnerName, Number: a.PONumber, State: a.State,
					DateFrom: a.DateFrom, DateTo: a.DateTo, Product: a.ProductName,
					Notes: a.NotesContains, Global: a.GlobalSearch, Limit: a.Limit,
				})
			},
			mcpservice.WithToolDescription("Search purchase orders and RFQs with supplier details, translated states, line items and direct Odoo URLs."),
			mcpservice.WithToolReadOnly(),
		),
		mcpservice.NewTool[purchaseOrderDetailsArgs]("get_purchase_order_details",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[purchaseOrderDetailsArgs]) error {
				a := r.Args()
				return s.runDetails(ctx, w, purchaseOrders, a.POID, boolOr(a.IncludeLines, true))
			},
			mcpservice.WithToolDescription("Get one purchase order with its lines, supplier settings and direct Odoo URLs."),
			mcpservice.WithToolReadOnly(),
		),
		mcpservice.NewTool[searchDeliveryOrdersArgs]("search_delivery_orders",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[searchDeliveryOrdersArgs]) error {
				a := r.Args()
				return s.runSearch(ctx, w, deliveryOrders, docQuery{
					Partner: a.PartnerName, Number: a.DeliveryNumber, State: a.State,
					PickingType: a.PickingType, DateFrom: a.DateFrom, DateTo: a.DateTo,
					Product: a.ProductName, Origin: a.OriginFilter, Global: a.GlobalSearch, Limit: a.Limit,
				})
			},
			mcpservice.WithToolDescription("Search delivery orders and receipts (stock pickings) with locations, moves, related orders and direct Odoo URLs."),
			mcpservice.WithToolReadOnly(),
		),
		mcpservice.NewTool[deliveryOrderDetailsArgs]("get_delivery_order_details",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[deliveryOrderDetailsArgs]) error {
				a := r.Args()
				return s.runDetails(ctx, w, deliveryOrders, a.DeliveryID, boolOr(a.IncludeMoves, true))
			},
			mcpservice.WithToolDescription("Get one delivery order with its stock moves, partner settings and direct Odoo URLs."),
			mcpservice.WithToolReadOnly(),
		),
	}
}
