package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ggoodman/odoo-mcp-go/fields"
	"github.com/ggoodman/odoo-mcp-go/gateway"
	"github.com/ggoodman/odoo-mcp-go/mcpservice"
)

var quantFields = []string{"location_id", "quantity", "reserved_quantity", "available_quantity"}

type searchProductsArgs struct {
	Name         string   `json:"name,omitempty" jsonschema:"description=Product name (partial match)"`
	CategoryName string   `json:"category_name,omitempty" jsonschema:"description=Product category name (partial match)"`
	ProductType  string   `json:"product_type,omitempty" jsonschema:"description=Product type,enum=consu,enum=service,enum=product"`
	DefaultCode  string   `json:"default_code,omitempty" jsonschema:"description=Internal reference (partial match)"`
	Barcode      string   `json:"barcode,omitempty" jsonschema:"description=Exact barcode"`
	ActiveOnly   *bool    `json:"active_only,omitempty" jsonschema:"description=Only active products,default=true"`
	SaleOK       *bool    `json:"sale_ok,omitempty" jsonschema:"description=Filter on can be sold"`
	PurchaseOK   *bool    `json:"purchase_ok,omitempty" jsonschema:"description=Filter on can be purchased"`
	MinPrice     *float64 `json:"min_price,omitempty" jsonschema:"description=Minimum sale price"`
	MaxPrice     *float64 `json:"max_price,omitempty" jsonschema:"description=Maximum sale price"`
	Limit        int      `json:"limit,omitempty" jsonschema:"description=Maximum number of products,default=50"`
	SkipCache    bool     `json:"skip_cache,omitempty" jsonschema:"description=Bypass the result cache"`
}

type productDetailsArgs struct {
	ProductID              int64 `json:"product_id" jsonschema:"description=Product (product.product) id"`
	IncludeStockByLocation bool  `json:"include_stock_by_location,omitempty" jsonschema:"description=Include on-hand quantities per internal location"`
}

type productStockArgs struct {
	ProductID   *int64 `json:"product_id,omitempty" jsonschema:"description=Product id"`
	ProductName string `json:"product_name,omitempty" jsonschema:"description=Product name used when product_id is not given"`
	WarehouseID int64  `json:"warehouse_id,omitempty" jsonschema:"description=Restrict to the stock location of this warehouse"`
	LocationID  int64  `json:"location_id,omitempty" jsonschema:"description=Restrict to one location"`
}

func (s *Server) searchProducts(ctx context.Context, a searchProductsArgs) (map[string]any, error) {
	limit := limitOr(a.Limit, 50)
	domain := []any{}
	if a.Name != "" {
		domain = append(domain, cond("name", "ilike", a.Name))
	}
	if a.CategoryName != "" {
		domain = append(domain, cond("categ_id.name", "ilike", a.CategoryName))
	}
	if a.ProductType != "" {
		domain = append(domain, cond("type", "=", a.ProductType))
	}
	if a.DefaultCode != "" {
		domain = append(domain, cond("default_code", "ilike", a.DefaultCode))
	}
	if a.Barcode != "" {
		domain = append(domain, cond("barcode", "=", a.Barcode))
	}
	activeOnly := boolOr(a.ActiveOnly, true)
	if activeOnly {
		domain = append(domain, cond("active", "=", true))
	}
	if a.SaleOK != nil {
		domain = append(domain, cond("sale_ok", "=", *a.SaleOK))
	}
	if a.PurchaseOK != nil {
		domain = append(domain, cond("purchase_ok", "=", *a.PurchaseOK))
	}
	if a.MinPrice != nil {
		domain = append(domain, cond("list_price", ">=", *a.MinPrice))
	}
	if a.MaxPrice != nil {
		domain = append(domain, cond("list_price", "<=", *a.MaxPrice))
	}

	// Name searches read more rows and bypass the cache so that recently
	// created products show up.
	searchLimit := limit
	fresh := a.SkipCache || a.Name != ""
	var opts []gateway.CallOption
	if a.Name != "" {
		searchLimit = limit * 5
	}
	if fresh {
		opts = append(opts, gateway.WithoutCache())
	}

	recs, err := s.searchRead(ctx, "product.product", domain, map[string]any{
		"fields": stringArgs(s.standardFields(ctx, "product.product")),
		"limit":  searchLimit,
		"order":  "name",
	}, opts...)
	if err != nil {
		return nil, err
	}
	total := len(recs)
	if len(recs) > limit {
		recs = recs[:limit]
	}

	products := make([]map[string]any, 0, len(recs))
	categories := map[string]int{}
	types := map[string]int{}
	for _, r := range recs {
		p := s.enrichProduct(r)
		p["stock_info"] = map[string]any{
			"qty_on_hand":    asFloat(r["qty_available"]),
			"qty_forecasted": asFloat(r["virtual_available"]),
			"uom":            many2oneLabel(r["uom_id"], "Unit"),
		}
		products = append(products, p)

		cat, _ := p["category_name"].(string)
		if cat == "" {
			cat = "Uncategorized"
		}
		categories[cat]++
		t := asString(r["type"])
		if t == "" {
			t = "unknown"
		}
		types[t]++
	}

	return map[string]any{
		"products": products,
		"summary": map[string]any{
			"total_found":        total,
			"displayed_count":    len(products),
			"category_breakdown": categories,
			"type_breakdown":     types,
			"search_criteria": map[string]any{
				"name":        a.Name,
				"category":    a.CategoryName,
				"type":        a.ProductType,
				"active_only": activeOnly,
			},
			"more_available": total > len(products),
		},
		"query_info": map[string]any{
			"limit":               limit,
			"actual_search_limit": searchLimit,
			"skip_cache":          fresh,
			"timestamp":           s.timestamp(),
		},
	}, nil
}

// enrichProduct adds the labels shared by product search and details.
// display_name is replaced by name because variant display names carry
// attribute and copy suffixes.
func (s *Server) enrichProduct(r map[string]any) map[string]any {
	p := cloneRecord(r)
	id, _ := asInt64(r["id"])
	p["odoo_url"] = recordURL(s.baseURL(), "product.product", id)
	if name, ok := r["name"].(string); ok {
		if dn, ok := r["display_name"].(string); ok {
			p["original_display_name"] = dn
		}
		p["display_name"] = name
		p["clean_name"] = name
	}
	if cid, label, ok := many2one(r["categ_id"]); ok {
		p["category_name"] = label
		p["category_id_raw"] = cid
	}
	if _, label, ok := many2one(r["uom_id"]); ok {
		p["unit_of_measure"] = label
	}
	t := stringOr(r["type"], "consu")
	if label, ok := productTypes[t]; ok {
		p["type_display"] = label
	} else {
		p["type_display"] = t
	}
	return p
}

func (s *Server) productDetails(ctx context.Context, id int64, byLocation bool) (map[string]any, error) {
	want := s.standardFields(ctx, "product.product")
	want = append(want, s.fields.FilterAvailable(ctx, "product.product",
		[]string{"incoming_qty", "outgoing_qty", "product_variant_count", "seller_ids"}).Accepted...)
	r, err := s.read(ctx, "product.product", id, want)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}

	p := s.enrichProduct(r)
	if _, label, ok := many2one(r["uom_po_id"]); ok {
		p["purchase_unit_of_measure"] = label
	}
	if tid, _, ok := many2one(r["product_tmpl_id"]); ok {
		tmpl, err := s.read(ctx, "product.template", tid, s.fields.ResolveTier(ctx, "product.template", fields.Standard))
		switch {
		case err != nil:
			s.log.WarnContext(ctx, "tools.template.read_failed", slog.Int64("template_id", tid), slog.String("err", err.Error()))
		case tmpl != nil:
			p["template_info"] = tmpl
		}
	}

	stock := map[string]any{
		"qty_on_hand":    asFloat(r["qty_available"]),
		"qty_forecasted": asFloat(r["virtual_available"]),
		"incoming_qty":   asFloat(r["incoming_qty"]),
		"outgoing_qty":   asFloat(r["outgoing_qty"]),
		"uom":            many2oneLabel(r["uom_id"], "Unit"),
	}
	if byLocation && asString(r["type"]) == "product" {
		quants, err := s.quants(ctx, []any{cond("product_id", "=", id), cond("location_id.usage", "=", "internal")}, 100)
		if err != nil {
			s.log.WarnContext(ctx, "tools.quants.read_failed", slog.Int64("product_id", id), slog.String("err", err.Error()))
		} else {
			locs := make([]map[string]any, 0, len(quants))
			for _, q := range quants {
				if asFloat(q["quantity"]) <= 0 {
					continue
				}
				lid, label, ok := many2one(q["location_id"])
				loc := map[string]any{
					"location":    "Unknown",
					"location_id": nil,
					"quantity":    asFloat(q["quantity"]),
					"reserved":    asFloat(q["reserved_quantity"]),
					"available":   asFloat(q["available_quantity"]),
				}
				if ok {
					loc["location"] = label
					loc["location_id"] = lid
				}
				locs = append(locs, loc)
			}
			stock["by_location"] = locs
		}
	}
	p["stock_info"] = stock
	p["pricing_info"] = map[string]any{
		"sale_price": asFloat(r["list_price"]),
		"cost":       asFloat(r["standard_price"]),
	}
	if sellers, ok := r["seller_ids"].([]any); ok && len(sellers) > 0 {
		if vendors := s.vendors(ctx, id); vendors != nil {
			p["vendor_info"] = vendors
		}
	}

	return map[string]any{
		"product": p,
		"query_info": map[string]any{
			"product_id":                id,
			"include_stock_by_location": byLocation,
			"timestamp":                 s.timestamp(),
		},
	}, nil
}

// vendors lists up to five supplier prices. The supplier field is partner_id
// on current servers and name on older ones.
func (s *Server) vendors(ctx context.Context, productID int64) []map[string]any {
	f := s.fields.FilterAvailable(ctx, "product.supplierinfo",
		[]string{"partner_id", "name", "price", "min_qty", "delay", "product_code"})
	recs, err := s.searchRead(ctx, "product.supplierinfo", []any{cond("product_id", "=", productID)}, map[string]any{
		"fields": stringArgs(f.Accepted),
		"limit":  5,
	})
	if err != nil {
		s.log.DebugContext(ctx, "tools.vendors.read_failed", slog.Int64("product_id", productID), slog.String("err", err.Error()))
		return nil
	}
	out := make([]map[string]any, 0, len(recs))
	for _, v := range recs {
		supplier := v["partner_id"]
		if _, _, ok := many2one(supplier); !ok {
			supplier = v["name"]
		}
		vendor := map[string]any{
			"supplier":              "Unknown",
			"supplier_id":           nil,
			"price":                 asFloat(v["price"]),
			"min_qty":               asFloat(v["min_qty"]),
			"lead_time_days":        asFloat(v["delay"]),
			"supplier_product_code": asString(v["product_code"]),
		}
		if sid, label, ok := many2one(supplier); ok {
			vendor["supplier"] = label
			vendor["supplier_id"] = sid
		}
		out = append(out, vendor)
	}
	return out
}

func (s *Server) quants(ctx context.Context, domain []any, limit int) ([]map[string]any, error) {
	f := s.fields.FilterAvailable(ctx, "stock.quant", quantFields)
	return s.searchRead(ctx, "stock.quant", domain, map[string]any{
		"fields": stringArgs(f.Accepted),
		"limit":  limit,
	})
}

type stockLookupError struct {
	msg   string
	extra map[string]any
}

func (e *stockLookupError) Error() string { return e.msg }

func (s *Server) productStock(ctx context.Context, a productStockArgs) (map[string]any, error) {
	var product map[string]any
	switch {
	case a.ProductID != nil:
		r, err := s.read(ctx, "product.product", *a.ProductID, []string{"name", "display_name", "type", "uom_id"})
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, &stockLookupError{msg: fmt.Sprintf("Product with ID %d not found", *a.ProductID)}
		}
		product = r
	case a.ProductName != "":
		matches, err := s.searchRead(ctx, "product.product", []any{cond("name", "ilike", a.ProductName)}, map[string]any{
			"fields": stringArgs([]string{"id", "name", "display_name", "type", "uom_id"}),
			"limit":  10,
		})
		if err != nil {
			return nil, err
		}
		switch len(matches) {
		case 0:
			return nil, &stockLookupError{msg: fmt.Sprintf("No products found matching '%s'", a.ProductName)}
		case 1:
			product = matches[0]
		default:
			list := make([]map[string]any, len(matches))
			for i, m := range matches {
				list[i] = map[string]any{"id": m["id"], "name": stringOr(m["display_name"], asString(m["name"]))}
			}
			return nil, &stockLookupError{msg: "Multiple products found", extra: map[string]any{
				"products": list,
				"message":  "Please specify product_id for exact match",
			}}
		}
	default:
		return nil, &stockLookupError{msg: "product_id or product_name is required"}
	}

	id, _ := asInt64(product["id"])
	name := stringOr(product["display_name"], stringOr(product["name"], "Unknown"))
	if t := asString(product["type"]); t != "" && t != "product" {
		return map[string]any{
			"product": map[string]any{
				"id":   id,
				"name": name,
				"type": t,
			},
			"message":    "This product is not stockable (type: " + t + ")",
			"stock_info": map[string]any{"is_stockable": false},
		}, nil
	}

	domain := []any{cond("product_id", "=", id)}
	switch {
	case a.WarehouseID != 0:
		wh, err := s.read(ctx, "stock.warehouse", a.WarehouseID, []string{"lot_stock_id"})
		if err != nil {
			return nil, err
		}
		if lid, _, ok := many2one(wh["lot_stock_id"]); ok {
			domain = append(domain, cond("location_id", "child_of", lid))
		}
	case a.LocationID != 0:
		domain = append(domain, cond("location_id", "=", a.LocationID))
	default:
		domain = append(domain, cond("location_id.usage", "=", "internal"))
	}

	quants, err := s.quants(ctx, domain, searchCap)
	if err != nil {
		return nil, err
	}

	var order []int64
	byLoc := map[int64]map[string]any{}
	var total, reserved, available float64
	for _, q := range quants {
		lid, label, ok := many2one(q["location_id"])
		if !ok {
			label = "Unknown"
		}
		loc, seen := byLoc[lid]
		if !seen {
			loc = map[string]any{"location_id": lid, "location_name": label, "quantity": 0.0, "reserved": 0.0, "available": 0.0}
			byLoc[lid] = loc
			order = append(order, lid)
		}
		qty, res, avail := asFloat(q["quantity"]), asFloat(q["reserved_quantity"]), asFloat(q["available_quantity"])
		loc["quantity"] = loc["quantity"].(float64) + qty
		loc["reserved"] = loc["reserved"].(float64) + res
		loc["available"] = loc["available"].(float64) + avail
		total += qty
		reserved += res
		available += avail
	}
	locations := make([]map[string]any, len(order))
	for i, lid := range order {
		locations[i] = byLoc[lid]
	}

	summary := map[string]any{
		"total_on_hand":   total,
		"total_reserved":  reserved,
		"total_available": available,
	}
	sys, err := s.read(ctx, "product.product", id,
		s.fields.FilterAvailable(ctx, "product.product", []string{"qty_available", "virtual_available", "incoming_qty", "outgoing_qty"}).Accepted)
	if err != nil {
		s.log.WarnContext(ctx, "tools.stock.system_read_failed", slog.Int64("product_id", id), slog.String("err", err.Error()))
	}
	summary["system_on_hand"] = asFloat(sys["qty_available"])
	summary["system_forecasted"] = asFloat(sys["virtual_available"])
	summary["incoming"] = asFloat(sys["incoming_qty"])
	summary["outgoing"] = asFloat(sys["outgoing_qty"])

	return map[string]any{
		"product": map[string]any{
			"id":       id,
			"name":     name,
			"uom":      many2oneLabel(product["uom_id"], "Unit"),
			"odoo_url": recordURL(s.baseURL(), "product.product", id),
		},
		"stock_summary":     summary,
		"stock_by_location": locations,
		"query_info": map[string]any{
			"product_id":       id,
			"warehouse_filter": a.WarehouseID,
			"location_filter":  a.LocationID,
			"timestamp":        s.timestamp(),
		},
	}, nil
}

func (s *Server) productTools() []mcpservice.StaticTool {
	return []mcpservice.StaticTool{
		mcpservice.NewTool[searchProductsArgs]("search_products",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[searchProductsArgs]) error {
				res, err := s.searchProducts(ctx, r.Args())
				if err != nil {
					return s.fail(ctx, w, err)
				}
				return w.WriteJSON(res)
			},
			mcpservice.WithToolDescription("Search products by name, category, type, reference, barcode, flags and price range, with stock levels and direct Odoo URLs."),
			mcpservice.WithToolReadOnly(),
		),
		mcpservice.NewTool[productDetailsArgs]("get_product_details",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[productDetailsArgs]) error {
				a := r.Args()
				res, err := s.productDetails(ctx, a.ProductID, a.IncludeStockByLocation)
				if err != nil {
					return s.fail(ctx, w, err)
				}
				if res == nil {
					return s.failMsg(w, fmt.Sprintf("Product with ID %d not found", a.ProductID), nil)
				}
				return w.WriteJSON(res)
			},
			mcpservice.WithToolDescription("Get one product with template, pricing, vendor and stock information."),
			mcpservice.WithToolReadOnly(),
		),
		mcpservice.NewTool[productStockArgs]("get_product_stock",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[productStockArgs]) error {
				res, err := s.productStock(ctx, r.Args())
				var lerr *stockLookupError
				if errors.As(err, &lerr) {
					return s.failMsg(w, lerr.msg, lerr.extra)
				}
				if err != nil {
					return s.fail(ctx, w, err)
				}
				return w.WriteJSON(res)
			},
			mcpservice.WithToolDescription("Get on-hand, reserved and available stock for a product, per location, optionally restricted to a warehouse or location."),
			mcpservice.WithToolReadOnly(),
		),
	}
}
