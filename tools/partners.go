package tools

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ggoodman/odoo-mcp-go/mcpservice"
)

type searchPartnersArgs struct {
	Name       string `json:"name,omitempty" jsonschema:"description=Contact name (partial match on name or display name)"`
	IsCustomer *bool  `json:"is_customer,omitempty" jsonschema:"description=When true only customers are returned"`
	IsSupplier *bool  `json:"is_supplier,omitempty" jsonschema:"description=When true only suppliers are returned"`
	Email      string `json:"email,omitempty" jsonschema:"description=Email (partial match)"`
	Phone      string `json:"phone,omitempty" jsonschema:"description=Phone or mobile number (partial match)"`
	Limit      *int   `json:"limit,omitempty" jsonschema:"description=Maximum number of contacts; 0 returns all,default=100"`
}

type allPartnersArgs struct {
	Limit              int   `json:"limit,omitempty" jsonschema:"description=Maximum number of contacts; 0 returns all,default=0"`
	IncludeCompanies   *bool `json:"include_companies,omitempty" jsonschema:"description=Include company records,default=true"`
	IncludeIndividuals *bool `json:"include_individuals,omitempty" jsonschema:"description=Include individual contacts,default=true"`
}

type partnerArgs struct {
	PartnerID int64 `json:"partner_id" jsonschema:"description=Partner (res.partner) id"`
}

func (s *Server) searchPartners(ctx context.Context, a searchPartnersArgs) (map[string]any, error) {
	limit := 100
	if a.Limit != nil {
		limit = *a.Limit
	}

	domain := []any{}
	if a.Name != "" {
		domain = append(domain, partnerNameDomain("", a.Name)...)
	}
	if a.Email != "" {
		domain = append(domain, cond("email", "ilike", a.Email))
	}
	if a.Phone != "" {
		domain = append(domain, "|", cond("phone", "ilike", a.Phone), cond("mobile", "ilike", a.Phone))
	}
	// A false flag does not exclude customers or suppliers.
	if a.IsCustomer != nil && *a.IsCustomer {
		domain = append(domain, cond("customer_rank", ">", 0))
	}
	if a.IsSupplier != nil && *a.IsSupplier {
		domain = append(domain, cond("supplier_rank", ">", 0))
	}

	options := map[string]any{"fields": stringArgs(s.standardFields(ctx, "res.partner"))}
	if limit > 0 {
		options["limit"] = limit
	}
	recs, err := s.searchRead(ctx, "res.partner", domain, options)
	if err != nil {
		return nil, err
	}

	partners := make([]map[string]any, 0, len(recs))
	var customers, suppliers, companies int
	for _, r := range recs {
		p := cloneRecord(r)
		id, _ := asInt64(r["id"])
		p["odoo_url"] = recordURL(s.baseURL(), "res.partner", id)
		p["formatted_address"] = formatAddress(r)
		p["is_english_customer"] = isEnglish(partnerLang(r))
		partners = append(partners, p)

		if asFloat(r["customer_rank"]) > 0 {
			customers++
		}
		if asFloat(r["supplier_rank"]) > 0 {
			suppliers++
		}
		if asBool(r["is_company"]) {
			companies++
		}
	}

	searchType := "filtered_partners"
	if a.IsCustomer == nil && a.IsSupplier == nil {
		searchType = "all_partners"
	}
	return map[string]any{
		"partners": partners,
		"summary": map[string]any{
			"total_found": len(partners),
			"customers":   customers,
			"suppliers":   suppliers,
			"companies":   companies,
			"individuals": len(partners) - companies,
			"url_base":    s.baseURL(),
		},
		"query_info": map[string]any{
			"name_filter":  a.Name,
			"is_customer":  a.IsCustomer,
			"is_supplier":  a.IsSupplier,
			"email_filter": a.Email,
			"phone_filter": a.Phone,
			"limit":        limit,
			"search_type":  searchType,
			"timestamp":    s.timestamp(),
		},
	}, nil
}

func formatAddress(r map[string]any) string {
	var parts []string
	for _, f := range []string{"street", "city"} {
		if v := asString(r[f]); v != "" {
			parts = append(parts, v)
		}
	}
	if _, country, ok := many2one(r["country_id"]); ok {
		parts = append(parts, country)
	}
	if len(parts) == 0 {
		return "No address"
	}
	return strings.Join(parts, ", ")
}

func (s *Server) allPartners(ctx context.Context, a allPartnersArgs) (map[string]any, error) {
	companies := boolOr(a.IncludeCompanies, true)
	individuals := boolOr(a.IncludeIndividuals, true)

	domain := []any{}
	switch {
	case companies && !individuals:
		domain = append(domain, cond("is_company", "=", true))
	case individuals && !companies:
		domain = append(domain, cond("is_company", "=", false))
	}

	options := map[string]any{"fields": stringArgs(s.standardFields(ctx, "res.partner"))}
	if a.Limit > 0 {
		options["limit"] = a.Limit
	}
	recs, err := s.searchRead(ctx, "res.partner", domain, options)
	if err != nil {
		return nil, err
	}

	partners := make([]map[string]any, 0, len(recs))
	var nCompanies, nCustomers, nSuppliers, withEmail, withPhone, english int
	for _, r := range recs {
		p := cloneRecord(r)
		id, _ := asInt64(r["id"])
		p["odoo_url"] = recordURL(s.baseURL(), "res.partner", id)
		p["formatted_address"] = formatAddress(r)
		p["is_customer"] = asFloat(r["customer_rank"]) > 0
		p["is_supplier"] = asFloat(r["supplier_rank"]) > 0
		p["is_english_customer"] = isEnglish(partnerLang(r))
		p["contact_type"] = "Individual"
		if asBool(r["is_company"]) {
			p["contact_type"] = "Company"
			nCompanies++
		}
		partners = append(partners, p)

		if p["is_customer"] == true {
			nCustomers++
		}
		if p["is_supplier"] == true {
			nSuppliers++
		}
		if asString(r["email"]) != "" {
			withEmail++
		}
		if asString(r["phone"]) != "" || asString(r["mobile"]) != "" {
			withPhone++
		}
		if p["is_english_customer"] == true {
			english++
		}
	}

	return map[string]any{
		"partners": partners,
		"statistics": map[string]any{
			"total_records":     len(partners),
			"companies":         nCompanies,
			"individuals":       len(partners) - nCompanies,
			"customers":         nCustomers,
			"suppliers":         nSuppliers,
			"with_email":        withEmail,
			"with_phone":        withPhone,
			"english_customers": english,
			"chinese_customers": len(partners) - english,
			"url_base":          s.baseURL(),
		},
		"query_info": map[string]any{
			"limit":               a.Limit,
			"include_companies":   companies,
			"include_individuals": individuals,
			"total_available":     len(partners),
			"timestamp":           s.timestamp(),
		},
	}, nil
}

// languageSampleSize caps the records read for the language distribution.
const languageSampleSize = 1000

func (s *Server) partnerStatistics(ctx context.Context) (map[string]any, error) {
	counts := []struct {
		key    string
		domain []any
	}{
		{"total_partners", []any{}},
		{"customers", []any{cond("customer_rank", ">", 0)}},
		{"suppliers", []any{cond("supplier_rank", ">", 0)}},
		{"companies", []any{cond("is_company", "=", true)}},
		{"individuals", []any{cond("is_company", "=", false)}},
		{"with_email", []any{cond("email", "!=", false)}},
		{"with_phone", []any{"|", cond("phone", "!=", false), cond("mobile", "!=", false)}},
	}
	overview := make(map[string]any, len(counts))
	n := make(map[string]float64, len(counts))
	for _, c := range counts {
		res, err := s.gw.Call(ctx, "res.partner", "search_count", []any{c.domain}, nil)
		if err != nil {
			return nil, err
		}
		n[c.key] = asFloat(res)
		overview[c.key] = res
	}

	sample, err := s.searchRead(ctx, "res.partner", []any{cond("lang", "!=", false)}, map[string]any{
		"fields": stringArgs([]string{"lang"}),
		"limit":  languageSampleSize,
	})
	if err != nil {
		return nil, err
	}
	languages := make(map[string]int)
	for _, r := range sample {
		languages[stringOr(r["lang"], "Not Set")]++
	}

	share := func(key string) float64 {
		if n["total_partners"] <= 0 {
			return 0
		}
		return math.Round(n[key]/n["total_partners"]*10000) / 100
	}
	return map[string]any{
		"overview": overview,
		"percentages": map[string]any{
			"customer_percentage": share("customers"),
			"supplier_percentage": share("suppliers"),
			"company_percentage":  share("companies"),
			"email_coverage":      share("with_email"),
			"phone_coverage":      share("with_phone"),
		},
		"language_distribution": languages,
		"query_info": map[string]any{
			"language_sample_size": len(sample),
			"timestamp":            s.timestamp(),
		},
	}, nil
}

func (s *Server) partnerLanguageCurrency(ctx context.Context, id int64) (map[string]any, error) {
	want := s.fields.FilterAvailable(ctx, "res.partner", []string{
		"name", "lang", "country_id", "tz", "vat", "is_company",
		"property_product_pricelist", "property_payment_term_id",
		"customer_rank", "supplier_rank",
	}).Accepted
	p, err := s.read(ctx, "res.partner", id, want)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	lang := partnerLang(p)
	url := recordURL(s.baseURL(), "res.partner", id)
	kind := "Individual"
	if asBool(p["is_company"]) {
		kind = "Company"
	}
	info := map[string]any{
		"id":                  id,
		"name":                asString(p["name"]),
		"type":                kind,
		"language":            lang,
		"language_name":       languageName(lang),
		"is_english_customer": isEnglish(lang),
		"country":             many2oneLabel(p["country_id"], "Not Set"),
		"timezone":            stringOr(p["tz"], "Not Set"),
		"vat_number":          stringOr(p["vat"], "None"),
		"odoo_url":            url,
	}
	currency := map[string]any{
		"pricelist":     many2oneLabel(p["property_product_pricelist"], "Default"),
		"payment_terms": many2oneLabel(p["property_payment_term_id"], "Not Set"),
	}
	if details := s.partnerDetails(ctx, id); details["pricelist_currency"] != nil {
		currency["currency"] = details["pricelist_currency"]
		currency["currency_code"] = currencyCode(details["pricelist_currency"])
	}

	return map[string]any{
		"partner_info":      info,
		"currency_settings": currency,
		"classification": map[string]any{
			"is_customer":   asFloat(p["customer_rank"]) > 0,
			"is_supplier":   asFloat(p["supplier_rank"]) > 0,
			"customer_rank": asFloat(p["customer_rank"]),
			"supplier_rank": asFloat(p["supplier_rank"]),
		},
		"url_info": map[string]any{
			"partner_url":   url,
			"base_odoo_url": s.baseURL(),
		},
		"query_info": map[string]any{
			"partner_id": id,
			"timestamp":  s.timestamp(),
		},
	}, nil
}

func (s *Server) partnerTools() []mcpservice.StaticTool {
	return []mcpservice.StaticTool{
		mcpservice.NewTool[searchPartnersArgs]("search_partners",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[searchPartnersArgs]) error {
				res, err := s.searchPartners(ctx, r.Args())
				if err != nil {
					return s.fail(ctx, w, err)
				}
				return w.WriteJSON(res)
			},
			mcpservice.WithToolDescription("Search contacts, customers and suppliers with addresses, language settings and direct Odoo URLs."),
			mcpservice.WithToolReadOnly(),
		),
		mcpservice.NewTool[allPartnersArgs]("get_all_partners",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[allPartnersArgs]) error {
				res, err := s.allPartners(ctx, r.Args())
				if err != nil {
					return s.fail(ctx, w, err)
				}
				return w.WriteJSON(res)
			},
			mcpservice.WithToolDescription("List all contacts with addresses, classification and direct Odoo URLs, optionally restricted to companies or individuals."),
			mcpservice.WithToolReadOnly(),
		),
		mcpservice.NewTool[struct{}]("get_partner_statistics",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[struct{}]) error {
				res, err := s.partnerStatistics(ctx)
				if err != nil {
					return s.fail(ctx, w, err)
				}
				return w.WriteJSON(res)
			},
			mcpservice.WithToolDescription("Count customers, suppliers, companies and contacts with email or phone, plus a sample of the language distribution."),
			mcpservice.WithToolReadOnly(),
		),
		mcpservice.NewTool[partnerArgs]("get_partner_language_currency",
			func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[partnerArgs]) error {
				id := r.Args().PartnerID
				res, err := s.partnerLanguageCurrency(ctx, id)
				if err != nil {
					return s.fail(ctx, w, err)
				}
				if res == nil {
					return s.failMsg(w, fmt.Sprintf("Partner %d not found", id), nil)
				}
				return w.WriteJSON(res)
			},
			mcpservice.WithToolDescription("Get the language, country, timezone, pricelist and currency settings of one partner."),
			mcpservice.WithToolReadOnly(),
		),
	}
}
