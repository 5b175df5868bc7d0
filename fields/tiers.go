package fields

// Tier names a richness level of a candidate field list.
type Tier string

const (
	Basic    Tier = "basic"
	Standard Tier = "standard"
	Extended Tier = "extended"
)

// Tiers is the static (model, tier) -> ordered candidate table. It describes
// what a consumer would like to read at each richness level; what the live
// server actually supports is decided by Registry.FilterAvailable.
var Tiers = map[string]map[Tier][]string{
	"sale.order": {
		Basic: {
			"name", "partner_id", "date_order", "state",
			"amount_untaxed", "amount_tax", "amount_total", "currency_id",
			"create_date", "write_date",
		},
		Standard: {
			"name", "partner_id", "date_order", "validity_date", "state",
			"amount_untaxed", "amount_tax", "amount_total", "currency_id",
			"payment_term_id", "pricelist_id", "user_id", "team_id",
			"note", "client_order_ref", "origin", "create_date", "write_date",
		},
		Extended: {
			"name", "partner_id", "date_order", "validity_date", "state",
			"amount_untaxed", "amount_tax", "amount_total", "currency_id",
			"payment_term_id", "pricelist_id", "fiscal_position_id",
			"user_id", "team_id", "company_id", "note", "client_order_ref",
			"origin", "partner_invoice_id", "partner_shipping_id",
			"invoice_status", "warehouse_id", "carrier_id", "incoterm",
			"picking_policy", "confirmation_date", "commitment_date",
			"delivery_status", "create_date", "write_date",
		},
	},
	"sale.order.line": {
		Basic: {
			"sequence", "product_id", "name", "product_uom_qty",
			"product_uom", "price_unit", "price_subtotal", "price_total",
		},
		Standard: {
			"sequence", "product_id", "name", "product_uom_qty",
			"product_uom", "price_unit", "price_subtotal", "price_total",
			"discount", "tax_id", "price_reduce", "price_reduce_taxinc",
		},
	},
	"purchase.order": {
		Basic: {
			"name", "partner_id", "date_order", "state",
			"amount_untaxed", "amount_tax", "amount_total", "currency_id",
			"create_date", "write_date",
		},
		Standard: {
			"name", "partner_id", "date_order", "date_planned", "state",
			"amount_untaxed", "amount_tax", "amount_total", "currency_id",
			"payment_term_id", "user_id", "company_id", "notes",
			"partner_ref", "origin", "invoice_status", "receipt_reminder_email",
			"reminder_date_before_receipt", "create_date", "write_date",
		},
		Extended: {
			"name", "partner_id", "date_order", "date_planned", "state",
			"amount_untaxed", "amount_tax", "amount_total", "currency_id",
			"payment_term_id", "fiscal_position_id", "user_id", "company_id",
			"notes", "partner_ref", "origin", "invoice_status",
			"receipt_reminder_email", "reminder_date_before_receipt",
			"picking_type_id", "dest_address_id", "default_location_dest_id",
			"incoterm_id", "create_date", "write_date",
		},
	},
	"purchase.order.line": {
		Basic: {
			"sequence", "product_id", "name", "product_qty",
			"product_uom", "price_unit", "price_subtotal", "price_total",
		},
		Standard: {
			"sequence", "product_id", "name", "product_qty", "qty_received",
			"qty_invoiced", "product_uom", "price_unit", "price_subtotal",
			"price_total", "taxes_id", "date_planned",
		},
	},
	"stock.picking": {
		Basic: {
			"name", "partner_id", "picking_type_id", "state",
			"scheduled_date", "date_done", "create_date", "write_date",
		},
		Standard: {
			"name", "partner_id", "picking_type_id", "state", "priority",
			"scheduled_date", "date_done", "location_id", "location_dest_id",
			"origin", "note", "company_id", "user_id", "carrier_id",
			"create_date", "write_date",
		},
		Extended: {
			"name", "partner_id", "picking_type_id", "state", "priority",
			"scheduled_date", "date_done", "location_id", "location_dest_id",
			"origin", "note", "company_id", "user_id", "carrier_id",
			"carrier_tracking_ref", "carrier_tracking_url", "weight",
			"shipping_weight", "sale_id", "purchase_id", "backorder_id",
			"group_id", "create_date", "write_date",
		},
	},
	"stock.move": {
		Basic: {
			"name", "product_id", "product_uom_qty", "quantity_done",
			"product_uom", "state", "location_id", "location_dest_id",
		},
		Standard: {
			"name", "product_id", "product_uom_qty", "quantity_done",
			"product_uom", "state", "location_id", "location_dest_id",
			"date", "date_deadline", "origin", "partner_id", "picking_id",
			"sale_line_id", "purchase_line_id",
		},
	},
	"res.partner": {
		Basic: {
			"name", "email", "phone", "is_company", "customer_rank", "supplier_rank",
		},
		Standard: {
			"name", "display_name", "email", "phone", "mobile",
			"street", "city", "country_id", "vat", "lang", "tz",
			"is_company", "customer_rank", "supplier_rank",
			"property_payment_term_id", "property_product_pricelist",
		},
	},
	"product.product": {
		Basic: {
			"name", "display_name", "default_code", "barcode", "type",
			"categ_id", "list_price", "standard_price", "qty_available",
			"active",
		},
		Standard: {
			"name", "display_name", "default_code", "barcode", "type",
			"categ_id", "list_price", "standard_price", "qty_available",
			"virtual_available", "uom_id", "uom_po_id", "active",
			"sale_ok", "purchase_ok", "description", "description_sale",
			"product_tmpl_id", "attribute_value_ids", "taxes_id",
			"supplier_taxes_id", "company_id",
		},
	},
	"product.template": {
		Basic: {
			"name", "default_code", "type", "categ_id", "list_price",
			"standard_price", "active",
		},
		Standard: {
			"name", "default_code", "type", "categ_id", "list_price",
			"standard_price", "active", "sale_ok", "purchase_ok",
			"uom_id", "uom_po_id", "description", "description_sale",
			"description_purchase", "attribute_line_ids", "company_id",
		},
	},
}

// CriticalModels are probed at startup so that the first tool call does not
// pay for introspection.
var CriticalModels = []string{
	"sale.order", "sale.order.line", "res.partner",
	"purchase.order", "purchase.order.line",
	"stock.picking", "stock.move", "stock.move.line",
	"account.move", "product.product", "product.template",
	"product.category", "stock.quant",
}

// Candidates returns the candidate list for (model, tier), falling back to
// the model's basic tier when tier is absent. Unknown models yield nil. The
// returned slice is a copy.
func Candidates(model string, tier Tier) []string {
	tiers, ok := Tiers[model]
	if !ok {
		return nil
	}
	list, ok := tiers[tier]
	if !ok {
		list = tiers[Basic]
	}
	return append([]string(nil), list...)
}
