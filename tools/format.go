package tools

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Odoo encodes an unset scalar as false and a many2one as [id, "label"].
// The helpers below read both shapes without panicking on either.

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func many2one(v any) (int64, string, bool) {
	pair, ok := v.([]any)
	if !ok || len(pair) < 2 {
		return 0, "", false
	}
	id, ok := asInt64(pair[0])
	if !ok {
		return 0, "", false
	}
	return id, asString(pair[1]), true
}

func many2oneLabel(v any, fallback string) string {
	if _, label, ok := many2one(v); ok {
		return label
	}
	return fallback
}

// rows converts a search_read/read result into records.
func rows(res any) []map[string]any {
	list, _ := res.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, r := range list {
		if m, ok := r.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// ids converts a search result into record ids.
func ids(res any) []int64 {
	list, _ := res.([]any)
	out := make([]int64, 0, len(list))
	for _, v := range list {
		if id, ok := asInt64(v); ok {
			out = append(out, id)
		}
	}
	return out
}

func idArgs(xs []int64) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func stringArgs(xs []string) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// idSet accumulates distinct ids in first-seen order.
type idSet struct {
	seen map[int64]struct{}
	list []int64
}

func (s *idSet) add(xs ...int64) {
	if s.seen == nil {
		s.seen = make(map[int64]struct{})
	}
	for _, x := range xs {
		if _, ok := s.seen[x]; ok {
			continue
		}
		s.seen[x] = struct{}{}
		s.list = append(s.list, x)
	}
}

func (s *idSet) sorted() []int64 {
	out := append([]int64(nil), s.list...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func recordURL(base, model string, id int64) string {
	return fmt.Sprintf("%s/web#id=%d&model=%s&view_type=form", base, id, model)
}

func urlPattern(base, model string) string {
	return fmt.Sprintf("%s/web#id={ID}&model=%s&view_type=form", base, model)
}

// firstLine returns the first line of a multi-line line description, which
// Odoo uses as the product label on order lines.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// currencyCode extracts "USD" from a currency many2one labelled "US Dollar (USD)",
// or returns the label itself.
func currencyCode(v any) string {
	_, label, ok := many2one(v)
	if !ok {
		return ""
	}
	open := strings.IndexByte(label, '(')
	if open >= 0 {
		if end := strings.IndexByte(label[open:], ')'); end > 0 {
			return label[open+1 : open+end]
		}
	}
	return label
}

func formatAmount(v any, code string) string {
	s := strconv.FormatFloat(asFloat(v), 'f', 2, 64)
	if code == "" {
		return s
	}
	return s + " " + code
}

var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// formatDatetime renders an Odoo date or datetime as "2006-01-02 15:04:05".
// Empty values become "N/A"; unparseable values are returned unchanged.
func formatDatetime(v any) string {
	s := asString(v)
	if s == "" {
		return "N/A"
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, strings.TrimSuffix(s, "Z")); err == nil {
			return t.Format("2006-01-02 15:04:05")
		}
	}
	return s
}

func isEnglish(lang string) bool {
	return strings.HasPrefix(lang, "en")
}

func displayLanguage(lang string) string {
	if isEnglish(lang) {
		return "en"
	}
	return "zh"
}

type stateLabel struct{ zh, en string }

var deliveryStates = map[string]stateLabel{
	"draft":     {"草稿", "Draft"},
	"waiting":   {"等待中", "Waiting"},
	"confirmed": {"已確認", "Confirmed"},
	"assigned":  {"已分配", "Assigned"},
	"done":      {"已完成", "Done"},
	"cancel":    {"已取消", "Cancelled"},
}

var purchaseStates = map[string]stateLabel{
	"draft":      {"報價需求", "RFQ"},
	"sent":       {"已發送報價需求", "RFQ Sent"},
	"to approve": {"待審核", "To Approve"},
	"purchase":   {"採購單", "Purchase Order"},
	"done":       {"已完成", "Done"},
	"cancel":     {"已取消", "Cancelled"},
}

var quotationStates = map[string]stateLabel{
	"draft":  {"報價單", "Quotation"},
	"sent":   {"已發送報價單", "Quotation Sent"},
	"sale":   {"銷售訂單", "Sales Order"},
	"done":   {"已鎖定", "Locked"},
	"cancel": {"已取消", "Cancelled"},
}

// translateState maps a state code through table; unknown codes pass through.
func translateState(table map[string]stateLabel, state string, english bool) string {
	l, ok := table[state]
	if !ok {
		return state
	}
	if english {
		return l.en
	}
	return l.zh
}

var productTypes = map[string]string{
	"consu":   "消耗品 (Consumable)",
	"service": "服務 (Service)",
	"product": "可庫存產品 (Storable Product)",
}

var languageNames = map[string]string{
	"zh_TW": "繁體中文",
	"zh_CN": "简体中文",
	"en_US": "English (US)",
	"en_GB": "English (UK)",
}

// SupportedLanguages are the locales with a display name.
var SupportedLanguages = []string{"zh_TW", "zh_CN", "en_US", "en_GB"}

func languageName(code string) string {
	if n, ok := languageNames[code]; ok {
		return n
	}
	return code
}

func cloneRecord(r map[string]any) map[string]any {
	out := make(map[string]any, len(r)+8)
	for k, v := range r {
		out[k] = v
	}
	return out
}

func limitOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
