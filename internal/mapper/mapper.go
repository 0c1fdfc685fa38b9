// Package mapper merges batch-wide fields with per-unit overrides and shapes
// the result for a destination schema. It performs no validation and no I/O,
// and it never fails: malformed numbers coerce to 0 (prices) or nil (counts),
// matching how legacy stock data has always been accepted.
package mapper

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"techstock/internal/catalog"
	"techstock/internal/domain"
)

// Merge combines common fields with a unit override. Override wins per key;
// blank values count as unset and fall through to common, then to the
// variant's defaults.
func Merge(v domain.Variant, common, override domain.Fields) domain.Fields {
	out := domain.Fields{}
	if schema, ok := catalog.Lookup(v); ok {
		for k, val := range schema.Defaults {
			out[k] = val
		}
	}
	for k, val := range common {
		if common.Has(k) {
			out[k] = val
		}
	}
	for k, val := range override {
		if override.Has(k) {
			out[k] = val
		}
	}
	return out
}

// ForUnit merges a unit and pins its trimmed serial into the record.
func ForUnit(v domain.Variant, common domain.Fields, u domain.UnitEntry) domain.Fields {
	m := Merge(v, common, u.Overrides)
	m["serial"] = strings.TrimSpace(u.Serial)
	return m
}

type shaper func(m domain.Fields) domain.Fields

var primaryShapers = map[domain.Variant]shaper{
	domain.Notebook: notebookRecord,
	domain.Phone:    phoneRecord,
	domain.Other:    otherRecord,
}

// ToDestination reshapes a merged record. Unknown variants still yield a
// record carrying the common identification columns.
func ToDestination(m domain.Fields, v domain.Variant, kind domain.DestinationKind) domain.DestinationRecord {
	rec := domain.DestinationRecord{Kind: kind, Variant: v}
	if kind == domain.QaStaging {
		rec.Fields = qaRecord(m, v)
		return rec
	}
	if fn, ok := primaryShapers[v]; ok {
		rec.Fields = fn(m)
	} else {
		rec.Fields = baseRecord(m)
	}
	return rec
}

func baseRecord(m domain.Fields) domain.Fields {
	return domain.Fields{
		"serial":    m.Str("serial"),
		"color":     text(m, "color"),
		"condition": NormalizeCondition(m.Str("condition")),
		"location":  NormalizeLocation(m.Str("location")),
		"warranty":  text(m, "warranty"),
		"notes":     text(m, "notes"),
		"status":    "available",
	}
}

func notebookRecord(m domain.Fields) domain.Fields {
	r := baseRecord(m)
	r["model"] = m.Str("model")
	r["brand"] = m.Str("brand")
	r["processor"] = text(m, "processor")
	r["ram_gb"] = intOrNil(m, "ram")
	r["storage"] = text(m, "storage")
	r["screen"] = text(m, "screen")
	r["graphics"] = text(m, "graphics")
	r["condition_grade"] = text(m, "condition_grade")
	r["cost_usd"] = num(m, "cost_price_usd")
	r["shipping_extra_usd"] = num(m, "shipping_extra_usd")
	r["sale_price_usd"] = num(m, "sale_price_usd")
	return r
}

func phoneRecord(m domain.Fields) domain.Fields {
	r := baseRecord(m)
	r["model"] = m.Str("model")
	r["brand"] = m.Str("brand")
	r["category"] = m.Str("category")
	r["capacity"] = text(m, "capacity")
	r["battery"] = text(m, "battery")
	r["battery_pct"] = intOrNil(m, "battery")
	r["cycle_count"] = intOrNil(m, "cycle_count")
	r["condition_grade"] = text(m, "condition_grade")
	r["purchase_price_usd"] = num(m, "purchase_price_usd")
	r["extra_costs_usd"] = num(m, "extra_costs_usd")
	r["sale_price_usd"] = num(m, "sale_price_usd")
	return r
}

func otherRecord(m domain.Fields) domain.Fields {
	r := baseRecord(m)
	r["product_name"] = m.Str("product_name")
	r["brand"] = text(m, "brand")
	r["model"] = text(m, "model")
	r["category"] = m.Str("category")
	r["description"] = text(m, "description")
	r["purchase_price_usd"] = num(m, "purchase_price_usd")
	r["extra_costs_usd"] = num(m, "extra_costs_usd")
	r["sale_price_usd"] = num(m, "sale_price_usd")
	return r
}

// qaColumns is the wide staging shape; inapplicable columns stay nil.
var qaColumns = []string{
	"variant", "serial", "name", "brand", "model", "category", "supplier",
	"purchase_price_usd", "extra_costs_usd", "sale_price_usd",
	"color", "condition", "condition_grade", "location",
	"processor", "ram_gb", "storage", "screen", "graphics",
	"capacity", "battery_pct", "cycle_count", "description", "notes", "status",
}

var qaSpecFields = map[domain.Variant]func(m, r domain.Fields){
	domain.Notebook: func(m, r domain.Fields) {
		r["processor"] = text(m, "processor")
		r["ram_gb"] = intOrNil(m, "ram")
		r["storage"] = text(m, "storage")
		r["screen"] = text(m, "screen")
		r["graphics"] = text(m, "graphics")
	},
	domain.Phone: func(m, r domain.Fields) {
		r["capacity"] = text(m, "capacity")
		r["battery_pct"] = intOrNil(m, "battery")
		r["cycle_count"] = intOrNil(m, "cycle_count")
	},
	domain.Other: func(m, r domain.Fields) {
		r["description"] = text(m, "description")
	},
}

func qaRecord(m domain.Fields, v domain.Variant) domain.Fields {
	r := make(domain.Fields, len(qaColumns))
	for _, c := range qaColumns {
		r[c] = nil
	}
	r["variant"] = string(v)
	r["serial"] = m.Str("serial")
	r["name"] = DisplayName(m, v)
	r["brand"] = text(m, "brand")
	r["model"] = text(m, "model")
	r["category"] = text(m, "category")
	r["supplier"] = m.Str("supplier")
	if r["supplier"] == "" {
		r["supplier"] = catalog.DefaultSupplier
	}
	costField, extraField := "purchase_price_usd", "extra_costs_usd"
	if schema, ok := catalog.Lookup(v); ok {
		costField, extraField = schema.CostField, schema.ExtraField
	}
	r["purchase_price_usd"] = num(m, costField)
	r["extra_costs_usd"] = num(m, extraField)
	r["sale_price_usd"] = num(m, "sale_price_usd")
	r["color"] = text(m, "color")
	r["condition"] = NormalizeCondition(m.Str("condition"))
	r["condition_grade"] = text(m, "condition_grade")
	r["location"] = NormalizeLocation(m.Str("location"))
	r["notes"] = text(m, "notes")
	r["status"] = "pending"
	if fill, ok := qaSpecFields[v]; ok {
		fill(m, r)
	}
	return r
}

var conditionSynonyms = map[string]string{
	"new":             catalog.ConditionNew,
	"nuevo":           catalog.ConditionNew,
	"nueva":           catalog.ConditionNew,
	"sellado":         catalog.ConditionNew,
	"sealed":          catalog.ConditionNew,
	"0km":             catalog.ConditionNew,
	"used":            catalog.ConditionUsed,
	"usado":           catalog.ConditionUsed,
	"usada":           catalog.ConditionUsed,
	"seminuevo":       catalog.ConditionUsed,
	"semi nuevo":      catalog.ConditionUsed,
	"refurbished":     catalog.ConditionUsed,
	"reacondicionado": catalog.ConditionUsed,
	"open box":        catalog.ConditionUsed,
}

// NormalizeCondition maps free text onto new/used, defaulting to used.
func NormalizeCondition(s string) string {
	if c, ok := conditionSynonyms[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c
	}
	return catalog.DefaultCondition
}

var locationSynonyms = map[string]string{
	"central":       catalog.LocCentral,
	"casa central":  catalog.LocCentral,
	"centro":        catalog.LocCentral,
	"matriz":        catalog.LocCentral,
	"deposito":      catalog.LocCentral,
	"depósito":      catalog.LocCentral,
	"norte":         catalog.LocNorte,
	"nte":           catalog.LocNorte,
	"sur":           catalog.LocSur,
	"online":        catalog.LocOnline,
	"web":           catalog.LocOnline,
	"tienda online": catalog.LocOnline,
	"ecommerce":     catalog.LocOnline,
	"e-commerce":    catalog.LocOnline,
}

// NormalizeLocation maps legacy branch spellings onto branch codes,
// defaulting to the primary branch.
func NormalizeLocation(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, prefix := range []string{"sucursal ", "suc. ", "suc "} {
		key = strings.TrimPrefix(key, prefix)
	}
	if l, ok := locationSynonyms[key]; ok {
		return l
	}
	return catalog.PrimaryLocation
}

var (
	reLeadingFloat = regexp.MustCompile(`^[-+]?(\d+(\.\d*)?|\.\d+)`)
	reLeadingInt   = regexp.MustCompile(`^[-+]?\d+`)
)

// num reads a price leniently: leading numeric prefix, else 0.
func num(m domain.Fields, key string) float64 {
	if n, ok := m.Float(key); ok {
		return n
	}
	lead := reLeadingFloat.FindString(m.Str(key))
	n, err := strconv.ParseFloat(lead, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

// intOrNil reads a count leniently: leading integer prefix, else nil.
func intOrNil(m domain.Fields, key string) any {
	if !m.Has(key) {
		return nil
	}
	if n, ok := m.Float(key); ok {
		return int(n)
	}
	lead := reLeadingInt.FindString(m.Str(key))
	n, err := strconv.Atoi(lead)
	if err != nil {
		return nil
	}
	return n
}

func text(m domain.Fields, key string) any {
	if s := m.Str(key); s != "" {
		return s
	}
	return nil
}
