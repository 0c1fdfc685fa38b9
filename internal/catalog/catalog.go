// Package catalog describes the equipment variants the intake pipeline accepts.
// It is data only; the validate and mapper packages interpret it.
package catalog

import "techstock/internal/domain"

// RuleKind identifies a field-level check.
type RuleKind int

const (
	// Required: non-blank value.
	Required RuleKind = iota
	// Positive: numeric and > 0. Missing counts as a failure.
	Positive
	// NonNegativeInt: optional; if present must be an integer >= 0.
	NonNegativeInt
	// BatteryPercent: optional; digits optionally followed by '%'.
	BatteryPercent
	// IntRange: optional; integer within [Min, Max].
	IntRange
	// RequiredUnless: required when UnlessField is set to anything but UnlessValue.
	RequiredUnless
	// Location: optional; member of Locations.
	Location
)

type Rule struct {
	Field       string
	Kind        RuleKind
	Min, Max    int
	UnlessField string
	UnlessValue string
}

// Schema is the catalog entry for one variant.
type Schema struct {
	Variant    domain.Variant
	Table      domain.DestinationTable
	Required   []string
	Rules      []Rule
	Defaults   domain.Fields
	NameField  string
	CostField  string
	ExtraField string
}

// Branch codes. PrimaryLocation is the fallback for unrecognized values.
const (
	LocCentral = "central"
	LocNorte   = "norte"
	LocSur     = "sur"
	LocOnline  = "online"

	PrimaryLocation = LocCentral
)

var Locations = []string{LocCentral, LocNorte, LocSur, LocOnline}

const (
	ConditionNew  = "new"
	ConditionUsed = "used"

	DefaultCondition = ConditionUsed
	DefaultSupplier  = "unspecified"
)

// MaxUnits caps a batch.
const MaxUnits = 50

var schemas = map[domain.Variant]Schema{
	domain.Notebook: {
		Variant:  domain.Notebook,
		Table:    domain.TableNotebooks,
		Required: []string{"model", "brand", "cost_price_usd", "sale_price_usd"},
		Rules: []Rule{
			{Field: "model", Kind: Required},
			{Field: "brand", Kind: Required},
			{Field: "cost_price_usd", Kind: Positive},
			{Field: "sale_price_usd", Kind: Positive},
			{Field: "ram", Kind: NonNegativeInt},
			{Field: "location", Kind: Location},
		},
		Defaults: domain.Fields{
			"condition":          ConditionUsed,
			"location":           PrimaryLocation,
			"shipping_extra_usd": 0.0,
			"warranty":           "",
			"color":              "",
		},
		NameField:  "model",
		CostField:  "cost_price_usd",
		ExtraField: "shipping_extra_usd",
	},
	domain.Phone: {
		Variant:  domain.Phone,
		Table:    domain.TablePhones,
		Required: []string{"model", "brand", "category", "purchase_price_usd", "sale_price_usd"},
		Rules: []Rule{
			{Field: "model", Kind: Required},
			{Field: "brand", Kind: Required},
			{Field: "category", Kind: Required},
			{Field: "purchase_price_usd", Kind: Positive},
			{Field: "sale_price_usd", Kind: Positive},
			{Field: "battery", Kind: BatteryPercent},
			{Field: "cycle_count", Kind: IntRange, Min: 0, Max: 10000},
			{Field: "condition_grade", Kind: RequiredUnless, UnlessField: "condition", UnlessValue: ConditionNew},
			{Field: "location", Kind: Location},
		},
		Defaults: domain.Fields{
			"condition":       ConditionUsed,
			"location":        PrimaryLocation,
			"extra_costs_usd": 0.0,
			"warranty":        "",
			"color":           "",
		},
		NameField:  "model",
		CostField:  "purchase_price_usd",
		ExtraField: "extra_costs_usd",
	},
	domain.Other: {
		Variant:  domain.Other,
		Table:    domain.TableOther,
		Required: []string{"product_name", "category", "purchase_price_usd", "sale_price_usd"},
		Rules: []Rule{
			{Field: "product_name", Kind: Required},
			{Field: "category", Kind: Required},
			{Field: "purchase_price_usd", Kind: Positive},
			{Field: "sale_price_usd", Kind: Positive},
			{Field: "location", Kind: Location},
		},
		Defaults: domain.Fields{
			"condition":       ConditionUsed,
			"location":        PrimaryLocation,
			"extra_costs_usd": 0.0,
			"warranty":        "",
			"color":           "",
		},
		NameField:  "product_name",
		CostField:  "purchase_price_usd",
		ExtraField: "extra_costs_usd",
	},
}

// Lookup returns the schema for a variant.
func Lookup(v domain.Variant) (Schema, bool) {
	s, ok := schemas[v]
	return s, ok
}

// IsLocation reports membership in the branch enumeration.
func IsLocation(code string) bool {
	for _, l := range Locations {
		if l == code {
			return true
		}
	}
	return false
}
