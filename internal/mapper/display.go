package mapper

import (
	"strings"

	"github.com/shopspring/decimal"

	"techstock/internal/catalog"
	"techstock/internal/domain"
)

// DisplayName is "brand name" using the variant's name field.
func DisplayName(m domain.Fields, v domain.Variant) string {
	nameField := "model"
	if schema, ok := catalog.Lookup(v); ok {
		nameField = schema.NameField
	}
	return strings.TrimSpace(m.Str("brand") + " " + m.Str(nameField))
}

// CostTotal is acquisition cost plus extras (shipping for notebooks).
// It is only shown to the operator; the stored record keeps both parts.
func CostTotal(m domain.Fields, v domain.Variant) decimal.Decimal {
	schema, ok := catalog.Lookup(v)
	if !ok {
		return decimal.Zero
	}
	return money(m, schema.CostField).Add(money(m, schema.ExtraField))
}

// SalePrice returns the unit's sale price.
func SalePrice(m domain.Fields) decimal.Decimal { return money(m, "sale_price_usd") }

func money(m domain.Fields, key string) decimal.Decimal {
	return decimal.NewFromFloat(num(m, key)).Round(2)
}
