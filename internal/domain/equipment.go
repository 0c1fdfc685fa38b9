package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Variant is the equipment category a batch is loaded as.
type Variant string

const (
	Notebook Variant = "notebook"
	Phone    Variant = "phone"
	Other    Variant = "other"
)

// Variants lists every known variant in display order.
var Variants = []Variant{Notebook, Phone, Other}

// ParseVariant accepts the canonical lowercase names and their capitalized forms.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Variants {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown equipment variant %q", s)
}

func (v Variant) Label() string {
	switch v {
	case Notebook:
		return "Notebook"
	case Phone:
		return "Phone"
	case Other:
		return "Other"
	}
	return string(v)
}

// Fields is a loosely typed field-name to value mapping. Values are whatever
// the form or JSON decoder produced: strings, float64, json.Number, ints, nil.
type Fields map[string]any

// Clone returns a shallow copy; nil stays nil-safe.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Has reports whether the key is present with a non-blank value.
func (f Fields) Has(key string) bool {
	v, ok := f[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// Str renders the value as trimmed text.
func (f Fields) Str(key string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Float parses the value as a finite number. NaN and infinities are
// reported as not numeric.
func (f Fields) Float(key string) (float64, bool) {
	n, ok := f.float(key)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func (f Fields) float(key string) (float64, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		n, err := t.Float64()
		return n, err == nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return n, err == nil
	}
	return 0, false
}

// Int parses the value as an integer. Fractional numbers are rejected.
func (f Fields) Int(key string) (int, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t != float64(int(t)) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		n, err := strconv.Atoi(t.String())
		return n, err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}

// UnitEntry is one physical unit in a batch.
type UnitEntry struct {
	LocalID   string `json:"local_id"`
	Serial    string `json:"serial"`
	Overrides Fields `json:"overrides,omitempty"`
	Valid     bool   `json:"valid"`
	Error     string `json:"error,omitempty"`
}

// Blank reports whether no serial has been typed yet.
func (u UnitEntry) Blank() bool { return strings.TrimSpace(u.Serial) == "" }

// Eligible reports whether the unit may be persisted.
func (u UnitEntry) Eligible() bool { return u.Valid && u.Error == "" && !u.Blank() }

// DestinationKind selects the family of destination shapes.
type DestinationKind string

const (
	PrimaryStock DestinationKind = "primary_stock"
	QaStaging    DestinationKind = "qa_staging"
)

// DestinationTable names a storage target understood by the gateway.
type DestinationTable string

const (
	TableNotebooks DestinationTable = "notebooks"
	TablePhones    DestinationTable = "phones"
	TableOther     DestinationTable = "other_equipment"
	TableQAIntake  DestinationTable = "qa_intake"
)

// Tables lists every destination table the gateway accepts.
var Tables = []DestinationTable{TableNotebooks, TablePhones, TableOther, TableQAIntake}

// DestinationRecord is a merged record reshaped for one destination schema.
type DestinationRecord struct {
	Kind    DestinationKind `json:"kind"`
	Variant Variant         `json:"variant"`
	Fields  Fields          `json:"fields"`
}

// Columns returns the record's column names in a stable order.
func (r DestinationRecord) Columns() []string {
	cols := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Stamp records the operator identity for auditing.
func (r DestinationRecord) Stamp(operator string) DestinationRecord {
	out := DestinationRecord{Kind: r.Kind, Variant: r.Variant, Fields: r.Fields.Clone()}
	out.Fields["created_by"] = operator
	return out
}
