package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"techstock/internal/catalog"
	"techstock/internal/domain"
	"techstock/internal/mapper"
)

var (
	reSerial   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	reBattery  = regexp.MustCompile(`^[0-9]+%?$`)
	reOperator = regexp.MustCompile(`^[A-Za-z0-9._@ -]{1,40}$`)
)

const minSerialLen = 4

const (
	MsgRequired       = "Campo obligatorio"
	MsgPositive       = "Debe ser un número mayor a 0"
	MsgNonNegativeInt = "Debe ser un número entero no negativo"
	MsgBattery        = "Formato inválido (ej: 85 o 85%)"
	MsgGradeRequired  = "Obligatorio si el equipo no es nuevo"
	MsgLocation       = "Sucursal inválida"
	MsgDuplicate      = "Serial duplicado en el lote"
	MsgUnknownVariant = "Tipo de equipo desconocido"
)

// FieldErrors maps a field name to its message. A field absent from the map passed.
type FieldErrors map[string]string

func (e FieldErrors) Valid() bool { return len(e) == 0 }

// CommonFields checks the batch-wide fields against the variant's rules.
func CommonFields(fields domain.Fields, v domain.Variant) FieldErrors {
	errs := FieldErrors{}
	schema, ok := catalog.Lookup(v)
	if !ok {
		errs["variant"] = MsgUnknownVariant
		return errs
	}
	for _, r := range schema.Rules {
		if msg := check(fields, r); msg != "" {
			errs[r.Field] = msg
		}
	}
	return errs
}

func check(f domain.Fields, r catalog.Rule) string {
	switch r.Kind {
	case catalog.Required:
		if !f.Has(r.Field) {
			return MsgRequired
		}
	case catalog.Positive:
		n, ok := f.Float(r.Field)
		if !ok || n <= 0 {
			return MsgPositive
		}
	case catalog.NonNegativeInt:
		if !f.Has(r.Field) {
			return ""
		}
		n, ok := f.Int(r.Field)
		if !ok || n < 0 {
			return MsgNonNegativeInt
		}
	case catalog.BatteryPercent:
		if f.Has(r.Field) && !reBattery.MatchString(f.Str(r.Field)) {
			return MsgBattery
		}
	case catalog.IntRange:
		if !f.Has(r.Field) {
			return ""
		}
		n, ok := f.Int(r.Field)
		if !ok || n < r.Min || n > r.Max {
			return fmt.Sprintf("Debe ser un entero entre %d y %d", r.Min, r.Max)
		}
	case catalog.RequiredUnless:
		if !f.Has(r.UnlessField) {
			return ""
		}
		other := f.Str(r.UnlessField)
		if r.UnlessField == "condition" {
			other = mapper.NormalizeCondition(other)
		}
		if other != r.UnlessValue && !f.Has(r.Field) {
			return MsgGradeRequired
		}
	case catalog.Location:
		if f.Has(r.Field) && !catalog.IsLocation(strings.ToLower(f.Str(r.Field))) {
			return MsgLocation
		}
	}
	return ""
}

// SerialError is the failure code of a serial format check.
type SerialError string

const (
	ErrSerialEmpty        SerialError = "EMPTY"
	ErrSerialTooShort     SerialError = "TOO_SHORT"
	ErrSerialInvalidChars SerialError = "INVALID_CHARS"
)

func (e SerialError) Error() string { return string(e) }

// Message is the operator-facing text for the code.
func (e SerialError) Message() string {
	switch e {
	case ErrSerialEmpty:
		return "El serial es obligatorio"
	case ErrSerialTooShort:
		return fmt.Sprintf("El serial debe tener al menos %d caracteres", minSerialLen)
	case ErrSerialInvalidChars:
		return "El serial solo admite letras, números, guiones y guion bajo"
	}
	return string(e)
}

// Serial trims and checks a serial number. Case is preserved.
func Serial(s string) (string, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return "", ErrSerialEmpty
	case utf8.RuneCountInString(s) < minSerialLen:
		return s, ErrSerialTooShort
	case !reSerial.MatchString(s):
		return s, ErrSerialInvalidChars
	}
	return s, nil
}

// UniqueInBatch reports whether serial occurs at most once in all,
// comparing trimmed values case-insensitively. The unit itself counts once.
func UniqueInBatch(serial string, all []string) bool {
	key := strings.ToLower(strings.TrimSpace(serial))
	n := 0
	for _, s := range all {
		if strings.ToLower(strings.TrimSpace(s)) == key {
			n++
		}
	}
	return n <= 1
}

// Operator validates the audit identity supplied by the caller.
func Operator(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reOperator.MatchString(s)
}
