package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidTransition = errors.New("action not allowed in current step")
	ErrNoEligibleUnits   = errors.New("no hay equipos válidos para cargar")
	ErrBatchTooLarge     = errors.New("el lote supera el máximo de equipos")
	ErrBatchBusy         = errors.New("batch persistence in progress")
	ErrUnknownUnit       = errors.New("unit not found in batch")
	ErrSessionNotFound   = errors.New("intake session not found")
)

// TransitionError reports an action attempted from the wrong state.
type TransitionError struct {
	From   State
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s from %s", ErrInvalidTransition, e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// CommonFieldsError carries per-field messages when the common-data gate refuses.
type CommonFieldsError struct {
	Fields map[string]string
}

func (e *CommonFieldsError) Error() string {
	return fmt.Sprintf("common fields invalid (%d)", len(e.Fields))
}

const (
	MsgSerialExists   = "Este serial ya existe en el inventario"
	MsgRelatedInvalid = "Datos relacionados inválidos"
	MsgMissingField   = "Falta un campo obligatorio"
	MsgOutOfRange     = "Valor fuera del rango permitido"
)

// persistErrorTable translates raw store errors. Patterns cover both
// PostgreSQL and SQLite wording and are matched case-insensitively.
var persistErrorTable = []struct {
	patterns []string
	message  string
}{
	{[]string{"duplicate key", "unique constraint"}, MsgSerialExists},
	{[]string{"foreign key"}, MsgRelatedInvalid},
	{[]string{"null value in column", "not null constraint", "not-null constraint"}, MsgMissingField},
	{[]string{"check constraint"}, MsgOutOfRange},
}

// TranslatePersistError returns the operator message for a gateway error and
// whether it matched a known constraint class. Unknown errors pass through.
func TranslatePersistError(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	raw := err.Error()
	lower := strings.ToLower(raw)
	for _, row := range persistErrorTable {
		for _, p := range row.patterns {
			if strings.Contains(lower, p) {
				return row.message, true
			}
		}
	}
	return raw, false
}
