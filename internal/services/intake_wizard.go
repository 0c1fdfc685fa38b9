package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"techstock/internal/catalog"
	"techstock/internal/domain"
	applog "techstock/internal/log"
	"techstock/internal/mapper"
	"techstock/internal/validate"
)

// State is the wizard step.
type State int

const (
	StateTypeSelect State = iota
	StateCommonData
	StateSerialEntry
	StateConfirm
	StatePersisting
	StateResult
)

var stateNames = map[State]string{
	StateTypeSelect:  "type_select",
	StateCommonData:  "common_data",
	StateSerialEntry: "serial_entry",
	StateConfirm:     "confirm",
	StatePersisting:  "persisting",
	StateResult:      "result",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

var (
	ErrLastUnit = errors.New("el lote debe tener al menos un equipo")
	// ErrInvalidUnits is wrapped by UnitsError.
	ErrInvalidUnits = errors.New("hay equipos con errores")
)

const msgBlankSerial = "Serial vacío"

// UnitsError lists the units that blocked the serial-entry gate.
type UnitsError struct {
	Invalid map[string]string
}

func (e *UnitsError) Error() string { return ErrInvalidUnits.Error() }
func (e *UnitsError) Unwrap() error { return ErrInvalidUnits }

// SummaryItem is one persist-eligible unit on the confirm step.
type SummaryItem struct {
	LocalID     string          `json:"local_id"`
	Serial      string          `json:"serial"`
	DisplayName string          `json:"display_name"`
	PriceTotal  decimal.Decimal `json:"price_total"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	Color       string          `json:"color"`
}

// SummaryWarning is a unit that will not be persisted.
type SummaryWarning struct {
	LocalID string `json:"local_id"`
	Serial  string `json:"serial"`
	Reason  string `json:"reason"`
}

type ConfirmSummary struct {
	Variant  domain.Variant   `json:"variant"`
	Items    []SummaryItem    `json:"items"`
	Warnings []SummaryWarning `json:"warnings"`
}

// WizardView is a read-only snapshot for rendering.
type WizardView struct {
	State        State               `json:"state"`
	Variant      domain.Variant      `json:"variant,omitempty"`
	Common       domain.Fields       `json:"common"`
	CommonErrors map[string]string   `json:"common_errors,omitempty"`
	Units        []domain.UnitEntry  `json:"units"`
	Notice       string              `json:"notice,omitempty"`
	Progress     domain.Progress     `json:"progress"`
	Result       *domain.BatchResult `json:"result,omitempty"`
}

// Wizard drives one bulk intake batch through its steps. Every forward
// transition is gated; the only back edges are Confirm -> CommonData and
// Result -> TypeSelect.
type Wizard struct {
	mu        sync.Mutex
	bc        BatchContext
	persister *Persister
	checker   SerialChecker

	state      State
	variant    domain.Variant
	common     domain.Fields
	commonErrs validate.FieldErrors
	units      []domain.UnitEntry
	notice     string
	progress   domain.Progress
	result     *domain.BatchResult
}

func NewWizard(bc BatchContext, persister *Persister, checker SerialChecker) *Wizard {
	return &Wizard{bc: bc, persister: persister, checker: checker, state: StateTypeSelect, common: domain.Fields{}}
}

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Wizard) Operator() string { return w.bc.Operator }

func (w *Wizard) refuse(action string) error {
	if w.state == StatePersisting {
		return ErrBatchBusy
	}
	return &TransitionError{From: w.state, Action: action}
}

func newUnit() domain.UnitEntry {
	return domain.UnitEntry{LocalID: uuid.NewString(), Overrides: domain.Fields{}}
}

// SelectVariant picks the equipment type. Choosing again from the common-data
// step resets the batch.
func (w *Wizard) SelectVariant(v domain.Variant) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateTypeSelect && w.state != StateCommonData {
		return w.refuse("select_variant")
	}
	if _, ok := catalog.Lookup(v); !ok {
		return errors.New(validate.MsgUnknownVariant)
	}
	w.variant = v
	w.common = domain.Fields{}
	w.commonErrs = nil
	w.units = []domain.UnitEntry{newUnit()}
	w.notice = ""
	w.state = StateCommonData
	return nil
}

// UpdateCommon merges fields into the common data. A nil value removes the key.
func (w *Wizard) UpdateCommon(fields domain.Fields) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateCommonData {
		return w.refuse("update_common")
	}
	for k, v := range fields {
		if v == nil {
			delete(w.common, k)
			continue
		}
		w.common[k] = v
	}
	return nil
}

// SubmitCommon validates the common data and moves to serial entry.
func (w *Wizard) SubmitCommon() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateCommonData {
		return w.refuse("submit_common")
	}
	errs := validate.CommonFields(w.common, w.variant)
	if !errs.Valid() {
		w.commonErrs = errs
		applog.Batch(applog.LevelWarn, w.bc.Operator, "intake.common.invalid", nil, map[string]any{
			"variant": string(w.variant), "fields": map[string]string(errs),
		})
		return &CommonFieldsError{Fields: errs}
	}
	w.commonErrs = nil
	w.notice = ""
	w.state = StateSerialEntry
	return nil
}

// AddUnit appends an empty row. At the batch cap the add is refused and ok is false.
func (w *Wizard) AddUnit() (localID string, ok bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateSerialEntry {
		return "", false, w.refuse("add_unit")
	}
	if len(w.units) >= catalog.MaxUnits {
		return "", false, nil
	}
	u := newUnit()
	w.units = append(w.units, u)
	return u.LocalID, true, nil
}

func (w *Wizard) RemoveUnit(localID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateSerialEntry {
		return w.refuse("remove_unit")
	}
	i := w.indexOf(localID)
	if i < 0 {
		return ErrUnknownUnit
	}
	if len(w.units) == 1 {
		return ErrLastUnit
	}
	w.units = append(w.units[:i], w.units[i+1:]...)
	return nil
}

// EditUnit replaces a unit's serial and overrides. Nil overrides keep the current ones.
func (w *Wizard) EditUnit(localID, serial string, overrides domain.Fields) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateSerialEntry {
		return w.refuse("edit_unit")
	}
	i := w.indexOf(localID)
	if i < 0 {
		return ErrUnknownUnit
	}
	u := &w.units[i]
	u.Serial = serial
	if overrides != nil {
		u.Overrides = overrides.Clone()
	}
	u.Valid = false
	u.Error = ""
	return nil
}

func (w *Wizard) indexOf(localID string) int {
	for i, u := range w.units {
		if u.LocalID == localID {
			return i
		}
	}
	return -1
}

// SubmitUnits validates every non-blank serial and moves to confirm. Blank
// rows are not errors; they are simply left out of the batch.
func (w *Wizard) SubmitUnits(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateSerialEntry {
		return w.refuse("submit_units")
	}
	if len(w.units) > catalog.MaxUnits {
		return ErrBatchTooLarge
	}

	serials := make([]string, 0, len(w.units))
	for _, u := range w.units {
		if !u.Blank() {
			serials = append(serials, u.Serial)
		}
	}

	invalid := map[string]string{}
	eligible := 0
	for i := range w.units {
		u := &w.units[i]
		u.Valid, u.Error = false, ""
		if u.Blank() {
			continue
		}
		if msg := w.checkSerial(ctx, u.Serial, serials); msg != "" {
			u.Error = msg
			invalid[u.LocalID] = msg
			continue
		}
		u.Valid = true
		eligible++
	}

	switch {
	case len(invalid) > 0:
		w.notice = ErrInvalidUnits.Error()
		applog.Batch(applog.LevelWarn, w.bc.Operator, "intake.units.invalid", nil, map[string]any{
			"variant": string(w.variant), "invalid": len(invalid),
		})
		return &UnitsError{Invalid: invalid}
	case eligible == 0:
		w.notice = ErrNoEligibleUnits.Error()
		return ErrNoEligibleUnits
	}
	w.notice = ""
	w.state = StateConfirm
	return nil
}

func (w *Wizard) checkSerial(ctx context.Context, serial string, batch []string) string {
	trimmed, err := validate.Serial(serial)
	if err != nil {
		var se validate.SerialError
		if errors.As(err, &se) {
			return se.Message()
		}
		return err.Error()
	}
	if !validate.UniqueInBatch(trimmed, batch) {
		return validate.MsgDuplicate
	}
	if w.checker != nil {
		exists, err := w.checker.SerialExists(ctx, trimmed)
		if err != nil {
			applog.Batch(applog.LevelError, w.bc.Operator, "intake.serial.check.fail", err, map[string]any{"serial": trimmed})
			return ""
		}
		if exists {
			return MsgSerialExists
		}
	}
	return ""
}

// Summary lists what Confirm will persist and what it will skip.
func (w *Wizard) Summary() (ConfirmSummary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateConfirm {
		return ConfirmSummary{}, w.refuse("summary")
	}
	sum := ConfirmSummary{Variant: w.variant, Items: []SummaryItem{}, Warnings: []SummaryWarning{}}
	for _, u := range w.units {
		switch {
		case u.Eligible():
			m := mapper.ForUnit(w.variant, w.common, u)
			sum.Items = append(sum.Items, SummaryItem{
				LocalID:     u.LocalID,
				Serial:      m.Str("serial"),
				DisplayName: mapper.DisplayName(m, w.variant),
				PriceTotal:  mapper.CostTotal(m, w.variant),
				SalePrice:   mapper.SalePrice(m),
				Color:       m.Str("color"),
			})
		case u.Blank():
			sum.Warnings = append(sum.Warnings, SummaryWarning{LocalID: u.LocalID, Reason: msgBlankSerial})
		default:
			sum.Warnings = append(sum.Warnings, SummaryWarning{LocalID: u.LocalID, Serial: strings.TrimSpace(u.Serial), Reason: u.Error})
		}
	}
	return sum, nil
}

// Back returns from confirm to the common-data step, keeping the units.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateConfirm {
		return w.refuse("back")
	}
	w.state = StateCommonData
	return nil
}

// Confirm persists the eligible units and moves to the result step. It
// blocks until every unit has been attempted.
func (w *Wizard) Confirm(ctx context.Context, observer ProgressFunc) (*domain.BatchResult, error) {
	w.mu.Lock()
	if w.state != StateConfirm {
		err := w.refuse("confirm")
		w.mu.Unlock()
		return nil, err
	}
	if len(w.units) > catalog.MaxUnits {
		w.mu.Unlock()
		return nil, ErrBatchTooLarge
	}
	v := w.variant
	common := w.common.Clone()
	units := append([]domain.UnitEntry(nil), w.units...)
	w.state = StatePersisting
	w.progress = domain.Progress{}
	w.mu.Unlock()

	res, err := w.persister.Persist(ctx, w.bc, v, common, units, func(p domain.Progress) {
		w.mu.Lock()
		w.progress = p
		w.mu.Unlock()
		if observer != nil {
			observer(p)
		}
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.state = StateConfirm
		w.notice = err.Error()
		return nil, err
	}
	w.result = res
	w.state = StateResult
	return res, nil
}

func (w *Wizard) Progress() domain.Progress {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.progress
}

func (w *Wizard) Result() (*domain.BatchResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateResult {
		return nil, w.refuse("result")
	}
	return w.result, nil
}

// NewBatch discards the finished batch and starts over at type selection.
func (w *Wizard) NewBatch() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateResult {
		return w.refuse("new_batch")
	}
	w.state = StateTypeSelect
	w.variant = ""
	w.common = domain.Fields{}
	w.commonErrs = nil
	w.units = nil
	w.notice = ""
	w.progress = domain.Progress{}
	w.result = nil
	return nil
}

func (w *Wizard) Units() []domain.UnitEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return cloneUnits(w.units)
}

func (w *Wizard) View() WizardView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WizardView{
		State:        w.state,
		Variant:      w.variant,
		Common:       w.common.Clone(),
		CommonErrors: w.commonErrs,
		Units:        cloneUnits(w.units),
		Notice:       w.notice,
		Progress:     w.progress,
		Result:       w.result,
	}
}

func cloneUnits(in []domain.UnitEntry) []domain.UnitEntry {
	out := make([]domain.UnitEntry, len(in))
	for i, u := range in {
		u.Overrides = u.Overrides.Clone()
		out[i] = u
	}
	return out
}
