package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"techstock/internal/domain"
	applog "techstock/internal/log"
	"techstock/internal/services"
)

type IntakeHandler struct {
	Intake *services.IntakeService
	Now    func() time.Time
}

func (h *IntakeHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *IntakeHandler) wizard(c *fiber.Ctx) (*services.Wizard, error) {
	return h.Intake.Get(c.Params("id"), operator(c))
}

// intakeError maps service errors onto status codes. Gate failures carry
// their per-field or per-unit messages so the form can show them inline.
func intakeError(c *fiber.Ctx, err error) error {
	var cfe *services.CommonFieldsError
	var ue *services.UnitsError
	switch {
	case errors.As(err, &cfe):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Revise los campos marcados", "fields": cfe.Fields})
	case errors.As(err, &ue):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": ue.Error(), "units": ue.Invalid})
	case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, services.ErrUnknownUnit):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrBatchBusy):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNoEligibleUnits), errors.Is(err, services.ErrLastUnit), errors.Is(err, services.ErrBatchTooLarge):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

type startReq struct {
	Target string `json:"target"`
}

// POST /api/v1/intake
func (h *IntakeHandler) Start(c *fiber.Ctx) error {
	var req startReq
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
	}
	target := domain.PrimaryStock
	switch strings.TrimSpace(req.Target) {
	case "", string(domain.PrimaryStock):
	case string(domain.QaStaging):
		target = domain.QaStaging
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown target"})
	}
	id, w := h.Intake.Start(operator(c), target)
	applog.Audit(c, "intake.session.start", map[string]any{"session": id, "target": string(target)})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id, "wizard": w.View()})
}

// GET /api/v1/intake/:id
func (h *IntakeHandler) View(c *fiber.Ctx) error {
	w, err := h.wizard(c)
	if err != nil {
		return intakeError(c, err)
	}
	return c.JSON(w.View())
}

type variantReq struct {
	Variant string `json:"variant"`
}

// POST /api/v1/intake/:id/variant
func (h *IntakeHandler) SelectVariant(c *fiber.Ctx) error {
	w, err := h.wizard(c)
	if err != nil {
		return intakeError(c, err)
	}
	var req variantReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	v, err := domain.ParseVariant(req.Variant)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := w.SelectVariant(v); err != nil {
		return intakeError(c, err)
	}
	return c.JSON(w.View())
}

type commonReq struct {
	Fields domain.Fields `json:"fields"`
}

// PUT /api/v1/intake/:id/common
func (h *IntakeHandler) UpdateCommon(c *fiber.Ctx) error {
	w, err := h.wizard(c)
	if err != nil {
		return intakeError(c, err)
	}
	var req commonReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := w.UpdateCommon(req.Fields); err != nil {
		return intakeError(c, err)
	}
	return c.JSON(w.View())
}

// POST /api/v1/intake/:id/common/submit
func (h *IntakeHandler) SubmitCommon(c *fiber.Ctx) error {
	w, err := h.wizard(c)
	if err != nil {
		return intakeError(c, err)
	}
	if err := w.SubmitCommon(); err != nil {
		return intakeError(c, err)
	}
	return c.JSON(w.View())
}

// POST /api/v1/intake/:id/units
func (h *IntakeHandler) AddUnit(c *fiber.Ctx) error {
	w, err := h.wizard(c)
	if err != nil {
		return intakeError(c, err)
	}
	id, added, err := w.AddUnit()
	if err != nil {
		return intakeError(c, err)
	}
	return c.JSON(fiber.Map{"local_id": id, "added": added, "units": len(w.Units())})
}

// DELETE /api/v1/intake/:id/units/:localId
func (h *IntakeHandler) RemoveUnit(c *fiber.Ctx) error {
	w, err := h.wizard(c)
	if err != nil {
		return intakeError(c, err)
	}
	if err := w.RemoveUnit(c.Params("localId")); err != nil {
		return intakeError(c, err)
	}
	return c.JSON(w.View())
}

type unitReq struct {
	Serial    string        `json:"serial"`
	Overrides domain.Fields `json:"overrides"`
}

// PUT /api/v1/intake/:id/units/:localId
func (h *IntakeHandler) EditUnit(c *fiber.Ctx) error {
	w, err := h.wizard(c)
	if err != nil {
		return intakeError(c, err)
	}
	var req unitReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := w.EditUnit(c.Params("localId"), req.Serial, req.Overrides); err != nil {
		return intakeError(c, err)
	}
	return c.JSON(w.View())
}

// POST /api/v1/intake/:id/units/submit
func (h *IntakeHandler) SubmitUnits(c *fiber.Ctx) error {
	w, err := h.wizard(c)
	if err != nil {
		return intakeError(c, err)
	}
	if err := w.SubmitUnits(c.UserContext()); err != nil {
		return intakeError(c, err)
	}
	return c.JSON(w.View())
}

// GET /api/v1/intake/:id/summary
func (h *IntakeHandler) Summary(c *fiber.Ctx) error {
	w, err := h.wizard(c)
	if err != nil {
		return intakeError(c, err)
	}
	sum, err := w.Summary()
	if err != nil {
		return intakeError(c, err)
	}
	return c.JSON(sum)
}

// POST /api/v1/intake/:id/back
func (h *IntakeHandler) Back(c *fiber.Ctx) error {
	w, err := h.wizard(c)
	if err != nil {
		return intakeError(c, err)
	}
	if err := w.Back(); err != nil {
		return intakeError(c, err)
	}
	return c.JSON(w.View())
}

// POST /api/v1/intake/:id/confirm
func (h *IntakeHandler) Confirm(c *fiber.Ctx) error {
	w, err := h.wizard(c)
	if err != nil {
		return intakeError(c, err)
	}
	res, err := w.Confirm(c.UserContext(), nil)
	if err != nil {
		return intakeError(c, err)
	}
	applog.Audit(c, "intake.session.confirm", map[string]any{
		"session":   c.Params("id"),
		"successes": res.Counts.Successes,
		"failures":  res.Counts.Failures,
	})
	return c.JSON(res)
}

// GET /api/v1/intake/:id/report
func (h *IntakeHandler) Report(c *fiber.Ctx) error {
	w, err := h.wizard(c)
	if err != nil {
		return intakeError(c, err)
	}
	res, err := w.Result()
	if err != nil {
		return intakeError(c, err)
	}
	at := h.now()
	c.Attachment(services.ReportFilename(at))
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.SendString(services.ExportReport(res, at))
}

// GET /intake/:id/result
func (h *IntakeHandler) ResultPage(c *fiber.Ctx) error {
	w, err := h.wizard(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Carga no encontrada"})
	}
	res, err := w.Result()
	if err != nil {
		return c.Status(fiber.StatusConflict).Render("notfound", fiber.Map{"Message": "La carga todavía no terminó"})
	}
	return render(c, "result", fiber.Map{"Result": res, "Session": c.Params("id"), "Variant": res.Variant.Label()})
}

// POST /api/v1/intake/:id/reset
func (h *IntakeHandler) Reset(c *fiber.Ctx) error {
	w, err := h.wizard(c)
	if err != nil {
		return intakeError(c, err)
	}
	if err := w.NewBatch(); err != nil {
		return intakeError(c, err)
	}
	return c.JSON(w.View())
}
