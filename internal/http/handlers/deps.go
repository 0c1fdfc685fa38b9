package handlers

import (
	"time"

	"techstock/internal/config"
	"techstock/internal/metrics"
	"techstock/internal/repos"
	"techstock/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/jmoiron/sqlx"
)

type Deps struct {
	IntakeHandler    *IntakeHandler
	InventoryHandler *InventoryHandler
	Metrics          *metrics.Registry
}

// NewDeps wires repos and services. reg may be nil when metrics are disabled.
func NewDeps(db *sqlx.DB, cfg config.Config, reg *metrics.Registry) *Deps {
	equipRepo := repos.NewEquipmentRepo(db)

	persister := &services.Persister{Gateway: equipRepo, Workers: cfg.IntakeWorkers}
	if reg != nil {
		persister.Metrics = reg
	}
	intakeSvc := services.NewIntakeService(persister, equipRepo)

	return &Deps{
		IntakeHandler:    &IntakeHandler{Intake: intakeSvc},
		InventoryHandler: &InventoryHandler{Equipment: equipRepo},
		Metrics:          reg,
	}
}

// Mount registers the intake API, the result page and the stock listing.
func Mount(app *fiber.App, d *Deps) {
	api := app.Group("/api/v1", RequireOperator())

	intake := api.Group("/intake")
	ih := d.IntakeHandler
	intake.Post("/", limiter.New(limiter.Config{Max: 30, Expiration: time.Minute}), ih.Start)
	intake.Get("/:id", ih.View)
	intake.Post("/:id/variant", ih.SelectVariant)
	intake.Put("/:id/common", ih.UpdateCommon)
	intake.Post("/:id/common/submit", ih.SubmitCommon)
	intake.Post("/:id/units", ih.AddUnit)
	intake.Post("/:id/units/submit", ih.SubmitUnits)
	intake.Put("/:id/units/:localId", ih.EditUnit)
	intake.Delete("/:id/units/:localId", ih.RemoveUnit)
	intake.Get("/:id/summary", ih.Summary)
	intake.Post("/:id/back", ih.Back)
	intake.Post("/:id/confirm", ih.Confirm)
	intake.Get("/:id/report", ih.Report)
	intake.Post("/:id/reset", ih.Reset)

	api.Get("/stock/serial/:serial", d.InventoryHandler.SerialExists)
	api.Get("/stock/:table", d.InventoryHandler.Recent)

	app.Get("/intake/:id/result", RequireOperator(), ih.ResultPage)

	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}
}
