package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"techstock/internal/catalog"
	"techstock/internal/domain"
	applog "techstock/internal/log"
	"techstock/internal/mapper"
)

// Gateway inserts one destination record and returns the generated id.
type Gateway interface {
	Insert(ctx context.Context, table domain.DestinationTable, rec domain.DestinationRecord) (string, error)
}

// SerialChecker reports whether a serial is already stored anywhere.
type SerialChecker interface {
	SerialExists(ctx context.Context, serial string) (bool, error)
}

// IntakeMetrics receives per-unit and per-batch outcomes.
type IntakeMetrics interface {
	ObserveUnit(variant string, ok bool)
	ObserveBatch(variant string, d time.Duration)
}

const maxWorkers = 8

// BatchContext is the explicit per-batch configuration: who is loading the
// stock and where each variant goes.
type BatchContext struct {
	Operator string
	Tables   map[domain.Variant]domain.DestinationTable
	Target   domain.DestinationKind
}

func (bc BatchContext) kind() domain.DestinationKind {
	if bc.Target == domain.QaStaging {
		return domain.QaStaging
	}
	return domain.PrimaryStock
}

// Table resolves the destination table for a variant.
func (bc BatchContext) Table(v domain.Variant) domain.DestinationTable {
	if bc.kind() == domain.QaStaging {
		return domain.TableQAIntake
	}
	if t, ok := bc.Tables[v]; ok && t != "" {
		return t
	}
	schema, _ := catalog.Lookup(v)
	return schema.Table
}

// Persister writes eligible units one gateway call each. Failures are
// isolated per unit; the batch always runs to the end.
type Persister struct {
	Gateway Gateway
	Workers int
	Metrics IntakeMetrics
}

func (p *Persister) workers() int {
	switch {
	case p.Workers < 1:
		return 1
	case p.Workers > maxWorkers:
		return maxWorkers
	}
	return p.Workers
}

// Persist attempts every eligible unit and returns the aggregated result.
// Cancelling ctx does not interrupt the batch once it has started.
func (p *Persister) Persist(ctx context.Context, bc BatchContext, v domain.Variant, common domain.Fields, units []domain.UnitEntry, observer ProgressFunc) (*domain.BatchResult, error) {
	eligible := make([]domain.UnitEntry, 0, len(units))
	for _, u := range units {
		if u.Eligible() {
			eligible = append(eligible, u)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligibleUnits
	}
	if len(eligible) > catalog.MaxUnits {
		return nil, ErrBatchTooLarge
	}

	ctx = context.WithoutCancel(ctx)
	agg := NewResultAggregator(v, bc.Operator, len(eligible), observer)
	table := bc.Table(v)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(p.workers())
	for _, u := range eligible {
		g.Go(func() error {
			p.persistOne(ctx, bc, v, table, common, u, agg)
			return nil
		})
	}
	_ = g.Wait()

	res := agg.Result()
	if p.Metrics != nil {
		p.Metrics.ObserveBatch(string(v), time.Since(start))
	}
	applog.Batch(applog.LevelAudit, bc.Operator, "intake.batch.persisted", nil, map[string]any{
		"variant":   string(v),
		"table":     string(table),
		"attempted": res.Counts.Attempted,
		"successes": res.Counts.Successes,
		"failures":  res.Counts.Failures,
	})
	return res, nil
}

func (p *Persister) persistOne(ctx context.Context, bc BatchContext, v domain.Variant, table domain.DestinationTable, common domain.Fields, u domain.UnitEntry, agg *ResultAggregator) {
	merged := mapper.ForUnit(v, common, u)
	serial := merged.Str("serial")
	fields := map[string]any{"variant": string(v), "table": string(table), "serial": serial, "local_id": u.LocalID}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			applog.Batch(applog.LevelError, bc.Operator, "intake.unit.system_error", err, fields)
			p.observe(v, false)
			agg.Failure(u.LocalID, serial, "Error inesperado al guardar el equipo")
		}
	}()

	rec := mapper.ToDestination(merged, v, bc.kind()).Stamp(bc.Operator)
	id, err := p.Gateway.Insert(ctx, table, rec)
	if err != nil {
		msg, known := TranslatePersistError(err)
		if known {
			applog.Batch(applog.LevelWarn, bc.Operator, "intake.unit.rejected", nil, withMessage(fields, msg))
		} else {
			applog.Batch(applog.LevelError, bc.Operator, "intake.unit.system_error", err, fields)
		}
		p.observe(v, false)
		agg.Failure(u.LocalID, serial, msg)
		return
	}
	fields["id"] = id
	applog.Batch(applog.LevelAudit, bc.Operator, "intake.unit.persisted", nil, fields)
	p.observe(v, true)
	agg.Success(u.LocalID, serial, id)
}

func (p *Persister) observe(v domain.Variant, ok bool) {
	if p.Metrics != nil {
		p.Metrics.ObserveUnit(string(v), ok)
	}
}

func withMessage(fields map[string]any, msg string) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["message"] = msg
	return out
}
