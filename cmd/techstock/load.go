package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"techstock/internal/catalog"
	"techstock/internal/config"
	"techstock/internal/domain"
	"techstock/internal/metrics"
	"techstock/internal/repos"
	"techstock/internal/services"
	"techstock/internal/validate"
)

// batchFile is the YAML shape accepted by `techstock load`.
type batchFile struct {
	Variant string        `yaml:"variant"`
	Target  string        `yaml:"target"`
	Common  domain.Fields `yaml:"common"`
	Units   []struct {
		Serial    string        `yaml:"serial"`
		Overrides domain.Fields `yaml:"overrides"`
	} `yaml:"units"`
}

func loadCmd() *cobra.Command {
	var (
		file     string
		operator string
		report   string
		workers  int
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Run one bulk intake batch from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			setupLogging(cfg)
			if cmd.Flags().Changed("workers") {
				cfg.IntakeWorkers = workers
			}

			op, ok := validate.Operator(operator)
			if !ok {
				return errors.New("--operator is required")
			}
			batch, err := readBatch(file)
			if err != nil {
				return err
			}

			db, err := repos.OpenDB(cfg.DBDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := repos.NewEquipmentRepo(db)
			persister := &services.Persister{Gateway: repo, Workers: cfg.IntakeWorkers}
			if cfg.MetricsEnabled {
				persister.Metrics = metrics.NewRegistry()
			}
			bc := services.BatchContext{Operator: op, Target: domain.DestinationKind(batch.Target)}
			w := services.NewWizard(bc, persister, repo)

			res, err := runBatch(cmd.Context(), w, batch, func(p domain.Progress) {
				fmt.Fprintf(cmd.ErrOrStderr(), "\rGuardando %d/%d", p.Current, p.Total)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr())

			at := time.Now()
			if report == "" {
				report = services.ReportFilename(at)
			}
			if err := os.WriteFile(report, []byte(services.ExportReport(res, at)), 0644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d exitosos, %d fallidos. Reporte: %s\n",
				res.Counts.Successes, res.Counts.Failures, report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "batch YAML file")
	cmd.Flags().StringVar(&operator, "operator", "", "operator recorded as created_by")
	cmd.Flags().StringVar(&report, "report", "", "report output path (default carga-masiva-<date>.txt)")
	cmd.Flags().IntVar(&workers, "workers", 1, "concurrent inserts, 1..8")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readBatch(path string) (*batchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b batchFile
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	switch domain.DestinationKind(b.Target) {
	case "", domain.PrimaryStock, domain.QaStaging:
	default:
		return nil, fmt.Errorf("unknown target %q", b.Target)
	}
	return &b, nil
}

// runBatch walks the wizard through every step the way the HTTP flow does.
func runBatch(ctx context.Context, w *services.Wizard, b *batchFile, observer services.ProgressFunc) (*domain.BatchResult, error) {
	v, err := domain.ParseVariant(b.Variant)
	if err != nil {
		return nil, err
	}
	if err := w.SelectVariant(v); err != nil {
		return nil, err
	}
	if err := w.UpdateCommon(b.Common); err != nil {
		return nil, err
	}
	if err := w.SubmitCommon(); err != nil {
		var cfe *services.CommonFieldsError
		if errors.As(err, &cfe) {
			return nil, fmt.Errorf("datos comunes: %s", joinFields(cfe.Fields))
		}
		return nil, err
	}
	if len(b.Units) > catalog.MaxUnits {
		return nil, services.ErrBatchTooLarge
	}

	ids := []string{w.Units()[0].LocalID}
	for range b.Units[min(1, len(b.Units)):] {
		id, _, err := w.AddUnit()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	for i, u := range b.Units {
		if err := w.EditUnit(ids[i], u.Serial, u.Overrides); err != nil {
			return nil, err
		}
	}
	if err := w.SubmitUnits(ctx); err != nil {
		var ue *services.UnitsError
		if errors.As(err, &ue) {
			return nil, fmt.Errorf("%w: %s", err, joinUnits(w.Units(), ue.Invalid))
		}
		return nil, err
	}
	return w.Confirm(ctx, observer)
}

func joinFields(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += "; "
		}
		out += k + ": " + m[k]
	}
	return out
}

func joinUnits(units []domain.UnitEntry, invalid map[string]string) string {
	out := ""
	for _, u := range units {
		msg, ok := invalid[u.LocalID]
		if !ok {
			continue
		}
		if out != "" {
			out += "; "
		}
		out += u.Serial + ": " + msg
	}
	return out
}
