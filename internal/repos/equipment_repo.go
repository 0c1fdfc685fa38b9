package repos

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"techstock/internal/domain"
)

// EquipmentRepo is the insert-by-table gateway for intake batches.
type EquipmentRepo struct{ db *sqlx.DB }

func NewEquipmentRepo(db *sqlx.DB) *EquipmentRepo { return &EquipmentRepo{db: db} }

// StockRow is the common projection used by the stock listing.
type StockRow struct {
	ID        string  `db:"id"`
	Serial    string  `db:"serial"`
	Location  string  `db:"location"`
	Condition string  `db:"condition"`
	SalePrice float64 `db:"sale_price_usd"`
	CreatedBy string  `db:"created_by"`
	Status    string  `db:"status"`
}

func knownTable(t domain.DestinationTable) bool {
	for _, k := range domain.Tables {
		if k == t {
			return true
		}
	}
	return false
}

// Insert stores one record and returns its generated id. Constraint
// violations come back as the driver's error text.
func (r *EquipmentRepo) Insert(ctx context.Context, table domain.DestinationTable, rec domain.DestinationRecord) (string, error) {
	if !knownTable(table) {
		return "", fmt.Errorf("unknown destination table %q", table)
	}
	id := uuid.NewString()
	args := make(map[string]any, len(rec.Fields)+1)
	for k, v := range rec.Fields {
		args[k] = v
	}
	args["id"] = id

	cols := append([]string{"id"}, rec.Columns()...)
	cols = dedupe(cols)
	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (:%s)`,
		table, strings.Join(cols, ", "), strings.Join(cols, ", :"))
	if _, err := r.db.NamedExecContext(ctx, q, args); err != nil {
		return "", err
	}
	return id, nil
}

func dedupe(cols []string) []string {
	seen := make(map[string]bool, len(cols))
	out := cols[:0]
	for _, c := range cols {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// SerialExists checks every destination table, case-insensitively.
func (r *EquipmentRepo) SerialExists(ctx context.Context, serial string) (bool, error) {
	parts := make([]string, 0, len(domain.Tables))
	args := make([]any, 0, len(domain.Tables))
	for _, t := range domain.Tables {
		parts = append(parts, fmt.Sprintf(`SELECT 1 AS hit FROM %s WHERE LOWER(serial) = LOWER(?)`, t))
		args = append(args, strings.TrimSpace(serial))
	}
	q := r.db.Rebind(`SELECT COUNT(*) FROM (` + strings.Join(parts, " UNION ALL ") + `) AS matches`)
	var n int
	if err := r.db.GetContext(ctx, &n, q, args...); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Recent lists the newest rows of a stock table (for the admin listing).
func (r *EquipmentRepo) Recent(ctx context.Context, table domain.DestinationTable, limit int) ([]StockRow, error) {
	if !knownTable(table) {
		return nil, fmt.Errorf("unknown destination table %q", table)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows := []StockRow{}
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(fmt.Sprintf(`
		SELECT id, serial, location, condition, sale_price_usd, created_by, status
		FROM %s
		ORDER BY created_at DESC, serial
		LIMIT ?
	`, table)), limit)
	return rows, err
}
