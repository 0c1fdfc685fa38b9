package repos

import (
	"log"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" for postgres:// DSNs
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"techstock/internal/catalog"
)

// DriverFor picks the database/sql driver from the DSN.
func DriverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "pgx"
	}
	return "sqlite"
}

func OpenDB(dsn string) (*sqlx.DB, error) {
	driver := DriverFor(dsn)
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// one connection keeps ":memory:" databases and PRAGMAs consistent
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	if err := seedBranches(db); err != nil {
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS branches(
  code TEXT PRIMARY KEY,
  name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS notebooks(
  id TEXT PRIMARY KEY,
  serial TEXT NOT NULL,
  model TEXT NOT NULL,
  brand TEXT NOT NULL,
  processor TEXT,
  ram_gb INTEGER CHECK (ram_gb IS NULL OR ram_gb >= 0),
  storage TEXT,
  screen TEXT,
  graphics TEXT,
  color TEXT,
  condition TEXT NOT NULL CHECK (condition IN ('new','used')),
  condition_grade TEXT,
  location TEXT NOT NULL REFERENCES branches(code),
  cost_usd NUMERIC NOT NULL CHECK (cost_usd >= 0),
  shipping_extra_usd NUMERIC NOT NULL DEFAULT 0 CHECK (shipping_extra_usd >= 0),
  sale_price_usd NUMERIC NOT NULL CHECK (sale_price_usd >= 0),
  warranty TEXT,
  notes TEXT,
  status TEXT NOT NULL DEFAULT 'available',
  created_by TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_notebooks_serial ON notebooks(LOWER(serial));

CREATE TABLE IF NOT EXISTS phones(
  id TEXT PRIMARY KEY,
  serial TEXT NOT NULL,
  model TEXT NOT NULL,
  brand TEXT NOT NULL,
  category TEXT NOT NULL,
  capacity TEXT,
  color TEXT,
  battery TEXT,
  battery_pct INTEGER CHECK (battery_pct IS NULL OR (battery_pct >= 0 AND battery_pct <= 100)),
  cycle_count INTEGER CHECK (cycle_count IS NULL OR (cycle_count >= 0 AND cycle_count <= 10000)),
  condition TEXT NOT NULL CHECK (condition IN ('new','used')),
  condition_grade TEXT,
  location TEXT NOT NULL REFERENCES branches(code),
  purchase_price_usd NUMERIC NOT NULL CHECK (purchase_price_usd >= 0),
  extra_costs_usd NUMERIC NOT NULL DEFAULT 0 CHECK (extra_costs_usd >= 0),
  sale_price_usd NUMERIC NOT NULL CHECK (sale_price_usd >= 0),
  warranty TEXT,
  notes TEXT,
  status TEXT NOT NULL DEFAULT 'available',
  created_by TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_phones_serial ON phones(LOWER(serial));

CREATE TABLE IF NOT EXISTS other_equipment(
  id TEXT PRIMARY KEY,
  serial TEXT NOT NULL,
  product_name TEXT NOT NULL,
  brand TEXT,
  model TEXT,
  category TEXT NOT NULL,
  description TEXT,
  color TEXT,
  condition TEXT NOT NULL CHECK (condition IN ('new','used')),
  location TEXT NOT NULL REFERENCES branches(code),
  purchase_price_usd NUMERIC NOT NULL CHECK (purchase_price_usd >= 0),
  extra_costs_usd NUMERIC NOT NULL DEFAULT 0 CHECK (extra_costs_usd >= 0),
  sale_price_usd NUMERIC NOT NULL CHECK (sale_price_usd >= 0),
  warranty TEXT,
  notes TEXT,
  status TEXT NOT NULL DEFAULT 'available',
  created_by TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_other_equipment_serial ON other_equipment(LOWER(serial));

-- staging for quality review before units reach stock
CREATE TABLE IF NOT EXISTS qa_intake(
  id TEXT PRIMARY KEY,
  variant TEXT NOT NULL CHECK (variant IN ('notebook','phone','other')),
  serial TEXT NOT NULL,
  name TEXT,
  brand TEXT,
  model TEXT,
  category TEXT,
  supplier TEXT NOT NULL DEFAULT 'unspecified',
  purchase_price_usd NUMERIC NOT NULL DEFAULT 0,
  extra_costs_usd NUMERIC NOT NULL DEFAULT 0,
  sale_price_usd NUMERIC NOT NULL DEFAULT 0,
  color TEXT,
  condition TEXT NOT NULL CHECK (condition IN ('new','used')),
  condition_grade TEXT,
  location TEXT NOT NULL REFERENCES branches(code),
  processor TEXT,
  ram_gb INTEGER,
  storage TEXT,
  screen TEXT,
  graphics TEXT,
  capacity TEXT,
  battery_pct INTEGER,
  cycle_count INTEGER,
  description TEXT,
  notes TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  created_by TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_qa_intake_serial ON qa_intake(LOWER(serial));
`

func ensureSchema(db *sqlx.DB) error {
	if db.DriverName() == "sqlite" {
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			return err
		}
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// seedBranches keeps the branch table in line with the catalog (idempotent).
func seedBranches(db *sqlx.DB) error {
	branches := []struct{ Code, Name string }{
		{catalog.LocCentral, "Casa Central"},
		{catalog.LocNorte, "Sucursal Norte"},
		{catalog.LocSur, "Sucursal Sur"},
		{catalog.LocOnline, "Tienda Online"},
	}
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, b := range branches {
		if _, err := tx.Exec(tx.Rebind(`
			INSERT INTO branches(code, name) VALUES(?, ?)
			ON CONFLICT(code) DO NOTHING
		`), b.Code, b.Name); err != nil {
			return err
		}
	}
	log.Printf("[seed] branches ensured (%d)", len(branches))
	return tx.Commit()
}
