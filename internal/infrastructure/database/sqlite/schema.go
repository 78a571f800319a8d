// internal/infrastructure/database/sqlite/schema.go
package sqlite

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Timestamps are stored as unix milliseconds.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'patient',
		pharmacy_name TEXT NOT NULL DEFAULT '',
		license_number TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		district TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		last_login_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);`,
	`CREATE TABLE IF NOT EXISTS medicines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		generic_name TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		manufacturer TEXT NOT NULL DEFAULT '',
		dosage_form TEXT NOT NULL DEFAULT '',
		strength TEXT NOT NULL DEFAULT '',
		requires_prescription INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_medicines_name ON medicines(name);`,
	`CREATE TABLE IF NOT EXISTS inventory_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pharmacy_id INTEGER NOT NULL,
		medicine_id INTEGER NOT NULL,
		current_stock INTEGER NOT NULL DEFAULT 0 CHECK (current_stock >= 0),
		reserved_stock INTEGER NOT NULL DEFAULT 0 CHECK (reserved_stock >= 0),
		available_stock INTEGER NOT NULL DEFAULT 0,
		min_stock_level INTEGER NOT NULL DEFAULT 0,
		max_stock_level INTEGER NOT NULL DEFAULT 0,
		price INTEGER NOT NULL DEFAULT 0,
		batch_number TEXT NOT NULL DEFAULT '',
		supplier TEXT NOT NULL DEFAULT '',
		expiry_date INTEGER,
		last_restocked_at INTEGER,
		status TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE(pharmacy_id, medicine_id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_status ON inventory_entries(status);`,
	`CREATE TABLE IF NOT EXISTS inventory_movements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		current_before INTEGER NOT NULL,
		current_after INTEGER NOT NULL,
		reserved_before INTEGER NOT NULL,
		reserved_after INTEGER NOT NULL,
		reference_type TEXT NOT NULL DEFAULT '',
		reference_id INTEGER NOT NULL DEFAULT 0,
		reference_code TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		FOREIGN KEY(entry_id) REFERENCES inventory_entries(id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_movements_entry ON inventory_movements(entry_id);`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		patient_id INTEGER NOT NULL,
		pharmacy_id INTEGER NOT NULL,
		medicine_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 1),
		unit_price INTEGER NOT NULL,
		total_price INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		expires_at INTEGER NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		pickup_instructions TEXT NOT NULL DEFAULT '',
		completed_at INTEGER,
		cancelled_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_patient_status ON reservations(patient_id, status);`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_pharmacy_status ON reservations(pharmacy_id, status);`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_expires ON reservations(status, expires_at);`,
}

// addedColumns are columns introduced after a table's first release.
// CREATE TABLE IF NOT EXISTS leaves older files without them.
var addedColumns = []struct {
	table, column, definition string
}{
	{"inventory_movements", "reference_code", "TEXT NOT NULL DEFAULT ''"},
}

// Migrate creates the schema and adds columns missing from older files
func Migrate(db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	for _, c := range addedColumns {
		var n int
		if err := db.Get(&n, `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, c.table, c.column); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		if n > 0 {
			continue
		}
		if _, err := db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, c.table, c.column, c.definition)); err != nil {
			return fmt.Errorf("failed to add %s.%s: %w", c.table, c.column, err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
