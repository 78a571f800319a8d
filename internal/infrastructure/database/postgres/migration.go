// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/ruralcare/medreserve/internal/domain/inventory"
	"github.com/ruralcare/medreserve/internal/domain/medicine"
	"github.com/ruralcare/medreserve/internal/domain/reservation"
	"github.com/ruralcare/medreserve/internal/domain/user"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		&user.User{},
		&medicine.Medicine{},

		// Ledger
		&inventory.Entry{},
		&inventory.Movement{},

		&reservation.Reservation{},
	}

	// Run auto-migration for each model
	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes and checks
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// Sweeper scans pending holds by expiry
		"CREATE INDEX IF NOT EXISTS idx_reservations_pending_expiry ON reservations(expires_at) WHERE status = 'pending'",
		"CREATE INDEX IF NOT EXISTS idx_reservations_created_at ON reservations(created_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_inventory_entries_pharmacy_status ON inventory_entries(pharmacy_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_movements_entry_created ON inventory_movements(entry_id, created_at)",

		"CREATE INDEX IF NOT EXISTS idx_medicines_name_lower ON medicines(LOWER(name))",
		"CREATE INDEX IF NOT EXISTS idx_users_role_active ON users(role, is_active)",
	}

	// Postgres has no ADD CONSTRAINT IF NOT EXISTS; a repeat run fails harmlessly here
	checks := []string{
		"ALTER TABLE inventory_entries ADD CONSTRAINT chk_inventory_current_non_negative CHECK (current_stock >= 0)",
		"ALTER TABLE inventory_entries ADD CONSTRAINT chk_inventory_reserved_non_negative CHECK (reserved_stock >= 0)",
		"ALTER TABLE reservations ADD CONSTRAINT chk_reservations_quantity_positive CHECK (quantity >= 1)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range append(indexes, checks...) {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// DropAllTables drops every table, used by integration tests
func (m *Migration) DropAllTables() error {
	log.Println("⚠️ WARNING: Dropping all database tables...")

	// Define tables in reverse dependency order
	tables := []string{
		"reservations",
		"inventory_movements",
		"inventory_entries",
		"medicines",
		"users",
	}

	for _, table := range tables {
		if err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			log.Printf("⚠️ Failed to drop table %s: %v", table, err)
		} else {
			log.Printf("🗑️ Dropped table: %s", table)
		}
	}

	log.Println("✅ All tables dropped successfully")
	return nil
}

// GetTableInfo logs row counts per table
func (m *Migration) GetTableInfo() error {
	var tables []string

	// Get list of tables
	if err := m.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	log.Println("📊 Database Tables Information:")
	log.Println("================================")

	totalRecords := int64(0)
	for _, table := range tables {
		var count int64
		m.db.Table(table).Count(&count)
		totalRecords += count

		status := "✅"
		if count == 0 {
			status = "📭"
		}

		log.Printf("%s %-25s | %d records", status, table, count)
	}

	log.Println("================================")
	log.Printf("📈 Total records across all tables: %d", totalRecords)
	log.Printf("🗂️ Total tables: %d", len(tables))

	return nil
}
