package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ruralcare/medreserve/internal/config"
	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"github.com/ruralcare/medreserve/internal/domain/inventory"
	"github.com/ruralcare/medreserve/internal/domain/medicine"
	"github.com/ruralcare/medreserve/internal/domain/reservation"
	"github.com/ruralcare/medreserve/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TEST_POSTGRES_DSN and recreates the schema.
// The tables are dropped, so never point it at a real database.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	cfg := &config.Config{}
	cfg.Database.MaxOpenConns = 5
	cfg.Database.MaxIdleConns = 2
	cfg.Database.MaxLifetime = time.Minute

	db, err := Open(dsn, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migration := NewMigration(db.GetDB())
	require.NoError(t, migration.DropAllTables())
	require.NoError(t, migration.RunAutoMigrations())
	require.NoError(t, migration.CreateIndexes())
	return db
}

func TestStores(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	users := NewUserStore(db.GetDB())
	pharmacy := &user.User{Email: "pharmacy@example.com", Password: "x", Name: "Asha", Role: user.RolePharmacy, IsActive: true}
	require.NoError(t, users.Create(ctx, pharmacy))
	err := users.Create(ctx, &user.User{Email: "pharmacy@example.com", Password: "x", Name: "Dup", Role: user.RolePatient})
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	medicines := NewMedicineStore(db.GetDB())
	med := &medicine.Medicine{Name: "Paracetamol", GenericName: "Acetaminophen", Category: medicine.CategoryPainRelief, IsActive: true}
	require.NoError(t, medicines.Create(ctx, med))
	found, total, err := medicines.Search(ctx, medicine.SearchFilter{Query: "acetamin"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, found, 1)

	t.Run("inventory version guard", func(t *testing.T) {
		store := NewInventoryStore(db.GetDB())
		entry := &inventory.Entry{
			PharmacyID: pharmacy.ID, MedicineID: med.ID, CurrentStock: 10, AvailableStock: 10,
			Price: 500, Status: inventory.StatusAvailable, CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, store.CreateEntry(ctx, entry))
		assert.ErrorIs(t, store.CreateEntry(ctx, &inventory.Entry{PharmacyID: pharmacy.ID, MedicineID: med.ID, Status: inventory.StatusAvailable}), apperr.ErrAlreadyExists)

		entry.ReservedStock, entry.AvailableStock, entry.Version = 2, 8, 1
		movement := &inventory.Movement{EntryID: entry.ID, Type: inventory.MovementReserve, Quantity: 2, CurrentBefore: 10, CurrentAfter: 10, ReservedAfter: 2, CreatedAt: now}
		require.NoError(t, store.Update(ctx, entry, 0, movement))
		assert.NotZero(t, movement.ID)

		assert.ErrorIs(t, store.Update(ctx, entry, 0, nil), inventory.ErrVersionConflict)

		got, err := store.GetEntry(ctx, pharmacy.ID, med.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.ReservedStock)
		assert.Equal(t, int64(1), got.Version)

		movements, err := store.ListMovements(ctx, entry.ID)
		require.NoError(t, err)
		assert.Len(t, movements, 1)

		summary, err := store.Summary(ctx, pharmacy.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), summary.TotalItems)
		assert.Equal(t, int64(2), summary.ReservedUnits)
		assert.Equal(t, int64(5000), summary.InventoryValue)
	})

	t.Run("reservation conditional status update", func(t *testing.T) {
		store := NewReservationStore(db.GetDB())
		r := &reservation.Reservation{
			Code: "RES00000001ABCD", PatientID: 99, PharmacyID: pharmacy.ID, MedicineID: med.ID,
			Quantity: 2, UnitPrice: 500, TotalPrice: 1000, Status: reservation.StatusPending,
			ExpiresAt: now.Add(time.Hour), CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, store.Create(ctx, r))

		exists, err := store.CodeExists(ctx, r.Code)
		require.NoError(t, err)
		assert.True(t, exists)

		ok, err := store.UpdateStatus(ctx, r.ID, reservation.StatusPending, reservation.StatusConfirmed, reservation.StatusChange{At: now})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.UpdateStatus(ctx, r.ID, reservation.StatusPending, reservation.StatusCancelled, reservation.StatusChange{At: now})
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := store.GetByCode(ctx, r.Code)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusConfirmed, got.Status)

		_, err = store.GetByID(ctx, r.ID+1000)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}
