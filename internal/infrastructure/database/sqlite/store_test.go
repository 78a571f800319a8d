package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"github.com/ruralcare/medreserve/internal/domain/inventory"
	"github.com/ruralcare/medreserve/internal/domain/medicine"
	"github.com/ruralcare/medreserve/internal/domain/reservation"
	"github.com/ruralcare/medreserve/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := ConnectInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newEntry(pharmacyID, medicineID uint, current int) *inventory.Entry {
	e := &inventory.Entry{
		PharmacyID:    pharmacyID,
		MedicineID:    medicineID,
		CurrentStock:  current,
		MinStockLevel: 5,
		MaxStockLevel: 100,
		Price:         1250,
		CreatedAt:     baseTime,
	}
	e.Normalize(baseTime)
	return e
}

func TestInventoryStore_CreateAndGet(t *testing.T) {
	store := NewInventoryStore(newTestDB(t))
	ctx := context.Background()

	expiry := baseTime.Add(90 * 24 * time.Hour)
	e := newEntry(1, 10, 20)
	e.ExpiryDate = &expiry
	require.NoError(t, store.CreateEntry(ctx, e))
	assert.NotZero(t, e.ID)

	got, err := store.GetEntry(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, 20, got.CurrentStock)
	assert.Equal(t, 20, got.AvailableStock)
	assert.Equal(t, int64(1250), got.Price)
	assert.Equal(t, inventory.StatusAvailable, got.Status)
	require.NotNil(t, got.ExpiryDate)
	assert.True(t, expiry.Equal(*got.ExpiryDate))
	assert.Nil(t, got.LastRestockedAt)

	_, err = store.GetEntry(ctx, 1, 11)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = store.CreateEntry(ctx, newEntry(1, 10, 5))
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestInventoryStore_UpdateChecksVersion(t *testing.T) {
	store := NewInventoryStore(newTestDB(t))
	ctx := context.Background()

	e := newEntry(1, 10, 20)
	require.NoError(t, store.CreateEntry(ctx, e))

	e.ReservedStock = 3
	e.Normalize(baseTime)
	e.Version = 1
	movement := &inventory.Movement{
		EntryID:        e.ID,
		Type:           inventory.MovementReserve,
		Quantity:       3,
		CurrentBefore:  20,
		CurrentAfter:   20,
		ReservedBefore: 0,
		ReservedAfter:  3,
		ReferenceType:  "reservation",
		ReferenceID:    7,
		ReferenceCode:  "RES20250301AB12",
		CreatedAt:      baseTime,
	}
	require.NoError(t, store.Update(ctx, e, 0, movement))
	assert.NotZero(t, movement.ID)

	// Same expected version again loses
	stale := *e
	stale.ReservedStock = 4
	stale.Version = 1
	err := store.Update(ctx, &stale, 0, &inventory.Movement{EntryID: e.ID, Type: inventory.MovementReserve, CreatedAt: baseTime})
	assert.ErrorIs(t, err, inventory.ErrVersionConflict)

	got, err := store.GetEntry(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ReservedStock)
	assert.Equal(t, 17, got.AvailableStock)
	assert.Equal(t, int64(1), got.Version)

	movements, err := store.ListMovements(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, inventory.MovementReserve, movements[0].Type)
	assert.Equal(t, uint(7), movements[0].ReferenceID)
	assert.Equal(t, "RES20250301AB12", movements[0].ReferenceCode)
	assert.Equal(t, 3, movements[0].ReservedAfter)
}

func TestInventoryStore_ListAndSummary(t *testing.T) {
	store := NewInventoryStore(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.CreateEntry(ctx, newEntry(1, 10, 20)))
	require.NoError(t, store.CreateEntry(ctx, newEntry(1, 11, 2)))
	require.NoError(t, store.CreateEntry(ctx, newEntry(1, 12, 0)))
	require.NoError(t, store.CreateEntry(ctx, newEntry(2, 10, 50)))

	entries, total, err := store.ListEntries(ctx, inventory.Filter{PharmacyID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, entries, 3)

	entries, total, err = store.ListEntries(ctx, inventory.Filter{
		Statuses: []inventory.Status{inventory.StatusLow, inventory.StatusOutOfStock},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, entries, 2)

	entries, total, err = store.ListEntries(ctx, inventory.Filter{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, entries, 1)
	assert.Equal(t, uint(2), entries[0].PharmacyID)

	batch, err := store.ListBatch(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	batch, err = store.ListBatch(ctx, batch[1].ID, 10)
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	summary, err := store.Summary(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalItems)
	assert.Equal(t, int64(2), summary.LowStockItems)
	assert.Equal(t, int64(22*1250), summary.InventoryValue)
}

func newReservation(code string, status reservation.Status, created time.Time) *reservation.Reservation {
	return &reservation.Reservation{
		Code:       code,
		PatientID:  3,
		PharmacyID: 1,
		MedicineID: 10,
		Quantity:   2,
		UnitPrice:  1250,
		TotalPrice: 2500,
		Status:     status,
		ExpiresAt:  created.Add(24 * time.Hour),
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestReservationStore_CreateAndLookup(t *testing.T) {
	store := NewReservationStore(newTestDB(t))
	ctx := context.Background()

	r := newReservation("RES00000001ABCD", reservation.StatusPending, baseTime)
	require.NoError(t, store.Create(ctx, r))
	assert.NotZero(t, r.ID)

	err := store.Create(ctx, newReservation("RES00000001ABCD", reservation.StatusPending, baseTime))
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	exists, err := store.CodeExists(ctx, "RES00000001ABCD")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = store.CodeExists(ctx, "RES00000002ABCD")
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := store.GetByCode(ctx, "RES00000001ABCD")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, reservation.StatusPending, got.Status)
	assert.True(t, r.ExpiresAt.Equal(got.ExpiresAt))

	_, err = store.GetByID(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReservationStore_UpdateStatusIsConditional(t *testing.T) {
	store := NewReservationStore(newTestDB(t))
	ctx := context.Background()

	r := newReservation("RES00000001ABCD", reservation.StatusReady, baseTime)
	require.NoError(t, store.Create(ctx, r))

	at := baseTime.Add(time.Hour)
	won, err := store.UpdateStatus(ctx, r.ID, reservation.StatusReady, reservation.StatusCompleted,
		reservation.StatusChange{Notes: "picked up", At: at})
	require.NoError(t, err)
	assert.True(t, won)

	got, err := store.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCompleted, got.Status)
	assert.Equal(t, "picked up", got.Notes)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, at.Equal(*got.CompletedAt))

	won, err = store.UpdateStatus(ctx, r.ID, reservation.StatusReady, reservation.StatusCancelled,
		reservation.StatusChange{At: at})
	require.NoError(t, err)
	assert.False(t, won)

	// Reverting clears the completion timestamp
	won, err = store.UpdateStatus(ctx, r.ID, reservation.StatusCompleted, reservation.StatusReady,
		reservation.StatusChange{At: at})
	require.NoError(t, err)
	assert.True(t, won)
	got, err = store.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CompletedAt)
	assert.Equal(t, "picked up", got.Notes)
}

func TestReservationStore_List(t *testing.T) {
	store := NewReservationStore(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newReservation("RES00000001AAAA", reservation.StatusPending, baseTime)))
	require.NoError(t, store.Create(ctx, newReservation("RES00000002BBBB", reservation.StatusPending, baseTime.Add(time.Hour))))
	confirmed := newReservation("RES00000003CCCC", reservation.StatusConfirmed, baseTime.Add(2*time.Hour))
	confirmed.PatientID = 4
	require.NoError(t, store.Create(ctx, confirmed))

	all, total, err := store.List(ctx, reservation.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.Equal(t, "RES00000003CCCC", all[0].Code)

	mine, total, err := store.List(ctx, reservation.Filter{PatientID: 3, Limit: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, mine, 1)
	assert.Equal(t, "RES00000001AAAA", mine[0].Code)

	cutoff := baseTime.Add(24*time.Hour + 30*time.Minute)
	expired, _, err := store.List(ctx, reservation.Filter{Status: reservation.StatusPending, ExpiresBefore: &cutoff})
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "RES00000001AAAA", expired[0].Code)

	byID, _, err := store.List(ctx, reservation.Filter{AfterID: all[2].ID, OrderByID: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "RES00000002BBBB", byID[0].Code)
}

func TestMigrateAddsMissingColumns(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Exec(`ALTER TABLE inventory_movements DROP COLUMN reference_code`)
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM pragma_table_info('inventory_movements') WHERE name = 'reference_code'`))
	assert.Equal(t, 1, n)
}

func TestUserStore(t *testing.T) {
	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	pharmacy := &user.User{
		Email:        "care@pharmacy.test",
		Password:     "hash",
		Name:         "Asha",
		Role:         user.RolePharmacy,
		PharmacyName: "Village Care Pharmacy",
		District:     "Nashik",
		IsActive:     true,
	}
	require.NoError(t, store.Create(ctx, pharmacy))
	assert.NotZero(t, pharmacy.ID)

	dup := *pharmacy
	dup.ID = 0
	assert.ErrorIs(t, store.Create(ctx, &dup), apperr.ErrAlreadyExists)

	require.NoError(t, store.Create(ctx, &user.User{
		Email: "ravi@patient.test", Password: "hash", Name: "Ravi", Role: user.RolePatient, IsActive: true,
	}))

	got, err := store.GetByEmail(ctx, "care@pharmacy.test")
	require.NoError(t, err)
	assert.Equal(t, "Village Care Pharmacy", got.PharmacyName)
	assert.Nil(t, got.LastLoginAt)

	require.NoError(t, store.UpdateLastLogin(ctx, got.ID))
	got, err = store.GetByID(ctx, got.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLoginAt)

	pharmacies, err := store.ListByRole(ctx, user.RolePharmacy)
	require.NoError(t, err)
	require.Len(t, pharmacies, 1)
	assert.Equal(t, pharmacy.ID, pharmacies[0].ID)

	_, err = store.GetByID(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMedicineStore(t *testing.T) {
	store := NewMedicineStore(newTestDB(t))
	ctx := context.Background()

	for _, m := range []*medicine.Medicine{
		{Name: "Paracetamol", GenericName: "Acetaminophen", Category: medicine.CategoryPainRelief, Strength: "500mg", IsActive: true},
		{Name: "Amoxicillin", GenericName: "Amoxicillin", Category: medicine.CategoryAntibiotic, IsActive: true},
		{Name: "Metformin", GenericName: "Metformin Hydrochloride", Category: medicine.CategoryDiabetes, IsActive: false},
	} {
		require.NoError(t, store.Create(ctx, m))
	}

	found, total, err := store.Search(ctx, medicine.SearchFilter{Query: "ACETA"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, found, 1)
	assert.Equal(t, "Paracetamol", found[0].Name)

	found, total, err = store.Search(ctx, medicine.SearchFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "Amoxicillin", found[0].Name)

	found, _, err = store.Search(ctx, medicine.SearchFilter{Category: medicine.CategoryAntibiotic})
	require.NoError(t, err)
	require.Len(t, found, 1)

	got, err := store.GetByID(ctx, found[0].ID)
	require.NoError(t, err)
	assert.Equal(t, medicine.CategoryAntibiotic, got.Category)

	_, err = store.GetByID(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
