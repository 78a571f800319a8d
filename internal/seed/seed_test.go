package seed

import (
	"context"
	"testing"
	"time"

	"github.com/ruralcare/medreserve/internal/config"
	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"github.com/ruralcare/medreserve/internal/domain/inventory"
	"github.com/ruralcare/medreserve/internal/domain/medicine"
	"github.com/ruralcare/medreserve/internal/domain/user"
	"github.com/ruralcare/medreserve/internal/infrastructure/database/sqlite"
	"github.com/ruralcare/medreserve/internal/pkg/clock"
	"github.com/ruralcare/medreserve/internal/pkg/logger"
	"github.com/ruralcare/medreserve/internal/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeeder(t *testing.T) (*Seeder, *inventory.Service, *user.Service) {
	t.Helper()
	db, err := sqlite.ConnectInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.Security.BcryptCost = 4
	cfg.JWT.Secret = "test-secret-that-is-long-enough-0123456789"
	cfg.JWT.AccessTokenExpiry = time.Hour
	cfg.Reservation.ConflictRetries = 10

	clk := clock.NewManual(time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC))
	log := logger.Discard()
	users := user.NewService(sqlite.NewUserStore(db), cfg, clk, log)
	ledger := inventory.NewService(sqlite.NewInventoryStore(db), cfg, clk, log, metrics.New(nil))
	medicines := medicine.NewService(sqlite.NewMedicineStore(db), log)
	return NewSeeder(users, medicines, ledger, log), ledger, users
}

func TestDefaultFixturesParse(t *testing.T) {
	fixtures, err := Load("")
	require.NoError(t, err)
	assert.Len(t, fixtures.Users, 4)
	assert.Len(t, fixtures.Medicines, 4)
	assert.Len(t, fixtures.Inventory, 4)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("users:\n  - email: a@b.c\n    colour: blue\n"))
	assert.Error(t, err)
}

func TestApplyIsIdempotent(t *testing.T) {
	seeder, ledger, users := newSeeder(t)
	ctx := context.Background()
	fixtures, err := Load("")
	require.NoError(t, err)

	result, err := seeder.Apply(ctx, fixtures)
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 4, Medicines: 4, Inventory: 4}, result)

	again, err := seeder.Apply(ctx, fixtures)
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 12}, again)

	pharmacies, err := users.ListPharmacies(ctx)
	require.NoError(t, err)
	require.Len(t, pharmacies, 2)

	entries, total, err := ledger.List(ctx, inventory.Filter{PharmacyID: pharmacies[0].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 2)
	assert.Equal(t, inventory.StatusAvailable, entries[0].Status)
	assert.Equal(t, inventory.StatusLow, entries[1].Status)
	require.NotNil(t, entries[0].ExpiryDate)

	low, err := ledger.LowStock(ctx)
	require.NoError(t, err)
	assert.Len(t, low, 2)
}

func TestApplyRejectsDanglingReferences(t *testing.T) {
	seeder, _, _ := newSeeder(t)
	_, err := seeder.Apply(context.Background(), &Fixtures{
		Inventory: []InventoryFixture{{Pharmacy: "nobody@example.com", Medicine: "x"}},
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
