package reservation_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ruralcare/medreserve/internal/config"
	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"github.com/ruralcare/medreserve/internal/domain/inventory"
	"github.com/ruralcare/medreserve/internal/domain/notification"
	"github.com/ruralcare/medreserve/internal/domain/reservation"
	"github.com/ruralcare/medreserve/internal/infrastructure/database/sqlite"
	"github.com/ruralcare/medreserve/internal/pkg/clock"
	"github.com/ruralcare/medreserve/internal/pkg/logger"
	"github.com/ruralcare/medreserve/internal/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pharmacyID = uint(1)
	medicineID = uint(10)
)

var (
	start    = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	patient  = reservation.Actor{ID: 100, Role: reservation.RolePatient}
	other    = reservation.Actor{ID: 101, Role: reservation.RolePatient}
	pharmacy = reservation.Actor{ID: pharmacyID, Role: reservation.RolePharmacy}
	admin    = reservation.Actor{ID: 1000, Role: reservation.RoleAdmin}
)

type harness struct {
	config   *config.Config
	ledger   *inventory.Service
	store    reservation.Store
	service  *reservation.Service
	recorder *notification.Recorder
	clock    *clock.Manual
	metrics  *metrics.Metrics
}

func testConfig() *config.Config {
	return &config.Config{
		Reservation: config.ReservationConfig{
			HoldDuration:    24 * time.Hour,
			CodeRetries:     5,
			ConflictRetries: 1000,
		},
		Jobs: config.JobsConfig{SweepBatchSize: 2},
	}
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, nil, nil)
}

// newHarnessWith lets a test wrap the reservation store or the ledger
func newHarnessWith(t *testing.T, wrapStore func(reservation.Store) reservation.Store, wrapLedger func(reservation.Ledger) reservation.Ledger) *harness {
	t.Helper()
	db, err := sqlite.ConnectInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &harness{
		config:   testConfig(),
		recorder: notification.NewRecorder(),
		clock:    clock.NewManual(start),
		metrics:  metrics.New(nil),
	}
	log := logger.Discard()
	h.ledger = inventory.NewService(sqlite.NewInventoryStore(db), h.config, h.clock, log, h.metrics)

	h.store = sqlite.NewReservationStore(db)
	store := h.store
	if wrapStore != nil {
		store = wrapStore(store)
	}
	var ledger reservation.Ledger = h.ledger
	if wrapLedger != nil {
		ledger = wrapLedger(ledger)
	}
	h.service = reservation.NewService(store, ledger, h.recorder, h.config, h.clock, log, h.metrics)
	return h
}

func (h *harness) stock(t *testing.T, current int, price int64) {
	t.Helper()
	_, err := h.ledger.Stock(context.Background(), &inventory.StockRequest{
		PharmacyID:    pharmacyID,
		MedicineID:    medicineID,
		CurrentStock:  current,
		MaxStockLevel: 100,
		Price:         price,
	})
	require.NoError(t, err)
}

func (h *harness) entry(t *testing.T) *inventory.Entry {
	t.Helper()
	e, err := h.ledger.GetEntry(context.Background(), pharmacyID, medicineID)
	require.NoError(t, err)
	return e
}

func (h *harness) reserve(t *testing.T, actor reservation.Actor, quantity int) *reservation.Reservation {
	t.Helper()
	r, err := h.service.Create(context.Background(), actor, &reservation.CreateRequest{
		PharmacyID: pharmacyID,
		MedicineID: medicineID,
		Quantity:   quantity,
	})
	require.NoError(t, err)
	return r
}

func (h *harness) move(t *testing.T, id uint, actor reservation.Actor, statuses ...reservation.Status) *reservation.Reservation {
	t.Helper()
	var r *reservation.Reservation
	for _, status := range statuses {
		var err error
		r, err = h.service.Transition(context.Background(), id, &reservation.TransitionRequest{Status: status}, actor)
		require.NoError(t, err)
	}
	return r
}

func TestCreate(t *testing.T) {
	h := newHarness(t)
	h.stock(t, 10, 12)

	r := h.reserve(t, patient, 3)

	assert.NotZero(t, r.ID)
	assert.Regexp(t, regexp.MustCompile(`^RES\d{8}[A-Z0-9]{4}$`), r.Code)
	assert.Equal(t, reservation.StatusPending, r.Status)
	assert.Equal(t, patient.ID, r.PatientID)
	assert.Equal(t, int64(36), r.TotalPrice)
	assert.Equal(t, start.Add(24*time.Hour), r.ExpiresAt)

	e := h.entry(t)
	assert.Equal(t, 3, e.ReservedStock)
	assert.Equal(t, 7, e.AvailableStock)

	assert.Equal(t, []notification.EventType{notification.EventReservationCreated}, h.recorder.Types())
	event := h.recorder.Events()[0]
	assert.Equal(t, r.Code, event.ReservationCode)
	assert.Equal(t, 3, event.Quantity)
	assert.Equal(t, patient.ID, event.ActorID)
	assert.Equal(t, string(reservation.RolePatient), event.ActorRole)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.ReservationsCreated))
}

func TestCreateInsufficientStock(t *testing.T) {
	h := newHarness(t)
	h.stock(t, 2, 12)

	_, err := h.service.Create(context.Background(), patient, &reservation.CreateRequest{
		PharmacyID: pharmacyID, MedicineID: medicineID, Quantity: 5,
	})
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)
	available, ok := apperr.AvailableStock(err)
	require.True(t, ok)
	assert.Equal(t, 2, available)

	list, err := h.service.List(context.Background(), admin, reservation.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list.Reservations)

	e := h.entry(t)
	assert.Equal(t, 2, e.CurrentStock)
	assert.Equal(t, 0, e.ReservedStock)
	assert.Empty(t, h.recorder.Events())
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)
	h.stock(t, 10, 12)
	ctx := context.Background()

	_, err := h.service.Create(ctx, pharmacy, &reservation.CreateRequest{PharmacyID: pharmacyID, MedicineID: medicineID, Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = h.service.Create(ctx, admin, &reservation.CreateRequest{PharmacyID: pharmacyID, MedicineID: medicineID, Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = h.service.Create(ctx, patient, &reservation.CreateRequest{PharmacyID: pharmacyID, MedicineID: medicineID, Quantity: 0})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = h.service.Create(ctx, patient, &reservation.CreateRequest{PharmacyID: pharmacyID, MedicineID: 99, Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	r, err := h.service.Create(ctx, admin, &reservation.CreateRequest{PharmacyID: pharmacyID, MedicineID: medicineID, Quantity: 1, PatientID: patient.ID})
	require.NoError(t, err)
	assert.Equal(t, patient.ID, r.PatientID)
}

func TestHappyPathToCompletion(t *testing.T) {
	h := newHarness(t)
	h.stock(t, 10, 12)
	r := h.reserve(t, patient, 3)

	h.clock.Advance(time.Hour)
	completed := h.move(t, r.ID, pharmacy, reservation.StatusConfirmed, reservation.StatusReady, reservation.StatusCompleted)
	assert.Equal(t, reservation.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.Equal(t, start.Add(time.Hour), *completed.CompletedAt)

	e := h.entry(t)
	assert.Equal(t, 7, e.CurrentStock)
	assert.Equal(t, 0, e.ReservedStock)
	assert.Equal(t, 7, e.AvailableStock)

	assert.Equal(t, []notification.EventType{
		notification.EventReservationCreated,
		notification.EventReservationConfirmed,
		notification.EventReservationReady,
		notification.EventReservationCompleted,
	}, h.recorder.Types())
}

func TestSameStateTransitionIsNoop(t *testing.T) {
	h := newHarness(t)
	h.stock(t, 10, 12)
	r := h.reserve(t, patient, 3)

	confirmed := h.move(t, r.ID, pharmacy, reservation.StatusConfirmed)
	h.clock.Advance(time.Hour)
	again := h.move(t, r.ID, pharmacy, reservation.StatusConfirmed)

	assert.Equal(t, confirmed.UpdatedAt, again.UpdatedAt)
	assert.Len(t, h.recorder.Events(), 2)
	assert.Equal(t, 3, h.entry(t).ReservedStock)

	// A stranger gets no answer about someone else's reservation
	_, err := h.service.Transition(context.Background(), r.ID, &reservation.TransitionRequest{Status: reservation.StatusConfirmed}, other)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestLateCancelAfterCompletionRejected(t *testing.T) {
	h := newHarness(t)
	h.stock(t, 10, 12)
	r := h.reserve(t, patient, 3)
	h.move(t, r.ID, pharmacy, reservation.StatusConfirmed, reservation.StatusReady, reservation.StatusCompleted)
	before := h.entry(t)

	_, err := h.service.Cancel(context.Background(), r.ID, admin, "changed mind")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	after := h.entry(t)
	assert.Equal(t, before.CurrentStock, after.CurrentStock)
	assert.Equal(t, before.ReservedStock, after.ReservedStock)
	assert.Equal(t, before.Version, after.Version)
}

func TestTransitionAuthorization(t *testing.T) {
	h := newHarness(t)
	h.stock(t, 10, 12)
	ctx := context.Background()
	r := h.reserve(t, patient, 2)

	tests := []struct {
		name   string
		actor  reservation.Actor
		target reservation.Status
	}{
		{"patient cannot confirm", patient, reservation.StatusConfirmed},
		{"other patient cannot cancel", other, reservation.StatusCancelled},
		{"other pharmacy cannot confirm", reservation.Actor{ID: 2, Role: reservation.RolePharmacy}, reservation.StatusConfirmed},
		{"admin cannot expire", admin, reservation.StatusExpired},
		{"pharmacy cannot expire", pharmacy, reservation.StatusExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.service.Transition(ctx, r.ID, &reservation.TransitionRequest{Status: tt.target}, tt.actor)
			assert.ErrorIs(t, err, apperr.ErrForbidden)
		})
	}

	_, err := h.service.Transition(ctx, r.ID, &reservation.TransitionRequest{Status: "shipped"}, admin)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = h.service.Transition(ctx, 999, &reservation.TransitionRequest{Status: reservation.StatusConfirmed}, admin)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = h.service.Transition(ctx, r.ID, &reservation.TransitionRequest{Status: reservation.StatusCompleted}, pharmacy)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	cancelled, err := h.service.Cancel(ctx, r.ID, patient, "found it elsewhere")
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCancelled, cancelled.Status)
	assert.Equal(t, "found it elsewhere", cancelled.Notes)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 0, h.entry(t).ReservedStock)
}

func TestPickupInstructionsStored(t *testing.T) {
	h := newHarness(t)
	h.stock(t, 10, 12)
	r := h.reserve(t, patient, 1)
	h.move(t, r.ID, pharmacy, reservation.StatusConfirmed)

	ready, err := h.service.Transition(context.Background(), r.ID, &reservation.TransitionRequest{
		Status:             reservation.StatusReady,
		PickupInstructions: "Counter 2, after 4pm",
	}, pharmacy)
	require.NoError(t, err)
	assert.Equal(t, "Counter 2, after 4pm", ready.PickupInstructions)

	events := h.recorder.Events()
	assert.Equal(t, "Counter 2, after 4pm", events[len(events)-1].PickupInstructions)
}

func TestExpire(t *testing.T) {
	h := newHarness(t)
	h.stock(t, 10, 12)
	ctx := context.Background()
	r := h.reserve(t, patient, 4)

	_, err := h.service.Expire(ctx, r.ID, start.Add(time.Hour))
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	expired, err := h.service.Expire(ctx, r.ID, start.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusExpired, expired.Status)
	assert.Equal(t, 0, h.entry(t).ReservedStock)
	assert.Equal(t, 10, h.entry(t).AvailableStock)

	// Expiring twice is a no-op
	_, err = h.service.Expire(ctx, r.ID, start.Add(26*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, h.entry(t).ReservedStock)

	// Confirmed reservations never expire
	r2 := h.reserve(t, patient, 1)
	h.move(t, r2.ID, pharmacy, reservation.StatusConfirmed)
	_, err = h.service.Expire(ctx, r2.ID, start.Add(48*time.Hour))
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestSweepAndConfirmRaceHasOneWinner(t *testing.T) {
	for i := 0; i < 20; i++ {
		h := newHarness(t)
		h.stock(t, 10, 12)
		r := h.reserve(t, patient, 3)
		later := start.Add(25 * time.Hour)
		h.clock.Set(later)

		var (
			wg                    sync.WaitGroup
			expireErr, confirmErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, expireErr = h.service.Expire(context.Background(), r.ID, later)
		}()
		go func() {
			defer wg.Done()
			_, confirmErr = h.service.Transition(context.Background(), r.ID,
				&reservation.TransitionRequest{Status: reservation.StatusConfirmed}, pharmacy)
		}()
		wg.Wait()

		require.True(t, (expireErr == nil) != (confirmErr == nil), "expire=%v confirm=%v", expireErr, confirmErr)

		final, err := h.service.Get(context.Background(), r.ID, admin)
		require.NoError(t, err)
		e := h.entry(t)
		if expireErr == nil {
			assert.ErrorIs(t, confirmErr, apperr.ErrInvalidTransition)
			assert.Equal(t, reservation.StatusExpired, final.Status)
			assert.Equal(t, 0, e.ReservedStock)
		} else {
			assert.ErrorIs(t, expireErr, apperr.ErrInvalidTransition)
			assert.Equal(t, reservation.StatusConfirmed, final.Status)
			assert.Equal(t, 3, e.ReservedStock)
		}
	}
}

func TestConcurrentCreatesNeverOversell(t *testing.T) {
	h := newHarness(t)
	h.stock(t, 10, 12)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := h.service.Create(context.Background(), reservation.Actor{ID: id, Role: reservation.RolePatient},
				&reservation.CreateRequest{PharmacyID: pharmacyID, MedicineID: medicineID, Quantity: 2})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
				return
			}
			if !errors.Is(err, apperr.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}(uint(200 + i))
	}
	wg.Wait()

	assert.Equal(t, 5, created)
	e := h.entry(t)
	assert.Equal(t, 10, e.ReservedStock)
	assert.Equal(t, 0, e.AvailableStock)
}

func TestLifecyclesConserveStock(t *testing.T) {
	h := newHarness(t)
	h.stock(t, 20, 12)
	ctx := context.Background()

	completed := h.reserve(t, patient, 3)
	cancelledEarly := h.reserve(t, patient, 2)
	cancelledLate := h.reserve(t, other, 4)
	expired := h.reserve(t, other, 1)

	h.move(t, completed.ID, pharmacy, reservation.StatusConfirmed, reservation.StatusReady, reservation.StatusCompleted)
	_, err := h.service.Cancel(ctx, cancelledEarly.ID, patient, "")
	require.NoError(t, err)
	h.move(t, cancelledLate.ID, pharmacy, reservation.StatusConfirmed, reservation.StatusReady, reservation.StatusCancelled)
	_, err = h.service.Expire(ctx, expired.ID, start.Add(48*time.Hour))
	require.NoError(t, err)

	e := h.entry(t)
	assert.Equal(t, 0, e.ReservedStock)
	assert.Equal(t, 17, e.CurrentStock)
	assert.Equal(t, 17, e.AvailableStock)
}

// failingLedger fails every release
type failingLedger struct {
	reservation.Ledger
}

func (failingLedger) Release(context.Context, uint, uint, int, inventory.Reference) (*inventory.Entry, error) {
	return nil, apperr.ErrConflictRetryExhausted
}

func TestLedgerFailureRevertsStatus(t *testing.T) {
	h := newHarnessWith(t, nil, func(l reservation.Ledger) reservation.Ledger { return failingLedger{Ledger: l} })
	h.stock(t, 10, 12)
	r := h.reserve(t, patient, 3)

	_, err := h.service.Cancel(context.Background(), r.ID, patient, "")
	assert.ErrorIs(t, err, apperr.ErrConflictRetryExhausted)

	current, err := h.service.Get(context.Background(), r.ID, patient)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusPending, current.Status)
	assert.Nil(t, current.CancelledAt)
	assert.Equal(t, 3, h.entry(t).ReservedStock)
}

// collidingStore reports every code as taken
type collidingStore struct {
	reservation.Store
}

func (collidingStore) CodeExists(context.Context, string) (bool, error) { return true, nil }

func TestCodeCollisionsReleaseTheHold(t *testing.T) {
	h := newHarnessWith(t, func(s reservation.Store) reservation.Store { return collidingStore{Store: s} }, nil)
	h.stock(t, 10, 12)

	_, err := h.service.Create(context.Background(), patient, &reservation.CreateRequest{
		PharmacyID: pharmacyID, MedicineID: medicineID, Quantity: 3,
	})
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	e := h.entry(t)
	assert.Equal(t, 0, e.ReservedStock)
	assert.Equal(t, 10, e.AvailableStock)
	assert.Empty(t, h.recorder.Events())
}

func TestListAndGetScoping(t *testing.T) {
	h := newHarness(t)
	h.stock(t, 50, 12)
	ctx := context.Background()

	mine := h.reserve(t, patient, 1)
	h.clock.Advance(time.Minute)
	h.reserve(t, patient, 1)
	h.clock.Advance(time.Minute)
	theirs := h.reserve(t, other, 1)

	list, err := h.service.List(ctx, patient, reservation.Filter{})
	require.NoError(t, err)
	assert.Len(t, list.Reservations, 2)
	assert.Equal(t, int64(2), list.Pagination.Total)
	assert.Equal(t, 20, list.Pagination.Limit)

	list, err = h.service.List(ctx, pharmacy, reservation.Filter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Pagination.Total)
	assert.Equal(t, 2, list.Pagination.TotalPages)
	assert.True(t, list.Pagination.HasNext)
	assert.Equal(t, theirs.ID, list.Reservations[0].ID)

	list, err = h.service.List(ctx, reservation.Actor{ID: 2, Role: reservation.RolePharmacy}, reservation.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list.Reservations)

	list, err = h.service.List(ctx, admin, reservation.Filter{Status: reservation.StatusPending, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, list.Pagination.Limit)
	assert.Len(t, list.Reservations, 3)

	_, err = h.service.List(ctx, admin, reservation.Filter{Status: "lost"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = h.service.Get(ctx, mine.ID, other)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	got, err := h.service.GetByCode(ctx, mine.Code, pharmacy)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	expired, err := h.service.ListExpired(ctx, start.Add(25*time.Hour), 0, 10)
	require.NoError(t, err)
	require.Len(t, expired, 3)
	assert.Less(t, expired[0].ID, expired[1].ID)

	rest, err := h.service.ListExpired(ctx, start.Add(25*time.Hour), expired[0].ID, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}

// cancellingStore cancels the caller's context once a write lands
type cancellingStore struct {
	reservation.Store
	cancel context.CancelFunc
}

func (s *cancellingStore) Create(ctx context.Context, r *reservation.Reservation) error {
	s.cancel()
	return s.Store.Create(ctx, r)
}

func (s *cancellingStore) UpdateStatus(ctx context.Context, id uint, from, to reservation.Status, change reservation.StatusChange) (bool, error) {
	won, err := s.Store.UpdateStatus(ctx, id, from, to, change)
	s.cancel()
	return won, err
}

func TestCancelSurvivesCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &cancellingStore{cancel: func() {}}
	h := newHarnessWith(t, func(s reservation.Store) reservation.Store {
		store.Store = s
		return store
	}, nil)
	h.stock(t, 10, 12)
	r := h.reserve(t, patient, 3)

	store.cancel = cancel
	cancelled, err := h.service.Cancel(ctx, r.ID, patient, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCancelled, cancelled.Status)
	assert.Error(t, ctx.Err())

	e := h.entry(t)
	assert.Equal(t, 0, e.ReservedStock)
	assert.Equal(t, 10, e.AvailableStock)
}

func TestCreateSurvivesCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &cancellingStore{cancel: cancel}
	h := newHarnessWith(t, func(s reservation.Store) reservation.Store {
		store.Store = s
		return store
	}, nil)
	h.stock(t, 10, 12)

	r, err := h.service.Create(ctx, patient, &reservation.CreateRequest{
		PharmacyID: pharmacyID, MedicineID: medicineID, Quantity: 3,
	})
	require.NoError(t, err)
	assert.Error(t, ctx.Err())

	stored, err := h.service.Get(context.Background(), r.ID, patient)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusPending, stored.Status)
	assert.Equal(t, 3, h.entry(t).ReservedStock)
}

// takenOnceStore loses the first insert to a concurrent writer
type takenOnceStore struct {
	reservation.Store
	inserts int
}

func (s *takenOnceStore) Create(ctx context.Context, r *reservation.Reservation) error {
	s.inserts++
	if s.inserts == 1 {
		return apperr.ErrAlreadyExists
	}
	return s.Store.Create(ctx, r)
}

func TestMovementsCarryReservationCode(t *testing.T) {
	store := &takenOnceStore{}
	h := newHarnessWith(t, func(s reservation.Store) reservation.Store {
		store.Store = s
		return store
	}, nil)
	h.stock(t, 10, 12)
	ctx := context.Background()

	r := h.reserve(t, patient, 3)
	_, err := h.service.Cancel(ctx, r.ID, patient, "")
	require.NoError(t, err)
	assert.Equal(t, 2, store.inserts)

	movements, err := h.ledger.Movements(ctx, h.entry(t).ID)
	require.NoError(t, err)

	var held []inventory.Movement
	for _, m := range movements {
		if m.Type == inventory.MovementReserve || m.Type == inventory.MovementRelease {
			held = append(held, m)
		}
	}
	require.Len(t, held, 4)

	// The lost insert is undone under its own code
	lost := held[0].ReferenceCode
	assert.NotEmpty(t, lost)
	assert.NotEqual(t, r.Code, lost)
	assert.Equal(t, inventory.MovementRelease, held[1].Type)
	assert.Equal(t, lost, held[1].ReferenceCode)

	assert.Equal(t, inventory.MovementReserve, held[2].Type)
	assert.Equal(t, r.Code, held[2].ReferenceCode)
	assert.Equal(t, inventory.MovementRelease, held[3].Type)
	assert.Equal(t, r.Code, held[3].ReferenceCode)
	assert.Equal(t, r.ID, held[3].ReferenceID)
	for _, m := range held {
		assert.Equal(t, "reservation", m.ReferenceType)
	}
	assert.Zero(t, h.entry(t).ReservedStock)
}

func TestEventsCarryActor(t *testing.T) {
	h := newHarness(t)
	h.stock(t, 10, 12)
	ctx := context.Background()

	confirmed := h.reserve(t, patient, 1)
	h.move(t, confirmed.ID, pharmacy, reservation.StatusConfirmed)
	lapsed := h.reserve(t, other, 1)
	_, err := h.service.Expire(ctx, lapsed.ID, start.Add(25*time.Hour))
	require.NoError(t, err)

	events := h.recorder.Events()
	require.Len(t, events, 4)
	assert.Equal(t, notification.EventReservationConfirmed, events[1].Type)
	assert.Equal(t, pharmacy.ID, events[1].ActorID)
	assert.Equal(t, string(reservation.RolePharmacy), events[1].ActorRole)
	assert.Equal(t, other.ID, events[2].ActorID)
	assert.Equal(t, notification.EventReservationExpired, events[3].Type)
	assert.Equal(t, string(reservation.RoleSystem), events[3].ActorRole)
}
