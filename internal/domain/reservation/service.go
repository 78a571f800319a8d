// internal/domain/reservation/service.go
package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ruralcare/medreserve/internal/config"
	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"github.com/ruralcare/medreserve/internal/domain/inventory"
	"github.com/ruralcare/medreserve/internal/domain/notification"
	"github.com/ruralcare/medreserve/internal/pkg/clock"
	"github.com/ruralcare/medreserve/internal/pkg/metrics"
	"github.com/sirupsen/logrus"
)

const settleTimeout = 15 * time.Second

// Ledger is the part of the inventory ledger reservations drive
type Ledger interface {
	GetEntry(ctx context.Context, pharmacyID, medicineID uint) (*inventory.Entry, error)
	Reserve(ctx context.Context, pharmacyID, medicineID uint, quantity int, ref inventory.Reference) (*inventory.Entry, error)
	Release(ctx context.Context, pharmacyID, medicineID uint, quantity int, ref inventory.Reference) (*inventory.Entry, error)
	Consume(ctx context.Context, pharmacyID, medicineID uint, quantity int, ref inventory.Reference) (*inventory.Entry, error)
}

// Service handles reservation business logic
type Service struct {
	store    Store
	ledger   Ledger
	notifier notification.Notifier
	config   *config.Config
	clock    clock.Clock
	logger   logrus.FieldLogger
	metrics  *metrics.Metrics
}

// NewService creates a new reservation service
func NewService(store Store, ledger Ledger, notifier notification.Notifier, cfg *config.Config, clk clock.Clock, logger logrus.FieldLogger, m *metrics.Metrics) *Service {
	return &Service{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		config:   cfg,
		clock:    clk,
		logger:   logger.WithField("component", "reservation"),
		metrics:  m,
	}
}

// Create reserves stock and records a pending reservation
func (s *Service) Create(ctx context.Context, actor Actor, req *CreateRequest) (*Reservation, error) {
	patientID, err := s.patientFor(actor, req)
	if err != nil {
		return nil, err
	}
	if req.Quantity < 1 {
		return nil, apperr.InvalidInput("quantity must be at least 1")
	}

	entry, err := s.ledger.GetEntry(ctx, req.PharmacyID, req.MedicineID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	reservation := &Reservation{
		PatientID:  patientID,
		PharmacyID: req.PharmacyID,
		MedicineID: req.MedicineID,
		Quantity:   req.Quantity,
		UnitPrice:  entry.Price,
		TotalPrice: entry.Price * int64(req.Quantity),
		Status:     StatusPending,
		ExpiresAt:  now.Add(s.config.Reservation.HoldDuration),
		Notes:      req.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.holdAndPersist(ctx, reservation); err != nil {
		return nil, err
	}

	s.metrics.ReservationsCreated.Inc()
	s.logger.WithFields(logrus.Fields{
		"reservation_code": reservation.Code,
		"patient_id":       reservation.PatientID,
		"pharmacy_id":      reservation.PharmacyID,
		"quantity":         reservation.Quantity,
	}).Info("Reservation created")

	s.notify(notification.EventReservationCreated, reservation, actor)

	return reservation, nil
}

// Transition moves a reservation to target, applying its ledger effect
func (s *Service) Transition(ctx context.Context, id uint, req *TransitionRequest, actor Actor) (*Reservation, error) {
	return s.transition(ctx, id, req, actor, s.clock.Now())
}

func (s *Service) transition(ctx context.Context, id uint, req *TransitionRequest, actor Actor, now time.Time) (*Reservation, error) {
	if !req.Status.IsValid() {
		return nil, apperr.InvalidInput("unknown status %q", req.Status)
	}

	reservation, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if reservation.Status == req.Status {
		if err := CanView(actor, reservation); err != nil {
			return nil, err
		}
		return reservation, nil
	}

	if !CanTransition(reservation.Status, req.Status) {
		return nil, invalidTransition(reservation.Status, req.Status)
	}
	if err := Authorize(actor, reservation, req.Status); err != nil {
		return nil, err
	}
	if req.Status == StatusExpired && !reservation.IsExpired(now) {
		return nil, fmt.Errorf("%w: reservation %s has not reached its expiry", apperr.ErrInvalidTransition, reservation.Code)
	}

	from := reservation.Status
	change := StatusChange{Notes: req.Notes, PickupInstructions: req.PickupInstructions, At: now}

	won, err := s.store.UpdateStatus(ctx, id, from, req.Status, change)
	if err != nil {
		return nil, fmt.Errorf("failed to update reservation status: %w", err)
	}
	if !won {
		return s.afterLostRace(ctx, id, req.Status)
	}

	// The status is committed; its ledger effect must land even if the caller goes away
	settleCtx, cancel := s.settleContext(ctx)
	defer cancel()

	if err := s.applyLedgerEffect(settleCtx, reservation, req.Status); err != nil {
		s.revert(settleCtx, reservation, req.Status, from)
		return nil, err
	}

	updated, err := s.store.GetByID(settleCtx, id)
	if err != nil {
		return nil, err
	}

	s.metrics.Transitions.WithLabelValues(string(req.Status)).Inc()
	s.logger.WithFields(logrus.Fields{
		"reservation_code": updated.Code,
		"from":             from,
		"to":               updated.Status,
		"actor_role":       actor.Role,
	}).Info("Reservation status updated")

	s.notify(eventFor(updated.Status), updated, actor)

	return updated, nil
}

// Cancel cancels a non-terminal reservation and releases its hold
func (s *Service) Cancel(ctx context.Context, id uint, actor Actor, reason string) (*Reservation, error) {
	return s.Transition(ctx, id, &TransitionRequest{Status: StatusCancelled, Notes: reason}, actor)
}

// Expire expires a pending reservation whose hold has lapsed at now
func (s *Service) Expire(ctx context.Context, id uint, now time.Time) (*Reservation, error) {
	return s.transition(ctx, id, &TransitionRequest{Status: StatusExpired}, System, now)
}

// Get returns a reservation the actor may see
func (s *Service) Get(ctx context.Context, id uint, actor Actor) (*Reservation, error) {
	reservation, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CanView(actor, reservation); err != nil {
		return nil, err
	}
	return reservation, nil
}

// GetByCode returns a reservation by its pickup code
func (s *Service) GetByCode(ctx context.Context, code string, actor Actor) (*Reservation, error) {
	reservation, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := CanView(actor, reservation); err != nil {
		return nil, err
	}
	return reservation, nil
}

// List returns the reservations visible to the actor
func (s *Service) List(ctx context.Context, actor Actor, filter Filter) (*ListResponse, error) {
	switch actor.Role {
	case RolePatient:
		filter.PatientID = actor.ID
	case RolePharmacy:
		filter.PharmacyID = actor.ID
	case RoleAdmin, RoleSystem:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", apperr.ErrForbidden, actor.Role)
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperr.InvalidInput("unknown status %q", filter.Status)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	reservations, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &ListResponse{
		Reservations: reservations,
		Pagination: Pagination{
			Page:       filter.Page,
			Limit:      filter.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    filter.Page < totalPages,
			HasPrev:    filter.Page > 1,
		},
	}, nil
}

// ListExpired returns up to limit pending reservations whose hold lapsed
// before now, in ID order starting after afterID
func (s *Service) ListExpired(ctx context.Context, now time.Time, afterID uint, limit int) ([]Reservation, error) {
	reservations, _, err := s.store.List(ctx, Filter{
		Status:        StatusPending,
		ExpiresBefore: &now,
		AfterID:       afterID,
		OrderByID:     true,
		Limit:         limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list expired reservations: %w", err)
	}
	return reservations, nil
}

func (s *Service) patientFor(actor Actor, req *CreateRequest) (uint, error) {
	switch actor.Role {
	case RolePatient:
		return actor.ID, nil
	case RoleAdmin:
		if req.PatientID == 0 {
			return 0, apperr.InvalidInput("patient_id is required when reserving for a patient")
		}
		return req.PatientID, nil
	default:
		return 0, fmt.Errorf("%w: only patients can reserve medicines", apperr.ErrForbidden)
	}
}

// holdAndPersist picks a free pickup code, holds stock under it and inserts
// the reservation. A failed insert releases the hold before returning.
func (s *Service) holdAndPersist(ctx context.Context, reservation *Reservation) error {
	var lastErr error
	for attempt := 0; attempt < s.config.Reservation.CodeRetries; attempt++ {
		code := GenerateCode(s.clock.Now())

		exists, err := s.store.CodeExists(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		if exists {
			lastErr = fmt.Errorf("reservation code %s: %w", code, apperr.ErrAlreadyExists)
			continue
		}

		ref := inventory.Reference{Type: "reservation", Code: code}
		// Hold first; nothing is persisted when the stock is not there
		if _, err := s.ledger.Reserve(ctx, reservation.PharmacyID, reservation.MedicineID, reservation.Quantity, ref); err != nil {
			return err
		}

		reservation.Code = code
		err = s.insertHeld(ctx, reservation, ref)
		if err == nil {
			return nil
		}
		reservation.Code = ""
		if !errors.Is(err, apperr.ErrAlreadyExists) {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		lastErr = err
	}
	return fmt.Errorf("failed to create reservation: could not generate a unique reservation code: %w", lastErr)
}

// insertHeld stores a reservation whose stock is already held
func (s *Service) insertHeld(ctx context.Context, reservation *Reservation, ref inventory.Reference) error {
	settleCtx, cancel := s.settleContext(ctx)
	defer cancel()

	err := s.store.Create(settleCtx, reservation)
	if err == nil {
		return nil
	}
	if _, releaseErr := s.ledger.Release(settleCtx, reservation.PharmacyID, reservation.MedicineID, reservation.Quantity, ref); releaseErr != nil {
		s.logger.WithError(releaseErr).WithFields(logrus.Fields{
			"reservation_code": ref.Code,
			"pharmacy_id":      reservation.PharmacyID,
			"medicine_id":      reservation.MedicineID,
			"quantity":         reservation.Quantity,
		}).Error("Failed to release hold after reservation insert failed")
	}
	return err
}

// settleContext detaches work that must finish once stock has moved
func (s *Service) settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

// afterLostRace resolves a status update that found the row already changed
func (s *Service) afterLostRace(ctx context.Context, id uint, target Status) (*Reservation, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == target {
		return current, nil
	}
	return nil, invalidTransition(current.Status, target)
}

func (s *Service) applyLedgerEffect(ctx context.Context, r *Reservation, target Status) error {
	ref := inventory.Reference{Type: "reservation", ID: r.ID, Code: r.Code}
	var err error
	switch target {
	case StatusCompleted:
		_, err = s.ledger.Consume(ctx, r.PharmacyID, r.MedicineID, r.Quantity, ref)
	case StatusCancelled, StatusExpired:
		_, err = s.ledger.Release(ctx, r.PharmacyID, r.MedicineID, r.Quantity, ref)
	}
	return err
}

func (s *Service) revert(ctx context.Context, r *Reservation, to, from Status) {
	ok, err := s.store.UpdateStatus(ctx, r.ID, to, from, StatusChange{At: s.clock.Now()})
	if err != nil || !ok {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"reservation_code": r.Code,
			"status":           to,
			"restore":          from,
		}).Error("Failed to revert reservation status after ledger error")
	}
}

func (s *Service) notify(eventType notification.EventType, r *Reservation, actor Actor) {
	event := notification.NewEvent(eventType, s.clock.Now())
	event.ActorID = actor.ID
	event.ActorRole = string(actor.Role)
	event.ReservationID = r.ID
	event.ReservationCode = r.Code
	event.PatientID = r.PatientID
	event.PharmacyID = r.PharmacyID
	event.MedicineID = r.MedicineID
	event.Quantity = r.Quantity
	event.TotalPrice = r.TotalPrice
	event.Status = string(r.Status)
	event.PickupInstructions = r.PickupInstructions
	expiresAt := r.ExpiresAt
	event.ExpiresAt = &expiresAt

	s.notifier.Notify(event)
}

func eventFor(status Status) notification.EventType {
	switch status {
	case StatusConfirmed:
		return notification.EventReservationConfirmed
	case StatusReady:
		return notification.EventReservationReady
	case StatusCompleted:
		return notification.EventReservationCompleted
	case StatusCancelled:
		return notification.EventReservationCancelled
	case StatusExpired:
		return notification.EventReservationExpired
	default:
		return notification.EventReservationCreated
	}
}

func invalidTransition(from, to Status) error {
	return fmt.Errorf("%w: cannot move from %s to %s", apperr.ErrInvalidTransition, from, to)
}
