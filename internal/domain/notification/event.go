// internal/domain/notification/event.go
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a notification event
type EventType string

const (
	EventReservationCreated   EventType = "reservation.created"
	EventReservationConfirmed EventType = "reservation.confirmed"
	EventReservationReady     EventType = "reservation.ready"
	EventReservationCompleted EventType = "reservation.completed"
	EventReservationCancelled EventType = "reservation.cancelled"
	EventReservationExpired   EventType = "reservation.expired"
	EventStockAlert           EventType = "inventory.stock_alert"
)

// Event is the payload handed to gateways
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	// Who caused the event; jobs report the system role
	ActorID   uint   `json:"actor_id,omitempty"`
	ActorRole string `json:"actor_role,omitempty"`

	ReservationID      uint       `json:"reservation_id,omitempty"`
	ReservationCode    string     `json:"reservation_code,omitempty"`
	PatientID          uint       `json:"patient_id,omitempty"`
	PharmacyID         uint       `json:"pharmacy_id,omitempty"`
	MedicineID         uint       `json:"medicine_id,omitempty"`
	Quantity           int        `json:"quantity,omitempty"`
	TotalPrice         int64      `json:"total_price,omitempty"`
	Status             string     `json:"status,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	PickupInstructions string     `json:"pickup_instructions,omitempty"`

	LowStock []StockLevel `json:"low_stock,omitempty"`
}

// StockLevel is one entry in a stock alert
type StockLevel struct {
	MedicineID     uint   `json:"medicine_id"`
	CurrentStock   int    `json:"current_stock"`
	MinStockLevel  int    `json:"min_stock_level"`
	AvailableStock int    `json:"available_stock"`
	Status         string `json:"status"`
}

// NewEvent stamps an event with an ID and time
func NewEvent(eventType EventType, now time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: now,
	}
}

// Notifier is what the core calls. Implementations must not block.
type Notifier interface {
	Notify(event Event)
}

// Gateway delivers an event to one external channel
type Gateway interface {
	Name() string
	Deliver(ctx context.Context, event Event) error
}

// Nop drops every event
type Nop struct{}

// Notify implements Notifier
func (Nop) Notify(Event) {}

// Recorder keeps every event in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify implements Notifier
func (r *Recorder) Notify(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in order
func (r *Recorder) Types() []EventType {
	events := r.Events()
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}
