// internal/sweeper/sweeper.go
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ruralcare/medreserve/internal/config"
	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"github.com/ruralcare/medreserve/internal/domain/inventory"
	"github.com/ruralcare/medreserve/internal/domain/notification"
	"github.com/ruralcare/medreserve/internal/domain/reservation"
	"github.com/ruralcare/medreserve/internal/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// Job names a background job
type Job string

const (
	JobExpire   Job = "expire"
	JobStatus   Job = "status"
	JobLowStock Job = "low-stock"
)

// Jobs lists every job in run order
var Jobs = []Job{JobExpire, JobStatus, JobLowStock}

// ParseJob validates a job name
func ParseJob(name string) (Job, error) {
	for _, job := range Jobs {
		if string(job) == name {
			return job, nil
		}
	}
	return "", apperr.InvalidInput("unknown job %q, expected one of expire, status, low-stock", name)
}

// Report summarises one job run
type Report struct {
	Job       Job           `json:"job"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Error     string        `json:"error,omitempty"`
}

// Reservations is what the expiry sweep needs from the reservation service
type Reservations interface {
	ListExpired(ctx context.Context, now time.Time, afterID uint, limit int) ([]reservation.Reservation, error)
	Expire(ctx context.Context, id uint, now time.Time) (*reservation.Reservation, error)
}

// Ledger is what the inventory jobs need from the ledger
type Ledger interface {
	RefreshStatuses(ctx context.Context, batchSize int) (int, error)
	LowStock(ctx context.Context) ([]inventory.Entry, error)
}

// Sweeper runs the background jobs once. Scheduling lives in Scheduler.
type Sweeper struct {
	reservations Reservations
	ledger       Ledger
	notifier     notification.Notifier
	batchSize    int
	logger       logrus.FieldLogger
	metrics      *metrics.Metrics
}

// New creates a sweeper
func New(reservations Reservations, ledger Ledger, notifier notification.Notifier, cfg *config.Config, logger logrus.FieldLogger, m *metrics.Metrics) *Sweeper {
	batchSize := cfg.Jobs.SweepBatchSize
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Sweeper{
		reservations: reservations,
		ledger:       ledger,
		notifier:     notifier,
		batchSize:    batchSize,
		logger:       logger.WithField("component", "sweeper"),
		metrics:      m,
	}
}

// Run runs job as of now
func (s *Sweeper) Run(ctx context.Context, job Job, now time.Time) (Report, error) {
	switch job {
	case JobExpire:
		return s.RunExpirySweep(ctx, now), nil
	case JobStatus:
		return s.RunStatusRefresh(ctx, now), nil
	case JobLowStock:
		return s.RunLowStockAlerts(ctx, now), nil
	default:
		return Report{}, apperr.InvalidInput("unknown job %q", job)
	}
}

// RunExpirySweep expires every pending reservation whose hold lapsed before now.
// A reservation that moved on in the meantime is skipped; other failures are
// counted and the sweep carries on with the rest of the batch.
func (s *Sweeper) RunExpirySweep(ctx context.Context, now time.Time) (report Report) {
	report = Report{Job: JobExpire, StartedAt: now}
	started := time.Now()
	defer s.finish(&report, started)

	// Paging by ID cursor: rows that fail stay pending behind the cursor
	// and are retried by the next run, not by this one.
	var cursor uint
	for ctx.Err() == nil {
		batch, err := s.reservations.ListExpired(ctx, now, cursor, s.batchSize)
		if err != nil {
			report.Error = err.Error()
			s.logger.WithError(err).Error("Failed to list expired reservations")
			return report
		}

		for _, r := range batch {
			if r.ID > cursor {
				cursor = r.ID
			}

			_, err := s.reservations.Expire(ctx, r.ID, now)
			switch {
			case err == nil:
				report.Processed++
			case errors.Is(err, apperr.ErrInvalidTransition):
				report.Skipped++
				s.logger.WithError(err).WithField("reservation_code", r.Code).Debug("Reservation no longer expirable, skipping")
			default:
				report.Failed++
				s.logger.WithError(err).WithField("reservation_code", r.Code).Warn("Failed to expire reservation")
			}
		}

		if len(batch) < s.batchSize {
			break
		}
	}

	if ctx.Err() != nil {
		report.Error = ctx.Err().Error()
	}
	return report
}

// RunStatusRefresh re-derives stale inventory statuses, such as stock whose expiry date passed
func (s *Sweeper) RunStatusRefresh(ctx context.Context, now time.Time) (report Report) {
	report = Report{Job: JobStatus, StartedAt: now}
	started := time.Now()
	defer s.finish(&report, started)

	updated, err := s.ledger.RefreshStatuses(ctx, s.batchSize)
	report.Processed = updated
	if err != nil {
		report.Failed++
		report.Error = err.Error()
		s.logger.WithError(err).Error("Inventory status refresh failed")
	}
	return report
}

// RunLowStockAlerts emits one stock alert per pharmacy holding low or empty entries
func (s *Sweeper) RunLowStockAlerts(ctx context.Context, now time.Time) (report Report) {
	report = Report{Job: JobLowStock, StartedAt: now}
	started := time.Now()
	defer s.finish(&report, started)

	entries, err := s.ledger.LowStock(ctx)
	if err != nil {
		report.Failed++
		report.Error = err.Error()
		s.logger.WithError(err).Error("Failed to load low stock entries")
		return report
	}

	byPharmacy := make(map[uint][]notification.StockLevel)
	for _, e := range entries {
		byPharmacy[e.PharmacyID] = append(byPharmacy[e.PharmacyID], notification.StockLevel{
			MedicineID:     e.MedicineID,
			CurrentStock:   e.CurrentStock,
			MinStockLevel:  e.MinStockLevel,
			AvailableStock: e.AvailableStock,
			Status:         string(e.Status),
		})
	}

	pharmacies := make([]uint, 0, len(byPharmacy))
	for id := range byPharmacy {
		pharmacies = append(pharmacies, id)
	}
	sort.Slice(pharmacies, func(i, j int) bool { return pharmacies[i] < pharmacies[j] })

	for _, pharmacyID := range pharmacies {
		event := notification.NewEvent(notification.EventStockAlert, now)
		event.ActorRole = string(reservation.RoleSystem)
		event.PharmacyID = pharmacyID
		event.LowStock = byPharmacy[pharmacyID]
		s.notifier.Notify(event)
		report.Processed++

		s.logger.WithFields(logrus.Fields{
			"pharmacy_id": pharmacyID,
			"items":       len(event.LowStock),
		}).Info("Low stock alert queued")
	}
	return report
}

func (s *Sweeper) finish(report *Report, started time.Time) {
	report.Duration = time.Since(started)

	job := string(report.Job)
	s.metrics.SweepDuration.WithLabelValues(job).Observe(report.Duration.Seconds())
	s.metrics.SweepProcessed.WithLabelValues(job, "processed").Add(float64(report.Processed))
	s.metrics.SweepProcessed.WithLabelValues(job, "skipped").Add(float64(report.Skipped))
	s.metrics.SweepProcessed.WithLabelValues(job, "failed").Add(float64(report.Failed))

	s.logger.WithFields(logrus.Fields{
		"job":       job,
		"processed": report.Processed,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
		"duration":  report.Duration.String(),
	}).Info("Job finished")
}

// String renders a report for the CLI
func (r Report) String() string {
	s := fmt.Sprintf("%s: processed=%d skipped=%d failed=%d in %s", r.Job, r.Processed, r.Skipped, r.Failed, r.Duration.Round(time.Millisecond))
	if r.Error != "" {
		s += " error=" + r.Error
	}
	return s
}
