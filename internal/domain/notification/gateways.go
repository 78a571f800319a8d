// internal/domain/notification/gateways.go
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// LogGateway writes events to the application log
type LogGateway struct {
	logger logrus.FieldLogger
}

// NewLogGateway creates a log gateway
func NewLogGateway(logger logrus.FieldLogger) *LogGateway {
	return &LogGateway{logger: logger.WithField("gateway", "log")}
}

func (g *LogGateway) Name() string { return "log" }

// Deliver implements Gateway
func (g *LogGateway) Deliver(_ context.Context, event Event) error {
	fields := logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	}
	if event.ReservationCode != "" {
		fields["reservation_code"] = event.ReservationCode
		fields["status"] = event.Status
		fields["patient_id"] = event.PatientID
	}
	if event.PharmacyID != 0 {
		fields["pharmacy_id"] = event.PharmacyID
	}
	if len(event.LowStock) > 0 {
		fields["low_stock_items"] = len(event.LowStock)
	}
	g.logger.WithFields(fields).Info("Notification")
	return nil
}

// RedisPublisher is the subset of the redis client used for pub/sub
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisGateway publishes events as JSON on a redis channel
type RedisGateway struct {
	client  RedisPublisher
	channel string
}

// NewRedisGateway creates a redis pub/sub gateway
func NewRedisGateway(client RedisPublisher, channel string) *RedisGateway {
	return &RedisGateway{client: client, channel: channel}
}

func (g *RedisGateway) Name() string { return "redis" }

// Deliver implements Gateway
func (g *RedisGateway) Deliver(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := g.client.Publish(ctx, g.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis channel %s: %w", g.channel, err)
	}
	return nil
}

// NATSPublisher is the subset of *nats.Conn used by the gateway
type NATSPublisher interface {
	Publish(subject string, data []byte) error
}

// NATSGateway publishes events on "<prefix>.<event type>"
type NATSGateway struct {
	conn   NATSPublisher
	prefix string
}

// NewNATSGateway creates a NATS gateway
func NewNATSGateway(conn NATSPublisher, subjectPrefix string) *NATSGateway {
	return &NATSGateway{conn: conn, prefix: subjectPrefix}
}

func (g *NATSGateway) Name() string { return "nats" }

// Subject returns the subject an event is published on
func (g *NATSGateway) Subject(event Event) string {
	return g.prefix + "." + string(event.Type)
}

// Deliver implements Gateway
func (g *NATSGateway) Deliver(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	subject := g.Subject(event)
	if err := g.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Multi fans an event out to several gateways
type Multi []Gateway

func (m Multi) Name() string { return "multi" }

// Deliver tries every gateway and joins their errors
func (m Multi) Deliver(ctx context.Context, event Event) error {
	var errs []error
	for _, g := range m {
		if err := g.Deliver(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", g.Name(), err))
		}
	}
	return errors.Join(errs...)
}
