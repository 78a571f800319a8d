// cmd/api/app.go
package main

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ruralcare/medreserve/internal/config"
	"github.com/ruralcare/medreserve/internal/domain/inventory"
	"github.com/ruralcare/medreserve/internal/domain/medicine"
	"github.com/ruralcare/medreserve/internal/domain/notification"
	"github.com/ruralcare/medreserve/internal/domain/reservation"
	"github.com/ruralcare/medreserve/internal/domain/user"
	"github.com/ruralcare/medreserve/internal/infrastructure/database/postgres"
	"github.com/ruralcare/medreserve/internal/infrastructure/database/redis"
	"github.com/ruralcare/medreserve/internal/infrastructure/database/sqlite"
	httpapi "github.com/ruralcare/medreserve/internal/interfaces/http"
	"github.com/ruralcare/medreserve/internal/interfaces/http/handlers"
	"github.com/ruralcare/medreserve/internal/pkg/clock"
	"github.com/ruralcare/medreserve/internal/pkg/email"
	"github.com/ruralcare/medreserve/internal/pkg/logger"
	"github.com/ruralcare/medreserve/internal/pkg/metrics"
	"github.com/ruralcare/medreserve/internal/pkg/pdf"
	"github.com/ruralcare/medreserve/internal/seed"
	"github.com/ruralcare/medreserve/internal/sweeper"
	"github.com/sirupsen/logrus"
)

// stores is one persistence backend behind the domain ports
type stores struct {
	users        user.Store
	medicines    medicine.Store
	inventory    inventory.Store
	reservations reservation.Store
	health       httpapi.HealthChecker
	close        func() error
}

// app holds every long-lived dependency of a command
type app struct {
	config     *config.Config
	logger     *logrus.Logger
	clock      clock.Clock
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	stores     *stores
	redis      *redis.Client
	nats       *nats.Conn
	dispatcher *notification.Dispatcher
	services   *handlers.Services
	locker     sweeper.Locker
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{
		config:   cfg,
		logger:   logger.New(cfg),
		clock:    clock.Real{},
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	var err error
	if a.stores, err = openStores(cfg); err != nil {
		return nil, err
	}

	if cfg.Redis.Enabled {
		if a.redis, err = redis.NewConnection(cfg); err != nil {
			a.Close()
			return nil, err
		}
		a.locker = a.redis
	} else {
		a.locker = sweeper.NewLocalLocker(a.clock)
	}

	if slices.Contains(cfg.Notifications.Providers, "nats") {
		a.nats, err = nats.Connect(cfg.Notifications.NATSURL,
			nats.Name(cfg.App.Name),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Printf("✅ Connected to NATS at %s", a.nats.ConnectedUrl())
	}

	users := user.NewService(a.stores.users, cfg, a.clock, a.logger)
	medicines := medicine.NewService(a.stores.medicines, a.logger)
	ledger := inventory.NewService(a.stores.inventory, cfg, a.clock, a.logger, a.metrics)

	backends := notification.Backends{Contacts: users, Catalog: medicines}
	if a.redis != nil {
		backends.Redis = a.redis.GetClient()
	}
	if a.nats != nil {
		backends.NATS = a.nats
	}
	if slices.Contains(cfg.Notifications.Providers, "email") {
		backends.Email = email.NewEmailService(cfg, a.logger)
	}
	gateway, err := notification.BuildGateway(notification.Options{
		Providers:    cfg.Notifications.Providers,
		RedisChannel: cfg.Notifications.RedisChannel,
		NATSSubject:  cfg.Notifications.NATSSubject,
	}, backends, notification.NewLogGateway(a.logger))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.dispatcher = notification.NewDispatcher(gateway, cfg.Notifications.QueueSize, cfg.Notifications.Workers, a.logger, a.metrics)
	a.dispatcher.Start()

	reservations := reservation.NewService(a.stores.reservations, ledger, a.dispatcher, cfg, a.clock, a.logger, a.metrics)

	a.services = &handlers.Services{
		Users:        users,
		Medicines:    medicines,
		Inventory:    ledger,
		Reservations: reservations,
		Sweeper:      sweeper.New(reservations, ledger, a.dispatcher, cfg, a.logger, a.metrics),
		PDF:          pdf.NewService(cfg),
		Clock:        a.clock,
	}
	return a, nil
}

// openStores connects the configured database and applies its schema
func openStores(cfg *config.Config) (*stores, error) {
	if cfg.UsesSQLite() {
		db, err := sqlite.Connect(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Printf("✅ SQLite database ready at %s", cfg.Database.SQLitePath)
		return &stores{
			users:        sqlite.NewUserStore(db),
			medicines:    sqlite.NewMedicineStore(db),
			inventory:    sqlite.NewInventoryStore(db),
			reservations: sqlite.NewReservationStore(db),
			health:       httpapi.HealthFunc(db.Ping),
			close:        db.Close,
		}, nil
	}

	db, err := postgres.NewConnection(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Health(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database health check failed: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	gdb := db.GetDB()
	return &stores{
		users:        postgres.NewUserStore(gdb),
		medicines:    postgres.NewMedicineStore(gdb),
		inventory:    postgres.NewInventoryStore(gdb),
		reservations: postgres.NewReservationStore(gdb),
		health:       db,
		close:        db.Close,
	}, nil
}

func migrate(db *postgres.DB) error {
	migration := postgres.NewMigration(db.GetDB())
	if err := migration.RunAutoMigrations(); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	if err := migration.CreateIndexes(); err != nil {
		log.Printf("Warning: Index creation failed: %v", err)
	}
	return nil
}

// seed applies the configured fixtures, or the built-in set
func (a *app) seed(ctx context.Context, path string) (seed.Result, error) {
	fixtures, err := seed.Load(path)
	if err != nil {
		return seed.Result{}, err
	}
	seeder := seed.NewSeeder(a.services.Users, a.services.Medicines, a.services.Inventory, a.logger)
	return seeder.Apply(ctx, fixtures)
}

func (a *app) scheduler() *sweeper.Scheduler {
	return sweeper.NewScheduler(a.services.Sweeper, a.locker, a.clock, a.config, a.logger)
}

func (a *app) server() *httpapi.Server {
	var redisClient *goredis.Client
	if a.redis != nil {
		redisClient = a.redis.GetClient()
	}
	return httpapi.NewServer(a.config, a.services, a.stores.health, redisClient, a.registry, a.logger)
}

// Close drains notifications and closes connections in reverse order
func (a *app) Close() {
	if a.dispatcher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := a.dispatcher.Close(ctx); err != nil {
			a.logger.WithError(err).Warn("Notifications still queued at shutdown were dropped")
		}
		cancel()
	}
	if a.nats != nil {
		if err := a.nats.Drain(); err != nil {
			a.logger.WithError(err).Warn("Failed to drain NATS connection")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close Redis connection")
		}
	}
	if a.stores != nil {
		if err := a.stores.close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close database")
		}
	}
}
