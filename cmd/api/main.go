// cmd/api/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ruralcare/medreserve/internal/config"
	"github.com/ruralcare/medreserve/internal/infrastructure/database/postgres"
	"github.com/ruralcare/medreserve/internal/infrastructure/database/sqlite"
	"github.com/ruralcare/medreserve/internal/sweeper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	Version   = "1.0.0"
	BuildTime = "dev"
	appName   = "medreserve"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Medicine reservation service for rural pharmacies",
		Long: `MedReserve lets patients hold medicine stock at nearby pharmacies
and collect it with a pickup code.

Running without a subcommand starts the HTTP API.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	cmd.AddCommand(serveCmd(), sweepCmd(), migrateCmd(), seedCmd(), hashPasswordCmd(), emailTestCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sweep <expire|status|low-stock>",
		Short:     "Run one maintenance job and print its report",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"expire", "status", "low-stock"},
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := sweeper.ParseJob(args[0])
			if err != nil {
				return err
			}

			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()

			report, ran := a.scheduler().RunOnce(cmd.Context(), job)
			if !ran {
				return fmt.Errorf("job %s is already running on another instance", job)
			}
			fmt.Println(report.String())
			if report.Error != "" {
				return fmt.Errorf("job %s failed: %s", job, report.Error)
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if cfg.UsesSQLite() {
				db, err := sqlite.Connect(cfg.Database.SQLitePath)
				if err != nil {
					return err
				}
				log.Printf("✅ SQLite schema applied at %s", cfg.Database.SQLitePath)
				return db.Close()
			}

			db, err := postgres.NewConnection(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migrate(db); err != nil {
				return err
			}
			return postgres.NewMigration(db.GetDB()).GetTableInfo()
		},
	}
}

func seedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users, medicines and stock from a fixtures file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()

			if file == "" {
				file = a.config.App.SeedFile
			}
			result, err := a.seed(cmd.Context(), file)
			if err != nil {
				return err
			}
			fmt.Printf("seeded users=%d medicines=%d inventory=%d skipped=%d\n",
				result.Users, result.Medicines, result.Inventory, result.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Fixtures file (YAML); built-in fixtures when empty")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func bootstrap() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}

func serve() error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.config
	log.Printf("🚀 Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Seed initial data in development
	if cfg.IsDevelopment() {
		if result, err := a.seed(ctx, cfg.App.SeedFile); err != nil {
			log.Printf("Warning: Data seeding failed: %v", err)
		} else {
			a.logger.WithFields(logrus.Fields{
				"users":     result.Users,
				"medicines": result.Medicines,
				"inventory": result.Inventory,
				"skipped":   result.Skipped,
			}).Info("Development fixtures loaded")
		}
	}

	var scheduler *sweeper.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = a.scheduler()
		scheduler.Start(ctx)
	}

	log.Println("✅ All systems operational!")

	server := a.server()
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Println("👋 Shutting down gracefully...")
	stop()

	// Give server 30 seconds to shutdown gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown HTTP server gracefully: %v", err)
	}
	if scheduler != nil {
		scheduler.Wait()
	}

	log.Println("✅ Server shutdown completed")
	return nil
}
