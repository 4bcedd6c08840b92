package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/classtrack/assessment-service/internal/app"
	"github.com/classtrack/assessment-service/internal/config"
	"github.com/classtrack/assessment-service/internal/database"
	"github.com/classtrack/assessment-service/internal/service/integration"
	"github.com/classtrack/assessment-service/pkg/logger"
)

func main() {
	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)
	migrateDirection := migrateCmd.String("direction", "up", "direction of migration (up/down)")

	expireCmd := flag.NewFlagSet("auto-submit-expired", flag.ExitOnError)
	expireDryRun := expireCmd.Bool("dry-run", false, "report what would be submitted without writing")

	materialiseCmd := flag.NewFlagSet("materialise-assignments", flag.ExitOnError)
	materialiseDryRun := materialiseCmd.Bool("dry-run", false, "report what would be created without writing")

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			migrateCmd.Parse(os.Args[2:])
			runMigrations(*migrateDirection)
			return
		case "auto-submit-expired":
			expireCmd.Parse(os.Args[2:])
			runAutoSubmitExpired(*expireDryRun)
			return
		case "materialise-assignments":
			materialiseCmd.Parse(os.Args[2:])
			runMaterialiseAssignments(*materialiseDryRun)
			return
		case "send-reminders":
			runSendReminders()
			return
		}
	}

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.NewWithConfig(cfg.Logging.Level, cfg.Logging.Pretty, cfg.Logging.NoColor)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}

	log.Info().Msg("Database connection established")

	application, err := app.New(cfg, log, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	go func() {
		if err := application.Run(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run application")
		}
	}()

	log.Info().Msgf("Assessment Service started on %s", cfg.Server.Address)

	<-ctx.Done()
	log.Info().Msg("Shutting down Assessment Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown gracefully")
	}

	log.Info().Msg("Assessment Service stopped")
}

func runMigrations(direction string) {
	log := logger.New()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	migrator := database.NewMigrator(cfg.Database)

	switch direction {
	case "up":
		if err := migrator.Up(); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Msg("Migrations applied successfully")
	case "down":
		if err := migrator.Down(); err != nil {
			log.Fatal().Err(err).Msg("Failed to rollback migrations")
		}
		log.Info().Msg("Migrations rolled back successfully")
	default:
		log.Fatal().Msg("Invalid migration direction. Use 'up' or 'down'")
	}
}

// batchSetup opens the database and wires the service graph for the batch
// commands. The notifier is only connected when withNotifier is set; the
// expiry and materializer jobs never publish events.
func batchSetup(withNotifier bool) (*app.Services, *sql.DB, integration.NotificationClient, zerolog.Logger) {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.NewWithConfig(cfg.Logging.Level, cfg.Logging.Pretty, cfg.Logging.NoColor)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	var notifier integration.NotificationClient
	if withNotifier {
		notifier, err = integration.NewNotificationClient(
			cfg.RabbitMQ.URL,
			cfg.RabbitMQ.Exchange,
			cfg.RabbitMQ.RoutingKey,
			cfg.RabbitMQ.QueueName,
			log,
		)
		if err != nil {
			db.Close()
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
	}

	return app.NewServices(cfg, log, db, notifier), db, notifier, log
}

// runAutoSubmitExpired force-submits supervised attempts whose time ran out.
// Rows that fail are logged and skipped; the command still exits zero so a
// scheduler does not retry the whole batch for one bad row.
func runAutoSubmitExpired(dryRun bool) {
	services, db, _, log := batchSetup(false)
	defer db.Close()

	report, err := services.Expiry.Run(context.Background(), dryRun)
	if err != nil {
		log.Error().Err(err).Msg("Auto-submit job failed")
		fmt.Println("Submitted: 0")
		return
	}

	log.Info().
		Int("processed", report.Processed).
		Int("submitted", report.Submitted).
		Int("skipped", report.Skipped).
		Bool("dry_run", report.DryRun).
		Msg("Auto-submit job finished")

	fmt.Printf("Submitted: %d\n", report.Submitted)
}

func runMaterialiseAssignments(dryRun bool) {
	services, db, _, log := batchSetup(false)
	defer db.Close()

	report, err := services.Materializer.Run(context.Background(), dryRun)
	if err != nil {
		log.Error().Err(err).Msg("Materialise job failed")
		fmt.Println("Created: 0")
		return
	}

	log.Info().
		Int("processed", report.Processed).
		Int("created", report.Created).
		Int("skipped", report.Skipped).
		Bool("dry_run", report.DryRun).
		Msg("Materialise job finished")

	fmt.Printf("Created: %d\n", report.Created)
}

func runSendReminders() {
	services, db, notifier, log := batchSetup(true)
	defer db.Close()
	defer notifier.Close()

	report, err := services.Reminder.Run(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("Reminder job failed")
		return
	}

	log.Info().
		Int("processed", report.Processed).
		Int("notified", report.Notified).
		Int("skipped", report.Skipped).
		Msg("Reminder job finished")
}
