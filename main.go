package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"habitTrackerAPI/handlers"
	"habitTrackerAPI/internal/config"
	"habitTrackerAPI/internal/logger"
	"habitTrackerAPI/internal/migrations"
	"habitTrackerAPI/internal/notification"
	"habitTrackerAPI/internal/store"
	"habitTrackerAPI/internal/telegram"
	"habitTrackerAPI/internal/workers"
	"habitTrackerAPI/middleware"
	"habitTrackerAPI/services"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "habits",
	Short: "Habit tracker API for the Telegram mini-app",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger.Setup(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the hourly reminder scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is not set")
		}
		if err := migrations.MigrateUp(cfg.DatabaseURL); err != nil {
			return err
		}
		current, dirty, latest, err := migrations.Status(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		log.Printf("Schema at version %d of %d (dirty=%t)", current, latest, dirty)
		return nil
	},
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Run one reminder sweep for the current hour and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		pusher, err := buildPusher(ctx, db)
		if err != nil {
			return err
		}

		report, err := services.NewReminderService(db, pusher).RunOnce(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Printf("checked=%d matched=%d sent=%d failed=%d\n", report.Checked, report.Matched, report.Sent, report.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(remindCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		log.Println("Closing database connection pool...")
		db.Close()
	}()

	middleware.InitPrometheus()
	services.InitReminderMetrics()

	auth := middleware.NewTelegramAuth(cfg.BotToken, cfg.InitDataMaxAge, db)
	if auth.DevMode() {
		log.Warn("BOT_TOKEN is not set: authentication runs in development mode")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Cleanup(ctx)

	habitService := services.NewHabitService(db, nil)

	router := handlers.NewRouter(handlers.RouterConfig{
		Store:          db,
		Habits:         habitService,
		Social:         services.NewSocialService(db),
		Notification:   services.NewNotificationService(db),
		Users:          services.NewUserService(db, habitService),
		Auth:           auth,
		RateLimiter:    limiter,
		MetricsUser:    cfg.MetricsUser,
		MetricsPass:    cfg.MetricsPass,
		AllowedOrigins: cfg.AllowedOrigins(),
	})

	var scheduler *workers.ReminderScheduler
	pusher, err := buildPusher(ctx, db)
	if err != nil {
		log.Warnf("Reminders disabled: %v", err)
	} else {
		scheduler, err = workers.NewReminderScheduler(cfg.ReminderSchedule, services.NewReminderService(db, pusher))
		if err != nil {
			return err
		}
		scheduler.Start()
		log.Printf("Next reminder sweep at %s", scheduler.Next().Format(time.RFC3339))
	}

	server := http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Starting server on port %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
	case <-ctx.Done():
		log.Println("Got shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
	return nil
}

func openStore(ctx context.Context) (store.Store, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("Using in-memory store: data is lost on restart")
		return store.NewMemoryStore(nil), nil
	}

	if cfg.AutoMigrate {
		if err := migrations.MigrateUp(cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.DBMaxConns
	poolConfig.MinConns = cfg.DBMinConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to Postgres")
	return store.NewPostgresStore(pool), nil
}

// buildPusher collects every configured reminder transport. Telegram needs
// BOT_TOKEN, FCM needs service account credentials.
func buildPusher(ctx context.Context, db store.Store) (services.Pusher, error) {
	var pushers services.MultiPusher

	if cfg.BotToken != "" {
		pushers = append(pushers, telegram.NewBot(cfg.BotToken, cfg.WebAppURL))
		log.Println("Telegram reminder transport initialized")
	}

	fcm, err := notification.NewFCMService(ctx, cfg.FCMCredentialsFile, db)
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		pushers = append(pushers, fcm)
		log.Println("FCM Push Provider initialized successfully")
	}

	if len(pushers) == 0 {
		return nil, errors.New("no reminder transport configured")
	}
	return pushers, nil
}
