package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"discount_reminder/internal/app"
	"discount_reminder/internal/domain/mail"
	"discount_reminder/internal/infra/claim"
	"discount_reminder/internal/infra/config"
	idb "discount_reminder/internal/infra/database"
	"discount_reminder/internal/infra/logger"
	"discount_reminder/internal/infra/mailer"
	"discount_reminder/internal/infra/metrics"
	"discount_reminder/internal/infra/scheduler"
	"discount_reminder/internal/infra/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func main() {
	once := flag.Bool("once", false, "run a single reminder pass and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")

	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"mail_driver": cfg.MailDriver,
		"cron_spec":   cfg.CronSpecReminder,
	}).Info("Configuration loaded")

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	discountRepo := idb.NewPostgresDiscountRepository(db)
	mainLogger.Info("Database connection established.")

	// Initialize Mail Sender
	var sender mail.Sender
	switch cfg.MailDriver {
	case config.MailDriverSES:
		sender, err = mailer.NewSESSender(context.Background(), cfg.AWSRegion, logger.Component("mailer"))
		if err != nil {
			mainLogger.Fatalf("Could not initialize SES sender: %v", err)
		}
	default:
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			UseTLS:   cfg.SMTPUseTLS,
		}, logger.Component("mailer"))
	}

	opts := []app.Option{}

	// Claims across processes need Redis; without it overlapping runs in
	// separate processes may e-mail the same discount twice.
	if cfg.RedisAddr != "" {
		redisClient, err := claim.NewRedisClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			mainLogger.Fatalf("Could not connect to Redis: %v", err)
		}
		defer redisClient.Close()
		opts = append(opts, app.WithClaimer(claim.NewRedisClaimer(redisClient, cfg.ClaimTTL)))
		mainLogger.Info("Redis claimer enabled.")
	} else {
		mainLogger.Warn("REDIS_ADDR not set. Concurrent runs in separate processes are not coordinated.")
	}

	if cfg.ReminderConfigFile != "" {
		opts = append(opts, app.WithConfigProvider(app.FileConfigProvider(cfg.ReminderConfigFile, logger.Component("reminder"))))
	}

	reminderRun := app.NewReminderRun(discountRepo, sender, logger.Component("reminder"), opts...)

	// Run hooks: metrics and operator alerts
	registry := prometheus.NewRegistry()
	runMetrics := metrics.NewRunMetrics(registry)
	hooks := []scheduler.RunHook{runMetrics.Observe}

	if cfg.AlertsEnabled() {
		bot, err := telegram.NewTelebotBot(cfg.TelegramToken)
		if err != nil {
			mainLogger.Fatalf("Could not create Telegram bot: %v", err)
		}
		alerter := telegram.NewRunAlerter(telegram.NewTelebotAdapter(bot), cfg.AdminTelegramID, logger.Component("alerts"))
		hooks = append(hooks, alerter.Notify)
		mainLogger.Info("Telegram run alerts enabled.")
	}

	reminderScheduler := scheduler.NewReminderScheduler(
		reminderRun,
		func() app.RawConfig { return app.RawConfig(cfg.Reminder) },
		logger.Component("scheduler"),
		cfg.CronSpecReminder,
		cfg.RunTimeout,
		hooks...,
	)

	if *once {
		if _, err := reminderScheduler.RunOnce(context.Background()); err != nil {
			mainLogger.Errorf("Reminder run failed: %v", err)
			db.Close()
			os.Exit(1)
		}
		return
	}

	var metricsServer *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsAddr, registry, logger.Component("metrics"))
		metricsServer.Start()
	}

	if err := reminderScheduler.Start(); err != nil {
		mainLogger.Fatalf("Could not start scheduler: %v", err)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLogger.Info("Shutting down application...")
	reminderScheduler.Stop()
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			mainLogger.WithError(err).Warn("Metrics server did not shut down cleanly")
		}
	}
	mainLogger.Info("Application shut down gracefully.")
}
