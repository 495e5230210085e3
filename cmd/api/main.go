package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/Nayana519/PulseGuard/config"
	"github.com/Nayana519/PulseGuard/internal/drugdb"
	"github.com/Nayana519/PulseGuard/internal/email"
	alertHandler "github.com/Nayana519/PulseGuard/internal/handler/alert"
	caregiverHandler "github.com/Nayana519/PulseGuard/internal/handler/caregiver"
	"github.com/Nayana519/PulseGuard/internal/handler/health"
	medicationHandler "github.com/Nayana519/PulseGuard/internal/handler/medication"
	"github.com/Nayana519/PulseGuard/internal/handler/prometheus"
	"github.com/Nayana519/PulseGuard/internal/interaction"
	"github.com/Nayana519/PulseGuard/internal/repository/postgres"
	"github.com/Nayana519/PulseGuard/internal/router"
	alertService "github.com/Nayana519/PulseGuard/internal/service/alert"
	caregiverService "github.com/Nayana519/PulseGuard/internal/service/caregiver"
	medicationService "github.com/Nayana519/PulseGuard/internal/service/medication"
	"github.com/Nayana519/PulseGuard/internal/service/notification"
	"github.com/Nayana519/PulseGuard/pkg/logger"
	"github.com/Nayana519/PulseGuard/pkg/messaging"
	"github.com/Nayana519/PulseGuard/pkg/messaging/redis"
	"github.com/Nayana519/PulseGuard/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "failed to load configuration")
	}
	log := logger.NewLogger(cfg.Log.ToLoggerConfig())
	m := metrics.NewMetrics("pulseguard", "api")

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(context.Background(), db); err != nil {
			log.Fatal(err, "failed to migrate database")
		}
	}
	store := postgres.NewStore(db)

	// Alert delivery
	var broker messaging.Broker
	if cfg.Redis.Enabled {
		broker, err = redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), log)
		if err != nil {
			log.Fatal(err, "failed to connect to Redis")
		}
		defer broker.Close()
	}
	mailer := email.NewNopService()
	if cfg.SMTP.Enabled {
		mailer = email.NewSMTPService(cfg.SMTP.ToEmailConfig())
	}
	notifier := notification.NewService(store.Users(), mailer, broker, log, m)

	// Safety gates
	var (
		resolver interaction.Resolver
		lookup   interaction.Lookup
	)
	if cfg.DrugAPI.Enabled {
		client := drugdb.NewClient(cfg.DrugAPI.ToClientConfig(), log, m)
		resolver, lookup = client, client
	}
	orchestrator := interaction.NewOrchestrator(resolver, lookup, nil, log, interaction.WithMetrics(m))

	// Initialize services
	medicationSvc := medicationService.NewService(store, orchestrator, notifier, log)
	alertSvc := alertService.NewService(store.Alerts())
	caregiverSvc := caregiverService.NewService(store, log)

	// Setup router
	routerConfig := router.RouterConfig{Mode: cfg.Server.Mode}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
	}
	r := router.NewRouter(log, prometheus.New(),
		health.NewHandler(map[string]health.Pinger{"database": store}),
		routerConfig,
		medicationHandler.NewHandler(medicationSvc),
		alertHandler.NewHandler(alertSvc),
		caregiverHandler.NewHandler(caregiverSvc),
	)

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Setup(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// Start server
	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "server forced to shutdown")
		return
	}

	log.Info("server exited properly")
}
