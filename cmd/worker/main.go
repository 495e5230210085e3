package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/Nayana519/PulseGuard/config"
	"github.com/Nayana519/PulseGuard/internal/email"
	"github.com/Nayana519/PulseGuard/internal/handler/health"
	"github.com/Nayana519/PulseGuard/internal/handler/prometheus"
	"github.com/Nayana519/PulseGuard/internal/middleware"
	"github.com/Nayana519/PulseGuard/internal/repository/postgres"
	"github.com/Nayana519/PulseGuard/internal/service/notification"
	"github.com/Nayana519/PulseGuard/internal/worker"
	"github.com/Nayana519/PulseGuard/pkg/logger"
	"github.com/Nayana519/PulseGuard/pkg/messaging"
	"github.com/Nayana519/PulseGuard/pkg/messaging/redis"
	"github.com/Nayana519/PulseGuard/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "failed to load configuration")
	}
	log := logger.NewLogger(cfg.Log.ToLoggerConfig())
	m := metrics.NewMetrics("pulseguard", "worker")

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

	monitor := worker.NewMonitor(store, notifier, cfg.Monitor.ToWorkerConfig(), log, m)
	if cfg.Monitor.Enabled {
		if err := monitor.Start(context.Background()); err != nil {
			log.Fatal(err, "failed to start monitor")
		}
	} else {
		log.Warn("monitor disabled, serving ops endpoints only")
	}

	// Ops server: health and metrics only
	gin.SetMode(gin.ReleaseMode)
	ops := gin.New()
	ops.Use(middleware.RequestID(), middleware.Recovery(log))
	promHandler := prometheus.New()
	ops.GET("/metrics", promHandler.Handler())
	health.NewHandler(map[string]health.Pinger{"database": store}).RegisterRoutes(&ops.RouterGroup)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Monitor.OpsPort),
		Handler: ops,
	}
	go func() {
		log.Info("starting ops server", "port", cfg.Monitor.OpsPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start ops server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down worker...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := monitor.Stop(ctx); err != nil {
		log.Error(err, "monitor did not stop cleanly")
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "ops server forced to shutdown")
	}
	log.Info("worker exited properly")
}
