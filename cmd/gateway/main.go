// Package main runs the payment gateway: the HTTP facade the ride-booking
// services call to move mobile money.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/liftride/payment-service/internal/app"
	"github.com/liftride/payment-service/internal/app/httpapi"
	"github.com/liftride/payment-service/internal/app/metrics"
	"github.com/liftride/payment-service/internal/config"
	"github.com/liftride/payment-service/internal/middleware"
	"github.com/liftride/payment-service/pkg/logger"
)

func main() {
	// Optional local .env; production supplies real environment variables.
	_ = godotenv.Load()

	log := logger.NewDefault("gateway")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load configuration")
	}

	application, err := app.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Fatal("start application")
	}

	api := httpapi.NewHandler(application, log)
	limiter := middleware.NewRateLimiter(20, 40, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", middleware.RequestLogging(log)(limiter.Handler(metrics.InstrumentHandler(api))))

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).WithField("mode", string(cfg.Mode())).Info("gateway listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application stop")
	}

	log.Info("gateway stopped")
}
