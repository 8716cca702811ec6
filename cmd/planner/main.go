// Package main provides the entry point for the field-plan allocator
// service, wiring configuration, persistence, caching, and the HTTP
// gateway together.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fieldplan/allocator/internal/advisory"
	"github.com/fieldplan/allocator/internal/apigateway"
	"github.com/fieldplan/allocator/internal/config"
	"github.com/fieldplan/allocator/internal/cropprofiles"
	"github.com/fieldplan/allocator/internal/interactionrules"
	"github.com/fieldplan/allocator/internal/planservice"
	"github.com/fieldplan/allocator/internal/utils/cache"
	"github.com/fieldplan/allocator/internal/utils/database"
	"github.com/fieldplan/allocator/internal/utils/logger"
	"github.com/fieldplan/allocator/internal/weather"
)

const serviceName = "fieldplan-allocator"

var serviceUptime = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "fieldplan",
	Name:      "service_uptime_seconds",
	Help:      "Time since the planner service started",
})

func init() {
	prometheus.MustRegister(serviceUptime)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	logger.Info(zapLogger, "starting "+serviceName)

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer database.CloseConnection()

	profileStore := cropprofiles.NewStore(db)
	if err := profileStore.Migrate(); err != nil {
		log.Fatalf("failed to migrate crop profile tables: %v", err)
	}
	ruleStore := interactionrules.NewStore(db)
	if err := ruleStore.Migrate(); err != nil {
		log.Fatalf("failed to migrate interaction rule tables: %v", err)
	}

	resultCache, err := cache.NewResultClient(cfg.Redis)
	if err != nil {
		log.Fatalf("failed to initialize result cache: %v", err)
	}
	defer resultCache.Close()

	weatherSource := weather.NewFileSource(getEnvOrDefault("WEATHER_DATA_DIR", "./data/weather"))

	planService := planservice.NewService(profileStore, ruleStore, weatherSource, resultCache, zapLogger)

	var advisoryClient *advisory.Client
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		advisoryClient, err = advisory.NewClient(ctx, apiKey)
		if err != nil {
			logger.Error(zapLogger, "advisory client unavailable, continuing without narrative generation", err)
			advisoryClient = nil
		}
	}

	router := apigateway.NewRouter(apigateway.Dependencies{
		Config:      cfg,
		PlanService: planService,
		ResultCache: resultCache,
		Advisory:    advisoryClient,
		Log:         zapLogger,
	})
	server := apigateway.NewServer(router, cfg.API)

	go collectUptime(ctx)

	go func() {
		logger.Info(zapLogger, "listening on "+server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	waitForShutdown(cancel, server, cfg.ShutdownTimeout, zapLogger)
	logger.Info(zapLogger, "service shutdown complete")
}

// waitForShutdown blocks until SIGINT/SIGTERM, then drains the HTTP server
// and its dependents within timeout (teacher's setupGracefulShutdown
// pattern, generalized to the planner's own dependencies).
func waitForShutdown(cancel context.CancelFunc, server *http.Server, timeout time.Duration, zapLogger *zap.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info(zapLogger, "received shutdown signal", zap.String("signal", sig.String()))

	cancel()

	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apigateway.Shutdown(shutdownCtx, server, timeout); err != nil {
			logger.Error(zapLogger, "error during server shutdown", err)
		}
	}()

	waitChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitChan)
	}()

	select {
	case <-waitChan:
		logger.Info(zapLogger, "graceful shutdown completed")
	case <-shutdownCtx.Done():
		logger.Info(zapLogger, "shutdown timed out")
	}
}

func collectUptime(ctx context.Context) {
	start := time.Now()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			serviceUptime.Set(time.Since(start).Seconds())
		}
	}
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
