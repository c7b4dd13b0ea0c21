package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tether-home/tether/internal/config"
	dbRedis "github.com/tether-home/tether/internal/db/redis"
	"github.com/tether-home/tether/internal/domain/device"
	logpkg "github.com/tether-home/tether/internal/logger"
	"github.com/tether-home/tether/internal/metrics"
	"github.com/tether-home/tether/internal/repository/record"
	"github.com/tether-home/tether/internal/transport/bluetooth"
	chiTransport "github.com/tether-home/tether/internal/transport/chi"
	healthuc "github.com/tether-home/tether/internal/usecase/health"
	"github.com/tether-home/tether/internal/usecase/ledger"
	passesuc "github.com/tether-home/tether/internal/usecase/passes"
	proximityuc "github.com/tether-home/tether/internal/usecase/proximity"
	settingsuc "github.com/tether-home/tether/internal/usecase/settings"
	"github.com/tether-home/tether/internal/version"
)

// recordStore is a ledger backend that health checks can ping.
type recordStore interface {
	ledger.RecordStore
	Ping(ctx context.Context) error
}

func main() {
	startedAt := time.Now()

	flags := pflag.NewFlagSet("tether", pflag.ExitOnError)
	configPath := flags.String("config", "", "path to the config file (default: config/<env>.yaml)")
	envName := flags.String("env", "", "environment: local, dev, prod (default: $TETHER_ENV, $ENV or local)")
	showVersion := flags.Bool("version", false, "print version and exit")
	_ = flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("tether %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		return
	}

	// Load configuration based on ENV
	env := *envName
	if env == "" {
		env = config.GetEnv()
	}

	var cfg config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	overlaid, err := cfg.LoadSettings()
	if err != nil {
		logger.Fatal("Invalid settings file", zap.String("path", cfg.Storage.SettingsPath), zap.Error(err))
	}

	logger.Info("Starting tether server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("http_addr", cfg.HTTP.Addr()),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("bluetooth_adapter", cfg.Bluetooth.Adapter),
		zap.Bool("settings_overlay", overlaid),
	)

	// Pass record backend
	ctx := context.Background()
	var store recordStore
	switch cfg.Storage.Driver {
	case config.DriverFile:
		store = record.NewFileStore(cfg.Storage.PassesPath)
	case config.DriverValkey, config.DriverRedis:
		kv, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Storage.Addrs,
			Password: cfg.Storage.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create key-value store", zap.Error(err))
		}
		defer kv.Close()

		timeout := time.Duration(cfg.Storage.ReadinessTimeout) * time.Second
		if err := kv.WaitForReady(ctx, timeout); err != nil {
			logger.Fatal("Key-value store not ready", zap.Error(err))
		}
		store = record.NewKVStore(kv, cfg.Storage.Key)
	default:
		logger.Fatal("Unknown storage driver", zap.String("driver", cfg.Storage.Driver))
	}

	// Register ledger metrics explicitly (no init())
	metrics.RegisterLedgerMetrics()

	l, err := ledger.LoadOrCreate(ctx, store, cfg.Passes.PerMonth, ledger.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to load pass ledger", zap.String("location", store.Location()), zap.Error(err))
	}
	logger.Info("Pass ledger loaded",
		zap.String("location", store.Location()),
		zap.String("month", l.CurrentMonth().String()),
		zap.Uint32("remaining", l.Remaining()),
		zap.Uint32("per_month", l.PerMonth()),
	)

	// Use case services
	passesSvc := passesuc.New(l, logger)
	settingsSvc, err := settingsuc.New(cfg.Settings(), config.NewSettingsFile(cfg.Storage.SettingsPath), passesSvc, logger)
	if err != nil {
		logger.Fatal("Failed to create settings service", zap.Error(err))
	}

	// Pass nil interface (not typed nil pointer!) when no adapter is configured.
	var scanner proximityuc.Scanner
	if cfg.Bluetooth.Adapter == config.AdapterMock {
		scanner = bluetooth.NewStaticScanner(mockDevices(cfg.Bluetooth.MockDevices))
	}
	proximitySvc := proximityuc.New(scanner, settingsSvc, cfg.Bluetooth.ScanTimeout())

	healthSvc := healthuc.New(store, passesSvc, proximitySvc)

	server := chiTransport.NewServer(
		passesSvc, settingsSvc, proximitySvc, healthSvc,
		version.Version, startedAt, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	if len(cfg.HTTP.CORSOrigins) > 0 {
		r.Use(cors.Handler(chiTransport.CORSOptions(cfg.HTTP.CORSOrigins)))
	}
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := cfg.HTTP.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func mockDevices(in []config.MockDevice) []device.Device {
	out := make([]device.Device, len(in))
	for i, d := range in {
		out[i] = device.Device{Address: d.Address, Name: d.Name, RSSI: d.RSSI}
	}
	return out
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Error:   chiTransport.CodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
