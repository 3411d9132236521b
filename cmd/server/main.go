package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobby-s-dev/iweather/internal/api"
	"github.com/bobby-s-dev/iweather/internal/config"
	"github.com/bobby-s-dev/iweather/internal/geocode"
	"github.com/bobby-s-dev/iweather/internal/services"
	"github.com/bobby-s-dev/iweather/internal/storage"
	"github.com/bobby-s-dev/iweather/pkg/client"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Initialize logger
	zapConfig := zap.NewProductionConfig()
	logger, _ := zapConfig.Build()
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	logger.Info("Starting iweather service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if level, err := zapcore.ParseLevel(cfg.Server.LogLevel); err == nil {
		zapConfig.Level.SetLevel(level)
	} else {
		logger.Warn("Unknown log level", zap.String("level", cfg.Server.LogLevel))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Network executor
	var transport client.Transport = client.NewHTTPTransport(client.SessionConfig{
		RequestTimeout:   cfg.HTTP.RequestTimeout,
		ResourceTimeout:  cfg.HTTP.ResourceTimeout,
		IgnoreLocalCache: cfg.HTTP.IgnoreLocalCache,
	}, logger)
	if cfg.CircuitBreaker.Enabled {
		transport = client.NewBreakerTransport("openweather", transport, client.BreakerConfig{
			Threshold: cfg.CircuitBreaker.Threshold,
			Timeout:   cfg.CircuitBreaker.Timeout,
		}, logger)
	}

	dispatcher, closeDispatcher := newDispatcher(cfg.HTTP.Dispatcher, logger)
	defer closeDispatcher()

	executor := client.NewExecutor(transport, logger,
		client.WithDispatcher(dispatcher),
		client.WithMetrics(client.NewMetrics("iweather", registry)),
		client.WithTracing(client.NewTracingHelper(otel.Tracer("iweather"))),
	)

	endpoints := services.Endpoints{
		BaseURL: cfg.OpenWeather.BaseURL,
		GeoURL:  cfg.OpenWeather.GeoURL,
		APIKey:  cfg.OpenWeather.APIKey,
	}
	if endpoints.APIKey == "" {
		logger.Warn("OPENWEATHER_API_KEY is not set, upstream calls will be rejected")
	}

	// Geocoding
	var geocoder geocode.Geocoder
	switch cfg.Geocoder.Provider {
	case "google":
		geocoder = geocode.NewGoogleGeocoder(cfg.Geocoder.GoogleAPIKey)
	default:
		geocoder = services.NewCityNameService(endpoints, executor, logger)
	}

	// Favorites
	kv, err := storage.Open(ctx, storage.Config{
		Backend:       cfg.Favorites.Backend,
		Path:          cfg.Favorites.Path,
		RedisAddr:     cfg.Favorites.RedisAddr,
		RedisPassword: cfg.Favorites.RedisPassword,
		RedisDB:       cfg.Favorites.RedisDB,
		DSN:           cfg.Favorites.DSN,
	})
	if err != nil {
		logger.Fatal("Failed to open favorites storage",
			zap.String("backend", cfg.Favorites.Backend),
			zap.Error(err))
	}
	defer kv.Close()

	favorites := services.NewFavoritesStore(ctx, kv, geocoder, logger)
	debouncer := favorites.NewSearchDebouncer(ctx, cfg.Favorites.SearchDebounce)

	logger.Info("Favorites loaded",
		zap.String("backend", cfg.Favorites.Backend),
		zap.Int("count", len(favorites.Cities())))

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		JSONEncoder:  json.Marshal,
		ErrorHandler: api.ErrorHandler,
	})

	// Setup handlers and routes
	handler := api.NewHandler(
		favorites,
		debouncer,
		geocoder,
		endpoints,
		executor,
		api.Defaults{
			City:      cfg.Defaults.City,
			Latitude:  cfg.Defaults.Latitude,
			Longitude: cfg.Defaults.Longitude,
		},
		cfg.Location(),
		logger,
	)
	api.SetupRoutes(app, handler, registry, logger)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("Starting server", zap.String("address", addr))

		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	debouncer.Stop()
	cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}

// newDispatcher picks where callback and stream results are delivered.
func newDispatcher(kind string, logger *zap.Logger) (client.Dispatcher, func()) {
	switch kind {
	case "serial":
		queue := client.NewSerialQueue(64)
		logger.Info("Delivering results on a serial queue")
		return queue, queue.Close
	case "", "immediate":
		return client.ImmediateDispatcher{}, func() {}
	default:
		logger.Warn("Unknown dispatcher, delivering immediately", zap.String("dispatcher", kind))
		return client.ImmediateDispatcher{}, func() {}
	}
}
