package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/smartcity/airquality/internal/attribution"
	"github.com/smartcity/airquality/internal/config"
	"github.com/smartcity/airquality/internal/delivery/http"
	"github.com/smartcity/airquality/internal/forecast"
	"github.com/smartcity/airquality/internal/model"
	"github.com/smartcity/airquality/internal/observability"
	"github.com/smartcity/airquality/internal/repository/postgres"
	"github.com/smartcity/airquality/internal/service"
	"github.com/smartcity/airquality/internal/waqi"
)

func main() {
	// Configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := observability.NewLogger(cfg.LogLevel, cfg.Env)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Model artifacts
	loader := model.NewLoader(log, clock)
	ensemble := loader.LoadEnsemble(filepath.Join(cfg.ModelDir, "forecast"))
	regressor := loader.LoadRegressor(filepath.Join(cfg.ModelDir, "attribution"))
	metrics.SetModelLoaded("forecast", ensemble.Loaded())
	metrics.SetModelLoaded("attribution", regressor.Loaded())
	metrics.EnsembleBoosters.Set(float64(len(ensemble.Boosters())))

	// Live feed
	if cfg.WAQIToken == "" {
		log.Warn("WAQI_API_TOKEN not set, serving mock AQI snapshots")
	}
	feed := waqi.New(waqi.Options{
		Token:    cfg.WAQIToken,
		BaseURL:  cfg.WAQIBaseURL,
		Timeout:  cfg.FeedTimeout,
		Clock:    clock,
		Logger:   log,
		Recorder: metrics,
	})

	seed := cfg.NoiseSeed
	if seed == 0 {
		seed = uint64(clock.Now().UnixNano())
	}

	// Prediction engine
	forecaster := forecast.New(forecast.Options{
		Ensemble: ensemble,
		Feed:     feed,
		Noise:    forecast.NewGaussianNoise(seed),
		Fallback: cfg.HeuristicFallback,
		Clock:    clock,
		Logger:   log,
		Recorder: metrics,
	})
	attributor := attribution.New(attribution.Options{
		Regressor: regressor,
		Fallback:  cfg.HeuristicFallback,
		Clock:     clock,
		Logger:    log,
		Recorder:  metrics,
	})

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, closeRepo := openRepository(ctx, cfg.DatabaseURL, log)
	defer closeRepo()

	// Dependency Injection: Services
	weatherSvc := service.NewWeatherService(cfg.OpenWeatherAPIKey, cfg.LocationName, log)
	aqiSvc := service.NewAQIService(feed, weatherSvc, forecaster, attributor, service.AQIConfig{
		City:            cfg.WAQICity,
		LocationName:    cfg.LocationName,
		DefaultLocation: cfg.DefaultLocation(),
	}, clock, log)
	insightSvc := service.NewInsightService(aqiSvc, feed, clock, log)
	reportSvc := service.NewReportService(repo, service.NewLogNotifier(log), clock)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "Air Quality API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins(),
		AllowMethods: "GET,POST,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	http.SetupRoutes(app, http.Deps{
		AQI:        aqiSvc,
		Insights:   insightSvc,
		Reports:    reportSvc,
		Forecaster: forecaster,
		Attributor: attributor,
		Repo:       repo,
		Gatherer:   prometheus.DefaultGatherer,
	})

	// Graceful shutdown
	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		log.WithError(err).Warn("server forced to shutdown")
	}
	log.Info("server exited gracefully")
}

// openRepository connects to PostgreSQL, falling back to the in-memory
// repository when no database is reachable
func openRepository(ctx context.Context, url string, log logrus.FieldLogger) (service.ReportRepository, func()) {
	if url == "" {
		log.Warn("DATABASE_URL not set, running with in-memory reports")
		return postgres.NewMockRepository(), func() {}
	}

	pool, err := pgxpool.New(ctx, url)
	if err == nil {
		err = pool.Ping(ctx)
		if err != nil {
			pool.Close()
		}
	}
	if err != nil {
		log.WithError(err).Warn("could not connect to database, running with in-memory reports")
		return postgres.NewMockRepository(), func() {}
	}

	repo := postgres.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.WithError(err).Warn("could not ensure reports schema")
	}
	log.Info("connected to PostgreSQL")
	return repo, pool.Close
}
