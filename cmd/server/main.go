package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/saferoute/backend/internal/delivery/http"
	"github.com/saferoute/backend/internal/domain"
	"github.com/saferoute/backend/internal/prediction"
	"github.com/saferoute/backend/internal/repository/postgres"
	"github.com/saferoute/backend/internal/route"
	"github.com/saferoute/backend/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Configuration
	cfg := loadConfig()

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("Warning: Could not connect to database: %v", err)
		log.Println("Running with mock data only")
		pool = nil
	} else {
		defer pool.Close()
		log.Println("Connected to PostgreSQL")
	}

	// Dependency Injection: Repositories
	var repo domain.IncidentRepository
	if pool != nil {
		repo = postgres.NewPostgresRepository(pool)
	} else {
		repo = postgres.NewMockRepository()
	}

	// Prediction cache: Redis when configured, in-process otherwise
	var store prediction.Store
	if cfg.RedisURL != "" {
		opts, perr := redis.ParseURL(cfg.RedisURL)
		if perr != nil {
			log.Fatalf("Invalid REDIS_URL: %v", perr)
		}
		store = prediction.NewRedisStore(redis.NewClient(opts))
		log.Println("Prediction cache backed by Redis")
	} else {
		store = prediction.NewMemoryStore(time.Now)
	}

	predictor := prediction.NewClient(prediction.ClientConfig{
		ServiceURL: cfg.PredictionServiceURL,
		Breaker:    prediction.NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown, time.Now),
		Cache:      prediction.NewCache(store, cfg.PredictionCacheTTL),
	})

	// Dependency Injection: Services
	evaluator := route.NewEvaluator(repo, cfg.CorridorBufferMeters, nil)
	riskSvc := service.NewRiskService(
		repo,
		service.NewMapboxClient(cfg.MapboxToken),
		service.NewWeatherService(cfg.OpenWeatherAPIKey),
		predictor,
		evaluator,
		route.NewRecommender(evaluator, cfg.RouteConcurrency),
	)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "SafeRoute API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	http.SetupRoutes(app, riskSvc)

	// Graceful shutdown
	go func() {
		port := cfg.Port
		if port == "" {
			port = "8080"
		}
		log.Printf("Server starting on :%s", port)
		if err := app.Listen(":" + port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited gracefully")
}

type Config struct {
	DatabaseURL          string
	RedisURL             string
	OpenWeatherAPIKey    string
	MapboxToken          string
	PredictionServiceURL string
	Port                 string
	Env                  string

	CorridorBufferMeters float64
	RouteConcurrency     int
	BreakerThreshold     int
	BreakerCooldown      time.Duration
	PredictionCacheTTL   time.Duration
}

func loadConfig() *Config {
	return &Config{
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		OpenWeatherAPIKey:    getEnv("OPENWEATHER_API_KEY", ""),
		MapboxToken:          getEnv("MAPBOX_TOKEN", ""),
		PredictionServiceURL: getEnv("PREDICTION_SERVICE_URL", "http://localhost:8000"),
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("GO_ENV", "development"),

		CorridorBufferMeters: getEnvFloat("CORRIDOR_BUFFER_METERS", 150),
		RouteConcurrency:     getEnvInt("ROUTE_CONCURRENCY", 4),
		BreakerThreshold:     getEnvInt("BREAKER_FAILURE_THRESHOLD", 3),
		BreakerCooldown:      getEnvDuration("BREAKER_COOLDOWN", 5*time.Minute),
		PredictionCacheTTL:   getEnvDuration("PREDICTION_CACHE_TTL", 5*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
