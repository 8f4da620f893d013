package main

// @title           SocialAuth Core API
// @version         1.0
// @description     Session coordinator for federated social and OpenID login. Exposes the provider catalog, authentication and publishing flows to thin UI processes.

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Application session token. Format: "Bearer {token}"

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/socialauth-core/internal/adapters/driven/auth"
	"github.com/custodia-labs/socialauth-core/internal/adapters/driven/httpclient"
	"github.com/custodia-labs/socialauth-core/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/socialauth-core/internal/adapters/driven/redis"
	"github.com/custodia-labs/socialauth-core/internal/adapters/driving/http"
	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
	"github.com/custodia-labs/socialauth-core/internal/core/services"
)

var version = "dev"

func main() {
	log.Printf("socialauth-core %s starting", version)

	// Configuration from environment
	appID := getEnv("ENGAGE_APP_ID", "")
	if appID == "" {
		log.Fatal("ENGAGE_APP_ID is required")
	}
	serverURL := getEnv("ENGAGE_SERVER_URL", "https://rpxnow.com")
	tokenURL := getEnv("ENGAGE_TOKEN_URL", "")
	jwtSecret := getEnv("JWT_SECRET", "development-secret-change-in-production")
	blobSecret := getEnv("BLOB_SECRET", jwtSecret)
	port := getEnvInt("PORT", 8080)
	databaseURL := getEnv("DATABASE_URL", "")
	redisURL := getEnv("REDIS_URL", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(getEnv("LOG_LEVEL", "info")),
	}))
	slog.SetDefault(logger)

	// ===== Persistence: Redis or PostgreSQL =====
	var kvStore driven.KeyValueStore
	var objectStore driven.ObjectStore

	switch {
	case redisURL != "":
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")

		kvStore = redisadapter.NewKeyValueStore(redisClient)
		objectStore = redisadapter.NewObjectStore(redisClient)

	case databaseURL != "":
		log.Println("Connecting to PostgreSQL...")
		dbConfig := postgres.Config{
			URL:             databaseURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300)) * time.Second,
			ConnMaxIdleTime: time.Duration(getEnvInt("DB_CONN_MAX_IDLE_SEC", 60)) * time.Second,
		}
		db, err := postgres.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		log.Println("PostgreSQL connected and schema initialized")

		encryptor, err := postgres.NewBlobEncryptor([]byte(blobSecret))
		if err != nil {
			log.Fatalf("Failed to create blob encryptor: %v", err)
		}
		kvStore = postgres.NewKeyValueStore(db)
		objectStore = postgres.NewObjectStore(db, encryptor)

	default:
		log.Fatal("Either REDIS_URL or DATABASE_URL is required")
	}

	// ===== Driven adapters =====
	transport := httpclient.New(httpclient.Config{
		Timeout:   time.Duration(getEnvInt("HTTP_TIMEOUT_SEC", 30)) * time.Second,
		UserAgent: "socialauth-core/" + version,
	})
	tokenIssuer := auth.NewAdapter(jwtSecret,
		time.Duration(getEnvInt("SESSION_TOKEN_TTL_MIN", 60))*time.Minute)

	// ===== Session coordinator =====
	coordinator, err := services.NewCoordinator(ctx, services.CoordinatorConfig{
		AppID:         appID,
		TokenURL:      tokenURL,
		ServerURL:     serverURL,
		Transport:     transport,
		KeyValueStore: kvStore,
		ObjectStore:   objectStore,
		Logger:        logger,
	})
	if err != nil {
		log.Fatalf("Failed to create session coordinator: %v", err)
	}

	// ===== HTTP server =====
	server := http.NewServer(http.Config{
		Host:    getEnv("HOST", "0.0.0.0"),
		Port:    port,
		Version: version,
	}, coordinator, tokenIssuer)

	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
