/**
 * @description
 * This is the main entry point for the matchmaking-service. It is responsible
 * for initializing all components of the service, including configuration,
 * database connection, the Redis conversation cache, the mobile-money client,
 * message brokers, repositories, the core application services, and the HTTP
 * server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Redis client for the conversation cache.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/momoclient: Client for the MTN MoMo collection API.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/elixir/matchmaking-service/internal/api"
	"github.com/elixir/matchmaking-service/internal/app"
	"github.com/elixir/matchmaking-service/internal/config"
	"github.com/elixir/matchmaking-service/internal/store"
	"github.com/elixir/matchmaking-service/pkg/momoclient"
	mmrabbit "github.com/elixir/matchmaking-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting matchmaking-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the Redis-backed conversation cache. A missing or unreachable
	// Redis degrades reads to the database; it never blocks startup.
	var conversationCache app.ConversationCache = app.NoopConversationCache{}
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; conversation caching disabled\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; conversation caching disabled\" err=%v", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; conversation caching disabled\" err=%v", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				conversationCache = app.NewRedisConversationCache(redisClient, cfg.RedisCachePrefix)
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the RabbitMQ producer to publish events.
	// This service only needs to publish, so we use a producer.
	var eventPublisher mmrabbit.Publisher
	rabbitProducer, err := mmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		eventPublisher = &mmrabbit.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		eventPublisher = rabbitProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the client for the MTN MoMo collection API. When no API key
	// is configured, run the sandbox provisioning flow; a failure there only
	// warns, since payment calls will surface their own errors.
	momoClient := momoclient.NewClient(
		cfg.MomoAPIBaseURL,
		cfg.MomoSubscriptionKey,
		cfg.MomoUserReferenceID,
		cfg.MomoAPIKey,
		cfg.MomoTargetEnvironment,
		cfg.MomoCallbackURL,
		uuid.NewString,
	)
	if strings.TrimSpace(cfg.MomoAPIKey) == "" {
		provisionCtx, cancelProvision := context.WithTimeout(context.Background(), 30*time.Second)
		if provisionErr := momoClient.Provision(provisionCtx); provisionErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"momo sandbox provisioning failed; payments will fail until resolved\" err=%v", provisionErr)
		} else {
			log.Println("level=info component=bootstrap msg=\"momo sandbox provisioned\"")
		}
		cancelProvision()
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application services with their dependencies.
	subscriptionService := app.NewSubscriptionService(
		repository,
		momoClient,
		eventPublisher,
		cfg.SubscriptionRenewalDays,
		cfg.MomoRequestTimeoutSeconds,
	)
	matchService := app.NewMatchService(repository, eventPublisher)
	messageService := app.NewMessageService(repository, conversationCache, subscriptionService)

	// Initialize the API handlers and router.
	handlers := api.NewHandlers(matchService, messageService, subscriptionService)
	router := api.Routes(handlers, cfg.JWTSecret, cfg.AllowedOrigins())

	// Start the HTTP server.
	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
