/**
 * @description
 * This is the main entry point for the request-service. It is responsible for
 * initializing all components of the service, including configuration, database connection,
 * migrations, the rate limiter, the message broker producer, the mailer, the outbox
 * dispatcher, scheduled jobs, and the HTTP server. It wires everything together and starts
 * the service.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/joho/godotenv: Used to load environment variables from a .env file during local development.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/rabbitmq: Event producer for RabbitMQ.
 * - pkg/mailer: SendGrid email delivery.
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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/scholarbridge/request-service/internal/api"
	"github.com/scholarbridge/request-service/internal/app"
	"github.com/scholarbridge/request-service/internal/config"
	"github.com/scholarbridge/request-service/internal/domain"
	"github.com/scholarbridge/request-service/internal/store"
	"github.com/scholarbridge/request-service/pkg/mailer"
	rmrabbit "github.com/scholarbridge/request-service/pkg/rabbitmq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=bootstrap msg=\"no .env file found; using environment variables\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal api key must be configured\" env=INTERNAL_API_KEY")
	}
	if cfg.JWTSecret == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting request-service\" port=%s", cfg.ServerPort)

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

	if cfg.RunMigrations {
		sqlDB := stdlib.OpenDBFromPool(dbpool)
		if err := store.RunMigrations(sqlDB); err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"migrations failed\" err=%v", err)
		}
		sqlDB.Close()
	}

	// `request-service migrate-down` rolls back one migration and exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
		sqlDB := stdlib.OpenDBFromPool(dbpool)
		defer sqlDB.Close()
		if err := store.MigrateDown(sqlDB); err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"migration rollback failed\" err=%v", err)
		}
		return
	}

	var redisClient *redis.Client
	if cfg.FulfillmentUploadRateLimitPerMinute > 0 {
		if cfg.RedisURL == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; upload rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; upload rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; upload rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	var publisher rmrabbit.Publisher
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"rabbitmq url missing; events will be logged only\" env=RABBITMQ_URL")
		publisher = &rmrabbit.EventProducerFallback{}
	} else {
		publisher = rmrabbit.NewLazyProducer(cfg.RabbitMQURL)
	}

	var sender mailer.Sender
	if cfg.SendGridAPIKey == "" || cfg.EmailFromAddress == "" {
		log.Printf("level=warn component=bootstrap msg=\"sendgrid not configured; emails will be logged only\" api_key_set=%t from_address_set=%t",
			cfg.SendGridAPIKey != "",
			cfg.EmailFromAddress != "",
		)
		sender = mailer.LogMailer{}
	} else {
		sender = mailer.NewSendGridMailer(cfg.SendGridAPIKey, cfg.EmailFromName, cfg.EmailFromAddress)
	}

	repository := store.NewPostgresRepository(dbpool)

	requestService := app.NewService(repository, app.Options{
		DefaultCoinBalance: cfg.DefaultCoinBalance,
		FulfillmentReward:  cfg.FulfillmentRewardCoins,
		RequestCosts: map[domain.RequestType]int64{
			domain.RequestTypeLab:      cfg.RequestCostLab,
			domain.RequestTypeDocument: cfg.RequestCostDocument,
			domain.RequestTypeData:     cfg.RequestCostData,
		},
		EventsExchange: cfg.EventsExchange,
	})
	requestService.ConfigureUploadRateLimit(cfg.FulfillmentUploadRateLimitPerMinute)
	if redisClient != nil {
		requestService.SetUploadLimiter(app.NewRedisUploadLimiter(redisClient, cfg.RedisRateLimitPrefix))
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	dispatcher := app.NewOutboxDispatcher(repository, publisher, sender)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(workerCtx)
	}()

	scheduler := app.NewScheduler(requestService, app.SchedulerConfig{
		RewardReconcileSchedule:     cfg.RewardReconcileSchedule,
		RewardReconcileBatchSize:    cfg.RewardReconcileBatchSize,
		NotificationCleanupSchedule: cfg.NotificationCleanupSchedule,
		NotificationRetention:       time.Duration(cfg.NotificationRetentionDays) * 24 * time.Hour,
	})
	scheduler.Start()

	handlers := api.NewHandlers(requestService)
	router := api.NewRouter(handlers, api.RouterConfig{
		JWTSecret:      cfg.JWTSecret,
		InternalAPIKey: cfg.InternalAPIKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
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

	select {
	case <-scheduler.Stop().Done():
	case <-ctx.Done():
		log.Println("level=warn component=scheduler msg=\"jobs still running at shutdown deadline\"")
	}

	stopWorkers()
	select {
	case <-dispatcherDone:
	case <-ctx.Done():
		log.Println("level=warn component=outbox_dispatcher msg=\"dispatcher did not stop before shutdown deadline\"")
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
