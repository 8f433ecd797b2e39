package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/matching-sms-api/internal/config"
	"github.com/matching-sms-api/internal/domain"
	amqpinfra "github.com/matching-sms-api/internal/infrastructure/amqp"
	"github.com/matching-sms-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/matching-sms-api/internal/infrastructure/jwt"
	redisinfra "github.com/matching-sms-api/internal/infrastructure/redis"
	s3infra "github.com/matching-sms-api/internal/infrastructure/s3"
	"github.com/matching-sms-api/internal/infrastructure/sns"
	"github.com/matching-sms-api/internal/observability/metrics"
	transporthttp "github.com/matching-sms-api/internal/transport/http"
	"github.com/prometheus/client_golang/prometheus"
)

const serviceName = "matching-sms-api"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	slog.SetDefault(slog.New(newLogHandler(cfg)))
	metrics.MustRegister(prometheus.DefaultRegisterer, serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("dynamodb client: %v", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	redisClient, err := redisinfra.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	smsSender, err := sns.NewSender(ctx, cfg)
	if err != nil {
		log.Fatalf("sns sender: %v", err)
	}

	s3Client, err := s3infra.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("s3 client: %v", err)
	}

	deps := &transporthttp.Deps{
		IdentityRepo:        dynamo.NewIdentityRepo(dynamoClient, cfg.DynamoTables),
		PreferencesRepo:     dynamo.NewPreferencesRepo(dynamoClient, cfg.DynamoTables.NotificationPreferences),
		NotificationLogRepo: dynamo.NewNotificationLogRepo(dynamoClient, cfg.DynamoTables.NotificationLog),
		Codes:               redisinfra.NewCodeStore(redisClient, cfg.OTPRetention),
		PhotoStore:          s3infra.NewStore(s3Client, cfg.S3BucketName, cfg.S3PublicBaseURL, cfg.AWSRegion),
		SMSSender:           smsSender,
		JWTProvider:         jwtProvider,
	}
	if cfg.OTPMaxSends > 0 {
		deps.Throttle = redisinfra.NewSendThrottle(redisClient, cfg.OTPMaxSends, cfg.OTPSendWindow)
	}
	svcs := transporthttp.NewServices(cfg, deps)

	if cfg.RabbitMQURL != "" {
		consumer := amqpinfra.NewConsumer(cfg.RabbitMQURL, cfg.NotifyEventsQueue, func(ctx context.Context, ev domain.NotificationEvent) error {
			_, err := svcs.Notifications.Process(ctx, ev)
			return err
		})
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("event consumer stopped", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(ctx, cfg, svcs),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

func newLogHandler(cfg *config.Config) slog.Handler {
	if cfg.IsProduction() {
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
}
