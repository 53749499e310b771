package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/flicky/go-storefront-api/internal/events"
	"github.com/flicky/go-storefront-api/internal/handler"
	"github.com/flicky/go-storefront-api/internal/middleware"
	"github.com/flicky/go-storefront-api/internal/migrations"
	"github.com/flicky/go-storefront-api/internal/payment"
	"github.com/flicky/go-storefront-api/internal/repository"
	"github.com/flicky/go-storefront-api/internal/service"
	"github.com/flicky/go-storefront-api/internal/worker"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the payment status worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "Apply the schema before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Log.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	pool, err := connectDB(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info("connected to PostgreSQL")

	if migrateOnStart {
		if err := migrations.Apply(ctx, pool); err != nil {
			return err
		}
		log.Info("schema applied")
	}

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to Redis: %w", err)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		return fmt.Errorf("open RabbitMQ channel: %w", err)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		return fmt.Errorf("setup RabbitMQ: %w", err)
	}
	log.Info("connected to RabbitMQ")

	// Kafka
	var publisher events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info("publishing order events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer publisher.Close()

	// Stripe
	var (
		checkout service.CheckoutProvider
		webhooks handler.WebhookParser
	)
	if cfg.Stripe.SecretKey != "" {
		stripe := payment.NewStripe(payment.Config{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			Currency:      cfg.Stripe.Currency,
			FrontendURL:   cfg.Stripe.FrontendURL,
		})
		checkout, webhooks = stripe, stripe
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, checkout and webhook routes are disabled")
	}

	store := repository.NewStore(pool)

	// Services
	authSvc := service.NewAuthService(store.Users(), cfg.JWT.Secret, cfg.JWT.Expiration)
	productSvc := service.NewProductService(store, redisClient, log)
	orderSvc := service.NewOrderService(store, publisher, log)
	paymentSvc := service.NewPaymentService(store, checkout, service.NewRedisDeduplicator(redisClient), publisher, log)

	// Handlers
	limiter := middleware.NewRateLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst, 3*time.Minute)
	go limiter.Cleanup(ctx)

	router := handler.NewRouter(handler.RouterConfig{
		JWTSecret:      cfg.JWT.Secret,
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigin:  cfg.Server.AllowedOrigin,
		RateLimiter:    limiter,
	}, handler.Handlers{
		Auth:     handler.NewAuthHandler(authSvc, authSvc.TokenTTL(), cfg.Server.SecureCookies, log),
		Products: handler.NewProductHandler(productSvc, log),
		Orders:   handler.NewOrderHandler(orderSvc, log),
		Payments: handler.NewPaymentHandler(paymentSvc, webhooks, log),
		Health: handler.NewHealthHandler(
			handler.Check{Name: "postgres", Check: store.Ping},
			handler.Check{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
			handler.Check{Name: "rabbitmq", Check: func(context.Context) error {
				if amqpConn.IsClosed() {
					return amqp.ErrClosed
				}
				return nil
			}},
		),
	}, log)

	// Worker
	paymentWorker := worker.NewPaymentWorker(amqpCh, paymentSvc, log)
	if err := paymentWorker.Start(ctx); err != nil {
		return fmt.Errorf("start payment worker: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		if runErr != nil {
			log.Error("server error", zap.Error(runErr))
		}
	}

	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	paymentWorker.Stop()
	stop()

	log.Info("server stopped")
	return runErr
}
