package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mercadia/storefront-backend/api/routes"
	cartsvc "github.com/mercadia/storefront-backend/internal/cart"
	checkoutsvc "github.com/mercadia/storefront-backend/internal/checkout"
	couponsvc "github.com/mercadia/storefront-backend/internal/coupons"
	"github.com/mercadia/storefront-backend/internal/notifications"
	ordersvc "github.com/mercadia/storefront-backend/internal/orders"
	paymentsvc "github.com/mercadia/storefront-backend/internal/payments"
	productsvc "github.com/mercadia/storefront-backend/internal/products"
	squarewebhook "github.com/mercadia/storefront-backend/internal/webhooks/square"
	"github.com/mercadia/storefront-backend/pkg/config"
	"github.com/mercadia/storefront-backend/pkg/db"
	"github.com/mercadia/storefront-backend/pkg/logger"
	"github.com/mercadia/storefront-backend/pkg/metrics"
	"github.com/mercadia/storefront-backend/pkg/migrate"
	"github.com/mercadia/storefront-backend/pkg/pubsub"
	"github.com/mercadia/storefront-backend/pkg/redis"
	"github.com/mercadia/storefront-backend/pkg/square"
)

const webhookIdempotencyTTL = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	productRepo := productsvc.NewRepository(dbClient.DB())
	couponRepo := couponsvc.NewRepository(dbClient.DB())
	cartRepo := cartsvc.NewRepository(dbClient.DB())
	orderRepo := ordersvc.NewRepository(dbClient.DB())

	productService, err := productsvc.NewService(productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}
	couponService, err := couponsvc.NewService(couponRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon service", err)
		os.Exit(1)
	}
	cartService, err := cartsvc.NewService(cartRepo, productRepo, couponRepo, dbClient, cfg.Cart)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	orderService, err := ordersvc.NewService(orderRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	// Pub/Sub is optional: without a GCP project the API runs with order
	// event publishing disabled.
	var pubsubClient *pubsub.Client
	var notifier *notifications.OrderPublisher
	if strings.TrimSpace(cfg.GCP.ProjectID) != "" {
		pubsubClient, err = pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		notifier, err = notifications.NewOrderPublisher(pubsubClient.OrderEventsPublisher(), logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create order publisher", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "gcp project not configured; order events disabled")
	}

	checkoutParams := checkoutsvc.ServiceParams{
		Tx:       dbClient,
		Carts:    cartRepo,
		Products: productRepo,
		Coupons:  couponRepo,
		Orders:   orderRepo,
		Metrics:  metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
		Logger:   logg,
	}
	if notifier != nil {
		checkoutParams.Notifier = notifier
	}
	checkoutService, err := checkoutsvc.NewService(checkoutParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	// Square is optional in local development; payment endpoints respond
	// with an internal error until it is configured.
	var squareClient *square.Client
	var paymentService paymentsvc.Service
	var webhookService *squarewebhook.Service
	var webhookGuard *squarewebhook.IdempotencyGuard
	if strings.TrimSpace(cfg.Square.AccessToken) != "" {
		squareClient, err = square.NewClient(context.Background(), cfg.Square, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap square", err)
			os.Exit(1)
		}
		paymentService, err = paymentsvc.NewService(orderRepo, squareClient, cfg.Square, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create payment service", err)
			os.Exit(1)
		}
		webhookParams := squarewebhook.ServiceParams{
			Orders:   orderService,
			Payments: squareClient,
			Logger:   logg,
		}
		if notifier != nil {
			webhookParams.Notifier = notifier
		}
		webhookService, err = squarewebhook.NewService(webhookParams)
		if err != nil {
			logg.Error(context.Background(), "failed to create webhook service", err)
			os.Exit(1)
		}
		webhookGuard, err = squarewebhook.NewIdempotencyGuard(redisClient, webhookIdempotencyTTL, "square")
		if err != nil {
			logg.Error(context.Background(), "failed to create webhook guard", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "square not configured; payment endpoints disabled")
	}

	routerParams := routes.RouterParams{
		Config:       cfg,
		Logger:       logg,
		DB:           dbClient,
		Redis:        redisClient,
		Products:     productService,
		Coupons:      couponService,
		Cart:         cartService,
		Checkout:     checkoutService,
		Orders:       orderService,
		Payments:     paymentService,
		SquareClient: squareClient,
		Webhook:      webhookService,
		WebhookGuard: webhookGuard,
	}
	if pubsubClient != nil {
		routerParams.PubSub = pubsubClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(routerParams),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
