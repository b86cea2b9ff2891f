package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercadia/storefront-backend/api/controllers"
	webhookcontrollers "github.com/mercadia/storefront-backend/api/controllers/webhooks"
	"github.com/mercadia/storefront-backend/api/middleware"
	cartsvc "github.com/mercadia/storefront-backend/internal/cart"
	checkoutsvc "github.com/mercadia/storefront-backend/internal/checkout"
	couponsvc "github.com/mercadia/storefront-backend/internal/coupons"
	ordersvc "github.com/mercadia/storefront-backend/internal/orders"
	paymentsvc "github.com/mercadia/storefront-backend/internal/payments"
	productsvc "github.com/mercadia/storefront-backend/internal/products"
	squarewebhook "github.com/mercadia/storefront-backend/internal/webhooks/square"
	"github.com/mercadia/storefront-backend/pkg/config"
	"github.com/mercadia/storefront-backend/pkg/db"
	"github.com/mercadia/storefront-backend/pkg/logger"
	"github.com/mercadia/storefront-backend/pkg/redis"
	"github.com/mercadia/storefront-backend/pkg/square"
)

type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        *redis.Client
	PubSub       controllers.Pinger
	Products     productsvc.Service
	Coupons      couponsvc.Service
	Cart         cartsvc.Service
	Checkout     checkoutsvc.Service
	Orders       ordersvc.Service
	Payments     paymentsvc.Service
	SquareClient *square.Client
	Webhook      *squarewebhook.Service
	WebhookGuard *squarewebhook.IdempotencyGuard
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis, p.PubSub))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/square", webhookcontrollers.SquareWebhook(p.Webhook, p.SquareClient, p.WebhookGuard, logg))
	})

	// Catalog browsing and coupon previews are open to anonymous shoppers.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(p.Products, false, logg))
		r.Get("/{productId}", controllers.GetProduct(p.Products, logg))
	})
	r.Post("/api/v1/coupons/validate", controllers.ValidateCoupon(p.Coupons, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(p.Cart, logg))
			r.Delete("/", controllers.ClearCart(p.Cart, logg))
			r.Post("/items", controllers.AddCartItem(p.Cart, logg))
			r.Patch("/items/{productId}", controllers.UpdateCartItem(p.Cart, logg))
			r.Delete("/items/{productId}", controllers.RemoveCartItem(p.Cart, logg))
			r.Post("/coupon", controllers.ApplyCartCoupon(p.Cart, logg))
			r.Delete("/coupon", controllers.RemoveCartCoupon(p.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(p.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(p.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(p.Orders, logg))
			r.Post("/{orderId}/pay", controllers.InitiateOrderPayment(p.Payments, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(p.Products, true, logg))
			r.Post("/", controllers.AdminCreateProduct(p.Products, logg))
			r.Patch("/{productId}", controllers.AdminUpdateProduct(p.Products, logg))
			r.Delete("/{productId}", controllers.AdminDeleteProduct(p.Products, logg))
		})

		r.Post("/orders/{orderId}/status", controllers.AdminUpdateOrderStatus(p.Orders, logg))

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", controllers.AdminListCoupons(p.Coupons, logg))
			r.Post("/", controllers.AdminCreateCoupon(p.Coupons, logg))
			r.Get("/{couponId}", controllers.AdminGetCoupon(p.Coupons, logg))
			r.Patch("/{couponId}", controllers.AdminUpdateCoupon(p.Coupons, logg))
			r.Delete("/{couponId}", controllers.AdminDeleteCoupon(p.Coupons, logg))
		})
	})

	return r
}
