package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Rozimuxammed/mlm-marketing/internal/cart"
	"github.com/Rozimuxammed/mlm-marketing/internal/catalog"
	"github.com/Rozimuxammed/mlm-marketing/internal/health"
	"github.com/Rozimuxammed/mlm-marketing/internal/middleware"
	"github.com/Rozimuxammed/mlm-marketing/internal/prefs"
	"github.com/Rozimuxammed/mlm-marketing/internal/session"
	"github.com/Rozimuxammed/mlm-marketing/internal/wallet"
)

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	Sessions      *session.Store
	Carts         *cart.Store
	Catalog       *catalog.Service
	Wallet        *wallet.Store
	Prefs         *prefs.Store
	Referrals     ReferralReader
	HealthHandler *health.Handler
	Logger        *slog.Logger
	AllowedOrigin string
}

// NewRouter creates the chi router with all portal gateway routes.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.CORS(deps.AllowedOrigin))
	r.Use(middleware.RequestLogging(deps.Logger))
	r.Use(middleware.PrometheusMetrics())
	r.Use(middleware.Tracing())

	r.Get("/health/live", deps.HealthHandler.LivenessHandler())
	r.Get("/health/ready", deps.HealthHandler.ReadinessHandler())
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	sessionHandler := NewSessionHandler(deps.Sessions, deps.Referrals, deps.Logger)
	cartHandler := NewCartHandler(deps.Carts, deps.Catalog, deps.Sessions, deps.Prefs, deps.Logger)
	catalogHandler := NewCatalogHandler(deps.Catalog, deps.Logger)
	walletHandler := NewWalletHandler(deps.Wallet, deps.Logger)
	prefsHandler := NewPrefsHandler(deps.Prefs, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", sessionHandler.Login)
			r.Post("/register", sessionHandler.Register)
			r.Post("/logout", sessionHandler.Logout)
			r.Get("/oauth/{provider}", sessionHandler.OAuthRedirect)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.GetSession)
			r.Post("/refresh", sessionHandler.RefreshProfile)
			r.Post("/bonus", sessionHandler.ClaimBonus)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/checkout", cartHandler.Checkout)

			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{productId}", cartHandler.UpdateItemQuantity)
			r.Delete("/items/{productId}", cartHandler.RemoveItem)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", catalogHandler.ListProducts)
			r.Get("/products/{productId}", catalogHandler.GetProduct)
		})

		r.With(RequireSession(deps.Sessions)).Get("/referrals", sessionHandler.Referrals)

		r.Route("/wallet", func(r chi.Router) {
			r.Use(RequireSession(deps.Sessions))

			r.Get("/rates", walletHandler.CoinRates)
			r.Get("/payments", walletHandler.Payments)
			r.Get("/withdrawals", walletHandler.Withdrawals)
			r.Get("/channel", walletHandler.ChannelStatus)
			r.Post("/deposit", walletHandler.Deposit)
			r.Post("/withdraw", walletHandler.Withdraw)
		})

		r.Route("/prefs", func(r chi.Router) {
			r.Get("/", prefsHandler.GetPrefs)
			r.Put("/locale", prefsHandler.SetLocale)
			r.Put("/theme", prefsHandler.SetTheme)
		})
	})

	return r
}
