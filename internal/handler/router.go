package handler

import (
	"net/http"
	"time"

	"github.com/dealerops/console-api/internal/domain"
	"github.com/dealerops/console-api/internal/infra/observability"
	"github.com/dealerops/console-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles the service layer the router dispatches to.
type Services struct {
	Providers    *service.ProvidersService
	Accounts     *service.AccountsService
	CustomValues *service.CustomValuesService
	Connections  *service.ConnectionsService
	Contacts     *service.ContactsService
	Rollup       *service.RollupService
	Auth         *service.AuthService
}

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract defined for the console frontend.
func NewRouter(svcs Services, metrics *observability.Metrics, logger *zap.Logger, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Accounts, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. Authentication (public)
		// POST /v1/auth/login
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			if svcs.Auth == nil {
				r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusServiceUnavailable, "auth service unavailable: Supabase not configured")
				}))
				return
			}
			r.Post("/login", authLoginHandler(svcs.Auth, logger))
		})

		// =============================================
		// 2. OAuth callback (public, the vendor redirects
		//    the browser here without a console token)
		// GET /v1/esp/connections/callback
		// =============================================
		r.Get("/esp/connections/callback", oauthCallbackHandler(svcs.Connections, logger))

		// Everything below requires an operator token when auth is
		// configured.
		r.Group(func(r chi.Router) {
			if svcs.Auth != nil {
				r.Use(JWTAuthMiddleware(svcs.Auth, logger))
			}

			// =============================================
			// 3. Provider catalog & status
			// =============================================
			r.Get("/esp/providers", getProvidersHandler(svcs.Providers, logger))
			r.Get("/accounts/{accountKey}/providers", listProviderStatusesHandler(svcs.Providers, logger))
			r.Get("/accounts/{accountKey}/providers/{provider}", getProviderStatusHandler(svcs.Providers, logger))

			// =============================================
			// 4. Accounts CRUD
			// =============================================
			r.Get("/accounts", listAccountsHandler(svcs.Accounts, logger))
			r.Post("/accounts", createAccountHandler(svcs.Accounts, logger))
			r.Get("/accounts/{accountKey}", getAccountHandler(svcs.Accounts, logger))
			r.Patch("/accounts/{accountKey}", patchAccountHandler(svcs.Accounts, logger))
			r.Delete("/accounts/{accountKey}", deleteAccountHandler(svcs.Accounts, logger))

			// =============================================
			// 5. Custom values
			// =============================================
			r.Get("/custom-values", getDefaultsHandler(svcs.CustomValues, logger))
			r.Put("/custom-values", putDefaultsHandler(svcs.CustomValues, logger))
			r.Post("/custom-values/sync-all", syncAllHandler(svcs.CustomValues, logger))
			r.Get("/custom-values/{accountKey}", getAccountValuesHandler(svcs.CustomValues, logger))
			r.Put("/custom-values/{accountKey}", putAccountValuesHandler(svcs.CustomValues, logger))
			r.Post("/custom-values/{accountKey}/sync", syncAccountHandler(svcs.CustomValues, logger))
			r.Get("/custom-values/{accountKey}/runs", listSyncRunsHandler(svcs.CustomValues, logger))

			// =============================================
			// 6. ESP connections
			// =============================================
			r.Post("/esp/connections/authorize", authorizeHandler(svcs.Connections, logger))
			r.Post("/esp/connections/connect", connectHandler(svcs.Connections, logger))
			r.Post("/esp/connections/validate", validateConnectionHandler(svcs.Connections, logger))
			r.Delete("/esp/connections/{provider}", disconnectHandler(svcs.Connections, logger))
			r.Get("/esp/connections/ghl/agency", agencyStatusHandler(svcs.Connections, logger))
			r.Post("/esp/connections/ghl/location-link", locationLinkHandler(svcs.Connections, logger))
			r.Post("/esp/connections/ghl/location-link/bulk", bulkLinkHandler(svcs.Connections, logger))

			// =============================================
			// 7. Contacts (proxied to the active provider)
			// =============================================
			r.Get("/esp/contacts", listContactsHandler(svcs.Contacts, logger))
			r.Get("/esp/contacts/{contactId}", getContactHandler(svcs.Contacts, logger))
			r.Post("/esp/contacts/{contactId}/dnd", updateDNDHandler(svcs.Contacts, logger))
			r.Post("/esp/contacts/{contactId}/messages", sendMessageHandler(svcs.Contacts, logger))

			// =============================================
			// 8. Contact rollup job
			// =============================================
			r.Get("/rollup/config", getRollupConfigHandler(svcs.Rollup, logger))
			r.Put("/rollup/config", putRollupConfigHandler(svcs.Rollup, logger))
			r.Get("/rollup/status", rollupStatusHandler(svcs.Rollup, logger))
			r.Post("/rollup/sync", rollupSyncHandler(svcs.Rollup, logger))
			r.Post("/rollup/wipe", rollupWipeHandler(svcs.Rollup, logger))

			// =============================================
			// 9. Metrics snapshot for the dashboard
			// =============================================
			r.Get("/metrics/sync", syncMetricsHandler(metrics, logger))
		})
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(accounts *service.AccountsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "console-api", Status: "healthy", LatencyMs: 0, UptimePercent: 99.99, LastChecked: now},
		}

		if accounts != nil {
			start := time.Now()
			_, _, err := accounts.ListAccounts(ctx, 1, 1)
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				logger.Warn("healthz: store probe failed", zap.Error(err))
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "supabase", Status: status, LatencyMs: latency,
				UptimePercent: 99.9, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		code := http.StatusOK
		if overallStatus == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, domain.HealthStatus{Status: overallStatus, Services: services})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func syncMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/metrics/sync")
		defer span.End()

		writeJSON(w, http.StatusOK, metrics.GetSyncSnapshot())
	}
}
