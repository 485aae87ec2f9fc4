package handler

import (
	"net/http"

	"github.com/dealerops/console-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Provider Catalog & Status Handlers
// ============================================================

func getProvidersHandler(svc *service.ProvidersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/esp/providers")
		defer span.End()

		accountKey := r.URL.Query().Get("accountKey")
		if accountKey != "" {
			span.SetAttributes(attribute.String("account.key", accountKey))
		}

		catalog, err := svc.GetCatalog(ctx, accountKey)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, catalog)
	}
}

func listProviderStatusesHandler(svc *service.ProvidersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountKey}/providers")
		defer span.End()

		accountKey := chi.URLParam(r, "accountKey")
		span.SetAttributes(attribute.String("account.key", accountKey))

		statuses, err := svc.ListStatuses(ctx, accountKey)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"providers": statuses})
	}
}

func getProviderStatusHandler(svc *service.ProvidersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountKey}/providers/{provider}")
		defer span.End()

		accountKey := chi.URLParam(r, "accountKey")
		provider := chi.URLParam(r, "provider")
		span.SetAttributes(
			attribute.String("account.key", accountKey),
			attribute.String("provider", provider),
		)

		status, err := svc.GetStatus(ctx, accountKey, provider)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}
