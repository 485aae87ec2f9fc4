package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dealerops/console-api/internal/domain"
	"github.com/dealerops/console-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Custom Values Handlers
// ============================================================

func getDefaultsHandler(svc *service.CustomValuesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/custom-values")
		defer span.End()

		defaults, err := svc.GetDefaults(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, defaults)
	}
}

func putDefaultsHandler(svc *service.CustomValuesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/custom-values")
		defer span.End()

		var req domain.CustomValueDefaults
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		defaults, err := svc.PutDefaults(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, defaults)
	}
}

func getAccountValuesHandler(svc *service.CustomValuesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/custom-values/{accountKey}")
		defer span.End()

		accountKey := chi.URLParam(r, "accountKey")
		span.SetAttributes(attribute.String("account.key", accountKey))

		values, err := svc.GetAccountValues(ctx, accountKey)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"fields": values})
	}
}

func putAccountValuesHandler(svc *service.CustomValuesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/custom-values/{accountKey}")
		defer span.End()

		accountKey := chi.URLParam(r, "accountKey")
		span.SetAttributes(attribute.String("account.key", accountKey))

		var req struct {
			Fields map[string]domain.CustomValue `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		values, err := svc.PutAccountValues(ctx, accountKey, req.Fields)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"fields": values})
	}
}

func syncAccountHandler(svc *service.CustomValuesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/custom-values/{accountKey}/sync")
		defer span.End()

		accountKey := chi.URLParam(r, "accountKey")
		provider := r.URL.Query().Get("provider")
		span.SetAttributes(attribute.String("account.key", accountKey))

		result, err := svc.SyncAccount(ctx, accountKey, provider)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func syncAllHandler(svc *service.CustomValuesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/custom-values/sync-all")
		defer span.End()

		result, err := svc.SyncAll(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func listSyncRunsHandler(svc *service.CustomValuesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/custom-values/{accountKey}/runs")
		defer span.End()

		accountKey := chi.URLParam(r, "accountKey")
		span.SetAttributes(attribute.String("account.key", accountKey))

		page, pageSize := parsePagination(r)
		runs, total, err := svc.ListSyncRuns(ctx, accountKey, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.ListResponse[domain.SyncRun]{
			Data:     runs,
			Total:    total,
			Page:     page,
			PageSize: pageSize,
			HasMore:  page*pageSize < total,
		})
	}
}
