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
// ESP Connection Handlers
// ============================================================

func authorizeHandler(svc *service.ConnectionsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/esp/connections/authorize")
		defer span.End()

		var req domain.AuthorizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := svc.Authorize(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func oauthCallbackHandler(svc *service.ConnectionsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/esp/connections/callback")
		defer span.End()

		q := r.URL.Query()
		provider := q.Get("provider")
		if provider == "" {
			provider = "ghl"
		}
		span.SetAttributes(attribute.String("provider", provider))

		if errMsg := q.Get("error"); errMsg != "" {
			logger.Warn("oauth callback returned an error",
				zap.String("provider", provider),
				zap.String("error", errMsg),
			)
			writeError(w, http.StatusBadRequest, "authorization denied: "+errMsg)
			return
		}

		conn, err := svc.CompleteOAuth(ctx, provider, q.Get("code"), q.Get("state"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, conn)
	}
}

func connectHandler(svc *service.ConnectionsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/esp/connections/connect")
		defer span.End()

		var req domain.ConnectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		conn, err := svc.Connect(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, conn)
	}
}

func validateConnectionHandler(svc *service.ConnectionsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/esp/connections/validate")
		defer span.End()

		var req domain.ValidateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := svc.Validate(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func disconnectHandler(svc *service.ConnectionsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/esp/connections/{provider}")
		defer span.End()

		provider := chi.URLParam(r, "provider")
		accountKey := r.URL.Query().Get("accountKey")
		span.SetAttributes(
			attribute.String("provider", provider),
			attribute.String("account.key", accountKey),
		)
		if accountKey == "" {
			writeError(w, http.StatusBadRequest, "accountKey is required")
			return
		}

		if err := svc.Disconnect(ctx, accountKey, provider); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "connection removed", ID: provider})
	}
}

func agencyStatusHandler(svc *service.ConnectionsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/esp/connections/ghl/agency")
		defer span.End()

		status, err := svc.AgencyStatus(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func locationLinkHandler(svc *service.ConnectionsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/esp/connections/ghl/location-link")
		defer span.End()

		var req domain.LocationLinkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.LinkLocation(ctx, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "location linked", ID: req.LocationID})
	}
}

func bulkLinkHandler(svc *service.ConnectionsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/esp/connections/ghl/location-link/bulk")
		defer span.End()

		var req domain.BulkLinkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.Bool("apply", req.Apply))

		resp, err := svc.BulkLinkLocations(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
