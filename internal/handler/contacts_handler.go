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
// Contact Handlers (proxied to the active ESP)
// ============================================================

func listContactsHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/esp/contacts")
		defer span.End()

		accountKey := r.URL.Query().Get("accountKey")
		span.SetAttributes(attribute.String("account.key", accountKey))

		page, pageSize := parsePagination(r)
		contacts, err := svc.ListContacts(ctx, accountKey, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, contacts)
	}
}

func getContactHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/esp/contacts/{contactId}")
		defer span.End()

		accountKey := r.URL.Query().Get("accountKey")
		contactID := chi.URLParam(r, "contactId")
		span.SetAttributes(
			attribute.String("account.key", accountKey),
			attribute.String("contact.id", contactID),
		)

		contact, err := svc.GetContact(ctx, accountKey, contactID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, contact)
	}
}

func updateDNDHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/esp/contacts/{contactId}/dnd")
		defer span.End()

		contactID := chi.URLParam(r, "contactId")
		span.SetAttributes(attribute.String("contact.id", contactID))

		var req domain.DNDUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.UpdateDND(ctx, contactID, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "dnd updated", ID: contactID})
	}
}

func sendMessageHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/esp/contacts/{contactId}/messages")
		defer span.End()

		contactID := chi.URLParam(r, "contactId")
		span.SetAttributes(attribute.String("contact.id", contactID))

		var req domain.SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		msg, err := svc.SendMessage(ctx, contactID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}
