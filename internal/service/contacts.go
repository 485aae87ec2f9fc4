// Package service — ContactsService proxies the contact surface of the
// account's active provider: listing, detail, DND and ad-hoc messages.
package service

import (
	"context"
	"strings"

	"github.com/dealerops/console-api/internal/domain"
	"github.com/dealerops/console-api/internal/esp"
	"github.com/dealerops/console-api/internal/infra/observability"
	"github.com/dealerops/console-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var contactsTracer = otel.Tracer("service/contacts")

// ContactsService proxies contact operations through the ESP gateway.
// Every operation requires the account to hold at least one live
// connection.
type ContactsService struct {
	store   port.AccountStore
	gateway port.EspGateway
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewContactsService creates a new contacts service.
func NewContactsService(store port.AccountStore, gateway port.EspGateway, metrics *observability.Metrics, logger *zap.Logger) *ContactsService {
	return &ContactsService{store: store, gateway: gateway, metrics: metrics, logger: logger}
}

func (s *ContactsService) ListContacts(ctx context.Context, accountKey string, page, pageSize int) (*domain.ContactListResponse, error) {
	ctx, span := contactsTracer.Start(ctx, "ContactsService.ListContacts")
	defer span.End()
	span.SetAttributes(attribute.String("account.key", accountKey))

	locationID, err := s.resolveLocation(ctx, accountKey)
	if err != nil {
		return nil, err
	}

	contacts, err := s.gateway.ListContacts(ctx, locationID, page, pageSize)
	if err != nil {
		s.metrics.IncrExternalError("ghl")
		return nil, err
	}
	return contacts, nil
}

func (s *ContactsService) GetContact(ctx context.Context, accountKey, contactID string) (*domain.Contact, error) {
	ctx, span := contactsTracer.Start(ctx, "ContactsService.GetContact")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.key", accountKey),
		attribute.String("contact.id", contactID),
	)

	locationID, err := s.resolveLocation(ctx, accountKey)
	if err != nil {
		return nil, err
	}

	contact, err := s.gateway.GetContact(ctx, locationID, contactID)
	if err != nil {
		s.metrics.IncrExternalError("ghl")
		return nil, err
	}
	return contact, nil
}

func (s *ContactsService) UpdateDND(ctx context.Context, contactID string, req *domain.DNDUpdateRequest) error {
	ctx, span := contactsTracer.Start(ctx, "ContactsService.UpdateDND")
	defer span.End()
	span.SetAttributes(
		attribute.String("contact.id", contactID),
		attribute.Bool("dnd", req.DND),
	)

	locationID, err := s.resolveLocation(ctx, req.AccountKey)
	if err != nil {
		return err
	}

	if err := s.gateway.UpdateContactDND(ctx, locationID, contactID, req.DND); err != nil {
		s.metrics.IncrExternalError("ghl")
		return err
	}

	s.logger.Info("contact dnd updated",
		zap.String("account_key", req.AccountKey),
		zap.String("contact_id", contactID),
		zap.Bool("dnd", req.DND),
	)
	return nil
}

// SendMessage sends an ad-hoc message to a contact. A missing type is
// classified from the payload shape rather than rejected.
func (s *ContactsService) SendMessage(ctx context.Context, contactID string, req *domain.SendMessageRequest) (*domain.ContactMessage, error) {
	ctx, span := contactsTracer.Start(ctx, "ContactsService.SendMessage")
	defer span.End()
	span.SetAttributes(attribute.String("contact.id", contactID))

	if req.Body == "" {
		return nil, &domain.ErrValidation{Field: "body", Message: "required"}
	}

	req.Type = classifyMessageType(req)
	if req.Type != "sms" && req.Type != "email" {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be sms or email"}
	}
	if req.Type == "email" && req.Subject == "" {
		return nil, &domain.ErrValidation{Field: "subject", Message: "required for email"}
	}
	span.SetAttributes(attribute.String("message.type", req.Type))

	locationID, err := s.resolveLocation(ctx, req.AccountKey)
	if err != nil {
		return nil, err
	}

	msg, err := s.gateway.SendContactMessage(ctx, locationID, contactID, req)
	if err != nil {
		s.metrics.IncrExternalError("ghl")
		return nil, err
	}

	s.logger.Info("contact message sent",
		zap.String("account_key", req.AccountKey),
		zap.String("contact_id", contactID),
		zap.String("type", req.Type),
	)
	return msg, nil
}

// resolveLocation gates on a live connection and returns the location
// the gateway should address.
func (s *ContactsService) resolveLocation(ctx context.Context, accountKey string) (string, error) {
	if accountKey == "" {
		return "", &domain.ErrValidation{Field: "accountKey", Message: "required"}
	}

	account, err := s.store.GetAccount(ctx, accountKey)
	if err != nil {
		return "", err
	}

	resolver := esp.NewStatusResolver(esp.DeriveCatalogFromAccount(account), account)
	if !resolver.HasAnyConnection() {
		return "", &domain.ErrNotConnected{AccountKey: accountKey, Provider: activeProvider(account)}
	}

	if account.ActiveLocationID != "" {
		return account.ActiveLocationID, nil
	}
	for _, c := range account.OAuthConnections {
		if c.LocationID != "" {
			return c.LocationID, nil
		}
	}
	return "", &domain.ErrNotConnected{AccountKey: accountKey, Provider: activeProvider(account)}
}

// classifyMessageType keeps an explicit type and otherwise infers
// conservatively: a subject means email, anything else is sms.
func classifyMessageType(req *domain.SendMessageRequest) string {
	t := strings.ToLower(strings.TrimSpace(req.Type))
	if t == "text" {
		t = "sms"
	}
	if t != "" {
		return t
	}
	if req.Subject != "" {
		return "email"
	}
	return "sms"
}
