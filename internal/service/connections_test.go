package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dealerops/console-api/internal/domain"
	"github.com/dealerops/console-api/internal/infra/observability"
	"github.com/dealerops/console-api/internal/service"

	"go.uber.org/zap"
)

func newConnectionsService(store *mockAccountStore, gw *mockGateway) *service.ConnectionsService {
	return service.NewConnectionsService(store, gw, observability.NewMetrics(), zap.NewNop())
}

func TestAuthorize_ReturnsURLAndState(t *testing.T) {
	store := newMockAccountStore(&domain.Account{Key: "acme", Dealer: "Acme"})
	gw := &mockGateway{authorizeURL: "https://vendor.example/oauth/chooselocation?client_id=x"}
	svc := newConnectionsService(store, gw)

	resp, err := svc.Authorize(context.Background(), &domain.AuthorizeRequest{
		AccountKey: "acme",
		Provider:   "GHL",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AuthorizeURL == "" {
		t.Error("expected authorize URL")
	}
	if !strings.HasPrefix(resp.State, "acme:") {
		t.Errorf("expected state to carry the account key, got %s", resp.State)
	}
}

func TestAuthorize_UnknownAccount(t *testing.T) {
	svc := newConnectionsService(newMockAccountStore(), &mockGateway{})

	_, err := svc.Authorize(context.Background(), &domain.AuthorizeRequest{
		AccountKey: "missing",
		Provider:   "ghl",
	})
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteOAuth_StoresGrant(t *testing.T) {
	store := newMockAccountStore(&domain.Account{Key: "acme", Dealer: "Acme"})
	gw := &mockGateway{exchanged: &domain.OAuthConnection{
		Provider:   "ghl",
		LocationID: "loc-1",
		Scopes:     []string{"contacts.readonly"},
	}}
	svc := newConnectionsService(store, gw)

	conn, err := svc.CompleteOAuth(context.Background(), "ghl", "auth-code", "acme:7e2d1a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conn.LocationID != "loc-1" {
		t.Errorf("expected exchanged connection back, got %+v", conn)
	}
	if len(store.oauthSaves) != 1 {
		t.Fatalf("expected grant persisted, got %d saves", len(store.oauthSaves))
	}
}

func TestCompleteOAuth_MalformedState(t *testing.T) {
	svc := newConnectionsService(newMockAccountStore(), &mockGateway{})

	_, err := svc.CompleteOAuth(context.Background(), "ghl", "auth-code", "no-separator")
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestConnect_RejectsInvalidCredential(t *testing.T) {
	store := newMockAccountStore(&domain.Account{Key: "acme", Dealer: "Acme"})
	gw := &mockGateway{validation: &domain.ValidateResponse{Valid: false, Reason: "credential rejected by vendor"}}
	svc := newConnectionsService(store, gw)

	_, err := svc.Connect(context.Background(), &domain.ConnectRequest{
		AccountKey: "acme",
		Provider:   "ghl",
		APIKey:     "bad-key",
	})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(store.espSaves) != 0 {
		t.Error("expected no credential persisted")
	}
}

func TestConnect_StoresValidCredential(t *testing.T) {
	store := newMockAccountStore(&domain.Account{Key: "acme", Dealer: "Acme"})
	svc := newConnectionsService(store, &mockGateway{})

	conn, err := svc.Connect(context.Background(), &domain.ConnectRequest{
		AccountKey: "acme",
		Provider:   "GHL",
		APIKey:     "good-key",
		Label:      "primary",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conn.Provider != "ghl" {
		t.Errorf("expected normalized provider, got %s", conn.Provider)
	}
	if len(store.espSaves) != 1 {
		t.Fatalf("expected credential persisted, got %d saves", len(store.espSaves))
	}
}

func TestDisconnect_NotConnected(t *testing.T) {
	store := newMockAccountStore(&domain.Account{Key: "acme", Dealer: "Acme"})
	svc := newConnectionsService(store, &mockGateway{})

	err := svc.Disconnect(context.Background(), "acme", "ghl")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDisconnect_RemovesConnection(t *testing.T) {
	store := newMockAccountStore(connectedAccount("acme"))
	svc := newConnectionsService(store, &mockGateway{})

	if err := svc.Disconnect(context.Background(), "acme", "ghl"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.removed) != 1 || store.removed[0] != "acme/ghl" {
		t.Errorf("expected removal recorded, got %v", store.removed)
	}
}

func TestLinkLocation_PersistsAfterVendorCheck(t *testing.T) {
	store := newMockAccountStore(&domain.Account{Key: "acme", Dealer: "Acme"})
	gw := &mockGateway{}
	svc := newConnectionsService(store, gw)

	err := svc.LinkLocation(context.Background(), &domain.LocationLinkRequest{
		AccountKey: "acme",
		LocationID: "loc-9",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gw.linkCalls) != 1 {
		t.Errorf("expected vendor link call, got %v", gw.linkCalls)
	}
	if len(store.links) != 1 || store.links[0] != "acme=loc-9" {
		t.Errorf("expected link persisted, got %v", store.links)
	}
}

func TestBulkLink_PreviewDoesNotApply(t *testing.T) {
	store := newMockAccountStore(&domain.Account{Key: "acme", Dealer: "Acme"})
	gw := &mockGateway{}
	svc := newConnectionsService(store, gw)

	resp, err := svc.BulkLinkLocations(context.Background(), &domain.BulkLinkRequest{
		Input: "acme\tloc-1\tAcme Main\nno-such-account\tloc-2",
		Apply: false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.RowCount != 2 {
		t.Fatalf("expected 2 rows, got %d", resp.RowCount)
	}
	if resp.ErrCount != 1 {
		t.Errorf("expected 1 invalid row, got %d", resp.ErrCount)
	}
	if resp.Applied || len(gw.linkCalls) != 0 {
		t.Error("preview must not link anything")
	}
}

func TestBulkLink_ApplyLinksValidRowsOnly(t *testing.T) {
	store := newMockAccountStore(&domain.Account{Key: "acme", Dealer: "Acme"})
	gw := &mockGateway{}
	svc := newConnectionsService(store, gw)

	resp, err := svc.BulkLinkLocations(context.Background(), &domain.BulkLinkRequest{
		Input: "acme\tloc-1\nno-such-account\tloc-2",
		Apply: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Applied {
		t.Error("expected applied")
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 applied result, got %d", len(resp.Results))
	}
	if !resp.Results[0].Linked {
		t.Errorf("expected row linked, got %+v", resp.Results[0])
	}
	if len(store.links) != 1 || store.links[0] != "acme=loc-1" {
		t.Errorf("expected one persisted link, got %v", store.links)
	}
}
