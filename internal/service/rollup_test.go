package service_test

import (
	"context"
	"testing"

	"github.com/dealerops/console-api/internal/domain"
	"github.com/dealerops/console-api/internal/infra/observability"
	"github.com/dealerops/console-api/internal/infra/resilience"
	"github.com/dealerops/console-api/internal/service"

	"go.uber.org/zap"
)

func newRollupService(store *mockAccountStore, rollup *mockRollupStore, gw *mockGateway) *service.RollupService {
	contacts := newContactsService(store, gw)
	return service.NewRollupService(store, rollup, contacts, resilience.NewBulkhead(4), observability.NewMetrics(), zap.NewNop())
}

func TestRollupRun_AggregatesAccounts(t *testing.T) {
	store := newMockAccountStore(connectedAccount("acme"), connectedAccount("globex"))
	rollup := &mockRollupStore{}
	gw := &mockGateway{contacts: []domain.Contact{
		{ID: "c-1", DND: false},
		{ID: "c-2", DND: true},
		{ID: "c-3", DND: false},
	}}
	svc := newRollupService(store, rollup, gw)

	run, err := svc.Run(context.Background(), "manual")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Status != "success" {
		t.Fatalf("expected success, got %s (%s)", run.Status, run.Error)
	}
	if run.AccountCount != 2 {
		t.Errorf("expected 2 accounts rolled up, got %d", run.AccountCount)
	}
	if run.ContactCount != 6 {
		t.Errorf("expected 6 contacts counted, got %d", run.ContactCount)
	}
	if len(rollup.rows) != 2 {
		t.Fatalf("expected 2 summary rows, got %d", len(rollup.rows))
	}
	for _, row := range rollup.rows {
		if row.ContactCount != 3 || row.DNDCount != 1 {
			t.Errorf("expected 3 contacts / 1 dnd per row, got %+v", row)
		}
	}
	if len(rollup.runs) != 1 {
		t.Errorf("expected run recorded, got %d", len(rollup.runs))
	}
}

func TestRollupRun_SkipsUnconnectedAccounts(t *testing.T) {
	store := newMockAccountStore(
		connectedAccount("acme"),
		&domain.Account{Key: "orphan", Dealer: "Orphan", EspProvider: "ghl"},
	)
	rollup := &mockRollupStore{}
	gw := &mockGateway{contacts: []domain.Contact{{ID: "c-1"}}}
	svc := newRollupService(store, rollup, gw)

	run, err := svc.Run(context.Background(), "manual")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Status != "success" {
		t.Fatalf("expected success despite skipped account, got %s", run.Status)
	}
	if run.AccountCount != 1 {
		t.Errorf("expected 1 account rolled up, got %d", run.AccountCount)
	}
}

func TestRollupRun_HonorsConfiguredAccountList(t *testing.T) {
	store := newMockAccountStore(connectedAccount("acme"), connectedAccount("globex"))
	rollup := &mockRollupStore{config: &domain.RollupConfig{
		Enabled:     true,
		AccountKeys: []string{"acme"},
	}}
	gw := &mockGateway{contacts: []domain.Contact{{ID: "c-1"}}}
	svc := newRollupService(store, rollup, gw)

	run, err := svc.Run(context.Background(), "scheduled")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.AccountCount != 1 {
		t.Errorf("expected only the configured account, got %d", run.AccountCount)
	}
}

func TestUpdateConfig_RoundTrips(t *testing.T) {
	rollup := &mockRollupStore{}
	svc := newRollupService(newMockAccountStore(), rollup, &mockGateway{})

	cfg, err := svc.UpdateConfig(context.Background(), &domain.RollupConfig{
		Enabled:  true,
		Schedule: "0 6 * * *",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Enabled || cfg.Schedule != "0 6 * * *" {
		t.Errorf("expected stored config back, got %+v", cfg)
	}
}

func TestGetStatus_ReportsLastRun(t *testing.T) {
	rollup := &mockRollupStore{runs: []domain.RollupRun{
		{ID: "run-2", Status: "success"},
		{ID: "run-1", Status: "failed"},
	}}
	svc := newRollupService(newMockAccountStore(), rollup, &mockGateway{})

	status, err := svc.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.LastRun == nil || status.LastRun.ID != "run-2" {
		t.Errorf("expected newest run first, got %+v", status.LastRun)
	}
	if len(status.History) != 2 {
		t.Errorf("expected full history, got %d", len(status.History))
	}
}

func TestWipe_ClearsRows(t *testing.T) {
	rollup := &mockRollupStore{rows: []domain.RollupRow{{AccountKey: "acme"}}}
	svc := newRollupService(newMockAccountStore(), rollup, &mockGateway{})

	if err := svc.Wipe(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rollup.wiped || len(rollup.rows) != 0 {
		t.Error("expected rows wiped")
	}
}
