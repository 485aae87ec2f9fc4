// Package service — RollupService runs the contact-rollup job: config,
// run history, manual runs and the wipe.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/dealerops/console-api/internal/domain"
	"github.com/dealerops/console-api/internal/infra/observability"
	"github.com/dealerops/console-api/internal/infra/resilience"
	"github.com/dealerops/console-api/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var rollupTracer = otel.Tracer("service/rollup")

const rollupHistoryLimit = 20

// RollupService aggregates per-account contact counts into summary rows.
type RollupService struct {
	accounts port.AccountStore
	store    port.RollupStore
	contacts *ContactsService
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewRollupService creates a new rollup service.
func NewRollupService(accounts port.AccountStore, store port.RollupStore, contacts *ContactsService, bulkhead *resilience.Bulkhead, metrics *observability.Metrics, logger *zap.Logger) *RollupService {
	return &RollupService{
		accounts: accounts,
		store:    store,
		contacts: contacts,
		bulkhead: bulkhead,
		metrics:  metrics,
		logger:   logger,
	}
}

// GetStatus returns the config, last run and recent history.
func (s *RollupService) GetStatus(ctx context.Context) (*domain.RollupStatus, error) {
	ctx, span := rollupTracer.Start(ctx, "RollupService.GetStatus")
	defer span.End()

	cfg, err := s.store.GetRollupConfig(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.store.ListRollupRuns(ctx, rollupHistoryLimit)
	if err != nil {
		return nil, err
	}

	status := &domain.RollupStatus{Config: *cfg, History: history}
	if len(history) > 0 {
		status.LastRun = &history[0]
	}
	return status, nil
}

// GetConfig returns the rollup job config.
func (s *RollupService) GetConfig(ctx context.Context) (*domain.RollupConfig, error) {
	ctx, span := rollupTracer.Start(ctx, "RollupService.GetConfig")
	defer span.End()

	return s.store.GetRollupConfig(ctx)
}

// UpdateConfig replaces the rollup job config.
func (s *RollupService) UpdateConfig(ctx context.Context, cfg *domain.RollupConfig) (*domain.RollupConfig, error) {
	ctx, span := rollupTracer.Start(ctx, "RollupService.UpdateConfig")
	defer span.End()
	span.SetAttributes(attribute.Bool("enabled", cfg.Enabled))

	if err := s.store.PutRollupConfig(ctx, cfg); err != nil {
		return nil, err
	}

	s.logger.Info("rollup config updated",
		zap.Bool("enabled", cfg.Enabled),
		zap.Int("account_keys", len(cfg.AccountKeys)),
	)
	return s.store.GetRollupConfig(ctx)
}

// Run executes one rollup pass over the configured accounts (all
// accounts when the config names none). Accounts without a usable
// connection are skipped, never fatal.
func (s *RollupService) Run(ctx context.Context, trigger string) (*domain.RollupRun, error) {
	ctx, span := rollupTracer.Start(ctx, "RollupService.Run")
	defer span.End()
	span.SetAttributes(attribute.String("trigger", trigger))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("rollup_run", time.Since(start)) }()

	cfg, err := s.store.GetRollupConfig(ctx)
	if err != nil {
		return nil, err
	}

	keys := cfg.AccountKeys
	if len(keys) == 0 {
		keys, err = s.accounts.ListAccountKeys(ctx)
		if err != nil {
			return nil, err
		}
	}

	run := &domain.RollupRun{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		Status:    "running",
		StartedAt: start,
	}

	var mu sync.Mutex
	var rows []domain.RollupRow
	contactTotal := 0

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			if err := s.bulkhead.Acquire(gctx); err != nil {
				return err
			}
			defer s.bulkhead.Release()

			row, err := s.rollupAccount(gctx, key)
			if err != nil {
				s.logger.Warn("rollup: account skipped",
					zap.String("account_key", key),
					zap.Error(err),
				)
				return nil
			}

			mu.Lock()
			rows = append(rows, *row)
			contactTotal += row.ContactCount
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		run.FinishedAt = time.Now()
		s.metrics.IncrRollupRun("failed")
		s.recordRun(ctx, run)
		return run, err
	}

	if err := s.store.SaveRollupRows(ctx, rows); err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		run.FinishedAt = time.Now()
		s.metrics.IncrRollupRun("failed")
		s.recordRun(ctx, run)
		return run, err
	}

	run.Status = "success"
	run.AccountCount = len(rows)
	run.ContactCount = contactTotal
	run.FinishedAt = time.Now()
	s.metrics.IncrRollupRun("success")
	s.recordRun(ctx, run)

	s.logger.Info("rollup run finished",
		zap.String("run_id", run.ID),
		zap.String("trigger", trigger),
		zap.Int("accounts", run.AccountCount),
		zap.Int("contacts", run.ContactCount),
	)
	return run, nil
}

// Wipe deletes all stored rollup summaries.
func (s *RollupService) Wipe(ctx context.Context) error {
	ctx, span := rollupTracer.Start(ctx, "RollupService.Wipe")
	defer span.End()

	if err := s.store.WipeRollupRows(ctx); err != nil {
		return err
	}

	s.logger.Info("rollup rows wiped")
	return nil
}

// rollupAccount pages through an account's contacts and summarizes them.
func (s *RollupService) rollupAccount(ctx context.Context, accountKey string) (*domain.RollupRow, error) {
	account, err := s.accounts.GetAccount(ctx, accountKey)
	if err != nil {
		return nil, err
	}

	row := &domain.RollupRow{
		AccountKey: accountKey,
		Provider:   activeProvider(account),
		RolledUpAt: time.Now(),
	}

	const pageSize = 100
	for page := 1; ; page++ {
		list, err := s.contacts.ListContacts(ctx, accountKey, page, pageSize)
		if err != nil {
			return nil, err
		}
		for _, contact := range list.Contacts {
			row.ContactCount++
			if contact.DND {
				row.DNDCount++
			}
		}
		if len(list.Contacts) < pageSize {
			break
		}
	}

	return row, nil
}

func (s *RollupService) recordRun(ctx context.Context, run *domain.RollupRun) {
	if err := s.store.RecordRollupRun(ctx, run); err != nil {
		s.logger.Error("failed to record rollup run",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
}
