package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dealerops/console-api/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// --- Rollup API (implements port.RollupStore) ---

const rollupConfigRowID = "global"

type rollupConfigRow struct {
	ID          string   `json:"id"`
	Enabled     bool     `json:"enabled"`
	Schedule    string   `json:"schedule,omitempty"`
	AccountKeys []string `json:"account_keys,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

type rollupRunRow struct {
	ID           string `json:"id"`
	Trigger      string `json:"trigger"`
	Status       string `json:"status"`
	AccountCount int    `json:"account_count"`
	ContactCount int    `json:"contact_count"`
	Error        string `json:"error,omitempty"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at,omitempty"`
}

func (r rollupRunRow) toDomain() domain.RollupRun {
	started, _ := time.Parse(time.RFC3339, r.StartedAt)
	finished, _ := time.Parse(time.RFC3339, r.FinishedAt)
	return domain.RollupRun{
		ID:           r.ID,
		Trigger:      r.Trigger,
		Status:       r.Status,
		AccountCount: r.AccountCount,
		ContactCount: r.ContactCount,
		Error:        r.Error,
		StartedAt:    started,
		FinishedAt:   finished,
	}
}

// GetRollupConfig fetches the rollup job config. A missing row yields a
// disabled default.
func (c *Client) GetRollupConfig(ctx context.Context) (*domain.RollupConfig, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRollupConfig")
	defer span.End()

	var cfg *domain.RollupConfig

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("rollup_config?id=eq.%s&limit=1", rollupConfigRowID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		if body == nil || string(body) == "[]" {
			cfg = &domain.RollupConfig{Enabled: false}
			return nil
		}

		var rows []rollupConfigRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode rollup config: %w", err)
		}
		if len(rows) == 0 {
			cfg = &domain.RollupConfig{Enabled: false}
			return nil
		}

		cfg = &domain.RollupConfig{
			Enabled:     rows[0].Enabled,
			Schedule:    rows[0].Schedule,
			AccountKeys: rows[0].AccountKeys,
			UpdatedAt:   rows[0].UpdatedAt,
		}
		return nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/rollup", Err: err}
	}

	return cfg, nil
}

// PutRollupConfig replaces the rollup job config.
func (c *Client) PutRollupConfig(ctx context.Context, cfg *domain.RollupConfig) error {
	ctx, span := tracer.Start(ctx, "Supabase.PutRollupConfig")
	defer span.End()
	span.SetAttributes(attribute.Bool("rollup.enabled", cfg.Enabled))

	err := c.execute(ctx, func() error {
		now := time.Now().UTC().Format(time.RFC3339)

		path := fmt.Sprintf("rollup_config?id=eq.%s&limit=1", rollupConfigRowID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		if body == nil || string(body) == "[]" {
			_, err := c.doPost(ctx, "rollup_config", map[string]any{
				"id":           rollupConfigRowID,
				"enabled":      cfg.Enabled,
				"schedule":     cfg.Schedule,
				"account_keys": cfg.AccountKeys,
				"updated_at":   now,
			})
			return err
		}

		return c.doPatch(ctx, fmt.Sprintf("rollup_config?id=eq.%s", rollupConfigRowID), map[string]any{
			"enabled":      cfg.Enabled,
			"schedule":     cfg.Schedule,
			"account_keys": cfg.AccountKeys,
			"updated_at":   now,
		})
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/rollup", Err: err}
	}

	return nil
}

// RecordRollupRun appends one rollup run to the history.
func (c *Client) RecordRollupRun(ctx context.Context, run *domain.RollupRun) error {
	ctx, span := tracer.Start(ctx, "Supabase.RecordRollupRun")
	defer span.End()
	span.SetAttributes(attribute.String("rollup.status", run.Status))

	err := c.execute(ctx, func() error {
		payload := map[string]any{
			"id":            run.ID,
			"trigger":       run.Trigger,
			"status":        run.Status,
			"account_count": run.AccountCount,
			"contact_count": run.ContactCount,
			"error":         run.Error,
			"started_at":    run.StartedAt.UTC().Format(time.RFC3339),
		}
		if !run.FinishedAt.IsZero() {
			payload["finished_at"] = run.FinishedAt.UTC().Format(time.RFC3339)
		}
		_, err := c.doPost(ctx, "rollup_runs", payload)
		return err
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/rollup", Err: err}
	}

	return nil
}

// ListRollupRuns returns the most recent rollup runs, newest first.
func (c *Client) ListRollupRuns(ctx context.Context, limit int) ([]domain.RollupRun, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRollupRuns")
	defer span.End()

	var runs []domain.RollupRun

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("rollup_runs?order=started_at.desc&limit=%d", limit)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		runs = []domain.RollupRun{}
		if body == nil || string(body) == "[]" {
			return nil
		}

		var rows []rollupRunRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode rollup runs: %w", err)
		}
		for _, r := range rows {
			runs = append(runs, r.toDomain())
		}
		return nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/rollup", Err: err}
	}

	return runs, nil
}

// SaveRollupRows stores the per-account summaries from one run.
func (c *Client) SaveRollupRows(ctx context.Context, rows []domain.RollupRow) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveRollupRows")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(rows)))

	if len(rows) == 0 {
		return nil
	}

	err := c.execute(ctx, func() error {
		for _, row := range rows {
			// Upsert by account key: drop any prior summary first.
			if err := c.doDelete(ctx, fmt.Sprintf("rollup_rows?account_key=eq.%s", row.AccountKey)); err != nil {
				return err
			}
			_, err := c.doPost(ctx, "rollup_rows", map[string]any{
				"account_key":   row.AccountKey,
				"provider":      row.Provider,
				"contact_count": row.ContactCount,
				"dnd_count":     row.DNDCount,
				"rolled_up_at":  row.RolledUpAt.UTC().Format(time.RFC3339),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/rollup", Err: err}
	}

	return nil
}

// WipeRollupRows deletes all stored rollup summaries.
func (c *Client) WipeRollupRows(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.WipeRollupRows")
	defer span.End()

	err := c.execute(ctx, func() error {
		// PostgREST refuses unfiltered deletes; match every non-empty key.
		return c.doDelete(ctx, "rollup_rows?account_key=neq.")
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/rollup", Err: err}
	}

	return nil
}
