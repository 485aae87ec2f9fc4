package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dealerops/console-api/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// --- Custom values API (implements port.CustomValueStore) ---

// The defaults live in a single-row table keyed by a fixed id. Sync
// runs append to sync_runs, one row per account+provider push.

const defaultsRowID = "global"

type defaultsRow struct {
	ID        string                        `json:"id"`
	Fields    map[string]domain.CustomValue `json:"fields"`
	UpdatedAt string                        `json:"updated_at,omitempty"`
}

type syncRunRow struct {
	ID          string `json:"id"`
	AccountKey  string `json:"account_key"`
	Provider    string `json:"provider"`
	Status      string `json:"status"`
	PushedCount int    `json:"pushed_count"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at"`
}

func (r syncRunRow) toDomain() domain.SyncRun {
	started, _ := time.Parse(time.RFC3339, r.StartedAt)
	finished, _ := time.Parse(time.RFC3339, r.FinishedAt)
	return domain.SyncRun{
		ID:          r.ID,
		AccountKey:  r.AccountKey,
		Provider:    r.Provider,
		Status:      r.Status,
		PushedCount: r.PushedCount,
		Error:       r.Error,
		StartedAt:   started,
		FinishedAt:  finished,
	}
}

// GetDefaults fetches the global custom-value definitions. A missing
// row yields an empty set, not an error: a fresh install has none.
func (c *Client) GetDefaults(ctx context.Context) (*domain.CustomValueDefaults, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetDefaults")
	defer span.End()

	var defaults *domain.CustomValueDefaults

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("custom_value_defaults?id=eq.%s&limit=1", defaultsRowID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		if body == nil || string(body) == "[]" {
			defaults = &domain.CustomValueDefaults{Fields: map[string]domain.CustomValue{}}
			return nil
		}

		var rows []defaultsRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode custom value defaults: %w", err)
		}
		if len(rows) == 0 {
			defaults = &domain.CustomValueDefaults{Fields: map[string]domain.CustomValue{}}
			return nil
		}

		defaults = &domain.CustomValueDefaults{
			Fields:    rows[0].Fields,
			UpdatedAt: rows[0].UpdatedAt,
		}
		if defaults.Fields == nil {
			defaults.Fields = map[string]domain.CustomValue{}
		}
		return nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/custom_values", Err: err}
	}

	return defaults, nil
}

// PutDefaults replaces the global custom-value definitions.
func (c *Client) PutDefaults(ctx context.Context, defaults *domain.CustomValueDefaults) error {
	ctx, span := tracer.Start(ctx, "Supabase.PutDefaults")
	defer span.End()
	span.SetAttributes(attribute.Int("fields", len(defaults.Fields)))

	err := c.execute(ctx, func() error {
		now := time.Now().UTC().Format(time.RFC3339)

		path := fmt.Sprintf("custom_value_defaults?id=eq.%s&limit=1", defaultsRowID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		if body == nil || string(body) == "[]" {
			_, err := c.doPost(ctx, "custom_value_defaults", map[string]any{
				"id":         defaultsRowID,
				"fields":     defaults.Fields,
				"updated_at": now,
			})
			return err
		}

		return c.doPatch(ctx, fmt.Sprintf("custom_value_defaults?id=eq.%s", defaultsRowID), map[string]any{
			"fields":     defaults.Fields,
			"updated_at": now,
		})
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/custom_values", Err: err}
	}

	return nil
}

// RecordSyncRun appends one sync run to the history.
func (c *Client) RecordSyncRun(ctx context.Context, run *domain.SyncRun) error {
	ctx, span := tracer.Start(ctx, "Supabase.RecordSyncRun")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.key", run.AccountKey),
		attribute.String("sync.status", run.Status),
	)

	err := c.execute(ctx, func() error {
		_, err := c.doPost(ctx, "sync_runs", map[string]any{
			"id":           run.ID,
			"account_key":  run.AccountKey,
			"provider":     run.Provider,
			"status":       run.Status,
			"pushed_count": run.PushedCount,
			"error":        run.Error,
			"started_at":   run.StartedAt.UTC().Format(time.RFC3339),
			"finished_at":  run.FinishedAt.UTC().Format(time.RFC3339),
		})
		return err
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/sync_runs", Err: err}
	}

	return nil
}

// ListSyncRuns pages sync history for one account, newest first.
func (c *Client) ListSyncRuns(ctx context.Context, accountKey string, page, pageSize int) ([]domain.SyncRun, int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListSyncRuns")
	defer span.End()
	span.SetAttributes(attribute.String("account.key", accountKey))

	var runs []domain.SyncRun
	var total int

	err := c.execute(ctx, func() error {
		countPath := fmt.Sprintf("sync_runs?select=id&account_key=eq.%s", url.QueryEscape(accountKey))
		countBody, err := c.doRequest(ctx, http.MethodGet, countPath)
		if err != nil {
			return err
		}
		var ids []struct {
			ID string `json:"id"`
		}
		if countBody != nil && string(countBody) != "[]" {
			if err := json.Unmarshal(countBody, &ids); err != nil {
				return fmt.Errorf("failed to decode sync run ids: %w", err)
			}
		}
		total = len(ids)

		offset := (page - 1) * pageSize
		path := fmt.Sprintf("sync_runs?account_key=eq.%s&order=started_at.desc&limit=%d&offset=%d",
			url.QueryEscape(accountKey), pageSize, offset)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		runs = []domain.SyncRun{}
		if body == nil || string(body) == "[]" {
			return nil
		}

		var rows []syncRunRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode sync runs: %w", err)
		}
		for _, r := range rows {
			runs = append(runs, r.toDomain())
		}
		return nil
	})

	if err != nil {
		return nil, 0, &domain.ErrExternalService{Service: "supabase/sync_runs", Err: err}
	}

	return runs, total, nil
}
