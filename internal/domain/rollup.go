package domain

import "time"

// RollupConfig controls the scheduled contact-rollup job. The schedule
// itself runs on an external cron backend; this service stores the
// config, reports run history, and executes manual runs.
type RollupConfig struct {
	Enabled     bool     `json:"enabled"`
	Schedule    string   `json:"schedule,omitempty"` // cron expression, informational
	AccountKeys []string `json:"accountKeys,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

// RollupRun is one execution of the contact-rollup job.
type RollupRun struct {
	ID           string    `json:"id"`
	Trigger      string    `json:"trigger"` // "manual" | "scheduled"
	Status       string    `json:"status"`  // "running" | "success" | "failed"
	AccountCount int       `json:"accountCount"`
	ContactCount int       `json:"contactCount"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt,omitempty"`
}

// RollupStatus is the payload of GET /v1/rollup/status.
type RollupStatus struct {
	Config  RollupConfig `json:"config"`
	LastRun *RollupRun   `json:"lastRun,omitempty"`
	History []RollupRun  `json:"history"`
}

// RollupRow is one aggregated per-account contact summary produced by
// a rollup run.
type RollupRow struct {
	AccountKey   string    `json:"accountKey"`
	Provider     string    `json:"provider"`
	ContactCount int       `json:"contactCount"`
	DNDCount     int       `json:"dndCount"`
	RolledUpAt   time.Time `json:"rolledUpAt"`
}
