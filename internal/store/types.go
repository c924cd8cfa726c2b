package store

import (
	"encoding/json"
	"time"
)

// DocumentRecord is a persisted visual-scripting document.
type DocumentRecord struct {
	Name        string          `json:"name"`
	Path        string          `json:"path,omitempty"`
	ParentClass string          `json:"parent_class,omitempty"`
	Body        json.RawMessage `json:"body"`
	Revision    int64           `json:"revision"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AssetRecord is a persisted container asset.
type AssetRecord struct {
	Path      string          `json:"path"`
	Name      string          `json:"name"`
	Class     string          `json:"class,omitempty"`
	Body      json.RawMessage `json:"body"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ScheduledJob is a cron-triggered maintenance task.
type ScheduledJob struct {
	ID             string     `json:"id"`
	Task           string     `json:"task"`
	CronExpression string     `json:"cron_expression"`
	Enabled        bool       `json:"enabled"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	NextRunAt      *time.Time `json:"next_run_at,omitempty"`
	LastRunStatus  string     `json:"last_run_status,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// --- Filter and update types ---

// AssetFilter specifies criteria for listing assets.
type AssetFilter struct {
	// PathPrefixes keeps assets under any of the given roots. Empty keeps all.
	PathPrefixes []string `json:"path_prefixes,omitempty"`
	Class        string   `json:"class,omitempty"`
	Limit        int      `json:"limit,omitempty"`
}

// ScheduledJobUpdate specifies mutable fields of a scheduled job.
type ScheduledJobUpdate struct {
	Enabled        *bool      `json:"enabled,omitempty"`
	CronExpression string     `json:"cron_expression,omitempty"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	NextRunAt      *time.Time `json:"next_run_at,omitempty"`
	LastRunStatus  string     `json:"last_run_status,omitempty"`
}

// ScheduledJobFilter specifies criteria for listing scheduled jobs.
type ScheduledJobFilter struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Task    string `json:"task,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}
