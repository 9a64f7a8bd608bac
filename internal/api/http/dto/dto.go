// Package dto holds the request and response bodies of the HTTP API
package dto

import "time"

// MigrateRequest represents an apply request. An empty target applies
// every pending unit; "0" reverts everything.
type MigrateRequest struct {
	Target string `json:"target"`
	DryRun bool   `json:"dry_run"` // Optional, default false
	// Async publishes a job instead of migrating in the request. Ignored
	// when no queue is configured.
	Async    bool                   `json:"async"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// MigrateResponse represents a migration response
type MigrateResponse struct {
	Success  bool     `json:"success"`
	Applied  []string `json:"applied"`
	Reverted []string `json:"reverted"`
	Script   string   `json:"script,omitempty"`
	Errors   []string `json:"errors"`
}

// JobAcceptedResponse is returned for queued applies
type JobAcceptedResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ScriptRequest represents a script generation request
type ScriptRequest struct {
	From           string `json:"from"`
	To             string `json:"to"`
	Idempotent     bool   `json:"idempotent"`
	NoTransactions bool   `json:"no_transactions"`
	ScriptOnly     bool   `json:"script_only"`
}

// ScriptResponse carries the generated SQL
type ScriptResponse struct {
	Script string `json:"script"`
}

// MigrationListFilters specifies filters for listing migrations
type MigrationListFilters struct {
	Status string `form:"status"` // "applied", "pending" or "orphaned"
	Name   string `form:"name"`
}

// MigrationListResponse represents a list of migrations
type MigrationListResponse struct {
	Items []MigrationListItem `json:"items"`
	Total int                 `json:"total"`
}

// MigrationListItem represents a single migration in the list
type MigrationListItem struct {
	MigrationID    string     `json:"migration_id"`
	Name           string     `json:"name"`
	Applied        bool       `json:"applied"`
	Status         string     `json:"status"`
	AppliedAt      *time.Time `json:"applied_at,omitempty"`
	ProductVersion string     `json:"product_version,omitempty"`
	ExecutedBy     string     `json:"executed_by,omitempty"`
}

// MigrationDetailResponse represents detailed migration information
type MigrationDetailResponse struct {
	MigrationListItem
	Up   []string `json:"up"`
	Down []string `json:"down"`
}

// ReindexResponse reports the registry after a reload
type ReindexResponse struct {
	Total int `json:"total"`
	Added int `json:"added"`
}
