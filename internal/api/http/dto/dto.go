package dto

import "github.com/toolsascode/restorm/internal/migration"

// UpgradeRequest represents an upgrade request
type UpgradeRequest struct {
	Target string `json:"target"`  // "head", "heads", "+N" or a revision, default head
	DryRun bool   `json:"dry_run"` // Optional, default false
}

// DowngradeRequest represents a downgrade request
type DowngradeRequest struct {
	Target string `json:"target"`  // "-N", "base" or a revision, default -1
	DryRun bool   `json:"dry_run"` // Optional, default false
}

// MigrateResponse represents the outcome of an upgrade or downgrade
type MigrateResponse struct {
	*migration.Result
	DryRun bool   `json:"dry_run"`
	SQL    string `json:"sql,omitempty"` // statements a dry run would execute
}
