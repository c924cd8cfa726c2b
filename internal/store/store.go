package store

import "context"

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Documents
	PutDocument(ctx context.Context, doc *DocumentRecord) error
	GetDocument(ctx context.Context, name string) (*DocumentRecord, error)
	ListDocuments(ctx context.Context) ([]*DocumentRecord, error)
	DeleteDocument(ctx context.Context, name string) error

	// Assets
	UpsertAsset(ctx context.Context, asset *AssetRecord) error
	GetAsset(ctx context.Context, path string) (*AssetRecord, error)
	ListAssets(ctx context.Context, filter AssetFilter) ([]*AssetRecord, error)
	DeleteAsset(ctx context.Context, path string) error

	// Scheduled Jobs
	CreateScheduledJob(ctx context.Context, job *ScheduledJob) error
	GetScheduledJob(ctx context.Context, id string) (*ScheduledJob, error)
	UpdateScheduledJob(ctx context.Context, id string, update ScheduledJobUpdate) error
	ListScheduledJobs(ctx context.Context, filter ScheduledJobFilter) ([]*ScheduledJob, error)
	DeleteScheduledJob(ctx context.Context, id string) error

	// Maintenance
	Migrate(ctx context.Context) error

	// Lifecycle
	Close() error
}
