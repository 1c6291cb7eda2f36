package jobs

import (
	"context"
	"time"
)

// Store persists job states for queue restart recovery.
type Store interface {
	LoadJobs(ctx context.Context) ([]*TranslationJob, error)
	UpsertJob(ctx context.Context, job *TranslationJob) error
	DeleteJob(ctx context.Context, jobID string) error
	// DeleteJobsBefore removes terminal jobs last updated before the cutoff
	// and returns the ids of the removed rows.
	DeleteJobsBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}
