package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/substudio/subtitle-translator/internal/jobs"
	"github.com/substudio/subtitle-translator/internal/storage"
	"github.com/substudio/subtitle-translator/pkg/log"
)

// cleanupStore is the slice of the job store the cleanup task needs.
type cleanupStore interface {
	DeleteJobsBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

// CleanupService removes finished jobs past their retention window along
// with their upload and output directories. Scheduled runs are collapsed
// through singleflight so a slow sweep never overlaps the next tick.
type CleanupService struct {
	store cleanupStore
	queue *jobs.Queue
	files *storage.Manager
	cron  *cron.Cron

	cronExpr string
	ttl      time.Duration
}

var cleanupGroup singleflight.Group

func NewCleanupService(store cleanupStore, queue *jobs.Queue, files *storage.Manager, c *cron.Cron, cronExpr string, ttl time.Duration) *CleanupService {
	return &CleanupService{
		store:    store,
		queue:    queue,
		files:    files,
		cron:     c,
		cronExpr: cronExpr,
		ttl:      ttl,
	}
}

func (s *CleanupService) Schedule(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cronExpr, func() {
		_, _, _ = cleanupGroup.Do("cleanup", func() (any, error) {
			removed, err := s.RunOnce(ctx)
			if err != nil {
				log.Error("Cleanup run failed: %v", err)
				return nil, err
			}
			if removed > 0 {
				log.Info("Cleanup removed %d expired jobs", removed)
			}
			return nil, nil
		})
	})
	return err
}

// RunOnce sweeps expired jobs immediately and returns how many were removed.
func (s *CleanupService) RunOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.ttl)

	// Capture upload ids before the queue forgets the jobs.
	uploads := make(map[string]string)
	for _, job := range s.queue.List() {
		if job.Status.IsTerminal() && job.UpdatedAt.Before(cutoff) {
			uploads[job.ID] = job.UploadID
		}
	}

	ids, err := s.store.DeleteJobsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	s.queue.Forget(ids)
	for _, id := range ids {
		if uploadID, ok := uploads[id]; ok {
			if err := s.files.RemoveUpload(uploadID); err != nil {
				log.Error("Failed to remove uploads for job %s: %v", id, err)
			}
		}
		if err := s.files.RemoveOutput(id); err != nil {
			log.Error("Failed to remove outputs for job %s: %v", id, err)
		}
	}
	return len(ids), nil
}
