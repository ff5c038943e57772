package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

const jobKeyPrefix = "genjob:"

// JobStorage implements the JobStore interface on raw Badger entries.
// Job state is ephemeral by design: every record is written with a TTL so
// abandoned jobs expire instead of accumulating.
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	ttl    time.Duration
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger, ttl time.Duration) interfaces.JobStore {
	return &JobStorage{
		db:     db,
		logger: logger,
		ttl:    ttl,
	}
}

func jobKey(jobID string) []byte {
	return []byte(jobKeyPrefix + jobID)
}

// SaveJob stores job state, refreshing its TTL on every write so an active
// job never expires mid-pipeline.
func (s *JobStorage) SaveJob(ctx context.Context, job *models.GenerationJob) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = s.db.Badger().Update(func(txn *badgerdb.Txn) error {
		entry := badgerdb.NewEntry(jobKey(job.ID), data).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	s.logger.Trace().
		Str("job_id", job.ID).
		Str("status", string(job.Status)).
		Str("step", string(job.CurrentStep)).
		Msg("Job state saved")
	return nil
}

// GetJob loads job state by ID. An expired job reports ErrJobNotFound.
func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.GenerationJob, error) {
	var job models.GenerationJob

	err := s.db.Badger().View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(jobKey(jobID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		})
	})
	if err == badgerdb.ErrKeyNotFound {
		return nil, interfaces.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// DeleteJob removes job state before its TTL expiry.
func (s *JobStorage) DeleteJob(ctx context.Context, jobID string) error {
	err := s.db.Badger().Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(jobKey(jobID))
	})
	if err != nil && err != badgerdb.ErrKeyNotFound {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}
