package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// QueueStorage implements the QueueStore interface for Badger.
// All contention is resolved through conditional updates executed inside a
// single Badger transaction; there are no in-process locks because claimers
// may live in separate processes sharing the same database.
type QueueStorage struct {
	db          *BadgerDB
	logger      arbor.ILogger
	staleness   time.Duration
	maxAttempts int
}

// NewQueueStorage creates a new QueueStorage instance
func NewQueueStorage(db *BadgerDB, logger arbor.ILogger, staleness time.Duration, maxAttempts int) interfaces.QueueStore {
	return &QueueStorage{
		db:          db,
		logger:      logger,
		staleness:   staleness,
		maxAttempts: maxAttempts,
	}
}

// Enqueue inserts a new topic row.
func (s *QueueStorage) Enqueue(ctx context.Context, topic *models.QueueTopic) error {
	if topic.ID == "" {
		return fmt.Errorf("topic ID is required")
	}
	if err := s.db.Store().Insert(topic.ID, topic); err != nil {
		return fmt.Errorf("failed to enqueue topic: %w", err)
	}

	s.logger.Debug().
		Str("topic_id", topic.ID).
		Str("topic", topic.Topic).
		Int("priority", topic.Priority).
		Str("source", string(topic.Source)).
		Msg("Topic enqueued")
	return nil
}

// GetTopic loads one topic by ID.
func (s *QueueStorage) GetTopic(ctx context.Context, id string) (*models.QueueTopic, error) {
	var topic models.QueueTopic
	err := s.db.Store().Get(id, &topic)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrTopicNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return &topic, nil
}

// ClaimNext grants exclusive ownership of the best pending topic, or
// returns (nil, nil) when nothing is claimable or another caller won the
// conditional update. Stale processing rows are reclaimed first.
func (s *QueueStorage) ClaimNext(ctx context.Context) (*models.QueueTopic, error) {
	if err := s.reclaimStale(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Stale claim reclaim failed, continuing with selection")
	}

	candidate, err := s.selectCandidate(ctx)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, nil
	}

	// Conditional pending -> processing update scoped by id AND status, so
	// a concurrent claimer that already took the row makes this a no-op.
	now := time.Now()
	claimed := 0
	err = s.db.Store().UpdateMatching(&models.QueueTopic{},
		badgerhold.Where(badgerhold.Key).Eq(candidate.ID).And("Status").Eq(models.TopicStatusPending),
		func(record interface{}) error {
			topic, ok := record.(*models.QueueTopic)
			if !ok {
				return fmt.Errorf("unexpected record type %T", record)
			}
			topic.Status = models.TopicStatusProcessing
			topic.LockedAt = &now
			claimed++
			return nil
		})
	if err == badgerdb.ErrConflict {
		s.logger.Debug().Str("topic_id", candidate.ID).Msg("Lost claim race, another caller owns the row")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim topic: %w", err)
	}
	if claimed == 0 {
		s.logger.Debug().Str("topic_id", candidate.ID).Msg("Topic no longer pending, claim yielded")
		return nil, nil
	}

	s.logger.Info().
		Str("topic_id", candidate.ID).
		Str("topic", candidate.Topic).
		Msg("Topic claimed")
	return s.GetTopic(ctx, candidate.ID)
}

// reclaimStale returns processing rows whose lock has exceeded the
// staleness window back to pending (crash recovery for dead claimers).
func (s *QueueStorage) reclaimStale(ctx context.Context) error {
	cutoff := time.Now().Add(-s.staleness)
	reclaimed := 0

	err := s.db.Store().UpdateMatching(&models.QueueTopic{},
		badgerhold.Where("Status").Eq(models.TopicStatusProcessing),
		func(record interface{}) error {
			topic, ok := record.(*models.QueueTopic)
			if !ok {
				return fmt.Errorf("unexpected record type %T", record)
			}
			if topic.LockedAt == nil || topic.LockedAt.Before(cutoff) {
				topic.Status = models.TopicStatusPending
				topic.LockedAt = nil
				reclaimed++
			}
			return nil
		})
	if err == badgerdb.ErrConflict {
		// Another claimer performed the reclaim in parallel.
		return nil
	}
	if err != nil {
		return err
	}

	if reclaimed > 0 {
		s.logger.Warn().
			Int("count", reclaimed).
			Dur("staleness_window", s.staleness).
			Msg("Reclaimed stale processing topics back to pending")
	}
	return nil
}

// selectCandidate picks the highest-priority, oldest pending topic that has
// attempts remaining.
func (s *QueueStorage) selectCandidate(ctx context.Context) (*models.QueueTopic, error) {
	var pending []models.QueueTopic
	err := s.db.Store().Find(&pending,
		badgerhold.Where("Status").Eq(models.TopicStatusPending).And("Attempts").Lt(s.maxAttempts))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending topics: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority > pending[j].Priority
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	return &pending[0], nil
}

// Release reports a claim outcome back to the queue. On success the topic
// is completed with its content reference; on failure attempts increments
// and the topic either returns to pending or fails permanently at the cap.
// The lock is cleared on every path.
func (s *QueueStorage) Release(ctx context.Context, id string, result interfaces.ReleaseResult) error {
	now := time.Now()
	updated := 0

	err := s.db.Store().UpdateMatching(&models.QueueTopic{},
		badgerhold.Where(badgerhold.Key).Eq(id),
		func(record interface{}) error {
			topic, ok := record.(*models.QueueTopic)
			if !ok {
				return fmt.Errorf("unexpected record type %T", record)
			}
			updated++
			topic.LockedAt = nil

			if result.Success {
				topic.Status = models.TopicStatusCompleted
				topic.ContentRef = result.ContentRef
				topic.ProcessedAt = &now
				topic.LastError = ""
				return nil
			}

			topic.Attempts++
			topic.LastError = result.Error
			if topic.Attempts >= s.maxAttempts {
				topic.Status = models.TopicStatusFailed
				topic.ProcessedAt = &now
			} else {
				topic.Status = models.TopicStatusPending
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("failed to release topic: %w", err)
	}
	if updated == 0 {
		return interfaces.ErrTopicNotFound
	}

	s.logger.Info().
		Str("topic_id", id).
		Bool("success", result.Success).
		Msg("Topic claim released")
	return nil
}

// MarkCompleted completes a topic with its content reference without
// touching the attempts counter. Used when a manual job that originated
// from a queue topic finishes outside the scheduler's claim cycle.
func (s *QueueStorage) MarkCompleted(ctx context.Context, id string, contentRef string) error {
	now := time.Now()
	updated := 0

	err := s.db.Store().UpdateMatching(&models.QueueTopic{},
		badgerhold.Where(badgerhold.Key).Eq(id),
		func(record interface{}) error {
			topic, ok := record.(*models.QueueTopic)
			if !ok {
				return fmt.Errorf("unexpected record type %T", record)
			}
			updated++
			topic.Status = models.TopicStatusCompleted
			topic.ContentRef = contentRef
			topic.ProcessedAt = &now
			topic.LockedAt = nil
			topic.LastError = ""
			return nil
		})
	if err != nil {
		return fmt.Errorf("failed to complete topic: %w", err)
	}
	if updated == 0 {
		return interfaces.ErrTopicNotFound
	}
	return nil
}

// ListTopics returns topics filtered by status/source, newest first.
func (s *QueueStorage) ListTopics(ctx context.Context, opts *interfaces.TopicListOptions) ([]*models.QueueTopic, error) {
	var all []models.QueueTopic
	if err := s.db.Store().Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}

	var result []*models.QueueTopic
	for i := range all {
		if opts != nil && opts.Status != "" && all[i].Status != opts.Status {
			continue
		}
		if opts != nil && opts.Source != "" && all[i].Source != opts.Source {
			continue
		}
		result = append(result, &all[i])
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if opts != nil && opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

// DeleteTopic removes a topic row.
func (s *QueueStorage) DeleteTopic(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, &models.QueueTopic{})
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrTopicNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}
	return nil
}

// CountByStatus counts topics in the given status.
func (s *QueueStorage) CountByStatus(ctx context.Context, status models.TopicStatus) (int, error) {
	count, err := s.db.Store().Count(&models.QueueTopic{}, badgerhold.Where("Status").Eq(status))
	if err != nil {
		return 0, fmt.Errorf("failed to count topics: %w", err)
	}
	return int(count), nil
}
