// Package queue manages the topic queue feeding unattended generation.
package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// Service exposes enqueue and housekeeping operations over the queue
// store. Claim/release stay on the store itself; only the scheduler and
// pipeline call those.
type Service struct {
	store  interfaces.QueueStore
	logger arbor.ILogger
}

// NewService creates the queue service.
func NewService(store interfaces.QueueStore, logger arbor.ILogger) *Service {
	return &Service{store: store, logger: logger}
}

// Enqueue adds one topic to the queue.
func (s *Service) Enqueue(ctx context.Context, topic string, keywords []string, categoryRef string, source models.TopicSource, priority int) (*models.QueueTopic, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if source == "" {
		source = models.TopicSourceManual
	}

	row := models.NewQueueTopic(topic, keywords, categoryRef, source, priority)
	if err := s.store.Enqueue(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// SeedTrending bulk-enqueues trending topic suggestions, skipping entries
// that already sit in the queue unprocessed. Returns the number added.
func (s *Service) SeedTrending(ctx context.Context, topics []string, priority int) (int, error) {
	existing, err := s.store.ListTopics(ctx, &interfaces.TopicListOptions{Status: models.TopicStatusPending})
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, row := range existing {
		seen[strings.ToLower(strings.TrimSpace(row.Topic))] = true
	}

	added := 0
	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" || seen[strings.ToLower(topic)] {
			continue
		}
		row := models.NewQueueTopic(topic, nil, "", models.TopicSourceTrending, priority)
		if err := s.store.Enqueue(ctx, row); err != nil {
			return added, err
		}
		seen[strings.ToLower(topic)] = true
		added++
	}

	if added > 0 {
		s.logger.Info().Int("count", added).Msg("Trending topics seeded")
	}
	return added, nil
}

// List returns topics matching the filter.
func (s *Service) List(ctx context.Context, opts *interfaces.TopicListOptions) ([]*models.QueueTopic, error) {
	return s.store.ListTopics(ctx, opts)
}

// Delete removes a topic.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteTopic(ctx, id)
}

// Requeue gives a failed topic a fresh run: the exhausted row is replaced
// by a new pending one carrying the same topic fields.
func (s *Service) Requeue(ctx context.Context, id string) (*models.QueueTopic, error) {
	old, err := s.store.GetTopic(ctx, id)
	if err != nil {
		return nil, err
	}
	if old.Status != models.TopicStatusFailed {
		return nil, fmt.Errorf("topic %s is %s, only failed topics can be requeued", id, old.Status)
	}

	row := models.NewQueueTopic(old.Topic, old.Keywords, old.CategoryRef, old.Source, old.Priority)
	if err := s.store.Enqueue(ctx, row); err != nil {
		return nil, err
	}
	if err := s.store.DeleteTopic(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("topic_id", id).Msg("Failed to remove requeued topic row")
	}

	s.logger.Info().Str("topic_id", row.ID).Str("topic", row.Topic).Msg("Failed topic requeued")
	return row, nil
}

// Counts returns per-status queue depth.
func (s *Service) Counts(ctx context.Context) (map[models.TopicStatus]int, error) {
	counts := make(map[models.TopicStatus]int, 4)
	for _, status := range []models.TopicStatus{
		models.TopicStatusPending,
		models.TopicStatusProcessing,
		models.TopicStatusCompleted,
		models.TopicStatusFailed,
	} {
		n, err := s.store.CountByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, nil
}
