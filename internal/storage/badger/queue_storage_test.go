package badger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

func setupQueue(t *testing.T) interfaces.QueueStore {
	t.Helper()
	db := setupTestDB(t)
	return NewQueueStorage(db, common.GetLogger(), 30*time.Minute, 3)
}

func TestQueueEnqueueAndGet(t *testing.T) {
	ctx := context.Background()
	queue := setupQueue(t)

	topic := models.NewQueueTopic("Go error handling patterns", []string{"go", "errors"}, "", models.TopicSourceManual, 5)
	require.NoError(t, queue.Enqueue(ctx, topic))

	loaded, err := queue.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, topic.Topic, loaded.Topic)
	assert.Equal(t, models.TopicStatusPending, loaded.Status)
	assert.Equal(t, 5, loaded.Priority)

	_, err = queue.GetTopic(ctx, "topic_missing")
	assert.ErrorIs(t, err, interfaces.ErrTopicNotFound)
}

func TestQueueClaimOrdersByPriorityThenAge(t *testing.T) {
	ctx := context.Background()
	queue := setupQueue(t)

	low := models.NewQueueTopic("low priority", nil, "", models.TopicSourceQueue, 1)
	low.CreatedAt = time.Now().Add(-2 * time.Hour)
	high := models.NewQueueTopic("high priority", nil, "", models.TopicSourceQueue, 9)
	high.CreatedAt = time.Now().Add(-1 * time.Hour)
	older := models.NewQueueTopic("older same priority", nil, "", models.TopicSourceQueue, 9)
	older.CreatedAt = time.Now().Add(-3 * time.Hour)

	require.NoError(t, queue.Enqueue(ctx, low))
	require.NoError(t, queue.Enqueue(ctx, high))
	require.NoError(t, queue.Enqueue(ctx, older))

	first, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, older.ID, first.ID, "highest priority, oldest first")
	assert.Equal(t, models.TopicStatusProcessing, first.Status)
	require.NotNil(t, first.LockedAt)

	second, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, high.ID, second.ID)

	third, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, third)
	assert.Equal(t, low.ID, third.ID)

	none, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, none, "no pending topics left")
}

func TestQueueParallelClaimSingleWinner(t *testing.T) {
	ctx := context.Background()
	queue := setupQueue(t)

	topic := models.NewQueueTopic("contended topic", nil, "", models.TopicSourceQueue, 5)
	require.NoError(t, queue.Enqueue(ctx, topic))

	const claimers = 8
	var wg sync.WaitGroup
	wins := make(chan string, claimers)

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := queue.ClaimNext(ctx)
			require.NoError(t, err)
			if claimed != nil {
				wins <- claimed.ID
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []string
	for id := range wins {
		winners = append(winners, id)
	}
	require.Len(t, winners, 1, "exactly one claimer must win")
	assert.Equal(t, topic.ID, winners[0])
}

func TestQueueStaleClaimReclaimed(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	queue := NewQueueStorage(db, common.GetLogger(), 30*time.Minute, 3)

	topic := models.NewQueueTopic("abandoned topic", nil, "", models.TopicSourceQueue, 5)
	topic.Status = models.TopicStatusProcessing
	stale := time.Now().Add(-45 * time.Minute)
	topic.LockedAt = &stale
	require.NoError(t, queue.Enqueue(ctx, topic))

	claimed, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed, "stale processing row must be reclaimable")
	assert.Equal(t, topic.ID, claimed.ID)
	assert.Equal(t, models.TopicStatusProcessing, claimed.Status)
	assert.True(t, claimed.LockedAt.After(stale))
}

func TestQueueFreshClaimNotReclaimed(t *testing.T) {
	ctx := context.Background()
	queue := setupQueue(t)

	topic := models.NewQueueTopic("active topic", nil, "", models.TopicSourceQueue, 5)
	topic.Status = models.TopicStatusProcessing
	recent := time.Now().Add(-5 * time.Minute)
	topic.LockedAt = &recent
	require.NoError(t, queue.Enqueue(ctx, topic))

	claimed, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed, "a live claim must not be stolen")
}

func TestQueueReleaseSuccess(t *testing.T) {
	ctx := context.Background()
	queue := setupQueue(t)

	topic := models.NewQueueTopic("successful topic", nil, "", models.TopicSourceQueue, 5)
	require.NoError(t, queue.Enqueue(ctx, topic))

	claimed, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	err = queue.Release(ctx, claimed.ID, interfaces.ReleaseResult{Success: true, ContentRef: "content_123"})
	require.NoError(t, err)

	loaded, err := queue.GetTopic(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TopicStatusCompleted, loaded.Status)
	assert.Equal(t, "content_123", loaded.ContentRef)
	assert.Nil(t, loaded.LockedAt)
	require.NotNil(t, loaded.ProcessedAt)
	assert.Equal(t, 0, loaded.Attempts, "success does not consume an attempt")
}

func TestQueueReleaseFailureRetriesThenFails(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	queue := NewQueueStorage(db, common.GetLogger(), 30*time.Minute, 2)

	topic := models.NewQueueTopic("flaky topic", nil, "", models.TopicSourceQueue, 5)
	require.NoError(t, queue.Enqueue(ctx, topic))

	// First failure goes back to pending with the error recorded.
	claimed, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.NoError(t, queue.Release(ctx, claimed.ID, interfaces.ReleaseResult{Error: "provider timeout"}))

	loaded, err := queue.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TopicStatusPending, loaded.Status)
	assert.Equal(t, 1, loaded.Attempts)
	assert.Equal(t, "provider timeout", loaded.LastError)
	assert.Nil(t, loaded.LockedAt)

	// Second failure reaches the cap and fails permanently.
	claimed, err = queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.NoError(t, queue.Release(ctx, claimed.ID, interfaces.ReleaseResult{Error: "provider timeout"}))

	loaded, err = queue.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TopicStatusFailed, loaded.Status)
	assert.Equal(t, 2, loaded.Attempts)
	require.NotNil(t, loaded.ProcessedAt)

	// A failed topic is never claimable again.
	none, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestQueueExhaustedAttemptsNotClaimable(t *testing.T) {
	ctx := context.Background()
	queue := setupQueue(t)

	topic := models.NewQueueTopic("exhausted topic", nil, "", models.TopicSourceQueue, 5)
	topic.Attempts = 3
	require.NoError(t, queue.Enqueue(ctx, topic))

	claimed, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestQueueReleaseUnknownTopic(t *testing.T) {
	ctx := context.Background()
	queue := setupQueue(t)

	err := queue.Release(ctx, "topic_missing", interfaces.ReleaseResult{Success: true})
	assert.ErrorIs(t, err, interfaces.ErrTopicNotFound)
}

func TestQueueMarkCompleted(t *testing.T) {
	ctx := context.Background()
	queue := setupQueue(t)

	topic := models.NewQueueTopic("manual topic", nil, "", models.TopicSourceManual, 5)
	require.NoError(t, queue.Enqueue(ctx, topic))
	require.NoError(t, queue.MarkCompleted(ctx, topic.ID, "content_456"))

	loaded, err := queue.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TopicStatusCompleted, loaded.Status)
	assert.Equal(t, "content_456", loaded.ContentRef)
}

func TestQueueListAndCount(t *testing.T) {
	ctx := context.Background()
	queue := setupQueue(t)

	for i := 0; i < 3; i++ {
		topic := models.NewQueueTopic("listed topic", nil, "", models.TopicSourceTrending, i)
		topic.CreatedAt = time.Now().Add(time.Duration(-i) * time.Hour)
		require.NoError(t, queue.Enqueue(ctx, topic))
	}
	done := models.NewQueueTopic("done topic", nil, "", models.TopicSourceManual, 1)
	done.Status = models.TopicStatusCompleted
	require.NoError(t, queue.Enqueue(ctx, done))

	pending, err := queue.ListTopics(ctx, &interfaces.TopicListOptions{Status: models.TopicStatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 3)
	for i := 1; i < len(pending); i++ {
		assert.True(t, !pending[i-1].CreatedAt.Before(pending[i].CreatedAt), "newest first")
	}

	trending, err := queue.ListTopics(ctx, &interfaces.TopicListOptions{Source: models.TopicSourceTrending, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, trending, 2)

	count, err := queue.CountByStatus(ctx, models.TopicStatusPending)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	completed, err := queue.CountByStatus(ctx, models.TopicStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)
}
