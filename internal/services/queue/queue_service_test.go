package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

type fakeQueueStore struct {
	topics map[string]*models.QueueTopic
}

func newFakeQueueStore() *fakeQueueStore {
	return &fakeQueueStore{topics: make(map[string]*models.QueueTopic)}
}

func (f *fakeQueueStore) Enqueue(ctx context.Context, topic *models.QueueTopic) error {
	f.topics[topic.ID] = topic
	return nil
}

func (f *fakeQueueStore) GetTopic(ctx context.Context, id string) (*models.QueueTopic, error) {
	topic, ok := f.topics[id]
	if !ok {
		return nil, interfaces.ErrTopicNotFound
	}
	return topic, nil
}

func (f *fakeQueueStore) ClaimNext(ctx context.Context) (*models.QueueTopic, error) {
	return nil, nil
}

func (f *fakeQueueStore) Release(ctx context.Context, id string, result interfaces.ReleaseResult) error {
	return nil
}

func (f *fakeQueueStore) MarkCompleted(ctx context.Context, id string, contentRef string) error {
	return nil
}

func (f *fakeQueueStore) ListTopics(ctx context.Context, opts *interfaces.TopicListOptions) ([]*models.QueueTopic, error) {
	var out []*models.QueueTopic
	for _, topic := range f.topics {
		if opts != nil && opts.Status != "" && topic.Status != opts.Status {
			continue
		}
		out = append(out, topic)
	}
	return out, nil
}

func (f *fakeQueueStore) DeleteTopic(ctx context.Context, id string) error {
	if _, ok := f.topics[id]; !ok {
		return interfaces.ErrTopicNotFound
	}
	delete(f.topics, id)
	return nil
}

func (f *fakeQueueStore) CountByStatus(ctx context.Context, status models.TopicStatus) (int, error) {
	n := 0
	for _, topic := range f.topics {
		if topic.Status == status {
			n++
		}
	}
	return n, nil
}

func newTestService() (*Service, *fakeQueueStore) {
	store := newFakeQueueStore()
	return NewService(store, common.GetLogger()), store
}

func TestEnqueueDefaultsSourceToManual(t *testing.T) {
	svc, _ := newTestService()

	topic, err := svc.Enqueue(context.Background(), "  Kubernetes Basics  ", []string{"k8s"}, "", "", 5)
	require.NoError(t, err)

	assert.Equal(t, "Kubernetes Basics", topic.Topic)
	assert.Equal(t, models.TopicSourceManual, topic.Source)
	assert.Equal(t, models.TopicStatusPending, topic.Status)
}

func TestEnqueueRejectsEmptyTopic(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Enqueue(context.Background(), "   ", nil, "", models.TopicSourceManual, 0)
	require.Error(t, err)
}

func TestSeedTrendingSkipsPendingDuplicates(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Enqueue(context.Background(), "Go Generics", nil, "", models.TopicSourceManual, 0)
	require.NoError(t, err)

	added, err := svc.SeedTrending(context.Background(), []string{"go generics", "Rust Ownership", "", "Rust Ownership"}, 1)
	require.NoError(t, err)

	// Case-insensitive duplicate and blank entries skipped; repeated
	// suggestion within the batch counted once.
	assert.Equal(t, 1, added)
}

func TestRequeueFailedTopic(t *testing.T) {
	svc, store := newTestService()

	old := models.NewQueueTopic("Flaky Topic", []string{"retry"}, "cat-1", models.TopicSourceScheduled, 3)
	old.Status = models.TopicStatusFailed
	old.Attempts = 3
	require.NoError(t, store.Enqueue(context.Background(), old))

	fresh, err := svc.Requeue(context.Background(), old.ID)
	require.NoError(t, err)

	assert.NotEqual(t, old.ID, fresh.ID)
	assert.Equal(t, "Flaky Topic", fresh.Topic)
	assert.Equal(t, models.TopicStatusPending, fresh.Status)
	assert.Equal(t, 0, fresh.Attempts)
	assert.Equal(t, 3, fresh.Priority)

	_, err = store.GetTopic(context.Background(), old.ID)
	assert.ErrorIs(t, err, interfaces.ErrTopicNotFound)
}

func TestRequeueRejectsNonFailedTopic(t *testing.T) {
	svc, store := newTestService()

	pending := models.NewQueueTopic("Active Topic", nil, "", models.TopicSourceManual, 0)
	require.NoError(t, store.Enqueue(context.Background(), pending))

	_, err := svc.Requeue(context.Background(), pending.ID)
	require.Error(t, err)
}

func TestRequeueMissingTopic(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Requeue(context.Background(), "missing")
	assert.ErrorIs(t, err, interfaces.ErrTopicNotFound)
}
