package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/scribe/internal/models"
)

// Storage sentinel errors.
var (
	ErrJobNotFound   = errors.New("job not found")
	ErrTopicNotFound = errors.New("topic not found")
	ErrKeyNotFound   = errors.New("key not found")
)

// JobStore persists generation job state between invocations. Records carry
// a fixed TTL; an abandoned job simply expires.
type JobStore interface {
	SaveJob(ctx context.Context, job *models.GenerationJob) error
	GetJob(ctx context.Context, jobID string) (*models.GenerationJob, error)
	DeleteJob(ctx context.Context, jobID string) error
}

// ReleaseResult describes the outcome a claimer reports back to the queue.
type ReleaseResult struct {
	Success    bool
	ContentRef string
	Error      string
}

// TopicListOptions filters queue topic listings.
type TopicListOptions struct {
	Status models.TopicStatus
	Source models.TopicSource
	Limit  int
}

// QueueStore is the priority queue of pending topics with atomic
// claim/release semantics. ClaimNext returns (nil, nil) when no claimable
// topic exists or another caller won the conditional update.
type QueueStore interface {
	Enqueue(ctx context.Context, topic *models.QueueTopic) error
	GetTopic(ctx context.Context, id string) (*models.QueueTopic, error)
	ClaimNext(ctx context.Context) (*models.QueueTopic, error)
	Release(ctx context.Context, id string, result ReleaseResult) error
	MarkCompleted(ctx context.Context, id string, contentRef string) error
	ListTopics(ctx context.Context, opts *TopicListOptions) ([]*models.QueueTopic, error)
	DeleteTopic(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, status models.TopicStatus) (int, error)
}

// KeyValuePair is one stored settings entry.
type KeyValuePair struct {
	Key       string `badgerhold:"key"`
	Value     string
	UpdatedAt time.Time
}

// KeyValueStorage is the typed-settings backing store.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	GetAll(ctx context.Context) (map[string]string, error)
}

// LedgerStore is the append-only cost ledger.
type LedgerStore interface {
	Append(ctx context.Context, entry *models.CostEntry) error
	List(ctx context.Context, limit int) ([]*models.CostEntry, error)
	Stats(ctx context.Context, now time.Time) (*models.LedgerStats, error)
}

// DocumentStore persists content documents created at finalize.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, limit int) ([]*models.Document, error)
}

// LockStore provides durable, TTL-bounded mutual-exclusion markers. Acquire
// is an atomic insert-if-absent; it returns false when the lock is already
// held by another invocation. Expired locks are claimable again.
type LockStore interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
	SetMarker(ctx context.Context, key string, value string, ttl time.Duration) error
	GetMarker(ctx context.Context, key string) (string, error)
	DeleteMarker(ctx context.Context, key string) error
}

// StorageManager aggregates all persistence concerns behind one handle.
type StorageManager interface {
	JobStore() JobStore
	QueueStore() QueueStore
	KVStore() KeyValueStorage
	LedgerStore() LedgerStore
	DocumentStore() DocumentStore
	LockStore() LockStore
	Close() error
}
