// -----------------------------------------------------------------------
// Queue Topic - a unit of prospective work awaiting a generation job
// -----------------------------------------------------------------------

package models

import (
	"time"

	"github.com/google/uuid"
)

// TopicStatus represents the queue lifecycle of a topic.
type TopicStatus string

const (
	TopicStatusPending    TopicStatus = "pending"
	TopicStatusProcessing TopicStatus = "processing"
	TopicStatusCompleted  TopicStatus = "completed"
	TopicStatusFailed     TopicStatus = "failed"
)

// TopicSource identifies how a topic entered the queue.
type TopicSource string

const (
	TopicSourceManual    TopicSource = "manual"
	TopicSourceQueue     TopicSource = "queue"
	TopicSourceScheduled TopicSource = "scheduled"
	TopicSourceTrending  TopicSource = "trending"
)

// QueueTopic is one queued unit of prospective work. Ownership of a row is
// granted only via a conditional pending->processing update; a processing
// row whose LockedAt exceeds the staleness window is presumed abandoned and
// reclaimed by the next claimer.
type QueueTopic struct {
	ID          string      `badgerhold:"key" json:"id"`
	Topic       string      `json:"topic"`
	Keywords    []string    `json:"keywords"`
	CategoryRef string      `json:"category_ref,omitempty"`
	Source      TopicSource `json:"source"`
	Status      TopicStatus `badgerhold:"index" json:"status"`
	Priority    int         `json:"priority"`
	Attempts    int         `json:"attempts"`
	LastError   string      `json:"last_error,omitempty"`
	ContentRef  string      `json:"content_ref,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	ProcessedAt *time.Time  `json:"processed_at,omitempty"`
	LockedAt    *time.Time  `json:"locked_at,omitempty"`
}

// NewQueueTopic creates a pending topic ready for claiming.
func NewQueueTopic(topic string, keywords []string, categoryRef string, source TopicSource, priority int) *QueueTopic {
	return &QueueTopic{
		ID:          "topic_" + uuid.New().String(),
		Topic:       topic,
		Keywords:    keywords,
		CategoryRef: categoryRef,
		Source:      source,
		Status:      TopicStatusPending,
		Priority:    priority,
		CreatedAt:   time.Now(),
	}
}
