package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// TokenUsage is the accumulated token and cost accounting for a job.
type TokenUsage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
	ImageCostUSD     float64 `json:"image_cost_usd"`
}

// Add accumulates another usage record into the total. Costs are re-rounded
// to 6 decimal places so the running total stays stable across steps.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	u.CostUSD = RoundCost(u.CostUSD + other.CostUSD)
	u.ImageCostUSD = RoundCost(u.ImageCostUSD + other.ImageCostUSD)
}

// TotalCost returns combined text and image cost.
func (u *TokenUsage) TotalCost() float64 {
	return RoundCost(u.CostUSD + u.ImageCostUSD)
}

// RoundCost rounds a USD amount to 6 decimal places, the resolution used
// for all cost accounting.
func RoundCost(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// CostEntry is one append-only cost ledger record, written once per
// completed or failed job.
type CostEntry struct {
	ID         string     `badgerhold:"key" json:"id"`
	JobID      string     `json:"job_id"`
	Topic      string     `json:"topic"`
	Model      string     `json:"model"`
	Status     JobStatus  `json:"status"`
	Usage      TokenUsage `json:"usage"`
	ContentRef string     `json:"content_ref,omitempty"`
	CreatedAt  time.Time  `badgerhold:"index" json:"created_at"`
}

// NewCostEntry builds a ledger entry from a finished job.
func NewCostEntry(job *GenerationJob) *CostEntry {
	return &CostEntry{
		ID:         "cost_" + uuid.New().String(),
		JobID:      job.ID,
		Topic:      job.Topic,
		Model:      job.Options.Model,
		Status:     job.Status,
		Usage:      job.Usage,
		ContentRef: job.ContentRef,
		CreatedAt:  time.Now(),
	}
}

// LedgerStats are the aggregates derived from the cost ledger.
type LedgerStats struct {
	TotalEntries  int     `json:"total_entries"`
	TotalCostUSD  float64 `json:"total_cost_usd"`
	MonthCostUSD  float64 `json:"month_cost_usd"`
	MonthTokens   int     `json:"month_tokens"`
	PostsToday    int     `json:"posts_today"`
	FailedEntries int     `json:"failed_entries"`
}
