package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// LedgerStorage implements the append-only cost ledger on badgerhold.
type LedgerStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewLedgerStorage creates a new LedgerStorage instance
func NewLedgerStorage(db *BadgerDB, logger arbor.ILogger) interfaces.LedgerStore {
	return &LedgerStorage{db: db, logger: logger}
}

// Append writes one ledger entry. Entries are never updated or deleted.
func (s *LedgerStorage) Append(ctx context.Context, entry *models.CostEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("ledger entry ID is required")
	}
	if err := s.db.Store().Insert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	s.logger.Debug().
		Str("entry_id", entry.ID).
		Str("job_id", entry.JobID).
		Float64("cost_usd", entry.Usage.TotalCost()).
		Msg("Cost entry appended")
	return nil
}

// List returns the most recent entries, newest first.
func (s *LedgerStorage) List(ctx context.Context, limit int) ([]*models.CostEntry, error) {
	var entries []models.CostEntry
	if err := s.db.Store().Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	result := make([]*models.CostEntry, 0, len(entries))
	for i := range entries {
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, &entries[i])
	}
	return result, nil
}

// Stats aggregates the ledger relative to the supplied reference time:
// month figures cover the calendar month containing now, posts today
// counts completed entries since local midnight.
func (s *LedgerStorage) Stats(ctx context.Context, now time.Time) (*models.LedgerStats, error) {
	var entries []models.CostEntry
	if err := s.db.Store().Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to load ledger entries: %w", err)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats := &models.LedgerStats{}
	for _, entry := range entries {
		stats.TotalEntries++
		stats.TotalCostUSD += entry.Usage.TotalCost()

		if entry.Status == models.JobStatusError {
			stats.FailedEntries++
		}

		created := entry.CreatedAt.In(now.Location())
		if !created.Before(monthStart) {
			stats.MonthCostUSD += entry.Usage.TotalCost()
			stats.MonthTokens += entry.Usage.TotalTokens
		}
		if !created.Before(dayStart) && entry.Status == models.JobStatusCompleted {
			stats.PostsToday++
		}
	}

	stats.TotalCostUSD = models.RoundCost(stats.TotalCostUSD)
	stats.MonthCostUSD = models.RoundCost(stats.MonthCostUSD)
	return stats, nil
}
