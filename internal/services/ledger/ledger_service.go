// Package ledger wraps the append-only cost ledger with the gate
// computations the scheduler needs.
package ledger

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

type service struct {
	store  interfaces.LedgerStore
	logger arbor.ILogger
	now    func() time.Time
}

// NewService creates the ledger service.
func NewService(store interfaces.LedgerStore, logger arbor.ILogger) interfaces.LedgerService {
	return &service{store: store, logger: logger, now: time.Now}
}

// Append records one finished job. One entry per completed or failed job;
// entries are never revised.
func (s *service) Append(ctx context.Context, entry *models.CostEntry) error {
	if err := s.store.Append(ctx, entry); err != nil {
		return err
	}

	s.logger.Info().
		Str("job_id", entry.JobID).
		Str("model", entry.Model).
		Str("status", string(entry.Status)).
		Float64("cost_usd", entry.Usage.TotalCost()).
		Msg("Cost ledger entry recorded")
	return nil
}

func (s *service) Stats(ctx context.Context) (*models.LedgerStats, error) {
	return s.store.Stats(ctx, s.now())
}

// WithinBudget reports whether spending may continue. A limit of zero or
// below disables the budget gate entirely.
func (s *service) WithinBudget(ctx context.Context, limit float64) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	stats, err := s.store.Stats(ctx, s.now())
	if err != nil {
		return false, err
	}
	return stats.MonthCostUSD < limit, nil
}

// PostsToday counts completed generations since local midnight.
func (s *service) PostsToday(ctx context.Context) (int, error) {
	stats, err := s.store.Stats(ctx, s.now())
	if err != nil {
		return 0, err
	}
	return stats.PostsToday, nil
}
