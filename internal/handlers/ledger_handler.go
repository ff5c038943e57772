package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// LedgerHandler handles cost ledger HTTP requests
type LedgerHandler struct {
	store  interfaces.LedgerStore
	ledger interfaces.LedgerService
	logger arbor.ILogger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(store interfaces.LedgerStore, ledger interfaces.LedgerService, logger arbor.ILogger) *LedgerHandler {
	return &LedgerHandler{
		store:  store,
		ledger: ledger,
		logger: logger,
	}
}

// ListEntriesHandler handles GET /api/ledger - lists recent cost entries
func (h *LedgerHandler) ListEntriesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := GetLimitParam(r, 50, 500)

	entries, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list ledger entries")
		WriteError(w, http.StatusInternalServerError, "Failed to list ledger entries")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// StatsHandler handles GET /api/ledger/stats - returns aggregate cost figures
func (h *LedgerHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	stats, err := h.ledger.Stats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute ledger stats")
		WriteError(w, http.StatusInternalServerError, "Failed to compute ledger stats")
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
