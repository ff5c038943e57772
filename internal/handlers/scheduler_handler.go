package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// SchedulerHandler handles scheduler HTTP requests
type SchedulerHandler struct {
	scheduler interfaces.SchedulerService
	logger    arbor.ILogger
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(scheduler interfaces.SchedulerService, logger arbor.ILogger) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// StatusHandler handles GET /api/scheduler/status - returns scheduler state
func (h *SchedulerHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	status, err := h.scheduler.Status(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read scheduler status")
		WriteError(w, http.StatusInternalServerError, "Failed to read scheduler status")
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// TriggerHandler handles POST /api/scheduler/trigger - runs a scheduled
// generation pass in the background. Eligibility gates still apply.
func (h *SchedulerHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	common.SafeGo(h.logger, "scheduler-trigger", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()

		if err := h.scheduler.RunScheduledGeneration(ctx); err != nil {
			h.logger.Error().Err(err).Msg("Manual scheduler trigger failed")
		}
	})

	WriteStarted(w, "Scheduled generation triggered")
}
