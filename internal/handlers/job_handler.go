package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// JobHandler handles generation job HTTP requests
type JobHandler struct {
	pipeline interfaces.PipelineService
	logger   arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(pipeline interfaces.PipelineService, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

type createJobRequest struct {
	Topic   string            `json:"topic"`
	Options models.JobOptions `json:"options"`
}

// CreateJobHandler handles POST /api/jobs - creates a new generation job
func (h *JobHandler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Topic) == "" {
		WriteError(w, http.StatusBadRequest, "Topic is required")
		return
	}

	jobID, err := h.pipeline.CreateJob(r.Context(), req.Topic, req.Options)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", req.Topic).Msg("Failed to create generation job")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info().Str("job_id", jobID).Str("topic", req.Topic).Msg("Generation job created")
	WriteJSON(w, http.StatusCreated, map[string]string{
		"job_id": jobID,
		"status": "pending",
	})
}

// GetJobHandler handles GET /api/jobs/{id} - returns job state and progress
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	jobID := extractJobID(r.URL.Path)
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := h.pipeline.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to load job")
		WriteError(w, http.StatusInternalServerError, "Failed to load job")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

type processStepRequest struct {
	Step string `json:"step"`
}

// ProcessStepHandler handles POST /api/jobs/{id}/step - executes one pipeline step
func (h *JobHandler) ProcessStepHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	jobID := extractJobID(r.URL.Path)

	var req processStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	step := models.StepType(req.Step)
	if step == "" {
		// Default to the job's current step
		job, err := h.pipeline.GetJob(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, interfaces.ErrJobNotFound) {
				WriteError(w, http.StatusNotFound, "Job not found")
				return
			}
			WriteError(w, http.StatusInternalServerError, "Failed to load job")
			return
		}
		step = job.CurrentStep
	}

	var outcome *interfaces.StepOutcome
	var err error
	switch step {
	case models.StepFinalize:
		outcome, err = h.pipeline.Finalize(r.Context(), jobID)
	default:
		outcome, err = h.pipeline.ProcessStep(r.Context(), jobID, step)
	}
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Warn().Err(err).Str("job_id", jobID).Str("step", string(step)).Msg("Step execution failed")
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":    jobID,
		"step":      step,
		"next_step": outcome.NextStep,
		"status":    outcome.Status,
	})
}

// FinalizeHandler handles POST /api/jobs/{id}/finalize - assembles the
// document from accumulated step output.
func (h *JobHandler) FinalizeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	jobID := extractJobID(r.URL.Path)

	outcome, err := h.pipeline.Finalize(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Finalize failed")
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":    jobID,
		"next_step": outcome.NextStep,
		"status":    outcome.Status,
	})
}

// CompleteImageHandler handles POST /api/jobs/{id}/complete-image - merges
// image cost into the job and finishes it after an external image fetch.
func (h *JobHandler) CompleteImageHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	jobID := extractJobID(r.URL.Path)

	outcome, err := h.pipeline.CompleteWithImage(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Image completion failed")
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":    jobID,
		"next_step": outcome.NextStep,
		"status":    outcome.Status,
	})
}

// RunJobHandler handles POST /api/jobs/{id}/run - drives the job through all
// remaining steps in the background.
func (h *JobHandler) RunJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	jobID := extractJobID(r.URL.Path)

	// Verify the job exists before accepting the async run
	if _, err := h.pipeline.GetJob(r.Context(), jobID); err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to load job")
		return
	}

	common.SafeGo(h.logger, "job-run", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()

		job, err := h.pipeline.RunToCompletion(ctx, jobID)
		if err != nil {
			h.logger.Error().Err(err).Str("job_id", jobID).Msg("Job run failed")
			return
		}
		h.logger.Info().
			Str("job_id", jobID).
			Str("status", string(job.Status)).
			Msg("Job run finished")
	})

	WriteStarted(w, "Job run started")
}

// extractJobID parses the job ID out of /api/jobs/{id} and its subpaths.
func extractJobID(path string) string {
	trimmed := strings.TrimPrefix(path, "/api/jobs/")
	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}
