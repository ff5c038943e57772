package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/queue"
)

// QueueHandler handles topic queue HTTP requests
type QueueHandler struct {
	queueService *queue.Service
	logger       arbor.ILogger
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(queueService *queue.Service, logger arbor.ILogger) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
		logger:       logger,
	}
}

type enqueueRequest struct {
	Topic       string   `json:"topic"`
	Keywords    []string `json:"keywords"`
	CategoryRef string   `json:"category_ref"`
	Source      string   `json:"source"`
	Priority    int      `json:"priority"`
}

// EnqueueHandler handles POST /api/queue - adds a topic to the queue
func (h *QueueHandler) EnqueueHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	topic, err := h.queueService.Enqueue(r.Context(), req.Topic, req.Keywords, req.CategoryRef, models.TopicSource(req.Source), req.Priority)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info().Str("topic_id", topic.ID).Str("topic", topic.Topic).Msg("Topic enqueued")
	WriteJSON(w, http.StatusCreated, topic)
}

// ListQueueHandler handles GET /api/queue - lists queue topics with optional filters
func (h *QueueHandler) ListQueueHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	opts := &interfaces.TopicListOptions{
		Status: models.TopicStatus(r.URL.Query().Get("status")),
		Source: models.TopicSource(r.URL.Query().Get("source")),
		Limit:  GetLimitParam(r, 50, 500),
	}

	topics, err := h.queueService.List(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list queue topics")
		WriteError(w, http.StatusInternalServerError, "Failed to list queue topics")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"topics": topics,
		"count":  len(topics),
	})
}

// DeleteTopicHandler handles DELETE /api/queue/{id} - removes a topic
func (h *QueueHandler) DeleteTopicHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	topicID := strings.TrimPrefix(r.URL.Path, "/api/queue/")
	if topicID == "" {
		WriteError(w, http.StatusBadRequest, "Topic ID is required")
		return
	}

	if err := h.queueService.Delete(r.Context(), topicID); err != nil {
		if errors.Is(err, interfaces.ErrTopicNotFound) {
			WriteError(w, http.StatusNotFound, "Topic not found")
			return
		}
		h.logger.Error().Err(err).Str("topic_id", topicID).Msg("Failed to delete topic")
		WriteError(w, http.StatusInternalServerError, "Failed to delete topic")
		return
	}

	WriteSuccess(w, "Topic deleted")
}

// RequeueTopicHandler handles POST /api/queue/{id}/requeue - retries a failed topic
func (h *QueueHandler) RequeueTopicHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	topicID := strings.TrimPrefix(r.URL.Path, "/api/queue/")
	topicID = strings.TrimSuffix(topicID, "/requeue")
	if topicID == "" {
		WriteError(w, http.StatusBadRequest, "Topic ID is required")
		return
	}

	topic, err := h.queueService.Requeue(r.Context(), topicID)
	if err != nil {
		if errors.Is(err, interfaces.ErrTopicNotFound) {
			WriteError(w, http.StatusNotFound, "Topic not found")
			return
		}
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, topic)
}

type seedRequest struct {
	Topics   []string `json:"topics"`
	Priority int      `json:"priority"`
}

// SeedTrendingHandler handles POST /api/queue/seed - bulk-adds trending topics,
// skipping any already pending.
func (h *QueueHandler) SeedTrendingHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req seedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Topics) == 0 {
		WriteError(w, http.StatusBadRequest, "Topics are required")
		return
	}

	added, err := h.queueService.SeedTrending(r.Context(), req.Topics, req.Priority)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to seed trending topics")
		WriteError(w, http.StatusInternalServerError, "Failed to seed trending topics")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"added":   added,
		"skipped": len(req.Topics) - added,
	})
}

// QueueCountsHandler handles GET /api/queue/counts - returns per-status counts
func (h *QueueHandler) QueueCountsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	counts, err := h.queueService.Counts(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to count queue topics")
		WriteError(w, http.StatusInternalServerError, "Failed to count queue topics")
		return
	}

	WriteJSON(w, http.StatusOK, counts)
}
