package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// SettingsHandler handles runtime settings HTTP requests
type SettingsHandler struct {
	settings interfaces.SettingsService
	logger   arbor.ILogger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings interfaces.SettingsService, logger arbor.ILogger) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		logger:   logger,
	}
}

// ListSettingsHandler handles GET /api/settings - returns all stored settings
func (h *SettingsHandler) ListSettingsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	all, err := h.settings.All()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list settings")
		WriteError(w, http.StatusInternalServerError, "Failed to list settings")
		return
	}

	WriteJSON(w, http.StatusOK, all)
}

// GetSettingHandler handles GET /api/settings/{key}
func (h *SettingsHandler) GetSettingHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	key := h.extractKey(r.URL.Path)
	if key == "" {
		WriteError(w, http.StatusBadRequest, "Setting key is required")
		return
	}

	value, err := h.settings.Get(key)
	if err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			WriteError(w, http.StatusNotFound, "Setting not found")
			return
		}
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to read setting")
		WriteError(w, http.StatusInternalServerError, "Failed to read setting")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"key":   key,
		"value": value,
	})
}

type setSettingRequest struct {
	Value string `json:"value"`
}

// SetSettingHandler handles PUT /api/settings/{key} - updates one setting.
// Schedule-affecting keys also record a change timestamp that the scheduler
// honors as a cooldown.
func (h *SettingsHandler) SetSettingHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	key := h.extractKey(r.URL.Path)
	if key == "" {
		WriteError(w, http.StatusBadRequest, "Setting key is required")
		return
	}

	var req setSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.settings.Set(key, req.Value); err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to store setting")
		WriteError(w, http.StatusInternalServerError, "Failed to store setting")
		return
	}

	h.logger.Info().Str("key", key).Msg("Setting updated")
	WriteSuccess(w, "Setting updated")
}

func (h *SettingsHandler) extractKey(path string) string {
	encoded := strings.TrimPrefix(path, "/api/settings/")
	key, err := url.PathUnescape(encoded)
	if err != nil {
		return encoded
	}
	return key
}
