package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// handleStatus returns the combined terrarium snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.surface.Status(r.Context()))
}

// handleSensors returns the latest cached sensor reading.
func (s *Server) handleSensors(w http.ResponseWriter, _ *http.Request) {
	reading, ok := s.surface.Reading()
	if !ok {
		writeNotFound(w, "no sensor reading available yet")
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

// handleGetTargets returns the target configuration namespace.
func (s *Server) handleGetTargets(w http.ResponseWriter, _ *http.Request) {
	values, err := s.surface.Targets()
	if err != nil {
		writeInternalError(w, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// handlePatchTargets applies a partial update to the target configuration.
// The whole patch is rejected if any key fails validation.
func (s *Server) handlePatchTargets(w http.ResponseWriter, r *http.Request) {
	partial, ok := decodePatch(w, r)
	if !ok {
		return
	}

	merged, err := s.surface.UpdateTargets(partial)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

// handleGetManual returns the manual override namespace.
func (s *Server) handleGetManual(w http.ResponseWriter, _ *http.Request) {
	values, err := s.surface.Manual()
	if err != nil {
		writeInternalError(w, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// handlePatchManual applies a partial update to the manual namespace.
// When manual mode is on, patched channels take effect immediately.
func (s *Server) handlePatchManual(w http.ResponseWriter, r *http.Request) {
	partial, ok := decodePatch(w, r)
	if !ok {
		return
	}

	merged, err := s.surface.UpdateManual(r.Context(), partial)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

// handleGetChannel returns the commanded value of one actuator channel.
func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	value, err := s.surface.ChannelState(channel)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channel": channel,
		"value":   float64(value),
	})
}

// channelRequest is the request body for PUT /channels/{channel}.
// The value is a boolean for switch channels or a number for the light.
type channelRequest struct {
	Value any `json:"value"`
}

// handleSetChannel stores a manual override for one channel.
func (s *Server) handleSetChannel(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeBadRequest(w, "value is required")
		return
	}

	channel := chi.URLParam(r, "channel")
	if err := s.surface.SetOverride(r.Context(), channel, req.Value); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channel": channel,
		"value":   req.Value,
	})
}

// handleClearChannel removes the manual override for one channel.
func (s *Server) handleClearChannel(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	if err := s.surface.SetOverride(r.Context(), channel, nil); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channel": channel,
		"cleared": true,
	})
}

// handleChannelHistory returns recent transitions for one channel.
func (s *Server) handleChannelHistory(w http.ResponseWriter, r *http.Request) {
	s.writeHistory(w, r, chi.URLParam(r, "channel"))
}

// handleHistory returns recent transitions across all channels.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.writeHistory(w, r, "")
}

func (s *Server) writeHistory(w http.ResponseWriter, r *http.Request, channel string) {
	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	entries, err := s.surface.History(r.Context(), channel, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"history": entries,
		"count":   len(entries),
	})
}

// modeRequest is the request body for PUT /mode.
type modeRequest struct {
	ManualMode *bool `json:"manual_mode"`
}

// handleSetMode enables or disables manual mode.
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.ManualMode == nil {
		writeBadRequest(w, "manual_mode is required")
		return
	}

	if err := s.surface.SetManualMode(*req.ManualMode); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"manual_mode": *req.ManualMode,
	})
}

// handleTriggerWatering starts a watering run immediately.
func (s *Server) handleTriggerWatering(w http.ResponseWriter, r *http.Request) {
	if err := s.surface.TriggerWatering(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"watering": "started",
	})
}

// handleGetIdentity returns the device identity record.
func (s *Server) handleGetIdentity(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.surface.Identity())
}

// handlePatchIdentity applies a partial update to the device identity.
func (s *Server) handlePatchIdentity(w http.ResponseWriter, r *http.Request) {
	partial, ok := decodePatch(w, r)
	if !ok {
		return
	}

	merged, err := s.surface.UpdateIdentity(partial)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

// decodePatch decodes a JSON object body for PATCH endpoints, writing
// the error response itself on failure.
func decodePatch(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var partial map[string]any
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return nil, false
	}
	if len(partial) == 0 {
		writeBadRequest(w, "empty patch")
		return nil, false
	}
	return partial, true
}

// parseHistoryLimit parses the limit query parameter with bounds enforcement.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}

	return limit, nil
}
