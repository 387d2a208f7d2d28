package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"telecast/models"
	"telecast/services/epg"
)

type epgService interface {
	LoadPrograms(ctx context.Context, channels []models.Channel) error
	NowNext(key string, t time.Time) models.NowPlaying
	Schedule(key string, start, end time.Time) []models.Program
	RefreshDisplayIndex(identities []models.ChannelIdentity, batchSize int)
	DisplayIndex() map[string]models.DisplayEntry
	Status() models.EPGStatus
}

var _ epgService = (*epg.Service)(nil)

type epgChannelSource interface {
	Channels() []models.Channel
	FindChannel(identity models.ChannelIdentity) (models.Channel, bool)
}

// EPGHandler handles EPG-related HTTP requests.
type EPGHandler struct {
	Service epgService
	Catalog epgChannelSource

	displayBatchSize int
}

func NewEPGHandler(service epgService, cat epgChannelSource, displayBatchSize int) *EPGHandler {
	if displayBatchSize <= 0 {
		displayBatchSize = 50
	}
	return &EPGHandler{Service: service, Catalog: cat, displayBatchSize: displayBatchSize}
}

// GetNowPlaying returns current and next programs for specified channels.
// GET /api/epg/now?channels=src:id,src:id
func (h *EPGHandler) GetNowPlaying(w http.ResponseWriter, r *http.Request) {
	channelsParam := r.URL.Query().Get("channels")
	if channelsParam == "" {
		http.Error(w, "missing channels parameter", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	keys := strings.Split(channelsParam, ",")
	result := make([]models.NowPlaying, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		result = append(result, h.Service.NowNext(key, now))
	}
	writeJSON(w, http.StatusOK, result)
}

// GetSchedule returns the program schedule for a channel.
// GET /api/epg/schedule?sourceId=&itemId=&days=1
func (h *EPGHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromQuery(r)
	if !ok {
		http.Error(w, "sourceId and itemId are required", http.StatusBadRequest)
		return
	}

	ch, found := h.Catalog.FindChannel(identity)
	if !found {
		http.Error(w, "channel not found", http.StatusNotFound)
		return
	}

	days := 1
	if daysParam := r.URL.Query().Get("days"); daysParam != "" {
		if d, err := strconv.Atoi(daysParam); err == nil && d > 0 && d <= 14 {
			days = d
		}
	}

	start := time.Now().UTC().Truncate(24 * time.Hour)
	end := start.Add(time.Duration(days) * 24 * time.Hour)

	programs := h.Service.Schedule(ch.Key(), start, end)
	if programs == nil {
		programs = []models.Program{}
	}
	writeJSON(w, http.StatusOK, programs)
}

// Refresh reloads guide data for the whole catalog.
func (h *EPGHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.LoadPrograms(r.Context(), h.Catalog.Channels()); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, h.Service.Status())
}

// GetStatus reports the program cache state.
func (h *EPGHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Status())
}

// RefreshDisplay kicks off the batched now-playing display recompute for
// the identities in the request body and returns immediately.
// POST /api/epg/display/refresh
func (h *EPGHandler) RefreshDisplay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Channels []models.ChannelIdentity `json:"channels"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(body.Channels) == 0 {
		http.Error(w, "channels are required", http.StatusBadRequest)
		return
	}

	h.Service.RefreshDisplayIndex(body.Channels, h.displayBatchSize)
	w.WriteHeader(http.StatusAccepted)
}

// GetDisplay returns the current display index snapshot.
func (h *EPGHandler) GetDisplay(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.DisplayIndex())
}
