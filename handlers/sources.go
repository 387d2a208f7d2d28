package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"telecast/models"
	"telecast/services/sources"
)

type sourcesService interface {
	LoadSources(ctx context.Context) ([]models.Source, error)
	All() []models.Source
	EnabledSources(filterType string) []models.Source
	Create(ctx context.Context, in models.SourceUpsert) (models.Source, error)
	Update(ctx context.Context, id string, in models.SourceUpsert) (models.Source, error)
	SetEnabled(ctx context.Context, id string, enabled bool) (models.Source, error)
	Delete(ctx context.Context, id string) error
}

var _ sourcesService = (*sources.Service)(nil)

// SourcesHandler exposes source registry CRUD over HTTP. Stored passwords
// are redacted from every response.
type SourcesHandler struct {
	Service sourcesService
}

func NewSourcesHandler(service sourcesService) *SourcesHandler {
	return &SourcesHandler{Service: service}
}

func (h *SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	var list []models.Source
	if r.URL.Query().Get("enabled") == "true" {
		list = h.Service.EnabledSources(r.URL.Query().Get("type"))
	} else {
		list = h.Service.All()
	}

	writeJSON(w, http.StatusOK, redactAll(list))
}

func (h *SourcesHandler) Reload(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.LoadSources(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, redactAll(list))
}

func (h *SourcesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body models.SourceUpsert
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	src, err := h.Service.Create(r.Context(), body)
	if err != nil {
		http.Error(w, err.Error(), sourceErrorStatus(err))
		return
	}
	writeJSON(w, http.StatusCreated, redact(src))
}

func (h *SourcesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["sourceID"])
	if id == "" {
		http.Error(w, "source id is required", http.StatusBadRequest)
		return
	}

	var body models.SourceUpsert
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	src, err := h.Service.Update(r.Context(), id, body)
	if err != nil {
		http.Error(w, err.Error(), sourceErrorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, redact(src))
}

func (h *SourcesHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["sourceID"])
	if id == "" {
		http.Error(w, "source id is required", http.StatusBadRequest)
		return
	}

	var body struct {
		Enabled bool `json:"enabled"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	src, err := h.Service.SetEnabled(r.Context(), id, body.Enabled)
	if err != nil {
		http.Error(w, err.Error(), sourceErrorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, redact(src))
}

func (h *SourcesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["sourceID"])
	if id == "" {
		http.Error(w, "source id is required", http.StatusBadRequest)
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		http.Error(w, err.Error(), sourceErrorStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sourceErrorStatus(err error) int {
	switch {
	case errors.Is(err, sources.ErrSourceMissing):
		return http.StatusNotFound
	case errors.Is(err, sources.ErrNameRequired),
		errors.Is(err, sources.ErrHostRequired),
		errors.Is(err, sources.ErrUnknownType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func redact(src models.Source) models.Source {
	src.Password = ""
	return src
}

func redactAll(list []models.Source) []models.Source {
	out := make([]models.Source, len(list))
	for i, src := range list {
		out[i] = redact(src)
	}
	return out
}
