package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"telecast/internal/database"
	"telecast/models"
	"telecast/services/favorites"
)

type favoritesService interface {
	List(ctx context.Context, itemType string) ([]models.FavoriteEntry, error)
	Add(ctx context.Context, sourceID, itemID, itemType string) (models.FavoriteEntry, error)
	Remove(ctx context.Context, id string) error
	Resolved(ctx context.Context) ([]models.ResolvedFavorite, error)
}

var _ favoritesService = (*favorites.Service)(nil)

// FavoritesHandler exposes favorites CRUD plus the catalog-resolved view.
type FavoritesHandler struct {
	Service favoritesService
}

func NewFavoritesHandler(service favoritesService) *FavoritesHandler {
	return &FavoritesHandler{Service: service}
}

// List returns stored favorites.
// GET /api/favorites?itemType=channel
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.List(r.Context(), r.URL.Query().Get("itemType"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.FavoriteEntry{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Resolved returns the favorites that resolve against the live catalog,
// in stored order. Unresolved entries are omitted, not errors.
func (h *FavoritesHandler) Resolved(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.Service.Resolved(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if resolved == nil {
		resolved = []models.ResolvedFavorite{}
	}
	writeJSON(w, http.StatusOK, resolved)
}

func (h *FavoritesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SourceID string `json:"sourceId"`
		ItemID   string `json:"itemId"`
		ItemType string `json:"itemType"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fav, err := h.Service.Add(r.Context(), body.SourceID, body.ItemID, body.ItemType)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, favorites.ErrSourceIDRequired) || errors.Is(err, favorites.ErrItemIDRequired) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusCreated, fav)
}

func (h *FavoritesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["favoriteID"])
	if id == "" {
		http.Error(w, "favorite id is required", http.StatusBadRequest)
		return
	}

	if err := h.Service.Remove(r.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, database.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
