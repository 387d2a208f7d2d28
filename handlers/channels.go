package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"telecast/internal/database"
	"telecast/models"
	"telecast/services/catalog"
)

type catalogService interface {
	LoadChannels(ctx context.Context) error
	FindChannel(identity models.ChannelIdentity) (models.Channel, bool)
	OrderedView(opts catalog.ViewOptions) []models.Channel
	Groups() []string
	Len() int
	Version() uint64
	LastFailedSourceIDs() []string
	HideItem(ctx context.Context, item models.HiddenItem) error
	UnhideItem(ctx context.Context, item models.HiddenItem) error
	HiddenItemsFor(ctx context.Context, sourceID string) ([]models.HiddenItem, error)
	ToggleGroupCollapse(groupTitle string) bool
	CollapsedGroups() []string
}

var _ catalogService = (*catalog.Service)(nil)

// ChannelsHandler exposes the aggregated channel catalog.
type ChannelsHandler struct {
	Service catalogService
}

func NewChannelsHandler(service catalogService) *ChannelsHandler {
	return &ChannelsHandler{Service: service}
}

// List returns the ordered channel view.
// GET /api/channels?search=&group=&includeHidden=
func (h *ChannelsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := h.Service.OrderedView(catalog.ViewOptions{
		Search:        q.Get("search"),
		Group:         q.Get("group"),
		IncludeHidden: q.Get("includeHidden") == "true",
	})
	writeJSON(w, http.StatusOK, view)
}

// Find resolves a channel identity, trying id first, then stream id.
// GET /api/channels/find?sourceId=&itemId=
func (h *ChannelsHandler) Find(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromQuery(r)
	if !ok {
		http.Error(w, "sourceId and itemId are required", http.StatusBadRequest)
		return
	}

	ch, found := h.Service.FindChannel(identity)
	if !found {
		// Lookup misses are empty results, not errors.
		http.Error(w, "channel not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

// Reload rebuilds the catalog from every enabled source. A partial load
// still returns the catalog status, with the failed source ids attached.
func (h *ChannelsHandler) Reload(w http.ResponseWriter, r *http.Request) {
	err := h.Service.LoadChannels(r.Context())

	var partial *models.PartialLoadError
	if err != nil && !errors.As(err, &partial) {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, h.status())
}

// Status reports catalog size, version and last-load failures.
func (h *ChannelsHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status())
}

func (h *ChannelsHandler) status() map[string]any {
	return map[string]any{
		"channelCount":    h.Service.Len(),
		"version":         h.Service.Version(),
		"failedSourceIds": h.Service.LastFailedSourceIDs(),
	}
}

// Groups lists the visible group titles.
func (h *ChannelsHandler) Groups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"groups":    h.Service.Groups(),
		"collapsed": h.Service.CollapsedGroups(),
	})
}

// ToggleGroupCollapse flips the collapsed state of a group title.
func (h *ChannelsHandler) ToggleGroupCollapse(w http.ResponseWriter, r *http.Request) {
	var body struct {
		GroupTitle string `json:"groupTitle"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.GroupTitle) == "" {
		http.Error(w, "groupTitle is required", http.StatusBadRequest)
		return
	}

	collapsed := h.Service.ToggleGroupCollapse(body.GroupTitle)
	writeJSON(w, http.StatusOK, map[string]any{
		"groupTitle": body.GroupTitle,
		"collapsed":  collapsed,
	})
}

// HiddenItems lists the hidden items for one source.
// GET /api/channels/hidden?sourceId=
func (h *ChannelsHandler) HiddenItems(w http.ResponseWriter, r *http.Request) {
	sourceID := strings.TrimSpace(r.URL.Query().Get("sourceId"))
	if sourceID == "" {
		http.Error(w, "sourceId is required", http.StatusBadRequest)
		return
	}

	items, err := h.Service.HiddenItemsFor(r.Context(), sourceID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.HiddenItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Hide marks a category or channel as hidden.
func (h *ChannelsHandler) Hide(w http.ResponseWriter, r *http.Request) {
	item, ok := hiddenItemFromBody(w, r)
	if !ok {
		return
	}
	if err := h.Service.HideItem(r.Context(), item); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Unhide removes a hidden-item marker.
func (h *ChannelsHandler) Unhide(w http.ResponseWriter, r *http.Request) {
	item, ok := hiddenItemFromBody(w, r)
	if !ok {
		return
	}
	if err := h.Service.UnhideItem(r.Context(), item); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, database.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func hiddenItemFromBody(w http.ResponseWriter, r *http.Request) (models.HiddenItem, bool) {
	var item models.HiddenItem
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&item); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return models.HiddenItem{}, false
	}
	if item.SourceID == "" || item.ItemID == "" {
		http.Error(w, "sourceId and itemId are required", http.StatusBadRequest)
		return models.HiddenItem{}, false
	}
	if item.ItemType != models.HiddenItemTypeCategory && item.ItemType != models.HiddenItemTypeChannel {
		http.Error(w, "itemType must be category or channel", http.StatusBadRequest)
		return models.HiddenItem{}, false
	}
	return item, true
}

func identityFromQuery(r *http.Request) (models.ChannelIdentity, bool) {
	q := r.URL.Query()
	identity := models.ChannelIdentity{
		SourceID: strings.TrimSpace(q.Get("sourceId")),
		ItemID:   strings.TrimSpace(q.Get("itemId")),
	}
	if identity.SourceID == "" || identity.ItemID == "" {
		return models.ChannelIdentity{}, false
	}
	return identity, true
}
