package handlers

import (
	"encoding/json"
	"net/http"

	"telecast/models"
	"telecast/services/selection"
)

type selectionController interface {
	Current() (models.Channel, bool)
	Select(identity models.ChannelIdentity) (models.Channel, bool)
	SelectNext() (models.Channel, bool)
	SelectPrev() (models.Channel, bool)
}

var _ selectionController = (*selection.Controller)(nil)

// SelectionHandler exposes the current-selection state machine.
type SelectionHandler struct {
	Controller selectionController
}

func NewSelectionHandler(controller selectionController) *SelectionHandler {
	return &SelectionHandler{Controller: controller}
}

type selectionResponse struct {
	Selected bool            `json:"selected"`
	Channel  *models.Channel `json:"channel,omitempty"`
}

func (h *SelectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSelectionResponse(h.Controller.Current()))
}

// Select sets the selection to the channel the posted identity resolves
// to. An identity that does not resolve leaves the selection unchanged
// and reports selected=false.
func (h *SelectionHandler) Select(w http.ResponseWriter, r *http.Request) {
	var identity models.ChannelIdentity
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&identity); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if identity.SourceID == "" || identity.ItemID == "" {
		http.Error(w, "sourceId and itemId are required", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, toSelectionResponse(h.Controller.Select(identity)))
}

func (h *SelectionHandler) Next(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSelectionResponse(h.Controller.SelectNext()))
}

func (h *SelectionHandler) Prev(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSelectionResponse(h.Controller.SelectPrev()))
}

func toSelectionResponse(ch models.Channel, ok bool) selectionResponse {
	if !ok {
		return selectionResponse{Selected: false}
	}
	return selectionResponse{Selected: true, Channel: &ch}
}
