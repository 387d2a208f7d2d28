package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"telecast/handlers"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	sourcesHandler *handlers.SourcesHandler,
	channelsHandler *handlers.ChannelsHandler,
	epgHandler *handlers.EPGHandler,
	selectionHandler *handlers.SelectionHandler,
	favoritesHandler *handlers.FavoritesHandler,
) {
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(corsMiddleware)

	// Sources
	apiRouter.HandleFunc("/sources", sourcesHandler.List).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/sources", sourcesHandler.Create).Methods(http.MethodPost)
	apiRouter.HandleFunc("/sources/reload", sourcesHandler.Reload).Methods(http.MethodPost)
	apiRouter.HandleFunc("/sources/{sourceID}", sourcesHandler.Update).Methods(http.MethodPut)
	apiRouter.HandleFunc("/sources/{sourceID}", sourcesHandler.Delete).Methods(http.MethodDelete)
	apiRouter.HandleFunc("/sources/{sourceID}/enabled", sourcesHandler.SetEnabled).Methods(http.MethodPut)

	// Channel catalog
	apiRouter.HandleFunc("/channels", channelsHandler.List).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/channels/reload", channelsHandler.Reload).Methods(http.MethodPost)
	apiRouter.HandleFunc("/channels/status", channelsHandler.Status).Methods(http.MethodGet)
	apiRouter.HandleFunc("/channels/find", channelsHandler.Find).Methods(http.MethodGet)
	apiRouter.HandleFunc("/channels/groups", channelsHandler.Groups).Methods(http.MethodGet)
	apiRouter.HandleFunc("/channels/groups/collapse", channelsHandler.ToggleGroupCollapse).Methods(http.MethodPost)
	apiRouter.HandleFunc("/channels/hidden", channelsHandler.HiddenItems).Methods(http.MethodGet)
	apiRouter.HandleFunc("/channels/hidden", channelsHandler.Hide).Methods(http.MethodPost)
	apiRouter.HandleFunc("/channels/hidden", channelsHandler.Unhide).Methods(http.MethodDelete)

	// EPG
	apiRouter.HandleFunc("/epg/now", epgHandler.GetNowPlaying).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/epg/schedule", epgHandler.GetSchedule).Methods(http.MethodGet)
	apiRouter.HandleFunc("/epg/status", epgHandler.GetStatus).Methods(http.MethodGet)
	apiRouter.HandleFunc("/epg/refresh", epgHandler.Refresh).Methods(http.MethodPost)
	apiRouter.HandleFunc("/epg/display", epgHandler.GetDisplay).Methods(http.MethodGet)
	apiRouter.HandleFunc("/epg/display/refresh", epgHandler.RefreshDisplay).Methods(http.MethodPost)

	// Selection
	apiRouter.HandleFunc("/selection", selectionHandler.Get).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/selection", selectionHandler.Select).Methods(http.MethodPost)
	apiRouter.HandleFunc("/selection/next", selectionHandler.Next).Methods(http.MethodPost)
	apiRouter.HandleFunc("/selection/prev", selectionHandler.Prev).Methods(http.MethodPost)

	// Favorites
	apiRouter.HandleFunc("/favorites", favoritesHandler.List).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/favorites", favoritesHandler.Create).Methods(http.MethodPost)
	apiRouter.HandleFunc("/favorites/resolved", favoritesHandler.Resolved).Methods(http.MethodGet)
	apiRouter.HandleFunc("/favorites/{favoriteID}", favoritesHandler.Delete).Methods(http.MethodDelete)
}
