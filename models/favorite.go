package models

import "time"

// FavoriteEntry is a user-saved reference to a content item, keyed by
// source plus item identity. ItemID may hold either a channel id or a
// provider stream id depending on which the client had at save time.
type FavoriteEntry struct {
	ID       string    `json:"id"`
	SourceID string    `json:"sourceId"`
	ItemID   string    `json:"itemId"`
	ItemType string    `json:"itemType"` // "channel" | "movie" | "series"
	AddedAt  time.Time `json:"addedAt"`
}

const FavoriteItemTypeChannel = "channel"

// ResolvedFavorite pairs a favorite entry with the live channel it
// resolved to in the current catalog snapshot.
type ResolvedFavorite struct {
	Favorite FavoriteEntry `json:"favorite"`
	Channel  Channel       `json:"channel"`
}
