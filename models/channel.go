package models

// Channel represents a single live channel normalized from a provider's
// channel list. Identity is scoped per source: the same display name under
// two sources is two distinct channels.
type Channel struct {
	ID           string `json:"id"`
	SourceID     string `json:"sourceId"`
	StreamID     string `json:"streamId"`
	Name         string `json:"name"`
	LogoURL      string `json:"logoUrl,omitempty"`
	GroupTitle   string `json:"groupTitle,omitempty"`
	CategoryID   string `json:"categoryId,omitempty"`
	SortOrder    int    `json:"sortOrder"`
	EPGChannelID string `json:"epgChannelId,omitempty"`
}

// Key returns the stable catalog key for the channel.
func (c Channel) Key() string {
	return c.SourceID + ":" + c.ID
}

// Identity returns the lookup identity referencing the channel by its
// primary id.
func (c Channel) Identity() ChannelIdentity {
	return ChannelIdentity{SourceID: c.SourceID, ItemID: c.ID}
}

// ChannelIdentity addresses a channel in the catalog. ItemID may be either
// the channel's internal id or its provider stream id; lookups try both,
// id first. Favorites and history records reference channels this way
// because providers expose one or the other depending on type.
type ChannelIdentity struct {
	SourceID string `json:"sourceId"`
	ItemID   string `json:"itemId"`
}

// HiddenItem marks a category or channel excluded from catalog iteration
// for one source.
type HiddenItem struct {
	SourceID string `json:"sourceId"`
	ItemType string `json:"itemType"` // "category" | "channel"
	ItemID   string `json:"itemId"`
}

const (
	HiddenItemTypeCategory = "category"
	HiddenItemTypeChannel  = "channel"
)
