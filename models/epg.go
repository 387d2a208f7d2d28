package models

import (
	"time"
)

// Program represents a single program in a channel's EPG schedule.
// Programs for a channel are non-overlapping and sorted by start time;
// the interval is half-open, [Start, End).
type Program struct {
	ChannelID   string    `json:"channelId"`
	SourceID    string    `json:"sourceId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// Contains reports whether t falls inside the program's interval.
func (p Program) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// NowPlaying represents the current and next program for a channel.
type NowPlaying struct {
	ChannelKey string   `json:"channelKey"`
	Current    *Program `json:"current,omitempty"`
	Next       *Program `json:"next,omitempty"`
}

// DisplayEntry is one row of the lazily rebuilt now-playing display index.
type DisplayEntry struct {
	ChannelKey string    `json:"channelKey"`
	Title      string    `json:"title,omitempty"`
	Start      time.Time `json:"start,omitempty"`
	End        time.Time `json:"end,omitempty"`
	ComputedAt time.Time `json:"computedAt"`
}

// EPGStatus reports the state of the program cache.
type EPGStatus struct {
	Enabled      bool       `json:"enabled"`
	LastRefresh  *time.Time `json:"lastRefresh,omitempty"`
	LastError    string     `json:"lastError,omitempty"`
	ChannelCount int        `json:"channelCount"`
	ProgramCount int        `json:"programCount"`
	Refreshing   bool       `json:"refreshing"`
}
