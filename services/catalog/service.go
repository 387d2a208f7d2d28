// Package catalog aggregates per-source channel lists into one
// addressable collection with cross-source identity lookup.
package catalog

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"telecast/internal/events"
	"telecast/models"
)

// Registry provides the configured sources the catalog loads from.
type Registry interface {
	LoadSources(ctx context.Context) ([]models.Source, error)
	EnabledSources(filterType string) []models.Source
	Loaded() bool
}

// ChannelFetcher retrieves the normalized channel list for one source.
type ChannelFetcher interface {
	Channels(ctx context.Context, src models.Source) ([]models.Channel, error)
}

// HiddenStore persists the hidden categories and channels per source.
type HiddenStore interface {
	HiddenItems(ctx context.Context, sourceID string) ([]models.HiddenItem, error)
	InsertHiddenItem(ctx context.Context, item models.HiddenItem) error
	DeleteHiddenItem(ctx context.Context, item models.HiddenItem) error
}

// ViewOptions filters an ordered view without mutating the catalog.
type ViewOptions struct {
	Search        string // case-insensitive substring match on name
	Group         string // exact group title match
	IncludeHidden bool
}

// Service is the in-memory channel catalog for the current session. The
// collection is rebuilt wholesale on every load; stale channel records
// never survive a reload.
type Service struct {
	registry Registry
	fetcher  ChannelFetcher
	hidden   HiddenStore
	bus      *events.Bus

	mu            sync.RWMutex
	channels      []models.Channel
	byID          map[models.ChannelIdentity]int
	byStreamID    map[models.ChannelIdentity]int
	hiddenSet     map[string]struct{}
	collapsed     map[string]struct{}
	version       uint64
	loading       bool
	lastFailedIDs []string
}

func NewService(registry Registry, fetcher ChannelFetcher, hidden HiddenStore, bus *events.Bus) *Service {
	return &Service{
		registry:   registry,
		fetcher:    fetcher,
		hidden:     hidden,
		bus:        bus,
		byID:       make(map[models.ChannelIdentity]int),
		byStreamID: make(map[models.ChannelIdentity]int),
		hiddenSet:  make(map[string]struct{}),
		collapsed:  make(map[string]struct{}),
	}
}

// LoadChannels rebuilds the catalog from every enabled source. Sources are
// loaded first when the registry is still empty. Per-source fetch failures
// are logged and collected; a failure on one source never aborts the
// others. The in-memory collection is swapped atomically once all sources
// have been attempted. A duplicate call while a load is in progress
// returns immediately without touching shared state.
func (s *Service) LoadChannels(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		log.Println("[catalog] load already in progress, skipping duplicate request")
		return nil
	}
	s.loading = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	if !s.registry.Loaded() {
		if _, err := s.registry.LoadSources(ctx); err != nil {
			// Registry unreachable: catalog state stays as-is.
			return err
		}
	}

	enabled := s.registry.EnabledSources("")

	var (
		next      []models.Channel
		hiddenSet = make(map[string]struct{})
		failed    []string
	)

	for _, src := range enabled {
		channels, err := s.fetcher.Channels(ctx, src)
		if err != nil {
			log.Printf("[catalog] failed to load channels from %s: %v", src.Name, err)
			failed = append(failed, src.ID)
			continue
		}
		next = append(next, channels...)

		items, err := s.hidden.HiddenItems(ctx, src.ID)
		if err != nil {
			log.Printf("[catalog] failed to load hidden items for %s: %v", src.Name, err)
			continue
		}
		for _, item := range items {
			hiddenSet[hiddenKey(item.SourceID, item.ItemType, item.ItemID)] = struct{}{}
		}
	}

	byID := make(map[models.ChannelIdentity]int, len(next))
	byStreamID := make(map[models.ChannelIdentity]int, len(next))
	for i, ch := range next {
		byID[models.ChannelIdentity{SourceID: ch.SourceID, ItemID: ch.ID}] = i
		if ch.StreamID != "" {
			byStreamID[models.ChannelIdentity{SourceID: ch.SourceID, ItemID: ch.StreamID}] = i
		}
	}

	s.mu.Lock()
	s.channels = next
	s.byID = byID
	s.byStreamID = byStreamID
	s.hiddenSet = hiddenSet
	s.lastFailedIDs = failed
	s.version++
	version := s.version
	s.mu.Unlock()

	log.Printf("[catalog] load complete: %d channels from %d source(s), %d failed",
		len(next), len(enabled)-len(failed), len(failed))

	if s.bus != nil {
		s.bus.Publish(events.CatalogReloaded, version)
	}

	if len(failed) > 0 {
		return &models.PartialLoadError{FailedSourceIDs: failed}
	}
	return nil
}

// FindChannel resolves an identity against the catalog, trying the primary
// id index first and falling back to the stream-id index. Favorites and
// history records may reference either key.
func (s *Service) FindChannel(identity models.ChannelIdentity) (models.Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i, ok := s.byID[identity]; ok {
		return s.channels[i], true
	}
	if i, ok := s.byStreamID[identity]; ok {
		return s.channels[i], true
	}
	return models.Channel{}, false
}

// OrderedView returns channels in stable load order (source iteration
// order, then per-source list order), filtered by the options. The
// underlying collection is never mutated.
func (s *Service) OrderedView(opts ViewOptions) []models.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(opts.Search))

	out := make([]models.Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		if !opts.IncludeHidden && s.isHiddenLocked(ch) {
			continue
		}
		if opts.Group != "" && ch.GroupTitle != opts.Group {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(ch.Name), search) {
			continue
		}
		out = append(out, ch)
	}
	return out
}

// Groups returns the distinct group titles in load order, excluding groups
// whose category is hidden.
func (s *Service) Groups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var groups []string
	for _, ch := range s.channels {
		if ch.GroupTitle == "" {
			continue
		}
		if _, ok := s.hiddenSet[hiddenKey(ch.SourceID, models.HiddenItemTypeCategory, ch.CategoryID)]; ok {
			continue
		}
		if _, ok := seen[ch.GroupTitle]; ok {
			continue
		}
		seen[ch.GroupTitle] = struct{}{}
		groups = append(groups, ch.GroupTitle)
	}
	return groups
}

// Channels returns a copy of the full channel collection in load order,
// hidden entries included. EPG refreshes cover hidden channels too.
func (s *Service) Channels() []models.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

// Len returns the number of channels in the current snapshot.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channels)
}

// Version returns the monotonically increasing catalog version stamp. It
// advances on every completed load.
func (s *Service) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// LastFailedSourceIDs reports which sources failed during the most recent
// load, for the diagnostic indicator.
func (s *Service) LastFailedSourceIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.lastFailedIDs))
	copy(out, s.lastFailedIDs)
	return out
}

// HideItem marks a category or channel hidden, both persisted and in the
// live hidden set.
func (s *Service) HideItem(ctx context.Context, item models.HiddenItem) error {
	if err := s.hidden.InsertHiddenItem(ctx, item); err != nil {
		return err
	}
	s.mu.Lock()
	s.hiddenSet[hiddenKey(item.SourceID, item.ItemType, item.ItemID)] = struct{}{}
	s.mu.Unlock()
	return nil
}

// UnhideItem removes a hidden-item marker.
func (s *Service) UnhideItem(ctx context.Context, item models.HiddenItem) error {
	if err := s.hidden.DeleteHiddenItem(ctx, item); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.hiddenSet, hiddenKey(item.SourceID, item.ItemType, item.ItemID))
	s.mu.Unlock()
	return nil
}

// HiddenItemsFor lists the hidden items recorded for one source.
func (s *Service) HiddenItemsFor(ctx context.Context, sourceID string) ([]models.HiddenItem, error) {
	return s.hidden.HiddenItems(ctx, sourceID)
}

// ToggleGroupCollapse flips the collapsed state of a group title and
// returns the new state.
func (s *Service) ToggleGroupCollapse(groupTitle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collapsed[groupTitle]; ok {
		delete(s.collapsed, groupTitle)
		return false
	}
	s.collapsed[groupTitle] = struct{}{}
	return true
}

// IsGroupCollapsed reports whether a group title is currently collapsed.
func (s *Service) IsGroupCollapsed(groupTitle string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collapsed[groupTitle]
	return ok
}

// CollapsedGroups returns the collapsed group titles, sorted for stable
// output.
func (s *Service) CollapsedGroups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.collapsed))
	for g := range s.collapsed {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

func (s *Service) isHiddenLocked(ch models.Channel) bool {
	if _, ok := s.hiddenSet[hiddenKey(ch.SourceID, models.HiddenItemTypeCategory, ch.CategoryID)]; ok && ch.CategoryID != "" {
		return true
	}
	if _, ok := s.hiddenSet[hiddenKey(ch.SourceID, models.HiddenItemTypeChannel, ch.ID)]; ok {
		return true
	}
	if ch.StreamID != "" {
		if _, ok := s.hiddenSet[hiddenKey(ch.SourceID, models.HiddenItemTypeChannel, ch.StreamID)]; ok {
			return true
		}
	}
	return false
}

func hiddenKey(sourceID, itemType, itemID string) string {
	return sourceID + ":" + itemType + ":" + itemID
}
