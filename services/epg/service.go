// Package epg is the session program cache: it fetches XMLTV guide data
// per source, indexes it by catalog channel identity and answers
// now-playing queries.
package epg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"telecast/config"
	"telecast/internal/events"
	"telecast/models"
)

// GuideFetcher retrieves the raw XMLTV document for one source.
type GuideFetcher interface {
	Guide(ctx context.Context, src models.Source) (io.ReadCloser, error)
}

// Catalog is the channel lookup surface the cache resolves identities
// against.
type Catalog interface {
	FindChannel(identity models.ChannelIdentity) (models.Channel, bool)
	Version() uint64
}

// SourceResolver supplies the credentials for guide fetches.
type SourceResolver interface {
	EnabledSources(filterType string) []models.Source
}

var ErrAllSourcesFailed = errors.New("EPG refresh failed for every source")

// Service holds EPG programs keyed by catalog channel key, plus the lazily
// rebuilt now-playing display index.
type Service struct {
	cfgManager *config.Manager
	fetcher    GuideFetcher
	catalog    Catalog
	registry   SourceResolver
	bus        *events.Bus

	mu          sync.RWMutex
	programs    map[string][]models.Program
	display     map[string]models.DisplayEntry
	lastUpdated time.Time
	lastError   string
	refreshing  bool
	displayGen  uint64
	now         func() time.Time

	wg conc.WaitGroup
}

func NewService(cfgManager *config.Manager, fetcher GuideFetcher, catalog Catalog, registry SourceResolver, bus *events.Bus) *Service {
	return &Service{
		cfgManager: cfgManager,
		fetcher:    fetcher,
		catalog:    catalog,
		registry:   registry,
		bus:        bus,
		programs:   make(map[string][]models.Program),
		display:    make(map[string]models.DisplayEntry),
		now:        time.Now,
	}
}

// LoadPrograms fetches guide data for the given channel set. The program
// collection is replaced wholesale on success; if every source fails the
// previous data is retained, since EPG is best-effort rather than
// hard-required. A refresh already in progress makes a duplicate call
// return immediately.
func (s *Service) LoadPrograms(ctx context.Context, channels []models.Channel) error {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		log.Println("[epg] refresh already in progress, skipping duplicate request")
		return nil
	}
	s.refreshing = true
	s.lastError = ""
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
	}()

	settings, err := s.cfgManager.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !settings.Live.EPG.Enabled {
		return errors.New("EPG is disabled")
	}

	// Group the channel set by source; only sources that actually carry
	// EPG-mapped channels are worth a guide fetch.
	bySource := make(map[string]map[string][]models.Channel) // sourceID -> epg id -> channels
	for _, ch := range channels {
		if ch.EPGChannelID == "" {
			continue
		}
		epgID := strings.ToLower(ch.EPGChannelID)
		if bySource[ch.SourceID] == nil {
			bySource[ch.SourceID] = make(map[string][]models.Channel)
		}
		bySource[ch.SourceID][epgID] = append(bySource[ch.SourceID][epgID], ch)
	}

	next := make(map[string][]models.Program)
	succeeded := 0
	attempted := 0

	for sourceID, epgMap := range bySource {
		src, ok := s.sourceFor(sourceID)
		if !ok {
			continue
		}
		attempted++

		if err := s.fetchSourceGuide(ctx, src, epgMap, next); err != nil {
			log.Printf("[epg] guide fetch failed for %s: %v", src.Name, err)
			s.mu.Lock()
			s.lastError = fmt.Sprintf("%s: %v", src.Name, err)
			s.mu.Unlock()
			continue
		}
		succeeded++
	}

	if attempted > 0 && succeeded == 0 {
		// Keep the previous schedule; stale EPG beats no EPG.
		return ErrAllSourcesFailed
	}

	retentionDays := settings.Live.EPG.RetentionDays
	if retentionDays <= 0 {
		retentionDays = 7
	}
	pruneAndSort(next, s.now(), retentionDays)

	s.mu.Lock()
	s.programs = next
	s.display = make(map[string]models.DisplayEntry)
	s.lastUpdated = s.now().UTC()
	lastUpdated := s.lastUpdated
	s.mu.Unlock()

	log.Printf("[epg] refresh complete: %d channel(s), %d program(s)",
		len(next), countPrograms(next))

	if s.bus != nil {
		s.bus.Publish(events.EPGRefreshed, lastUpdated)
	}
	return nil
}

func (s *Service) sourceFor(sourceID string) (models.Source, bool) {
	for _, src := range s.registry.EnabledSources("") {
		if src.ID == sourceID {
			return src, true
		}
	}
	return models.Source{}, false
}

// fetchSourceGuide fetches and parses one source's XMLTV document,
// appending programs for every catalog channel mapped to a guide channel.
func (s *Service) fetchSourceGuide(ctx context.Context, src models.Source, epgMap map[string][]models.Channel, out map[string][]models.Program) error {
	body, err := s.fetcher.Guide(ctx, src)
	if err != nil {
		return err
	}
	defer body.Close()

	return parseXMLTV(body, src.ID, epgMap, out)
}

// NowPlaying returns the program containing the current instant for the
// channel identified by key, or false for a schedule gap or an unknown
// channel.
func (s *Service) NowPlaying(key string) (models.Program, bool) {
	return s.NowPlayingAt(key, s.now())
}

// NowPlayingAt binary-searches the channel's time-sorted program sequence
// for the program whose half-open interval [start, end) contains t. At
// the exact boundary between two adjacent programs the later one wins.
func (s *Service) NowPlayingAt(key string, t time.Time) (models.Program, bool) {
	s.mu.RLock()
	programs := s.programs[key]
	s.mu.RUnlock()

	if len(programs) == 0 {
		return models.Program{}, false
	}

	// First program that has not yet ended.
	i := sort.Search(len(programs), func(i int) bool {
		return programs[i].End.After(t)
	})
	if i == len(programs) || !programs[i].Contains(t) {
		return models.Program{}, false
	}
	return programs[i], true
}

// NowNext returns the current and upcoming program for a channel key.
func (s *Service) NowNext(key string, t time.Time) models.NowPlaying {
	np := models.NowPlaying{ChannelKey: key}

	s.mu.RLock()
	programs := s.programs[key]
	s.mu.RUnlock()

	i := sort.Search(len(programs), func(i int) bool {
		return programs[i].End.After(t)
	})
	if i == len(programs) {
		return np
	}
	if programs[i].Contains(t) {
		current := programs[i]
		np.Current = &current
		if i+1 < len(programs) {
			next := programs[i+1]
			np.Next = &next
		}
		return np
	}
	// Gap in the schedule: the found program is the next one.
	next := programs[i]
	np.Next = &next
	return np
}

// Schedule returns the programs for a channel key overlapping [start, end).
func (s *Service) Schedule(key string, start, end time.Time) []models.Program {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Program
	for _, prog := range s.programs[key] {
		if prog.End.After(start) && prog.Start.Before(end) {
			out = append(out, prog)
		}
	}
	return out
}

// RefreshDisplayIndex recomputes now-playing display entries for a large
// list of visible channel identities on a background goroutine, in fixed
// size batches. Each run carries the catalog version observed at start;
// batch results are discarded once the catalog has moved on, so entries
// referencing a discarded catalog snapshot are never applied. Safe to
// invoke repeatedly with overlapping ranges; the last write per channel
// identity wins.
func (s *Service) RefreshDisplayIndex(identities []models.ChannelIdentity, batchSize int) {
	if batchSize <= 0 {
		batchSize = 50
	}

	stamp := s.catalog.Version()

	s.mu.Lock()
	s.displayGen++
	gen := s.displayGen
	s.mu.Unlock()

	ids := make([]models.ChannelIdentity, len(identities))
	copy(ids, identities)

	s.wg.Go(func() {
		s.rebuildDisplayIndex(ids, batchSize, stamp, gen)
	})
}

// WaitDisplayRefresh blocks until all in-flight display index batches have
// finished. Used on shutdown and in tests.
func (s *Service) WaitDisplayRefresh() {
	s.wg.Wait()
}

func (s *Service) rebuildDisplayIndex(identities []models.ChannelIdentity, batchSize int, stamp, gen uint64) {
	for start := 0; start < len(identities); start += batchSize {
		end := start + batchSize
		if end > len(identities) {
			end = len(identities)
		}

		batch := make(map[string]models.DisplayEntry, end-start)
		computedAt := s.now().UTC()
		for _, identity := range identities[start:end] {
			ch, ok := s.catalog.FindChannel(identity)
			if !ok {
				continue
			}
			entry := models.DisplayEntry{ChannelKey: ch.Key(), ComputedAt: computedAt}
			if prog, ok := s.NowPlayingAt(ch.Key(), computedAt); ok {
				entry.Title = prog.Title
				entry.Start = prog.Start
				entry.End = prog.End
			}
			batch[entry.ChannelKey] = entry
		}

		// A batch computed against a stale catalog must not be applied.
		if s.catalog.Version() != stamp {
			return
		}

		s.mu.Lock()
		if s.displayGen != gen && s.displayGen > gen {
			// A newer run owns the index now; let its writes win.
			s.mu.Unlock()
			return
		}
		for key, entry := range batch {
			s.display[key] = entry
		}
		s.mu.Unlock()

		runtime.Gosched()
	}
}

// DisplayEntry returns the cached display row for a channel key.
func (s *Service) DisplayEntry(key string) (models.DisplayEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.display[key]
	return entry, ok
}

// DisplayIndex returns a copy of the current display index.
func (s *Service) DisplayIndex() map[string]models.DisplayEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.DisplayEntry, len(s.display))
	for k, v := range s.display {
		out[k] = v
	}
	return out
}

// Status reports the cache state for the diagnostic indicator.
func (s *Service) Status() models.EPGStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	enabled := false
	if settings, err := s.cfgManager.Load(); err == nil {
		enabled = settings.Live.EPG.Enabled
	}

	status := models.EPGStatus{
		Enabled:      enabled,
		ChannelCount: len(s.programs),
		ProgramCount: countPrograms(s.programs),
		Refreshing:   s.refreshing,
		LastError:    s.lastError,
	}
	if !s.lastUpdated.IsZero() {
		lastRefresh := s.lastUpdated
		status.LastRefresh = &lastRefresh
	}
	return status
}

// SetClock overrides the time source. Test hook.
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func countPrograms(programs map[string][]models.Program) int {
	count := 0
	for _, progs := range programs {
		count += len(progs)
	}
	return count
}

// pruneAndSort orders each channel's programs by start time, drops entries
// outside the retention window and removes overlaps (the earlier program
// wins, matching source iteration order).
func pruneAndSort(programs map[string][]models.Program, now time.Time, retentionDays int) {
	cutoff := now.Add(-time.Duration(retentionDays) * 24 * time.Hour)
	futureLimit := now.Add(time.Duration(retentionDays) * 24 * time.Hour)

	for key, progs := range programs {
		sort.SliceStable(progs, func(i, j int) bool {
			return progs[i].Start.Before(progs[j].Start)
		})

		filtered := progs[:0]
		var lastEnd time.Time
		for _, prog := range progs {
			if !prog.End.After(cutoff) || !prog.Start.Before(futureLimit) {
				continue
			}
			if prog.Start.Before(lastEnd) {
				continue
			}
			filtered = append(filtered, prog)
			lastEnd = prog.End
		}

		if len(filtered) == 0 {
			delete(programs, key)
			continue
		}
		programs[key] = filtered
	}
}
