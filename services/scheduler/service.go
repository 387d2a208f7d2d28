// Package scheduler runs the periodic pull-based refreshes: catalog
// reloads and EPG guide refreshes on their configured intervals.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"telecast/config"
	"telecast/models"
)

const checkInterval = time.Minute

// catalogRefresher is the minimum catalog surface the scheduler needs.
type catalogRefresher interface {
	LoadChannels(ctx context.Context) error
}

// channelLister exposes the full channel snapshot the EPG refresh covers.
type channelLister interface {
	Channels() []models.Channel
}

// programLoader refreshes the EPG cache for a channel set.
type programLoader interface {
	LoadPrograms(ctx context.Context, channels []models.Channel) error
}

// Service manages the background refresh loop.
type Service struct {
	cfgManager *config.Manager
	catalog    catalogRefresher
	channels   channelLister
	epg        programLoader

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	lastCatalogRun time.Time
	lastEPGRun     time.Time
}

func NewService(cfgManager *config.Manager, catalog catalogRefresher, channels channelLister, epg programLoader) *Service {
	return &Service{
		cfgManager: cfgManager,
		catalog:    catalog,
		channels:   channels,
		epg:        epg,
	}
}

// Start begins the background loop. Calling Start on a running service is
// a no-op.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(loopCtx)

	log.Println("[scheduler] refresh loop started")
}

// Stop cancels the loop and waits for in-flight refreshes, bounded by ctx.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[scheduler] refresh loop stopped")
	case <-ctx.Done():
		log.Println("[scheduler] refresh loop stopped (timeout)")
	}
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	// Populate catalog and guide immediately on startup.
	s.runDueTasks(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runDueTasks(ctx)
		}
	}
}

func (s *Service) runDueTasks(ctx context.Context) {
	settings, err := s.cfgManager.Load()
	if err != nil {
		log.Printf("[scheduler] failed to load settings: %v", err)
		return
	}

	catalogInterval := time.Duration(settings.Live.CatalogRefreshIntervalMinutes) * time.Minute
	if s.due(s.lastCatalogRun, catalogInterval) {
		s.lastCatalogRun = time.Now()
		if err := s.catalog.LoadChannels(ctx); err != nil {
			// Partial loads already swapped in what succeeded.
			log.Printf("[scheduler] catalog refresh: %v", err)
		}
	}

	if !settings.Live.EPG.Enabled {
		return
	}
	epgInterval := time.Duration(settings.Live.EPG.RefreshIntervalMinutes) * time.Minute
	if s.due(s.lastEPGRun, epgInterval) {
		s.lastEPGRun = time.Now()
		if err := s.epg.LoadPrograms(ctx, s.channels.Channels()); err != nil {
			log.Printf("[scheduler] EPG refresh: %v", err)
		}
	}
}

func (s *Service) due(lastRun time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}
	return lastRun.IsZero() || time.Since(lastRun) >= interval
}
