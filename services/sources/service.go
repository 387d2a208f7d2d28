// Package sources holds the registry of configured upstream content
// sources. Everything that aggregates across providers starts here.
package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"telecast/models"
)

var (
	ErrNameRequired  = errors.New("source name is required")
	ErrHostRequired  = errors.New("source host is required")
	ErrUnknownType   = errors.New("unknown source type")
	ErrSourceMissing = errors.New("source not found")
)

// Store is the persistence collaborator the registry reads sources from.
type Store interface {
	Sources(ctx context.Context) ([]models.Source, error)
	InsertSource(ctx context.Context, src models.Source) error
	UpdateSource(ctx context.Context, src models.Source) error
	DeleteSource(ctx context.Context, id string) error
}

// Service loads and caches the configured sources for the session.
type Service struct {
	store Store

	mu      sync.RWMutex
	sources []models.Source
	loaded  bool
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// LoadSources fetches the configured sources from the store. On failure
// the previously loaded snapshot is kept; callers must treat registry
// state as unchanged, not cleared.
func (s *Service) LoadSources(ctx context.Context) ([]models.Source, error) {
	fetched, err := s.store.Sources(ctx)
	if err != nil {
		return nil, &models.TransportError{Op: "load sources", Err: err}
	}

	s.mu.Lock()
	s.sources = fetched
	s.loaded = true
	s.mu.Unlock()

	return s.snapshot(), nil
}

// EnabledSources returns the enabled sources from the loaded snapshot,
// optionally filtered by type. Pure filter, no I/O.
func (s *Service) EnabledSources(filterType string) []models.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Source
	for _, src := range s.sources {
		if !src.Enabled {
			continue
		}
		if filterType != "" && src.Type != filterType {
			continue
		}
		out = append(out, src)
	}
	return out
}

// All returns every loaded source regardless of enabled state.
func (s *Service) All() []models.Source {
	return s.snapshot()
}

// Loaded reports whether LoadSources has succeeded at least once.
func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Create validates and persists a new source, then refreshes the snapshot.
func (s *Service) Create(ctx context.Context, in models.SourceUpsert) (models.Source, error) {
	src, err := normalize(in)
	if err != nil {
		return models.Source{}, err
	}
	src.ID = uuid.NewString()

	if err := s.store.InsertSource(ctx, src); err != nil {
		return models.Source{}, fmt.Errorf("persist source: %w", err)
	}
	if _, err := s.LoadSources(ctx); err != nil {
		return models.Source{}, err
	}
	return src, nil
}

// Update replaces the stored fields of an existing source.
func (s *Service) Update(ctx context.Context, id string, in models.SourceUpsert) (models.Source, error) {
	existing, ok := s.byID(id)
	if !ok {
		return models.Source{}, ErrSourceMissing
	}

	src, err := normalize(in)
	if err != nil {
		return models.Source{}, err
	}
	src.ID = existing.ID
	if in.Enabled == nil {
		src.Enabled = existing.Enabled
	}
	if src.Password == "" {
		src.Password = existing.Password
	}

	if err := s.store.UpdateSource(ctx, src); err != nil {
		return models.Source{}, fmt.Errorf("persist source: %w", err)
	}
	if _, err := s.LoadSources(ctx); err != nil {
		return models.Source{}, err
	}
	return src, nil
}

// SetEnabled flips a source's enabled flag.
func (s *Service) SetEnabled(ctx context.Context, id string, enabled bool) (models.Source, error) {
	existing, ok := s.byID(id)
	if !ok {
		return models.Source{}, ErrSourceMissing
	}
	existing.Enabled = enabled

	if err := s.store.UpdateSource(ctx, existing); err != nil {
		return models.Source{}, fmt.Errorf("persist source: %w", err)
	}
	if _, err := s.LoadSources(ctx); err != nil {
		return models.Source{}, err
	}
	return existing, nil
}

// Delete removes a source.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, ok := s.byID(id); !ok {
		return ErrSourceMissing
	}
	if err := s.store.DeleteSource(ctx, id); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	_, err := s.LoadSources(ctx)
	return err
}

func (s *Service) byID(id string) (models.Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, src := range s.sources {
		if src.ID == id {
			return src, true
		}
	}
	return models.Source{}, false
}

func (s *Service) snapshot() []models.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Source, len(s.sources))
	copy(out, s.sources)
	return out
}

func normalize(in models.SourceUpsert) (models.Source, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Source{}, ErrNameRequired
	}
	host := strings.TrimRight(strings.TrimSpace(in.Host), "/")
	if host == "" {
		return models.Source{}, ErrHostRequired
	}

	srcType := strings.TrimSpace(in.Type)
	if srcType == "" {
		srcType = models.SourceTypeXtream
	}
	if srcType != models.SourceTypeXtream {
		return models.Source{}, fmt.Errorf("%w: %q", ErrUnknownType, srcType)
	}

	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}

	return models.Source{
		Type:     srcType,
		Enabled:  enabled,
		Name:     name,
		Host:     host,
		Username: strings.TrimSpace(in.Username),
		Password: in.Password,
	}, nil
}
