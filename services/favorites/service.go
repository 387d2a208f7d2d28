// Package favorites manages the user's saved channel references and
// reconciles them against the live catalog by cross-source identity
// matching.
package favorites

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"telecast/models"
)

var (
	ErrSourceIDRequired = errors.New("source id is required")
	ErrItemIDRequired   = errors.New("item id is required")
)

// Store is the persistence collaborator owning favorite records. The
// reconciler never mutates it: favorites that fail to resolve stay stored.
type Store interface {
	Favorites(ctx context.Context, itemType string) ([]models.FavoriteEntry, error)
	InsertFavorite(ctx context.Context, fav models.FavoriteEntry) error
	DeleteFavorite(ctx context.Context, id string) error
}

// Catalog is the live channel snapshot favorites resolve against.
type Catalog interface {
	FindChannel(identity models.ChannelIdentity) (models.Channel, bool)
	Len() int
	LoadChannels(ctx context.Context) error
}

// Service lists, adds, removes and resolves favorite entries.
type Service struct {
	store   Store
	catalog Catalog
	now     func() time.Time
}

func NewService(store Store, catalog Catalog) *Service {
	return &Service{store: store, catalog: catalog, now: time.Now}
}

// List returns stored favorites, optionally filtered by item type.
func (s *Service) List(ctx context.Context, itemType string) ([]models.FavoriteEntry, error) {
	return s.store.Favorites(ctx, itemType)
}

// Add stores a new favorite reference.
func (s *Service) Add(ctx context.Context, sourceID, itemID, itemType string) (models.FavoriteEntry, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return models.FavoriteEntry{}, ErrSourceIDRequired
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return models.FavoriteEntry{}, ErrItemIDRequired
	}
	if strings.TrimSpace(itemType) == "" {
		itemType = models.FavoriteItemTypeChannel
	}

	fav := models.FavoriteEntry{
		ID:       uuid.NewString(),
		SourceID: sourceID,
		ItemID:   itemID,
		ItemType: itemType,
		AddedAt:  s.now().UTC(),
	}
	if err := s.store.InsertFavorite(ctx, fav); err != nil {
		return models.FavoriteEntry{}, err
	}
	return fav, nil
}

// Remove deletes a favorite entry by id.
func (s *Service) Remove(ctx context.Context, id string) error {
	return s.store.DeleteFavorite(ctx, id)
}

// Resolved loads the stored channel favorites and resolves them against
// the current catalog snapshot. When the catalog has not been loaded yet
// a load is triggered first, so a fresh session does not report every
// favorite as unresolved.
func (s *Service) Resolved(ctx context.Context) ([]models.ResolvedFavorite, error) {
	favorites, err := s.store.Favorites(ctx, models.FavoriteItemTypeChannel)
	if err != nil {
		return nil, err
	}

	if s.catalog.Len() == 0 {
		if err := s.catalog.LoadChannels(ctx); err != nil {
			var partial *models.PartialLoadError
			if !errors.As(err, &partial) {
				return nil, err
			}
			// Partial catalogs are still worth matching against.
			log.Printf("[favorites] resolving against partial catalog: %v", err)
		}
	}

	return Resolve(favorites, s.catalog), nil
}

// Resolve matches favorite entries against a catalog snapshot. Only
// entries with the channel item type participate; entries that fail to
// resolve are omitted rather than reported as errors, since catalogs
// legitimately lag favorites when a source is temporarily disabled.
// Output preserves the relative order of the matched input entries.
func Resolve(favorites []models.FavoriteEntry, cat Catalog) []models.ResolvedFavorite {
	resolved := make([]models.ResolvedFavorite, 0, len(favorites))
	for _, fav := range favorites {
		if fav.ItemType != models.FavoriteItemTypeChannel {
			continue
		}
		ch, ok := cat.FindChannel(models.ChannelIdentity{SourceID: fav.SourceID, ItemID: fav.ItemID})
		if !ok {
			continue
		}
		resolved = append(resolved, models.ResolvedFavorite{Favorite: fav, Channel: ch})
	}
	return resolved
}
