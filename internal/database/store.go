package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"telecast/models"
)

var ErrNotFound = errors.New("record not found")

// Store provides typed access to the persisted tables.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Sources returns all configured sources in insertion order.
func (s *Store) Sources(ctx context.Context) ([]models.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, enabled, name, host, username, password
		 FROM sources ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []models.Source
	for rows.Next() {
		var src models.Source
		var enabled int
		if err := rows.Scan(&src.ID, &src.Type, &enabled, &src.Name,
			&src.Host, &src.Username, &src.Password); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.Enabled = enabled != 0
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// InsertSource stores a new source.
func (s *Store) InsertSource(ctx context.Context, src models.Source) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (id, type, enabled, name, host, username, password)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.Type, boolToInt(src.Enabled), src.Name, src.Host, src.Username, src.Password)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

// UpdateSource replaces the stored fields of an existing source.
func (s *Store) UpdateSource(ctx context.Context, src models.Source) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sources SET type = ?, enabled = ?, name = ?, host = ?, username = ?, password = ?
		 WHERE id = ?`,
		src.Type, boolToInt(src.Enabled), src.Name, src.Host, src.Username, src.Password, src.ID)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	return affectedOrNotFound(res)
}

// DeleteSource removes a source and its per-source records.
func (s *Store) DeleteSource(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete source: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	if err := affectedOrNotFound(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE source_id = ?`, id); err != nil {
		return fmt.Errorf("delete source favorites: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM hidden_items WHERE source_id = ?`, id); err != nil {
		return fmt.Errorf("delete source hidden items: %w", err)
	}
	return tx.Commit()
}

// Favorites returns favorite entries, optionally filtered by item type,
// oldest first so display order is stable across reloads.
func (s *Store) Favorites(ctx context.Context, itemType string) ([]models.FavoriteEntry, error) {
	query := `SELECT id, source_id, item_id, item_type, added_at FROM favorites`
	args := []any{}
	if itemType != "" {
		query += ` WHERE item_type = ?`
		args = append(args, itemType)
	}
	query += ` ORDER BY added_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer rows.Close()

	var favorites []models.FavoriteEntry
	for rows.Next() {
		var fav models.FavoriteEntry
		var addedAt time.Time
		if err := rows.Scan(&fav.ID, &fav.SourceID, &fav.ItemID, &fav.ItemType, &addedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		fav.AddedAt = addedAt.UTC()
		favorites = append(favorites, fav)
	}
	return favorites, rows.Err()
}

// InsertFavorite stores a favorite entry. Saving the same item twice is
// not an error; the original entry wins.
func (s *Store) InsertFavorite(ctx context.Context, fav models.FavoriteEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO favorites (id, source_id, item_id, item_type, added_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (source_id, item_id, item_type) DO NOTHING`,
		fav.ID, fav.SourceID, fav.ItemID, fav.ItemType, fav.AddedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

// DeleteFavorite removes a favorite entry by id.
func (s *Store) DeleteFavorite(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return affectedOrNotFound(res)
}

// HiddenItems returns the hidden categories and channels for one source.
func (s *Store) HiddenItems(ctx context.Context, sourceID string) ([]models.HiddenItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_id, item_type, item_id FROM hidden_items WHERE source_id = ?`,
		sourceID)
	if err != nil {
		return nil, fmt.Errorf("query hidden items: %w", err)
	}
	defer rows.Close()

	var items []models.HiddenItem
	for rows.Next() {
		var item models.HiddenItem
		if err := rows.Scan(&item.SourceID, &item.ItemType, &item.ItemID); err != nil {
			return nil, fmt.Errorf("scan hidden item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// InsertHiddenItem marks a category or channel as hidden.
func (s *Store) InsertHiddenItem(ctx context.Context, item models.HiddenItem) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hidden_items (source_id, item_type, item_id)
		 VALUES (?, ?, ?)
		 ON CONFLICT (source_id, item_type, item_id) DO NOTHING`,
		item.SourceID, item.ItemType, item.ItemID)
	if err != nil {
		return fmt.Errorf("insert hidden item: %w", err)
	}
	return nil
}

// DeleteHiddenItem removes a hidden-item marker.
func (s *Store) DeleteHiddenItem(ctx context.Context, item models.HiddenItem) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM hidden_items WHERE source_id = ? AND item_type = ? AND item_id = ?`,
		item.SourceID, item.ItemType, item.ItemID)
	if err != nil {
		return fmt.Errorf("delete hidden item: %w", err)
	}
	return affectedOrNotFound(res)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
