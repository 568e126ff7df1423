package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/bilgisen/tldrit/internal/models"
	"github.com/bilgisen/tldrit/migrations"
)

// ErrNotFound is returned when an item or a user's entry for it is absent.
var ErrNotFound = errors.New("not found")

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Storage persists news items and per-user flags in SQLite or PostgreSQL.
// Queries are written with ? placeholders and rebound for the driver.
type Storage struct {
	db     *sqlx.DB
	driver string
	now    func() time.Time
}

// NewStorage connects to the database and applies pending migrations.
func NewStorage(driver, dsn string) (*Storage, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	switch driver {
	case "sqlite":
		// One writer at a time avoids SQLITE_BUSY between the request path
		// and background upserts.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	case "postgres":
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := migrations.Run(db.DB, driver); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{
		db:     db,
		driver: driver,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}, nil
}

// Close closes the underlying connection pool.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertNewsItems inserts items or refreshes their feed fields. A stored TLDR
// or audio URL survives the update.
func (s *Storage) UpsertNewsItems(ctx context.Context, items []models.NewsItem) error {
	if len(items) == 0 {
		return nil
	}

	query := s.db.Rebind(`
		INSERT INTO news_items
			(item_key, title, source_url, category, summary, image_url, published_at, tldr, audio_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, '', '', ?, ?)
		ON CONFLICT (item_key) DO UPDATE SET
			title = excluded.title,
			source_url = excluded.source_url,
			category = excluded.category,
			summary = excluded.summary,
			image_url = excluded.image_url,
			published_at = excluded.published_at,
			updated_at = excluded.updated_at`)

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		now := s.now()
		for _, item := range items {
			published := item.PublishedTime()
			if published.IsZero() {
				published = now
			}
			_, err := tx.ExecContext(ctx, query,
				item.Key, item.Title, item.SourceURL, item.Category, item.Summary, item.ImageURL,
				published.UTC(), now, now,
			)
			if err != nil {
				return fmt.Errorf("upsert item %s: %w", item.Key, err)
			}
		}
		return nil
	})
}

// GetItem returns the stored item for key.
func (s *Storage) GetItem(ctx context.Context, key string) (*models.StoredItem, error) {
	var item models.StoredItem
	err := s.db.GetContext(ctx, &item, s.db.Rebind(`SELECT * FROM news_items WHERE item_key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", key, err)
	}
	return &item, nil
}

// ListNews returns one page of stored items, newest first. An empty category
// lists everything. Page numbers start at 1.
func (s *Storage) ListNews(ctx context.Context, category string, page, pageSize int) ([]models.StoredItem, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	query := `SELECT * FROM news_items`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY published_at DESC, item_key ASC LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	items := []models.StoredItem{}
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	return items, nil
}

// DeleteItem removes an item together with every user's flags for it.
func (s *Storage) DeleteItem(ctx context.Context, key string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM news_items WHERE item_key = ?`), key)
		if err != nil {
			return fmt.Errorf("delete item %s: %w", key, err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM user_items WHERE item_key = ?`), key); err != nil {
			return fmt.Errorf("delete user entries for %s: %w", key, err)
		}
		return nil
	})
}

// SaveTLDR stores the AI summary of an item.
func (s *Storage) SaveTLDR(ctx context.Context, key, tldr string) error {
	return s.updateColumn(ctx, "tldr", key, tldr)
}

// SaveAudioURL stores the public URL of an item's narration.
func (s *Storage) SaveAudioURL(ctx context.Context, key, url string) error {
	return s.updateColumn(ctx, "audio_url", key, url)
}

// updateColumn is only called with constant column names.
func (s *Storage) updateColumn(ctx context.Context, column, key, value string) error {
	query := s.db.Rebind(fmt.Sprintf(`UPDATE news_items SET %s = ?, updated_at = ? WHERE item_key = ?`, column))
	res, err := s.db.ExecContext(ctx, query, value, s.now(), key)
	if err != nil {
		return fmt.Errorf("update %s of %s: %w", column, key, err)
	}
	return requireAffected(res)
}

// SetBookmark sets or clears the bookmark flag of an item for a user.
func (s *Storage) SetBookmark(ctx context.Context, userID, key string, value bool) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireItem(ctx, tx, key); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO user_items (user_id, item_key, bookmarked, in_playlist, playlist_position, updated_at)
			VALUES (?, ?, ?, ?, 0, ?)
			ON CONFLICT (user_id, item_key) DO UPDATE SET
				bookmarked = excluded.bookmarked,
				updated_at = excluded.updated_at`),
			userID, key, value, false, s.now(),
		)
		if err != nil {
			return fmt.Errorf("set bookmark: %w", err)
		}
		return nil
	})
}

// SetPlaylist adds an item to the end of a user's playlist or removes it.
// Adding an item that is already queued keeps its position.
func (s *Storage) SetPlaylist(ctx context.Context, userID, key string, value bool) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireItem(ctx, tx, key); err != nil {
			return err
		}

		var state models.UserItemState
		err := tx.GetContext(ctx, &state,
			tx.Rebind(`SELECT * FROM user_items WHERE user_id = ? AND item_key = ?`), userID, key)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("get user entry: %w", err)
		}
		if state.InPlaylist == value {
			return nil
		}

		position := 0
		if value {
			err := tx.GetContext(ctx, &position, tx.Rebind(`
				SELECT COALESCE(MAX(playlist_position), 0) FROM user_items
				WHERE user_id = ? AND in_playlist = ?`), userID, true)
			if err != nil {
				return fmt.Errorf("get playlist tail: %w", err)
			}
			position++
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO user_items (user_id, item_key, bookmarked, in_playlist, playlist_position, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, item_key) DO UPDATE SET
				in_playlist = excluded.in_playlist,
				playlist_position = excluded.playlist_position,
				updated_at = excluded.updated_at`),
			userID, key, false, value, position, s.now(),
		)
		if err != nil {
			return fmt.Errorf("set playlist: %w", err)
		}
		return nil
	})
}

// ListBookmarks returns a user's bookmarked items, most recently changed first.
func (s *Storage) ListBookmarks(ctx context.Context, userID string) ([]models.UserItem, error) {
	return s.listUserItems(ctx, userID, "u.bookmarked = ?", "u.updated_at DESC, n.item_key ASC")
}

// ListPlaylist returns a user's playlist in play order.
func (s *Storage) ListPlaylist(ctx context.Context, userID string) ([]models.UserItem, error) {
	return s.listUserItems(ctx, userID, "u.in_playlist = ?", "u.playlist_position ASC")
}

func (s *Storage) listUserItems(ctx context.Context, userID, filter, order string) ([]models.UserItem, error) {
	query := fmt.Sprintf(`
		SELECT n.*, u.bookmarked, u.in_playlist, u.playlist_position
		FROM user_items u
		JOIN news_items n ON n.item_key = u.item_key
		WHERE u.user_id = ? AND %s
		ORDER BY %s`, filter, order)

	items := []models.UserItem{}
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), userID, true); err != nil {
		return nil, fmt.Errorf("list user items: %w", err)
	}
	return items, nil
}

// ReorderPlaylist assigns positions 1..n to keys in the given order. Every key
// must already be in the user's playlist; queued items not named keep their
// relative order after the named ones.
func (s *Storage) ReorderPlaylist(ctx context.Context, userID string, keys []string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var current []string
		err := tx.SelectContext(ctx, &current, tx.Rebind(`
			SELECT item_key FROM user_items
			WHERE user_id = ? AND in_playlist = ?
			ORDER BY playlist_position ASC`), userID, true)
		if err != nil {
			return fmt.Errorf("get playlist: %w", err)
		}

		queued := make(map[string]bool, len(current))
		for _, k := range current {
			queued[k] = true
		}
		named := make(map[string]bool, len(keys))
		for _, k := range keys {
			if !queued[k] {
				return fmt.Errorf("playlist entry %s: %w", k, ErrNotFound)
			}
			named[k] = true
		}

		order := append([]string(nil), keys...)
		for _, k := range current {
			if !named[k] {
				order = append(order, k)
			}
		}

		query := tx.Rebind(`UPDATE user_items SET playlist_position = ?, updated_at = ? WHERE user_id = ? AND item_key = ?`)
		now := s.now()
		for i, k := range order {
			if _, err := tx.ExecContext(ctx, query, i+1, now, userID, k); err != nil {
				return fmt.Errorf("reorder %s: %w", k, err)
			}
		}
		return nil
	})
}

func (s *Storage) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func requireItem(ctx context.Context, tx *sqlx.Tx, key string) error {
	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM news_items WHERE item_key = ?`), key); err != nil {
		return fmt.Errorf("check item %s: %w", key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
