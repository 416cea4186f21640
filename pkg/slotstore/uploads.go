package slotstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/lifecycle"
)

// RecordUpload remembers an object handed out by a stateless upload. The
// sweep treats it as referenced until the owning service releases it.
// Recording the same object twice is a no-op.
func (s *Store) RecordUpload(ctx context.Context, obj asset.StoredObject) error {
	if obj.Category == "" || obj.Key == "" {
		return fmt.Errorf("%w: category=%q key=%q", ErrInvalidUpload, obj.Category, obj.Key)
	}

	if _, err := s.db.Exec(ctx, `
		INSERT INTO asset_uploads (category, object_key, url)
		VALUES ($1, $2, $3)
		ON CONFLICT (category, object_key) DO NOTHING`,
		obj.Category, obj.Key, obj.URL,
	); err != nil {
		return fmt.Errorf("slotstore: record upload %s/%s: %w", obj.Category, obj.Key, err)
	}
	return nil
}

// ReleaseUpload returns a lifecycle.ClearFunc that forgets a recorded upload
// and returns its URL and category. An unknown upload returns "" for both.
func (s *Store) ReleaseUpload(c asset.Category, key string) lifecycle.ClearFunc {
	return func(ctx context.Context) (string, asset.Category, error) {
		if c == "" || key == "" {
			return "", "", fmt.Errorf("%w: category=%q key=%q", ErrInvalidUpload, c, key)
		}

		var (
			url      string
			category asset.Category
		)
		err := s.db.QueryRow(ctx, `
			DELETE FROM asset_uploads
			WHERE category = $1 AND object_key = $2
			RETURNING url, category`,
			c, key,
		).Scan(&url, &category)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return "", "", nil
		case err != nil:
			return "", "", fmt.Errorf("slotstore: release upload %s/%s: %w", c, key, err)
		}
		return url, category, nil
	}
}
