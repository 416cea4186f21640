package slotstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/db"
	"github.com/dmitrymomot/assetflow/pkg/lifecycle"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the schema migrations for db.Migrate.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// DB is implemented by *pgxpool.Pool.
type DB interface {
	db.TxBeginner
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Slot is one asset reference owned by a record, e.g. the icon of a service.
type Slot struct {
	UpdatedAt time.Time      `db:"updated_at"`
	Category  asset.Category `db:"category"`
	Name      string         `db:"slot"`
	URL       string         `db:"url"`
	ObjectKey string         `db:"object_key"`
	OwnerID   uuid.UUID      `db:"owner_id"`
}

// Store keeps slots in Postgres.
type Store struct {
	db DB
}

func New(conn DB) *Store {
	return &Store{db: conn}
}

// Commit returns a lifecycle.CommitFunc that points the slot at the new
// object and returns the URL it held before. Concurrent commits to the same
// slot are serialized on the row lock, so each sees the URL the previous one
// wrote.
func (s *Store) Commit(owner uuid.UUID, slot string) lifecycle.CommitFunc {
	return func(ctx context.Context, obj asset.StoredObject) (string, error) {
		if err := validSlot(owner, slot); err != nil {
			return "", err
		}

		var previous string
		err := db.WithTx(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
			// Make sure a row exists to lock; waits for a concurrent first insert.
			if _, err := tx.Exec(ctx, `
				INSERT INTO asset_slots (owner_id, slot, category)
				VALUES ($1, $2, $3)
				ON CONFLICT (owner_id, slot) DO NOTHING`,
				owner, slot, obj.Category,
			); err != nil {
				return err
			}

			var category asset.Category
			if err := tx.QueryRow(ctx, `
				SELECT category, url FROM asset_slots
				WHERE owner_id = $1 AND slot = $2
				FOR UPDATE`,
				owner, slot,
			).Scan(&category, &previous); err != nil {
				return err
			}
			if category != obj.Category {
				return fmt.Errorf("%w: slot %q holds %s, got %s", ErrCategoryMismatch, slot, category, obj.Category)
			}

			_, err := tx.Exec(ctx, `
				UPDATE asset_slots
				SET url = $3, object_key = $4, updated_at = now()
				WHERE owner_id = $1 AND slot = $2`,
				owner, slot, obj.URL, obj.Key,
			)
			return err
		})
		if err != nil {
			return "", fmt.Errorf("slotstore: commit %s/%s: %w", owner, slot, err)
		}
		return previous, nil
	}
}

// Clear returns a lifecycle.ClearFunc that removes the slot and returns the
// URL and category it held. Clearing a missing slot returns "" for both.
func (s *Store) Clear(owner uuid.UUID, slot string) lifecycle.ClearFunc {
	return func(ctx context.Context) (string, asset.Category, error) {
		if err := validSlot(owner, slot); err != nil {
			return "", "", err
		}

		var (
			previous string
			category asset.Category
		)
		err := s.db.QueryRow(ctx, `
			DELETE FROM asset_slots
			WHERE owner_id = $1 AND slot = $2
			RETURNING url, category`,
			owner, slot,
		).Scan(&previous, &category)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return "", "", nil
		case err != nil:
			return "", "", fmt.Errorf("slotstore: clear %s/%s: %w", owner, slot, err)
		}
		return previous, category, nil
	}
}

// Get returns a slot or ErrNotFound.
func (s *Store) Get(ctx context.Context, owner uuid.UUID, slot string) (Slot, error) {
	if err := validSlot(owner, slot); err != nil {
		return Slot{}, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT owner_id, slot, category, url, object_key, updated_at
		FROM asset_slots
		WHERE owner_id = $1 AND slot = $2`,
		owner, slot,
	)
	if err != nil {
		return Slot{}, fmt.Errorf("slotstore: get: %w", err)
	}

	out, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Slot])
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Slot{}, ErrNotFound
	case err != nil:
		return Slot{}, fmt.Errorf("slotstore: get: %w", err)
	}
	return out, nil
}

// Referenced reports which of keys are held by a slot of category c or
// recorded as an upload of category c. It implements sweep.Referencer.
func (s *Store) Referenced(ctx context.Context, c asset.Category, keys []string) (map[string]bool, error) {
	found := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT object_key FROM asset_slots
		WHERE category = $1 AND object_key = ANY($2)
		UNION
		SELECT object_key FROM asset_uploads
		WHERE category = $1 AND object_key = ANY($2)`,
		c, keys,
	)
	if err != nil {
		return nil, fmt.Errorf("slotstore: referenced: %w", err)
	}

	referenced, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("slotstore: referenced: %w", err)
	}
	for _, key := range referenced {
		found[key] = true
	}
	return found, nil
}

func validSlot(owner uuid.UUID, slot string) error {
	if owner == uuid.Nil || slot == "" {
		return fmt.Errorf("%w: owner=%s slot=%q", ErrInvalidSlot, owner, slot)
	}
	return nil
}
