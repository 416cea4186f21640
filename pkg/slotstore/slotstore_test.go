package slotstore_test

import (
	"context"
	"io/fs"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/slotstore"
)

func TestMigrations(t *testing.T) {
	t.Parallel()

	names, err := fs.Glob(slotstore.Migrations(), "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	data, err := fs.ReadFile(slotstore.Migrations(), names[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "-- +goose Up")
	assert.Contains(t, string(data), "asset_slots")

	data, err = fs.ReadFile(slotstore.Migrations(), "00002_asset_uploads.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "PRIMARY KEY (category, object_key)")
}

func TestInvalidSlot(t *testing.T) {
	t.Parallel()

	// Validation happens before any database access.
	s := slotstore.New(nil)
	ctx := context.Background()
	obj := asset.StoredObject{Category: asset.CategoryIcon, Key: "k", URL: "https://store.test/services/k.png"}

	tests := []struct {
		name  string
		owner uuid.UUID
		slot  string
	}{
		{"nil owner", uuid.Nil, "icon"},
		{"empty slot", uuid.New(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := s.Commit(tt.owner, tt.slot)(ctx, obj)
			assert.ErrorIs(t, err, slotstore.ErrInvalidSlot)

			_, _, err = s.Clear(tt.owner, tt.slot)(ctx)
			assert.ErrorIs(t, err, slotstore.ErrInvalidSlot)

			_, err = s.Get(ctx, tt.owner, tt.slot)
			assert.ErrorIs(t, err, slotstore.ErrInvalidSlot)
		})
	}
}

func TestInvalidUpload(t *testing.T) {
	t.Parallel()

	s := slotstore.New(nil)
	ctx := context.Background()

	err := s.RecordUpload(ctx, asset.StoredObject{Category: asset.CategoryIcon})
	assert.ErrorIs(t, err, slotstore.ErrInvalidUpload)

	_, _, err = s.ReleaseUpload("", "k")(ctx)
	assert.ErrorIs(t, err, slotstore.ErrInvalidUpload)

	_, _, err = s.ReleaseUpload(asset.CategoryIcon, "")(ctx)
	assert.ErrorIs(t, err, slotstore.ErrInvalidUpload)
}
