package upload

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/lifecycle"
	"github.com/dmitrymomot/assetflow/pkg/logger"
)

// Ledger records objects returned by POST /uploads so the sweep keeps them
// until the owning service releases them. *slotstore.Store implements it.
type Ledger interface {
	RecordUpload(ctx context.Context, obj asset.StoredObject) error
	ReleaseUpload(c asset.Category, key string) lifecycle.ClearFunc
}

// WithLedger records every stateless upload in l and registers
// DELETE /uploads/{category}/{key}, which forgets the record and deletes
// the object through m.
func WithLedger(m *lifecycle.Manager, l Ledger) Option {
	return func(h *Handler) {
		if m != nil && l != nil {
			h.lifecycle = m
			h.ledger = l
		}
	}
}

// ReleaseUpload forgets a recorded upload and deletes its object. Objects
// that were never recorded, or already released, return 404.
func (h *Handler) ReleaseUpload(w http.ResponseWriter, r *http.Request) {
	policy, ctx, ok := h.policy(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	if key == "" {
		h.writeError(w, r, ErrInvalidObjectKey)
		return
	}

	res, err := h.lifecycle.Release(ctx, h.ledger.ReleaseUpload(policy.Category, key))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if res.Category == "" {
		h.writeError(w, r, ErrUploadNotFound)
		return
	}
	h.logCleanup(logger.WithValue(ctx, "object_key", key), res)
	w.WriteHeader(http.StatusNoContent)
}
