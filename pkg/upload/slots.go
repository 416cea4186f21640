package upload

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/lifecycle"
	"github.com/dmitrymomot/assetflow/pkg/logger"
	"github.com/dmitrymomot/assetflow/pkg/slotstore"
)

// Slots is the record layer behind the slot routes. *slotstore.Store
// implements it.
type Slots interface {
	Commit(owner uuid.UUID, slot string) lifecycle.CommitFunc
	Clear(owner uuid.UUID, slot string) lifecycle.ClearFunc
	Get(ctx context.Context, owner uuid.UUID, slot string) (slotstore.Slot, error)
}

// SlotResponse is the body of GET /owners/{owner}/slots/{slot}.
type SlotResponse struct {
	UpdatedAt time.Time      `json:"updatedAt"`
	OwnerID   uuid.UUID      `json:"ownerId"`
	Category  asset.Category `json:"category"`
	Slot      string         `json:"slot"`
	URL       string         `json:"url"`
	ObjectKey string         `json:"objectKey"`
}

// GetSlot returns the object a slot currently references.
func (h *Handler) GetSlot(w http.ResponseWriter, r *http.Request) {
	owner, slot, ok := h.slotParams(w, r)
	if !ok {
		return
	}

	s, err := h.slots.Get(r.Context(), owner, slot)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SlotResponse{
		UpdatedAt: s.UpdatedAt,
		OwnerID:   s.OwnerID,
		Category:  s.Category,
		Slot:      s.Name,
		URL:       s.URL,
		ObjectKey: s.ObjectKey,
	})
}

// BindSlot uploads a file and makes it the slot's current object. The object
// the slot referenced before is deleted after the slot was updated.
func (h *Handler) BindSlot(w http.ResponseWriter, r *http.Request) {
	owner, slot, ok := h.slotParams(w, r)
	if !ok {
		return
	}
	policy, ctx, ok := h.policy(w, r)
	if !ok {
		return
	}

	u, err := h.readUpload(w, r, policy)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.lifecycle.Bind(ctx, u, h.slots.Commit(owner, slot))
	if err != nil {
		if maxBytesError(err) {
			err = asset.TooLarge(policy)
		}
		h.writeError(w, r, err)
		return
	}
	h.logCleanup(ctx, res)

	resp := newResponse(res.Object, policy)
	resp.Superseded = res.Superseded.URL
	writeJSON(w, http.StatusOK, resp)
}

// ReleaseSlot empties a slot and deletes the object it referenced. The
// delete goes to the category the cleared row held.
func (h *Handler) ReleaseSlot(w http.ResponseWriter, r *http.Request) {
	owner, slot, ok := h.slotParams(w, r)
	if !ok {
		return
	}

	res, err := h.lifecycle.Release(r.Context(), h.slots.Clear(owner, slot))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if res.Category == "" {
		h.writeError(w, r, slotstore.ErrNotFound)
		return
	}
	h.logCleanup(logger.WithValue(r.Context(), "category", string(res.Category)), res)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) slotParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	owner, err := uuid.Parse(chi.URLParam(r, "owner"))
	if err != nil {
		h.writeError(w, r, ErrInvalidOwner)
		return uuid.Nil, "", false
	}
	return owner, chi.URLParam(r, "slot"), true
}

// logCleanup reports a superseded object that could not be deleted. The
// request still succeeds; the sweep removes the object later.
func (h *Handler) logCleanup(ctx context.Context, res *lifecycle.Result) {
	if res == nil || res.CleanupErr == nil {
		return
	}
	h.logger.WarnContext(ctx, "superseded object not deleted",
		slog.String("object_key", res.Superseded.Key),
		slog.Any("error", res.CleanupErr),
	)
}
