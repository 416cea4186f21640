package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/cache"
	"github.com/dmitrymomot/assetflow/pkg/ingest"
	"github.com/dmitrymomot/assetflow/pkg/lifecycle"
	"github.com/dmitrymomot/assetflow/pkg/logger"
)

// Header names.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

const (
	// DefaultMultipartOverhead is the allowance for multipart boundaries,
	// part headers and small extra fields on top of the policy size limit.
	DefaultMultipartOverhead int64 = 64 << 10

	// DefaultIdempotencyTTL is how long a successful upload is replayed.
	DefaultIdempotencyTTL = 24 * time.Hour

	maxIdempotencyKeyLength = 255
)

// Handler serves the upload API.
type Handler struct {
	pipeline    *ingest.Pipeline
	lifecycle   *lifecycle.Manager
	slots       Slots
	ledger      Ledger
	idempotency *cache.Loader[Response]
	logger      *slog.Logger
	idemTTL     time.Duration
	overhead    int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithIdempotency enables Idempotency-Key handling on POST /uploads. A
// successful upload is cached for ttl and replayed without a second store
// write. Zero ttl selects DefaultIdempotencyTTL.
func WithIdempotency(c cache.Cache[Response], ttl time.Duration) Option {
	return func(h *Handler) {
		if c == nil {
			return
		}
		h.idempotency = cache.NewLoader(c)
		if ttl > 0 {
			h.idemTTL = ttl
		}
	}
}

// WithSlots enables the slot routes. Uploads bound to a slot go through the
// lifecycle manager, which deletes the object the slot held before.
func WithSlots(m *lifecycle.Manager, slots Slots) Option {
	return func(h *Handler) {
		if m != nil && slots != nil {
			h.lifecycle = m
			h.slots = slots
		}
	}
}

// WithMultipartOverhead sets the allowance added to the policy size limit
// before a request is rejected by its Content-Length alone.
func WithMultipartOverhead(n int64) Option {
	return func(h *Handler) {
		if n >= 0 {
			h.overhead = n
		}
	}
}

// NewHandler creates the upload handler.
func NewHandler(pipeline *ingest.Pipeline, opts ...Option) *Handler {
	h := &Handler{
		pipeline: pipeline,
		logger:   logger.NewNope(),
		idemTTL:  DefaultIdempotencyTTL,
		overhead: DefaultMultipartOverhead,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the upload API router:
//
//	POST   /uploads/{category}
//	DELETE /uploads/{category}/{key}
//	GET    /owners/{owner}/slots/{slot}
//	PUT    /owners/{owner}/slots/{slot}/{category}
//	DELETE /owners/{owner}/slots/{slot}
//
// The release route is registered only when WithLedger was given, slot
// routes only when WithSlots was given.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/uploads/{category}", h.Upload)
	if h.ledger != nil {
		r.Delete("/uploads/{category}/{key}", h.ReleaseUpload)
	}
	if h.slots != nil {
		r.Route("/owners/{owner}/slots/{slot}", func(r chi.Router) {
			r.Get("/", h.GetSlot)
			r.Put("/{category}", h.BindSlot)
			r.Delete("/", h.ReleaseSlot)
		})
	}
	return r
}

// Upload stores one multipart file for the category in the URL and returns
// its URL. Nothing is bound to a record. With a ledger the object is
// recorded before the URL is returned; if that fails the request fails and
// the unrecorded object is left for the sweep.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	policy, ctx, ok := h.policy(w, r)
	if !ok {
		return
	}

	idemKey, err := idempotencyKey(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ingestOnce := func(ctx context.Context) (Response, time.Duration, error) {
		obj, err := h.ingest(ctx, w, r, policy)
		if err != nil {
			return Response{}, 0, err
		}
		if h.ledger != nil {
			if err := h.ledger.RecordUpload(ctx, obj); err != nil {
				return Response{}, 0, fmt.Errorf("%w: %w", ErrRecordUpload, err)
			}
		}
		return newResponse(obj, policy), h.idemTTL, nil
	}

	if idemKey == "" || h.idempotency == nil {
		resp, _, err := ingestOnce(ctx)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
		return
	}

	resp, replayed, err := h.idempotency.GetOrSet(ctx, string(policy.Category)+":"+idemKey, ingestOnce)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if replayed {
		w.Header().Set(HeaderReplayed, "true")
		h.logger.InfoContext(ctx, "upload replayed",
			slog.String("idempotency_key", idemKey),
			slog.String("object_key", resp.ObjectKey),
		)
	}
	resp.URLField = policy.URLField
	writeJSON(w, http.StatusCreated, resp)
}

// policy resolves the {category} URL parameter and tags the request context
// with it for logging.
func (h *Handler) policy(w http.ResponseWriter, r *http.Request) (asset.Policy, context.Context, bool) {
	c := asset.Category(chi.URLParam(r, "category"))
	p, err := h.pipeline.Registry().Policy(c)
	if err != nil {
		h.writeError(w, r, err)
		return asset.Policy{}, nil, false
	}
	return p, logger.WithValue(r.Context(), "category", string(c)), true
}

func idempotencyKey(r *http.Request) (string, error) {
	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if len(key) > maxIdempotencyKeyLength {
		return "", ErrInvalidIdempotency
	}
	for _, c := range key {
		if c < 0x21 || c > 0x7e {
			return "", ErrInvalidIdempotency
		}
	}
	return key, nil
}

// maxBytesError reports whether err came from http.MaxBytesReader.
func maxBytesError(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
