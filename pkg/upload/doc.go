// Package upload serves the HTTP upload API on chi.
//
// POST /uploads/{category} accepts a multipart/form-data body whose file part
// is named after the category's form field (icon, document, thumbnail,
// video). The part is streamed through the ingest pipeline without
// buffering; requests whose Content-Length already exceeds the category
// limit are rejected before the body is read.
//
//	201 {"category":"icon","url":"https://cdn/services/0190...png","objectKey":"0190...","icon":"https://cdn/..."}
//
// Rejections use the asset error kind as the error code:
//
//	invalid_mime_type  415
//	payload_too_large  413
//	empty_payload      400
//	unknown_category   404
//	upload_failed      502, or 503 when the store failure is transient
//
// # Idempotency
//
// With WithIdempotency, a request carrying an Idempotency-Key header is
// stored once per category and key. Repeats within the TTL get the cached
// response with Idempotent-Replayed: true and never reach the store.
// Concurrent repeats wait for the first request. Failures are not cached.
//
// # Ledger
//
// With WithLedger, every object returned by POST /uploads is recorded before
// the response is sent, and the reconciliation sweep keeps recorded objects
// regardless of age. The owning service releases an object it no longer
// references:
//
//	DELETE /uploads/{category}/{key}   204, or 404 when not recorded
//
// A failed record answers 503 and the unrecorded object is left for the
// sweep.
//
// # Slots
//
// With WithSlots, files can be bound to named slots of an owner. Binding
// replaces the slot's object and deletes the old one after the slot was
// updated; releasing empties the slot and deletes its object.
//
//	PUT    /owners/{owner}/slots/{slot}/{category}
//	GET    /owners/{owner}/slots/{slot}
//	DELETE /owners/{owner}/slots/{slot}
package upload
