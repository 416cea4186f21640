// Package ingest implements the single upload pipeline shared by every asset
// category.
//
// A Pipeline resolves the category policy, validates the upload metadata,
// and only then streams the body to the store. Rejections never reach the
// store. The result is an [asset.Outcome]: a stored object or a classified
// rejection.
//
//	pipeline := ingest.New(asset.DefaultRegistry(), store,
//		ingest.WithLogger(log),
//		ingest.WithMetrics(m),
//	)
//
//	outcome := pipeline.Ingest(ctx, asset.Upload{
//		Category: asset.CategoryIcon,
//		Body:     part,
//		Filename: part.FileName(),
//		MimeType: part.Header.Get("Content-Type"),
//		Size:     asset.SizeUnknown,
//	})
//	if !outcome.OK() {
//		// map outcome.Kind() to a response
//	}
//
// Zero-byte streams are rejected as empty_payload even when the declared size
// was unknown, and bodies that grow past the policy limit while streaming are
// rejected as payload_too_large. If the request context is cancelled after
// the object was stored, the object is deleted again on a best-effort basis.
package ingest
