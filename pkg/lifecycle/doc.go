// Package lifecycle keeps each record pointing at exactly one stored object.
//
// Binding a new upload follows a fixed order: the upload is ingested (one
// store Put), the caller's CommitFunc swaps the record and returns the URL it
// held before, and only then is the previous object deleted. A failed commit
// never deletes anything; the freshly stored object is counted as orphaned and
// left to the reconciliation sweep.
//
//	m := lifecycle.New(pipeline, lifecycle.WithDeleter(deleter))
//
//	res, err := m.Bind(ctx, upload, slots.Commit(ownerID, "icon"))
//	if err != nil {
//		// classified *asset.Error, or ErrCommitFailed
//	}
//	if res.CleanupErr != nil {
//		// the record is updated; the old object is still in the store
//	}
//
// Empty and placeholder ("http") previous URLs mean there is nothing to
// delete. Deletes run inline by default; AsyncDeleter moves them to bounded
// background goroutines and JobDeleter to the job queue.
package lifecycle
