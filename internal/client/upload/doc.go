// Package upload drives annotation groups to the remote store.
//
// # Pieces
//
//   - Next/Apply: the file status state machine
//     (idle -> uploading -> uploaded|error, error -> uploading on retry).
//   - StatusWriter: the single emitter of status commands for a run. The
//     group owner (a StatusSink, usually the session) applies them.
//   - Resolver: asks the remote which binaries and metadata rows exist.
//   - Scheduler: sequential batches, concurrent files within a batch.
//   - Transfer: binary upload, metadata insert and annotation refresh for
//     one file.
//   - Orchestrator: sequences all of the above for a group.
//
// # Failures
//
// Only a failed group write aborts a run (ErrGroupWrite). Everything else
// ends up as a file in the error state plus a FileFailure in the Outcome, and
// a later run retries just those files.
package upload
