// Package drafts persists annotation groups the user saved without finishing
// their upload.
//
// A draft is stored as one row in "drafts" plus one row per file in
// "draft_files", ordered by position so the capture order survives a round
// trip. Tags and capture metadata are kept as JSON blobs; timestamps as Unix
// nanoseconds.
//
// Save replaces the whole draft inside a transaction, so a crash never
// leaves a draft with half of its files.
package drafts
