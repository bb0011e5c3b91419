// Package cli provides the interactive liferepo command-line client.
//
// The REPL edits one active annotation group at a time: add captured files,
// set the group's title, description, tags and cover, annotate single files,
// and upload the lot. Partially uploaded groups stay active (and in the draft
// store) so a later 'retry' only sends what is missing. A background watcher
// pings the API and shows online/offline in the prompt; while an upload runs
// on a terminal a single progress line is redrawn.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See runREPL for the command list.
package cli
