package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/liferepo/internal/client/client"
	"github.com/dmitrijs2005/liferepo/internal/client/models"
	"github.com/dmitrijs2005/liferepo/internal/filex"
	"github.com/dmitrijs2005/liferepo/internal/logging"
)

// Result is the aggregate state of a group after an upload run.
type Result string

const (
	ResultSuccess Result = "success"
	ResultPartial Result = "partial"
)

type Options struct {
	// FilterUploadedFiles skips the metadata refresh of files that are
	// already fully stored and have not been annotated since.
	FilterUploadedFiles bool

	// AfterBatch is called once every batch has settled.
	AfterBatch func(ctx context.Context)
}

// Outcome summarises an upload run.
type Outcome struct {
	GroupID string
	Result  Result
	Stats   models.Stats

	// Transferred lists files whose binary was sent during this run.
	Transferred []string
	// Updated lists files that only had their annotations refreshed.
	Updated []string
	// Linked lists the files associated with the group.
	Linked   []string
	Failures []FileFailure
	LinkErr  error
}

// Orchestrator drives a group to a fully persisted state.
//
// UploadGroup is safe to call repeatedly for the same group: files the
// remote already stores are confirmed without transfer, and only missing
// parts are sent. Calls for the same group must not overlap.
type Orchestrator struct {
	client    client.Client
	resolver  *Resolver
	scheduler *Scheduler
	transfer  *Transfer
	log       logging.Logger
	now       func() time.Time
}

type Config struct {
	BatchSize   int
	MaxFileSize int64
	Now         func() time.Time
}

func NewOrchestrator(c client.Client, fs filex.FileSystem, log logging.Logger, cfg Config) *Orchestrator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	s := NewScheduler(cfg.BatchSize, log)
	return &Orchestrator{
		client:    c,
		resolver:  NewResolver(c, log, s.BatchSize()),
		scheduler: s,
		transfer:  NewTransfer(c, fs, cfg.MaxFileSize),
		log:       log,
		now:       now,
	}
}

// UploadGroup writes the group record, resolves what the remote already
// stores, transfers or refreshes each file, and links the uploaded files to
// the group. Per-file failures are reported in the outcome, never as an
// error; an error means the group could not be processed at all.
//
// group is read only. Status changes go to sink; a nil sink applies them to
// group itself.
func (o *Orchestrator) UploadGroup(ctx context.Context, group *models.AnnotationGroup, sink StatusSink, opts Options) (*Outcome, error) {
	if err := group.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = NewGroupSink(group)
	}
	log := o.log.With("group_id", group.GroupID)
	files := group.Clone().Files

	if err := o.client.UpsertGroup(ctx, group.Metadata()); err != nil {
		log.Error(ctx, "group write failed", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrGroupWrite, err)
	}
	log.Info(ctx, "group written", "files", len(files))

	w := NewStatusWriter(files, sink, o.now)
	o.interruptStale(ctx, files, w)

	states := o.resolver.Resolve(ctx, group.GroupID, group.FileIDs())
	toUpload, toUpdate, stateByID := o.partition(ctx, files, states, w, opts)
	log.Info(ctx, "files classified", "upload", len(toUpload), "update", len(toUpdate))

	out := &Outcome{GroupID: group.GroupID}
	var mu sync.Mutex

	out.Failures = o.scheduler.Run(ctx, toUpload, w, EventStart, func(ctx context.Context, f models.FileAnnotation) error {
		sent, err := o.transfer.Upload(ctx, f, stateByID[f.FileID])
		if sent {
			mu.Lock()
			out.Transferred = append(out.Transferred, f.FileID)
			mu.Unlock()
		}
		return err
	}, opts.AfterBatch)

	updateFailures := o.scheduler.Run(ctx, toUpdate, w, EventStartUpdate, func(ctx context.Context, f models.FileAnnotation) error {
		if err := o.transfer.UpdateAnnotations(ctx, f); err != nil {
			return err
		}
		mu.Lock()
		out.Updated = append(out.Updated, f.FileID)
		mu.Unlock()
		return nil
	}, opts.AfterBatch)
	out.Failures = append(out.Failures, updateFailures...)

	if ids := w.Uploaded(); len(ids) > 0 {
		if err := o.client.LinkFiles(ctx, linkFor(group, ids)); err != nil {
			log.Warn(ctx, "linking failed", "err", err)
			out.LinkErr = fmt.Errorf("%w: %w", ErrLinkFailed, err)
		} else {
			out.Linked = ids
		}
	}

	out.Stats = w.Stats()
	out.Result = ResultPartial
	if out.Stats.Uploaded == out.Stats.Total && out.LinkErr == nil {
		out.Result = ResultSuccess
	}
	log.Info(ctx, "group upload settled",
		"result", out.Result, "uploaded", out.Stats.Uploaded, "total", out.Stats.Total, "failed", out.Stats.Failed)

	return out, nil
}

// UploadFiles uploads freshly added files right away, without touching the
// group record or its links.
func (o *Orchestrator) UploadFiles(ctx context.Context, files []models.FileAnnotation, sink StatusSink) (*Outcome, error) {
	if sink == nil {
		return nil, errors.New("upload files: nil status sink")
	}
	files = cloneFiles(files)
	w := NewStatusWriter(files, sink, o.now)
	o.interruptStale(ctx, files, w)

	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.FileID
	}
	states := o.resolver.Resolve(ctx, "", ids)
	toUpload, _, stateByID := o.partition(ctx, files, states, w, Options{FilterUploadedFiles: true})

	out := &Outcome{}
	var mu sync.Mutex
	out.Failures = o.scheduler.Run(ctx, toUpload, w, EventStart, func(ctx context.Context, f models.FileAnnotation) error {
		sent, err := o.transfer.Upload(ctx, f, stateByID[f.FileID])
		if sent {
			mu.Lock()
			out.Transferred = append(out.Transferred, f.FileID)
			mu.Unlock()
		}
		return err
	}, nil)

	out.Stats = w.Stats()
	out.Result = ResultPartial
	if out.Stats.Uploaded == out.Stats.Total {
		out.Result = ResultSuccess
	}
	return out, nil
}

// interruptStale fails files left uploading by a run that never settled.
func (o *Orchestrator) interruptStale(ctx context.Context, files []models.FileAnnotation, w *StatusWriter) {
	for _, f := range files {
		if f.Status.Normalize() != models.StatusUploading {
			continue
		}
		if err := w.Emit(f.FileID, EventInterrupt); err != nil {
			o.log.Warn(ctx, "stale upload not reset", "file_id", f.FileID, "err", err)
		}
	}
}

func (o *Orchestrator) partition(
	ctx context.Context,
	files []models.FileAnnotation,
	states []models.RemoteFileState,
	w *StatusWriter,
	opts Options,
) (toUpload, toUpdate []models.FileAnnotation, stateByID map[string]models.RemoteFileState) {
	stateByID = make(map[string]models.RemoteFileState, len(states))
	for _, s := range states {
		stateByID[s.FileID] = s
	}

	for _, f := range files {
		s := stateByID[f.FileID]

		if s.Known && s.FullyStored() {
			needsSync := f.NeedsAnnotationSync()
			if err := w.Emit(f.FileID, EventConfirm); err != nil {
				o.log.Warn(ctx, "stored file not confirmed", "file_id", f.FileID, "err", err)
				toUpload = append(toUpload, f)
				continue
			}
			if !opts.FilterUploadedFiles || needsSync {
				toUpdate = append(toUpdate, f)
			}
			continue
		}

		if w.Status(f.FileID) == models.StatusUploaded {
			if err := w.Emit(f.FileID, EventInvalidate); err != nil {
				o.log.Warn(ctx, "uploaded file not reset", "file_id", f.FileID, "err", err)
			}
		}
		toUpload = append(toUpload, f)
	}
	return toUpload, toUpdate, stateByID
}

func linkFor(g *models.AnnotationGroup, ids []string) models.GroupLink {
	files := make([]models.LinkFile, len(ids))
	for i, id := range ids {
		files[i] = models.LinkFile{FileID: id}
	}
	return models.GroupLink{
		GroupID:          g.GroupID,
		CoverImageFileID: g.CoverImageFileID,
		Files:            files,
	}
}

func cloneFiles(files []models.FileAnnotation) []models.FileAnnotation {
	out := make([]models.FileAnnotation, len(files))
	for i, f := range files {
		out[i] = f.Clone()
	}
	return out
}
