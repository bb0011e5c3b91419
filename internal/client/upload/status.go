package upload

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/liferepo/internal/client/models"
)

var ErrIllegalTransition = errors.New("illegal status transition")

// Event drives a file through the upload state machine.
type Event string

const (
	// EventStart begins a transfer: idle|error -> uploading.
	EventStart Event = "start"
	// EventStartUpdate begins a metadata-only refresh: uploaded -> uploading.
	EventStartUpdate Event = "start-update"
	// EventSucceed completes a transfer: uploading -> uploaded.
	EventSucceed Event = "succeed"
	// EventFail records a failed transfer: uploading -> error.
	EventFail Event = "fail"
	// EventConfirm marks a file the remote already fully stores:
	// idle|error -> uploaded, uploaded -> uploaded.
	EventConfirm Event = "confirm"
	// EventInvalidate demotes a locally uploaded file the remote does not
	// fully store: uploaded -> idle.
	EventInvalidate Event = "invalidate"
	// EventInterrupt marks a transfer that never settled, e.g. after a
	// crash: uploading -> error.
	EventInterrupt Event = "interrupt"
)

var transitions = map[Event]map[models.FileStatus]models.FileStatus{
	EventStart: {
		models.StatusIdle:  models.StatusUploading,
		models.StatusError: models.StatusUploading,
	},
	EventStartUpdate: {
		models.StatusUploaded: models.StatusUploading,
	},
	EventSucceed: {
		models.StatusUploading: models.StatusUploaded,
	},
	EventFail: {
		models.StatusUploading: models.StatusError,
	},
	EventConfirm: {
		models.StatusIdle:     models.StatusUploaded,
		models.StatusError:    models.StatusUploaded,
		models.StatusUploaded: models.StatusUploaded,
	},
	EventInvalidate: {
		models.StatusUploaded: models.StatusIdle,
	},
	EventInterrupt: {
		models.StatusUploading: models.StatusError,
	},
}

// Next returns the status reached by applying ev in status from.
func Next(from models.FileStatus, ev Event) (models.FileStatus, error) {
	from = from.Normalize()
	to, ok := transitions[ev][from]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, ev, from)
	}
	return to, nil
}

// StatusCommand asks the owner of a group to move one file's status.
type StatusCommand struct {
	FileID string
	Event  Event
	At     time.Time
}

// Apply moves f according to cmd. f is left untouched when the transition
// is illegal.
func Apply(f *models.FileAnnotation, cmd StatusCommand) error {
	to, err := Next(f.Status, cmd.Event)
	if err != nil {
		return fmt.Errorf("file %s: %w", f.FileID, err)
	}
	f.Status = to

	switch cmd.Event {
	case EventSucceed:
		at := cmd.At
		f.UploadedAt = &at
	case EventConfirm:
		if f.UploadedAt == nil {
			at := cmd.At
			f.UploadedAt = &at
		}
	case EventInvalidate:
		f.UploadedAt = nil
	}
	return nil
}

// StatusSink owns the group being uploaded and applies status commands to it.
// Implementations must be safe for concurrent use.
type StatusSink interface {
	Apply(cmd StatusCommand) error
}

// GroupSink applies commands directly to a group. It is the sink used when
// the caller owns the group itself.
type GroupSink struct {
	mu    sync.Mutex
	group *models.AnnotationGroup
}

func NewGroupSink(g *models.AnnotationGroup) *GroupSink {
	return &GroupSink{group: g}
}

func (s *GroupSink) Apply(cmd StatusCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.group.FileByID(cmd.FileID)
	if f == nil {
		return fmt.Errorf("%w: %s", models.ErrUnknownFile, cmd.FileID)
	}
	return Apply(f, cmd)
}

// StatusWriter is the only emitter of status commands during an upload. It
// keeps its own view of every file's status so the orchestrator can decide
// what to link and report without reading the shared group back.
type StatusWriter struct {
	mu       sync.Mutex
	statuses map[string]models.FileStatus
	order    []string
	sink     StatusSink
	now      func() time.Time
}

func NewStatusWriter(files []models.FileAnnotation, sink StatusSink, now func() time.Time) *StatusWriter {
	w := &StatusWriter{
		statuses: make(map[string]models.FileStatus, len(files)),
		order:    make([]string, 0, len(files)),
		sink:     sink,
		now:      now,
	}
	for _, f := range files {
		w.statuses[f.FileID] = f.Status.Normalize()
		w.order = append(w.order, f.FileID)
	}
	return w
}

// Emit validates ev against the writer's view, forwards it to the sink and
// records the new status. Nothing changes if either step rejects it.
func (w *StatusWriter) Emit(fileID string, ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	from, ok := w.statuses[fileID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrUnknownFile, fileID)
	}
	to, err := Next(from, ev)
	if err != nil {
		return fmt.Errorf("file %s: %w", fileID, err)
	}
	if err := w.sink.Apply(StatusCommand{FileID: fileID, Event: ev, At: w.now()}); err != nil {
		return err
	}
	w.statuses[fileID] = to
	return nil
}

func (w *StatusWriter) Status(fileID string) models.FileStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.statuses[fileID]
}

// Uploaded returns the ids of uploaded files in group order.
func (w *StatusWriter) Uploaded() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	ids := make([]string, 0, len(w.order))
	for _, id := range w.order {
		if w.statuses[id] == models.StatusUploaded {
			ids = append(ids, id)
		}
	}
	return ids
}

func (w *StatusWriter) Stats() models.Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := models.Stats{Total: len(w.order)}
	for _, id := range w.order {
		switch w.statuses[id] {
		case models.StatusUploaded:
			s.Uploaded++
		case models.StatusUploading:
			s.Uploading++
		case models.StatusError:
			s.Failed++
		}
	}
	s.Pending = s.Total - s.Uploaded
	return s
}
