package upload

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/liferepo/internal/client/models"
	"github.com/dmitrijs2005/liferepo/internal/logging"
)

// DefaultBatchSize bounds how many files are transferred at once.
const DefaultBatchSize = 12

// FileFailure is a file that did not reach the uploaded state.
type FileFailure struct {
	FileID string
	Err    error
}

// FileOp is the per-file work run inside a batch.
type FileOp func(ctx context.Context, f models.FileAnnotation) error

// Scheduler runs file operations in sequential fixed-size batches. Files of
// one batch run concurrently; the next batch starts only after every file of
// the current one has settled.
type Scheduler struct {
	batchSize int
	log       logging.Logger
}

func NewScheduler(batchSize int, log logging.Logger) *Scheduler {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Scheduler{batchSize: batchSize, log: log}
}

func (s *Scheduler) BatchSize() int {
	return s.batchSize
}

// Run moves each file with start before any operation of its batch begins,
// then marks it succeeded or failed by the outcome of op. A failing file
// never cancels its siblings. afterBatch, when set, is called once each
// batch has settled.
func (s *Scheduler) Run(
	ctx context.Context,
	files []models.FileAnnotation,
	w *StatusWriter,
	start Event,
	op FileOp,
	afterBatch func(ctx context.Context),
) []FileFailure {
	var failures []FileFailure

	for lo := 0; lo < len(files); lo += s.batchSize {
		hi := min(lo+s.batchSize, len(files))
		batch := make([]models.FileAnnotation, 0, hi-lo)

		for _, f := range files[lo:hi] {
			if err := w.Emit(f.FileID, start); err != nil {
				s.log.Warn(ctx, "file not started", "file_id", f.FileID, "err", err)
				failures = append(failures, FileFailure{FileID: f.FileID, Err: err})
				continue
			}
			batch = append(batch, f)
		}

		s.log.Debug(ctx, "batch started", "batch", lo/s.batchSize+1, "files", len(batch))

		errs := make([]error, len(batch))
		var g errgroup.Group
		for i, f := range batch {
			g.Go(func() error {
				errs[i] = s.runOne(ctx, f, w, op)
				return nil
			})
		}
		_ = g.Wait()

		for i, err := range errs {
			if err != nil {
				failures = append(failures, FileFailure{FileID: batch[i].FileID, Err: err})
			}
		}

		s.log.Debug(ctx, "batch settled", "batch", lo/s.batchSize+1)
		if afterBatch != nil {
			afterBatch(ctx)
		}
	}

	return failures
}

func (s *Scheduler) runOne(ctx context.Context, f models.FileAnnotation, w *StatusWriter, op FileOp) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanicked, p)
		}
		if err == nil {
			if err = w.Emit(f.FileID, EventSucceed); err == nil {
				return
			}
		}
		s.log.Warn(ctx, "file upload failed", "file_id", f.FileID, "err", err)
		if emitErr := w.Emit(f.FileID, EventFail); emitErr != nil {
			s.log.Error(ctx, "file status not recorded", "file_id", f.FileID, "err", emitErr)
		}
	}()
	return op(ctx, f)
}
