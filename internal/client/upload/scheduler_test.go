package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/liferepo/internal/client/models"
	"github.com/dmitrijs2005/liferepo/internal/logging"
)

func idleFiles(n int) []models.FileAnnotation {
	files := make([]models.FileAnnotation, n)
	for i := range files {
		files[i] = models.FileAnnotation{FileID: fmt.Sprintf("f%02d", i), Status: models.StatusIdle}
	}
	return files
}

func TestScheduler_MarksWholeBatchUploadingBeforeAnyOp(t *testing.T) {
	g := &models.AnnotationGroup{GroupID: "g", FlowType: models.FlowGroupThenIndividual, Files: idleFiles(7)}
	sink := NewGroupSink(g)
	w := NewStatusWriter(g.Files, sink, time.Now)
	s := NewScheduler(3, logging.Discard())

	var violations atomic.Int32
	s.Run(context.Background(), g.Files, w, EventStart, func(_ context.Context, f models.FileAnnotation) error {
		idx := 0
		fmt.Sscanf(f.FileID, "f%d", &idx)
		lo := idx / 3 * 3
		hi := min(lo+3, len(g.Files))

		sink.mu.Lock()
		defer sink.mu.Unlock()
		for _, other := range g.Files[lo:hi] {
			if other.Status == models.StatusIdle {
				violations.Add(1)
			}
		}
		return nil
	}, nil)

	assert.Zero(t, violations.Load())
	for _, f := range g.Files {
		assert.Equal(t, models.StatusUploaded, f.Status, f.FileID)
	}
}

func TestScheduler_BatchesAreSequential(t *testing.T) {
	files := idleFiles(5)
	w := NewStatusWriter(files, NewGroupSink(&models.AnnotationGroup{Files: files}), time.Now)
	s := NewScheduler(2, logging.Discard())

	var mu sync.Mutex
	settled := 0
	var batches atomic.Int32

	s.Run(context.Background(), files, w, EventStart, func(_ context.Context, f models.FileAnnotation) error {
		idx := 0
		fmt.Sscanf(f.FileID, "f%d", &idx)

		mu.Lock()
		assert.GreaterOrEqual(t, settled, idx/2*2, "file %s started before previous batch settled", f.FileID)
		mu.Unlock()

		time.Sleep(2 * time.Millisecond)

		mu.Lock()
		settled++
		mu.Unlock()
		return nil
	}, func(context.Context) { batches.Add(1) })

	assert.Equal(t, int32(3), batches.Load())
}

func TestScheduler_FailureDoesNotCancelSiblings(t *testing.T) {
	files := idleFiles(4)
	g := &models.AnnotationGroup{Files: files}
	w := NewStatusWriter(files, NewGroupSink(g), time.Now)
	s := NewScheduler(10, logging.Discard())

	boom := errors.New("boom")
	failures := s.Run(context.Background(), files, w, EventStart, func(ctx context.Context, f models.FileAnnotation) error {
		if f.FileID == "f01" {
			return boom
		}
		time.Sleep(5 * time.Millisecond)
		return ctx.Err()
	}, nil)

	require.Len(t, failures, 1)
	assert.Equal(t, "f01", failures[0].FileID)
	require.ErrorIs(t, failures[0].Err, boom)
	assert.Equal(t, models.Stats{Total: 4, Uploaded: 3, Pending: 1, Failed: 1}, w.Stats())
}

func TestScheduler_PanicBecomesFailure(t *testing.T) {
	files := idleFiles(2)
	w := NewStatusWriter(files, NewGroupSink(&models.AnnotationGroup{Files: files}), time.Now)
	s := NewScheduler(2, logging.Discard())

	failures := s.Run(context.Background(), files, w, EventStart, func(_ context.Context, f models.FileAnnotation) error {
		if f.FileID == "f00" {
			panic("nil map")
		}
		return nil
	}, nil)

	require.Len(t, failures, 1)
	require.ErrorIs(t, failures[0].Err, ErrPanicked)
	assert.Equal(t, models.StatusError, w.Status("f00"))
	assert.Equal(t, models.StatusUploaded, w.Status("f01"))
}

func TestScheduler_IllegalStartIsSkipped(t *testing.T) {
	files := idleFiles(2)
	files[1].Status = models.StatusUploaded
	w := NewStatusWriter(files, NewGroupSink(&models.AnnotationGroup{Files: files}), time.Now)
	s := NewScheduler(2, logging.Discard())

	var calls atomic.Int32
	failures := s.Run(context.Background(), files, w, EventStart, func(context.Context, models.FileAnnotation) error {
		calls.Add(1)
		return nil
	}, nil)

	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, failures, 1)
	require.ErrorIs(t, failures[0].Err, ErrIllegalTransition)
	assert.Equal(t, models.StatusUploaded, w.Status("f01"))
}

func TestNewScheduler_DefaultBatchSize(t *testing.T) {
	assert.Equal(t, DefaultBatchSize, NewScheduler(0, logging.Discard()).BatchSize())
}
