package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gofrs/flock"

	"github.com/dmitrijs2005/liferepo/internal/client/client"
	"github.com/dmitrijs2005/liferepo/internal/client/models"
	"github.com/dmitrijs2005/liferepo/internal/client/repositories/drafts"
	"github.com/dmitrijs2005/liferepo/internal/client/session"
	"github.com/dmitrijs2005/liferepo/internal/client/upload"
	"github.com/dmitrijs2005/liferepo/internal/filex"
	"github.com/dmitrijs2005/liferepo/internal/logging"
)

var (
	ErrUploadInProgress = errors.New("an upload is already in progress")
	ErrGroupActive      = errors.New("another group is active")
	ErrNoActiveGroup    = session.ErrNoActiveGroup
)

// ActiveSlot persists the active group across restarts.
type ActiveSlot interface {
	Load(ctx context.Context) (*models.AnnotationGroup, error)
	Store(ctx context.Context, g *models.AnnotationGroup) error
	Clear(ctx context.Context) error
}

type AnnotationService interface {
	// Restore reloads the group that was active when the process last
	// stopped. It reports whether there was one.
	Restore(ctx context.Context) (bool, error)
	NewGroup(ctx context.Context, flow models.FlowType) (*models.AnnotationGroup, error)
	ActiveGroup() (*models.AnnotationGroup, error)
	Stats() models.Stats
	Subscribe(fn func(models.Stats))

	AddFiles(ctx context.Context, files []session.NewFile, uploadNow bool) ([]models.FileAnnotation, error)
	RemoveFile(ctx context.Context, fileID string, deleteLocal bool) error
	SetTitle(ctx context.Context, title string) error
	SetDescription(ctx context.Context, desc string) error
	SetTags(ctx context.Context, tags []models.Tag) error
	SetCoverImage(ctx context.Context, fileID string) error
	AnnotateFile(ctx context.Context, fileID, description string, tags []models.Tag) error

	// Upload runs the active group through the orchestrator. On full
	// success the group leaves both the active slot and the draft store.
	Upload(ctx context.Context, filterUploaded bool) (*upload.Outcome, error)
	IsUploading() bool

	HasUnsavedFiles() bool
	// Cancel leaves the active group, saving it as a draft first when
	// saveDraft is set and it has files.
	Cancel(ctx context.Context, saveDraft bool) error
	SaveDraft(ctx context.Context) error
	SyncDraft(ctx context.Context) error
	EnterDraft(ctx context.Context, groupID string) (*models.AnnotationGroup, error)
	DeleteDraft(ctx context.Context, groupID string) error
	ListDrafts(ctx context.Context) ([]*models.AnnotationGroup, error)

	SavedGroupIDs(ctx context.Context) ([]string, error)
	OpenSavedGroup(ctx context.Context, groupID string) (*models.AnnotationGroup, error)

	Ping(ctx context.Context) error
	Close() error
}

type annotationService struct {
	client       client.Client
	orchestrator *upload.Orchestrator
	drafts       drafts.Repository
	active       ActiveSlot
	session      *session.Session
	fs           filex.FileSystem
	lock         *flock.Flock
	uploading    atomic.Bool
	log          logging.Logger
}

type Deps struct {
	Client       client.Client
	Orchestrator *upload.Orchestrator
	Drafts       drafts.Repository
	Active       ActiveSlot
	Session      *session.Session
	FS           filex.FileSystem
	// LockPath names the file that keeps two processes from uploading at
	// the same time.
	LockPath string
	Log      logging.Logger
}

func NewAnnotationService(d Deps) AnnotationService {
	return &annotationService{
		client:       d.Client,
		orchestrator: d.Orchestrator,
		drafts:       d.Drafts,
		active:       d.Active,
		session:      d.Session,
		fs:           d.FS,
		lock:         flock.New(d.LockPath),
		log:          d.Log,
	}
}

func (s *annotationService) Restore(ctx context.Context) (bool, error) {
	g, err := s.active.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("restore active group: %w", err)
	}
	if g == nil {
		return false, nil
	}
	if err := s.session.Load(g); err != nil {
		return false, fmt.Errorf("restore active group %s: %w", g.GroupID, err)
	}
	s.log.Info(ctx, "active group restored", "group_id", g.GroupID, "files", len(g.Files))
	return true, s.persist(ctx)
}

func (s *annotationService) NewGroup(ctx context.Context, flow models.FlowType) (*models.AnnotationGroup, error) {
	if s.session.Active() {
		return nil, ErrGroupActive
	}
	g, err := s.session.Start(flow)
	if err != nil {
		return nil, err
	}
	return g, s.persist(ctx)
}

func (s *annotationService) ActiveGroup() (*models.AnnotationGroup, error) {
	return s.session.Group()
}

func (s *annotationService) Stats() models.Stats {
	return s.session.Stats()
}

func (s *annotationService) Subscribe(fn func(models.Stats)) {
	s.session.Subscribe(fn)
}

func (s *annotationService) AddFiles(ctx context.Context, files []session.NewFile, uploadNow bool) ([]models.FileAnnotation, error) {
	added, err := s.session.AddFiles(files)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx); err != nil {
		return added, err
	}
	if !uploadNow || len(added) == 0 {
		return added, nil
	}

	if err := s.acquire(); err != nil {
		return added, err
	}
	defer s.release(ctx)

	out, err := s.orchestrator.UploadFiles(ctx, added, s.session)
	if err != nil {
		return added, err
	}
	s.log.Info(ctx, "files uploaded on add", "uploaded", out.Stats.Uploaded, "failed", out.Stats.Failed)
	return added, s.persist(ctx)
}

func (s *annotationService) RemoveFile(ctx context.Context, fileID string, deleteLocal bool) error {
	if s.uploading.Load() {
		return ErrUploadInProgress
	}
	f, err := s.session.RemoveFile(fileID)
	if err != nil {
		return err
	}
	if err := s.persist(ctx); err != nil {
		return err
	}

	if deleteLocal {
		if err := s.fs.Remove(f.URI); err != nil {
			s.log.Warn(ctx, "local file not deleted", "file_id", fileID, "uri", f.URI, "err", err)
		}
	}
	if f.Status.Normalize() != models.StatusIdle {
		if err := s.client.DeleteFile(ctx, fileID); err != nil {
			s.log.Warn(ctx, "remote file not deleted", "file_id", fileID, "err", err)
		}
	}
	return nil
}

func (s *annotationService) SetTitle(ctx context.Context, title string) error {
	return s.edit(ctx, func() error { return s.session.SetTitle(title) })
}

func (s *annotationService) SetDescription(ctx context.Context, desc string) error {
	return s.edit(ctx, func() error { return s.session.SetDescription(desc) })
}

func (s *annotationService) SetTags(ctx context.Context, tags []models.Tag) error {
	return s.edit(ctx, func() error { return s.session.SetTags(tags) })
}

func (s *annotationService) SetCoverImage(ctx context.Context, fileID string) error {
	return s.edit(ctx, func() error { return s.session.SetCoverImage(fileID) })
}

func (s *annotationService) AnnotateFile(ctx context.Context, fileID, description string, tags []models.Tag) error {
	return s.edit(ctx, func() error { return s.session.AnnotateFile(fileID, description, tags) })
}

func (s *annotationService) Upload(ctx context.Context, filterUploaded bool) (*upload.Outcome, error) {
	g, err := s.session.Group()
	if err != nil {
		return nil, err
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}
	// Local bookkeeping outlives an interrupted run.
	local := context.WithoutCancel(ctx)
	defer s.release(local)

	out, err := s.orchestrator.UploadGroup(ctx, g, s.session, upload.Options{
		FilterUploadedFiles: filterUploaded,
		AfterBatch: func(context.Context) {
			if err := s.persist(local); err != nil {
				s.log.Warn(local, "active group not saved after batch", "group_id", g.GroupID, "err", err)
			}
		},
	})
	if err != nil {
		return nil, err
	}

	if out.Result != upload.ResultSuccess {
		if err := s.persist(local); err != nil {
			return out, err
		}
		return out, s.SyncDraft(local)
	}

	if err := s.drafts.Delete(local, g.GroupID); err != nil {
		return out, err
	}
	s.session.Clear()
	if err := s.active.Clear(local); err != nil {
		return out, err
	}
	return out, nil
}

func (s *annotationService) IsUploading() bool {
	return s.uploading.Load()
}

func (s *annotationService) HasUnsavedFiles() bool {
	return s.session.Stats().Total > 0
}

func (s *annotationService) Cancel(ctx context.Context, saveDraft bool) error {
	if s.uploading.Load() {
		return ErrUploadInProgress
	}
	g, err := s.session.Group()
	if err != nil {
		return err
	}
	if saveDraft && len(g.Files) > 0 {
		if err := s.drafts.Save(ctx, g); err != nil {
			return err
		}
	}
	s.session.Clear()
	return s.active.Clear(ctx)
}

func (s *annotationService) SaveDraft(ctx context.Context) error {
	g, err := s.session.Group()
	if err != nil {
		return err
	}
	return s.drafts.Save(ctx, g)
}

// SyncDraft refreshes the stored draft of the active group, if it has one.
func (s *annotationService) SyncDraft(ctx context.Context) error {
	g, err := s.session.Group()
	if err != nil {
		return err
	}
	ok, err := s.drafts.Exists(ctx, g.GroupID)
	if err != nil || !ok {
		return err
	}
	return s.drafts.Save(ctx, g)
}

func (s *annotationService) EnterDraft(ctx context.Context, groupID string) (*models.AnnotationGroup, error) {
	if g, err := s.session.Group(); err == nil && g.GroupID != groupID {
		return nil, ErrGroupActive
	}
	if s.uploading.Load() {
		return nil, ErrUploadInProgress
	}
	d, err := s.drafts.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.session.Load(d); err != nil {
		return nil, err
	}
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return s.session.Group()
}

func (s *annotationService) DeleteDraft(ctx context.Context, groupID string) error {
	if g, err := s.session.Group(); err == nil && g.GroupID == groupID && s.uploading.Load() {
		return ErrUploadInProgress
	}
	return s.drafts.Delete(ctx, groupID)
}

func (s *annotationService) ListDrafts(ctx context.Context) ([]*models.AnnotationGroup, error) {
	return s.drafts.List(ctx)
}

func (s *annotationService) SavedGroupIDs(ctx context.Context) ([]string, error) {
	return s.client.GroupIDs(ctx)
}

// OpenSavedGroup makes a group stored on the server active for editing.
func (s *annotationService) OpenSavedGroup(ctx context.Context, groupID string) (*models.AnnotationGroup, error) {
	if s.session.Active() {
		return nil, ErrGroupActive
	}
	g, err := s.client.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.session.Load(g); err != nil {
		return nil, err
	}
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return s.session.Group()
}

func (s *annotationService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *annotationService) Close() error {
	return s.lock.Close()
}

func (s *annotationService) edit(ctx context.Context, fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	return s.persist(ctx)
}

func (s *annotationService) persist(ctx context.Context) error {
	g, err := s.session.Group()
	if errors.Is(err, session.ErrNoActiveGroup) {
		return s.active.Clear(ctx)
	}
	if err != nil {
		return err
	}
	if err := s.active.Store(ctx, g); err != nil {
		return fmt.Errorf("save active group: %w", err)
	}
	return nil
}

// acquire guards against a second upload in this process and in any other
// process sharing the lock file.
func (s *annotationService) acquire() error {
	if !s.uploading.CompareAndSwap(false, true) {
		return ErrUploadInProgress
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		s.uploading.Store(false)
		return fmt.Errorf("acquire upload lock: %w", err)
	}
	if !ok {
		s.uploading.Store(false)
		return ErrUploadInProgress
	}
	return nil
}

func (s *annotationService) release(ctx context.Context) {
	if err := s.lock.Unlock(); err != nil {
		s.log.Warn(ctx, "upload lock not released", "err", err)
	}
	s.uploading.Store(false)
}
