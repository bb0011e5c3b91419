// Package session owns the active annotation group.
//
// There is at most one active group per process. Every mutation goes
// through the Session; upload status changes arrive as upload.StatusCommand
// values through Apply, so the session is the only place a file's status is
// written.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/liferepo/internal/client/models"
	"github.com/dmitrijs2005/liferepo/internal/client/upload"
)

var ErrNoActiveGroup = errors.New("no active group")

// NewFile describes a captured file before it joins the group.
type NewFile struct {
	URI      string
	Metadata json.RawMessage
	AddedAt  time.Time
}

type Session struct {
	mu        sync.RWMutex
	group     *models.AnnotationGroup
	now       func() time.Time
	observers []func(models.Stats)
}

func New(now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{now: now}
}

// Subscribe registers fn to be called with fresh statistics after every
// change. fn runs outside the session lock.
func (s *Session) Subscribe(fn func(models.Stats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Start makes a new empty group active, replacing any previous one.
func (s *Session) Start(flow models.FlowType) (*models.AnnotationGroup, error) {
	if _, err := models.ParseFlowType(string(flow)); err != nil {
		return nil, err
	}
	g := models.NewGroup(flow, s.now())
	s.mu.Lock()
	s.group = g
	snap := g.Clone()
	s.mu.Unlock()
	s.notify(snap)
	return snap, nil
}

// Load makes g active. Files still marked uploading belong to a run that
// never settled and are moved to error.
func (s *Session) Load(g *models.AnnotationGroup) error {
	if err := g.Validate(); err != nil {
		return err
	}
	g = g.Clone()
	at := s.now()
	for i := range g.Files {
		if g.Files[i].Status.Normalize() == models.StatusUploading {
			_ = upload.Apply(&g.Files[i], upload.StatusCommand{FileID: g.Files[i].FileID, Event: upload.EventInterrupt, At: at})
		}
		g.Files[i].Status = g.Files[i].Status.Normalize()
	}

	s.mu.Lock()
	s.group = g
	snap := g.Clone()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// Clear leaves the session with no active group.
func (s *Session) Clear() {
	s.mu.Lock()
	s.group = nil
	s.mu.Unlock()
}

func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.group != nil
}

// Group returns a snapshot of the active group.
func (s *Session) Group() (*models.AnnotationGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.group == nil {
		return nil, ErrNoActiveGroup
	}
	return s.group.Clone(), nil
}

func (s *Session) Stats() models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.group == nil {
		return models.Stats{}
	}
	return s.group.Stats()
}

// AddFiles appends files whose URI is not yet in the group. When the same
// URI appears more than once in files, the entry added last wins. New files
// are appended in added_at order.
func (s *Session) AddFiles(files []NewFile) ([]models.FileAnnotation, error) {
	var added []models.FileAnnotation
	err := s.mutate(func(g *models.AnnotationGroup) error {
		present := make(map[string]struct{}, len(g.Files))
		for _, f := range g.Files {
			present[f.URI] = struct{}{}
		}

		latest := make(map[string]NewFile, len(files))
		for _, nf := range files {
			if nf.URI == "" {
				continue
			}
			if _, ok := present[nf.URI]; ok {
				continue
			}
			if nf.AddedAt.IsZero() {
				nf.AddedAt = s.now()
			}
			if prev, ok := latest[nf.URI]; !ok || !nf.AddedAt.Before(prev.AddedAt) {
				latest[nf.URI] = nf
			}
		}

		for _, nf := range latest {
			added = append(added, models.NewFile(nf.URI, nf.Metadata, nf.AddedAt))
		}
		sort.SliceStable(added, func(i, j int) bool {
			if added[i].AddedAt.Equal(added[j].AddedAt) {
				return added[i].URI < added[j].URI
			}
			return added[i].AddedAt.Before(added[j].AddedAt)
		})

		g.Files = append(g.Files, added...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.FileAnnotation, len(added))
	for i, f := range added {
		out[i] = f.Clone()
	}
	return out, nil
}

// RemoveFile drops a file from the group and returns it. The cover image is
// cleared when it pointed at the removed file.
func (s *Session) RemoveFile(fileID string) (models.FileAnnotation, error) {
	var removed models.FileAnnotation
	err := s.mutate(func(g *models.AnnotationGroup) error {
		for i, f := range g.Files {
			if f.FileID != fileID {
				continue
			}
			removed = f
			g.Files = append(g.Files[:i:i], g.Files[i+1:]...)
			if g.CoverImageFileID == fileID {
				g.CoverImageFileID = ""
			}
			return nil
		}
		return fmt.Errorf("%w: %s", models.ErrUnknownFile, fileID)
	})
	return removed, err
}

func (s *Session) SetTitle(title string) error {
	return s.mutate(func(g *models.AnnotationGroup) error {
		g.Title = title
		return nil
	})
}

func (s *Session) SetDescription(desc string) error {
	return s.mutate(func(g *models.AnnotationGroup) error {
		g.Description = desc
		return nil
	})
}

func (s *Session) SetTags(tags []models.Tag) error {
	if err := models.ValidateTags(tags); err != nil {
		return err
	}
	tags = append([]models.Tag{}, tags...)
	return s.mutate(func(g *models.AnnotationGroup) error {
		g.Tags = tags
		return nil
	})
}

func (s *Session) SetFlowType(flow models.FlowType) error {
	if _, err := models.ParseFlowType(string(flow)); err != nil {
		return err
	}
	return s.mutate(func(g *models.AnnotationGroup) error {
		g.FlowType = flow
		return nil
	})
}

// SetCoverImage points the cover at fileID, or clears it when fileID is
// empty. Ids that are not in the group are rejected.
func (s *Session) SetCoverImage(fileID string) error {
	return s.mutate(func(g *models.AnnotationGroup) error {
		if fileID != "" && g.FileByID(fileID) == nil {
			return fmt.Errorf("%w: %s", models.ErrUnknownFile, fileID)
		}
		g.CoverImageFileID = fileID
		return nil
	})
}

// AnnotateFile sets the description and tags of one file.
func (s *Session) AnnotateFile(fileID, description string, tags []models.Tag) error {
	if err := models.ValidateTags(tags); err != nil {
		return err
	}
	tags = append([]models.Tag{}, tags...)
	return s.mutate(func(g *models.AnnotationGroup) error {
		f := g.FileByID(fileID)
		if f == nil {
			return fmt.Errorf("%w: %s", models.ErrUnknownFile, fileID)
		}
		at := s.now()
		f.Description = description
		f.Tags = tags
		f.AnnotatedAt = &at
		return nil
	})
}

// Apply implements upload.StatusSink.
func (s *Session) Apply(cmd upload.StatusCommand) error {
	return s.mutate(func(g *models.AnnotationGroup) error {
		f := g.FileByID(cmd.FileID)
		if f == nil {
			return fmt.Errorf("%w: %s", models.ErrUnknownFile, cmd.FileID)
		}
		return upload.Apply(f, cmd)
	})
}

func (s *Session) mutate(fn func(g *models.AnnotationGroup) error) error {
	s.mu.Lock()
	if s.group == nil {
		s.mu.Unlock()
		return ErrNoActiveGroup
	}
	if err := fn(s.group); err != nil {
		s.mu.Unlock()
		return err
	}
	s.group.UpdatedAt = s.now()
	snap := s.group.Clone()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

func (s *Session) notify(g *models.AnnotationGroup) {
	s.mu.RLock()
	observers := append([]func(models.Stats){}, s.observers...)
	s.mu.RUnlock()

	if len(observers) == 0 {
		return
	}
	stats := g.Stats()
	for _, fn := range observers {
		fn(stats)
	}
}
