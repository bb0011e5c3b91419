// Package models defines client-side data models for annotation groups and
// the files they contain.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidGroup = errors.New("invalid annotation group")
	ErrUnknownFile  = errors.New("file is not part of the group")
	ErrDuplicateTag = errors.New("duplicate tag label")
)

// FileStatus is the upload state of a single file.
type FileStatus string

const (
	StatusIdle      FileStatus = "idle"
	StatusUploading FileStatus = "uploading"
	StatusUploaded  FileStatus = "uploaded"
	StatusError     FileStatus = "error"
)

// Normalize maps the empty value (files created before any upload attempt)
// to StatusIdle.
func (s FileStatus) Normalize() FileStatus {
	if s == "" {
		return StatusIdle
	}
	return s
}

// FlowType selects the UI sequencing of a group. It has no effect on upload.
type FlowType string

const (
	FlowIndividualThenGroup FlowType = "individual-then-group"
	FlowGroupThenIndividual FlowType = "group-then-individual"
)

func ParseFlowType(s string) (FlowType, error) {
	switch FlowType(s) {
	case FlowIndividualThenGroup, FlowGroupThenIndividual:
		return FlowType(s), nil
	}
	return "", fmt.Errorf("unknown flow type %q", s)
}

// Tag is a label attached to a group or a file.
type Tag struct {
	ID       string `json:"id,omitempty"`
	Label    string `json:"label"`
	Featured bool   `json:"featured,omitempty"`
}

// FileAnnotation is the per-file annotation and upload state.
type FileAnnotation struct {
	// FileID is stable for the life of the file, independent of URI changes.
	FileID string `json:"file_id"`

	// URI points at the local binary content. Never mutated once set.
	URI string `json:"uri"`

	Description string `json:"description"`
	Tags        []Tag  `json:"tags"`

	Status FileStatus `json:"status,omitempty"`

	// AddedAt is set once at creation and orders duplicate-URI merges.
	AddedAt     time.Time  `json:"added_at"`
	AnnotatedAt *time.Time `json:"annotated_at,omitempty"`
	UploadedAt  *time.Time `json:"uploaded_at,omitempty"`

	// Metadata is opaque capture metadata (duration, exif), passed through as is.
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// NewFile creates an idle file annotation with a fresh identifier.
func NewFile(uri string, metadata json.RawMessage, now time.Time) FileAnnotation {
	return FileAnnotation{
		FileID:   uuid.NewString(),
		URI:      uri,
		Tags:     []Tag{},
		Status:   StatusIdle,
		AddedAt:  now,
		Metadata: metadata,
	}
}

// NeedsAnnotationSync reports whether the local description or tags were
// edited after the last successful upload.
func (f *FileAnnotation) NeedsAnnotationSync() bool {
	if f.AnnotatedAt == nil {
		return false
	}
	if f.UploadedAt == nil {
		return true
	}
	return f.AnnotatedAt.After(*f.UploadedAt)
}

// Clone returns a deep copy of f.
func (f FileAnnotation) Clone() FileAnnotation {
	c := f
	if f.Tags != nil {
		c.Tags = append([]Tag(nil), f.Tags...)
	}
	if f.AnnotatedAt != nil {
		t := *f.AnnotatedAt
		c.AnnotatedAt = &t
	}
	if f.UploadedAt != nil {
		t := *f.UploadedAt
		c.UploadedAt = &t
	}
	if f.Metadata != nil {
		c.Metadata = append(json.RawMessage(nil), f.Metadata...)
	}
	return c
}

// AnnotationGroup is a collection of files sharing title, description and tags.
type AnnotationGroup struct {
	GroupID          string           `json:"group_id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Tags             []Tag            `json:"tags"`
	Files            []FileAnnotation `json:"files"`
	FlowType         FlowType         `json:"flow_type"`
	CoverImageFileID string           `json:"cover_image_file_id,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewGroup creates an empty group with a fresh identifier.
func NewGroup(flow FlowType, now time.Time) *AnnotationGroup {
	return &AnnotationGroup{
		GroupID:   uuid.NewString(),
		Tags:      []Tag{},
		Files:     []FileAnnotation{},
		FlowType:  flow,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FileByID returns a pointer into g.Files, or nil.
func (g *AnnotationGroup) FileByID(id string) *FileAnnotation {
	for i := range g.Files {
		if g.Files[i].FileID == id {
			return &g.Files[i]
		}
	}
	return nil
}

func (g *AnnotationGroup) FileIDs() []string {
	ids := make([]string, 0, len(g.Files))
	for _, f := range g.Files {
		ids = append(ids, f.FileID)
	}
	return ids
}

// Clone returns a deep copy of g.
func (g *AnnotationGroup) Clone() *AnnotationGroup {
	c := *g
	if g.Tags != nil {
		c.Tags = append([]Tag(nil), g.Tags...)
	}
	if g.Files != nil {
		c.Files = make([]FileAnnotation, len(g.Files))
		for i, f := range g.Files {
			c.Files[i] = f.Clone()
		}
	}
	return &c
}

// Validate checks the shape of a group at the API boundary.
func (g *AnnotationGroup) Validate() error {
	if g.GroupID == "" {
		return fmt.Errorf("%w: empty group_id", ErrInvalidGroup)
	}
	if _, err := ParseFlowType(string(g.FlowType)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGroup, err)
	}
	if err := ValidateTags(g.Tags); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(g.Files))
	for _, f := range g.Files {
		if f.FileID == "" {
			return fmt.Errorf("%w: file with empty file_id", ErrInvalidGroup)
		}
		if _, dup := seen[f.FileID]; dup {
			return fmt.Errorf("%w: duplicate file_id %s", ErrInvalidGroup, f.FileID)
		}
		seen[f.FileID] = struct{}{}
	}

	if g.CoverImageFileID != "" {
		if _, ok := seen[g.CoverImageFileID]; !ok {
			return fmt.Errorf("%w: cover image %s", ErrUnknownFile, g.CoverImageFileID)
		}
	}
	return nil
}

// ValidateTags rejects empty and repeated labels.
func ValidateTags(tags []Tag) error {
	labels := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t.Label == "" {
			return fmt.Errorf("%w: empty tag label", ErrInvalidGroup)
		}
		if _, dup := labels[t.Label]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateTag, t.Label)
		}
		labels[t.Label] = struct{}{}
	}
	return nil
}
