package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/liferepo/internal/client/models"
)

// savedGroup is the body of GET /annotations/group/{group_id}. Tags arrive
// as bare tag ids, text fields may be null and timestamps are database
// values with or without a zone.
type savedGroup struct {
	GroupID          string      `json:"group_id"`
	Title            *string     `json:"title"`
	Description      *string     `json:"description"`
	Tags             []wireTag   `json:"tags"`
	Files            []savedFile `json:"files"`
	FlowType         string      `json:"flow_type"`
	CoverImageFileID string      `json:"cover_image_file_id"`
	CreatedAt        serverTime  `json:"created_at"`
	UpdatedAt        serverTime  `json:"updated_at"`
}

type savedFile struct {
	FileID      string          `json:"file_id"`
	URI         *string         `json:"uri"`
	Description *string         `json:"description"`
	Tags        []wireTag       `json:"tags"`
	AnnotatedAt serverTime      `json:"annotated_at"`
	AddedAt     serverTime      `json:"added_at"`
	UploadedAt  serverTime      `json:"uploaded_at"`
	Metadata    json.RawMessage `json:"metadata"`
}

// wireTag accepts a tag id string or a full tag object.
type wireTag models.Tag

func (t *wireTag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*t = wireTag{ID: id, Label: id}
		return nil
	}
	var tag models.Tag
	if err := json.Unmarshal(b, &tag); err != nil {
		return err
	}
	if tag.Label == "" {
		tag.Label = tag.ID
	}
	*t = wireTag(tag)
	return nil
}

var serverTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// serverTime is a timestamp as the server's database renders it. Values
// without a zone are taken as UTC; null and "" leave it zero.
type serverTime struct {
	time.Time
}

func (t *serverTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range serverTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

func (t serverTime) ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toTags(in []wireTag) []models.Tag {
	out := make([]models.Tag, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		if t.Label == "" {
			continue
		}
		if _, dup := seen[t.Label]; dup {
			continue
		}
		seen[t.Label] = struct{}{}
		out = append(out, models.Tag(t))
	}
	return out
}

// group converts the payload into a group that passes Validate. Every file
// is marked uploaded.
func (w savedGroup) group(fallbackID string) *models.AnnotationGroup {
	g := &models.AnnotationGroup{
		GroupID:     w.GroupID,
		Title:       deref(w.Title),
		Description: deref(w.Description),
		Tags:        toTags(w.Tags),
		FlowType:    models.FlowType(w.FlowType),
		CreatedAt:   w.CreatedAt.Time,
		UpdatedAt:   w.UpdatedAt.Time,
		Files:       make([]models.FileAnnotation, 0, len(w.Files)),
	}
	if g.GroupID == "" {
		g.GroupID = fallbackID
	}
	if _, err := models.ParseFlowType(w.FlowType); err != nil {
		g.FlowType = models.FlowIndividualThenGroup
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = g.CreatedAt
	}

	seen := make(map[string]struct{}, len(w.Files))
	for _, f := range w.Files {
		if f.FileID == "" {
			continue
		}
		if _, dup := seen[f.FileID]; dup {
			continue
		}
		seen[f.FileID] = struct{}{}

		var meta json.RawMessage
		if m := bytes.TrimSpace(f.Metadata); len(m) > 0 && string(m) != "null" {
			meta = append(json.RawMessage(nil), m...)
		}
		uploaded := f.UploadedAt.ptr()
		if uploaded == nil {
			uploaded = f.AddedAt.ptr()
		}
		g.Files = append(g.Files, models.FileAnnotation{
			FileID:      f.FileID,
			URI:         deref(f.URI),
			Description: deref(f.Description),
			Tags:        toTags(f.Tags),
			Status:      models.StatusUploaded,
			AddedAt:     f.AddedAt.Time,
			AnnotatedAt: f.AnnotatedAt.ptr(),
			UploadedAt:  uploaded,
			Metadata:    meta,
		})
	}
	if _, ok := seen[w.CoverImageFileID]; ok {
		g.CoverImageFileID = w.CoverImageFileID
	}
	return g
}
