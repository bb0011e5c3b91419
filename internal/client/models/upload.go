package models

import "time"

// RemoteFileState is what the remote service knows about one file.
type RemoteFileState struct {
	FileID string `json:"file_id"`

	// Exists is reported by the per-file endpoint as ExistsPath && ExistsDB.
	Exists     bool   `json:"exists"`
	ExistsPath bool   `json:"exists_path"`
	ExistsDB   bool   `json:"exists_db"`
	Path       string `json:"path,omitempty"`

	// Known is false when the state could not be determined. Unknown files
	// are treated as missing on both sides.
	Known bool `json:"-"`
}

// FullyStored reports whether both the binary and the metadata row exist.
func (s RemoteFileState) FullyStored() bool {
	return s.ExistsPath && s.ExistsDB
}

// Stats aggregates file statuses of a group.
type Stats struct {
	Total     int
	Uploaded  int
	Pending   int
	Uploading int
	Failed    int
}

// Stats counts files by status. Pending is everything not yet uploaded.
func (g *AnnotationGroup) Stats() Stats {
	s := Stats{Total: len(g.Files)}
	for _, f := range g.Files {
		switch f.Status.Normalize() {
		case StatusUploaded:
			s.Uploaded++
		case StatusUploading:
			s.Uploading++
		case StatusError:
			s.Failed++
		}
	}
	s.Pending = s.Total - s.Uploaded
	return s
}

// GroupLink is the body of the file-to-group linking request.
type GroupLink struct {
	GroupID          string     `json:"group_id"`
	CoverImageFileID string     `json:"cover_image_file_id"`
	Files            []LinkFile `json:"files"`
}

type LinkFile struct {
	FileID string `json:"file_id"`
}

// GroupMetadata is the group record without its files.
type GroupMetadata struct {
	GroupID          string    `json:"group_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Tags             []Tag     `json:"tags"`
	FlowType         FlowType  `json:"flow_type"`
	CoverImageFileID string    `json:"cover_image_file_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Metadata strips the files off a group for the group upsert call.
func (g *AnnotationGroup) Metadata() GroupMetadata {
	tags := g.Tags
	if tags == nil {
		tags = []Tag{}
	}
	return GroupMetadata{
		GroupID:          g.GroupID,
		Title:            g.Title,
		Description:      g.Description,
		Tags:             tags,
		FlowType:         g.FlowType,
		CoverImageFileID: g.CoverImageFileID,
		CreatedAt:        g.CreatedAt,
		UpdatedAt:        g.UpdatedAt,
	}
}
