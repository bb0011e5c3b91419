package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGroup(t *testing.T) *AnnotationGroup {
	t.Helper()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	g := NewGroup(FlowGroupThenIndividual, now)
	g.Files = append(g.Files,
		NewFile("/tmp/a.jpg", json.RawMessage(`{"w":1}`), now),
		NewFile("/tmp/b.jpg", nil, now.Add(time.Second)),
	)
	return g
}

func TestValidate_OK(t *testing.T) {
	g := sampleGroup(t)
	g.Tags = []Tag{{Label: "beach"}, {Label: "sunset", Featured: true}}
	g.CoverImageFileID = g.Files[1].FileID
	require.NoError(t, g.Validate())
}

func TestValidate_CoverImageMustReferenceFile(t *testing.T) {
	g := sampleGroup(t)
	g.CoverImageFileID = "missing"
	require.ErrorIs(t, g.Validate(), ErrUnknownFile)
}

func TestValidate_DuplicateTagLabels(t *testing.T) {
	g := sampleGroup(t)
	g.Tags = []Tag{{Label: "x"}, {Label: "x", ID: "2"}}
	require.ErrorIs(t, g.Validate(), ErrDuplicateTag)
}

func TestValidate_Shape(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *AnnotationGroup)
	}{
		{"empty id", func(g *AnnotationGroup) { g.GroupID = "" }},
		{"bad flow", func(g *AnnotationGroup) { g.FlowType = "sideways" }},
		{"empty tag", func(g *AnnotationGroup) { g.Tags = []Tag{{Label: ""}} }},
		{"duplicate file", func(g *AnnotationGroup) { g.Files[1].FileID = g.Files[0].FileID }},
		{"empty file id", func(g *AnnotationGroup) { g.Files[0].FileID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := sampleGroup(t)
			tt.mutate(g)
			require.ErrorIs(t, g.Validate(), ErrInvalidGroup)
		})
	}
}

func TestClone_IsDeep(t *testing.T) {
	g := sampleGroup(t)
	now := time.Now()
	g.Files[0].AnnotatedAt = &now
	g.Files[0].Tags = []Tag{{Label: "a"}}

	c := g.Clone()
	c.Files[0].Tags[0].Label = "changed"
	c.Files[0].Metadata[2] = 'X'
	*c.Files[0].AnnotatedAt = now.Add(time.Hour)
	c.Files = append(c.Files, NewFile("/tmp/c.jpg", nil, now))

	assert.Equal(t, "a", g.Files[0].Tags[0].Label)
	assert.Equal(t, `{"w":1}`, string(g.Files[0].Metadata))
	assert.True(t, g.Files[0].AnnotatedAt.Equal(now))
	assert.Len(t, g.Files, 2)
}

func TestNeedsAnnotationSync(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	f := FileAnnotation{}
	assert.False(t, f.NeedsAnnotationSync(), "never annotated")

	f.AnnotatedAt = &t0
	assert.True(t, f.NeedsAnnotationSync(), "annotated, never uploaded")

	f.UploadedAt = &t1
	assert.False(t, f.NeedsAnnotationSync(), "uploaded after annotation")

	f.AnnotatedAt = &t1
	f.UploadedAt = &t0
	assert.True(t, f.NeedsAnnotationSync(), "annotated after upload")
}

func TestStats(t *testing.T) {
	g := sampleGroup(t)
	g.Files = append(g.Files, NewFile("/tmp/c.jpg", nil, time.Now()), NewFile("/tmp/d.jpg", nil, time.Now()))
	g.Files[0].Status = StatusUploaded
	g.Files[1].Status = StatusError
	g.Files[2].Status = StatusUploading
	g.Files[3].Status = ""

	assert.Equal(t, Stats{Total: 4, Uploaded: 1, Pending: 3, Uploading: 1, Failed: 1}, g.Stats())
}

func TestMetadata_OmitsFiles(t *testing.T) {
	g := sampleGroup(t)
	g.Tags = nil

	b, err := json.Marshal(g.Metadata())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.NotContains(t, m, "files")
	assert.Equal(t, g.GroupID, m["group_id"])
	assert.Equal(t, []any{}, m["tags"])
}

func TestParseFlowType(t *testing.T) {
	f, err := ParseFlowType("individual-then-group")
	require.NoError(t, err)
	assert.Equal(t, FlowIndividualThenGroup, f)

	_, err = ParseFlowType("nope")
	require.Error(t, err)
}

func TestFileStatus_JSONZeroValueIsIdle(t *testing.T) {
	var f FileAnnotation
	require.NoError(t, json.Unmarshal([]byte(`{"file_id":"x","uri":"/a"}`), &f))
	assert.Equal(t, StatusIdle, f.Status.Normalize())
}
