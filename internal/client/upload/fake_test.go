package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/liferepo/internal/client/client"
	"github.com/dmitrijs2005/liferepo/internal/client/models"
	"github.com/dmitrijs2005/liferepo/internal/filex"
)

var errNetwork = errors.New("connection reset")

// fakeRemote is an in-memory remote store that records every call.
type fakeRemote struct {
	mu sync.Mutex

	paths  map[string]string
	rows   map[string]bool
	groups map[string]models.GroupMetadata
	links  []models.GroupLink

	uploads      []string
	inserts      []string
	descUpdates  []string
	tagUpdates   []string
	statusCalls  int
	existsCalls  []string
	inFlight     int
	maxInFlight  int
	uploadDelay  time.Duration
	failGroup    error
	failStatus   error
	failLink     error
	failUpload   map[string]error
	failInsert   map[string]error
	failExists   map[string]error
	failDescribe map[string]error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		paths:        map[string]string{},
		rows:         map[string]bool{},
		groups:       map[string]models.GroupMetadata{},
		failUpload:   map[string]error{},
		failInsert:   map[string]error{},
		failExists:   map[string]error{},
		failDescribe: map[string]error{},
	}
}

// store marks a file as fully stored remotely.
func (f *fakeRemote) store(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths[id] = "/remote/" + id
	f.rows[id] = true
}

func (f *fakeRemote) state(id string) models.RemoteFileState {
	p, hasPath := f.paths[id]
	return models.RemoteFileState{
		FileID:     id,
		Exists:     hasPath && f.rows[id],
		ExistsPath: hasPath,
		ExistsDB:   f.rows[id],
		Path:       p,
	}
}

func (f *fakeRemote) Ping(context.Context) error { return nil }

func (f *fakeRemote) FileExists(_ context.Context, id string) (models.RemoteFileState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existsCalls = append(f.existsCalls, id)
	if err := f.failExists[id]; err != nil {
		return models.RemoteFileState{}, err
	}
	return f.state(id), nil
}

func (f *fakeRemote) GroupStatus(_ context.Context, _ string, ids []string) ([]models.RemoteFileState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.failStatus != nil {
		return nil, f.failStatus
	}
	out := make([]models.RemoteFileState, 0, len(ids))
	for _, id := range ids {
		s := f.state(id)
		out = append(out, models.RemoteFileState{FileID: id, ExistsPath: s.ExistsPath, ExistsDB: s.ExistsDB})
	}
	return out, nil
}

func (f *fakeRemote) UploadFile(_ context.Context, req client.UploadRequest) (string, error) {
	f.mu.Lock()
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	delay := f.uploadDelay
	f.mu.Unlock()

	_, _ = io.ReadAll(req.Content)
	time.Sleep(delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	f.uploads = append(f.uploads, req.FileID)
	if err := f.failUpload[req.FileID]; err != nil {
		return "", err
	}
	p := "/remote/" + req.FileID
	f.paths[req.FileID] = p
	return p, nil
}

func (f *fakeRemote) UpsertGroup(_ context.Context, g models.GroupMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGroup != nil {
		return f.failGroup
	}
	f.groups[g.GroupID] = g
	return nil
}

func (f *fakeRemote) InsertFile(_ context.Context, file models.FileAnnotation, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts = append(f.inserts, file.FileID)
	if err := f.failInsert[file.FileID]; err != nil {
		return err
	}
	f.rows[file.FileID] = true
	return nil
}

func (f *fakeRemote) UpdateFileDescriptions(_ context.Context, file models.FileAnnotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.descUpdates = append(f.descUpdates, file.FileID)
	return f.failDescribe[file.FileID]
}

func (f *fakeRemote) UpdateFileTags(_ context.Context, file models.FileAnnotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tagUpdates = append(f.tagUpdates, file.FileID)
	return nil
}

func (f *fakeRemote) LinkFiles(_ context.Context, link models.GroupLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLink != nil {
		return f.failLink
	}
	f.links = append(f.links, link)
	return nil
}

func (f *fakeRemote) DeleteFile(context.Context, string) error { return nil }

func (f *fakeRemote) GetGroup(context.Context, string) (*models.AnnotationGroup, error) {
	return nil, client.ErrNotFound
}

func (f *fakeRemote) GroupIDs(context.Context) ([]string, error) { return nil, nil }

func (f *fakeRemote) networkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads) + len(f.inserts) + len(f.descUpdates) + len(f.tagUpdates)
}

// fakeFS serves file contents from memory.
type fakeFS struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeFS() *fakeFS {
	return &fakeFS{files: map[string][]byte{}}
}

func (f *fakeFS) put(uri string, size int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[uri] = bytes.Repeat([]byte{'x'}, size)
}

func (f *fakeFS) Stat(uri string) (filex.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.files[uri]
	if !ok {
		return filex.Info{Name: uri}, nil
	}
	return filex.Info{Exists: true, Size: int64(len(b)), Name: uri}, nil
}

func (f *fakeFS) Open(uri string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.files[uri]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeFS) Remove(uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, uri)
	return nil
}
