package upload

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/liferepo/internal/client/client"
	"github.com/dmitrijs2005/liferepo/internal/client/models"
	"github.com/dmitrijs2005/liferepo/internal/filex"
)

// DefaultMaxFileSize is the largest binary accepted for transfer.
const DefaultMaxFileSize int64 = 10_000_000

// Transfer carries one file to the remote store.
type Transfer struct {
	client  client.Client
	fs      filex.FileSystem
	maxSize int64
}

func NewTransfer(c client.Client, fs filex.FileSystem, maxSize int64) *Transfer {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Transfer{client: c, fs: fs, maxSize: maxSize}
}

// Upload sends whatever the remote is missing for f: the binary when
// !state.ExistsPath, the metadata row when !state.ExistsDB, then the
// description and tags. It reports whether a binary was transferred.
func (t *Transfer) Upload(ctx context.Context, f models.FileAnnotation, state models.RemoteFileState) (bool, error) {
	path := state.Path
	transferred := false

	if !state.ExistsPath {
		p, err := t.sendBinary(ctx, f)
		if err != nil {
			return false, err
		}
		transferred = true
		if p != "" {
			path = p
		}
	}

	if !state.ExistsDB {
		if err := t.client.InsertFile(ctx, f, path); err != nil {
			return transferred, fmt.Errorf("insert file %s: %w", f.FileID, err)
		}
	}

	return transferred, t.UpdateAnnotations(ctx, f)
}

// UpdateAnnotations pushes the file's description and tags.
func (t *Transfer) UpdateAnnotations(ctx context.Context, f models.FileAnnotation) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := t.client.UpdateFileDescriptions(ctx, f); err != nil {
			return fmt.Errorf("update description of %s: %w", f.FileID, err)
		}
		return nil
	})
	g.Go(func() error {
		if err := t.client.UpdateFileTags(ctx, f); err != nil {
			return fmt.Errorf("update tags of %s: %w", f.FileID, err)
		}
		return nil
	})
	return g.Wait()
}

func (t *Transfer) sendBinary(ctx context.Context, f models.FileAnnotation) (string, error) {
	info, err := t.fs.Stat(f.URI)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", f.FileID, err)
	}
	if !info.Exists {
		return "", fmt.Errorf("%w: %s", ErrFileMissing, f.URI)
	}
	if info.Size > t.maxSize {
		return "", fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, f.FileID, info.Size, t.maxSize)
	}

	r, err := t.fs.Open(f.URI)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", f.FileID, err)
	}
	defer r.Close()

	path, err := t.client.UploadFile(ctx, client.UploadRequest{
		FileID:      f.FileID,
		FileName:    info.Name,
		ContentType: contentType(info.Name),
		Content:     r,
		Metadata:    f.Metadata,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", f.FileID, err)
	}
	return path, nil
}

func contentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	if ext == "" {
		return "application/octet-stream"
	}
	return "image/" + strings.TrimPrefix(ext, ".")
}
