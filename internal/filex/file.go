// Package filex wraps the local file primitives the upload pipeline needs:
// existence, size, reading, and deletion of captured media.
package filex

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Info describes a local file.
type Info struct {
	Exists bool
	Size   int64
	Name   string
}

// FileSystem resolves file URIs to local content.
type FileSystem interface {
	Stat(uri string) (Info, error)
	Open(uri string) (io.ReadCloser, error)
	Remove(uri string) error
}

// OS is the FileSystem backed by the host filesystem.
type OS struct{}

// LocalPath turns a file URI ("file:///a/b.jpg") or a plain path into a path.
func LocalPath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		if u, err := url.Parse(uri); err == nil {
			return filepath.FromSlash(u.Path)
		}
		return strings.TrimPrefix(uri, "file://")
	}
	return uri
}

// Stat reports Exists=false with a nil error when the file is absent.
func (OS) Stat(uri string) (Info, error) {
	p := LocalPath(uri)
	st, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{Name: filepath.Base(p)}, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("stat %s: %w", p, err)
	}
	if st.IsDir() {
		return Info{}, fmt.Errorf("stat %s: is a directory", p)
	}
	return Info{Exists: true, Size: st.Size(), Name: st.Name()}, nil
}

func (OS) Open(uri string) (io.ReadCloser, error) {
	return os.Open(LocalPath(uri))
}

// Remove deletes the file. Removing an absent file is not an error.
func (OS) Remove(uri string) error {
	err := os.Remove(LocalPath(uri))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}
