package filestore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"
)

// ErrInvalidPath is returned for empty, absolute or traversing paths.
var ErrInvalidPath = errors.New("filestore: invalid path")

// Object is an open file. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Source opens files by relative path.
type Source interface {
	Open(ctx context.Context, name string) (*Object, error)
}

// CleanPath normalizes name to a slash-separated relative path, rejecting
// anything that would escape the source root.
func CleanPath(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || strings.HasPrefix(name, "/") || strings.ContainsRune(name, 0) {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	cleaned := path.Clean(name)
	if cleaned == "." || !fs.ValidPath(cleaned) {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
