package filestore

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
)

// Local serves files under a directory. Lookups go through [os.Root], so
// symlinks cannot lead outside dir either.
type Local struct {
	root *os.Root
}

// NewLocal opens dir as the source root.
func NewLocal(dir string) (*Local, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("filestore: open root: %w", err)
	}
	return &Local{root: root}, nil
}

// Open implements Source.
func (l *Local) Open(ctx context.Context, name string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cleaned, err := CleanPath(name)
	if err != nil {
		return nil, err
	}
	f, err := l.root.Open(cleaned)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("filestore: %s is a directory: %w", cleaned, os.ErrNotExist)
	}

	contentType := mime.TypeByExtension(path.Ext(cleaned))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Object{
		Body:        f,
		Size:        info.Size(),
		ContentType: contentType,
		ModTime:     info.ModTime(),
	}, nil
}

// Close releases the root directory handle.
func (l *Local) Close() error {
	return l.root.Close()
}
