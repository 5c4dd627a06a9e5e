package campaign

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"dialer/internal/fileutil"
	"dialer/internal/preflight"
)

// ExportFileName is the name given to exported directories.
const ExportFileName = "businesses.csv"

// FileSaver stores a downloaded file and returns where it went.
type FileSaver interface {
	Save(ctx context.Context, name string, content io.Reader) (string, error)
}

// DirSaver writes files into one local directory.
type DirSaver struct {
	Dir string
}

// Save checks that the directory is writable and streams content into
// Dir/name, replacing any previous file atomically.
func (s DirSaver) Save(ctx context.Context, name string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if check := preflight.CheckDirectoryAccess("Export directory", dir); !check.Passed {
		return "", fmt.Errorf("export directory not writable: %s", check.Detail)
	}
	dst := filepath.Join(dir, filepath.Base(name))
	if _, err := fileutil.WriteFileAtomic(dst, content, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}
