package covers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// PublicPrefix is the URL prefix the HTTP layer serves stored covers under.
const PublicPrefix = "/uploads/covers"

// FSStore writes covers to a local directory.
type FSStore struct {
	root string
}

// NewFSStore creates the storage directory if it does not exist. A relative
// dir is resolved against the working directory.
func NewFSStore(dirName string) (*FSStore, error) {
	dir := dirName
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dirName)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return &FSStore{root: dir}, nil
}

func (s *FSStore) Save(ctx context.Context, name string, write func(io.Writer) error) (string, error) {
	if strings.ContainsAny(name, `/\`) || name == "" {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(s.root, name)

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", dst, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("close %s: %w", dst, err)
	}

	return path.Join(PublicPrefix, name), nil
}

// Root returns the directory covers are written to, for serving via HTTP.
func (s *FSStore) Root() string {
	return s.root
}
