package evidence

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FSStore stores blobs on the local file system, sharded by the first two
// hex characters of the digest: <base>/ab/<digest>.
type FSStore struct {
	basePath string
}

// NewFSStore creates the base directory if needed.
func NewFSStore(basePath string) (*FSStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create evidence directory: %w", err)
	}
	return &FSStore{basePath: basePath}, nil
}

func (s *FSStore) Put(ctx context.Context, r io.Reader) (string, error) {
	// Blobs are small (documents, photos); buffer once for hashing + writing.
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read blob content: %w", err)
	}

	sum := sha256.Sum256(content)
	ref := hex.EncodeToString(sum[:])

	fullPath := s.path(ref)
	if _, err := os.Stat(fullPath); err == nil {
		// Already stored under this content address.
		return ref, nil
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create shard directory: %w", err)
	}

	// Write to a temp file and rename so a crash never leaves a partial
	// blob under a valid content address.
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, bytes.NewReader(content)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write blob content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to finalize blob: %w", err)
	}

	return ref, nil
}

func (s *FSStore) Get(ctx context.Context, ref string) (io.ReadCloser, error) {
	if !ValidRef(ref) {
		return nil, ErrInvalidRef
	}
	file, err := os.Open(s.path(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return file, nil
}

func (s *FSStore) path(ref string) string {
	return filepath.Join(s.basePath, ref[:2], ref)
}
