package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pantrylabs/pantry/internal/domain"
)

// FilesystemBackend implements Backend using the local filesystem.
// Suitable for single-node deployments; keys map directly to paths
// under the configured data directory.
type FilesystemBackend struct {
	baseDir string
	logger  zerolog.Logger
}

// NewFilesystemBackend creates a filesystem backend rooted at baseDir.
func NewFilesystemBackend(baseDir string, logger zerolog.Logger) (*FilesystemBackend, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	logger.Info().Str("dir", baseDir).Msg("filesystem storage ready")

	return &FilesystemBackend{
		baseDir: baseDir,
		logger:  logger,
	}, nil
}

// Store writes content under the given key.
// Writes to a temp file first, then renames, so readers never observe
// a partially written image.
func (b *FilesystemBackend) Store(ctx context.Context, key string, reader io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dest := b.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, reader)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write content: %w", err)
	}

	if size >= 0 && written != size {
		os.Remove(tmpName)
		return fmt.Errorf("size mismatch: expected %d bytes, wrote %d", size, written)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize file: %w", err)
	}

	b.logger.Debug().Str("key", key).Int64("size", written).Msg("stored file")
	return nil
}

// Retrieve opens the content stored under key.
func (b *FilesystemBackend) Retrieve(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(b.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, nil
}

// Delete removes the content stored under key.
func (b *FilesystemBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(b.fullPath(key)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	b.logger.Debug().Str("key", key).Msg("deleted file")
	return nil
}

// Exists checks if an object is stored under key.
func (b *FilesystemBackend) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(b.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}

	return true, nil
}

// fullPath maps a storage key to an absolute filesystem path.
func (b *FilesystemBackend) fullPath(key string) string {
	return filepath.Join(b.baseDir, filepath.FromSlash(key))
}

// Ensure FilesystemBackend implements Backend.
var _ Backend = (*FilesystemBackend)(nil)
