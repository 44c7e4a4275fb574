package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FileStore persists the checkpoint as a JSON file, using a
// write-to-temp-then-rename discipline so a crash mid-write never corrupts
// the last good checkpoint.
type FileStore struct {
	journal
	path   string
	logger *zap.Logger
}

// NewFileStore builds a FileStore rooted at path. The parent directory is
// created on first flush.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("checkpoint path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{journal: newJournal(), path: path, logger: logger}, nil
}

// Load reads and parses the checkpoint file.
func (s *FileStore) Load(_ context.Context) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotExist, s.path)
		}
		return fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", s.path, err)
	}
	s.adopt(rec)
	s.logger.Debug("checkpoint loaded",
		zap.String("path", s.path),
		zap.Int("processed", len(rec.Processed)),
		zap.Int("failed", len(rec.Failed)),
	)
	return nil
}

// Flush writes the current state to a temp file in the checkpoint's
// directory and renames it over the target.
func (s *FileStore) Flush(_ context.Context) error {
	data, err := s.marshal()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		if rmErr := os.Remove(tmpName); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Warn("remove stale checkpoint temp file", zap.Error(rmErr))
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write checkpoint temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync checkpoint temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace checkpoint file: %w", err)
	}
	return nil
}

// Close implements Store; the file store holds no open resources.
func (s *FileStore) Close() error { return nil }
