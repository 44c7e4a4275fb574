package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// GCSStore keeps the checkpoint as a single JSON object. GCS object
// replacement is atomic, which satisfies the same contract as the file
// store's temp-then-rename.
type GCSStore struct {
	journal
	client *storage.Client
	bucket string
	object string
	logger *zap.Logger
}

// NewGCSStore initializes a GCS client and verifies the bucket exists, so a
// misconfigured run fails at startup rather than at the first flush.
// Authentication uses Application Default Credentials.
func NewGCSStore(ctx context.Context, bucket, object string, logger *zap.Logger) (*GCSStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close gcs client after bucket check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("get gcs bucket %q attributes: %w", bucket, err)
	}
	return &GCSStore{
		journal: newJournal(),
		client:  client,
		bucket:  bucket,
		object:  object,
		logger:  logger,
	}, nil
}

// Load reads and parses the checkpoint object.
func (s *GCSStore) Load(ctx context.Context) error {
	r, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("%w: gs://%s/%s", ErrNotExist, s.bucket, s.object)
		}
		return fmt.Errorf("open checkpoint object: %w", err)
	}
	data, err := io.ReadAll(r)
	closeErr := r.Close()
	if err != nil {
		return fmt.Errorf("read checkpoint object: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close checkpoint reader: %w", closeErr)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return fmt.Errorf("gs://%s/%s: %w", s.bucket, s.object, err)
	}
	s.adopt(rec)
	return nil
}

// Flush overwrites the checkpoint object with the current state.
func (s *GCSStore) Flush(ctx context.Context) error {
	data, err := s.marshal()
	if err != nil {
		return err
	}
	w := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			s.logger.Warn("close gcs writer after write failure", zap.Error(closeErr))
		}
		return fmt.Errorf("write checkpoint object: %w", err)
	}
	// Close finalizes the upload; the object only becomes visible here.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize checkpoint object: %w", err)
	}
	return nil
}

// Close releases the GCS client.
func (s *GCSStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}
