package service

import (
	"context"
	"fmt"

	"filegate/internal/model"
)

// Ref locates content inside a backend: Key is an S3 object key or a
// Telegram file_id, MessageID is the Telegram message holding the
// attachment (0 for S3).
type Ref struct {
	Key       string
	MessageID int
}

// PutResult is what a successful backend write hands back to the
// registry for persisting.
type PutResult struct {
	Ref  Ref
	Size int64
}

// Backend is the uniform capability over the two stores. Backends are
// stateless; all durable state lives in the file registry.
type Backend interface {
	Put(ctx context.Context, data []byte, name, mimeType string) (PutResult, error)
	Get(ctx context.Context, ref Ref) ([]byte, error)
	// Delete is best-effort and idempotent: deleting content that is
	// already gone is not an error.
	Delete(ctx context.Context, ref Ref) error
	Type() model.StorageType
}

// Copier is the optional server-side copy capability; backends that
// implement it let rename skip the download + re-upload round trip.
type Copier interface {
	Copy(ctx context.Context, oldKey, newKey string) error
}

// Selector picks the backend for an upload. S3 requests silently fall
// back to Telegram when the object store is not configured.
type Selector struct {
	s3       Backend
	telegram Backend
}

func NewSelector(s3, telegram Backend) *Selector {
	return &Selector{s3: s3, telegram: telegram}
}

func (s *Selector) Pick(storageType model.StorageType) Backend {
	if storageType == model.StorageS3 && s.s3 != nil {
		return s.s3
	}
	return s.telegram
}

// ForFile resolves the backend that holds an existing file's bytes.
func (s *Selector) ForFile(file *model.File) (Backend, error) {
	switch file.StorageType {
	case model.StorageS3:
		if s.s3 == nil {
			return nil, fmt.Errorf("%w: object store not configured", ErrUpstream)
		}
		return s.s3, nil
	case model.StorageTelegram:
		return s.telegram, nil
	default:
		return nil, fmt.Errorf("%w: unknown storage type %q", ErrValidation, file.StorageType)
	}
}
