package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"filegate/internal/config"
	"filegate/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// S3Storage stores files in an S3-compatible bucket, content-addressed
// by file name. Works against MinIO and R2 via a custom endpoint.
type S3Storage struct {
	bucket   string
	uploader *manager.Uploader
	client   *s3.Client
	logger   *zap.SugaredLogger
}

func NewS3Storage(cfg *config.Config, logger *zap.SugaredLogger) (*S3Storage, error) {
	if !cfg.S3Configured() {
		return nil, fmt.Errorf("s3 backend is not configured")
	}

	s3Opts := []func(*s3.Options){}
	if cfg.S3Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true // required for MinIO
		})
	}

	credsProvider := credentials.NewStaticCredentialsProvider(
		cfg.S3AccessKeyID,
		cfg.S3SecretAccessKey,
		"",
	)

	awsCfg := aws.Config{
		Region:      cfg.S3Region,
		Credentials: credsProvider,
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	return &S3Storage{
		bucket:   cfg.S3BucketName,
		uploader: manager.NewUploader(client),
		client:   client,
		logger:   logger,
	}, nil
}

func (s *S3Storage) Type() model.StorageType {
	return model.StorageS3
}

func (s *S3Storage) Put(ctx context.Context, data []byte, name, mimeType string) (PutResult, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return PutResult{}, fmt.Errorf("%w: s3 upload %s: %v", ErrUpstream, name, err)
	}

	return PutResult{
		Ref:  Ref{Key: name},
		Size: int64(len(data)),
	}, nil
}

func (s *S3Storage) Get(ctx context.Context, ref Ref) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: s3 object %s", ErrNotFound, ref.Key)
		}
		return nil, fmt.Errorf("%w: s3 get %s: %v", ErrUpstream, ref.Key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: s3 read %s: %v", ErrUpstream, ref.Key, err)
	}
	return data, nil
}

func (s *S3Storage) Delete(ctx context.Context, ref Ref) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		// best-effort: the registry-level delete proceeds regardless
		s.logger.Warnw("s3 delete failed", "key", ref.Key, "error", err)
		return fmt.Errorf("%w: s3 delete %s: %v", ErrUpstream, ref.Key, err)
	}
	return nil
}

// Copy duplicates an object under a new key; used by rename before the
// old key is deleted.
func (s *S3Storage) Copy(ctx context.Context, oldKey, newKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(url.PathEscape(s.bucket + "/" + oldKey)),
		Key:        aws.String(newKey),
	})
	if err != nil {
		return fmt.Errorf("%w: s3 copy %s -> %s: %v", ErrUpstream, oldKey, newKey, err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
