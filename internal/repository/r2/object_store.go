package r2

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"beps/internal/domain"
	"beps/internal/domain/repositories"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ObjectStore implements repositories.ObjectStore on an S3-compatible bucket
type ObjectStore struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	logger    *slog.Logger
}

// Put uploads body to key
func (s *ObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return translate("put", key, err)
	}
	return nil
}

// Head returns object metadata
func (s *ObjectStore) Head(ctx context.Context, key string) (*repositories.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translate("head", key, err)
	}
	return &repositories.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         aws.ToString(out.ETag),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

// Get opens the object body. The caller closes it.
func (s *ObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, *repositories.ObjectInfo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, translate("get", key, err)
	}
	return out.Body, &repositories.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         aws.ToString(out.ETag),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

// Copy duplicates srcKey to dstKey within the bucket
func (s *ObjectStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource(s.bucket, srcKey)),
	})
	if err != nil {
		return translate("copy", srcKey, err)
	}
	s.logger.Debug("object copied", "src_key", srcKey, "dst_key", dstKey)
	return nil
}

// Delete removes key. S3 reports success for missing keys.
func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return translate("delete", key, err)
	}
	return nil
}

// Presign returns a signed GET or PUT URL
func (s *ObjectStore) Presign(ctx context.Context, method, key string, expires time.Duration) (string, error) {
	opt := s3.WithPresignExpires(expires)

	switch strings.ToUpper(method) {
	case http.MethodGet:
		req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}, opt)
		if err != nil {
			return "", translate("presign", key, err)
		}
		return req.URL, nil
	case http.MethodPut:
		req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}, opt)
		if err != nil {
			return "", translate("presign", key, err)
		}
		return req.URL, nil
	default:
		return "", &domain.ValidationError{Message: fmt.Sprintf("cannot presign %s", method)}
	}
}

// copySource escapes every key segment; keys carry U+2044 and spaces.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

// translate maps SDK errors onto domain sentinels.
func translate(op, key string, err error) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return fmt.Errorf("%s %s: %w", op, key, domain.ErrNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return fmt.Errorf("%s %s: %w", op, key, domain.ErrNotFound)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return fmt.Errorf("%s %s: %w: %s", op, key, domain.ErrStorageUnavailable, apiErr.ErrorCode())
		}
		return fmt.Errorf("%s %s: %w", op, key, err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", op, key, err)
	}

	// No API response at all: DNS, TLS or connection failure.
	return fmt.Errorf("%s %s: %w: %w", op, key, domain.ErrStorageUnavailable, err)
}

// unavailableStore stands in when no credentials are configured.
type unavailableStore struct{}

func (unavailableStore) Put(context.Context, string, io.Reader, int64, string) error {
	return fmt.Errorf("put: %w", domain.ErrStorageUnavailable)
}

func (unavailableStore) Head(context.Context, string) (*repositories.ObjectInfo, error) {
	return nil, fmt.Errorf("head: %w", domain.ErrStorageUnavailable)
}

func (unavailableStore) Get(context.Context, string) (io.ReadCloser, *repositories.ObjectInfo, error) {
	return nil, nil, fmt.Errorf("get: %w", domain.ErrStorageUnavailable)
}

func (unavailableStore) Copy(context.Context, string, string) error {
	return fmt.Errorf("copy: %w", domain.ErrStorageUnavailable)
}

func (unavailableStore) Delete(context.Context, string) error {
	return fmt.Errorf("delete: %w", domain.ErrStorageUnavailable)
}

func (unavailableStore) Presign(context.Context, string, string, time.Duration) (string, error) {
	return "", fmt.Errorf("presign: %w", domain.ErrStorageUnavailable)
}
