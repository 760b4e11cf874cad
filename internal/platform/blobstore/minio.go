package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds the connection settings for a MinIO-backed Store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore stores attachments as objects in a MinIO (or S3-compatible)
// bucket. Blob metadata rides along as object user metadata, keyed by blob ID.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinioStore) Upload(ctx context.Context, meta BlobMetadata, content io.Reader) (*BlobMetadata, error) {
	if meta.FileName == "" {
		return nil, ErrMissingFileName
	}
	if meta.ContentType != "" && !AllowedContentTypes[meta.ContentType] {
		return nil, ErrInvalidContentType
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	h := sha256.Sum256(data)

	meta.ID = uuid.New().String()
	meta.Size = int64(len(data))
	meta.Hash = fmt.Sprintf("%x", h)
	meta.CreatedAt = time.Now().UTC()

	_, err = s.client.PutObject(ctx, s.bucket, meta.ID, bytes.NewReader(data), meta.Size, minio.PutObjectOptions{
		ContentType:  meta.ContentType,
		UserMetadata: encodeMeta(meta),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", meta.ID, err)
	}

	out := meta // copy
	return &out, nil
}

func (s *MinioStore) Download(ctx context.Context, id string) (io.ReadCloser, *BlobMetadata, error) {
	meta, err := s.GetMetadata(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("get object %s: %w", id, err)
	}

	return obj, meta, nil
}

func (s *MinioStore) Delete(ctx context.Context, id string) error {
	if _, err := s.GetMetadata(ctx, id); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", id, err)
	}
	return nil
}

func (s *MinioStore) GetMetadata(ctx context.Context, id string) (*BlobMetadata, error) {
	info, err := s.client.StatObject(ctx, s.bucket, id, minio.StatObjectOptions{})
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("stat object %s: %w", id, err)
	}

	meta := decodeMeta(id, info)
	return &meta, nil
}

func (s *MinioStore) ListByRequest(ctx context.Context, requestID string) ([]*BlobMetadata, error) {
	var matched []*BlobMetadata

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{WithMetadata: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		if obj.UserMetadata["X-Amz-Meta-Request-Id"] != requestID {
			continue
		}
		meta, err := s.GetMetadata(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		matched = append(matched, meta)
	}

	return matched, nil
}

func encodeMeta(meta BlobMetadata) map[string]string {
	return map[string]string{
		"File-Name":         meta.FileName,
		"Request-Id":        meta.RequestID,
		"Checklist-Item-Id": meta.ChecklistItemID,
		"Hash":              meta.Hash,
		"Created-By":        meta.CreatedBy,
		"Created-At":        strconv.FormatInt(meta.CreatedAt.Unix(), 10),
	}
}

func decodeMeta(id string, info minio.ObjectInfo) BlobMetadata {
	createdAt := info.LastModified
	if ts, err := strconv.ParseInt(info.UserMetadata["Created-At"], 10, 64); err == nil {
		createdAt = time.Unix(ts, 0).UTC()
	}
	return BlobMetadata{
		ID:              id,
		FileName:        info.UserMetadata["File-Name"],
		ContentType:     info.ContentType,
		Size:            info.Size,
		RequestID:       info.UserMetadata["Request-Id"],
		ChecklistItemID: info.UserMetadata["Checklist-Item-Id"],
		Hash:            info.UserMetadata["Hash"],
		CreatedAt:       createdAt,
		CreatedBy:       info.UserMetadata["Created-By"],
	}
}
