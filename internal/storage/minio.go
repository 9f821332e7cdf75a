package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/dataset"
)

const tsvContentType = "text/tab-separated-values; charset=utf-8"

// MinIOStore implements Sink and Source on an S3-compatible bucket.
type MinIOStore struct {
	client     *minio.Client
	bucketName string
}

// MinIOConfig holds MinIO connection settings.
type MinIOConfig struct {
	Endpoint  string // e.g., "localhost:9000"
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinIOStore creates a new MinIO storage client and makes sure the bucket exists.
func NewMinIOStore(ctx context.Context, cfg MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	s := &MinIOStore{
		client:     client,
		bucketName: cfg.Bucket,
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *MinIOStore) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (m *MinIOStore) Location(layout Layout) string {
	return "s3://" + m.bucketName + "/" + layout.Dir()
}

// Ensure re-checks the bucket. Object stores have no directories to create.
func (m *MinIOStore) Ensure(ctx context.Context, layout Layout) error {
	return m.ensureBucket(ctx)
}

// Write encodes the chunk as TSV and uploads it with PutObject.
func (m *MinIOStore) Write(ctx context.Context, key ChunkKey, chunk *dataset.Dataset) error {
	var buf bytes.Buffer
	if err := dataset.WriteTSV(&buf, chunk); err != nil {
		return err
	}
	size := int64(buf.Len())

	objectKey := key.Key(TSVExtension)
	_, err := m.client.PutObject(ctx, m.bucketName, objectKey, &buf, size, minio.PutObjectOptions{
		ContentType: tsvContentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to minio: %w", err)
	}

	slog.DebugContext(ctx, "chunk object uploaded", "bucket", m.bucketName, "key", objectKey, "size", humanize.Bytes(uint64(size)))
	return nil
}

// List returns every object key under prefix in lexical order.
func (m *MinIOStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list minio objects: %w", obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Open returns the object body. Stat is called first so a missing object fails here
// rather than on the first Read.
func (m *MinIOStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucketName, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get minio object: %w", err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("failed to stat minio object: %w", err)
	}
	return obj, nil
}
