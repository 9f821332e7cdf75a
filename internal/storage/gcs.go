package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/dataset"
)

// GCSStore implements Sink and Source on a Google Cloud Storage bucket.
type GCSStore struct {
	client     *gcs.Client
	bucket     *gcs.BucketHandle
	bucketName string
}

type GCSConfig struct {
	Bucket          string
	CredentialsFile string // service account JSON; empty uses application default credentials
	Endpoint        string // emulator endpoint, e.g. "http://localhost:4443/storage/v1/"
}

func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	var opts []option.ClientOption
	switch {
	case cfg.Endpoint != "":
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return &GCSStore{
		client:     client,
		bucket:     client.Bucket(cfg.Bucket),
		bucketName: cfg.Bucket,
	}, nil
}

func (g *GCSStore) Location(layout Layout) string {
	return "gs://" + g.bucketName + "/" + layout.Dir()
}

// Ensure checks that the bucket exists. Buckets are provisioned outside this service.
func (g *GCSStore) Ensure(ctx context.Context, layout Layout) error {
	if _, err := g.bucket.Attrs(ctx); err != nil {
		return fmt.Errorf("failed to read gcs bucket %q: %w", g.bucketName, err)
	}
	return nil
}

func (g *GCSStore) Write(ctx context.Context, key ChunkKey, chunk *dataset.Dataset) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objectKey := key.Key(TSVExtension)
	w := g.bucket.Object(objectKey).NewWriter(ctx)
	w.ContentType = tsvContentType
	if err := dataset.WriteTSV(w, chunk); err != nil {
		// Cancelling before Close discards the partial upload.
		cancel()
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to upload to gcs: %w", err)
	}

	slog.DebugContext(ctx, "chunk object uploaded", "bucket", g.bucketName, "key", objectKey)
	return nil
}

func (g *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	it := g.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gcs objects: %w", err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

func (g *GCSStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	r, err := g.bucket.Object(path).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gcs object: %w", err)
	}
	return r, nil
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}
