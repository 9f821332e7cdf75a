package storage

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"

	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/dataset"
)

func TestNewMinIOStore_InvalidEndpoint(t *testing.T) {
	// Test with an invalid endpoint to trigger initialization error
	cfg := MinIOConfig{
		Endpoint:  "invalid-endpoint:port:scheme", // Invalid format
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "test-bucket",
		UseSSL:    false,
	}

	_, err := NewMinIOStore(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error with invalid endpoint, got nil")
	}
}

func TestNewMinIOStore_ConnectionRefused(t *testing.T) {
	// Test connection failure (assuming no MinIO at localhost:12345)
	cfg := MinIOConfig{
		Endpoint:  "localhost:12345",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "test-bucket",
		UseSSL:    false,
	}

	// Note: minio.New() doesn't connect immediately, but BucketExists does.
	_, err := NewMinIOStore(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error connecting to non-existent minio, got nil")
	}
}

func loadMinIOConfigFromEnv(t *testing.T) MinIOConfig {
	t.Helper()
	godotenv.Load("../../.env.test")

	endpoint := os.Getenv("MINIO_ENDPOINT")
	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	if endpoint == "" || accessKey == "" || secretKey == "" {
		t.Skip("MINIO_ENDPOINT, MINIO_ACCESS_KEY, and MINIO_SECRET_KEY must be set for integration tests")
	}

	return MinIOConfig{
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    useSSL,
	}
}

func TestMinIOStore_WriteListOpen_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := loadMinIOConfigFromEnv(t)
	cfg.Bucket = "test-bucket-" + time.Now().Format("20060102-150405")

	ctx := context.Background()
	store, err := NewMinIOStore(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to initialize minio store: %v", err)
	}

	layout := testLayout()
	if err := store.Ensure(ctx, layout); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	chunk := &dataset.Dataset{Columns: []string{"ticker", "close"}, Rows: [][]string{{"AAPL", "177.57"}}}
	if err := store.Write(ctx, layout.Key(0), chunk); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	keys, err := store.List(ctx, layout.Dir())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"historicaldata/output/AAPL/20250312/202503121430_chunk_0.tsv"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("List() = %v, want %v", keys, want)
	}

	obj, err := store.client.GetObject(ctx, cfg.Bucket, keys[0], minio.GetObjectOptions{})
	if err != nil {
		t.Fatalf("GetObject() error = %v", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	if string(data) != "ticker\tclose\nAAPL\t177.57\n" {
		t.Fatalf("unexpected content: got %q", string(data))
	}

	rc, err := store.Open(ctx, keys[0])
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	got, err := dataset.ReadTSV(rc)
	if err != nil {
		t.Fatalf("ReadTSV() error = %v", err)
	}
	if !reflect.DeepEqual(got, chunk) {
		t.Fatalf("round trip = %+v, want %+v", got, chunk)
	}

	if _, err := store.Open(ctx, "missing/object.tsv"); err == nil {
		t.Fatal("expected error opening a missing object")
	}
}

// fakeS3 serves the subset of the S3 API the store uses, for a single bucket.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

var fakeModTime = time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC)

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if bucket != f.bucket {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	query := r.URL.Query()

	switch {
	case key == "" && query.Has("location"):
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/"></LocationConstraint>`)
	case key == "" && r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodGet:
		f.list(w, query.Get("prefix"))
	case r.Method == http.MethodPut:
		body, err := readS3Payload(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.objects[key] = body
		w.Header().Set("ETag", `"`+fakeETag(body)+`"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead || r.Method == http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("Content-Type", tsvContentType)
		w.Header().Set("Last-Modified", fakeModTime.Format(http.TimeFormat))
		w.Header().Set("ETag", `"`+fakeETag(body)+`"`)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) list(w http.ResponseWriter, prefix string) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>`,
		f.bucket, prefix, len(keys))
	for _, k := range keys {
		fmt.Fprintf(&b, `<Contents><Key>%s</Key><LastModified>%s</LastModified><ETag>"%s"</ETag><Size>%d</Size><StorageClass>STANDARD</StorageClass></Contents>`,
			k, fakeModTime.Format("2006-01-02T15:04:05.000Z"), fakeETag(f.objects[k]), len(f.objects[k]))
	}
	b.WriteString(`</ListBucketResult>`)

	w.Header().Set("Content-Type", "application/xml")
	_, _ = io.WriteString(w, b.String())
}

// readS3Payload returns the object bytes, decoding aws-chunked bodies sent with
// streaming signatures.
func readS3Payload(r *http.Request) ([]byte, error) {
	if !strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-") {
		return io.ReadAll(r.Body)
	}

	br := bufio.NewReader(r.Body)
	var out bytes.Buffer
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, err
		}
		sizeHex, _, _ := strings.Cut(strings.TrimRight(line, "\r\n"), ";")
		n, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("chunk size %q: %w", sizeHex, err)
		}
		if n == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, br, n); err != nil {
			return nil, err
		}
		if _, err := br.Discard(2); err != nil {
			return nil, err
		}
	}
}

func fakeETag(body []byte) string {
	sum := md5.Sum(body)
	return hex.EncodeToString(sum[:])
}

func newFakeMinIO(t *testing.T) (*MinIOStore, *fakeS3) {
	t.Helper()
	fake := &fakeS3{bucket: "chunks", objects: make(map[string][]byte)}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	store, err := NewMinIOStore(context.Background(), MinIOConfig{
		Endpoint:  strings.TrimPrefix(server.URL, "http://"),
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "chunks",
	})
	if err != nil {
		t.Fatalf("NewMinIOStore() error = %v", err)
	}
	return store, fake
}

func TestMinIOStore_WriteListOpen(t *testing.T) {
	ctx := context.Background()
	store, fake := newFakeMinIO(t)
	layout := testLayout()

	if err := store.Ensure(ctx, layout); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	chunks := []*dataset.Dataset{
		{Columns: []string{"ticker", "close"}, Rows: [][]string{{"AAPL", "177.57"}}},
		{Columns: []string{"ticker", "close"}, Rows: [][]string{{"AAPL", ""}}},
	}
	for i, chunk := range chunks {
		if err := store.Write(ctx, layout.Key(i), chunk); err != nil {
			t.Fatalf("Write(%d) error = %v", i, err)
		}
	}
	fake.mu.Lock()
	fake.objects["historicaldata/output/MSFT/20250312/202503121430_chunk_0.tsv"] = []byte("ticker\nMSFT\n")
	stored := string(fake.objects["historicaldata/output/AAPL/20250312/202503121430_chunk_0.tsv"])
	fake.mu.Unlock()

	if stored != "ticker\tclose\nAAPL\t177.57\n" {
		t.Fatalf("stored object = %q", stored)
	}

	keys, err := store.List(ctx, layout.Dir())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{
		"historicaldata/output/AAPL/20250312/202503121430_chunk_0.tsv",
		"historicaldata/output/AAPL/20250312/202503121430_chunk_1.tsv",
	}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("List() = %v, want %v", keys, want)
	}

	for i, key := range keys {
		rc, err := store.Open(ctx, key)
		if err != nil {
			t.Fatalf("Open(%q) error = %v", key, err)
		}
		got, err := dataset.ReadTSV(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("ReadTSV() error = %v", err)
		}
		if !reflect.DeepEqual(got, chunks[i]) {
			t.Fatalf("chunk %d = %+v, want %+v", i, got, chunks[i])
		}
	}
}

func TestMinIOStore_OpenMissing(t *testing.T) {
	store, _ := newFakeMinIO(t)
	if _, err := store.Open(context.Background(), "historicaldata/output/AAPL/20250312/missing.tsv"); err == nil {
		t.Fatal("expected error opening a missing object")
	}
}

func TestMinIOStore_Location(t *testing.T) {
	store := &MinIOStore{bucketName: "chunks"}
	if got, want := store.Location(testLayout()), "s3://chunks/historicaldata/output/AAPL/20250312"; got != want {
		t.Fatalf("Location() = %s, want %s", got, want)
	}
}
