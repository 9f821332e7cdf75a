package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/dataset"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/model"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/storage"
)

// SinkResolver returns the backend for a write type.
type SinkResolver interface {
	Sink(t storage.WriteType) (storage.Sink, error)
}

// Recorder persists manifests of completed writes.
type Recorder interface {
	Record(ctx context.Context, m model.Manifest) error
}

// Service splits datasets into chunks and writes them through a backend.
type Service struct {
	sinks    SinkResolver
	recorder Recorder
	workers  int

	maxChunkRows int
	now          func() time.Time
}

// NewService creates a Service. recorder may be nil. workers below 1 means 1,
// which writes chunks strictly in index order.
func NewService(sinks SinkResolver, recorder Recorder, workers int) *Service {
	return &Service{
		sinks:        sinks,
		recorder:     recorder,
		workers:      max(workers, 1),
		maxChunkRows: dataset.MaxChunkRows,
		now:          time.Now,
	}
}

type storeResult struct {
	location  string
	writeType storage.WriteType
	endpoint  model.Endpoint
	chunks    int
}

// Store writes ds under the endpoint descriptor and returns the shared location of its chunks.
func (s *Service) Store(ctx context.Context, ds *dataset.Dataset, writeType, endpoint string) (string, error) {
	res, err := s.store(ctx, ds, writeType, endpoint)
	if err != nil {
		return "", err
	}
	return res.location, nil
}

// Ingest stores ds and returns its manifest. When a recorder is set the manifest is
// recorded; a recording failure is returned together with the manifest.
func (s *Service) Ingest(ctx context.Context, ds *dataset.Dataset, writeType, endpoint string) (*model.Manifest, error) {
	start := s.now()
	jobID, err := model.NewJobID()
	if err != nil {
		return nil, err
	}

	res, err := s.store(ctx, ds, writeType, endpoint)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	m := &model.Manifest{
		JobID:       jobID,
		Endpoint:    res.endpoint.Name(),
		WriteType:   res.writeType.String(),
		Rows:        ds.NumRows(),
		Chunks:      res.chunks,
		Location:    res.location,
		ExtractedAt: start,
		Elapsed:     s.now().Sub(start),
	}

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, *m); err != nil {
			slog.WarnContext(ctx, "failed to record manifest", "job_id", jobID, "error", err)
			return m, &RecordError{JobID: jobID, Err: err}
		}
	}

	slog.InfoContext(ctx, "ingestion complete", "job_id", jobID, "location", m.Location, "elapsed", m.Elapsed)
	return m, nil
}

func (s *Service) store(ctx context.Context, ds *dataset.Dataset, writeType, descriptor string) (*storeResult, error) {
	if ds == nil {
		ds = dataset.Empty()
	}

	// Contract checks happen before any I/O.
	kind, err := storage.ParseWriteType(writeType)
	if err != nil {
		return nil, err
	}
	endpoint, err := model.ParseEndpoint(descriptor)
	if err != nil {
		return nil, err
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	sink, err := s.sinks.Sink(kind)
	if err != nil {
		return nil, err
	}
	if checker, ok := sink.(storage.ColumnChecker); ok {
		if err := checker.CheckColumns(ds.Columns); err != nil {
			return nil, err
		}
	}

	chunks := dataset.Split(ds, s.maxChunkRows)
	layout := storage.NewLayout(endpoint, s.now())
	location := sink.Location(layout)

	slog.DebugContext(ctx, "store started",
		"write_type", kind.String(),
		"endpoint", endpoint.String(),
		"rows", humanize.Comma(int64(ds.NumRows())),
		"chunks", len(chunks),
		"location", location,
	)

	if err := sink.Ensure(ctx, layout); err != nil {
		return nil, &storage.BackendUnavailableError{Kind: kind, Location: location, Err: err}
	}

	if failures := s.writeChunks(ctx, sink, layout, chunks); len(failures) > 0 {
		return nil, newPartialWriteError(location, len(chunks), failures)
	}

	slog.InfoContext(ctx, "store complete", "write_type", kind.String(), "location", location, "chunks", len(chunks))
	return &storeResult{location: location, writeType: kind, endpoint: endpoint, chunks: len(chunks)}, nil
}

// writeChunks writes every chunk with at most s.workers in flight and returns the
// failures by chunk index. Chunks not yet started when ctx is done fail with ctx.Err().
func (s *Service) writeChunks(ctx context.Context, sink storage.Sink, layout storage.Layout, chunks []*dataset.Dataset) map[int]error {
	var (
		mu       sync.Mutex
		failures = make(map[int]error)
	)
	fail := func(i int, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures[i] = err
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, chunk := range chunks {
		key := layout.Key(i)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				fail(i, err)
				return nil
			}
			if err := sink.Write(ctx, key, chunk); err != nil {
				slog.ErrorContext(ctx, "chunk write failed", "chunk", i, "key", key.Name(), "error", err)
				fail(i, fmt.Errorf("chunk %d: %w", i, err))
				return nil
			}
			slog.DebugContext(ctx, "chunk written", "chunk", i, "key", key.Name(), "rows", chunk.NumRows())
			return nil
		})
	}
	_ = g.Wait()

	return failures
}
