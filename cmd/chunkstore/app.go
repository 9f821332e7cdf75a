package main

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/catalog"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/catalog/migrate"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/config"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/ingestion"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/retrieval"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/storage"
)

// app holds the clients built from one configuration.
type app struct {
	cfg     *config.Config
	router  *storage.Router
	catalog *catalog.Store
	closers []func() error
}

// newApp builds every configured backend. Backends left unconfigured stay nil in the
// router and resolve to not-implemented errors.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, retErr error) {
	a := &app{cfg: cfg, router: &storage.Router{}}
	defer func() {
		if retErr != nil {
			_ = a.Close()
		}
	}()

	local, err := storage.NewLocalStore(cfg.StorageRoot)
	if err != nil {
		return nil, err
	}
	a.router.Local = local

	if cfg.CloudEnabled() {
		if err := a.openCloud(ctx); err != nil {
			return nil, err
		}
	}

	if cfg.DatabaseEnabled() {
		db := storage.OpenClickHouse(storage.ClickHouseConfig{
			Host:     cfg.ClickHouseHost,
			Port:     strconv.Itoa(cfg.ClickHousePort),
			User:     cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
			Database: cfg.ClickHouseDatabase,
		})
		a.closers = append(a.closers, db.Close)
		a.router.Database = storage.NewClickHouseStore(db, cfg.ClickHouseDatabase)
	}

	if cfg.CatalogEnabled() {
		db, err := catalog.Open(ctx, cfg.CatalogDSN)
		if err != nil {
			return nil, &UnavailableError{Service: "catalog", Err: err}
		}
		a.closers = append(a.closers, db.Close)
		version, err := migrate.Run(db)
		if err != nil {
			return nil, &UnavailableError{Service: "catalog", Err: err}
		}
		slog.DebugContext(ctx, "catalog schema ready", "version", version, "table", migrate.VersionTable)
		a.catalog = catalog.New(db)
	}

	slog.DebugContext(ctx, "backends configured",
		"storage_root", cfg.StorageRoot,
		"cloud", cfg.CloudEnabled(),
		"cloud_provider", cfg.CloudProvider,
		"database", cfg.DatabaseEnabled(),
		"catalog", cfg.CatalogEnabled(),
	)
	return a, nil
}

func (a *app) openCloud(ctx context.Context) error {
	switch a.cfg.CloudProvider {
	case config.ProviderGCS:
		gcs, err := storage.NewGCSStore(ctx, storage.GCSConfig{
			Bucket:          a.cfg.GCSBucket,
			CredentialsFile: a.cfg.GCSCredentials,
			Endpoint:        a.cfg.GCSEndpoint,
		})
		if err != nil {
			return &storage.BackendUnavailableError{Kind: storage.Cloud, Location: "gs://" + a.cfg.GCSBucket, Err: err}
		}
		a.closers = append(a.closers, gcs.Close)
		a.router.Cloud = gcs
	default:
		minio, err := storage.NewMinIOStore(ctx, storage.MinIOConfig{
			Endpoint:  a.cfg.MinIOEndpoint,
			AccessKey: a.cfg.MinIOAccessKey,
			SecretKey: a.cfg.MinIOSecretKey,
			Bucket:    a.cfg.MinIOBucket,
			UseSSL:    a.cfg.MinIOUseSSL,
		})
		if err != nil {
			return &storage.BackendUnavailableError{Kind: storage.Cloud, Location: "s3://" + a.cfg.MinIOBucket, Err: err}
		}
		a.router.Cloud = minio
	}
	return nil
}

func (a *app) service() *ingestion.Service {
	// A nil *catalog.Store must not become a non-nil Recorder.
	var recorder ingestion.Recorder
	if a.catalog != nil {
		recorder = a.catalog
	}
	return ingestion.NewService(a.router, recorder, a.cfg.WriteWorkers)
}

func (a *app) reader(source storage.Source) *retrieval.Reader {
	return retrieval.NewReader(source, a.cfg.FlushThreshold, a.cfg.ReadWorkers)
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
