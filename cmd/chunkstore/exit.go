package main

import (
	"errors"
	"fmt"

	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/config"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/dataset"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/exitcode"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/ingestion"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/model"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/storage"
)

// InputError reports a dataset file that could not be opened or parsed.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input %q: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// UnavailableError reports a supporting service, such as the catalog, that could not be reached.
type UnavailableError struct {
	Service string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func exitCode(err error) int {
	if err == nil {
		return exitcode.Success
	}

	var (
		missingVar   *config.ErrMissingRequiredEnvVar
		invalidVar   *config.ErrInvalidEnvVar
		writeType    *storage.InvalidWriteTypeError
		endpoint     *model.ErrInvalidEndpoint
		input        *InputError
		rowWidth     *dataset.ErrRowWidth
		duplicate    *dataset.ErrDuplicateColumn
		reserved     *storage.ReservedColumnError
		badPath      *storage.InvalidPathError
		record       *ingestion.RecordError
		backend      *storage.BackendUnavailableError
		unavailable  *UnavailableError
		partialWrite *ingestion.PartialWriteError
	)
	switch {
	case errors.As(err, &missingVar), errors.As(err, &invalidVar), errors.As(err, &writeType):
		return exitcode.ConfigError
	case errors.As(err, &endpoint), errors.As(err, &input), errors.As(err, &rowWidth),
		errors.As(err, &duplicate), errors.As(err, &reserved), errors.As(err, &badPath):
		return exitcode.DataError
	case errors.As(err, &partialWrite):
		return exitcode.PartialWrite
	case errors.As(err, &backend), errors.As(err, &unavailable), errors.As(err, &record):
		return exitcode.StorageError
	case errors.Is(err, storage.ErrNotImplemented):
		return exitcode.NotImplemented
	default:
		return exitcode.ApplicationError
	}
}
