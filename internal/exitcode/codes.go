package exitcode

// Exit codes for the chunkstore CLI.
// Schedulers can use these to decide retry strategy.
const (
	// Success - command completed successfully
	Success = 0

	// ConfigError - missing or invalid configuration, flags or write type
	// Don't retry: fix the invocation first
	ConfigError = 1

	// StorageError - backend unreachable or destination could not be created
	// Retry with backoff
	StorageError = 4

	// DataError - input could not be parsed or endpoint descriptor is malformed
	// Don't retry: investigate the data
	DataError = 5

	// PartialWrite - some chunks were written, others failed
	// Check logs: written chunks are not rolled back
	PartialWrite = 6

	// NotImplemented - the requested backend is not configured
	NotImplemented = 7

	// ApplicationError - anything else
	ApplicationError = 10
)
