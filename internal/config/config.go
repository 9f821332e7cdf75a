package config

import (
	"fmt"
	"os"
	"strconv"
)

// Cloud providers selectable through CLOUD_PROVIDER.
const (
	ProviderMinIO = "minio"
	ProviderGCS   = "gcs"
)

// Config holds application configuration.
// Optional backends are enabled by setting their primary variable.
type Config struct {
	StorageRoot    string
	WriteWorkers   int
	ReadWorkers    int
	FlushThreshold int

	CloudProvider string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	GCSBucket      string
	GCSCredentials string
	GCSEndpoint    string

	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseDatabase string

	CatalogDSN string
}

// CloudEnabled reports whether a cloud backend is configured.
func (c *Config) CloudEnabled() bool {
	switch c.CloudProvider {
	case ProviderGCS:
		return c.GCSBucket != ""
	default:
		return c.MinIOEndpoint != ""
	}
}

// DatabaseEnabled reports whether the ClickHouse backend is configured.
func (c *Config) DatabaseEnabled() bool {
	return c.ClickHouseHost != ""
}

// CatalogEnabled reports whether manifests should be recorded.
func (c *Config) CatalogEnabled() bool {
	return c.CatalogDSN != ""
}

type ErrMissingRequiredEnvVar struct {
	Name string
}

func (e *ErrMissingRequiredEnvVar) Error() string {
	return fmt.Sprintf("required environment variable %q is not set", e.Name)
}

type ErrInvalidEnvVar struct {
	Name  string
	Value string
}

func (e *ErrInvalidEnvVar) Error() string {
	return fmt.Sprintf("environment variable %q has invalid value %q", e.Name, e.Value)
}

// Load reads configuration from environment variables.
// Returns an error if a required variable is missing or a value does not parse.
func Load() (*Config, error) {
	config := Config{
		StorageRoot:        getEnv("STORAGE_ROOT", "resources/documents"),
		CloudProvider:      getEnv("CLOUD_PROVIDER", ProviderMinIO),
		MinIOEndpoint:      os.Getenv("MINIO_ENDPOINT"),
		GCSBucket:          os.Getenv("GCS_BUCKET"),
		GCSCredentials:     os.Getenv("GOOGLE_CLOUD_CREDENTIALS"),
		GCSEndpoint:        os.Getenv("GCS_ENDPOINT"),
		ClickHouseHost:     os.Getenv("CLICKHOUSE_HOST"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: os.Getenv("CLICKHOUSE_PASSWORD"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "default"),
		CatalogDSN:         os.Getenv("CATALOG_DSN"),
	}

	var err error
	if config.WriteWorkers, err = getPositiveInt("WRITE_WORKERS", 1); err != nil {
		return nil, err
	}
	if config.ReadWorkers, err = getPositiveInt("READ_WORKERS", 1); err != nil {
		return nil, err
	}
	if config.FlushThreshold, err = getPositiveInt("FLUSH_THRESHOLD", 1000); err != nil {
		return nil, err
	}
	if config.ClickHousePort, err = getPositiveInt("CLICKHOUSE_PORT", 9000); err != nil {
		return nil, err
	}

	switch config.CloudProvider {
	case ProviderMinIO:
		if config.MinIOEndpoint != "" {
			if err := config.loadMinIO(); err != nil {
				return nil, err
			}
		}
	case ProviderGCS:
		if config.GCSBucket == "" {
			return nil, &ErrMissingRequiredEnvVar{Name: "GCS_BUCKET"}
		}
	default:
		return nil, &ErrInvalidEnvVar{Name: "CLOUD_PROVIDER", Value: config.CloudProvider}
	}

	return &config, nil
}

func (c *Config) loadMinIO() error {
	for _, v := range []struct {
		name string
		dst  *string
	}{
		{"MINIO_ACCESS_KEY", &c.MinIOAccessKey},
		{"MINIO_SECRET_KEY", &c.MinIOSecretKey},
		{"MINIO_BUCKET", &c.MinIOBucket},
	} {
		*v.dst = os.Getenv(v.name)
		if *v.dst == "" {
			return &ErrMissingRequiredEnvVar{Name: v.name}
		}
	}

	if raw := os.Getenv("MINIO_USE_SSL"); raw != "" {
		useSSL, err := strconv.ParseBool(raw)
		if err != nil {
			return &ErrInvalidEnvVar{Name: "MINIO_USE_SSL", Value: raw}
		}
		c.MinIOUseSSL = useSSL
	}
	return nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func getPositiveInt(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, &ErrInvalidEnvVar{Name: name, Value: raw}
	}
	return n, nil
}
