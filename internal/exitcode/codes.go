package exitcode

// Exit codes for the sampling CLI.
// Orchestration can use these to decide retry strategy.
const (
	// Success - job completed successfully
	Success = 0

	// ConfigError - missing or invalid configuration or flags
	// Don't retry: fix the config first
	ConfigError = 1

	// CatalogError - failed to load or build nested sets
	// Check the catalog definitions before retrying
	CatalogError = 2

	// SamplingError - a source failed for a reason other than bounds
	// Check logs, may need manual intervention
	SamplingError = 3

	// StorageError - failed to write to MinIO/S3
	// Retry with backoff
	StorageError = 4

	// DataError - invalid or unparseable input points
	// Don't retry: investigate the data
	DataError = 5
)
