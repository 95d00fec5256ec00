package settings

import "sync"

type Arguments struct {
	// The file path to the input model (.idf or .epJSON)
	InputFile string

	// The file path for the converted output. Empty means stdout.
	OutputFile string

	// The output format
	// idf, epjson
	Format string

	// Explicit schema version override (e.g. "24.1"). Empty means
	// auto-detect from the input file.
	SchemaVersion string

	// Strict parsing: unknown classes/fields and field count
	// mismatches become errors instead of warnings.
	Strict bool

	// Print object and reference counts after loading
	Stats bool

	// Strongly verbose logging
	Verbose bool

	Debug bool
}

var (
	instance *Arguments
	once     sync.Once
)

// GetSettings returns the global settings instance
func GetSettings() *Arguments {
	once.Do(func() {
		instance = &Arguments{}
	})
	return instance
}
