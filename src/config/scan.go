package config

// ScanConfig controls the pre-build secret scan gate.
type ScanConfig struct {
	// Enabled toggles the gate. Critical findings abort the pipeline
	// before any network-heavy step runs.
	Enabled *bool `yaml:"enabled"`
	// Exclude lists path prefixes skipped during the scan.
	Exclude []string `yaml:"exclude"`
	// MaxFileSize skips files larger than this many bytes (0 = 1 MiB).
	MaxFileSize int64 `yaml:"max_file_size"`
}

// Active returns true unless the gate is explicitly disabled.
func (s ScanConfig) Active() bool {
	return s.Enabled == nil || *s.Enabled
}

// DefaultScanConfig returns the scan gate defaults.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Exclude: []string{".git/", "target/"},
	}
}
