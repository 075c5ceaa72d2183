package config

// ImageConfig describes the two-stage image assembly and the produced
// artifact surface.
type ImageConfig struct {
	// Repository is the image name the artifact identity tag attaches to.
	Repository string `yaml:"repository"`
	// BuilderBase is the toolchain base image for the builder stage.
	BuilderBase string `yaml:"builder_base"`
	// RuntimeBase is the minimal base image for the runtime stage.
	RuntimeBase string `yaml:"runtime_base"`
	// BinaryPath is where the release binary lands inside the runtime stage.
	BinaryPath string `yaml:"binary_path"`
	// ConfigDir is the static configuration directory copied across the
	// stage boundary and passed to the entrypoint via --config-dir.
	ConfigDir string `yaml:"config_dir"`
	// DataDir is the persistent-storage mount point for service state.
	DataDir string `yaml:"data_dir"`
	// Dockerfile, when set, uses an existing Dockerfile instead of the
	// generated two-stage one. It is still verified for stage isolation.
	Dockerfile string `yaml:"dockerfile"`
	// Context is the build context directory (default ".").
	Context string `yaml:"context"`
	// Platforms limits the build to specific platforms.
	Platforms []string `yaml:"platforms"`
	// BuildArgs are extra --build-arg pairs passed through verbatim.
	BuildArgs map[string]string `yaml:"build_args"`
	// Features is the cargo feature set compiled into the release binary.
	Features string `yaml:"features"`
	// PushTo are fully qualified registry prefixes (e.g. "docker.io/acme")
	// the tagged image is pushed to when --push is set.
	PushTo []string `yaml:"push_to"`
}

// DefaultImageConfig returns sensible defaults for the image assembly.
func DefaultImageConfig() ImageConfig {
	return ImageConfig{
		BuilderBase: "docker.io/rust:1.70-bookworm",
		RuntimeBase: "docker.io/debian:bookworm-slim",
		BinaryPath:  "/usr/bin/vector",
		ConfigDir:   "/etc/vector",
		DataDir:     "/var/lib/vector",
		Context:     ".",
		BuildArgs:   map[string]string{},
	}
}
