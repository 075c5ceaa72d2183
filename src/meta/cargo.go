package meta

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
	toml "github.com/pelletier/go-toml/v2"
)

// Manifest is the subset of Cargo.toml the pipeline needs: the package
// identity of the service being built.
type Manifest struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
}

// LoadManifest reads the Cargo.toml under rootDir and validates that the
// package version is proper semver.
func LoadManifest(rootDir string) (*Manifest, error) {
	path := filepath.Join(rootDir, "Cargo.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if m.Package.Name == "" {
		return nil, fmt.Errorf("%s: missing [package] name", path)
	}
	if _, err := masterminds.StrictNewVersion(m.Package.Version); err != nil {
		return nil, fmt.Errorf("%s: version %q: %w", path, m.Package.Version, err)
	}
	return &m, nil
}

// Identity returns the package identity string, e.g. "vector#0.30.0".
func (m *Manifest) Identity() string {
	return m.Package.Name + "#" + m.Package.Version
}

// ParseIdentity splits an externally supplied package identity string of
// the form "name#version" and validates the version component.
func ParseIdentity(s string) (name, version string, err error) {
	name, version, ok := strings.Cut(s, "#")
	if !ok || name == "" || version == "" {
		return "", "", fmt.Errorf("package identity %q: want name#version", s)
	}
	if _, err := masterminds.StrictNewVersion(version); err != nil {
		return "", "", fmt.Errorf("package identity %q: %w", s, err)
	}
	return name, version, nil
}
