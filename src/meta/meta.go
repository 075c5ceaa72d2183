// Package meta collects the build metadata a pipeline run is keyed on and
// derives the artifact identity used as the image tag. The identity is a
// pure function of the metadata: same inputs, same tag, always.
package meta

import (
	"fmt"
	"os"
	"time"
)

// DateFormat is the compact UTC date component of the artifact identity.
const DateFormat = "20060102"

// Metadata is the immutable triple (plus description) the artifact
// identity derives from. Computed once per invocation, before the
// container build starts.
type Metadata struct {
	Name        string // service package name, e.g. "vector"
	Version     string // semantic package version, e.g. "0.30.0"
	SHA         string // short source revision identifier
	Branch      string
	Date        string // UTC build date, yyyymmdd
	Description string // free-text build description, embedded via build arg
}

// Collect resolves metadata from the source tree at rootDir. A non-empty
// pkgIdentity ("name#version") overrides the Cargo manifest, for callers
// that already know what they are building. The build description comes
// from desc, falling back to SLIPWAY_BUILD_DESC.
func Collect(rootDir, pkgIdentity, desc string, now time.Time) (*Metadata, error) {
	var name, version string
	if pkgIdentity != "" {
		var err error
		name, version, err = ParseIdentity(pkgIdentity)
		if err != nil {
			return nil, err
		}
	} else {
		manifest, err := LoadManifest(rootDir)
		if err != nil {
			return nil, err
		}
		name, version = manifest.Package.Name, manifest.Package.Version
	}

	rev, err := DetectRevision(rootDir)
	if err != nil {
		return nil, err
	}
	if desc == "" {
		desc = os.Getenv("SLIPWAY_BUILD_DESC")
	}

	return &Metadata{
		Name:        name,
		Version:     version,
		SHA:         rev.SHA,
		Branch:      rev.Branch,
		Date:        now.UTC().Format(DateFormat),
		Description: desc,
	}, nil
}

// Identity returns the deterministic image tag: <version>_<sha>_<date>.
// Distinct commits on the same day yield distinct identities because the
// revision component differs.
func (m *Metadata) Identity() string {
	return fmt.Sprintf("%s_%s_%s", m.Version, m.SHA, m.Date)
}

// PackageIdentity returns "name#version".
func (m *Metadata) PackageIdentity() string {
	return m.Name + "#" + m.Version
}
