// Package provision models the builder-stage provisioning sequence:
// mirror substitution, baseline environment setup, and toolchain
// bootstrap. Package sources are explicit values consumed through the
// PackageManager interface rather than side-effecting file mutations,
// so the whole sequence is testable without a container in sight.
package provision

import (
	"fmt"
	"sort"

	"github.com/sofmeright/slipway/src/config"
)

// Endpoint names a default network endpoint used during provisioning.
type Endpoint string

const (
	EndpointApt    Endpoint = "apt"    // Debian package index host
	EndpointCrates Endpoint = "crates" // crates.io registry index
	EndpointRustup Endpoint = "rustup" // rustup distribution server
)

// Endpoints maps endpoint names to their current hosts.
type Endpoints map[Endpoint]string

// DefaultEndpoints returns the upstream hosts used when no mirror is
// configured.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		EndpointApt:    "deb.debian.org",
		EndpointCrates: "index.crates.io",
		EndpointRustup: "static.rust-lang.org",
	}
}

// Substitute returns a copy of e with the given overrides applied.
// Overriding an endpoint the set does not know is an error: a
// half-redirected environment could mix trusted and mirrored sources.
func (e Endpoints) Substitute(overrides map[Endpoint]string) (Endpoints, error) {
	out := make(Endpoints, len(e))
	for k, v := range e {
		out[k] = v
	}
	for ep, host := range overrides {
		if _, ok := out[ep]; !ok {
			return nil, fmt.Errorf("unknown endpoint %q", ep)
		}
		if host == "" {
			continue
		}
		out[ep] = host
	}
	return out, nil
}

// Overrides converts the mirror configuration into endpoint overrides,
// dropping empty entries.
func Overrides(m config.MirrorConfig) map[Endpoint]string {
	out := map[Endpoint]string{}
	if m.Apt != "" {
		out[EndpointApt] = m.Apt
	}
	if m.Crates != "" {
		out[EndpointCrates] = m.Crates
	}
	if m.Rustup != "" {
		out[EndpointRustup] = m.Rustup
	}
	return out
}

// sortedEndpoints returns the endpoint names in stable order so rendered
// scripts are reproducible.
func sortedEndpoints(m map[Endpoint]string) []Endpoint {
	keys := make([]Endpoint, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
