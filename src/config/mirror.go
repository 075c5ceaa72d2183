package config

// MirrorConfig redirects the default provisioning endpoints to alternate
// hosts. Substitution happens before any network-heavy step; an empty
// field leaves the default endpoint untouched.
type MirrorConfig struct {
	// Apt replaces the Debian package index host (deb.debian.org).
	Apt string `yaml:"apt"`
	// Crates replaces the crates.io registry index host.
	Crates string `yaml:"crates"`
	// Rustup replaces the rustup distribution server (static.rust-lang.org).
	Rustup string `yaml:"rustup"`
}

// Active returns true if any endpoint has an alternate configured.
func (m MirrorConfig) Active() bool {
	return m.Apt != "" || m.Crates != "" || m.Rustup != ""
}

// DefaultMirrorConfig returns mirror configuration with everything disabled.
func DefaultMirrorConfig() MirrorConfig {
	return MirrorConfig{}
}
