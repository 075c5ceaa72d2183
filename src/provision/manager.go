package provision

import "context"

// PackageSource is a (name, URL, signing key) triple registered with the
// package manager. It must be fully configured before any installation
// that depends on it, or that installation fails.
type PackageSource struct {
	Name   string // source identifier, also names the list entry
	URL    string // repository base URL
	Suite  string // distribution suite, e.g. "llvm-toolchain-bookworm-15"
	KeyURL string // public signing key location, imported before use
}

// PackageManager is the external package-manager collaborator. The
// pipeline calls these operations but does not implement their semantics.
type PackageManager interface {
	// ConfigureSource registers an additional package source.
	ConfigureSource(ctx context.Context, src PackageSource) error
	// ImportKey imports a public signing key so a source is trusted.
	ImportKey(ctx context.Context, keyURL string) error
	// RefreshIndex refreshes the package index. Required after any
	// source change before the next Install.
	RefreshIndex(ctx context.Context) error
	// Install installs the named packages. Installing an already
	// installed package re-asserts its state and succeeds.
	Install(ctx context.Context, packages ...string) error
}

// EndpointRewriter redirects a default endpoint to an alternate host
// inside the provisioning environment.
type EndpointRewriter interface {
	RewriteEndpoint(ctx context.Context, ep Endpoint, host string) error
}
