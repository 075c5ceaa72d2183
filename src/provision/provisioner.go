package provision

import "context"

// baselinePackages bring a stock base image to a state where the
// toolchain repository can be registered and used: build tooling plus
// HTTPS transport for the package manager itself.
var baselinePackages = []string{
	"build-essential",
	"apt-transport-https",
	"ca-certificates",
	"curl",
	"gnupg",
	"pkg-config",
}

// Provisioner idempotently installs the baseline package set. Re-running
// against an already-provisioned environment re-asserts install state and
// succeeds without further side effects.
type Provisioner struct {
	PM PackageManager
}

// Provision refreshes the index and installs the baseline batch. The
// refresh runs immediately before the batch because stale indices turn
// into "package not found" failures.
func (p *Provisioner) Provision(ctx context.Context) error {
	if err := p.PM.RefreshIndex(ctx); err != nil {
		return err
	}
	return p.PM.Install(ctx, baselinePackages...)
}
