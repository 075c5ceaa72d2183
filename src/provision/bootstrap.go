package provision

import (
	"context"
	"fmt"

	"github.com/sofmeright/slipway/src/config"
)

// toolchainPackages is the fixed requirement set compiled against: the
// protocol-buffer compiler plus the SSL, auth, and compression
// development headers the service's native dependencies link against.
var toolchainPackages = []string{
	"protobuf-compiler",
	"libssl-dev",
	"libsasl2-dev",
	"zlib1g-dev",
	"cmake",
}

// LLVMSource returns the versioned toolchain repository for the
// configured release line, e.g. llvm-toolchain-bookworm-15.
func LLVMSource(tc config.ToolchainConfig) PackageSource {
	return PackageSource{
		Name:   fmt.Sprintf("llvm-%d", tc.LLVMMajor),
		URL:    fmt.Sprintf("%s/%s/", tc.LLVMRepoURL, tc.Distribution),
		Suite:  fmt.Sprintf("llvm-toolchain-%s-%d", tc.Distribution, tc.LLVMMajor),
		KeyURL: tc.LLVMKeyURL,
	}
}

// RequirementSet returns every package the toolchain bootstrap installs:
// the versioned native compiler runtime and development libraries, the
// fixed build requirements, and any configured extras. Every entry must
// resolve via the configured sources or the install fails.
func RequirementSet(tc config.ToolchainConfig) []string {
	pkgs := []string{
		fmt.Sprintf("clang-%d", tc.LLVMMajor),
		fmt.Sprintf("libclang-%d-dev", tc.LLVMMajor),
		fmt.Sprintf("llvm-%d", tc.LLVMMajor),
	}
	pkgs = append(pkgs, toolchainPackages...)
	pkgs = append(pkgs, tc.ExtraPackages...)
	return pkgs
}

// Bootstrapper registers the versioned toolchain repository and installs
// the requirement set.
type Bootstrapper struct {
	PM        PackageManager
	Toolchain config.ToolchainConfig
}

// Bootstrap runs the ordered sequence: register source, import key,
// refresh, install. Registration and key import both complete before the
// refresh; whether a broken trust chain surfaces as a refresh error or as
// a later install failure is the package manager's policy; either way
// the sequence aborts.
func (b *Bootstrapper) Bootstrap(ctx context.Context) error {
	src := LLVMSource(b.Toolchain)

	if err := b.PM.ConfigureSource(ctx, src); err != nil {
		return fmt.Errorf("registering %s: %w", src.Name, err)
	}
	if err := b.PM.ImportKey(ctx, src.KeyURL); err != nil {
		return fmt.Errorf("importing key for %s: %w", src.Name, err)
	}
	if err := b.PM.RefreshIndex(ctx); err != nil {
		return fmt.Errorf("refreshing index after registering %s: %w", src.Name, err)
	}
	if err := b.PM.Install(ctx, RequirementSet(b.Toolchain)...); err != nil {
		return fmt.Errorf("installing toolchain requirement set: %w", err)
	}
	return nil
}
