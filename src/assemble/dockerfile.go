// Package assemble generates and checks the two-stage container build: a
// heavyweight builder stage that provisions the toolchain and compiles
// the release binary, and a minimal runtime stage that receives only the
// binary and its static configuration across the stage boundary.
package assemble

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/sofmeright/slipway/src/config"
	"github.com/sofmeright/slipway/src/provision"
)

// BuilderStageName is the alias of the toolchain stage.
const BuilderStageName = "builder"

// runtimePackages are the only packages installed in the runtime stage:
// trust roots, timezone data, and the init supervisor.
var runtimePackages = []string{"ca-certificates", "tzdata", "tini"}

// Input carries everything the generated Dockerfile depends on.
type Input struct {
	Image       config.ImageConfig
	Toolchain   config.ToolchainConfig
	Mirrors     config.MirrorConfig
	PackageName string // cargo package name; names the compiled binary
}

// Generate renders the two-stage Dockerfile. Build metadata does not
// appear literally: it flows in through ARGs at build time so the file
// itself is identical across revisions.
func Generate(in Input) (string, error) {
	if in.PackageName == "" {
		return "", fmt.Errorf("assemble: package name required")
	}

	script, err := provisionScript(in)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# syntax=docker/dockerfile:1\n\n")

	// --- Builder stage ---
	fmt.Fprintf(&b, "FROM %s AS %s\n\n", in.Image.BuilderBase, BuilderStageName)
	b.WriteString("ARG BUILD_DESC=\"\"\n")
	b.WriteString("ARG FEATURES=\"default\"\n")
	extraArgs := make([]string, 0, len(in.Image.BuildArgs))
	for k := range in.Image.BuildArgs {
		extraArgs = append(extraArgs, k)
	}
	sort.Strings(extraArgs)
	for _, k := range extraArgs {
		fmt.Fprintf(&b, "ARG %s\n", k)
	}
	b.WriteString("\n")
	// Verbose cargo and network tracing: failures in a disposable,
	// non-interactive environment must be diagnosable post hoc.
	b.WriteString("ENV BUILD_DESC=\"${BUILD_DESC}\" \\\n")
	b.WriteString("    CARGO_TERM_VERBOSE=true \\\n")
	b.WriteString("    CARGO_HTTP_DEBUG=true \\\n")
	b.WriteString("    RUST_BACKTRACE=full\n\n")

	b.WriteString("WORKDIR /src\n\n")

	b.WriteString("RUN <<'PROVISION'\n")
	b.WriteString(script)
	b.WriteString("PROVISION\n\n")

	b.WriteString("COPY . .\n\n")
	b.WriteString("RUN cargo build --release --features \"${FEATURES}\"\n\n")

	// --- Runtime stage ---
	fmt.Fprintf(&b, "FROM %s\n\n", in.Image.RuntimeBase)
	b.WriteString("ARG VERSION=\"\"\n")
	b.WriteString("ARG REVISION=\"\"\n")
	b.WriteString("ARG BUILD_DATE=\"\"\n")
	b.WriteString("LABEL org.opencontainers.image.version=\"${VERSION}\" \\\n")
	b.WriteString("      org.opencontainers.image.revision=\"${REVISION}\" \\\n")
	b.WriteString("      org.opencontainers.image.created=\"${BUILD_DATE}\"\n\n")

	b.WriteString("RUN <<'RUNTIME'\n")
	b.WriteString("set -eu\n")
	b.WriteString("export DEBIAN_FRONTEND=noninteractive\n")
	b.WriteString("apt-get update\n")
	b.WriteString("apt-get install -y --no-install-recommends " + strings.Join(runtimePackages, " ") + "\n")
	b.WriteString("rm -rf /var/lib/apt/lists/*\n")
	b.WriteString("RUNTIME\n\n")

	// The only permitted stage-boundary crossings: the compiled binary
	// and the static configuration directory.
	fmt.Fprintf(&b, "COPY --from=%s %s %s\n",
		BuilderStageName, BinarySourcePath(in.PackageName), in.Image.BinaryPath)
	fmt.Fprintf(&b, "COPY --from=%s /src/config/ %s/\n\n", BuilderStageName,
		strings.TrimSuffix(in.Image.ConfigDir, "/"))

	fmt.Fprintf(&b, "VOLUME %s\n\n", in.Image.DataDir)
	fmt.Fprintf(&b, "ENTRYPOINT [\"/usr/bin/tini\", \"--\", %q]\n", in.Image.BinaryPath)
	fmt.Fprintf(&b, "CMD [\"--config-dir\", %q]\n", in.Image.ConfigDir)

	return b.String(), nil
}

// provisionScript assembles the builder-stage provisioning sequence:
// mirror substitution first, then baseline provisioning, then toolchain
// bootstrap, then the rust pin.
func provisionScript(in Input) (string, error) {
	ctx := context.Background()
	s := provision.NewScript()

	mc := &provision.MirrorConfigurator{
		RW:        s,
		Overrides: provision.Overrides(in.Mirrors),
	}
	if err := mc.Apply(ctx); err != nil {
		return "", err
	}

	pm := provision.NewTracker(s)
	if err := (&provision.Provisioner{PM: pm}).Provision(ctx); err != nil {
		return "", err
	}
	if err := (&provision.Bootstrapper{PM: pm, Toolchain: in.Toolchain}).Bootstrap(ctx); err != nil {
		return "", err
	}

	if v := in.Toolchain.RustVersion; v != "" {
		s.Run(fmt.Sprintf("rustup toolchain install %s --profile minimal", v))
		s.Run(fmt.Sprintf("rustup default %s", v))
	}
	s.Run("rm -rf /var/lib/apt/lists/*")

	return s.Render(), nil
}

// BinarySourcePath returns where the builder stage leaves the compiled
// binary, relative to its workdir.
func BinarySourcePath(packageName string) string {
	return path.Join("/src/target/release", packageName)
}
