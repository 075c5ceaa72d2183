package provision

import (
	"context"
	"fmt"
	"strings"
)

// Script renders the provisioning call sequence as a POSIX shell script
// for embedding into the builder stage. Every call appends lines; nothing
// executes until the container build runs the rendered script. The script
// fails fast: the first failing command aborts the stage, and a failing
// install after a skipped registration or key import is the authoritative
// signal that the trust chain was incomplete.
type Script struct {
	lines []string
}

// NewScript returns an empty apt-flavored script builder.
func NewScript() *Script {
	return &Script{}
}

func (s *Script) ConfigureSource(_ context.Context, src PackageSource) error {
	if src.Name == "" || src.URL == "" {
		return fmt.Errorf("package source needs name and URL, got %+v", src)
	}
	s.lines = append(s.lines, fmt.Sprintf(
		"echo 'deb %s %s main' > /etc/apt/sources.list.d/%s.list",
		src.URL, src.Suite, src.Name))
	return nil
}

func (s *Script) ImportKey(_ context.Context, keyURL string) error {
	if keyURL == "" {
		return fmt.Errorf("key import: empty key URL")
	}
	s.lines = append(s.lines, fmt.Sprintf("curl -fsSL %s | apt-key add -", keyURL))
	return nil
}

func (s *Script) RefreshIndex(_ context.Context) error {
	s.lines = append(s.lines, "apt-get update")
	return nil
}

func (s *Script) Install(_ context.Context, packages ...string) error {
	if len(packages) == 0 {
		return fmt.Errorf("install: no packages given")
	}
	s.lines = append(s.lines,
		"apt-get install -y --no-install-recommends "+strings.Join(packages, " "))
	return nil
}

// RewriteEndpoint redirects a default endpoint to an alternate host.
// Apt is redirected by rewriting the stock source list in place; the
// rust endpoints are redirected through their config file and
// environment interfaces. Missing config paths abort the stage rather
// than leaving a half-redirected environment.
func (s *Script) RewriteEndpoint(_ context.Context, ep Endpoint, host string) error {
	switch ep {
	case EndpointApt:
		s.lines = append(s.lines, fmt.Sprintf(
			"sed -i 's|%s|%s|g' /etc/apt/sources.list.d/debian.sources",
			DefaultEndpoints()[EndpointApt], host))
	case EndpointCrates:
		s.lines = append(s.lines,
			"mkdir -p $CARGO_HOME",
			`printf '[source.crates-io]\nreplace-with = "mirror"\n[source.mirror]\nregistry = "sparse+https://`+host+`/"\n' > $CARGO_HOME/config.toml`,
		)
	case EndpointRustup:
		s.lines = append(s.lines,
			fmt.Sprintf("export RUSTUP_DIST_SERVER=https://%s", host),
			fmt.Sprintf("export RUSTUP_UPDATE_ROOT=https://%s/rustup", host),
		)
	default:
		return fmt.Errorf("rewrite: unknown endpoint %q", ep)
	}
	return nil
}

// Run appends a raw command.
func (s *Script) Run(cmd string) {
	s.lines = append(s.lines, cmd)
}

// Export appends an environment variable export.
func (s *Script) Export(key, value string) {
	s.lines = append(s.lines, fmt.Sprintf("export %s=%s", key, value))
}

// Lines returns the accumulated commands.
func (s *Script) Lines() []string {
	return s.lines
}

// Render returns the complete script. set -eu makes every provisioning
// failure fatal to the stage with no partial state promoted.
func (s *Script) Render() string {
	var b strings.Builder
	b.WriteString("set -eu\n")
	b.WriteString("export DEBIAN_FRONTEND=noninteractive\n")
	for _, line := range s.lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

var (
	_ PackageManager   = (*Script)(nil)
	_ EndpointRewriter = (*Script)(nil)
)
