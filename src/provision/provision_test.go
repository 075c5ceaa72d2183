package provision

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/sofmeright/slipway/src/config"
)

// recorder is a fake PackageManager that records the call sequence and
// models a minimal install-state: versioned toolchain packages resolve
// only when their source has been configured.
type recorder struct {
	calls     []string
	sources   map[string]bool
	installed map[string]bool
}

func newRecorder() *recorder {
	return &recorder{
		sources:   map[string]bool{},
		installed: map[string]bool{},
	}
}

func (r *recorder) ConfigureSource(_ context.Context, src PackageSource) error {
	r.calls = append(r.calls, "configure:"+src.Name)
	r.sources[src.Name] = true
	return nil
}

func (r *recorder) ImportKey(_ context.Context, keyURL string) error {
	r.calls = append(r.calls, "import-key")
	return nil
}

func (r *recorder) RefreshIndex(_ context.Context) error {
	r.calls = append(r.calls, "refresh")
	return nil
}

func (r *recorder) Install(_ context.Context, packages ...string) error {
	r.calls = append(r.calls, "install:"+strings.Join(packages, ","))
	for _, p := range packages {
		// clang-15 etc. only resolve via the llvm source
		if strings.HasPrefix(p, "clang-") || strings.HasPrefix(p, "libclang-") || strings.HasPrefix(p, "llvm-") {
			if !r.hasLLVMSource() {
				return fmt.Errorf("package not found: %s", p)
			}
		}
		r.installed[p] = true
	}
	return nil
}

func (r *recorder) hasLLVMSource() bool {
	for name := range r.sources {
		if strings.HasPrefix(name, "llvm-") {
			return true
		}
	}
	return false
}

func testToolchain() config.ToolchainConfig {
	tc := config.DefaultToolchainConfig()
	tc.LLVMMajor = 15
	return tc
}

func TestTrackerBlocksInstallOnFreshEnvironment(t *testing.T) {
	tr := NewTracker(newRecorder())
	err := tr.Install(context.Background(), "build-essential")
	if !errors.Is(err, ErrStaleIndex) {
		t.Fatalf("expected ErrStaleIndex, got %v", err)
	}
}

func TestTrackerRequiresRefreshAfterSourceChange(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(newRecorder())

	if err := tr.RefreshIndex(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tr.Install(ctx, "curl"); err != nil {
		t.Fatalf("install after refresh: %v", err)
	}

	if err := tr.ConfigureSource(ctx, PackageSource{Name: "llvm-15", URL: "http://apt.llvm.org/bookworm/"}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Install(ctx, "clang-15"); !errors.Is(err, ErrStaleIndex) {
		t.Fatalf("expected ErrStaleIndex after source change, got %v", err)
	}

	if err := tr.RefreshIndex(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tr.Install(ctx, "clang-15"); err != nil {
		t.Fatalf("install after second refresh: %v", err)
	}
}

func TestTrackerKeyImportInvalidatesIndex(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(newRecorder())

	if err := tr.RefreshIndex(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tr.ImportKey(ctx, "https://apt.llvm.org/llvm-snapshot.gpg.key"); err != nil {
		t.Fatal(err)
	}
	if err := tr.Install(ctx, "curl"); !errors.Is(err, ErrStaleIndex) {
		t.Fatalf("expected ErrStaleIndex after key import, got %v", err)
	}
}

func TestBootstrapperOrdering(t *testing.T) {
	rec := newRecorder()
	b := &Bootstrapper{PM: NewTracker(rec), Toolchain: testToolchain()}

	if err := b.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	if len(rec.calls) != 4 {
		t.Fatalf("expected 4 calls, got %v", rec.calls)
	}
	wantPrefixes := []string{"configure:llvm-15", "import-key", "refresh", "install:"}
	for i, want := range wantPrefixes {
		if !strings.HasPrefix(rec.calls[i], want) {
			t.Errorf("call[%d] = %q, want prefix %q", i, rec.calls[i], want)
		}
	}
}

func TestInstallWithoutRegistrationFails(t *testing.T) {
	ctx := context.Background()
	rec := newRecorder()
	tr := NewTracker(rec)

	// Skip ConfigureSource entirely: the versioned package must not
	// silently resolve to anything else.
	if err := tr.RefreshIndex(ctx); err != nil {
		t.Fatal(err)
	}
	err := tr.Install(ctx, RequirementSet(testToolchain())...)
	if err == nil {
		t.Fatal("expected install failure for unregistered toolchain repository")
	}
	if !strings.Contains(err.Error(), "package not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestProvisionerIdempotent(t *testing.T) {
	ctx := context.Background()
	rec := newRecorder()
	p := &Provisioner{PM: NewTracker(rec)}

	if err := p.Provision(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before := make(map[string]bool, len(rec.installed))
	for k, v := range rec.installed {
		before[k] = v
	}

	if err := p.Provision(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(before, rec.installed) {
		t.Errorf("installed set changed on re-run: %v vs %v", before, rec.installed)
	}
}

func TestRequirementSet(t *testing.T) {
	tc := testToolchain()
	tc.ExtraPackages = []string{"libzstd-dev"}
	pkgs := RequirementSet(tc)

	for _, want := range []string{"clang-15", "libclang-15-dev", "llvm-15", "protobuf-compiler", "libssl-dev", "libsasl2-dev", "zlib1g-dev", "libzstd-dev"} {
		found := false
		for _, p := range pkgs {
			if p == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("requirement set missing %q: %v", want, pkgs)
		}
	}
}

func TestEndpointsSubstitute(t *testing.T) {
	eps := DefaultEndpoints()

	out, err := eps.Substitute(map[Endpoint]string{EndpointApt: "mirror.internal"})
	if err != nil {
		t.Fatal(err)
	}
	if out[EndpointApt] != "mirror.internal" {
		t.Errorf("apt endpoint = %q", out[EndpointApt])
	}
	if out[EndpointCrates] != eps[EndpointCrates] {
		t.Errorf("untouched endpoint changed: %q", out[EndpointCrates])
	}

	if _, err := eps.Substitute(map[Endpoint]string{"npm": "x"}); err == nil {
		t.Error("expected error for unknown endpoint")
	}
}

func TestMirrorConfiguratorNoopWhenUnconfigured(t *testing.T) {
	c := &MirrorConfigurator{RW: NewScript()}
	if err := c.Apply(context.Background()); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestMirrorConfiguratorRejectsUnknownEndpoint(t *testing.T) {
	c := &MirrorConfigurator{
		RW:        NewScript(),
		Overrides: map[Endpoint]string{"pypi": "mirror.internal"},
	}
	if err := c.Apply(context.Background()); err == nil {
		t.Error("expected error for unknown endpoint")
	}
}

func TestRewriteAptDerivesDefaultHost(t *testing.T) {
	s := NewScript()
	if err := s.RewriteEndpoint(context.Background(), EndpointApt, "mirror.internal"); err != nil {
		t.Fatal(err)
	}

	want := fmt.Sprintf("sed -i 's|%s|mirror.internal|g'", DefaultEndpoints()[EndpointApt])
	rendered := s.Render()
	if !strings.Contains(rendered, want) {
		t.Errorf("rewrite does not target the default apt host:\n%s", rendered)
	}
}

func TestScriptRender(t *testing.T) {
	ctx := context.Background()
	s := NewScript()

	mc := &MirrorConfigurator{RW: s, Overrides: Overrides(config.MirrorConfig{Apt: "mirror.internal"})}
	if err := mc.Apply(ctx); err != nil {
		t.Fatal(err)
	}

	tr := NewTracker(s)
	if err := (&Provisioner{PM: tr}).Provision(ctx); err != nil {
		t.Fatal(err)
	}
	if err := (&Bootstrapper{PM: tr, Toolchain: testToolchain()}).Bootstrap(ctx); err != nil {
		t.Fatal(err)
	}

	script := s.Render()
	ordered := []string{
		"set -eu",
		"sed -i 's|deb.debian.org|mirror.internal|g'",
		"apt-get update",
		"apt-get install -y --no-install-recommends build-essential",
		"echo 'deb http://apt.llvm.org/bookworm/ llvm-toolchain-bookworm-15 main'",
		"curl -fsSL https://apt.llvm.org/llvm-snapshot.gpg.key | apt-key add -",
		"clang-15",
	}
	pos := -1
	for _, want := range ordered {
		idx := strings.Index(script, want)
		if idx < 0 {
			t.Fatalf("rendered script missing %q:\n%s", want, script)
		}
		if idx < pos {
			t.Errorf("%q appears out of order", want)
		}
		pos = idx
	}
}
