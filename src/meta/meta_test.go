package meta

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func TestIdentity(t *testing.T) {
	m := &Metadata{Name: "vector", Version: "0.30.0", SHA: "abc1234", Date: "20240115"}
	want := "0.30.0_abc1234_20240115"
	if got := m.Identity(); got != want {
		t.Errorf("Identity() = %q, want %q", got, want)
	}
	if got := m.PackageIdentity(); got != "vector#0.30.0" {
		t.Errorf("PackageIdentity() = %q", got)
	}
}

func TestIdentityDeterministic(t *testing.T) {
	m := &Metadata{Version: "1.2.3", SHA: "0badf00", Date: "20260829"}
	first := m.Identity()
	for i := 0; i < 10; i++ {
		if got := m.Identity(); got != first {
			t.Fatalf("Identity() not stable: %q vs %q", got, first)
		}
	}
}

func TestIdentityDistinctRevisions(t *testing.T) {
	a := &Metadata{Version: "0.30.0", SHA: "abc1234", Date: "20240115"}
	b := &Metadata{Version: "0.30.0", SHA: "def5678", Date: "20240115"}
	if a.Identity() == b.Identity() {
		t.Errorf("same-day builds from different revisions collided: %q", a.Identity())
	}
}

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		in        string
		name, ver string
		wantErr   bool
	}{
		{"vector#0.30.0", "vector", "0.30.0", false},
		{"svc#1.0.0-rc.1", "svc", "1.0.0-rc.1", false},
		{"no-separator", "", "", true},
		{"#1.0.0", "", "", true},
		{"svc#", "", "", true},
		{"svc#not.a.version", "", "", true},
	}
	for _, tt := range tests {
		name, ver, err := ParseIdentity(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseIdentity(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseIdentity(%q): %v", tt.in, err)
			continue
		}
		if name != tt.name || ver != tt.ver {
			t.Errorf("ParseIdentity(%q) = (%q, %q), want (%q, %q)", tt.in, name, ver, tt.name, tt.ver)
		}
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := `[package]
name = "vector"
version = "0.30.0"
edition = "2021"

[dependencies]
serde = "1"
`
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	m, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Package.Name != "vector" || m.Package.Version != "0.30.0" {
		t.Errorf("got %q %q", m.Package.Name, m.Package.Version)
	}
	if m.Identity() != "vector#0.30.0" {
		t.Errorf("Identity() = %q", m.Identity())
	}
}

// initRepo creates a git repository with a single commit and returns the
// full commit hash.
func initRepo(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("service\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("README.md"); err != nil {
		t.Fatalf("add: %v", err)
	}
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return hash.String()
}

func TestCollectWithExplicitIdentity(t *testing.T) {
	dir := t.TempDir()
	hash := initRepo(t, dir)

	// No Cargo.toml in the tree: the explicit identity must be enough.
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	m, err := Collect(dir, "vector#0.30.0", "nightly", now)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if m.Name != "vector" || m.Version != "0.30.0" {
		t.Errorf("package = %q %q", m.Name, m.Version)
	}
	if m.SHA != hash[:7] {
		t.Errorf("SHA = %q, want %q", m.SHA, hash[:7])
	}
	if m.Description != "nightly" {
		t.Errorf("Description = %q", m.Description)
	}
	if want := "0.30.0_" + hash[:7] + "_20240115"; m.Identity() != want {
		t.Errorf("Identity() = %q, want %q", m.Identity(), want)
	}
}

func TestCollectRejectsBadIdentity(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)

	if _, err := Collect(dir, "vector#not.semver", "", time.Now()); err == nil {
		t.Error("expected error for malformed package identity")
	}
}

func TestLoadManifestRejectsBadVersion(t *testing.T) {
	dir := t.TempDir()
	manifest := "[package]\nname = \"svc\"\nversion = \"one.two\"\n"
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if _, err := LoadManifest(dir); err == nil {
		t.Error("expected error for non-semver version")
	}
}
