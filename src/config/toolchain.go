package config

// ToolchainConfig pins the compiler toolchain provisioned in the builder
// stage. The LLVM line matters because the service's native-interop layer
// generates bindings through libclang and needs a minimum front-end version.
type ToolchainConfig struct {
	// RustVersion is the rustup toolchain to pin (e.g. "1.70.0").
	RustVersion string `yaml:"rust_version"`
	// LLVMMajor selects the apt.llvm.org release line (e.g. 15 for llvm-15).
	LLVMMajor int `yaml:"llvm_major"`
	// LLVMRepoURL is the versioned toolchain repository base URL.
	LLVMRepoURL string `yaml:"llvm_repo_url"`
	// LLVMKeyURL is the public signing key imported before the repo is used.
	LLVMKeyURL string `yaml:"llvm_key_url"`
	// Distribution is the Debian suite name the repo entry targets.
	Distribution string `yaml:"distribution"`
	// ExtraPackages are appended to the toolchain requirement set.
	ExtraPackages []string `yaml:"extra_packages"`
}

// DefaultToolchainConfig returns the toolchain line the service is built
// against by default.
func DefaultToolchainConfig() ToolchainConfig {
	return ToolchainConfig{
		RustVersion:  "1.70.0",
		LLVMMajor:    15,
		LLVMRepoURL:  "http://apt.llvm.org",
		LLVMKeyURL:   "https://apt.llvm.org/llvm-snapshot.gpg.key",
		Distribution: "bookworm",
	}
}
