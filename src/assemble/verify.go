package assemble

import (
	"fmt"
	"strings"
)

// buildOnlyPackages must never be installed in the runtime stage. The
// stage boundary enforces this structurally; the verifier catches
// hand-written Dockerfiles that break the contract.
var buildOnlyPackages = []string{
	"build-essential",
	"clang",
	"libclang",
	"llvm",
	"cmake",
	"protobuf-compiler",
	"libssl-dev",
	"libsasl2-dev",
	"zlib1g-dev",
	"gcc",
	"g++",
	"rustc",
	"cargo",
	"rustup",
}

// VerifyStageIsolation checks the two-stage contract: at least two
// stages, every COPY in the final stage crosses from an earlier stage
// (never from the build context), and no build-only package is installed
// in the final stage.
func VerifyStageIsolation(df *Dockerfile) error {
	if len(df.Stages) < 2 {
		return fmt.Errorf("stage isolation: need builder and runtime stages, found %d", len(df.Stages))
	}

	final := df.Final()
	crossings := 0

	for _, inst := range final.Instructions {
		switch inst.Cmd {
		case "COPY", "ADD":
			if !strings.Contains(inst.Args, "--from=") {
				return fmt.Errorf("stage isolation: line %d copies from the build context into the runtime stage", inst.Line)
			}
			crossings++
		case "RUN":
			if pkg := findBuildOnlyPackage(inst.Args); pkg != "" {
				return fmt.Errorf("stage isolation: line %d installs build-only package %q in the runtime stage", inst.Line, pkg)
			}
		}
	}

	if crossings == 0 {
		return fmt.Errorf("stage isolation: runtime stage never copies the compiled artifact from %s", BuilderStageName)
	}
	return nil
}

// findBuildOnlyPackage scans an apt-get install invocation for
// build-only package tokens.
func findBuildOnlyPackage(runArgs string) string {
	if !strings.Contains(runArgs, "apt-get install") && !strings.Contains(runArgs, "apt install") {
		return ""
	}
	for _, token := range strings.Fields(runArgs) {
		for _, pkg := range buildOnlyPackages {
			if token == pkg || strings.HasPrefix(token, pkg+"-") {
				return token
			}
		}
	}
	return ""
}
