package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/sofmeright/slipway/src/logs"
)

// Buildx wraps the docker CLI: buildx builds, tagging, pushing, and
// dangling-image reclamation. Each call blocks until the underlying
// command completes or the context is cancelled.
type Buildx struct {
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
}

// NewBuildx creates a Buildx runner with default output writers.
func NewBuildx(verbose bool) *Buildx {
	return &Buildx{
		Verbose: verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Build executes a single build step via docker buildx.
func (bx *Buildx) Build(ctx context.Context, step BuildStep) (*StepResult, error) {
	start := time.Now()
	result := &StepResult{Name: step.Name}

	args := bx.buildArgs(step)
	logs.Debug("exec", "cmd", "docker "+strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Stdout = bx.Stdout
	cmd.Stderr = bx.Stderr

	if err := cmd.Run(); err != nil {
		result.Status = "failed"
		result.Duration = time.Since(start)
		result.Error = fmt.Errorf("docker buildx build failed: %w", err)
		return result, result.Error
	}

	result.Status = "success"
	result.Duration = time.Since(start)
	result.Images = step.Tags

	return result, nil
}

// BuildWithLayers runs Build with --progress=plain output teed into a
// parse buffer, returning the structured layer events alongside the
// result. Layers that completed before a failure are still returned so a
// broken build is diagnosable from the section output.
func (bx *Buildx) BuildWithLayers(ctx context.Context, step BuildStep) (*StepResult, []LayerEvent, error) {
	var parseBuf bytes.Buffer

	inner := *bx
	if bx.Stderr != nil {
		inner.Stderr = io.MultiWriter(bx.Stderr, &parseBuf)
	} else {
		inner.Stderr = &parseBuf
	}

	result, err := inner.Build(ctx, step)
	layers := ParseBuildxOutput(parseBuf.String())
	return result, layers, err
}

// buildArgs constructs the docker buildx build argument list.
func (bx *Buildx) buildArgs(step BuildStep) []string {
	args := []string{"buildx", "build", "--progress=plain"}

	if step.Dockerfile != "" {
		args = append(args, "--file", step.Dockerfile)
	}
	if step.Target != "" {
		args = append(args, "--target", step.Target)
	}
	if len(step.Platforms) > 0 {
		args = append(args, "--platform", strings.Join(step.Platforms, ","))
	}
	for _, k := range sortedKeys(step.BuildArgs) {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, step.BuildArgs[k]))
	}
	for _, tag := range step.Tags {
		args = append(args, "--tag", tag)
	}

	switch {
	case step.Push:
		args = append(args, "--push")
	case step.Load:
		args = append(args, "--load")
	}

	buildContext := step.Context
	if buildContext == "" {
		buildContext = "."
	}
	args = append(args, buildContext)

	return args
}

// EnsureBuilder checks that a buildx builder is available and creates one if needed.
func (bx *Buildx) EnsureBuilder(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "docker", "buildx", "inspect")
	if err := cmd.Run(); err != nil {
		create := exec.CommandContext(ctx, "docker", "buildx", "create", "--use", "--name", "slipway")
		create.Stdout = bx.Stderr
		create.Stderr = bx.Stderr
		if createErr := create.Run(); createErr != nil {
			return fmt.Errorf("creating buildx builder: %w", createErr)
		}
	}
	return nil
}

// Tag assigns an additional name to an existing image in the daemon.
func (bx *Buildx) Tag(ctx context.Context, image, tag string) error {
	logs.Debug("exec", "cmd", fmt.Sprintf("docker tag %s %s", image, tag))
	cmd := exec.CommandContext(ctx, "docker", "tag", image, tag)
	cmd.Stdout = bx.Stderr
	cmd.Stderr = bx.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tagging %s as %s: %w", image, tag, err)
	}
	return nil
}

// Push pushes each fully qualified reference.
func (bx *Buildx) Push(ctx context.Context, refs []string) error {
	for _, ref := range refs {
		logs.Debug("exec", "cmd", "docker push "+ref)
		cmd := exec.CommandContext(ctx, "docker", "push", ref)
		cmd.Stdout = bx.Stderr
		cmd.Stderr = bx.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("pushing %s: %w", ref, err)
		}
	}
	return nil
}

// PruneDangling reclaims untagged, unreferenced intermediate images left
// behind by multi-stage builds. Returns the reclaimed-space report line.
func (bx *Buildx) PruneDangling(ctx context.Context) (string, error) {
	logs.Debug("exec", "cmd", "docker image prune --force")
	cmd := exec.CommandContext(ctx, "docker", "image", "prune", "--force")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pruning dangling images: %w", err)
	}

	// Last non-empty line is docker's "Total reclaimed space: ..." report.
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 {
		return "", nil
	}
	return strings.TrimSpace(lines[len(lines)-1]), nil
}

// ImageExists reports whether the daemon has an image for ref.
func (bx *Buildx) ImageExists(ctx context.Context, ref string) bool {
	cmd := exec.CommandContext(ctx, "docker", "image", "inspect", ref)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run() == nil
}

// sortedKeys keeps --build-arg order stable across invocations.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
