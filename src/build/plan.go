package build

// BuildStep is a single container build invocation. The pipeline runs
// one step per invocation: the two-stage build producing the runtime
// image, with build metadata flowing in as build arguments.
type BuildStep struct {
	Name       string
	Dockerfile string
	Context    string
	Target     string
	Platforms  []string
	BuildArgs  map[string]string
	Tags       []string
	Load       bool // --load into daemon
	Push       bool // --push (multi-platform builds can't --load)
}

// IsMultiPlatform returns true if the step targets more than one platform.
func IsMultiPlatform(step BuildStep) bool {
	return len(step.Platforms) > 1
}
