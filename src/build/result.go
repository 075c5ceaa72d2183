package build

import "time"

// StepResult captures the outcome of a single build step.
type StepResult struct {
	Name     string
	Status   string       // "success", "failed"
	Images   []string     // image references produced
	Layers   []LayerEvent // parsed build layer events (from --progress=plain)
	Duration time.Duration
	Error    error
}
