package build

import (
	"testing"
	"time"
)

const sampleOutput = `#1 [internal] load build definition from Dockerfile
#1 DONE 0.0s
#2 [builder 1/4] FROM docker.io/rust:1.70-bookworm@sha256:aaaabbbb AS builder
#2 DONE 12.3s
#3 [builder 2/4] RUN apt-get update
#3 DONE 44.8s
#4 [builder 3/4] COPY . .
#4 CACHED
#5 [stage-1 1/2] FROM docker.io/debian:bookworm-slim@sha256:ccccdddd
#5 DONE 2.1s
#6 exporting to image
#6 DONE 1.0s
`

func TestParseBuildxOutput(t *testing.T) {
	events := ParseBuildxOutput(sampleOutput)
	if len(events) != 4 {
		t.Fatalf("expected 4 layer events, got %d: %+v", len(events), events)
	}

	from := events[0]
	if from.Instruction != "FROM" || from.Image != "docker.io/rust:1.70-bookworm" {
		t.Errorf("first event = %+v", from)
	}
	if from.Stage != "builder" || from.StageStep != "1/4" {
		t.Errorf("stage info = %q %q", from.Stage, from.StageStep)
	}

	run := events[1]
	if run.Instruction != "RUN" || run.Cached {
		t.Errorf("run event = %+v", run)
	}
	if run.Duration < 44*time.Second || run.Duration > 45*time.Second {
		t.Errorf("run duration = %v", run.Duration)
	}

	if !events[2].Cached {
		t.Errorf("COPY layer should be cached: %+v", events[2])
	}
}

func TestFormatLayerTiming(t *testing.T) {
	if got := FormatLayerTiming(LayerEvent{Cached: true}); got != "cached" {
		t.Errorf("cached timing = %q", got)
	}
	if got := FormatLayerTiming(LayerEvent{Duration: 90 * time.Second}); got != "1.5m" {
		t.Errorf("minute timing = %q", got)
	}
	if got := FormatLayerTiming(LayerEvent{Duration: 2500 * time.Millisecond}); got != "2.5s" {
		t.Errorf("second timing = %q", got)
	}
}

func TestIsMultiPlatform(t *testing.T) {
	if IsMultiPlatform(BuildStep{Platforms: []string{"linux/amd64"}}) {
		t.Error("single platform reported as multi")
	}
	if !IsMultiPlatform(BuildStep{Platforms: []string{"linux/amd64", "linux/arm64"}}) {
		t.Error("two platforms not reported as multi")
	}
}
