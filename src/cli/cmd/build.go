package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sofmeright/slipway/src/assemble"
	"github.com/sofmeright/slipway/src/build"
	"github.com/sofmeright/slipway/src/meta"
	"github.com/sofmeright/slipway/src/output"
	"github.com/sofmeright/slipway/src/pipeline"
	"github.com/sofmeright/slipway/src/publish"
	"github.com/sofmeright/slipway/src/scan"
)

var (
	bLocal     bool
	bPush      bool
	bPlatforms []string
	bSkipScan  bool
	bDryRun    bool
	bDesc      string
	bIdentity  string
)

var buildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Build and tag the release image",
	Long: `Run the release pipeline: scan the build context for secrets, collect
build metadata, assemble the two-stage Dockerfile, compile and package
via docker buildx, and tag the image with its deterministic identity.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&bLocal, "local", false, "build for current platform, load into daemon")
	buildCmd.Flags().BoolVar(&bPush, "push", false, "push the tagged image to configured registries")
	buildCmd.Flags().StringSliceVar(&bPlatforms, "platform", nil, "override platforms (comma-separated)")
	buildCmd.Flags().BoolVar(&bSkipScan, "skip-scan", false, "skip the pre-build secret scan")
	buildCmd.Flags().BoolVar(&bDryRun, "dry-run", false, "show the plan without executing")
	buildCmd.Flags().StringVar(&bDesc, "build-desc", "", "build description embedded in the image (default: $SLIPWAY_BUILD_DESC)")
	buildCmd.Flags().StringVar(&bIdentity, "package-identity", "", "package identity (name#version) overriding the Cargo manifest")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}
	if len(args) > 0 {
		rootDir = args[0]
	}

	ctx := context.Background()
	ci := output.IsCI()
	color := output.UseColor()
	w := os.Stdout
	pipelineStart := time.Now()

	platforms := cfg.Image.Platforms
	if len(bPlatforms) > 0 {
		platforms = bPlatforms
	}
	if bLocal || len(platforms) == 0 {
		platforms = []string{"linux/" + runtime.GOARCH}
	}
	multiPlatform := build.IsMultiPlatform(build.BuildStep{Platforms: platforms})

	output.ContextBlock(w, buildContextKV(platforms))

	if multiPlatform && !bPush {
		return fmt.Errorf("multi-platform builds cannot be loaded into the daemon; pass --push")
	}
	if multiPlatform && len(cfg.Image.PushTo) == 0 {
		return fmt.Errorf("multi-platform build needs push_to registries configured")
	}

	// Shared pipeline state, filled in stage order.
	var (
		md             *meta.Metadata
		dockerfilePath string
		generated      bool
		builtRef       string
		taggedRef      string
		stepResult     *build.StepResult
		stderrBuf      bytes.Buffer
		details        = map[string]string{}
	)

	bx := build.NewBuildx(verbose)
	bx.Stdout = io.Discard
	if verbose {
		bx.Stderr = os.Stderr
	} else {
		bx.Stderr = &stderrBuf
	}
	pub := &publish.Publisher{BX: bx, Repository: cfg.Image.Repository}

	scanStage := pipeline.Stage{
		Name:  "scan",
		Class: pipeline.Fatal,
		Run: func(ctx context.Context) error {
			if bSkipScan || !cfg.Scan.Active() {
				details["scan"] = "skipped"
				return nil
			}
			output.SectionStart(w, "sw_scan", "Scan")
			defer output.SectionEnd(w, "sw_scan")

			start := time.Now()
			scanner := &scan.Scanner{Root: rootDir, Cfg: cfg.Scan}
			files, err := scanner.Collect()
			if err != nil {
				return fmt.Errorf("collecting context files: %w", err)
			}
			findings, err := scanner.Run(ctx, files)
			if err != nil {
				return fmt.Errorf("scanning context: %w", err)
			}
			elapsed := time.Since(start)

			if ci {
				if jErr := output.WriteScanJUnit(".slipway/reports", findings, files, elapsed); jErr != nil {
					fmt.Fprintf(os.Stderr, "warning: failed to write junit report: %v\n", jErr)
				}
			}

			sec := output.NewSection(w, "Scan", elapsed, color)
			sec.Row("%-16s%d files", "scanned", len(files))
			if len(findings) > 0 {
				output.SectionFindings(sec, findings, color)
				sec.Separator()
				sec.Row("%s", output.FindingsSummaryLine(len(findings), len(files), color))
				sec.Close()
				details["scan"] = fmt.Sprintf("%d finding(s)", len(findings))
				return fmt.Errorf("%d secret finding(s) in build context", len(findings))
			}
			sec.Close()

			details["scan"] = fmt.Sprintf("%d files, clean", len(files))
			return nil
		},
	}

	metadataStage := pipeline.Stage{
		Name:  "metadata",
		Class: pipeline.Fatal,
		Run: func(ctx context.Context) error {
			var err error
			md, err = meta.Collect(rootDir, bIdentity, bDesc, time.Now())
			if err != nil {
				return err
			}

			sec := output.NewSection(w, "Metadata", 0, color)
			sec.Row("%-16s%s", "package", md.PackageIdentity())
			sec.Row("%-16s%s (%s)", "revision", md.SHA, md.Branch)
			sec.Row("%-16s%s", "date", md.Date)
			if md.Description != "" {
				sec.Row("%-16s%s", "description", md.Description)
			}
			sec.Separator()
			sec.Row("%-16s%s", "identity", md.Identity())
			sec.Close()

			details["metadata"] = md.Identity()
			return nil
		},
	}

	assembleStage := pipeline.Stage{
		Name:  "assemble",
		Class: pipeline.Fatal,
		Run: func(ctx context.Context) error {
			start := time.Now()

			var df *assemble.Dockerfile
			if cfg.Image.Dockerfile != "" {
				dockerfilePath = cfg.Image.Dockerfile
				parsed, err := assemble.ParseFile(dockerfilePath)
				if err != nil {
					return fmt.Errorf("parsing %s: %w", dockerfilePath, err)
				}
				df = parsed
			} else {
				content, err := assemble.Generate(assemble.Input{
					Image:       cfg.Image,
					Toolchain:   cfg.Toolchain,
					Mirrors:     cfg.Mirrors,
					PackageName: md.Name,
				})
				if err != nil {
					return err
				}
				dir := filepath.Join(rootDir, ".slipway")
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("creating %s: %w", dir, err)
				}
				dockerfilePath = filepath.Join(dir, "Dockerfile")
				if err := os.WriteFile(dockerfilePath, []byte(content), 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", dockerfilePath, err)
				}
				generated = true

				parsed, err := assemble.Parse(strings.NewReader(content))
				if err != nil {
					return fmt.Errorf("parsing generated dockerfile: %w", err)
				}
				df = parsed
			}

			if err := assemble.VerifyStageIsolation(df); err != nil {
				return err
			}
			elapsed := time.Since(start)

			source := "existing"
			if generated {
				source = "generated"
			}
			sec := output.NewSection(w, "Assemble", elapsed, color)
			sec.Row("%-16s%s (%s)", "dockerfile", dockerfilePath, source)
			sec.Row("%-16s%s", "builder", cfg.Image.BuilderBase)
			sec.Row("%-16s%s", "runtime", cfg.Image.RuntimeBase)
			sec.Row("%-16s%d stages, isolation verified", "stages", len(df.Stages))
			sec.Close()

			details["assemble"] = fmt.Sprintf("%d stages, %s", len(df.Stages), source)
			return nil
		},
	}

	planStep := func() build.BuildStep {
		buildArgs := map[string]string{
			"VERSION":    md.Version,
			"REVISION":   md.SHA,
			"BUILD_DATE": md.Date,
			"BUILD_DESC": md.Description,
		}
		if cfg.Image.Features != "" {
			buildArgs["FEATURES"] = cfg.Image.Features
		}
		for k, v := range cfg.Image.BuildArgs {
			buildArgs[k] = v
		}

		buildCtx := cfg.Image.Context
		if buildCtx == "" || buildCtx == "." {
			buildCtx = rootDir
		}

		step := build.BuildStep{
			Name:       md.Name,
			Dockerfile: dockerfilePath,
			Context:    buildCtx,
			Platforms:  platforms,
			BuildArgs:  buildArgs,
			Tags:       []string{pub.Ref(md)},
		}
		if multiPlatform {
			step.Push = true
			step.Tags = publish.PushRefs(cfg.Image.PushTo, pub.Ref(md))
		} else {
			step.Load = true
		}
		return step
	}

	buildStage := pipeline.Stage{
		Name:  "build",
		Class: pipeline.Fatal,
		Run: func(ctx context.Context) error {
			output.SectionStart(w, "sw_build", "Build")
			defer output.SectionEnd(w, "sw_build")

			step := planStep()
			if multiPlatform {
				if err := bx.EnsureBuilder(ctx); err != nil {
					return err
				}
			}

			start := time.Now()
			result, layers, err := bx.BuildWithLayers(ctx, step)
			if result != nil {
				result.Layers = layers
			}
			stepResult = result
			elapsed := time.Since(start)

			sec := output.NewSection(w, "Build", elapsed, color)
			if renderLayers(sec, result, color) {
				sec.Separator()
			}
			if err != nil {
				output.RowStatus(sec, "status", "build failed", "failed", color)
				sec.Close()
				if ci {
					output.SectionStartCollapsed(w, "sw_build_raw", "Build Output (raw)")
					fmt.Fprint(w, stderrBuf.String())
					output.SectionEnd(w, "sw_build_raw")
				} else if !verbose {
					fmt.Fprint(os.Stderr, stderrBuf.String())
				}
				return err
			}
			for _, img := range result.Images {
				sec.Row("result  %s", img)
			}
			sec.Close()

			builtRef = step.Tags[0]
			details["build"] = fmt.Sprintf("%d layer(s), %s", len(layers), strings.Join(platforms, ","))
			return nil
		},
	}

	tagStage := pipeline.Stage{
		Name:  "tag",
		Class: pipeline.Fatal,
		Run: func(ctx context.Context) error {
			var err error
			taggedRef, err = pub.Tag(ctx, builtRef, md)
			if err != nil {
				return err
			}
			details["tag"] = taggedRef
			return nil
		},
	}

	pruneStage := pipeline.Stage{
		Name:  "prune",
		Class: pipeline.BestEffort,
		Run: func(ctx context.Context) error {
			report, err := pub.Prune(ctx)
			if err != nil {
				return err
			}
			if report == "" {
				report = "nothing to reclaim"
			}
			details["prune"] = report
			return nil
		},
	}

	pushStage := pipeline.Stage{
		Name:  "push",
		Class: pipeline.Fatal,
		Run: func(ctx context.Context) error {
			refs := publish.PushRefs(cfg.Image.PushTo, taggedRef)
			if len(refs) == 0 {
				return fmt.Errorf("--push set but no push_to registries configured")
			}
			for _, ref := range refs {
				if err := bx.Tag(ctx, taggedRef, ref); err != nil {
					return err
				}
			}
			if err := bx.Push(ctx, refs); err != nil {
				return err
			}
			details["push"] = fmt.Sprintf("%d ref(s)", len(refs))
			return nil
		},
	}

	stages := []pipeline.Stage{scanStage, metadataStage, assembleStage}
	if bDryRun {
		if _, err := pipeline.Run(ctx, stages); err != nil {
			return err
		}
		step := planStep()
		fmt.Fprintf(w, "\nstep: %s\n", step.Name)
		fmt.Fprintf(w, "  dockerfile: %s\n", step.Dockerfile)
		fmt.Fprintf(w, "  context:    %s\n", step.Context)
		fmt.Fprintf(w, "  platforms:  %v\n", step.Platforms)
		fmt.Fprintf(w, "  tags:       %v\n", step.Tags)
		fmt.Fprintf(w, "  load:       %v\n", step.Load)
		fmt.Fprintf(w, "  push:       %v\n", step.Push)
		keys := make([]string, 0, len(step.BuildArgs))
		for k := range step.BuildArgs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if step.BuildArgs[k] != "" {
				fmt.Fprintf(w, "  build_arg:  %s=%s\n", k, step.BuildArgs[k])
			}
		}
		return nil
	}

	stages = append(stages, buildStage)
	if !multiPlatform {
		stages = append(stages, tagStage, pruneStage)
		if bPush && !bLocal {
			stages = append(stages, pushStage)
		}
	}

	results, runErr := pipeline.Run(ctx, stages)

	// --- Summary ---
	totalElapsed := time.Since(pipelineStart)
	overallStatus := "success"
	if runErr != nil {
		overallStatus = "failed"
	}

	sumSec := output.NewSection(w, "Summary", 0, color)
	for _, res := range results {
		status := res.Status()
		detail := details[res.Name]
		if detail == "" && res.Err != nil {
			detail = res.Err.Error()
		}
		if detail == "skipped" {
			status = "skipped"
		}
		output.SummaryRow(w, res.Name, status, detail, color)
	}
	sumSec.Separator()
	output.SummaryTotal(w, totalElapsed, overallStatus, color)
	sumSec.Close()

	if runErr == nil && taggedRef != "" {
		fmt.Fprintf(w, "\n    Image Reference\n")
		fmt.Fprintf(w, "    → %s\n\n", taggedRef)
	} else if runErr == nil && stepResult != nil {
		fmt.Fprintf(w, "\n    Image References\n")
		for _, img := range stepResult.Images {
			fmt.Fprintf(w, "    → %s\n", img)
		}
		fmt.Fprintln(w)
	}

	return runErr
}

// buildContextKV returns key-value pairs for the pipeline context block.
func buildContextKV(platforms []string) []output.KV {
	var kv []output.KV

	if pipe := os.Getenv("CI_PIPELINE_ID"); pipe != "" {
		kv = append(kv, output.KV{Key: "Pipeline", Value: pipe})
	}
	if runner := os.Getenv("CI_RUNNER_DESCRIPTION"); runner != "" {
		kv = append(kv, output.KV{Key: "Runner", Value: runner})
	}

	if sha := os.Getenv("CI_COMMIT_SHORT_SHA"); sha != "" {
		kv = append(kv, output.KV{Key: "Commit", Value: sha})
	} else if sha := os.Getenv("CI_COMMIT_SHA"); sha != "" && len(sha) >= 8 {
		kv = append(kv, output.KV{Key: "Commit", Value: sha[:8]})
	}
	if branch := os.Getenv("CI_COMMIT_BRANCH"); branch != "" {
		kv = append(kv, output.KV{Key: "Branch", Value: branch})
	} else if tag := os.Getenv("CI_COMMIT_TAG"); tag != "" {
		kv = append(kv, output.KV{Key: "Tag", Value: tag})
	}

	if len(platforms) > 0 {
		kv = append(kv, output.KV{Key: "Platforms", Value: strings.Join(platforms, ",")})
	}
	if len(cfg.Image.PushTo) > 0 {
		kv = append(kv, output.KV{Key: "Registries", Value: strings.Join(cfg.Image.PushTo, ", ")})
	}

	return kv
}

// renderLayers renders parsed layer events into a Section.
// Returns true if any layers were rendered.
func renderLayers(sec *output.Section, result *build.StepResult, color bool) bool {
	if result == nil {
		return false
	}
	hasLayers := false
	for _, layer := range result.Layers {
		instr := build.FormatLayerInstruction(layer)

		label := layer.Instruction
		if label == "FROM" {
			label = "base"
		}

		timing := build.FormatLayerTiming(layer)
		if layer.Cached {
			timing = output.Dimmed("cached", color)
		}
		sec.Row("%-8s%-42s %s", label, instr, timing)
		hasLayers = true
	}
	return hasLayers
}
