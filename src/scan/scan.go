// Package scan is the pre-build gate: it sweeps the build context for
// leaked credentials before anything network-heavy runs. Everything in
// the context ends up COPY'd into the builder stage, so a secret that
// survives to this point would be baked into build layers.
package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
	"golang.org/x/sync/semaphore"

	"github.com/sofmeright/slipway/src/config"
)

const defaultMaxFileSize = 1 << 20

// Finding is one detected secret.
type Finding struct {
	File    string // path relative to the context root
	Line    int
	RuleID  string
	Message string
}

// Scanner walks a build context and detects secrets.
type Scanner struct {
	Root string
	Cfg  config.ScanConfig

	once     sync.Once
	detector *detect.Detector
	initErr  error
}

// Collect returns the scannable files under the context root, applying
// the configured exclusions and size cutoff.
func (s *Scanner) Collect() ([]string, error) {
	maxSize := s.Cfg.MaxFileSize
	if maxSize == 0 {
		maxSize = defaultMaxFileSize
	}

	var files []string
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(s.Root, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if s.excluded(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || s.excluded(rel) {
			return nil
		}
		if info, infoErr := d.Info(); infoErr == nil && info.Size() > maxSize {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Run scans the given files with bounded concurrency and returns all
// findings. A file that cannot be read is skipped: the build itself will
// surface real read failures.
func (s *Scanner) Run(ctx context.Context, files []string) ([]Finding, error) {
	s.once.Do(func() {
		s.detector, s.initErr = detect.NewDetectorDefaultConfig()
	})
	if s.initErr != nil {
		return nil, s.initErr
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		findings []Finding
	)
	sem := semaphore.NewWeighted(int64(runtime.NumCPU() * 2))

	for _, rel := range files {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Drain in-flight workers before returning so nothing
			// writes into findings after we hand it back.
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		go func(rel string) {
			defer wg.Done()
			defer sem.Release(1)

			data, err := os.ReadFile(filepath.Join(s.Root, rel))
			if err != nil {
				return
			}

			for _, hit := range s.detector.DetectBytes(data) {
				mu.Lock()
				findings = append(findings, Finding{
					File:    rel,
					Line:    hit.StartLine + 1, // gitleaks is 0-indexed
					RuleID:  hit.RuleID,
					Message: hit.Description,
				})
				mu.Unlock()
			}
		}(rel)
	}

	wg.Wait()
	return findings, nil
}

// excluded matches a relative path against the configured prefixes.
func (s *Scanner) excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, prefix := range s.Cfg.Exclude {
		if strings.HasPrefix(rel, prefix) || rel == strings.TrimSuffix(prefix, "/") {
			return true
		}
	}
	return false
}
