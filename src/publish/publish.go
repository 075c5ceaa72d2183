// Package publish names the produced image with its artifact identity
// and reclaims the intermediate layers the multi-stage build left
// behind. Tagging is mandatory: an untagged artifact is unusable
// downstream. Reclamation is best-effort: it only affects disk usage.
package publish

import (
	"context"
	"fmt"

	"github.com/sofmeright/slipway/src/build"
	"github.com/sofmeright/slipway/src/logs"
	"github.com/sofmeright/slipway/src/meta"
)

// Publisher attaches the artifact identity to the built image.
type Publisher struct {
	BX         *build.Buildx
	Repository string // image name the identity tag attaches to
}

// Ref returns the full image reference for the given metadata.
func (p *Publisher) Ref(m *meta.Metadata) string {
	repo := p.Repository
	if repo == "" {
		repo = m.Name
	}
	return fmt.Sprintf("%s:%s", repo, m.Identity())
}

// Tag verifies the built image exists and assigns the identity tag.
// A missing image here means an upstream build failure slipped through,
// which is fatal.
func (p *Publisher) Tag(ctx context.Context, builtRef string, m *meta.Metadata) (string, error) {
	if !p.BX.ImageExists(ctx, builtRef) {
		return "", fmt.Errorf("built image %s not found in daemon", builtRef)
	}

	ref := p.Ref(m)
	if ref == builtRef {
		return ref, nil
	}
	if err := p.BX.Tag(ctx, builtRef, ref); err != nil {
		return "", err
	}
	return ref, nil
}

// Prune reclaims dangling intermediate images. Errors are logged and
// swallowed by the caller's stage classification; Prune itself returns
// them so the stage runner can record the failure.
func (p *Publisher) Prune(ctx context.Context) (string, error) {
	report, err := p.BX.PruneDangling(ctx)
	if err != nil {
		return "", err
	}
	if report != "" {
		logs.Debug("prune", "report", report)
	}
	return report, nil
}

// PushRefs expands the tagged reference across the configured registry
// prefixes, e.g. "docker.io/acme" + "vector:0.30.0_abc1234_20240115".
func PushRefs(prefixes []string, taggedRef string) []string {
	refs := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		refs = append(refs, fmt.Sprintf("%s/%s", prefix, taggedRef))
	}
	return refs
}
