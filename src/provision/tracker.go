package provision

import (
	"context"
	"errors"
	"fmt"
)

// ErrStaleIndex is returned when Install is attempted while the package
// index has not been refreshed since the last source change.
var ErrStaleIndex = errors.New("package index stale: refresh required after source change")

// Tracker wraps a PackageManager and enforces that any source or key
// change invalidates the package index, requiring a refresh before the
// next install. A fresh environment starts with an invalid index.
type Tracker struct {
	pm    PackageManager
	fresh bool
}

// NewTracker wraps pm. The index starts stale.
func NewTracker(pm PackageManager) *Tracker {
	return &Tracker{pm: pm}
}

func (t *Tracker) ConfigureSource(ctx context.Context, src PackageSource) error {
	if err := t.pm.ConfigureSource(ctx, src); err != nil {
		return err
	}
	t.fresh = false
	return nil
}

func (t *Tracker) ImportKey(ctx context.Context, keyURL string) error {
	if err := t.pm.ImportKey(ctx, keyURL); err != nil {
		return err
	}
	// A new trust anchor can surface previously untrusted sources.
	t.fresh = false
	return nil
}

func (t *Tracker) RefreshIndex(ctx context.Context) error {
	if err := t.pm.RefreshIndex(ctx); err != nil {
		return err
	}
	t.fresh = true
	return nil
}

func (t *Tracker) Install(ctx context.Context, packages ...string) error {
	if !t.fresh {
		return fmt.Errorf("installing %v: %w", packages, ErrStaleIndex)
	}
	return t.pm.Install(ctx, packages...)
}

var _ PackageManager = (*Tracker)(nil)
