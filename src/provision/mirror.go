package provision

import (
	"context"
	"fmt"
)

// MirrorConfigurator applies endpoint substitutions before any step that
// performs network I/O through those endpoints. With no overrides it is
// a no-op and safe to skip.
type MirrorConfigurator struct {
	RW        EndpointRewriter
	Defaults  Endpoints
	Overrides map[Endpoint]string
}

// Apply validates the overrides against the known endpoint set and
// rewrites each redirected endpoint. Any failure aborts: there is no
// silent partial configuration.
func (c *MirrorConfigurator) Apply(ctx context.Context) error {
	if len(c.Overrides) == 0 {
		return nil
	}

	defaults := c.Defaults
	if defaults == nil {
		defaults = DefaultEndpoints()
	}
	if _, err := defaults.Substitute(c.Overrides); err != nil {
		return fmt.Errorf("mirror substitution: %w", err)
	}

	for _, ep := range sortedEndpoints(c.Overrides) {
		if err := c.RW.RewriteEndpoint(ctx, ep, c.Overrides[ep]); err != nil {
			return fmt.Errorf("mirror substitution for %s: %w", ep, err)
		}
	}
	return nil
}
