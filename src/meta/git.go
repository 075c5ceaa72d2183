package meta

import (
	"fmt"

	git "github.com/go-git/go-git/v5"
)

const shortSHALen = 7

// Revision holds the source revision part of the build metadata.
type Revision struct {
	SHA    string // short form, 7 hex chars
	Branch string // empty on detached HEAD
}

// DetectRevision resolves the current revision from the repository at
// rootDir (or any parent containing .git).
func DetectRevision(rootDir string) (*Revision, error) {
	repo, err := git.PlainOpenWithOptions(rootDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", rootDir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	rev := &Revision{SHA: head.Hash().String()[:shortSHALen]}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}
	return rev, nil
}
