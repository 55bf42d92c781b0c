package site

import (
	"os"
	"time"

	"qapages/errors"
)

// Prune removes run folders beyond the newest keep, and any older than
// olderThan (zero disables the age rule). The newest run is always kept.
// It returns the removed folder names; callers re-render the root index.
func (s *Site) Prune(keep int, olderThan time.Duration, now time.Time) ([]string, error) {
	runs, err := s.ListRuns()
	if err != nil {
		return nil, err
	}
	if keep < 1 {
		keep = 1
	}

	var removed []string
	for i, run := range runs {
		if i == 0 {
			continue
		}
		expired := olderThan > 0 && now.Sub(run.Time) > olderThan
		if i < keep && !expired {
			continue
		}
		if err := os.RemoveAll(run.Path); err != nil {
			return removed, errors.Wrapf(err, "remove run %s", run.Name)
		}
		removed = append(removed, run.Name)
	}
	return removed, nil
}
