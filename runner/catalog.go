package runner

import (
	"fmt"
	"sort"
	"strings"

	"qapages/errors"
)

// Get returns a suite by name
func (sf *SuitesFile) Get(name string) (*Suite, error) {
	for i := range sf.Suites {
		if sf.Suites[i].Name == name {
			return &sf.Suites[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", errors.ErrSuiteNotFound, name)
}

// Names lists the suite names in file order.
func (sf *SuitesFile) Names() []string {
	names := make([]string, 0, len(sf.Suites))
	for _, s := range sf.Suites {
		names = append(names, s.Name)
	}
	return names
}

// Select resolves names to suites, dropping repeats. With all set every suite
// is returned. Asking for nothing is an error.
func (sf *SuitesFile) Select(names []string, all bool) ([]Suite, error) {
	if all {
		return append([]Suite(nil), sf.Suites...), nil
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no suite selected (available: %v)", errors.ErrSuiteNotFound, sf.Names())
	}

	seen := make(map[string]bool, len(names))
	out := make([]Suite, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		s, err := sf.Get(n)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

// RunName is the display name of a set of suites: the suite itself, or
// "Combined A, B Tests" for several.
func RunName(suites []Suite) string {
	if len(suites) == 1 {
		return suites[0].Name
	}
	names := make([]string, 0, len(suites))
	for _, s := range suites {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return fmt.Sprintf("Combined %s Tests", strings.ToUpper(strings.Join(names, ", ")))
}
