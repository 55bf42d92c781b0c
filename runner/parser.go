package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"qapages/errors"
)

// SuitesFile is the parsed suites.yml.
type SuitesFile struct {
	Suites []Suite `yaml:"suites"`
	// Contexts maps test method names to short descriptions used in reports.
	Contexts map[string]string `yaml:"contexts"`

	// Dir is the directory of the file; steps run there.
	Dir string `yaml:"-"`
}

// LoadSuites reads and validates a suites file.
func LoadSuites(path string) (*SuitesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suites file: %w", err)
	}

	sf, err := ParseSuites(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve suites dir: %w", err)
	}
	sf.Dir = abs
	return sf, nil
}

// ParseSuites decodes and validates suites YAML.
func ParseSuites(data []byte) (*SuitesFile, error) {
	var sf SuitesFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("%w: failed to parse suites: %v", errors.ErrInvalidConfig, err)
	}
	if err := sf.validate(); err != nil {
		return nil, err
	}
	return &sf, nil
}

func (sf *SuitesFile) validate() error {
	seen := make(map[string]bool, len(sf.Suites))
	for i := range sf.Suites {
		s := &sf.Suites[i]
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return fmt.Errorf("%w: suite %d has no name", errors.ErrInvalidConfig, i)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: %q", errors.ErrDuplicateSuite, s.Name)
		}
		seen[s.Name] = true

		switch s.Kind {
		case "":
			s.Kind = KindCommand
		case KindCommand, KindAPI, KindUI:
		default:
			return fmt.Errorf("%w: suite %q has unknown kind %q", errors.ErrInvalidConfig, s.Name, s.Kind)
		}

		for j, st := range s.Steps {
			if strings.TrimSpace(st.Run) == "" {
				return fmt.Errorf("%w: suite %q step %d has no run command", errors.ErrInvalidConfig, s.Name, j)
			}
			if st.Name == "" {
				s.Steps[j].Name = fmt.Sprintf("step-%d", j+1)
			}
		}
		checks := make(map[string]bool, len(s.Checks))
		for _, c := range s.Checks {
			if c.Name == "" || c.Path == "" {
				return fmt.Errorf("%w: suite %q has a check without name or path", errors.ErrInvalidConfig, s.Name)
			}
			if checks[c.Name] {
				return fmt.Errorf("%w: suite %q has duplicate check %q", errors.ErrInvalidConfig, s.Name, c.Name)
			}
			checks[c.Name] = true
		}
		for _, p := range s.Pages {
			if p.Name == "" {
				return fmt.Errorf("%w: suite %q has a page without name", errors.ErrInvalidConfig, s.Name)
			}
		}
		for _, sched := range s.Schedules {
			if err := sched.validate(); err != nil {
				return fmt.Errorf("suite %q: %w", s.Name, err)
			}
		}
	}
	return nil
}

func (s Schedule) validate() error {
	switch {
	case s.At != "" && s.Every != "":
		return fmt.Errorf("%w: set either at or every, not both", errors.ErrInvalidSchedule)
	case s.At != "":
		_, _, err := parseAtTime(s.At)
		return err
	case s.Every != "":
		d, err := parseInterval(s.Every)
		if err == nil && d < time.Minute {
			err = fmt.Errorf("%w: interval %q is shorter than a minute", errors.ErrInvalidSchedule, s.Every)
		}
		return err
	default:
		return fmt.Errorf("%w: empty schedule", errors.ErrInvalidSchedule)
	}
}

// parseAtTime parses "HH:MM" format
func parseAtTime(at string) (hour, minute int, err error) {
	parts := strings.Split(at, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: invalid time %q, expected HH:MM", errors.ErrInvalidSchedule, at)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: invalid hour in %q", errors.ErrInvalidSchedule, at)
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: invalid minute in %q", errors.ErrInvalidSchedule, at)
	}

	return hour, minute, nil
}

var hoursMinutes = regexp.MustCompile(`^(\d+)h(\d+)m$`) //nolint:gochecknoglobals

// parseInterval parses duration strings like "1h", "30m", "1h30m"
func parseInterval(every string) (time.Duration, error) {
	if m := hoursMinutes.FindStringSubmatch(every); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
	}

	d, err := time.ParseDuration(every)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: invalid interval %q", errors.ErrInvalidSchedule, every)
	}
	return d, nil
}
