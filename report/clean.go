package report

import (
	"strings"
)

const (
	maxCleanLines   = 3
	maxErrorPreview = 150
)

// CleanErrorMessage condenses a failure message for chat: traceback noise is
// dropped and up to three assertion/error lines are joined with " | ". When no
// such line exists the first 150 characters are returned.
func CleanErrorMessage(msg string) string {
	var keep []string
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimSpace(line)
		if line == "" ||
			strings.HasPrefix(line, "E   ") ||
			strings.HasPrefix(line, `File "`) ||
			strings.HasPrefix(line, "self = <") ||
			strings.Contains(line, "object at 0x") {
			continue
		}
		if strings.Contains(line, "AssertionError") ||
			strings.Contains(line, "Failed:") ||
			strings.Contains(line, "Error:") ||
			strings.Contains(line, "Exception:") {
			keep = append(keep, line)
		}
	}

	if len(keep) > 0 {
		if len(keep) > maxCleanLines {
			keep = keep[:maxCleanLines]
		}
		return strings.Join(keep, " | ")
	}

	runes := []rune(msg)
	if len(runes) > maxErrorPreview {
		return string(runes[:maxErrorPreview]) + "..."
	}
	return msg
}

// DefaultContext is used when a test has no configured description.
const DefaultContext = "Functional test"

// TestContext describes what a test exercises, keyed by its last "::" segment.
func TestContext(testName string, contexts map[string]string) string {
	method := testName
	if i := strings.LastIndex(testName, "::"); i >= 0 {
		method = testName[i+2:]
	}
	if c, ok := contexts[method]; ok {
		return c
	}
	return DefaultContext
}
