package logging

import (
	"io"
	"regexp"
)

// Redacted replaces any sensitive value found in log output.
const Redacted = "[REDACTED]"

var sensitivePatterns = []*regexp.Regexp{ //nolint:gochecknoglobals // compiled once
	// Slack incoming webhooks
	regexp.MustCompile(`https://hooks\.slack\.com/services/[A-Za-z0-9/_-]+`),
	// Slack bot/user tokens
	regexp.MustCompile(`xox[abprs]-[A-Za-z0-9-]{10,}`),
	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]{16,}`),
}

// keyValuePattern keeps the key and separator and masks only the value.
var keyValuePattern = regexp.MustCompile(`(?i)(password|passwd|secret|token)(["']?\s*[:=]\s*["']?)[^\s"',}]{6,}`) //nolint:gochecknoglobals

// Redact masks sensitive values in s.
func Redact(s string) string {
	for _, p := range sensitivePatterns {
		s = p.ReplaceAllString(s, Redacted)
	}
	return keyValuePattern.ReplaceAllString(s, "${1}${2}"+Redacted)
}

// RedactingWriter filters every write through Redact.
type RedactingWriter struct {
	w io.Writer
}

// NewRedactingWriter wraps w.
func NewRedactingWriter(w io.Writer) *RedactingWriter {
	return &RedactingWriter{w: w}
}

// Write implements io.Writer. It reports len(p) so callers never see a short write
// when redaction shortened the output.
func (rw *RedactingWriter) Write(p []byte) (int, error) {
	if _, err := rw.w.Write([]byte(Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
