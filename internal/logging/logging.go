// Package logging builds the service logger. Visitors send personal
// details through the contact form, so every logger produced here carries a
// hook that fingerprints those fields and redacts credentials.
package logging

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const redactedValue = "[REDACTED]"

var (
	bootNonce         = randomNonce()
	personalKeys      = map[string]struct{}{"name": {}, "email": {}, "phone": {}, "remote_ip": {}}
	sensitiveKeyParts = []string{"token", "secret", "password", "api_key", "apikey", "authorization"}
)

// New returns a logger writing to stderr at level in the given format
// ("text" or "json").
func New(level, format string) *logrus.Logger {
	return NewWithOutput(os.Stderr, level, format)
}

func NewWithOutput(out io.Writer, level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if strings.EqualFold(strings.TrimSpace(format), "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	logger.AddHook(RedactHook{})
	return logger
}

// RedactHook rewrites entry fields before they are formatted.
type RedactHook struct{}

func (RedactHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (RedactHook) Fire(entry *logrus.Entry) error {
	for key, value := range entry.Data {
		lower := strings.ToLower(strings.TrimSpace(key))
		switch {
		case isSensitiveKey(lower):
			entry.Data[key] = redactedValue
		case isPersonalKey(lower):
			entry.Data[key] = Fingerprint(fmt.Sprint(value))
		}
	}
	return nil
}

// Fingerprint returns a stable per-process token for value so log lines
// about the same visitor can be correlated without storing the value.
func Fingerprint(value string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(trimmed + "|" + bootNonce))
	return "fp_" + hex.EncodeToString(sum[:8])
}

func isPersonalKey(key string) bool {
	_, ok := personalKeys[key]
	return ok
}

func isSensitiveKey(key string) bool {
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func randomNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "fallback_nonce"
	}
	return hex.EncodeToString(buf)
}
