package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

// DefaultPIIPatterns match e-mail addresses and phone-like digit runs.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
	`\+?\d[\d\s\-().]{7,}\d`,
}

type redactingLogger struct {
	next     ports.MessageLogger
	patterns []*regexp.Regexp
}

// NewRedactingLogger wraps next so logged message content has every match of
// patterns replaced by Mask. Invalid patterns panic, like regexp.MustCompile.
func NewRedactingLogger(next ports.MessageLogger, patternStrings []string) ports.MessageLogger {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return &redactingLogger{next: next, patterns: patterns}
}

func (m *redactingLogger) LogMessage(ctx context.Context, botID, senderID, content string, direction domain.Direction) error {
	return m.next.LogMessage(ctx, botID, senderID, Redact(content, m.patterns), direction)
}

// Redact masks every match of patterns in s.
func Redact(s string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
