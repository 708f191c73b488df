package transcript

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

type redactor struct {
	next     ports.TranscriptSink
	patterns []*regexp.Regexp
}

// Redact masks every match of the patterns in the record text before delegating.
func Redact(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.TranscriptSink) ports.TranscriptSink {
		return &redactor{next: next, patterns: compiled}
	}, nil
}

// MustRedact is like Redact but panics on an invalid pattern.
func MustRedact(patterns ...string) Middleware {
	mw, err := Redact(patterns)
	if err != nil {
		panic(err)
	}
	return mw
}

func (r *redactor) Append(ctx context.Context, record domain.TranscriptRecord) error {
	// record is a copy; the caller's value is untouched.
	for _, p := range r.patterns {
		record.Text = p.ReplaceAllString(record.Text, Mask)
	}
	return r.next.Append(ctx, record)
}
