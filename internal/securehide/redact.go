package securehide

import (
	"context"
	"regexp"
	"strings"
)

// hiddenSpanPattern matches [secure_hide attrs]...[/secure_hide] across lines.
var hiddenSpanPattern = regexp.MustCompile(`(?is)\[secure_hide([^\]]*)\](.*?)\[/secure_hide\]`)

// RedactRaw replaces the text of every hidden span with placeholder, keeping
// the opening tag attributes.
func RedactRaw(raw, placeholder string) string {
	if raw == "" {
		return raw
	}

	matches := hiddenSpanPattern.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw))
	last := 0
	for _, m := range matches {
		b.WriteString(raw[last:m[0]])
		b.WriteString("[secure_hide")
		b.WriteString(raw[m[2]:m[3]])
		b.WriteString("]")
		b.WriteString(placeholder)
		b.WriteString("[/secure_hide]")
		last = m[1]
	}
	b.WriteString(raw[last:])

	return b.String()
}

// RawFilter rewrites a post's raw markdown for viewers who have not unlocked it.
type RawFilter struct {
	evaluator   *Evaluator
	enabled     bool
	placeholder string
}

// NewRawFilter creates a new raw filter
func NewRawFilter(evaluator *Evaluator, enabled bool, placeholder string) *RawFilter {
	return &RawFilter{
		evaluator:   evaluator,
		enabled:     enabled,
		placeholder: placeholder,
	}
}

// Filter returns raw unchanged when the viewer may see the hidden content, and
// the redacted text otherwise.
func (f *RawFilter) Filter(ctx context.Context, guardian Guardian, post *Post, raw string) (string, error) {
	if !f.enabled || raw == "" || post == nil {
		return raw, nil
	}
	if _, ok := ParseMetadata(post.Metadata); !ok {
		return raw, nil
	}

	reason, err := f.evaluator.Reason(ctx, guardian, post)
	if err != nil {
		return "", err
	}
	if reason != "" {
		return raw, nil
	}

	return RedactRaw(raw, f.placeholder), nil
}
