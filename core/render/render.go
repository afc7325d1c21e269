// Package render turns a metadata.Map into the text block that is shown to
// users, exported, and merged into annotations.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/FocuswithJustin/pngmeta/core/metadata"
)

// jsonIndent is a variable to allow testing of indent errors.
var jsonIndent = json.Indent

// PreviewLimit is the preview length in characters.
const PreviewLimit = 500

// Ellipsis is appended to a truncated preview.
const Ellipsis = "..."

// Style selects a rendering.
type Style string

const (
	// StylePlain emits one "key: value" line per entry.
	StylePlain Style = "plain"
	// StyleLegacy reproduces the brace-stripped JSON layout of older
	// versions, for users whose annotations already contain it.
	StyleLegacy Style = "legacy"
)

// ParseStyle validates a style name. The empty string selects StylePlain.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "", StylePlain:
		return StylePlain, nil
	case StyleLegacy:
		return StyleLegacy, nil
	}
	return "", fmt.Errorf("unknown render style %q", s)
}

// Render renders m in the given style.
func Render(m *metadata.Map, style Style) (string, error) {
	if style == StyleLegacy {
		return Legacy(m)
	}
	return Text(m), nil
}

// Text renders one "key: value" line per entry, in map order, and trims the
// surrounding whitespace of the block. Values are written verbatim.
func Text(m *metadata.Map) string {
	var b strings.Builder
	m.Range(func(k, v string) bool {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		return true
	})
	return strings.TrimSpace(b.String())
}

// Legacy renders m as a two-space indented JSON object, drops one leading
// "{" and one trailing "}", turns every `\n` escape into a line break and
// every `\"` into a quote, then trims. The result is not valid JSON.
func Legacy(m *metadata.Map) (string, error) {
	raw, err := m.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("legacy render: %w", err)
	}
	var indented bytes.Buffer
	if err := jsonIndent(&indented, raw, "", "  "); err != nil {
		return "", fmt.Errorf("legacy render: %w", err)
	}
	s := indented.String()
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\"`, `"`)
	return strings.TrimSpace(s), nil
}

// Preview returns text unchanged when it has at most max characters,
// otherwise its first max characters followed by Ellipsis.
func Preview(text string, max int) string {
	if max < 0 {
		max = 0
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	i := 0
	for n := 0; n < max; n++ {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return text[:i] + Ellipsis
}

// Truncated reports whether Preview(text, max) would cut text.
func Truncated(text string, max int) bool {
	return utf8.RuneCountInString(text) > max
}
