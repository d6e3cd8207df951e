// Package sanitize deep-cleans untrusted JSON-shaped input before it reaches
// services or storage. It drops keys that could alias behavior-defining slots
// of shared objects in downstream JS consumers, strips markup/script vectors
// from string leaves, and bounds recursion depth and string length so
// adversarial payloads cannot burn CPU or stack.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxDepth bounds recursion on adversarial nesting. Anything deeper is
	// replaced by Sentinel instead of being descended into.
	MaxDepth = 8

	// MaxStringLen is applied before any pattern matching so the regexps
	// below never scan unbounded input.
	MaxStringLen = 10000

	// Sentinel replaces subtrees beyond MaxDepth. It survives re-cleaning
	// unchanged, which keeps Clean idempotent.
	Sentinel = "[removed]"
)

// blockedKeys are dropped from objects entirely: never copied, never
// recursed into. Exact match, case-sensitive.
var blockedKeys = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

var (
	scriptRe = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	schemeRe = regexp.MustCompile(`(?i)javascript:`)
	eventRe  = regexp.MustCompile(`(?i)\bon[a-z]+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// Clean returns a recursively cleaned copy of v. It is pure and total: it
// never fails, and the input value is not modified. Values that are not
// JSON-shaped (time.Time, []byte, custom types) pass through unchanged;
// binary payloads have their own validation path in the upload processor.
func Clean(v any) any {
	return clean(v, 0)
}

func clean(v any, depth int) any {
	if depth > MaxDepth {
		return Sentinel
	}
	switch t := v.(type) {
	case string:
		return CleanString(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = clean(e, depth+1)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			if _, blocked := blockedKeys[k]; blocked {
				continue
			}
			out[k] = clean(e, depth+1)
		}
		return out
	default:
		return v
	}
}

// CleanString defangs a single string leaf: truncates, strips script blocks,
// javascript: scheme prefixes and inline onXxx= handler fragments, collapses
// whitespace runs and trims.
func CleanString(s string) string {
	if len(s) > MaxStringLen {
		// back up to a rune boundary so the cut never leaves invalid
		// UTF-8 for json.Marshal to rewrite
		cut := MaxStringLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	// Removal runs to a fixed point: overlapping fragments such as
	// "javajavascript:script:" must not reassemble after a single pass.
	// Each round strictly shrinks the string, so the loop terminates.
	for {
		prev := s
		s = scriptRe.ReplaceAllString(s, "")
		s = schemeRe.ReplaceAllString(s, "")
		s = eventRe.ReplaceAllString(s, "")
		if s == prev {
			break
		}
	}
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
