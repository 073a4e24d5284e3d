package plan

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// narrativeFields are the free-text fields that must survive a malformed payload, in lookup order.
var narrativeFields = []string{FieldFeedbackText, FieldResponseText}

var (
	narrativeStart = map[string]*regexp.Regexp{
		FieldFeedbackText: regexp.MustCompile(`"feedback_text"\s*:\s*"`),
		FieldResponseText: regexp.MustCompile(`"response_text"\s*:\s*"`),
	}
	// A closing quote is one followed by the next key or the end of the object.
	narrativeEnd = regexp.MustCompile(`^\s*(?:,\s*"[A-Za-z0-9_]+"\s*:|})`)
)

// narrativeSpan locates the raw (still escaped) content of a narrative string in the source text.
type narrativeSpan struct {
	field      string
	start, end int // content bounds, quotes excluded
	terminated bool
}

func (s narrativeSpan) rawValue(raw string) string {
	return raw[s.start:s.end]
}

// repair re-escapes the span content so a strict parser accepts the surrounding object.
func (s narrativeSpan) repair(raw string) string {
	text := unescapeLenient(s.rawValue(raw))
	quoted, err := json.Marshal(text)
	if err != nil {
		return raw
	}
	return raw[:s.start] + string(quoted[1:len(quoted)-1]) + raw[s.end:]
}

// locateNarrative finds the first narrative field by scanning for its start and end markers
// directly, without parsing the rest of the payload.
func locateNarrative(raw string) (narrativeSpan, bool) {
	for _, field := range narrativeFields {
		loc := narrativeStart[field].FindStringIndex(raw)
		if loc == nil {
			continue
		}
		span := narrativeSpan{field: field, start: loc[1], end: len(raw)}
		for i := span.start; i < len(raw); i++ {
			if raw[i] != '"' || backslashEscaped(raw, i) {
				continue
			}
			if narrativeEnd.MatchString(raw[i+1:]) {
				span.end, span.terminated = i, true
				break
			}
		}
		return span, true
	}
	return narrativeSpan{}, false
}

// RecoverNarrative extracts the feedback_text (or response_text) value from raw generator
// output even when unescaped quotes make the payload unparseable. An unterminated string
// yields the remainder of the text.
func RecoverNarrative(raw string) (field, text string, ok bool) {
	span, found := locateNarrative(raw)
	if !found {
		return "", "", false
	}
	value := span.rawValue(raw)
	if !span.terminated {
		value = strings.TrimRight(strings.TrimSpace(value), "`}\"\n\r\t ")
	}
	return span.field, unescapeLenient(value), true
}

func backslashEscaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// unescapeLenient decodes JSON string escapes, keeping anything it does not understand verbatim.
func unescapeLenient(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case '"', '\\', '/':
			sb.WriteByte(s[i])
		case 'u':
			r, ok := hexRune(s, i+1)
			if !ok {
				sb.WriteString(`\u`)
				continue
			}
			i += 4
			// A high surrogate followed by an escaped low surrogate is one code point.
			if utf16.IsSurrogate(r) && strings.HasPrefix(s[i+1:], `\u`) {
				if lo, ok := hexRune(s, i+3); ok {
					if pair := utf16.DecodeRune(r, lo); pair != utf8.RuneError {
						r = pair
						i += 6
					}
				}
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// hexRune parses the four hex digits at s[i:i+4].
func hexRune(s string, i int) (rune, bool) {
	if i+4 > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[i:i+4], 16, 16)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}
