package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// maxDecodeDepth bounds how many times a JSON string wrapping another JSON
// document is unwrapped.
const maxDecodeDepth = 3

var fencedBlockRE = regexp.MustCompile("(?s)^```[a-zA-Z0-9_-]*\\s*\\n(.*?)\\n?```\\s*$")

// extract dispatches on the payload's shape. Structured payloads go through
// the JSON mapping; text that does not decode as JSON is treated as markdown.
func extract(plan any) ([]section, Source) {
	switch v := plan.(type) {
	case nil:
		return nil, SourceSynthetic
	case string:
		return extractText(v, 0)
	case []byte:
		return extractText(string(v), 0)
	case json.RawMessage:
		return extractText(string(v), 0)
	case map[string]any, []any:
		return fromDecoded(v, 0)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, SourceSynthetic
		}
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, SourceSynthetic
		}
		return fromDecoded(decoded, 0)
	}
}

func extractText(text string, depth int) ([]section, Source) {
	text = strings.TrimSpace(strings.TrimPrefix(text, "\ufeff"))
	if text == "" {
		return nil, SourceSynthetic
	}
	if m := fencedBlockRE.FindStringSubmatch(text); m != nil {
		inner := strings.TrimSpace(m[1])
		if looksLikeJSON(inner) {
			text = inner
		}
	}
	if looksLikeJSON(text) && depth < maxDecodeDepth {
		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		var decoded any
		if err := dec.Decode(&decoded); err == nil {
			// Trailing text after the first value means prose that merely
			// opens with a quote or bracket.
			if _, err := dec.Token(); err == io.EOF {
				return fromDecoded(decoded, depth)
			}
		}
	}
	return extractMarkdown(text)
}

func looksLikeJSON(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case '{', '[', '"':
		return true
	}
	return false
}

func fromDecoded(v any, depth int) ([]section, Source) {
	switch t := v.(type) {
	case string:
		// A JSON-encoded string carrying the plan itself.
		return extractText(t, depth+1)
	case []any:
		return mapSlides(t), SourceJSON
	case map[string]any:
		for _, key := range []string{"slides", "Slides", "slideDescriptions"} {
			if arr, ok := t[key].([]any); ok {
				return mapSlides(arr), SourceJSON
			}
		}
		if inner, ok := t["plan"]; ok {
			return fromDecoded(inner, depth+1)
		}
		return nil, SourceJSON
	default:
		return nil, SourceJSON
	}
}

func mapSlides(items []any) []section {
	out := make([]section, 0, len(items))
	for i, item := range items {
		position := i + 1
		switch el := item.(type) {
		case map[string]any:
			out = append(out, section{
				number:      firstInt(el, position, "slideNumber", "slide_number", "number"),
				title:       firstString(el, "title", "name"),
				description: firstString(el, "content", "description", "goal"),
				typeHint:    firstString(el, "type", "slideType", "slide_type"),
			})
		case string:
			title, body := splitFirstLine(el)
			out = append(out, section{number: position, title: stripMarkdown(title), description: body})
		default:
			out = append(out, section{number: position})
		}
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringValue(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		// Nested objects are rare but LLMs do emit {"text": "..."}.
		for _, k := range []string{"text", "value", "content"} {
			if s := stringValue(t[k]); s != "" {
				return s
			}
		}
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func firstInt(m map[string]any, def int, keys ...string) int {
	for _, k := range keys {
		if n, ok := intValue(m[k]); ok && n > 0 {
			return n
		}
	}
	return def
}

func intValue(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
		if f, err := t.Float64(); err == nil && f == math.Trunc(f) {
			return int(f), true
		}
	case float64:
		if t == math.Trunc(t) {
			return int(t), true
		}
	case int:
		return t, true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func splitFirstLine(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

var (
	leadingHashesRE = regexp.MustCompile(`^#{1,6}\s*`)
	listMarkerRE    = regexp.MustCompile(`^(?:[-*+]\s+|\d+[.)]\s+)`)
	emphasisRE      = regexp.MustCompile("\\*\\*|__|~~|[*_`]")
)

// stripMarkdown removes heading, list and emphasis markers from a title line.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	s = leadingHashesRE.ReplaceAllString(s, "")
	s = listMarkerRE.ReplaceAllString(s, "")
	s = emphasisRE.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

func trimBlankLines(b []byte) string {
	return string(bytes.TrimSpace(b))
}
