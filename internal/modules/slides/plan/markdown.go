package plan

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// strategy extracts sections from markdown, or nothing if the document does
// not follow its convention.
type strategy struct {
	source  Source
	extract func(src []byte) []section
}

// markdownStrategies run in priority order; the first that yields a
// non-empty section wins.
var markdownStrategies = []strategy{
	{SourceSlideHeadings, slideHeadingSections},
	{SourceHeadingsH3, headingSections(3)},
	{SourceHeadingsH2, headingSections(2)},
	{SourceHeadingsH1, headingSections(1)},
	{SourceParagraphs, paragraphSections},
}

func extractMarkdown(doc string) ([]section, Source) {
	src := []byte(strings.ReplaceAll(doc, "\r\n", "\n"))
	for _, s := range markdownStrategies {
		sections := nonEmpty(s.extract(src))
		if len(sections) > 0 {
			return sections, s.source
		}
	}
	return nil, SourceSynthetic
}

func nonEmpty(in []section) []section {
	out := in[:0]
	for _, s := range in {
		if !s.empty() {
			out = append(out, s)
		}
	}
	return out
}

var (
	slideHeadingRE = regexp.MustCompile(`(?mi)^[ \t]*#{2,4}[ \t]*(?:slide|слайд)[ \t]*(\d+)[ \t]*[:.\-–—]?[ \t]*(.*)$`)
	goalLineRE     = regexp.MustCompile(`(?mi)^[ \t]*(?:[-*+][ \t]+)?\*\*[ \t]*(?:goal|мета)[ \t]*:?[ \t]*\*\*[ \t]*:?[ \t]*(.+)$`)
)

// slideHeadingSections handles "### Slide N: Title" plans, taking the
// **Goal:** line of each chunk as its description when present.
func slideHeadingSections(src []byte) []section {
	matches := slideHeadingRE.FindAllSubmatchIndex(src, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]section, 0, len(matches))
	for i, m := range matches {
		end := len(src)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		number, _ := strconv.Atoi(string(src[m[2]:m[3]]))
		title := stripMarkdown(string(src[m[4]:m[5]]))
		body := src[m[1]:end]

		description := trimBlankLines(body)
		if g := goalLineRE.FindSubmatch(body); g != nil {
			if goal := strings.TrimSpace(string(g[1])); goal != "" {
				description = goal
			}
		}
		out = append(out, section{number: number, title: title, description: description})
	}
	return out
}

// headingSections splits at top-level headings of exactly level. Text before
// the first such heading is a preamble and is not a slide.
func headingSections(level int) func(src []byte) []section {
	return func(src []byte) []section {
		doc := goldmark.New().Parser().Parse(text.NewReader(src))

		type mark struct {
			lineStart int
			bodyStart int
			title     string
		}
		var marks []mark
		for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
			h, ok := n.(*ast.Heading)
			if !ok || h.Level != level {
				continue
			}
			lines := h.Lines()
			if lines.Len() == 0 {
				continue
			}
			var title strings.Builder
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				if i > 0 {
					title.WriteByte(' ')
				}
				title.Write(seg.Value(src))
			}
			first, last := lines.At(0), lines.At(lines.Len()-1)
			marks = append(marks, mark{
				lineStart: lineStart(src, first.Start),
				bodyStart: bodyStart(src, last.Stop),
				title:     stripMarkdown(title.String()),
			})
		}

		out := make([]section, 0, len(marks))
		for i, m := range marks {
			end := len(src)
			if i+1 < len(marks) {
				end = marks[i+1].lineStart
			}
			if m.bodyStart > end {
				m.bodyStart = end
			}
			out = append(out, section{title: m.title, description: trimBlankLines(src[m.bodyStart:end])})
		}
		return out
	}
}

var setextUnderlineRE = regexp.MustCompile(`^[ \t]*(=+|-+)[ \t]*$`)

func lineStart(src []byte, pos int) int {
	if pos > len(src) {
		pos = len(src)
	}
	return bytes.LastIndexByte(src[:pos], '\n') + 1
}

// bodyStart returns the offset just past the heading line ending at pos,
// skipping a setext underline.
func bodyStart(src []byte, pos int) int {
	next := nextLine(src, pos)
	if next < len(src) {
		lineEnd := nextLine(src, next)
		if setextUnderlineRE.Match(bytes.TrimRight(src[next:lineEnd], "\n")) {
			return lineEnd
		}
	}
	return next
}

func nextLine(src []byte, pos int) int {
	if pos >= len(src) {
		return len(src)
	}
	if i := bytes.IndexByte(src[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(src)
}

var blankLineRE = regexp.MustCompile(`\n[ \t]*\n`)

// paragraphSections is the last resort: every blank-line separated block is
// a slide, first line as title.
func paragraphSections(src []byte) []section {
	blocks := blankLineRE.Split(string(src), -1)
	out := make([]section, 0, len(blocks))
	for _, b := range blocks {
		title, body := splitFirstLine(b)
		title = stripMarkdown(title)
		if title == "" && body == "" {
			continue
		}
		out = append(out, section{title: title, description: body})
	}
	return out
}
