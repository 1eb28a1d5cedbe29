package plan

import (
	"fmt"
	"strings"

	"github.com/yungbote/slideforge-backend/internal/domain/slides"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

// Source names the extraction path that produced a parse result.
type Source string

const (
	SourceJSON          Source = "json"
	SourceSlideHeadings Source = "slide_headings"
	SourceHeadingsH3    Source = "headings_h3"
	SourceHeadingsH2    Source = "headings_h2"
	SourceHeadingsH1    Source = "headings_h1"
	SourceParagraphs    Source = "paragraphs"
	SourceSynthetic     Source = "synthetic"
)

// Outcome is a parse result plus what it took to get there.
type Outcome struct {
	Slides        []slides.SlideDescription `json:"slides"`
	Source        Source                    `json:"source"`
	SectionsFound int                       `json:"sectionsFound"`
	Padded        int                       `json:"padded"`
	Truncated     int                       `json:"truncated"`
	// Validation describes the extracted sections before renumbering and
	// padding repaired them.
	Validation ValidationResult `json:"validation"`
}

type Parser struct {
	log *logger.Logger
}

func NewParser(log *logger.Logger) *Parser {
	if log == nil {
		log = logger.Nop()
	}
	return &Parser{log: log.With("service", "PlanParser")}
}

// Parse turns plan into exactly slideCount descriptions numbered 1..slideCount.
// It never fails: anything it cannot read degrades to synthetic slides.
func (p *Parser) Parse(plan any, slideCount int) []slides.SlideDescription {
	return p.ParseDetailed(plan, slideCount).Slides
}

func (p *Parser) ParseDetailed(plan any, slideCount int) (out Outcome) {
	if slideCount <= 0 {
		return Outcome{Slides: []slides.SlideDescription{}, Source: SourceSynthetic, Validation: ValidationResult{IsValid: true, Errors: []string{}}}
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("plan parse panicked; using synthetic slides", "panic", fmt.Sprint(r), "slide_count", slideCount)
			out = syntheticOutcome(slideCount)
		}
	}()

	sections, source := extract(plan)
	if len(sections) == 0 {
		p.log.Warn("plan yielded no sections; using synthetic slides", "slide_count", slideCount)
		return syntheticOutcome(slideCount)
	}

	found := len(sections)
	if found > slideCount {
		sections = sections[:slideCount]
	}

	raw := make([]slides.SlideDescription, len(sections))
	for i, s := range sections {
		raw[i] = s.toDescription(i+1, slideCount)
	}
	validation := Validate(raw)
	if !validation.IsValid {
		p.log.Warn("plan sections need repair", "source", source, "issues", validation.Errors)
	}

	result := make([]slides.SlideDescription, 0, slideCount)
	for i, d := range raw {
		result = append(result, repair(d, i+1))
	}
	for n := len(result) + 1; n <= slideCount; n++ {
		result = append(result, syntheticSlide(n, slideCount))
	}

	out = Outcome{
		Slides:        result,
		Source:        source,
		SectionsFound: found,
		Padded:        slideCount - len(raw),
		Truncated:     max(found-slideCount, 0),
		Validation:    validation,
	}
	p.log.Debug("plan parsed", "source", source, "sections", found, "padded", out.Padded, "truncated", out.Truncated)
	return out
}

// section is one slide's worth of material pulled out of a plan before
// numbering and defaults are applied.
type section struct {
	number      int
	title       string
	description string
	typeHint    string
}

func (s section) empty() bool {
	return strings.TrimSpace(s.title) == "" && strings.TrimSpace(s.description) == ""
}

// toDescription keeps the source's own number so validation can see gaps;
// repair renumbers afterwards.
func (s section) toDescription(position, total int) slides.SlideDescription {
	number := s.number
	if number == 0 {
		number = position
	}
	t := PositionalType(position, total)
	if hint := strings.TrimSpace(s.typeHint); hint != "" {
		t = ClassifyTypeHint(hint)
	}
	return slides.SlideDescription{
		SlideNumber: number,
		Title:       strings.TrimSpace(s.title),
		Description: strings.TrimSpace(s.description),
		Type:        t,
	}
}

func repair(d slides.SlideDescription, position int) slides.SlideDescription {
	d.SlideNumber = position
	if d.Title == "" {
		d.Title = defaultTitle(position)
	}
	if d.Description == "" {
		d.Description = fillerDescription(position)
	}
	return d
}

func syntheticOutcome(slideCount int) Outcome {
	out := make([]slides.SlideDescription, 0, slideCount)
	for n := 1; n <= slideCount; n++ {
		out = append(out, syntheticSlide(n, slideCount))
	}
	return Outcome{
		Slides:     out,
		Source:     SourceSynthetic,
		Padded:     slideCount,
		Validation: ValidationResult{IsValid: true, Errors: []string{}},
	}
}

func syntheticSlide(n, total int) slides.SlideDescription {
	return slides.SlideDescription{
		SlideNumber: n,
		Title:       defaultTitle(n),
		Description: fillerDescription(n),
		Type:        PositionalType(n, total),
	}
}

func defaultTitle(n int) string { return fmt.Sprintf("Slide %d", n) }

func fillerDescription(n int) string {
	return fmt.Sprintf("Content for slide %d: develop the next key idea of the lesson with a clear explanation and an age-appropriate example.", n)
}
