package plan

import (
	"strings"

	"github.com/yungbote/slideforge-backend/internal/domain/slides"
)

var typeVocabulary = []struct {
	t       slides.SlideType
	needles []string
}{
	{slides.SlideTypeIntroduction, []string{"introduction", "intro", "вступ"}},
	{slides.SlideTypeActivity, []string{"activity", "game", "interactive", "активн"}},
	{slides.SlideTypeSummary, []string{"summary", "conclusion", "review", "підсум"}},
}

// ClassifyTypeHint maps a free-text type hint onto the slide vocabulary.
// Unrecognized hints are content slides.
func ClassifyTypeHint(hint string) slides.SlideType {
	h := strings.ToLower(strings.TrimSpace(hint))
	if h == "" {
		return slides.SlideTypeContent
	}
	for _, entry := range typeVocabulary {
		for _, needle := range entry.needles {
			if strings.Contains(h, needle) {
				return entry.t
			}
		}
	}
	return slides.SlideTypeContent
}

// PositionalType derives a type from position when the plan gives none:
// first is the introduction, last the summary, and the one before last an
// activity when there are more than two slides.
func PositionalType(position, total int) slides.SlideType {
	switch {
	case position == 1:
		return slides.SlideTypeIntroduction
	case position == total:
		return slides.SlideTypeSummary
	case total > 2 && position == total-1:
		return slides.SlideTypeActivity
	default:
		return slides.SlideTypeContent
	}
}
