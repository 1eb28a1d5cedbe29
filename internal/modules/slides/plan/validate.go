package plan

import (
	"fmt"
	"strings"

	"github.com/yungbote/slideforge-backend/internal/domain/slides"
)

type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// Validate reports structural problems without rejecting anything. Parse
// already pads and renumbers; this is for logging and for callers that build
// descriptions themselves.
func Validate(descs []slides.SlideDescription) ValidationResult {
	errs := []string{}
	seen := make(map[int]bool, len(descs))
	for i, d := range descs {
		position := i + 1
		if strings.TrimSpace(d.Title) == "" {
			errs = append(errs, fmt.Sprintf("slide at position %d has an empty title", position))
		}
		if strings.TrimSpace(d.Description) == "" {
			errs = append(errs, fmt.Sprintf("slide at position %d has an empty description", position))
		}
		if d.SlideNumber != position {
			errs = append(errs, fmt.Sprintf("slide at position %d is numbered %d", position, d.SlideNumber))
		}
		seen[d.SlideNumber] = true
	}
	for n := 1; n <= len(descs); n++ {
		if !seen[n] {
			errs = append(errs, fmt.Sprintf("slide number %d is missing", n))
		}
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
