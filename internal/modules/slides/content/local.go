package content

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/yungbote/slideforge-backend/internal/domain/slides"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

var slideTemplate = template.Must(template.New("slide").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{margin:0;font-family:sans-serif;background:{{.Background}};color:#1f2937}
.slide{width:1280px;height:720px;box-sizing:border-box;padding:64px}
.slide h1{font-size:56px;margin:0 0 32px}
.slide .body{font-size:28px;line-height:1.45}
.slide .badge{display:inline-block;padding:6px 14px;border-radius:14px;background:#1f2937;color:#fff;font-size:18px}
</style>
</head>
<body>
<section class="slide slide-{{.Type}}" data-slide-number="{{.Number}}">
<span class="badge">{{.Badge}}</span>
<h1>{{.Title}}</h1>
<div class="body">{{.Body}}</div>
</section>
</body>
</html>
`))

var backgrounds = map[slides.SlideType]string{
	slides.SlideTypeIntroduction: "#fef3c7",
	slides.SlideTypeContent:      "#ffffff",
	slides.SlideTypeActivity:     "#dcfce7",
	slides.SlideTypeSummary:      "#e0e7ff",
}

var badges = map[slides.SlideType]string{
	slides.SlideTypeIntroduction: "Introduction",
	slides.SlideTypeContent:      "Lesson",
	slides.SlideTypeActivity:     "Activity",
	slides.SlideTypeSummary:      "Summary",
}

// LocalGenerator renders slides in-process from the plan description. It is
// used when no content API is configured.
type LocalGenerator struct {
	log *logger.Logger
	md  goldmark.Markdown
}

func NewLocalGenerator(log *logger.Logger) *LocalGenerator {
	if log == nil {
		log = logger.Nop()
	}
	return &LocalGenerator{
		log: log.With("service", "LocalSlideGenerator"),
		md:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

func (g *LocalGenerator) GenerateSlide(ctx context.Context, req Request) (*GeneratedSlide, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = fmt.Sprintf("Slide %d", req.SlideNumber)
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, &Error{Message: fmt.Sprintf("slide %d has no description to render", req.SlideNumber)}
	}

	var body bytes.Buffer
	if err := g.md.Convert([]byte(desc), &body); err != nil {
		return nil, &Error{Message: fmt.Sprintf("render markdown: %v", err)}
	}

	typ := req.Type
	if _, ok := backgrounds[typ]; !ok {
		typ = slides.SlideTypeContent
	}
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = "en"
	}

	var page bytes.Buffer
	err := slideTemplate.Execute(&page, map[string]any{
		"Lang":       lang,
		"Title":      title,
		"Type":       string(typ),
		"Number":     req.SlideNumber,
		"Badge":      badges[typ],
		"Background": template.CSS(backgrounds[typ]),
		"Body":       template.HTML(body.String()),
	})
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("render slide template: %v", err)}
	}

	duration := 3
	if typ == slides.SlideTypeActivity {
		duration = 7
	}
	return &GeneratedSlide{
		ID:                uuid.New().String(),
		Title:             title,
		Content:           desc,
		Description:       desc,
		HTMLContent:       page.String(),
		Status:            string(slides.SlideStatusCompleted),
		EstimatedDuration: FlexInt(duration),
		Interactive:       typ == slides.SlideTypeActivity,
	}, nil
}
