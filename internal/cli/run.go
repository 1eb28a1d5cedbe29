package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/slideforge-backend/internal/domain/slides"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/content"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/generation"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/plan"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/store"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/thumbnail"
	"github.com/yungbote/slideforge-backend/internal/platform/shutdown"
)

type runSlide struct {
	SlideNumber  int    `json:"slideNumber" yaml:"slideNumber"`
	ID           string `json:"id" yaml:"id"`
	Title        string `json:"title" yaml:"title"`
	Status       string `json:"status" yaml:"status"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty"`
	HasThumbnail bool   `json:"hasThumbnail" yaml:"hasThumbnail"`
}

type runSummary struct {
	LessonID        string     `json:"lessonId" yaml:"lessonId"`
	Title           string     `json:"title" yaml:"title"`
	Status          string     `json:"status" yaml:"status"`
	Cancelled       bool       `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	TotalSlides     int        `json:"totalSlides" yaml:"totalSlides"`
	CompletedSlides int        `json:"completedSlides" yaml:"completedSlides"`
	FailedSlides    int        `json:"failedSlides" yaml:"failedSlides"`
	TotalTimeMs     int64      `json:"totalTimeMs" yaml:"totalTimeMs"`
	AverageMs       int64      `json:"averageTimePerSlide" yaml:"averageTimePerSlide"`
	Errors          []string   `json:"errors" yaml:"errors"`
	Slides          []runSlide `json:"slides" yaml:"slides"`
}

func newRunCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate every slide of a lesson plan",
		Long: `Run parses the plan, then generates all slides concurrently. Without
--api-url slides are rendered locally. Progress goes to stderr and the final
summary to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.bind(cmd); err != nil {
				return err
			}
			return e.run(cmd)
		},
	}
	f := cmd.Flags()
	f.StringP("file", "f", "", "plan file, or - for stdin")
	f.IntP("slide-count", "n", 6, "number of slides")
	f.String("params", "", "YAML file with template parameters (topic, ageGroup, ...)")
	f.String("topic", "", "lesson topic, overrides --params")
	f.String("age-group", "", "target age group, overrides --params")
	f.String("language", "en", "lesson language")
	f.String("api-url", "", "content API endpoint; empty renders slides locally")
	f.String("api-key", "", "content API bearer token")
	f.Duration("api-timeout", 0, "per-slide content API timeout")
	f.Int("concurrency", 0, "max simultaneous slide calls (0 = all at once)")
	f.Bool("thumbnails", true, "render thumbnails for completed slides")
	f.String("font", "", "TrueType font for thumbnails")
	f.StringP("output", "o", "json", "output format: json or yaml")
	return cmd
}

func (e *env) run(cmd *cobra.Command) error {
	text, err := readInput(cmd, e.v.GetString("file"))
	if err != nil {
		return err
	}
	n := e.v.GetInt("slide-count")
	if err := checkSlideCount(n); err != nil {
		return err
	}
	params, err := e.templateParams(n)
	if err != nil {
		return err
	}

	gen, err := e.generator()
	if err != nil {
		return err
	}
	var thumbs *thumbnail.Stage
	if e.v.GetBool("thumbnails") {
		r, err := thumbnail.NewGGRenderer(e.v.GetString("font"))
		if err != nil {
			return fmt.Errorf("thumbnail renderer: %w", err)
		}
		thumbs = thumbnail.NewStage(e.log, r, thumbnail.DataURLPublisher{}, thumbnail.Config{
			MaxRetries: thumbnail.DefaultMaxRetries,
			Backoff:    thumbnail.DefaultBackoff,
		})
	}

	parsed := plan.NewParser(e.log).ParseDetailed(text, n)
	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "Parsed %d slides from %s plan (%d sections found)\n", len(parsed.Slides), parsed.Source, parsed.SectionsFound)

	st := store.New()
	orch := generation.New(e.log, st, gen, thumbs, "cli-"+uuid.NewString(), generation.Config{
		Concurrency: e.v.GetInt("concurrency"),
	})

	ctx, stop := shutdown.NotifyContext(cmd.Context())
	defer stop()

	res := orch.Run(ctx, parsed.Slides, params, progressPrinter(stderr, len(parsed.Slides)), e.v.GetString("language"))
	if !res.Success {
		return fmt.Errorf("generation failed: %s", res.Error)
	}
	return writeOutput(cmd.OutOrStdout(), e.v.GetString("output"), summarize(res))
}

func (e *env) generator() (content.Generator, error) {
	url := strings.TrimSpace(e.v.GetString("api-url"))
	if url == "" {
		return content.NewLocalGenerator(e.log), nil
	}
	return content.NewHTTPClient(e.log, content.HTTPClientConfig{
		URL:     url,
		APIKey:  e.v.GetString("api-key"),
		Timeout: e.v.GetDuration("api-timeout"),
	})
}

func (e *env) templateParams(n int) (slides.TemplateParams, error) {
	var p slides.TemplateParams
	if path := strings.TrimSpace(e.v.GetString("params")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return p, fmt.Errorf("read params: %w", err)
		}
		if err := yaml.Unmarshal(raw, &p); err != nil {
			return p, fmt.Errorf("decode params %s: %w", path, err)
		}
	}
	if t := strings.TrimSpace(e.v.GetString("topic")); t != "" {
		p.Topic = t
	}
	if ag := strings.TrimSpace(e.v.GetString("age-group")); ag != "" {
		p.AgeGroup = ag
	}
	p.SlideCount = n
	p.HasAdditionalInfo = strings.TrimSpace(p.AdditionalInfo) != ""
	return p, nil
}

func progressPrinter(w io.Writer, total int) *generation.Callbacks {
	done := 0
	return &generation.Callbacks{
		OnStart: func(l *slides.Lesson) {
			fmt.Fprintf(w, "Generating %q (%d slides)\n", l.Title, total)
		},
		OnSlideReady: func(s slides.Slide, _ *slides.Lesson) {
			done++
			fmt.Fprintf(w, "  [%d/%d] slide %d ready: %s\n", done, total, s.SlideNumber, s.Title)
		},
		OnSlideError: func(msg string, slideNumber int) {
			done++
			fmt.Fprintf(w, "  [%d/%d] slide %d failed: %s\n", done, total, slideNumber, msg)
		},
		OnThumbnailReady: func(s slides.Slide) {
			fmt.Fprintf(w, "        thumbnail for slide %d\n", s.SlideNumber)
		},
		OnComplete: func(_ *slides.Lesson, st slides.GenerationStats) {
			fmt.Fprintf(w, "Done: %d completed, %d failed in %dms\n", st.CompletedSlides, st.FailedSlides, st.TotalTimeMs)
		},
	}
}

func summarize(res generation.Result) runSummary {
	out := runSummary{Cancelled: res.Cancelled, Errors: []string{}}
	if res.Stats != nil {
		out.TotalSlides = res.Stats.TotalSlides
		out.CompletedSlides = res.Stats.CompletedSlides
		out.FailedSlides = res.Stats.FailedSlides
		out.TotalTimeMs = res.Stats.TotalTimeMs
		out.AverageMs = res.Stats.AverageTimePerSlide
		out.Errors = append(out.Errors, res.Stats.Errors...)
	}
	if l := res.Lesson; l != nil {
		out.LessonID = l.ID
		out.Title = l.Title
		out.Status = string(l.Status)
		for _, s := range l.Slides {
			out.Slides = append(out.Slides, runSlide{
				SlideNumber:  s.SlideNumber,
				ID:           s.ID,
				Title:        s.Title,
				Status:       string(s.Status),
				Error:        s.Error,
				HasThumbnail: s.ThumbnailURL != "",
			})
		}
	}
	return out
}
