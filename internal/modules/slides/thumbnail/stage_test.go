package thumbnail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/net/html"

	"github.com/yungbote/slideforge-backend/internal/platform/dbctx"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func newTestStage(r Renderer, p Publisher) (*Stage, *sleepRecorder) {
	s := NewStage(nil, r, p, Config{MaxRetries: 3, Backoff: time.Second})
	rec := &sleepRecorder{}
	s.sleep = rec.sleep
	return s, rec
}

func TestRenderWithRetryAlwaysFailingRendererIsCalledMaxRetriesTimes(t *testing.T) {
	calls := 0
	boom := errors.New("renderer crashed")
	s, rec := newTestStage(RendererFunc(func(context.Context, string, string, int) (string, error) {
		calls++
		return "", boom
	}), nil)

	_, err := s.RenderWithRetry(context.Background(), "s1", "<h1>x</h1>", 1, 3)
	if !errors.Is(err, boom) {
		t.Fatalf("want last render error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("render calls: want=3 got=%d", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(rec.waits) != len(want) || rec.waits[0] != want[0] || rec.waits[1] != want[1] {
		t.Fatalf("backoff: want=%v got=%v", want, rec.waits)
	}
}

func TestRenderWithRetryRecovers(t *testing.T) {
	calls := 0
	s, rec := newTestStage(RendererFunc(func(context.Context, string, string, int) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("flaky")
		}
		return "aW1n", nil
	}), nil)

	img, err := s.RenderWithRetry(context.Background(), "s1", "<p>x</p>", 4, 3)
	if err != nil || img != "aW1n" {
		t.Fatalf("want recovered image, got img=%q err=%v", img, err)
	}
	if calls != 2 || len(rec.waits) != 1 {
		t.Fatalf("calls=%d waits=%v", calls, rec.waits)
	}
}

func TestRenderWithRetrySkipsEmptyHTML(t *testing.T) {
	calls := 0
	s, _ := newTestStage(RendererFunc(func(context.Context, string, string, int) (string, error) {
		calls++
		return "x", nil
	}), nil)
	if _, err := s.RenderWithRetry(context.Background(), "s1", "  \n", 1, 3); !errors.Is(err, ErrNoHTML) {
		t.Fatalf("want ErrNoHTML, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("renderer should not run for empty html")
	}
}

func TestRenderWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	s, _ := newTestStage(RendererFunc(func(context.Context, string, string, int) (string, error) {
		calls++
		cancel()
		return "", errors.New("fail")
	}), nil)
	_, err := s.RenderWithRetry(ctx, "s1", "<p>x</p>", 1, 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls after cancel: want=1 got=%d", calls)
	}
}

func TestThumbnailPublishesDataURLByDefault(t *testing.T) {
	s, _ := newTestStage(RendererFunc(func(context.Context, string, string, int) (string, error) {
		return "aW1n", nil
	}), nil)
	url, err := s.Thumbnail(context.Background(), "l1", "s1", "<p>x</p>", 1)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if url != "data:image/png;base64,aW1n" {
		t.Fatalf("url: got=%q", url)
	}
}

type fakeBucket struct {
	key  string
	body []byte
}

func (b *fakeBucket) UploadFile(_ dbctx.Context, key string, file io.Reader) error {
	b.key = key
	b.body, _ = io.ReadAll(file)
	return nil
}

func (b *fakeBucket) GetPublicURL(key string) string { return "https://cdn.test/" + key }

func TestBucketPublisherUploadsDecodedPNG(t *testing.T) {
	b := &fakeBucket{}
	url, err := NewBucketPublisher(b).Publish(context.Background(), "l1", "s1", base64.StdEncoding.EncodeToString([]byte("png-bytes")))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if b.key != "thumbnails/l1/s1.png" || string(b.body) != "png-bytes" {
		t.Fatalf("upload: key=%q body=%q", b.key, b.body)
	}
	if url != "https://cdn.test/thumbnails/l1/s1.png" {
		t.Fatalf("url: got=%q", url)
	}
}

func TestGGRendererProducesThumbnailPNG(t *testing.T) {
	r, err := NewGGRenderer("")
	if err != nil {
		t.Fatalf("NewGGRenderer: %v", err)
	}
	out, err := r.Render(context.Background(), "s1",
		`<html><head><title>doc</title><style>h1{}</style></head><body><section class="slide slide-summary"><h1>Photosynthesis</h1><p>Plants turn light into sugar.</p></section></body></html>`, 2)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(out)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != thumbWidth || b.Dy() != thumbHeight {
		t.Fatalf("size: want=%dx%d got=%dx%d", thumbWidth, thumbHeight, b.Dx(), b.Dy())
	}
}

func TestGGRendererConcurrentRenderWithTrueTypeFont(t *testing.T) {
	fontPath := filepath.Join(t.TempDir(), "goregular.ttf")
	if err := os.WriteFile(fontPath, goregular.TTF, 0o600); err != nil {
		t.Fatalf("write font: %v", err)
	}
	r, err := NewGGRenderer(fontPath)
	if err != nil {
		t.Fatalf("NewGGRenderer: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			doc := fmt.Sprintf(`<section class="slide slide-activity"><h1>Slide %d heading</h1><p>Seeds need water, light and warm soil to grow.</p></section>`, n)
			out, err := r.Render(context.Background(), fmt.Sprintf("s%d", n), doc, n)
			if err != nil {
				errs <- err
				return
			}
			if out == "" {
				errs <- fmt.Errorf("slide %d: empty thumbnail", n)
			}
		}(i + 1)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Render: %v", err)
	}
}

func TestGGRendererRejectsTextlessHTML(t *testing.T) {
	r, _ := NewGGRenderer("")
	if _, err := r.Render(context.Background(), "s1", `<div><script>x()</script></div>`, 1); err == nil {
		t.Fatalf("want error for html without text")
	}
}

func TestExtractText(t *testing.T) {
	doc := mustParse(t, `<html><head><title>Fallback</title></head><body class="slide-activity"><h2>Sort   the seeds</h2><ul><li>small</li><li>large</li></ul></body></html>`)
	ex := extractText(doc)
	if ex.title != "Sort the seeds" || ex.body != "small large" || ex.typeClass != "slide-activity" {
		t.Fatalf("extract: %+v", ex)
	}

	doc = mustParse(t, `<html><head><title>Only title</title></head><body><p>`+strings.Repeat("word ", 200)+`</p></body></html>`)
	ex = extractText(doc)
	if ex.title != "Only title" || !strings.HasSuffix(ex.body, "…") {
		t.Fatalf("fallback title / truncation: title=%q body-suffix=%q", ex.title, ex.body[len(ex.body)-8:])
	}
}

func mustParse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("html.Parse: %v", err)
	}
	return doc
}
