package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/yungbote/slideforge-backend/internal/domain/slides"
	"github.com/yungbote/slideforge-backend/internal/platform/pointers"
)

func seed(t *testing.T, n int) *LessonSlideStore {
	t.Helper()
	s := New()
	s.Reset()
	s.SetCurrentLesson(&slides.Lesson{ID: "lesson-1", Title: "Plants"})
	in := make([]slides.Slide, 0, n)
	for i := 1; i <= n; i++ {
		in = append(in, slides.Slide{
			ID:            fmt.Sprintf("placeholder-%d", i),
			SlideNumber:   i,
			Title:         fmt.Sprintf("Slide %d", i),
			Status:        slides.SlideStatusPending,
			IsPlaceholder: true,
		})
	}
	s.AddSlides(in)
	return s
}

func TestUpdateSlideIsVisibleToNextGetState(t *testing.T) {
	t.Parallel()
	s := seed(t, 3)

	ok := s.UpdateSlide("placeholder-2", SlidePatch{
		ID:            pointers.Ptr("real-2"),
		Status:        pointers.Ptr(slides.SlideStatusCompleted),
		HTMLContent:   pointers.Ptr("<h1>Hi</h1>"),
		IsPlaceholder: pointers.Ptr(false),
	})
	if !ok {
		t.Fatalf("UpdateSlide: placeholder-2 not found")
	}

	st := s.GetState()
	got := st.Slides[1]
	if got.ID != "real-2" || got.Status != slides.SlideStatusCompleted || got.IsPlaceholder {
		t.Fatalf("slide 2 after update: %+v", got)
	}
	if got.Title != "Slide 2" {
		t.Fatalf("unpatched field changed: title=%q", got.Title)
	}
	if st.Slides[0].ID != "placeholder-1" || st.Slides[2].ID != "placeholder-3" {
		t.Fatalf("neighbours moved: %q %q", st.Slides[0].ID, st.Slides[2].ID)
	}
	if s.UpdateSlide("placeholder-2", SlidePatch{Title: pointers.Ptr("x")}) {
		t.Fatalf("old placeholder id should no longer resolve")
	}
}

func TestGetStateReturnsIsolatedCopy(t *testing.T) {
	t.Parallel()
	s := seed(t, 1)
	s.SetSlideGenerationProgress("slide-1", 40)

	st := s.GetState()
	st.Slides[0].Title = "mutated"
	st.SlideGenerationProgress["slide-1"] = 99
	st.CurrentLesson.Title = "mutated"

	again := s.GetState()
	if again.Slides[0].Title != "Slide 1" || again.SlideGenerationProgress["slide-1"] != 40 || again.CurrentLesson.Title != "Plants" {
		t.Fatalf("snapshot leaked into store: %+v", again)
	}
}

func TestResetClearsEverything(t *testing.T) {
	t.Parallel()
	s := seed(t, 2)
	s.SetGenerating(true)
	s.SetSlidePanelOpen(true)
	s.SetSlideGenerationProgress("slide-1", 100)
	s.Reset()

	st := s.GetState()
	if st.CurrentLesson != nil || len(st.Slides) != 0 || st.IsGenerating || st.SlidePanelOpen || len(st.SlideGenerationProgress) != 0 {
		t.Fatalf("reset left state behind: %+v", st)
	}
}

func TestProgressIsClamped(t *testing.T) {
	t.Parallel()
	s := New()
	s.SetSlideGenerationProgress("a", -5)
	s.SetSlideGenerationProgress("b", 250)
	st := s.GetState()
	if st.SlideGenerationProgress["a"] != 0 || st.SlideGenerationProgress["b"] != 100 {
		t.Fatalf("progress: %+v", st.SlideGenerationProgress)
	}
}

func TestSubscribersSeeChangesInOrder(t *testing.T) {
	t.Parallel()
	s := New()
	var kinds []ChangeKind
	unsubscribe := s.Subscribe(func(c Change) { kinds = append(kinds, c.Kind) })

	s.Reset()
	s.SetGenerating(true)
	s.SetSlidePanelOpen(true)
	s.SetSlidePanelOpen(true) // no-op, not published
	unsubscribe()
	s.SetGenerating(false)

	want := []ChangeKind{ChangeReset, ChangeGenerating, ChangePanel}
	if len(kinds) != len(want) {
		t.Fatalf("changes: want=%v got=%v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("change %d: want=%s got=%s", i, want[i], kinds[i])
		}
	}
}

func TestUpdateLessonWithoutLessonIsNoop(t *testing.T) {
	t.Parallel()
	s := New()
	before := s.GetState().Version
	s.UpdateLesson(LessonPatch{Title: pointers.Ptr("x")})
	if s.GetState().Version != before {
		t.Fatalf("version moved without a lesson")
	}
}

func TestConcurrentUpdatesOfDistinctSlides(t *testing.T) {
	t.Parallel()
	const n = 50
	s := seed(t, n)
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.UpdateSlide(fmt.Sprintf("placeholder-%d", i), SlidePatch{Status: pointers.Ptr(slides.SlideStatusCompleted)})
			s.SetSlideGenerationProgress(fmt.Sprintf("slide-%d", i), 100)
		}(i)
	}
	wg.Wait()

	st := s.GetState()
	for i, sl := range st.Slides {
		if sl.Status != slides.SlideStatusCompleted {
			t.Fatalf("slide %d: status=%s", i+1, sl.Status)
		}
		if sl.SlideNumber != i+1 {
			t.Fatalf("order changed at %d: number=%d", i, sl.SlideNumber)
		}
	}
	if len(st.SlideGenerationProgress) != n {
		t.Fatalf("progress entries: want=%d got=%d", n, len(st.SlideGenerationProgress))
	}
}

func TestLessonAttachesSlides(t *testing.T) {
	t.Parallel()
	s := seed(t, 2)
	l := s.Lesson()
	if l == nil || l.ID != "lesson-1" || len(l.Slides) != 2 {
		t.Fatalf("Lesson(): %+v", l)
	}
	if New().Lesson() != nil {
		t.Fatalf("empty store should have no lesson")
	}
}
