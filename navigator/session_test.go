package navigator_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/drummonds/pdfreader/navigator"
	"github.com/drummonds/pdfreader/navigator/navigatortest"
)

func newSession(t *testing.T) (*navigator.Session, *navigatortest.Renderer) {
	t.Helper()
	r := navigatortest.New(map[string]int{
		"one.pdf":   1,
		"three.pdf": 3,
		"five.pdf":  5,
		"empty.pdf": 0,
	})
	s, err := navigator.New(r, 1.5)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, r
}

func TestNewRejectsBadZoom(t *testing.T) {
	r := navigatortest.New(nil)
	for _, zoom := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := navigator.New(r, zoom); !errors.Is(err, navigator.ErrInvalidZoom) {
			t.Errorf("New(zoom=%v) error = %v, want ErrInvalidZoom", zoom, err)
		}
	}
}

func TestEmptySession(t *testing.T) {
	s, _ := newSession(t)

	if diff := cmp.Diff(navigator.NavigationState{}, s.State()); diff != "" {
		t.Errorf("State() mismatch (-want +got):\n%s", diff)
	}
	if got := s.State().Label(); got != "Page: 0/0" {
		t.Errorf("Label() = %q, want %q", got, "Page: 0/0")
	}
	if _, err := s.RenderCurrentPage(); !errors.Is(err, navigator.ErrNoDocumentLoaded) {
		t.Errorf("RenderCurrentPage() error = %v, want ErrNoDocumentLoaded", err)
	}
	if _, err := s.Advance(); !errors.Is(err, navigator.ErrNoDocumentLoaded) {
		t.Errorf("Advance() error = %v, want ErrNoDocumentLoaded", err)
	}
	if _, err := s.Retreat(); !errors.Is(err, navigator.ErrNoDocumentLoaded) {
		t.Errorf("Retreat() error = %v, want ErrNoDocumentLoaded", err)
	}
	if _, err := s.Last(); !errors.Is(err, navigator.ErrNoDocumentLoaded) {
		t.Errorf("Last() error = %v, want ErrNoDocumentLoaded", err)
	}
}

func TestOpenInitialState(t *testing.T) {
	tests := []struct {
		name string
		file string
		want navigator.NavigationState
	}{
		{"single page", "one.pdf", navigator.NavigationState{Loaded: true, Total: 1}},
		{"three pages", "three.pdf", navigator.NavigationState{CanAdvance: true, Loaded: true, Total: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newSession(t)
			if err := s.Open(navigator.FromPath("/docs/" + tt.file)); err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, s.State()); diff != "" {
				t.Errorf("State() mismatch (-want +got):\n%s", diff)
			}
			if s.DocumentName() != tt.file {
				t.Errorf("DocumentName() = %q, want %q", s.DocumentName(), tt.file)
			}
		})
	}
}

func TestFivePageScenario(t *testing.T) {
	s, _ := newSession(t)
	if err := s.Open(navigator.FromBytes("five.pdf", []byte("%PDF"))); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	want := navigator.NavigationState{CanAdvance: true, Loaded: true, Current: 0, Total: 5}
	if diff := cmp.Diff(want, s.State()); diff != "" {
		t.Fatalf("initial State() mismatch (-want +got):\n%s", diff)
	}

	for i := 1; i <= 4; i++ {
		idx, err := s.Advance()
		if err != nil {
			t.Fatalf("Advance #%d failed: %v", i, err)
		}
		if idx != i {
			t.Fatalf("Advance #%d = %d, want %d", i, idx, i)
		}
	}

	want = navigator.NavigationState{CanRetreat: true, Loaded: true, Current: 4, Total: 5}
	if diff := cmp.Diff(want, s.State()); diff != "" {
		t.Fatalf("State() after 4 advances mismatch (-want +got):\n%s", diff)
	}
	if got := s.State().Label(); got != "Page: 5/5" {
		t.Errorf("Label() = %q, want %q", got, "Page: 5/5")
	}

	idx, err := s.Advance()
	if !errors.Is(err, navigator.ErrAtLastPage) {
		t.Fatalf("Advance at end error = %v, want ErrAtLastPage", err)
	}
	if !navigator.IsBoundary(err) {
		t.Error("IsBoundary(ErrAtLastPage) = false")
	}
	if idx != 4 || s.State().Current != 4 {
		t.Errorf("index moved past end: returned %d, state %d", idx, s.State().Current)
	}
}

func TestRetreatAtFirstPage(t *testing.T) {
	s, _ := newSession(t)
	if err := s.Open(navigator.FromPath("three.pdf")); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	idx, err := s.Retreat()
	if !errors.Is(err, navigator.ErrAtFirstPage) {
		t.Fatalf("Retreat error = %v, want ErrAtFirstPage", err)
	}
	if idx != 0 || s.State().Current != 0 {
		t.Errorf("Retreat moved index to %d", idx)
	}
}

func TestRandomWalkStaysInBounds(t *testing.T) {
	s, _ := newSession(t)
	if err := s.Open(navigator.FromPath("five.pdf")); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		var err error
		if rng.Intn(2) == 0 {
			_, err = s.Advance()
		} else {
			_, err = s.Retreat()
		}
		if err != nil && !navigator.IsBoundary(err) {
			t.Fatalf("step %d: unexpected error %v", i, err)
		}
		st := s.State()
		if st.Current < 0 || st.Current > 4 {
			t.Fatalf("step %d: index %d out of [0,4]", i, st.Current)
		}
		if st.CanAdvance != (st.Current < 4) || st.CanRetreat != (st.Current > 0) {
			t.Fatalf("step %d: inconsistent state %+v", i, st)
		}
	}
}

func TestOpenReplacesDocument(t *testing.T) {
	s, r := newSession(t)
	if err := s.Open(navigator.FromPath("five.pdf")); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Advance()
	s.Advance()

	if err := s.Open(navigator.FromPath("three.pdf")); err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	want := navigator.NavigationState{CanAdvance: true, Loaded: true, Current: 0, Total: 3}
	if diff := cmp.Diff(want, s.State()); diff != "" {
		t.Errorf("State() after reopen mismatch (-want +got):\n%s", diff)
	}
	if r.OpenCount() != 1 {
		t.Errorf("renderer has %d open documents, want 1", r.OpenCount())
	}
}

func TestOpenFailures(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr error
	}{
		{"unparseable", "garbage.bin", navigator.ErrInvalidDocument},
		{"zero pages", "empty.pdf", navigator.ErrEmptyDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, r := newSession(t)
			if err := s.Open(navigator.FromPath("five.pdf")); err != nil {
				t.Fatalf("Open failed: %v", err)
			}

			err := s.Open(navigator.FromPath(tt.file))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Open(%s) error = %v, want %v", tt.file, err, tt.wantErr)
			}
			if s.State().Loaded {
				t.Error("session still loaded after failed open")
			}
			if s.DocumentName() != "" {
				t.Errorf("DocumentName() = %q after failed open", s.DocumentName())
			}
			if r.OpenCount() != 0 {
				t.Errorf("renderer has %d open documents, want 0", r.OpenCount())
			}
			if _, err := s.RenderCurrentPage(); !errors.Is(err, navigator.ErrNoDocumentLoaded) {
				t.Errorf("RenderCurrentPage() error = %v, want ErrNoDocumentLoaded", err)
			}
		})
	}
}

func TestRenderCurrentPage(t *testing.T) {
	s, r := newSession(t)
	if err := s.Open(navigator.FromPath("three.pdf")); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Advance()

	img, err := s.RenderCurrentPage()
	if err != nil {
		t.Fatalf("RenderCurrentPage failed: %v", err)
	}
	if img.Pixels[0] != 1 {
		t.Errorf("rendered page %d, want 1", img.Pixels[0])
	}
	if img.Width != 3 {
		t.Errorf("width = %d, want 3 at zoom 1.5", img.Width)
	}

	r.FailPages[2] = true
	s.Advance()
	if _, err := s.RenderCurrentPage(); !errors.Is(err, navigator.ErrRenderFailure) {
		t.Fatalf("RenderCurrentPage error = %v, want ErrRenderFailure", err)
	}
	// a failed page does not invalidate the session
	if st := s.State(); !st.Loaded || st.Current != 2 {
		t.Errorf("state after render failure = %+v", st)
	}
	s.Retreat()
	if _, err := s.RenderCurrentPage(); err != nil {
		t.Errorf("render of healthy page after failure: %v", err)
	}
}

func TestSeek(t *testing.T) {
	s, _ := newSession(t)
	if err := s.Open(navigator.FromPath("five.pdf")); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if idx, err := s.Seek(3); err != nil || idx != 3 {
		t.Fatalf("Seek(3) = %d, %v", idx, err)
	}
	for _, bad := range []int{-1, 5, 100} {
		idx, err := s.Seek(bad)
		if !errors.Is(err, navigator.ErrPageOutOfRange) {
			t.Errorf("Seek(%d) error = %v, want ErrPageOutOfRange", bad, err)
		}
		if idx != 3 {
			t.Errorf("Seek(%d) moved index to %d", bad, idx)
		}
	}
	if idx, _ := s.Last(); idx != 4 {
		t.Errorf("Last() = %d, want 4", idx)
	}
	if idx, _ := s.First(); idx != 0 {
		t.Errorf("First() = %d, want 0", idx)
	}
}

func TestCloseReleasesHandle(t *testing.T) {
	s, r := newSession(t)
	if err := s.Open(navigator.FromPath("five.pdf")); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if r.OpenCount() != 0 {
		t.Errorf("renderer has %d open documents after Close", r.OpenCount())
	}
	if len(r.Closed) != 1 {
		t.Errorf("renderer closed %d handles, want 1", len(r.Closed))
	}
}

func TestRasterImageConversion(t *testing.T) {
	raster := navigator.RasterImage{
		Width:  2,
		Height: 2,
		Stride: 8, // padded rows
		Pixels: []byte{
			255, 0, 0, 0, 255, 0, 9, 9,
			0, 0, 255, 10, 20, 30, 9, 9,
		},
	}
	img := raster.Image()
	r, g, b, a := img.At(1, 1).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 || a>>8 != 255 {
		t.Errorf("pixel (1,1) = %d,%d,%d,%d", r>>8, g>>8, b>>8, a>>8)
	}
	r, _, _, _ = img.At(0, 0).RGBA()
	if r>>8 != 255 {
		t.Errorf("pixel (0,0) red = %d, want 255", r>>8)
	}
}

func TestSourceName(t *testing.T) {
	if got := navigator.FromPath("/tmp/a/report.pdf").Name(); got != "report.pdf" {
		t.Errorf("FromPath name = %q", got)
	}
	if got := navigator.FromBytes("", []byte("x")).Name(); got != "document.pdf" {
		t.Errorf("FromBytes default name = %q", got)
	}
	src := navigator.FromBytes("shared.pdf", []byte("x"))
	if src.IsPath() || src.Path() != "" || string(src.Bytes()) != "x" {
		t.Errorf("unexpected in-memory source %+v", src)
	}
}
