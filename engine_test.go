package picogfx

import (
	"errors"
	"image"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/picogfx/decoder"
	"github.com/gogpu/picogfx/pipeline"
	"github.com/gogpu/picogfx/pix"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func encodeTestImage(t *testing.T, w, h int, c pix.RGBA8) []byte {
	t.Helper()
	pm := pix.NewPixmap(w, h, pix.FormatRGB565)
	pm.Clear(c)
	data, err := decoder.EncodeRaw(decoder.Header{Width: w, Height: h, Format: pix.FormatRGB565}, pm.Data())
	if err != nil {
		t.Fatalf("EncodeRaw failed: %v", err)
	}
	return data
}

func TestNewDefaults(t *testing.T) {
	e := newTestEngine(t)

	st := e.Stats()
	if st.Arena.PoolSize != DefaultPoolSize {
		t.Errorf("expected pool size %d, got %d", DefaultPoolSize, st.Arena.PoolSize)
	}
	if st.Arena.ExpandSize != 0 {
		t.Errorf("expected no expansion region, got %d", st.Arena.ExpandSize)
	}
	if st.Images.Budget != 0 {
		t.Errorf("expected unbounded image cache, got budget %d", st.Images.Budget)
	}
	if st.Glyphs.Budget != DefaultGlyphCacheCap {
		t.Errorf("expected glyph cache budget %d, got %d", DefaultGlyphCacheCap, st.Glyphs.Budget)
	}
}

func TestNewInvalidPool(t *testing.T) {
	if _, err := New(WithPoolSize(0)); err == nil {
		t.Error("expected error for zero pool size")
	}
}

func TestAllocTarget(t *testing.T) {
	e := newTestEngine(t)

	target, err := e.AllocTarget(32, 32, pix.FormatRGB565)
	if err != nil {
		t.Fatalf("AllocTarget failed: %v", err)
	}
	if target.Width() != 32 || target.Height() != 32 {
		t.Errorf("unexpected target size %dx%d", target.Width(), target.Height())
	}
	if e.Stats().Arena.Used == 0 {
		t.Error("expected target to occupy arena memory")
	}
	target.Release()
	if used := e.Stats().Arena.Used; used != 0 {
		t.Errorf("released target left %d arena bytes", used)
	}
}

func TestAllocTargetOutOfMemory(t *testing.T) {
	e := newTestEngine(t, WithPoolSize(1024))

	// 64x64 RGB565 needs 8192 bytes, far over the 1 KiB pool.
	_, err := e.AllocTarget(64, 64, pix.FormatRGB565)
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("expected ErrOutOfMemory, got %v", err)
	}
	if e.Stats().Counters.OutOfMemory != 1 {
		t.Errorf("expected out-of-memory counter 1, got %d", e.Stats().Counters.OutOfMemory)
	}
}

func TestExecuteEndToEnd(t *testing.T) {
	e := newTestEngine(t)

	target, err := e.AllocTarget(48, 48, pix.FormatRGB565)
	if err != nil {
		t.Fatalf("AllocTarget failed: %v", err)
	}
	defer target.Release()
	target.Clear(pix.Black)

	face, err := e.LoadFace(goregular.TTF)
	if err != nil {
		t.Fatalf("LoadFace failed: %v", err)
	}
	run := e.Shape(face, "Hi", 14)

	green := pix.RGBA8{G: 255, A: 255}
	src := pipeline.Source{ID: 1, Tag: decoder.TagRaw, Data: encodeTestImage(t, 8, 8, green)}

	rep, err := e.Execute([]pipeline.Primitive{
		pipeline.Fill{Rect: image.Rect(0, 0, 48, 48), Color: pix.White, Opa: 255},
		pipeline.ImageBlit{Src: src, Pos: image.Pt(2, 30), Opa: 255},
		pipeline.Line{From: image.Pt(0, 46), To: image.Pt(47, 46), Width: 1, Color: pix.Black, Opa: 255},
		pipeline.Arc{Center: image.Pt(36, 36), Radius: 8, StartDeg: 0, EndDeg: 360, Width: 2, Color: pix.Black, Opa: 255},
		pipeline.GlyphRun{Run: run, Origin: image.Pt(4, 16), Color: pix.Black, Opa: 255},
	}, target.Pixmap, target.Bounds())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if rep.Drawn != 5 || rep.Skipped != 0 {
		t.Errorf("unexpected report %+v", rep)
	}

	if got := target.GetPixel(4, 33); got.G != 255 {
		t.Errorf("expected image pixel, got %+v", got)
	}
	if got := target.GetPixel(20, 46); got != pix.Black {
		t.Errorf("expected line pixel, got %+v", got)
	}

	st := e.Stats()
	if st.Images.Misses != 1 {
		t.Errorf("expected one image decode, got %d", st.Images.Misses)
	}
	if st.Glyphs.Misses == 0 {
		t.Error("expected glyph rasterizations")
	}
}

func TestProbeHeader(t *testing.T) {
	e := newTestEngine(t)

	src := pipeline.Source{ID: 3, Tag: decoder.TagRaw, Data: encodeTestImage(t, 10, 6, pix.White)}
	hdr, err := e.ProbeHeader(src)
	if err != nil {
		t.Fatalf("ProbeHeader failed: %v", err)
	}
	want := decoder.Header{Width: 10, Height: 6, Format: pix.FormatRGB565}
	if hdr != want {
		t.Errorf("expected header %+v, got %+v", want, hdr)
	}

	// Probing never touches the arena.
	if used := e.Stats().Arena.Used; used != 0 {
		t.Errorf("probe consumed %d arena bytes", used)
	}

	// The second probe hits the header cache.
	if _, err := e.ProbeHeader(src); err != nil {
		t.Fatalf("ProbeHeader failed: %v", err)
	}
	st := e.Stats()
	if st.Headers.Misses != 1 || st.Headers.Hits != 1 {
		t.Errorf("expected 1 miss / 1 hit, got %d / %d", st.Headers.Misses, st.Headers.Hits)
	}
}

func TestProbeHeaderCorrupt(t *testing.T) {
	e := newTestEngine(t)

	src := pipeline.Source{ID: 4, Tag: decoder.TagRaw, Data: []byte{1, 2, 3}}
	if _, err := e.ProbeHeader(src); !errors.Is(err, ErrCorruptData) {
		t.Errorf("expected ErrCorruptData, got %v", err)
	}
}

func TestInvalidateImage(t *testing.T) {
	e := newTestEngine(t)

	target, err := e.AllocTarget(16, 16, pix.FormatRGB565)
	if err != nil {
		t.Fatalf("AllocTarget failed: %v", err)
	}
	defer target.Release()

	src := pipeline.Source{ID: 5, Tag: decoder.TagRaw, Data: encodeTestImage(t, 4, 4, pix.White)}
	blit := pipeline.ImageBlit{Src: src, Pos: image.Pt(0, 0), Opa: 255}

	if _, err := e.Execute([]pipeline.Primitive{blit}, target.Pixmap, target.Bounds()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	usedBefore := e.Stats().Arena.Used

	// Invalidation returns the decoded buffer to the arena.
	e.InvalidateImage(5, decoder.TagRaw)
	if used := e.Stats().Arena.Used; used >= usedBefore {
		t.Errorf("expected arena usage to drop after invalidate: %d -> %d", usedBefore, used)
	}

	// The next blit re-decodes.
	if _, err := e.Execute([]pipeline.Primitive{blit}, target.Pixmap, target.Bounds()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if st := e.Stats(); st.Images.Misses != 2 {
		t.Errorf("expected re-decode after invalidate, got %d misses", st.Images.Misses)
	}
}

func TestRemovedDecoder(t *testing.T) {
	e := newTestEngine(t, WithDecoder(decoder.TagRLE, nil))

	target, err := e.AllocTarget(8, 8, pix.FormatRGB565)
	if err != nil {
		t.Fatalf("AllocTarget failed: %v", err)
	}
	defer target.Release()

	src := pipeline.Source{ID: 6, Tag: decoder.TagRLE, Data: encodeTestImage(t, 2, 2, pix.White)}
	rep, err := e.Execute([]pipeline.Primitive{
		pipeline.ImageBlit{Src: src, Pos: image.Pt(0, 0), Opa: 255},
	}, target.Pixmap, target.Bounds())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if rep.Skipped != 1 {
		t.Errorf("expected skipped primitive, got %+v", rep)
	}
	if e.Stats().Counters.UnsupportedFormat != 1 {
		t.Errorf("expected unsupported-format counter 1, got %d", e.Stats().Counters.UnsupportedFormat)
	}
}

func TestImageCacheBudgetEviction(t *testing.T) {
	// Budget fits one 512-byte image: decoding a second evicts the first
	// and frees its arena memory.
	e := newTestEngine(t, WithImageCacheBudget(600))

	target, err := e.AllocTarget(16, 16, pix.FormatRGB565)
	if err != nil {
		t.Fatalf("AllocTarget failed: %v", err)
	}
	defer target.Release()

	// 16x16 RGB565 decodes to 512 bytes.
	srcA := pipeline.Source{ID: 10, Tag: decoder.TagRaw, Data: encodeTestImage(t, 16, 16, pix.White)}
	srcB := pipeline.Source{ID: 11, Tag: decoder.TagRaw, Data: encodeTestImage(t, 16, 16, pix.Black)}

	for _, src := range []pipeline.Source{srcA, srcB} {
		if _, err := e.Execute([]pipeline.Primitive{
			pipeline.ImageBlit{Src: src, Pos: image.Pt(0, 0), Opa: 255},
		}, target.Pixmap, target.Bounds()); err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
	}

	st := e.Stats()
	if st.Images.Evictions != 1 {
		t.Errorf("expected 1 image eviction, got %d", st.Images.Evictions)
	}
	if st.Images.Resident > 600 {
		t.Errorf("image cache resident %d over budget", st.Images.Resident)
	}
}

func TestRegisterUnit(t *testing.T) {
	e := newTestEngine(t)

	called := 0
	e.RegisterUnit(pipeline.KindFill, pix.FormatRGB565, unitFunc(func() { called++ }))

	target, err := e.AllocTarget(8, 8, pix.FormatRGB565)
	if err != nil {
		t.Fatalf("AllocTarget failed: %v", err)
	}
	defer target.Release()

	if _, err := e.Execute([]pipeline.Primitive{
		pipeline.Fill{Rect: image.Rect(0, 0, 4, 4), Color: pix.White, Opa: 255},
	}, target.Pixmap, target.Bounds()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if called != 1 {
		t.Errorf("expected custom unit to run once, got %d", called)
	}
}

// unitFunc adapts a func to pipeline.Unit for tests.
type unitFunc func()

func (f unitFunc) Draw(*pipeline.Pass, pipeline.Primitive, *pix.Pixmap, image.Rectangle) error {
	f()
	return nil
}

func TestErrorAliases(t *testing.T) {
	if ErrOutOfMemory == nil || ErrCorruptData == nil || ErrUnsupportedFormat == nil || ErrGlyphRasterFailed == nil {
		t.Fatal("expected non-nil error sentinels")
	}
}
