package glyph

import (
	"errors"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func loadTestFace(t *testing.T) *Face {
	t.Helper()
	f, err := LoadFace(goregular.TTF)
	if err != nil {
		t.Fatalf("failed to load test font: %v", err)
	}
	return f
}

func TestLoadFace(t *testing.T) {
	f := loadTestFace(t)
	if f.ID() == 0 {
		t.Error("expected non-zero face ID")
	}

	f2 := loadTestFace(t)
	if f.ID() == f2.ID() {
		t.Error("expected distinct IDs for separately loaded faces")
	}
}

func TestLoadFaceInvalid(t *testing.T) {
	if _, err := LoadFace(nil); err == nil {
		t.Error("expected error for empty font data")
	}
	if _, err := LoadFace([]byte("definitely not a font")); err == nil {
		t.Error("expected error for malformed font data")
	}
}

func TestLookup(t *testing.T) {
	f := loadTestFace(t)

	gid, ok := f.Lookup('A')
	if !ok {
		t.Fatal("expected glyph for 'A'")
	}
	if gid == 0 {
		t.Error("expected non-notdef glyph index for 'A'")
	}

	// goregular has no CJK coverage.
	if _, ok := f.Lookup('世'); ok {
		t.Error("expected lookup miss for CJK rune")
	}
}

func TestAdvance(t *testing.T) {
	f := loadTestFace(t)
	gid, _ := f.Lookup('M')

	adv16 := f.Advance(gid, 16)
	adv32 := f.Advance(gid, 32)
	if adv16 <= 0 {
		t.Errorf("expected positive advance, got %f", adv16)
	}
	// Advance scales linearly with pixel size.
	if adv32 < adv16*1.9 || adv32 > adv16*2.1 {
		t.Errorf("expected advance to double from 16 to 32 ppem: %f vs %f", adv16, adv32)
	}
}

func TestLineMetrics(t *testing.T) {
	f := loadTestFace(t)
	ascent, descent := f.LineMetrics(16)
	if ascent <= 0 {
		t.Errorf("expected positive ascent, got %f", ascent)
	}
	if descent <= 0 {
		t.Errorf("expected positive descent, got %f", descent)
	}
	if ascent+descent < 14 || ascent+descent > 26 {
		t.Errorf("implausible line height %f at 16 ppem", ascent+descent)
	}
}

func TestRasterize(t *testing.T) {
	f := loadTestFace(t)
	r := NewRasterizer(0, nil)

	gid, _ := f.Lookup('A')
	h, err := r.Rasterize(f, gid, 32)
	if err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}
	defer h.Release()

	bm := h.Value()
	if bm.Width <= 0 || bm.Height <= 0 {
		t.Fatalf("expected non-empty bitmap, got %dx%d", bm.Width, bm.Height)
	}
	if bm.Height > 40 {
		t.Errorf("implausible height %d for 32 ppem glyph", bm.Height)
	}
	if len(bm.Cov) != bm.Width*bm.Height {
		t.Errorf("coverage length %d does not match %dx%d", len(bm.Cov), bm.Width, bm.Height)
	}
	if bm.Placeholder {
		t.Error("real glyph marked as placeholder")
	}

	// An 'A' must produce actual coverage somewhere.
	covered := 0
	for _, c := range bm.Cov {
		if c > 0 {
			covered++
		}
	}
	if covered == 0 {
		t.Error("expected non-zero coverage for 'A'")
	}
}

func TestRasterizeWhitespace(t *testing.T) {
	f := loadTestFace(t)
	r := NewRasterizer(0, nil)

	gid, ok := f.Lookup(' ')
	if !ok {
		t.Fatal("expected glyph for space")
	}
	h, err := r.Rasterize(f, gid, 16)
	if err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}
	defer h.Release()

	bm := h.Value()
	if len(bm.Cov) != 0 {
		t.Errorf("expected empty coverage for space, got %d bytes", len(bm.Cov))
	}
	if bm.Advance <= 0 {
		t.Errorf("expected positive advance for space, got %f", bm.Advance)
	}
}

func TestRasterizeCaching(t *testing.T) {
	f := loadTestFace(t)
	r := NewRasterizer(0, nil)
	gid, _ := f.Lookup('g')

	h1, err := r.Rasterize(f, gid, 24)
	if err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}
	h2, err := r.Rasterize(f, gid, 24)
	if err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}
	if h1.Value() != h2.Value() {
		t.Error("expected second rasterization to hit the cache")
	}
	// Distinct sizes get distinct entries.
	h3, err := r.Rasterize(f, gid, 25)
	if err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}
	if h3.Value() == h1.Value() {
		t.Error("expected distinct bitmap for distinct ppem")
	}
	h1.Release()
	h2.Release()
	h3.Release()

	st := r.Stats()
	if st.Hits != 1 || st.Misses != 2 {
		t.Errorf("expected 1 hit / 2 misses, got %d / %d", st.Hits, st.Misses)
	}
}

func TestCacheCapacityEviction(t *testing.T) {
	// Capacity 2: rasterize A, B, touch A, rasterize C. B must be evicted
	// and re-rasterizing B counts a fresh miss.
	f := loadTestFace(t)
	r := NewRasterizer(2, nil)

	gidA, _ := f.Lookup('A')
	gidB, _ := f.Lookup('B')
	gidC, _ := f.Lookup('C')

	raster := func(gid GID) {
		h, err := r.Rasterize(f, gid, 16)
		if err != nil {
			t.Fatalf("Rasterize failed: %v", err)
		}
		h.Release()
	}

	raster(gidA)
	raster(gidB)
	raster(gidA) // A becomes most recently used
	raster(gidC) // evicts B

	st := r.Stats()
	if st.Evictions != 1 {
		t.Fatalf("expected 1 eviction, got %d", st.Evictions)
	}
	if st.Len != 2 {
		t.Errorf("expected 2 cached glyphs, got %d", st.Len)
	}

	misses := st.Misses
	raster(gidA) // still cached
	raster(gidB) // evicted, must re-rasterize
	st = r.Stats()
	if st.Misses != misses+1 {
		t.Errorf("expected exactly one new miss, got %d", st.Misses-misses)
	}
}

func TestRasterizeFailure(t *testing.T) {
	f := loadTestFace(t)
	r := NewRasterizer(0, nil)

	// A glyph index far past the font's glyph count has no outline.
	_, err := r.Rasterize(f, GID(65000), 16)
	if !errors.Is(err, ErrRasterFailed) {
		t.Errorf("expected ErrRasterFailed, got %v", err)
	}
}

func TestPlaceholder(t *testing.T) {
	r := NewRasterizer(0, nil)
	bm := r.Placeholder(20)

	if !bm.Placeholder {
		t.Error("placeholder not marked")
	}
	if bm.Width != 12 || bm.Height != 16 {
		t.Errorf("unexpected placeholder size %dx%d", bm.Width, bm.Height)
	}
	if bm.Advance <= float32(bm.Width) {
		t.Errorf("expected advance beyond box width, got %f", bm.Advance)
	}
	// Hollow box: corners set, center empty.
	if bm.Cov[0] == 0 || bm.Cov[len(bm.Cov)-1] == 0 {
		t.Error("expected box outline coverage at corners")
	}
	if bm.Cov[(bm.Height/2)*bm.Width+bm.Width/2] != 0 {
		t.Error("expected hollow center")
	}
}
