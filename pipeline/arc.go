package pipeline

import (
	"image"

	"github.com/chewxy/math32"

	"github.com/gogpu/picogfx/pix"
)

// arcUnit draws circles, discs, rings, and angular arcs using cached
// quarter-circle extent tables.
type arcUnit struct{}

// Draw implements Unit.
func (arcUnit) Draw(ps *Pass, prim Primitive, dst *pix.Pixmap, clip image.Rectangle) error {
	p := prim.(Arc)
	r := p.Radius
	if r <= 0 {
		return nil
	}
	w := p.Width
	if w < 1 {
		w = 1
	}
	inner := r - w
	if inner < 0 {
		inner = 0
	}

	h, err := ps.p.geom.extents(r)
	if err != nil {
		return err
	}
	defer h.Release()
	ext := h.Value()

	full := p.StartDeg == p.EndDeg || math32.Abs(p.EndDeg-p.StartDeg) >= 360
	innerSq := inner * inner

	for dy := -r; dy <= r; dy++ {
		y := p.Center.Y + dy
		if y < clip.Min.Y || y >= clip.Max.Y {
			continue
		}
		xmax := int(ext[abs(dy)])
		for dx := -xmax; dx <= xmax; dx++ {
			if dx*dx+dy*dy < innerSq {
				continue
			}
			x := p.Center.X + dx
			if x < clip.Min.X || x >= clip.Max.X {
				continue
			}
			if !full && !angleWithin(dx, dy, p.StartDeg, p.EndDeg) {
				continue
			}
			dst.BlendPixel(x, y, p.Color, p.Opa)
		}
	}
	return nil
}

// angleWithin reports whether the screen-space angle of (dx, dy) lies in
// the clockwise sweep from start to end degrees. Y grows downward, so
// Atan2 already yields clockwise angles.
func angleWithin(dx, dy int, start, end float32) bool {
	deg := math32.Atan2(float32(dy), float32(dx)) * 180 / math32.Pi
	if deg < 0 {
		deg += 360
	}
	start = normDeg(start)
	end = normDeg(end)
	if start <= end {
		return deg >= start && deg <= end
	}
	// Sweep wraps through 0.
	return deg >= start || deg <= end
}

func normDeg(v float32) float32 {
	v = math32.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}
