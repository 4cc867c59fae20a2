package render

import (
	"cmp"
	"image/color"
	"slices"

	"github.com/taigrr/plyview/pkg/pointcloud"
)

// Canvas is a surface the compositor can paint discs on.
type Canvas interface {
	Size() (width, height int)
	Clear(c color.RGBA)
	FillCircle(cx, cy, r float64, c color.RGBA)
}

// Style holds the colors used when compositing.
type Style struct {
	Background color.RGBA
	Accent     color.RGBA // used for vertices without their own color
}

// DefaultStyle returns the dark background and indigo accent.
func DefaultStyle() Style {
	return Style{
		Background: RGB(30, 30, 40),
		Accent:     RGB(102, 126, 234),
	}
}

// PointRadius returns the disc radius for a point at the given depth.
// Nearer points (more negative depth) draw larger; the floor is 1.
func PointRadius(depth float64) float64 {
	return max(1, 2.5-depth/100)
}

// SortByDepth stable-sorts points by ascending depth, so points with
// equal depth keep their input order.
func SortByDepth(pts []ProjectedPoint) {
	slices.SortStableFunc(pts, func(a, b ProjectedPoint) int {
		return cmp.Compare(a.Depth, b.Depth)
	})
}

// Composite clears c and paints pts back to front.
// pts is reordered in place.
func Composite(c Canvas, pts []ProjectedPoint, style Style) {
	c.Clear(style.Background)
	SortByDepth(pts)
	for _, p := range pts {
		c.FillCircle(p.X, p.Y, PointRadius(p.Depth), p.Color.Resolve(style.Accent))
	}
}

// Renderer projects and composites a cloud, reusing its point buffer
// between frames.
type Renderer struct {
	Style Style
	pts   []ProjectedPoint
}

// NewRenderer creates a renderer with the given style.
func NewRenderer(style Style) *Renderer {
	return &Renderer{Style: style}
}

// Render draws cloud onto c and returns the number of points painted.
// A nil or empty cloud leaves only the background.
func (r *Renderer) Render(c Canvas, cloud *pointcloud.Cloud, rot Rotation, zoom float64) int {
	w, h := c.Size()
	r.pts = Project(r.pts, cloud, rot, Viewport{Width: w, Height: h, Zoom: zoom})
	Composite(c, r.pts, r.Style)
	return len(r.pts)
}
