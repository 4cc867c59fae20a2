package render

import (
	"math"

	"github.com/taigrr/plyview/pkg/math3d"
	"github.com/taigrr/plyview/pkg/pointcloud"
)

// Epsilon is the smallest bounding span the projection divides by.
const Epsilon = 1e-9

// marginFactor leaves room for rotated geometry inside the canvas.
const marginFactor = 1.5

// Rotation is the view orientation in radians.
// Yaw turns about the vertical axis, Pitch about the horizontal one.
type Rotation struct {
	Yaw   float64
	Pitch float64
}

// Matrix returns the yaw-then-pitch rotation.
func (r Rotation) Matrix() math3d.Mat4 {
	return math3d.YawPitch(r.Yaw, r.Pitch)
}

// Viewport describes the drawing surface a cloud is projected onto.
type Viewport struct {
	Width  int
	Height int
	Zoom   float64 // multiplies the fitted scale; <= 0 means 1
}

// ProjectedPoint is a vertex mapped to surface coordinates.
// Depth is the rotated z before scaling.
type ProjectedPoint struct {
	X, Y  float64
	Depth float64
	Color pointcloud.Color
}

// Bounds returns the axis-aligned bounding box of every finite vertex.
// ok is false when the cloud has no finite vertex.
func Bounds(cloud *pointcloud.Cloud) (lo, hi math3d.Vec3, ok bool) {
	if cloud == nil {
		return lo, hi, false
	}
	for _, v := range cloud.Vertices {
		if !v.Position.IsFinite() {
			continue
		}
		if !ok {
			lo, hi, ok = v.Position, v.Position, true
			continue
		}
		lo = lo.Min(v.Position)
		hi = hi.Max(v.Position)
	}
	return lo, hi, ok
}

// Project maps every finite vertex of cloud onto the viewport, rotating
// about the center of the cloud's bounding box. Results are appended to
// dst[:0] so callers can reuse a buffer across frames.
//
// Coordinates are rotated relative to the half extent of the box, so
// clouds near the float64 range still project to finite points.
func Project(dst []ProjectedPoint, cloud *pointcloud.Cloud, rot Rotation, vp Viewport) []ProjectedPoint {
	dst = dst[:0]
	lo, hi, ok := Bounds(cloud)
	if !ok {
		return dst
	}

	// Halving first keeps pivot and extent finite for any finite bounds.
	pivot := lo.Scale(0.5).Add(hi.Scale(0.5))
	half := max(hi.Scale(0.5).Sub(lo.Scale(0.5)).MaxComponent(), Epsilon/2)

	zoom := vp.Zoom
	if zoom <= 0 || math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		zoom = 1
	}
	// min(W,H) / (span * marginFactor) * zoom, in units of half.
	pixels := float64(min(vp.Width, vp.Height)) / (2 * marginFactor) * zoom
	cx, cy := float64(vp.Width)/2, float64(vp.Height)/2

	m := rot.Matrix()
	for _, v := range cloud.Vertices {
		if !v.Position.IsFinite() {
			continue
		}
		p := m.MulVec3(v.Position.Sub(pivot).Scale(1 / half))
		dst = append(dst, ProjectedPoint{
			X: cx + p.X*pixels,
			// Screen y grows downward; model +y is drawn upward.
			Y:     cy - p.Y*pixels,
			Depth: clampFinite(p.Z * half),
			Color: v.Color,
		})
	}
	return dst
}

func clampFinite(f float64) float64 {
	return min(max(f, -math.MaxFloat64), math.MaxFloat64)
}
