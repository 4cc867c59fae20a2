package viewer

import (
	"context"

	"github.com/charmbracelet/harmonica"
	"github.com/google/uuid"
	"github.com/taigrr/plyview/internal/catalog"
	"github.com/taigrr/plyview/pkg/pointcloud"
	"github.com/taigrr/plyview/pkg/render"
)

// Zoom limits.
const (
	MinZoom = 0.25
	MaxZoom = 8.0
)

// zoomSpring eases the zoom factor toward its target.
type zoomSpring struct {
	spring harmonica.Spring
	pos    float64
	vel    float64
	target float64
}

func newZoomSpring(fps int) zoomSpring {
	// Critically damped so zooming never overshoots.
	return zoomSpring{
		spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
		pos:    1,
		target: 1,
	}
}

func (z *zoomSpring) update() {
	z.pos, z.vel = z.spring.Update(z.pos, z.vel, z.target)
}

func (z *zoomSpring) setTarget(t float64) {
	z.target = min(max(t, MinZoom), MaxZoom)
}

func (z *zoomSpring) reset() {
	z.pos, z.vel, z.target = 1, 0, 1
}

// Session is the state of one open viewer. The Controller owns it; callers
// get read access through Controller.Session.
type Session struct {
	ID       uuid.UUID
	Model    catalog.Model
	Cloud    *pointcloud.Cloud // nil while geometry is loading
	Rotation render.Rotation

	AutoRotate bool
	Dragging   bool

	// Fallback is set when the geometry was generated because retrieval
	// or decoding failed; Err holds that failure.
	Fallback bool
	Err      error

	// Points is the number of points painted by the last frame.
	Points int

	lastX, lastY float64
	frame        FrameID
	cancel       context.CancelFunc
	zoom         zoomSpring
}

// Loading reports whether the session is still waiting for geometry.
func (s *Session) Loading() bool { return s.Cloud == nil }

// Zoom returns the current zoom factor.
func (s *Session) Zoom() float64 { return s.zoom.pos }

// ZoomTarget returns the zoom factor the session is easing toward.
func (s *Session) ZoomTarget() float64 { return s.zoom.target }

// State returns the interaction state of the session.
func (s *Session) State() State {
	switch {
	case s == nil:
		return Idle
	case s.Dragging:
		return Dragging
	case s.AutoRotate:
		return AutoRotating
	default:
		return Manual
	}
}
