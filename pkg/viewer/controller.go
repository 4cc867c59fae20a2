// Package viewer drives an interactive point-cloud view: it owns the open
// session, turns pointer input into rotation and schedules frames.
package viewer

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/taigrr/plyview/internal/catalog"
	"github.com/taigrr/plyview/pkg/pointcloud"
	"github.com/taigrr/plyview/pkg/render"
	"go.uber.org/zap"
)

// State is the interaction state of the controller.
type State int

const (
	Idle         State = iota // no session
	AutoRotating              // session open, spinning on its own
	Dragging                  // pointer engaged
	Manual                    // released after a drag; spins again only after a reset
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case AutoRotating:
		return "Auto-rotating"
	case Dragging:
		return "Dragging"
	case Manual:
		return "Manual control"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Source retrieves the raw bytes of a model.
type Source interface {
	FetchModel(ctx context.Context, m catalog.Model) ([]byte, error)
}

// Options tunes the controller.
type Options struct {
	FPS             int
	AutoRotateStep  float64 // yaw added per frame while auto-rotating
	DragSensitivity float64 // radians per pixel of drag
	InitialPitch    float64
	FallbackPoints  int // generated when the model does not say how many
	Style           render.Style
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		FPS:             60,
		AutoRotateStep:  0.005,
		DragSensitivity: 0.01,
		InitialPitch:    0.3,
		FallbackPoints:  pointcloud.DefaultFallbackPoints,
		Style:           render.DefaultStyle(),
	}
}

// Controller owns at most one Session and all of its mutation. Every
// method must be called from the scheduler's control goroutine.
type Controller struct {
	opts     Options
	sched    FrameScheduler
	src      Source
	canvas   render.Canvas
	renderer *render.Renderer
	rng      *rand.Rand
	log      *zap.Logger

	session *Session
	onFrame func(*Session)
}

// New creates a controller. src may be nil when only OpenCloud is used.
func New(sched FrameScheduler, canvas render.Canvas, src Source, opts Options, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	return &Controller{
		opts:     opts,
		sched:    sched,
		src:      src,
		canvas:   canvas,
		renderer: render.NewRenderer(opts.Style),
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x706c79)),
		log:      log,
	}
}

// SetRand replaces the random source used for fallback geometry.
func (c *Controller) SetRand(rng *rand.Rand) { c.rng = rng }

// OnFrame registers fn to run after every render, e.g. to present the
// canvas.
func (c *Controller) OnFrame(fn func(*Session)) { c.onFrame = fn }

// SetCanvas swaps the drawing surface, e.g. after a resize, and redraws.
func (c *Controller) SetCanvas(canvas render.Canvas) {
	c.canvas = canvas
	if c.session != nil {
		c.render()
	}
}

// Session returns the open session, or nil.
func (c *Controller) Session() *Session { return c.session }

// State returns the interaction state.
func (c *Controller) State() State { return c.session.State() }

// Open starts a session for model and retrieves its geometry in the
// background. Retrieval or decode failures fall back to generated points.
func (c *Controller) Open(model catalog.Model) {
	s := c.begin(model)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go c.fetch(ctx, s.ID, model)
}

// OpenCloud starts a session with geometry that is already loaded.
func (c *Controller) OpenCloud(model catalog.Model, cloud *pointcloud.Cloud) {
	s := c.begin(model)
	s.Cloud = cloud
	c.render()
}

func (c *Controller) begin(model catalog.Model) *Session {
	c.Close()

	s := &Session{
		ID:    uuid.New(),
		Model: model,
		zoom:  newZoomSpring(c.opts.FPS),
	}
	c.session = s
	c.resetView(s)
	c.requestFrame(s)

	c.log.Info("session opened",
		zap.String("session", s.ID.String()),
		zap.String("model", model.Name),
		zap.String("fileId", model.FileID))
	return s
}

func (c *Controller) fetch(ctx context.Context, id uuid.UUID, model catalog.Model) {
	cloud, err := c.load(ctx, model)
	c.sched.Post(func() { c.deliver(id, cloud, err) })
}

func (c *Controller) load(ctx context.Context, model catalog.Model) (*pointcloud.Cloud, error) {
	if c.src == nil {
		return nil, fmt.Errorf("no model source configured")
	}
	data, err := c.src.FetchModel(ctx, model)
	if err != nil {
		return nil, err
	}
	cloud, err := pointcloud.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", model.ID, err)
	}
	cloud.Name = model.Name
	return cloud, nil
}

// deliver installs fetched geometry if the session that asked for it is
// still open.
func (c *Controller) deliver(id uuid.UUID, cloud *pointcloud.Cloud, err error) {
	s := c.session
	if s == nil || s.ID != id {
		c.log.Debug("dropping geometry for closed session", zap.String("session", id.String()))
		return
	}
	if err != nil {
		n := s.Model.Vertices
		if n <= 0 {
			n = c.opts.FallbackPoints
		}
		c.log.Warn("model unavailable, showing generated points",
			zap.String("model", s.Model.Name),
			zap.Int("points", min(n, pointcloud.MaxFallbackPoints)),
			zap.Error(err))
		cloud = pointcloud.Generate(n, c.rng)
		cloud.Name = s.Model.Name
		s.Fallback = true
		s.Err = err
	}
	s.Cloud = cloud
	c.log.Info("geometry ready",
		zap.String("session", id.String()),
		zap.Int("points", cloud.Len()),
		zap.String("format", string(cloud.Format)))
	c.render()
}

// Close ends the session. The pending frame is cancelled before Close
// returns, so no frame runs for the closed session.
func (c *Controller) Close() {
	s := c.session
	if s == nil {
		return
	}
	if s.frame != 0 {
		c.sched.CancelFrame(s.frame)
		s.frame = 0
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.Cloud = nil
	c.session = nil
	c.log.Info("session closed", zap.String("session", s.ID.String()))
}

// ResetView restores the initial orientation and zoom and turns
// auto-rotation back on.
func (c *Controller) ResetView() {
	s := c.session
	if s == nil {
		return
	}
	c.resetView(s)
	c.render()
}

func (c *Controller) resetView(s *Session) {
	s.Rotation = render.Rotation{Yaw: 0, Pitch: c.opts.InitialPitch}
	s.AutoRotate = true
	s.Dragging = false
	s.zoom.reset()
}

// PointerDown starts a drag if (x, y) lies on the canvas.
func (c *Controller) PointerDown(x, y float64) {
	s := c.session
	if s == nil || !c.inside(x, y) {
		return
	}
	s.Dragging = true
	s.AutoRotate = false
	s.lastX, s.lastY = x, y
}

// PointerMove rotates by the distance moved since the last pointer event
// and redraws at once.
func (c *Controller) PointerMove(x, y float64) {
	s := c.session
	if s == nil || !s.Dragging {
		return
	}
	dx, dy := x-s.lastX, y-s.lastY
	s.lastX, s.lastY = x, y
	if dx == 0 && dy == 0 {
		return
	}
	s.Rotation.Yaw += dx * c.opts.DragSensitivity
	s.Rotation.Pitch += dy * c.opts.DragSensitivity
	c.render()
}

// PointerUp ends a drag. Auto-rotation stays off until ResetView.
func (c *Controller) PointerUp() {
	if s := c.session; s != nil {
		s.Dragging = false
	}
}

// PointerLeave ends a drag when the pointer leaves the canvas.
func (c *Controller) PointerLeave() { c.PointerUp() }

// Zoom multiplies the zoom target by factor. The view eases toward it on
// the following frames.
func (c *Controller) Zoom(factor float64) {
	s := c.session
	if s == nil || factor <= 0 {
		return
	}
	s.zoom.setTarget(s.zoom.target * factor)
}

func (c *Controller) inside(x, y float64) bool {
	if c.canvas == nil {
		return false
	}
	w, h := c.canvas.Size()
	return x >= 0 && y >= 0 && x < float64(w) && y < float64(h)
}

func (c *Controller) requestFrame(s *Session) {
	s.frame = c.sched.RequestFrame(func(now time.Time) { c.tick(s) })
}

// tick advances one animation frame for s.
func (c *Controller) tick(s *Session) {
	s.frame = 0
	if c.session != s {
		return
	}
	if s.AutoRotate {
		s.Rotation.Yaw += c.opts.AutoRotateStep
	}
	s.zoom.update()
	c.render()
	c.requestFrame(s)
}

func (c *Controller) render() {
	s := c.session
	if s == nil || c.canvas == nil {
		return
	}
	s.Points = c.renderer.Render(c.canvas, s.Cloud, s.Rotation, s.zoom.pos)
	if c.onFrame != nil {
		c.onFrame(s)
	}
}
