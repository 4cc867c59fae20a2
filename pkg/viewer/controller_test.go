package viewer

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taigrr/plyview/internal/catalog"
	"github.com/taigrr/plyview/pkg/pointcloud"
	"github.com/taigrr/plyview/pkg/render"
)

// manualScheduler fires frames only when the test asks.
type manualScheduler struct {
	next    FrameID
	pending map[FrameID]func(time.Time)
	posted  chan func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{
		pending: make(map[FrameID]func(time.Time)),
		posted:  make(chan func(), 16),
	}
}

func (m *manualScheduler) RequestFrame(fn func(time.Time)) FrameID {
	m.next++
	m.pending[m.next] = fn
	return m.next
}

func (m *manualScheduler) CancelFrame(id FrameID) { delete(m.pending, id) }

func (m *manualScheduler) Post(fn func()) { m.posted <- fn }

// tick fires every frame pending right now.
func (m *manualScheduler) tick() {
	ids := make([]FrameID, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if fn, ok := m.pending[id]; ok {
			delete(m.pending, id)
			fn(time.Now())
		}
	}
}

// drain runs one posted function, failing if none arrives.
func (m *manualScheduler) drain(t *testing.T) {
	t.Helper()
	select {
	case fn := <-m.posted:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for posted work")
	}
}

type fakeSource struct {
	data    []byte
	err     error
	release chan struct{} // when non-nil, FetchModel waits for it
}

func (f *fakeSource) FetchModel(ctx context.Context, m catalog.Model) ([]byte, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.data, f.err
}

const threePoints = `ply
format ascii 1.0
element vertex 3
property float x
property float y
property float z
end_header
0 0 0
1 0 0
0 1 1
`

func newTestController(src Source) (*Controller, *manualScheduler, *int) {
	sched := newManualScheduler()
	c := New(sched, render.NewFramebuffer(100, 80), src, DefaultOptions(), nil)
	c.SetRand(rand.New(rand.NewPCG(1, 2)))
	frames := 0
	c.OnFrame(func(*Session) { frames++ })
	return c, sched, &frames
}

func testCloud() *pointcloud.Cloud {
	return pointcloud.Parse(threePoints)
}

func TestOpenCloudStartsAutoRotating(t *testing.T) {
	c, sched, frames := newTestController(nil)
	assert.Equal(t, Idle, c.State())

	c.OpenCloud(catalog.Model{Name: "tri"}, testCloud())
	s := c.Session()
	require.NotNil(t, s)
	assert.Equal(t, AutoRotating, c.State())
	assert.Equal(t, render.Rotation{Yaw: 0, Pitch: 0.3}, s.Rotation)
	assert.Equal(t, 1, *frames, "OpenCloud draws once")
	assert.Equal(t, 3, s.Points)
	assert.Len(t, sched.pending, 1)

	sched.tick()
	assert.InDelta(t, 0.005, s.Rotation.Yaw, 1e-12)
	assert.InDelta(t, 0.3, s.Rotation.Pitch, 1e-12)
	assert.Equal(t, 2, *frames)
	assert.Len(t, sched.pending, 1, "each tick requests the next frame")
}

func TestDragChangesOnlyYaw(t *testing.T) {
	c, _, frames := newTestController(nil)
	c.OpenCloud(catalog.Model{}, testCloud())
	s := c.Session()
	before := s.Rotation

	c.PointerDown(10, 20)
	assert.Equal(t, Dragging, c.State())
	assert.False(t, s.AutoRotate)

	drawn := *frames
	c.PointerMove(110, 20)
	assert.InDelta(t, before.Yaw+100*0.01, s.Rotation.Yaw, 1e-12)
	assert.Equal(t, before.Pitch, s.Rotation.Pitch)
	assert.Equal(t, drawn+1, *frames, "drag redraws without waiting for a tick")

	c.PointerMove(110, 30)
	assert.InDelta(t, before.Pitch+10*0.01, s.Rotation.Pitch, 1e-12)
}

func TestPointerDownOutsideCanvas(t *testing.T) {
	c, _, _ := newTestController(nil)
	c.OpenCloud(catalog.Model{}, testCloud())

	c.PointerDown(-1, 5)
	c.PointerDown(100, 5)
	c.PointerDown(5, 80)
	assert.Equal(t, AutoRotating, c.State())

	yaw := c.Session().Rotation.Yaw
	c.PointerMove(50, 50)
	assert.Equal(t, yaw, c.Session().Rotation.Yaw, "moves without a press do nothing")
}

func TestReleaseLeavesManualControl(t *testing.T) {
	c, sched, _ := newTestController(nil)
	c.OpenCloud(catalog.Model{}, testCloud())
	s := c.Session()

	c.PointerDown(5, 5)
	c.PointerMove(15, 5)
	c.PointerUp()
	assert.Equal(t, Manual, c.State())
	assert.Equal(t, "Manual control", c.State().String())

	yaw := s.Rotation.Yaw
	sched.tick()
	sched.tick()
	assert.Equal(t, yaw, s.Rotation.Yaw, "no auto-rotation after a drag")

	c.PointerDown(5, 5)
	c.PointerLeave()
	assert.Equal(t, Manual, c.State())

	c.ResetView()
	assert.Equal(t, AutoRotating, c.State())
}

func TestResetViewIdempotent(t *testing.T) {
	c, _, _ := newTestController(nil)
	c.OpenCloud(catalog.Model{}, testCloud())
	c.PointerDown(1, 1)
	c.PointerMove(40, 70)
	c.Zoom(3)

	c.ResetView()
	once := *c.Session()
	c.ResetView()
	twice := *c.Session()

	assert.Equal(t, once.Rotation, twice.Rotation)
	assert.Equal(t, render.Rotation{Pitch: 0.3}, twice.Rotation)
	assert.True(t, twice.AutoRotate)
	assert.Equal(t, 1.0, twice.ZoomTarget())
}

func TestCloseCancelsPendingFrame(t *testing.T) {
	c, sched, frames := newTestController(nil)
	c.OpenCloud(catalog.Model{}, testCloud())
	require.Len(t, sched.pending, 1)

	c.Close()
	assert.Empty(t, sched.pending)
	assert.Equal(t, Idle, c.State())
	assert.Nil(t, c.Session())

	drawn := *frames
	sched.tick()
	assert.Equal(t, drawn, *frames)

	// Input after close is ignored.
	c.PointerDown(1, 1)
	c.ResetView()
	c.Zoom(2)
	c.Close()
	assert.Equal(t, Idle, c.State())
}

func TestOpenFetchesGeometry(t *testing.T) {
	c, sched, _ := newTestController(&fakeSource{data: []byte(threePoints)})
	c.Open(catalog.Model{ID: "tri.ply", Name: "tri", Vertices: 3})

	s := c.Session()
	require.NotNil(t, s)
	assert.True(t, s.Loading())

	sched.drain(t)
	require.False(t, s.Loading())
	assert.False(t, s.Fallback)
	assert.Equal(t, 3, s.Cloud.Len())
	assert.Equal(t, "tri", s.Cloud.Name)
}

func TestRetrievalFailureFallsBack(t *testing.T) {
	c, sched, _ := newTestController(&fakeSource{
		err: &catalog.Error{Kind: catalog.KindRetrieval, Op: "fetch model", Status: 500},
	})
	c.Open(catalog.Model{Name: "lost", Vertices: 500})
	sched.drain(t)

	s := c.Session()
	require.NotNil(t, s)
	assert.True(t, s.Fallback)
	assert.True(t, catalog.IsKind(s.Err, catalog.KindRetrieval))
	require.Equal(t, 500, s.Cloud.Len())
	for i, v := range s.Cloud.Vertices {
		require.True(t, v.Position.IsFinite(), "vertex %d", i)
		require.True(t, v.Color.IsExplicit(), "vertex %d", i)
		assert.GreaterOrEqual(t, v.Color.R, uint8(100))
		assert.GreaterOrEqual(t, v.Color.G, uint8(150))
		assert.GreaterOrEqual(t, v.Color.B, uint8(200))
	}
	assert.Equal(t, AutoRotating, c.State())
}

func TestFormatErrorFallsBack(t *testing.T) {
	c, sched, _ := newTestController(&fakeSource{data: []byte("ply\nformat klingon 1.0\nend_header\n")})
	c.Open(catalog.Model{Name: "odd"})
	sched.drain(t)

	s := c.Session()
	var fe *pointcloud.FormatError
	assert.True(t, errors.As(s.Err, &fe))
	assert.Equal(t, pointcloud.DefaultFallbackPoints, s.Cloud.Len())
}

func TestMissingSourceFallsBack(t *testing.T) {
	c, sched, _ := newTestController(nil)
	c.Open(catalog.Model{Vertices: 40})
	sched.drain(t)
	assert.Equal(t, 40, c.Session().Cloud.Len())
}

func TestStaleFetchIgnored(t *testing.T) {
	src := &fakeSource{data: []byte(threePoints), release: make(chan struct{})}
	c, sched, _ := newTestController(src)

	c.Open(catalog.Model{Name: "first"})
	first := c.Session().ID

	replacement := pointcloud.Generate(7, rand.New(rand.NewPCG(3, 4)))
	c.OpenCloud(catalog.Model{Name: "second"}, replacement)
	require.NotEqual(t, first, c.Session().ID)

	// Closing the first session cancelled its fetch; the result still
	// arrives and must be dropped.
	sched.drain(t)
	assert.Equal(t, "second", c.Session().Model.Name)
	assert.Same(t, replacement, c.Session().Cloud)
}

func TestZoomEasesTowardClampedTarget(t *testing.T) {
	c, sched, _ := newTestController(nil)
	c.OpenCloud(catalog.Model{}, testCloud())
	s := c.Session()

	c.Zoom(100)
	assert.Equal(t, MaxZoom, s.ZoomTarget())
	c.Zoom(0.0001)
	assert.Equal(t, MinZoom, s.ZoomTarget())

	c.Zoom(8) // 0.25 * 8 = 2
	assert.Equal(t, 2.0, s.ZoomTarget())
	for range 120 {
		sched.tick()
	}
	assert.InDelta(t, 2.0, s.Zoom(), 0.01)
	assert.False(t, math.IsNaN(s.Zoom()))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Idle", Idle.String())
	assert.Equal(t, "Auto-rotating", AutoRotating.String())
	assert.Equal(t, "Dragging", Dragging.String())
	assert.Equal(t, "State(9)", State(9).String())
}
