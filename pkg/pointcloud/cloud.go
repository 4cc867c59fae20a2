// Package pointcloud provides point-cloud loading and representation for
// plyview.
package pointcloud

import (
	"fmt"
	"image/color"
	"math"

	"github.com/taigrr/plyview/pkg/math3d"
)

// Format identifies where a Cloud's vertices came from.
type Format string

const (
	FormatASCII     Format = "ascii"
	FormatBinaryLE  Format = "binary_little_endian"
	FormatBinaryBE  Format = "binary_big_endian"
	FormatGLB       Format = "glb"
	FormatGenerated Format = "generated"
)

// Color is either an explicit RGB triple or the renderer's default color.
// The zero value is DefaultColor, so black and unset stay distinct.
type Color struct {
	R, G, B  uint8
	explicit bool
}

// DefaultColor marks a vertex that carries no color of its own.
var DefaultColor = Color{}

// Explicit returns an explicit color.
func Explicit(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, explicit: true}
}

// IsExplicit reports whether the color was set by the source data.
func (c Color) IsExplicit() bool {
	return c.explicit
}

// Resolve returns the explicit color, or def when the color is unset.
func (c Color) Resolve(def color.RGBA) color.RGBA {
	if !c.explicit {
		return def
	}
	return color.RGBA{c.R, c.G, c.B, 255}
}

// String formats the color as rgb(r, g, b), or "default".
func (c Color) String() string {
	if !c.explicit {
		return "default"
	}
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// colorFromChannels clamps three channel values into [0,255]. Any
// non-finite channel leaves the vertex on the default color.
func colorFromChannels(r, g, b float64) Color {
	for _, v := range [3]float64{r, g, b} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return DefaultColor
		}
	}
	return Explicit(channel(r), channel(g), channel(b))
}

func channel(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Vertex is one point-cloud sample.
type Vertex struct {
	Position math3d.Vec3
	Color    Color
}

// Cloud is an ordered collection of vertices plus what the file header
// declared about them.
type Cloud struct {
	Name       string
	Format     Format
	Declared   int      // vertex count from the header
	Properties []string // property names in declaration order
	Vertices   []Vertex
}

// Len returns the number of parsed vertices.
func (c *Cloud) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Vertices)
}

// HasColor reports whether any vertex carries an explicit color.
func (c *Cloud) HasColor() bool {
	if c == nil {
		return false
	}
	for _, v := range c.Vertices {
		if v.Color.IsExplicit() {
			return true
		}
	}
	return false
}
