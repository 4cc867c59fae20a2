package pointcloud

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/taigrr/plyview/pkg/math3d"
)

// Fallback cloud limits.
const (
	MaxFallbackPoints     = 20000
	DefaultFallbackPoints = 2000

	FallbackRadiusMin = 0.8
	FallbackRadiusMax = 1.0
)

// Fallback color ranges, inclusive.
const (
	FallbackRedMin, FallbackRedMax     = 100, 255
	FallbackGreenMin, FallbackGreenMax = 150, 255
	FallbackBlueMin, FallbackBlueMax   = 200, 255
)

// Generate returns a stand-in cloud of min(n, MaxFallbackPoints) points
// spread uniformly over a spherical shell with random pastel colors. It
// never fails; n <= 0 yields an empty cloud. A nil rng is seeded from the
// clock.
func Generate(n int, rng *rand.Rand) *Cloud {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>7|1))
	}
	n = min(max(n, 0), MaxFallbackPoints)

	cloud := &Cloud{
		Name:       "fallback",
		Format:     FormatGenerated,
		Declared:   n,
		Properties: []string{"x", "y", "z", "red", "green", "blue"},
		Vertices:   make([]Vertex, n),
	}
	for i := range cloud.Vertices {
		theta := 2 * math.Pi * rng.Float64()
		phi := math.Acos(2*rng.Float64() - 1)
		r := FallbackRadiusMin + (FallbackRadiusMax-FallbackRadiusMin)*rng.Float64()

		cloud.Vertices[i] = Vertex{
			Position: math3d.V3(
				r*math.Sin(phi)*math.Cos(theta),
				r*math.Sin(phi)*math.Sin(theta),
				r*math.Cos(phi),
			),
			Color: Explicit(
				uint8(FallbackRedMin+rng.IntN(FallbackRedMax-FallbackRedMin+1)),
				uint8(FallbackGreenMin+rng.IntN(FallbackGreenMax-FallbackGreenMin+1)),
				uint8(FallbackBlueMin+rng.IntN(FallbackBlueMax-FallbackBlueMin+1)),
			),
		}
	}
	return cloud
}
