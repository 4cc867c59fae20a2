package pointcloud

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestGenerateCount(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tests := []struct {
		requested int
		want      int
	}{
		{500, 500},
		{0, 0},
		{-3, 0},
		{MaxFallbackPoints + 1, MaxFallbackPoints},
	}
	for _, tc := range tests {
		if got := Generate(tc.requested, rng).Len(); got != tc.want {
			t.Errorf("Generate(%d) = %d points, want %d", tc.requested, got, tc.want)
		}
	}
}

func TestGenerateRanges(t *testing.T) {
	cloud := Generate(500, rand.New(rand.NewPCG(7, 11)))
	if cloud.Len() != 500 {
		t.Fatalf("Len = %d, want 500", cloud.Len())
	}

	for i, v := range cloud.Vertices {
		if !v.Position.IsFinite() {
			t.Fatalf("vertex %d not finite: %v", i, v.Position)
		}
		r := v.Position.Len()
		if r < FallbackRadiusMin-1e-9 || r > FallbackRadiusMax+1e-9 {
			t.Errorf("vertex %d radius %v outside shell", i, r)
		}
		c := v.Color
		if !c.IsExplicit() {
			t.Fatalf("vertex %d has no color", i)
		}
		if c.R < FallbackRedMin || c.G < FallbackGreenMin || c.B < FallbackBlueMin {
			t.Errorf("vertex %d color %v below range", i, c)
		}
	}
}

func TestGenerateCoversSphere(t *testing.T) {
	cloud := Generate(2000, rand.New(rand.NewPCG(3, 5)))
	var octants [8]int
	for _, v := range cloud.Vertices {
		idx := 0
		if v.Position.X > 0 {
			idx |= 1
		}
		if v.Position.Y > 0 {
			idx |= 2
		}
		if v.Position.Z > 0 {
			idx |= 4
		}
		octants[idx]++
	}
	for i, n := range octants {
		// Uniform sampling puts ~250 in each; allow generous slack.
		if math.Abs(float64(n)-250) > 100 {
			t.Errorf("octant %d holds %d points", i, n)
		}
	}
}

func TestGenerateNilRand(t *testing.T) {
	if got := Generate(10, nil).Len(); got != 10 {
		t.Errorf("Len = %d, want 10", got)
	}
}
