package pointcloud

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/taigrr/plyview/pkg/math3d"
)

func TestLoadGLBInvalidPath(t *testing.T) {
	_, err := LoadGLB("/nonexistent/path.glb")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

// pointDocument builds a one-primitive document with two float positions
// and, optionally, two ubyte RGBA colors.
func pointDocument(withColor bool) *gltf.Document {
	data := make([]byte, 0, 32)
	for _, f := range []float32{1, 2, 3, -1, -2, -3} {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(f))
	}
	attrs := map[string]int{gltf.POSITION: 0}

	doc := &gltf.Document{
		BufferViews: []*gltf.BufferView{{Buffer: 0, ByteLength: 24}},
		Accessors: []*gltf.Accessor{{
			BufferView:    gltf.Index(0),
			Count:         2,
			Type:          gltf.AccessorVec3,
			ComponentType: gltf.ComponentFloat,
		}},
	}
	if withColor {
		data = append(data, 255, 0, 0, 255, 0, 51, 255, 255)
		doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{Buffer: 0, ByteOffset: 24, ByteLength: 8})
		doc.Accessors = append(doc.Accessors, &gltf.Accessor{
			BufferView:    gltf.Index(1),
			Count:         2,
			Type:          gltf.AccessorVec4,
			ComponentType: gltf.ComponentUbyte,
			Normalized:    true,
		})
		attrs[gltf.COLOR_0] = 1
	}
	doc.Buffers = []*gltf.Buffer{{ByteLength: len(data), Data: data}}
	doc.Meshes = []*gltf.Mesh{{Name: "points", Primitives: []*gltf.Primitive{{Attributes: attrs, Mode: gltf.PrimitivePoints}}}}
	return doc
}

func TestCloudFromDocument(t *testing.T) {
	cloud, err := cloudFromDocument(pointDocument(false))
	if err != nil {
		t.Fatalf("cloudFromDocument: %v", err)
	}
	if cloud.Len() != 2 || cloud.Declared != 2 {
		t.Fatalf("Len = %d, Declared = %d", cloud.Len(), cloud.Declared)
	}
	if got := cloud.Vertices[1].Position; got != math3d.V3(-1, -2, -3) {
		t.Errorf("vertex 1 = %v", got)
	}
	if cloud.HasColor() {
		t.Error("cloud without COLOR_0 should not have color")
	}
}

func TestCloudFromDocumentColors(t *testing.T) {
	cloud, err := cloudFromDocument(pointDocument(true))
	if err != nil {
		t.Fatalf("cloudFromDocument: %v", err)
	}
	if got := cloud.Vertices[0].Color; got != Explicit(255, 0, 0) {
		t.Errorf("vertex 0 color = %v", got)
	}
	if got := cloud.Vertices[1].Color; got != Explicit(0, 51, 255) {
		t.Errorf("vertex 1 color = %v", got)
	}
	if len(cloud.Properties) != 6 {
		t.Errorf("Properties = %v", cloud.Properties)
	}
}

func TestCloudFromDocumentOverrun(t *testing.T) {
	doc := pointDocument(false)
	doc.Accessors[0].Count = 5
	if _, err := cloudFromDocument(doc); err == nil {
		t.Error("expected error for accessor past end of buffer")
	}
}
