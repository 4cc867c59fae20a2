package pointcloud

import (
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/taigrr/plyview/pkg/math3d"
)

// LoadGLB loads every primitive of a glTF/GLB file as points. POSITION
// supplies geometry and COLOR_0, when present, supplies vertex colors.
// Faces are ignored.
func LoadGLB(path string) (*Cloud, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	cloud, err := cloudFromDocument(doc)
	if err != nil {
		return nil, err
	}
	cloud.Name = filepath.Base(path)
	return cloud, nil
}

func cloudFromDocument(doc *gltf.Document) (*Cloud, error) {
	cloud := &Cloud{
		Format:     FormatGLB,
		Properties: []string{"x", "y", "z"},
	}
	hasColor := false

	for _, m := range doc.Meshes {
		for _, prim := range m.Primitives {
			posIdx, ok := prim.Attributes[gltf.POSITION]
			if !ok {
				continue
			}
			positions, err := readVec3Accessor(doc, posIdx)
			if err != nil {
				return nil, fmt.Errorf("mesh %q: read positions: %w", m.Name, err)
			}

			var colors []Color
			if colIdx, ok := prim.Attributes[gltf.COLOR_0]; ok {
				colors, err = readColorAccessor(doc, colIdx)
				if err != nil {
					return nil, fmt.Errorf("mesh %q: read colors: %w", m.Name, err)
				}
				hasColor = true
			}

			for i, p := range positions {
				v := Vertex{Position: p}
				if i < len(colors) {
					v.Color = colors[i]
				}
				cloud.Vertices = append(cloud.Vertices, v)
			}
		}
	}

	if hasColor {
		cloud.Properties = append(cloud.Properties, "red", "green", "blue")
	}
	cloud.Declared = len(cloud.Vertices)
	return cloud, nil
}

// accessorBytes returns the embedded buffer, start offset and stride.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor, elemSize int) ([]byte, int, int, error) {
	if accessor.BufferView == nil {
		return nil, 0, 0, fmt.Errorf("accessor has no buffer view")
	}
	bufferView := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[bufferView.Buffer]
	if buffer.URI != "" {
		return nil, 0, 0, fmt.Errorf("external buffers not supported")
	}
	if buffer.Data == nil {
		return nil, 0, 0, fmt.Errorf("buffer has no data")
	}

	start := bufferView.ByteOffset + accessor.ByteOffset
	stride := bufferView.ByteStride
	if stride == 0 {
		stride = elemSize
	}
	if accessor.Count > 0 {
		if last := start + (accessor.Count-1)*stride + elemSize; last > len(buffer.Data) {
			return nil, 0, 0, fmt.Errorf("accessor overruns buffer (%d > %d)", last, len(buffer.Data))
		}
	}
	return buffer.Data, start, stride, nil
}

func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 || accessor.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("expected float VEC3, got %v/%v", accessor.Type, accessor.ComponentType)
	}
	data, start, stride, err := accessorBytes(doc, accessor, 12)
	if err != nil {
		return nil, err
	}

	result := make([]math3d.Vec3, accessor.Count)
	for i := range accessor.Count {
		off := start + i*stride
		result[i] = math3d.V3(
			float64(readFloat32(data[off:])),
			float64(readFloat32(data[off+4:])),
			float64(readFloat32(data[off+8:])),
		)
	}
	return result, nil
}

// readColorAccessor reads COLOR_0 as VEC3 or VEC4 (alpha dropped) in float,
// normalized ubyte or normalized ushort components.
func readColorAccessor(doc *gltf.Document, accessorIdx int) ([]Color, error) {
	accessor := doc.Accessors[accessorIdx]

	comps := 3
	switch accessor.Type {
	case gltf.AccessorVec3:
	case gltf.AccessorVec4:
		comps = 4
	default:
		return nil, fmt.Errorf("expected VEC3 or VEC4, got %v", accessor.Type)
	}

	var size int
	var read func(b []byte) float64
	switch accessor.ComponentType {
	case gltf.ComponentFloat:
		size = 4
		read = func(b []byte) float64 { return float64(readFloat32(b)) }
	case gltf.ComponentUbyte:
		size = 1
		read = func(b []byte) float64 { return float64(b[0]) / 255 }
	case gltf.ComponentUshort:
		size = 2
		read = func(b []byte) float64 { return float64(binary.LittleEndian.Uint16(b)) / 65535 }
	default:
		return nil, fmt.Errorf("unsupported color component type %v", accessor.ComponentType)
	}

	data, start, stride, err := accessorBytes(doc, accessor, comps*size)
	if err != nil {
		return nil, err
	}

	result := make([]Color, accessor.Count)
	for i := range accessor.Count {
		off := start + i*stride
		result[i] = colorFromChannels(
			read(data[off:])*255,
			read(data[off+size:])*255,
			read(data[off+2*size:])*255,
		)
	}
	return result, nil
}

// readFloat32 reads a little-endian float32.
func readFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
