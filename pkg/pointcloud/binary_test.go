package pointcloud

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strconv"
	"testing"

	"github.com/taigrr/plyview/pkg/math3d"
)

type binVertex struct {
	X, Y, Z          float32
	Red, Green, Blue uint8
}

func binaryPLY(t *testing.T, order binary.ByteOrder, format string, declared int, verts []binVertex, extra []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("ply\nformat " + format + " 1.0\n")
	// A face element ahead of the vertices exercises list skipping.
	buf.WriteString("element face 1\nproperty list uchar int vertex_indices\n")
	buf.WriteString("element vertex ")
	buf.WriteString(strconv.Itoa(declared))
	buf.WriteString("\nproperty float x\nproperty float y\nproperty float z\n")
	buf.WriteString("property uchar red\nproperty uchar green\nproperty uchar blue\nend_header\n")

	buf.WriteByte(3)
	for _, idx := range []int32{0, 1, 2} {
		if err := binary.Write(&buf, order, idx); err != nil {
			t.Fatal(err)
		}
	}
	for _, v := range verts {
		if err := binary.Write(&buf, order, v); err != nil {
			t.Fatal(err)
		}
	}
	buf.Write(extra)
	return buf.Bytes()
}

func TestDecodeBinary(t *testing.T) {
	verts := []binVertex{
		{1, 2, 3, 255, 0, 0},
		{-4, 5.5, 6, 0, 128, 255},
	}

	tests := []struct {
		name   string
		order  binary.ByteOrder
		format string
	}{
		{"little endian", binary.LittleEndian, "binary_little_endian"},
		{"big endian", binary.BigEndian, "binary_big_endian"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := binaryPLY(t, tc.order, tc.format, len(verts), verts, nil)
			cloud, err := Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if string(cloud.Format) != tc.format {
				t.Errorf("Format = %q", cloud.Format)
			}
			if cloud.Len() != 2 {
				t.Fatalf("Len = %d, want 2", cloud.Len())
			}
			if got := cloud.Vertices[1].Position; got != math3d.V3(-4, 5.5, 6) {
				t.Errorf("vertex 1 = %v", got)
			}
			if got := cloud.Vertices[1].Color; got != Explicit(0, 128, 255) {
				t.Errorf("vertex 1 color = %v", got)
			}
		})
	}
}

func TestDecodeBinaryTruncated(t *testing.T) {
	verts := []binVertex{{1, 2, 3, 1, 2, 3}}
	// Declares five vertices, carries one and a half.
	data := binaryPLY(t, binary.LittleEndian, "binary_little_endian", 5, verts, []byte{0, 0, 0x80})
	cloud, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cloud.Len() != 1 || cloud.Declared != 5 {
		t.Errorf("Len = %d, Declared = %d; want 1, 5", cloud.Len(), cloud.Declared)
	}
}

func TestDecodeBinaryUnknownType(t *testing.T) {
	data := []byte("ply\nformat binary_little_endian 1.0\nelement vertex 1\nproperty quad x\nend_header\n")
	_, err := Decode(bytes.NewReader(data))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FormatError", err)
	}
}

func TestDecodeBinaryMissingAxis(t *testing.T) {
	data := []byte("ply\nformat binary_little_endian 1.0\nelement vertex 1\nproperty float x\nproperty float y\nend_header\n")
	_, err := Decode(bytes.NewReader(data))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FormatError", err)
	}
}

func TestDecodeBinaryFloatColor(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("ply\nformat binary_little_endian 1.0\nelement vertex 1\n")
	buf.WriteString("property double x\nproperty double y\nproperty double z\n")
	buf.WriteString("property float r\nproperty float g\nproperty float b\nend_header\n")
	for _, f := range []float64{1, 2, 3} {
		_ = binary.Write(&buf, binary.LittleEndian, f)
	}
	for _, f := range []float32{1, 0.5, 0} {
		_ = binary.Write(&buf, binary.LittleEndian, f)
	}

	cloud, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cloud.Len() != 1 {
		t.Fatalf("Len = %d, want 1", cloud.Len())
	}
	if got := cloud.Vertices[0].Color; got != Explicit(255, 128, 0) {
		t.Errorf("color = %v, want rgb(255, 128, 0)", got)
	}
}
