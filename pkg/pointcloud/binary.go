package pointcloud

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/taigrr/plyview/pkg/math3d"
)

var scalarSizes = map[string]int{
	"char": 1, "int8": 1,
	"uchar": 1, "uint8": 1,
	"short": 2, "int16": 2,
	"ushort": 2, "uint16": 2,
	"int": 4, "int32": 4,
	"uint": 4, "uint32": 4,
	"float": 4, "float32": 4,
	"double": 8, "float64": 8,
}

func isFloatType(typ string) bool {
	switch typ {
	case "float", "float32", "double", "float64":
		return true
	}
	return false
}

// colorIndices finds the red, green and blue columns of a vertex element.
func colorIndices(e Element) (r, g, b int, ok bool) {
	for _, names := range [][3]string{
		{"red", "green", "blue"},
		{"r", "g", "b"},
		{"diffuse_red", "diffuse_green", "diffuse_blue"},
	} {
		r, g, b = e.Index(names[0]), e.Index(names[1]), e.Index(names[2])
		if r >= 0 && g >= 0 && b >= 0 {
			return r, g, b, true
		}
	}
	return -1, -1, -1, false
}

type scalarReader struct {
	r     io.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (s *scalarReader) read(typ string) (float64, error) {
	n := scalarSizes[typ]
	b := s.buf[:n]
	if _, err := io.ReadFull(s.r, b); err != nil {
		return 0, err
	}
	switch typ {
	case "char", "int8":
		return float64(int8(b[0])), nil
	case "uchar", "uint8":
		return float64(b[0]), nil
	case "short", "int16":
		return float64(int16(s.order.Uint16(b))), nil
	case "ushort", "uint16":
		return float64(s.order.Uint16(b)), nil
	case "int", "int32":
		return float64(int32(s.order.Uint32(b))), nil
	case "uint", "uint32":
		return float64(s.order.Uint32(b)), nil
	case "float", "float32":
		return float64(math.Float32frombits(s.order.Uint32(b))), nil
	default:
		return math.Float64frombits(s.order.Uint64(b)), nil
	}
}

// record reads one element record. List properties are consumed and
// reported as NaN.
func (s *scalarReader) record(e Element, vals []float64) error {
	for i, p := range e.Properties {
		if !p.List {
			v, err := s.read(p.Type)
			if err != nil {
				return err
			}
			vals[i] = v
			continue
		}
		count, err := s.read(p.CountType)
		if err != nil {
			return err
		}
		for range int(count) {
			if _, err := s.read(p.Type); err != nil {
				return err
			}
		}
		vals[i] = math.NaN()
	}
	return nil
}

func checkTypes(e Element) error {
	for _, p := range e.Properties {
		if _, ok := scalarSizes[p.Type]; !ok {
			return &FormatError{Msg: fmt.Sprintf("element %s: property %s has unknown type %q", e.Name, p.Name, p.Type)}
		}
		if p.List {
			if _, ok := scalarSizes[p.CountType]; !ok {
				return &FormatError{Msg: fmt.Sprintf("element %s: list %s has unknown count type %q", e.Name, p.Name, p.CountType)}
			}
		}
	}
	return nil
}

func truncated(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// decodeBinary reads the body of a binary PLY file from r. Elements
// declared before the vertex element are skipped; elements after it are
// never read.
func decodeBinary(h Header, r io.Reader) (*Cloud, error) {
	s := &scalarReader{r: r, order: binary.LittleEndian}
	if h.Format == FormatBinaryBE {
		s.order = binary.BigEndian
	}

	cloud := &Cloud{
		Format:     h.Format,
		Declared:   h.declared,
		Properties: h.tokens,
	}

	for _, e := range h.Elements {
		if err := checkTypes(e); err != nil {
			return nil, err
		}
		vals := make([]float64, len(e.Properties))

		if e.Name != "vertex" {
			for range e.Count {
				if err := s.record(e, vals); err != nil {
					if truncated(err) {
						return cloud, nil
					}
					return nil, fmt.Errorf("skip element %s: %w", e.Name, err)
				}
			}
			continue
		}

		xi, yi, zi := e.Index("x"), e.Index("y"), e.Index("z")
		if xi < 0 || yi < 0 || zi < 0 {
			return nil, &FormatError{Msg: "vertex element lacks x, y or z"}
		}
		ri, gi, bi, hasColor := colorIndices(e)
		colorScale := 1.0
		if hasColor && isFloatType(e.Properties[ri].Type) {
			colorScale = 255
		}

		cloud.Vertices = make([]Vertex, 0, min(max(e.Count, 0), 1<<20))
		for range e.Count {
			if err := s.record(e, vals); err != nil {
				if truncated(err) {
					return cloud, nil
				}
				return nil, fmt.Errorf("read vertex: %w", err)
			}
			v := Vertex{Position: math3d.V3(vals[xi], vals[yi], vals[zi])}
			if hasColor {
				v.Color = colorFromChannels(vals[ri]*colorScale, vals[gi]*colorScale, vals[bi]*colorScale)
			}
			cloud.Vertices = append(cloud.Vertices, v)
		}
		return cloud, nil
	}
	return cloud, nil
}
