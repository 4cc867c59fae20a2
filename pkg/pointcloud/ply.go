package pointcloud

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const headerEnd = "end_header"

// ErrNoHeaderEnd is returned by ReadHeader when the input ends before the
// end_header line.
var ErrNoHeaderEnd = errors.New("ply: missing end_header")

// FormatError reports PLY input that cannot be decoded.
type FormatError struct {
	Msg string
	Err error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return "ply: " + e.Msg + ": " + e.Err.Error()
	}
	return "ply: " + e.Msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// Property is one property declaration inside an element.
type Property struct {
	Name      string
	Type      string
	List      bool
	CountType string // list length type, only set for list properties
}

// Element is one element declaration (vertex, face, ...).
type Element struct {
	Name       string
	Count      int
	Properties []Property
}

// Index returns the position of the named property, or -1.
func (e Element) Index(name string) int {
	for i, p := range e.Properties {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Header is a parsed PLY header.
type Header struct {
	Format   Format
	Version  string
	Comments []string
	Elements []Element

	// declared is the last "element vertex N" count.
	declared int
	// tokens holds the third token of every property line, in order.
	tokens []string
}

// VertexCount returns the declared number of vertices.
func (h Header) VertexCount() int { return h.declared }

// PropertyNames returns the third token of every property line in
// declaration order.
func (h Header) PropertyNames() []string { return h.tokens }

// Vertex returns the vertex element declaration.
func (h Header) Vertex() (Element, bool) {
	for _, e := range h.Elements {
		if e.Name == "vertex" {
			return e, true
		}
	}
	return Element{}, false
}

// HasColor reports whether the vertex element declares red, green and blue.
func (h Header) HasColor() bool {
	v, ok := h.Vertex()
	if !ok {
		return false
	}
	_, _, _, ok = colorIndices(v)
	return ok
}

// HasNormals reports whether the vertex element declares nx, ny and nz.
func (h Header) HasNormals() bool {
	v, ok := h.Vertex()
	return ok && v.Index("nx") >= 0 && v.Index("ny") >= 0 && v.Index("nz") >= 0
}

// apply folds one header line into h. Unparseable counts are read as 0.
func (h *Header) apply(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "format":
		if len(fields) > 1 {
			h.Format = Format(fields[1])
		}
		if len(fields) > 2 {
			h.Version = fields[2]
		}
	case "comment", "obj_info":
		h.Comments = append(h.Comments, strings.TrimSpace(strings.TrimPrefix(line, fields[0])))
	case "element":
		var e Element
		if len(fields) > 1 {
			e.Name = fields[1]
		}
		if len(fields) > 2 {
			e.Count, _ = strconv.Atoi(fields[2])
		}
		if e.Name == "vertex" {
			h.declared = e.Count
		}
		h.Elements = append(h.Elements, e)
	case "property":
		if len(fields) > 2 {
			h.tokens = append(h.tokens, fields[2])
		}
		if len(h.Elements) == 0 {
			return
		}
		var p Property
		if len(fields) > 4 && fields[1] == "list" {
			p = Property{Name: fields[4], Type: fields[3], List: true, CountType: fields[2]}
		} else if len(fields) > 2 {
			p = Property{Name: fields[2], Type: fields[1]}
		} else {
			return
		}
		last := &h.Elements[len(h.Elements)-1]
		last.Properties = append(last.Properties, p)
	}
}

// Parse decodes the text of an ASCII PLY file.
//
// It never fails: a missing end_header yields an empty cloud, data lines
// with fewer than three values are skipped, and non-numeric tokens become
// NaN. At most Declared data lines are consumed.
func Parse(text string) *Cloud {
	lines := strings.Split(text, "\n")

	var h Header
	body := -1
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == headerEnd {
			body = i + 1
			break
		}
		h.apply(line)
	}

	cloud := &Cloud{
		Format:     FormatASCII,
		Declared:   h.declared,
		Properties: h.tokens,
	}
	if body < 0 {
		return cloud
	}

	end := min(body+max(h.declared, 0), len(lines))
	cloud.Vertices = make([]Vertex, 0, end-body)
	for _, line := range lines[body:end] {
		if v, ok := parseVertexLine(line); ok {
			cloud.Vertices = append(cloud.Vertices, v)
		}
	}
	return cloud
}

// parseVertexLine maps columns 0-2 to position and 3-5 to color.
func parseVertexLine(line string) (Vertex, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Vertex{}, false
	}
	n := min(len(fields), 6)
	var vals [6]float64
	for i := range n {
		vals[i] = parseNumber(fields[i])
	}

	v := Vertex{}
	v.Position.X, v.Position.Y, v.Position.Z = vals[0], vals[1], vals[2]
	if n == 6 {
		v.Color = colorFromChannels(vals[3], vals[4], vals[5])
	}
	return v, true
}

func parseNumber(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ReadHeader reads a PLY header up to and including end_header.
func ReadHeader(r io.Reader) (Header, error) {
	return readHeader(bufio.NewReader(r))
}

// readHeader leaves br positioned at the first byte after end_header.
func readHeader(br *bufio.Reader) (Header, error) {
	var h Header
	for {
		raw, err := br.ReadString('\n')
		if raw != "" {
			line := strings.TrimSpace(raw)
			if line == headerEnd {
				return h, nil
			}
			h.apply(line)
		}
		if err == io.EOF {
			return h, ErrNoHeaderEnd
		}
		if err != nil {
			return h, fmt.Errorf("read header: %w", err)
		}
	}
}

// Decode reads a complete PLY stream, ASCII or binary.
//
// ASCII input follows Parse exactly. Binary input is decoded with the
// declared property types; a short body yields a truncated cloud.
func Decode(r io.Reader) (*Cloud, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read ply: %w", err)
	}

	br := bufio.NewReader(bytes.NewReader(data))
	h, err := readHeader(br)
	switch {
	case errors.Is(err, ErrNoHeaderEnd):
		return Parse(string(data)), nil
	case err != nil:
		return nil, err
	}

	switch h.Format {
	case "", FormatASCII:
		return Parse(string(data)), nil
	case FormatBinaryLE, FormatBinaryBE:
		return decodeBinary(h, br)
	default:
		return nil, &FormatError{Msg: fmt.Sprintf("unsupported format %q", h.Format)}
	}
}
