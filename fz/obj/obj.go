// Package obj parses the wireframe subset of Wavefront OBJ used for
// track and ship art: vertex lines with optional color, and line
// elements. Faces and other statements are ignored.
package obj

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fzracing/fz/common"
)

// ParseLines reads OBJ text into a mesh. Vertex lines may carry three
// extra floats, read as an RGB color; line elements reference vertices
// one-indexed.
func ParseLines(text string) (common.Mesh, error) {
	var m common.Mesh

	for lineNo, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "v":
			pos := [3]float32{}
			uvw := [3]float32{1, 1, 1}
			if len(fields) < 4 {
				return m, fmt.Errorf("line %d: vertex needs 3 coordinates", lineNo+1)
			}
			for i := 0; i < 3; i++ {
				v, err := strconv.ParseFloat(fields[1+i], 32)
				if err != nil {
					return m, fmt.Errorf("line %d: invalid float %q", lineNo+1, fields[1+i])
				}
				pos[i] = float32(v)
			}
			for i := 0; i < 3 && 4+i < len(fields); i++ {
				v, err := strconv.ParseFloat(fields[4+i], 32)
				if err != nil {
					return m, fmt.Errorf("line %d: invalid float %q", lineNo+1, fields[4+i])
				}
				uvw[i] = float32(v)
			}
			m.Vertices = append(m.Vertices, common.Vertex{Pos: pos, UVW: uvw})

		case "l":
			if len(fields) < 3 {
				return m, fmt.Errorf("line %d: line element needs 2 indices", lineNo+1)
			}
			for _, f := range fields[1:3] {
				idx, err := strconv.Atoi(f)
				if err != nil {
					return m, fmt.Errorf("line %d: invalid index %q", lineNo+1, f)
				}
				// OBJ indices are one-based.
				if idx < 1 || idx > len(m.Vertices) {
					return m, fmt.Errorf("line %d: index %d out of range", lineNo+1, idx)
				}
				m.Indices = append(m.Indices, uint32(idx-1))
			}
		}
	}

	return m, nil
}
