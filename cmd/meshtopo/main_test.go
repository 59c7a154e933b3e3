package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeBox saves a closed unit box and an open quad as two meshes.
func writeBox(t *testing.T) string {
	t.Helper()
	doc := gltf.NewDocument()
	box := modeler.WritePosition(doc, [][3]float32{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	})
	boxIdx := modeler.WriteIndices(doc, []uint16{
		0, 3, 2, 0, 2, 1,
		4, 5, 6, 4, 6, 7,
		0, 4, 7, 0, 7, 3,
		1, 2, 6, 1, 6, 5,
		3, 7, 6, 3, 6, 2,
		0, 1, 5, 0, 5, 4,
	})
	quad := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {0, 0, 1}, {1, 0, 1}, {1, 0, 0}})
	quadIdx := modeler.WriteIndices(doc, []uint16{0, 1, 2, 0, 2, 3})
	doc.Meshes = []*gltf.Mesh{
		{Name: "box", Primitives: []*gltf.Primitive{{Attributes: map[string]int{gltf.POSITION: box}, Indices: &boxIdx}}},
		{Name: "quad", Primitives: []*gltf.Primitive{{Attributes: map[string]int{gltf.POSITION: quad}, Indices: &quadIdx}}},
	}
	doc.Nodes = []*gltf.Node{{Mesh: index(0)}, {Mesh: index(1)}}
	doc.Scenes = []*gltf.Scene{{Nodes: []int{0, 1}}}

	path := filepath.Join(t.TempDir(), "box.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))
	return path
}

func index(i int) *int { return &i }

func TestStats(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, cmdStats(&out, []string{writeBox(t)}))

	text := out.String()
	assert.Regexp(t, `box\s+1\s+8\s+12\s+18\s+0\s+0\s+true`, text)
	assert.Regexp(t, `quad\s+1\s+4\s+2\s+5\s+4\s+0\s+false`, text)
	assert.Regexp(t, `total\s+12\s+14\s+23\s+4\s+0`, text)
}

func TestEdges(t *testing.T) {
	path := writeBox(t)

	var out bytes.Buffer
	require.NoError(t, cmdEdges(&out, []string{"-mesh", "quad", path}))
	text := out.String()
	assert.Contains(t, text, "quad group 0 (material -1): 5 edges")
	assert.NotContains(t, text, "box group")
	// The shared diagonal has one opposite vertex per side.
	assert.Regexp(t, `0-2  opposite \d \d - -`, text)

	out.Reset()
	require.NoError(t, cmdEdges(&out, []string{"-n", "1", path}))
	assert.Equal(t, 2, bytes.Count(out.Bytes(), []byte("opposite")))

	assert.Error(t, cmdEdges(&out, []string{"-mesh", "nope", path}))
	assert.Error(t, cmdEdges(&out, nil))
}

func TestRasterDemo(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"mask.png", "frame.webp"} {
		t.Run(name, func(t *testing.T) {
			out := filepath.Join(dir, name)
			args := []string{"-w", "64", "-h", "48", "-o", out}
			if name == "mask.png" {
				args = append(args, "-mask")
			} else {
				args = append(args, "-ss", "2", "-tech", "sm")
			}
			var buf bytes.Buffer
			require.NoError(t, cmdRaster(&buf, args))
			assert.Contains(t, buf.String(), "64x48")
			assert.FileExists(t, out)
		})
	}
}

func TestRasterRejectsUnknownTechnique(t *testing.T) {
	var buf bytes.Buffer
	err := cmdRaster(&buf, []string{"-tech", "raytraced", "-o", filepath.Join(t.TempDir(), "x.png")})
	assert.Error(t, err)
}
