package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
	"github.com/Faultbox/stencil-shadows/internal/engine/volume"
)

// DrawList returns one item per mesh node in node order. uploaded holds
// the backend mesh of each scene mesh.
func (s *Scene) DrawList(uploaded []volume.Mesh) (*volume.DrawList, error) {
	if len(uploaded) != len(s.Meshes) {
		return nil, fmt.Errorf("scene has %d meshes, %d uploaded", len(s.Meshes), len(uploaded))
	}
	list := &volume.DrawList{Materials: s.PipelineMaterials()}
	s.Refresh(list, uploaded)
	return list, nil
}

// Refresh rebuilds the items of list from the current world transforms,
// reusing its storage.
func (s *Scene) Refresh(list *volume.DrawList, uploaded []volume.Mesh) {
	list.Items = list.Items[:0]
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if n.Mesh < 0 || uploaded[n.Mesh] == nil {
			continue
		}
		list.Items = append(list.Items, volume.Item{
			Mesh:      uploaded[n.Mesh],
			Transform: n.world,
			Node:      i,
		})
	}
}

// PipelineMaterials returns the pipeline view of every material.
func (s *Scene) PipelineMaterials() []pipeline.Material {
	out := make([]pipeline.Material, len(s.Materials))
	for i, m := range s.Materials {
		out[i] = m.Pipeline
	}
	return out
}

// Palette returns the base colour of every material.
func (s *Scene) Palette() []mgl32.Vec4 {
	out := make([]mgl32.Vec4, len(s.Materials))
	for i, m := range s.Materials {
		out[i] = m.BaseColor
	}
	return out
}
