// Package volume records stencil shadow volumes.
//
// Each Method maps to a fixed list of counting subpasses. The recorder
// draws the whole draw list once per subpass with the subpass's pipeline,
// leaving 0 in the stencil buffer where light 0 reaches the visible surface
// and a nonzero count where it is occluded.
package volume

import (
	"fmt"

	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
)

// Method is a shadow volume counting algorithm.
type Method uint8

const (
	DepthPass Method = iota
	DepthFail
	SilhouetteDepthPass
	SilhouetteDepthFail
)

// Methods lists every method in selector order.
func Methods() []Method {
	return []Method{DepthPass, DepthFail, SilhouetteDepthPass, SilhouetteDepthFail}
}

// String returns the short selector name used on the command line.
func (m Method) String() string {
	switch m {
	case DepthPass:
		return "svdp"
	case DepthFail:
		return "svdf"
	case SilhouetteDepthPass:
		return "ssvdp"
	case SilhouetteDepthFail:
		return "ssvdf"
	}
	return fmt.Sprintf("method(%d)", uint8(m))
}

// Title returns the display name of the method.
func (m Method) Title() string {
	switch m {
	case DepthPass:
		return "Depth Pass"
	case DepthFail:
		return "Depth Fail"
	case SilhouetteDepthPass:
		return "Silhouette Depth Pass"
	case SilhouetteDepthFail:
		return "Silhouette Depth Fail"
	}
	return m.String()
}

// ParseMethod parses a short selector name.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods() {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown shadow volume method %q", s)
}

// Technique is the shadowing approach of a frame.
type Technique uint8

const (
	TechniqueNone Technique = iota
	TechniqueShadowMap
	TechniqueVolumes
)

// ParseTechnique parses a technique selector: "none", "sm" or a method name.
// The method is meaningful only for TechniqueVolumes.
func ParseTechnique(s string) (Technique, Method, error) {
	switch s {
	case "none":
		return TechniqueNone, 0, nil
	case "sm":
		return TechniqueShadowMap, 0, nil
	}
	m, err := ParseMethod(s)
	if err != nil {
		return TechniqueNone, 0, fmt.Errorf("unknown shadow technique %q", s)
	}
	return TechniqueVolumes, m, nil
}

// Geometry selects which index range of a group a draw consumes.
type Geometry uint8

const (
	// Triangles draws the triangle index list.
	Triangles Geometry = iota
	// Edges draws the edge adjacency primitives.
	Edges
)

func (g Geometry) String() string {
	if g == Edges {
		return "edges"
	}
	return "triangles"
}

// Subpass is one counting pass over the whole draw list.
type Subpass struct {
	Kind     pipeline.VolumeKind
	Geometry Geometry
}

// Passes returns the ordered subpasses of m. The slice is freshly built on
// every call.
func Passes(m Method) []Subpass {
	switch m {
	case DepthPass:
		return []Subpass{
			{pipeline.VolumeDepthPass, Triangles},
		}
	case DepthFail:
		return []Subpass{
			{pipeline.VolumeFrontCap, Triangles},
			{pipeline.VolumeSidesBackCap, Triangles},
		}
	case SilhouetteDepthPass:
		return []Subpass{
			{pipeline.VolumeDepthPassSilhouette, Edges},
		}
	case SilhouetteDepthFail:
		return []Subpass{
			{pipeline.VolumeFrontCap, Triangles},
			{pipeline.VolumeDepthFailSilhouette, Edges},
			{pipeline.VolumeBackCap, Triangles},
		}
	}
	return nil
}
