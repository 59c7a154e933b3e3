// Package shaders provides embedded GLSL shader sources.
//
// Files carry no #version line; the accessors prepend it. Geometry stages
// are assembled from a primitive layout, the shared extrusion helpers and
// the stage body.
package shaders

import _ "embed"

// Version is the GLSL version line of every stage.
const Version = "#version 410 core\n"

//go:embed scene.vert
var sceneVert string

//go:embed scene.frag
var sceneFrag string

//go:embed depth.vert
var depthVert string

//go:embed depth.frag
var depthFrag string

//go:embed empty.frag
var emptyFrag string

//go:embed overlay.frag
var overlayFrag string

//go:embed extrude.vert
var extrudeVert string

//go:embed extrude.glsl
var extrude string

//go:embed volume.geom
var volumeGeom string

//go:embed silhouette.geom
var silhouetteGeom string

//go:embed silhouette_lines.geom
var silhouetteLinesGeom string

const (
	layoutTriangles = "layout (triangles) in;\n" +
		"layout (triangle_strip, max_vertices = 24) out;\n"
	layoutAdjacency = "layout (triangles_adjacency) in;\n" +
		"layout (triangle_strip, max_vertices = 6) out;\n"
	layoutAdjacencyLines = "layout (triangles_adjacency) in;\n" +
		"layout (line_strip, max_vertices = 2) out;\n"
)

// SceneVertex is the vertex shader of lit scene draws.
func SceneVertex() string { return Version + sceneVert }

// SceneFragment shades every scene output mode.
func SceneFragment() string { return Version + sceneFrag }

// DepthVertex is the vertex shader of shadow map draws.
func DepthVertex() string { return Version + depthVert }

// DepthFragment writes shadow map depth with the clamped depth bias.
func DepthFragment() string { return Version + depthFrag }

// EmptyFragment writes nothing; depth and stencil come from fixed function state.
func EmptyFragment() string { return Version + emptyFrag }

// OverlayFragment writes a solid colour.
func OverlayFragment() string { return Version + overlayFrag }

// ExtrudeVertex passes world space vertices to the geometry stages.
func ExtrudeVertex() string { return Version + extrudeVert }

// VolumeGeometry expands light facing triangles into caps and sides.
func VolumeGeometry() string { return Version + layoutTriangles + extrude + volumeGeom }

// SilhouetteGeometry extrudes silhouette edges of adjacency primitives.
func SilhouetteGeometry() string { return Version + layoutAdjacency + extrude + silhouetteGeom }

// SilhouetteLinesGeometry emits silhouette edges as lines.
func SilhouetteLinesGeometry() string {
	return Version + layoutAdjacencyLines + extrude + silhouetteLinesGeom
}
