package volume

import (
	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
)

// Stats counts the commands a recorder issued.
type Stats struct {
	Binds     int
	Draws     int
	Subpasses int
}

// Recorder issues draws for scene and volume passes. The pipeline bound on
// the command buffer is passed in and returned by every call rather than
// stored, so each frame starts from a known state.
type Recorder struct {
	set       *pipeline.Set
	cullFront bool
	stats     Stats
}

// NewRecorder creates a recorder over a pipeline set. cullFront selects
// front face culling for single sided materials in shadow map draws.
func NewRecorder(set *pipeline.Set, cullFront bool) *Recorder {
	return &Recorder{set: set, cullFront: cullFront}
}

// Set returns the pipeline set the recorder draws with.
func (r *Recorder) Set() *pipeline.Set { return r.set }

// SetCullFront changes the shadow map culling toggle.
func (r *Recorder) SetCullFront(on bool) { r.cullFront = on }

// Stats returns the counters since the last ResetStats.
func (r *Recorder) Stats() Stats { return r.stats }

// ResetStats zeroes the counters.
func (r *Recorder) ResetStats() { r.stats = Stats{} }

// bind switches to s unless it is already bound and returns the new bound state.
func (r *Recorder) bind(cmd CommandBuffer, bound, s *pipeline.State) *pipeline.State {
	if bound == s {
		return bound
	}
	cmd.BindPipeline(s)
	r.stats.Binds++
	return s
}

// Scene draws every group of every item with the scene pipeline for t,
// combining base with each group's material flags.
func (r *Recorder) Scene(cmd CommandBuffer, list *DrawList, base pipeline.Flags, t pipeline.DrawType, bound *pipeline.State) *pipeline.State {
	for _, item := range list.Items {
		for _, g := range item.Mesh.Groups() {
			flags := pipeline.MaterialFlags(base, list.Material(g.MaterialID), t, r.cullFront)
			bound = r.bind(cmd, bound, r.set.Scene(t, flags))
			cmd.Draw(Draw{
				Mesh:      item.Mesh,
				Group:     g,
				Geometry:  Triangles,
				Transform: item.Transform,
				Material:  g.MaterialID,
				Node:      item.Node,
			})
			r.stats.Draws++
		}
	}
	return bound
}

// Volumes runs the counting subpasses in order. Every subpass binds its
// pipeline and then draws the complete draw list.
func (r *Recorder) Volumes(cmd CommandBuffer, list *DrawList, passes []Subpass, bound *pipeline.State) *pipeline.State {
	for _, sp := range passes {
		bound = r.bind(cmd, bound, r.set.Volume(sp.Kind))
		r.stats.Subpasses++
		bound = r.geometry(cmd, list, sp.Geometry, bound)
	}
	return bound
}

// SilhouetteOverlay draws the silhouette edges of light 0 as lines.
func (r *Recorder) SilhouetteOverlay(cmd CommandBuffer, list *DrawList, bound *pipeline.State) *pipeline.State {
	bound = r.bind(cmd, bound, r.set.SilhouetteDebug())
	return r.geometry(cmd, list, Edges, bound)
}

func (r *Recorder) geometry(cmd CommandBuffer, list *DrawList, geom Geometry, bound *pipeline.State) *pipeline.State {
	for _, item := range list.Items {
		for _, g := range item.Mesh.Groups() {
			if geom == Edges && g.EdgeCount == 0 {
				continue
			}
			cmd.Draw(Draw{
				Mesh:      item.Mesh,
				Group:     g,
				Geometry:  geom,
				Transform: item.Transform,
				Material:  g.MaterialID,
				Node:      item.Node,
			})
			r.stats.Draws++
		}
	}
	return bound
}
