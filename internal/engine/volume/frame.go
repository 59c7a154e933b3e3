package volume

import (
	"go.uber.org/zap"

	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
)

// ShadowMapper records the cube depth maps of the lights before the main
// pass of a shadow mapped frame.
type ShadowMapper interface {
	RecordShadowMaps(cmd CommandBuffer, rec *Recorder, frame *Frame, list *DrawList) error
}

// Options control what a frame records.
type Options struct {
	Technique    Technique
	DebugOverlay bool
	Clear        ClearValues
}

// FrameRecorder sequences the passes of a whole frame.
type FrameRecorder struct {
	rec    *Recorder
	mapper ShadowMapper
	log    *zap.Logger
	method Method
	passes []Subpass
}

// NewFrameRecorder creates a frame recorder using method for volume frames.
// mapper may be nil when shadow mapping is not available.
func NewFrameRecorder(rec *Recorder, mapper ShadowMapper, method Method, log *zap.Logger) *FrameRecorder {
	if log == nil {
		log = zap.NewNop()
	}
	f := &FrameRecorder{rec: rec, mapper: mapper, log: log}
	f.SetMethod(method)
	return f
}

// Method returns the current volume method.
func (f *FrameRecorder) Method() Method { return f.method }

// Passes returns the subpasses derived for the current method.
func (f *FrameRecorder) Passes() []Subpass { return f.passes }

// Recorder returns the underlying draw recorder.
func (f *FrameRecorder) Recorder() *Recorder { return f.rec }

// SetMethod switches the volume method and derives its pass table again.
func (f *FrameRecorder) SetMethod(m Method) {
	f.method = m
	f.passes = Passes(m)
	kinds := make([]string, len(f.passes))
	for i, sp := range f.passes {
		kinds[i] = sp.Kind.String()
	}
	f.log.Info("shadow volume method",
		zap.String("method", m.Title()),
		zap.Strings("subpasses", kinds))
}

// Record records one frame: clear, then the passes of the technique.
//
//	none:    full scene
//	sm:      cube maps, then the shadow mapped scene
//	volumes: ambient scene, counting subpasses, stencil tested diffuse,
//	         optional silhouette overlay
func (f *FrameRecorder) Record(cmd CommandBuffer, frame *Frame, list *DrawList, opts Options) (Stats, error) {
	f.rec.ResetStats()
	var bound *pipeline.State

	tech := opts.Technique
	if tech == TechniqueShadowMap && f.mapper == nil {
		tech = TechniqueNone
	}

	frame.ShadowMapped = false
	if tech == TechniqueShadowMap {
		if err := f.mapper.RecordShadowMaps(cmd, f.rec, frame, list); err != nil {
			return f.rec.Stats(), err
		}
		frame.ShadowMapped = true
	}

	cmd.SetFrame(frame)
	cmd.Clear(opts.Clear)

	switch tech {
	case TechniqueNone:
		f.rec.Scene(cmd, list, pipeline.Depth, pipeline.DrawFull, bound)
	case TechniqueShadowMap:
		f.rec.Scene(cmd, list, pipeline.Depth, pipeline.DrawShadowMapped, bound)
	case TechniqueVolumes:
		bound = f.rec.Scene(cmd, list, pipeline.Depth, pipeline.DrawAmbient, bound)
		if _, ok := frame.ShadowLight(); ok {
			bound = f.rec.Volumes(cmd, list, f.passes, bound)
		}
		bound = f.rec.Scene(cmd, list, 0, pipeline.DrawDiffuseStencilTested, bound)
		if opts.DebugOverlay {
			f.rec.SilhouetteOverlay(cmd, list, bound)
		}
	}
	return f.rec.Stats(), nil
}
