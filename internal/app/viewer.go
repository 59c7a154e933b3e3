// Package app runs the shadow viewer: scene loading, per-frame pass
// sequencing, the interactive loop and the fixed-step test mode.
package app

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/stencil-shadows/internal/config"
	"github.com/Faultbox/stencil-shadows/internal/engine/camera"
	"github.com/Faultbox/stencil-shadows/internal/engine/lighting"
	"github.com/Faultbox/stencil-shadows/internal/engine/model"
	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
	"github.com/Faultbox/stencil-shadows/internal/engine/scene"
	"github.com/Faultbox/stencil-shadows/internal/engine/shadow"
	"github.com/Faultbox/stencil-shadows/internal/engine/topology"
	"github.com/Faultbox/stencil-shadows/internal/engine/volume"
)

// Settings is the shadowing state derived from the config.
type Settings struct {
	Technique volume.Technique
	// Method is the volume method. It stays at its last value while another
	// technique is selected.
	Method  volume.Method
	Overlay bool
	Shadow  shadow.Settings
}

// SettingsFrom derives the shadow settings of cfg.
func SettingsFrom(cfg *config.Config) (Settings, error) {
	tech, method, err := volume.ParseTechnique(cfg.Shadows.Technique)
	if err != nil {
		return Settings{}, err
	}
	if tech != volume.TechniqueVolumes {
		method = volume.SilhouetteDepthFail
	}
	return Settings{
		Technique: tech,
		Method:    method,
		Overlay:   cfg.Shadows.DebugOverlay,
		Shadow: shadow.Settings{
			Resolution:   cfg.ShadowMap.Resolution,
			BiasConstant: cfg.ShadowMap.BiasConstant,
			BiasSlope:    cfg.ShadowMap.BiasSlope,
			BiasClamp:    cfg.ShadowMap.BiasClamp,
			ZNear:        cfg.ShadowMap.ZNear,
			PCF:          cfg.ShadowMap.PCF,
			CullFront:    cfg.ShadowMap.CullFront,
		},
	}, nil
}

// Viewer owns everything a frame needs apart from the device: the scene,
// its uploaded meshes, the camera and the pass recorders.
type Viewer struct {
	cfg *config.Config
	log *zap.Logger

	Scene  *scene.Scene
	Camera *camera.FPSCamera

	meshes   []volume.Mesh
	list     *volume.DrawList
	rec      *volume.Recorder
	frames   *volume.FrameRecorder
	shadows  *shadow.Renderer
	settings Settings
	lights   []lighting.Light
}

// NewViewer indexes the scene meshes, uploads them to dev and prepares the
// recorders over set. set must be the set dev was created with.
func NewViewer(ctx context.Context, cfg *config.Config, sc *scene.Scene, dev volume.Device, set *pipeline.Set, log *zap.Logger) (*Viewer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	settings, err := SettingsFrom(cfg)
	if err != nil {
		return nil, err
	}

	bufs, err := BuildTopology(ctx, sc.Meshes)
	if err != nil {
		return nil, err
	}
	meshes := make([]volume.Mesh, len(bufs))
	for i, b := range bufs {
		st := b.Stats()
		log.Debug("mesh indexed",
			zap.String("mesh", b.Name),
			zap.Int("triangles", st.Triangles),
			zap.Int("edges", st.Edges),
			zap.Int("boundary", st.Boundary()),
			zap.Int("non_manifold", st.NonManifold()))
		if meshes[i], err = dev.Upload(b); err != nil {
			return nil, fmt.Errorf("upload mesh %q: %w", b.Name, err)
		}
	}
	list, err := sc.DrawList(meshes)
	if err != nil {
		return nil, err
	}

	shadows, err := shadow.NewRenderer(settings.Shadow, log.Named("shadow"))
	if err != nil {
		return nil, err
	}
	rec := volume.NewRecorder(set, settings.Shadow.CullFront)

	v := &Viewer{
		cfg:      cfg,
		log:      log,
		Scene:    sc,
		meshes:   meshes,
		list:     list,
		rec:      rec,
		frames:   volume.NewFrameRecorder(rec, shadows, settings.Method, log.Named("volume")),
		shadows:  shadows,
		settings: settings,
	}
	v.Camera = camera.New(vec3(cfg.Camera.Eye), vec3(cfg.Camera.Target), cfg.Camera.FOV, cfg.Camera.ZNear, cfg.Camera.ZFar)
	if !cfg.Camera.IgnoreNode && sc.CameraNode >= 0 {
		v.Camera.FromMatrix(sc.NodeTransform(sc.CameraNode))
	}
	v.lights = sceneLights(cfg, sc, v.lights)

	log.Info("viewer ready",
		zap.Int("meshes", len(meshes)),
		zap.Int("instances", len(list.Items)),
		zap.Int("lights", len(v.lights)),
		zap.String("technique", cfg.Shadows.Technique))
	return v, nil
}

// BuildTopology indexes every mesh, using one worker per CPU.
func BuildTopology(ctx context.Context, meshes []*model.Mesh) ([]*topology.Buffers[model.Vertex], error) {
	sources := make([]topology.Source[model.Vertex], len(meshes))
	for i, m := range meshes {
		sources[i] = m.TopologySource()
	}
	return topology.BuildAll(ctx, sources, runtime.NumCPU())
}

// Settings returns the active shadow settings.
func (v *Viewer) Settings() Settings { return v.settings }

// DrawList returns the instances drawn each frame.
func (v *Viewer) DrawList() *volume.DrawList { return v.list }

// Lights returns the lights of the next frame. Light 0 casts shadows.
func (v *Viewer) Lights() []lighting.Light { return v.lights }

// Step advances animations by dt seconds and refreshes everything that
// follows scene nodes. With follow set the camera tracks the camera node.
func (v *Viewer) Step(dt float32, follow bool) {
	if len(v.Scene.Animations) > 0 {
		v.Scene.Advance(dt)
	}
	if follow && v.Scene.CameraNode >= 0 {
		v.Camera.FromMatrix(v.Scene.NodeTransform(v.Scene.CameraNode))
	}
	v.Scene.Refresh(v.list, v.meshes)
	v.lights = sceneLights(v.cfg, v.Scene, v.lights)
}

// Frame builds the per-frame data for a target with the given aspect ratio.
func (v *Viewer) Frame(aspect float32) *volume.Frame {
	lights := make([]lighting.Light, len(v.lights))
	copy(lights, v.lights)
	return &volume.Frame{
		Camera: volume.Camera{
			View:       v.Camera.View(),
			Projection: v.Camera.Projection(aspect),
			Eye:        v.Camera.Eye,
		},
		Lights: lights,
	}
}

// Render records and submits one frame on dev.
func (v *Viewer) Render(dev volume.Device, aspect float32) (volume.Stats, error) {
	cmd, err := dev.Begin()
	if err != nil {
		return volume.Stats{}, err
	}
	stats, err := v.frames.Record(cmd, v.Frame(aspect), v.list, volume.Options{
		Technique:    v.settings.Technique,
		DebugOverlay: v.settings.Overlay,
		Clear:        volume.DefaultClear(),
	})
	if err != nil {
		return stats, fmt.Errorf("record frame: %w", err)
	}
	if err := dev.Submit(cmd); err != nil {
		return stats, fmt.Errorf("submit frame: %w", err)
	}
	return stats, nil
}

// Apply takes the shadow sections of cfg, as read from a reloaded file.
// A changed volume method derives its pass table again. Of the shadow map
// settings only resolution, PCF and front face culling change at runtime.
func (v *Viewer) Apply(cfg *config.Config) error {
	next, err := SettingsFrom(cfg)
	if err != nil {
		return err
	}
	prev := v.settings
	if next.Technique != volume.TechniqueVolumes {
		next.Method = prev.Method
	}
	next.Shadow.BiasConstant = prev.Shadow.BiasConstant
	next.Shadow.BiasSlope = prev.Shadow.BiasSlope
	next.Shadow.BiasClamp = prev.Shadow.BiasClamp
	next.Shadow.ZNear = prev.Shadow.ZNear

	if next.Shadow.Resolution != prev.Shadow.Resolution {
		if err := v.shadows.SetResolution(next.Shadow.Resolution); err != nil {
			return err
		}
	}
	if next.Shadow.PCF != prev.Shadow.PCF {
		v.shadows.SetPCF(next.Shadow.PCF)
	}
	if next.Shadow.CullFront != prev.Shadow.CullFront {
		v.rec.SetCullFront(next.Shadow.CullFront)
	}
	if next.Method != prev.Method {
		v.frames.SetMethod(next.Method)
	}
	if next.Technique != prev.Technique {
		v.log.Info("shadow technique", zap.String("technique", cfg.Shadows.Technique))
	}

	v.settings = next
	v.cfg.Shadows = cfg.Shadows
	v.cfg.ShadowMap.Resolution = cfg.ShadowMap.Resolution
	v.cfg.ShadowMap.PCF = cfg.ShadowMap.PCF
	v.cfg.ShadowMap.CullFront = cfg.ShadowMap.CullFront
	return nil
}

// CycleTechnique switches to the next technique in selector order.
func (v *Viewer) CycleTechnique() error {
	names := config.Techniques()
	next := names[0]
	for i, n := range names {
		if n == v.cfg.Shadows.Technique {
			next = names[(i+1)%len(names)]
			break
		}
	}
	cfg := *v.cfg
	cfg.Shadows.Technique = next
	return v.Apply(&cfg)
}

// ToggleOverlay flips the silhouette debug overlay.
func (v *Viewer) ToggleOverlay() {
	v.settings.Overlay = !v.settings.Overlay
	v.cfg.Shadows.DebugOverlay = v.settings.Overlay
}

// sceneLights returns light 0 from the config, placed at the scene's light
// node unless that is ignored, followed by the lights of the other light
// nodes up to lighting.MaxLights.
func sceneLights(cfg *config.Config, sc *scene.Scene, dst []lighting.Light) []lighting.Light {
	lc := cfg.Light
	first := lighting.Light{
		Position:  lc.Position,
		Ambient:   lc.Ambient,
		Diffuse:   lc.Diffuse,
		Range:     lc.Range,
		Intensity: lc.Intensity,
	}
	if !lc.IgnoreNode {
		if p, ok := sc.LightPosition(); ok {
			first.Position = p
		}
	}
	dst = append(dst[:0], first)

	for i, n := range sc.Nodes {
		if len(dst) == lighting.MaxLights {
			break
		}
		if n.Light < 0 || i == sc.LightNode {
			continue
		}
		pl := sc.Lights[n.Light]
		l := lighting.Light{
			Position:  sc.NodeTransform(i).Col(3).Vec3(),
			Diffuse:   pl.Color,
			Range:     pl.Range,
			Intensity: pl.Intensity,
		}
		if l.Range <= 0 {
			l.Range = lc.Range
		}
		dst = append(dst, l)
	}
	return dst
}

func vec3(v config.Vec3) mgl32.Vec3 { return mgl32.Vec3(v) }
