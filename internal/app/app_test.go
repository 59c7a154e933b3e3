package app

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/stencil-shadows/internal/config"
	"github.com/Faultbox/stencil-shadows/internal/engine/model"
	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
	"github.com/Faultbox/stencil-shadows/internal/engine/scene"
	"github.com/Faultbox/stencil-shadows/internal/engine/softraster"
	"github.com/Faultbox/stencil-shadows/internal/engine/volume"
)

func smallConfig(tech string) *config.Config {
	cfg := config.Default()
	cfg.Window.Width = 96
	cfg.Window.Height = 64
	cfg.Shadows.Technique = tech
	return cfg
}

func TestSettingsFrom(t *testing.T) {
	tests := []struct {
		tech   string
		want   volume.Technique
		method volume.Method
	}{
		{config.TechNone, volume.TechniqueNone, volume.SilhouetteDepthFail},
		{config.TechShadowMap, volume.TechniqueShadowMap, volume.SilhouetteDepthFail},
		{config.TechDepthPass, volume.TechniqueVolumes, volume.DepthPass},
		{config.TechDepthFail, volume.TechniqueVolumes, volume.DepthFail},
		{config.TechSilhouetteDepthPass, volume.TechniqueVolumes, volume.SilhouetteDepthPass},
		{config.TechSilhouetteDepthFail, volume.TechniqueVolumes, volume.SilhouetteDepthFail},
	}
	for _, tt := range tests {
		t.Run(tt.tech, func(t *testing.T) {
			s, err := SettingsFrom(smallConfig(tt.tech))
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Technique)
			assert.Equal(t, tt.method, s.Method)
			assert.Equal(t, 512, s.Shadow.Resolution)
		})
	}

	_, err := SettingsFrom(smallConfig("raytraced"))
	assert.Error(t, err)
}

func newViewer(t *testing.T, cfg *config.Config, sc *scene.Scene) (*Viewer, *softraster.Device) {
	t.Helper()
	dev, err := softraster.NewDevice(cfg.Window.Width, cfg.Window.Height, nil)
	require.NoError(t, err)
	v, err := NewViewer(context.Background(), cfg, sc, dev, pipeline.NewSet(), nil)
	require.NoError(t, err)
	return v, dev
}

func TestHeadlessDemoCastsShadows(t *testing.T) {
	for _, tech := range []string{config.TechDepthPass, config.TechSilhouetteDepthFail} {
		t.Run(tech, func(t *testing.T) {
			dev, stats, err := RenderHeadless(context.Background(), smallConfig(tech), DemoScene(), nil)
			require.NoError(t, err)
			assert.Positive(t, stats.Draws)

			mask := dev.Target().StencilMask()
			shadowed := 0
			for _, p := range mask.Pix {
				if p != 0 {
					shadowed++
				}
			}
			assert.Positive(t, shadowed)
		})
	}
}

func TestHeadlessWithoutShadows(t *testing.T) {
	dev, _, err := RenderHeadless(context.Background(), smallConfig(config.TechNone), DemoScene(), nil)
	require.NoError(t, err)
	for _, p := range dev.Target().StencilMask().Pix {
		require.Zero(t, p)
	}
}

func TestApplyReload(t *testing.T) {
	cfg := smallConfig(config.TechDepthFail)
	v, _ := newViewer(t, cfg, DemoScene())
	require.Equal(t, volume.DepthFail, v.frames.Method())

	next := smallConfig(config.TechSilhouetteDepthPass)
	next.ShadowMap.Resolution = 1024
	next.ShadowMap.BiasSlope = 99
	require.NoError(t, v.Apply(next))
	assert.Equal(t, volume.SilhouetteDepthPass, v.frames.Method())
	assert.Equal(t, 1024, v.shadows.Settings().Resolution)
	assert.Equal(t, float32(4), v.Settings().Shadow.BiasSlope)

	// Leaving volumes keeps the method for when they come back.
	require.NoError(t, v.Apply(smallConfig(config.TechShadowMap)))
	assert.Equal(t, volume.TechniqueShadowMap, v.Settings().Technique)
	assert.Equal(t, volume.SilhouetteDepthPass, v.frames.Method())

	bad := smallConfig(config.TechNone)
	bad.ShadowMap.Resolution = 16
	assert.Error(t, v.Apply(bad))
	assert.Equal(t, volume.TechniqueShadowMap, v.Settings().Technique)
}

func TestCycleTechnique(t *testing.T) {
	cfg := smallConfig(config.TechNone)
	v, _ := newViewer(t, cfg, DemoScene())

	var seen []string
	for range config.Techniques() {
		require.NoError(t, v.CycleTechnique())
		seen = append(seen, cfg.Shadows.Technique)
	}
	assert.Equal(t, append(config.Techniques()[1:], config.TechNone), seen)

	v.ToggleOverlay()
	assert.True(t, v.Settings().Overlay)
	assert.True(t, cfg.Shadows.DebugOverlay)
}

func index(i int) *int { return &i }

// lightScene has a camera node and two light nodes.
func lightScene(t *testing.T) *scene.Scene {
	t.Helper()
	doc := gltf.NewDocument()
	doc.Extensions = gltf.Extensions{
		"KHR_lights_punctual": json.RawMessage(`{"lights":[{"type":"point"},{"type":"point","color":[1,0,0],"intensity":5}]}`),
	}
	doc.Nodes = []*gltf.Node{
		{Name: "key", Translation: [3]float64{0, 5, 0}, Extensions: gltf.Extensions{
			"KHR_lights_punctual": json.RawMessage(`{"light":0}`),
		}},
		{Name: "fill", Translation: [3]float64{3, 1, 0}, Extensions: gltf.Extensions{
			"KHR_lights_punctual": json.RawMessage(`{"light":1}`),
		}},
		{Name: "cam", Translation: [3]float64{0, 2, 8}, Camera: index(0)},
	}
	sc, err := scene.FromDocument(doc, model.DefaultLoadOptions())
	require.NoError(t, err)
	return sc
}

func TestSceneLights(t *testing.T) {
	sc := lightScene(t)
	cfg := config.Default()

	lights := sceneLights(cfg, sc, nil)
	require.Len(t, lights, 2)
	assert.Equal(t, [3]float32{0, 5, 0}, lights[0].Position)
	assert.Equal(t, [3]float32(cfg.Light.Diffuse), lights[0].Diffuse)
	assert.Equal(t, [3]float32{3, 1, 0}, lights[1].Position)
	assert.Equal(t, [3]float32{1, 0, 0}, lights[1].Diffuse)
	assert.Equal(t, float32(5), lights[1].Intensity)
	assert.Equal(t, cfg.Light.Range, lights[1].Range)

	cfg.Light.IgnoreNode = true
	lights = sceneLights(cfg, sc, lights)
	assert.Equal(t, [3]float32(cfg.Light.Position), lights[0].Position)
}

func TestCameraNode(t *testing.T) {
	cfg := smallConfig(config.TechNone)
	v, _ := newViewer(t, cfg, lightScene(t))
	assert.Equal(t, mgl32.Vec3{0, 2, 8}, v.Camera.Eye)

	cfg = smallConfig(config.TechNone)
	cfg.Camera.IgnoreNode = true
	v, _ = newViewer(t, cfg, lightScene(t))
	assert.Equal(t, mgl32.Vec3(cfg.Camera.Eye), v.Camera.Eye)

	// Following the node pulls a moved camera back.
	v.Camera.Eye = mgl32.Vec3{9, 9, 9}
	v.Step(0.1, true)
	assert.Equal(t, mgl32.Vec3{0, 2, 8}, v.Camera.Eye)
}

func TestFrameCopiesLights(t *testing.T) {
	v, _ := newViewer(t, smallConfig(config.TechShadowMap), DemoScene())
	f := v.Frame(1.5)
	require.Len(t, f.Lights, 1)
	f.Lights[0].ZFar = 42
	assert.Zero(t, v.Lights()[0].ZFar)
	assert.Equal(t, v.Camera.Eye, f.Camera.Eye)
}

func TestLoadSceneEmptyPathIsDemo(t *testing.T) {
	sc, err := LoadScene("", nil)
	require.NoError(t, err)
	assert.Len(t, sc.Meshes, 3)

	_, err = LoadScene("does-not-exist.glb", nil)
	assert.Error(t, err)
}

func TestCaptureFollowsConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Capture = config.CaptureConfig{Dir: filepath.Join("out", "shots"), Format: "webp"}
	shots := newCapture(cfg.Capture)

	name := shots.GenerateFilename()
	assert.Equal(t, filepath.Join("out", "shots"), filepath.Dir(name))
	assert.True(t, strings.HasSuffix(name, ".webp"), name)

	shots.SetOutputDir("moved")
	assert.Equal(t, "moved", filepath.Dir(shots.GenerateFilename()))
}
