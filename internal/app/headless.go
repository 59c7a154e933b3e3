package app

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/stencil-shadows/internal/config"
	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
	"github.com/Faultbox/stencil-shadows/internal/engine/scene"
	"github.com/Faultbox/stencil-shadows/internal/engine/softraster"
	"github.com/Faultbox/stencil-shadows/internal/engine/volume"
)

// RenderHeadless renders one frame of sc on the software rasterizer at the
// configured window size, after advancing animations by the test time step
// when test mode is on.
func RenderHeadless(ctx context.Context, cfg *config.Config, sc *scene.Scene, log *zap.Logger) (*softraster.Device, volume.Stats, error) {
	if log == nil {
		log = zap.NewNop()
	}
	w, h := cfg.Window.Width, cfg.Window.Height
	dev, err := softraster.NewDevice(w, h, log.Named("softraster"))
	if err != nil {
		return nil, volume.Stats{}, err
	}
	dev.Palette = albedos(sc.Palette())

	v, err := NewViewer(ctx, cfg, sc, dev, pipeline.NewSet(), log)
	if err != nil {
		return nil, volume.Stats{}, err
	}
	if cfg.Test.Enabled {
		v.Step(cfg.Test.TimeStep, !cfg.Camera.IgnoreNode)
	}
	stats, err := v.Render(dev, float32(w)/float32(h))
	if err != nil {
		return nil, stats, err
	}
	return dev, stats, nil
}

// albedos drops the alpha of each base colour.
func albedos(palette []mgl32.Vec4) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(palette))
	for i, c := range palette {
		out[i] = c.Vec3()
	}
	return out
}
