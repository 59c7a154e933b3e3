package app

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/stencil-shadows/internal/engine/model"
	"github.com/Faultbox/stencil-shadows/internal/engine/scene"
)

// LoadScene reads the glTF file at path, or builds the demo scene when
// path is empty.
func LoadScene(path string, log *zap.Logger) (*scene.Scene, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if path == "" {
		log.Info("no scene given, using demo scene")
		return DemoScene(), nil
	}
	sc, err := scene.Load(path, model.DefaultLoadOptions())
	if err != nil {
		return nil, err
	}
	log.Info("scene loaded",
		zap.String("path", path),
		zap.Int("nodes", len(sc.Nodes)),
		zap.Int("meshes", len(sc.Meshes)),
		zap.Int("materials", len(sc.Materials)),
		zap.Int("animations", len(sc.Animations)),
		zap.Bool("camera_node", sc.CameraNode >= 0),
		zap.Bool("light_node", sc.LightNode >= 0))
	return sc, nil
}

// DemoScene is a floor with a floating crate and a pillar placed in front
// of the default camera, lit by the default light one unit above the floor.
func DemoScene() *scene.Scene {
	meshes := []*model.Mesh{
		model.Plane("floor", 20, -1, 0),
		model.Box("crate", [3]float32{-0.5, -0.5, 3}, [3]float32{0.5, 0.5, 4}, 1),
		model.Box("pillar", [3]float32{1.5, -1, 4}, [3]float32{2, 1.5, 4.5}, 1),
	}
	materials := []scene.Material{
		{Name: "floor", BaseColor: mgl32.Vec4{0.8, 0.8, 0.8, 1}, AlphaCutoff: 0.5},
		{Name: "stone", BaseColor: mgl32.Vec4{0.8, 0.55, 0.35, 1}, AlphaCutoff: 0.5},
	}
	materials[0].Pipeline.DoubleSided = true
	return scene.FromMeshes(meshes, materials)
}
