// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// Shadow technique names accepted by --shadow-tech and the config file.
const (
	TechNone                = "none"
	TechShadowMap           = "sm"
	TechDepthPass           = "svdp"
	TechDepthFail           = "svdf"
	TechSilhouetteDepthPass = "ssvdp"
	TechSilhouetteDepthFail = "ssvdf"
)

// Shadow map resolution bounds.
const (
	MinShadowMapResolution = 128
	MaxShadowMapResolution = 8192
)

// Vec3 is a three component value stored as a plain list in config files.
type Vec3 [3]float32

// Config holds all viewer settings.
type Config struct {
	Scene     string          `yaml:"scene" toml:"scene"` // glTF/GLB file to display
	Window    WindowConfig    `yaml:"window" toml:"window"`
	Test      TestConfig      `yaml:"test" toml:"test"`
	Light     LightConfig     `yaml:"light" toml:"light"`
	Camera    CameraConfig    `yaml:"camera" toml:"camera"`
	Shadows   ShadowConfig    `yaml:"shadows" toml:"shadows"`
	ShadowMap ShadowMapConfig `yaml:"shadow_map" toml:"shadow_map"`
	Capture   CaptureConfig   `yaml:"capture" toml:"capture"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Width     int  `yaml:"width" toml:"width"`
	Height    int  `yaml:"height" toml:"height"`
	GPUIndex  int  `yaml:"gpu_index" toml:"gpu_index"` // -1 picks any display
	Resizable bool `yaml:"resizable" toml:"resizable"`
	VSync     bool `yaml:"vsync" toml:"vsync"`
}

// TestConfig controls the fixed-length benchmark run.
type TestConfig struct {
	Enabled  bool    `yaml:"enabled" toml:"enabled"`
	Frames   int     `yaml:"frames" toml:"frames"`
	TimeStep float32 `yaml:"time_step" toml:"time_step"` // seconds per frame
}

// LightConfig describes the initial state of light 0.
type LightConfig struct {
	Position   Vec3    `yaml:"position" toml:"position"`
	Ambient    Vec3    `yaml:"ambient" toml:"ambient"`
	Diffuse    Vec3    `yaml:"diffuse" toml:"diffuse"`
	Range      float32 `yaml:"range" toml:"range"`
	Intensity  float32 `yaml:"intensity" toml:"intensity"`
	IgnoreNode bool    `yaml:"ignore_node" toml:"ignore_node"`
}

// CameraConfig describes the initial camera.
type CameraConfig struct {
	Eye        Vec3    `yaml:"eye" toml:"eye"`
	Target     Vec3    `yaml:"target" toml:"target"`
	ZNear      float32 `yaml:"z_near" toml:"z_near"`
	ZFar       float32 `yaml:"z_far" toml:"z_far"`
	FOV        float32 `yaml:"fov" toml:"fov"` // degrees
	IgnoreNode bool    `yaml:"ignore_node" toml:"ignore_node"`
}

// ShadowConfig selects the shadowing technique.
type ShadowConfig struct {
	Technique    string `yaml:"technique" toml:"technique"`
	DebugOverlay bool   `yaml:"debug_overlay" toml:"debug_overlay"`
}

// ShadowMapConfig holds cube shadow map settings.
type ShadowMapConfig struct {
	Resolution   int     `yaml:"resolution" toml:"resolution"`
	BiasConstant float32 `yaml:"bias_constant" toml:"bias_constant"`
	BiasSlope    float32 `yaml:"bias_slope" toml:"bias_slope"`
	BiasClamp    float32 `yaml:"bias_clamp" toml:"bias_clamp"`
	ZNear        float32 `yaml:"z_near" toml:"z_near"`
	PCF          bool    `yaml:"pcf" toml:"pcf"`
	CullFront    bool    `yaml:"cull_front" toml:"cull_front"`
}

// CaptureConfig controls F12 screenshots.
type CaptureConfig struct {
	Dir    string `yaml:"dir" toml:"dir"`
	Format string `yaml:"format" toml:"format"` // png or webp
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Width:     1280,
			Height:    720,
			GPUIndex:  -1,
			Resizable: true,
			VSync:     false,
		},
		Test: TestConfig{
			Enabled:  false,
			Frames:   300,
			TimeStep: 1.0 / 60.0,
		},
		Light: LightConfig{
			Position:  Vec3{0, 0, 0},
			Ambient:   Vec3{0.3, 0.3, 0.5},
			Diffuse:   Vec3{0.7, 0.5, 0.5},
			Range:     100,
			Intensity: 2,
		},
		Camera: CameraConfig{
			Eye:    Vec3{0, 1, 0},
			Target: Vec3{0, 1, 1},
			ZNear:  0.25,
			ZFar:   1000,
			FOV:    45,
		},
		Shadows: ShadowConfig{
			Technique: TechNone,
		},
		ShadowMap: ShadowMapConfig{
			Resolution:   512,
			BiasConstant: 512,
			BiasSlope:    4,
			BiasClamp:    0.001,
			ZNear:        0.1,
			PCF:          true,
			CullFront:    true,
		},
		Capture: CaptureConfig{
			Dir:    "screenshots",
			Format: "png",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Techniques lists every accepted shadow technique name.
func Techniques() []string {
	return []string{
		TechNone,
		TechShadowMap,
		TechDepthPass,
		TechDepthFail,
		TechSilhouetteDepthPass,
		TechSilhouetteDepthFail,
	}
}

// Validate checks value ranges. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Test.Frames <= 0 {
		errs = append(errs, fmt.Errorf("test frames must be positive, got %d", c.Test.Frames))
	}
	if c.Test.TimeStep <= 0 {
		errs = append(errs, fmt.Errorf("test time step must be positive, got %g", c.Test.TimeStep))
	}
	if c.Light.Range <= 0 {
		errs = append(errs, fmt.Errorf("light range must be positive, got %g", c.Light.Range))
	}
	if c.Camera.ZNear <= 0 || c.Camera.ZFar <= c.Camera.ZNear {
		errs = append(errs, fmt.Errorf("camera depth range invalid: near %g, far %g", c.Camera.ZNear, c.Camera.ZFar))
	}
	if !validTechnique(c.Shadows.Technique) {
		errs = append(errs, fmt.Errorf("unknown shadow technique %q", c.Shadows.Technique))
	}
	if r := c.ShadowMap.Resolution; r < MinShadowMapResolution || r > MaxShadowMapResolution {
		errs = append(errs, fmt.Errorf("shadow map resolution %d outside [%d, %d]", r, MinShadowMapResolution, MaxShadowMapResolution))
	}
	if c.ShadowMap.BiasClamp < 0 {
		errs = append(errs, fmt.Errorf("shadow map bias clamp must not be negative, got %g", c.ShadowMap.BiasClamp))
	}
	if c.ShadowMap.ZNear <= 0 {
		errs = append(errs, fmt.Errorf("shadow map near plane must be positive, got %g", c.ShadowMap.ZNear))
	}
	if f := c.Capture.Format; f != "png" && f != "webp" {
		errs = append(errs, fmt.Errorf("unknown capture format %q", f))
	}
	return errors.Join(errs...)
}

func validTechnique(name string) bool {
	for _, t := range Techniques() {
		if t == name {
			return true
		}
	}
	return false
}
