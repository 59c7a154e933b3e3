package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// floatFlag is a float32 flag that remembers whether it was given.
type floatFlag struct {
	value float32
	set   bool
}

func (f *floatFlag) String() string {
	if f == nil || !f.set {
		return ""
	}
	return strconv.FormatFloat(float64(f.value), 'g', -1, 32)
}

func (f *floatFlag) Set(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return err
	}
	f.value, f.set = float32(v), true
	return nil
}

func (f *floatFlag) reset() { *f = floatFlag{} }

// vec3Flag parses "x,y,z".
type vec3Flag struct {
	value Vec3
	set   bool
}

func (f *vec3Flag) String() string {
	if f == nil || !f.set {
		return ""
	}
	return fmt.Sprintf("%g,%g,%g", f.value[0], f.value[1], f.value[2])
}

func (f *vec3Flag) Set(s string) error {
	v, err := ParseVec3(s)
	if err != nil {
		return err
	}
	f.value, f.set = v, true
	return nil
}

func (f *vec3Flag) reset() { *f = vec3Flag{} }

// ParseVec3 parses three comma separated numbers.
func ParseVec3(s string) (Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Vec3{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var v Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return Vec3{}, fmt.Errorf("component %d of %q: %w", i, s, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

var (
	flagConfig   = flag.String("config", "", "Path to config file (.yaml or .toml)")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagLogLevel = flag.String("log-level", "", "Log level: debug, info, warn, error")
	flagLogFile  = flag.String("log-file", "", "Write logs to this file as well")

	flagWidth       = flag.Int("width", 0, "Window width")
	flagHeight      = flag.Int("height", 0, "Window height")
	flagGPUIndex    = flag.Int("gpu-index", -1, "Display index to open the window on")
	flagVSync       = flag.Bool("vsync", false, "Enable V-Sync")
	flagNoVSync     = flag.Bool("no-vsync", false, "Disable V-Sync")
	flagResizable   = flag.Bool("resizable", false, "Make the window resizable")
	flagNoResizable = flag.Bool("no-resizable", false, "Make the window fixed size")

	flagTest       = flag.Bool("test", false, "Run a fixed-length test and exit")
	flagNoTest     = flag.Bool("no-test", false, "Disable test mode")
	flagTestFrames = flag.Int("test-frames", 0, "Length of the test in frames")

	flagShadowTech       = flag.String("shadow-tech", "", "Shadow technique: none, sm, svdp, svdf, ssvdp, ssvdf")
	flagSVDebugOverlay   = flag.Bool("sv-debug-overlay", false, "Draw silhouette edges on top of the scene")
	flagNoSVDebugOverlay = flag.Bool("no-sv-debug-overlay", false, "Hide the silhouette overlay")
	flagSMResolution     = flag.Int("sm-resolution", 0, "Shadow map face resolution")
	flagSMPCF            = flag.Bool("sm-pcf", false, "Use the PCF shadow sampler")
	flagNoSMPCF          = flag.Bool("no-sm-pcf", false, "Use the nearest shadow sampler")
	flagSMCullFront      = flag.Bool("sm-cull-front", false, "Cull front faces in shadow maps when applicable")
	flagNoSMCullFront    = flag.Bool("no-sm-cull-front", false, "Cull back faces in shadow maps")
	flagLightIgnoreNode  = flag.Bool("light-ignore-node", false, "Ignore the light node of the scene")
	flagCameraIgnoreNode = flag.Bool("camera-ignore-node", false, "Ignore the camera node of the scene")
)

var (
	flagTestTimeStep   floatFlag
	flagSMBiasConstant floatFlag
	flagSMBiasSlope    floatFlag
	flagSMBiasClamp    floatFlag
	flagSMZNear        floatFlag
	flagLightRange     floatFlag
	flagLightIntensity floatFlag
	flagCameraZNear    floatFlag
	flagCameraZFar     floatFlag
	flagCameraFOV      floatFlag

	flagLightPosition vec3Flag
	flagLightAmbient  vec3Flag
	flagLightDiffuse  vec3Flag
	flagCameraEye     vec3Flag
	flagCameraTarget  vec3Flag
)

func init() {
	flag.Var(&flagTestTimeStep, "test-timestep", "Animation time step in test mode, seconds")
	flag.Var(&flagSMBiasConstant, "sm-bias-constant", "Shadow map depth bias constant factor")
	flag.Var(&flagSMBiasSlope, "sm-bias-slope", "Shadow map depth bias slope factor")
	flag.Var(&flagSMBiasClamp, "sm-bias-clamp", "Shadow map slope bias limit in window depth, 0 for none")
	flag.Var(&flagSMZNear, "sm-z-near", "Shadow map near plane")
	flag.Var(&flagLightPosition, "light-position", "Light position x,y,z")
	flag.Var(&flagLightAmbient, "light-ambient", "Light ambient colour r,g,b")
	flag.Var(&flagLightDiffuse, "light-diffuse", "Light diffuse colour r,g,b")
	flag.Var(&flagLightRange, "light-range", "Light range")
	flag.Var(&flagLightIntensity, "light-intensity", "Light intensity")
	flag.Var(&flagCameraEye, "camera-eye", "Camera position x,y,z")
	flag.Var(&flagCameraTarget, "camera-target", "Camera target x,y,z")
	flag.Var(&flagCameraZNear, "camera-z-near", "Camera near plane")
	flag.Var(&flagCameraZFar, "camera-z-far", "Camera far plane")
	flag.Var(&flagCameraFOV, "camera-fov", "Camera vertical field of view, degrees")
}

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// SceneArg returns the positional scene path, if any.
func SceneArg() string {
	return flag.Arg(0)
}

// toggle resolves an --x / --no-x pair.
func toggle(name string, on, off bool, dst *bool) error {
	if on && off {
		return fmt.Errorf("--%s and --no-%s are mutually exclusive", name, name)
	}
	if on {
		*dst = true
	}
	if off {
		*dst = false
	}
	return nil
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) error {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogLevel != "" {
		cfg.Logging.Level = *flagLogLevel
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if arg := SceneArg(); arg != "" {
		cfg.Scene = arg
	}

	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagGPUIndex >= 0 {
		cfg.Window.GPUIndex = *flagGPUIndex
	}

	pairs := []struct {
		name    string
		on, off bool
		dst     *bool
	}{
		{"vsync", *flagVSync, *flagNoVSync, &cfg.Window.VSync},
		{"resizable", *flagResizable, *flagNoResizable, &cfg.Window.Resizable},
		{"test", *flagTest, *flagNoTest, &cfg.Test.Enabled},
		{"sv-debug-overlay", *flagSVDebugOverlay, *flagNoSVDebugOverlay, &cfg.Shadows.DebugOverlay},
		{"sm-pcf", *flagSMPCF, *flagNoSMPCF, &cfg.ShadowMap.PCF},
		{"sm-cull-front", *flagSMCullFront, *flagNoSMCullFront, &cfg.ShadowMap.CullFront},
	}
	for _, p := range pairs {
		if err := toggle(p.name, p.on, p.off, p.dst); err != nil {
			return err
		}
	}

	if *flagTestFrames > 0 {
		cfg.Test.Frames = *flagTestFrames
	}
	if *flagShadowTech != "" {
		cfg.Shadows.Technique = *flagShadowTech
	}
	if *flagSMResolution > 0 {
		cfg.ShadowMap.Resolution = *flagSMResolution
	}
	if *flagLightIgnoreNode {
		cfg.Light.IgnoreNode = true
	}
	if *flagCameraIgnoreNode {
		cfg.Camera.IgnoreNode = true
	}

	floats := []struct {
		f   *floatFlag
		dst *float32
	}{
		{&flagTestTimeStep, &cfg.Test.TimeStep},
		{&flagSMBiasConstant, &cfg.ShadowMap.BiasConstant},
		{&flagSMBiasSlope, &cfg.ShadowMap.BiasSlope},
		{&flagSMBiasClamp, &cfg.ShadowMap.BiasClamp},
		{&flagSMZNear, &cfg.ShadowMap.ZNear},
		{&flagLightRange, &cfg.Light.Range},
		{&flagLightIntensity, &cfg.Light.Intensity},
		{&flagCameraZNear, &cfg.Camera.ZNear},
		{&flagCameraZFar, &cfg.Camera.ZFar},
		{&flagCameraFOV, &cfg.Camera.FOV},
	}
	for _, f := range floats {
		if f.f.set {
			*f.dst = f.f.value
		}
	}

	vecs := []struct {
		f   *vec3Flag
		dst *Vec3
	}{
		{&flagLightPosition, &cfg.Light.Position},
		{&flagLightAmbient, &cfg.Light.Ambient},
		{&flagLightDiffuse, &cfg.Light.Diffuse},
		{&flagCameraEye, &cfg.Camera.Eye},
		{&flagCameraTarget, &cfg.Camera.Target},
	}
	for _, v := range vecs {
		if v.f.set {
			*v.dst = v.f.value
		}
	}
	return nil
}
