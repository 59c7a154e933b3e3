package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Window defaults
	if cfg.Window.Width != 1280 {
		t.Errorf("expected width 1280, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 720 {
		t.Errorf("expected height 720, got %d", cfg.Window.Height)
	}
	if cfg.Window.GPUIndex != -1 {
		t.Errorf("expected gpu index -1, got %d", cfg.Window.GPUIndex)
	}
	if !cfg.Window.Resizable {
		t.Error("expected resizable to be true by default")
	}
	if cfg.Window.VSync {
		t.Error("expected vsync to be false by default")
	}

	// Test mode defaults
	if cfg.Test.Enabled {
		t.Error("expected test mode to be off by default")
	}
	if cfg.Test.Frames != 300 {
		t.Errorf("expected 300 test frames, got %d", cfg.Test.Frames)
	}

	// Light defaults
	if cfg.Light.Range != 100 {
		t.Errorf("expected light range 100, got %f", cfg.Light.Range)
	}
	if cfg.Light.Intensity != 2 {
		t.Errorf("expected light intensity 2, got %f", cfg.Light.Intensity)
	}
	if cfg.Light.Ambient != (Vec3{0.3, 0.3, 0.5}) {
		t.Errorf("unexpected ambient %v", cfg.Light.Ambient)
	}

	// Camera defaults
	if cfg.Camera.Eye != (Vec3{0, 1, 0}) || cfg.Camera.Target != (Vec3{0, 1, 1}) {
		t.Errorf("unexpected camera eye %v target %v", cfg.Camera.Eye, cfg.Camera.Target)
	}
	if cfg.Camera.FOV != 45 {
		t.Errorf("expected fov 45, got %f", cfg.Camera.FOV)
	}

	// Shadow defaults
	if cfg.Shadows.Technique != TechNone {
		t.Errorf("expected technique none, got %s", cfg.Shadows.Technique)
	}
	if cfg.ShadowMap.Resolution != 512 {
		t.Errorf("expected shadow map resolution 512, got %d", cfg.ShadowMap.Resolution)
	}
	if cfg.ShadowMap.BiasConstant != 512 || cfg.ShadowMap.BiasSlope != 4 {
		t.Errorf("unexpected bias %f/%f", cfg.ShadowMap.BiasConstant, cfg.ShadowMap.BiasSlope)
	}
	if cfg.ShadowMap.BiasClamp != 0.001 {
		t.Errorf("expected bias clamp 0.001, got %f", cfg.ShadowMap.BiasClamp)
	}
	if !cfg.ShadowMap.PCF || !cfg.ShadowMap.CullFront {
		t.Error("expected PCF and front-face culling on by default")
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
scene: "models/cube.glb"

window:
  width: 1920
  height: 1080
  vsync: true

light:
  position: [0, 4, 0]
  range: 50

shadows:
  technique: "ssvdf"
  debug_overlay: true

shadow_map:
  resolution: 1024
  pcf: false

logging:
  level: "debug"
  log_file: "shadows.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Scene != "models/cube.glb" {
		t.Errorf("expected scene models/cube.glb, got %s", cfg.Scene)
	}
	if cfg.Window.Width != 1920 || cfg.Window.Height != 1080 {
		t.Errorf("expected 1920x1080, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if !cfg.Window.VSync {
		t.Error("expected vsync to be true")
	}
	if cfg.Light.Position != (Vec3{0, 4, 0}) {
		t.Errorf("expected light at (0,4,0), got %v", cfg.Light.Position)
	}
	if cfg.Light.Range != 50 {
		t.Errorf("expected light range 50, got %f", cfg.Light.Range)
	}
	// Untouched values keep their defaults
	if cfg.Light.Intensity != 2 {
		t.Errorf("expected default intensity 2, got %f", cfg.Light.Intensity)
	}
	if cfg.Shadows.Technique != TechSilhouetteDepthFail || !cfg.Shadows.DebugOverlay {
		t.Errorf("unexpected shadows section %+v", cfg.Shadows)
	}
	if cfg.ShadowMap.Resolution != 1024 || cfg.ShadowMap.PCF {
		t.Errorf("unexpected shadow map section %+v", cfg.ShadowMap)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
}

func TestLoadFromTOMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	tomlContent := `
scene = "sponza.gltf"

[window]
width = 800
height = 600

[camera]
eye = [0.0, 3.0, 6.0]
fov = 60.0

[shadows]
technique = "sm"

[shadow_map]
resolution = 2048
bias_constant = 1.5
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Scene != "sponza.gltf" {
		t.Errorf("expected scene sponza.gltf, got %s", cfg.Scene)
	}
	if cfg.Window.Width != 800 || cfg.Window.Height != 600 {
		t.Errorf("expected 800x600, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Camera.Eye != (Vec3{0, 3, 6}) {
		t.Errorf("expected eye (0,3,6), got %v", cfg.Camera.Eye)
	}
	if cfg.Camera.FOV != 60 {
		t.Errorf("expected fov 60, got %f", cfg.Camera.FOV)
	}
	if cfg.Shadows.Technique != TechShadowMap {
		t.Errorf("expected technique sm, got %s", cfg.Shadows.Technique)
	}
	if cfg.ShadowMap.Resolution != 2048 || cfg.ShadowMap.BiasConstant != 1.5 {
		t.Errorf("unexpected shadow map section %+v", cfg.ShadowMap)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
window:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero width",
			mutate:  func(c *Config) { c.Window.Width = 0 },
			wantErr: "window size",
		},
		{
			name:    "zero test frames",
			mutate:  func(c *Config) { c.Test.Frames = 0 },
			wantErr: "test frames",
		},
		{
			name:    "negative time step",
			mutate:  func(c *Config) { c.Test.TimeStep = -1 },
			wantErr: "time step",
		},
		{
			name:    "shadow map too small",
			mutate:  func(c *Config) { c.ShadowMap.Resolution = 64 },
			wantErr: "shadow map resolution",
		},
		{
			name:    "shadow map too large",
			mutate:  func(c *Config) { c.ShadowMap.Resolution = 16384 },
			wantErr: "shadow map resolution",
		},
		{
			name:    "unknown technique",
			mutate:  func(c *Config) { c.Shadows.Technique = "raytraced" },
			wantErr: "unknown shadow technique",
		},
		{
			name:    "negative bias clamp",
			mutate:  func(c *Config) { c.ShadowMap.BiasClamp = -0.5 },
			wantErr: "bias clamp",
		},
		{
			name:    "unknown capture format",
			mutate:  func(c *Config) { c.Capture.Format = "bmp" },
			wantErr: "capture format",
		},
		{
			name:    "inverted camera range",
			mutate:  func(c *Config) { c.Camera.ZFar = 0.1 },
			wantErr: "camera depth range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseVec3(t *testing.T) {
	v, err := ParseVec3("1, -2.5,3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != (Vec3{1, -2.5, 3}) {
		t.Errorf("expected (1,-2.5,3), got %v", v)
	}

	for _, bad := range []string{"", "1,2", "1,2,3,4", "a,b,c"} {
		if _, err := ParseVec3(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// A TOML file in the working directory is found too
	if err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[window]\nwidth = 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	path = findConfigFile()
	if filepath.Base(path) != "config.toml" {
		t.Errorf("expected to find config.toml, got %q", path)
	}

	// YAML wins when both exist
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte("window:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	path = findConfigFile()
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("expected to find config.yaml, got %q", path)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "shadow tech flag",
			setup: func() {
				*flagShadowTech = TechDepthFail
			},
			verify: func(cfg *Config) {
				if cfg.Shadows.Technique != TechDepthFail {
					t.Errorf("expected technique svdf, got %s", cfg.Shadows.Technique)
				}
			},
			teardown: func() {
				*flagShadowTech = ""
			},
		},
		{
			name: "no-vsync and no-sm-pcf flags",
			setup: func() {
				*flagNoSMPCF = true
				*flagVSync = true
			},
			verify: func(cfg *Config) {
				if cfg.ShadowMap.PCF {
					t.Error("expected PCF off with --no-sm-pcf")
				}
				if !cfg.Window.VSync {
					t.Error("expected vsync on with --vsync")
				}
			},
			teardown: func() {
				*flagNoSMPCF = false
				*flagVSync = false
			},
		},
		{
			name: "float and vector flags",
			setup: func() {
				_ = flagSMBiasConstant.Set("0")
				_ = flagLightPosition.Set("0,4,0")
			},
			verify: func(cfg *Config) {
				if cfg.ShadowMap.BiasConstant != 0 {
					t.Errorf("expected bias constant 0, got %f", cfg.ShadowMap.BiasConstant)
				}
				if cfg.Light.Position != (Vec3{0, 4, 0}) {
					t.Errorf("expected light at (0,4,0), got %v", cfg.Light.Position)
				}
			},
			teardown: func() {
				flagSMBiasConstant.reset()
				flagLightPosition.reset()
			},
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(cfg *Config) {
				if cfg.Window.Width != 2560 {
					t.Errorf("expected width 2560, got %d", cfg.Window.Width)
				}
				if cfg.Window.Height != 1440 {
					t.Errorf("expected height 1440, got %d", cfg.Window.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			if err := applyFlags(cfg); err != nil {
				t.Fatalf("applyFlags: %v", err)
			}

			tt.verify(cfg)
		})
	}
}

func TestApplyFlagsConflict(t *testing.T) {
	*flagTest = true
	*flagNoTest = true
	defer func() {
		*flagTest = false
		*flagNoTest = false
	}()

	if err := applyFlags(Default()); err == nil {
		t.Error("expected error for --test together with --no-test")
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
window:
  width: 1600
  height: 900
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width should be from flag (1920), not file (1600)
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Window.Width)
	}

	// Height should be from file (900) since no flag override
	if cfg.Window.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Window.Height)
	}
}

func TestSaveRoundTripsThroughBothFormats(t *testing.T) {
	for _, name := range []string{"out.yaml", "out.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg := Default()
			cfg.Shadows.Technique = TechSilhouetteDepthPass
			cfg.Light.Position = Vec3{1, 2, 3}

			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo: %v", err)
			}
			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if loaded.Shadows.Technique != TechSilhouetteDepthPass {
				t.Errorf("expected technique ssvdp, got %s", loaded.Shadows.Technique)
			}
			if loaded.Light.Position != (Vec3{1, 2, 3}) {
				t.Errorf("expected light at (1,2,3), got %v", loaded.Light.Position)
			}
		})
	}
}

func TestSaveWritesToConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("HOME", home)
	t.Setenv("APPDATA", home)

	cfg := Default()
	cfg.Capture.Format = "webp"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadFile(filepath.Join(ConfigDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Capture.Format != "webp" {
		t.Errorf("expected capture format webp, got %s", loaded.Capture.Format)
	}
	if loaded.Capture.Dir != "screenshots" {
		t.Errorf("expected capture dir screenshots, got %s", loaded.Capture.Dir)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("shadows:\n  technique: svdp\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { changes <- c }, nil)
	}()

	// Give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("shadows:\n  technique: ssvdf\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	for {
		select {
		case c := <-changes:
			if c.Shadows.Technique == TechSilhouetteDepthFail {
				cancel()
				if err := <-done; err != nil {
					t.Errorf("Watch returned %v", err)
				}
				return
			}
		case <-ctx.Done():
			t.Fatal("timed out waiting for reload")
		}
	}
}
