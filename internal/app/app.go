package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/stencil-shadows/internal/config"
	"github.com/Faultbox/stencil-shadows/internal/engine/camera"
	"github.com/Faultbox/stencil-shadows/internal/engine/debug"
	"github.com/Faultbox/stencil-shadows/internal/engine/gpu"
	"github.com/Faultbox/stencil-shadows/internal/engine/input"
	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
	"github.com/Faultbox/stencil-shadows/internal/engine/volume"
	"github.com/Faultbox/stencil-shadows/internal/engine/window"
)

const title = "Stencil Shadows"

// App is the windowed viewer.
type App struct {
	cfg        *config.Config
	configPath string
	log        *zap.Logger

	win    *window.Window
	in     *input.Input
	dev    *gpu.Device
	viewer *Viewer
	shots  *debug.ScreenshotCapture

	reloads       chan *config.Config
	width, height int
}

// New opens the window, creates the GL device and loads the scene.
// configPath is watched for changes; it may be empty.
func New(ctx context.Context, cfg *config.Config, configPath string, log *zap.Logger) (*App, error) {
	sc, err := LoadScene(cfg.Scene, log)
	if err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}

	win, err := window.New(window.Config{
		Title:     title,
		Width:     cfg.Window.Width,
		Height:    cfg.Window.Height,
		Display:   cfg.Window.GPUIndex,
		Resizable: cfg.Window.Resizable,
		VSync:     cfg.Window.VSync,
	}, log.Named("window"))
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	// The drawable can differ from the requested size on high-DPI displays.
	w, h := win.GetSize()
	set := pipeline.NewSet()
	dev, err := gpu.NewDevice(w, h, set, log.Named("gpu"))
	if err != nil {
		win.Close()
		return nil, err
	}
	dev.Palette = sc.Palette()

	v, err := NewViewer(ctx, cfg, sc, dev, set, log)
	if err != nil {
		dev.Destroy()
		win.Close()
		return nil, err
	}

	a := &App{
		cfg:        cfg,
		configPath: configPath,
		log:        log,
		win:        win,
		in:         input.New(),
		dev:        dev,
		viewer:     v,
		shots:      newCapture(cfg.Capture),
		reloads:    make(chan *config.Config, 1),
		width:      w,
		height:     h,
	}
	if !cfg.Test.Enabled {
		win.SetRelativeMouse(true)
	}
	return a, nil
}

// Close releases GL resources and the window.
func (a *App) Close() {
	a.log.Info("closing viewer")
	if a.dev != nil {
		a.dev.Destroy()
	}
	if a.win != nil {
		a.win.Close()
	}
}

// Run drives frames until the window closes, Escape is pressed, ctx is
// cancelled or, in test mode, the configured frame count is reached.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.configPath != "" && !a.cfg.Test.Enabled {
		go a.watch(ctx)
	}
	if a.cfg.Test.Enabled {
		return a.runTest(ctx)
	}
	return a.runInteractive(ctx)
}

func (a *App) watch(ctx context.Context) {
	err := config.Watch(ctx, a.configPath,
		func(cfg *config.Config) {
			// Keep only the newest pending config.
			select {
			case <-a.reloads:
			default:
			}
			a.reloads <- cfg
		},
		func(err error) {
			a.log.Warn("config reload failed", zap.Error(err))
		})
	if err != nil {
		a.log.Warn("config watch stopped", zap.Error(err))
	}
}

func (a *App) runInteractive(ctx context.Context) error {
	a.log.Info("starting viewer loop", zap.String("config", a.configPath))

	lastTime := time.Now()
	fpsTimer := lastTime
	frameCount := 0

	for ctx.Err() == nil {
		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		if a.in.Update() {
			return nil
		}
		if quit := a.handleEvents(); quit {
			return nil
		}
		a.applyReloads()

		a.viewer.Camera.Update(dt, a.controls())
		a.viewer.Step(dt, false)

		stats, err := a.frame()
		if err != nil {
			return err
		}

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			a.log.Debug("fps",
				zap.Int("count", frameCount),
				zap.Int("draws", stats.Draws),
				zap.Int("binds", stats.Binds))
			a.win.SetTitle(fmt.Sprintf("%s [%s] %d fps", title, a.cfg.Shadows.Technique, frameCount))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}
	return nil
}

// runTest renders the configured number of frames, advancing animations by
// the fixed time step, and logs the average frame time.
func (a *App) runTest(ctx context.Context) error {
	step := a.cfg.Test.TimeStep
	follow := !a.cfg.Camera.IgnoreNode
	a.log.Info("starting test run",
		zap.Int("frames", a.cfg.Test.Frames),
		zap.Float32("time_step", step),
		zap.String("technique", a.cfg.Shadows.Technique))

	start := time.Now()
	frames := 0
	for frames < a.cfg.Test.Frames && ctx.Err() == nil {
		if a.in.Update() {
			break
		}
		a.viewer.Step(step, follow)
		if _, err := a.frame(); err != nil {
			return fmt.Errorf("frame %d: %w", frames, err)
		}
		frames++
	}

	elapsed := time.Since(start)
	avg := time.Duration(0)
	if frames > 0 {
		avg = elapsed / time.Duration(frames)
	}
	a.log.Info("test run finished",
		zap.Int("frames", frames),
		zap.Duration("elapsed", elapsed),
		zap.Float64("avg_frame_ms", float64(avg)/float64(time.Millisecond)))
	return nil
}

func (a *App) frame() (volume.Stats, error) {
	stats, err := a.viewer.Render(a.dev, float32(a.width)/float32(a.height))
	if err != nil {
		return stats, err
	}
	a.dev.Present(a.width, a.height)
	a.win.SwapBuffers()
	return stats, nil
}

// handleEvents reacts to window and key events. It reports whether the
// viewer should quit.
func (a *App) handleEvents() bool {
	for _, ev := range a.in.Events() {
		if ev.Type == input.EventWindowResize {
			a.width, a.height = a.win.GetSize()
			a.dev.Resize(a.width, a.height)
			a.log.Debug("resized", zap.Int("width", a.width), zap.Int("height", a.height))
		}
	}

	if a.in.IsKeyPressed(sdl.SCANCODE_ESCAPE) {
		return true
	}
	if a.in.IsKeyPressed(sdl.SCANCODE_F12) {
		a.screenshot()
	}
	if a.in.IsKeyPressed(sdl.SCANCODE_F5) {
		a.saveConfig()
	}
	if a.in.IsKeyPressed(sdl.SCANCODE_T) {
		if err := a.viewer.CycleTechnique(); err != nil {
			a.log.Warn("switch technique", zap.Error(err))
		}
	}
	if a.in.IsKeyPressed(sdl.SCANCODE_O) {
		a.viewer.ToggleOverlay()
	}
	return false
}

func (a *App) applyReloads() {
	select {
	case cfg := <-a.reloads:
		if err := a.viewer.Apply(cfg); err != nil {
			a.log.Warn("config reload rejected", zap.Error(err))
			return
		}
		a.shots.SetOutputDir(cfg.Capture.Dir)
		a.cfg.Capture.Dir = cfg.Capture.Dir
		a.log.Info("config reloaded", zap.String("technique", cfg.Shadows.Technique))
	default:
	}
}

func (a *App) controls() camera.Controls {
	dx, dy := a.in.MouseDelta()
	return camera.Controls{
		Forward: a.in.IsKeyHeld(sdl.SCANCODE_W),
		Back:    a.in.IsKeyHeld(sdl.SCANCODE_S),
		Left:    a.in.IsKeyHeld(sdl.SCANCODE_A),
		Right:   a.in.IsKeyHeld(sdl.SCANCODE_D),
		Fast:    a.in.IsKeyHeld(sdl.SCANCODE_LSHIFT) || a.in.IsKeyHeld(sdl.SCANCODE_RSHIFT),
		DX:      float32(dx),
		DY:      float32(dy),
	}
}

// newCapture returns the screenshot writer configured by c.
func newCapture(c config.CaptureConfig) *debug.ScreenshotCapture {
	return debug.NewScreenshotCapture(c.Dir, "shadows", c.Format)
}

// saveConfig writes the current settings back to the loaded config file, or
// to the user config directory when none was loaded.
func (a *App) saveConfig() {
	var err error
	path := a.configPath
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.yaml")
		err = a.cfg.Save()
	} else {
		err = a.cfg.SaveTo(path)
	}
	if err != nil {
		a.log.Warn("saving config failed", zap.Error(err))
		return
	}
	a.log.Info("config saved", zap.String("file", path))
}

func (a *App) screenshot() {
	name, err := a.shots.Capture(a.dev.Capture())
	if err != nil {
		a.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	a.log.Info("screenshot saved", zap.String("file", name))
}
