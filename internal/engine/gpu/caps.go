// Package gpu is the OpenGL 4.1 core backend of volume.Device. Commands
// are issued to the current context as they are recorded; Submit checks
// for errors the recording collected.
package gpu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/stencil-shadows/internal/engine/framebuffer"
)

// Version is an OpenGL context version.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// AtLeast reports whether v is o or newer.
func (v Version) AtLeast(o Version) bool {
	return v.Major > o.Major || (v.Major == o.Major && v.Minor >= o.Minor)
}

// MinVersion is the oldest context with geometry shaders, adjacency
// primitives, depth clamping and base vertex draws in core.
var MinVersion = Version{Major: 3, Minor: 2}

// minGeometryOutput is the vertex count the volume geometry stage emits
// for one triangle: two caps and three side quads.
const minGeometryOutput = 24

// DeviceCapabilityError reports a context that cannot run the renderer.
type DeviceCapabilityError struct {
	Capability string
	Detail     string
	Err        error
}

func (e *DeviceCapabilityError) Error() string {
	msg := "gpu: missing capability " + e.Capability
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeviceCapabilityError) Unwrap() error { return e.Err }

// Caps describes the probed context.
type Caps struct {
	Version           Version
	VersionString     string
	Renderer          string
	Vendor            string
	DepthStencil      uint32
	MaxGeometryOutput int
}

// parseGLVersion reads the leading "major.minor" of a GL_VERSION string,
// e.g. "4.1 Metal - 83.1" or "4.6.0 NVIDIA 550.54".
func parseGLVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "OpenGL ES ")
	end := strings.IndexByte(s, ' ')
	if end < 0 {
		end = len(s)
	}
	parts := strings.SplitN(s[:end], ".", 3)
	if len(parts) < 2 {
		return Version{}, fmt.Errorf("malformed GL version %q", s)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, fmt.Errorf("malformed GL version %q: %w", s, err)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Version{}, fmt.Errorf("malformed GL version %q: %w", s, err)
	}
	return Version{Major: major, Minor: minor}, nil
}

// chooseDepthStencil returns the first format try accepts. Formats the
// driver reports incomplete are skipped; any other failure aborts.
func chooseDepthStencil(formats []uint32, try func(format uint32) error) (uint32, error) {
	var tried []string
	for _, f := range formats {
		err := try(f)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, framebuffer.ErrIncomplete) {
			return 0, err
		}
		tried = append(tried, framebuffer.FormatName(f))
	}
	return 0, &DeviceCapabilityError{
		Capability: "depth-stencil attachment",
		Detail:     "no supported format among " + strings.Join(tried, ", "),
	}
}

// probe checks the current context. gl.Init must have succeeded.
func probe(log *zap.Logger) (Caps, error) {
	var c Caps
	c.VersionString = gl.GoStr(gl.GetString(gl.VERSION))
	c.Renderer = gl.GoStr(gl.GetString(gl.RENDERER))
	c.Vendor = gl.GoStr(gl.GetString(gl.VENDOR))

	v, err := parseGLVersion(c.VersionString)
	if err != nil {
		return c, &DeviceCapabilityError{Capability: "GL version", Err: err}
	}
	c.Version = v
	if !v.AtLeast(MinVersion) {
		return c, &DeviceCapabilityError{
			Capability: "GL version",
			Detail:     fmt.Sprintf("have %s, need %s", v, MinVersion),
		}
	}

	var maxOut int32
	gl.GetIntegerv(gl.MAX_GEOMETRY_OUTPUT_VERTICES, &maxOut)
	c.MaxGeometryOutput = int(maxOut)
	if c.MaxGeometryOutput < minGeometryOutput {
		return c, &DeviceCapabilityError{
			Capability: "geometry output",
			Detail:     fmt.Sprintf("have %d vertices, need %d", maxOut, minGeometryOutput),
		}
	}

	c.DepthStencil, err = chooseDepthStencil(framebuffer.DepthStencilFormats, func(format uint32) error {
		fb, err := framebuffer.New(1, 1, format)
		if err != nil {
			return err
		}
		fb.Destroy()
		return nil
	})
	if err != nil {
		return c, err
	}

	log.Info("GL context",
		zap.String("version", c.VersionString),
		zap.String("renderer", c.Renderer),
		zap.String("vendor", c.Vendor),
		zap.String("depth_stencil", framebuffer.FormatName(c.DepthStencil)),
		zap.Int("max_geometry_output", c.MaxGeometryOutput))
	return c, nil
}
