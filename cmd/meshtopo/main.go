// meshtopo inspects the edge topology of glTF meshes and renders shadow
// masks without a GPU.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/Faultbox/stencil-shadows/internal/app"
	"github.com/Faultbox/stencil-shadows/internal/config"
	"github.com/Faultbox/stencil-shadows/internal/engine/debug"
	"github.com/Faultbox/stencil-shadows/internal/engine/model"
	"github.com/Faultbox/stencil-shadows/internal/engine/topology"
	"github.com/Faultbox/stencil-shadows/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "stats":
		err = cmdStats(os.Stdout, args)
	case "edges":
		err = cmdEdges(os.Stdout, args)
	case "raster":
		err = cmdRaster(os.Stdout, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshtopo - shadow volume mesh topology utility

Usage:
  meshtopo <command> [options] <file.gltf|file.glb>

Commands:
  stats <file>                Per-mesh vertex, triangle and edge counts
  edges [-mesh name] <file>   Dump adjacency primitives
  raster [options] [file]     Render a frame on the software rasterizer,
                              the demo scene when no file is given

Examples:
  meshtopo stats sponza.glb
  meshtopo edges -mesh Cube -n 20 cube.gltf
  meshtopo raster -tech svdf -mask -o mask.png scene.glb
  meshtopo raster -tech sm -ss 2 -o frame.webp scene.glb`)
}

// loadTopology indexes every mesh in path.
func loadTopology(path string) ([]*topology.Buffers[model.Vertex], error) {
	meshes, err := model.Open(path, model.DefaultLoadOptions())
	if err != nil {
		return nil, err
	}
	return app.BuildTopology(context.Background(), meshes)
}

func cmdStats(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: meshtopo stats <file>")
	}
	bufs, err := loadTopology(fs.Arg(0))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MESH\tGROUPS\tVERTICES\tTRIANGLES\tEDGES\tBOUNDARY\tNON-MANIFOLD\tCLOSED")
	var total topology.Stats
	for _, b := range bufs {
		s := b.Stats()
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%v\n",
			b.Name, len(b.Groups), s.Vertices, s.Triangles, s.Edges, s.Boundary(), s.NonManifold(), s.Closed())
		total.Vertices += s.Vertices
		total.Triangles += s.Triangles
		total.Edges += s.Edges
		for k, n := range s.Opposite {
			total.Opposite[k] += n
		}
	}
	fmt.Fprintf(tw, "total\t\t%d\t%d\t%d\t%d\t%d\t\n",
		total.Vertices, total.Triangles, total.Edges, total.Boundary(), total.NonManifold())
	return tw.Flush()
}

func cmdEdges(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("edges", flag.ContinueOnError)
	mesh := fs.String("mesh", "", "Only dump the mesh with this name")
	limit := fs.Int("n", 0, "Limit output to N primitives per group (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: meshtopo edges [-mesh name] [-n N] <file>")
	}
	bufs, err := loadTopology(fs.Arg(0))
	if err != nil {
		return err
	}

	found := false
	for _, b := range bufs {
		if *mesh != "" && b.Name != *mesh {
			continue
		}
		found = true
		for gi, g := range b.Groups {
			fmt.Fprintf(w, "%s group %d (material %d): %d edges\n", b.Name, gi, g.MaterialID, g.EdgePrimitives())
			first := g.EdgeOffset / topology.PrimitiveSize
			n := g.EdgePrimitives()
			if *limit > 0 {
				n = min(n, *limit)
			}
			for i := range n {
				p := b.Primitive(first + i)
				fmt.Fprintf(w, "  %d-%d  opposite %s\n", p[0], p[1], opposites(p))
			}
		}
	}
	if *mesh != "" && !found {
		return fmt.Errorf("no mesh named %q", *mesh)
	}
	return nil
}

// opposites formats the opposite vertex slots, marking padded ones with -.
func opposites(p [topology.PrimitiveSize]uint32) string {
	parts := make([]string, 0, topology.MaxOpposite)
	for _, v := range p[2:] {
		if v == p[0] {
			parts = append(parts, "-")
		} else {
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, " ")
}

func cmdRaster(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("raster", flag.ContinueOnError)
	tech := fs.String("tech", config.TechSilhouetteDepthFail, "Shadow technique: "+strings.Join(config.Techniques(), "|"))
	width := fs.Int("w", 640, "Output width")
	height := fs.Int("h", 360, "Output height")
	ss := fs.Int("ss", 1, "Supersampling factor")
	mask := fs.Bool("mask", false, "Write the stencil shadow mask instead of the colour image")
	overlay := fs.Bool("overlay", false, "Draw silhouette edges")
	out := fs.String("o", "frame.png", "Output file (.png or .webp)")
	verbose := fs.Bool("v", false, "Log renderer progress")
	if err := fs.Parse(args); err != nil {
		return err
	}
	level := "warn"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(level, ""); err != nil {
		return err
	}
	defer logger.Sync()

	cfg := config.Default()
	cfg.Scene = fs.Arg(0)
	cfg.Window.Width = *width * max(*ss, 1)
	cfg.Window.Height = *height * max(*ss, 1)
	cfg.Shadows.Technique = *tech
	cfg.Shadows.DebugOverlay = *overlay
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.Named("raster")
	sc, err := app.LoadScene(cfg.Scene, log)
	if err != nil {
		return err
	}
	dev, stats, err := app.RenderHeadless(context.Background(), cfg, sc, log)
	if err != nil {
		return err
	}

	var img image.Image = dev.Target().Image()
	if *mask {
		img = dev.Target().StencilMask()
	}
	if err := debug.SaveImage(*out, debug.Downsample(img, *ss)); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %dx%d, %d draws, %d subpasses\n", *out, *width, *height, stats.Draws, stats.Subpasses)
	return nil
}
