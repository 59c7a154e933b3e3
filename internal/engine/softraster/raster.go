package softraster

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// vertex is a clip space vertex with the attributes shading needs.
type vertex struct {
	clip   mgl32.Vec4
	world  mgl32.Vec3
	normal mgl32.Vec3
}

func lerp(a, b vertex, t float32) vertex {
	return vertex{
		clip:   a.clip.Add(b.clip.Sub(a.clip).Mul(t)),
		world:  a.world.Add(b.world.Sub(a.world).Mul(t)),
		normal: a.normal.Add(b.normal.Sub(a.normal).Mul(t)),
	}
}

// less orders vertices by clip coordinates. Clipping and triangulation use
// it so a shared edge or a coincident polygon produces the same vertices
// and the same triangles whichever primitive it came from.
func less(a, b vertex) bool {
	for i := 0; i < 4; i++ {
		if a.clip[i] != b.clip[i] {
			return a.clip[i] < b.clip[i]
		}
	}
	return false
}

type plane func(c mgl32.Vec4) float32

const minW = 1e-6

var (
	planeNear   plane = func(c mgl32.Vec4) float32 { return c[2] + c[3] }
	planeFar    plane = func(c mgl32.Vec4) float32 { return c[3] - c[2] }
	planeLeft   plane = func(c mgl32.Vec4) float32 { return c[0] + c[3] }
	planeRight  plane = func(c mgl32.Vec4) float32 { return c[3] - c[0] }
	planeBottom plane = func(c mgl32.Vec4) float32 { return c[1] + c[3] }
	planeTop    plane = func(c mgl32.Vec4) float32 { return c[3] - c[1] }
	planeW      plane = func(c mgl32.Vec4) float32 { return c[3] - minW }
)

// clipper holds scratch polygons reused across triangles.
type clipper struct {
	a, b []vertex
}

// clip cuts a triangle against the view volume. With depthClamp the far
// plane is skipped and depths are clamped during rasterization instead.
func (cl *clipper) clip(tri [3]vertex, depthClamp bool) []vertex {
	cl.a = append(cl.a[:0], tri[:]...)
	planes := [...]plane{planeW, planeNear, planeLeft, planeRight, planeBottom, planeTop, planeFar}
	n := len(planes)
	if depthClamp {
		n--
	}
	for _, p := range planes[:n] {
		cl.b = clipPolygon(cl.a, p, cl.b[:0])
		cl.a, cl.b = cl.b, cl.a
		if len(cl.a) < 3 {
			return nil
		}
	}
	return cl.a
}

func clipPolygon(in []vertex, p plane, out []vertex) []vertex {
	for i := range in {
		cur, next := in[i], in[(i+1)%len(in)]
		dc, dn := p(cur.clip), p(next.clip)
		if dc >= 0 {
			out = append(out, cur)
		}
		if (dc >= 0) != (dn >= 0) {
			out = append(out, intersect(cur, next, dc, dn))
		}
	}
	return out
}

func intersect(a, b vertex, da, db float32) vertex {
	if less(b, a) {
		a, b = b, a
		da, db = db, da
	}
	return lerp(a, b, da/(da-db))
}

// frontFacing reports whether the polygon winds counter-clockwise in
// normalized device coordinates. Degenerate polygons return ok false.
func frontFacing(poly []vertex) (front, ok bool) {
	var area float64
	for i := range poly {
		a, b := poly[i].clip, poly[(i+1)%len(poly)].clip
		ax, ay := float64(a[0])/float64(a[3]), float64(a[1])/float64(a[3])
		bx, by := float64(b[0])/float64(b[3]), float64(b[1])/float64(b[3])
		area += ax*by - bx*ay
	}
	return area > 0, area != 0
}

// canonical rotates the smallest vertex to the front and fixes the
// direction, so reversed copies of a polygon triangulate identically.
func canonical(poly []vertex) {
	first := 0
	for i := range poly {
		if less(poly[i], poly[first]) {
			first = i
		}
	}
	rotate(poly, first)
	if n := len(poly); n > 2 && less(poly[n-1], poly[1]) {
		for i, j := 1, n-1; i < j; i, j = i+1, j-1 {
			poly[i], poly[j] = poly[j], poly[i]
		}
	}
}

func rotate(s []vertex, k int) {
	reverse(s[:k])
	reverse(s[k:])
	reverse(s)
}

func reverse(s []vertex) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// maxLineSteps bounds the pixels walked for one line segment.
const maxLineSteps = 1 << 14

// subpixel is the number of fixed point steps per pixel.
const subpixel = 16

// windowVertex is a vertex after the perspective divide and viewport
// transform. x and y are fixed point.
type windowVertex struct {
	x, y int64
	fx   float64
	fy   float64
	z    float64
	invW float64
}

func toWindow(c mgl32.Vec4, w, h int) windowVertex {
	invW := 1 / float64(c[3])
	nx, ny, nz := float64(c[0])*invW, float64(c[1])*invW, float64(c[2])*invW
	fx := (nx + 1) * 0.5 * float64(w)
	fy := (1 - ny) * 0.5 * float64(h)
	return windowVertex{
		x:    int64(gomath.Round(fx * subpixel)),
		y:    int64(gomath.Round(fy * subpixel)),
		fx:   fx,
		fy:   fy,
		z:    nz*0.5 + 0.5,
		invW: invW,
	}
}

func edge(a, b windowVertex, px, py int64) int64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// owns applies the fill rule to pixel centres lying exactly on edge a->b,
// so a centre on an edge shared by two triangles is drawn once.
func owns(a, b windowVertex) bool {
	dx, dy := b.x-a.x, b.y-a.y
	return dy < 0 || (dy == 0 && dx > 0)
}

// fragment is one covered pixel of a triangle.
type fragment struct {
	x, y  int
	depth float32
	front bool
	tri   *[3]vertex
	// bary are perspective correct weights of tri.
	bary [3]float32
}

// world interpolates the world position of the fragment.
func (f *fragment) world() mgl32.Vec3 {
	return f.tri[0].world.Mul(f.bary[0]).Add(f.tri[1].world.Mul(f.bary[1])).Add(f.tri[2].world.Mul(f.bary[2]))
}

// normal interpolates and normalizes the fragment normal.
func (f *fragment) normal() mgl32.Vec3 {
	n := f.tri[0].normal.Mul(f.bary[0]).Add(f.tri[1].normal.Mul(f.bary[1])).Add(f.tri[2].normal.Mul(f.bary[2]))
	if l := n.Len(); l > 0 {
		return n.Mul(1 / l)
	}
	return n
}

// raster describes how triangles are turned into fragments.
type raster struct {
	width, height int
	depthClamp    bool
	// bias returns the depth offset for a triangle with the given slope.
	bias func(slope float32) float32
}

// triangle emits the fragments of a clipped triangle.
func (r *raster) triangle(tri [3]vertex, front bool, emit func(*fragment)) {
	var s [3]windowVertex
	for i := range tri {
		s[i] = toWindow(tri[i].clip, r.width, r.height)
	}
	area := edge(s[0], s[1], s[2].x, s[2].y)
	if area == 0 {
		return
	}
	if area < 0 {
		s[1], s[2] = s[2], s[1]
		tri[1], tri[2] = tri[2], tri[1]
		area = -area
	}

	var offset float64
	if r.bias != nil {
		offset = float64(r.bias(slope(s)))
	}

	minX := max(int(min(s[0].x, s[1].x, s[2].x)/subpixel)-1, 0)
	maxX := min(int(max(s[0].x, s[1].x, s[2].x)/subpixel)+1, r.width-1)
	minY := max(int(min(s[0].y, s[1].y, s[2].y)/subpixel)-1, 0)
	maxY := min(int(max(s[0].y, s[1].y, s[2].y)/subpixel)+1, r.height-1)

	own := [3]bool{owns(s[1], s[2]), owns(s[2], s[0]), owns(s[0], s[1])}
	fa := float64(area)
	frag := fragment{front: front, tri: &tri}

	for py := minY; py <= maxY; py++ {
		cy := int64(py)*subpixel + subpixel/2
		for px := minX; px <= maxX; px++ {
			cx := int64(px)*subpixel + subpixel/2
			w := [3]int64{
				edge(s[1], s[2], cx, cy),
				edge(s[2], s[0], cx, cy),
				edge(s[0], s[1], cx, cy),
			}
			if !covered(w, own) {
				continue
			}
			b0, b1, b2 := float64(w[0])/fa, float64(w[1])/fa, float64(w[2])/fa
			z := b0*s[0].z + b1*s[1].z + b2*s[2].z + offset
			if r.depthClamp {
				z = gomath.Min(gomath.Max(z, 0), 1)
			}

			p0, p1, p2 := b0*s[0].invW, b1*s[1].invW, b2*s[2].invW
			sum := p0 + p1 + p2
			frag.x, frag.y = px, py
			frag.depth = float32(z)
			frag.bary = [3]float32{float32(p0 / sum), float32(p1 / sum), float32(p2 / sum)}
			emit(&frag)
		}
	}
}

func covered(w [3]int64, own [3]bool) bool {
	for i, v := range w {
		if v < 0 || (v == 0 && !own[i]) {
			return false
		}
	}
	return true
}

// slope returns the largest window space depth gradient of a triangle.
func slope(s [3]windowVertex) float32 {
	x1, y1, z1 := s[1].fx-s[0].fx, s[1].fy-s[0].fy, s[1].z-s[0].z
	x2, y2, z2 := s[2].fx-s[0].fx, s[2].fy-s[0].fy, s[2].z-s[0].z
	det := x1*y2 - x2*y1
	if det == 0 {
		return 0
	}
	dzdx := (z1*y2 - z2*y1) / det
	dzdy := (x1*z2 - x2*z1) / det
	return float32(gomath.Max(gomath.Abs(dzdx), gomath.Abs(dzdy)))
}

// line emits the pixels of a world space segment already in clip space.
// Only the near plane is clipped; pixels off screen are skipped.
func (r *raster) line(a, b mgl32.Vec4, emit func(x, y int, depth float32)) {
	da, db := planeNear(a)-minW, planeNear(b)-minW
	if da < 0 && db < 0 {
		return
	}
	if da < 0 {
		a = a.Add(b.Sub(a).Mul(da / (da - db)))
	} else if db < 0 {
		b = b.Add(a.Sub(b).Mul(db / (db - da)))
	}
	if a[3] <= minW || b[3] <= minW {
		return
	}
	sa, sb := toWindow(a, r.width, r.height), toWindow(b, r.width, r.height)
	steps := int(gomath.Ceil(gomath.Max(gomath.Abs(sb.fx-sa.fx), gomath.Abs(sb.fy-sa.fy))))
	steps = min(max(steps, 1), maxLineSteps)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(gomath.Floor(sa.fx + (sb.fx-sa.fx)*t))
		y := int(gomath.Floor(sa.fy + (sb.fy-sa.fy)*t))
		if x < 0 || y < 0 || x >= r.width || y >= r.height {
			continue
		}
		emit(x, y, float32(sa.z+(sb.z-sa.z)*t))
	}
}
