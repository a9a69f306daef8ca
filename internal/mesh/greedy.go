// Package mesh turns voxel volumes into quad geometry. Greedy merges
// coplanar faces of identical source identity into rectangles; Build
// realizes the quads of an encoded chunk into vertex buffers.
package mesh

// KeyFunc returns the identity of the voxel at a coordinate inside the
// volume. Zero means empty.
type KeyFunc func(x, y, z int) uint32

// Options tune a greedy pass.
type Options struct {
	// SkipAxes leaves out every face normal to the flagged axes.
	SkipAxes [3]bool
	// Visible decides whether the face of self toward neighbor is emitted.
	// neighbor is zero for empty cells and outside the volume. When nil a
	// face is emitted only against empty cells.
	Visible func(self, neighbor uint32) bool
}

// Quad is one merged rectangle. It lies in the plane Axis = Plane and covers
// [U, U+Width) x [V, V+Height) on the two other axes, taken in the order
// (Axis+1)%3 and (Axis+2)%3.
type Quad struct {
	Axis     int
	Positive bool
	Key      uint32
	Plane    int
	U, V     int
	Width    int
	Height   int
	// Corners are in counter-clockwise order seen from the side the face
	// points to.
	Corners [4][3]int
}

func (q Quad) Area() int {
	return q.Width * q.Height
}

// Source returns the voxel that owns the quad's first cell.
func (q Quad) Source() [3]int {
	var p [3]int
	p[q.Axis] = q.Plane
	if q.Positive {
		p[q.Axis]--
	}
	p[(q.Axis+1)%3] = q.U
	p[(q.Axis+2)%3] = q.V
	return p
}

func emptyOnly(_, neighbor uint32) bool {
	return neighbor == 0
}

// Greedy sweeps each axis of a dims-sized volume and returns the merged
// quads. Faces with opposite facings or different keys never merge.
func Greedy(dims [3]int, key KeyFunc, opts Options) []Quad {
	visible := opts.Visible
	if visible == nil {
		visible = emptyOnly
	}
	var quads []Quad

	for d := 0; d < 3; d++ {
		if opts.SkipAxes[d] {
			continue
		}
		u := (d + 1) % 3
		v := (d + 2) % 3
		if dims[u] <= 0 || dims[v] <= 0 {
			continue
		}

		var x, q [3]int
		q[d] = 1
		pos := make([]uint32, dims[u]*dims[v])
		neg := make([]uint32, dims[u]*dims[v])

		for x[d] = -1; x[d] < dims[d]; {
			n := 0
			for x[v] = 0; x[v] < dims[v]; x[v]++ {
				for x[u] = 0; x[u] < dims[u]; x[u]++ {
					var a, b uint32
					if x[d] >= 0 {
						a = key(x[0], x[1], x[2])
					}
					if x[d] < dims[d]-1 {
						b = key(x[0]+q[0], x[1]+q[1], x[2]+q[2])
					}
					pos[n], neg[n] = 0, 0
					if a != 0 && visible(a, b) {
						pos[n] = a
					}
					if b != 0 && visible(b, a) {
						neg[n] = b
					}
					n++
				}
			}
			x[d]++
			quads = mergeMask(quads, pos, d, u, v, x[d], dims, true)
			quads = mergeMask(quads, neg, d, u, v, x[d], dims, false)
		}
	}
	return quads
}

// mergeMask greedily packs one layer mask into rectangles, consuming it.
func mergeMask(quads []Quad, mask []uint32, d, u, v, plane int, dims [3]int, positive bool) []Quad {
	width := dims[u]
	n := 0
	for j := 0; j < dims[v]; j++ {
		for i := 0; i < width; {
			c := mask[n]
			if c == 0 {
				i++
				n++
				continue
			}

			w := 1
			for i+w < width && mask[n+w] == c {
				w++
			}
			h := 1
		grow:
			for j+h < dims[v] {
				for k := 0; k < w; k++ {
					if mask[n+k+h*width] != c {
						break grow
					}
				}
				h++
			}

			quads = append(quads, newQuad(d, u, v, plane, i, j, w, h, c, positive))

			for l := 0; l < h; l++ {
				for k := 0; k < w; k++ {
					mask[n+k+l*width] = 0
				}
			}
			i += w
			n += w
		}
	}
	return quads
}

func newQuad(d, u, v, plane, i, j, w, h int, key uint32, positive bool) Quad {
	var origin, du, dv [3]int
	origin[d] = plane
	origin[u] = i
	origin[v] = j
	du[u] = w
	dv[v] = h

	c0 := origin
	c1 := add(origin, du)
	c2 := add(add(origin, du), dv)
	c3 := add(origin, dv)
	corners := [4][3]int{c0, c1, c2, c3}
	if !positive {
		corners = [4][3]int{c0, c3, c2, c1}
	}
	return Quad{
		Axis:     d,
		Positive: positive,
		Key:      key,
		Plane:    plane,
		U:        i,
		V:        j,
		Width:    w,
		Height:   h,
		Corners:  corners,
	}
}

func add(a, b [3]int) [3]int {
	return [3]int{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}
