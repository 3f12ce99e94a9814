package nav

// ConnectivityIndex partitions open coarse cells into 4-connected groups.
// Group id 0 marks obstacles; any positive id is one connected region.
// Diagonal steps do not connect groups, matching the stricter movement test.
type ConnectivityIndex struct {
	width, height int
	groups        []int32
	sizes         []int // sizes[id] = cell count, sizes[0] unused
}

// cardinal offsets for flood fill
var cardinalDirs = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// BuildConnectivity flood-fills every open cell of the grid.
// Uses an explicit stack so large open regions cannot exhaust the goroutine stack.
//
// Time complexity: O(width × height)
func BuildConnectivity(g *Grid) *ConnectivityIndex {
	w, h := g.Width(), g.Height()
	idx := &ConnectivityIndex{
		width:  w,
		height: h,
		groups: make([]int32, w*h),
		sizes:  []int{0},
	}

	stack := make([]int, 0, 64)
	next := int32(1)

	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			start := z*w + x
			if !g.IsOpen(x, z) || idx.groups[start] != 0 {
				continue
			}

			id := next
			next++
			size := 0

			idx.groups[start] = id
			stack = append(stack[:0], start)

			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				size++

				cx, cz := cur%w, cur/w
				for _, d := range cardinalDirs {
					nx, nz := cx+d[0], cz+d[1]
					if !g.IsOpen(nx, nz) {
						continue
					}
					n := nz*w + nx
					if idx.groups[n] != 0 {
						continue
					}
					idx.groups[n] = id
					stack = append(stack, n)
				}
			}

			idx.sizes = append(idx.sizes, size)
		}
	}

	return idx
}

// GroupOf returns the group id of a coarse cell, 0 for obstacles and out of bounds.
func (c *ConnectivityIndex) GroupOf(x, z int) int {
	if x < 0 || x >= c.width || z < 0 || z >= c.height {
		return 0
	}
	return int(c.groups[z*c.width+x])
}

// AreConnected reports whether two coarse cells are mutually reachable.
func (c *ConnectivityIndex) AreConnected(x1, z1, x2, z2 int) bool {
	a := c.GroupOf(x1, z1)
	if a == 0 {
		return false
	}
	return a == c.GroupOf(x2, z2)
}

// GroupCount returns the number of connected open regions.
func (c *ConnectivityIndex) GroupCount() int { return len(c.sizes) - 1 }

// GroupSize returns the number of coarse cells in a group, 0 for unknown ids.
func (c *ConnectivityIndex) GroupSize(id int) int {
	if id <= 0 || id >= len(c.sizes) {
		return 0
	}
	return c.sizes[id]
}

// LargestGroup returns the id of the biggest region, 0 when there are no open cells.
func (c *ConnectivityIndex) LargestGroup() int {
	best, bestSize := 0, 0
	for id := 1; id < len(c.sizes); id++ {
		if c.sizes[id] > bestSize {
			best, bestSize = id, c.sizes[id]
		}
	}
	return best
}
