package nav

// World bundles the layers shared by every flow field of one loaded map.
// Grid, Groups and Walls are immutable; Density is mutated by agents and
// read by every field, so it is shared by pointer rather than copied.
type World struct {
	Grid    *Grid
	Groups  *ConnectivityIndex
	Walls   *WallProximityField
	Density *DensityField
}

// NewWorld builds the connectivity index and wall field for a grid and
// allocates an empty density field.
func NewWorld(g *Grid, wallRadius, wallFactor float64) *World {
	return &World{
		Grid:    g,
		Groups:  BuildConnectivity(g),
		Walls:   BuildWallProximity(g, wallRadius, wallFactor),
		Density: NewDensityField(g),
	}
}

// IsReachable reports whether two world positions lie in the same open region.
func (w *World) IsReachable(a, b Vec2) bool {
	ax, az := w.coarseOf(a)
	bx, bz := w.coarseOf(b)
	return w.Groups.AreConnected(ax, az, bx, bz)
}

func (w *World) coarseOf(p Vec2) (int, int) {
	fx, fz := FineCellOf(w.Grid.WorldToFine(p))
	return w.Grid.FineToCoarse(fx, fz)
}
