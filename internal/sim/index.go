package sim

import (
	"math"

	"crowdflow/internal/nav"
)

// AgentIndex buckets agents into fixed-size world cells for radius queries.
// Entries are indices into the engine's agent slice, not pointers, so the
// index can be cleared and refilled every tick without allocation.
//
// Memory layout: cells are stored in row-major order (cells[row*cols+col])
type AgentIndex struct {
	cellSize    float64
	invCellSize float64
	cols, rows  int
	cells       [][]uint32
	scratch     []uint32 // reusable buffer for query results
}

// IndexStats contains index occupancy for debugging.
type IndexStats struct {
	TotalCells     int     `json:"totalCells"`
	NonEmptyCells  int     `json:"nonEmptyCells"`
	TotalEntries   int     `json:"totalEntries"`
	MaxInCell      int     `json:"maxInCell"`
	AvgPerNonEmpty float64 `json:"avgPerNonEmpty"`
}

// NewAgentIndex creates an index covering a world of the given size.
// maxAgents is used to preallocate cell capacity.
func NewAgentIndex(worldWidth, worldHeight, cellSize float64, maxAgents int) *AgentIndex {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := max(1, int(math.Ceil(worldWidth/cellSize)))
	rows := max(1, int(math.Ceil(worldHeight/cellSize)))

	cells := make([][]uint32, cols*rows)
	perCell := max(4, maxAgents/len(cells))
	for i := range cells {
		cells[i] = make([]uint32, 0, perCell)
	}

	return &AgentIndex{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]uint32, 0, 64),
	}
}

// Clear resets all cells without deallocating underlying memory.
func (ix *AgentIndex) Clear() {
	for i := range ix.cells {
		ix.cells[i] = ix.cells[i][:0]
	}
}

// Insert adds an entry at a world position. Positions outside the world are
// clamped to the border cells.
func (ix *AgentIndex) Insert(id uint32, p nav.Vec2) {
	i := ix.cellIndex(p)
	ix.cells[i] = append(ix.cells[i], id)
}

func (ix *AgentIndex) clampCol(c int) int { return min(max(c, 0), ix.cols-1) }
func (ix *AgentIndex) clampRow(r int) int { return min(max(r, 0), ix.rows-1) }

func (ix *AgentIndex) cellIndex(p nav.Vec2) int {
	col := ix.clampCol(int(math.Floor(p.X * ix.invCellSize)))
	row := ix.clampRow(int(math.Floor(p.Z * ix.invCellSize)))
	return row*ix.cols + col
}

// QueryRadius returns all entries potentially within radius of center.
//
// IMPORTANT: The returned slice is reused on subsequent calls.
// Candidates may lie outside the radius; callers do the exact distance check.
func (ix *AgentIndex) QueryRadius(center nav.Vec2, radius float64) []uint32 {
	ix.scratch = ix.scratch[:0]
	if radius < 0 || math.IsNaN(radius) {
		return ix.scratch
	}

	minCol := ix.clampCol(int(math.Floor((center.X - radius) * ix.invCellSize)))
	maxCol := ix.clampCol(int(math.Floor((center.X + radius) * ix.invCellSize)))
	minRow := ix.clampRow(int(math.Floor((center.Z - radius) * ix.invCellSize)))
	maxRow := ix.clampRow(int(math.Floor((center.Z + radius) * ix.invCellSize)))

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			ix.scratch = append(ix.scratch, ix.cells[row*ix.cols+col]...)
		}
	}
	return ix.scratch
}

// Stats returns index occupancy.
func (ix *AgentIndex) Stats() IndexStats {
	var total, maxInCell, nonEmpty int
	for _, cell := range ix.cells {
		n := len(cell)
		total += n
		maxInCell = max(maxInCell, n)
		if n > 0 {
			nonEmpty++
		}
	}

	avg := 0.0
	if nonEmpty > 0 {
		avg = float64(total) / float64(nonEmpty)
	}
	return IndexStats{
		TotalCells:     len(ix.cells),
		NonEmptyCells:  nonEmpty,
		TotalEntries:   total,
		MaxInCell:      maxInCell,
		AvgPerNonEmpty: avg,
	}
}
