package terrain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"crowdflow/internal/nav"
)

// ErrInvalidMap is returned for malformed ASCII maps.
var ErrInvalidMap = errors.New("invalid map")

// ParseMap reads a map of '#' (obstacle) and '.' (open) rows.
// The first row is z=0. Blank lines and lines starting with ';' are skipped.
func ParseMap(r io.Reader, cellSize float64, density int) (*nav.Grid, error) {
	var rows []string

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		row := strings.TrimRight(sc.Text(), " \t\r")
		if row == "" || strings.HasPrefix(row, ";") {
			continue
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, fmt.Errorf("%w: line %d has width %d, expected %d", ErrInvalidMap, line, len(row), len(rows[0]))
		}
		for i, c := range row {
			if c != '#' && c != '.' {
				return nil, fmt.Errorf("%w: line %d col %d: unexpected %q", ErrInvalidMap, line, i+1, c)
			}
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidMap)
	}

	g := nav.NewGrid(len(rows[0]), len(rows), cellSize, density)
	for z, row := range rows {
		for x := 0; x < len(row); x++ {
			g.SetObstacle(x, z, row[x] == '#')
		}
	}
	return g, nil
}

// LoadMap parses an ASCII map file.
func LoadMap(path string, cellSize float64, density int) (*nav.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map: %w", err)
	}
	defer f.Close()

	g, err := ParseMap(f, cellSize, density)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return g, nil
}

// Format renders a grid in the ParseMap format.
func Format(g *nav.Grid) string {
	var sb strings.Builder
	sb.Grow((g.Width() + 1) * g.Height())
	for z := 0; z < g.Height(); z++ {
		for x := 0; x < g.Width(); x++ {
			if g.IsObstacle(x, z) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
