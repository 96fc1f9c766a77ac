package labels

import (
	"fmt"
	"math"
)

// DefaultCellSize is the grid cell edge in screen pixels.
const DefaultCellSize = 40.0

// CellID is a grid cell key, (floor(x/cell), floor(y/cell)).
type CellID struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c CellID) String() string { return fmt.Sprintf("%d:%d", c.X, c.Y) }

// GridCell accumulates the candidates whose anchors fall in one cell.
type GridCell struct {
	Count       int
	PrioritySum float64
	Members     []string
}

// DensityGrid buckets anchor screen positions to measure local crowding.
// It is rebuilt for every pass.
type DensityGrid struct {
	cellSize float64
	width    float64
	height   float64
	cells    map[CellID]*GridCell
}

// NewDensityGrid creates a grid with the given cell size, DefaultCellSize when not positive.
func NewDensityGrid(cellSize float64) *DensityGrid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &DensityGrid{cellSize: cellSize, cells: make(map[CellID]*GridCell)}
}

// Reset clears the grid for a viewport of the given size.
func (g *DensityGrid) Reset(width, height float64) {
	g.width, g.height = width, height
	g.cells = make(map[CellID]*GridCell)
}

// Insert adds one point and returns its cell. Coordinates outside the
// viewport are clamped onto its edge.
func (g *DensityGrid) Insert(x, y float64, id string, priority float64) CellID {
	key := g.key(x, y)
	c, ok := g.cells[key]
	if !ok {
		c = &GridCell{}
		g.cells[key] = c
	}
	c.Count++
	c.PrioritySum += priority
	c.Members = append(c.Members, id)
	return key
}

// Cell returns a copy of the cell at id.
func (g *DensityGrid) Cell(id CellID) (GridCell, bool) {
	c, ok := g.cells[id]
	if !ok {
		return GridCell{}, false
	}
	return *c, true
}

// DensityScore is 1/ln(1+n) where n counts members of the cell and its 8 neighbours.
// An empty neighbourhood scores 1.
func (g *DensityGrid) DensityScore(id CellID) float64 {
	n := 0
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if c, ok := g.cells[CellID{X: id.X + dx, Y: id.Y + dy}]; ok {
				n += c.Count
			}
		}
	}
	if n == 0 {
		return 1
	}
	return 1 / math.Log(1+float64(n))
}

func (g *DensityGrid) key(x, y float64) CellID {
	x, y = clampCoord(x, g.width), clampCoord(y, g.height)
	return CellID{
		X: int(math.Floor(x / g.cellSize)),
		Y: int(math.Floor(y / g.cellSize)),
	}
}

func clampCoord(v, limit float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if limit > 0 && v > limit {
		return limit
	}
	return v
}
