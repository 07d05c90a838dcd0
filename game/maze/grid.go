package maze

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ungerik/go3d/float64/vec2"
)

// Cell is the state of a single grid tile.
type Cell uint8

const (
	Floor Cell = iota
	Wall
)

// Point is an integer grid coordinate.
type Point struct {
	X, Y int
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{p.X + d.X, p.Y + d.Y}
}

// Center returns the world-space center of the tile at p.
func (p Point) Center(tile float64) vec2.T {
	return vec2.T{(float64(p.X) + 0.5) * tile, (float64(p.Y) + 0.5) * tile}
}

// Dirs4 is the 4-connected neighbourhood in up, right, down, left order.
var Dirs4 = [4]Point{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// CellAt converts a world position to the tile containing it.
func CellAt(pos vec2.T, tile float64) Point {
	return Point{int(math.Floor(pos[0] / tile)), int(math.Floor(pos[1] / tile))}
}

// Grid is a W×H floor/wall map. Once returned by the generator it is
// never written again, so it can be shared between goroutines.
type Grid struct {
	W, H  int
	cells []Cell
}

// NewGrid returns a w×h grid filled with walls.
func NewGrid(w, h int) *Grid {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	g := &Grid{W: w, H: h, cells: make([]Cell, w*h)}
	for i := range g.cells {
		g.cells[i] = Wall
	}
	return g
}

// InBounds reports whether (x, y) lies inside the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.W && y < g.H
}

// At returns the cell at (x, y). Out-of-bounds reads are walls.
func (g *Grid) At(x, y int) Cell {
	if !g.InBounds(x, y) {
		return Wall
	}
	return g.cells[y*g.W+x]
}

// Passable reports whether p is an in-bounds floor cell.
func (g *Grid) Passable(p Point) bool {
	return g.At(p.X, p.Y) == Floor
}

func (g *Grid) set(x, y int, c Cell) {
	if g.InBounds(x, y) {
		g.cells[y*g.W+x] = c
	}
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	out := &Grid{W: g.W, H: g.H, cells: make([]Cell, len(g.cells))}
	copy(out.cells, g.cells)
	return out
}

// FloorCount returns the number of floor cells.
func (g *Grid) FloorCount() int {
	n := 0
	for _, c := range g.cells {
		if c == Floor {
			n++
		}
	}
	return n
}

// floorNeighbours counts the 4-connected floor neighbours of (x, y).
func (g *Grid) floorNeighbours(x, y int) int {
	n := 0
	for _, d := range Dirs4 {
		if g.At(x+d.X, y+d.Y) == Floor {
			n++
		}
	}
	return n
}

// Flood returns every floor cell reachable from start in BFS order.
// The result is empty when start is not a floor cell.
func (g *Grid) Flood(start Point) []Point {
	if !g.Passable(start) {
		return nil
	}
	seen := make([]bool, len(g.cells))
	seen[start.Y*g.W+start.X] = true
	out := []Point{start}
	for i := 0; i < len(out); i++ {
		cur := out[i]
		for _, d := range Dirs4 {
			n := cur.Add(d)
			if !g.Passable(n) || seen[n.Y*g.W+n.X] {
				continue
			}
			seen[n.Y*g.W+n.X] = true
			out = append(out, n)
		}
	}
	return out
}

// Rows renders the grid as one string per row, '#' for walls and '.' for floor.
func (g *Grid) Rows() []string {
	rows := make([]string, g.H)
	var sb strings.Builder
	for y := 0; y < g.H; y++ {
		sb.Reset()
		for x := 0; x < g.W; x++ {
			if g.At(x, y) == Wall {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		rows[y] = sb.String()
	}
	return rows
}

func (g *Grid) String() string {
	return strings.Join(g.Rows(), "\n")
}

// ErrRaggedRows is returned by Parse when rows differ in length.
var ErrRaggedRows = errors.New("maze: rows have different lengths")

// Parse builds a grid from rows produced by Rows.
func Parse(rows []string) (*Grid, error) {
	if len(rows) == 0 {
		return NewGrid(0, 0), nil
	}
	g := NewGrid(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != g.W {
			return nil, ErrRaggedRows
		}
		for x := 0; x < len(row); x++ {
			switch row[x] {
			case '#':
			case '.':
				g.set(x, y, Floor)
			default:
				return nil, fmt.Errorf("maze: invalid cell %q at (%d,%d)", row[x], x, y)
			}
		}
	}
	return g, nil
}
