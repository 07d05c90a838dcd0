package maze

import (
	"math/rand"
	"time"
)

// RoomParams bounds room placement. Sizes are forced odd and at least 3.
type RoomParams struct {
	Count int `mapstructure:"count"`
	MinW  int `mapstructure:"min_w"`
	MaxW  int `mapstructure:"max_w"`
	MinH  int `mapstructure:"min_h"`
	MaxH  int `mapstructure:"max_h"`
}

// HighwayParams controls the straight corridors cut across the maze.
type HighwayParams struct {
	Horiz     int `mapstructure:"horiz"`
	Vert      int `mapstructure:"vert"`
	Thickness int `mapstructure:"thickness"`
}

// Params drives the post-processing passes that follow the DFS carve.
type Params struct {
	Rooms      RoomParams    `mapstructure:"rooms"`
	Highways   HighwayParams `mapstructure:"highways"`
	BraidRatio float64       `mapstructure:"braid_ratio"`
	Openness   float64       `mapstructure:"openness"`
}

// DefaultRooms matches the room size range used by every difficulty.
func DefaultRooms(count int) RoomParams {
	return RoomParams{Count: count, MinW: 3, MaxW: 7, MinH: 3, MaxH: 5}
}

// Generator carves mazes using its own random source.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a Generator drawing from rng.
// A nil rng is replaced by a time-seeded source.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng}
}

// Generate runs the full pipeline: carve, rooms, highways, braid, openness.
// It never fails; exhausted retries just yield a sparser maze.
func (gen *Generator) Generate(w, h int, p Params) *Grid {
	g := NewGrid(w, h)
	gen.Carve(g, 1, 1)
	gen.AddRooms(g, p.Rooms)
	gen.CarveHighways(g, p.Highways)
	gen.BraidDeadEnds(g, p.BraidRatio)
	gen.OpenWalls(g, p.Openness)
	return g
}

// randInt returns a uniform int in [lo, hi].
func (gen *Generator) randInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + gen.rng.Intn(hi-lo+1)
}

// interior reports whether (x, y) is inside the one-cell border.
func interior(g *Grid, x, y int) bool {
	return x >= 1 && y >= 1 && x <= g.W-2 && y <= g.H-2
}

var carveDirs = [4]Point{{0, -2}, {2, 0}, {0, 2}, {-2, 0}}

// Carve runs an iterative randomized DFS on a 2-cell stride from the
// odd-aligned cell nearest (sx, sy), producing a perfect maze.
func (gen *Generator) Carve(g *Grid, sx, sy int) {
	if sx%2 == 0 {
		sx++
	}
	if sy%2 == 0 {
		sy++
	}
	if !interior(g, sx, sy) {
		return
	}
	g.set(sx, sy, Floor)
	stack := []Point{{sx, sy}}
	dirs := carveDirs
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		gen.rng.Shuffle(len(dirs), func(i, j int) { dirs[i], dirs[j] = dirs[j], dirs[i] })
		carved := false
		for _, d := range dirs {
			nx, ny := cur.X+d.X, cur.Y+d.Y
			if !interior(g, nx, ny) || g.At(nx, ny) != Wall {
				continue
			}
			g.set(cur.X+d.X/2, cur.Y+d.Y/2, Floor)
			g.set(nx, ny, Floor)
			stack = append(stack, Point{nx, ny})
			carved = true
			break
		}
		if !carved {
			stack = stack[:len(stack)-1]
		}
	}
}

// AddRooms places up to p.Count rectangular rooms whose footprint plus a
// one-cell margin is solid wall. It gives up after Count*12 attempts.
// Returns the number of rooms placed.
func (gen *Generator) AddRooms(g *Grid, p RoomParams) int {
	placed := 0
	for tries := 0; placed < p.Count && tries < p.Count*12; tries++ {
		rw := max(3, gen.randInt(p.MinW, p.MaxW)) | 1
		rh := max(3, gen.randInt(p.MinH, p.MaxH)) | 1
		rx := gen.randInt(1, g.W-rw-2) | 1
		ry := gen.randInt(1, g.H-rh-2) | 1
		if !interior(g, rx, ry) || !interior(g, rx+rw-1, ry+rh-1) {
			continue
		}
		if !gen.solid(g, rx-1, ry-1, rw+2, rh+2) {
			continue
		}
		for y := ry; y < ry+rh; y++ {
			for x := rx; x < rx+rw; x++ {
				g.set(x, y, Floor)
			}
		}
		doors := gen.randInt(1, 2)
		for i := 0; i < doors; i++ {
			gen.punchDoor(g, rx, ry, rw, rh)
		}
		placed++
	}
	return placed
}

func (gen *Generator) solid(g *Grid, x0, y0, w, h int) bool {
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			if !g.InBounds(x, y) || g.At(x, y) == Floor {
				return false
			}
		}
	}
	return true
}

// punchDoor opens the wall on a random side of the room, but only when the
// cell beyond it is floor so the door leads somewhere.
func (gen *Generator) punchDoor(g *Grid, rx, ry, rw, rh int) {
	var door, out Point
	switch gen.randInt(0, 3) {
	case 0:
		x := gen.randInt(rx, rx+rw-1) | 1
		door, out = Point{x, ry - 1}, Point{x, ry - 2}
	case 1:
		y := gen.randInt(ry, ry+rh-1) | 1
		door, out = Point{rx + rw, y}, Point{rx + rw + 1, y}
	case 2:
		x := gen.randInt(rx, rx+rw-1) | 1
		door, out = Point{x, ry + rh}, Point{x, ry + rh + 1}
	default:
		y := gen.randInt(ry, ry+rh-1) | 1
		door, out = Point{rx - 1, y}, Point{rx - 2, y}
	}
	if interior(g, door.X, door.Y) && g.Passable(out) {
		g.set(door.X, door.Y, Floor)
	}
}

// CarveHighways cuts straight corridors across the interior at random odd
// offsets, overwriting whatever lies on the line.
func (gen *Generator) CarveHighways(g *Grid, p HighwayParams) {
	thick := max(1, p.Thickness)
	for i := 0; i < p.Horiz; i++ {
		y := gen.randInt(3, g.H-4) | 1
		for t := 0; t < thick; t++ {
			if y+t > g.H-2 {
				continue
			}
			for x := 1; x < g.W-1; x++ {
				g.set(x, y+t, Floor)
			}
		}
	}
	for i := 0; i < p.Vert; i++ {
		x := gen.randInt(3, g.W-4) | 1
		for t := 0; t < thick; t++ {
			if x+t > g.W-2 {
				continue
			}
			for y := 1; y < g.H-1; y++ {
				g.set(x+t, y, Floor)
			}
		}
	}
}

// DeadEnds returns the interior floor cells with exactly one floor neighbour.
func DeadEnds(g *Grid) []Point {
	var out []Point
	for y := 1; y < g.H-1; y++ {
		for x := 1; x < g.W-1; x++ {
			if g.At(x, y) == Floor && g.floorNeighbours(x, y) == 1 {
				out = append(out, Point{x, y})
			}
		}
	}
	return out
}

// BraidDeadEnds removes a ratio of the dead ends by knocking out a wall
// that separates each one from floor two cells away.
func (gen *Generator) BraidDeadEnds(g *Grid, ratio float64) {
	ends := DeadEnds(g)
	gen.rng.Shuffle(len(ends), func(i, j int) { ends[i], ends[j] = ends[j], ends[i] })
	target := int(float64(len(ends)) * ratio)
	for _, e := range ends[:min(target, len(ends))] {
		var cands []Point
		for _, d := range Dirs4 {
			w := e.Add(d)
			beyond := w.Add(d)
			if interior(g, w.X, w.Y) && g.At(w.X, w.Y) == Wall && g.Passable(beyond) {
				cands = append(cands, w)
			}
		}
		if len(cands) == 0 {
			continue
		}
		w := cands[gen.rng.Intn(len(cands))]
		g.set(w.X, w.Y, Floor)
	}
}

// OpenWalls flips, with the given probability, every interior wall that
// separates two opposite floor cells or touches at least three floor cells.
func (gen *Generator) OpenWalls(g *Grid, probability float64) {
	for y := 1; y < g.H-1; y++ {
		for x := 1; x < g.W-1; x++ {
			if g.At(x, y) != Wall {
				continue
			}
			lr := g.At(x-1, y) == Floor && g.At(x+1, y) == Floor
			ud := g.At(x, y-1) == Floor && g.At(x, y+1) == Floor
			if lr || ud || g.floorNeighbours(x, y) >= 3 {
				if gen.rng.Float64() < probability {
					g.set(x, y, Floor)
				}
			}
		}
	}
}
