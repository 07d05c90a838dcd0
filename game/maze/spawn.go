package maze

import (
	"math/rand"

	"github.com/ungerik/go3d/float64/vec2"
)

// DefaultSpawnTries is the number of random samples before falling back to a scan.
const DefaultSpawnTries = 400

// SpawnOptions tunes FindSpawn.
type SpawnOptions struct {
	// Clearance is the Chebyshev radius of floor required around the tile.
	Clearance int
	Tries     int
	Tile      float64
	// Reject, when set, vetoes otherwise clear tiles (e.g. too close to the player).
	Reject func(Point) bool
}

// Clear reports whether every cell within clearance of p is floor.
func (g *Grid) Clear(p Point, clearance int) bool {
	for dy := -clearance; dy <= clearance; dy++ {
		for dx := -clearance; dx <= clearance; dx++ {
			if !g.Passable(Point{p.X + dx, p.Y + dy}) {
				return false
			}
		}
	}
	return true
}

// FindSpawn picks a random clear tile and returns its world-space center.
// After opts.Tries misses it scans the grid row by row, dropping Reject if
// nothing passes it. A grid with no clear tile yields the center of (0,0).
func FindSpawn(g *Grid, rng *rand.Rand, opts SpawnOptions) vec2.T {
	tries := opts.Tries
	if tries <= 0 {
		tries = DefaultSpawnTries
	}
	ok := func(p Point) bool {
		return g.Clear(p, opts.Clearance) && (opts.Reject == nil || !opts.Reject(p))
	}
	if g.W > 0 && g.H > 0 {
		for i := 0; i < tries; i++ {
			p := Point{rng.Intn(g.W), rng.Intn(g.H)}
			if ok(p) {
				return p.Center(opts.Tile)
			}
		}
		if p, found := g.scan(ok); found {
			return p.Center(opts.Tile)
		}
		if p, found := g.scan(func(p Point) bool { return g.Clear(p, opts.Clearance) }); found {
			return p.Center(opts.Tile)
		}
	}
	return Point{}.Center(opts.Tile)
}

func (g *Grid) scan(ok func(Point) bool) (Point, bool) {
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			if p := (Point{x, y}); ok(p) {
				return p, true
			}
		}
	}
	return Point{}, false
}
