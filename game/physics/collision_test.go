package physics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ungerik/go3d/float64/vec2"

	"github.com/kasuganosora/mazechase/game/maze"
)

const (
	tile   = 32.0
	radius = 6.4
)

func mustGrid(t *testing.T, rows ...string) *maze.Grid {
	t.Helper()
	g, err := maze.Parse(rows)
	require.NoError(t, err)
	return g
}

func TestResolve_FreeMovement(t *testing.T) {
	g := mustGrid(t,
		"#####",
		"#...#",
		"#...#",
		"#...#",
		"#####",
	)
	r := NewResolver(g, tile, radius)
	start := maze.Point{X: 2, Y: 2}.Center(tile)
	got := r.Resolve(start, vec2.T{100, 0}, 0.1)
	assert.InDelta(t, start[0]+10, got[0], 1e-9)
	assert.InDelta(t, start[1], got[1], 1e-9)
}

func TestResolve_StopsAtWall(t *testing.T) {
	g := mustGrid(t,
		"#####",
		"#...#",
		"#####",
	)
	r := NewResolver(g, tile, radius)
	start := maze.Point{X: 3, Y: 1}.Center(tile)
	got := r.Resolve(start, vec2.T{1000, 0}, 0.033)
	// right wall starts at x = 4*tile
	assert.InDelta(t, 4*tile-radius, got[0], 1e-6)
	assert.InDelta(t, start[1], got[1], 1e-6)
	assert.Zero(t, r.Penetration(got))
}

func TestResolve_SlidesAlongWall(t *testing.T) {
	g := mustGrid(t,
		"######",
		"#....#",
		"######",
	)
	r := NewResolver(g, tile, radius)
	start := maze.Point{X: 1, Y: 1}.Center(tile)
	// diagonal into the bottom wall: y is blocked, x keeps going
	got := r.Resolve(start, vec2.T{200, 1000}, 0.033)
	assert.InDelta(t, start[0]+200*0.033, got[0], 1e-6)
	assert.InDelta(t, 2*tile-radius, got[1], 1e-6)
}

func TestResolve_NoTunnelingAtHighSpeed(t *testing.T) {
	g := mustGrid(t,
		"#######",
		"#..#..#",
		"#######",
	)
	r := NewResolver(g, tile, radius)
	start := maze.Point{X: 1, Y: 1}.Center(tile)
	// 5000 px/s * 0.033 = 165 px, several tiles in one frame
	got := r.Resolve(start, vec2.T{5000, 0}, 0.033)
	assert.Less(t, got[0], 3*tile, "must not pass the wall at column 3")
	assert.InDelta(t, 3*tile-radius, got[0], 1e-6)
}

func TestResolve_ClampsToWorld(t *testing.T) {
	g := mustGrid(t,
		"...",
		"...",
	)
	r := NewResolver(g, tile, radius)
	got := r.Resolve(vec2.T{10, 10}, vec2.T{-1000, -1000}, 0.1)
	assert.InDelta(t, radius, got[0], 1e-9)
	assert.InDelta(t, radius, got[1], 1e-9)
}

func TestResolve_ContainmentUnderRandomInput(t *testing.T) {
	gen := maze.NewGenerator(rand.New(rand.NewSource(42)))
	g := gen.Generate(51, 25, maze.Params{
		Rooms:      maze.DefaultRooms(3),
		Highways:   maze.HighwayParams{Horiz: 1, Vert: 1, Thickness: 1},
		BraidRatio: 0.28,
		Openness:   0.35,
	})
	r := NewResolver(g, tile, radius)
	rng := rand.New(rand.NewSource(7))

	for agent := 0; agent < 10; agent++ {
		pos := maze.FindSpawn(g, rng, maze.SpawnOptions{Tile: tile})
		require.Zero(t, r.Penetration(pos))
		for i := 0; i < 500; i++ {
			speed := rng.Float64() * 3000
			angle := rng.Float64() * 2 * math.Pi
			vel := vec2.T{math.Cos(angle) * speed, math.Sin(angle) * speed}
			dt := rng.Float64() * 0.033
			pos = r.Resolve(pos, vel, dt)
			require.LessOrEqual(t, r.Penetration(pos), 1e-6, "agent %d step %d at %v", agent, i, pos)
			require.True(t, g.Passable(maze.CellAt(pos, tile)), "center left the floor at %v", pos)
		}
	}
}

func TestPenetration_InsideWall(t *testing.T) {
	g := mustGrid(t,
		"###",
		"#.#",
		"###",
	)
	r := NewResolver(g, tile, radius)
	assert.Zero(t, r.Penetration(maze.Point{X: 1, Y: 1}.Center(tile)))
	assert.Greater(t, r.Penetration(vec2.T{tile + 2, tile + 16}), 0.0)
}
