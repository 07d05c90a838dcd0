package maze

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGen(seed int64) *Generator {
	return NewGenerator(rand.New(rand.NewSource(seed)))
}

func testParams() Params {
	return Params{
		Rooms:      DefaultRooms(3),
		Highways:   HighwayParams{Horiz: 1, Vert: 1, Thickness: 1},
		BraidRatio: 0.28,
		Openness:   0.35,
	}
}

func assertBorder(t *testing.T, g *Grid) {
	t.Helper()
	for x := 0; x < g.W; x++ {
		assert.Equal(t, Wall, g.At(x, 0), "top (%d)", x)
		assert.Equal(t, Wall, g.At(x, g.H-1), "bottom (%d)", x)
	}
	for y := 0; y < g.H; y++ {
		assert.Equal(t, Wall, g.At(0, y), "left (%d)", y)
		assert.Equal(t, Wall, g.At(g.W-1, y), "right (%d)", y)
	}
}

func TestGenerate_BorderIsWall(t *testing.T) {
	sizes := [][2]int{{51, 25}, {21, 21}, {20, 14}, {7, 5}, {3, 3}}
	for seed := int64(1); seed <= 10; seed++ {
		for _, sz := range sizes {
			g := newGen(seed).Generate(sz[0], sz[1], testParams())
			require.Equal(t, sz[0], g.W)
			require.Equal(t, sz[1], g.H)
			assertBorder(t, g)
		}
	}
}

func TestCarve_AllFloorReachable(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		for _, sz := range [][2]int{{51, 25}, {20, 14}, {9, 9}} {
			g := NewGrid(sz[0], sz[1])
			newGen(seed).Carve(g, 1, 1)
			reached := g.Flood(Point{1, 1})
			assert.Equal(t, g.FloorCount(), len(reached), "seed %d size %v", seed, sz)
			assertBorder(t, g)
		}
	}
}

func TestCarve_PerfectMazeHasNoLoops(t *testing.T) {
	g := NewGrid(31, 21)
	newGen(7).Carve(g, 1, 1)

	// a tree on n nodes has n-1 edges
	edges := 0
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			if g.At(x, y) != Floor {
				continue
			}
			if g.At(x+1, y) == Floor {
				edges++
			}
			if g.At(x, y+1) == Floor {
				edges++
			}
		}
	}
	assert.Equal(t, g.FloorCount()-1, edges)
}

func TestCarve_EvenStartIsAligned(t *testing.T) {
	g := NewGrid(11, 11)
	newGen(1).Carve(g, 2, 2)
	assert.Equal(t, Floor, g.At(3, 3))
}

func floorSet(g *Grid) map[Point]bool {
	out := make(map[Point]bool)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			if g.At(x, y) == Floor {
				out[Point{x, y}] = true
			}
		}
	}
	return out
}

func assertOnlyAdds(t *testing.T, before, after *Grid) {
	t.Helper()
	assert.GreaterOrEqual(t, after.FloorCount(), before.FloorCount())
	a := floorSet(after)
	for p := range floorSet(before) {
		assert.True(t, a[p], "floor %v turned into wall", p)
	}
}

func TestPasses_OnlyAddFloor(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		gen := newGen(seed)
		g := NewGrid(51, 25)
		gen.Carve(g, 1, 1)

		before := g.Clone()
		gen.AddRooms(g, DefaultRooms(3))
		assertOnlyAdds(t, before, g)

		before = g.Clone()
		gen.CarveHighways(g, HighwayParams{Horiz: 2, Vert: 2, Thickness: 2})
		assertOnlyAdds(t, before, g)

		before = g.Clone()
		gen.BraidDeadEnds(g, 1.0)
		assertOnlyAdds(t, before, g)

		before = g.Clone()
		gen.OpenWalls(g, 0.5)
		assertOnlyAdds(t, before, g)

		assert.Equal(t, g.FloorCount(), len(g.Flood(Point{1, 1})), "seed %d lost connectivity", seed)
	}
}

func TestBraid_FullRatioRemovesMostDeadEnds(t *testing.T) {
	gen := newGen(3)
	g := NewGrid(41, 21)
	gen.Carve(g, 1, 1)
	before := len(DeadEnds(g))
	require.Positive(t, before)

	gen.BraidDeadEnds(g, 1.0)
	assert.Less(t, len(DeadEnds(g)), before)
}

func TestBraid_ZeroRatioIsNoop(t *testing.T) {
	gen := newGen(3)
	g := NewGrid(41, 21)
	gen.Carve(g, 1, 1)
	before := g.Clone()
	gen.BraidDeadEnds(g, 0)
	assert.Equal(t, before.Rows(), g.Rows())
}

func TestOpenWalls_ZeroProbabilityIsNoop(t *testing.T) {
	gen := newGen(5)
	g := NewGrid(21, 11)
	gen.Carve(g, 1, 1)
	before := g.Clone()
	gen.OpenWalls(g, 0)
	assert.Equal(t, before.Rows(), g.Rows())
}

func TestAddRooms_OnSolidGrid(t *testing.T) {
	gen := newGen(11)
	g := NewGrid(51, 25)
	placed := gen.AddRooms(g, DefaultRooms(3))
	assert.Positive(t, placed)
	assert.LessOrEqual(t, placed, 3)
	assert.GreaterOrEqual(t, g.FloorCount(), placed*9)
	assertBorder(t, g)
}

func TestAddRooms_AfterCarveDegradesGracefully(t *testing.T) {
	gen := newGen(11)
	g := NewGrid(51, 25)
	gen.Carve(g, 1, 1)
	before := g.Clone()
	placed := gen.AddRooms(g, DefaultRooms(3))
	assert.GreaterOrEqual(t, placed, 0)
	assertOnlyAdds(t, before, g)
}

func TestCarveHighways_CrossesInterior(t *testing.T) {
	gen := newGen(2)
	g := NewGrid(21, 15)
	gen.CarveHighways(g, HighwayParams{Horiz: 1, Thickness: 1})

	full := 0
	for y := 1; y < g.H-1; y++ {
		row := true
		for x := 1; x < g.W-1; x++ {
			row = row && g.At(x, y) == Floor
		}
		if row {
			full++
			assert.Equal(t, 1, y%2, "highway row must be odd")
		}
	}
	assert.Equal(t, 1, full)
	assertBorder(t, g)
}

func TestParse_RoundTrip(t *testing.T) {
	rows := []string{
		"#####",
		"#..##",
		"#.#.#",
		"#####",
	}
	g, err := Parse(rows)
	require.NoError(t, err)
	assert.Equal(t, 5, g.W)
	assert.Equal(t, 4, g.H)
	assert.Equal(t, 4, g.FloorCount())
	assert.Equal(t, rows, g.Rows())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]string{"###", "##"})
	assert.ErrorIs(t, err, ErrRaggedRows)

	_, err = Parse([]string{"#x#"})
	assert.Error(t, err)
}

func TestAt_OutOfBoundsIsWall(t *testing.T) {
	g, _ := Parse([]string{"."})
	assert.Equal(t, Floor, g.At(0, 0))
	assert.Equal(t, Wall, g.At(-1, 0))
	assert.Equal(t, Wall, g.At(0, 1))
	assert.False(t, g.Passable(Point{5, 5}))
}

func TestFindSpawn_ReturnsClearTileCenter(t *testing.T) {
	g := newGen(4).Generate(51, 25, testParams())
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		pos := FindSpawn(g, rng, SpawnOptions{Clearance: 1, Tile: 32})
		p := CellAt(pos, 32)
		if g.Clear(p, 1) {
			assert.Equal(t, p.Center(32), pos)
			continue
		}
		// only the degenerate fallback may be unclear
		assert.Equal(t, Point{}, p)
	}
}

func TestFindSpawn_ScanFallback(t *testing.T) {
	g, err := Parse([]string{
		"#####",
		"#####",
		"###.#",
		"#####",
	})
	require.NoError(t, err)
	pos := FindSpawn(g, rand.New(rand.NewSource(1)), SpawnOptions{Tries: 1, Tile: 10})
	assert.Equal(t, Point{3, 2}, CellAt(pos, 10))
	assert.InDelta(t, 35.0, pos[0], 1e-9)
	assert.InDelta(t, 25.0, pos[1], 1e-9)
}

func TestFindSpawn_AllWallFallback(t *testing.T) {
	g := NewGrid(4, 4)
	pos := FindSpawn(g, rand.New(rand.NewSource(1)), SpawnOptions{Tile: 32})
	assert.InDelta(t, 16.0, pos[0], 1e-9)
	assert.InDelta(t, 16.0, pos[1], 1e-9)

	empty := NewGrid(0, 0)
	pos = FindSpawn(empty, rand.New(rand.NewSource(1)), SpawnOptions{Tile: 32})
	assert.InDelta(t, 16.0, pos[0], 1e-9)
}

func TestFindSpawn_RejectIsDroppedWhenNothingElseFits(t *testing.T) {
	g, _ := Parse([]string{
		"###",
		"#.#",
		"###",
	})
	pos := FindSpawn(g, rand.New(rand.NewSource(1)), SpawnOptions{
		Tile:   10,
		Reject: func(Point) bool { return true },
	})
	assert.Equal(t, Point{1, 1}, CellAt(pos, 10))
}
