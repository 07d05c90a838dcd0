package ai

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/mazechase/game/maze"
)

func mustGrid(t *testing.T, rows ...string) *maze.Grid {
	t.Helper()
	g, err := maze.Parse(rows)
	require.NoError(t, err)
	return g
}

func bfsDistance(g *maze.Grid, from, to maze.Point) int {
	dist := map[maze.Point]int{from: 0}
	queue := []maze.Point{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			return dist[cur]
		}
		for _, d := range maze.Dirs4 {
			n := cur.Add(d)
			if _, ok := dist[n]; ok || !g.Passable(n) {
				continue
			}
			dist[n] = dist[cur] + 1
			queue = append(queue, n)
		}
	}
	return -1
}

func assertContiguous(t *testing.T, g *maze.Grid, start maze.Point, path []maze.Point) {
	t.Helper()
	prev := start
	for _, p := range path {
		assert.True(t, g.Passable(p), "path crosses wall at %v", p)
		dx, dy := p.X-prev.X, p.Y-prev.Y
		assert.Equal(t, 1, dx*dx+dy*dy, "non-adjacent step %v -> %v", prev, p)
		prev = p
	}
}

func TestFindPath_PlusShape(t *testing.T) {
	g := mustGrid(t,
		"#####",
		"##.##",
		"#...#",
		"##.##",
		"#####",
	)
	path := FindPath(g, maze.Point{X: 1, Y: 2}, maze.Point{X: 3, Y: 2}, 0)
	require.Len(t, path, 2)
	assert.Equal(t, []maze.Point{{X: 2, Y: 2}, {X: 3, Y: 2}}, path)

	// full plus: arm tip to opposite arm tip through the center
	plus := mustGrid(t,
		"##.##",
		"##.##",
		".....",
		"##.##",
		"##.##",
	)
	path = FindPath(plus, maze.Point{X: 0, Y: 2}, maze.Point{X: 4, Y: 2}, 0)
	assert.Equal(t, []maze.Point{{X: 1, Y: 2}, {X: 2, Y: 2}, {X: 3, Y: 2}, {X: 4, Y: 2}}, path)

	path = FindPath(plus, maze.Point{X: 2, Y: 0}, maze.Point{X: 2, Y: 4}, 0)
	require.Len(t, path, 4)
	assert.Contains(t, path, maze.Point{X: 2, Y: 2})
}

func TestFindPath_Trivial(t *testing.T) {
	g := mustGrid(t,
		"#####",
		"#...#",
		"#####",
	)
	assert.Empty(t, FindPath(g, maze.Point{X: 1, Y: 1}, maze.Point{X: 1, Y: 1}, 0))
	assert.Empty(t, FindPath(g, maze.Point{X: 0, Y: 0}, maze.Point{X: 1, Y: 1}, 0), "start in wall")
	assert.Empty(t, FindPath(g, maze.Point{X: 1, Y: 1}, maze.Point{X: 9, Y: 9}, 0), "goal out of bounds")
	assert.Empty(t, FindPath(nil, maze.Point{}, maze.Point{X: 1}, 0))
}

func TestFindPath_Unreachable(t *testing.T) {
	g := mustGrid(t,
		"#####",
		"#.#.#",
		"#####",
	)
	assert.Empty(t, FindPath(g, maze.Point{X: 1, Y: 1}, maze.Point{X: 3, Y: 1}, 0))
}

func TestFindPath_MatchesBFSOnGeneratedMazes(t *testing.T) {
	params := maze.Params{
		Rooms:      maze.DefaultRooms(3),
		Highways:   maze.HighwayParams{Horiz: 1, Vert: 1, Thickness: 1},
		BraidRatio: 0.28,
		Openness:   0.35,
	}
	for seed := int64(1); seed <= 5; seed++ {
		rng := rand.New(rand.NewSource(seed))
		g := maze.NewGenerator(rng).Generate(31, 21, params)
		floors := g.Flood(maze.Point{X: 1, Y: 1})
		require.NotEmpty(t, floors)
		for i := 0; i < 40; i++ {
			a := floors[rng.Intn(len(floors))]
			b := floors[rng.Intn(len(floors))]
			path := FindPath(g, a, b, 0)
			want := bfsDistance(g, a, b)
			if a == b {
				assert.Empty(t, path)
				continue
			}
			require.Len(t, path, want, "seed %d %v -> %v", seed, a, b)
			assertContiguous(t, g, a, path)
			assert.Equal(t, b, path[len(path)-1])
		}
	}
}

func TestFindPath_TurnPenaltyPrefersStraightRuns(t *testing.T) {
	g := mustGrid(t,
		"#####",
		"#...#",
		"#...#",
		"#...#",
		"#####",
	)
	start, goal := maze.Point{X: 1, Y: 1}, maze.Point{X: 3, Y: 3}
	path := FindPath(g, start, goal, 0.3)
	require.Len(t, path, 4)
	assertContiguous(t, g, start, path)

	turns := 0
	prev, prevDir := start, maze.Point{}
	for i, p := range path {
		d := maze.Point{X: p.X - prev.X, Y: p.Y - prev.Y}
		if i > 0 && d != prevDir {
			turns++
		}
		prev, prevDir = p, d
	}
	assert.Equal(t, 1, turns)
}

func TestFindPath_Deterministic(t *testing.T) {
	g := mustGrid(t,
		"#######",
		"#.....#",
		"#.....#",
		"#.....#",
		"#######",
	)
	first := FindPath(g, maze.Point{X: 1, Y: 1}, maze.Point{X: 5, Y: 3}, 0)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, FindPath(g, maze.Point{X: 1, Y: 1}, maze.Point{X: 5, Y: 3}, 0))
	}
}
