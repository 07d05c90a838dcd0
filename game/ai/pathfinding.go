package ai

import (
	"github.com/kasuganosora/mazechase/game/maze"
)

// noDir marks the start node, which has no incoming move.
const noDir = 4

// FindPath runs A* over the 4-connected floor cells of g.
// Each step costs 1, plus turnPenalty when it changes direction.
// Returns the path excluding start and including goal; nil when start == goal,
// when either end is not floor, or when goal is unreachable.
// Equal-f entries pop in insertion order, so results are deterministic.
func FindPath(g *maze.Grid, start, goal maze.Point, turnPenalty float64) []maze.Point {
	if g == nil || start == goal || !g.Passable(start) || !g.Passable(goal) {
		return nil
	}

	heuristic := func(p maze.Point) float64 {
		dx := p.X - goal.X
		if dx < 0 {
			dx = -dx
		}
		dy := p.Y - goal.Y
		if dy < 0 {
			dy = -dy
		}
		return float64(dx + dy)
	}

	// Search state is (cell, incoming direction) so the turn cost is exact.
	state := func(p maze.Point, dir int) int { return (p.Y*g.W+p.X)*5 + dir }
	n := g.W * g.H * 5
	gScore := make([]float64, n)
	seen := make([]bool, n)
	closed := make([]bool, n)
	parent := make([]int32, n)

	type pqItem struct {
		state int
		f     float64
		seq   uint64
	}
	less := func(a, b pqItem) bool {
		if a.f != b.f {
			return a.f < b.f
		}
		return a.seq < b.seq
	}
	var pq []pqItem
	var seq uint64
	pushPQ := func(s int, f float64) {
		seq++
		pq = append(pq, pqItem{s, f, seq})
		i := len(pq) - 1
		for i > 0 {
			up := (i - 1) / 2
			if !less(pq[i], pq[up]) {
				break
			}
			pq[up], pq[i] = pq[i], pq[up]
			i = up
		}
	}
	popPQ := func() pqItem {
		top := pq[0]
		last := len(pq) - 1
		pq[0] = pq[last]
		pq = pq[:last]
		i := 0
		for {
			left, right := 2*i+1, 2*i+2
			smallest := i
			if left < len(pq) && less(pq[left], pq[smallest]) {
				smallest = left
			}
			if right < len(pq) && less(pq[right], pq[smallest]) {
				smallest = right
			}
			if smallest == i {
				break
			}
			pq[i], pq[smallest] = pq[smallest], pq[i]
			i = smallest
		}
		return top
	}

	s0 := state(start, noDir)
	seen[s0] = true
	parent[s0] = -1
	pushPQ(s0, heuristic(start))

	for len(pq) > 0 {
		cur := popPQ()
		if closed[cur.state] {
			continue
		}
		closed[cur.state] = true

		cell := cur.state / 5
		dir := cur.state % 5
		pt := maze.Point{X: cell % g.W, Y: cell / g.W}
		if pt == goal {
			var path []maze.Point
			for s := cur.state; parent[s] >= 0; s = int(parent[s]) {
				c := s / 5
				path = append(path, maze.Point{X: c % g.W, Y: c / g.W})
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}

		for i, d := range maze.Dirs4 {
			np := pt.Add(d)
			if !g.Passable(np) {
				continue
			}
			ns := state(np, i)
			if closed[ns] {
				continue
			}
			ng := gScore[cur.state] + 1
			if dir != noDir && dir != i {
				ng += turnPenalty
			}
			if !seen[ns] || ng < gScore[ns] {
				seen[ns] = true
				gScore[ns] = ng
				parent[ns] = int32(cur.state)
				pushPQ(ns, ng+heuristic(np))
			}
		}
	}
	return nil
}
