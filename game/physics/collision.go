package physics

import (
	"math"

	"github.com/ungerik/go3d/float64/vec2"

	"github.com/kasuganosora/mazechase/game/maze"
)

const settleIterations = 8

// Resolver moves circular colliders through a grid, treating every
// non-floor tile (and everything outside the grid) as a solid box.
type Resolver struct {
	Grid   *maze.Grid
	Tile   float64
	Radius float64
}

// NewResolver returns a Resolver for colliders of the given radius.
func NewResolver(g *maze.Grid, tile, radius float64) *Resolver {
	return &Resolver{Grid: g, Tile: tile, Radius: radius}
}

// Resolve applies vel*dt to pos and returns the corrected position.
// X is resolved before Y so diagonal moves slide along walls. Large
// displacements are split into sub-steps of at most half a tile.
func (r *Resolver) Resolve(pos, vel vec2.T, dt float64) vec2.T {
	disp := vel.Scaled(dt)
	steps := 1
	if half := r.Tile / 2; half > 0 {
		if l := disp.Length(); l > half {
			steps = int(math.Ceil(l / half))
		}
	}
	step := disp.Scaled(1 / float64(steps))

	p := pos
	for i := 0; i < steps; i++ {
		p[0] += step[0]
		r.resolveAxis(&p, 0, step[0])
		p[1] += step[1]
		r.resolveAxis(&p, 1, step[1])
	}
	r.settle(&p)
	return r.Clamp(p)
}

// Clamp keeps p inside the world rectangle shrunk by the radius.
func (r *Resolver) Clamp(p vec2.T) vec2.T {
	maxX := float64(r.Grid.W)*r.Tile - r.Radius
	maxY := float64(r.Grid.H)*r.Tile - r.Radius
	p[0] = math.Max(r.Radius, math.Min(maxX, p[0]))
	p[1] = math.Max(r.Radius, math.Min(maxY, p[1]))
	return p
}

// Penetration returns the deepest overlap between the collider at p and
// any solid tile. Zero means p is a legal resting position.
func (r *Resolver) Penetration(p vec2.T) float64 {
	deepest := 0.0
	r.eachSolid(p, func(lo, hi vec2.T) {
		if push, ok := r.pushOut(p, lo, hi, 0, 0); ok {
			deepest = math.Max(deepest, push.Length())
		}
	})
	return deepest
}

// resolveAxis pushes p out of overlapping tiles along a single axis.
// delta is the movement just applied on that axis.
func (r *Resolver) resolveAxis(p *vec2.T, axis int, delta float64) {
	r.eachSolid(*p, func(lo, hi vec2.T) {
		if push, ok := r.pushOut(*p, lo, hi, axis, delta); ok {
			p[axis] += push[axis]
		}
	})
}

// settle applies full push vectors until no tile overlaps.
func (r *Resolver) settle(p *vec2.T) {
	for i := 0; i < settleIterations; i++ {
		moved := false
		r.eachSolid(*p, func(lo, hi vec2.T) {
			if push, ok := r.pushOut(*p, lo, hi, -1, 0); ok {
				p.Add(&push)
				moved = true
			}
		})
		if !moved {
			return
		}
	}
}

// eachSolid calls fn with the bounds of every solid tile under the collider's box.
func (r *Resolver) eachSolid(p vec2.T, fn func(lo, hi vec2.T)) {
	x0 := int(math.Floor((p[0] - r.Radius) / r.Tile))
	x1 := int(math.Floor((p[0] + r.Radius) / r.Tile))
	y0 := int(math.Floor((p[1] - r.Radius) / r.Tile))
	y1 := int(math.Floor((p[1] + r.Radius) / r.Tile))
	for ty := y0; ty <= y1; ty++ {
		for tx := x0; tx <= x1; tx++ {
			if r.Grid.At(tx, ty) == maze.Floor {
				continue
			}
			lo := vec2.T{float64(tx) * r.Tile, float64(ty) * r.Tile}
			hi := vec2.T{lo[0] + r.Tile, lo[1] + r.Tile}
			fn(lo, hi)
		}
	}
}

// pushOut returns the vector that separates the circle at p from the box
// [lo, hi]. When the center is inside the box, the push runs along axis
// against the direction of delta, or along the shallowest axis if axis < 0
// or delta is zero.
func (r *Resolver) pushOut(p, lo, hi vec2.T, axis int, delta float64) (vec2.T, bool) {
	closest := vec2.T{
		math.Max(lo[0], math.Min(p[0], hi[0])),
		math.Max(lo[1], math.Min(p[1], hi[1])),
	}
	d := vec2.Sub(&p, &closest)
	dist := d.Length()
	const eps = 1e-9
	if dist >= r.Radius-eps && dist > 0 {
		return vec2.T{}, false
	}
	if dist > eps {
		return d.Scaled((r.Radius - dist) / dist), true
	}

	// Center inside (or on the edge of) the box.
	if axis >= 0 && delta != 0 {
		var push vec2.T
		if delta > 0 {
			push[axis] = lo[axis] - r.Radius - p[axis]
		} else {
			push[axis] = hi[axis] + r.Radius - p[axis]
		}
		return push, true
	}
	left := p[0] - lo[0]
	right := hi[0] - p[0]
	up := p[1] - lo[1]
	down := hi[1] - p[1]
	var push vec2.T
	switch m := math.Min(math.Min(left, right), math.Min(up, down)); m {
	case left:
		push[0] = -(left + r.Radius)
	case right:
		push[0] = right + r.Radius
	case up:
		push[1] = -(up + r.Radius)
	default:
		push[1] = down + r.Radius
	}
	return push, true
}
