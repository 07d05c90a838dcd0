package difficulty

import (
	"fmt"
	"strings"

	"github.com/kasuganosora/mazechase/game/maze"
)

// Mode selects a difficulty: 1=Normal, 2=Hard, 3=Hell.
type Mode int

const (
	Normal Mode = 1
	Hard   Mode = 2
	Hell   Mode = 3
)

// Profile is the read-only per-session configuration handed to controllers.
// Speeds are in tiles per second.
type Profile struct {
	Mode        Mode        `json:"mode"`
	Name        string      `json:"name"`
	PlayerMaxHP int         `json:"player_max_hp"`
	ChaserSpeed float64     `json:"chaser_speed"`
	RunnerSpeed float64     `json:"runner_speed"`
	ChaserCount int         `json:"chaser_count"`
	Maze        maze.Params `json:"-"`
}

var table = map[Mode]Profile{
	Normal: {
		Mode: Normal, Name: "Normal",
		PlayerMaxHP: 3, ChaserSpeed: 3.2, RunnerSpeed: 3.5, ChaserCount: 1,
		Maze: maze.Params{
			Rooms:      maze.DefaultRooms(3),
			Highways:   maze.HighwayParams{Horiz: 1, Vert: 1, Thickness: 1},
			BraidRatio: 0.28,
			Openness:   0.35,
		},
	},
	Hard: {
		Mode: Hard, Name: "Hard",
		PlayerMaxHP: 3, ChaserSpeed: 5.7, RunnerSpeed: 3.3, ChaserCount: 1,
		Maze: maze.Params{
			Rooms:      maze.DefaultRooms(2),
			Highways:   maze.HighwayParams{Horiz: 1, Vert: 1, Thickness: 1},
			BraidRatio: 0.15,
			Openness:   0.2,
		},
	},
	Hell: {
		Mode: Hell, Name: "Hell",
		PlayerMaxHP: 2, ChaserSpeed: 7.2, RunnerSpeed: 8.6, ChaserCount: 2,
		Maze: maze.Params{
			Rooms:      maze.DefaultRooms(1),
			BraidRatio: 0.05,
			Openness:   0.1,
		},
	},
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	_, ok := table[m]
	return ok
}

// Normalize maps unknown modes to Normal.
func (m Mode) Normalize() Mode {
	if m.Valid() {
		return m
	}
	return Normal
}

func (m Mode) String() string {
	if p, ok := table[m]; ok {
		return p.Name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Lookup returns the profile for m, falling back to Normal for unknown modes.
func Lookup(m Mode) Profile {
	return table[m.Normalize()]
}

// ParseName resolves "normal", "hard" or "hell" (any case) to a Mode.
func ParseName(name string) (Mode, bool) {
	for m, p := range table {
		if strings.EqualFold(p.Name, name) {
			return m, true
		}
	}
	return 0, false
}
