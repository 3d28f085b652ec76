package match

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/jwebster45206/boardgame-console/pkg/ruledoc"
)

type SeatClass string

const (
	SeatYou SeatClass = "you"
	SeatAI1 SeatClass = "ai1"
	SeatAI2 SeatClass = "ai2"
	SeatAI3 SeatClass = "ai3"
	SeatAI4 SeatClass = "ai4"
)

// PlayerSeat is one seat at the table. X and Y are percentages of the board.
type PlayerSeat struct {
	Class     SeatClass
	X, Y      float64
	Name      string
	Character string
	Icon      string
}

// IsHuman reports whether this is the local player's seat.
func (s PlayerSeat) IsHuman() bool { return s.Class == SeatYou }

type seatTemplate struct {
	class SeatClass
	x, y  float64
}

var seatTemplates = map[int][]seatTemplate{
	2: {
		{SeatYou, 40, 70},
		{SeatAI1, 40, 0},
	},
	3: {
		{SeatYou, 40, 70},
		{SeatAI1, 0, 0},
		{SeatAI2, 80, 0},
	},
	4: {
		{SeatYou, 40, 70},
		{SeatAI1, 0, 40},
		{SeatAI2, 80, 40},
		{SeatAI3, 40, 0},
	},
	5: {
		{SeatYou, 40, 70},
		{SeatAI1, 0, 40},
		{SeatAI2, 80, 40},
		{SeatAI3, 0, 0},
		{SeatAI4, 80, 0},
	},
}

// IconPool is the set of player icons. Icons are cosmetic and may repeat once
// every icon is in use.
var IconPool = []string{
	"assassin.png", "barbarian.png", "character.png", "druid.png", "king.png",
	"magician.png", "ninja.png", "robin-hood.png", "swordsman.png", "wizard.png",
	"adventurer.png", "alchemy.png", "character_1.png", "character_2.png", "monk.png", "swords.png",
}

// LayoutSeats seats n players: the human in the "you" seat with their chosen
// role, and AI players drawn from the rest of the roster without replacement.
func LayoutSeats(n int, human ruledoc.Role, roster []ruledoc.Role, rng *rand.Rand) ([]PlayerSeat, error) {
	templates, ok := seatTemplates[n]
	if !ok {
		return nil, fmt.Errorf("%w: got %d", ErrSeatCount, n)
	}

	available := make([]ruledoc.Role, 0, len(roster))
	for _, r := range roster {
		if r.Name != human.Name {
			available = append(available, r)
		}
	}
	if len(available) < n-1 {
		return nil, fmt.Errorf("%w: need %d other roles, have %d", ErrRosterTooSmall, n-1, len(available))
	}

	used := make(map[string]bool, len(IconPool))
	humanIcon := human.Icon
	if humanIcon == "" {
		humanIcon = pickIcon(rng, used)
	}
	used[humanIcon] = true

	seats := make([]PlayerSeat, 0, n)
	for _, t := range templates {
		seat := PlayerSeat{Class: t.class, X: t.x, Y: t.y}
		if t.class == SeatYou {
			seat.Name = "You"
			seat.Character = human.Name
			seat.Icon = humanIcon
		} else {
			i := rng.IntN(len(available))
			role := available[i]
			available = append(available[:i], available[i+1:]...)

			seat.Name = role.Name
			seat.Character = role.Name
			seat.Icon = pickIcon(rng, used)
		}
		seats = append(seats, seat)
	}
	return seats, nil
}

// AssignRosterIcons returns a copy of roster where every role without an icon
// has one, avoiding repeats while unused icons remain.
func AssignRosterIcons(roster []ruledoc.Role, rng *rand.Rand) []ruledoc.Role {
	out := make([]ruledoc.Role, len(roster))
	copy(out, roster)

	used := make(map[string]bool, len(IconPool))
	for i := range out {
		if out[i].Icon == "" {
			out[i].Icon = pickIcon(rng, used)
		}
	}
	return out
}

// pickIcon draws icons until it finds one not in used, or accepts any draw
// once used covers the pool.
func pickIcon(rng *rand.Rand, used map[string]bool) string {
	for {
		icon := IconPool[rng.IntN(len(IconPool))]
		if !used[icon] || len(used) >= len(IconPool) {
			used[icon] = true
			return icon
		}
	}
}

// CirclePosition places seat i of n evenly around the board centre, as
// percentages. Radius is 30% of the board.
func CirclePosition(i, n int) (x, y float64) {
	const (
		center = 50.0
		radius = 30.0
	)
	if n <= 0 {
		return center, center
	}
	angle := 2 * math.Pi * float64(i) / float64(n)
	return center + radius*math.Cos(angle), center + radius*math.Sin(angle)
}

// NewRand returns a random source. A zero seed draws one from the runtime.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
