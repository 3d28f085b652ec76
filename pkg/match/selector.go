package match

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jwebster45206/boardgame-console/pkg/gateway"
	"github.com/jwebster45206/boardgame-console/pkg/ruledoc"
)

const (
	MinDurationMinutes = 5
	MaxDurationMinutes = 180
)

var GameCategories = []string{
	"adventure", "territory building", "civilization", "exploration",
	"fantasy", "economic", "farming industry manufacturing",
	"fighting", "bluffing",
}

var GameMechanics = []string{
	"Action and Turn Management", "Card Play", "Dice and Randomness",
	"Player Interaction", "Progression and Development", "Resource and Area Management",
}

// SelectorForm is the game selection form. Mechanics keep the order in which
// they were toggled on.
type SelectorForm struct {
	Players         int
	DurationMinutes int
	Category        string
	Mechanics       []string
	Background      string
}

func NewSelectorForm() SelectorForm {
	return SelectorForm{
		Players:         ruledoc.MinPlayers,
		DurationMinutes: 30,
	}
}

// ToggleMechanic selects or deselects a mechanic.
func (f *SelectorForm) ToggleMechanic(mechanic string) {
	if i := slices.Index(f.Mechanics, mechanic); i >= 0 {
		f.Mechanics = slices.Delete(f.Mechanics, i, i+1)
		return
	}
	f.Mechanics = append(f.Mechanics, mechanic)
}

func (f SelectorForm) HasMechanic(mechanic string) bool {
	return slices.Contains(f.Mechanics, mechanic)
}

// Validate checks the form locally. Invalid forms are never sent.
func (f SelectorForm) Validate() error {
	if f.Players < ruledoc.MinPlayers || f.Players > ruledoc.MaxPlayers {
		return &gateway.ValidationError{
			Field:  "number_of_players",
			Reason: fmt.Sprintf("must be between %d and %d", ruledoc.MinPlayers, ruledoc.MaxPlayers),
		}
	}
	if f.DurationMinutes < MinDurationMinutes || f.DurationMinutes > MaxDurationMinutes {
		return &gateway.ValidationError{
			Field:  "game_duration",
			Reason: fmt.Sprintf("must be between %d and %d minutes", MinDurationMinutes, MaxDurationMinutes),
		}
	}
	if !slices.Contains(GameCategories, f.Category) {
		return &gateway.ValidationError{Field: "game_category", Reason: "select a game type"}
	}
	if len(f.Mechanics) == 0 {
		return &gateway.ValidationError{Field: "game_mechanics", Reason: "select at least one mechanic"}
	}
	for _, m := range f.Mechanics {
		if !slices.Contains(GameMechanics, m) {
			return &gateway.ValidationError{Field: "game_mechanics", Reason: fmt.Sprintf("unknown mechanic %q", m)}
		}
	}
	if strings.TrimSpace(f.Background) == "" {
		return &gateway.ValidationError{Field: "description_of_background", Reason: "required"}
	}
	return nil
}

// Request builds the generate-rules payload.
func (f SelectorForm) Request() gateway.GenerateRequest {
	return gateway.GenerateRequest{
		NumberOfPlayers:         f.Players,
		GameDuration:            fmt.Sprintf("%d minutes", f.DurationMinutes),
		DescriptionOfBackground: f.Background,
		GameCategory:            f.Category,
		GameMechanics:           append([]string(nil), f.Mechanics...),
	}
}
