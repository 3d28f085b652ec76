package ruledoc

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MinPlayers = 2
	MaxPlayers = 5
)

// rosterKeys are the field names the rules service has used for the role list,
// in lookup order.
var rosterKeys = []string{"roles", "Roles", "character_roles"}

// ErrMissingField is wrapped by DocumentFromNode when a required field is absent.
var ErrMissingField = errors.New("missing required field")

// Role is one playable character of a generated game.
type Role struct {
	Name    string `json:"name"`
	Ability string `json:"ability"`
	Icon    string `json:"-"` // cosmetic, assigned on the character select screen
}

// Players describes the seating of a generated game.
type Players struct {
	NumberOfPlayers int    `json:"number_of_players"`
	Roles           []Role `json:"roles"`
}

// GameDocument is a generated game as returned by generate-rules and
// optimize-rules. RuleID is required on every later call.
type GameDocument struct {
	Name       string
	Background string
	Rules      *Node
	Players    Players
	RuleID     string

	// Raw is the response the document was read from.
	Raw *Node
}

// Role looks a role up by name.
func (d *GameDocument) Role(name string) (Role, bool) {
	for _, r := range d.Players.Roles {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}

// DocumentFromNode normalizes a generate-rules/optimize-rules response. The
// roster is read from the first of roles, Roles, character_roles that is present.
func DocumentFromNode(n *Node) (*GameDocument, error) {
	if !n.IsMapping() {
		return nil, fmt.Errorf("game document must be an object, got %s", kindOf(n))
	}

	ruleID := n.Get("rule_id")
	if ruleID.IsNull() || !ruleID.IsScalar() || strings.TrimSpace(ruleID.Value) == "" {
		return nil, fmt.Errorf("%w: rule_id", ErrMissingField)
	}

	players := n.Get("players")
	if !players.IsMapping() {
		return nil, fmt.Errorf("%w: players", ErrMissingField)
	}
	count, ok := players.Get("number_of_players").AsInt()
	if !ok {
		return nil, fmt.Errorf("%w: players.number_of_players", ErrMissingField)
	}
	if count < MinPlayers || count > MaxPlayers {
		return nil, fmt.Errorf("players.number_of_players must be between %d and %d, got %d", MinPlayers, MaxPlayers, count)
	}

	roles, err := readRoster(players)
	if err != nil {
		return nil, err
	}

	return &GameDocument{
		Name:       n.Get("name").Text(),
		Background: n.Get("background").Text(),
		Rules:      n.Get("rules"),
		Players: Players{
			NumberOfPlayers: count,
			Roles:           roles,
		},
		RuleID: ruleID.Value,
		Raw:    n,
	}, nil
}

func readRoster(players *Node) ([]Role, error) {
	var list *Node
	for _, key := range rosterKeys {
		if v := players.Get(key); v.IsSequence() {
			list = v
			break
		}
	}
	if list == nil {
		return nil, fmt.Errorf("%w: players.roles", ErrMissingField)
	}

	roles := make([]Role, 0, len(list.Items))
	seen := make(map[string]bool, len(list.Items))
	for i, item := range list.Items {
		name := item.Get("name")
		if name.IsNull() || strings.TrimSpace(name.Text()) == "" {
			return nil, fmt.Errorf("%w: players.roles[%d].name", ErrMissingField, i)
		}
		if seen[name.Text()] {
			return nil, fmt.Errorf("players.roles[%d]: duplicate role name %q", i, name.Text())
		}
		seen[name.Text()] = true
		roles = append(roles, Role{
			Name:    name.Text(),
			Ability: item.Get("ability").Text(),
		})
	}
	return roles, nil
}

func kindOf(n *Node) string {
	if n == nil {
		return "nothing"
	}
	if n.IsNull() {
		return "null"
	}
	return n.Kind.String()
}
