package sandbox

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/boardgame-console/pkg/gateway"
	"github.com/jwebster45206/boardgame-console/pkg/ruledoc"
)

// NewDocument builds a game document from a template for the given request.
func NewDocument(tpl Template, ruleID string, req gateway.GenerateRequest) *ruledoc.Node {
	background := strings.TrimSpace(req.DescriptionOfBackground)
	if background == "" {
		background = tpl.Background
	}

	mechanics := ruledoc.Seq()
	for _, m := range req.GameMechanics {
		mechanics.Items = append(mechanics.Items, ruledoc.String(m))
	}

	roles := ruledoc.Seq()
	for _, r := range tpl.Roles {
		roles.Items = append(roles.Items, ruledoc.Map(
			ruledoc.F("name", ruledoc.String(r.Name)),
			ruledoc.F("ability", ruledoc.String(r.Ability)),
		))
	}

	return ruledoc.Map(
		ruledoc.F("rule_id", ruledoc.String(ruleID)),
		ruledoc.F("name", ruledoc.String(tpl.Name)),
		ruledoc.F("background", ruledoc.String(background)),
		ruledoc.F("game_category", ruledoc.String(req.GameCategory)),
		ruledoc.F("game_duration", ruledoc.String(req.GameDuration)),
		ruledoc.F("game_mechanics", mechanics),
		ruledoc.F("rules", tpl.Rules.Clone()),
		ruledoc.F("players", ruledoc.Map(
			ruledoc.F("number_of_players", ruledoc.Int(req.NumberOfPlayers)),
			ruledoc.F("roles", roles),
		)),
	)
}

// ApplyFeedback returns a copy of doc with the feedback recorded as a house
// rule.
func ApplyFeedback(doc *ruledoc.Node, feedback string) *ruledoc.Node {
	out := doc.Clone()
	rules := out.Get("rules")
	if !rules.IsMapping() {
		rules = ruledoc.Map()
		out.Set("rules", rules)
	}
	house := rules.Get("house_rules")
	if !house.IsSequence() {
		house = ruledoc.Seq()
		rules.Set("house_rules", house)
	}
	house.Items = append(house.Items, ruledoc.String(strings.TrimSpace(feedback)))
	return out
}

// NextAction offers the template's choices for round, rotated so each round
// leads with a different one.
func NextAction(tpl Template, round int) *ruledoc.Node {
	next := ruledoc.Map(ruledoc.F("choose", ruledoc.String(fmt.Sprintf("Round %d: choose an activity", round))))
	n := len(tpl.Choices)
	for i := range n {
		choice := tpl.Choices[(round-1+i)%n]
		next.Set(fmt.Sprintf("choice_%d", i+1), ruledoc.String(choice))
	}
	return next
}

// HistoryEntry records one played round.
func HistoryEntry(tpl Template, round int, role, action string) *ruledoc.Node {
	entry := ruledoc.Map(
		ruledoc.F("round_id", ruledoc.Int(round)),
		ruledoc.F("player_role", ruledoc.String(role)),
		ruledoc.F("actions", ruledoc.Seq(
			ruledoc.Map(ruledoc.F("description", ruledoc.String(fmt.Sprintf("%s: %s", role, action)))),
		)),
	)
	if len(tpl.Events) > 0 {
		ev := tpl.Events[(round-1)%len(tpl.Events)]
		entry.Set("events", ruledoc.Map(
			ruledoc.F("description", ruledoc.String(ev.Description)),
			ruledoc.F("result", ruledoc.String(ev.Result)),
		))
	}
	return entry
}
