package match

import (
	"regexp"

	"github.com/jwebster45206/boardgame-console/pkg/ruledoc"
)

var choiceKey = regexp.MustCompile(`^choice[_ ]\d+$`)

// ExtractActions returns the choice_N entries of a next_action object in the
// order the service sent them.
func ExtractActions(next *ruledoc.Node) []Action {
	if !next.IsMapping() {
		return nil
	}
	actions := make([]Action, 0, len(next.Fields))
	for _, f := range next.Fields {
		if choiceKey.MatchString(f.Key) {
			actions = append(actions, Action{Key: f.Key, Label: f.Value.Text()})
		}
	}
	return actions
}
