// Package gateway is the client side of the rules and gameplay services.
package gateway

import (
	"context"
	"strings"

	"github.com/jwebster45206/boardgame-console/pkg/ruledoc"
)

// Operation names, used in errors and logs.
const (
	OpGenerateRules = "generate-rules"
	OpOptimizeRules = "optimize-rules"
	OpStartGameplay = "gameplay-start"
	OpPlayRound     = "gameplay-round"
)

// Service paths.
const (
	PathGenerateRules = "/api/v1/rules/generate"
	PathOptimizeRules = "/api/v1/rules/optimize"
	PathStartGameplay = "/api/v1/gameplay/start"
	PathPlayRound     = "/api/v1/gameplay/round"
	PathHealth        = "/health"
)

// Gateway is the set of backend operations the client depends on.
type Gateway interface {
	GenerateRules(ctx context.Context, req GenerateRequest) (*ruledoc.GameDocument, error)
	OptimizeRules(ctx context.Context, req OptimizeRequest) (*ruledoc.GameDocument, error)
	StartGameplay(ctx context.Context, req StartRequest) (*StartResponse, error)
	PlayRound(ctx context.Context, req RoundRequest) (*RoundResponse, error)
}

type GenerateRequest struct {
	NumberOfPlayers         int      `json:"number_of_players"`
	GameDuration            string   `json:"game_duration"`
	DescriptionOfBackground string   `json:"description_of_background"`
	GameCategory            string   `json:"game_category"`
	GameMechanics           []string `json:"game_mechanics"`
}

type OptimizeRequest struct {
	RuleID   string `json:"rule_id"`
	Feedback string `json:"feedback"`
}

func (r OptimizeRequest) Validate() error {
	if strings.TrimSpace(r.RuleID) == "" {
		return &ValidationError{Field: "rule_id", Reason: "required"}
	}
	if strings.TrimSpace(r.Feedback) == "" {
		return &ValidationError{Field: "feedback", Reason: "required"}
	}
	return nil
}

type StartRequest struct {
	RuleID     string `json:"rule_id"`
	PlayerRole string `json:"player_role"`
}

func (r StartRequest) Validate() error {
	if strings.TrimSpace(r.RuleID) == "" {
		return &ValidationError{Field: "rule_id", Reason: "required"}
	}
	if strings.TrimSpace(r.PlayerRole) == "" {
		return &ValidationError{Field: "player_role", Reason: "required"}
	}
	return nil
}

type RoundRequest struct {
	RuleID     string `json:"rule_id"`
	PlayerRole string `json:"player_role"`
	RoundID    int    `json:"round_id"`
	Action     string `json:"action"`
}

func (r RoundRequest) Validate() error {
	if err := (StartRequest{RuleID: r.RuleID, PlayerRole: r.PlayerRole}).Validate(); err != nil {
		return err
	}
	if r.RoundID < 1 {
		return &ValidationError{Field: "round_id", Reason: "must be at least 1"}
	}
	if strings.TrimSpace(r.Action) == "" {
		return &ValidationError{Field: "action", Reason: "required"}
	}
	return nil
}

// StartResponse is the body of gameplay-start. NextAction is always a mapping.
type StartResponse struct {
	NextAction *ruledoc.Node
	Raw        *ruledoc.Node
}

// RoundResponse is the body of gameplay-round. NextAction is always a mapping;
// History is empty when the service sent none.
type RoundResponse struct {
	NextAction *ruledoc.Node
	History    []*ruledoc.Node
	Raw        *ruledoc.Node
}

// LastHistory returns the newest history element, or nil.
func (r *RoundResponse) LastHistory() *ruledoc.Node {
	if r == nil || len(r.History) == 0 {
		return nil
	}
	return r.History[len(r.History)-1]
}
