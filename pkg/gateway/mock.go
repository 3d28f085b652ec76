package gateway

import (
	"context"
	"sync"

	"github.com/jwebster45206/boardgame-console/pkg/ruledoc"
)

// MockGateway is a mock implementation of Gateway for testing
type MockGateway struct {
	GenerateRulesFunc func(ctx context.Context, req GenerateRequest) (*ruledoc.GameDocument, error)
	OptimizeRulesFunc func(ctx context.Context, req OptimizeRequest) (*ruledoc.GameDocument, error)
	StartGameplayFunc func(ctx context.Context, req StartRequest) (*StartResponse, error)
	PlayRoundFunc     func(ctx context.Context, req RoundRequest) (*RoundResponse, error)

	// Track calls for testing
	mu                 sync.Mutex
	GenerateRulesCalls []GenerateRequest
	OptimizeRulesCalls []OptimizeRequest
	StartGameplayCalls []StartRequest
	PlayRoundCalls     []RoundRequest
}

var _ Gateway = (*MockGateway)(nil)

// NewMockGateway creates a new mock gateway
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// SampleDocument is a two-seat game used as the mock's default document.
func SampleDocument(ruleID string) *ruledoc.GameDocument {
	return &ruledoc.GameDocument{
		Name:       "Lanterns of the Deep",
		Background: "Divers race to recover relics before the tide turns.",
		Rules: ruledoc.Map(
			ruledoc.F("turn_order", ruledoc.String("clockwise")),
			ruledoc.F("phases", ruledoc.Seq(ruledoc.String("dive"), ruledoc.String("surface"))),
		),
		Players: ruledoc.Players{
			NumberOfPlayers: 2,
			Roles: []ruledoc.Role{
				{Name: "Pearl Diver", Ability: "Holds breath for an extra turn"},
				{Name: "Salvager", Ability: "Draws two relic cards"},
			},
		},
		RuleID: ruleID,
	}
}

func (m *MockGateway) GenerateRules(ctx context.Context, req GenerateRequest) (*ruledoc.GameDocument, error) {
	m.mu.Lock()
	m.GenerateRulesCalls = append(m.GenerateRulesCalls, req)
	m.mu.Unlock()

	if m.GenerateRulesFunc != nil {
		return m.GenerateRulesFunc(ctx, req)
	}

	// Default behavior - success
	return SampleDocument("mock-rule"), nil
}

func (m *MockGateway) OptimizeRules(ctx context.Context, req OptimizeRequest) (*ruledoc.GameDocument, error) {
	m.mu.Lock()
	m.OptimizeRulesCalls = append(m.OptimizeRulesCalls, req)
	m.mu.Unlock()

	if m.OptimizeRulesFunc != nil {
		return m.OptimizeRulesFunc(ctx, req)
	}

	doc := SampleDocument(req.RuleID)
	doc.Rules.Set("house_rule", ruledoc.String(req.Feedback))
	return doc, nil
}

func (m *MockGateway) StartGameplay(ctx context.Context, req StartRequest) (*StartResponse, error) {
	m.mu.Lock()
	m.StartGameplayCalls = append(m.StartGameplayCalls, req)
	m.mu.Unlock()

	if m.StartGameplayFunc != nil {
		return m.StartGameplayFunc(ctx, req)
	}

	return &StartResponse{
		NextAction: ruledoc.Map(
			ruledoc.F("choose", ruledoc.String("Choose your first move")),
			ruledoc.F("choice_1", ruledoc.String("Dive")),
			ruledoc.F("choice_2", ruledoc.String("Wait")),
		),
	}, nil
}

func (m *MockGateway) PlayRound(ctx context.Context, req RoundRequest) (*RoundResponse, error) {
	m.mu.Lock()
	m.PlayRoundCalls = append(m.PlayRoundCalls, req)
	m.mu.Unlock()

	if m.PlayRoundFunc != nil {
		return m.PlayRoundFunc(ctx, req)
	}

	return &RoundResponse{
		NextAction: ruledoc.Map(
			ruledoc.F("choose", ruledoc.String("Choose again")),
			ruledoc.F("choice_1", ruledoc.String("Dive")),
			ruledoc.F("choice_2", ruledoc.String("Wait")),
		),
	}, nil
}

// RoundCalls returns a copy of the recorded round requests.
func (m *MockGateway) RoundCalls() []RoundRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RoundRequest(nil), m.PlayRoundCalls...)
}
