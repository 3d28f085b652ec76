package match

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/boardgame-console/pkg/gateway"
	"github.com/jwebster45206/boardgame-console/pkg/ruledoc"
)

func newTestSession(gw gateway.Gateway) *Session {
	return NewSession(gw, WithRand(NewRand(1)), WithSessionClock(newFakeClock().Now))
}

func sessionInCharacterSelect(t *testing.T, gw *gateway.MockGateway) *Session {
	t.Helper()
	s := newTestSession(gw)
	require.NoError(t, s.Generate(context.Background(), validForm()))
	require.NoError(t, s.Continue())
	return s
}

func TestSession_HappyPath(t *testing.T) {
	gw := gateway.NewMockGateway()
	s := newTestSession(gw)
	ctx := context.Background()

	assert.Equal(t, ViewSelector, s.View())
	assert.Nil(t, s.Document())

	require.NoError(t, s.Generate(ctx, validForm()))
	assert.Equal(t, ViewOptimize, s.View())
	assert.Equal(t, "mock-rule", s.Document().RuleID)
	require.Len(t, gw.GenerateRulesCalls, 1)
	assert.Equal(t, "30 minutes", gw.GenerateRulesCalls[0].GameDuration)

	require.NoError(t, s.Optimize(ctx, "shorter turns"))
	require.NoError(t, s.Optimize(ctx, "more relics"))
	assert.Equal(t, ViewOptimize, s.View())
	require.Len(t, gw.OptimizeRulesCalls, 2)
	assert.Equal(t, gateway.OptimizeRequest{RuleID: "mock-rule", Feedback: "more relics"}, gw.OptimizeRulesCalls[1])
	assert.Equal(t, "more relics", s.Document().Rules.Get("house_rule").Text())

	require.NoError(t, s.Continue())
	assert.Equal(t, ViewCharacterSelect, s.View())
	roster := s.Roster()
	require.Len(t, roster, 2)
	for _, r := range roster {
		assert.NotEmpty(t, r.Icon)
	}
	_, ok := s.Selected()
	assert.False(t, ok)

	require.NoError(t, s.SelectCharacter("Salvager"))
	role, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "Salvager", role.Name)

	require.NoError(t, s.BeginGameplay(ctx))
	assert.Equal(t, ViewGameplay, s.View())
	require.NotNil(t, s.Engine())
	assert.Equal(t, gateway.StartRequest{RuleID: "mock-rule", PlayerRole: "Salvager"}, gw.StartGameplayCalls[0])

	seats := s.Seats()
	require.Len(t, seats, 2)
	assert.Equal(t, "Salvager", seats[0].Character)
	assert.Equal(t, "Pearl Diver", seats[1].Character)
	assert.Equal(t, role.Icon, seats[0].Icon)

	out, err := s.Advance(ctx, "choice_1", "Dive")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Round)
	assert.Equal(t, 2, s.Engine().Round())
}

func TestSession_GenerateValidationSendsNothing(t *testing.T) {
	gw := gateway.NewMockGateway()
	s := newTestSession(gw)

	f := validForm()
	f.Mechanics = nil
	err := s.Generate(context.Background(), f)

	var ve *gateway.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Empty(t, gw.GenerateRulesCalls)
	assert.Equal(t, ViewSelector, s.View())
}

func TestSession_GenerateFailureStaysInSelector(t *testing.T) {
	gw := gateway.NewMockGateway()
	gw.GenerateRulesFunc = func(ctx context.Context, req gateway.GenerateRequest) (*ruledoc.GameDocument, error) {
		return nil, &gateway.TransportError{Op: gateway.OpGenerateRules, Status: 503}
	}
	s := newTestSession(gw)

	err := s.Generate(context.Background(), validForm())
	require.Error(t, err)
	assert.Equal(t, ViewSelector, s.View())
	assert.False(t, s.Busy())

	gw.GenerateRulesFunc = nil
	require.NoError(t, s.Generate(context.Background(), validForm()))
	assert.Equal(t, ViewOptimize, s.View())
}

func TestSession_OptimizeFailureKeepsDocument(t *testing.T) {
	gw := gateway.NewMockGateway()
	s := newTestSession(gw)
	require.NoError(t, s.Generate(context.Background(), validForm()))
	doc := s.Document()

	gw.OptimizeRulesFunc = func(ctx context.Context, req gateway.OptimizeRequest) (*ruledoc.GameDocument, error) {
		return nil, errors.New("boom")
	}
	require.Error(t, s.Optimize(context.Background(), "anything"))
	assert.Same(t, doc, s.Document())
	assert.Equal(t, ViewOptimize, s.View())

	err := s.Optimize(context.Background(), "   ")
	var ve *gateway.ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Len(t, gw.OptimizeRulesCalls, 1)
}

func TestSession_InvalidTransitions(t *testing.T) {
	gw := gateway.NewMockGateway()
	s := newTestSession(gw)
	ctx := context.Background()

	assert.True(t, errors.Is(s.Optimize(ctx, "x"), ErrInvalidTransition))
	assert.True(t, errors.Is(s.Continue(), ErrInvalidTransition))
	assert.True(t, errors.Is(s.SelectCharacter("Salvager"), ErrInvalidTransition))
	assert.True(t, errors.Is(s.BeginGameplay(ctx), ErrInvalidTransition))
	assert.True(t, errors.Is(s.RetryStart(ctx), ErrInvalidTransition))
	_, err := s.Advance(ctx, "choice_1", "Dive")
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	require.NoError(t, s.Generate(ctx, validForm()))
	assert.True(t, errors.Is(s.Generate(ctx, validForm()), ErrInvalidTransition))
}

func TestSession_CharacterSelection(t *testing.T) {
	gw := gateway.NewMockGateway()
	s := sessionInCharacterSelect(t, gw)

	assert.True(t, errors.Is(s.BeginGameplay(context.Background()), ErrNoCharacter))
	assert.True(t, errors.Is(s.SelectCharacter("Nobody"), ErrUnknownCharacter))
	assert.Equal(t, ViewCharacterSelect, s.View())
	assert.Empty(t, gw.StartGameplayCalls)
}

func TestSession_RosterTooSmall(t *testing.T) {
	gw := gateway.NewMockGateway()
	gw.GenerateRulesFunc = func(ctx context.Context, req gateway.GenerateRequest) (*ruledoc.GameDocument, error) {
		doc := gateway.SampleDocument("rule-3")
		doc.Players.NumberOfPlayers = 3
		return doc, nil
	}
	s := sessionInCharacterSelect(t, gw)
	require.NoError(t, s.SelectCharacter("Pearl Diver"))

	err := s.BeginGameplay(context.Background())
	assert.True(t, errors.Is(err, ErrRosterTooSmall))
	assert.Equal(t, ViewCharacterSelect, s.View())
	assert.Nil(t, s.Engine())
}

func TestSession_StartFailureAndRetry(t *testing.T) {
	gw := gateway.NewMockGateway()
	gw.StartGameplayFunc = func(ctx context.Context, req gateway.StartRequest) (*gateway.StartResponse, error) {
		return nil, &gateway.TransportError{Op: gateway.OpStartGameplay, Status: 500, Message: "rules engine down"}
	}
	s := sessionInCharacterSelect(t, gw)
	require.NoError(t, s.SelectCharacter("Pearl Diver"))

	require.Error(t, s.BeginGameplay(context.Background()))
	assert.Equal(t, ViewGameplay, s.View())
	assert.False(t, s.Engine().Snapshot().Started)

	gw.StartGameplayFunc = nil
	require.NoError(t, s.RetryStart(context.Background()))
	assert.True(t, s.Engine().Snapshot().Started)
}

func TestSession_Restart(t *testing.T) {
	gw := gateway.NewMockGateway()
	s := sessionInCharacterSelect(t, gw)
	require.NoError(t, s.SelectCharacter("Salvager"))
	require.NoError(t, s.BeginGameplay(context.Background()))

	s.Restart()
	assert.Equal(t, ViewSelector, s.View())
	assert.Nil(t, s.Document())
	assert.Nil(t, s.Engine())
	assert.Empty(t, s.Seats())
	assert.Empty(t, s.Roster())
	_, ok := s.Selected()
	assert.False(t, ok)

	require.NoError(t, s.Generate(context.Background(), validForm()))
	assert.Equal(t, ViewOptimize, s.View())
}

func TestSession_RestartDropsLateResponse(t *testing.T) {
	gw := gateway.NewMockGateway()
	entered := make(chan struct{})
	release := make(chan struct{})
	gw.GenerateRulesFunc = func(ctx context.Context, req gateway.GenerateRequest) (*ruledoc.GameDocument, error) {
		close(entered)
		<-release
		return gateway.SampleDocument("late"), nil
	}
	s := newTestSession(gw)

	done := make(chan error, 1)
	go func() { done <- s.Generate(context.Background(), validForm()) }()

	<-entered
	assert.True(t, s.Busy())
	assert.True(t, errors.Is(s.Generate(context.Background(), validForm()), ErrBusy))

	s.Restart()
	close(release)

	assert.True(t, errors.Is(<-done, ErrRestarted))
	assert.Equal(t, ViewSelector, s.View())
	assert.Nil(t, s.Document())
}

func TestSession_RestartDropsLateRound(t *testing.T) {
	gw := gateway.NewMockGateway()
	s := sessionInCharacterSelect(t, gw)
	require.NoError(t, s.SelectCharacter("Salvager"))
	require.NoError(t, s.BeginGameplay(context.Background()))

	entered := make(chan struct{})
	release := make(chan struct{})
	gw.PlayRoundFunc = func(ctx context.Context, req gateway.RoundRequest) (*gateway.RoundResponse, error) {
		close(entered)
		<-release
		return &gateway.RoundResponse{NextAction: ruledoc.Map(
			ruledoc.F("choice_1", ruledoc.String("Dive")),
		)}, nil
	}

	type result struct {
		out Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := s.Advance(context.Background(), "choice_1", "Dive")
		done <- result{out, err}
	}()

	<-entered
	s.Restart()
	close(release)

	res := <-done
	assert.True(t, errors.Is(res.err, ErrRestarted))
	assert.Equal(t, Outcome{}, res.out)
	assert.Equal(t, ViewSelector, s.View())
	assert.Nil(t, s.Engine())
}

func TestSession_RestartDropsLateStart(t *testing.T) {
	tests := []struct {
		name  string
		start func(s *Session) error
		// failFirst makes BeginGameplay fail so RetryStart has something to retry.
		failFirst bool
	}{
		{
			name:  "begin gameplay",
			start: func(s *Session) error { return s.BeginGameplay(context.Background()) },
		},
		{
			name:      "retry start",
			start:     func(s *Session) error { return s.RetryStart(context.Background()) },
			failFirst: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := gateway.NewMockGateway()
			s := sessionInCharacterSelect(t, gw)
			require.NoError(t, s.SelectCharacter("Salvager"))

			if tt.failFirst {
				gw.StartGameplayFunc = func(ctx context.Context, req gateway.StartRequest) (*gateway.StartResponse, error) {
					return nil, errors.New("service unavailable")
				}
				require.Error(t, s.BeginGameplay(context.Background()))
			}

			entered := make(chan struct{})
			release := make(chan struct{})
			gw.StartGameplayFunc = func(ctx context.Context, req gateway.StartRequest) (*gateway.StartResponse, error) {
				close(entered)
				<-release
				return &gateway.StartResponse{NextAction: ruledoc.Map(
					ruledoc.F("choice_1", ruledoc.String("Dive")),
				)}, nil
			}

			done := make(chan error, 1)
			go func() { done <- tt.start(s) }()

			<-entered
			s.Restart()
			close(release)

			assert.True(t, errors.Is(<-done, ErrRestarted))
			assert.Equal(t, ViewSelector, s.View())
			assert.Nil(t, s.Engine())
		})
	}
}

func TestView_String(t *testing.T) {
	assert.Equal(t, "selector", ViewSelector.String())
	assert.Equal(t, "optimize", ViewOptimize.String())
	assert.Equal(t, "characterSelect", ViewCharacterSelect.String())
	assert.Equal(t, "gameplay", ViewGameplay.String())
	assert.Equal(t, "view(9)", View(9).String())
}
