package match

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jwebster45206/boardgame-console/pkg/gateway"
	"github.com/jwebster45206/boardgame-console/pkg/ruledoc"
)

// View is the screen a session is on.
type View int

const (
	ViewSelector View = iota
	ViewOptimize
	ViewCharacterSelect
	ViewGameplay
)

func (v View) String() string {
	switch v {
	case ViewSelector:
		return "selector"
	case ViewOptimize:
		return "optimize"
	case ViewCharacterSelect:
		return "characterSelect"
	case ViewGameplay:
		return "gameplay"
	default:
		return fmt.Sprintf("view(%d)", int(v))
	}
}

// Session walks one match through its views:
//
//	selector -> optimize (repeatable) -> characterSelect -> gameplay
//
// There is no way back except Restart, which returns to the selector. The
// game document is set in every view but the selector.
type Session struct {
	gw     gateway.Gateway
	logger *slog.Logger
	rng    *rand.Rand
	now    func() time.Time

	mu       sync.Mutex
	epoch    int // bumped by Restart; late responses from an older epoch are dropped
	view     View
	busy     bool
	doc      *ruledoc.GameDocument
	roster   []ruledoc.Role
	selected *ruledoc.Role
	seats    []PlayerSeat
	engine   *Engine
}

type SessionOption func(*Session)

func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

func WithRand(rng *rand.Rand) SessionOption {
	return func(s *Session) { s.rng = rng }
}

func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

func NewSession(gw gateway.Gateway, opts ...SessionOption) *Session {
	s := &Session{
		gw:     gw,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		view:   ViewSelector,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = NewRand(0)
	}
	return s
}

// Generate submits the selector form and moves to the optimize view.
func (s *Session) Generate(ctx context.Context, form SelectorForm) error {
	if err := form.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.enter(ViewSelector); err != nil {
		s.mu.Unlock()
		return err
	}
	epoch := s.epoch
	s.mu.Unlock()

	doc, err := s.gw.GenerateRules(ctx, form.Request())

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return ErrRestarted
	}
	s.busy = false
	if err != nil {
		s.logger.Error("Failed to generate rules", "error", err)
		return fmt.Errorf("failed to generate rules: %w", err)
	}

	s.doc = doc
	s.view = ViewOptimize
	s.logger.Info("Rules generated", "rule_id", doc.RuleID, "name", doc.Name, "players", doc.Players.NumberOfPlayers)
	return nil
}

// Optimize sends feedback on the rules and replaces the document with the
// revised one. The session stays in the optimize view.
func (s *Session) Optimize(ctx context.Context, feedback string) error {
	s.mu.Lock()
	if s.view != ViewOptimize {
		s.mu.Unlock()
		return s.transitionError(ViewOptimize)
	}
	req := gateway.OptimizeRequest{RuleID: s.doc.RuleID, Feedback: feedback}
	if err := req.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.enter(ViewOptimize); err != nil {
		s.mu.Unlock()
		return err
	}
	epoch := s.epoch
	s.mu.Unlock()

	doc, err := s.gw.OptimizeRules(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return ErrRestarted
	}
	s.busy = false
	if err != nil {
		s.logger.Error("Failed to optimize rules", "rule_id", req.RuleID, "error", err)
		return fmt.Errorf("failed to optimize rules: %w", err)
	}

	s.doc = doc
	s.logger.Info("Rules optimized", "rule_id", doc.RuleID)
	return nil
}

// Continue leaves the optimize view for character selection.
func (s *Session) Continue() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ViewOptimize); err != nil {
		return err
	}
	s.busy = false

	s.roster = AssignRosterIcons(s.doc.Players.Roles, s.rng)
	s.selected = nil
	s.view = ViewCharacterSelect
	return nil
}

// SelectCharacter picks the human player's role.
func (s *Session) SelectCharacter(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != ViewCharacterSelect {
		return s.transitionError(ViewCharacterSelect)
	}
	for _, r := range s.roster {
		if r.Name == name {
			role := r
			s.selected = &role
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCharacter, name)
}

// BeginGameplay seats the players and starts the match. If the start call
// fails the session is still in gameplay and RetryStart may be used.
func (s *Session) BeginGameplay(ctx context.Context) error {
	s.mu.Lock()
	if err := s.enter(ViewCharacterSelect); err != nil {
		s.mu.Unlock()
		return err
	}
	s.busy = false
	if s.selected == nil {
		s.mu.Unlock()
		return ErrNoCharacter
	}

	seats, err := LayoutSeats(s.doc.Players.NumberOfPlayers, *s.selected, s.roster, s.rng)
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("Failed to seat players", "error", err)
		return err
	}

	s.seats = seats
	s.engine = NewEngine(s.gw, s.doc.RuleID, s.selected.Name,
		WithClock(s.now),
		WithLogger(s.logger))
	s.view = ViewGameplay
	engine, epoch := s.engine, s.epoch
	s.mu.Unlock()

	err = engine.Start(ctx)
	if s.restartedSince(epoch) {
		return ErrRestarted
	}
	return err
}

// RetryStart repeats a failed gameplay start.
func (s *Session) RetryStart(ctx context.Context) error {
	s.mu.Lock()
	if s.view != ViewGameplay {
		s.mu.Unlock()
		return s.transitionError(ViewGameplay)
	}
	engine, epoch := s.engine, s.epoch
	s.mu.Unlock()

	err := engine.Start(ctx)
	if s.restartedSince(epoch) {
		return ErrRestarted
	}
	return err
}

// Advance plays a round. See Engine.Advance.
func (s *Session) Advance(ctx context.Context, actionKey, actionLabel string) (Outcome, error) {
	s.mu.Lock()
	if s.view != ViewGameplay {
		s.mu.Unlock()
		return Outcome{}, s.transitionError(ViewGameplay)
	}
	engine, epoch := s.engine, s.epoch
	s.mu.Unlock()

	out, err := engine.Advance(ctx, actionKey, actionLabel)
	if s.restartedSince(epoch) {
		return Outcome{}, ErrRestarted
	}
	return out, err
}

// Restart discards the match and returns to the selector.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Match restarted", "from_view", s.view.String())
	s.epoch++
	s.view = ViewSelector
	s.busy = false
	s.doc = nil
	s.roster = nil
	s.selected = nil
	s.seats = nil
	s.engine = nil
}

// restartedSince reports whether Restart ran after epoch was read.
func (s *Session) restartedSince(epoch int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch != epoch
}

// enter checks the session is in want and idle, then marks it busy. Callers
// hold s.mu.
func (s *Session) enter(want View) error {
	if s.view != want {
		return s.transitionError(want)
	}
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

func (s *Session) transitionError(want View) error {
	return fmt.Errorf("%w: session is in %s, need %s", ErrInvalidTransition, s.view, want)
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Busy reports whether any service call is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	busy, engine := s.busy, s.engine
	s.mu.Unlock()
	return busy || (engine != nil && engine.Busy())
}

func (s *Session) Document() *ruledoc.GameDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

func (s *Session) Roster() []ruledoc.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ruledoc.Role(nil), s.roster...)
}

// Selected returns the chosen role, if any.
func (s *Session) Selected() (ruledoc.Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return ruledoc.Role{}, false
	}
	return *s.selected, true
}

func (s *Session) Seats() []PlayerSeat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PlayerSeat(nil), s.seats...)
}

// Engine returns the round engine; nil outside gameplay.
func (s *Session) Engine() *Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}
