package match

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jwebster45206/boardgame-console/pkg/gateway"
)

// Engine runs the rounds of one match against the gameplay service. Only one
// request may be in flight at a time; a second call returns ErrBusy.
type Engine struct {
	gw     gateway.Gateway
	ruleID string
	role   string
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	busy      bool
	started   bool
	over      bool
	round     int
	actions   []Action
	log       []LogEntry
	prompt    string
	transient *Transient
}

// Snapshot is a copy of the engine state for rendering.
type Snapshot struct {
	Round     int
	Actions   []Action
	Log       []LogEntry
	Prompt    string
	Busy      bool
	Started   bool
	Over      bool
	Transient *Transient // nil once expired
}

type EngineOption func(*Engine)

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

func NewEngine(gw gateway.Gateway, ruleID, playerRole string, opts ...EngineOption) *Engine {
	e := &Engine{
		gw:     gw,
		ruleID: ruleID,
		role:   playerRole,
		round:  1,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("rule_id", ruleID, "player_role", playerRole)
	return e
}

// Start requests the opening actions. On failure the engine is unchanged and
// Start may be called again.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return fmt.Errorf("%w: gameplay already started", ErrInvalidTransition)
	}
	if err := e.acquire(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	resp, err := e.gw.StartGameplay(ctx, gateway.StartRequest{
		RuleID:     e.ruleID,
		PlayerRole: e.role,
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false

	if err != nil {
		e.logger.Error("Failed to start gameplay", "error", err)
		return fmt.Errorf("failed to start gameplay: %w", err)
	}

	now := e.now()
	e.actions = ExtractActions(resp.NextAction)
	e.prompt = resp.NextAction.Get("choose").Text()
	e.appendLog(now, LogSystem,
		"Game started",
		"Welcome to the adventure!",
		fmt.Sprintf("Game started with %s character", e.role),
		"Your turn to choose an activity",
	)
	e.started = true

	e.logger.Info("Gameplay started", "actions", len(e.actions))
	return nil
}

// Advance plays the current round with the chosen action. The caller must
// pass a key from the current action set. On failure the action set, log and
// round counter are exactly as they were before the call.
func (e *Engine) Advance(ctx context.Context, actionKey, actionLabel string) (Outcome, error) {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return Outcome{}, fmt.Errorf("%w: gameplay not started", ErrInvalidTransition)
	}
	if err := e.acquire(); err != nil {
		e.mu.Unlock()
		return Outcome{}, err
	}
	round := e.round
	mark := len(e.log)
	e.appendLog(e.now(), LogMyPlayer, "User chose to "+actionLabel)
	e.mu.Unlock()

	resp, err := e.gw.PlayRound(ctx, gateway.RoundRequest{
		RuleID:     e.ruleID,
		PlayerRole: e.role,
		RoundID:    round,
		Action:     "User chose to " + actionKey,
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false

	if err != nil {
		e.log = e.log[:mark]
		e.logger.Error("Failed to play round", "round", round, "action", actionKey, "error", err)
		return Outcome{}, fmt.Errorf("failed to play round %d: %w", round, err)
	}

	now := e.now()
	e.actions = ExtractActions(resp.NextAction)
	if choose := resp.NextAction.Get("choose"); !choose.IsNull() {
		e.prompt = choose.Text()
	}

	if last := resp.LastHistory(); last != nil {
		e.log = append(e.log, ExtractLog(last.Get("actions"), LogSystem, now)...)
		e.log = append(e.log, ExtractLog(last.Get("events"), LogEvent, now)...)
	}
	e.appendLog(now, LogSystem, fmt.Sprintf("Round %d completed", round))

	out := Outcome{Round: round}
	if round >= MaxRounds {
		e.over = true
		e.transient = &Transient{
			Text:      fmt.Sprintf("Reaching Round Limit %d", round),
			IsError:   true,
			ExpiresAt: now.Add(TransientTTL),
		}
		out.Restart = true
		out.RestartAfter = RestartDelay
		e.logger.Info("Round limit reached", "round", round)
		return out, nil
	}

	e.transient = &Transient{
		Text:      "Round Complete!",
		ExpiresAt: now.Add(TransientTTL),
	}
	e.round++
	out.NextRound = e.round

	e.logger.Debug("Round completed", "round", round, "actions", len(e.actions))
	return out, nil
}

// acquire marks the engine busy. Callers hold e.mu.
func (e *Engine) acquire() error {
	if e.busy {
		return ErrBusy
	}
	if e.over {
		return ErrMatchOver
	}
	e.busy = true
	return nil
}

func (e *Engine) appendLog(at time.Time, t LogType, messages ...string) {
	for _, m := range messages {
		e.log = append(e.log, LogEntry{Message: m, Type: t, At: at})
	}
}

func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

func (e *Engine) Round() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.round
}

// Transient returns the current banner, or nil once it has expired.
func (e *Engine) Transient() *Transient {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liveTransient()
}

func (e *Engine) liveTransient() *Transient {
	if !e.transient.Live(e.now()) {
		return nil
	}
	t := *e.transient
	return &t
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Round:     e.round,
		Actions:   append([]Action(nil), e.actions...),
		Log:       append([]LogEntry(nil), e.log...),
		Prompt:    e.prompt,
		Busy:      e.busy,
		Started:   e.started,
		Over:      e.over,
		Transient: e.liveTransient(),
	}
}
