// Package match drives a single board game match on the client: the view
// sequence from game selection to gameplay, the per-round exchange with the
// gameplay service, seat layout and the match log.
package match

import (
	"errors"
	"time"
)

const (
	// MaxRounds is the last playable round. The match restarts after it.
	MaxRounds = 10

	// TransientTTL is how long a round banner stays visible.
	TransientTTL = 2 * time.Second

	// RestartDelay is the pause between the final round and the match reset.
	RestartDelay = 2 * time.Second
)

var (
	ErrBusy              = errors.New("a request is already in flight")
	ErrMatchOver         = errors.New("match is over")
	ErrInvalidTransition = errors.New("invalid view transition")
	ErrNoCharacter       = errors.New("no character selected")
	ErrUnknownCharacter  = errors.New("character is not in the roster")
	ErrSeatCount         = errors.New("seat count must be between 2 and 5")
	ErrRosterTooSmall    = errors.New("roster has too few roles for the seat count")
	ErrRestarted         = errors.New("match was restarted while the request was in flight")
)

// LogType tags a match log entry for display.
type LogType string

const (
	LogSystem   LogType = "system"
	LogEvent    LogType = "event"
	LogResult   LogType = "result"
	LogMyPlayer LogType = "my-player"
)

// LogEntry is one line of the match log.
type LogEntry struct {
	Message string
	Type    LogType
	At      time.Time
}

// Action is one choice offered to the player for the current round.
type Action struct {
	Key   string
	Label string
}

// Transient is a short-lived banner such as "Round Complete!".
type Transient struct {
	Text      string
	IsError   bool
	ExpiresAt time.Time
}

// Live reports whether the banner should still be shown at now.
func (t *Transient) Live(now time.Time) bool {
	return t != nil && now.Before(t.ExpiresAt)
}

// Outcome describes what a successful Advance did.
type Outcome struct {
	Round        int // the round that was played
	NextRound    int // zero when the match ended
	Restart      bool
	RestartAfter time.Duration
}
