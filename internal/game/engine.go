// apps/go-server/internal/game/engine.go
//
// Core game engine for a single number-guessing session.
// Responsibilities:
//   - Create new games with a configurable range and attempt budget (1..100, 10).
//   - Draw the secret through an injected RandomSource.
//   - Validate and apply guesses (numeric, in range, not repeated).
//   - Track state transitions: not_started → playing → won/lost.
//
// Notes:
//   - Gameplay never returns an error: every outcome is a Result with a Status.
//   - Only New can fail, and only on an invalid Config.
package game

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMin         = 1
	DefaultMax         = 100
	DefaultMaxAttempts = 10
)

// ErrInvalidConfig is wrapped by New when the Config cannot describe a game.
var ErrInvalidConfig = errors.New("invalid game config")

// New constructs a game in the not_started state. Call Start to play.
// A Config with both Min and Max zero uses the default 1..100 range.
func New(cfg Config) (*Game, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Game{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		cfg:       cfg,
	}, nil
}

func (c Config) withDefaults() Config {
	if c.Min == 0 && c.Max == 0 {
		c.Min, c.Max = DefaultMin, DefaultMax
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Rand == nil {
		c.Rand = CryptoSource{}
	}
	return c
}

// Validate reports whether the range and attempt budget are usable.
func (c Config) Validate() error {
	if c.Min > c.Max {
		return fmt.Errorf("%w: min %d is greater than max %d", ErrInvalidConfig, c.Min, c.Max)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	return nil
}

// Config returns the effective configuration (defaults applied).
func (g *Game) Config() Config { return g.cfg }

// Start draws a new secret and resets attempts and history.
// Any previous game on g is discarded.
func (g *Game) Start() Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	// The secret stays within [Min, Max] whatever the source returns.
	g.secret = clamp(g.cfg.Rand.IntRange(g.cfg.Min, g.cfg.Max), g.cfg.Min, g.cfg.Max)
	g.attemptsLeft = g.cfg.MaxAttempts
	g.guesses = []int{}
	g.started, g.active, g.won = true, true, false

	log.Debug().Str("gameId", g.ID).Int("secret", g.secret).Msg("game started")

	return g.result(StatusInfo,
		fmt.Sprintf("New game started! Guess a number between %d and %d.", g.cfg.Min, g.cfg.Max))
}

// Guess applies an already-parsed guess.
//
// Decision order:
//   - Game not active → warning, no change.
//   - Outside [Min, Max] → warning, no change.
//   - Already guessed → info, no change.
//   - Otherwise one attempt is spent and the guess recorded; then
//     correct → won, attempts exhausted → lost, else a low/high hint.
func (g *Game) Guess(value int) Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	res, _ := g.apply(value, true)
	return res
}

// GuessInput parses raw caller input as a base-10 integer and applies it.
// Unparsable input is treated like an out-of-range guess.
func (g *Game) GuessInput(raw string) Result {
	res, _ := g.GuessInputCommitted(raw)
	return res
}

// GuessInputCommitted is GuessInput that also reports whether the guess
// spent an attempt. Both are decided under the same lock, so callers that
// persist progress count every committed guess exactly once.
func (g *Game) GuessInputCommitted(raw string) (Result, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.apply(v, err == nil)
}

// apply runs the decision policy. Callers hold g.mu.
func (g *Game) apply(v int, numeric bool) (Result, bool) {
	if !g.active {
		if !g.started {
			return g.result(StatusWarning, "No game in progress. Please start a new one."), false
		}
		return g.result(StatusWarning, "The game is over. Please start a new one."), false
	}
	if !numeric || v < g.cfg.Min || v > g.cfg.Max {
		return g.result(StatusWarning,
			fmt.Sprintf("Please enter a valid number between %d and %d.", g.cfg.Min, g.cfg.Max)), false
	}
	if slices.Contains(g.guesses, v) {
		return g.result(StatusInfo, fmt.Sprintf("You already tried %d. Try another one.", v)), false
	}

	g.attemptsLeft--
	g.guesses = append(g.guesses, v)

	switch {
	case v == g.secret:
		g.active, g.won = false, true
		return g.result(StatusCorrect, fmt.Sprintf("Congratulations! You guessed the number %d in %d attempts.",
			g.secret, g.cfg.MaxAttempts-g.attemptsLeft)), true
	case g.attemptsLeft == 0:
		g.active = false
		return g.result(StatusError, fmt.Sprintf("Game over! You ran out of attempts. The number was %d.", g.secret)), true
	case v < g.secret:
		return g.result(StatusInfo, fmt.Sprintf("%d is too low. Keep trying!", v)), true
	default:
		return g.result(StatusInfo, fmt.Sprintf("%d is too high. Keep trying!", v)), true
	}
}

// IsActive reports whether guesses are currently accepted.
func (g *Game) IsActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// State reports a coarse string representation of the current game state.
func (g *Game) State() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state()
}

func (g *Game) state() string {
	switch {
	case !g.started:
		return StateNotStarted
	case g.active:
		return StatePlaying
	case g.won:
		return StateWon
	}
	return StateLost
}

// Snapshot describes the current state without changing it.
// The secret is only revealed once the game has ended.
func (g *Game) Snapshot() Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state() {
	case StateNotStarted:
		return g.result(StatusWarning, "No game in progress. Please start a new one.")
	case StatePlaying:
		return g.result(StatusInfo, fmt.Sprintf("Guess a number between %d and %d.", g.cfg.Min, g.cfg.Max))
	case StateWon:
		return g.result(StatusCorrect, fmt.Sprintf("You guessed the number %d.", g.secret))
	}
	return g.result(StatusError, fmt.Sprintf("The number was %d.", g.secret))
}

// AttemptsUsed is the number of committed guesses in the current game.
func (g *Game) AttemptsUsed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.guesses)
}

// result builds a descriptor over the current state. Callers hold g.mu.
func (g *Game) result(st Status, msg string) Result {
	prev := make([]int, len(g.guesses))
	copy(prev, g.guesses)
	return Result{
		Message:         msg,
		AttemptsLeft:    g.attemptsLeft,
		PreviousGuesses: prev,
		Active:          g.active,
		Status:          st,
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
