// apps/go-server/internal/game/types.go
//
// Core type definitions for the number-guessing engine.
// Defines:
//   - Status: closed set of result kinds (info/warning/correct/error).
//   - Result: descriptor returned by every engine operation.
//   - Config: range, attempt budget and random source for a game.
//   - Game: state for a single in-progress or finished game.

package game

import (
	"sync"
	"time"
)

// Status classifies a Result for the presentation layer.
//   - "info":    neutral progress (new game, hints, repeated guess).
//   - "warning": rejected action (invalid input, game already over).
//   - "correct": the guess matched the secret.
//   - "error":   attempts exhausted, the game is lost.
type Status string

const (
	StatusInfo    Status = "info"
	StatusWarning Status = "warning"
	StatusCorrect Status = "correct"
	StatusError   Status = "error"
)

// Coarse lifecycle states reported by Game.State.
const (
	StateNotStarted = "not_started"
	StatePlaying    = "playing"
	StateWon        = "won"
	StateLost       = "lost"
)

// Result is the snapshot returned after every Start/Guess call.
// It always carries the full current state so callers can render
// without a separate query.
type Result struct {
	Message         string `json:"message"`
	AttemptsLeft    int    `json:"attemptsLeft"`
	PreviousGuesses []int  `json:"previousGuesses"`
	Active          bool   `json:"active"`
	Status          Status `json:"status"`
}

// RandomSource draws the secret number.
type RandomSource interface {
	// IntRange returns an integer in [min, max], both inclusive.
	IntRange(min, max int) int
}

// Config parameterizes a Game. Zero fields take the defaults.
type Config struct {
	Min         int
	Max         int
	MaxAttempts int
	Rand        RandomSource
}

// Game holds the state of a single guessing game.
// All exported methods are safe for concurrent use; each Start/Guess
// is applied atomically.
type Game struct {
	ID        string    // Unique game identifier (uuid).
	CreatedAt time.Time // When the Game was constructed.

	cfg Config

	mu           sync.Mutex
	started      bool
	secret       int
	attemptsLeft int
	guesses      []int
	active       bool
	won          bool
}
