package game

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
)

func newFixed(t *testing.T, secret int) *Game {
	t.Helper()
	g, err := New(Config{Min: 1, Max: 100, MaxAttempts: 10, Rand: FixedSource{N: secret}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestNewAppliesDefaults(t *testing.T) {
	g, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cfg := g.Config()
	if cfg.Min != DefaultMin || cfg.Max != DefaultMax || cfg.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if _, ok := cfg.Rand.(CryptoSource); !ok {
		t.Errorf("expected CryptoSource default, got %T", cfg.Rand)
	}
	if g.ID == "" {
		t.Error("expected a game id")
	}
	if g.State() != StateNotStarted {
		t.Errorf("expected %s, got %s", StateNotStarted, g.State())
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"min above max", Config{Min: 10, Max: 5}},
		{"negative attempts", Config{Min: 1, Max: 5, MaxAttempts: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestStartResetsState(t *testing.T) {
	g := newFixed(t, 50)
	g.Start()
	g.Guess(10)
	g.Guess(20)

	res := g.Start()
	if res.Status != StatusInfo {
		t.Errorf("expected info, got %s", res.Status)
	}
	if res.AttemptsLeft != 10 {
		t.Errorf("expected 10 attempts, got %d", res.AttemptsLeft)
	}
	if len(res.PreviousGuesses) != 0 || res.PreviousGuesses == nil {
		t.Errorf("expected empty non-nil history, got %#v", res.PreviousGuesses)
	}
	if !res.Active || !g.IsActive() {
		t.Error("expected active game after start")
	}
	if res.Message != "New game started! Guess a number between 1 and 100." {
		t.Errorf("unexpected message %q", res.Message)
	}
}

func TestScenarioFromMockedSecret(t *testing.T) {
	g := newFixed(t, 50)
	g.Start()

	steps := []struct {
		guess    int
		status   Status
		message  string
		attempts int
		active   bool
	}{
		{30, StatusInfo, "30 is too low. Keep trying!", 9, true},
		{70, StatusInfo, "70 is too high. Keep trying!", 8, true},
		{30, StatusInfo, "You already tried 30. Try another one.", 8, true},
		{50, StatusCorrect, "Congratulations! You guessed the number 50 in 3 attempts.", 7, false},
		{10, StatusWarning, "The game is over. Please start a new one.", 7, false},
	}
	for i, s := range steps {
		res := g.Guess(s.guess)
		if res.Status != s.status {
			t.Errorf("step %d: expected status %s, got %s", i, s.status, res.Status)
		}
		if res.Message != s.message {
			t.Errorf("step %d: expected message %q, got %q", i, s.message, res.Message)
		}
		if res.AttemptsLeft != s.attempts {
			t.Errorf("step %d: expected %d attempts left, got %d", i, s.attempts, res.AttemptsLeft)
		}
		if res.Active != s.active {
			t.Errorf("step %d: expected active=%v", i, s.active)
		}
	}
	if got := g.State(); got != StateWon {
		t.Errorf("expected %s, got %s", StateWon, got)
	}
	if want := []int{30, 70, 50}; !slices.Equal(g.Snapshot().PreviousGuesses, want) {
		t.Errorf("expected history %v, got %v", want, g.Snapshot().PreviousGuesses)
	}
}

func TestInvalidGuessesDoNotMutate(t *testing.T) {
	g := newFixed(t, 50)
	g.Start()
	g.Guess(40)

	for _, v := range []int{0, -5, 101, 1000000} {
		res := g.Guess(v)
		if res.Status != StatusWarning {
			t.Errorf("guess %d: expected warning, got %s", v, res.Status)
		}
		if res.AttemptsLeft != 9 || !slices.Equal(res.PreviousGuesses, []int{40}) {
			t.Errorf("guess %d mutated state: %+v", v, res)
		}
	}
	for _, raw := range []string{"", "abc", "4.5", "12abc", "999999999999999999999999"} {
		res := g.GuessInput(raw)
		if res.Status != StatusWarning {
			t.Errorf("input %q: expected warning, got %s", raw, res.Status)
		}
		if res.AttemptsLeft != 9 {
			t.Errorf("input %q mutated attempts: %d", raw, res.AttemptsLeft)
		}
	}
}

func TestGuessInputParses(t *testing.T) {
	g := newFixed(t, 50)
	g.Start()
	res := g.GuessInput("  25\n")
	if res.Status != StatusInfo || res.Message != "25 is too low. Keep trying!" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.AttemptsLeft != 9 {
		t.Errorf("expected 9 attempts left, got %d", res.AttemptsLeft)
	}
}

func TestGuessBeforeStart(t *testing.T) {
	g := newFixed(t, 50)
	res := g.Guess(50)
	if res.Status != StatusWarning || res.Active {
		t.Errorf("expected inactive warning, got %+v", res)
	}
	if g.AttemptsUsed() != 0 {
		t.Error("guess before start must not be recorded")
	}
	// Inactive takes precedence over input validation.
	if res := g.GuessInput("nope"); res.Message != "No game in progress. Please start a new one." {
		t.Errorf("unexpected message %q", res.Message)
	}
}

func TestExhaustingAttemptsLoses(t *testing.T) {
	g, err := New(Config{Min: 1, Max: 100, MaxAttempts: 10, Rand: FixedSource{N: 100}})
	if err != nil {
		t.Fatal(err)
	}
	g.Start()
	var res Result
	for v := 1; v <= 10; v++ {
		res = g.Guess(v)
		if v < 10 && res.Status != StatusInfo {
			t.Fatalf("guess %d: expected info, got %s", v, res.Status)
		}
	}
	if res.Status != StatusError {
		t.Fatalf("expected error on last attempt, got %s", res.Status)
	}
	if res.Message != "Game over! You ran out of attempts. The number was 100." {
		t.Errorf("unexpected message %q", res.Message)
	}
	if res.AttemptsLeft != 0 || res.Active || g.IsActive() {
		t.Errorf("expected exhausted inactive game, got %+v", res)
	}
	if g.State() != StateLost {
		t.Errorf("expected lost, got %s", g.State())
	}
	if after := g.Guess(100); after.Status != StatusWarning || after.AttemptsLeft != 0 {
		t.Errorf("expected no mutation after loss, got %+v", after)
	}
}

func TestCorrectOnLastAttemptWins(t *testing.T) {
	g, err := New(Config{Min: 1, Max: 3, MaxAttempts: 3, Rand: FixedSource{N: 3}})
	if err != nil {
		t.Fatal(err)
	}
	g.Start()
	g.Guess(1)
	g.Guess(2)
	res := g.Guess(3)
	if res.Status != StatusCorrect || res.AttemptsLeft != 0 {
		t.Errorf("expected win with 0 attempts left, got %+v", res)
	}
	if g.State() != StateWon {
		t.Errorf("expected won, got %s", g.State())
	}
}

func TestCorrectFirstGuess(t *testing.T) {
	g := newFixed(t, 7)
	g.Start()
	res := g.Guess(7)
	if res.Status != StatusCorrect || res.Active {
		t.Fatalf("expected immediate win, got %+v", res)
	}
	if res.Message != "Congratulations! You guessed the number 7 in 1 attempts." {
		t.Errorf("unexpected message %q", res.Message)
	}
	if res.AttemptsLeft != 9 {
		t.Errorf("expected 9 attempts left, got %d", res.AttemptsLeft)
	}
}

func TestResultHistoryIsACopy(t *testing.T) {
	g := newFixed(t, 50)
	g.Start()
	res := g.Guess(10)
	res.PreviousGuesses[0] = 99
	if got := g.Snapshot().PreviousGuesses; got[0] != 10 {
		t.Errorf("engine history mutated through result: %v", got)
	}
}

func TestSnapshotByState(t *testing.T) {
	g := newFixed(t, 5)
	if s := g.Snapshot(); s.Status != StatusWarning {
		t.Errorf("not started: expected warning, got %s", s.Status)
	}
	g.Start()
	if s := g.Snapshot(); s.Status != StatusInfo || !s.Active {
		t.Errorf("playing: unexpected %+v", s)
	}
	g.Guess(5)
	if s := g.Snapshot(); s.Status != StatusCorrect || s.Message != "You guessed the number 5." {
		t.Errorf("won: unexpected %+v", s)
	}
}

func TestSecretClampedToRange(t *testing.T) {
	g, err := New(Config{Min: 1, Max: 10, MaxAttempts: 10, Rand: rogueSource(500)})
	if err != nil {
		t.Fatal(err)
	}
	g.Start()
	if res := g.Guess(10); res.Status != StatusCorrect {
		t.Errorf("expected secret clamped to 10, got %+v", res)
	}
}

type rogueSource int

func (r rogueSource) IntRange(int, int) int { return int(r) }

func TestStartWideRanges(t *testing.T) {
	ranges := [][2]int{
		{0, math.MaxInt},
		{-1, math.MaxInt},
		{math.MinInt, math.MaxInt},
	}
	for _, r := range ranges {
		t.Run(fmt.Sprintf("%d..%d", r[0], r[1]), func(t *testing.T) {
			g, err := New(Config{Min: r[0], Max: r[1], MaxAttempts: 3})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			res := g.Start()
			if res.Status != StatusInfo || !res.Active {
				t.Fatalf("unexpected start %+v", res)
			}
			if res := g.Guess(r[1]); res.Status == StatusWarning {
				t.Errorf("max should be a valid guess, got %+v", res)
			}
		})
	}
}

func TestGuessInputCommittedReportsCommit(t *testing.T) {
	g := newFixed(t, 50)
	if _, ok := g.GuessInputCommitted("10"); ok {
		t.Error("guess before start must not commit")
	}
	g.Start()

	steps := []struct {
		raw  string
		want bool
	}{
		{"10", true},
		{"10", false},  // repeat
		{"abc", false}, // not a number
		{"101", false}, // out of range
		{"50", true},   // win
		{"60", false},  // game over
	}
	for _, st := range steps {
		if _, ok := g.GuessInputCommitted(st.raw); ok != st.want {
			t.Errorf("GuessInputCommitted(%q) committed=%v, want %v", st.raw, ok, st.want)
		}
	}
}

func TestConcurrentGuessesAreAtomic(t *testing.T) {
	g, err := New(Config{Min: 1, Max: 100, MaxAttempts: 10, Rand: FixedSource{N: 100}})
	if err != nil {
		t.Fatal(err)
	}
	g.Start()

	var committed atomic.Int32
	var wg sync.WaitGroup
	for v := 1; v <= 50; v++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			if _, ok := g.GuessInputCommitted(fmt.Sprint(v)); ok {
				committed.Add(1)
			}
		}(v)
	}
	wg.Wait()

	snap := g.Snapshot()
	hist := snap.PreviousGuesses
	if len(hist) > 10 {
		t.Fatalf("committed %d guesses, budget is 10", len(hist))
	}
	if int(committed.Load()) != len(hist) {
		t.Errorf("reported %d commits, history has %d", committed.Load(), len(hist))
	}
	if snap.AttemptsLeft != 10-len(hist) {
		t.Errorf("attemptsLeft %d does not match history %v", snap.AttemptsLeft, hist)
	}
	sorted := slices.Clone(hist)
	slices.Sort(sorted)
	if len(slices.Compact(sorted)) != len(hist) {
		t.Errorf("duplicate guesses in history %v", hist)
	}
	if len(hist) != 10 || g.IsActive() {
		t.Errorf("expected all 10 attempts spent and the game lost, got %v active=%v", hist, g.IsActive())
	}
}

func TestConcurrentWinningGuessCommitsOnce(t *testing.T) {
	g := newFixed(t, 50)
	g.Start()

	var committed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := g.GuessInputCommitted("50"); ok {
				committed.Add(1)
			}
		}()
	}
	wg.Wait()

	if committed.Load() != 1 {
		t.Errorf("expected exactly one committed win, got %d", committed.Load())
	}
	if g.State() != StateWon || g.AttemptsUsed() != 1 {
		t.Errorf("unexpected state %s with %d attempts", g.State(), g.AttemptsUsed())
	}
}

func TestConcurrentStartAndGuessKeepInvariants(t *testing.T) {
	g := newFixed(t, 100)
	g.Start()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(v int) {
			defer wg.Done()
			g.Guess(v)
		}(i + 1)
		go func() {
			defer wg.Done()
			g.Start()
		}()
	}
	wg.Wait()

	snap := g.Snapshot()
	if snap.AttemptsLeft != 10-len(snap.PreviousGuesses) {
		t.Errorf("attemptsLeft %d does not match history %v", snap.AttemptsLeft, snap.PreviousGuesses)
	}
}
