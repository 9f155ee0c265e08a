package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robalobadob/numguess/apps/go-server/internal/game"
)

func mustGame(t *testing.T) *game.Game {
	t.Helper()
	g, err := game.New(game.Config{Rand: game.FixedSource{N: 42}})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestMemorySaveGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	g := mustGame(t)

	if err := m.Save(ctx, g); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := m.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != g {
		t.Error("expected the same game pointer back")
	}

	if err := m.Delete(ctx, g.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(ctx, g.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := m.Delete(ctx, "missing"); err != nil {
		t.Errorf("delete of missing id should be a no-op, got %v", err)
	}
}

func TestMemorySweepKeepsActiveGames(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	finished := mustGame(t)
	finished.Start()
	finished.Guess(42)

	playing := mustGame(t)
	playing.Start()

	idle := mustGame(t) // never started

	for _, g := range []*game.Game{finished, playing, idle} {
		_ = m.Save(ctx, g)
	}

	if n := m.Sweep(time.Now().Add(time.Minute)); n != 2 {
		t.Errorf("expected 2 swept, got %d", n)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 remaining, got %d", m.Len())
	}
	if _, err := m.Get(ctx, playing.ID); err != nil {
		t.Errorf("active game should survive sweep: %v", err)
	}
}

func TestMemorySweepRespectsCutoff(t *testing.T) {
	m := NewMemoryStore()
	g := mustGame(t)
	_ = m.Save(context.Background(), g)
	if n := m.Sweep(time.Now().Add(-time.Hour)); n != 0 {
		t.Errorf("expected nothing swept before cutoff, got %d", n)
	}
}
