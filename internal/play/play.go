// Package play runs a game in a line-oriented terminal session.
package play

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/robalobadob/numguess/apps/go-server/internal/game"
)

// Session drives one Game from an input stream and renders every Result.
//
// Input lines are guesses, except:
//   - "new"  restarts the game,
//   - "quit" ends the session.
//
// When a game ends the player is asked whether to play again (y/n).
type Session struct {
	Game *game.Game
	In   io.Reader
	Out  io.Writer
}

// Run plays until quit, a declined replay, or end of input.
// It returns the number of games won.
func (s *Session) Run() (int, error) {
	sc := bufio.NewScanner(s.In)
	wins := 0

	if err := s.render(s.Game.Start()); err != nil {
		return wins, err
	}
	for {
		if s.Game.IsActive() {
			fmt.Fprint(s.Out, "> ")
		} else {
			fmt.Fprint(s.Out, "Play again? (y/n) ")
		}
		if !sc.Scan() {
			return wins, sc.Err()
		}
		line := strings.TrimSpace(sc.Text())

		switch {
		case strings.EqualFold(line, "quit"):
			return wins, nil
		case strings.EqualFold(line, "new"):
			if err := s.render(s.Game.Start()); err != nil {
				return wins, err
			}
		case !s.Game.IsActive():
			switch strings.ToLower(line) {
			case "y", "yes":
				if err := s.render(s.Game.Start()); err != nil {
					return wins, err
				}
			case "n", "no":
				return wins, nil
			}
		default:
			res := s.Game.GuessInput(line)
			if res.Status == game.StatusCorrect {
				wins++
			}
			if err := s.render(res); err != nil {
				return wins, err
			}
		}
	}
}

func (s *Session) render(res game.Result) error {
	_, err := fmt.Fprintf(s.Out, "[%s] %s\n", res.Status, res.Message)
	if err != nil {
		return err
	}
	if len(res.PreviousGuesses) > 0 {
		parts := make([]string, len(res.PreviousGuesses))
		for i, g := range res.PreviousGuesses {
			parts[i] = fmt.Sprint(g)
		}
		_, err = fmt.Fprintf(s.Out, "Attempts left: %d | Previous: %s\n", res.AttemptsLeft, strings.Join(parts, ", "))
		return err
	}
	_, err = fmt.Fprintf(s.Out, "Attempts left: %d\n", res.AttemptsLeft)
	return err
}
