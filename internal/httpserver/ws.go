// apps/go-server/internal/httpserver/ws.go
//
// Realtime play over a websocket: GET /game/{id}/ws.
//   - On connect the server sends the game's current snapshot.
//   - Client frames: {"guess": 42} / {"guess": "42"} or {"action":"restart"}.
//   - Server frames: the same gameRes as the HTTP endpoints, or
//     {"error":"rate_limited"|"unknown_action"}.
//
// Guesses and restarts share a per-connection token bucket
// (WS_GUESS_INTERVAL, WS_GUESS_BURST).

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/robalobadob/numguess/apps/go-server/internal/game"
)

// wsMsg is a client frame: either a guess or {"action":"restart"}.
type wsMsg struct {
	Action string          `json:"action,omitempty"`
	Guess  json.RawMessage `json:"guess,omitempty"`
}

// handleGameWS plays a stored game over a websocket. The current snapshot is
// sent on connect and every frame is answered with a gameRes (or an error
// frame when the client exceeds the rate).
func (s *Server) handleGameWS(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	o := s.ownerOf(w, r)

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.originPatterns()})
	if err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("websocket accept")
		return
	}
	defer c.CloseNow()

	err = s.playWS(r.Context(), c, o, g)
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway:
		return
	default:
		log.Warn().Err(err).Str("gameId", g.ID).Msg("websocket play")
	}
}

// playWS is the per-connection read/apply/write loop.
func (s *Server) playWS(ctx context.Context, c *websocket.Conn, o owner, g *game.Game) error {
	limiter := rate.NewLimiter(rate.Every(s.cfg.WSGuessInterval), max(1, s.cfg.WSGuessBurst))

	if err := wsjson.Write(ctx, c, newGameRes(g, g.Snapshot())); err != nil {
		return err
	}
	for {
		var msg wsMsg
		if err := wsjson.Read(ctx, c, &msg); err != nil {
			return err
		}

		switch msg.Action {
		case "restart", "", "guess":
		default:
			if err := wsjson.Write(ctx, c, map[string]string{"error": "unknown_action"}); err != nil {
				return err
			}
			continue
		}
		// Restarts draw from the same budget as guesses.
		if !limiter.Allow() {
			if err := wsjson.Write(ctx, c, map[string]string{"error": "rate_limited"}); err != nil {
				return err
			}
			continue
		}

		var res game.Result
		if msg.Action == "restart" {
			res = g.Start()
			s.restartGameRow(ctx, o, g)
		} else {
			res = s.applyGuess(ctx, o, g, rawGuess(msg.Guess))
		}
		if err := wsjson.Write(ctx, c, newGameRes(g, res)); err != nil {
			return err
		}
	}
}

// originPatterns allows the configured client origin in addition to same-host.
func (s *Server) originPatterns() []string {
	u, err := url.Parse(s.cfg.ClientOrigin)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
