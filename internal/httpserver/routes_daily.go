// apps/go-server/internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start a daily game (creates or reuses session)
//   - POST /daily/guess       → submit a guess for today's daily game
//   - GET  /daily/leaderboard → fetch top 20 results for today (or a given date)
//
// Each player can finish the daily game once per day (enforced by DB + in-memory session).
// Sessions are held in memory for active play and persisted to DB on win.
// The secret is derived from date + salt, so everyone chases the same number.

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/apps/go-server/internal/daily"
	"github.com/robalobadob/numguess/apps/go-server/internal/game"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	sessions map[string]*dailySession // active sessions keyed by userID|date
	mu       sync.Mutex               // guards sessions
}

// dailySession holds transient in-memory state for one player's daily game.
type dailySession struct {
	Game  *game.Game
	Owner owner
	Date  string
	Start time.Time
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     s.cfg.DailySalt,
		sessions: make(map[string]*dailySession),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/guess", dd.handleGuess)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// playerKey is the user id for members, the anonymous id for guests.
func (o owner) playerKey() string {
	if o.userID != "" {
		return o.userID
	}
	return o.anonID
}

// -----------------------------------------------------------------------------
// /daily/new

// dailyNewRes is returned by /daily/new. Game is omitted when Played is true.
type dailyNewRes struct {
	Date   string   `json:"date"`
	Played bool     `json:"played"`
	Game   *gameRes `json:"game,omitempty"`
}

// handleNew creates or reuses a daily session for the current date.
//   - If the player already has a DB row for today → Played=true.
//   - Otherwise create/reuse an in-memory session and return its snapshot.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	o := d.srv.ownerOf(w, r)
	uid := o.playerKey()
	now := d.srv.now().UTC()
	date := daily.DateKey(now)

	if played, err := d.store.AlreadyPlayed(r.Context(), uid, date); err != nil {
		log.Warn().Err(err).Str("user", uid).Msg("daily already played")
	} else if played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Played: true})
		return
	}

	key := uid + "|" + date
	d.mu.Lock()
	if sess, ok := d.sessions[key]; ok {
		d.mu.Unlock()
		res := newGameRes(sess.Game, sess.Game.Snapshot())
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Game: &res})
		return
	}
	for k, old := range d.sessions {
		if old.Date != date {
			delete(d.sessions, k)
		}
	}
	g, err := game.New(d.srv.cfg.Game(daily.Source{Date: now, Salt: d.salt}))
	if err != nil {
		d.mu.Unlock()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	start := g.Start()
	d.sessions[key] = &dailySession{Game: g, Owner: o, Date: date, Start: now}
	d.mu.Unlock()

	d.srv.insertGameRow(r.Context(), o, g, "daily")
	res := newGameRes(g, start)
	writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Game: &res})
}

// -----------------------------------------------------------------------------
// /daily/guess

// dailyGuessReq is the request payload for /daily/guess.
type dailyGuessReq struct {
	GameID string          `json:"gameId"`
	Guess  json.RawMessage `json:"guess"`
}

// handleGuess applies a guess to today's daily session.
//   - Rejects unknown or stale game ids.
//   - Finished sessions return the engine's game-over warning.
//   - A win is persisted to daily_results (once per player and date).
func (d *dailyServer) handleGuess(w http.ResponseWriter, r *http.Request) {
	o := d.srv.ownerOf(w, r)
	uid := o.playerKey()

	var p dailyGuessReq
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	date := daily.DateKey(d.srv.now())

	d.mu.Lock()
	sess, ok := d.sessions[uid+"|"+date]
	d.mu.Unlock()
	if !ok || sess.Game.ID != p.GameID {
		writeError(w, http.StatusConflict, "no_session")
		return
	}

	res := d.srv.applyGuess(r.Context(), sess.Owner, sess.Game, rawGuess(p.Guess))
	if res.Status == game.StatusCorrect {
		err := d.store.InsertResult(r.Context(), daily.Result{
			UserID:    uid,
			Date:      date,
			Secret:    res.PreviousGuesses[len(res.PreviousGuesses)-1],
			Attempts:  len(res.PreviousGuesses),
			ElapsedMs: int(d.srv.now().Sub(sess.Start).Milliseconds()),
		})
		if err != nil {
			log.Warn().Err(err).Str("user", uid).Msg("insert daily result")
		}
	}
	writeJSON(w, http.StatusOK, newGameRes(sess.Game, res))
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(d.srv.now())
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
