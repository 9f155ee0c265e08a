// apps/go-server/internal/httpserver/server.go
//
// HTTP server wiring for the number-guessing backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Game endpoints (optional auth): POST /game/new, POST /game/guess, GET /game/{id}.
//   - Realtime play: GET /game/{id}/ws (see ws.go).
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine (see routes_auth.go).
//   - Database persistence for game rows and user stats.
//
// Notes:
//   - Every game response embeds the engine's Result, so clients render
//     straight from the payload.
//   - Optional auth decorates requests with user context when a valid token is present;
//     routes can still run for guests (tracked by an anonymous cookie).

package httpserver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/apps/go-server/internal/auth"
	"github.com/robalobadob/numguess/apps/go-server/internal/config"
	"github.com/robalobadob/numguess/apps/go-server/internal/game"
	"github.com/robalobadob/numguess/apps/go-server/internal/store"
)

// Server bundles router, in-memory game store, and DB handle.
type Server struct {
	r      *chi.Mux
	cfg    config.Config
	store  store.Store
	db     *sql.DB
	users  *auth.Users
	issuer *auth.Issuer
	rand   game.RandomSource // nil → engine default
	now    func() time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithRandom injects the secret source for new non-daily games.
func WithRandom(src game.RandomSource) Option {
	return func(s *Server) { s.rand = src }
}

// WithClock overrides time.Now (daily date selection, timestamps).
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, db *sql.DB, opts ...Option) *Server {
	s := &Server{
		r:      chi.NewRouter(),
		cfg:    cfg,
		store:  st,
		db:     db,
		users:  auth.NewUsers(db),
		issuer: auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL()),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(s.cors)          // credentials-friendly CORS

	// Websocket play is long-lived: no handler timeout.
	s.r.With(s.withOptionalAuth()).Get("/game/{id}/ws", s.handleGameWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"numguess-go","endpoints":["/health","POST /game/new","POST /game/guess","GET /game/{id}","GET /game/{id}/ws","/daily/*","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		// Game endpoints (OPTIONAL AUTH) (guests can play)
		r.With(s.withOptionalAuth()).Post("/game/new", s.handleNewGame)
		r.With(s.withOptionalAuth()).Post("/game/guess", s.handleGuess)
		r.Get("/game/{id}", s.handleGetGame)

		// Daily Challenge (OPTIONAL AUTH) (guests can play; progress persisted on win)
		s.mountDaily(r.With(s.withOptionalAuth()))

		// Auth + profile/stats
		s.mountAuthRoutes(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ GAME ---------------------------------------

// newGameReq is the optional body for POST /game/new. Zero fields use the
// server defaults.
type newGameReq struct {
	Min         int `json:"min"`
	Max         int `json:"max"`
	MaxAttempts int `json:"maxAttempts"`
}

// gameRes is returned by every game endpoint: ids and range plus the
// engine's descriptor, flattened.
type gameRes struct {
	GameID string `json:"gameId"`
	State  string `json:"state"` // not_started | playing | won | lost
	Min    int    `json:"min"`
	Max    int    `json:"max"`
	game.Result
}

func newGameRes(g *game.Game, res game.Result) gameRes {
	cfg := g.Config()
	return gameRes{GameID: g.ID, State: g.State(), Min: cfg.Min, Max: cfg.Max, Result: res}
}

// handleNewGame creates and starts a game, keeps it in the store, and persists
// an owner row (either user_id or anonymous_id) for history/stats.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}

	gc := s.cfg.Game(s.rand)
	if req.Min != 0 || req.Max != 0 {
		gc.Min, gc.Max = req.Min, req.Max
	}
	if req.MaxAttempts != 0 {
		gc.MaxAttempts = req.MaxAttempts
	}
	g, err := game.New(gc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res := g.Start()
	if err := s.store.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	s.insertGameRow(r.Context(), s.ownerOf(w, r), g, "normal")
	writeJSON(w, http.StatusOK, newGameRes(g, res))
}

// guessReq is the payload for POST /game/guess. Guess may be a JSON number
// or a string; anything unparsable comes back as a warning result.
type guessReq struct {
	GameID string          `json:"gameId"`
	Guess  json.RawMessage `json:"guess"`
}

// handleGuess applies a guess to a stored game, persists progress,
// and (if finished) updates user stats in a best-effort transaction.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	g, err := s.store.Get(r.Context(), req.GameID)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	res := s.applyGuess(r.Context(), s.ownerOf(w, r), g, rawGuess(req.Guess))
	writeJSON(w, http.StatusOK, newGameRes(g, res))
}

// handleGetGame returns the current snapshot without mutating the game.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, newGameRes(g, g.Snapshot()))
}

// applyGuess runs the engine and mirrors committed guesses into the games table.
func (s *Server) applyGuess(ctx context.Context, o owner, g *game.Game, raw string) game.Result {
	res, committed := g.GuessInputCommitted(raw)
	if committed {
		s.recordGuess(ctx, o, g, res)
	}
	return res
}

// rawGuess flattens a JSON guess (number or string) into the text the engine parses.
func rawGuess(m json.RawMessage) string {
	var str string
	if err := json.Unmarshal(m, &str); err == nil {
		return str
	}
	return string(bytes.TrimSpace(m))
}

// ----------------------------- persistence ---------------------------------

// owner identifies who a game row belongs to.
type owner struct {
	userID string // set for authenticated users
	anonID string // set for guests
}

func (o owner) clause() (string, any) {
	if o.userID != "" {
		return `user_id=?`, o.userID
	}
	return `anonymous_id=?`, o.anonID
}

// ownerOf resolves the request's user, or the anonymous cookie id.
func (s *Server) ownerOf(w http.ResponseWriter, r *http.Request) owner {
	if me := userFrom(r.Context()); me != nil {
		return owner{userID: me.ID}
	}
	return owner{anonID: s.ensureAnonID(w, r)}
}

// insertGameRow persists the owner row; the secret is never stored.
func (s *Server) insertGameRow(ctx context.Context, o owner, g *game.Game, mode string) {
	cfg := g.Config()
	var userID, anonID any
	if o.userID != "" {
		userID = o.userID
	} else {
		anonID = o.anonID
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO games (id, user_id, anonymous_id, mode, range_min, range_max, max_attempts, status, guesses, started_at)
	                                  VALUES (?,?,?,?,?,?,?,?,0,?)`,
		g.ID, userID, anonID, mode, cfg.Min, cfg.Max, cfg.MaxAttempts, game.StatePlaying, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("insert game row")
	}
}

// restartGameRow resets the row after the same game id was started again.
func (s *Server) restartGameRow(ctx context.Context, o owner, g *game.Game) {
	clause, arg := o.clause()
	_, err := s.db.ExecContext(ctx, `UPDATE games SET status=?, guesses=0, finished_at=NULL, started_at=? WHERE id=? AND `+clause,
		game.StatePlaying, s.now().UTC().Format(time.RFC3339), g.ID, arg)
	if err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("restart game row")
	}
}

// recordGuess bumps the guess counter for a committed guess and, when res
// finished the game, stamps the outcome and updates user stats.
// Best effort: failures are logged.
func (s *Server) recordGuess(ctx context.Context, o owner, g *game.Game, res game.Result) {
	clause, arg := o.clause()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Warn().Err(err).Msg("begin tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE games SET guesses = guesses + 1 WHERE id=? AND `+clause, g.ID, arg); err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("update guesses")
	}

	if !res.Active {
		state := game.StateLost
		if res.Status == game.StatusCorrect {
			state = game.StateWon
		}
		if _, err := tx.ExecContext(ctx, `UPDATE games SET status=?, finished_at=? WHERE id=? AND `+clause,
			state, s.now().UTC().Format(time.RFC3339), g.ID, arg); err != nil {
			log.Warn().Err(err).Str("gameId", g.ID).Msg("finish game")
		}
		if o.userID != "" {
			if err := auth.BumpStats(ctx, tx, o.userID, state == game.StateWon); err != nil {
				log.Warn().Err(err).Str("user", o.userID).Msg("bump stats")
			}
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("commit guess")
	}
}

// ------------------------------- small util --------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
