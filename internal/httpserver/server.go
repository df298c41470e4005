// internal/httpserver/server.go
//
// HTTP server wiring for the WordSeek service.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/debug/words", "/leaderboard".
//   - Guest identity: POST /auth/guest issues a JWT, GET /auth/me echoes it.
//   - Room endpoints: post chat text, subscribe over WebSocket, read the
//     current session and the win history.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The WebSocket handler returns as soon as the hub has taken over the
//     upgraded connection, so the timeout middleware never fires on it.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordseek/internal/bot"
	"github.com/robalobadob/wordseek/internal/game"
	"github.com/robalobadob/wordseek/internal/gateway"
	"github.com/robalobadob/wordseek/internal/ledger"
	"github.com/robalobadob/wordseek/internal/scoreboard"
)

// Engine is the read side of the game engine used by the HTTP layer.
type Engine interface {
	Snapshot(room string) (game.View, bool)
	SoloSnapshot(room string, player game.PlayerID) (game.SoloView, bool)
	Leaderboard(n int) []scoreboard.Entry
	ActiveGames() (multiplayer, solo int)
}

// Dispatcher handles inbound chat text.
type Dispatcher interface {
	Handle(ctx context.Context, in bot.Inbound) error
}

// Subscriber upgrades requests to room subscriptions.
type Subscriber interface {
	Serve(w http.ResponseWriter, r *http.Request, room string, client gateway.Client) error
	Stats() map[string]interface{}
}

// History reads finished games.
type History interface {
	Recent(ctx context.Context, room string, limit int) ([]ledger.Win, error)
	Ping(ctx context.Context) error
}

// WordStats describes the loaded catalog.
type WordStats interface {
	Len() int
	WordLength() int
}

// Deps are the collaborators of the server. History may be nil.
type Deps struct {
	Engine  Engine
	Bot     Dispatcher
	Hub     Subscriber
	History History
	Words   WordStats
}

// Options configures identity and CORS.
type Options struct {
	ClientOrigin string
	JWTSecret    string
	JWTTTL       time.Duration
	CookieName   string
	SecureCookie bool
	Timeout      time.Duration
}

func (o Options) withDefaults() Options {
	if o.ClientOrigin == "" {
		o.ClientOrigin = "http://localhost:5173"
	}
	if o.JWTSecret == "" {
		o.JWTSecret = "dev-secret-change-me"
	}
	if o.JWTTTL <= 0 {
		o.JWTTTL = 7 * 24 * time.Hour
	}
	if o.CookieName == "" {
		o.CookieName = "wordseek_token"
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

// Server bundles the router and its collaborators.
type Server struct {
	r    *chi.Mux
	deps Deps
	opts Options
	http *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(deps Deps, opts Options) *Server {
	s := &Server{r: chi.NewRouter(), deps: deps, opts: opts.withDefaults()}

	// --- middleware ---
	s.r.Use(chimw.RequestID)               // add X-Request-ID
	s.r.Use(chimw.RealIP)                  // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)               // recover from panics
	s.r.Use(chimw.Timeout(s.opts.Timeout)) // bound handler time
	s.r.Use(jsonContentType)               // default JSON responses
	s.r.Use(s.cors)                        // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"wordseek","endpoints":["/health","/leaderboard","POST /auth/guest","/rooms/{room}","POST /rooms/{room}/messages","/rooms/{room}/ws","/rooms/{room}/wins"]}`))
	})
	s.r.Get("/health", s.handleHealth)
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int{
			"words":  s.deps.Words.Len(),
			"length": s.deps.Words.WordLength(),
		})
	})

	s.mountAuthRoutes()
	s.mountRoomRoutes()
	s.r.Get("/leaderboard", s.handleLeaderboard)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Start serves HTTP on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops a server started with Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	mp, solo := s.deps.Engine.ActiveGames()
	body := map[string]any{
		"ok":          true,
		"games":       mp,
		"soloGames":   solo,
		"connections": s.deps.Hub.Stats()["total_connections"],
	}
	status := http.StatusOK
	if s.deps.History != nil {
		if err := s.deps.History.Ping(r.Context()); err != nil {
			log.Warn().Err(err).Msg("ledger ping failed")
			body["ok"] = false
			body["ledger"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

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
	origin := s.opts.ClientOrigin
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

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
