// internal/httpserver/routes_rooms.go
//
// Room endpoints:
//   - POST /rooms/{room}/messages → hand chat text to the dispatcher (auth)
//   - GET  /rooms/{room}/ws       → subscribe to the room's messages (auth)
//   - GET  /rooms/{room}          → current multiplayer session and, for an
//                                   authenticated caller, their solo session
//   - GET  /rooms/{room}/wins     → win history from the ledger
//   - GET  /leaderboard           → in-memory scoreboard

package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordseek/internal/bot"
	"github.com/robalobadob/wordseek/internal/game"
	"github.com/robalobadob/wordseek/internal/gateway"
)

const maxRoomLen = 64

type messageReq struct {
	Text string `json:"text"`
}

type roomRes struct {
	Room string         `json:"room"`
	Game *game.View     `json:"game"`
	Solo *game.SoloView `json:"solo,omitempty"`
}

func (s *Server) mountRoomRoutes() {
	s.r.Route("/rooms/{room}", func(r chi.Router) {
		r.Use(validRoom)
		r.With(s.withOptionalAuth()).Get("/", s.handleRoom)
		r.With(s.requireAuth()).Post("/messages", s.handleMessage)
		r.With(s.requireAuth()).Get("/ws", s.handleSubscribe)
		r.Get("/wins", s.handleWins)
	})
}

// validRoom rejects empty or oversized room ids.
func validRoom(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		room := chi.URLParam(r, "room")
		if room == "" || len(room) > maxRoomLen || strings.ContainsAny(room, " \t\n") {
			writeError(w, http.StatusBadRequest, "invalid_room")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "empty_text")
		return
	}

	me := currentUser(r)
	room := chi.URLParam(r, "room")
	if err := s.deps.Bot.Handle(r.Context(), bot.Inbound{
		Room:     room,
		PlayerID: me.ID,
		Name:     me.Name,
		Text:     req.Text,
	}); err != nil {
		log.Error().Err(err).Str("room", room).Str("player", me.ID).Msg("handle message")
		writeError(w, http.StatusInternalServerError, "dispatch_failed")
		return
	}
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	me := currentUser(r)
	// Serve has already written an HTTP error when the upgrade fails.
	_ = s.deps.Hub.Serve(w, r, room, gateway.Client{PlayerID: me.ID, Name: me.Name})
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	res := roomRes{Room: room}
	if v, ok := s.deps.Engine.Snapshot(room); ok {
		res.Game = &v
	}
	if me := currentUser(r); me != nil {
		if v, ok := s.deps.Engine.SoloSnapshot(room, game.PlayerID(me.ID)); ok {
			res.Solo = &v
		}
	}
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Server) handleWins(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger_disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	wins, err := s.deps.History.Recent(r.Context(), chi.URLParam(r, "room"), limit)
	if err != nil {
		log.Error().Err(err).Msg("query wins")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	_ = json.NewEncoder(w).Encode(wins)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil || n <= 0 {
		n = bot.DefaultLeaderboardSize
	}
	_ = json.NewEncoder(w).Encode(s.deps.Engine.Leaderboard(n))
}
