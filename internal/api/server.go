// Package api provides the HTTP API for observing and playing a world.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (player and admin control).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/civilzones/internal/engine"
	"github.com/talgya/civilzones/internal/persistence"
	"github.com/talgya/civilzones/internal/world"
)

const (
	maxStreamConns = 4
	defaultView    = 64
	streamPoll     = 50 * time.Millisecond
	streamBacklog  = 50 // events sent on connect
	writeWait      = 5 * time.Second
	readWait       = 60 * time.Second
)

// Server serves the world over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// Active stream connection count (atomic).
	streamConns int32

	upgrader websocket.Upgrader
}

// Handler builds the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	commandLimiter := NewRateLimiter(600, time.Minute)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/view", s.handleView)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/saves", s.handleSaves)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Player commands (POST, bearer token, rate limited).
	mux.HandleFunc("/api/v1/commands/", RateLimitMiddleware(commandLimiter, s.adminOnly(s.handleCommand)))

	// Admin endpoints.
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	handler := s.Handler()
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no ZONESIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":    "Civilzones",
		"speed":   s.Eng.Speed(),
		"running": s.Eng.Running(),
		"stats":   s.Sim.Stats(),
	}
	if s.DB != nil {
		if v, err := s.DB.GetMeta("last_tick"); err == nil {
			if tick, err := strconv.ParseUint(v, 10, 64); err == nil {
				status["last_saved_tick"] = tick
			}
		}
	}
	writeJSON(w, status)
}

// handleView returns the tiles and visible entities of ?x&y&w&h. Without
// a rectangle it centres a default window on the player.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	rect, err := parseRect(r, s.defaultRect())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, s.Sim.View(rect))
}

func (s *Server) defaultRect() world.Rect {
	p := s.Sim.PlayerPos()
	return world.Rect{X: p.X - defaultView/2, Y: p.Y - defaultView/2, W: defaultView, H: defaultView}
}

func parseRect(r *http.Request, def world.Rect) (world.Rect, error) {
	q := r.URL.Query()
	rect := def
	for _, f := range []struct {
		name string
		dst  *int
	}{{"x", &rect.X}, {"y", &rect.Y}, {"w", &rect.W}, {"h", &rect.H}} {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return rect, fmt.Errorf("invalid %s", f.name)
		}
		*f.dst = n
	}
	if rect.W <= 0 || rect.H <= 0 || rect.W > engine.MaxViewSide || rect.H > engine.MaxViewSide {
		return rect, fmt.Errorf("w and h must be 1-%d", engine.MaxViewSide)
	}
	return rect, nil
}

// handleEvents lists events oldest first. ?since=<seq> pages forward from
// a cursor and ?source=history reads the saved log, newest first.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	var events []engine.Event
	switch {
	case q.Get("source") == "history":
		if s.DB == nil {
			http.Error(w, "database not available", http.StatusServiceUnavailable)
			return
		}
		var err error
		if events, err = s.DB.RecentEvents(s.Sim.WorldID().String(), limit); err != nil {
			slog.Error("event history failed", "error", err)
			http.Error(w, "event history failed", http.StatusInternalServerError)
			return
		}
	case q.Has("since"):
		seq, err := strconv.ParseUint(q.Get("since"), 10, 64)
		if err != nil {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		events = s.Sim.EventsSince(seq)
		if len(events) > limit {
			events = events[:limit]
		}
	default:
		events = s.Sim.RecentEvents(limit)
	}

	// Optional category filter.
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	writeJSON(w, events)
}

func (s *Server) handleSaves(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	saves, err := s.DB.Saves(s.Sim.WorldID().String())
	if err != nil {
		slog.Error("list saves failed", "error", err)
		http.Error(w, "list saves failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, saves)
}

// commandRequest carries the arguments of every command; each command
// reads the fields it needs.
type commandRequest struct {
	DX      int    `json:"dx"`
	DY      int    `json:"dy"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Kind    string `json:"kind"`
	Special string `json:"special"`
}

// handleCommand dispatches POST /api/v1/commands/{name}. Rejected
// commands answer 409 and leave the world untouched.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/v1/commands/")

	var req commandRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}

	var (
		err    error
		result any
	)
	switch name {
	case "move":
		err = s.Sim.MovePlayer(req.DX, req.DY)
	case "moveto":
		err = s.Sim.MovePlayerTo(req.X, req.Y)
	case "settle":
		err = s.Sim.Settle()
	case "build":
		kind, ok := world.ParseKind(req.Kind)
		if !ok {
			http.Error(w, "unknown structure kind", http.StatusBadRequest)
			return
		}
		special := world.SpecialNone
		if kind == world.KindSpecial {
			if special, ok = world.ParseSpecial(req.Special); !ok {
				http.Error(w, "unknown special", http.StatusBadRequest)
				return
			}
		}
		err = s.Sim.Build(kind, special, req.X, req.Y)
	case "demolish":
		err = s.Sim.Demolish(req.X, req.Y)
	case "hunt":
		err = s.Sim.Hunt(req.X, req.Y)
	case "mine":
		err = s.Sim.Mine(req.X, req.Y)
	case "turn":
		result, err = s.Sim.AdvanceTurn()
	default:
		http.Error(w, "unknown command (use: move, moveto, settle, build, demolish, hunt, mine, turn)", http.StatusNotFound)
		return
	}

	if err != nil {
		if errors.Is(err, engine.ErrRejected) {
			writeJSONStatus(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("command failed", "command", name, "error", err)
		http.Error(w, "command failed", http.StatusInternalServerError)
		return
	}

	slog.Debug("command applied", "command", name, "tick", s.Sim.Tick())
	if result == nil {
		result = s.Sim.Stats()
	}
	writeJSON(w, result)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 100 {
			http.Error(w, "speed must be 0-100", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	if err := s.DB.SaveWorldState(s.Sim); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"tick":    s.Sim.Tick(),
		"message": "snapshot saved",
	})
}

// streamMsg is one frame pushed over the websocket.
type streamMsg struct {
	Type   string         `json:"type"` // "view" or "event"
	View   *engine.View   `json:"view,omitempty"`
	Events []engine.Event `json:"events,omitempty"`
}

// subscribeMsg moves the client's viewport.
type subscribeMsg struct {
	Type string     `json:"type"`
	Rect world.Rect `json:"rect"`
}

// handleStream upgrades to a websocket and pushes a view of the
// subscribed rectangle whenever the world ticks. A client that cannot
// keep up skips frames rather than queueing them.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	current := atomic.AddInt32(&s.streamConns, 1)
	if current > maxStreamConns {
		atomic.AddInt32(&s.streamConns, -1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.streamConns, -1)

	rect, err := parseRect(r, s.defaultRect())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	slog.Info("stream client connected", "remote", r.RemoteAddr)

	var viewport atomic.Pointer[world.Rect]
	viewport.Store(&rect)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Frames are built off the poll loop; the guard drops a tick's frame
	// while the previous one is still being written.
	var (
		guard    engine.RenderGuard
		sentTick = ^uint64(0)
		lastSeq  uint64
	)
	frame := func() {
		defer guard.End()
		tick := s.Sim.Tick()
		fresh := s.Sim.EventsSince(lastSeq)
		if tick == sentTick && len(fresh) == 0 {
			return
		}
		if len(fresh) > streamBacklog {
			fresh = fresh[len(fresh)-streamBacklog:]
		}
		v := s.Sim.View(*viewport.Load())
		err := writeFrame(conn, streamMsg{Type: "view", View: &v})
		if err == nil && len(fresh) > 0 {
			err = writeFrame(conn, streamMsg{Type: "event", Events: fresh})
		}
		if err != nil {
			// Unblocks the reader loop.
			_ = conn.Close()
			cancel()
			return
		}
		sentTick = tick
		if len(fresh) > 0 {
			lastSeq = fresh[len(fresh)-1].Seq
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		poll := time.NewTicker(streamPoll)
		defer poll.Stop()
		for {
			select {
			case <-ctx.Done():
				// Wait out an in-flight frame so it doesn't outlive conn.
				for !guard.TryBegin() {
					time.Sleep(time.Millisecond)
				}
				return
			case <-poll.C:
				if guard.TryBegin() {
					go frame()
				}
			}
		}
	}()

	// Reader loop: viewport updates.
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		_, msg, err := conn.ReadMessage()
		if err != nil || ctx.Err() != nil {
			break
		}
		var sub subscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != "subscribe" {
			continue
		}
		if sub.Rect.W > 0 && sub.Rect.H > 0 && sub.Rect.W <= engine.MaxViewSide && sub.Rect.H <= engine.MaxViewSide {
			viewport.Store(&sub.Rect)
		}
	}

	cancel()
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	<-done
	slog.Info("stream client disconnected", "remote", r.RemoteAddr)
}

func writeFrame(conn *websocket.Conn, m streamMsg) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(m)
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
