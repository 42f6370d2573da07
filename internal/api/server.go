// Package api serves the lottery over HTTP. GET endpoints are public
// read-only snapshots for the renderer and observers; POST endpoints
// are the control panel and require a bearer token.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/cosmic-lottery/internal/oracle"
	"github.com/talgya/cosmic-lottery/internal/persistence"
	"github.com/talgya/cosmic-lottery/internal/sim"
)

// Server exposes the session state and control plane.
type Server struct {
	Session  *sim.Session
	Loop     *sim.Loop
	Oracle   *oracle.Client
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	// Oracle-backed endpoints are rate limited per IP.
	readingLimiter := NewRateLimiter(10, time.Hour)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/particles", s.handleParticles)
	mux.HandleFunc("/api/v1/result", s.handleResult)
	mux.HandleFunc("/api/v1/draws", s.handleDraws)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/config", s.handleConfig)
	mux.HandleFunc("/api/v1/reading", RateLimitMiddleware(readingLimiter, s.handleReading))

	// Control plane (POST, bearer token).
	mux.HandleFunc("/api/v1/start", s.adminOnly(s.handleStart))
	mux.HandleFunc("/api/v1/restart", s.adminOnly(s.handleRestart))
	mux.HandleFunc("/api/v1/select", s.adminOnly(s.handleSelect))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/camera", s.adminOnly(s.handleCamera))
	mux.HandleFunc("/api/v1/mood", s.adminOnly(s.handleMood))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(addr, corsMiddleware(mux)); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware allows configured renderer origins. Localhost dev
// servers are always allowed; set CORS_ORIGINS for anything else.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
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

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires a POST with a valid bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "control endpoints disabled (no admin key set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":      "Cosmic Lottery",
		"phase":     s.Session.Phase().String(),
		"tick":      s.Session.Tick(),
		"speed":     s.Loop.Speed(),
		"running":   s.Loop.Running(),
		"particles": s.Session.Config().Count,
		"policy":    s.Session.Config().Policy,
		"camera":    s.Session.CameraPose(),
		"oracle":    s.Oracle.Enabled(),
	}
	if s.Session.Phase() == sim.PhaseCountdown {
		status["countdown"] = s.Session.Countdown()
	}
	if s.DB != nil {
		if n, err := s.DB.CountDraws(); err == nil {
			status["total_draws"] = n
		}
	}
	writeJSON(w, status)
}

// handleParticles is the renderer snapshot: every particle's position,
// color, opacity and visibility, plus the camera pose and, once the
// draw is complete, the ids to label.
func (s *Server) handleParticles(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"phase":     s.Session.Phase().String(),
		"camera":    s.Session.CameraPose(),
		"particles": s.Session.Views(),
	}
	if res := s.Session.Result(); res != nil && s.Session.Phase() == sim.PhaseComplete {
		payload["labels"] = res.SelectedIDs
	}
	writeJSON(w, payload)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	res := s.Session.Result()
	if res == nil {
		http.Error(w, "no draw has completed", http.StatusNotFound)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleDraws(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "ledger disabled", http.StatusNotFound)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	records, err := s.DB.ListDraws(limit)
	if err != nil {
		slog.Error("list draws", "error", err)
		http.Error(w, "ledger unavailable", http.StatusInternalServerError)
		return
	}

	type entry struct {
		persistence.DrawRecord
		Ago string `json:"ago"`
	}
	out := make([]entry, 0, len(records))
	for _, rec := range records {
		out = append(out, entry{DrawRecord: rec, Ago: humanize.Time(rec.DrawnAt)})
	}
	writeJSON(w, map[string]any{"draws": out})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	writeJSON(w, map[string]any{"events": s.Session.Events(limit)})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.adminOnly(s.handleConfigUpdate)(w, r)
		return
	}
	writeJSON(w, s.Session.Config())
}

func (s *Server) handleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	// Decode over the live config so omitted fields keep their values.
	cfg := s.Session.Config()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "malformed config: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Session.ApplyConfig(cfg); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, map[string]any{"status": "applied"})
}

func (s *Server) handleReading(w http.ResponseWriter, r *http.Request) {
	res := s.Session.Result()
	if res == nil {
		http.Error(w, "no draw has completed", http.StatusNotFound)
		return
	}
	if !s.Oracle.Enabled() {
		http.Error(w, "oracle disabled", http.StatusServiceUnavailable)
		return
	}

	text, err := oracle.Reading(s.Oracle, *res)
	if err != nil {
		slog.Warn("reading failed", "error", err)
		http.Error(w, "the oracle is silent right now", http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"reading": text, "result": res})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.Session.Start()
	writeJSON(w, map[string]any{"status": "started", "phase": s.Session.Phase().String()})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	s.Session.Restart()
	writeJSON(w, map[string]any{"status": "restarted", "phase": s.Session.Phase().String()})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	s.Session.SelectNow()
	writeJSON(w, map[string]any{"status": "drawing", "phase": s.Session.Phase().String()})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	if body.Speed < 0 || body.Speed > 10 {
		http.Error(w, "speed outside [0, 10]", http.StatusUnprocessableEntity)
		return
	}
	s.Loop.SetSpeed(body.Speed)
	writeJSON(w, map[string]any{"status": "ok", "speed": s.Loop.Speed()})
}

func (s *Server) handleCamera(w http.ResponseWriter, r *http.Request) {
	cam := s.Session.CameraPose()
	if err := json.NewDecoder(r.Body).Decode(&cam); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	if err := s.Session.SetCamera(cam); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "camera": s.Session.CameraPose()})
}

// handleMood fires an asynchronous oracle suggestion. The response is
// an immediate 202; the new config lands via the session's generation
// guard, so a suggestion that arrives after a newer reset is dropped.
func (s *Server) handleMood(w http.ResponseWriter, r *http.Request) {
	if !s.Oracle.Enabled() {
		http.Error(w, "oracle disabled", http.StatusServiceUnavailable)
		return
	}

	var body struct {
		Mood string `json:"mood"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Mood) == "" {
		http.Error(w, "malformed body: expected {\"mood\": \"...\"}", http.StatusBadRequest)
		return
	}

	gen := s.Session.Generation()
	current := s.Session.Config()
	go func() {
		cfg, comment, err := oracle.SuggestConfig(s.Oracle, current, body.Mood)
		if err != nil {
			slog.Warn("oracle suggestion failed", "mood", body.Mood, "error", err)
			return
		}
		if err := s.Session.ApplyConfigIfGeneration(gen, cfg); err != nil {
			if errors.Is(err, sim.ErrStaleConfig) {
				slog.Info("oracle suggestion dropped, session was reset", "mood", body.Mood)
			} else {
				slog.Warn("oracle suggestion rejected", "mood", body.Mood, "error", err)
			}
			return
		}
		slog.Info("oracle suggestion applied", "mood", body.Mood, "comment", comment)
	}()

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]any{"status": "accepted", "mood": body.Mood})
}
