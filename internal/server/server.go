// Package server is the HTTP entry point: it runs maintenance plans on request
// and streams their output as plain text or over a WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/stevehiehn/maintain/internal/app"
	"github.com/stevehiehn/maintain/internal/config"
	"github.com/stevehiehn/maintain/internal/engine"
	dagerrors "github.com/stevehiehn/maintain/internal/errors"
	"github.com/stevehiehn/maintain/internal/plan"
)

// Config configures a Server.
type Config struct {
	Addr      string
	PlansDir  string
	WorkDir   string // artifact root; empty disables artifacts
	AppDir    string
	Settings  config.Settings
	NewHandle config.HandleFactory // defaults to a console built from Settings
}

// Server serves plan runs. Only one run is in flight at a time because the
// application handle is a single-owner resource.
type Server struct {
	cfg      Config
	busy     *atomic.Bool
	upgrader websocket.Upgrader
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.NewHandle == nil {
		cfg.NewHandle = cfg.Settings.Factory(cfg.AppDir)
	}
	return &Server{
		cfg:  cfg,
		busy: atomic.NewBool(false),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameHost,
		},
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /plans", s.handlePlans)
	mux.HandleFunc("POST /run/{plan}", s.handleRun)
	mux.HandleFunc("GET /ws/{plan}", s.handleWS)
	return mux
}

// Run listens on cfg.Addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", ln.Addr().String()).Str("plans", s.cfg.PlansDir).Msg("HTTP server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("HTTP server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"running": s.busy.Load(),
	})
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	plans, skipped, err := plan.LoadDir(s.cfg.PlansDir)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	for path, perr := range skipped {
		log.Warn().Err(perr).Str("file", path).Msg("Skipping unreadable plan")
	}
	type entry struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Tasks       int    `json:"tasks"`
	}
	out := make([]entry, 0, len(plans))
	for _, p := range plans {
		out = append(out, entry{Name: p.Name, Description: p.Description, Tasks: len(p.Tasks)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": out})
}

// prepared is a plan that passed every check a run needs before it starts.
type prepared struct {
	plan    *plan.Plan
	inputs  map[string]string
	approve bool
}

func (s *Server) prepare(r *http.Request) (*prepared, int, error) {
	p, err := plan.Find(s.cfg.PlansDir, r.PathValue("plan"))
	if err != nil {
		return nil, http.StatusNotFound, err
	}
	q := r.URL.Query()
	inputs := map[string]string{}
	for _, kv := range q["input"] {
		if k, v, ok := strings.Cut(kv, "="); ok {
			inputs[k] = v
		}
	}
	inputs = plan.ApplyDefaults(p, inputs)
	if err := plan.Validate(p, inputs); err != nil {
		return nil, http.StatusBadRequest, err
	}
	approve := q.Get("approve") == "1" || q.Get("approve") == "true"
	if err := plan.CheckApproval(p, approve); err != nil {
		return nil, http.StatusForbidden, err
	}
	return &prepared{plan: p, inputs: inputs, approve: approve}, http.StatusOK, nil
}

// acquire marks the server busy. The caller must call release when it returns true.
func (s *Server) acquire() bool {
	return s.busy.CompareAndSwap(false, true)
}

func (s *Server) release() {
	s.busy.Store(false)
}

// execute runs pr to completion. The run is detached from the request's
// cancellation: a client that disconnects mid-run must not kill a task.
func (s *Server) execute(ctx context.Context, pr *prepared, h app.Handle, prompt string, stream func(string)) (*engine.Report, error) {
	ctx = context.WithoutCancel(ctx)
	rc := engine.NewRunContext(s.cfg.WorkDir, pr.inputs, pr.approve)
	rc.Prompt = prompt
	rc.Stream = writerFunc(stream)
	return engine.Execute(ctx, pr.plan, h, rc, engine.ModeRun)
}

// handleRun streams a run as text/plain, flushing after every write. The
// outcome is reported in the X-Maintain-Success trailer since the status line
// is sent before the first task starts.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	pr, code, err := s.prepare(r)
	if err != nil {
		http.Error(w, err.Error(), code)
		return
	}
	if !s.acquire() {
		http.Error(w, "a maintenance run is already in progress", http.StatusConflict)
		return
	}
	defer s.release()

	h, prompt, err := s.cfg.NewHandle(pr.plan.App)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Trailer", "X-Maintain-Success, X-Maintain-Run-Id")
	w.WriteHeader(http.StatusOK)

	remote := r.RemoteAddr
	log.Info().Str("plan", pr.plan.Name).Str("remote", remote).Msg("HTTP run requested")

	report, runErr := s.execute(r.Context(), pr, h, prompt, func(chunk string) {
		fmt.Fprint(w, chunk)
		if flusher != nil {
			flusher.Flush()
		}
	})
	if report == nil {
		fmt.Fprintf(w, "\n%s\n", runErr)
		w.Header().Set("X-Maintain-Success", "false")
		return
	}
	w.Header().Set("X-Maintain-Run-Id", report.RunID)
	w.Header().Set("X-Maintain-Success", fmt.Sprint(report.Success))
	if runErr != nil && !dagerrors.IsFatal(runErr) {
		fmt.Fprintf(w, "\n%s\n", runErr)
	}
}

// wsMessage is a frame sent to WebSocket clients.
type wsMessage struct {
	Type   string         `json:"type"` // "output" or "report"
	Data   string         `json:"data,omitempty"`
	Report *engine.Report `json:"report,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// handleWS streams a run over a WebSocket: one "output" frame per write and a
// final "report" frame, then a normal close.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	pr, code, err := s.prepare(r)
	if err != nil {
		http.Error(w, err.Error(), code)
		return
	}
	if !s.acquire() {
		http.Error(w, "a maintenance run is already in progress", http.StatusConflict)
		return
	}
	defer s.release()

	h, prompt, err := s.cfg.NewHandle(pr.plan.App)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	session := xid.New().String()
	logger := log.With().Str("session", session).Str("plan", pr.plan.Name).Logger()
	logger.Info().Msg("WebSocket client connected")

	send := func(m wsMessage) {
		data, err := sonic.Marshal(m)
		if err != nil {
			logger.Error().Err(err).Msg("Encoding WebSocket frame failed")
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debug().Err(err).Msg("WebSocket write failed")
		}
	}

	report, runErr := s.execute(r.Context(), pr, h, prompt, func(chunk string) {
		send(wsMessage{Type: "output", Data: chunk})
	})
	final := wsMessage{Type: "report", Report: report}
	if runErr != nil {
		final.Error = runErr.Error()
	}
	send(final)

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	logger.Info().Msg("WebSocket client done")
}

type writerFunc func(string)

func (f writerFunc) Write(p []byte) (int, error) {
	f(string(p))
	return len(p), nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

// sameHost accepts requests without an Origin header and those whose Origin
// host matches the request host.
func sameHost(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	_, rest, ok := strings.Cut(origin, "://")
	if !ok {
		return false
	}
	return strings.EqualFold(rest, r.Host)
}
