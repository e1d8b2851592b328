package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/fleetcheck/internal/domain"
	apimw "github.com/hamed0406/fleetcheck/internal/httpapi/middleware"
	"github.com/hamed0406/fleetcheck/internal/report"
	"github.com/hamed0406/fleetcheck/internal/repo"
	"github.com/hamed0406/fleetcheck/internal/scheduler"
)

// Runner starts fleet runs on demand.
type Runner interface {
	Trigger(ctx context.Context) error
	Running() bool
}

type Server struct {
	Logger  *zap.Logger
	Runs    repo.RunStore
	Runner  Runner
	Servers []domain.Server
}

func NewServer(l *zap.Logger, runs repo.RunStore, runner Runner, servers []domain.Server) *Server {
	return &Server{Logger: l, Runs: runs, Runner: runner, Servers: servers}
}

// Router builds the API. Read routes need a public or admin key, starting a
// run needs an admin key. Everything under /api is rate limited per client.
func (s *Server) Router(keys apimw.Keys, publicRPM, publicBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.RateLimit(publicRPM, publicBurst))

		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireAny(keys))
			r.Get("/servers", s.handleListServers)
			r.Get("/runs", s.handleListRuns)
			r.Get("/runs/latest", s.handleLatestRun)
			r.Get("/runs/latest/servers/{hostname}", s.handleLatestServer)
			r.Get("/runs/{id}", s.handleGetRun)
		})

		r.With(apimw.RequireAdmin(keys)).Post("/runs", s.handleTriggerRun)
	})

	return r
}

type runResponse struct {
	Run     repo.RunSummary `json:"run"`
	Running bool            `json:"running"`
	Report  report.Report   `json:"report"`
	Crashes []string        `json:"crashes,omitempty"`
}

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Servers)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.Runs.List(r.Context())
	if err != nil {
		s.Logger.Warn("list_runs_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"running": s.Runner.Running(),
		"runs":    runs,
	})
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.latest(w, r)
	if !ok {
		return
	}
	verbose, _ := strconv.ParseBool(r.URL.Query().Get("verbose"))
	writeJSON(w, http.StatusOK, runResponse{
		Run:     repo.Summarize(run),
		Running: s.Runner.Running(),
		Report:  report.Format(run.Results, verbose),
		Crashes: run.Crashes,
	})
}

func (s *Server) handleLatestServer(w http.ResponseWriter, r *http.Request) {
	run, ok := s.latest(w, r)
	if !ok {
		return
	}
	host := chi.URLParam(r, "hostname")
	for _, sr := range run.Results {
		if sr.Server.Hostname == host {
			writeJSON(w, http.StatusOK, sr)
			return
		}
	}
	writeError(w, http.StatusNotFound, "server not in latest run")
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.Runs.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.Logger.Warn("get_run_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get error")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	err := s.Runner.Trigger(r.Context())
	if errors.Is(err, scheduler.ErrRunInProgress) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.Logger.Warn("trigger_run_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not start run")
		return
	}
	s.Logger.Info("run_triggered", zap.String("remote", r.RemoteAddr))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) latest(w http.ResponseWriter, r *http.Request) (domain.Run, bool) {
	run, err := s.Runs.Latest(r.Context())
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no runs yet")
		return domain.Run{}, false
	}
	if err != nil {
		s.Logger.Warn("latest_run_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "latest error")
		return domain.Run{}, false
	}
	return run, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
