package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/clusterer/internal/engine"
)

type Server struct {
	Engine *engine.Engine
	Logger *logrus.Entry
	Router *http.ServeMux

	// BaseContext is the parent of background runs. Defaults to context.Background.
	BaseContext context.Context
	startTime   time.Time
}

func NewServer(eng *engine.Engine, logger *logrus.Entry) *Server {
	s := &Server{
		Engine:      eng,
		Logger:      logger,
		Router:      http.NewServeMux(),
		BaseContext: context.Background(),
		startTime:   time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.HandleFunc("/api/v1/run", s.handleRun)
	s.Router.HandleFunc("/api/v1/clusters", s.handleClusters)
	s.Router.HandleFunc("/api/v1/status", s.handleStatus)
}

func (s *Server) Start(addr string) error {
	s.Logger.Infof("Starting API Server on %s", addr)
	return http.ListenAndServe(addr, s.Router)
}

// Responses
type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Running     bool      `json:"running"`
	Runs        int64     `json:"runs"`
	FailedRuns  int64     `json:"failed_runs"`
	LastError   string    `json:"last_error,omitempty"`
	LastRunTime time.Time `json:"last_run_time"`
	Uptime      string    `json:"uptime"`
}

// Handlers

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.Engine.Start(s.BaseContext); err != nil {
		if errors.Is(err, engine.ErrAlreadyRunning) {
			jsonResponse(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
			return
		}
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	jsonResponse(w, http.StatusAccepted, map[string]string{"status": "run_started"})
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result := s.Engine.LastResult()
	if result == nil {
		jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: "no clustering run has completed yet"})
		return
	}

	jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.Engine.GetStats()

	jsonResponse(w, http.StatusOK, StatusResponse{
		Running:     s.Engine.IsRunning(),
		Runs:        stats.Runs,
		FailedRuns:  stats.FailedRuns,
		LastError:   stats.LastError,
		LastRunTime: stats.LastRunTime,
		Uptime:      time.Since(s.startTime).Round(time.Second).String(),
	})
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
