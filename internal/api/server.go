// Package api provides the HTTP control plane (§6): the control-command
// endpoint and the health endpoint the operator (or an external
// supervisor) polls. Adapted from the teacher's backtest/WebSocket API
// server onto the orchestra's command queue and health snapshot.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/il101/breakout-engine/internal/orchestrator"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Config configures the control-plane HTTP listener.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig is a sane bind-all-interfaces default.
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8090,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Server is the minimal control-plane HTTP server: health + commands.
type Server struct {
	logger       *zap.Logger
	config       Config
	router       *mux.Router
	httpServer   *http.Server
	orchestrator *orchestrator.Orchestrator
}

// commandRequest is the control-command endpoint's request body (§6).
type commandRequest struct {
	Type          string `json:"type"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Preset        string `json:"preset,omitempty"`
	Mode          string `json:"mode,omitempty"`
}

// NewServer builds the control-plane server over a running orchestrator.
func NewServer(logger *zap.Logger, config Config, orch *orchestrator.Orchestrator) *Server {
	s := &Server{
		logger:       logger.Named("api"),
		config:       config,
		router:       mux.NewRouter(),
		orchestrator: orch,
	}
	s.setupRoutes()
	return s
}

// ServeHTTP makes Server itself an http.Handler, useful for testing
// without binding a real listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/v1/command", s.handleCommand).Methods("POST")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// Start begins serving. Blocks until Stop is called or ListenAndServe
// fails for a reason other than server shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("starting control plane", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.Health())
}

var validCommandTypes = map[orchestrator.CommandType]bool{
	orchestrator.CommandStart:      true,
	orchestrator.CommandStop:       true,
	orchestrator.CommandPause:      true,
	orchestrator.CommandResume:     true,
	orchestrator.CommandTimeStop:   true,
	orchestrator.CommandPanicExit:  true,
	orchestrator.CommandKillSwitch: true,
	orchestrator.CommandRetry:      true,
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, orchestrator.CommandResult{
			Success: false, Message: "invalid request body", Timestamp: time.Now().Unix(),
		})
		return
	}

	cmdType := orchestrator.CommandType(req.Type)
	if !validCommandTypes[cmdType] {
		writeJSON(w, http.StatusBadRequest, orchestrator.CommandResult{
			Success: false, Message: "unknown command type: " + req.Type, Timestamp: time.Now().Unix(),
		})
		return
	}

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	s.orchestrator.Submit(orchestrator.Command{
		Type:          cmdType,
		CorrelationID: correlationID,
		PresetName:    req.Preset,
		Mode:          req.Mode,
	})

	writeJSON(w, http.StatusAccepted, orchestrator.CommandResult{
		Success:   true,
		Message:   fmt.Sprintf("%s accepted (correlation_id=%s)", req.Type, correlationID),
		Timestamp: time.Now().Unix(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
