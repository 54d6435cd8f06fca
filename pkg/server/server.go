// Package server exposes the task manager over HTTP.
//
// Routes:
//
//	GET    /                          health check
//	GET    /agent/status              admission figures and retained runs
//	POST   /agent/execute             run a goal and wait for the result
//	POST   /agent/tasks               submit a goal, returns its task id
//	GET    /agent/tasks               list retained runs
//	GET    /agent/tasks/{id}          status and snapshot of one run
//	POST   /agent/tasks/{id}/stop     request a stop
//	DELETE /agent/tasks/{id}          forget a finished run
//	GET    /agent/tasks/{id}/events   websocket stream of step events
package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/tasks"
	"github.com/entrhq/webpilot/pkg/types"
)

// maxBodyBytes bounds request bodies; a goal is at most a few KB.
const maxBodyBytes = 1 << 20

var serverLog *logging.Logger

func init() {
	var err error
	serverLog, err = logging.NewLogger("server")
	if err != nil {
		serverLog.Warnf("Failed to initialize server logger, using stderr fallback: %v", err)
	}
}

// Server routes HTTP requests to a task manager.
type Server struct {
	manager  *tasks.Manager
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// New creates a server for manager.
func New(manager *tasks.Manager) *Server {
	s := &Server{
		manager: manager,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleHealth)
	s.mux.HandleFunc("GET /agent/status", s.handleStatus)
	s.mux.HandleFunc("POST /agent/execute", s.handleExecute)
	s.mux.HandleFunc("POST /agent/tasks", s.handleSubmit)
	s.mux.HandleFunc("GET /agent/tasks", s.handleList)
	s.mux.HandleFunc("GET /agent/tasks/{id}", s.handleGetTask)
	s.mux.HandleFunc("POST /agent/tasks/{id}/stop", s.handleStop)
	s.mux.HandleFunc("DELETE /agent/tasks/{id}", s.handleCleanup)
	s.mux.HandleFunc("GET /agent/tasks/{id}/events", s.handleEvents)
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// ExecuteResponse is the body returned by POST /agent/execute.
type ExecuteResponse struct {
	TaskID        string       `json:"task_id"`
	Goal          string       `json:"goal"`
	Status        types.Status `json:"status"`
	Steps         []types.Step `json:"steps"`
	FinalResult   string       `json:"final_result,omitempty"`
	Error         *types.Error `json:"error,omitempty"`
	ExecutionTime float64      `json:"execution_time"`
}

// TaskResponse is the body returned by GET /agent/tasks/{id}.
type TaskResponse struct {
	*tasks.StatusInfo
	Run *types.TaskRun `json:"run"`
}

// StatusResponse is the body returned by GET /agent/status.
type StatusResponse struct {
	tasks.Stats
	Tasks []*tasks.StatusInfo `json:"tasks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "webpilot agent API is running",
		"status":  "healthy",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Stats: s.manager.Stats(), Tasks: s.manager.List()})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	run, err := s.manager.Execute(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ExecuteResponse{
		TaskID:        run.ID,
		Goal:          run.Request.Goal,
		Status:        run.Status,
		Steps:         run.Steps,
		FinalResult:   run.FinalResult,
		Error:         run.Error,
		ExecutionTime: run.ExecutionTime(time.Now()).Seconds(),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	id, err := s.manager.Submit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": id})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.List())
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := s.manager.Snapshot(id)
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := s.manager.Status(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TaskResponse{StatusInfo: status, Run: run})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.manager.Stop(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": id, "message": "stop requested"})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Cleanup(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (types.TaskRequest, bool) {
	var req types.TaskRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, types.WrapError(types.ErrorKindValidation, err, "invalid request body"))
		return req, false
	}
	return req, true
}

type errorResponse struct {
	Error *types.Error `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tasks.ErrBusy), errors.Is(err, tasks.ErrShuttingDown):
		status = http.StatusServiceUnavailable
	case errors.Is(err, tasks.ErrTaskNotFound):
		status = http.StatusNotFound
	case errors.Is(err, tasks.ErrTaskActive):
		status = http.StatusConflict
	case types.KindOf(err) == types.ErrorKindValidation:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Error: types.AsError(err, "")})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		serverLog.Warnf("Failed to write response: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack hands the connection over to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		serverLog.Infof("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
