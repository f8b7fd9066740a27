package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/mixorder/pkg/buildinfo"
	"github.com/matzehuels/mixorder/pkg/errors"
	"github.com/matzehuels/mixorder/pkg/library"
	"github.com/matzehuels/mixorder/pkg/mix"
	"github.com/matzehuels/mixorder/pkg/mix/cost"
	"github.com/matzehuels/mixorder/pkg/mix/exact"
	"github.com/matzehuels/mixorder/pkg/pipeline"
	"github.com/matzehuels/mixorder/pkg/store"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// MixRequest is the raw-table boundary shared by /v1/mix/anneal and
// /v1/mix/exact. AnnealParams, TimeLimitSeconds and Seed are ignored by
// the exact endpoint.
type MixRequest struct {
	Tables           cost.Tables        `json:"tables"`
	CostParams       map[string]float64 `json:"cost_params" validate:"required"`
	AnnealParams     map[string]float64 `json:"anneal_params"`
	TimeLimitSeconds float64            `json:"time_limit_seconds" validate:"gte=0"`
	Seed             int64              `json:"seed"`
}

// OptimizeRequest orders a track list with the server's configured
// weights.
type OptimizeRequest struct {
	Name             string          `json:"name" validate:"max=128"`
	Tracks           []library.Track `json:"tracks" validate:"required,min=1,max=1000"`
	Mode             string          `json:"mode" validate:"omitempty,oneof=auto anneal exact"`
	TimeLimitSeconds float64         `json:"time_limit_seconds" validate:"gte=0"`
	Workers          int             `json:"workers" validate:"gte=0,lte=64"`
	Seed             int64           `json:"seed"`
	Save             bool            `json:"save"`
}

// OptimizeResponse wraps a pipeline result with the saved set ID, if any.
type OptimizeResponse struct {
	SetID  string           `json:"set_id,omitempty"`
	Result *pipeline.Result `json:"result"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Build: buildinfo.Get()})
}

// handleAnneal handles POST /v1/mix/anneal.
func (s *Server) handleAnneal(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r, "anneal")

	var req MixRequest
	if !s.decode(w, r, &req) {
		return
	}
	if limit := s.cfg.Server.MaxTimeLimit.Duration; limit > 0 && seconds(req.TimeLimitSeconds) > limit {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidParam, "time_limit_seconds exceeds the server limit of %v", limit))
		return
	}
	if limit := s.cfg.Server.MaxIterations; limit > 0 {
		if v, ok := req.AnnealParams["total_iterations"]; ok && !(v <= float64(limit)) {
			s.fail(w, r, errors.New(errors.ErrCodeInvalidParam, "total_iterations exceeds the server limit of %d", limit))
			return
		}
	}

	logger.Info("annealing", "tracks", req.Tables.Len(), "time_limit", req.TimeLimitSeconds)
	out, err := mix.OptimizeMix(r.Context(), req.Tables, req.CostParams, req.AnnealParams, req.TimeLimitSeconds, req.Seed)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logger.Info("annealed", "cost", out.Solution.Cost, "attempts", len(out.Attempts))
	writeJSON(w, http.StatusOK, out)
}

// handleExact handles POST /v1/mix/exact.
func (s *Server) handleExact(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r, "exact")

	var req MixRequest
	if !s.decode(w, r, &req) {
		return
	}
	params, err := mix.CostParamsFromMap(req.CostParams)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	logger.Info("solving exactly", "tracks", req.Tables.Len())
	solver := mix.Exact{Options: exact.Options{MaxTableBytes: int64(s.cfg.Optimizer.ExactMemoryMB) << 20}}
	out, err := solver.Solve(r.Context(), mix.Problem{Tables: req.Tables, Params: params})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleOptimize handles POST /v1/sets/optimize.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r, "optimize")

	var req OptimizeRequest
	if !s.decode(w, r, &req) {
		return
	}

	opts := s.cfg.PipelineOptions()
	if req.Mode != "" {
		opts.Mode = req.Mode
	}
	if req.TimeLimitSeconds > 0 {
		opts.TimeLimit = seconds(req.TimeLimitSeconds)
	}
	if limit := s.cfg.Server.MaxTimeLimit.Duration; limit > 0 && opts.TimeLimit > limit {
		opts.TimeLimit = limit
	}
	if req.Workers > 0 {
		opts.Workers = req.Workers
	}
	if req.Seed != 0 {
		opts.Seed = req.Seed
	}
	opts.Logger = logger

	res, err := s.runner.Execute(r.Context(), req.Tracks, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := OptimizeResponse{Result: res}
	if req.Save {
		set := &store.SavedSet{
			Name:      req.Name,
			Mode:      string(res.Mode),
			Tracks:    res.Tracks,
			Shifts:    res.Shifts,
			Cost:      res.Cost,
			Breakdown: res.Breakdown,
		}
		if err := s.store.Save(r.Context(), set); err != nil {
			s.fail(w, r, err)
			return
		}
		resp.SetID = set.ID
		logger.Info("saved set", "id", set.ID, "name", set.Name)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetSet handles GET /v1/sets/{id}.
func (s *Server) handleGetSet(w http.ResponseWriter, r *http.Request) {
	set, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.requestLogger(r, "decode").Warn("invalid request body", "error", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Code: "INVALID_REQUEST"})
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return false
	}
	return true
}

// fail maps err to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	logger := s.requestLogger(r, "error")
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Warn("request rejected", "error", err)
	}
	msg := errors.UserMessage(err)
	if status >= http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.IsInput(err):
		return http.StatusBadRequest, string(errors.GetCode(err))
	case errors.Is(err, errors.ErrCodeUnsupportedSize):
		return http.StatusUnprocessableEntity, string(errors.ErrCodeUnsupportedSize)
	case errors.Is(err, errors.ErrCodeNotFound):
		return http.StatusNotFound, string(errors.ErrCodeNotFound)
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case stderrors.Is(err, context.Canceled):
		return 499, "CANCELED"
	}
	return http.StatusInternalServerError, string(errors.ErrCodeInternal)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
