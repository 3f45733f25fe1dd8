package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	reqerrors "github.com/matzehuels/reqtrace/pkg/errors"
	"github.com/matzehuels/reqtrace/pkg/pep508"
	"github.com/matzehuels/reqtrace/pkg/pipeline"
	"github.com/matzehuels/reqtrace/pkg/store"
)

const defaultListLimit = 20

func (s *Server) httpEnvironment(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.env)
}

func (s *Server) httpTrace(w http.ResponseWriter, r *http.Request) {
	res, err := s.trace(r, pipeline.FormatJSON)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(res.Artifacts[pipeline.FormatJSON])
}

func (s *Server) httpGraph(format, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.trace(r, format)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		w.Write(res.Artifacts[format])
	}
}

func (s *Server) trace(r *http.Request, format string) (*pipeline.Result, error) {
	q := r.URL.Query()
	env, err := queryEnvironment(s.env, q["env"])
	if err != nil {
		return nil, err
	}
	return s.runner.Execute(r.Context(), pipeline.Options{
		Package:             chi.URLParam(r, "package"),
		Environment:         env,
		ReportAllDepths:     queryBool(q.Get("all")),
		FollowUnconditional: queryBool(q.Get("deep")),
		Refresh:             queryBool(q.Get("refresh")),
		Formats:             []string{format},
	})
}

func (s *Server) httpListReports(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, errNoStore)
		return
	}
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, reqerrors.New(reqerrors.ErrCodeInvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	reports, err := s.store.List(r.Context(), r.URL.Query().Get("package"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) httpGetReport(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, errNoStore)
		return
	}
	rep, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

var errNoStore = reqerrors.New(reqerrors.ErrCodeNotFound, "report storage is not configured")

func queryEnvironment(base pep508.Environment, assignments []string) (pep508.Environment, error) {
	if len(assignments) == 0 {
		return base, nil
	}
	overrides := make(map[string]string, len(assignments))
	for _, a := range assignments {
		k, v, err := pep508.ParseAssignment(a)
		if err != nil {
			return nil, reqerrors.Wrap(reqerrors.ErrCodeInvalidInput, err, "env")
		}
		overrides[k] = v
	}
	env, err := base.With(overrides)
	if err != nil {
		return nil, reqerrors.Wrap(reqerrors.ErrCodeInvalidInput, err, "env")
	}
	return env, nil
}

func queryBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

type errorBody struct {
	Error string         `json:"error"`
	Code  reqerrors.Code `json:"code,omitempty"`
}

// statusFor maps an error to the HTTP status reported to clients.
func statusFor(err error) int {
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return reqerrors.GetCode(err).HTTPStatus()
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.l.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorBody{Error: reqerrors.UserMessage(err), Code: reqerrors.GetCode(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
