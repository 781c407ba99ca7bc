// Package httpapi exposes the simulation commands over HTTP with JSON
// bodies. Timestamps cross this boundary as ISO-8601 strings and are
// converted to simulation hours before they reach the engine.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/hospital-sim/hospital-sim/metrics"
	"github.com/hospital-sim/hospital-sim/sim"
)

// Server wires the simulation engine to an HTTP router.
type Server struct {
	sim *sim.Simulator
}

// NewServer builds a Server around a running engine.
func NewServer(s *sim.Simulator) *Server {
	return &Server{sim: s}
}

// Router returns the chi mux with all routes registered.
func (srv *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/admit-patient", srv.handleAdmitPatient)
	r.Post("/request-resource", srv.handleRequestResource)
	r.Post("/release-patient", srv.handleReleasePatient)
	r.Post("/replan-patient", srv.handleReplanPatient)
	r.Get("/system-state", srv.handleSystemState)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	return r
}

type admitRequest struct {
	PatientID string `json:"cid,omitempty"`
	Diagnosis string `json:"diagnosis"`
	Time      string `json:"time"`
}

type admitResponse struct {
	PatientID string `json:"cid"`
	Feasible  bool   `json:"feasible"`
	Time      string `json:"time"`
}

func (srv *Server) handleAdmitPatient(w http.ResponseWriter, r *http.Request) {
	var req admitRequest
	if !readJSON(w, r, &req) {
		return
	}
	at, err := sim.FromISO(req.Time)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := srv.sim.AdmitPatient(req.Diagnosis, req.PatientID, at)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, admitResponse{
		PatientID: res.PatientID,
		Feasible:  res.Feasible,
		Time:      sim.ToISO(at),
	})
}

type resourceRequest struct {
	PatientID   string `json:"cid"`
	Diagnosis   string `json:"diagnosis"`
	Resource    string `json:"resource_type"`
	Time        string `json:"time"`
	CallbackRef string `json:"callback,omitempty"`
}

func (srv *Server) handleRequestResource(w http.ResponseWriter, r *http.Request) {
	var req resourceRequest
	if !readJSON(w, r, &req) {
		return
	}
	at, err := sim.FromISO(req.Time)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.CallbackRef == "" {
		req.CallbackRef = req.PatientID + "/" + req.Resource
	}
	if err := srv.sim.RequestResource(req.PatientID, req.Diagnosis, req.Resource, at, req.CallbackRef); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type releaseRequest struct {
	PatientID string `json:"cid"`
	Diagnosis string `json:"diagnosis"`
	Time      string `json:"time"`
}

func (srv *Server) handleReleasePatient(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	if !readJSON(w, r, &req) {
		return
	}
	at, err := sim.FromISO(req.Time)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := srv.sim.ReleasePatient(req.PatientID, req.Diagnosis, at); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type replanRequest struct {
	PatientID string          `json:"cid"`
	Diagnosis string          `json:"diagnosis"`
	Time      string          `json:"time"`
	State     []sim.StateItem `json:"state"`
}

type replanResponse struct {
	PatientID string `json:"cid"`
	Time      string `json:"time"`
}

func (srv *Server) handleReplanPatient(w http.ResponseWriter, r *http.Request) {
	var req replanRequest
	if !readJSON(w, r, &req) {
		return
	}
	at, err := sim.FromISO(req.Time)
	if err != nil {
		writeError(w, err)
		return
	}
	newTime, err := srv.sim.ReplanPatient(req.PatientID, req.Diagnosis, at, req.State)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, replanResponse{
		PatientID: req.PatientID,
		Time:      sim.ToISO(newTime),
	})
}

func (srv *Server) handleSystemState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, srv.sim.SystemState())
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Warn("failed to encode response")
	}
}

// writeError maps domain errors to status codes. Validation rejects are
// 422, malformed timestamps are 400, everything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sim.ErrMalformedTimestamp):
		status = http.StatusBadRequest
	case errors.Is(err, sim.ErrInvalidDiagnosis), errors.Is(err, sim.ErrUnknownResourceType):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
