// Package triage exposes the triage service over HTTP.
package triage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/crisistriage/core/errs"
	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/core/store"
	coretriage "github.com/kilianp07/crisistriage/core/triage"
	"github.com/kilianp07/crisistriage/infra/logger"
)

const (
	defaultListLimit = 50
	maxBodyBytes     = 1 << 20
)

// Service is the part of the triage service the handlers use.
type Service interface {
	Submit(ctx context.Context, msg model.EmergencyMessage) (coretriage.Response, error)
	Confirm(ctx context.Context, c coretriage.Confirmation) (model.EmergencyRequest, error)
	Complete(ctx context.Context, id string) (model.EmergencyRequest, error)
	Get(ctx context.Context, id string) (model.EmergencyRequest, error)
	List(ctx context.Context, f store.RequestFilter) ([]model.EmergencyRequest, error)
	Stats(ctx context.Context) (model.DashboardStats, error)
	RegisterResource(ctx context.Context, r model.Resource) (model.Resource, error)
	UpdateResource(ctx context.Context, id string, p model.ResourcePatch) (model.Resource, error)
	Resources(ctx context.Context, f store.ResourceFilter) ([]model.Resource, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConfirmRequest is the dispatcher decision body. confirmed=false cancels
// the request; confirmed=true without a selection takes the top match.
type ConfirmRequest struct {
	RequestID          string `json:"request_id"`
	Confirmed          bool   `json:"confirmed"`
	SelectedResourceID string `json:"selected_resource_id,omitempty"`
	DispatcherID       string `json:"dispatcher_id"`
	DispatcherNotes    string `json:"dispatcher_notes,omitempty"`
	OverrideReason     string `json:"override_reason,omitempty"`
}

// ConfirmResponse acknowledges a dispatcher decision.
type ConfirmResponse struct {
	Status     string                 `json:"status"`
	RequestID  string                 `json:"request_id"`
	Dispatched bool                   `json:"dispatched"`
	Request    model.EmergencyRequest `json:"request"`
}

type errorBody struct {
	Detail string `json:"detail"`
}

// Handler serves the triage API.
type Handler struct {
	svc    Service
	pinger Pinger
	log    logger.Logger
	now    func() time.Time
}

// NewHandler builds the API. pinger may be nil.
func NewHandler(svc Service, pinger Pinger, log logger.Logger) *Handler {
	log = logger.OrNop(log)
	return &Handler{svc: svc, pinger: pinger, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/triage", h.submit)
	mux.HandleFunc("POST /api/confirm", h.confirm)
	mux.HandleFunc("POST /api/requests/{id}/complete", h.complete)
	mux.HandleFunc("GET /api/requests", h.listRequests)
	mux.HandleFunc("GET /api/requests/{id}", h.getRequest)
	mux.HandleFunc("GET /api/resources", h.listResources)
	mux.HandleFunc("POST /api/resources", h.createResource)
	mux.HandleFunc("PUT /api/resources/{id}", h.updateResource)
	mux.HandleFunc("GET /api/dashboard/stats", h.stats)
	mux.HandleFunc("GET /api/health", h.health)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var msg model.EmergencyMessage
	if !decode(w, r, &msg) {
		return
	}
	resp, err := h.svc.Submit(r.Context(), msg)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	var body ConfirmRequest
	if !decode(w, r, &body) {
		return
	}
	c := coretriage.Confirmation{
		RequestID:      body.RequestID,
		DispatcherID:   body.DispatcherID,
		Notes:          body.DispatcherNotes,
		OverrideReason: body.OverrideReason,
	}
	if body.Confirmed {
		c.SelectedResourceID = body.SelectedResourceID
		if c.SelectedResourceID == "" {
			req, err := h.svc.Get(r.Context(), body.RequestID)
			if err != nil {
				h.fail(w, err)
				return
			}
			top, ok := req.TopMatch()
			if !ok {
				h.fail(w, errs.Validationf("request %s has no recommended resource", body.RequestID))
				return
			}
			c.SelectedResourceID = top.ResourceID
		}
	}
	req, err := h.svc.Confirm(r.Context(), c)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConfirmResponse{
		Status:     "confirmed",
		RequestID:  req.ID,
		Dispatched: req.Status == model.StatusDispatched,
		Request:    req,
	})
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.RequestFilter{Limit: defaultListLimit}
	if s := q.Get("status"); s != "" {
		st := model.RequestStatus(s)
		if !st.Valid() {
			h.fail(w, errs.Validationf("unknown status %q", s))
			return
		}
		f.Status = st
	}
	var err error
	if f.Limit, err = intParam(q.Get("limit"), defaultListLimit); err != nil {
		h.fail(w, err)
		return
	}
	if f.Skip, err = intParam(q.Get("skip"), 0); err != nil {
		h.fail(w, err)
		return
	}
	reqs, err := h.svc.List(r.Context(), f)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) listResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ResourceFilter{
		Status: model.ResourceStatus(q.Get("status")),
		Type:   model.ResourceType(q.Get("resource_type")),
	}
	if v := q.Get("verified"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.fail(w, errs.Validationf("verified must be a boolean"))
			return
		}
		f.Verified = &b
	}
	res, err := h.svc.Resources(r.Context(), f)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) createResource(w http.ResponseWriter, r *http.Request) {
	var res model.Resource
	if !decode(w, r, &res) {
		return
	}
	created, err := h.svc.RegisterResource(r.Context(), res)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateResource(w http.ResponseWriter, r *http.Request) {
	var p model.ResourcePatch
	if !decode(w, r, &p) {
		return
	}
	res, err := h.svc.UpdateResource(r.Context(), r.PathValue("id"), p)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	status, db, code := "healthy", "connected", http.StatusOK
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			h.log.Warnf("health check: store ping failed: %v", err)
			status, db, code = "unhealthy", "disconnected", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]string{
		"status":    status,
		"database":  db,
		"timestamp": h.now().Format(time.RFC3339),
	})
}

// StatusCode maps an error kind to an HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrCapacityConflict), errors.Is(err, errs.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		h.log.Errorf("request failed: %v", err)
	} else {
		h.log.Debugf("request rejected (%d): %v", code, err)
	}
	writeJSON(w, code, errorBody{Detail: err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errs.Validationf("invalid integer %q", s)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
