package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"sanad-exam-service/internal/app"
	"sanad-exam-service/internal/domain"
	"sanad-exam-service/internal/refdata"
)

// Handler exposes the grading and review use cases as JSON endpoints.
type Handler struct {
	service *app.ReviewService
	refdata *refdata.Cache
	log     *zap.Logger
}

func NewHandler(service *app.ReviewService, cache *refdata.Cache, log *zap.Logger) *Handler {
	return &Handler{service: service, refdata: cache, log: log}
}

// Register wires the endpoints into mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/attempts/submit", h.handleSubmit)
	mux.HandleFunc("/api/attempts/modify", h.handleModify)
	mux.HandleFunc("/api/attempts", h.handleAttempts)
	mux.HandleFunc("/api/reference", h.handleReference)
}

// attemptResponse adds the derived lifecycle state to the stored document.
type attemptResponse struct {
	domain.Attempt
	State domain.AttemptState `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req app.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GroupID == "" || req.AttemptID == "" || req.TestID == "" {
		writeError(w, http.StatusBadRequest, "missing groupId, attemptId, or testId")
		return
	}

	attempt, err := h.service.SubmitAttempt(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attemptResponse{Attempt: attempt, State: attempt.State()})
}

func (h *Handler) handleModify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req app.ModifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GroupID == "" || req.AttemptID == "" {
		writeError(w, http.StatusBadRequest, "missing groupId or attemptId")
		return
	}

	attempt, err := h.service.ApplyModification(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attemptResponse{Attempt: attempt, State: attempt.State()})
}

func (h *Handler) handleAttempts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	groupID := r.URL.Query().Get("group")
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "missing group")
		return
	}

	if attemptID := r.URL.Query().Get("id"); attemptID != "" {
		attempt, err := h.service.GetAttempt(r.Context(), groupID, attemptID)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, attemptResponse{Attempt: attempt, State: attempt.State()})
		return
	}

	attempts, err := h.service.ListAttempts(r.Context(), groupID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]attemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, attemptResponse{Attempt: a, State: a.State()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleReference(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusOK, map[string]any{"keys": refdata.Keys})
		return
	}
	force := r.URL.Query().Get("refresh") == "1"

	values, err := h.refdata.Get(r.Context(), key, force)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "values": values})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrTestNotFound),
		errors.Is(err, domain.ErrReferenceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidPIN):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
