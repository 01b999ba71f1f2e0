package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/code-hustle/apiserver/internal/metrics"
	"github.com/code-hustle/apiserver/internal/services"
	"github.com/code-hustle/apiserver/internal/store"
	"github.com/code-hustle/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// SubmissionHandler provides HTTP handlers for submissions. All routes
// require authentication; users only ever see their own submissions, except
// admins, who can fetch any.
type SubmissionHandler struct {
	submissions *services.SubmissionService
}

func NewSubmissionHandler(submissions *services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

// SubmissionRouter registers the submission listing routes.
func SubmissionRouter(r chi.Router, submissions *services.SubmissionService, auth *AuthMiddleware) {
	handler := NewSubmissionHandler(submissions)

	r.Use(auth.RequireAuth)
	r.Get("/", handler.ListSubmissions)
	r.Get("/{submissionID}", handler.GetSubmission)
}

// SubmitRequest is the JSON payload for creating a submission.
type SubmitRequest struct {
	Code     string `json:"code" validate:"required"`
	Language string `json:"language" validate:"required,max=40"`
}

// SubmissionListResponse is the paginated list response payload.
type SubmissionListResponse struct {
	Items []types.Submission `json:"items"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
	Total int                `json:"total"`
}

// CreateSubmission accepts a submission for the problem in the URL, stores
// it as pending, and queues it for the external judge.
func (h *SubmissionHandler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	problemID, err := parseProblemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Language = strings.ToLower(strings.TrimSpace(req.Language))
	if details := validateStruct(req); details != nil {
		writeValidationError(w, details)
		return
	}

	submission, err := h.submissions.Create(r.Context(), user.ID, problemID, req.Code, req.Language)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "problem not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create submission")
		return
	}

	metrics.SubmissionsCreatedTotal.WithLabelValues(submission.Language).Inc()
	writeJSON(w, http.StatusCreated, submission)
}

func (h *SubmissionHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	problemID := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("problem_id")); raw != "" {
		problemID, err = strconv.Atoi(raw)
		if err != nil || problemID < 1 {
			writeError(w, http.StatusBadRequest, "invalid problem_id")
			return
		}
	}

	items, total, err := h.submissions.ListByUser(r.Context(), user.ID, problemID, offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}

	writeJSON(w, http.StatusOK, SubmissionListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *SubmissionHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	raw := chi.URLParam(r, "submissionID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid submission id")
		return
	}

	submission, err := h.submissions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "submission not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch submission")
		return
	}

	if submission.UserID != user.ID && user.Role != types.RoleAdmin {
		writeError(w, http.StatusForbidden, "Not authorized for this action")
		return
	}

	writeJSON(w, http.StatusOK, submission)
}
