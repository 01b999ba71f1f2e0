package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/code-hustle/apiserver/internal/services"
	"github.com/code-hustle/apiserver/internal/store"
	"github.com/code-hustle/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// ProblemHandler provides HTTP handlers for the problem catalog.
type ProblemHandler struct {
	problems *services.ProblemService
}

func NewProblemHandler(problems *services.ProblemService) *ProblemHandler {
	return &ProblemHandler{problems: problems}
}

// ProblemRouter registers problem routes on the given router. Reads are
// public; writes are restricted to admins.
func ProblemRouter(r chi.Router, problems *services.ProblemService, auth *AuthMiddleware) {
	handler := NewProblemHandler(problems)

	r.Get("/", handler.ListProblems)
	r.With(auth.RequireAuth, auth.RequireRole(types.RoleAdmin)).Post("/", handler.CreateProblem)
	r.Route("/{problemID}", func(r chi.Router) {
		r.Get("/", handler.GetProblem)
		r.With(auth.RequireAuth, auth.RequireRole(types.RoleAdmin)).Put("/", handler.UpdateProblem)
		r.With(auth.RequireAuth, auth.RequireRole(types.RoleAdmin)).Delete("/", handler.DeleteProblem)
	})
}

// ProblemUpsertRequest is the JSON payload for creating or updating a problem.
type ProblemUpsertRequest struct {
	Title             string            `json:"title" validate:"required,max=200"`
	Difficulty        string            `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Tags              []string          `json:"tags"`
	Description       string            `json:"description" validate:"required"`
	Examples          []types.Example   `json:"examples"`
	Constraints       []string          `json:"constraints"`
	SolutionTemplates map[string]string `json:"solution_templates"`
}

// ProblemListResponse is the paginated list response payload.
type ProblemListResponse struct {
	Items []types.Problem `json:"items"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int             `json:"total"`
}

func (h *ProblemHandler) ListProblems(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := store.ProblemFilter{
		Difficulty: strings.TrimSpace(r.URL.Query().Get("difficulty")),
		Tag:        strings.TrimSpace(r.URL.Query().Get("tag")),
		Search:     strings.TrimSpace(r.URL.Query().Get("search")),
	}

	items, total, err := h.problems.List(r.Context(), filter, offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list problems")
		return
	}

	writeJSON(w, http.StatusOK, ProblemListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *ProblemHandler) GetProblem(w http.ResponseWriter, r *http.Request) {
	id, err := parseProblemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	problem, err := h.problems.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "problem not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch problem")
		return
	}

	writeJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) CreateProblem(w http.ResponseWriter, r *http.Request) {
	req, details, err := decodeProblemRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if details != nil {
		writeValidationError(w, details)
		return
	}

	created, err := h.problems.Create(r.Context(), problemFromRequest(req))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create problem")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *ProblemHandler) UpdateProblem(w http.ResponseWriter, r *http.Request) {
	id, err := parseProblemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, details, err := decodeProblemRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if details != nil {
		writeValidationError(w, details)
		return
	}

	problem := problemFromRequest(req)
	problem.ID = id
	updated, err := h.problems.Update(r.Context(), problem)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "problem not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update problem")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *ProblemHandler) DeleteProblem(w http.ResponseWriter, r *http.Request) {
	id, err := parseProblemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.problems.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "problem not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete problem")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decodeProblemRequest(r *http.Request) (ProblemUpsertRequest, []FieldError, error) {
	var req ProblemUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ProblemUpsertRequest{}, nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Difficulty = strings.ToLower(strings.TrimSpace(req.Difficulty))
	return req, validateStruct(req), nil
}

func problemFromRequest(req ProblemUpsertRequest) types.Problem {
	return types.Problem{
		Title:             req.Title,
		Difficulty:        req.Difficulty,
		Tags:              req.Tags,
		Description:       req.Description,
		Examples:          req.Examples,
		Constraints:       req.Constraints,
		SolutionTemplates: req.SolutionTemplates,
	}
}

func parseProblemID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "problemID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid problem id")
	}
	return id, nil
}
