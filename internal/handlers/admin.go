package handlers

import (
	"context"
	"net/http"

	"github.com/code-hustle/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// StatsSource provides the aggregate counts shown on the admin dashboard.
type StatsSource interface {
	CountUsers(ctx context.Context) (int, error)
	CountProblems(ctx context.Context) (int, error)
	CountSubmissions(ctx context.Context) (int, error)
	CountSubmissionsByVerdict(ctx context.Context) (map[types.Verdict]int, error)
}

// AdminHandler serves the admin dashboard endpoints.
type AdminHandler struct {
	stats StatsSource
	log   zerolog.Logger
}

func NewAdminHandler(stats StatsSource, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{stats: stats, log: log}
}

// AdminRouter registers admin routes on the given router.
func AdminRouter(r chi.Router, stats StatsSource, auth *AuthMiddleware, log zerolog.Logger) {
	handler := NewAdminHandler(stats, log)

	r.Use(auth.RequireAuth, auth.RequireRole(types.RoleAdmin))
	r.Get("/stats", handler.GetStats)
}

// StatsResponse is the admin dashboard payload. Counts come straight from
// the database, not cached.
type StatsResponse struct {
	Users       int                   `json:"users"`
	Problems    int                   `json:"problems"`
	Submissions int                   `json:"submissions"`
	Verdicts    map[types.Verdict]int `json:"verdicts"`
}

func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.stats.CountUsers(ctx)
	if err != nil {
		h.serverError(w, err)
		return
	}
	problems, err := h.stats.CountProblems(ctx)
	if err != nil {
		h.serverError(w, err)
		return
	}
	submissions, err := h.stats.CountSubmissions(ctx)
	if err != nil {
		h.serverError(w, err)
		return
	}
	verdicts, err := h.stats.CountSubmissionsByVerdict(ctx)
	if err != nil {
		h.serverError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Users:       users,
		Problems:    problems,
		Submissions: submissions,
		Verdicts:    verdicts,
	})
}

func (h *AdminHandler) serverError(w http.ResponseWriter, err error) {
	h.log.Error().Err(err).Msg("failed to load admin stats")
	writeError(w, http.StatusInternalServerError, "Something went wrong")
}
