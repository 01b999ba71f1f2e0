package handlers

import "net/http"

// Healthz is a liveness probe.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Protected echoes back the user that RequireAuth attached to the request
// context. Frontends use it to check whether a stored token is still good.
func Protected(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Access granted",
		"user":    user,
	})
}
