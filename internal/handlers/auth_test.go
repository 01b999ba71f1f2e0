package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/code-hustle/apiserver/internal/services"
	"github.com/code-hustle/apiserver/internal/store"
	"github.com/code-hustle/apiserver/internal/token"
	"github.com/code-hustle/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type memoryUserRepo struct {
	users  map[int]types.User
	nextID int
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int]types.User), nextID: 1}
}

func (r *memoryUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memoryUserRepo) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	for _, user := range r.users {
		if user.Email == email || user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryUserRepo) SetAvatarKey(_ context.Context, id int, key string) error {
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.AvatarKey = key
	r.users[id] = user
	return nil
}

func (r *memoryUserRepo) setRole(id int, role string) {
	user := r.users[id]
	user.Role = role
	r.users[id] = user
}

type authTestEnv struct {
	repo   *memoryUserRepo
	tokens *token.Manager
	auth   *AuthMiddleware
	router *chi.Mux
}

func newAuthTestEnv() *authTestEnv {
	repo := newMemoryUserRepo()
	tokens := token.NewManager("test-secret", time.Hour)
	users := services.NewUserService(repo, tokens, bcrypt.MinCost)
	auth := NewAuthMiddleware(users, tokens, zerolog.Nop())

	router := chi.NewRouter()
	router.Route("/api/auth", func(r chi.Router) {
		AuthRouter(r, users, auth, zerolog.Nop())
	})
	router.With(auth.RequireAuth).Get("/api/protected", Protected)
	router.With(auth.RequireAuth, auth.RequireRole(types.RoleAdmin)).
		Get("/api/admin-only", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	return &authTestEnv{repo: repo, tokens: tokens, auth: auth, router: router}
}

func newTestRequest(t *testing.T, method, path string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	return httptest.NewRequest(method, path, nil), httptest.NewRecorder()
}

func (env *authTestEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *authTestEnv) register(t *testing.T, username, email, password string) AuthResponse {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func TestRegisterSuccess(t *testing.T) {
	env := newAuthTestEnv()

	resp := env.register(t, "alice", "a@x.com", "password123")
	if resp.Role != types.RoleUser {
		t.Fatalf("expected role %q, got %q", types.RoleUser, resp.Role)
	}
	if resp.Username != "alice" || resp.Email != "a@x.com" {
		t.Fatalf("unexpected identity: %+v", resp)
	}
	if resp.Token == "" {
		t.Fatalf("expected a token")
	}

	claims, err := env.tokens.Verify(resp.Token)
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.UserID != resp.ID || claims.Role != types.RoleUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRegisterNeverLeaksPasswordHash(t *testing.T) {
	env := newAuthTestEnv()

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &fields); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for key := range fields {
		if key == "password" || key == "password_hash" {
			t.Fatalf("response leaks password material via field %q", key)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newAuthTestEnv()

	cases := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{"short username", map[string]string{"username": "ab", "email": "a@x.com", "password": "password123"}, "username"},
		{"bad email", map[string]string{"username": "alice", "email": "not-an-email", "password": "password123"}, "email"},
		{"short password", map[string]string{"username": "alice", "email": "a@x.com", "password": "short"}, "password"},
		{"missing everything", map[string]string{}, "username"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/register", "", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			resp := decodeError(t, rec)
			if resp.Error != "Validation error" {
				t.Fatalf("expected validation error, got %q", resp.Error)
			}
			found := false
			for _, detail := range resp.Details {
				if detail.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected a detail for field %q, got %+v", tc.field, resp.Details)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	env := newAuthTestEnv()
	env.register(t, "alice", "a@x.com", "password123")

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice2", "email": "a@x.com", "password": "password456",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "User already exists" {
		t.Fatalf("unexpected error message %q", resp.Error)
	}
	if len(env.repo.users) != 1 {
		t.Fatalf("expected no second row, have %d", len(env.repo.users))
	}
}

// racingMemoryRepo makes the pre-insert existence check always miss, so the
// duplicate can only surface through the store's unique-constraint error.
type racingMemoryRepo struct {
	*memoryUserRepo
}

func (r *racingMemoryRepo) ExistsByEmailOrUsername(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func TestRegisterDuplicateLostRace(t *testing.T) {
	repo := newMemoryUserRepo()
	tokens := token.NewManager("test-secret", time.Hour)
	users := services.NewUserService(&racingMemoryRepo{memoryUserRepo: repo}, tokens, bcrypt.MinCost)
	auth := NewAuthMiddleware(users, tokens, zerolog.Nop())

	router := chi.NewRouter()
	router.Route("/api/auth", func(r chi.Router) {
		AuthRouter(r, users, auth, zerolog.Nop())
	})
	env := &authTestEnv{repo: repo, tokens: tokens, auth: auth, router: router}

	env.register(t, "alice", "a@x.com", "password123")

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "password123",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeError(t, rec); resp.Error != "User already exists" {
		t.Fatalf("unexpected error message %q", resp.Error)
	}
	if len(repo.users) != 1 {
		t.Fatalf("expected the losing insert to leave no row, have %d", len(repo.users))
	}
}

func TestLoginSuccess(t *testing.T) {
	env := newAuthTestEnv()
	registered := env.register(t, "alice", "a@x.com", "password123")

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != registered.ID {
		t.Fatalf("expected id %d, got %d", registered.ID, resp.ID)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newAuthTestEnv()
	env.register(t, "alice", "a@x.com", "password123")

	wrongPass := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "wrongpass99",
	})
	unknownEmail := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@x.com", "password": "password123",
	})

	if wrongPass.Code != http.StatusUnauthorized || unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPass.Code, unknownEmail.Code)
	}
	if decodeError(t, wrongPass).Error != "Invalid credentials" {
		t.Fatalf("unexpected message %q", decodeError(t, wrongPass).Error)
	}
	if wrongPass.Body.String() != unknownEmail.Body.String() {
		t.Fatalf("failure bodies differ: %q vs %q", wrongPass.Body.String(), unknownEmail.Body.String())
	}
}

func TestProtectedRoute(t *testing.T) {
	env := newAuthTestEnv()
	registered := env.register(t, "alice", "a@x.com", "password123")

	rec := env.do(t, http.MethodGet, "/api/protected", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "Not authorized, no token" {
		t.Fatalf("unexpected message %q", resp.Error)
	}

	rec = env.do(t, http.MethodGet, "/api/protected", registered.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Message string     `json:"message"`
		User    types.User `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Access granted" || resp.User.Username != "alice" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestMe(t *testing.T) {
	env := newAuthTestEnv()
	registered := env.register(t, "alice", "a@x.com", "password123")

	rec := env.do(t, http.MethodGet, "/api/auth/me", registered.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var user types.User
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if user.Username != "alice" || user.Email != "a@x.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestRoleGate(t *testing.T) {
	env := newAuthTestEnv()
	member := env.register(t, "alice", "a@x.com", "password123")

	rec := env.do(t, http.MethodGet, "/api/admin-only", member.Token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for role=user, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "Not authorized for this action" {
		t.Fatalf("unexpected message %q", resp.Error)
	}

	// Promote and mint a fresh token carrying the admin role.
	env.repo.setRole(member.ID, types.RoleAdmin)
	adminToken, err := env.tokens.Issue(member.ID, "alice", types.RoleAdmin)
	if err != nil {
		t.Fatalf("issue admin token: %v", err)
	}
	rec = env.do(t, http.MethodGet, "/api/admin-only", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for role=admin, got %d", rec.Code)
	}
}

func TestRoleGateUsesStoredRoleNotClaims(t *testing.T) {
	// A stale admin claim must not survive a demotion: the guard re-fetches
	// the user, so the stored role wins.
	env := newAuthTestEnv()
	member := env.register(t, "alice", "a@x.com", "password123")

	forged, err := env.tokens.Issue(member.ID, "alice", types.RoleAdmin)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	rec := env.do(t, http.MethodGet, "/api/admin-only", forged, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for stale admin claim, got %d", rec.Code)
	}
}
