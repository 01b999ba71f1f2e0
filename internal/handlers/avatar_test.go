package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/code-hustle/apiserver/internal/services"
	"github.com/code-hustle/apiserver/internal/storage"
	"github.com/code-hustle/apiserver/internal/store"
	"github.com/code-hustle/apiserver/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// pngHeader is the 8-byte PNG signature, enough for content sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

type memoryObjectStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemoryObjectStore() *memoryObjectStore {
	return &memoryObjectStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (s *memoryObjectStore) EnsureBucket(_ context.Context) error { return nil }

func (s *memoryObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	s.types[key] = contentType
	return nil
}

func (s *memoryObjectStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryObjectStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *memoryObjectStore) Bucket() string { return "test-bucket" }

type avatarTestEnv struct {
	repo    *memoryUserRepo
	objects *memoryObjectStore
	router  *chi.Mux
	token   string
	userID  int
}

func newAvatarTestEnv(t *testing.T) *avatarTestEnv {
	t.Helper()

	repo := newMemoryUserRepo()
	tokens := token.NewManager("test-secret", time.Hour)
	users := services.NewUserService(repo, tokens, bcrypt.MinCost)
	auth := NewAuthMiddleware(users, tokens, zerolog.Nop())
	objects := newMemoryObjectStore()

	user, signed, err := users.Register(context.Background(), "alice", "a@x.com", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	router := chi.NewRouter()
	router.Route("/api/users", func(r chi.Router) {
		AvatarRouter(r, users, storage.NewStorage(objects), auth)
	})
	return &avatarTestEnv{repo: repo, objects: objects, router: router, token: signed, userID: user.ID}
}

func (env *avatarTestEnv) upload(t *testing.T, field string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "avatar.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/users/me/avatar", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+env.token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadAndGetAvatar(t *testing.T) {
	env := newAvatarTestEnv(t)

	rec := env.upload(t, formFieldAvatar, pngHeader)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("upload: expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	key := fmt.Sprintf("avatars/%d", env.userID)
	if _, ok := env.objects.objects[key]; !ok {
		t.Fatalf("avatar not stored under %q", key)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/users/%d/avatar", env.userID), nil)
	getRec := httptest.NewRecorder()
	env.router.ServeHTTP(getRec, req)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d: %s", getRec.Code, getRec.Body.String())
	}
	if got := getRec.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("expected Content-Type image/png, got %q", got)
	}
	if !bytes.Equal(getRec.Body.Bytes(), pngHeader) {
		t.Fatalf("avatar bytes do not round-trip")
	}
}

func TestUploadAvatarRejectsNonImage(t *testing.T) {
	env := newAvatarTestEnv(t)

	rec := env.upload(t, formFieldAvatar, []byte("#!/bin/sh\nrm -rf /\n"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-image, got %d", rec.Code)
	}
}

func TestUploadAvatarRejectsOversized(t *testing.T) {
	env := newAvatarTestEnv(t)

	blob := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, maxAvatarBytes)...)
	rec := env.upload(t, formFieldAvatar, blob)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized upload, got %d", rec.Code)
	}
}

func TestGetAvatarWithoutUpload(t *testing.T) {
	env := newAvatarTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/users/%d/avatar", env.userID), nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any upload, got %d", rec.Code)
	}
}

func TestAvatarStorageDisabled(t *testing.T) {
	repo := newMemoryUserRepo()
	tokens := token.NewManager("test-secret", time.Hour)
	users := services.NewUserService(repo, tokens, bcrypt.MinCost)
	auth := NewAuthMiddleware(users, tokens, zerolog.Nop())

	router := chi.NewRouter()
	router.Route("/api/users", func(r chi.Router) {
		AvatarRouter(r, users, nil, auth)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users/1/avatar", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with no storage backend, got %d", rec.Code)
	}
}
