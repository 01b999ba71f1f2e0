package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/code-hustle/apiserver/internal/services"
	"github.com/code-hustle/apiserver/internal/storage"
	"github.com/code-hustle/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

const (
	maxAvatarMemory = 8 << 20
	maxAvatarBytes  = 4 << 20
	formFieldAvatar = "avatar"
)

// AvatarHandler stores and serves profile avatars through object storage.
// All handlers fail with 503 when no storage backend is configured.
type AvatarHandler struct {
	users   *services.UserService
	storage *storage.Storage
}

func NewAvatarHandler(users *services.UserService, store *storage.Storage) *AvatarHandler {
	return &AvatarHandler{users: users, storage: store}
}

// AvatarRouter registers avatar routes on the given router.
func AvatarRouter(r chi.Router, users *services.UserService, store *storage.Storage, auth *AuthMiddleware) {
	handler := NewAvatarHandler(users, store)

	r.With(auth.RequireAuth).Put("/me/avatar", handler.UploadAvatar)
	r.Get("/{userID}/avatar", handler.GetAvatar)
}

// UploadAvatar replaces the current user's avatar with the uploaded image.
func (h *AvatarHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "avatar storage not configured")
		return
	}

	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File[formFieldAvatar]
	if len(files) != 1 {
		writeError(w, http.StatusBadRequest, "exactly one avatar file is required")
		return
	}

	file, err := files[0].Open()
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read avatar file")
		return
	}
	data, err := readFileLimited(file, maxAvatarBytes)
	_ = file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contentType := http.DetectContentType(data)
	switch contentType {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
	default:
		writeError(w, http.StatusBadRequest, "avatar must be an image")
		return
	}

	key := fmt.Sprintf("avatars/%d", user.ID)
	if err := h.storage.Put(r.Context(), key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}
	if err := h.users.SetAvatarKey(r.Context(), user.ID, key); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetAvatar streams a user's avatar from object storage.
func (h *AvatarHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "avatar storage not configured")
		return
	}

	raw := chi.URLParam(r, "userID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user.AvatarKey == "" {
		writeError(w, http.StatusNotFound, "no avatar")
		return
	}

	reader, err := h.storage.Get(r.Context(), user.AvatarKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load avatar")
		return
	}
	defer reader.Close()

	// Sniff the leading bytes so browsers get a real Content-Type instead
	// of having to guess.
	head := make([]byte, 512)
	n, err := io.ReadFull(reader, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		writeError(w, http.StatusInternalServerError, "failed to load avatar")
		return
	}
	head = head[:n]

	w.Header().Set("Content-Type", http.DetectContentType(head))
	if _, err := w.Write(head); err != nil {
		return
	}
	if _, err := io.Copy(w, reader); err != nil {
		return
	}
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
