package services

import (
	"context"
	"errors"

	"github.com/code-hustle/apiserver/internal/store"
	"github.com/code-hustle/apiserver/internal/token"
	"github.com/code-hustle/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	SetAvatarKey(ctx context.Context, id int, key string) error
}

// UserService encapsulates registration, login, and user lookup.
type UserService struct {
	repo       UserRepository
	tokens     *token.Manager
	bcryptCost int
}

func NewUserService(repo UserRepository, tokens *token.Manager, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, tokens: tokens, bcryptCost: bcryptCost}
}

// Register creates a new account with the default role and mints a session
// token for it. Input shape validation happens at the handler boundary; this
// method enforces uniqueness. The existence check is a fast path for a clear
// error message; the database constraint is what actually guarantees
// uniqueness under concurrent registration.
func (s *UserService) Register(ctx context.Context, username, email, password string) (types.User, string, error) {
	exists, err := s.repo.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return types.User{}, "", err
	}
	if exists {
		return types.User{}, "", ErrUserExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return types.User{}, "", err
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		Role:         types.RoleUser,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, "", ErrUserExists
		}
		return types.User{}, "", err
	}

	signed, err := s.tokens.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return types.User{}, "", err
	}
	return user, signed, nil
}

// Login verifies credentials by email and mints a session token on success.
func (s *UserService) Login(ctx context.Context, email, password string) (types.User, string, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, "", ErrInvalidCredentials
		}
		return types.User{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, "", ErrInvalidCredentials
	}

	signed, err := s.tokens.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return types.User{}, "", err
	}
	return user, signed, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) SetAvatarKey(ctx context.Context, id int, key string) error {
	return s.repo.SetAvatarKey(ctx, id, key)
}
