package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/formloom/formloom/internal/domain"
	"github.com/formloom/formloom/internal/models"
)

// UserStore is the persistence surface the account service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u models.User, passwordHash string) error
	GetUserByEmail(ctx context.Context, email string) (models.User, string, error)
	GetUser(ctx context.Context, id string) (models.User, error)
}

// UserService handles registration and login. Token issuance lives here so
// handlers never touch the signing secret.
type UserService struct {
	store    UserStore
	secret   string
	tokenTTL time.Duration
}

// NewUserService wires the account service.
func NewUserService(store UserStore, secret string, tokenTTL time.Duration) *UserService {
	return &UserService{store: store, secret: secret, tokenTTL: tokenTTL}
}

// Register creates an account and returns the user plus a fresh token.
// An already-registered email maps to domain.ErrConflict via the store's
// uniqueness constraint.
func (s *UserService) Register(ctx context.Context, email, password, name string) (models.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, "", err
	}

	u := models.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u, string(hash)); err != nil {
		return models.User{}, "", err
	}

	token, err := GenerateToken(s.secret, u.ID, u.Email, s.tokenTTL)
	if err != nil {
		return models.User{}, "", err
	}
	return u, token, nil
}

// Login verifies credentials and returns the user plus a fresh token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (models.User, string, error) {
	u, hash, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return models.User{}, "", fmt.Errorf("invalid credentials: %w", domain.ErrForbidden)
	}
	if err != nil {
		return models.User{}, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return models.User{}, "", fmt.Errorf("invalid credentials: %w", domain.ErrForbidden)
	}

	token, err := GenerateToken(s.secret, u.ID, u.Email, s.tokenTTL)
	if err != nil {
		return models.User{}, "", err
	}
	return u, token, nil
}

// Get returns the user by id.
func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	return s.store.GetUser(ctx, id)
}
