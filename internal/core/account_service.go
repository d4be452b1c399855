package core

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/manunited/headcoach/internal/auth"
	"github.com/manunited/headcoach/internal/store"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type AccountService struct {
	store  *store.SQLiteStore
	logger *zap.Logger
}

func NewAccountService(db *store.SQLiteStore, logger *zap.Logger) *AccountService {
	return &AccountService{store: db, logger: logger}
}

func (s *AccountService) Register(email, password string, displayName *string) (*store.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.store.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.CreateUser(email, displayName, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Authenticate returns the user for valid credentials, ErrInvalidCredentials
// otherwise. Unknown email and wrong password are deliberately the same error.
func (s *AccountService) Authenticate(email, password string) (*store.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AccountService) GetUserByID(id string) (*store.User, error) {
	return s.store.GetUserByID(id)
}
