package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/duelcircle/duelcircle/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type AdminService struct {
	store *store.AdminStore
}

func NewAdminService(store *store.AdminStore) *AdminService {
	return &AdminService{store: store}
}

// EnsureAdmin bootstraps the admin password on first startup. Later calls are
// no-ops so changing the env var does not silently rotate the password.
func (s *AdminService) EnsureAdmin(ctx context.Context, password string) error {
	if password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	if err := s.store.EnsureConfig(ctx, string(hash)); err != nil {
		return fmt.Errorf("failed to store admin config: %w", err)
	}
	return nil
}

func (s *AdminService) Login(ctx context.Context, password string) error {
	config, err := s.store.GetConfig(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAdminNotSetUp
	}
	if err != nil {
		return fmt.Errorf("failed to get admin config: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(config.PasswordHash), []byte(password)) != nil {
		return ErrInvalidPassword
	}
	return nil
}
