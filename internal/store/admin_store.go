package store

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// AdminConfig is the single-row table holding the admin password hash.
type AdminConfig struct {
	ID           int    `db:"id"`
	PasswordHash string `db:"password_hash"`
}

const (
	getAdminConfigQuery = "SELECT id, password_hash FROM admin_config WHERE id = 1"

	insertAdminConfigQuery = `
		INSERT INTO admin_config (id, password_hash) VALUES (1, :password_hash)
		ON CONFLICT (id) DO NOTHING
	`
)

type AdminStore struct {
	db *sqlx.DB
}

func NewAdminStore(db *sqlx.DB) *AdminStore {
	return &AdminStore{db: db}
}

func (s *AdminStore) GetConfig(ctx context.Context) (*AdminConfig, error) {
	var config AdminConfig
	err := s.db.GetContext(ctx, &config, getAdminConfigQuery)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// EnsureConfig stores the hash only when no admin has been configured yet.
func (s *AdminStore) EnsureConfig(ctx context.Context, passwordHash string) error {
	_, err := s.db.NamedExecContext(ctx, insertAdminConfigQuery, &AdminConfig{ID: 1, PasswordHash: passwordHash})
	return err
}
