package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Jotasiete7/wurm-analytics-journal/internal/model"
)

// ProfileRepo reads the 'profiles' table, the role store for admin access.
// This service never writes profiles; they are provisioned out of band.
type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

// RoleByUserID returns the raw role value for a user id.  This is the
// lookup the auth resolver races against its timeout; it must stay a
// single cheap point read.
func (r *ProfileRepo) RoleByUserID(ctx context.Context, userID string) (string, error) {
	var role string
	err := r.DB.QueryRowContext(ctx,
		"SELECT role FROM profiles WHERE id=? LIMIT 1",
		userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return role, err
}

// GetByID fetches a full profile row.
func (r *ProfileRepo) GetByID(ctx context.Context, userID string) (model.Profile, error) {
	var p model.Profile
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,role,created_at,updated_at FROM profiles WHERE id=? LIMIT 1",
		userID).Scan(&p.ID, &p.Email, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	return p, err
}
