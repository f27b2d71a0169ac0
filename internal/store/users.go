package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/policyops/acctd/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const userColumns = "ID, FirstName, LastName, Email, Role, BranchName, Password, Active"

// GetUserByEmail fetches a single active user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	stmt := "SELECT " + userColumns + " FROM tblUsers WHERE Active = 1 AND Email = ?"
	return s.getUser(ctx, stmt, email)
}

// GetUserByID fetches a single active user by id.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	stmt := "SELECT " + userColumns + " FROM tblUsers WHERE Active = 1 AND ID = ?"
	return s.getUser(ctx, stmt, id)
}

func (s *Store) getUser(ctx context.Context, stmt string, arg any) (*model.User, error) {
	var user model.User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(stmt), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	return &user, nil
}

// UpdateUserPassword persists a new password value for one user. Used by the
// legacy-rehash path and the user CLI.
func (s *Store) UpdateUserPassword(ctx context.Context, id int64, password string) error {
	stmt := "UPDATE tblUsers SET Password = ? WHERE ID = ?"
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(stmt), password, id); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
