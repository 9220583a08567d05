package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/db"
)

// CreateUser inserts a new user and fills in the generated ID and timestamps.
func (s *Store) CreateUser(ctx context.Context, user *db.User) (*db.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES (:username, :email, :password_hash)
		RETURNING id, created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, user)
	if err != nil {
		log.Errorf("Error creating user: %v", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		log.Error("No rows returned after user creation.")
		return nil, errors.New("no rows returned after user creation")
	}
	if err := rows.StructScan(user); err != nil {
		log.Errorf("Error scanning user data after creation: %v", err)
		return nil, err
	}

	log.Infof("User %s created with ID: %s", user.Email, user.ID.String())
	return user, nil
}

// FindUserByEmail retrieves a user by email address.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*db.User, error) {
	user := &db.User{}
	query := `SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE email = $1`
	err := s.db.GetContext(ctx, user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debugf("User with email '%s' not found.", email)
			return nil, nil
		}
		log.Errorf("Error finding user by email '%s': %v", email, err)
		return nil, err
	}
	return user, nil
}

// FindUserByID retrieves a user by ID.
func (s *Store) FindUserByID(ctx context.Context, id uuid.UUID) (*db.User, error) {
	user := &db.User{}
	query := `SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE id = $1`
	err := s.db.GetContext(ctx, user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debugf("User with ID '%s' not found.", id.String())
			return nil, nil
		}
		log.Errorf("Error finding user by ID '%s': %v", id.String(), err)
		return nil, err
	}
	return user, nil
}

// DeleteUser deletes a user. Owned analyses and comparisons stay in the
// library with their owner cleared.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		log.Errorf("Error deleting user with ID '%s': %v", id.String(), err)
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		log.Warnf("No user found with ID '%s' for deletion.", id.String())
		return sql.ErrNoRows
	}

	log.Infof("User with ID '%s' deleted.", id.String())
	return nil
}
