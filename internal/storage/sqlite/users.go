package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/owetrack/owetrack/internal/models"
)

const userColumns = "id, email, display_name, password_hash, is_ghost, initials, migration_status, created_at, updated_at"

// CreateUser inserts a new user into the database.
// The email is stored lower-cased so lookups are case-insensitive.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, display_name, password_hash, is_ghost, initials, migration_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		strings.ToLower(user.Email),
		user.DisplayName,
		user.PasswordHash,
		user.IsGhost,
		user.Initials,
		user.MigrationStatus,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves a user by email, compared case-insensitively.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = ?", userColumns)
	return s.scanUser(s.db.QueryRowContext(ctx, query, strings.ToLower(email)))
}

// GetUserByDisplayName retrieves a user by display name.
func (s *SQLiteStore) GetUserByDisplayName(ctx context.Context, name string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE display_name = ?", userColumns)
	return s.scanUser(s.db.QueryRowContext(ctx, query, name))
}

// GetUserByID retrieves a user by their ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = ?", userColumns)
	user, err := s.scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", id)
	}
	return user, nil
}

// UpdateUser rewrites all mutable fields of an existing user.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().Unix()
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = ?, display_name = ?, password_hash = ?, is_ghost = ?, initials = ?, migration_status = ?, updated_at = ?
		WHERE id = ?`,
		strings.ToLower(user.Email),
		user.DisplayName,
		user.PasswordHash,
		user.IsGhost,
		user.Initials,
		user.MigrationStatus,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %s", user.ID)
	}
	return nil
}

// SetMigrationStatus persists the user's foreign-ledger import state.
func (s *SQLiteStore) SetMigrationStatus(ctx context.Context, userID string, status models.MigrationStatus) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET migration_status = ?, updated_at = ? WHERE id = ?",
		status, time.Now().Unix(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set migration status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check status update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// AddFriendLink writes the symmetric friendship as two directed rows.
// Re-adding an existing link is a no-op. The two inserts are not atomic
// across aggregates; a half-written link is reported for reconciliation.
func (s *SQLiteStore) AddFriendLink(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return fmt.Errorf("cannot friend yourself")
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO friends (user_id, friend_id) VALUES (?, ?)",
		userID, friendID,
	); err != nil {
		return fmt.Errorf("failed to add friend link: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO friends (user_id, friend_id) VALUES (?, ?)",
		friendID, userID,
	); err != nil {
		return fmt.Errorf("friend link half-written (%s -> %s exists, reverse failed): %w", userID, friendID, err)
	}
	return nil
}

// AreFriends reports whether the directed friend row a->b exists.
func (s *SQLiteStore) AreFriends(ctx context.Context, a, b string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM friends WHERE user_id = ? AND friend_id = ?",
		a, b,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return true, nil
}

// ListFriends returns the users linked to userID, ordered by display name.
func (s *SQLiteStore) ListFriends(ctx context.Context, userID string) ([]*models.User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users u
		JOIN friends f ON f.friend_id = u.id
		WHERE f.user_id = ?
		ORDER BY u.display_name`, prefixColumns("u", userColumns))

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var friends []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash,
			&user.IsGhost, &user.Initials, &user.MigrationStatus, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friends: %w", err)
	}

	return friends, nil
}

// scanUser reads one user row, mapping sql.ErrNoRows to (nil, nil).
func (s *SQLiteStore) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash,
		&user.IsGhost, &user.Initials, &user.MigrationStatus, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // User not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}
