package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/owetrack/owetrack/internal/models"
)

// CreateGroup persists a new group with its member sets.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, created_by, note, settle_up_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.CreatedBy, group.Note, group.SettleUpDate, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := insertMembers(ctx, tx, group); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetGroup retrieves a group by ID, including active and past members.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_by, note, settle_up_date, created_at
		 FROM groups WHERE id = ?`,
		id,
	).Scan(&group.ID, &group.Name, &group.CreatedBy, &group.Note, &group.SettleUpDate, &group.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	if err := s.loadMembers(ctx, group); err != nil {
		return nil, err
	}

	return group, nil
}

// UpdateGroup rewrites the group row and replaces its member sets in one
// transaction. This is the read-modify-write unit for membership edits.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE groups SET name = ?, note = ?, settle_up_date = ? WHERE id = ?`,
		group.Name, group.Note, group.SettleUpDate, group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("group not found: %s", group.ID)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM group_members WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear group members: %w", err)
	}
	if err := insertMembers(ctx, tx, group); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListGroupsByMember returns groups where userID is an active member.
func (s *SQLiteStore) ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error) {
	return s.queryGroups(ctx,
		`SELECT g.id, g.name, g.created_by, g.note, g.settle_up_date, g.created_at
		 FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = ? AND m.past = 0
		 ORDER BY g.created_at`,
		userID,
	)
}

// FindGroupByNameAndMember probes for a group with exactly this name that
// has userID as an active member.
func (s *SQLiteStore) FindGroupByNameAndMember(ctx context.Context, name, userID string) (*models.Group, error) {
	groups, err := s.queryGroups(ctx,
		`SELECT g.id, g.name, g.created_by, g.note, g.settle_up_date, g.created_at
		 FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE g.name = ? AND m.user_id = ? AND m.past = 0
		 LIMIT 1`,
		name, userID,
	)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}
	return groups[0], nil
}

// ListGroupsBySettleUpDate returns groups whose settle-up date equals the
// given calendar date.
func (s *SQLiteStore) ListGroupsBySettleUpDate(ctx context.Context, date string) ([]*models.Group, error) {
	if date == "" {
		return nil, nil
	}
	return s.queryGroups(ctx,
		`SELECT id, name, created_by, note, settle_up_date, created_at
		 FROM groups WHERE settle_up_date = ? ORDER BY created_at`,
		date,
	)
}

// queryGroups runs a group query and hydrates member sets for each row.
func (s *SQLiteStore) queryGroups(ctx context.Context, query string, args ...any) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group := &models.Group{}
		if err := rows.Scan(&group.ID, &group.Name, &group.CreatedBy, &group.Note,
			&group.SettleUpDate, &group.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	for _, group := range groups {
		if err := s.loadMembers(ctx, group); err != nil {
			return nil, err
		}
	}

	return groups, nil
}

// loadMembers populates the group's active and past member lists.
func (s *SQLiteStore) loadMembers(ctx context.Context, group *models.Group) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, past FROM group_members WHERE group_id = ? ORDER BY user_id",
		group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var past bool
		if err := rows.Scan(&userID, &past); err != nil {
			return fmt.Errorf("failed to scan group member: %w", err)
		}
		if past {
			group.PastMembers = append(group.PastMembers, userID)
		} else {
			group.Members = append(group.Members, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate group members: %w", err)
	}

	return nil
}

// insertMembers writes both member sets inside the caller's transaction.
func insertMembers(ctx context.Context, tx *sql.Tx, group *models.Group) error {
	for _, userID := range group.Members {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, user_id, past) VALUES (?, ?, 0)",
			group.ID, userID,
		); err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}
	for _, userID := range group.PastMembers {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, user_id, past) VALUES (?, ?, 1)",
			group.ID, userID,
		); err != nil {
			return fmt.Errorf("failed to insert past member: %w", err)
		}
	}
	return nil
}
