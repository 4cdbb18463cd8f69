// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/owetrack/owetrack/internal/models"
	"github.com/owetrack/owetrack/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateExpense persists an expense and its splits in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, description, amount, paid_by, added_by, date, foreign_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, nullableID(expense.GroupID), expense.Description, expense.Amount,
		expense.PaidBy, expense.AddedBy, expense.Date, expense.ForeignID, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i, split := range expense.Splits {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO splits (expense_id, position, user_id, amount) VALUES (?, ?, ?, ?)",
			expense.ID, i, split.UserID, split.Amount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetExpense retrieves an expense by ID, including its splits.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	expense := &models.Expense{}
	var groupID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, description, amount, paid_by, added_by, date, foreign_id, created_at
		 FROM expenses WHERE id = ?`,
		id,
	).Scan(&expense.ID, &groupID, &expense.Description, &expense.Amount,
		&expense.PaidBy, &expense.AddedBy, &expense.Date, &expense.ForeignID, &expense.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	expense.GroupID = groupID.String

	if err := s.loadSplits(ctx, expense); err != nil {
		return nil, err
	}

	return expense, nil
}

// DeleteExpense removes an expense; its splits cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("expense not found: %s", id)
	}
	return nil
}

// ListExpensesByGroup returns all expenses for a group, oldest first.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	return s.queryExpenses(ctx,
		`SELECT id, group_id, description, amount, paid_by, added_by, date, foreign_id, created_at
		 FROM expenses WHERE group_id = ? ORDER BY created_at`,
		groupID,
	)
}

// ListDirectExpensesBetween returns groupless expenses touching both users:
// one of them paid and the other appears as payer or debtor.
func (s *SQLiteStore) ListDirectExpensesBetween(ctx context.Context, a, b string) ([]*models.Expense, error) {
	return s.queryExpenses(ctx,
		`SELECT DISTINCT e.id, e.group_id, e.description, e.amount, e.paid_by, e.added_by, e.date, e.foreign_id, e.created_at
		 FROM expenses e
		 LEFT JOIN splits sp ON sp.expense_id = e.id
		 WHERE e.group_id IS NULL
		   AND (e.paid_by = ? OR sp.user_id = ?)
		   AND (e.paid_by = ? OR sp.user_id = ?)
		 ORDER BY e.created_at`,
		a, a, b, b,
	)
}

// FindExpenseByForeignID probes for an imported expense by source-system ID.
func (s *SQLiteStore) FindExpenseByForeignID(ctx context.Context, foreignID string) (*models.Expense, error) {
	if foreignID == "" {
		return nil, nil
	}
	expenses, err := s.queryExpenses(ctx,
		`SELECT id, group_id, description, amount, paid_by, added_by, date, foreign_id, created_at
		 FROM expenses WHERE foreign_id = ? LIMIT 1`,
		foreignID,
	)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, nil
	}
	return expenses[0], nil
}

// FindExpenseByNaturalKey probes for an expense matching description,
// absolute amount, date, and group. Used as the fallback dedup key when no
// foreign ID is known.
func (s *SQLiteStore) FindExpenseByNaturalKey(ctx context.Context, groupID, description string, amount float64, date string) (*models.Expense, error) {
	query := `SELECT id, group_id, description, amount, paid_by, added_by, date, foreign_id, created_at
		 FROM expenses WHERE description = ? AND ABS(amount) = ABS(?) AND date = ?`
	args := []any{description, amount, date}
	if groupID == "" {
		query += " AND group_id IS NULL"
	} else {
		query += " AND group_id = ?"
		args = append(args, groupID)
	}
	query += " LIMIT 1"

	expenses, err := s.queryExpenses(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, nil
	}
	return expenses[0], nil
}

// queryExpenses runs an expense query and hydrates splits for each row.
func (s *SQLiteStore) queryExpenses(ctx context.Context, query string, args ...any) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense := &models.Expense{}
		var groupID sql.NullString
		if err := rows.Scan(&expense.ID, &groupID, &expense.Description, &expense.Amount,
			&expense.PaidBy, &expense.AddedBy, &expense.Date, &expense.ForeignID, &expense.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expense.GroupID = groupID.String
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for _, expense := range expenses {
		if err := s.loadSplits(ctx, expense); err != nil {
			return nil, err
		}
	}

	return expenses, nil
}

// loadSplits populates the expense's split list in stored order.
func (s *SQLiteStore) loadSplits(ctx context.Context, expense *models.Expense) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, amount FROM splits WHERE expense_id = ? ORDER BY position",
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var split models.Split
		if err := rows.Scan(&split.UserID, &split.Amount); err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		expense.Splits = append(expense.Splits, split)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate splits: %w", err)
	}

	return nil
}

// nullableID maps an empty ID string to SQL NULL.
func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
