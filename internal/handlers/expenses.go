package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/owetrack/owetrack/internal/calculator"
	"github.com/owetrack/owetrack/internal/middleware"
	"github.com/owetrack/owetrack/internal/models"
)

var errNegativeSplit = errors.New("split amounts must be non-negative")

type splitInput struct {
	UserID string  `json:"user_id" binding:"required"`
	Amount float64 `json:"amount"`
}

type createExpenseRequest struct {
	GroupID     string  `json:"group_id"`
	Description string  `json:"description" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	PaidBy      string  `json:"paid_by"`
	Date        string  `json:"date"`

	// Exactly one of Splits and ParticipantIDs should be set. Explicit
	// splits record each debtor's share; participant IDs ask for an equal
	// split of the full amount.
	Splits         []splitInput `json:"splits"`
	ParticipantIDs []string     `json:"participant_ids"`
}

type splitView struct {
	UserID string  `json:"user_id"`
	Amount float64 `json:"amount"`
}

type expenseView struct {
	ID          string      `json:"id"`
	GroupID     string      `json:"group_id,omitempty"`
	Description string      `json:"description"`
	Amount      float64     `json:"amount"`
	PaidBy      string      `json:"paid_by"`
	AddedBy     string      `json:"added_by"`
	Date        string      `json:"date"`
	Splits      []splitView `json:"splits"`
}

func toExpenseView(e *models.Expense) expenseView {
	splits := make([]splitView, 0, len(e.Splits))
	for _, s := range e.Splits {
		splits = append(splits, splitView{UserID: s.UserID, Amount: s.Amount})
	}
	return expenseView{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Description: e.Description,
		Amount:      e.Amount,
		PaidBy:      e.PaidBy,
		AddedBy:     e.AddedBy,
		Date:        e.Date,
		Splits:      splits,
	}
}

// CreateExpense records an expense, either inside a group or as a direct
// person-to-person expense. Group expenses require the payer and every
// debtor to be group members; direct expenses require every other
// participant to be a friend of the caller.
func (h *Handler) CreateExpense(c *gin.Context) {
	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	ctx := c.Request.Context()

	paidBy := req.PaidBy
	if paidBy == "" {
		paidBy = userID
	}
	date := req.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	splits, err := buildSplits(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.GroupID != "" {
		group, err := h.store.GetGroup(ctx, req.GroupID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
			return
		}
		if !group.HasMember(userID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this group"})
			return
		}
		if !group.HasMember(paidBy) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payer is not a group member"})
			return
		}
		for _, s := range splits {
			if !group.HasMember(s.UserID) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "split references a non-member"})
				return
			}
		}
	} else {
		// Direct expense: every participant other than the caller must be
		// an established friend.
		participants := map[string]bool{paidBy: true}
		for _, s := range splits {
			participants[s.UserID] = true
		}
		for id := range participants {
			if id == userID {
				continue
			}
			linked, err := h.store.AreFriends(ctx, userID, id)
			if err != nil {
				slog.Error("Failed to check friendship", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record expense"})
				return
			}
			if !linked {
				c.JSON(http.StatusBadRequest, gin.H{"error": "participant is not a friend"})
				return
			}
		}
	}

	expense := &models.Expense{
		ID:          uuid.New().String(),
		GroupID:     req.GroupID,
		Description: req.Description,
		Amount:      req.Amount,
		PaidBy:      paidBy,
		AddedBy:     userID,
		Date:        date,
		Splits:      splits,
		CreatedAt:   time.Now().Unix(),
	}

	if err := h.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("Failed to create expense", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record expense"})
		return
	}

	slog.Info("Expense recorded", "expense_id", expense.ID, "group_id", expense.GroupID, "amount", expense.Amount)
	c.JSON(http.StatusCreated, gin.H{"expense": toExpenseView(expense)})
}

// ListGroupExpenses returns all expenses recorded against a group.
func (h *Handler) ListGroupExpenses(c *gin.Context) {
	group, ok := h.loadGroupForCaller(c)
	if !ok {
		return
	}

	expenses, err := h.store.ListExpensesByGroup(c.Request.Context(), group.ID)
	if err != nil {
		slog.Error("Failed to list group expenses", "error", err, "group_id", group.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list expenses"})
		return
	}

	views := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		views = append(views, toExpenseView(e))
	}
	c.JSON(http.StatusOK, gin.H{"expenses": views})
}

// DeleteExpense removes an expense. Only the user who recorded it may
// delete it, regardless of who paid.
func (h *Handler) DeleteExpense(c *gin.Context) {
	expense, err := h.store.GetExpense(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "expense not found"})
		return
	}
	if expense.AddedBy != middleware.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the user who recorded an expense can delete it"})
		return
	}

	if err := h.store.DeleteExpense(c.Request.Context(), expense.ID); err != nil {
		slog.Error("Failed to delete expense", "error", err, "expense_id", expense.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete expense"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": expense.ID})
}

// buildSplits resolves the request's explicit splits or participant list
// into model splits.
func buildSplits(req createExpenseRequest) ([]models.Split, error) {
	if len(req.Splits) > 0 {
		splits := make([]models.Split, 0, len(req.Splits))
		for _, s := range req.Splits {
			if s.Amount < 0 {
				return nil, errNegativeSplit
			}
			splits = append(splits, models.Split{UserID: s.UserID, Amount: s.Amount})
		}
		return splits, nil
	}

	equal, err := calculator.EqualSplits(req.Amount, req.ParticipantIDs)
	if err != nil {
		return nil, err
	}
	splits := make([]models.Split, 0, len(equal))
	for _, s := range equal {
		splits = append(splits, models.Split{UserID: s.UserID, Amount: s.Amount})
	}
	return splits, nil
}

// toCalculatorExpenses projects stored expenses onto the netting engine's
// input shape.
func toCalculatorExpenses(expenses []*models.Expense) []calculator.Expense {
	out := make([]calculator.Expense, 0, len(expenses))
	for _, e := range expenses {
		splits := make([]calculator.Split, 0, len(e.Splits))
		for _, s := range e.Splits {
			splits = append(splits, calculator.Split{UserID: s.UserID, Amount: s.Amount})
		}
		out = append(out, calculator.Expense{PayerID: e.PaidBy, Splits: splits})
	}
	return out
}
