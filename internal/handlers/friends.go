package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/owetrack/owetrack/internal/calculator"
	"github.com/owetrack/owetrack/internal/middleware"
)

type addFriendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ListFriends returns the authenticated user's friends.
func (h *Handler) ListFriends(c *gin.Context) {
	friends, err := h.store.ListFriends(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		slog.Error("Failed to list friends", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list friends"})
		return
	}

	views := make([]userView, 0, len(friends))
	for _, f := range friends {
		views = append(views, toUserView(f))
	}
	c.JSON(http.StatusOK, gin.H{"friends": views})
}

// AddFriend links the authenticated user with an existing account by email.
// The link is symmetric: both sides see each other as friends.
func (h *Handler) AddFriend(c *gin.Context) {
	var req addFriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	friend, err := h.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		slog.Error("Failed to look up friend", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add friend"})
		return
	}
	if friend == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no account with that email"})
		return
	}
	if friend.ID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot befriend yourself"})
		return
	}

	if err := h.store.AddFriendLink(c.Request.Context(), userID, friend.ID); err != nil {
		slog.Error("Failed to add friend link", "error", err, "user_id", userID, "friend_id", friend.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add friend"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"friend": toUserView(friend)})
}

// FriendBalance nets the direct (groupless) expenses between the
// authenticated user and a friend into a single signed amount: positive
// means the friend owes the caller.
func (h *Handler) FriendBalance(c *gin.Context) {
	userID := middleware.GetUserID(c)
	friendID := c.Param("id")

	linked, err := h.store.AreFriends(c.Request.Context(), userID, friendID)
	if err != nil {
		slog.Error("Failed to check friendship", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute balance"})
		return
	}
	if !linked {
		c.JSON(http.StatusNotFound, gin.H{"error": "not friends"})
		return
	}

	expenses, err := h.store.ListDirectExpensesBetween(c.Request.Context(), userID, friendID)
	if err != nil {
		slog.Error("Failed to list direct expenses", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute balance"})
		return
	}

	matrix := calculator.ComputeNetMatrix(toCalculatorExpenses(expenses), []string{userID, friendID})
	balance := matrix[friendID][userID] - matrix[userID][friendID]
	if calculator.IsSettled(balance) {
		balance = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"friend_id": friendID,
		"balance":   balance,
	})
}
