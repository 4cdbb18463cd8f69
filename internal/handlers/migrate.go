package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/owetrack/owetrack/internal/middleware"
	"github.com/owetrack/owetrack/internal/migration"
)

// startMigrationRequest carries either a personal API token for the foreign
// ledger or an OAuth authorization code to exchange for one.
type startMigrationRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

// StartMigration runs the foreign-ledger import for the authenticated user
// and returns the run summary. The run is synchronous; re-running after a
// partial import picks up what the first run missed.
func (h *Handler) StartMigration(c *gin.Context) {
	var req startMigrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Token == "" && req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either token or code is required"})
		return
	}

	userID := middleware.GetUserID(c)
	ctx := c.Request.Context()

	var (
		summary *migration.Summary
		err     error
	)
	if req.Token != "" {
		summary, err = h.importer.Run(ctx, userID, req.Token)
	} else {
		summary, err = h.importer.RunWithCode(ctx, userID,
			h.cfg.SplitwiseClientID, h.cfg.SplitwiseClientSecret, req.Code, h.cfg.SplitwiseRedirectURI)
	}
	if err != nil {
		switch {
		case errors.Is(err, migration.ErrAuth):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "foreign ledger rejected the credentials"})
		case errors.Is(err, migration.ErrUpstream):
			c.JSON(http.StatusBadGateway, gin.H{"error": "foreign ledger unavailable, try again later"})
		default:
			slog.Error("Migration failed", "error", err, "user_id", userID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "migration failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"groups_imported":   summary.Groups,
		"expenses_imported": summary.Expenses,
		"friends_linked":    summary.Friends,
		"foreign_user_name": summary.ForeignUserName,
	})
}

// MigrationStatus reports the caller's import state: none, pending, or
// completed. A pending state after a crash signals that a re-run is safe
// and needed.
func (h *Handler) MigrationStatus(c *gin.Context) {
	user, err := h.store.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(user.MigrationStatus)})
}
