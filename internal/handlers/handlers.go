// Package handlers exposes the HTTP API: authentication, friends, groups,
// expenses, balance views, and the foreign-ledger migration endpoints.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/owetrack/owetrack/internal/auth"
	"github.com/owetrack/owetrack/internal/config"
	"github.com/owetrack/owetrack/internal/middleware"
	"github.com/owetrack/owetrack/internal/migration"
	"github.com/owetrack/owetrack/internal/storage"
)

// Handler carries the collaborators shared by all endpoints.
type Handler struct {
	store         storage.Store
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	importer      *migration.Importer
	cfg           *config.Config
}

// New creates the HTTP handler set.
func New(store storage.Store, authenticator auth.Authenticator, jwtManager *auth.JWTManager, importer *migration.Importer, cfg *config.Config) *Handler {
	return &Handler{
		store:         store,
		authenticator: authenticator,
		jwtManager:    jwtManager,
		importer:      importer,
		cfg:           cfg,
	}
}

// Router builds the gin engine with all routes and middleware registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	authed := api.Group("")
	authed.Use(middleware.RequireAuth(h.jwtManager))
	{
		authed.GET("/me", h.Me)

		authed.GET("/friends", h.ListFriends)
		authed.POST("/friends", h.AddFriend)
		authed.GET("/friends/:id/balance", h.FriendBalance)

		authed.POST("/groups", h.CreateGroup)
		authed.GET("/groups", h.ListGroups)
		authed.GET("/groups/:id", h.GetGroup)
		authed.POST("/groups/:id/members", h.AddGroupMember)
		authed.POST("/groups/:id/leave", h.LeaveGroup)
		authed.GET("/groups/:id/expenses", h.ListGroupExpenses)
		authed.GET("/groups/:id/balances", h.GroupBalances)

		authed.POST("/expenses", h.CreateExpense)
		authed.DELETE("/expenses/:id", h.DeleteExpense)

		authed.POST("/migration", h.StartMigration)
		authed.GET("/migration/status", h.MigrationStatus)
	}

	return router
}
