package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/owetrack/owetrack/internal/calculator"
	"github.com/owetrack/owetrack/internal/middleware"
	"github.com/owetrack/owetrack/internal/models"
)

type createGroupRequest struct {
	Name         string   `json:"name" binding:"required"`
	Note         string   `json:"note"`
	SettleUpDate string   `json:"settle_up_date"`
	MemberEmails []string `json:"member_emails"`
}

type addMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type groupView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	CreatedBy    string   `json:"created_by"`
	Note         string   `json:"note,omitempty"`
	SettleUpDate string   `json:"settle_up_date,omitempty"`
	Members      []string `json:"members"`
	PastMembers  []string `json:"past_members,omitempty"`
}

func toGroupView(g *models.Group) groupView {
	return groupView{
		ID:           g.ID,
		Name:         g.Name,
		CreatedBy:    g.CreatedBy,
		Note:         g.Note,
		SettleUpDate: g.SettleUpDate,
		Members:      g.Members,
		PastMembers:  g.PastMembers,
	}
}

// CreateGroup creates a group with the caller as a member, optionally adding
// further members by email.
func (h *Handler) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SettleUpDate != "" {
		if _, err := time.Parse("2006-01-02", req.SettleUpDate); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "settle_up_date must be YYYY-MM-DD"})
			return
		}
	}

	userID := middleware.GetUserID(c)
	group := &models.Group{
		ID:           uuid.New().String(),
		Name:         req.Name,
		CreatedBy:    userID,
		Note:         req.Note,
		SettleUpDate: req.SettleUpDate,
		Members:      []string{userID},
		CreatedAt:    time.Now().Unix(),
	}

	for _, email := range req.MemberEmails {
		member, err := h.store.GetUserByEmail(c.Request.Context(), email)
		if err != nil {
			slog.Error("Failed to look up member", "error", err, "email", email)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create group"})
			return
		}
		if member == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no account with email " + email})
			return
		}
		group.AddMember(member.ID)
	}

	if err := h.store.CreateGroup(c.Request.Context(), group); err != nil {
		slog.Error("Failed to create group", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create group"})
		return
	}

	slog.Info("Group created", "group_id", group.ID, "name", group.Name, "members", len(group.Members))
	c.JSON(http.StatusCreated, gin.H{"group": toGroupView(group)})
}

// ListGroups returns the groups where the caller is an active member.
func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := h.store.ListGroupsByMember(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		slog.Error("Failed to list groups", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list groups"})
		return
	}

	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, toGroupView(g))
	}
	c.JSON(http.StatusOK, gin.H{"groups": views})
}

// GetGroup returns one group. Only members and past members may view it.
func (h *Handler) GetGroup(c *gin.Context) {
	group, ok := h.loadGroupForCaller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": toGroupView(group)})
}

// AddGroupMember adds an existing account to the group. Re-adding a past
// member restores them to the active set.
func (h *Handler) AddGroupMember(c *gin.Context) {
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, ok := h.loadGroupForCaller(c)
	if !ok {
		return
	}
	if !group.HasMember(middleware.GetUserID(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only active members can add members"})
		return
	}

	member, err := h.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		slog.Error("Failed to look up member", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add member"})
		return
	}
	if member == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no account with that email"})
		return
	}

	group.AddMember(member.ID)
	if err := h.store.UpdateGroup(c.Request.Context(), group); err != nil {
		slog.Error("Failed to update group", "error", err, "group_id", group.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add member"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": toGroupView(group)})
}

// LeaveGroup removes the caller from the active member set. A caller who
// still carries a nonzero balance is kept as a past member so the group's
// history stays attributable.
func (h *Handler) LeaveGroup(c *gin.Context) {
	group, ok := h.loadGroupForCaller(c)
	if !ok {
		return
	}
	userID := middleware.GetUserID(c)
	if !group.HasMember(userID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not an active member"})
		return
	}

	expenses, err := h.store.ListExpensesByGroup(c.Request.Context(), group.ID)
	if err != nil {
		slog.Error("Failed to list group expenses", "error", err, "group_id", group.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to leave group"})
		return
	}

	matrix := calculator.ComputeNetMatrix(toCalculatorExpenses(expenses), groupLedgerMembers(group))
	settled := true
	for other, amount := range matrix[userID] {
		if !calculator.IsSettled(amount) || !calculator.IsSettled(matrix[other][userID]) {
			settled = false
			break
		}
	}

	group.RemoveMember(userID, settled)
	if err := h.store.UpdateGroup(c.Request.Context(), group); err != nil {
		slog.Error("Failed to update group", "error", err, "group_id", group.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to leave group"})
		return
	}

	slog.Info("Member left group", "group_id", group.ID, "user_id", userID, "settled", settled)
	c.JSON(http.StatusOK, gin.H{"group": toGroupView(group), "settled": settled})
}

// GroupBalances returns the simplified net-owed matrix for the group and a
// per-member summary. Past members are included so old debts remain visible.
func (h *Handler) GroupBalances(c *gin.Context) {
	group, ok := h.loadGroupForCaller(c)
	if !ok {
		return
	}

	expenses, err := h.store.ListExpensesByGroup(c.Request.Context(), group.ID)
	if err != nil {
		slog.Error("Failed to list group expenses", "error", err, "group_id", group.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute balances"})
		return
	}

	members := groupLedgerMembers(group)
	matrix := calculator.ComputeNetMatrix(toCalculatorExpenses(expenses), members)

	type entry struct {
		Debtor   string  `json:"debtor"`
		Creditor string  `json:"creditor"`
		Amount   float64 `json:"amount"`
	}
	entries := make([]entry, 0)
	for _, debtor := range members {
		for _, creditor := range members {
			if debtor == creditor {
				continue
			}
			if amount := matrix[debtor][creditor]; amount > calculator.SettledThreshold {
				entries = append(entries, entry{Debtor: debtor, Creditor: creditor, Amount: amount})
			}
		}
	}

	summaries := make([]calculator.MemberSummary, 0, len(members))
	for _, m := range members {
		summaries = append(summaries, calculator.BuildMemberSummary(matrix, m))
	}

	c.JSON(http.StatusOK, gin.H{
		"group_id":  group.ID,
		"balances":  entries,
		"summaries": summaries,
	})
}

// loadGroupForCaller fetches the group from the path and enforces that the
// caller is a member or past member. On failure it writes the response and
// returns ok=false.
func (h *Handler) loadGroupForCaller(c *gin.Context) (*models.Group, bool) {
	group, err := h.store.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return nil, false
	}

	userID := middleware.GetUserID(c)
	if !group.HasMember(userID) && !isPastMember(group, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this group"})
		return nil, false
	}
	return group, true
}

func isPastMember(group *models.Group, userID string) bool {
	for _, m := range group.PastMembers {
		if m == userID {
			return true
		}
	}
	return false
}

// groupLedgerMembers is the member set balances are computed over: active
// members plus past members, so departures with debt stay in the matrix.
func groupLedgerMembers(group *models.Group) []string {
	members := make([]string, 0, len(group.Members)+len(group.PastMembers))
	members = append(members, group.Members...)
	members = append(members, group.PastMembers...)
	return members
}
