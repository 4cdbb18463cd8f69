package models

// Group represents a set of users who share expenses.
//
// Active members and past members are disjoint. A past member is someone who
// left while still carrying a nonzero balance; the record is kept so old
// expenses stay attributable. Re-joining removes the user from PastMembers.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Lake Trip").
	Name string

	// CreatedBy is the ID of the user who created the group.
	CreatedBy string

	// Note is free-form text attached to the group. Imported groups carry a
	// provenance note here.
	Note string

	// SettleUpDate is an optional calendar date ("2006-01-02") on which the
	// daily reminder job mails each member their net balances. Empty means
	// no reminder.
	SettleUpDate string

	// Members is the list of active member user IDs.
	Members []string

	// PastMembers is the list of user IDs who left with an unsettled balance.
	PastMembers []string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// HasMember reports whether userID is an active member.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// AddMember adds userID to the active member set if not already present and
// clears any past-member record, keeping the two sets disjoint.
func (g *Group) AddMember(userID string) {
	for i, m := range g.PastMembers {
		if m == userID {
			g.PastMembers = append(g.PastMembers[:i], g.PastMembers[i+1:]...)
			break
		}
	}
	if !g.HasMember(userID) {
		g.Members = append(g.Members, userID)
	}
}

// RemoveMember removes userID from the active set. If settled is false the
// user is recorded as a past member so historical balances stay visible.
func (g *Group) RemoveMember(userID string, settled bool) {
	for i, m := range g.Members {
		if m == userID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			break
		}
	}
	if !settled {
		for _, m := range g.PastMembers {
			if m == userID {
				return
			}
		}
		g.PastMembers = append(g.PastMembers, userID)
	}
}
