package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/owetrack/owetrack/internal/calculator"
	"github.com/owetrack/owetrack/internal/models"
	"github.com/owetrack/owetrack/internal/storage"
)

// Reminder mails each member of a group their net balances on the group's
// settle-up date. The daily trigger that decides when to call Run lives
// outside this package.
type Reminder struct {
	store storage.Store
	sink  Sink
}

// NewReminder creates a reminder job over the given store and sink.
func NewReminder(store storage.Store, sink Sink) *Reminder {
	return &Reminder{store: store, sink: sink}
}

// Run processes every group whose settle-up date equals day and returns how
// many notifications were sent. Send failures are logged and skipped;
// ghosts are skipped because nobody reads their mailbox yet.
func (r *Reminder) Run(ctx context.Context, day time.Time) (int, error) {
	date := day.Format("2006-01-02")
	groups, err := r.store.ListGroupsBySettleUpDate(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("failed to list groups due on %s: %w", date, err)
	}

	sent := 0
	for _, group := range groups {
		n, err := r.notifyGroup(ctx, group)
		if err != nil {
			slog.Warn("Skipping settle-up notifications for group", "group_id", group.ID, "error", err)
			continue
		}
		sent += n
	}
	return sent, nil
}

// notifyGroup nets the group's expenses and mails each active member their
// position.
func (r *Reminder) notifyGroup(ctx context.Context, group *models.Group) (int, error) {
	expenses, err := r.store.ListExpensesByGroup(ctx, group.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load expenses: %w", err)
	}

	calcExpenses := make([]calculator.Expense, len(expenses))
	for i, e := range expenses {
		splits := make([]calculator.Split, len(e.Splits))
		for j, s := range e.Splits {
			splits[j] = calculator.Split{UserID: s.UserID, Amount: s.Amount}
		}
		calcExpenses[i] = calculator.Expense{PayerID: e.PaidBy, Splits: splits}
	}
	matrix := calculator.ComputeNetMatrix(calcExpenses, group.Members)

	// Resolve members once for names and addresses.
	users := make(map[string]*models.User, len(group.Members))
	for _, id := range group.Members {
		user, err := r.store.GetUserByID(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("failed to load member %s: %w", id, err)
		}
		users[id] = user
	}

	subject := fmt.Sprintf("Settle up: %s", group.Name)
	sent := 0
	for _, id := range group.Members {
		member := users[id]
		if member.IsGhost {
			continue
		}
		summary := calculator.BuildMemberSummary(matrix, id)
		body := formatSummary(group.Name, summary, users)
		if err := r.sink.Send(ctx, member.Email, subject, body); err != nil {
			slog.Warn("Failed to send settle-up notification",
				"group_id", group.ID, "user_id", id, "error", err)
			continue
		}
		sent++
	}

	slog.Info("Settle-up notifications sent", "group_id", group.ID, "count", sent)
	return sent, nil
}

// formatSummary renders one member's balances as a plain-text mail body.
func formatSummary(groupName string, summary calculator.MemberSummary, users map[string]*models.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "It's settle-up day for %s.\n\n", groupName)

	if len(summary.Owes) == 0 && len(summary.OwedBy) == 0 {
		b.WriteString("You're all settled. Nothing to do!\n")
		return b.String()
	}

	for id, amount := range summary.Owes {
		fmt.Fprintf(&b, "You owe %s %.2f\n", displayName(users, id), amount)
	}
	for id, amount := range summary.OwedBy {
		fmt.Fprintf(&b, "%s owes you %.2f\n", displayName(users, id), amount)
	}
	fmt.Fprintf(&b, "\nNet position: %+.2f\n", summary.Net)
	return b.String()
}

func displayName(users map[string]*models.User, id string) string {
	if u, ok := users[id]; ok {
		return u.DisplayName
	}
	return id
}
