// Package migration imports a user's foreign Splitwise ledger (groups,
// expenses, and friends) into the local store.
//
// The pipeline is strictly sequential per run: groups one at a time, expense
// pages one at a time (the offset cursor must not advance concurrently).
// Different users may migrate concurrently; the store is the only shared
// state. Re-running is safe: record creation is guarded by the foreign-ID
// and natural-key dedup checks.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/owetrack/owetrack/internal/identity"
	"github.com/owetrack/owetrack/internal/models"
	"github.com/owetrack/owetrack/internal/splitwise"
	"github.com/owetrack/owetrack/internal/storage"
)

var (
	// ErrAuth marks an invalid or expired foreign token or auth code.
	// No local state has been mutated when it is returned.
	ErrAuth = errors.New("foreign ledger authentication failed")

	// ErrUpstream marks the foreign API being unreachable after
	// authentication succeeded. The migration status stays pending.
	ErrUpstream = errors.New("foreign ledger unavailable")
)

// provenanceNote tags groups created by an import.
const provenanceNote = "Imported from Splitwise"

// Summary is the aggregate result of one migration run.
type Summary struct {
	Groups          int
	Expenses        int
	Friends         int
	ForeignUserName string
}

// Importer orchestrates the migration pipeline.
type Importer struct {
	store      storage.Store
	resolver   *identity.Resolver
	baseURL    string
	httpClient *http.Client
	pageSize   int
}

// NewImporter creates an importer against the given foreign API base URL.
// A nil httpClient falls back to http.DefaultClient.
func NewImporter(store storage.Store, resolver *identity.Resolver, baseURL string, httpClient *http.Client) *Importer {
	return &Importer{
		store:      store,
		resolver:   resolver,
		baseURL:    baseURL,
		httpClient: httpClient,
		pageSize:   splitwise.DefaultPageSize,
	}
}

// RunWithCode exchanges an OAuth authorization code for a token and runs the
// migration with it (the interactive flow).
func (im *Importer) RunWithCode(ctx context.Context, userID, clientID, clientSecret, code, redirectURI string) (*Summary, error) {
	token, err := splitwise.ExchangeCode(ctx, im.baseURL, clientID, clientSecret, code, redirectURI, im.httpClient)
	if err != nil {
		if errors.Is(err, splitwise.ErrUnauthorized) {
			return nil, fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return im.Run(ctx, userID, token)
}

// Run migrates the foreign ledger reachable with the given personal access
// token into userID's local data.
//
// The user's migration status moves none -> pending -> completed. Pending is
// persisted before any foreign data is written, so a crash leaves a durable
// marker; an auth failure returns before any mutation.
func (im *Importer) Run(ctx context.Context, userID, token string) (*Summary, error) {
	client := splitwise.NewClient(im.baseURL, token, im.httpClient)

	// Step 1: verify the token before touching local state.
	me, err := client.GetCurrentUser(ctx)
	if err != nil {
		if errors.Is(err, splitwise.ErrUnauthorized) {
			return nil, fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	user, err := im.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrating user: %w", err)
	}

	if err := im.store.SetMigrationStatus(ctx, user.ID, models.MigrationPending); err != nil {
		return nil, fmt.Errorf("failed to mark migration pending: %w", err)
	}

	summary := &Summary{
		ForeignUserName: strings.TrimSpace(me.FirstName + " " + me.LastName),
	}

	slog.Info("Migration started",
		"user_id", user.ID,
		"foreign_user", summary.ForeignUserName,
		"foreign_id", me.ID,
	)

	// Step 2: list groups. Failure here is unrecoverable and leaves the
	// durable pending marker for a later re-run.
	groups, err := client.GetGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list groups: %v", ErrUpstream, err)
	}

	for _, foreignGroup := range groups {
		if err := im.importGroup(ctx, client, user, me.ID, foreignGroup, summary); err != nil {
			return nil, err
		}
		summary.Groups++
		groupsProcessed.Inc()
	}

	// Step 7: friends. Failures are absorbed; only the counts reflect them.
	im.importFriends(ctx, client, user, summary)

	// Step 8: finalize.
	if err := im.store.SetMigrationStatus(ctx, user.ID, models.MigrationCompleted); err != nil {
		return nil, fmt.Errorf("failed to mark migration completed: %w", err)
	}

	slog.Info("Migration completed",
		"user_id", user.ID,
		"groups", summary.Groups,
		"expenses", summary.Expenses,
		"friends", summary.Friends,
	)

	return summary, nil
}

// importGroup resolves a foreign group's membership, finds or creates the
// local group, and imports its expenses. A failed expense page aborts only
// this group's expense import; store failures abort the run.
func (im *Importer) importGroup(ctx context.Context, client *splitwise.Client, user *models.User, foreignUserID int64, foreignGroup splitwise.Group, summary *Summary) error {
	// Step 3: membership map, seeded with the migrating user.
	memberMap := map[int64]string{foreignUserID: user.ID}
	members := []string{user.ID}

	for _, m := range foreignGroup.Members {
		if m.ID == foreignUserID {
			continue
		}
		resolved, err := im.resolver.Resolve(ctx, identity.ForeignMember{
			ForeignID: strconv.FormatInt(m.ID, 10),
			Email:     m.Email,
			FirstName: m.FirstName,
			LastName:  m.LastName,
		})
		if errors.Is(err, identity.ErrNoEmail) {
			slog.Debug("Skipping foreign member without email",
				"group", foreignGroup.Name, "foreign_id", m.ID)
			participantsDropped.Inc()
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to resolve member of %q: %w", foreignGroup.Name, err)
		}
		memberMap[m.ID] = resolved.ID
		members = append(members, resolved.ID)
	}

	// Step 4: find-or-create by exact name plus the migrating user's
	// membership. Found groups get the union of members, never removals.
	local, err := im.store.FindGroupByNameAndMember(ctx, foreignGroup.Name, user.ID)
	if err != nil {
		return fmt.Errorf("failed to look up group %q: %w", foreignGroup.Name, err)
	}
	if local == nil {
		local = &models.Group{
			Name:      foreignGroup.Name,
			CreatedBy: user.ID,
			Note:      provenanceNote,
			Members:   members,
		}
		if err := im.store.CreateGroup(ctx, local); err != nil {
			return fmt.Errorf("failed to create group %q: %w", foreignGroup.Name, err)
		}
		slog.Info("Imported group", "group_id", local.ID, "name", local.Name, "members", len(members))
	} else {
		grew := false
		for _, id := range members {
			if !local.HasMember(id) {
				local.AddMember(id)
				grew = true
			}
		}
		if grew {
			if err := im.store.UpdateGroup(ctx, local); err != nil {
				return fmt.Errorf("failed to update group %q: %w", foreignGroup.Name, err)
			}
		}
	}

	// Step 5/6: page through expenses; a failed page degrades to a partial
	// result for this group only.
	pager := splitwise.NewExpensePager(client, foreignGroup.ID, im.pageSize)
	for !pager.Done() {
		page, err := pager.Next(ctx)
		if err != nil {
			slog.Warn("Aborting expense import for group after failed page",
				"group", foreignGroup.Name,
				"offset", pager.Offset(),
				"imported_so_far", summary.Expenses,
				"error", err,
			)
			pagesFailed.Inc()
			break
		}
		for _, foreignExpense := range page {
			if err := im.importExpense(ctx, user, local, memberMap, foreignExpense, summary); err != nil {
				return err
			}
		}
	}

	return nil
}

// importExpense transforms one foreign expense and inserts it unless the
// dedup check finds it already imported.
func (im *Importer) importExpense(ctx context.Context, user *models.User, group *models.Group, memberMap map[int64]string, foreign splitwise.Expense, summary *Summary) error {
	// Soft-deleted and zero/unparseable amounts are skipped outright.
	if foreign.DeletedAt != nil {
		return nil
	}
	amount, err := strconv.ParseFloat(foreign.Cost, 64)
	if err != nil || amount == 0 {
		slog.Debug("Skipping expense with unusable amount",
			"description", foreign.Description, "cost", foreign.Cost)
		return nil
	}
	date := foreign.Date.Format("2006-01-02")
	foreignID := strconv.FormatInt(foreign.ID, 10)

	// Dedup: foreign ID first, then the natural key for rows imported
	// before provenance tracking existed.
	if existing, err := im.store.FindExpenseByForeignID(ctx, foreignID); err != nil {
		return fmt.Errorf("failed dedup check: %w", err)
	} else if existing != nil {
		duplicatesSkipped.Inc()
		return nil
	}
	if existing, err := im.store.FindExpenseByNaturalKey(ctx, group.ID, foreign.Description, amount, date); err != nil {
		return fmt.Errorf("failed dedup check: %w", err)
	} else if existing != nil {
		duplicatesSkipped.Inc()
		return nil
	}

	// Payer: the participant with a positive paid share, if mappable;
	// otherwise the migrating user.
	payerID := user.ID
	for _, p := range foreign.Users {
		paid, err := strconv.ParseFloat(p.PaidShare, 64)
		if err != nil || paid <= 0 {
			continue
		}
		if localID, ok := memberMap[p.UserID]; ok {
			payerID = localID
		}
		break
	}

	// Splits: one per mappable participant with a positive owed share.
	var splits []models.Split
	for _, p := range foreign.Users {
		owed, err := strconv.ParseFloat(p.OwedShare, 64)
		if err != nil || owed <= 0 {
			continue
		}
		localID, ok := memberMap[p.UserID]
		if !ok {
			participantsDropped.Inc()
			continue
		}
		splits = append(splits, models.Split{UserID: localID, Amount: owed})
	}
	if len(splits) == 0 {
		// Never lose the expense: charge the migrating user in full.
		splits = []models.Split{{UserID: user.ID, Amount: amount}}
	}

	expense := &models.Expense{
		GroupID:     group.ID,
		Description: foreign.Description,
		Amount:      amount,
		PaidBy:      payerID,
		AddedBy:     user.ID,
		Date:        date,
		ForeignID:   foreignID,
		Splits:      splits,
	}
	if err := im.store.CreateExpense(ctx, expense); err != nil {
		return fmt.Errorf("failed to import expense %q: %w", foreign.Description, err)
	}

	summary.Expenses++
	expensesImported.Inc()
	return nil
}

// importFriends links the foreign friend list. No friend failure is fatal:
// unmappable or erroring friends are logged and the rest continue.
func (im *Importer) importFriends(ctx context.Context, client *splitwise.Client, user *models.User, summary *Summary) {
	friends, err := client.GetFriends(ctx)
	if err != nil {
		slog.Warn("Skipping friend import after fetch failure", "user_id", user.ID, "error", err)
		return
	}

	for _, f := range friends {
		if f.Email == "" {
			participantsDropped.Inc()
			continue
		}
		resolved, err := im.resolver.Resolve(ctx, identity.ForeignMember{
			ForeignID: strconv.FormatInt(f.ID, 10),
			Email:     f.Email,
			FirstName: f.FirstName,
			LastName:  f.LastName,
		})
		if err != nil {
			slog.Warn("Skipping unresolvable friend", "email", f.Email, "error", err)
			continue
		}
		if resolved.ID == user.ID {
			continue
		}

		linked, err := im.store.AreFriends(ctx, user.ID, resolved.ID)
		if err != nil {
			slog.Warn("Skipping friend after link check failure", "friend_id", resolved.ID, "error", err)
			continue
		}
		if linked {
			continue
		}
		if err := im.store.AddFriendLink(ctx, user.ID, resolved.ID); err != nil {
			slog.Warn("Failed to link friend", "friend_id", resolved.ID, "error", err)
			continue
		}
		summary.Friends++
		friendsLinked.Inc()
	}
}
