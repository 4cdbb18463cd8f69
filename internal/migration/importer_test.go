package migration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/owetrack/owetrack/internal/identity"
	"github.com/owetrack/owetrack/internal/models"
	"github.com/owetrack/owetrack/internal/storage/sqlite"
)

// fakeForeign is a scriptable stand-in for the Splitwise API.
type fakeForeign struct {
	token    string
	user     map[string]any
	groups   []map[string]any
	expenses map[string][]map[string]any // group id -> all expenses
	friends  []map[string]any

	failExpensesAfter int // fail page fetches once this many requests served; 0 = never
	expenseRequests   int
}

func (f *fakeForeign) handler() http.Handler {
	mux := http.NewServeMux()
	auth := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return false
		}
		return true
	}

	mux.HandleFunc("/api/v3.0/get_current_user", func(w http.ResponseWriter, r *http.Request) {
		if !auth(w, r) {
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"user": f.user})
	})
	mux.HandleFunc("/api/v3.0/get_groups", func(w http.ResponseWriter, r *http.Request) {
		if !auth(w, r) {
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"groups": f.groups})
	})
	mux.HandleFunc("/api/v3.0/get_expenses", func(w http.ResponseWriter, r *http.Request) {
		if !auth(w, r) {
			return
		}
		f.expenseRequests++
		if f.failExpensesAfter > 0 && f.expenseRequests > f.failExpensesAfter {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		all := f.expenses[q.Get("group_id")]
		page := []map[string]any{}
		for i := offset; i < offset+limit && i < len(all); i++ {
			page = append(page, all[i])
		}
		json.NewEncoder(w).Encode(map[string]any{"expenses": page})
	})
	mux.HandleFunc("/api/v3.0/get_friends", func(w http.ResponseWriter, r *http.Request) {
		if !auth(w, r) {
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"friends": f.friends})
	})
	return mux
}

func expenseJSON(id int64, description, cost, date string, users ...map[string]any) map[string]any {
	return map[string]any{
		"id":          id,
		"description": description,
		"cost":        cost,
		"date":        date + "T12:00:00Z",
		"users":       users,
	}
}

func share(userID int64, paid, owed string) map[string]any {
	return map[string]any{"user_id": userID, "paid_share": paid, "owed_share": owed}
}

func setupImporter(t *testing.T, foreign *fakeForeign) (*Importer, *sqlite.SQLiteStore, *models.User) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "migration-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	server := httptest.NewServer(foreign.handler())
	t.Cleanup(server.Close)

	user := models.NewUser("me@example.com", "me", "hash")
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create migrating user: %v", err)
	}

	importer := NewImporter(store, identity.NewResolver(store), server.URL, nil)
	return importer, store, user
}

func defaultForeign() *fakeForeign {
	return &fakeForeign{
		token: "tok",
		user:  map[string]any{"id": 1, "email": "me@example.com", "first_name": "Mel", "last_name": "Ott"},
		groups: []map[string]any{
			{
				"id":   100,
				"name": "Ski Trip",
				"members": []map[string]any{
					{"id": 1, "email": "me@example.com", "first_name": "Mel", "last_name": "Ott"},
					{"id": 2, "email": "bea@example.com", "first_name": "Bea", "last_name": "Arthur"},
					{"id": 3, "first_name": "No", "last_name": "Email"}, // unresolvable
				},
			},
		},
		expenses: map[string][]map[string]any{
			"100": {
				expenseJSON(9001, "Cabin", "300.00", "2026-01-10",
					share(1, "300.00", "150.00"), share(2, "0.0", "150.00")),
				expenseJSON(9002, "Lift tickets", "90.00", "2026-01-11",
					share(2, "90.00", "45.00"), share(1, "0.0", "45.00")),
			},
		},
		friends: []map[string]any{
			{"id": 2, "email": "bea@example.com", "first_name": "Bea", "last_name": "Arthur"},
			{"id": 5, "first_name": "Ghost", "last_name": "NoMail"}, // skipped
		},
	}
}

func TestRun_FullMigration(t *testing.T) {
	foreign := defaultForeign()
	importer, store, user := setupImporter(t, foreign)
	ctx := context.Background()

	summary, err := importer.Run(ctx, user.ID, "tok")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Groups != 1 {
		t.Errorf("Groups = %d, want 1", summary.Groups)
	}
	if summary.Expenses != 2 {
		t.Errorf("Expenses = %d, want 2", summary.Expenses)
	}
	if summary.Friends != 1 {
		t.Errorf("Friends = %d, want 1", summary.Friends)
	}
	if summary.ForeignUserName != "Mel Ott" {
		t.Errorf("ForeignUserName = %q, want Mel Ott", summary.ForeignUserName)
	}

	// Status advanced to completed.
	migrated, err := store.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if migrated.MigrationStatus != models.MigrationCompleted {
		t.Errorf("MigrationStatus = %s, want completed", migrated.MigrationStatus)
	}

	// Bea exists as a ghost; the email-less member produced no account.
	bea, err := store.GetUserByEmail(ctx, "bea@example.com")
	if err != nil || bea == nil {
		t.Fatalf("Expected ghost for bea, got (%v, %v)", bea, err)
	}
	if !bea.IsGhost {
		t.Error("bea should be a ghost")
	}

	// The imported group has the migrating user and bea, not the
	// unresolvable member.
	group, err := store.FindGroupByNameAndMember(ctx, "Ski Trip", user.ID)
	if err != nil || group == nil {
		t.Fatalf("Imported group not found: %v", err)
	}
	if len(group.Members) != 2 {
		t.Errorf("group members = %v, want 2", group.Members)
	}
	if group.Note != "Imported from Splitwise" {
		t.Errorf("group note = %q", group.Note)
	}

	// Expense detail: payer mapped from the positive paid share.
	expenses, err := store.ListExpensesByGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListExpensesByGroup failed: %v", err)
	}
	if len(expenses) != 2 {
		t.Fatalf("expense count = %d, want 2", len(expenses))
	}
	cabin := expenses[0]
	if cabin.Description != "Cabin" || cabin.PaidBy != user.ID {
		t.Errorf("cabin = %q paid by %s, want Cabin paid by %s", cabin.Description, cabin.PaidBy, user.ID)
	}
	if cabin.ForeignID != "9001" {
		t.Errorf("cabin foreign id = %s, want 9001", cabin.ForeignID)
	}
	if len(cabin.Splits) != 2 {
		t.Errorf("cabin splits = %v, want 2", cabin.Splits)
	}

	// Friend link is bidirectional.
	for _, pair := range [][2]string{{user.ID, bea.ID}, {bea.ID, user.ID}} {
		ok, err := store.AreFriends(ctx, pair[0], pair[1])
		if err != nil || !ok {
			t.Errorf("expected friend row %s -> %s (%v)", pair[0], pair[1], err)
		}
	}
}

func TestRun_Idempotent(t *testing.T) {
	foreign := defaultForeign()
	importer, store, user := setupImporter(t, foreign)
	ctx := context.Background()

	if _, err := importer.Run(ctx, user.ID, "tok"); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	second, err := importer.Run(ctx, user.ID, "tok")
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if second.Expenses != 0 {
		t.Errorf("Second run imported %d expenses, want 0", second.Expenses)
	}
	if second.Friends != 0 {
		t.Errorf("Second run linked %d friends, want 0", second.Friends)
	}

	group, err := store.FindGroupByNameAndMember(ctx, "Ski Trip", user.ID)
	if err != nil || group == nil {
		t.Fatalf("group missing after re-run: %v", err)
	}
	expenses, err := store.ListExpensesByGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListExpensesByGroup failed: %v", err)
	}
	if len(expenses) != 2 {
		t.Errorf("expense count after two runs = %d, want 2", len(expenses))
	}
}

func TestRun_AuthFailureMutatesNothing(t *testing.T) {
	foreign := defaultForeign()
	importer, store, user := setupImporter(t, foreign)
	ctx := context.Background()

	_, err := importer.Run(ctx, user.ID, "wrong-token")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}

	got, err := store.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if got.MigrationStatus != models.MigrationNone {
		t.Errorf("MigrationStatus = %s, want none after auth failure", got.MigrationStatus)
	}

	groups, err := store.ListGroupsByMember(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListGroupsByMember failed: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("auth failure created groups: %v", groups)
	}
}

func TestRun_FailedPageDegradesToPartial(t *testing.T) {
	foreign := defaultForeign()
	// 25 expenses force two pages; the second page fails.
	var many []map[string]any
	for i := 0; i < 25; i++ {
		many = append(many, expenseJSON(int64(10000+i), "Dinner "+strconv.Itoa(i), "10.00", "2026-02-01",
			share(1, "10.00", "5.00"), share(2, "0.0", "5.00")))
	}
	foreign.expenses["100"] = many
	foreign.failExpensesAfter = 1

	importer, store, user := setupImporter(t, foreign)
	ctx := context.Background()

	summary, err := importer.Run(ctx, user.ID, "tok")
	if err != nil {
		t.Fatalf("Run should absorb a failed page, got %v", err)
	}
	if summary.Expenses != 20 {
		t.Errorf("Expenses = %d, want the 20 from the first page", summary.Expenses)
	}

	// The run still finalizes.
	got, err := store.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if got.MigrationStatus != models.MigrationCompleted {
		t.Errorf("MigrationStatus = %s, want completed", got.MigrationStatus)
	}
}

func TestRun_TransformRules(t *testing.T) {
	foreign := defaultForeign()
	foreign.expenses["100"] = []map[string]any{
		// Soft-deleted: skipped.
		func() map[string]any {
			e := expenseJSON(1, "Deleted", "50.00", "2026-03-01", share(1, "50.00", "50.00"))
			e["deleted_at"] = "2026-03-02T00:00:00Z"
			return e
		}(),
		// Zero amount: skipped.
		expenseJSON(2, "Zero", "0.00", "2026-03-01", share(1, "0.00", "0.00")),
		// Unparseable amount: skipped.
		expenseJSON(3, "Garbled", "not-a-number", "2026-03-01"),
		// Every participant unmappable: full amount falls back to the
		// migrating user, and no ghost appears for the email-less member.
		expenseJSON(4, "Orphan", "80.00", "2026-03-02",
			share(3, "80.00", "80.00")),
		// Unmappable payer: falls back to the migrating user; the
		// unmappable debtor is dropped from the splits.
		expenseJSON(5, "Mixed", "60.00", "2026-03-03",
			share(3, "60.00", "30.00"), share(2, "0.0", "30.00")),
	}

	importer, store, user := setupImporter(t, foreign)
	ctx := context.Background()

	summary, err := importer.Run(ctx, user.ID, "tok")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Expenses != 2 {
		t.Errorf("Expenses = %d, want 2 (orphan and mixed)", summary.Expenses)
	}

	group, err := store.FindGroupByNameAndMember(ctx, "Ski Trip", user.ID)
	if err != nil || group == nil {
		t.Fatalf("group missing: %v", err)
	}
	expenses, err := store.ListExpensesByGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListExpensesByGroup failed: %v", err)
	}

	byDescription := map[string]*models.Expense{}
	for _, e := range expenses {
		byDescription[e.Description] = e
	}
	if len(byDescription) != 2 {
		t.Fatalf("imported %v, want Orphan and Mixed", byDescription)
	}

	orphan := byDescription["Orphan"]
	if orphan.PaidBy != user.ID {
		t.Errorf("orphan payer = %s, want migrating user", orphan.PaidBy)
	}
	if len(orphan.Splits) != 1 || orphan.Splits[0].UserID != user.ID || orphan.Splits[0].Amount != 80.0 {
		t.Errorf("orphan splits = %v, want full amount on migrating user", orphan.Splits)
	}

	mixed := byDescription["Mixed"]
	if mixed.PaidBy != user.ID {
		t.Errorf("mixed payer = %s, want fallback to migrating user", mixed.PaidBy)
	}
	bea, _ := store.GetUserByEmail(ctx, "bea@example.com")
	if len(mixed.Splits) != 1 || mixed.Splits[0].UserID != bea.ID {
		t.Errorf("mixed splits = %v, want only bea's share", mixed.Splits)
	}

	// The email-less foreign member never became a user.
	users := 0
	for _, email := range []string{"me@example.com", "bea@example.com"} {
		if u, _ := store.GetUserByEmail(ctx, email); u != nil {
			users++
		}
	}
	if users != 2 {
		t.Errorf("expected exactly the migrating user and bea, got %d", users)
	}
}
