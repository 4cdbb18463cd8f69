package migration

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline counters. Partial failures are absorbed with best-effort
// continuation, so the counters are the only place some of them surface.
var (
	groupsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "owetrack",
		Subsystem: "migration",
		Name:      "groups_processed_total",
		Help:      "Foreign groups processed across all migration runs.",
	})

	expensesImported = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "owetrack",
		Subsystem: "migration",
		Name:      "expenses_imported_total",
		Help:      "Expenses created from foreign records.",
	})

	duplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "owetrack",
		Subsystem: "migration",
		Name:      "duplicates_skipped_total",
		Help:      "Foreign expenses skipped by the idempotency check.",
	})

	pagesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "owetrack",
		Subsystem: "migration",
		Name:      "expense_pages_failed_total",
		Help:      "Expense page fetches that aborted a group's import.",
	})

	participantsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "owetrack",
		Subsystem: "migration",
		Name:      "participants_dropped_total",
		Help:      "Foreign participants that could not be mapped to a local user.",
	})

	friendsLinked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "owetrack",
		Subsystem: "migration",
		Name:      "friends_linked_total",
		Help:      "Friend links created from the foreign friend list.",
	})
)
