package calculator

import "math"

const (
	// SettledThreshold is the materiality floor for presenting a balance.
	// Entries at or below it are treated as settled by consumers; the
	// netting itself keeps exact values.
	SettledThreshold = 0.005

	// ZeroEpsilon absorbs floating-point drift when deciding whether an
	// amount is zero, e.g. whether a departing group member is settled.
	ZeroEpsilon = 0.01
)

// Expense carries the minimal information the netting engine needs.
type Expense struct {
	PayerID string
	Splits  []Split
}

// Split is one debtor's share of an expense.
type Split struct {
	UserID string
	Amount float64
}

// MemberSummary is one member's position after netting.
type MemberSummary struct {
	MemberID string
	Owes     map[string]float64 // creditor -> amount this member owes
	OwedBy   map[string]float64 // debtor -> amount owed to this member
	Net      float64            // sum(OwedBy) - sum(Owes); positive = net creditor
}

// IsSettled reports whether an amount is zero within ZeroEpsilon.
func IsSettled(amount float64) bool {
	return math.Abs(amount) < ZeroEpsilon
}

// ComputeNetMatrix reduces the expenses to a net-owed matrix over the given
// members: matrix[debtor][payer] is the simplified amount debtor owes payer.
//
// Algorithm:
//   - each split adds split.Amount to matrix[debtor][payer], skipping
//     self-obligations and any debtor or payer outside the member set
//   - for every unordered pair the smaller direction is zeroed and the
//     larger reduced by it, so at most one direction per pair is nonzero
//
// The engine is pure and has no failure mode: malformed references are
// excluded, never rejected.
func ComputeNetMatrix(expenses []Expense, memberIDs []string) map[string]map[string]float64 {
	matrix := make(map[string]map[string]float64, len(memberIDs))
	for _, a := range memberIDs {
		matrix[a] = make(map[string]float64, len(memberIDs)-1)
		for _, b := range memberIDs {
			if a != b {
				matrix[a][b] = 0
			}
		}
	}

	for _, expense := range expenses {
		if _, ok := matrix[expense.PayerID]; !ok {
			continue
		}
		for _, split := range expense.Splits {
			if split.UserID == expense.PayerID {
				continue
			}
			if _, ok := matrix[split.UserID]; !ok {
				continue
			}
			matrix[split.UserID][expense.PayerID] += split.Amount
		}
	}

	// Netting pass: cancel opposing obligations per pair.
	for i, a := range memberIDs {
		for _, b := range memberIDs[i+1:] {
			ab := matrix[a][b]
			ba := matrix[b][a]
			if ab >= ba {
				matrix[a][b] = ab - ba
				matrix[b][a] = 0
			} else {
				matrix[b][a] = ba - ab
				matrix[a][b] = 0
			}
		}
	}

	return matrix
}

// BuildMemberSummary extracts one member's position from a netted matrix.
// Only entries above SettledThreshold appear in the Owes/OwedBy lists; empty
// lists on both sides mean the member is fully settled.
func BuildMemberSummary(matrix map[string]map[string]float64, memberID string) MemberSummary {
	summary := MemberSummary{
		MemberID: memberID,
		Owes:     make(map[string]float64),
		OwedBy:   make(map[string]float64),
	}

	for creditor, amount := range matrix[memberID] {
		if amount > SettledThreshold {
			summary.Owes[creditor] = amount
			summary.Net -= amount
		}
	}
	for debtor, row := range matrix {
		if debtor == memberID {
			continue
		}
		if amount := row[memberID]; amount > SettledThreshold {
			summary.OwedBy[debtor] = amount
			summary.Net += amount
		}
	}

	return summary
}
