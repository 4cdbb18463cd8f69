package calculator

import (
	"fmt"
	"math"
)

// EqualSplits divides amount evenly across the participants, rounding each
// share to the cent. Any rounding remainder lands on the first participant
// so the shares always sum to the amount.
func EqualSplits(amount float64, participantIDs []string) ([]Split, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %v", amount)
	}
	if len(participantIDs) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}

	share := math.Floor(amount/float64(len(participantIDs))*100) / 100
	splits := make([]Split, len(participantIDs))
	total := 0.0
	for i, id := range participantIDs {
		splits[i] = Split{UserID: id, Amount: share}
		total += share
	}
	// Remainder from rounding goes to the first share.
	splits[0].Amount += math.Round((amount-total)*100) / 100

	return splits, nil
}
