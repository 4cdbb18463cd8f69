package calculator

import (
	"math"
	"testing"
)

func TestEqualSplits(t *testing.T) {
	tests := []struct {
		name         string
		amount       float64
		participants []string
		wantErr      bool
		validateFunc func(t *testing.T, splits []Split)
	}{
		{
			name:         "even two-way split",
			amount:       50.0,
			participants: []string{"alice", "bob"},
			validateFunc: func(t *testing.T, splits []Split) {
				for _, s := range splits {
					if math.Abs(s.Amount-25.0) > 0.001 {
						t.Errorf("%s share = %v, want 25.0", s.UserID, s.Amount)
					}
				}
			},
		},
		{
			name:         "uneven three-way split carries remainder on first",
			amount:       100.0,
			participants: []string{"alice", "bob", "carol"},
			validateFunc: func(t *testing.T, splits []Split) {
				// 100 / 3 = 33.33 each, remainder 0.01 to alice
				if math.Abs(splits[0].Amount-33.34) > 0.001 {
					t.Errorf("alice share = %v, want 33.34", splits[0].Amount)
				}
				for _, s := range splits[1:] {
					if math.Abs(s.Amount-33.33) > 0.001 {
						t.Errorf("%s share = %v, want 33.33", s.UserID, s.Amount)
					}
				}
				total := 0.0
				for _, s := range splits {
					total += s.Amount
				}
				if math.Abs(total-100.0) > 0.001 {
					t.Errorf("shares sum to %v, want 100.0", total)
				}
			},
		},
		{
			name:         "single participant gets the full amount",
			amount:       19.99,
			participants: []string{"alice"},
			validateFunc: func(t *testing.T, splits []Split) {
				if math.Abs(splits[0].Amount-19.99) > 0.001 {
					t.Errorf("alice share = %v, want 19.99", splits[0].Amount)
				}
			},
		},
		{
			name:         "zero amount should error",
			amount:       0,
			participants: []string{"alice"},
			wantErr:      true,
		},
		{
			name:         "no participants should error",
			amount:       10.0,
			participants: []string{},
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			splits, err := EqualSplits(tt.amount, tt.participants)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("EqualSplits failed: %v", err)
			}
			if len(splits) != len(tt.participants) {
				t.Fatalf("got %d splits, want %d", len(splits), len(tt.participants))
			}
			if tt.validateFunc != nil {
				tt.validateFunc(t, splits)
			}
		})
	}
}
