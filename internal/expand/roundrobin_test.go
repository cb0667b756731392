package expand

import (
	"testing"

	"github.com/nssports/sportsbook-engine/pkg/types"
	"github.com/shopspring/decimal"
)

func ptr(f float64) *float64 { return &f }

func testLegs(n int) []types.Leg {
	legs := make([]types.Leg, 0, n)
	for i := 0; i < n; i++ {
		legs = append(legs, types.Leg{
			ID:         "leg-" + string(rune('a'+i)),
			GameID:     "game-" + string(rune('a'+i)),
			League:     "NFL",
			MarketType: types.MarketSpread,
			Selection:  types.SideHome,
			Line:       ptr(-3.5),
			Odds:       -110,
		})
	}
	return legs
}

func TestRoundRobinCombinationCount(t *testing.T) {
	tests := []struct {
		name       string
		n          int
		parlaySize int
		expected   int // C(n, k)
	}{
		{name: "four-by-two", n: 4, parlaySize: 2, expected: 6},
		{name: "four-by-three", n: 4, parlaySize: 3, expected: 4},
		{name: "five-by-two", n: 5, parlaySize: 2, expected: 10},
		{name: "six-by-three", n: 6, parlaySize: 3, expected: 20},
		{name: "eight-by-eight", n: 8, parlaySize: 8, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := RoundRobin(testLegs(tt.n), tt.parlaySize, decimal.NewFromInt(10))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result.Parlays) != tt.expected {
				t.Errorf("C(%d,%d) = %d parlays, want %d", tt.n, tt.parlaySize, len(result.Parlays), tt.expected)
			}
			wantStake := decimal.NewFromInt(int64(10 * tt.expected))
			if !result.TotalStake.Equal(wantStake) {
				t.Errorf("total stake = %s, want %s", result.TotalStake, wantStake)
			}
		})
	}
}

func TestRoundRobinLexicographicOrder(t *testing.T) {
	legs := testLegs(4)
	result, err := RoundRobin(legs, 2, decimal.NewFromInt(10))
	if err != nil {
		t.Fatal(err)
	}

	// Stable lexicographic order over the input selections.
	wantPairs := [][2]string{
		{"leg-a", "leg-b"}, {"leg-a", "leg-c"}, {"leg-a", "leg-d"},
		{"leg-b", "leg-c"}, {"leg-b", "leg-d"}, {"leg-c", "leg-d"},
	}
	for i, parlay := range result.Parlays {
		if parlay.Legs[0].ID != wantPairs[i][0] || parlay.Legs[1].ID != wantPairs[i][1] {
			t.Errorf("parlay %d = (%s, %s), want (%s, %s)",
				i, parlay.Legs[0].ID, parlay.Legs[1].ID, wantPairs[i][0], wantPairs[i][1])
		}
	}
}

func TestRoundRobinOdds(t *testing.T) {
	result, err := RoundRobin(testLegs(3), 2, decimal.NewFromInt(10))
	if err != nil {
		t.Fatal(err)
	}

	for _, parlay := range result.Parlays {
		// Two -110 legs combine to +264.
		if parlay.Odds != 264 {
			t.Errorf("two-leg -110 parlay odds = %+d, want +264", parlay.Odds)
		}
		want := decimal.NewFromFloat(36.45)
		if !parlay.PotentialPayout.Equal(want) {
			t.Errorf("parlay payout = %s, want %s", parlay.PotentialPayout, want)
		}
	}

	// Aggregate payout is the sum over all parlays.
	wantTotal := decimal.NewFromFloat(36.45 * 3).Round(2)
	if !result.PotentialPayout.Equal(wantTotal) {
		t.Errorf("aggregate payout = %s, want %s", result.PotentialPayout, wantTotal)
	}
}

func TestRoundRobinBounds(t *testing.T) {
	stake := decimal.NewFromInt(10)

	if _, err := RoundRobin(testLegs(4), 1, stake); err == nil {
		t.Error("parlay size 1 should be rejected")
	}
	if _, err := RoundRobin(testLegs(10), 9, stake); err == nil {
		t.Error("parlay size 9 should be rejected")
	}
	if _, err := RoundRobin(testLegs(3), 4, stake); err == nil {
		t.Error("parlay size above selection count should be rejected")
	}
	if _, err := RoundRobin(testLegs(MaxSelections+1), 8, stake); err == nil {
		t.Errorf("%d selections should be rejected", MaxSelections+1)
	}
	if _, err := RoundRobin(testLegs(MaxSelections), 8, stake); err != nil {
		t.Errorf("%d selections should be accepted: %v", MaxSelections, err)
	}
	if _, err := RoundRobin(testLegs(4), 2, decimal.Zero); err == nil {
		t.Error("zero stake should be rejected")
	}
}
