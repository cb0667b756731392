package odds

import (
	"errors"
	"testing"

	"github.com/nssports/sportsbook-engine/pkg/types"
	"github.com/shopspring/decimal"
)

func TestToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		american int
		expected string
		wantErr  bool
	}{
		{name: "even-money-plus", american: 100, expected: "2"},
		{name: "even-money-minus", american: -100, expected: "2"},
		{name: "underdog-plus-130", american: 130, expected: "2.3"},
		{name: "favorite-minus-150", american: -150, expected: "1.6666666666666667"},
		{name: "standard-juice-minus-110", american: -110, expected: "1.9090909090909091"},
		{name: "longshot-plus-600", american: 600, expected: "7"},
		{name: "zero-odds-rejected", american: 0, wantErr: true},
		{name: "sub-hundred-rejected", american: 50, wantErr: true},
		{name: "negative-sub-hundred-rejected", american: -99, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ToDecimal(tt.american)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for odds %d", tt.american)
				}
				var cfgErr *types.ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Errorf("expected ConfigurationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want, _ := decimal.NewFromString(tt.expected)
			if !d.Equal(want) {
				t.Errorf("ToDecimal(%d) = %s, want %s", tt.american, d, want)
			}
		})
	}
}

func TestToAmericanRoundTrip(t *testing.T) {
	// toAmericanOdds(toDecimalOdds(o)) == o for all valid American odds.
	// Even money is excluded: -100 and +100 both map to decimal 2.0, and
	// ToAmerican quotes it as +100 by convention.
	for _, american := range []int{-10000, -550, -150, -120, -110, -105, 100, 105, 110, 130, 150, 240, 600, 10000} {
		d, err := ToDecimal(american)
		if err != nil {
			t.Fatalf("ToDecimal(%d): %v", american, err)
		}
		back, err := ToAmerican(d)
		if err != nil {
			t.Fatalf("ToAmerican(%s): %v", d, err)
		}
		if back != american {
			t.Errorf("round trip %d -> %s -> %d", american, d, back)
		}
	}
}

func TestEvenMoneyNormalizesToPlus100(t *testing.T) {
	d, err := ToDecimal(-100)
	if err != nil {
		t.Fatalf("ToDecimal(-100): %v", err)
	}
	if !d.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("ToDecimal(-100) = %s, want 2", d)
	}
	back, err := ToAmerican(d)
	if err != nil {
		t.Fatalf("ToAmerican(%s): %v", d, err)
	}
	if back != 100 {
		t.Errorf("ToAmerican(2) = %d, want +100", back)
	}
}

func TestToAmericanInvalid(t *testing.T) {
	if _, err := ToAmerican(decimal.NewFromInt(1)); err == nil {
		t.Error("expected error for decimal odds of 1")
	}
	if _, err := ToAmerican(decimal.NewFromFloat(0.5)); err == nil {
		t.Error("expected error for decimal odds below 1")
	}
}

func TestPayout(t *testing.T) {
	tests := []struct {
		name     string
		stake    string
		american int
		expected string
	}{
		{name: "favorite-minus-150", stake: "10", american: -150, expected: "16.67"},
		{name: "underdog-plus-130", stake: "10", american: 130, expected: "23"},
		{name: "standard-minus-110", stake: "10", american: -110, expected: "19.09"},
		{name: "even-money", stake: "25", american: 100, expected: "50"},
		{name: "large-stake", stake: "10000", american: -110, expected: "19090.91"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stake, _ := decimal.NewFromString(tt.stake)
			p, err := Payout(stake, tt.american)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want, _ := decimal.NewFromString(tt.expected)
			if !p.Equal(want) {
				t.Errorf("Payout(%s, %d) = %s, want %s", tt.stake, tt.american, p, want)
			}
		})
	}
}

func TestPayoutMatchesDecimalOdds(t *testing.T) {
	// payout(s,o) == s * toDecimalOdds(o) within cent rounding.
	stakes := []string{"0.01", "1", "10", "123.45", "10000"}
	oddsList := []int{-400, -150, -110, 100, 130, 250, 900}

	for _, s := range stakes {
		stake, _ := decimal.NewFromString(s)
		for _, o := range oddsList {
			d, err := ToDecimal(o)
			if err != nil {
				t.Fatal(err)
			}
			p, err := Payout(stake, o)
			if err != nil {
				t.Fatal(err)
			}
			diff := p.Sub(stake.Mul(d)).Abs()
			if diff.GreaterThan(decimal.NewFromFloat(0.005)) {
				t.Errorf("Payout(%s, %d) = %s deviates from %s by %s", s, o, p, stake.Mul(d), diff)
			}
		}
	}
}

func TestCombineDecimal(t *testing.T) {
	a, _ := ToDecimal(-110)
	b, _ := ToDecimal(-110)
	combined := CombineDecimal([]decimal.Decimal{a, b})

	// Two -110 legs parlay to roughly +264.
	american, err := ToAmerican(combined)
	if err != nil {
		t.Fatal(err)
	}
	if american != 264 {
		t.Errorf("two-leg -110 parlay = %+d, want +264", american)
	}
}

func TestCombineAmerican(t *testing.T) {
	got, err := CombineAmerican([]int{-110, -110, -110})
	if err != nil {
		t.Fatal(err)
	}
	// Three -110 legs pay just under +600.
	if got < 590 || got > 600 {
		t.Errorf("three-leg -110 parlay = %+d, want ~+596", got)
	}

	if _, err := CombineAmerican([]int{-110, 0}); err == nil {
		t.Error("expected error for zero odds leg")
	}
}

func TestProfit(t *testing.T) {
	stake := decimal.NewFromInt(100)
	p, err := Profit(stake, 130)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Equal(decimal.NewFromInt(130)) {
		t.Errorf("Profit(100, +130) = %s, want 130", p)
	}
}

func TestChainStake(t *testing.T) {
	// If-bet progression: $100 at +130 rolls $230 into the next leg.
	next, err := ChainStake(decimal.NewFromInt(100), 130)
	if err != nil {
		t.Fatal(err)
	}
	if !next.Equal(decimal.NewFromInt(230)) {
		t.Errorf("ChainStake(100, +130) = %s, want 230", next)
	}
}
