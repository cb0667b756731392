// Package odds implements American/decimal odds conversion and payout math.
// All functions are pure and rounding-stable: money values are rounded to
// cents, half away from zero, because they feed financial totals.
package odds

import (
	"fmt"

	"github.com/nssports/sportsbook-engine/pkg/types"
	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// ToDecimal converts American odds to decimal odds.
// odds > 0 => 1 + odds/100; odds < 0 => 1 + 100/|odds|.
// American odds with |odds| < 100 are never quoted; treat them as a fatal
// configuration problem so the bet is rejected.
func ToDecimal(american int) (decimal.Decimal, error) {
	if american == 0 {
		return decimal.Zero, &types.ConfigurationError{Field: "odds", Message: "odds must not be zero"}
	}
	if american > -100 && american < 100 {
		return decimal.Zero, &types.ConfigurationError{
			Field:   "odds",
			Message: fmt.Sprintf("invalid american odds %d", american),
		}
	}

	a := decimal.NewFromInt(int64(american))
	if american > 0 {
		return one.Add(a.Div(hundred)), nil
	}
	return one.Add(hundred.Div(a.Abs())), nil
}

// CombineDecimal composes parlay odds as the product of the leg odds.
func CombineDecimal(legs []decimal.Decimal) decimal.Decimal {
	combined := one
	for _, d := range legs {
		combined = combined.Mul(d)
	}
	return combined
}

// ToAmerican converts decimal odds back to American odds.
// decimal >= 2 => round((decimal-1)*100); else => round(-100/(decimal-1)).
func ToAmerican(d decimal.Decimal) (int, error) {
	if d.LessThanOrEqual(one) {
		return 0, &types.ConfigurationError{
			Field:   "odds",
			Message: fmt.Sprintf("decimal odds must exceed 1, got %s", d),
		}
	}

	edge := d.Sub(one)
	if d.GreaterThanOrEqual(decimal.NewFromInt(2)) {
		return int(edge.Mul(hundred).Round(0).IntPart()), nil
	}
	return int(hundred.Neg().Div(edge).Round(0).IntPart()), nil
}

// CombineAmerican composes a set of American leg odds into a single
// American price, going through decimal odds.
func CombineAmerican(legs []int) (int, error) {
	decimals := make([]decimal.Decimal, 0, len(legs))
	for _, a := range legs {
		d, err := ToDecimal(a)
		if err != nil {
			return 0, err
		}
		decimals = append(decimals, d)
	}
	return ToAmerican(CombineDecimal(decimals))
}

// Payout returns the total return (stake included) for a winning bet,
// rounded to cents.
func Payout(stake decimal.Decimal, american int) (decimal.Decimal, error) {
	d, err := ToDecimal(american)
	if err != nil {
		return decimal.Zero, err
	}
	return stake.Mul(d).Round(2), nil
}

// Profit returns the win amount excluding the returned stake.
func Profit(stake decimal.Decimal, american int) (decimal.Decimal, error) {
	p, err := Payout(stake, american)
	if err != nil {
		return decimal.Zero, err
	}
	return p.Sub(stake), nil
}

// ChainStake returns the stake of the next leg in a progressive if-bet
// chain: the full payout of the preceding winning leg.
func ChainStake(previousStake decimal.Decimal, previousOdds int) (decimal.Decimal, error) {
	return Payout(previousStake, previousOdds)
}
