package pricing

import "math"

// Money represents a monetary value stored in minor units.
type Money = int64

// Service is the read-only catalog entry a bundle is priced from. Price is
// the human-entered decimal in major units; conversion to minor units happens
// here and nowhere else.
type Service struct {
	ID       string
	Name     string
	Price    float64
	Currency string
	Duration int
}

// MaterialDeltaThreshold is the largest absolute delta, in minor units, still
// treated as "no difference". It absorbs half-up rounding noise so callers
// never display a ±0.01 artifact.
const MaterialDeltaThreshold Money = 1

// ToMinorUnits converts a decimal major-unit amount to integer minor units
// using half-up rounding at the currency's exponent.
func ToMinorUnits(major float64, currency string) Money {
	scale := math.Pow10(Exponent(currency))
	return Money(math.Floor(major*scale + 0.5))
}

// FromMinorUnits converts minor units back to a decimal major-unit amount.
func FromMinorUnits(minor Money, currency string) float64 {
	return float64(minor) / math.Pow10(Exponent(currency))
}

// SumMinor converts each service price to minor units and sums them.
// An empty selection yields 0.
func SumMinor(services []Service) Money {
	var total Money
	for _, svc := range services {
		total += ToMinorUnits(svc.Price, svc.Currency)
	}
	return total
}

// FinalPriceMinor derives the bundle sale price from the service sum and the
// chosen strategy. For in-range inputs the result is never negative and a
// discount never exceeds the sum.
func FinalPriceMinor(sumMinor Money, s Strategy) Money {
	switch s.Kind {
	case KindFixed:
		if s.FixedPriceMinor == nil || *s.FixedPriceMinor < 0 {
			return sumMinor
		}
		return *s.FixedPriceMinor
	case KindDiscount:
		if s.DiscountPercent == nil {
			return sumMinor
		}
		pct := *s.DiscountPercent
		final := Money(math.Floor(float64(sumMinor)*(100-pct)/100 + 0.5))
		if final < 0 {
			return 0
		}
		if final > sumMinor {
			return sumMinor
		}
		return final
	default:
		return sumMinor
	}
}

// Delta is the signed difference between the final price and the naive sum.
// Negative means savings, positive a price increase.
func Delta(finalMinor, sumMinor Money) Money {
	return finalMinor - sumMinor
}

// MaterialDelta reports whether the delta is large enough to display.
func MaterialDelta(delta Money) bool {
	if delta < 0 {
		delta = -delta
	}
	return delta > MaterialDeltaThreshold
}

// PreviewAvailable reports whether strategy price preview panels should
// render. They require at least two selected services regardless of whether
// the selection error is surfaced yet.
func PreviewAvailable(selected int) bool {
	return selected >= 2
}
