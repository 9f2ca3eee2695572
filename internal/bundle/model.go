package bundle

import (
	"time"

	"github.com/arvello/backend-console/internal/pricing"
)

// Bundle is a sellable grouping of catalog services with a pricing strategy.
// CalculatedPriceMinor is derived by the price engine at create/update time
// and treated as stored fact afterwards; the minimum-two-services rule is a
// write precondition, never re-enforced on persisted records.
type Bundle struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	Description          string           `json:"description,omitempty"`
	Strategy             StrategyPayload  `json:"strategy"`
	CalculatedPriceMinor pricing.Money    `json:"calculatedPriceMinor"`
	Currency             string           `json:"currency"`
	ServiceIDs           []string         `json:"serviceIds"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

// StrategyPayload is the wire shape of a pricing strategy: the tag plus the
// single payload field belonging to it.
type StrategyPayload struct {
	Kind            pricing.Kind   `json:"kind"`
	FixedPriceMinor *pricing.Money `json:"fixedPriceMinor,omitempty"`
	DiscountPercent *float64       `json:"discountPercentage,omitempty"`
}

// Strategy converts the payload into the engine's strategy value, dropping
// payload fields that do not belong to the tag so a stale field from a
// previous variant can never leak through.
func (p StrategyPayload) Strategy() pricing.Strategy {
	switch p.Kind {
	case pricing.KindFixed:
		if p.FixedPriceMinor != nil {
			return pricing.Fixed(*p.FixedPriceMinor)
		}
		return pricing.Strategy{Kind: pricing.KindFixed}
	case pricing.KindDiscount:
		if p.DiscountPercent != nil {
			return pricing.Discount(*p.DiscountPercent)
		}
		return pricing.Strategy{Kind: pricing.KindDiscount}
	default:
		return pricing.Sum()
	}
}

// PayloadFromStrategy builds the wire shape from an engine strategy.
func PayloadFromStrategy(s pricing.Strategy) StrategyPayload {
	payload := StrategyPayload{Kind: s.Kind}
	switch s.Kind {
	case pricing.KindFixed:
		payload.FixedPriceMinor = s.FixedPriceMinor
	case pricing.KindDiscount:
		payload.DiscountPercent = s.DiscountPercent
	}
	return payload
}
