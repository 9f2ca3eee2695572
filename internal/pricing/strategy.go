package pricing

// Kind discriminates the pricing strategy variants.
type Kind string

const (
	// KindSum prices the bundle at the sum of its services.
	KindSum Kind = "sum"
	// KindFixed overrides the price with a fixed minor-unit amount.
	KindFixed Kind = "fixed"
	// KindDiscount applies a percentage discount to the service sum.
	KindDiscount Kind = "discount"
)

// ValidKind reports whether the tag names a known strategy variant.
func ValidKind(k Kind) bool {
	switch k {
	case KindSum, KindFixed, KindDiscount:
		return true
	}
	return false
}

// Strategy is the pricing rule attached to a bundle. Exactly one payload
// field is populated for its kind; the Sum variant carries none. Use the
// constructors so switching variants clears the other payloads.
type Strategy struct {
	Kind            Kind
	FixedPriceMinor *Money
	DiscountPercent *float64
}

// Sum returns the sum-of-services strategy.
func Sum() Strategy {
	return Strategy{Kind: KindSum}
}

// Fixed returns a fixed-override strategy carrying the minor-unit amount.
func Fixed(minor Money) Strategy {
	return Strategy{Kind: KindFixed, FixedPriceMinor: &minor}
}

// Discount returns a percentage-discount strategy.
func Discount(percent float64) Strategy {
	return Strategy{Kind: KindDiscount, DiscountPercent: &percent}
}

// FieldError codes surfaced by strategy and selection validation. All are
// recoverable form-level conditions, never process failures.
const (
	CodeRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	CodeOutOfRange           = "OUT_OF_RANGE"
	CodeBelowMinimum         = "BELOW_MINIMUM"
)

// FieldError is a structured per-field validation message.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidateStrategy checks the active variant's payload bounds. It is cheap
// enough to re-run on every form change.
func ValidateStrategy(s Strategy) []FieldError {
	switch s.Kind {
	case KindFixed:
		if s.FixedPriceMinor == nil {
			return []FieldError{{Field: "fixedPriceMinor", Code: CodeRequiredFieldMissing, Message: "fixed price is required"}}
		}
		if *s.FixedPriceMinor < 0 {
			return []FieldError{{Field: "fixedPriceMinor", Code: CodeOutOfRange, Message: "fixed price must not be negative"}}
		}
	case KindDiscount:
		if s.DiscountPercent == nil {
			return []FieldError{{Field: "discountPercentage", Code: CodeRequiredFieldMissing, Message: "discount percentage is required"}}
		}
		if *s.DiscountPercent < 0 || *s.DiscountPercent > 100 {
			return []FieldError{{Field: "discountPercentage", Code: CodeOutOfRange, Message: "discount percentage must be between 0 and 100"}}
		}
	}
	return nil
}

// ValidateServiceSelection enforces the minimum of two distinct services.
// The error stays suppressed until the user has touched the selection control
// so an empty form does not open with a validation message.
func ValidateServiceSelection(ids []string, touched bool) []FieldError {
	if !touched {
		return nil
	}
	distinct := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		distinct[id] = struct{}{}
	}
	if len(distinct) < 2 {
		return []FieldError{{Field: "serviceIds", Code: CodeBelowMinimum, Message: "select at least two services"}}
	}
	return nil
}
