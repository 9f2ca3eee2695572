package bundle

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/arvello/backend-console/internal/pricing"
)

// SortField selects the bundle attribute a listing is ordered by.
type SortField string

const (
	SortByPrice        SortField = "price"
	SortByServiceCount SortField = "serviceCount"
	SortByCreatedAt    SortField = "createdAt"
	SortByUpdatedAt    SortField = "updatedAt"
)

// SortDirection is the listing order direction.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// FilterSpec is the structured filter/sort specification a listing view
// applies to the bundle collection. Bound fields keep their raw string form:
// empty, literal "0" (price only), and unparsable values all mean "no bound"
// rather than an error.
type FilterSpec struct {
	Search          string
	PriceMin        string
	PriceMax        string
	ServiceCountMin string
	ServiceCountMax string
	Kinds           []pricing.Kind
	SortBy          SortField
	SortDir         SortDirection
}

// DefaultFilterSpec matches everything, newest first.
func DefaultFilterSpec() FilterSpec {
	return FilterSpec{SortBy: SortByCreatedAt, SortDir: SortDesc}
}

// ParseFilterSpec builds a FilterSpec from listing query parameters.
// Unknown sort fields and strategy tags are discarded, not rejected.
func ParseFilterSpec(values url.Values) FilterSpec {
	spec := DefaultFilterSpec()
	spec.Search = values.Get("q")
	spec.PriceMin = values.Get("priceMin")
	spec.PriceMax = values.Get("priceMax")
	spec.ServiceCountMin = values.Get("servicesMin")
	spec.ServiceCountMax = values.Get("servicesMax")
	for _, raw := range strings.Split(values.Get("priceTypes"), ",") {
		kind := pricing.Kind(strings.ToLower(strings.TrimSpace(raw)))
		if pricing.ValidKind(kind) {
			spec.Kinds = append(spec.Kinds, kind)
		}
	}
	if field, dir, ok := parseSort(values.Get("sort")); ok {
		spec.SortBy = field
		spec.SortDir = dir
	}
	return spec
}

func parseSort(raw string) (SortField, SortDirection, bool) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	field := SortField(parts[0])
	switch field {
	case SortByPrice, SortByServiceCount, SortByCreatedAt, SortByUpdatedAt:
	default:
		return "", "", false
	}
	dir := SortAsc
	if len(parts) == 2 && strings.EqualFold(parts[1], string(SortDesc)) {
		dir = SortDesc
	}
	return field, dir, true
}

// Apply filters and sorts the collection for display. The five steps run
// unconditionally and in a fixed order: search, price bounds, service-count
// bounds, strategy tags, stable sort. The input slice is never mutated, so
// applying the same spec twice yields identical output.
func Apply(bundles []Bundle, spec FilterSpec) []Bundle {
	result := make([]Bundle, 0, len(bundles))
	search := strings.ToLower(strings.TrimSpace(spec.Search))
	priceMin := parsePriceBound(spec.PriceMin)
	priceMax := parsePriceBound(spec.PriceMax)
	countMin := parseCountBound(spec.ServiceCountMin)
	countMax := parseCountBound(spec.ServiceCountMax)

	for _, b := range bundles {
		if !matchesSearch(b, search) {
			continue
		}
		price := pricing.FromMinorUnits(b.CalculatedPriceMinor, b.Currency)
		if priceMin != nil && price < *priceMin {
			continue
		}
		if priceMax != nil && price > *priceMax {
			continue
		}
		count := len(b.ServiceIDs)
		if countMin != nil && count < *countMin {
			continue
		}
		if countMax != nil && count > *countMax {
			continue
		}
		if !matchesKind(b, spec.Kinds) {
			continue
		}
		result = append(result, b)
	}

	direction := 1
	if spec.SortDir == SortDesc {
		direction = -1
	}
	sort.SliceStable(result, func(i, j int) bool {
		return compare(result[i], result[j], spec.SortBy)*direction < 0
	})
	return result
}

func matchesSearch(b Bundle, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(b.Name), term) ||
		strings.Contains(strings.ToLower(b.Description), term)
}

func matchesKind(b Bundle, kinds []pricing.Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if b.Strategy.Kind == k {
			return true
		}
	}
	return false
}

func compare(a, b Bundle, field SortField) int {
	var left, right int64
	switch field {
	case SortByPrice:
		left, right = a.CalculatedPriceMinor, b.CalculatedPriceMinor
	case SortByServiceCount:
		left, right = int64(len(a.ServiceIDs)), int64(len(b.ServiceIDs))
	case SortByUpdatedAt:
		left, right = a.UpdatedAt.UnixMilli(), b.UpdatedAt.UnixMilli()
	default:
		left, right = a.CreatedAt.UnixMilli(), b.CreatedAt.UnixMilli()
	}
	switch {
	case left < right:
		return -1
	case left > right:
		return 1
	default:
		return 0
	}
}

// parsePriceBound treats empty, zero, and malformed values as "no bound".
// Zero doubles as the UI's cleared state, so it can never act as a filter.
func parsePriceBound(raw string) *float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || parsed == 0 {
		return nil
	}
	return &parsed
}

// parseCountBound ignores unparsable and non-positive values.
func parseCountBound(raw string) *int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed <= 0 {
		return nil
	}
	return &parsed
}
