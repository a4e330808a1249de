// Package pricelist publishes one price per width bracket of a cabinet type.
//
// Which width inside a bracket gets priced is a caller decision. The package
// has no default Policy; callers must pick one explicitly.
package pricelist

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/cabinetquote/internal/pricing"
)

var (
	ErrInvalidPolicy   = errors.New("invalid width policy")
	ErrInvalidBrackets = errors.New("invalid brackets")
)

// Policy selects the width used to price a bracket.
type Policy string

const (
	PolicyMin      Policy = "min"
	PolicyMax      Policy = "max"
	PolicyMidpoint Policy = "midpoint"
)

// ParsePolicy accepts min, max or midpoint (case-insensitive).
func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(raw))); p {
	case PolicyMin, PolicyMax, PolicyMidpoint:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q (want min, max or midpoint)", ErrInvalidPolicy, raw)
	}
}

// Bracket is an inclusive range of widths sharing one published price.
type Bracket struct {
	MinWidthMm int
	MaxWidthMm int
}

func (b Bracket) Label() string {
	return fmt.Sprintf("%d-%dmm", b.MinWidthMm, b.MaxWidthMm)
}

// Width returns the width the policy prices the bracket at. The midpoint rounds down.
func (b Bracket) Width(p Policy) (int, error) {
	switch p {
	case PolicyMin:
		return b.MinWidthMm, nil
	case PolicyMax:
		return b.MaxWidthMm, nil
	case PolicyMidpoint:
		return b.MinWidthMm + (b.MaxWidthMm-b.MinWidthMm)/2, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidPolicy, string(p))
	}
}

// MaxBrackets caps the number of brackets one price list may hold.
const MaxBrackets = 1000

// Brackets splits [minMm, maxMm] into contiguous brackets of stepMm width,
// e.g. 750, 899, 50 gives 750-799, 800-849, 850-899.
func Brackets(minMm, maxMm, stepMm int) ([]Bracket, error) {
	if stepMm <= 0 || minMm < 0 || maxMm < minMm {
		return nil, fmt.Errorf("%w: min=%d max=%d step=%d", ErrInvalidBrackets, minMm, maxMm, stepMm)
	}
	count := (maxMm-minMm)/stepMm + 1
	if count > MaxBrackets {
		return nil, fmt.Errorf("%w: %d brackets exceeds the limit of %d", ErrInvalidBrackets, count, MaxBrackets)
	}

	out := make([]Bracket, 0, count)
	for lo := minMm; ; lo += stepMm {
		// Stop before lo+stepMm can pass maxMm, so nothing overflows near math.MaxInt.
		if lo > maxMm-stepMm {
			out = append(out, Bracket{MinWidthMm: lo, MaxWidthMm: maxMm})
			break
		}
		out = append(out, Bracket{MinWidthMm: lo, MaxWidthMm: lo + stepMm - 1})
	}
	return out, nil
}

// Row is one published price.
type Row struct {
	Bracket   Bracket
	WidthMm   int
	Breakdown pricing.PriceBreakdown
	// Price is the total rounded to cents for display.
	Price decimal.Decimal
}

// Generate prices every bracket at the width chosen by policy. The cabinet's own
// width is replaced; height, depth and part counts are kept.
func Generate(spec pricing.CabinetSpec, rates pricing.RateSettings, doors pricing.DoorRateComponents, brackets []Bracket, policy Policy) ([]Row, error) {
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(brackets))
	for _, b := range brackets {
		width, err := b.Width(policy)
		if err != nil {
			return nil, err
		}

		sized := spec
		sized.WidthMm = width
		breakdown, err := pricing.ComputePrice(sized, rates, doors)
		if err != nil {
			return nil, fmt.Errorf("price bracket %s: %w", b.Label(), err)
		}

		rows = append(rows, Row{
			Bracket:   b,
			WidthMm:   width,
			Breakdown: breakdown,
			Price:     Round(breakdown.Total),
		})
	}
	return rows, nil
}
