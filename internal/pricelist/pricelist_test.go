package pricelist

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/cabinetquote/internal/pricing"
)

func TestParsePolicy(t *testing.T) {
	for raw, want := range map[string]Policy{"min": PolicyMin, " MAX ": PolicyMax, "Midpoint": PolicyMidpoint} {
		got, err := ParsePolicy(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParsePolicy("")
	require.ErrorIs(t, err, ErrInvalidPolicy)
	_, err = ParsePolicy("average")
	require.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestBrackets(t *testing.T) {
	got, err := Brackets(750, 899, 50)
	require.NoError(t, err)
	assert.Equal(t, []Bracket{{750, 799}, {800, 849}, {850, 899}}, got)
	assert.Equal(t, "750-799mm", got[0].Label())

	partial, err := Brackets(300, 420, 50)
	require.NoError(t, err)
	assert.Equal(t, Bracket{400, 420}, partial[len(partial)-1])

	_, err = Brackets(800, 700, 50)
	require.ErrorIs(t, err, ErrInvalidBrackets)
	_, err = Brackets(700, 800, 0)
	require.ErrorIs(t, err, ErrInvalidBrackets)
}

func TestBrackets_RejectsTooManyBrackets(t *testing.T) {
	got, err := Brackets(0, MaxBrackets-1, 1)
	require.NoError(t, err)
	assert.Len(t, got, MaxBrackets)

	_, err = Brackets(0, MaxBrackets, 1)
	require.ErrorIs(t, err, ErrInvalidBrackets)
	_, err = Brackets(0, 2000000000, 1)
	require.ErrorIs(t, err, ErrInvalidBrackets)
}

func TestBrackets_NoOverflowNearMaxInt(t *testing.T) {
	got, err := Brackets(0, math.MaxInt, math.MaxInt/2)
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i, b := range got {
		assert.LessOrEqual(t, b.MinWidthMm, b.MaxWidthMm, "bracket %d", i)
		if i > 0 {
			assert.Equal(t, got[i-1].MaxWidthMm+1, b.MinWidthMm, "bracket %d", i)
		}
	}
	assert.Equal(t, 0, got[0].MinWidthMm)
	assert.Equal(t, math.MaxInt, got[len(got)-1].MaxWidthMm)
}

func TestBracketWidth(t *testing.T) {
	b := Bracket{MinWidthMm: 750, MaxWidthMm: 799}

	for policy, want := range map[Policy]int{PolicyMin: 750, PolicyMax: 799, PolicyMidpoint: 774} {
		got, err := b.Width(policy)
		require.NoError(t, err)
		assert.Equal(t, want, got, string(policy))
	}

	_, err := b.Width("")
	require.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestGenerate_PricesEachBracketAtPolicyWidth(t *testing.T) {
	spec := pricing.CabinetSpec{WidthMm: 600, HeightMm: 720, DepthMm: 560, BackPanelQty: 1, BottomPanelQty: 1, SidePanelQty: 2, DoorQty: 1}
	rates := pricing.RateSettings{PanelRatePerSqm: 1000, HardwareBaseCost: 45, WastageFactor: 0.05, TaxRate: 0.10}
	brackets := []Bracket{{750, 799}, {800, 849}}

	minRows, err := Generate(spec, rates, pricing.DoorRateComponents{}, brackets, PolicyMin)
	require.NoError(t, err)
	maxRows, err := Generate(spec, rates, pricing.DoorRateComponents{}, brackets, PolicyMax)
	require.NoError(t, err)

	require.Len(t, minRows, 2)
	assert.Equal(t, 750, minRows[0].WidthMm)
	assert.InDelta(t, 2092.167, minRows[0].Breakdown.Total, 1e-9)
	assert.True(t, decimal.RequireFromString("2092.17").Equal(minRows[0].Price))

	assert.Equal(t, 799, maxRows[0].WidthMm)
	assert.Greater(t, maxRows[0].Breakdown.Total, minRows[0].Breakdown.Total)
	assert.Equal(t, 800, minRows[1].WidthMm)
}

func TestGenerate_RequiresPolicy(t *testing.T) {
	_, err := Generate(pricing.CabinetSpec{}, pricing.RateSettings{}, pricing.DoorRateComponents{}, []Bracket{{1, 2}}, "")
	require.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestGenerate_PropagatesInvalidInput(t *testing.T) {
	_, err := Generate(pricing.CabinetSpec{HeightMm: -1}, pricing.RateSettings{}, pricing.DoorRateComponents{}, []Bracket{{100, 200}}, PolicyMin)
	require.ErrorIs(t, err, pricing.ErrInvalidInput)
}

func TestGenerate_RejectsOverflowingDoorRate(t *testing.T) {
	doors := pricing.DoorRateComponents{DoorStyleRate: math.MaxFloat64, FinishRate: math.MaxFloat64}
	spec := pricing.CabinetSpec{WidthMm: 750, HeightMm: 720, DepthMm: 560, BackPanelQty: 1, SidePanelQty: 2}

	assert.NotPanics(t, func() {
		_, err := Generate(spec, pricing.RateSettings{PanelRatePerSqm: 1000}, doors, []Bracket{{750, 799}}, PolicyMin)
		require.ErrorIs(t, err, pricing.ErrInvalidInput)
	})
}

func TestRound(t *testing.T) {
	assert.Equal(t, "2092.17", Round(2092.167).StringFixed(2))
	assert.Equal(t, "0.13", Round(0.125).StringFixed(2))
	assert.Equal(t, "1811.40", Round(1811.4).StringFixed(2))
}

func TestFormatter(t *testing.T) {
	f, err := NewFormatter("aud", "en-AU")
	require.NoError(t, err)

	assert.Equal(t, "AUD", f.Currency())
	assert.Equal(t, "$1,234.56", f.Format(1234.555))
	assert.Equal(t, "$0.00", f.Format(0))
	assert.Equal(t, "-$12.50", f.Format(-12.5))

	jpy, err := NewFormatter("JPY", "en")
	require.NoError(t, err)
	assert.Equal(t, "JPY 1,000.00", jpy.Format(1000))

	_, err = NewFormatter("AUD", "not a locale!")
	require.Error(t, err)
}
