package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

func baseCabinet() CabinetSpec {
	return CabinetSpec{
		WidthMm:        750,
		HeightMm:       720,
		DepthMm:        560,
		BackPanelQty:   1,
		BottomPanelQty: 1,
		SidePanelQty:   2,
		DoorQty:        1,
	}
}

func baseRates() RateSettings {
	return RateSettings{
		PanelRatePerSqm:  1000,
		HardwareBaseCost: 45,
		WastageFactor:    0.05,
		TaxRate:          0.10,
	}
}

func TestComputePrice_BaseCabinetWithoutDoorRates(t *testing.T) {
	got, err := ComputePrice(baseCabinet(), baseRates(), DoorRateComponents{})
	require.NoError(t, err)

	assert.InDelta(t, 540, got.BackCost, tolerance)
	assert.InDelta(t, 420, got.BottomCost, tolerance)
	assert.InDelta(t, 806.4, got.SideCost, tolerance)
	assert.InDelta(t, 0, got.DoorCost, tolerance)
	assert.InDelta(t, 45, got.HardwareCost, tolerance)
	assert.InDelta(t, 1811.4, got.Subtotal, tolerance)
	assert.InDelta(t, 1901.97, got.SubtotalWithWastage, tolerance)
	assert.InDelta(t, 2092.167, got.Total, tolerance)
}

func TestComputePrice_ColorSurchargeAddsDoorCost(t *testing.T) {
	got, err := ComputePrice(baseCabinet(), baseRates(), DoorRateComponents{ColorSurchargeRate: 1000})
	require.NoError(t, err)

	assert.InDelta(t, 540, got.DoorCost, tolerance)
	assert.InDelta(t, 2351.4, got.Subtotal, tolerance)
}

func TestComputePrice_DoorRateAddendsComposeLinearly(t *testing.T) {
	doors := DoorRateComponents{DoorStyleRate: 300, FinishRate: 200, ColorSurchargeRate: 500}
	combined, err := ComputePrice(baseCabinet(), baseRates(), doors)
	require.NoError(t, err)

	single, err := ComputePrice(baseCabinet(), baseRates(), DoorRateComponents{DoorStyleRate: 1000})
	require.NoError(t, err)

	assert.InDelta(t, single.DoorCost, combined.DoorCost, tolerance)
	assert.InDelta(t, 540, combined.DoorCost, tolerance)
}

func TestComputePrice_CarcassSurchargeIsOptIn(t *testing.T) {
	rates := baseRates()

	without, err := ComputePrice(baseCabinet(), rates, DoorRateComponents{})
	require.NoError(t, err)

	with, err := ComputePrice(baseCabinet(), rates, DoorRateComponents{CarcassMaterialRate: CarcassSurcharge(rates.PanelRatePerSqm)})
	require.NoError(t, err)

	assert.InDelta(t, 0, without.DoorCost, tolerance)
	assert.InDelta(t, 0.75*0.72*200, with.DoorCost, tolerance)
}

func TestComputePrice_ZeroWidthCollapsesWidthDependentLines(t *testing.T) {
	spec := baseCabinet()
	spec.WidthMm = 0

	got, err := ComputePrice(spec, baseRates(), DoorRateComponents{DoorStyleRate: 500})
	require.NoError(t, err)

	assert.Zero(t, got.BackCost)
	assert.Zero(t, got.BottomCost)
	assert.Zero(t, got.DoorCost)
	assert.InDelta(t, 806.4, got.SideCost, tolerance)
}

func TestComputePrice_NegativeWidthIsRejected(t *testing.T) {
	spec := baseCabinet()
	spec.WidthMm = -100

	got, err := ComputePrice(spec, baseRates(), DoorRateComponents{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, PriceBreakdown{}, got)

	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "width_mm", inputErr.Field)
}

func TestComputePrice_RejectsEveryNegativeField(t *testing.T) {
	cases := map[string]func(*CabinetSpec, *RateSettings, *DoorRateComponents){
		"width_mm":              func(s *CabinetSpec, _ *RateSettings, _ *DoorRateComponents) { s.WidthMm = -1 },
		"height_mm":             func(s *CabinetSpec, _ *RateSettings, _ *DoorRateComponents) { s.HeightMm = -1 },
		"depth_mm":              func(s *CabinetSpec, _ *RateSettings, _ *DoorRateComponents) { s.DepthMm = -1 },
		"back_panel_qty":        func(s *CabinetSpec, _ *RateSettings, _ *DoorRateComponents) { s.BackPanelQty = -1 },
		"bottom_panel_qty":      func(s *CabinetSpec, _ *RateSettings, _ *DoorRateComponents) { s.BottomPanelQty = -1 },
		"side_panel_qty":        func(s *CabinetSpec, _ *RateSettings, _ *DoorRateComponents) { s.SidePanelQty = -1 },
		"door_qty":              func(s *CabinetSpec, _ *RateSettings, _ *DoorRateComponents) { s.DoorQty = -1 },
		"panel_rate_per_sqm":    func(_ *CabinetSpec, r *RateSettings, _ *DoorRateComponents) { r.PanelRatePerSqm = -0.01 },
		"hardware_base_cost":    func(_ *CabinetSpec, r *RateSettings, _ *DoorRateComponents) { r.HardwareBaseCost = -5 },
		"wastage_factor":        func(_ *CabinetSpec, r *RateSettings, _ *DoorRateComponents) { r.WastageFactor = -0.05 },
		"tax_rate":              func(_ *CabinetSpec, r *RateSettings, _ *DoorRateComponents) { r.TaxRate = -0.1 },
		"door_style_rate":       func(_ *CabinetSpec, _ *RateSettings, d *DoorRateComponents) { d.DoorStyleRate = -1 },
		"finish_rate":           func(_ *CabinetSpec, _ *RateSettings, d *DoorRateComponents) { d.FinishRate = -1 },
		"color_surcharge_rate":  func(_ *CabinetSpec, _ *RateSettings, d *DoorRateComponents) { d.ColorSurchargeRate = -1 },
		"carcass_material_rate": func(_ *CabinetSpec, _ *RateSettings, d *DoorRateComponents) { d.CarcassMaterialRate = -1 },
	}

	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			spec, rates, doors := baseCabinet(), baseRates(), DoorRateComponents{}
			mutate(&spec, &rates, &doors)

			_, err := ComputePrice(spec, rates, doors)
			require.ErrorIs(t, err, ErrInvalidInput)

			var inputErr *InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, field, inputErr.Field)
		})
	}
}

func TestComputePrice_RejectsNonFiniteRates(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1)} {
		rates := baseRates()
		rates.PanelRatePerSqm = v

		_, err := ComputePrice(baseCabinet(), rates, DoorRateComponents{})
		require.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestComputePrice_RejectsOverflowingTotal(t *testing.T) {
	rates := baseRates()
	rates.HardwareBaseCost = math.MaxFloat64
	rates.TaxRate = 1

	_, err := ComputePrice(baseCabinet(), rates, DoorRateComponents{})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestComputePrice_RejectsOverflowingDoorRateTotal(t *testing.T) {
	doors := DoorRateComponents{DoorStyleRate: math.MaxFloat64, FinishRate: math.MaxFloat64}

	for name, mutate := range map[string]func(*CabinetSpec){
		"no doors":   func(s *CabinetSpec) { s.DoorQty = 0 },
		"zero width": func(s *CabinetSpec) { s.WidthMm = 0 },
		"with doors": func(*CabinetSpec) {},
	} {
		t.Run(name, func(t *testing.T) {
			spec := baseCabinet()
			mutate(&spec)

			got, err := ComputePrice(spec, baseRates(), doors)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, PriceBreakdown{}, got)

			var inputErr *InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, "door_rate_total", inputErr.Field)
		})
	}
}

func TestComputePrice_NeverReturnsNonFiniteBreakdown(t *testing.T) {
	big := DoorRateComponents{DoorStyleRate: math.MaxFloat64 / 4, FinishRate: math.MaxFloat64 / 4}
	rates := baseRates()
	rates.PanelRatePerSqm = math.MaxFloat64 / 2

	got, err := ComputePrice(baseCabinet(), rates, big)
	if err != nil {
		require.ErrorIs(t, err, ErrInvalidInput)
		return
	}
	for _, v := range []float64{got.BackCost, got.BottomCost, got.SideCost, got.DoorCost, got.Subtotal, got.SubtotalWithWastage, got.Total} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestComputePrice_ZeroInputsAreValid(t *testing.T) {
	got, err := ComputePrice(CabinetSpec{}, RateSettings{}, DoorRateComponents{})
	require.NoError(t, err)
	assert.Equal(t, PriceBreakdown{}, got)
}

func TestComputePrice_AreaLinesNeverDecreaseWithDimension(t *testing.T) {
	doors := DoorRateComponents{DoorStyleRate: 250, FinishRate: 80}
	grow := []func(*CabinetSpec){
		func(s *CabinetSpec) { s.WidthMm += 50 },
		func(s *CabinetSpec) { s.HeightMm += 50 },
		func(s *CabinetSpec) { s.DepthMm += 50 },
	}

	for i, g := range grow {
		spec := baseCabinet()
		before, err := ComputePrice(spec, baseRates(), doors)
		require.NoError(t, err)

		g(&spec)
		after, err := ComputePrice(spec, baseRates(), doors)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, after.BackCost, before.BackCost, "case %d back", i)
		assert.GreaterOrEqual(t, after.BottomCost, before.BottomCost, "case %d bottom", i)
		assert.GreaterOrEqual(t, after.SideCost, before.SideCost, "case %d side", i)
		assert.GreaterOrEqual(t, after.DoorCost, before.DoorCost, "case %d door", i)
	}
}

func TestComputePrice_NoDoorsMeansNoDoorCost(t *testing.T) {
	spec := baseCabinet()
	spec.DoorQty = 0

	got, err := ComputePrice(spec, baseRates(), DoorRateComponents{DoorStyleRate: 900, FinishRate: 120, ColorSurchargeRate: 75})
	require.NoError(t, err)
	assert.Zero(t, got.DoorCost)
}

func TestComputePrice_TaxAppliesToWastageInflatedSubtotal(t *testing.T) {
	got, err := ComputePrice(baseCabinet(), baseRates(), DoorRateComponents{})
	require.NoError(t, err)

	assert.InDelta(t, got.Subtotal*1.05*1.10, got.Total, tolerance)
	assert.NotEqual(t, got.Subtotal*(1+0.05+0.10), got.Total)
	assert.GreaterOrEqual(t, got.Total, got.Subtotal)
}

func TestComputePrice_IsDeterministic(t *testing.T) {
	doors := DoorRateComponents{DoorStyleRate: 123.45, FinishRate: 67.8, ColorSurchargeRate: 9.1}

	first, err := ComputePrice(baseCabinet(), baseRates(), doors)
	require.NoError(t, err)
	second, err := ComputePrice(baseCabinet(), baseRates(), doors)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
