package pricing

import (
	"errors"
	"fmt"
	"math"
)

const mmPerMeter = 1000.0

// carcassSurchargeRatio is the share of the panel rate charged on door area
// when a cabinet opts into the carcass material surcharge.
const carcassSurchargeRatio = 0.2

// ErrInvalidInput is returned when a dimension, quantity or rate is negative or not finite.
var ErrInvalidInput = errors.New("invalid pricing input")

// InputError names the field that failed validation. It matches ErrInvalidInput with errors.Is.
type InputError struct {
	Field string
	Value float64
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s must be a finite value >= 0, got %v", ErrInvalidInput, e.Field, e.Value)
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// CabinetSpec describes the physical composition of one cabinet type.
type CabinetSpec struct {
	WidthMm        int
	HeightMm       int
	DepthMm        int
	BackPanelQty   int
	BottomPanelQty int
	SidePanelQty   int
	DoorQty        int
}

// RateSettings holds the global pricing parameters. Factors are fractions (0.05 = 5%).
type RateSettings struct {
	PanelRatePerSqm  float64
	HardwareBaseCost float64
	WastageFactor    float64
	TaxRate          float64
}

// DoorRateComponents are the per-square-meter addends of the door rate.
// Absent selections are represented by zero.
type DoorRateComponents struct {
	DoorStyleRate      float64
	FinishRate         float64
	ColorSurchargeRate float64
	// CarcassMaterialRate is only set when the caller opts into the carcass surcharge.
	CarcassMaterialRate float64
}

// Total returns the combined door rate per square meter.
func (d DoorRateComponents) Total() float64 {
	return d.DoorStyleRate + d.FinishRate + d.ColorSurchargeRate + d.CarcassMaterialRate
}

// CarcassSurcharge returns the carcass material rate derived from a panel rate.
func CarcassSurcharge(panelRatePerSqm float64) float64 {
	return panelRatePerSqm * carcassSurchargeRatio
}

// PriceBreakdown contains every cost line and roll-up of one pricing request.
// Values are unrounded.
type PriceBreakdown struct {
	BackCost            float64 `json:"back_cost"`
	BottomCost          float64 `json:"bottom_cost"`
	SideCost            float64 `json:"side_cost"`
	DoorCost            float64 `json:"door_cost"`
	HardwareCost        float64 `json:"hardware_cost"`
	Subtotal            float64 `json:"subtotal"`
	SubtotalWithWastage float64 `json:"subtotal_with_wastage"`
	Total               float64 `json:"total"`
}

// ComputePrice prices one cabinet at the dimensions given in spec.
func ComputePrice(spec CabinetSpec, rates RateSettings, doorRates DoorRateComponents) (PriceBreakdown, error) {
	if err := validate(spec, rates, doorRates); err != nil {
		return PriceBreakdown{}, err
	}

	widthM := float64(spec.WidthMm) / mmPerMeter
	heightM := float64(spec.HeightMm) / mmPerMeter
	depthM := float64(spec.DepthMm) / mmPerMeter

	backCost := (widthM * heightM) * float64(spec.BackPanelQty) * rates.PanelRatePerSqm
	bottomCost := (widthM * depthM) * float64(spec.BottomPanelQty) * rates.PanelRatePerSqm
	sideCost := (depthM * heightM) * float64(spec.SidePanelQty) * rates.PanelRatePerSqm
	doorCost := (widthM * heightM) * float64(spec.DoorQty) * doorRates.Total()
	hardwareCost := rates.HardwareBaseCost

	subtotal := backCost + bottomCost + sideCost + doorCost + hardwareCost
	subtotalWithWastage := subtotal * (1.0 + rates.WastageFactor)
	total := subtotalWithWastage * (1.0 + rates.TaxRate)
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return PriceBreakdown{}, &InputError{Field: "total", Value: total}
	}

	return PriceBreakdown{
		BackCost:            backCost,
		BottomCost:          bottomCost,
		SideCost:            sideCost,
		DoorCost:            doorCost,
		HardwareCost:        hardwareCost,
		Subtotal:            subtotal,
		SubtotalWithWastage: subtotalWithWastage,
		Total:               total,
	}, nil
}

func validate(spec CabinetSpec, rates RateSettings, doorRates DoorRateComponents) error {
	ints := []struct {
		field string
		value int
	}{
		{"width_mm", spec.WidthMm},
		{"height_mm", spec.HeightMm},
		{"depth_mm", spec.DepthMm},
		{"back_panel_qty", spec.BackPanelQty},
		{"bottom_panel_qty", spec.BottomPanelQty},
		{"side_panel_qty", spec.SidePanelQty},
		{"door_qty", spec.DoorQty},
	}
	for _, v := range ints {
		if v.value < 0 {
			return &InputError{Field: v.field, Value: float64(v.value)}
		}
	}

	floats := []struct {
		field string
		value float64
	}{
		{"panel_rate_per_sqm", rates.PanelRatePerSqm},
		{"hardware_base_cost", rates.HardwareBaseCost},
		{"wastage_factor", rates.WastageFactor},
		{"tax_rate", rates.TaxRate},
		{"door_style_rate", doorRates.DoorStyleRate},
		{"finish_rate", doorRates.FinishRate},
		{"color_surcharge_rate", doorRates.ColorSurchargeRate},
		{"carcass_material_rate", doorRates.CarcassMaterialRate},
	}
	for _, v := range floats {
		if v.value < 0 || math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return &InputError{Field: v.field, Value: v.value}
		}
	}

	// Finite addends can still sum to +Inf, and 0*Inf would turn the door line into NaN.
	if total := doorRates.Total(); math.IsInf(total, 0) {
		return &InputError{Field: "door_rate_total", Value: total}
	}

	return nil
}
