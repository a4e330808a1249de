// Package settings owns the admin-editable rate settings singleton.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Simplici0/cabinetquote/internal/pricing"
)

// Record keys understood by FromRecord.
const (
	KeyPanelRatePerSqm  = "panel_rate_per_sqm"
	KeyHardwareBaseCost = "hardware_base_cost"
	KeyWastageFactor    = "wastage_factor"
	KeyTaxRate          = "tax_rate"
)

// ErrNotFound is returned when the singleton row is missing.
var ErrNotFound = errors.New("rate settings not found")

// ValidationError reports a field that could not be accepted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Settings is one immutable snapshot of the rate configuration.
type Settings struct {
	Rates     pricing.RateSettings
	Currency  string
	UpdatedAt string
}

// FromRecord parses a flat key-value record into rate settings.
// Absent or blank keys default to 0.
func FromRecord(record map[string]string) (pricing.RateSettings, error) {
	var rates pricing.RateSettings

	fields := []struct {
		key string
		dst *float64
	}{
		{KeyPanelRatePerSqm, &rates.PanelRatePerSqm},
		{KeyHardwareBaseCost, &rates.HardwareBaseCost},
		{KeyWastageFactor, &rates.WastageFactor},
		{KeyTaxRate, &rates.TaxRate},
	}
	for _, f := range fields {
		value, err := parseNonNegative(record[f.key], f.key)
		if err != nil {
			return rates, err
		}
		*f.dst = value
	}

	return rates, nil
}

// Warnings lists plausibility problems that are accepted but worth showing to an admin.
func Warnings(rates pricing.RateSettings) []string {
	var out []string
	if rates.WastageFactor > 1 {
		out = append(out, fmt.Sprintf("%s above 1 means more than 100%% wastage", KeyWastageFactor))
	}
	if rates.TaxRate > 1 {
		out = append(out, fmt.Sprintf("%s above 1 means more than 100%% tax", KeyTaxRate))
	}
	return out
}

func parseNonNegative(raw, field string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: "must be numeric"}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &ValidationError{Field: field, Reason: "must be a finite number"}
	}
	if value < 0 {
		return 0, &ValidationError{Field: field, Reason: "must be greater than or equal to 0"}
	}
	return value, nil
}

// Store reads and writes the rate_settings row.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ensure creates the singleton row when it does not exist yet.
func (s *Store) Ensure(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_settings (id, panel_rate_per_sqm, hardware_base_cost, wastage_factor, tax_rate)
		VALUES (1, 0, 0, 0, 0)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("insert default rate_settings: %w", err)
	}
	return nil
}

// Get reads a fresh snapshot. Nothing is cached between calls.
func (s *Store) Get(ctx context.Context) (Settings, error) {
	var out Settings
	err := s.db.QueryRowContext(ctx, `
		SELECT panel_rate_per_sqm, hardware_base_cost, wastage_factor, tax_rate, currency, updated_at
		FROM rate_settings
		WHERE id = 1
	`).Scan(
		&out.Rates.PanelRatePerSqm,
		&out.Rates.HardwareBaseCost,
		&out.Rates.WastageFactor,
		&out.Rates.TaxRate,
		&out.Currency,
		&out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Settings{}, ErrNotFound
		}
		return Settings{}, fmt.Errorf("query rate_settings: %w", err)
	}
	return out, nil
}

// Update persists new rates and currency on the singleton row.
func (s *Store) Update(ctx context.Context, rates pricing.RateSettings, currency string) error {
	if _, err := FromRecord(Record(rates)); err != nil {
		return err
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return &ValidationError{Field: "currency", Reason: "is required"}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE rate_settings
		SET
			panel_rate_per_sqm = ?,
			hardware_base_cost = ?,
			wastage_factor = ?,
			tax_rate = ?,
			currency = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`,
		rates.PanelRatePerSqm,
		rates.HardwareBaseCost,
		rates.WastageFactor,
		rates.TaxRate,
		currency,
	)
	if err != nil {
		return fmt.Errorf("update rate_settings: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rate_settings: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Record flattens rates into the key-value shape accepted by FromRecord.
func Record(rates pricing.RateSettings) map[string]string {
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return map[string]string{
		KeyPanelRatePerSqm:  format(rates.PanelRatePerSqm),
		KeyHardwareBaseCost: format(rates.HardwareBaseCost),
		KeyWastageFactor:    format(rates.WastageFactor),
		KeyTaxRate:          format(rates.TaxRate),
	}
}
