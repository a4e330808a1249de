package seed

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultDoorStyleName = "Shaker"
	defaultFinishName    = "Satin 2-pac"
	defaultColorName     = "Classic White"
	defaultCabinetCode   = "B750"
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
	Currency      string
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	steps := []func(context.Context, *sql.Tx, Config, *Stats) error{
		seedAdmin,
		ensureRateSettings,
		ensureDoorOptions,
		ensureSampleCabinet,
	}
	for _, step := range steps {
		if err := step(ctx, tx, cfg, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

// HashPassword returns the bcrypt hash stored for user passwords.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func seedAdmin(ctx context.Context, tx *sql.Tx, cfg Config, stats *Stats) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, cfg.AdminEmail).Scan(&exists); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES (?, ?)`, cfg.AdminEmail, hash); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureRateSettings(ctx context.Context, tx *sql.Tx, cfg Config, stats *Stats) error {
	currency := cfg.Currency
	if currency == "" {
		currency = "AUD"
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO rate_settings (id, panel_rate_per_sqm, hardware_base_cost, wastage_factor, tax_rate, currency)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, 1000, 45, 0.05, 0.10, currency)
	if err != nil {
		return fmt.Errorf("insert rate settings singleton: %w", err)
	}
	return countInsert(result, stats)
}

func ensureDoorOptions(ctx context.Context, tx *sql.Tx, _ Config, stats *Stats) error {
	defaults := []struct {
		table string
		name  string
		rate  float64
	}{
		{"door_styles", defaultDoorStyleName, 300},
		{"finishes", defaultFinishName, 120},
		{"colors", defaultColorName, 0},
	}

	for _, d := range defaults {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO `+d.table+` (name, rate_per_sqm, active)
			VALUES (?, ?, TRUE)
			ON CONFLICT(name) DO NOTHING
		`, d.name, d.rate)
		if err != nil {
			return fmt.Errorf("insert default %s: %w", d.table, err)
		}
		if err := countInsert(result, stats); err != nil {
			return err
		}
	}
	return nil
}

func ensureSampleCabinet(ctx context.Context, tx *sql.Tx, _ Config, stats *Stats) error {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO cabinet_types (
			code, name, category,
			width_mm, height_mm, depth_mm,
			back_panel_qty, bottom_panel_qty, side_panel_qty, door_qty,
			door_style_id, finish_id, color_id, active
		)
		VALUES (
			?, 'Base cabinet 750', 'base',
			750, 720, 560,
			1, 1, 2, 1,
			(SELECT id FROM door_styles WHERE name = ?),
			(SELECT id FROM finishes WHERE name = ?),
			(SELECT id FROM colors WHERE name = ?),
			TRUE
		)
		ON CONFLICT(code) DO NOTHING
	`, defaultCabinetCode, defaultDoorStyleName, defaultFinishName, defaultColorName)
	if err != nil {
		return fmt.Errorf("insert sample cabinet: %w", err)
	}
	return countInsert(result, stats)
}

func countInsert(result sql.Result, stats *Stats) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read seed rows affected: %w", err)
	}
	stats.Inserts += int(affected)
	return nil
}
