// Package catalog stores cabinet types and the door style, finish and color
// options that contribute to the door rate.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Simplici0/cabinetquote/internal/pricing"
)

var (
	ErrNotFound    = errors.New("catalog entry not found")
	ErrUnknownKind = errors.New("unknown option kind")
)

// ValidationError reports a field that could not be accepted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Kind selects one of the door rate option tables.
type Kind string

const (
	KindDoorStyle Kind = "door_style"
	KindFinish    Kind = "finish"
	KindColor     Kind = "color"
)

func (k Kind) table() (string, error) {
	switch k {
	case KindDoorStyle:
		return "door_styles", nil
	case KindFinish:
		return "finishes", nil
	case KindColor:
		return "colors", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
	}
}

// Option is a door style, finish or color with its rate per square meter.
type Option struct {
	ID         int64
	Kind       Kind
	Name       string
	RatePerSqm float64
	Active     bool
}

func (o Option) validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if math.IsNaN(o.RatePerSqm) || math.IsInf(o.RatePerSqm, 0) {
		return &ValidationError{Field: "rate_per_sqm", Reason: "must be a finite number"}
	}
	if o.RatePerSqm < 0 {
		return &ValidationError{Field: "rate_per_sqm", Reason: "must be greater than or equal to 0"}
	}
	return nil
}

// Selection holds the optional door option ids chosen for a cabinet.
type Selection struct {
	DoorStyleID *int64
	FinishID    *int64
	ColorID     *int64
}

// CabinetType is a catalog cabinet with its default size and part counts.
type CabinetType struct {
	ID               int64
	Code             string
	Name             string
	Category         string
	WidthMm          int
	HeightMm         int
	DepthMm          int
	BackPanelQty     int
	BottomPanelQty   int
	SidePanelQty     int
	DoorQty          int
	Selection        Selection
	CarcassSurcharge bool
	Active           bool
}

// Spec returns the pricing input for the cabinet's catalog dimensions.
func (c CabinetType) Spec() pricing.CabinetSpec {
	return pricing.CabinetSpec{
		WidthMm:        c.WidthMm,
		HeightMm:       c.HeightMm,
		DepthMm:        c.DepthMm,
		BackPanelQty:   c.BackPanelQty,
		BottomPanelQty: c.BottomPanelQty,
		SidePanelQty:   c.SidePanelQty,
		DoorQty:        c.DoorQty,
	}
}

func (c *CabinetType) normalize() error {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	c.Name = strings.TrimSpace(c.Name)
	c.Category = strings.ToLower(strings.TrimSpace(c.Category))
	if c.Category == "" {
		c.Category = "base"
	}

	if c.Code == "" {
		return &ValidationError{Field: "code", Reason: "is required"}
	}
	if c.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}

	for _, f := range []struct {
		field string
		value int
	}{
		{"width_mm", c.WidthMm},
		{"height_mm", c.HeightMm},
		{"depth_mm", c.DepthMm},
		{"back_panel_qty", c.BackPanelQty},
		{"bottom_panel_qty", c.BottomPanelQty},
		{"side_panel_qty", c.SidePanelQty},
		{"door_qty", c.DoorQty},
	} {
		if f.value < 0 {
			return &ValidationError{Field: f.field, Reason: "must be greater than or equal to 0"}
		}
	}
	return nil
}

// Store is the sqlite-backed catalog.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateOption inserts a door style, finish or color.
func (s *Store) CreateOption(ctx context.Context, opt Option) (int64, error) {
	table, err := opt.Kind.table()
	if err != nil {
		return 0, err
	}
	if err := opt.validate(); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO `+table+` (name, rate_per_sqm, active) VALUES (?, ?, ?)`,
		strings.TrimSpace(opt.Name), opt.RatePerSqm, opt.Active,
	)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", opt.Kind, err)
	}
	return result.LastInsertId()
}

// UpdateOption overwrites an existing option.
func (s *Store) UpdateOption(ctx context.Context, opt Option) error {
	table, err := opt.Kind.table()
	if err != nil {
		return err
	}
	if err := opt.validate(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE `+table+`
		SET name = ?, rate_per_sqm = ?, active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, strings.TrimSpace(opt.Name), opt.RatePerSqm, opt.Active, opt.ID)
	if err != nil {
		return fmt.Errorf("update %s: %w", opt.Kind, err)
	}
	return requireAffected(result, opt.Kind)
}

// ListOptions returns every option of a kind, newest first.
func (s *Store) ListOptions(ctx context.Context, kind Kind) ([]Option, error) {
	table, err := kind.table()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, rate_per_sqm, active FROM `+table+` ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	options := make([]Option, 0)
	for rows.Next() {
		opt := Option{Kind: kind}
		if err := rows.Scan(&opt.ID, &opt.Name, &opt.RatePerSqm, &opt.Active); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return options, nil
}

// GetOption reads one option by id.
func (s *Store) GetOption(ctx context.Context, kind Kind, id int64) (Option, error) {
	table, err := kind.table()
	if err != nil {
		return Option{}, err
	}

	opt := Option{Kind: kind}
	err = s.db.QueryRowContext(ctx, `SELECT id, name, rate_per_sqm, active FROM `+table+` WHERE id = ?`, id).
		Scan(&opt.ID, &opt.Name, &opt.RatePerSqm, &opt.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Option{}, ErrNotFound
		}
		return Option{}, fmt.Errorf("query %s: %w", kind, err)
	}
	return opt, nil
}

// CreateCabinetType inserts a cabinet type and returns its id.
func (s *Store) CreateCabinetType(ctx context.Context, c CabinetType) (int64, error) {
	if err := c.normalize(); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO cabinet_types (
			code, name, category,
			width_mm, height_mm, depth_mm,
			back_panel_qty, bottom_panel_qty, side_panel_qty, door_qty,
			door_style_id, finish_id, color_id,
			carcass_surcharge, active
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.Code, c.Name, c.Category,
		c.WidthMm, c.HeightMm, c.DepthMm,
		c.BackPanelQty, c.BottomPanelQty, c.SidePanelQty, c.DoorQty,
		nullID(c.Selection.DoorStyleID), nullID(c.Selection.FinishID), nullID(c.Selection.ColorID),
		c.CarcassSurcharge, c.Active,
	)
	if err != nil {
		return 0, fmt.Errorf("insert cabinet type: %w", err)
	}
	return result.LastInsertId()
}

// UpdateCabinetType overwrites an existing cabinet type.
func (s *Store) UpdateCabinetType(ctx context.Context, c CabinetType) error {
	if err := c.normalize(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE cabinet_types
		SET
			code = ?,
			name = ?,
			category = ?,
			width_mm = ?,
			height_mm = ?,
			depth_mm = ?,
			back_panel_qty = ?,
			bottom_panel_qty = ?,
			side_panel_qty = ?,
			door_qty = ?,
			door_style_id = ?,
			finish_id = ?,
			color_id = ?,
			carcass_surcharge = ?,
			active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`,
		c.Code, c.Name, c.Category,
		c.WidthMm, c.HeightMm, c.DepthMm,
		c.BackPanelQty, c.BottomPanelQty, c.SidePanelQty, c.DoorQty,
		nullID(c.Selection.DoorStyleID), nullID(c.Selection.FinishID), nullID(c.Selection.ColorID),
		c.CarcassSurcharge, c.Active, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update cabinet type: %w", err)
	}
	return requireAffected(result, "cabinet type")
}

const cabinetColumns = `
	id, code, name, category,
	width_mm, height_mm, depth_mm,
	back_panel_qty, bottom_panel_qty, side_panel_qty, door_qty,
	door_style_id, finish_id, color_id,
	carcass_surcharge, active
`

// GetCabinetType reads one cabinet type by id.
func (s *Store) GetCabinetType(ctx context.Context, id int64) (CabinetType, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cabinetColumns+` FROM cabinet_types WHERE id = ?`, id)
	c, err := scanCabinet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CabinetType{}, ErrNotFound
		}
		return CabinetType{}, fmt.Errorf("query cabinet type: %w", err)
	}
	return c, nil
}

// ListCabinetTypes returns cabinet types ordered by code. An empty category lists all.
func (s *Store) ListCabinetTypes(ctx context.Context, category string) ([]CabinetType, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cabinetColumns+`
		FROM cabinet_types
		WHERE (? = '' OR category = ?)
		ORDER BY code ASC
	`, category, category)
	if err != nil {
		return nil, fmt.Errorf("query cabinet types: %w", err)
	}
	defer rows.Close()

	cabinets := make([]CabinetType, 0)
	for rows.Next() {
		c, err := scanCabinet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cabinet type: %w", err)
		}
		cabinets = append(cabinets, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cabinet types: %w", err)
	}
	return cabinets, nil
}

// ResolveDoorRates turns a selection into door rate addends. Missing, inactive
// or unselected options contribute 0 rather than failing.
func (s *Store) ResolveDoorRates(ctx context.Context, sel Selection, carcass bool, panelRatePerSqm float64) (pricing.DoorRateComponents, error) {
	var out pricing.DoorRateComponents

	for _, f := range []struct {
		kind Kind
		id   *int64
		dst  *float64
	}{
		{KindDoorStyle, sel.DoorStyleID, &out.DoorStyleRate},
		{KindFinish, sel.FinishID, &out.FinishRate},
		{KindColor, sel.ColorID, &out.ColorSurchargeRate},
	} {
		rate, err := s.activeRate(ctx, f.kind, f.id)
		if err != nil {
			return pricing.DoorRateComponents{}, err
		}
		*f.dst = rate
	}

	if carcass {
		out.CarcassMaterialRate = pricing.CarcassSurcharge(panelRatePerSqm)
	}
	return out, nil
}

// Resolve loads a cabinet type together with its pricing input and door rates.
func (s *Store) Resolve(ctx context.Context, cabinetTypeID int64, panelRatePerSqm float64) (CabinetType, pricing.DoorRateComponents, error) {
	cabinet, err := s.GetCabinetType(ctx, cabinetTypeID)
	if err != nil {
		return CabinetType{}, pricing.DoorRateComponents{}, err
	}

	doors, err := s.ResolveDoorRates(ctx, cabinet.Selection, cabinet.CarcassSurcharge, panelRatePerSqm)
	if err != nil {
		return CabinetType{}, pricing.DoorRateComponents{}, err
	}
	return cabinet, doors, nil
}

func (s *Store) activeRate(ctx context.Context, kind Kind, id *int64) (float64, error) {
	if id == nil || *id <= 0 {
		return 0, nil
	}

	opt, err := s.GetOption(ctx, kind, *id)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !opt.Active {
		return 0, nil
	}
	return opt.RatePerSqm, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCabinet(row rowScanner) (CabinetType, error) {
	var c CabinetType
	var doorStyleID, finishID, colorID sql.NullInt64
	err := row.Scan(
		&c.ID, &c.Code, &c.Name, &c.Category,
		&c.WidthMm, &c.HeightMm, &c.DepthMm,
		&c.BackPanelQty, &c.BottomPanelQty, &c.SidePanelQty, &c.DoorQty,
		&doorStyleID, &finishID, &colorID,
		&c.CarcassSurcharge, &c.Active,
	)
	if err != nil {
		return CabinetType{}, err
	}

	c.Selection = Selection{
		DoorStyleID: idPtr(doorStyleID),
		FinishID:    idPtr(finishID),
		ColorID:     idPtr(colorID),
	}
	return c, nil
}

func requireAffected(result sql.Result, what any) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %v: %w", what, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil || *id <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func idPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
