package quote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Store persists quotes in sqlite.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type storedRates struct {
	PanelRatePerSqm     float64 `json:"panel_rate_per_sqm"`
	HardwareBaseCost    float64 `json:"hardware_base_cost"`
	WastageFactor       float64 `json:"wastage_factor"`
	TaxRate             float64 `json:"tax_rate"`
	DoorStyleRate       float64 `json:"door_style_rate"`
	FinishRate          float64 `json:"finish_rate"`
	ColorSurchargeRate  float64 `json:"color_surcharge_rate"`
	CarcassMaterialRate float64 `json:"carcass_material_rate"`
}

// Create stores a new draft quote and returns it with its id and reference.
func (s *Store) Create(ctx context.Context, q Quote) (Quote, error) {
	if q.Item.Quantity <= 0 {
		return Quote{}, &ValidationError{Field: "quantity", Reason: "must be greater than 0"}
	}
	q.Reference = uuid.NewString()
	q.Status = StatusDraft
	q.Title = strings.TrimSpace(q.Title)
	q.Notes = strings.TrimSpace(q.Notes)
	q.CustomerEmail = strings.TrimSpace(q.CustomerEmail)

	totalsJSON, err := json.Marshal(q.Snapshot)
	if err != nil {
		return Quote{}, fmt.Errorf("encode quote totals: %w", err)
	}
	ratesJSON, err := json.Marshal(storedRates{
		PanelRatePerSqm:     q.Item.Rates.PanelRatePerSqm,
		HardwareBaseCost:    q.Item.Rates.HardwareBaseCost,
		WastageFactor:       q.Item.Rates.WastageFactor,
		TaxRate:             q.Item.Rates.TaxRate,
		DoorStyleRate:       q.Item.DoorRates.DoorStyleRate,
		FinishRate:          q.Item.DoorRates.FinishRate,
		ColorSurchargeRate:  q.Item.DoorRates.ColorSurchargeRate,
		CarcassMaterialRate: q.Item.DoorRates.CarcassMaterialRate,
	})
	if err != nil {
		return Quote{}, fmt.Errorf("encode quote rates: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("begin quote transaction: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO quotes (reference, title, notes, customer_email, status, currency, totals_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, q.Reference, q.Title, q.Notes, q.CustomerEmail, q.Status, q.Currency, string(totalsJSON))
	if err != nil {
		_ = tx.Rollback()
		return Quote{}, fmt.Errorf("insert quote: %w", err)
	}
	if q.ID, err = result.LastInsertId(); err != nil {
		_ = tx.Rollback()
		return Quote{}, fmt.Errorf("read quote id: %w", err)
	}

	var cabinetTypeID sql.NullInt64
	if q.Item.CabinetTypeID > 0 {
		cabinetTypeID = sql.NullInt64{Int64: q.Item.CabinetTypeID, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO quote_items (
			quote_id, cabinet_type_id, cabinet_name,
			width_mm, height_mm, depth_mm,
			door_style, finish, color, quantity, rates_json
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		q.ID, cabinetTypeID, q.Item.CabinetName,
		q.Item.WidthMm, q.Item.HeightMm, q.Item.DepthMm,
		q.Item.DoorStyle, q.Item.Finish, q.Item.Color, q.Item.Quantity, string(ratesJSON),
	); err != nil {
		_ = tx.Rollback()
		return Quote{}, fmt.Errorf("insert quote item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Quote{}, fmt.Errorf("commit quote transaction: %w", err)
	}

	return s.Get(ctx, q.ID)
}

// List returns quotes matching query on title or notes, newest first.
func (s *Store) List(ctx context.Context, query string) ([]ListItem, error) {
	query = strings.TrimSpace(query)
	search := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id,
			reference,
			created_at,
			COALESCE(title, ''),
			status,
			totals_json
		FROM quotes
		WHERE (? = '' OR COALESCE(title, '') LIKE ? OR COALESCE(notes, '') LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]ListItem, 0)
	for rows.Next() {
		var item ListItem
		var totalsJSON string
		if err := rows.Scan(&item.ID, &item.Reference, &item.CreatedAt, &item.Title, &item.Status, &totalsJSON); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		item.Total = extractTotalFromJSON(totalsJSON)
		quotes = append(quotes, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return quotes, nil
}

// Get reads a quote with its item and stored snapshot.
func (s *Store) Get(ctx context.Context, id int64) (Quote, error) {
	var q Quote
	var totalsJSON, ratesJSON string
	var cabinetTypeID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			q.id, q.reference, COALESCE(q.title, ''), COALESCE(q.notes, ''), COALESCE(q.customer_email, ''),
			q.status, q.currency, q.created_at, q.totals_json,
			i.cabinet_type_id, i.cabinet_name, i.width_mm, i.height_mm, i.depth_mm,
			i.door_style, i.finish, i.color, i.quantity, i.rates_json
		FROM quotes q
		JOIN quote_items i ON i.quote_id = q.id
		WHERE q.id = ?
		ORDER BY i.id ASC
		LIMIT 1
	`, id).Scan(
		&q.ID, &q.Reference, &q.Title, &q.Notes, &q.CustomerEmail,
		&q.Status, &q.Currency, &q.CreatedAt, &totalsJSON,
		&cabinetTypeID, &q.Item.CabinetName, &q.Item.WidthMm, &q.Item.HeightMm, &q.Item.DepthMm,
		&q.Item.DoorStyle, &q.Item.Finish, &q.Item.Color, &q.Item.Quantity, &ratesJSON,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quote{}, ErrNotFound
		}
		return Quote{}, fmt.Errorf("query quote: %w", err)
	}
	q.Item.CabinetTypeID = cabinetTypeID.Int64

	if err := json.Unmarshal([]byte(totalsJSON), &q.Snapshot); err != nil {
		return Quote{}, fmt.Errorf("decode quote totals: %w", err)
	}

	var rates storedRates
	if err := json.Unmarshal([]byte(ratesJSON), &rates); err != nil {
		return Quote{}, fmt.Errorf("decode quote rates: %w", err)
	}
	q.Item.Rates.PanelRatePerSqm = rates.PanelRatePerSqm
	q.Item.Rates.HardwareBaseCost = rates.HardwareBaseCost
	q.Item.Rates.WastageFactor = rates.WastageFactor
	q.Item.Rates.TaxRate = rates.TaxRate
	q.Item.DoorRates.DoorStyleRate = rates.DoorStyleRate
	q.Item.DoorRates.FinishRate = rates.FinishRate
	q.Item.DoorRates.ColorSurchargeRate = rates.ColorSurchargeRate
	q.Item.DoorRates.CarcassMaterialRate = rates.CarcassMaterialRate

	return q, nil
}

// UpdateStatus moves a quote along its lifecycle.
func (s *Store) UpdateStatus(ctx context.Context, id int64, next Status) error {
	var current Status
	err := s.db.QueryRowContext(ctx, `SELECT status FROM quotes WHERE id = ?`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("query quote status: %w", err)
	}

	if !current.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}

	// The status guard keeps a concurrent transition from being overwritten.
	result, err := s.db.ExecContext(ctx, `
		UPDATE quotes
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`, next, id, current)
	if err != nil {
		return fmt.Errorf("update quote status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update quote status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
	}
	return nil
}

// extractTotalFromJSON reads the quote total from a totals snapshot, accepting
// the key names used by older snapshots.
func extractTotalFromJSON(totalsJSON string) float64 {
	var values map[string]json.RawMessage
	if err := json.Unmarshal([]byte(totalsJSON), &values); err != nil {
		return 0
	}

	for _, key := range []string{"total", "grand_total", "final_total"} {
		raw, ok := values[key]
		if !ok {
			continue
		}
		var total float64
		if err := json.Unmarshal(raw, &total); err == nil {
			return total
		}
	}

	return 0
}
