package quote

import (
	"context"
	"errors"
	"fmt"

	"github.com/Simplici0/cabinetquote/internal/catalog"
	"github.com/Simplici0/cabinetquote/internal/pricing"
	"github.com/Simplici0/cabinetquote/internal/settings"
)

// RateSource hands out rate snapshots.
type RateSource interface {
	Get(ctx context.Context) (settings.Settings, error)
}

// Catalog resolves cabinets and door options.
type Catalog interface {
	GetCabinetType(ctx context.Context, id int64) (catalog.CabinetType, error)
	GetOption(ctx context.Context, kind catalog.Kind, id int64) (catalog.Option, error)
	ResolveDoorRates(ctx context.Context, sel catalog.Selection, carcass bool, panelRatePerSqm float64) (pricing.DoorRateComponents, error)
}

// ConfigureRequest describes one configured cabinet. Nil dimensions and
// selection fall back to the catalog values.
type ConfigureRequest struct {
	CabinetTypeID int64
	WidthMm       *int
	HeightMm      *int
	DepthMm       *int
	Selection     *catalog.Selection
	Quantity      int
}

// Configuration is a priced cabinet ready to show or save.
type Configuration struct {
	Cabinet   catalog.CabinetType
	Spec      pricing.CabinetSpec
	Rates     pricing.RateSettings
	DoorRates pricing.DoorRateComponents
	Currency  string
	DoorStyle string
	Finish    string
	Color     string
	Breakdown pricing.PriceBreakdown
	Quantity  int
	LineTotal float64
}

// SaveRequest carries the customer-facing details of a quote.
type SaveRequest struct {
	Title         string
	Notes         string
	CustomerEmail string
}

// Service prices configurations and records quotes.
type Service struct {
	rates   RateSource
	catalog Catalog
	quotes  *Store
}

func NewService(rates RateSource, cat Catalog, quotes *Store) *Service {
	return &Service{rates: rates, catalog: cat, quotes: quotes}
}

// Configure prices a cabinet against a fresh rate snapshot.
func (s *Service) Configure(ctx context.Context, req ConfigureRequest) (Configuration, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		return Configuration{}, &ValidationError{Field: "quantity", Reason: "must be greater than 0"}
	}

	snapshot, err := s.rates.Get(ctx)
	if err != nil {
		return Configuration{}, fmt.Errorf("load rate settings: %w", err)
	}

	cabinet, err := s.catalog.GetCabinetType(ctx, req.CabinetTypeID)
	if err != nil {
		return Configuration{}, err
	}

	selection := cabinet.Selection
	if req.Selection != nil {
		selection = *req.Selection
	}

	doors, err := s.catalog.ResolveDoorRates(ctx, selection, cabinet.CarcassSurcharge, snapshot.Rates.PanelRatePerSqm)
	if err != nil {
		return Configuration{}, fmt.Errorf("resolve door rates: %w", err)
	}

	spec := cabinet.Spec()
	if req.WidthMm != nil {
		spec.WidthMm = *req.WidthMm
	}
	if req.HeightMm != nil {
		spec.HeightMm = *req.HeightMm
	}
	if req.DepthMm != nil {
		spec.DepthMm = *req.DepthMm
	}

	breakdown, err := pricing.ComputePrice(spec, snapshot.Rates, doors)
	if err != nil {
		return Configuration{}, err
	}

	cfg := Configuration{
		Cabinet:   cabinet,
		Spec:      spec,
		Rates:     snapshot.Rates,
		DoorRates: doors,
		Currency:  snapshot.Currency,
		Breakdown: breakdown,
		Quantity:  req.Quantity,
		LineTotal: breakdown.Total * float64(req.Quantity),
	}

	if cfg.DoorStyle, err = s.optionName(ctx, catalog.KindDoorStyle, selection.DoorStyleID); err != nil {
		return Configuration{}, err
	}
	if cfg.Finish, err = s.optionName(ctx, catalog.KindFinish, selection.FinishID); err != nil {
		return Configuration{}, err
	}
	if cfg.Color, err = s.optionName(ctx, catalog.KindColor, selection.ColorID); err != nil {
		return Configuration{}, err
	}

	return cfg, nil
}

// Save configures the cabinet and stores the result as a draft quote.
func (s *Service) Save(ctx context.Context, req ConfigureRequest, details SaveRequest) (Quote, error) {
	cfg, err := s.Configure(ctx, req)
	if err != nil {
		return Quote{}, err
	}

	return s.quotes.Create(ctx, Quote{
		Title:         details.Title,
		Notes:         details.Notes,
		CustomerEmail: details.CustomerEmail,
		Currency:      cfg.Currency,
		Item: Item{
			CabinetTypeID: cfg.Cabinet.ID,
			CabinetName:   cfg.Cabinet.Name,
			WidthMm:       cfg.Spec.WidthMm,
			HeightMm:      cfg.Spec.HeightMm,
			DepthMm:       cfg.Spec.DepthMm,
			DoorStyle:     cfg.DoorStyle,
			Finish:        cfg.Finish,
			Color:         cfg.Color,
			Quantity:      cfg.Quantity,
			Rates:         cfg.Rates,
			DoorRates:     cfg.DoorRates,
		},
		Snapshot: Snapshot{
			Breakdown: cfg.Breakdown,
			Quantity:  cfg.Quantity,
			UnitTotal: cfg.Breakdown.Total,
			Total:     cfg.LineTotal,
		},
	})
}

func (s *Service) optionName(ctx context.Context, kind catalog.Kind, id *int64) (string, error) {
	if id == nil {
		return "", nil
	}
	opt, err := s.catalog.GetOption(ctx, kind, *id)
	if errors.Is(err, catalog.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !opt.Active {
		return "", nil
	}
	return opt.Name, nil
}
