package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Simplici0/cabinetquote/internal/catalog"
	"github.com/Simplici0/cabinetquote/internal/pricelist"
	"github.com/Simplici0/cabinetquote/internal/pricing"
	"github.com/Simplici0/cabinetquote/internal/quote"
	"github.com/Simplici0/cabinetquote/internal/settings"
)

const (
	defaultBracketMinMm  = 300
	defaultBracketMaxMm  = 1199
	defaultBracketStepMm = 50
)

type quoteFormValues struct {
	Request quote.ConfigureRequest
	Details quote.SaveRequest
}

type displayTotals struct {
	Unit      string `json:"unit"`
	LineTotal string `json:"line_total"`
}

type calcResponse struct {
	CabinetTypeID int64                  `json:"cabinet_type_id"`
	Cabinet       string                 `json:"cabinet"`
	WidthMm       int                    `json:"width_mm"`
	HeightMm      int                    `json:"height_mm"`
	DepthMm       int                    `json:"depth_mm"`
	DoorStyle     string                 `json:"door_style,omitempty"`
	Finish        string                 `json:"finish,omitempty"`
	Color         string                 `json:"color,omitempty"`
	Quantity      int                    `json:"quantity"`
	Currency      string                 `json:"currency"`
	Breakdown     pricing.PriceBreakdown `json:"breakdown"`
	LineTotal     float64                `json:"line_total"`
	Display       displayTotals          `json:"display"`
}

type priceListRow struct {
	Label      string                 `json:"label"`
	MinWidthMm int                    `json:"min_width_mm"`
	MaxWidthMm int                    `json:"max_width_mm"`
	WidthMm    int                    `json:"width_mm"`
	Breakdown  pricing.PriceBreakdown `json:"breakdown"`
	Price      string                 `json:"price"`
	Display    string                 `json:"display"`
}

type priceListResponse struct {
	CabinetTypeID int64          `json:"cabinet_type_id"`
	Cabinet       string         `json:"cabinet"`
	Policy        string         `json:"policy"`
	Currency      string         `json:"currency"`
	Rows          []priceListRow `json:"rows"`
}

type quotesViewData struct {
	baseViewData
	Query  string
	Quotes []quote.ListItem
}

type quoteDetailViewData struct {
	baseViewData
	Quote quote.Quote
	Next  []quote.Status
}

func (s *server) handleQuoteCalc(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid form")
		return
	}

	values, err := parseQuoteFormValues(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := s.configurator.Configure(r.Context(), values.Request)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, calcResponse{
		CabinetTypeID: cfg.Cabinet.ID,
		Cabinet:       cfg.Cabinet.Name,
		WidthMm:       cfg.Spec.WidthMm,
		HeightMm:      cfg.Spec.HeightMm,
		DepthMm:       cfg.Spec.DepthMm,
		DoorStyle:     cfg.DoorStyle,
		Finish:        cfg.Finish,
		Color:         cfg.Color,
		Quantity:      cfg.Quantity,
		Currency:      cfg.Currency,
		Breakdown:     cfg.Breakdown,
		LineTotal:     cfg.LineTotal,
		Display: displayTotals{
			Unit:      s.money.Format(cfg.Breakdown.Total),
			LineTotal: s.money.Format(cfg.LineTotal),
		},
	})
}

func (s *server) handleQuoteCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	values, err := parseQuoteFormValues(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q, err := s.configurator.Save(r.Context(), values.Request, values.Details)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.logger.Info("quote created",
		zap.Int64("quote_id", q.ID),
		zap.String("reference", q.Reference),
		zap.Float64("total", q.Snapshot.Total),
	)
	http.Redirect(w, r, fmt.Sprintf("/quotes/%d", q.ID), http.StatusSeeOther)
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	quotes, err := s.quotes.List(r.Context(), query)
	if err != nil {
		s.serverError(w, r, "failed to load quotes", err)
		return
	}

	s.renderTemplate(w, r, "quotes.html", quotesViewData{
		Query:  query,
		Quotes: quotes,
	})
}

func (s *server) handleQuoteDetail(w http.ResponseWriter, r *http.Request) {
	q, ok := s.loadQuote(w, r)
	if !ok {
		return
	}

	var next []quote.Status
	for _, candidate := range []quote.Status{quote.StatusSent, quote.StatusAccepted, quote.StatusRejected, quote.StatusOrdered} {
		if q.Status.CanTransitionTo(candidate) {
			next = append(next, candidate)
		}
	}

	s.renderTemplate(w, r, "quote_detail.html", quoteDetailViewData{
		baseViewData: flashFromQuery(r),
		Quote:        q,
		Next:         next,
	})
}

func (s *server) handleQuoteText(w http.ResponseWriter, r *http.Request) {
	q, ok := s.loadQuote(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(quote.RenderText(q, s.money)))
}

func (s *server) handleQuoteStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "invalid quote id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	next, err := quote.ParseStatus(r.FormValue("status"))
	if err == nil {
		err = s.quotes.UpdateStatus(r.Context(), id, next)
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.logger.Info("quote status changed", zap.Int64("quote_id", id), zap.String("status", string(next)))
	redirectWithFlash(w, r, fmt.Sprintf("/quotes/%d", id), "success", "Quote marked "+string(next)+".")
}

func (s *server) handlePriceList(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid cabinet id")
		return
	}

	query := r.URL.Query()
	rawPolicy := query.Get("policy")
	if strings.TrimSpace(rawPolicy) == "" {
		rawPolicy = s.priceListPolicy
	}
	if strings.TrimSpace(rawPolicy) == "" {
		writeJSONError(w, http.StatusBadRequest, "policy is required (min, max or midpoint)")
		return
	}
	policy, err := pricelist.ParsePolicy(rawPolicy)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	minMm, err1 := intQuery(query.Get("min"), defaultBracketMinMm)
	maxMm, err2 := intQuery(query.Get("max"), defaultBracketMaxMm)
	stepMm, err3 := intQuery(query.Get("step"), defaultBracketStepMm)
	if err := errors.Join(err1, err2, err3); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	brackets, err := pricelist.Brackets(minMm, maxMm, stepMm)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, err := s.settings.Get(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	cabinet, doors, err := s.catalog.Resolve(r.Context(), id, snapshot.Rates.PanelRatePerSqm)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	rows, err := pricelist.Generate(cabinet.Spec(), snapshot.Rates, doors, brackets, policy)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := priceListResponse{
		CabinetTypeID: cabinet.ID,
		Cabinet:       cabinet.Name,
		Policy:        string(policy),
		Currency:      snapshot.Currency,
		Rows:          make([]priceListRow, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, priceListRow{
			Label:      row.Bracket.Label(),
			MinWidthMm: row.Bracket.MinWidthMm,
			MaxWidthMm: row.Bracket.MaxWidthMm,
			WidthMm:    row.WidthMm,
			Breakdown:  row.Breakdown,
			Price:      row.Price.StringFixed(2),
			Display:    s.money.Format(row.Breakdown.Total),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) loadQuote(w http.ResponseWriter, r *http.Request) (quote.Quote, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "invalid quote id", http.StatusBadRequest)
		return quote.Quote{}, false
	}

	q, err := s.quotes.Get(r.Context(), id)
	if errors.Is(err, quote.ErrNotFound) {
		http.NotFound(w, r)
		return quote.Quote{}, false
	}
	if err != nil {
		s.serverError(w, r, "failed to load quote", err)
		return quote.Quote{}, false
	}
	return q, true
}

func parseQuoteFormValues(r *http.Request) (quoteFormValues, error) {
	var values quoteFormValues

	cabinetID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("cabinet_type_id")), 10, 64)
	if err != nil || cabinetID <= 0 {
		return values, fmt.Errorf("cabinet_type_id must be a positive number")
	}
	values.Request.CabinetTypeID = cabinetID

	dims := []struct {
		field string
		dst   **int
	}{
		{"width_mm", &values.Request.WidthMm},
		{"height_mm", &values.Request.HeightMm},
		{"depth_mm", &values.Request.DepthMm},
	}
	for _, d := range dims {
		raw := strings.TrimSpace(r.FormValue(d.field))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return values, fmt.Errorf("%s must be a whole number", d.field)
		}
		*d.dst = &v
	}

	if raw := strings.TrimSpace(r.FormValue("quantity")); raw != "" {
		qty, err := strconv.Atoi(raw)
		if err != nil || qty <= 0 {
			return values, fmt.Errorf("quantity must be a positive whole number")
		}
		values.Request.Quantity = qty
	}

	if hasAnyField(r, "door_style_id", "finish_id", "color_id") {
		sel, err := parseSelection(r)
		if err != nil {
			return values, err
		}
		values.Request.Selection = &sel
	}

	values.Details = quote.SaveRequest{
		Title:         r.FormValue("title"),
		Notes:         r.FormValue("notes"),
		CustomerEmail: r.FormValue("customer_email"),
	}
	return values, nil
}

// parseSelection reads door option ids. Blank or 0 means no selection.
func parseSelection(r *http.Request) (catalog.Selection, error) {
	var sel catalog.Selection
	fields := []struct {
		field string
		dst   **int64
	}{
		{"door_style_id", &sel.DoorStyleID},
		{"finish_id", &sel.FinishID},
		{"color_id", &sel.ColorID},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(r.FormValue(f.field))
		if raw == "" || raw == "0" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			return sel, fmt.Errorf("%s must be a positive number", f.field)
		}
		*f.dst = &id
	}
	return sel, nil
}

func hasAnyField(r *http.Request, fields ...string) bool {
	for _, f := range fields {
		if _, ok := r.Form[f]; ok {
			return true
		}
	}
	return false
}

func intQuery(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number", raw)
	}
	return v, nil
}

func (s *server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSONError(w, status, "internal error")
		return
	}
	writeJSONError(w, status, err.Error())
}

func errorStatus(err error) int {
	var (
		quoteErr    *quote.ValidationError
		catalogErr  *catalog.ValidationError
		settingsErr *settings.ValidationError
	)
	switch {
	case errors.Is(err, pricing.ErrInvalidInput),
		errors.As(err, &quoteErr),
		errors.As(err, &catalogErr),
		errors.As(err, &settingsErr):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, quote.ErrNotFound),
		errors.Is(err, settings.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, quote.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
