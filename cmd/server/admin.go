package main

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/cabinetquote/internal/catalog"
	"github.com/Simplici0/cabinetquote/internal/pricing"
	"github.com/Simplici0/cabinetquote/internal/settings"
)

type ratesViewData struct {
	baseViewData
	Rates    pricing.RateSettings
	Currency string
	Warnings []string
}

type optionsViewData struct {
	baseViewData
	Kind    string
	Title   string
	Options []catalog.Option
}

type cabinetsViewData struct {
	baseViewData
	Cabinets   []catalog.CabinetType
	DoorStyles []catalog.Option
	Finishes   []catalog.Option
	Colors     []catalog.Option
}

var optionKinds = map[string]struct {
	kind  catalog.Kind
	title string
}{
	"door-styles": {catalog.KindDoorStyle, "Door styles"},
	"finishes":    {catalog.KindFinish, "Finishes"},
	"colors":      {catalog.KindColor, "Colours"},
}

func (s *server) handleAdminRatesForm(w http.ResponseWriter, r *http.Request) {
	current, err := s.currentSettings(r)
	if err != nil {
		s.serverError(w, r, "failed to load rate settings", err)
		return
	}

	s.renderTemplate(w, r, "admin_rates.html", ratesViewData{
		Rates:    current.Rates,
		Currency: current.Currency,
		Warnings: settings.Warnings(current.Rates),
	})
}

func (s *server) handleAdminRatesSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	record := make(map[string]string)
	for _, key := range []string{settings.KeyPanelRatePerSqm, settings.KeyHardwareBaseCost, settings.KeyWastageFactor, settings.KeyTaxRate} {
		record[key] = r.FormValue(key)
	}
	currency := strings.TrimSpace(r.FormValue("currency"))
	if currency == "" {
		currency = s.money.Currency()
	}

	rates, err := settings.FromRecord(record)
	if err == nil {
		if err = s.settings.Ensure(r.Context()); err == nil {
			err = s.settings.Update(r.Context(), rates, currency)
		}
	}

	var verr *settings.ValidationError
	if errors.As(err, &verr) {
		s.renderTemplateStatus(w, r, http.StatusBadRequest, "admin_rates.html", ratesViewData{
			baseViewData: baseViewData{ErrorMessage: verr.Error()},
			Rates:        rates,
			Currency:     currency,
		})
		return
	}
	if err != nil {
		s.serverError(w, r, "failed to save rate settings", err)
		return
	}

	s.logger.Info("rate settings updated")
	s.renderTemplate(w, r, "admin_rates.html", ratesViewData{
		baseViewData: baseViewData{SuccessMessage: "Rate settings saved."},
		Rates:        rates,
		Currency:     strings.ToUpper(currency),
		Warnings:     settings.Warnings(rates),
	})
}

func (s *server) currentSettings(r *http.Request) (settings.Settings, error) {
	if err := s.settings.Ensure(r.Context()); err != nil {
		return settings.Settings{}, err
	}
	return s.settings.Get(r.Context())
}

func (s *server) handleAdminOptionsForm(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "kind")
	meta, ok := optionKinds[slug]
	if !ok {
		http.NotFound(w, r)
		return
	}

	options, err := s.catalog.ListOptions(r.Context(), meta.kind)
	if err != nil {
		s.serverError(w, r, "failed to load options", err)
		return
	}

	s.renderTemplate(w, r, "admin_options.html", optionsViewData{
		baseViewData: flashFromQuery(r),
		Kind:         slug,
		Title:        meta.title,
		Options:      options,
	})
}

func (s *server) handleAdminOptionsCreate(w http.ResponseWriter, r *http.Request) {
	s.saveOption(w, r, 0)
}

func (s *server) handleAdminOptionsUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "invalid option id", http.StatusBadRequest)
		return
	}
	s.saveOption(w, r, id)
}

func (s *server) saveOption(w http.ResponseWriter, r *http.Request, id int64) {
	slug := chi.URLParam(r, "kind")
	meta, ok := optionKinds[slug]
	if !ok {
		http.NotFound(w, r)
		return
	}
	back := "/admin/options/" + slug

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	rate, err := parseNonNegativeFloat(r.FormValue("rate_per_sqm"), "rate_per_sqm")
	if err != nil {
		redirectWithFlash(w, r, back, "error", err.Error())
		return
	}

	opt := catalog.Option{
		ID:         id,
		Kind:       meta.kind,
		Name:       r.FormValue("name"),
		RatePerSqm: rate,
		Active:     id == 0 || r.FormValue("active") == "1",
	}

	if id == 0 {
		_, err = s.catalog.CreateOption(r.Context(), opt)
	} else {
		err = s.catalog.UpdateOption(r.Context(), opt)
	}

	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		redirectWithFlash(w, r, back, "error", verr.Error())
	case errors.Is(err, catalog.ErrNotFound):
		http.NotFound(w, r)
	case err != nil:
		s.serverError(w, r, "failed to save option", err)
	default:
		redirectWithFlash(w, r, back, "success", meta.title+" saved.")
	}
}

func (s *server) handleAdminCabinetsForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := cabinetsViewData{baseViewData: flashFromQuery(r)}

	var err error
	if data.Cabinets, err = s.catalog.ListCabinetTypes(ctx, r.URL.Query().Get("category")); err != nil {
		s.serverError(w, r, "failed to load cabinets", err)
		return
	}
	for _, f := range []struct {
		kind catalog.Kind
		dst  *[]catalog.Option
	}{
		{catalog.KindDoorStyle, &data.DoorStyles},
		{catalog.KindFinish, &data.Finishes},
		{catalog.KindColor, &data.Colors},
	} {
		if *f.dst, err = s.catalog.ListOptions(ctx, f.kind); err != nil {
			s.serverError(w, r, "failed to load options", err)
			return
		}
	}

	s.renderTemplate(w, r, "admin_cabinets.html", data)
}

func (s *server) handleAdminCabinetsCreate(w http.ResponseWriter, r *http.Request) {
	s.saveCabinet(w, r, 0)
}

func (s *server) handleAdminCabinetsUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "invalid cabinet id", http.StatusBadRequest)
		return
	}
	s.saveCabinet(w, r, id)
}

func (s *server) saveCabinet(w http.ResponseWriter, r *http.Request, id int64) {
	const back = "/admin/cabinets"

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	cabinet, err := parseCabinetForm(r)
	if err != nil {
		redirectWithFlash(w, r, back, "error", err.Error())
		return
	}
	cabinet.ID = id
	cabinet.Active = id == 0 || r.FormValue("active") == "1"

	if id == 0 {
		_, err = s.catalog.CreateCabinetType(r.Context(), cabinet)
	} else {
		err = s.catalog.UpdateCabinetType(r.Context(), cabinet)
	}

	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		redirectWithFlash(w, r, back, "error", verr.Error())
	case errors.Is(err, catalog.ErrNotFound):
		http.NotFound(w, r)
	case err != nil:
		s.serverError(w, r, "failed to save cabinet", err)
	default:
		redirectWithFlash(w, r, back, "success", "Cabinet saved.")
	}
}

func parseCabinetForm(r *http.Request) (catalog.CabinetType, error) {
	c := catalog.CabinetType{
		Code:             r.FormValue("code"),
		Name:             r.FormValue("name"),
		Category:         r.FormValue("category"),
		CarcassSurcharge: r.FormValue("carcass_surcharge") == "1",
	}

	ints := []struct {
		field string
		dst   *int
	}{
		{"width_mm", &c.WidthMm},
		{"height_mm", &c.HeightMm},
		{"depth_mm", &c.DepthMm},
		{"back_panel_qty", &c.BackPanelQty},
		{"bottom_panel_qty", &c.BottomPanelQty},
		{"side_panel_qty", &c.SidePanelQty},
		{"door_qty", &c.DoorQty},
	}
	for _, f := range ints {
		v, err := parseNonNegativeInt(r.FormValue(f.field), f.field)
		if err != nil {
			return c, err
		}
		*f.dst = v
	}

	var err error
	if c.Selection, err = parseSelection(r); err != nil {
		return c, err
	}
	return c, nil
}

func parseNonNegativeFloat(raw, field string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be numeric", field)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%s must be a finite number", field)
	}
	if value < 0 {
		return 0, fmt.Errorf("%s must be greater than or equal to 0", field)
	}
	return value, nil
}

func parseNonNegativeInt(raw, field string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", field)
	}
	if value < 0 {
		return 0, fmt.Errorf("%s must be greater than or equal to 0", field)
	}
	return value, nil
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func flashFromQuery(r *http.Request) baseViewData {
	return baseViewData{
		ErrorMessage:   r.URL.Query().Get("error"),
		SuccessMessage: r.URL.Query().Get("success"),
	}
}

func redirectWithFlash(w http.ResponseWriter, r *http.Request, path, key, msg string) {
	http.Redirect(w, r, path+"?"+key+"="+url.QueryEscape(msg), http.StatusSeeOther)
}
