package main

import (
	"context"
	"database/sql"
	"errors"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Simplici0/cabinetquote/internal/catalog"
	"github.com/Simplici0/cabinetquote/internal/config"
	"github.com/Simplici0/cabinetquote/internal/db"
	"github.com/Simplici0/cabinetquote/internal/logger"
	"github.com/Simplici0/cabinetquote/internal/migrations"
	"github.com/Simplici0/cabinetquote/internal/pricelist"
	"github.com/Simplici0/cabinetquote/internal/quote"
	"github.com/Simplici0/cabinetquote/internal/seed"
	"github.com/Simplici0/cabinetquote/internal/settings"
)

const defaultTemplateDir = "web/templates"

type server struct {
	auth            *authService
	logger          *zap.Logger
	settings        *settings.Store
	catalog         *catalog.Store
	quotes          *quote.Store
	configurator    *quote.Service
	money           *pricelist.Formatter
	priceListPolicy string
	templateDir     string
}

type baseViewData struct {
	ErrorMessage   string
	SuccessMessage string
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		// zap is not available yet.
		_, _ = os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	cfg.Warn(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		log.Fatal("failed to open database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer database.Close()

	if cfg.IsDev() {
		applied, err := migrations.Up(ctx, database)
		if err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
		log.Info("migrations applied", zap.Int("count", applied))
	}

	stats, err := seed.Run(ctx, database, seed.Config{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		Currency:      cfg.Currency,
	})
	if err != nil {
		log.Fatal("failed to seed database", zap.Error(err))
	}
	log.Info("seed finished", zap.Int("inserts", stats.Inserts))

	srv, err := newServer(database, cfg, log)
	if err != nil {
		log.Fatal("failed to build server", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	log.Info("listening", zap.String("addr", httpServer.Addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server stopped", zap.Error(err))
	}
	log.Info("server stopped")
}

func newServer(database *sql.DB, cfg config.Config, log *zap.Logger) (*server, error) {
	money, err := pricelist.NewFormatter(cfg.Currency, cfg.Locale)
	if err != nil {
		return nil, err
	}

	rates := settings.NewStore(database)
	cat := catalog.NewStore(database)
	quotes := quote.NewStore(database)

	return &server{
		auth:            newAuthService(database, cfg.SessionSecret, !cfg.IsDev()),
		logger:          log,
		settings:        rates,
		catalog:         cat,
		quotes:          quotes,
		configurator:    quote.NewService(rates, cat, quotes),
		money:           money,
		priceListPolicy: cfg.PriceListPolicy,
		templateDir:     defaultTemplateDir,
	}, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.authMiddleware)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	r.Get("/", s.handleHome)
	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLoginSubmit)
	r.Post("/logout", s.handleLogout)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/rates", s.handleAdminRatesForm)
		r.Post("/rates", s.handleAdminRatesSubmit)
		r.Get("/options/{kind}", s.handleAdminOptionsForm)
		r.Post("/options/{kind}", s.handleAdminOptionsCreate)
		r.Post("/options/{kind}/{id}", s.handleAdminOptionsUpdate)
		r.Get("/cabinets", s.handleAdminCabinetsForm)
		r.Post("/cabinets", s.handleAdminCabinetsCreate)
		r.Post("/cabinets/{id}", s.handleAdminCabinetsUpdate)
	})

	r.Post("/quote/calc", s.handleQuoteCalc)
	r.Get("/quotes", s.handleQuotesList)
	r.Post("/quotes", s.handleQuoteCreate)
	r.Get("/quotes/{id}", s.handleQuoteDetail)
	r.Get("/quotes/{id}/text", s.handleQuoteText)
	r.Post("/quotes/{id}/status", s.handleQuoteStatus)
	r.Get("/cabinets/{id}/price-list", s.handlePriceList)

	return r
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	cabinets, err := s.catalog.ListCabinetTypes(r.Context(), "")
	if err != nil {
		s.serverError(w, r, "failed to load cabinets", err)
		return
	}
	s.renderTemplate(w, r, "home.html", struct {
		baseViewData
		Cabinets []catalog.CabinetType
	}{Cabinets: cabinets})
}

func (s *server) renderTemplate(w http.ResponseWriter, r *http.Request, page string, data any) {
	s.renderTemplateStatus(w, r, http.StatusOK, page, data)
}

// renderTemplateStatus parses before writing anything, so a broken template
// still produces a single 500 response.
func (s *server) renderTemplateStatus(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	templates, err := template.New("layout.html").Funcs(template.FuncMap{
		"money": s.money.Format,
	}).ParseFiles(
		filepath.Join(s.templateDir, "layout.html"),
		filepath.Join(s.templateDir, page),
	)
	if err != nil {
		s.serverError(w, r, "failed to parse template", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, "layout.html", data); err != nil {
		s.logger.Error("failed to render template", zap.String("page", page), zap.Error(err))
	}
}

func (s *server) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.Error(msg,
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	http.Error(w, msg, http.StatusInternalServerError)
}
