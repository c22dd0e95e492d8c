package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/till/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/till/internal/catalog"
	catalogStore "github.com/MrJamesThe3rd/till/internal/catalog/store"
	"github.com/MrJamesThe3rd/till/internal/clock"
	"github.com/MrJamesThe3rd/till/internal/config"
	"github.com/MrJamesThe3rd/till/internal/database"
	"github.com/MrJamesThe3rd/till/internal/id"
	"github.com/MrJamesThe3rd/till/internal/importer"
	"github.com/MrJamesThe3rd/till/internal/notify"
	"github.com/MrJamesThe3rd/till/internal/register"
	"github.com/MrJamesThe3rd/till/internal/report"
	"github.com/MrJamesThe3rd/till/internal/transaction"
	txStore "github.com/MrJamesThe3rd/till/internal/transaction/store"
)

const logFile = "till-tui.log"

type model struct {
	appName        string
	currency       string
	catalogService *catalog.Service
	txService      *transaction.Service
	session        *register.Session
	importService  *importer.Service
	reportService  *report.Service
	currentView    View
	registerView   view.RegisterModel
	ledgerView     view.LedgerModel
	catalogView    view.CatalogModel
	importView     view.ImportModel
	reportView     view.ReportModel
	lastWindowSize *tea.WindowSizeMsg
}

type View int

const (
	ViewMenu     View = 0
	ViewRegister View = 1
	ViewLedger   View = 2
	ViewCatalog  View = 3
	ViewImport   View = 4
	ViewReport   View = 5
)

// setup opens the database and builds the services. The returned func
// releases them.
func setup(ctx context.Context, cfg *config.Config) (model, func(), error) {
	db, err := database.New(cfg.DB.Driver, cfg.DB.DSN, cfg.DB.MaxOpenConns)
	if err != nil {
		return model{}, nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return model{}, nil, fmt.Errorf("migrate: %w", err)
	}

	products, err := catalogStore.New(ctx, db, cfg.App.Currency)
	if err != nil {
		db.Close()
		return model{}, nil, fmt.Errorf("prepare catalog store: %w", err)
	}

	ledger, err := txStore.New(ctx, db, cfg.App.Currency)
	if err != nil {
		products.Close()
		db.Close()

		return model{}, nil, fmt.Errorf("prepare transaction store: %w", err)
	}

	cleanup := func() {
		ledger.Close()
		products.Close()
		db.Close()
	}

	broker := notify.NewBroker()
	catalogSvc := catalog.NewService(products, broker, id.UUID{}, cfg.App.Currency)
	txSvc := transaction.NewService(ledger, broker, clock.System{}, id.UUID{}, cfg.App.Currency)
	session := register.NewSession(catalogSvc, txSvc, cfg.App.Currency)
	impSvc := importer.NewService(cfg.App.Currency)
	repSvc := report.NewService(txSvc, cfg.App.Currency, time.Local)

	return model{
		appName:        cfg.App.Name,
		currency:       cfg.App.Currency,
		catalogService: catalogSvc,
		txService:      txSvc,
		session:        session,
		importService:  impSvc,
		reportService:  repSvc,
		currentView:    ViewMenu,
		registerView:   view.NewRegisterModel(session),
		ledgerView:     view.NewLedgerModel(txSvc),
		catalogView:    view.NewCatalogModel(catalogSvc, cfg.App.Currency),
		importView:     view.NewImportModel(catalogSvc, impSvc),
		reportView:     view.NewReportModel(repSvc),
	}, cleanup, nil
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.lastWindowSize = &msg
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewRegister
				m.registerView = view.NewRegisterModel(m.session)

				return m, tea.Batch(m.registerView.Init(), m.resize())
			case "2":
				m.currentView = ViewLedger
				m.ledgerView = view.NewLedgerModel(m.txService)

				return m, tea.Batch(m.ledgerView.Init(), m.resize())
			case "3":
				m.currentView = ViewCatalog
				m.catalogView = view.NewCatalogModel(m.catalogService, m.currency)

				return m, tea.Batch(m.catalogView.Init(), m.resize())
			case "4":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.catalogService, m.importService)

				return m, tea.Batch(m.importView.Init(), m.resize())
			case "5":
				m.currentView = ViewReport
				m.reportView = view.NewReportModel(m.reportService)

				return m, tea.Batch(m.reportView.Init(), m.resize())
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewRegister:
		var newModel tea.Model
		newModel, cmd = m.registerView.Update(msg)
		m.registerView = newModel.(view.RegisterModel)
	case ViewLedger:
		var newModel tea.Model
		newModel, cmd = m.ledgerView.Update(msg)
		m.ledgerView = newModel.(view.LedgerModel)
	case ViewCatalog:
		var newModel tea.Model
		newModel, cmd = m.catalogView.Update(msg)
		m.catalogView = newModel.(view.CatalogModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewReport:
		var newModel tea.Model
		newModel, cmd = m.reportView.Update(msg)
		m.reportView = newModel.(view.ReportModel)
	}

	return m, cmd
}

// resize replays the last window size so a freshly built view lays itself out.
func (m model) resize() tea.Cmd {
	if m.lastWindowSize == nil {
		return nil
	}

	size := *m.lastWindowSize

	return func() tea.Msg { return size }
}

func (m model) current() view.View {
	switch m.currentView {
	case ViewRegister:
		return m.registerView
	case ViewLedger:
		return m.ledgerView
	case ViewCatalog:
		return m.catalogView
	case ViewImport:
		return m.importView
	case ViewReport:
		return m.reportView
	}

	return nil
}

func (m model) View() string {
	if m.currentView == ViewMenu {
		return lipgloss.NewStyle().Padding(2).Render(
			m.appName + "\n\n" +
				"1. Register\n" +
				"2. Ledger\n" +
				"3. Catalog\n" +
				"4. Import Products\n" +
				"5. Sales Report\n\n" +
				"q. Quit",
		)
	}

	v := m.current()
	if v == nil {
		return "Unknown View"
	}

	title := lipgloss.NewStyle().Bold(true).Padding(0, 1).Render(v.Title())
	help := lipgloss.NewStyle().Faint(true).Padding(0, 1).Render(v.ShortHelp())

	return lipgloss.JoinVertical(lipgloss.Left, title, v.View(), help)
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI; logs only go to a file at debug level.
	var logOut io.Writer = io.Discard

	if cfg.Level() == slog.LevelDebug {
		f, err := tea.LogToFile(logFile, "tui")
		if err != nil {
			slog.Error("failed to open log file", "error", err)
			os.Exit(1)
		}
		defer f.Close()

		logOut = f
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.Level()})))

	m, cleanup, err := setup(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "till: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		cleanup()
		os.Exit(1)
	}
}
