package host

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tether/config"
	"tether/internal/bridge"
	"tether/internal/db"
	"tether/internal/health"
	"tether/internal/identity"
	"tether/internal/logs"
	"tether/internal/middleware"
	"tether/internal/models"
	"tether/internal/pairing"
	"tether/internal/relay"
	"tether/internal/workspace"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type App struct {
	cfg        *config.Config
	Router     *mux.Router
	httpServer *http.Server

	db         *gorm.DB
	identity   *identity.Service
	workspaces *workspace.Catalog
	terminal   *bridge.PTYBridge
	manager    *relay.Manager
	pairing    *pairing.Service
	events     *eventHub

	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) error {
	a.cfg = cfg

	// 1) logging
	logs.Init(logs.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})

	// 2) database (optional; everything falls back to in-memory stores)
	if drv := cfg.Database.Driver; drv != "" {
		d, err := db.Open(drv, cfg.Database.DSN)
		if err != nil {
			return err
		}
		a.db = d
	}
	if a.db != nil {
		if err := a.db.AutoMigrate(
			&models.DeviceIdentity{},
			&models.PairingPin{},
			&models.SessionHistory{},
		); err != nil {
			logs.Logger.Errorf("automigrate: %v", err)
		}
	}

	// 3) device identity
	var idStore identity.Store
	if a.db != nil {
		idStore = identity.NewGormStore(a.db)
	}
	a.identity = identity.NewService(idStore)
	ident, err := a.identity.GetOrCreate()
	if err != nil {
		return err
	}
	logs.Logger.Infof("device identity: %s (%s)", ident.DeviceID, ident.DeviceName)

	// 4) workspace catalog + terminal bridge
	a.workspaces = workspace.NewCatalog(cfg.Workspaces.Roots)
	a.terminal = bridge.NewPTYBridge("")

	// 5) relay manager
	var history relay.History
	if a.db != nil {
		history = newGormHistory(a.db)
	}
	a.manager = relay.NewManager(relay.Options{
		Settings:   cfg.RelaySettings(),
		Identity:   ident,
		Bridge:     a.terminal,
		Workspaces: a.workspaces,
		History:    history,
	})
	a.terminal.SetCallbacks(a.manager.Callbacks())

	// 6) pairing
	var pinStore pairing.Store
	if a.db != nil {
		pinStore = pairing.NewGormStore(a.db)
	}
	a.pairing = pairing.NewService(pinStore)

	// 7) local status push
	a.events = newEventHub()
	a.manager.AddStatusListener(a.events.Publish)

	// 8) router + middleware
	a.Router = mux.NewRouter()
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(middleware.LoggerMW)

	a.RegisterWebUI("/ui/")

	if a.db != nil {
		health.RegisterRoutesWithDB(a.Router, a.db)
	} else {
		health.RegisterRoutes(a.Router)
	}
	a.registerAPI()

	return nil
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return ErrNotInitialized
	}
	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigs; a.cancel() }()

	a.httpServer = &http.Server{
		Addr:         bind,
		Handler:      a.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE endpoint holds responses open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logs.Logger.Infof("local API listening on http://%s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Logger.Fatalf("http server error: %v", err)
		}
	}()

	// connect on startup when the user left the relay enabled
	settings := a.cfg.RelaySettings()
	if settings.Enabled && settings.AutoConnect {
		go a.manager.Connect(a.ctx)
	}

	<-a.ctx.Done()

	a.manager.Disconnect()
	a.events.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.httpServer.Shutdown(ctx)
	return nil
}

var ErrNotInitialized = &initError{"host not initialized (call Initialize(cfg) first)"}

type initError struct{ s string }

func (e *initError) Error() string { return e.s }
