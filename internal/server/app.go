// Package server wires the items API together: database and migrations,
// auth components, services, the HTTP API and the gRPC health listener.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/itemsapi/internal/dbx"
	"github.com/dmitrijs2005/itemsapi/internal/logging"
	"github.com/dmitrijs2005/itemsapi/internal/server/auth"
	"github.com/dmitrijs2005/itemsapi/internal/server/config"
	"github.com/dmitrijs2005/itemsapi/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/itemsapi/internal/server/services"
	"github.com/dmitrijs2005/itemsapi/internal/server/storage"

	gs "github.com/dmitrijs2005/itemsapi/internal/server/grpc"
	hs "github.com/dmitrijs2005/itemsapi/internal/server/http"
)

const dbPingTimeout = 5 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	resolver    *auth.Resolver
	userService *services.UserService
	itemService *services.ItemService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.NewJSONLogger(os.Stdout, level).With("app", c.AppName)

	codec, err := auth.NewCodec(c.SecretKey, c.SigningAlgorithm, c.AccessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("token codec init error: %w", err)
	}
	hasher := auth.NewHasher(c.PasswordHashCost)

	db, err := dbx.Open(ctx, repomanager.DriverName, c.DatabaseDSN, dbPingTimeout)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	// a nil *S3Presigner must not reach the service as a non-nil interface
	var attachments services.AttachmentStore
	if c.AttachmentsEnabled() {
		p, err := storage.NewS3Presigner(ctx, c)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("attachment storage init error: %w", err)
		}
		attachments = p
	}

	app := &App{
		config:      c,
		logger:      logger,
		db:          db,
		resolver:    auth.NewResolver(codec, rm.Users(db)),
		userService: services.NewUserService(db, rm, hasher, codec),
		itemService: services.NewItemService(db, rm, attachments),
	}

	if err := app.bootstrapAdmin(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return app, nil
}

func (app *App) bootstrapAdmin(ctx context.Context) error {
	c := app.config
	if c.BootstrapAdminUsername == "" || c.BootstrapAdminEmail == "" || c.BootstrapAdminPassword == "" {
		return nil
	}

	created, err := app.userService.BootstrapAdmin(ctx, c.BootstrapAdminUsername, c.BootstrapAdminEmail, c.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin error: %w", err)
	}
	if created {
		app.logger.Info(ctx, "Admin account created", "username", c.BootstrapAdminUsername)
	}
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := hs.New(app.config.HTTPAddr, hs.Deps{
		Users:    app.userService,
		Items:    app.itemService,
		Resolver: app.resolver,
		DB:       app.db,
		Logger:   app.logger,
		Info: hs.Info{
			AppName:     app.config.AppName,
			Version:     app.config.AppVersion,
			Environment: app.config.Environment,
		},
	})

	if err := s.Run(ctx, app.config.ShutdownTimeout); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.resolver)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or a listener fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "config", app.config)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.GRPCAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	return app.close()
}

func (app *App) close() error {
	if err := app.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("db close error: %w", err)
	}
	return nil
}
