// Package http exposes the items API over HTTP/JSON.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/itemsapi/internal/logging"
	"github.com/dmitrijs2005/itemsapi/internal/server/models"
	"github.com/dmitrijs2005/itemsapi/internal/server/services"
)

type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.Token, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, page services.Page) ([]*models.User, error)
	Update(ctx context.Context, caller *models.Identity, id int64, in services.UpdateUserInput) (*models.User, error)
	Delete(ctx context.Context, caller *models.Identity, id int64) (*models.User, error)
}

type ItemService interface {
	Create(ctx context.Context, caller *models.Identity, in services.CreateItemInput) (*models.Item, error)
	Get(ctx context.Context, id int64) (*models.Item, error)
	List(ctx context.Context, page services.Page, ownerID *int64) ([]*models.Item, error)
	Update(ctx context.Context, caller *models.Identity, id int64, in services.UpdateItemInput) (*models.Item, error)
	Delete(ctx context.Context, caller *models.Identity, id int64) (*models.Item, error)
	CreateAttachmentUpload(ctx context.Context, caller *models.Identity, id int64) (*models.AttachmentUpload, error)
	AttachmentURL(ctx context.Context, id int64) (string, error)
}

// IdentityResolver turns a bearer token into the calling identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*models.Identity, error)
}

// Pinger reports database reachability; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Info is reported by the root endpoint.
type Info struct {
	AppName     string `json:"app_name"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type Deps struct {
	Users    UserService
	Items    ItemService
	Resolver IdentityResolver
	DB       Pinger
	Logger   logging.Logger
	Info     Info
}

type Server struct {
	httpServer *http.Server
	logger     logging.Logger
}

func New(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logging.Nop{}
	}
	logger := deps.Logger.With("module", "http_server")
	deps.Logger = logger

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           loggingMiddleware(logger, NewHandler(deps)),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler builds the route table. It is exported for tests, which serve it
// through httptest without a listener.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = logging.Nop{}
	}
	h := &handlers{deps: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.root)
	mux.HandleFunc("GET /api/health", h.health)
	mux.HandleFunc("POST /api/auth/login", h.login)

	mux.HandleFunc("POST /api/users", h.registerUser)
	mux.HandleFunc("GET /api/users", h.requireIdentity(h.listUsers))
	mux.HandleFunc("GET /api/users/me", h.requireIdentity(h.me))
	mux.HandleFunc("GET /api/users/{id}", h.requireIdentity(h.getUser))
	mux.HandleFunc("PUT /api/users/{id}", h.requireIdentity(h.updateUser))
	mux.HandleFunc("DELETE /api/users/{id}", h.requireIdentity(h.deleteUser))

	mux.HandleFunc("POST /api/items", h.requireIdentity(h.createItem))
	mux.HandleFunc("GET /api/items", h.listItems)
	mux.HandleFunc("GET /api/items/{id}", h.getItem)
	mux.HandleFunc("PUT /api/items/{id}", h.requireIdentity(h.updateItem))
	mux.HandleFunc("DELETE /api/items/{id}", h.requireIdentity(h.deleteItem))
	mux.HandleFunc("POST /api/items/{id}/attachment", h.requireIdentity(h.createAttachment))
	mux.HandleFunc("GET /api/items/{id}/attachment", h.getAttachment)

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.httpServer.Addr)
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
