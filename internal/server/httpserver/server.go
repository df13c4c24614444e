// Package httpserver exposes the auth flows over HTTP with cookie based
// session transport.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/authbridge/internal/logging"
	"github.com/dmitrijs2005/authbridge/internal/server/config"
	"github.com/dmitrijs2005/authbridge/internal/server/models"
	"github.com/dmitrijs2005/authbridge/internal/server/services"
)

// AuthService is what the handlers need from services.AuthService.
type AuthService interface {
	SignUp(ctx context.Context, email, password, name string) (*models.User, error)
	VerifyEmail(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string) (*services.Session, error)
	RefreshToken(ctx context.Context, refreshToken, username, previousAccessToken string) (string, error)
	CurrentUser(ctx context.Context, accessToken string) (map[string]string, error)
}

const shutdownTimeout = 10 * time.Second

type HTTPServer struct {
	address      string
	auth         AuthService
	logger       logging.Logger
	cookieSecure bool
	origins      []string
	engine       *gin.Engine
}

func NewHTTPServer(cfg *config.Config, l logging.Logger, auth AuthService) *HTTPServer {
	s := &HTTPServer{
		address:      cfg.EndpointAddrHTTP,
		auth:         auth,
		logger:       l.With("module", "http_server"),
		cookieSecure: cfg.CookieSecure,
		origins:      cfg.CORSAllowedOrigins,
	}
	s.engine = s.newRouter()
	return s
}

// Handler returns the configured router.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-stopped
	return nil
}
