package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/group"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/question"
)

type ServerDeps struct {
	Logger      core.Logger
	IdentitySvc *identity.Service
	AccountSvc  *account.Service
	Engine      *account.Engine
	QuestionSvc *question.Service
	GroupSvc    *group.Service
	Admins      *account.AdminDirectory
	Google      *GoogleAuthenticator // optional
	Redis       *redis.Client        // optional; disables rate limiting when nil
}

type Server struct {
	deps       ServerDeps
	app        *echo.Echo
	errCh      chan error
	shutdownCh chan os.Signal
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:       deps,
		app:        echo.New(),
		errCh:      make(chan error, 1),
		shutdownCh: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	appJWTConfig.SigningKey = core.Conf.SecretKey

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !core.Conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)
	limiter := rateLimitMiddleware(s.deps.Redis, 20, 10*time.Second)

	registerAuthAPI(v1, jwt, limiter, s.deps.IdentitySvc, s.deps.AccountSvc, s.deps.Engine, s.deps.Admins, s.deps.Google)
	registerAccountAPI(v1, jwt, s.deps.IdentitySvc, s.deps.AccountSvc, s.deps.Engine)
	registerQuestionAPI(v1, jwt, s.deps.QuestionSvc, s.deps.IdentitySvc, s.deps.Engine)
	registerGroupAPI(v1, jwt, s.deps.GroupSvc, s.deps.IdentitySvc, s.deps.Engine)
}

func (s *Server) Start() {
	s.errCh <- s.app.Start(core.Conf.Server.Addr)
}

// Errors reports a fatal listener error.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// ShutdownSignal fires on SIGINT/SIGTERM or an internal shutdown error.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdownCh
}

func (s *Server) signalShutdown() {
	s.shutdownCh <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Tutorium Hub API!")
}
