package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pkgz/auth/token"

	"github.com/secretwall/internal/config"
	"github.com/secretwall/internal/domain"
	"github.com/secretwall/internal/httputil"
	"github.com/secretwall/internal/oauth"
	"github.com/secretwall/internal/paths"
	"github.com/secretwall/internal/session"
)

const (
	maxFormSize  = 64 << 10 // 64KB max form body
	readTimeout  = 15 * time.Second
	writeTimeout = 30 * time.Second // covers the OAuth code exchange
	idleTimeout  = 120 * time.Second

	ctxPrincipal = "user"
	ctxAccount   = "account"
)

// Deps are the collaborators the server routes requests to
type Deps struct {
	Accounts domain.AccountService
	Secrets  domain.SecretService
	Sessions *session.Manager
	Google   *oauth.Flow // nil when Google sign-in is disabled
	Logger   *slog.Logger
}

// Server wraps the HTTP server
type Server struct {
	config   *config.Config
	accounts domain.AccountService
	secrets  domain.SecretService
	sessions *session.Manager
	google   *oauth.Flow
	logger   *slog.Logger
	engine   *gin.Engine
	http     *http.Server
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, deps Deps) *Server {
	// Set Gin mode based on environment
	switch {
	case cfg.IsProduction():
		gin.SetMode(gin.ReleaseMode)
	case cfg.Environment == "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := gin.New()

	// Middleware - order matters
	engine.Use(gin.Recovery())
	engine.Use(securityHeadersMiddleware())
	engine.Use(cacheControlMiddleware())
	engine.Use(loggerMiddleware(logger))
	engine.Use(formBodyLimitMiddleware(maxFormSize))

	engine.SetHTMLTemplate(loadTemplates())

	server := &Server{
		config:   cfg,
		accounts: deps.Accounts,
		secrets:  deps.Secrets,
		sessions: deps.Sessions,
		google:   deps.Google,
		logger:   logger,
		engine:   engine,
	}

	engine.Use(server.sessionMiddleware())
	server.setupRoutes()

	addr := cfg.ServerAddress
	if addr == "" {
		addr = ":3000"
	}

	// Configure server with timeouts
	server.http = &http.Server{
		Addr:           addr,
		Handler:        engine,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	return server
}

// Handler exposes the engine, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP server and blocks until it stops. A server stopped by
// Shutdown returns nil.
func (s *Server) Run() error {
	s.logger.Info("http server listening", "address", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// securityHeadersMiddleware adds security-related HTTP headers
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		// Prevent MIME type sniffing
		h.Set("X-Content-Type-Options", "nosniff")
		// Prevent clickjacking
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' https:; style-src 'self' 'unsafe-inline'; form-action 'self'")
		// HSTS (only if using HTTPS)
		if c.Request.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// cacheControlMiddleware keeps personal pages and the auth flow out of caches
func cacheControlMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if path == paths.Secrets || strings.HasPrefix(path, paths.Submit) || strings.HasPrefix(path, "/auth/") {
			c.Writer.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Writer.Header().Set("Pragma", "no-cache")
			c.Writer.Header().Set("Expires", "0")
		}

		c.Next()
	}
}

// formBodyLimitMiddleware limits the size of form bodies to prevent DoS
func formBodyLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost && httputil.IsForm(c) {
			if c.Request.ContentLength > maxBytes {
				c.AbortWithStatus(http.StatusRequestEntityTooLarge)
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// loggerMiddleware logs HTTP requests once they complete
func loggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.InfoContext(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"remote_addr", c.ClientIP(),
		)
	}
}

// sessionMiddleware resolves the session cookie into a principal. Unknown or
// expired ids are cleared from the browser; the request continues
// unauthenticated.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := s.sessions.ReadCookie(c.Request)
		if id == "" {
			c.Next()
			return
		}

		principal, err := s.sessions.Lookup(c.Request.Context(), id)
		switch {
		case err == nil:
			c.Set(ctxPrincipal, principal)
		case errors.Is(err, domain.ErrSessionNotFound):
			s.sessions.ClearCookie(c.Writer)
		default:
			s.logger.ErrorContext(c.Request.Context(), "failed to load session", "error", err)
			s.renderError(c, http.StatusInternalServerError)
			c.Abort()
			return
		}

		c.Next()
	}
}

// requireAuth sends anonymous visitors to the login page and loads the
// stored user for everyone else. A principal whose user no longer exists
// ends the session.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := getUserFromContext(c)
		if !ok {
			httputil.RedirectTo(c, paths.Login)
			c.Abort()
			return
		}

		account, err := s.accounts.Resolve(c.Request.Context(), principal)
		if err != nil {
			if domain.IsNotFoundError(err) {
				s.logger.WarnContext(c.Request.Context(), "session principal no longer exists", "user_id", principal.ID)
				s.endSession(c)
				httputil.RedirectTo(c, paths.Login)
				c.Abort()
				return
			}
			s.logger.ErrorContext(c.Request.Context(), "failed to resolve session user", "user_id", principal.ID, "error", err)
			s.renderError(c, http.StatusInternalServerError)
			c.Abort()
			return
		}

		c.Set(ctxAccount, account)
		c.Next()
	}
}

// getUserFromContext extracts the authenticated principal from context
func getUserFromContext(c *gin.Context) (token.User, bool) {
	if user, exists := c.Get(ctxPrincipal); exists {
		if u, ok := user.(token.User); ok {
			return u, true
		}
	}
	return token.User{}, false
}

// currentAccount returns the user loaded by requireAuth
func currentAccount(c *gin.Context) *domain.User {
	if v, exists := c.Get(ctxAccount); exists {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}
