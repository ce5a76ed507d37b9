package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secretwall/internal/domain"
	"github.com/secretwall/internal/httputil"
	"github.com/secretwall/internal/oauth"
	"github.com/secretwall/internal/paths"
)

// register creates a local account and logs it in
func (s *Server) register(c *gin.Context) {
	ctx := c.Request.Context()
	username, password := httputil.Credentials(c)

	user, err := s.accounts.Register(ctx, username, password)
	if err != nil {
		if domain.IsConflictError(err) || domain.IsValidationError(err) {
			s.logger.InfoContext(ctx, "registration rejected", "reason", domain.PublicMessage(err))
			httputil.RedirectAfterPost(c, paths.Register)
			return
		}
		s.logger.ErrorContext(ctx, "registration failed", "error", err)
		s.renderError(c, http.StatusInternalServerError)
		return
	}

	if !s.startSession(c, user) {
		return
	}
	httputil.RedirectAfterPost(c, paths.Secrets)
}

// login checks local credentials. Any failure goes back to the login form.
func (s *Server) login(c *gin.Context) {
	ctx := c.Request.Context()
	username, password := httputil.Credentials(c)

	user, err := s.accounts.Login(ctx, username, password)
	if err != nil {
		if domain.IsAuthError(err) {
			s.logger.WarnContext(ctx, "login failed", "username", username)
			httputil.RedirectAfterPost(c, paths.Login)
			return
		}
		s.logger.ErrorContext(ctx, "login failed", "username", username, "error", err)
		s.renderError(c, http.StatusInternalServerError)
		return
	}

	if !s.startSession(c, user) {
		return
	}
	httputil.RedirectAfterPost(c, paths.Secrets)
}

// logout destroys the server-side session before redirecting home
func (s *Server) logout(c *gin.Context) {
	if !s.endSession(c) {
		s.renderError(c, http.StatusInternalServerError)
		return
	}
	httputil.Redirect(c, paths.Home)
}

// googleStart redirects to the Google consent screen
func (s *Server) googleStart(c *gin.Context) {
	if s.google == nil {
		httputil.Redirect(c, paths.Login)
		return
	}

	authURL, state, err := s.google.Begin()
	if err != nil {
		s.logger.ErrorContext(c.Request.Context(), "failed to start google sign-in", "error", err)
		httputil.Redirect(c, paths.Login)
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     oauth.StateCookieName,
		Value:    state,
		Path:     paths.GoogleAuth,
		MaxAge:   int(s.google.StateTTL().Seconds()),
		HttpOnly: true,
		Secure:   s.config.Session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.Redirect(c, authURL)
}

// googleCallback finishes the Google flow. Every failure lands on /login.
func (s *Server) googleCallback(c *gin.Context) {
	ctx := c.Request.Context()
	if s.google == nil {
		httputil.Redirect(c, paths.Login)
		return
	}

	stateCookie, _ := c.Cookie(oauth.StateCookieName)
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     oauth.StateCookieName,
		Path:     paths.GoogleAuth,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.Session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	if providerErr := c.Query("error"); providerErr != "" {
		s.logger.WarnContext(ctx, "google sign-in refused by provider", "error", providerErr)
		httputil.Redirect(c, paths.Login)
		return
	}

	profile, err := s.google.Complete(ctx, stateCookie, c.Query("state"), c.Query("code"))
	if err != nil {
		s.logger.WarnContext(ctx, "google sign-in failed", "error", err)
		httputil.Redirect(c, paths.Login)
		return
	}

	user, err := s.accounts.LoginWithGoogle(ctx, profile)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to find or create google user", "error", err)
		httputil.Redirect(c, paths.Login)
		return
	}

	if !s.startSession(c, user) {
		return
	}
	httputil.Redirect(c, paths.Secrets)
}

// startSession replaces any current session with a fresh one for user. On
// failure an error page has already been written.
func (s *Server) startSession(c *gin.Context, user *domain.User) bool {
	ctx := c.Request.Context()
	if !s.destroyPresentedSession(c) {
		s.renderError(c, http.StatusInternalServerError)
		return false
	}

	sess, err := s.sessions.Create(ctx, user.Principal())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create session", "user_id", user.ID, "error", err)
		s.renderError(c, http.StatusInternalServerError)
		return false
	}

	s.sessions.WriteCookie(c.Writer, sess)
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "user", user.DisplayName())
	return true
}

// endSession destroys the presented session and clears the cookie
func (s *Server) endSession(c *gin.Context) bool {
	if !s.destroyPresentedSession(c) {
		return false
	}
	s.sessions.ClearCookie(c.Writer)
	return true
}

// destroyPresentedSession deletes the session named by the request cookie,
// if any, so an id issued before login is never reused after it
func (s *Server) destroyPresentedSession(c *gin.Context) bool {
	id := s.sessions.ReadCookie(c.Request)
	if id == "" {
		return true
	}

	if err := s.sessions.Destroy(c.Request.Context(), id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		s.logger.ErrorContext(c.Request.Context(), "failed to destroy session", "error", err)
		return false
	}
	return true
}
