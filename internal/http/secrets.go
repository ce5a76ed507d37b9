package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secretwall/internal/domain"
	"github.com/secretwall/internal/httputil"
	"github.com/secretwall/internal/paths"
)

// submitSecret appends the posted secret to the viewer's list
func (s *Server) submitSecret(c *gin.Context) {
	ctx := c.Request.Context()
	account := currentAccount(c)

	if err := s.secrets.Submit(ctx, account.ID, c.PostForm("secret")); err != nil {
		if domain.IsValidationError(err) {
			httputil.RedirectAfterPost(c, paths.Submit)
			return
		}
		s.logger.ErrorContext(ctx, "failed to submit secret", "user_id", account.ID, "error", err)
		s.renderError(c, http.StatusInternalServerError)
		return
	}

	httputil.RedirectAfterPost(c, paths.Secrets)
}

// deleteSecret removes the first exact match of the posted secret. A secret
// that is not in the list changes nothing.
func (s *Server) deleteSecret(c *gin.Context) {
	ctx := c.Request.Context()
	account := currentAccount(c)

	if _, err := s.secrets.Remove(ctx, account.ID, c.PostForm("secret")); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete secret", "user_id", account.ID, "error", err)
		s.renderError(c, http.StatusInternalServerError)
		return
	}

	httputil.RedirectAfterPost(c, paths.Secrets)
}
