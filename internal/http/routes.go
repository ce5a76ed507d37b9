package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secretwall/internal/paths"
)

// setupRoutes configures all page and form routes
func (s *Server) setupRoutes() {
	// Health check endpoint (no auth required)
	s.engine.GET(paths.Health, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "secretwall",
		})
	})

	// Public pages
	s.engine.GET(paths.Home, s.homePage)
	s.engine.GET(paths.Login, s.loginPage)
	s.engine.GET(paths.Register, s.registerPage)

	// Local accounts
	s.engine.POST(paths.Register, s.register)
	s.engine.POST(paths.Login, s.login)
	s.engine.GET(paths.Logout, s.logout)

	// Google sign-in
	s.engine.GET(paths.GoogleAuth, s.googleStart)
	s.engine.GET(paths.GoogleCallback, s.googleCallback)

	// Pages behind a session
	authed := s.engine.Group("")
	authed.Use(s.requireAuth())
	{
		authed.GET(paths.Secrets, s.secretsPage)
		authed.GET(paths.Submit, s.submitPage)
		authed.POST(paths.Submit, s.submitSecret)
		authed.POST(paths.SubmitDelete, s.deleteSecret)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		s.render(c, http.StatusNotFound, "error.html", gin.H{"Message": "Page not found."})
	})
}
