package http

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secretwall/internal/paths"
)

//go:embed templates/*.html
var templateFS embed.FS

func loadTemplates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"path": func(name string) string { return pagePaths[name] },
	}).ParseFS(templateFS, "templates/*.html"))
}

// pagePaths lets templates link to routes without hard-coding them
var pagePaths = map[string]string{
	"home":          paths.Home,
	"login":         paths.Login,
	"register":      paths.Register,
	"logout":        paths.Logout,
	"secrets":       paths.Secrets,
	"submit":        paths.Submit,
	"submit_delete": paths.SubmitDelete,
	"google":        paths.GoogleAuth,
}

// render executes a page template with the fields every page needs
func (s *Server) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	_, data["LoggedIn"] = getUserFromContext(c)
	data["GoogleEnabled"] = s.google != nil
	c.HTML(status, name, data)
}

// renderError shows a generic error page; details stay in the log
func (s *Server) renderError(c *gin.Context, status int) {
	s.render(c, status, "error.html", gin.H{"Message": "Something went wrong. Please try again later."})
}

func (s *Server) homePage(c *gin.Context) {
	s.render(c, http.StatusOK, "home.html", nil)
}

func (s *Server) loginPage(c *gin.Context) {
	s.render(c, http.StatusOK, "login.html", nil)
}

func (s *Server) registerPage(c *gin.Context) {
	s.render(c, http.StatusOK, "register.html", nil)
}

// secretsPage lists the secrets of every user who has any
func (s *Server) secretsPage(c *gin.Context) {
	wall, err := s.secrets.Wall(c.Request.Context())
	if err != nil {
		s.logger.ErrorContext(c.Request.Context(), "failed to load secrets wall", "error", err)
		s.renderError(c, http.StatusInternalServerError)
		return
	}

	s.render(c, http.StatusOK, "secrets.html", gin.H{"Wall": wall})
}

// submitPage shows the form plus the viewer's own secrets with delete buttons
func (s *Server) submitPage(c *gin.Context) {
	own, err := s.secrets.Own(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		s.logger.ErrorContext(c.Request.Context(), "failed to load own secrets", "error", err)
		s.renderError(c, http.StatusInternalServerError)
		return
	}

	s.render(c, http.StatusOK, "submit.html", gin.H{"Secrets": own})
}
