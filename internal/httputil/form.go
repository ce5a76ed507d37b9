package httputil

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RedirectAfterPost answers a form submission with 303 so the browser
// follows up with a GET
func RedirectAfterPost(c *gin.Context, location string) {
	c.Redirect(http.StatusSeeOther, location)
}

// Redirect sends a plain 302 redirect
func Redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusFound, location)
}

// RedirectTo picks 303 for unsafe methods and 302 otherwise
func RedirectTo(c *gin.Context, location string) {
	if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
		Redirect(c, location)
		return
	}
	RedirectAfterPost(c, location)
}

// Credentials extracts the username and password fields of a login or
// registration form. The password is never trimmed.
func Credentials(c *gin.Context) (username, password string) {
	return strings.TrimSpace(c.PostForm("username")), c.PostForm("password")
}

// IsForm reports whether the request carries an urlencoded or multipart body
func IsForm(c *gin.Context) bool {
	ct := c.GetHeader("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}
