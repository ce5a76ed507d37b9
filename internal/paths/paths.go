package paths

// Page and form paths. Used by routes, handlers, templates and tests.

const (
	Home     = "/"
	Login    = "/login"
	Register = "/register"
	Logout   = "/logout"
	Secrets  = "/secrets"
	Submit   = "/submit"
	Health   = "/healthz"

	SubmitDelete = Submit + "/delete"

	GoogleAuth     = "/auth/google"
	GoogleCallback = GoogleAuth + "/secrets"
)
