package api

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"machine-dashboard-client/internal/render"
)

var loginTmpl = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Login</title></head>
<body style="font-family:sans-serif;padding:32px">
<h2>Live Production</h2>
{{if .}}<p style="color:#dc3545">{{.}}</p>{{end}}
<form method="post" action="/ui/session">
<p><input name="identity" placeholder="User"></p>
<p><input name="password" type="password" placeholder="Password"></p>
<p><button>Login</button></p>
</form>
</body>
</html>
`))

func writeLogin(c *gin.Context, status int, msg string) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := loginTmpl.Execute(c.Writer, msg); err != nil {
		log.WithError(err).Error("failed to render login page")
	}
}

// GetIndex handles GET /: the board for a logged-in session, the login
// form otherwise.
func (h *Handler) GetIndex(c *gin.Context) {
	if _, ok := h.currentSession(c); !ok {
		writeLogin(c, http.StatusOK, "")
		return
	}

	var f render.Filters
	_ = c.ShouldBindQuery(&f)
	view, _, err := h.dash.Board(c.Request.Context(), f)
	if err != nil {
		c.String(http.StatusServiceUnavailable, err.Error())
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := render.WriteHTML(c.Writer, view); err != nil {
		log.WithError(err).Error("failed to render board")
	}
}

// PostUISession handles the login form.
func (h *Handler) PostUISession(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		writeLogin(c, http.StatusBadRequest, "User and password are required")
		return
	}
	if _, status, err := h.login(c, req); err != nil {
		writeLogin(c, status, err.Error())
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// PostUILogout handles the logout button.
func (h *Handler) PostUILogout(c *gin.Context) {
	if err := h.logout(c); err != nil {
		log.WithError(err).Warn("logout failed")
	}
	c.Redirect(http.StatusSeeOther, "/")
}

type uiActionRequest struct {
	machineActionRequest
	Action string `form:"action" binding:"required"`
}

// PostUIMachine handles the per-card control forms.
func (h *Handler) PostUIMachine(c *gin.Context) {
	if _, ok := h.currentSession(c); !ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	var req uiActionRequest
	if err := c.ShouldBind(&req); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.runAction(c.Request.Context(), req.Action, req.machineActionRequest); err != nil {
		// The failure is already on the alert feed shown with the board.
		log.WithError(err).Warn("ui action failed")
	}
	c.Redirect(http.StatusSeeOther, "/")
}
