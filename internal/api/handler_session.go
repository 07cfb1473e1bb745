package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"machine-dashboard-client/internal/model"
	"machine-dashboard-client/internal/mw"
	"machine-dashboard-client/internal/session"
)

var log = logrus.WithField("component", "api")

type loginRequest struct {
	Identity string `json:"identity" form:"identity" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context, req loginRequest) (model.Session, int, error) {
	sess, err := h.sessions.Login(c.Request.Context(), req.Identity, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			return sess, http.StatusUnauthorized, err
		}
		return sess, http.StatusInternalServerError, err
	}
	if err := h.dash.SetSession(c.Request.Context(), sess); err != nil {
		return sess, http.StatusServiceUnavailable, err
	}
	c.SetCookie(mw.SessionCookie, sess.Identity, 0, "/", "", false, true)
	return sess, http.StatusOK, nil
}

func (h *Handler) logout(c *gin.Context) error {
	ctx := c.Request.Context()
	if identity := mw.Identity(c); identity != "" {
		if err := h.sessions.Logout(ctx, identity); err != nil {
			return err
		}
	}
	c.SetCookie(mw.SessionCookie, "", -1, "/", "", false, true)
	return h.dash.Logout(ctx)
}

// PostSession handles POST /api/session.
func (h *Handler) PostSession(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, status, err := h.login(c, req)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// GetSession handles GET /api/session.
func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess)
}

// DeleteSession handles DELETE /api/session.
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.logout(c); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
