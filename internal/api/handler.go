package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"machine-dashboard-client/internal/dashboard"
	"machine-dashboard-client/internal/model"
	"machine-dashboard-client/internal/mw"
	"machine-dashboard-client/internal/session"
	"machine-dashboard-client/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	dash     *dashboard.Dashboard
	sessions *session.Manager
	store    store.Store
	webpush  *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(dash *dashboard.Dashboard, sessions *session.Manager, s store.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		dash:     dash,
		sessions: sessions,
		store:    s,
		webpush:  webpushOptions,
	}
}

// currentSession returns the dashboard's session. When the dashboard has
// none but the request carries an identity cookie, the persisted session
// is restored first.
func (h *Handler) currentSession(c *gin.Context) (model.Session, bool) {
	ctx := c.Request.Context()
	sess, err := h.dash.Session(ctx)
	if err != nil {
		return model.Session{}, false
	}

	identity := mw.Identity(c)
	if identity == "" {
		return model.Session{}, false
	}
	if sess.Identity == identity {
		return sess, true
	}

	restored, err := h.sessions.Restore(ctx, identity)
	if err != nil {
		if !errors.Is(err, store.ErrSessionNotFound) {
			log.WithError(err).Warn("failed to restore session")
		}
		return model.Session{}, false
	}
	if err := h.dash.SetSession(ctx, restored); err != nil {
		return model.Session{}, false
	}
	return restored, true
}

// requireSession aborts with 401 when there is no session.
func (h *Handler) requireSession(c *gin.Context) (model.Session, bool) {
	sess, ok := h.currentSession(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
	}
	return sess, ok
}
