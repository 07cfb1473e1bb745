package mw

import "github.com/gin-gonic/gin"

// SessionCookie holds the identity of the logged-in dashboard user.
const SessionCookie = "dashboard_identity"

// Identity returns the session identity carried by the request, if any.
func Identity(c *gin.Context) string {
	id, err := c.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return id
}

// ClientKey identifies the caller for rate limiting and caching: the
// session identity when there is one, the client IP otherwise.
func ClientKey(c *gin.Context) string {
	if id := Identity(c); id != "" {
		return "id:" + id
	}
	return "ip:" + c.ClientIP()
}
