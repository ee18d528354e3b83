package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header is the request id header honored on ingress and echoed on egress.
const Header = "X-Request-ID"

const contextKey = "request_id"

const maxClientIDLen = 64

// Middleware tags every request with an id. Client-supplied ids are kept so a
// submission can be correlated across the access log and the notification
// dispatcher; anything missing or oversized gets a fresh uuid.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" || len(id) > maxClientIDLen {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)

		c.Next()
	}
}

// Value returns the id assigned to the current request, or "" outside the
// middleware chain.
func Value(c *gin.Context) string {
	return c.GetString(contextKey)
}
