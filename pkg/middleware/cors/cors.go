package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edumarket/edumarket-api/pkg/config"
	"github.com/edumarket/edumarket-api/pkg/middleware/requestid"
)

// The portal surface uses GET/POST/PUT/DELETE only.
const allowMethods = "GET, POST, PUT, DELETE, OPTIONS"

const allowHeaders = "Authorization, Content-Type, " + requestid.Header

// New builds the browser-portal CORS policy from configuration. An empty
// origin list means the API is served same-origin behind the portal proxy
// and any caller is accepted.
func New(cfg config.CORSConfig) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowed[canonical(origin)] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case origin == "" && len(allowed) == 0:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && originAllowed(allowed, origin):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		c.Writer.Header().Set("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Headers", allowHeaders)
		c.Writer.Header().Set("Access-Control-Allow-Methods", allowMethods)
		c.Writer.Header().Set("Access-Control-Expose-Headers", requestid.Header)
		c.Writer.Header().Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func originAllowed(allowed map[string]struct{}, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[canonical(origin)]
	return ok
}

func canonical(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}
