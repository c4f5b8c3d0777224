package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
)

const authContextKey = "auth_context"

// Auth validates the bearer token via validator (the opaque/JWT dispatcher)
// and stores the resolved entity.AuthContext for handlers to read with
// AuthFromContext. It never parses tokens itself — the validator already
// hides the opaque-vs-JWT distinction behind one interface.
func Auth(validator port.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, entity.ErrUnauthorized)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, entity.ErrUnauthorized)
			return
		}

		ac, err := validator.Validate(c.Request.Context(), parts[1])
		if err != nil {
			abortUnauthorized(c, err)
			return
		}

		c.Set(authContextKey, ac)
		c.Next()
	}
}

// AuthFromContext returns the authenticated caller's identity. Only valid
// within a handler chain behind Auth().
func AuthFromContext(c *gin.Context) (*entity.AuthContext, bool) {
	val, exists := c.Get(authContextKey)
	if !exists {
		return nil, false
	}
	ac, ok := val.(*entity.AuthContext)
	return ac, ok
}

func abortUnauthorized(c *gin.Context, err error) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"type":   "about:blank",
		"title":  "Unauthorized",
		"status": http.StatusUnauthorized,
		"detail": err.Error(),
	})
}
