package auth

import "github.com/gin-gonic/gin"

const (
	ctxAccountID = "accountID"
	ctxActor     = "actor"
)

// GetAccountID returns the authenticated account's ID or empty string.
func GetAccountID(c *gin.Context) string {
	if v, ok := c.Get(ctxAccountID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// SetActor stores the resolved Actor into the Gin context.
func SetActor(c *gin.Context, a Actor) {
	c.Set(ctxActor, a)
}

// GetActor returns the resolved Actor for the request, if any.
func GetActor(c *gin.Context) (Actor, bool) {
	if v, ok := c.Get(ctxActor); ok {
		if a, ok := v.(Actor); ok {
			return a, true
		}
	}
	return Actor{}, false
}
