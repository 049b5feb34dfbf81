package mw

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"casework-backend/internal/identity"
)

const (
	HeaderUserID     = identity.HeaderUserID
	HeaderLocationID = identity.HeaderLocationID

	userIDKey     = "userID"
	locationIDKey = "locationID"
)

// Identity reads the caller identity headers. Requests that change state
// must name the acting user; reads may be anonymous.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" && mutating(c.Request.Method) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "x-user-id header is required",
			})
			return
		}
		c.Set(userIDKey, userID)
		c.Set(locationIDKey, c.GetHeader(HeaderLocationID))
		c.Next()
	}
}

// UserID returns the acting user set by Identity.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// LocationID returns the active location set by Identity.
func LocationID(c *gin.Context) string {
	return c.GetString(locationIDKey)
}

func mutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
