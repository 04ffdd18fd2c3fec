package handlers

import (
	"github.com/gin-gonic/gin"

	"moim/internal/middleware"
)

// tolerant to how the middleware stored the id (int / int64 / float64)
func getUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.ContextUserID)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	}
	return 0, false
}
