package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery bắt panic và trả về JSON 500. Stack trace chỉ hiện ngoài production.
func Recovery(production bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		// gin đã ghi log panic ra DefaultErrorWriter
		body := gin.H{"error": "Internal server error"}
		if !production {
			body["details"] = fmt.Sprint(recovered)
			body["stack"] = string(debug.Stack())
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}
