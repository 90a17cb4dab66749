package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextUserID là key lưu user id (uuid.UUID) trong gin.Context
const ContextUserID = "user_id"

// TokenVerifier trả về user id trong token; ok=false nếu token sai hoặc hết hạn
type TokenVerifier interface {
	VerifyToken(token string) (userID uuid.UUID, ok bool)
}

func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}

		userID, ok := verifier.VerifyToken(tokenString)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		// Lưu thông tin vào context để controller dùng
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// tokenFromRequest đọc Authorization trước, sau đó tới x-access-token.
// Chấp nhận cả "Bearer <token>" lẫn token trần.
func tokenFromRequest(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		header = c.GetHeader("x-access-token")
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}

	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	if len(parts) == 1 && !strings.EqualFold(parts[0], "bearer") {
		return parts[0]
	}
	return ""
}
