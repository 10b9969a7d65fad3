package middleware

import (
	"strings"

	"hms/errors"
	"hms/response"
	"hms/services"

	"github.com/gin-gonic/gin"
)

// bearerToken tách token khỏi header Authorization
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// roleAllowed danh sách rỗng nghĩa là chỉ cần đăng nhập
func roleAllowed(role int, allowed []int) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// AuthMiddleware chặn request không có token hợp lệ và giới hạn theo
// cấp quản lý ký túc xá (superadmin/admin/lễ tân). userID và userRole
// được đặt vào context cho handler phía sau.
func AuthMiddleware(roles ...int) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Unauthorized(c)
			c.Abort()
			return
		}

		userID, userRole, err := services.GetUserIDFromToken(token)
		if err != nil {
			response.Unauthorized(c)
			c.Abort()
			return
		}

		if !roleAllowed(userRole, roles) {
			response.Forbidden(c)
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Set("userRole", userRole)
		c.Next()
	}
}

// RoleMiddleware phân quyền trên role đã được AuthMiddleware đặt vào
// context, dùng khi một nhóm route đã xác thực chung nhưng từng route
// mở cho cấp khác nhau
func RoleMiddleware(roles ...int) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get("userRole")
		if !exists {
			response.Unauthorized(c)
			c.Abort()
			return
		}

		if !roleAllowed(v.(int), roles) {
			response.Forbidden(c)
			c.Abort()
			return
		}

		c.Next()
	}
}

// ErrorHandler đổi AppError cuối chuỗi thành envelope lỗi chuẩn
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		if appErr := errors.GetAppError(c.Errors.Last().Err); appErr != nil {
			response.Error(c, 0, appErr.Message)
			return
		}
		response.ServerError(c)
	}
}
