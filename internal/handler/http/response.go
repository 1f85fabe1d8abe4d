package http

import "github.com/gin-gonic/gin"

// ErrorResponse 返回 {success:false, error} 结构
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "error": message})
}

// SuccessResponse 返回 {success:true, <key>: data} 结构
func SuccessResponse(c *gin.Context, code int, key string, data interface{}) {
	c.JSON(code, gin.H{"success": true, key: data})
}
