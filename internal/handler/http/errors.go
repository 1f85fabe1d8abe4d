package http

import (
	"errors"
	"net/http"

	"github.com/sujal-2301/SyncCanvasLab/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HandleServiceError 把 Service 层错误映射为 HTTP 状态码和对外消息。
// 格式错误和房间不存在都返回 404，和房间码校验接口的约定一致。
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRoomCode),
		errors.Is(err, service.ErrRoomCodeLength),
		errors.Is(err, service.ErrRoomNotFound):
		ErrorResponse(c, http.StatusNotFound, service.PublicMessage(err))
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, service.PublicMessage(err))
	}
}
