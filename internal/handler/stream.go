package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stockwatch/internal/auth"
	"stockwatch/internal/stream"
)

type StreamHandler struct {
	Hub        *stream.Hub
	Tokens     auth.JWT
	CookieName string
	Logger     *zap.Logger
}

func (h *StreamHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/stream", auth.RequireUser(h.Tokens, h.CookieName), h.serve)
}

// @Summary Live check and alert events (websocket)
// @Tags stream
// @Success 101
// @Router /api/v1/stream [get]
func (h *StreamHandler) serve(c *gin.Context) {
	if h.Hub == nil {
		Error(c, http.StatusServiceUnavailable, "stream unavailable", nil)
		return
	}
	id, ok := auth.IdentityFromGin(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "not authenticated", nil)
		return
	}
	if err := h.Hub.Serve(c.Request.Context(), c.Writer, c.Request, id.UserID, h.Logger); err != nil && h.Logger != nil {
		h.Logger.Debug("stream upgrade failed", zap.Uint64("user_id", id.UserID), zap.Error(err))
	}
}
