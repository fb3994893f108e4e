package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/payu-bridge/internal/logger"
	"github.com/payu-bridge/internal/payment/payu"
	"github.com/payu-bridge/internal/service"

	"github.com/gin-gonic/gin"
)

// 回调响应体是网关约定的纯文本，不走统一 JSON 封装。

// PaymentWebhook 网关回调入口。
// 验签失败、报文畸形与对账失败统一返回 500，不向网关泄露细节。
func (h *Handler) PaymentWebhook(c *gin.Context) {
	channelID, err := strconv.ParseUint(c.Param("channel_id"), 10, 64)
	if err != nil || channelID == 0 {
		c.String(http.StatusInternalServerError, "not ok")
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.String(http.StatusInternalServerError, "not ok")
		return
	}

	input := service.NotificationInput{
		ChannelID:       uint(channelID),
		SignatureHeader: c.GetHeader(payu.SignatureHeader),
		Body:            body,
	}
	if err := h.PaymentService.HandleNotification(input); err != nil {
		logger.Warnw("payment_webhook_rejected",
			"channel_id", channelID,
			"error", err,
		)
		c.String(http.StatusInternalServerError, "not ok")
		return
	}
	c.String(http.StatusOK, "ok")
}
