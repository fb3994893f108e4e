package handlers

import (
	"errors"
	"strconv"

	"github.com/payu-bridge/internal/http/response"
	"github.com/payu-bridge/internal/models"
	"github.com/payu-bridge/internal/payment/payu"
	"github.com/payu-bridge/internal/queue"
	"github.com/payu-bridge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type paymentItemRequest struct {
	Name      string `json:"name" binding:"required"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price" binding:"required"`
}

type createPaymentRequest struct {
	ChannelID   uint                 `json:"channel_id" binding:"required"`
	Description string               `json:"description" binding:"required"`
	Currency    string               `json:"currency" binding:"required"`
	Items       []paymentItemRequest `json:"items" binding:"required"`
	FirstName   string               `json:"first_name"`
	LastName    string               `json:"last_name"`
	Email       string               `json:"email"`
	Phone       string               `json:"phone"`
	Language    string               `json:"language"`
}

type refundRequest struct {
	Amount string `json:"amount"`
}

// CreatePayment 创建支付单
func (h *Handler) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	items := make([]service.PaymentItem, 0, len(req.Items))
	for _, item := range req.Items {
		price, err := decimal.NewFromString(item.UnitPrice)
		if err != nil || price.IsNegative() {
			response.BadRequest(c, "invalid item unit price")
			return
		}
		items = append(items, service.PaymentItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: models.NewMoneyFromDecimal(price),
		})
	}

	result, err := h.PaymentService.CreatePayment(service.CreatePaymentInput{
		ChannelID:   req.ChannelID,
		Description: req.Description,
		Currency:    req.Currency,
		Items:       items,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Language:    req.Language,
		CustomerIP:  c.ClientIP(),
		Context:     c.Request.Context(),
	})
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}
	response.Success(c, gin.H{
		"payment":      paymentView(result.Payment),
		"outcome":      result.Outcome,
		"redirect_url": result.RedirectURL,
	})
}

// GetPayment 查询支付单
func (h *Handler) GetPayment(c *gin.Context) {
	payment, err := h.PaymentService.GetPayment(c.Param("token"))
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}
	response.Success(c, gin.H{"payment": paymentView(payment)})
}

// RefundPayment 发起退款
func (h *Handler) RefundPayment(c *gin.Context) {
	var req refundRequest
	// 请求体可为空，空表示全额退款
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}
	input := service.RefundInput{
		Token:   c.Param("token"),
		Context: c.Request.Context(),
	}
	if req.Amount != "" {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || !amount.IsPositive() {
			response.BadRequest(c, "invalid refund amount")
			return
		}
		money := models.NewMoneyFromDecimal(amount)
		input.Amount = &money
	}
	payment, err := h.PaymentService.Refund(input)
	if err != nil {
		h.respondRefundError(c, err)
		return
	}
	response.Success(c, gin.H{"payment": paymentView(payment)})
}

// CancelPayment 取消支付单
func (h *Handler) CancelPayment(c *gin.Context) {
	payment, err := h.PaymentService.CancelPayment(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}
	response.Success(c, gin.H{"payment": paymentView(payment)})
}

// DeleteCardToken 删除支付单关联的卡令牌
func (h *Handler) DeleteCardToken(c *gin.Context) {
	if err := h.PaymentService.DeleteCardToken(c.Request.Context(), c.Param("token")); err != nil {
		h.respondPaymentError(c, err)
		return
	}
	response.Success(c, nil)
}

// RenewPayment 触发自动续费扣款。
// 队列可用时异步执行，否则同步调用网关。
func (h *Handler) RenewPayment(c *gin.Context) {
	token := c.Param("token")
	if h.QueueClient.Enabled() {
		err := h.QueueClient.EnqueuePaymentAutoRenew(queue.PaymentAutoRenewPayload{PaymentToken: token}, 0)
		if err != nil {
			response.Internal(c, "enqueue renew task failed")
			return
		}
		response.Success(c, gin.H{"queued": true})
		return
	}
	result, err := h.PaymentService.AutoRenew(c.Request.Context(), token)
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}
	response.Success(c, gin.H{"queued": false, "outcome": result.Outcome})
}

// PaymentWidget 获取结账组件参数
func (h *Handler) PaymentWidget(c *gin.Context) {
	params, err := h.PaymentService.WidgetParams(c.Param("token"))
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}
	response.Success(c, gin.H{"widget": params})
}

// ChannelPayMethods 查询渠道可用支付方式
func (h *Handler) ChannelPayMethods(c *gin.Context) {
	channelID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || channelID == 0 {
		response.BadRequest(c, "invalid channel id")
		return
	}
	methods, err := h.PaymentService.PayMethods(c.Request.Context(), uint(channelID))
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}
	response.Success(c, methods)
}

func (h *Handler) respondPaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPaymentInvalid):
		response.BadRequest(c, "invalid payment request")
	case errors.Is(err, service.ErrPaymentNotFound):
		response.NotFound(c, "payment not found")
	case errors.Is(err, service.ErrPaymentStatusInvalid):
		response.BadRequest(c, "payment status does not allow this operation")
	case errors.Is(err, service.ErrChannelNotFound):
		response.NotFound(c, "channel not found")
	case errors.Is(err, service.ErrChannelDisabled):
		response.BadRequest(c, "channel disabled")
	case errors.Is(err, service.ErrChannelConfigInvalid):
		response.Internal(c, "channel config invalid")
	case errors.Is(err, service.ErrRenewTokenMissing):
		response.BadRequest(c, "payment has no stored card token")
	case errors.Is(err, payu.ErrAuthExhausted):
		response.Internal(c, "gateway authorization exhausted")
	default:
		response.Internal(c, "internal error")
	}
}

func (h *Handler) respondRefundError(c *gin.Context, err error) {
	var rejected *payu.RefundRejectedError
	switch {
	case errors.As(err, &rejected):
		response.BadRequest(c, rejected.Error())
	case errors.Is(err, payu.ErrRefundCanceled):
		response.BadRequest(c, "refund canceled by gateway")
	case errors.Is(err, payu.ErrResponseUnsupported):
		response.Internal(c, "gateway returned an unsupported refund response")
	case errors.Is(err, service.ErrRefundConfigInvalid):
		response.Internal(c, "refund config invalid")
	default:
		h.respondPaymentError(c, err)
	}
}

func paymentView(p *models.Payment) gin.H {
	return gin.H{
		"token":           p.Token,
		"channel_id":      p.ChannelID,
		"status":          p.Status,
		"total":           p.Total,
		"captured_amount": p.CapturedAmount,
		"currency":        p.Currency,
		"description":     p.Description,
		"message":         p.Message,
		"transaction_id":  p.TransactionID,
		"pay_url":         p.PayURL,
		"fraud_status":    p.FraudStatus,
		"has_renew_token": p.RenewToken != "",
		"created_at":      p.CreatedAt,
		"updated_at":      p.UpdatedAt,
	}
}
