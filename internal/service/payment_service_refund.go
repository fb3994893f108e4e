package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/payu-bridge/internal/models"
	"github.com/payu-bridge/internal/payment/payu"
)

// RefundInput 发起退款输入
type RefundInput struct {
	Token string
	// Amount 为空时请求全额退款
	Amount  *models.Money
	Context context.Context
}

// Refund 向网关发起退款。
// 成功只代表网关受理（同步响应状态 PENDING），台账不在此处变动，
// 金额核销统一由 FINALIZED 回调完成，避免同步与异步两头记账。
func (s *PaymentService) Refund(input RefundInput) (*models.Payment, error) {
	if strings.TrimSpace(s.refundCfg.DescriptionTemplate) == "" {
		return nil, fmt.Errorf("%w: description template is required", ErrRefundConfigInvalid)
	}
	payment, err := s.GetPayment(input.Token)
	if err != nil {
		return nil, err
	}
	if payment.TransactionID == "" {
		return nil, fmt.Errorf("%w: payment has no gateway order", ErrPaymentStatusInvalid)
	}

	channel, err := s.activeChannel(payment.ChannelID)
	if err != nil {
		return nil, err
	}
	client, err := s.gatewayFor(channel)
	if err != nil {
		return nil, err
	}

	refundInput := payu.RefundInput{
		Description: fmt.Sprintf(s.refundCfg.DescriptionTemplate, payment.Token),
		Currency:    payment.Currency,
	}
	if input.Amount != nil {
		minor, err := payu.Quantize(input.Amount.Decimal, payment.Currency)
		if err != nil {
			return nil, err
		}
		refundInput.AmountMinor = &minor
	}
	if s.refundCfg.GenerateExtRefundID {
		refundInput.ExtRefundID = uuid.NewString()
	}

	ctx := input.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := paymentLogger(
		"payment_token", payment.Token,
		"transaction_id", payment.TransactionID,
	)

	result, err := client.CreateRefund(ctx, payment.TransactionID, refundInput)
	if result != nil && result.Raw != nil {
		// 响应无论校验结果如何都进流水，供审计与重放
		payment.AppendJournal(journalRefundResponses, result.Raw)
		s.persistPayment(payment, log)
	}
	if err != nil {
		log.Errorw("payment_refund_request_failed", "error", err)
		return nil, err
	}

	log.Infow("payment_refund_accepted",
		"refund_id", result.RefundID,
		"amount_minor", result.AmountMinor,
	)
	return payment, nil
}
