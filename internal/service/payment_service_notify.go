package service

import (
	"errors"
	"fmt"

	"github.com/payu-bridge/internal/constants"
	"github.com/payu-bridge/internal/models"
	"github.com/payu-bridge/internal/payment/payu"

	"go.uber.org/zap"
)

// 网关订单状态到本地支付状态的固定映射
var notificationStatusMap = map[string]string{
	constants.GatewayOrderStatusCompleted:              constants.PaymentStatusConfirmed,
	constants.GatewayOrderStatusPending:                constants.PaymentStatusInput,
	constants.GatewayOrderStatusWaitingForConfirmation: constants.PaymentStatusInput,
	constants.GatewayOrderStatusCanceled:               constants.PaymentStatusRejected,
	constants.GatewayOrderStatusNew:                    constants.PaymentStatusWaiting,
}

// NotificationInput 网关回调输入
type NotificationInput struct {
	ChannelID       uint
	SignatureHeader string
	Body            []byte
}

// HandleNotification 处理网关回调：验签、解析并按订单或退款形态对账。
// 验签失败与报文畸形都不触碰台账，由处理器返回失败响应即可。
func (s *PaymentService) HandleNotification(input NotificationInput) error {
	log := paymentLogger("channel_id", input.ChannelID)

	channel, err := s.channelRepo.GetByID(input.ChannelID)
	if err != nil {
		return err
	}
	if channel == nil {
		return ErrChannelNotFound
	}
	cfg, err := payu.ParseConfig(channel.ConfigJSON)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChannelConfigInvalid, err)
	}

	if err := payu.VerifyNotification(cfg.SecondKey, input.SignatureHeader, input.Body); err != nil {
		if errors.Is(err, payu.ErrSignatureMismatch) {
			log.Warnw("payment_webhook_signature_mismatch")
			return fmt.Errorf("%w: signature mismatch", ErrNotificationRejected)
		}
		log.Warnw("payment_webhook_malformed", "error", err)
		return err
	}

	notification, err := payu.ParseNotification(input.Body)
	if err != nil {
		log.Warnw("payment_webhook_malformed", "error", err)
		return err
	}
	log.Infow("payment_webhook_received",
		"is_refund", notification.Refund != nil,
	)

	if notification.Refund != nil {
		return s.reconcileRefund(log, notification)
	}
	return s.reconcileOrderStatus(log, notification)
}

func (s *PaymentService) reconcileOrderStatus(log *zap.SugaredLogger, notification *payu.Notification) error {
	order := notification.Order
	payment, err := s.locateOrderPayment(order)
	if err != nil {
		return err
	}
	log = log.With("payment_token", payment.Token, "gateway_status", order.Status)

	payment.AppendJournal(journalStatusHistory, notification.Raw)

	newStatus, ok := notificationStatusMap[order.Status]
	if !ok {
		s.persistPayment(payment, log)
		return fmt.Errorf("%w: unmapped order status %q", ErrNotificationRejected, order.Status)
	}

	if newStatus == constants.PaymentStatusConfirmed && order.TotalMinor != nil {
		currency := order.Currency
		if currency == "" {
			currency = payment.Currency
		}
		captured, err := payu.Dequantize(*order.TotalMinor, currency)
		if err != nil {
			// 原始报文已入流水，币种异常也要落盘
			s.persistPayment(payment, log)
			return err
		}
		// 权威的全额捕获信号，直接覆盖
		payment.CapturedAmount = models.NewMoneyFromDecimal(captured)
	}
	if payment.Status == constants.PaymentStatusConfirmed && newStatus != constants.PaymentStatusConfirmed {
		log.Warnw("payment_status_downgrade_suspected",
			"current_status", payment.Status,
			"new_status", newStatus,
		)
	}

	payment.Status = newStatus
	s.persistPayment(payment, log)
	log.Infow("payment_status_reconciled", "status", newStatus)
	return nil
}

func (s *PaymentService) reconcileRefund(log *zap.SugaredLogger, notification *payu.Notification) error {
	refund := notification.Refund
	payment, err := s.paymentRepo.GetLatestByTransactionID(refund.OrderID)
	if err != nil {
		return err
	}
	if payment == nil {
		return fmt.Errorf("%w: no payment for order %q", ErrPaymentNotFound, refund.OrderID)
	}
	log = log.With("payment_token", payment.Token, "refund_id", refund.RefundID)

	payment.AppendJournal(journalStatusHistory, notification.Raw)

	if refund.Status != constants.RefundStatusFinalized {
		s.persistPayment(payment, log)
		return fmt.Errorf("%w: refund status %q not handled", ErrNotificationRejected, refund.Status)
	}

	currency := refund.Currency
	if currency == "" {
		currency = payment.Currency
	}
	refunded, err := payu.Dequantize(refund.AmountMinor, currency)
	if err != nil {
		// 原始报文已入流水，币种异常也要落盘
		s.persistPayment(payment, log)
		return err
	}

	if refund.Description != "" {
		if payment.Message != "" {
			payment.Message += "\n"
		}
		payment.Message += refund.Description
	}

	remaining := payment.CapturedAmount.Sub(models.NewMoneyFromDecimal(refunded))
	if remaining.IsNegative() {
		log.Errorw("payment_refund_over_captured",
			"refunded", refunded.String(),
			"captured", payment.CapturedAmount.String(),
		)
	}
	payment.CapturedAmount = remaining
	if remaining.IsNegative() || remaining.Decimal.IsZero() {
		payment.Status = constants.PaymentStatusRefunded
	}

	s.persistPayment(payment, log)
	log.Infow("payment_refund_reconciled",
		"refunded", refunded.String(),
		"status", payment.Status,
	)
	return nil
}

func (s *PaymentService) locateOrderPayment(order *payu.OrderNotification) (*models.Payment, error) {
	if order.ExtOrderID != "" {
		payment, err := s.paymentRepo.GetByToken(order.ExtOrderID)
		if err != nil {
			return nil, err
		}
		if payment != nil {
			return payment, nil
		}
	}
	if order.OrderID != "" {
		payment, err := s.paymentRepo.GetLatestByTransactionID(order.OrderID)
		if err != nil {
			return nil, err
		}
		if payment != nil {
			return payment, nil
		}
	}
	return nil, fmt.Errorf("%w: order %q / %q", ErrPaymentNotFound, order.ExtOrderID, order.OrderID)
}
