package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/payu-bridge/internal/logger"
	"github.com/payu-bridge/internal/provider"
	"github.com/payu-bridge/internal/queue"
	"github.com/payu-bridge/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPaymentAutoRenew, c.handlePaymentAutoRenew)
}

func (c *Consumer) handlePaymentAutoRenew(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payment_auto_renew_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PaymentAutoRenewPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_auto_renew_unmarshal_failed", "error", err)
		return err
	}
	if payload.PaymentToken == "" {
		logger.Debugw("worker_payment_auto_renew_skip_invalid_payload")
		return nil
	}
	if c.PaymentService == nil {
		logger.Warnw("worker_payment_auto_renew_skip_payment_service_nil", "payment_token", payload.PaymentToken)
		return nil
	}
	_, err := c.PaymentService.AutoRenew(ctx, payload.PaymentToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			logger.Debugw("worker_payment_auto_renew_skip_payment_not_found", "payment_token", payload.PaymentToken)
			return nil
		case errors.Is(err, service.ErrRenewTokenMissing):
			logger.Debugw("worker_payment_auto_renew_skip_no_renew_token", "payment_token", payload.PaymentToken)
			return nil
		case errors.Is(err, service.ErrChannelDisabled):
			logger.Debugw("worker_payment_auto_renew_skip_channel_disabled", "payment_token", payload.PaymentToken)
			return nil
		default:
			logger.Warnw("worker_payment_auto_renew_failed", "payment_token", payload.PaymentToken, "error", err)
			return err
		}
	}
	return nil
}
