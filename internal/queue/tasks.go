package queue

import (
	"encoding/json"

	"github.com/payu-bridge/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPaymentAutoRenew 卡令牌自动续费扣款任务
	TaskPaymentAutoRenew = constants.TaskPaymentAutoRenew
)

// PaymentAutoRenewPayload 自动续费任务载荷
type PaymentAutoRenewPayload struct {
	PaymentToken string `json:"payment_token"`
}

// NewPaymentAutoRenewTask 创建自动续费任务
func NewPaymentAutoRenewTask(payload PaymentAutoRenewPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentAutoRenew, body), nil
}
