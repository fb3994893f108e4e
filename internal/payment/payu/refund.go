package payu

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// 网关退款对象状态
const (
	RefundStatusPending   = "PENDING"
	RefundStatusFinalized = "FINALIZED"
	RefundStatusCanceled  = "CANCELED"
)

// RefundInput 退款请求参数。
type RefundInput struct {
	Description string
	Currency    string
	// AmountMinor 为空时请求全额退款
	AmountMinor *int64
	ExtRefundID string
}

// RefundResult 退款同步响应。校验失败时仍会带回 Raw 供流水记录。
type RefundResult struct {
	RefundID    string
	ExtRefundID string
	OrderID     string
	Status      string
	Currency    string
	AmountMinor int64
	Raw         map[string]interface{}
}

// RefundRejectedError 网关明确拒绝退款。
type RefundRejectedError struct {
	Code        string
	StatusCode  string
	CodeLiteral string
	Description string
}

func (e *RefundRejectedError) Error() string {
	return fmt.Sprintf("payu refund rejected: statusCode=%s code=%s codeLiteral=%s desc=%s",
		e.StatusCode, e.Code, e.CodeLiteral, e.Description)
}

// CreateRefund 发起退款并严格校验同步响应。
// 响应体哪怕校验失败也会随非空的 RefundResult 返回，调用方据此落盘流水。
// 退款确认以异步回调为准，这里成功只代表网关已受理。
func (c *Client) CreateRefund(ctx context.Context, orderID string, input RefundInput) (*RefundResult, error) {
	if input.Description == "" {
		return nil, fmt.Errorf("%w: refund description is required", ErrConfigInvalid)
	}
	refund := map[string]interface{}{
		"currencyCode": input.Currency,
		"description":  input.Description,
	}
	if input.AmountMinor != nil {
		refund["amount"] = strconv.FormatInt(*input.AmountMinor, 10)
	}
	if input.ExtRefundID != "" {
		refund["extRefundId"] = input.ExtRefundID
	}
	payload := map[string]interface{}{"refund": refund}

	raw, err := c.AuthenticatedRequest(ctx, http.MethodPost, c.cfg.RefundURL(orderID), payload)
	if err != nil {
		return nil, err
	}

	result := &RefundResult{
		RefundID:    readString(raw, "refund", "refundId"),
		ExtRefundID: readString(raw, "refund", "extRefundId"),
		OrderID:     readString(raw, "orderId"),
		Status:      readString(raw, "refund", "status"),
		Currency:    readString(raw, "refund", "currencyCode"),
		Raw:         raw,
	}
	if amount, ok := readMinor(raw, "refund", "amount"); ok {
		result.AmountMinor = amount
	}

	statusCode := readString(raw, "status", "statusCode")
	if statusCode == "" {
		return result, fmt.Errorf("%w: refund response missing statusCode (refundId=%q)", ErrResponseInvalid, result.RefundID)
	}
	if statusCode != StatusSuccess {
		return result, &RefundRejectedError{
			Code:        readString(raw, "status", "code"),
			StatusCode:  statusCode,
			CodeLiteral: readString(raw, "status", "codeLiteral"),
			Description: readString(raw, "status", "statusDesc"),
		}
	}
	if result.RefundID == "" {
		return result, fmt.Errorf("%w: refund response missing refundId", ErrResponseInvalid)
	}
	if result.OrderID != orderID {
		return result, fmt.Errorf("%w: refund response references order %q", ErrResponseUnsupported, result.OrderID)
	}
	switch result.Status {
	case RefundStatusPending:
	case RefundStatusCanceled:
		return result, fmt.Errorf("%w: refundId=%s", ErrRefundCanceled, result.RefundID)
	case RefundStatusFinalized:
		return result, fmt.Errorf("%w: refund finalized synchronously", ErrResponseUnsupported)
	default:
		return result, fmt.Errorf("%w: unknown refund status %q", ErrResponseInvalid, result.Status)
	}
	if result.Currency != input.Currency {
		return result, fmt.Errorf("%w: refund currency %q does not match %q", ErrResponseUnsupported, result.Currency, input.Currency)
	}
	if input.AmountMinor != nil && result.AmountMinor != *input.AmountMinor {
		return result, fmt.Errorf("%w: refund amount %d does not match requested %d", ErrResponseUnsupported, result.AmountMinor, *input.AmountMinor)
	}
	return result, nil
}
