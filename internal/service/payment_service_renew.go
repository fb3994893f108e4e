package service

import (
	"context"
	"fmt"

	"github.com/payu-bridge/internal/payment/payu"
)

// AutoRenewResult 自动续费结果
type AutoRenewResult struct {
	Outcome     payu.Outcome
	RedirectURL string
}

// AutoRenew 使用已保存的卡令牌发起后台续费扣款。
// 网关受理后不跳转，确认仍以回调为准。
func (s *PaymentService) AutoRenew(ctx context.Context, token string) (*AutoRenewResult, error) {
	payment, err := s.GetPayment(token)
	if err != nil {
		return nil, err
	}
	if payment.RenewToken == "" {
		return nil, ErrRenewTokenMissing
	}

	channel, err := s.activeChannel(payment.ChannelID)
	if err != nil {
		return nil, err
	}
	client, err := s.gatewayFor(channel)
	if err != nil {
		return nil, err
	}

	req := &payu.OrderRequest{
		ExtOrderID:  payment.Token,
		Description: payment.Description,
		Currency:    payment.Currency,
		CustomerIP:  payment.CustomerIP,
		Buyer: &payu.Buyer{
			Email:     payment.Email,
			Phone:     payment.Phone,
			FirstName: payment.FirstName,
			LastName:  payment.LastName,
			Language:  payment.Language,
		},
		Items: []payu.OrderItem{{
			Name:      payment.Description,
			Quantity:  1,
			UnitPrice: payment.Total.Decimal,
		}},
		PayMethod: &payu.PayMethod{
			Type:  "CARD_TOKEN",
			Value: payment.RenewToken,
		},
		Recurring:  "STANDARD",
		Background: true,
	}
	outcome := s.submitGatewayOrder(ctx, client, payment, req)
	if outcome.Outcome == payu.OutcomeFailed {
		return nil, fmt.Errorf("%w: auto renew failed", ErrPaymentStatusInvalid)
	}
	return &AutoRenewResult{Outcome: outcome.Outcome, RedirectURL: outcome.RedirectURL}, nil
}

// WidgetParams 构造结账组件参数。
// 支付单流水里存有 CVV 补录地址时生成 CVV 组件参数。
func (s *PaymentService) WidgetParams(token string) (map[string]string, error) {
	payment, err := s.GetPayment(token)
	if err != nil {
		return nil, err
	}
	channel, err := s.activeChannel(payment.ChannelID)
	if err != nil {
		return nil, err
	}
	client, err := s.gatewayFor(channel)
	if err != nil {
		return nil, err
	}

	input := payu.WidgetInput{
		TotalAmount: payment.Total.Decimal,
		Currency:    payment.Currency,
		Email:       payment.Email,
		Language:    payment.Language,
		ShopName:    payment.FirstName + " " + payment.LastName,
	}
	if cvvURL, ok := payment.Journal[journalCvvURL].(string); ok {
		input.CvvURL = cvvURL
	}
	return payu.WidgetParams(client.Config(), input), nil
}

// PayMethods 查询渠道可用的支付方式。
func (s *PaymentService) PayMethods(ctx context.Context, channelID uint) (map[string]interface{}, error) {
	channel, err := s.activeChannel(channelID)
	if err != nil {
		return nil, err
	}
	client, err := s.gatewayFor(channel)
	if err != nil {
		return nil, err
	}
	return client.PayMethods(ctx)
}
