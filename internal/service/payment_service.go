package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/payu-bridge/internal/config"
	"github.com/payu-bridge/internal/constants"
	"github.com/payu-bridge/internal/logger"
	"github.com/payu-bridge/internal/models"
	"github.com/payu-bridge/internal/payment/payu"
	"github.com/payu-bridge/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 流水键
const (
	journalResponses       = "responses"
	journalStatusHistory   = "status_history"
	journalRefundResponses = "refund_responses"
	journalCvvURL          = "cvv_url"
	journalThreeDsURL      = "3ds_url"
)

// PaymentService 支付服务
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	channelRepo repository.ChannelRepository
	refundCfg   config.RefundConfig

	mu       sync.Mutex
	gateways map[uint]*gatewayEntry
}

type gatewayEntry struct {
	client  *payu.Client
	version time.Time
}

// NewPaymentService 创建支付服务
func NewPaymentService(paymentRepo repository.PaymentRepository, channelRepo repository.ChannelRepository, refundCfg config.RefundConfig) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		channelRepo: channelRepo,
		refundCfg:   refundCfg,
		gateways:    make(map[uint]*gatewayEntry),
	}
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// gatewayFor 返回渠道对应的网关客户端。
// 客户端按渠道缓存复用，令牌缓存才能跨请求生效；渠道配置更新后重建。
func (s *PaymentService) gatewayFor(channel *models.Channel) (*payu.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.gateways[channel.ID]; ok && entry.version.Equal(channel.UpdatedAt) {
		return entry.client, nil
	}
	cfg, err := payu.ParseConfig(channel.ConfigJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChannelConfigInvalid, err)
	}
	client, err := payu.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChannelConfigInvalid, err)
	}
	s.gateways[channel.ID] = &gatewayEntry{client: client, version: channel.UpdatedAt}
	return client, nil
}

func (s *PaymentService) activeChannel(channelID uint) (*models.Channel, error) {
	channel, err := s.channelRepo.GetByID(channelID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, ErrChannelNotFound
	}
	if !channel.Active {
		return nil, ErrChannelDisabled
	}
	return channel, nil
}

// PaymentItem 支付商品行
type PaymentItem struct {
	Name      string
	Quantity  int
	UnitPrice models.Money
}

// CreatePaymentInput 创建支付请求
type CreatePaymentInput struct {
	ChannelID   uint
	Description string
	Currency    string
	Items       []PaymentItem
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Language    string
	CustomerIP  string
	Context     context.Context
}

// CreatePaymentResult 创建支付结果
type CreatePaymentResult struct {
	Payment     *models.Payment
	Outcome     payu.Outcome
	RedirectURL string
}

// CreatePayment 创建本地支付单并向网关下单。
// 网关侧失败不向调用方抛错，支付单置为 error 并返回失败跳转地址。
func (s *PaymentService) CreatePayment(input CreatePaymentInput) (*CreatePaymentResult, error) {
	if input.ChannelID == 0 || len(input.Items) == 0 {
		return nil, ErrPaymentInvalid
	}
	if !payu.SupportedCurrency(input.Currency) {
		return nil, fmt.Errorf("%w: currency %q", ErrPaymentInvalid, input.Currency)
	}

	channel, err := s.activeChannel(input.ChannelID)
	if err != nil {
		return nil, err
	}
	client, err := s.gatewayFor(channel)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	items := make([]payu.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		items = append(items, payu.OrderItem{
			Name:      item.Name,
			Quantity:  quantity,
			UnitPrice: item.UnitPrice.Decimal,
		})
		total = total.Add(item.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(quantity))))
	}

	payment := &models.Payment{
		Token:       uuid.NewString(),
		ChannelID:   channel.ID,
		Status:      constants.PaymentStatusWaiting,
		Total:       models.NewMoneyFromDecimal(total),
		Currency:    input.Currency,
		Description: input.Description,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Email:       input.Email,
		Phone:       input.Phone,
		Language:    input.Language,
		CustomerIP:  input.CustomerIP,
	}
	if err := s.paymentRepo.Create(payment); err != nil {
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
		Items: items,
	}
	if client.Config().StoreCard || client.Config().RecurringPayments {
		req.Recurring = "FIRST"
	}
	outcome := s.submitGatewayOrder(input.Context, client, payment, req)
	return &CreatePaymentResult{
		Payment:     payment,
		Outcome:     outcome.Outcome,
		RedirectURL: outcome.RedirectURL,
	}, nil
}

type gatewayOrderOutcome struct {
	Outcome     payu.Outcome
	RedirectURL string
}

// submitGatewayOrder 提交网关订单并落盘同步响应的全部副作用。
func (s *PaymentService) submitGatewayOrder(ctx context.Context, client *payu.Client, payment *models.Payment, req *payu.OrderRequest) gatewayOrderOutcome {
	if ctx == nil {
		ctx = context.Background()
	}
	log := paymentLogger(
		"payment_token", payment.Token,
		"channel_id", payment.ChannelID,
	)
	cfg := client.Config()

	result, err := client.CreateOrder(ctx, req)
	if err != nil {
		log.Errorw("payment_gateway_order_failed", "error", err)
		payment.Status = constants.PaymentStatusError
		payment.Message = err.Error()
		s.persistPayment(payment, log)
		return gatewayOrderOutcome{Outcome: payu.OutcomeFailed, RedirectURL: cfg.FailureURL}
	}

	payment.AppendJournal(journalResponses, result.Raw)
	if result.OrderID != "" {
		payment.TransactionID = result.OrderID
	}
	if result.PayMethod != nil {
		payment.RenewToken = result.PayMethod.Value
		payment.CardExpireYear = result.PayMethod.CardExpireYear
		payment.CardExpireMonth = result.PayMethod.CardExpireMonth
		payment.CardMaskedNumber = result.PayMethod.CardMaskedNumber
		if cfg.RecurringPayments {
			payment.TokenProvenance = constants.TokenProvenanceTask
		} else {
			payment.TokenProvenance = constants.TokenProvenanceUser
		}
	}

	outcome := gatewayOrderOutcome{Outcome: result.Outcome}
	switch result.Outcome {
	case payu.OutcomeRedirect:
		outcome.RedirectURL = result.RedirectURI
		if outcome.RedirectURL == "" {
			outcome.RedirectURL = cfg.ContinueURL
		}
		payment.PayURL = outcome.RedirectURL
	case payu.OutcomeCompleted:
		// 后台扣款已受理，等待回调确认
	case payu.OutcomeNeedsCvv:
		payment.SetJournalValue(journalCvvURL, result.RedirectURI)
		outcome.RedirectURL = result.RedirectURI
	case payu.OutcomeNeedsThreeDs:
		payment.SetJournalValue(journalThreeDsURL, result.RedirectURI)
		outcome.RedirectURL = result.RedirectURI
	case payu.OutcomeRejected:
		log.Warnw("payment_gateway_order_rejected", "status_code", result.StatusCode)
		payment.FraudStatus = constants.FraudStatusReject
		outcome.RedirectURL = cfg.FailureURL
	case payu.OutcomeNotUnique:
		if payment.Status == constants.PaymentStatusConfirmed {
			outcome.Outcome = payu.OutcomeAlreadyProcessed
			outcome.RedirectURL = cfg.ContinueURL
		} else {
			log.Errorw("payment_gateway_order_not_unique", "status_code", result.StatusCode)
			outcome.Outcome = payu.OutcomeFailed
			payment.Status = constants.PaymentStatusError
			outcome.RedirectURL = cfg.FailureURL
		}
	default:
		log.Errorw("payment_gateway_order_failed", "status_code", result.StatusCode)
		payment.Status = constants.PaymentStatusError
		payment.Message = fmt.Sprintf("gateway returned %s", result.StatusCode)
		outcome.RedirectURL = cfg.FailureURL
	}

	s.persistPayment(payment, log)
	return outcome
}

func (s *PaymentService) persistPayment(payment *models.Payment, log *zap.SugaredLogger) {
	if err := s.paymentRepo.Update(payment); err != nil {
		log.Errorw("payment_persist_failed", "error", err)
	}
}

// GetPayment 根据本地令牌查询支付单。
func (s *PaymentService) GetPayment(token string) (*models.Payment, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrPaymentInvalid
	}
	payment, err := s.paymentRepo.GetByToken(token)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// CancelPayment 取消网关订单并将支付单置为 rejected。
func (s *PaymentService) CancelPayment(ctx context.Context, token string) (*models.Payment, error) {
	payment, err := s.GetPayment(token)
	if err != nil {
		return nil, err
	}
	if payment.TransactionID == "" {
		return nil, fmt.Errorf("%w: payment has no gateway order", ErrPaymentStatusInvalid)
	}
	switch payment.Status {
	case constants.PaymentStatusConfirmed, constants.PaymentStatusRefunded:
		return nil, fmt.Errorf("%w: %s", ErrPaymentStatusInvalid, payment.Status)
	}

	channel, err := s.activeChannel(payment.ChannelID)
	if err != nil {
		return nil, err
	}
	client, err := s.gatewayFor(channel)
	if err != nil {
		return nil, err
	}
	if err := client.CancelOrder(ctx, payment.TransactionID); err != nil {
		return nil, err
	}

	log := paymentLogger("payment_token", payment.Token)
	log.Infow("payment_canceled", "transaction_id", payment.TransactionID)
	payment.Status = constants.PaymentStatusRejected
	s.persistPayment(payment, log)
	return payment, nil
}

// DeleteCardToken 删除支付单关联的卡令牌。
func (s *PaymentService) DeleteCardToken(ctx context.Context, token string) error {
	payment, err := s.GetPayment(token)
	if err != nil {
		return err
	}
	if payment.RenewToken == "" {
		return ErrRenewTokenMissing
	}
	channel, err := s.activeChannel(payment.ChannelID)
	if err != nil {
		return err
	}
	client, err := s.gatewayFor(channel)
	if err != nil {
		return err
	}
	if err := client.DeleteCardToken(ctx, payment.RenewToken); err != nil {
		return err
	}

	log := paymentLogger("payment_token", payment.Token)
	log.Infow("payment_card_token_deleted")
	payment.RenewToken = ""
	payment.TokenProvenance = ""
	payment.CardExpireYear = 0
	payment.CardExpireMonth = 0
	payment.CardMaskedNumber = ""
	s.persistPayment(payment, log)
	return nil
}
