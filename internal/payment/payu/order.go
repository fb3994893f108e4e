package payu

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
)

// 商品名称超长会被网关拒单，提交前截断。
const maxProductNameLength = 127

// Outcome 下单同步响应的分类结果。
type Outcome string

const (
	// OutcomeRedirect 需要跳转到网关收银台继续支付
	OutcomeRedirect Outcome = "redirect"
	// OutcomeCompleted 后台扣款链路已受理，无需跳转
	OutcomeCompleted Outcome = "completed"
	// OutcomeNeedsCvv 需要重新录入 CVV
	OutcomeNeedsCvv Outcome = "needs_cvv"
	// OutcomeNeedsThreeDs 需要完成 3-D Secure 验证
	OutcomeNeedsThreeDs Outcome = "needs_3ds"
	// OutcomeRejected 网关按业务规则拒绝
	OutcomeRejected Outcome = "rejected"
	// OutcomeNotUnique 外部订单号已存在
	OutcomeNotUnique Outcome = "not_unique"
	// OutcomeAlreadyProcessed 订单已存在且本地支付单已确认，视为重复提交
	OutcomeAlreadyProcessed Outcome = "already_processed"
	// OutcomeFailed 其余所有失败
	OutcomeFailed Outcome = "failed"
)

// OrderItem 订单商品行。
type OrderItem struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Buyer 买家信息。
type Buyer struct {
	Email     string
	Phone     string
	FirstName string
	LastName  string
	Language  string
}

// PayMethod 指定支付方式（卡令牌续费时使用）。
type PayMethod struct {
	Type  string
	Value string
}

// OrderRequest 下单参数。
type OrderRequest struct {
	ExtOrderID   string
	Description  string
	Currency     string
	CustomerIP   string
	Buyer        *Buyer
	Items        []OrderItem
	PayMethod    *PayMethod
	Recurring    string
	CardOnFile   string
	ContinueURL  string
	ValidityTime int
	// Background 为真表示后台续费扣款，SUCCESS 且无跳转地址时视为已受理。
	Background bool
}

// StoredPayMethod 网关返回的卡令牌信息。
type StoredPayMethod struct {
	Value            string
	CardExpireYear   int
	CardExpireMonth  int
	CardMaskedNumber string
}

// CreateResult 下单结果。
type CreateResult struct {
	Outcome     Outcome
	OrderID     string
	RedirectURI string
	StatusCode  string
	TotalMinor  int64
	PayMethod   *StoredPayMethod
	Raw         map[string]interface{}
}

// BuildOrderPayload 构造下单请求体并返回分单位总金额。
func BuildOrderPayload(cfg *Config, req *OrderRequest) (map[string]interface{}, int64, error) {
	if len(req.Items) == 0 {
		return nil, 0, fmt.Errorf("%w: order has no products", ErrRequestFailed)
	}
	if !SupportedCurrency(req.Currency) {
		return nil, 0, fmt.Errorf("%w: %s", ErrCurrencyUnsupported, req.Currency)
	}

	subUnit := currencySubUnits[req.Currency]
	var total int64
	products := make([]map[string]interface{}, 0, len(req.Items))
	for _, item := range req.Items {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		unitMinor, err := Quantize(item.UnitPrice, req.Currency)
		if err != nil {
			return nil, 0, err
		}
		name := item.Name
		// 按字符截断，避免把多字节字符切成非法 UTF-8
		if runes := []rune(name); len(runes) > maxProductNameLength {
			name = string(runes[:maxProductNameLength])
		}
		products = append(products, map[string]interface{}{
			"name":      name,
			"unitPrice": strconv.FormatInt(unitMinor, 10),
			"quantity":  strconv.Itoa(quantity),
			"currency":  req.Currency,
			"subUnit":   subUnit,
		})
		total += unitMinor * int64(quantity)
	}

	continueURL := req.ContinueURL
	if continueURL == "" {
		continueURL = cfg.ContinueURL
	}
	payload := map[string]interface{}{
		"notifyUrl":     cfg.NotifyURL,
		"continueUrl":   continueURL,
		"customerIp":    req.CustomerIP,
		"merchantPosId": cfg.PosID,
		"description":   req.Description,
		"currencyCode":  req.Currency,
		"totalAmount":   strconv.FormatInt(total, 10),
		"extOrderId":    req.ExtOrderID,
		"products":      products,
	}
	if req.Buyer != nil {
		buyer := map[string]interface{}{}
		if req.Buyer.Email != "" {
			buyer["email"] = req.Buyer.Email
		}
		if req.Buyer.Phone != "" {
			buyer["phone"] = req.Buyer.Phone
		}
		if req.Buyer.FirstName != "" {
			buyer["firstName"] = req.Buyer.FirstName
		}
		if req.Buyer.LastName != "" {
			buyer["lastName"] = req.Buyer.LastName
		}
		if req.Buyer.Language != "" {
			buyer["language"] = req.Buyer.Language
		}
		if len(buyer) > 0 {
			payload["buyer"] = buyer
		}
	}
	if req.PayMethod != nil {
		payload["payMethods"] = map[string]interface{}{
			"payMethod": map[string]interface{}{
				"type":  req.PayMethod.Type,
				"value": req.PayMethod.Value,
			},
		}
	}
	if req.Recurring != "" {
		payload["recurring"] = req.Recurring
	}
	if req.CardOnFile != "" {
		payload["cardOnFile"] = req.CardOnFile
	}
	validity := req.ValidityTime
	if validity == 0 {
		validity = cfg.ValidityTime
	}
	if validity > 0 {
		payload["validityTime"] = strconv.Itoa(validity)
	}
	return payload, total, nil
}

// CreateOrder 创建网关订单并按同步响应分类。
func (c *Client) CreateOrder(ctx context.Context, req *OrderRequest) (*CreateResult, error) {
	payload, total, err := BuildOrderPayload(c.cfg, req)
	if err != nil {
		return nil, err
	}
	raw, err := c.AuthenticatedRequest(ctx, http.MethodPost, c.cfg.OrderURL(), payload)
	if err != nil {
		return nil, err
	}
	return classifyCreateResponse(raw, total, req.Background), nil
}

func classifyCreateResponse(raw map[string]interface{}, total int64, background bool) *CreateResult {
	result := &CreateResult{
		OrderID:     readString(raw, "orderId"),
		RedirectURI: readString(raw, "redirectUri"),
		StatusCode:  readString(raw, "status", "statusCode"),
		TotalMinor:  total,
		Raw:         raw,
	}
	switch result.StatusCode {
	case StatusSuccess:
		if background && result.RedirectURI == "" {
			result.Outcome = OutcomeCompleted
		} else {
			result.Outcome = OutcomeRedirect
		}
		result.PayMethod = readStoredPayMethod(raw)
	case StatusWarningContinueCVV:
		result.Outcome = OutcomeNeedsCvv
	case StatusWarningContinue3DS:
		result.Outcome = OutcomeNeedsThreeDs
	case StatusBusinessError:
		result.Outcome = OutcomeRejected
	case StatusErrorOrderNotUnique:
		result.Outcome = OutcomeNotUnique
	default:
		result.Outcome = OutcomeFailed
	}
	return result
}

func readStoredPayMethod(raw map[string]interface{}) *StoredPayMethod {
	method := readMap(raw, "payMethods", "payMethod")
	if method == nil {
		return nil
	}
	value := readString(method, "value")
	if value == "" {
		return nil
	}
	return &StoredPayMethod{
		Value:            value,
		CardExpireYear:   readInt(method, "card", "expirationYear"),
		CardExpireMonth:  readInt(method, "card", "expirationMonth"),
		CardMaskedNumber: readString(method, "card", "number"),
	}
}

// CancelOrder 取消网关订单。网关要求发送两次 DELETE 才会真正取消。
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	target := c.cfg.OrderURL() + orderID
	for i := 0; i < 2; i++ {
		raw, err := c.AuthenticatedRequest(ctx, http.MethodDelete, target, nil)
		if err != nil {
			return err
		}
		if code := readString(raw, "status", "statusCode"); code != StatusSuccess {
			return fmt.Errorf("%w: cancel returned %q", ErrResponseInvalid, code)
		}
	}
	return nil
}

// DeleteCardToken 删除已保存的卡令牌，网关成功时返回 204。
func (c *Client) DeleteCardToken(ctx context.Context, cardToken string) error {
	status, err := c.Delete(ctx, c.cfg.TokenURL(cardToken))
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("%w: token delete returned %d", ErrResponseInvalid, status)
	}
	return nil
}

// PayMethods 查询商户可用的支付方式。
func (c *Client) PayMethods(ctx context.Context) (map[string]interface{}, error) {
	return c.AuthenticatedRequest(ctx, http.MethodGet, c.cfg.PayMethodsURL(), nil)
}
