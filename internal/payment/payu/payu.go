package payu

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrConfigInvalid         = errors.New("payu config invalid")
	ErrAuthFailed            = errors.New("payu auth failed")
	ErrAuthExhausted         = errors.New("payu auth retries exhausted")
	ErrRequestFailed         = errors.New("payu request failed")
	ErrResponseInvalid       = errors.New("payu response invalid")
	ErrResponseUnsupported   = errors.New("payu response not supported")
	ErrCurrencyUnsupported   = errors.New("payu currency not supported")
	ErrRefundCanceled        = errors.New("payu refund canceled")
	ErrNotificationMalformed = errors.New("payu notification malformed")
	ErrSignatureMismatch     = errors.New("payu notification signature mismatch")
)

const (
	defaultBaseURL        = "https://secure.payu.com/"
	defaultSandboxBaseURL = "https://secure.snd.payu.com/"
	defaultTimeout        = 12 * time.Second

	// GrantClientCredentials 标准商户授权方式
	GrantClientCredentials = "client_credentials"
	// GrantTrustedMerchant 可信商户授权方式（需要 email / ext_customer_id）
	GrantTrustedMerchant = "trusted_merchant"
)

// 网关同步响应状态码
const (
	StatusSuccess             = "SUCCESS"
	StatusUnauthorized        = "UNAUTHORIZED"
	StatusWarningContinueCVV  = "WARNING_CONTINUE_CVV"
	StatusWarningContinue3DS  = "WARNING_CONTINUE_3DS"
	StatusBusinessError       = "BUSINESS_ERROR"
	StatusErrorOrderNotUnique = "ERROR_ORDER_NOT_UNIQUE"
)

// Config PayU 渠道配置。
type Config struct {
	PosID             string `json:"pos_id"`
	ClientSecret      string `json:"client_secret"`
	SecondKey         string `json:"second_key"`
	Sandbox           bool   `json:"sandbox"`
	BaseURL           string `json:"base_url"`
	AuthURL           string `json:"auth_url"`
	APIURL            string `json:"api_url"`
	GrantType         string `json:"grant_type"`
	TrustedEmail      string `json:"trusted_email"`
	TrustedCustomerID string `json:"trusted_customer_id"`
	ShopName          string `json:"shop_name"`
	NotifyURL         string `json:"notify_url"`
	ContinueURL       string `json:"continue_url"`
	FailureURL        string `json:"failure_url"`
	StoreCard         bool   `json:"store_card"`
	WidgetBranding    bool   `json:"widget_branding"`
	RecurringPayments bool   `json:"recurring_payments"`
	CardOnFile        bool   `json:"card_on_file"`
	ExpressPayments   bool   `json:"express_payments"`
	ValidityTime      int    `json:"validity_time"`
}

// ParseConfig 解析配置。
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty config", ErrConfigInvalid)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal config failed", ErrConfigInvalid)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config failed", ErrConfigInvalid)
	}
	cfg.normalize()
	return &cfg, nil
}

// ValidateConfig 校验配置。
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.PosID) == "" {
		return fmt.Errorf("%w: pos_id is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return fmt.Errorf("%w: client_secret is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.SecondKey) == "" {
		return fmt.Errorf("%w: second_key is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.NotifyURL) == "" {
		return fmt.Errorf("%w: notify_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.ContinueURL) == "" {
		return fmt.Errorf("%w: continue_url is required", ErrConfigInvalid)
	}
	for _, raw := range []string{cfg.BaseURL, cfg.AuthURL, cfg.APIURL} {
		if _, err := url.ParseRequestURI(strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("%w: gateway url is invalid", ErrConfigInvalid)
		}
	}
	switch cfg.GrantType {
	case GrantClientCredentials:
	case GrantTrustedMerchant:
		if strings.TrimSpace(cfg.TrustedEmail) == "" && strings.TrimSpace(cfg.TrustedCustomerID) == "" {
			return fmt.Errorf("%w: trusted_merchant requires email or ext customer id", ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown grant_type %q", ErrConfigInvalid, cfg.GrantType)
	}
	return nil
}

func (c *Config) normalize() {
	c.PosID = strings.TrimSpace(c.PosID)
	c.ClientSecret = strings.TrimSpace(c.ClientSecret)
	c.SecondKey = strings.TrimSpace(c.SecondKey)
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.BaseURL == "" {
		if c.Sandbox {
			c.BaseURL = defaultSandboxBaseURL
		} else {
			c.BaseURL = defaultBaseURL
		}
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	c.AuthURL = strings.TrimSpace(c.AuthURL)
	if c.AuthURL == "" {
		c.AuthURL = c.BaseURL + "pl/standard/user/oauth/authorize"
	}
	c.APIURL = strings.TrimSpace(c.APIURL)
	if c.APIURL == "" {
		c.APIURL = c.BaseURL + "api/v2_1/"
	}
	if !strings.HasSuffix(c.APIURL, "/") {
		c.APIURL += "/"
	}
	c.GrantType = strings.TrimSpace(c.GrantType)
	if c.GrantType == "" {
		c.GrantType = GrantClientCredentials
	}
	c.TrustedEmail = strings.TrimSpace(c.TrustedEmail)
	c.TrustedCustomerID = strings.TrimSpace(c.TrustedCustomerID)
	c.ShopName = strings.TrimSpace(c.ShopName)
	c.NotifyURL = strings.TrimSpace(c.NotifyURL)
	c.ContinueURL = strings.TrimSpace(c.ContinueURL)
	c.FailureURL = strings.TrimSpace(c.FailureURL)
}

// OrderURL 订单创建端点
func (c *Config) OrderURL() string {
	return c.APIURL + "orders/"
}

// PayMethodsURL 支付方式列表端点
func (c *Config) PayMethodsURL() string {
	return c.APIURL + "paymethods/"
}

// TokenURL 卡令牌端点
func (c *Config) TokenURL(cardToken string) string {
	return c.APIURL + "tokens/" + url.PathEscape(strings.TrimSpace(cardToken))
}

// RefundURL 退款端点
func (c *Config) RefundURL(orderID string) string {
	return c.OrderURL() + url.PathEscape(strings.TrimSpace(orderID)) + "/refunds"
}

func readString(raw map[string]interface{}, path ...string) string {
	if raw == nil {
		return ""
	}
	var current interface{} = raw
	for _, seg := range path {
		next, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current = next[seg]
	}
	if current == nil {
		return ""
	}
	if str, ok := current.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", current)
}

func readMap(raw map[string]interface{}, path ...string) map[string]interface{} {
	if raw == nil {
		return nil
	}
	var current interface{} = raw
	for _, seg := range path {
		next, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = next[seg]
	}
	result, ok := current.(map[string]interface{})
	if !ok {
		return nil
	}
	return result
}

// readMinor 解析网关的分单位金额（数字或字符串形式）。
func readMinor(raw map[string]interface{}, path ...string) (int64, bool) {
	if raw == nil {
		return 0, false
	}
	var current interface{} = raw
	for _, seg := range path {
		next, ok := current.(map[string]interface{})
		if !ok {
			return 0, false
		}
		current = next[seg]
	}
	switch v := current.(type) {
	case float64:
		return int64(v), true
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func readInt(raw map[string]interface{}, path ...string) int {
	value, ok := readMinor(raw, path...)
	if !ok {
		return 0
	}
	return int(value)
}
