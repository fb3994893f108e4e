package payu

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// 参与签名的参数按该固定顺序拼接，缺失的键直接跳过。
var widgetSigKeys = []string{
	"currency-code",
	"customer-email",
	"customer-language",
	"cvv-url",
	"merchant-pos-id",
	"payu-brand",
	"recurring-payment",
	"shop-name",
	"store-card",
	"total-amount",
	"widget-mode",
}

// SignWidgetParams 计算结账组件参数签名：按固定键序拼接参数值，
// 追加 second_key 后取 SHA-256 的小写十六进制摘要。
func SignWidgetParams(params map[string]string, secondKey string) string {
	var builder strings.Builder
	for _, key := range widgetSigKeys {
		if value, ok := params[key]; ok {
			builder.WriteString(value)
		}
	}
	builder.WriteString(secondKey)
	digest := sha256.Sum256([]byte(builder.String()))
	return strings.ToLower(hex.EncodeToString(digest[:]))
}

// WidgetInput 结账组件参数。
type WidgetInput struct {
	TotalAmount decimal.Decimal
	Currency    string
	Email       string
	Language    string
	ShopName    string
	Recurring   bool
	CvvURL      string
}

// WidgetParams 构造带签名的结账组件参数。
// 携带 CvvURL 时生成补录 CVV 的组件参数，否则生成标准收款组件参数。
func WidgetParams(cfg *Config, input WidgetInput) map[string]string {
	shopName := input.ShopName
	if shopName == "" {
		shopName = cfg.ShopName
	}
	params := map[string]string{
		"merchant-pos-id":   cfg.PosID,
		"shop-name":         strings.ReplaceAll(strings.TrimSpace(shopName), " ", "_"),
		"total-amount":      input.TotalAmount.String(),
		"currency-code":     input.Currency,
		"customer-language": input.Language,
		"success-callback":  "cardSuccess",
	}
	if params["customer-language"] == "" {
		params["customer-language"] = "en"
	}
	if input.CvvURL != "" {
		params["cvv-url"] = input.CvvURL
		params["cvv-success-callback"] = "cvvSuccess"
		params["widget-type"] = "cvv"
	} else {
		params["customer-email"] = input.Email
		params["store-card"] = strconv.FormatBool(cfg.StoreCard)
		params["payu-brand"] = strconv.FormatBool(cfg.WidgetBranding)
		if cfg.RecurringPayments || input.Recurring {
			params["recurring-payment"] = "true"
		}
	}
	params["sig"] = SignWidgetParams(params, cfg.SecondKey)
	return params
}
