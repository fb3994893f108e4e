package payu

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// 各币种的分单位换算倍数，网关对未列出的币种一律拒绝。
var currencySubUnits = map[string]int64{
	"PLN": 100,
	"EUR": 100,
	"USD": 100,
	"CZK": 100,
	"GBP": 100,
}

// SupportedCurrency 判断币种是否受支持。
func SupportedCurrency(currency string) bool {
	_, ok := currencySubUnits[currency]
	return ok
}

// Quantize 将十进制金额换算为网关的分单位整数，四舍五入到最近的分。
func Quantize(amount decimal.Decimal, currency string) (int64, error) {
	subUnits, ok := currencySubUnits[currency]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrCurrencyUnsupported, currency)
	}
	scaled := amount.Mul(decimal.NewFromInt(subUnits)).Round(0)
	return scaled.IntPart(), nil
}

// Dequantize 将网关的分单位整数还原为十进制金额。
func Dequantize(minor int64, currency string) (decimal.Decimal, error) {
	subUnits, ok := currencySubUnits[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrCurrencyUnsupported, currency)
	}
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(subUnits)), nil
}
