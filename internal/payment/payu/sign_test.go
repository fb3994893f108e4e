package payu

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSignWidgetParams(t *testing.T) {
	params := map[string]string{
		"merchant-pos-id":   "300746",
		"total-amount":      "21.5",
		"currency-code":     "PLN",
		"customer-language": "en",
		"customer-email":    "user@example.com",
		"success-callback":  "cardSuccess",
	}
	// 拼接顺序固定：currency-code, customer-email, customer-language, merchant-pos-id, total-amount
	expectedInput := "PLN" + "user@example.com" + "en" + "300746" + "21.5" + testSecondKey
	digest := sha256.Sum256([]byte(expectedInput))
	expected := strings.ToLower(hex.EncodeToString(digest[:]))

	if got := SignWidgetParams(params, testSecondKey); got != expected {
		t.Fatalf("signature mismatch: got %s, want %s", got, expected)
	}
}

func TestSignWidgetParamsSkipsUnlistedKeys(t *testing.T) {
	base := map[string]string{"merchant-pos-id": "300746"}
	withExtra := map[string]string{"merchant-pos-id": "300746", "success-callback": "cardSuccess"}
	if SignWidgetParams(base, testSecondKey) != SignWidgetParams(withExtra, testSecondKey) {
		t.Fatalf("keys outside the fixed list must not affect the signature")
	}
}

func TestWidgetParamsStandard(t *testing.T) {
	raw := validTestConfig()
	raw["shop_name"] = "My Shop"
	raw["store_card"] = true
	raw["recurring_payments"] = true
	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}
	params := WidgetParams(cfg, WidgetInput{
		TotalAmount: decimal.RequireFromString("21.50"),
		Currency:    "PLN",
		Email:       "user@example.com",
	})
	if params["merchant-pos-id"] != "300746" {
		t.Fatalf("unexpected pos id: %s", params["merchant-pos-id"])
	}
	if params["shop-name"] != "My_Shop" {
		t.Fatalf("shop name should replace spaces: %s", params["shop-name"])
	}
	if params["customer-language"] != "en" {
		t.Fatalf("language should default to en: %s", params["customer-language"])
	}
	if params["store-card"] != "true" || params["recurring-payment"] != "true" {
		t.Fatalf("store-card/recurring flags missing: %v", params)
	}
	sig := params["sig"]
	if sig == "" {
		t.Fatalf("sig missing")
	}
	delete(params, "sig")
	if SignWidgetParams(params, cfg.SecondKey) != sig {
		t.Fatalf("sig does not match params")
	}
}

func TestWidgetParamsCvv(t *testing.T) {
	cfg, err := ParseConfig(validTestConfig())
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}
	params := WidgetParams(cfg, WidgetInput{
		TotalAmount: decimal.NewFromInt(10),
		Currency:    "PLN",
		CvvURL:      "https://secure.snd.payu.com/cvv?id=1",
	})
	if params["widget-type"] != "cvv" || params["cvv-url"] == "" {
		t.Fatalf("cvv widget params missing: %v", params)
	}
	if _, present := params["customer-email"]; present {
		t.Fatalf("cvv widget should not carry customer-email")
	}
}
