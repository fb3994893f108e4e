package payu

import (
	"errors"
	"testing"
)

func validTestConfig() map[string]interface{} {
	return map[string]interface{}{
		"pos_id":        "300746",
		"client_secret": "2ee86a66e5d97e3fadc400c9f19b065d",
		"second_key":    "b6ca15b0d1020e8094d9b5f8d163db54",
		"sandbox":       true,
		"notify_url":    "https://example.com/webhooks/payu/1",
		"continue_url":  "https://example.com/continue",
		"failure_url":   "https://example.com/failure",
	}
}

func TestParseConfigDerivesEndpoints(t *testing.T) {
	cfg, err := ParseConfig(validTestConfig())
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}
	if cfg.BaseURL != "https://secure.snd.payu.com/" {
		t.Fatalf("unexpected sandbox base url: %s", cfg.BaseURL)
	}
	if cfg.AuthURL != "https://secure.snd.payu.com/pl/standard/user/oauth/authorize" {
		t.Fatalf("unexpected auth url: %s", cfg.AuthURL)
	}
	if cfg.OrderURL() != "https://secure.snd.payu.com/api/v2_1/orders/" {
		t.Fatalf("unexpected order url: %s", cfg.OrderURL())
	}
	if cfg.GrantType != GrantClientCredentials {
		t.Fatalf("grant type should default to client_credentials, got %s", cfg.GrantType)
	}
}

func TestParseConfigProductionBaseURL(t *testing.T) {
	raw := validTestConfig()
	raw["sandbox"] = false
	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}
	if cfg.BaseURL != "https://secure.payu.com/" {
		t.Fatalf("unexpected production base url: %s", cfg.BaseURL)
	}
}

func TestValidateConfigMissingSecondKey(t *testing.T) {
	raw := validTestConfig()
	delete(raw, "second_key")
	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}
	if err := ValidateConfig(cfg); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got: %v", err)
	}
}

func TestValidateConfigTrustedMerchantRequiresIdentity(t *testing.T) {
	raw := validTestConfig()
	raw["grant_type"] = GrantTrustedMerchant
	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}
	if err := ValidateConfig(cfg); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("trusted_merchant without identity should fail, got: %v", err)
	}

	raw["trusted_email"] = "user@example.com"
	cfg, err = ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("trusted_merchant with email should pass, got: %v", err)
	}
}

func TestValidateConfigUnknownGrantType(t *testing.T) {
	raw := validTestConfig()
	raw["grant_type"] = "password"
	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}
	if err := ValidateConfig(cfg); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("unknown grant type should fail, got: %v", err)
	}
}

func TestReadMinorVariants(t *testing.T) {
	raw := map[string]interface{}{
		"a": "1500",
		"b": float64(200),
		"c": map[string]interface{}{"d": "42"},
	}
	if v, ok := readMinor(raw, "a"); !ok || v != 1500 {
		t.Fatalf("string amount parse failed: %d %v", v, ok)
	}
	if v, ok := readMinor(raw, "b"); !ok || v != 200 {
		t.Fatalf("float amount parse failed: %d %v", v, ok)
	}
	if v, ok := readMinor(raw, "c", "d"); !ok || v != 42 {
		t.Fatalf("nested amount parse failed: %d %v", v, ok)
	}
	if _, ok := readMinor(raw, "missing"); ok {
		t.Fatalf("missing key should not parse")
	}
}
