package payu

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"
)

const testSecondKey = "b6ca15b0d1020e8094d9b5f8d163db54"

func signBody(body []byte, key string) string {
	digest := md5.Sum(append(append([]byte{}, body...), []byte(key)...))
	return hex.EncodeToString(digest[:])
}

func TestParseSignatureHeader(t *testing.T) {
	signature, algorithm, err := ParseSignatureHeader("sender=checkout;signature=abc123;algorithm=MD5;content=DOCUMENT")
	if err != nil {
		t.Fatalf("ParseSignatureHeader error: %v", err)
	}
	if signature != "abc123" || algorithm != "MD5" {
		t.Fatalf("unexpected parse result: %s %s", signature, algorithm)
	}
}

func TestParseSignatureHeaderIncomplete(t *testing.T) {
	for _, header := range []string{"", "signature=abc", "algorithm=MD5", "garbage"} {
		if _, _, err := ParseSignatureHeader(header); !errors.Is(err, ErrNotificationMalformed) {
			t.Fatalf("header %q should be malformed, got: %v", header, err)
		}
	}
}

func TestVerifyNotification(t *testing.T) {
	body := []byte(`{"order":{"orderId":"A1","status":"COMPLETED"}}`)
	header := fmt.Sprintf("signature=%s;algorithm=MD5", signBody(body, testSecondKey))
	if err := VerifyNotification(testSecondKey, header, body); err != nil {
		t.Fatalf("VerifyNotification should pass, got: %v", err)
	}
}

func TestVerifyNotificationMismatch(t *testing.T) {
	body := []byte(`{"order":{"orderId":"A1"}}`)
	header := "signature=deadbeef;algorithm=MD5"
	if err := VerifyNotification(testSecondKey, header, body); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got: %v", err)
	}
}

func TestVerifyNotificationSignatureIsCaseSensitive(t *testing.T) {
	body := []byte(`{"order":{"orderId":"A1"}}`)
	// 摘要改为大写后必须校验失败
	header := fmt.Sprintf("signature=%s;algorithm=MD5", strings.ToUpper(signBody(body, testSecondKey)))
	if err := VerifyNotification(testSecondKey, header, body); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("uppercase digest should mismatch, got: %v", err)
	}
}

func TestVerifyNotificationUnsupportedAlgorithm(t *testing.T) {
	body := []byte(`{}`)
	header := fmt.Sprintf("signature=%s;algorithm=SHA256", signBody(body, testSecondKey))
	if err := VerifyNotification(testSecondKey, header, body); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("unsupported algorithm should mismatch, got: %v", err)
	}
}

func TestParseNotificationOrder(t *testing.T) {
	body := []byte(`{
		"order": {
			"orderId": "LDLW5N7MF4140324GUEST000P01",
			"extOrderId": "pay-7",
			"status": "COMPLETED",
			"currencyCode": "PLN",
			"totalAmount": "21000"
		},
		"localReceiptDateTime": "2026-03-08T12:58:14.828+01:00"
	}`)
	notification, err := ParseNotification(body)
	if err != nil {
		t.Fatalf("ParseNotification error: %v", err)
	}
	if notification.Refund != nil || notification.Order == nil {
		t.Fatalf("expected order notification")
	}
	order := notification.Order
	if order.OrderID != "LDLW5N7MF4140324GUEST000P01" || order.ExtOrderID != "pay-7" {
		t.Fatalf("unexpected ids: %s %s", order.OrderID, order.ExtOrderID)
	}
	if order.Status != "COMPLETED" || order.Currency != "PLN" {
		t.Fatalf("unexpected status/currency: %s %s", order.Status, order.Currency)
	}
	if order.TotalMinor == nil || *order.TotalMinor != 21000 {
		t.Fatalf("unexpected total: %v", order.TotalMinor)
	}
}

func TestParseNotificationOrderWithoutTotal(t *testing.T) {
	body := []byte(`{"order":{"orderId":"A1","status":"PENDING"}}`)
	notification, err := ParseNotification(body)
	if err != nil {
		t.Fatalf("ParseNotification error: %v", err)
	}
	if notification.Order.TotalMinor != nil {
		t.Fatalf("total should be absent")
	}
}

func TestParseNotificationRefund(t *testing.T) {
	body := []byte(`{
		"orderId": "LDLW5N7MF4140324GUEST000P01",
		"extOrderId": "pay-7",
		"refund": {
			"refundId": "5000009987",
			"extRefundId": "ext-1",
			"amount": "5500",
			"currencyCode": "PLN",
			"status": "FINALIZED",
			"description": "Refund of payment pay-7"
		}
	}`)
	notification, err := ParseNotification(body)
	if err != nil {
		t.Fatalf("ParseNotification error: %v", err)
	}
	if notification.Order != nil || notification.Refund == nil {
		t.Fatalf("expected refund notification")
	}
	refund := notification.Refund
	if refund.OrderID != "LDLW5N7MF4140324GUEST000P01" || refund.RefundID != "5000009987" {
		t.Fatalf("unexpected ids: %s %s", refund.OrderID, refund.RefundID)
	}
	if refund.AmountMinor != 5500 || refund.Status != "FINALIZED" {
		t.Fatalf("unexpected amount/status: %d %s", refund.AmountMinor, refund.Status)
	}
	if refund.Description != "Refund of payment pay-7" {
		t.Fatalf("unexpected description: %s", refund.Description)
	}
}

func TestParseNotificationMalformed(t *testing.T) {
	for _, body := range []string{"not json", `{"something":"else"}`, `{"refund":{"status":"FINALIZED"}}`} {
		if _, err := ParseNotification([]byte(body)); !errors.Is(err, ErrNotificationMalformed) {
			t.Fatalf("body %q should be malformed, got: %v", body, err)
		}
	}
}
