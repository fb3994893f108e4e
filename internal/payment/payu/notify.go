package payu

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// SignatureHeader 回调签名头名称。
const SignatureHeader = "OpenPayU-Signature"

const signatureAlgorithmMD5 = "MD5"

// ParseSignatureHeader 解析 `key1=v1;key2=v2` 形式的签名头。
func ParseSignatureHeader(header string) (signature, algorithm string, err error) {
	if strings.TrimSpace(header) == "" {
		return "", "", fmt.Errorf("%w: signature header missing", ErrNotificationMalformed)
	}
	for _, part := range strings.Split(header, ";") {
		pair := strings.SplitN(part, "=", 2)
		if len(pair) != 2 {
			continue
		}
		switch strings.TrimSpace(pair[0]) {
		case "signature":
			signature = strings.TrimSpace(pair[1])
		case "algorithm":
			algorithm = strings.TrimSpace(pair[1])
		}
	}
	if signature == "" || algorithm == "" {
		return "", "", fmt.Errorf("%w: signature header incomplete", ErrNotificationMalformed)
	}
	return signature, algorithm, nil
}

// VerifyNotification 校验回调签名：MD5(原始请求体 + second_key) 的十六进制摘要，大小写敏感比较。
func VerifyNotification(secondKey, header string, body []byte) error {
	signature, algorithm, err := ParseSignatureHeader(header)
	if err != nil {
		return err
	}
	if algorithm != signatureAlgorithmMD5 {
		return fmt.Errorf("%w: unsupported algorithm %q", ErrSignatureMismatch, algorithm)
	}
	digest := md5.Sum(append(append([]byte{}, body...), []byte(secondKey)...))
	if hex.EncodeToString(digest[:]) != signature {
		return ErrSignatureMismatch
	}
	return nil
}

// OrderNotification 订单状态回调。
type OrderNotification struct {
	OrderID    string
	ExtOrderID string
	Status     string
	Currency   string
	// TotalMinor 仅在网关下发 totalAmount 时非空
	TotalMinor *int64
}

// RefundNotification 退款回调。
type RefundNotification struct {
	OrderID     string
	RefundID    string
	ExtRefundID string
	Status      string
	Currency    string
	AmountMinor int64
	Description string
}

// Notification 回调内容，订单与退款两种形态互斥。
type Notification struct {
	Order  *OrderNotification
	Refund *RefundNotification
	Raw    map[string]interface{}
}

// ParseNotification 解析回调请求体。
func ParseNotification(body []byte) (*Notification, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: body is not json", ErrNotificationMalformed)
	}

	if refund := readMap(raw, "refund"); refund != nil {
		amount, ok := readMinor(refund, "amount")
		if !ok {
			return nil, fmt.Errorf("%w: refund notification missing amount", ErrNotificationMalformed)
		}
		return &Notification{
			Refund: &RefundNotification{
				OrderID:     readString(raw, "orderId"),
				RefundID:    readString(refund, "refundId"),
				ExtRefundID: readString(refund, "extRefundId"),
				Status:      readString(refund, "status"),
				Currency:    readString(refund, "currencyCode"),
				AmountMinor: amount,
				Description: readString(refund, "description"),
			},
			Raw: raw,
		}, nil
	}

	if order := readMap(raw, "order"); order != nil {
		notification := &OrderNotification{
			OrderID:    readString(order, "orderId"),
			ExtOrderID: readString(order, "extOrderId"),
			Status:     readString(order, "status"),
			Currency:   readString(order, "currencyCode"),
		}
		if total, ok := readMinor(order, "totalAmount"); ok {
			notification.TotalMinor = &total
		}
		if notification.Status == "" {
			return nil, fmt.Errorf("%w: order notification missing status", ErrNotificationMalformed)
		}
		return &Notification{Order: notification, Raw: raw}, nil
	}

	return nil, fmt.Errorf("%w: neither order nor refund payload", ErrNotificationMalformed)
}
