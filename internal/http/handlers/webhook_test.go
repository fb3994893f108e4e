package handlers

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/payu-bridge/internal/config"
	"github.com/payu-bridge/internal/constants"
	"github.com/payu-bridge/internal/models"
	"github.com/payu-bridge/internal/payment/payu"
	"github.com/payu-bridge/internal/provider"
	"github.com/payu-bridge/internal/repository"
	"github.com/payu-bridge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const webhookSecondKey = "b6ca15b0d1020e8094d9b5f8d163db54"

func setupWebhookRouter(t *testing.T, name string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Channel{}, &models.Payment{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	paymentRepo := repository.NewPaymentRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	channel := &models.Channel{
		Name: "PayU PLN",
		Code: "payu_pln",
		ConfigJSON: models.JSON{
			"pos_id":        "300746",
			"client_secret": "secret",
			"second_key":    webhookSecondKey,
			"sandbox":       true,
		},
		Active: true,
	}
	if err := channelRepo.Create(channel); err != nil {
		t.Fatalf("create channel failed: %v", err)
	}
	payment := &models.Payment{
		Token:         "pay-hook-1",
		ChannelID:     channel.ID,
		Status:        constants.PaymentStatusWaiting,
		Total:         models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		Currency:      "PLN",
		TransactionID: "GW-H1",
	}
	if err := paymentRepo.Create(payment); err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	h := New(&provider.Container{
		PaymentRepo:    paymentRepo,
		ChannelRepo:    channelRepo,
		PaymentService: service.NewPaymentService(paymentRepo, channelRepo, config.RefundConfig{DescriptionTemplate: "Refund of payment %s"}),
	})
	r := gin.New()
	r.POST("/webhooks/payu/:channel_id", h.PaymentWebhook)
	return r
}

func signWebhookBody(body []byte) string {
	digest := md5.Sum(append(append([]byte{}, body...), []byte(webhookSecondKey)...))
	return fmt.Sprintf("signature=%s;algorithm=MD5", hex.EncodeToString(digest[:]))
}

func TestPaymentWebhookAccepted(t *testing.T) {
	r := setupWebhookRouter(t, "webhook_ok")

	body := []byte(`{"order":{"orderId":"GW-H1","extOrderId":"pay-hook-1","status":"COMPLETED"}}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payu/1", bytes.NewReader(body))
	req.Header.Set(payu.SignatureHeader, signWebhookBody(body))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200 got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "ok" {
		t.Fatalf("gateway expects plain ok, got: %q", w.Body.String())
	}
}

func TestPaymentWebhookBadSignature(t *testing.T) {
	r := setupWebhookRouter(t, "webhook_badsig")

	body := []byte(`{"order":{"orderId":"GW-H1","status":"COMPLETED"}}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payu/1", bytes.NewReader(body))
	req.Header.Set(payu.SignatureHeader, "signature=deadbeef;algorithm=MD5")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("want 500 got %d", w.Code)
	}
	if w.Body.String() != "not ok" {
		t.Fatalf("unexpected body: %q", w.Body.String())
	}
}

func TestPaymentWebhookBadChannelID(t *testing.T) {
	r := setupWebhookRouter(t, "webhook_badchannel")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payu/abc", bytes.NewReader([]byte(`{}`)))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("want 500 got %d", w.Code)
	}
}
