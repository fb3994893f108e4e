package payu

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	raw := validTestConfig()
	raw["base_url"] = server.URL + "/"
	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return client
}

func TestFetchAccessToken(t *testing.T) {
	var authCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/pl/standard/user/oauth/authorize", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&authCalls, 1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form failed: %v", err)
		}
		if r.PostForm.Get("grant_type") != GrantClientCredentials {
			t.Errorf("unexpected grant_type: %s", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("client_id") != "300746" {
			t.Errorf("unexpected client_id: %s", r.PostForm.Get("client_id"))
		}
		fmt.Fprint(w, `{"access_token":"tok-1","token_type":"bearer","expires_in":43199}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	token, err := client.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken error: %v", err)
	}
	if token != "tok-1" {
		t.Fatalf("unexpected token: %s", token)
	}

	// 第二次取令牌应命中缓存
	if _, err := client.AccessToken(context.Background()); err != nil {
		t.Fatalf("AccessToken error: %v", err)
	}
	if calls := atomic.LoadInt32(&authCalls); calls != 1 {
		t.Fatalf("auth endpoint should be hit once, got %d", calls)
	}
}

func TestFetchAccessTokenMissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"invalid_client"}`)
	}))
	defer server.Close()

	client := testClient(t, server)
	if _, err := client.AccessToken(context.Background()); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got: %v", err)
	}
}

func TestAuthenticatedRequestRetriesOnUnauthorized(t *testing.T) {
	var tokenSeq int32
	mux := http.NewServeMux()
	mux.HandleFunc("/pl/standard/user/oauth/authorize", func(w http.ResponseWriter, r *http.Request) {
		seq := atomic.AddInt32(&tokenSeq, 1)
		fmt.Fprintf(w, `{"access_token":"tok-%d"}`, seq)
	})
	mux.HandleFunc("/api/v2_1/orders/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-2" {
			// 第一块令牌被判定失效
			fmt.Fprint(w, `{"error":"invalid_token","error_description":"expired"}`)
			return
		}
		fmt.Fprint(w, `{"orderId":"X1","status":{"statusCode":"SUCCESS"}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	raw, err := client.AuthenticatedRequest(context.Background(), http.MethodPost, client.Config().OrderURL(), map[string]interface{}{"a": 1})
	if err != nil {
		t.Fatalf("AuthenticatedRequest error: %v", err)
	}
	if readString(raw, "orderId") != "X1" {
		t.Fatalf("unexpected response: %v", raw)
	}
	if seq := atomic.LoadInt32(&tokenSeq); seq != 2 {
		t.Fatalf("expected exactly one re-authentication, got %d tokens", seq)
	}
}

func TestAuthenticatedRequestRetriesOnUnauthorizedStatusCode(t *testing.T) {
	var orderCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/pl/standard/user/oauth/authorize", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok"}`)
	})
	mux.HandleFunc("/api/v2_1/orders/", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&orderCalls, 1) == 1 {
			fmt.Fprint(w, `{"status":{"statusCode":"UNAUTHORIZED"}}`)
			return
		}
		fmt.Fprint(w, `{"orderId":"X2","status":{"statusCode":"SUCCESS"}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	raw, err := client.AuthenticatedRequest(context.Background(), http.MethodPost, client.Config().OrderURL(), nil)
	if err != nil {
		t.Fatalf("AuthenticatedRequest error: %v", err)
	}
	if readString(raw, "orderId") != "X2" {
		t.Fatalf("unexpected response: %v", raw)
	}
}

func TestAuthenticatedRequestExhaustsRetries(t *testing.T) {
	var orderCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/pl/standard/user/oauth/authorize", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok"}`)
	})
	mux.HandleFunc("/api/v2_1/orders/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&orderCalls, 1)
		fmt.Fprint(w, `{"error":"invalid_token"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	_, err := client.AuthenticatedRequest(context.Background(), http.MethodPost, client.Config().OrderURL(), nil)
	if !errors.Is(err, ErrAuthExhausted) {
		t.Fatalf("expected ErrAuthExhausted, got: %v", err)
	}
	if calls := atomic.LoadInt32(&orderCalls); calls != int32(maxAuthAttempts) {
		t.Fatalf("expected %d attempts, got %d", maxAuthAttempts, calls)
	}
}

func TestAuthenticatedRequestKeepsRetryingWhenRefreshFails(t *testing.T) {
	var authCalls, orderCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/pl/standard/user/oauth/authorize", func(w http.ResponseWriter, r *http.Request) {
		// 首次授权成功，之后的刷新全部失败
		if atomic.AddInt32(&authCalls, 1) == 1 {
			fmt.Fprint(w, `{"access_token":"tok"}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"server_error"}`)
	})
	mux.HandleFunc("/api/v2_1/orders/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&orderCalls, 1)
		fmt.Fprint(w, `{"error":"invalid_token"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	_, err := client.AuthenticatedRequest(context.Background(), http.MethodPost, client.Config().OrderURL(), nil)
	if !errors.Is(err, ErrAuthExhausted) {
		t.Fatalf("expected ErrAuthExhausted, got: %v", err)
	}
	if !strings.Contains(err.Error(), "auth endpoint returned 500") {
		t.Fatalf("exhaustion error should cite the last auth failure, got: %v", err)
	}
	if calls := atomic.LoadInt32(&orderCalls); calls != int32(maxAuthAttempts) {
		t.Fatalf("refresh failure must not cut the loop short, got %d attempts", calls)
	}
	if calls := atomic.LoadInt32(&authCalls); calls != int32(maxAuthAttempts)+1 {
		t.Fatalf("expected %d auth calls, got %d", maxAuthAttempts+1, calls)
	}
}

func TestCancelOrderSendsTwoDeletes(t *testing.T) {
	var deletes int32
	mux := http.NewServeMux()
	mux.HandleFunc("/pl/standard/user/oauth/authorize", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok"}`)
	})
	mux.HandleFunc("/api/v2_1/orders/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method: %s", r.Method)
		}
		atomic.AddInt32(&deletes, 1)
		fmt.Fprint(w, `{"status":{"statusCode":"SUCCESS"}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	if err := client.CancelOrder(context.Background(), "ORDER-1"); err != nil {
		t.Fatalf("CancelOrder error: %v", err)
	}
	if got := atomic.LoadInt32(&deletes); got != 2 {
		t.Fatalf("cancel should DELETE twice, got %d", got)
	}
}

func TestDeleteCardToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pl/standard/user/oauth/authorize", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok"}`)
	})
	mux.HandleFunc("/api/v2_1/tokens/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	if err := client.DeleteCardToken(context.Background(), "TOK_1"); err != nil {
		t.Fatalf("DeleteCardToken error: %v", err)
	}
}

func TestDeleteCardTokenUnexpectedStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pl/standard/user/oauth/authorize", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok"}`)
	})
	mux.HandleFunc("/api/v2_1/tokens/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	if err := client.DeleteCardToken(context.Background(), "TOK_1"); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid, got: %v", err)
	}
}

func TestAuthenticatedRequestNonJSONBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pl/standard/user/oauth/authorize", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok"}`)
	})
	mux.HandleFunc("/api/v2_1/orders/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>bad gateway</html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	_, err := client.AuthenticatedRequest(context.Background(), http.MethodGet, client.Config().OrderURL(), nil)
	if !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid, got: %v", err)
	}
}
