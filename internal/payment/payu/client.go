package payu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// 同一请求内的授权重试上限，超过即判定凭据失效。
const maxAuthAttempts = 5

// Client PayU 网关客户端，缓存访问令牌并在令牌失效时自动刷新。
type Client struct {
	cfg  *Config
	http *http.Client

	mu    sync.Mutex
	token string
}

// NewClient 创建客户端。
func NewClient(cfg *Config) (*Client, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Config 返回客户端配置。
func (c *Client) Config() *Config {
	return c.cfg
}

// AccessToken 返回缓存的访问令牌，缓存为空时向网关获取。
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	token, err := c.fetchAccessToken(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

// refreshAfter 丢弃已判定失效的令牌并获取新令牌。
// 其他 goroutine 已经换过令牌时直接复用，避免重复请求授权端点。
func (c *Client) refreshAfter(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.token != stale {
		return c.token, nil
	}
	c.token = ""
	token, err := c.fetchAccessToken(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

func (c *Client) fetchAccessToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", c.cfg.GrantType)
	form.Set("client_id", c.cfg.PosID)
	form.Set("client_secret", c.cfg.ClientSecret)
	if c.cfg.GrantType == GrantTrustedMerchant {
		if c.cfg.TrustedEmail != "" {
			form.Set("email", c.cfg.TrustedEmail)
		}
		if c.cfg.TrustedCustomerID != "" {
			form.Set("ext_customer_id", c.cfg.TrustedCustomerID)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build auth request failed: %v", ErrAuthFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read auth response failed: %v", ErrAuthFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: auth endpoint returned %d", ErrAuthFailed, resp.StatusCode)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: auth response is not json", ErrAuthFailed)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("%w: auth response missing access_token", ErrAuthFailed)
	}
	return parsed.AccessToken, nil
}

// AuthenticatedRequest 携带访问令牌请求网关 JSON 端点。
// 网关报告令牌失效时换新令牌重试，连续失败达到上限返回 ErrAuthExhausted。
func (c *Client) AuthenticatedRequest(ctx context.Context, method, rawURL string, payload interface{}) (map[string]interface{}, error) {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal payload failed: %v", ErrRequestFailed, err)
		}
		body = encoded
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var lastAuthErr error
	for attempt := 1; attempt <= maxAuthAttempts; attempt++ {
		parsed, unauthorized, err := c.doJSONRequest(ctx, method, rawURL, body, token)
		if err != nil {
			return nil, err
		}
		if !unauthorized {
			return parsed, nil
		}
		// 刷新失败不终止循环，带着旧令牌继续耗尽重试次数
		refreshed, err := c.refreshAfter(ctx, token)
		if err != nil {
			lastAuthErr = err
			continue
		}
		lastAuthErr = nil
		token = refreshed
	}
	if lastAuthErr != nil {
		return nil, fmt.Errorf("%w: gateway kept rejecting the token after %d attempts: %v", ErrAuthExhausted, maxAuthAttempts, lastAuthErr)
	}
	return nil, fmt.Errorf("%w: gateway kept rejecting the token after %d attempts", ErrAuthExhausted, maxAuthAttempts)
}

func (c *Client) doJSONRequest(ctx context.Context, method, rawURL string, body []byte, token string) (map[string]interface{}, bool, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, false, fmt.Errorf("%w: build request failed: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, false, fmt.Errorf("%w: read response failed: %v", ErrRequestFailed, err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, false, fmt.Errorf("%w: body is not json: %s", ErrResponseInvalid, snippet(raw))
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, true, nil
	}
	if readString(parsed, "error") == "invalid_token" ||
		readString(parsed, "status", "statusCode") == StatusUnauthorized {
		return nil, true, nil
	}
	return parsed, false, nil
}

// Delete 发送不带响应体解析的 DELETE 请求，返回 HTTP 状态码。
func (c *Client) Delete(ctx context.Context, rawURL string) (int, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build request failed: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, nil
}

func snippet(raw []byte) string {
	const limit = 200
	text := strings.TrimSpace(string(raw))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
