package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrConfigInvalid    = errors.New("paypal config invalid")
	ErrAuthFailed       = errors.New("paypal auth failed")
	ErrRequestFailed    = errors.New("paypal request failed")
	ErrResponseInvalid  = errors.New("paypal response invalid")
	ErrAlreadyCaptured  = errors.New("paypal order already captured")
	ErrOrderNotApproved = errors.New("paypal order not approved")
)

const (
	// StatusCompleted 扣款完成状态
	StatusCompleted = "COMPLETED"

	defaultSandboxBaseURL = "https://api-m.sandbox.paypal.com"
	defaultTimeout        = 12 * time.Second
	defaultBrandName      = "The Union"
	defaultDescription    = "상품 구매"
	tokenExpirySkew       = 60 * time.Second
)

// Config PayPal 渠道配置。
type Config struct {
	ClientID           string        `json:"client_id"`
	ClientSecret       string        `json:"client_secret"`
	BaseURL            string        `json:"base_url"`
	ReturnURL          string        `json:"return_url"`
	CancelURL          string        `json:"cancel_url"`
	BrandName          string        `json:"brand_name"`
	Locale             string        `json:"locale"`
	LandingPage        string        `json:"landing_page"`
	UserAction         string        `json:"user_action"`
	ShippingPreference string        `json:"shipping_preference"`
	Timeout            time.Duration `json:"-"`
	HTTPClient         *http.Client  `json:"-"`
	TokenCache         TokenCache    `json:"-"`
}

// TokenCache 访问令牌缓存（可选）。
type TokenCache interface {
	GetToken(ctx context.Context, key string) (string, bool)
	SetToken(ctx context.Context, key, token string, ttl time.Duration)
}

// CreateInput 创建 PayPal 订单输入。
type CreateInput struct {
	InvoiceID   string
	CustomID    string
	Amount      string
	Currency    string
	Description string
	ReturnURL   string
	CancelURL   string
}

// CreateResult 创建 PayPal 订单返回。
type CreateResult struct {
	OrderID     string
	ApprovalURL string
	Status      string
	Raw         map[string]interface{}
}

// CaptureResult 捕获订单返回。
type CaptureResult struct {
	OrderID       string
	TransactionID string
	Status        string
	CaptureStatus string
	Amount        string
	Currency      string
	PaidAt        *time.Time
	Raw           map[string]interface{}
}

// ValidateConfig 校验配置。
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	cfg.normalize()
	if cfg.ClientID == "" {
		return fmt.Errorf("%w: client_id is required", ErrConfigInvalid)
	}
	if cfg.ClientSecret == "" {
		return fmt.Errorf("%w: client_secret is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return fmt.Errorf("%w: base_url is invalid", ErrConfigInvalid)
	}
	for name, raw := range map[string]string{"return_url": cfg.ReturnURL, "cancel_url": cfg.CancelURL} {
		if raw == "" {
			continue
		}
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("%w: %s is invalid", ErrConfigInvalid, name)
		}
	}
	return nil
}

// FormatAmount 将金额格式化为两位小数字符串。
func FormatAmount(raw string) (string, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || value <= 0 {
		return "", fmt.Errorf("%w: amount is invalid", ErrConfigInvalid)
	}
	return strconv.FormatFloat(value, 'f', 2, 64), nil
}

// CreateOrder 创建 PayPal 订单（intent=CAPTURE）。
func CreateOrder(ctx context.Context, cfg *Config, input CreateInput) (*CreateResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	amount, err := FormatAmount(input.Amount)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrConfigInvalid)
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = defaultDescription
	}
	returnURL := strings.TrimSpace(input.ReturnURL)
	if returnURL == "" {
		returnURL = cfg.ReturnURL
	}
	cancelURL := strings.TrimSpace(input.CancelURL)
	if cancelURL == "" {
		cancelURL = cfg.CancelURL
	}

	token, err := getAccessToken(ctx, cfg)
	if err != nil {
		return nil, err
	}

	unit := map[string]interface{}{
		"amount": map[string]string{
			"currency_code": currency,
			"value":         amount,
		},
		"description": description,
	}
	if v := strings.TrimSpace(input.CustomID); v != "" {
		unit["custom_id"] = v
	}
	if v := strings.TrimSpace(input.InvoiceID); v != "" {
		unit["invoice_id"] = v
	}
	payload := map[string]interface{}{
		"intent":              "CAPTURE",
		"purchase_units":      []map[string]interface{}{unit},
		"application_context": buildApplicationContext(cfg, returnURL, cancelURL),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request failed", ErrRequestFailed)
	}

	respBody, statusCode, err := doJSONRequest(ctx, cfg, http.MethodPost, "/v2/checkout/orders", token, body, nil)
	if err != nil {
		return nil, err
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, fmt.Errorf("%w: create order status %d", ErrResponseInvalid, statusCode)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}

	result := &CreateResult{Raw: raw}
	result.OrderID = strings.TrimSpace(readString(raw, "id"))
	result.Status = strings.TrimSpace(readString(raw, "status"))
	result.ApprovalURL = extractLinkByRel(raw, "approve")
	if result.OrderID == "" {
		return nil, fmt.Errorf("%w: missing order id", ErrResponseInvalid)
	}
	return result, nil
}

// CaptureRequestID 生成确定性的幂等请求头，重复捕获由 PayPal 侧去重。
func CaptureRequestID(orderID string) string {
	return "capture-" + strings.TrimSpace(orderID)
}

// CaptureOrder 捕获 PayPal 订单。
func CaptureOrder(ctx context.Context, cfg *Config, orderID string) (*CaptureResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is empty", ErrConfigInvalid)
	}

	token, err := getAccessToken(ctx, cfg)
	if err != nil {
		return nil, err
	}

	endpoint := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	headers := map[string]string{"PayPal-Request-Id": CaptureRequestID(orderID)}
	respBody, statusCode, err := doJSONRequest(ctx, cfg, http.MethodPost, endpoint, token, []byte("{}"), headers)
	if err != nil {
		return nil, err
	}
	if statusCode == http.StatusUnprocessableEntity {
		switch readIssue(respBody) {
		case "ORDER_ALREADY_CAPTURED":
			return nil, ErrAlreadyCaptured
		case "ORDER_NOT_APPROVED":
			return nil, ErrOrderNotApproved
		}
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, fmt.Errorf("%w: capture status %d", ErrResponseInvalid, statusCode)
	}
	return parseCapture(respBody, orderID)
}

// GetOrder 查询 PayPal 订单详情（用于重复捕获后读取结果）。
func GetOrder(ctx context.Context, cfg *Config, orderID string) (*CaptureResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is empty", ErrConfigInvalid)
	}
	token, err := getAccessToken(ctx, cfg)
	if err != nil {
		return nil, err
	}
	respBody, statusCode, err := doJSONRequest(ctx, cfg, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(orderID), token, nil, nil)
	if err != nil {
		return nil, err
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, fmt.Errorf("%w: get order status %d", ErrResponseInvalid, statusCode)
	}
	return parseCapture(respBody, orderID)
}

func parseCapture(respBody []byte, orderID string) (*CaptureResult, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}

	result := &CaptureResult{Raw: raw}
	result.OrderID = strings.TrimSpace(readString(raw, "id"))
	result.Status = strings.ToUpper(strings.TrimSpace(readString(raw, "status")))

	captures := readArray(raw, "purchase_units", "0", "payments", "captures")
	if len(captures) > 0 {
		if captureMap, ok := captures[0].(map[string]interface{}); ok {
			result.TransactionID = strings.TrimSpace(readString(captureMap, "id"))
			result.CaptureStatus = strings.ToUpper(strings.TrimSpace(readString(captureMap, "status")))
			result.Amount = strings.TrimSpace(readString(captureMap, "amount", "value"))
			result.Currency = strings.TrimSpace(readString(captureMap, "amount", "currency_code"))
			if rawTime := strings.TrimSpace(readString(captureMap, "create_time")); rawTime != "" {
				if parsed, err := time.Parse(time.RFC3339, rawTime); err == nil {
					result.PaidAt = &parsed
				}
			}
		}
	}

	if result.OrderID == "" {
		result.OrderID = orderID
	}
	if result.TransactionID == "" {
		result.TransactionID = result.OrderID
	}
	if result.Status == "" {
		result.Status = result.CaptureStatus
	}
	if result.Status == "" {
		return nil, fmt.Errorf("%w: missing capture status", ErrResponseInvalid)
	}
	return result, nil
}

// Completed 订单是否已完成扣款。
func (r *CaptureResult) Completed() bool {
	return r != nil && r.Status == StatusCompleted
}

func (c *Config) normalize() {
	c.ClientID = strings.TrimSpace(c.ClientID)
	c.ClientSecret = strings.TrimSpace(c.ClientSecret)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultSandboxBaseURL
	}
	c.ReturnURL = strings.TrimSpace(c.ReturnURL)
	c.CancelURL = strings.TrimSpace(c.CancelURL)
	c.BrandName = strings.TrimSpace(c.BrandName)
	if c.BrandName == "" {
		c.BrandName = defaultBrandName
	}
	c.Locale = strings.TrimSpace(c.Locale)
	c.LandingPage = strings.TrimSpace(c.LandingPage)
	if c.LandingPage == "" {
		c.LandingPage = "NO_PREFERENCE"
	}
	c.UserAction = strings.TrimSpace(c.UserAction)
	if c.UserAction == "" {
		c.UserAction = "PAY_NOW"
	}
	c.ShippingPreference = strings.TrimSpace(c.ShippingPreference)
	if c.ShippingPreference == "" {
		c.ShippingPreference = "NO_SHIPPING"
	}
}

func buildApplicationContext(cfg *Config, returnURL, cancelURL string) map[string]string {
	ctx := map[string]string{
		"brand_name":          cfg.BrandName,
		"landing_page":        cfg.LandingPage,
		"user_action":         cfg.UserAction,
		"shipping_preference": cfg.ShippingPreference,
	}
	if returnURL = strings.TrimSpace(returnURL); returnURL != "" {
		ctx["return_url"] = returnURL
	}
	if cancelURL = strings.TrimSpace(cancelURL); cancelURL != "" {
		ctx["cancel_url"] = cancelURL
	}
	if cfg.Locale != "" {
		ctx["locale"] = cfg.Locale
	}
	return ctx
}

func tokenCacheKey(cfg *Config) string {
	return "paypal:token:" + cfg.ClientID
}

func getAccessToken(ctx context.Context, cfg *Config) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.TokenCache != nil {
		if token, ok := cfg.TokenCache.GetToken(ctx, tokenCacheKey(cfg)); ok && token != "" {
			return token, nil
		}
	}

	reqCtx, cancel := withDefaultTimeout(ctx, cfg.Timeout)
	defer cancel()

	values := url.Values{}
	values.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(values.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build token request failed", ErrAuthFailed)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(cfg.ClientID, cfg.ClientSecret)

	resp, err := httpClient(cfg).Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request token failed", ErrAuthFailed)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read token response failed", ErrAuthFailed)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: token status %d", ErrAuthFailed, resp.StatusCode)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode token response failed", ErrAuthFailed)
	}
	token := strings.TrimSpace(readString(parsed, "access_token"))
	if token == "" {
		return "", fmt.Errorf("%w: access_token is empty", ErrAuthFailed)
	}
	if cfg.TokenCache != nil {
		if expiresIn, err := strconv.Atoi(readString(parsed, "expires_in")); err == nil {
			ttl := time.Duration(expiresIn)*time.Second - tokenExpirySkew
			if ttl > 0 {
				cfg.TokenCache.SetToken(ctx, tokenCacheKey(cfg), token, ttl)
			}
		}
	}
	return token, nil
}

func httpClient(cfg *Config) *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	return http.DefaultClient
}

func doJSONRequest(ctx context.Context, cfg *Config, method, endpoint, token string, body []byte, headers map[string]string) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := withDefaultTimeout(ctx, cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, cfg.BaseURL+endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient(cfg).Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: http request failed", ErrRequestFailed)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response failed", ErrRequestFailed)
	}
	return respBody, resp.StatusCode, nil
}

func withDefaultTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func readIssue(body []byte) string {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(readString(raw, "details", "0", "issue")))
}

func extractLinkByRel(raw map[string]interface{}, rel string) string {
	links, ok := raw["links"].([]interface{})
	if !ok {
		return ""
	}
	rel = strings.ToLower(strings.TrimSpace(rel))
	for _, item := range links {
		linkMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if strings.ToLower(strings.TrimSpace(readString(linkMap, "rel"))) != rel {
			continue
		}
		if href := strings.TrimSpace(readString(linkMap, "href")); href != "" {
			return href
		}
	}
	return ""
}

func readString(raw map[string]interface{}, path ...string) string {
	if raw == nil {
		return ""
	}
	var current interface{} = raw
	for _, seg := range path {
		if idx, err := strconv.Atoi(seg); err == nil {
			arr, ok := current.([]interface{})
			if !ok || idx < 0 || idx >= len(arr) {
				return ""
			}
			current = arr[idx]
			continue
		}
		next, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current = next[seg]
	}
	if current == nil {
		return ""
	}
	switch v := current.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func readArray(raw map[string]interface{}, path ...string) []interface{} {
	if raw == nil {
		return nil
	}
	var current interface{} = raw
	for _, seg := range path {
		if idx, err := strconv.Atoi(seg); err == nil {
			arr, ok := current.([]interface{})
			if !ok || idx < 0 || idx >= len(arr) {
				return nil
			}
			current = arr[idx]
			continue
		}
		next, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = next[seg]
	}
	arr, ok := current.([]interface{})
	if !ok {
		return nil
	}
	return arr
}
