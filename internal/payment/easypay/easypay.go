package easypay

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrConfigInvalid   = errors.New("easypay config invalid")
	ErrRequestFailed   = errors.New("easypay request failed")
	ErrResponseInvalid = errors.New("easypay response invalid")
	ErrRejected        = errors.New("easypay rejected")
)

const (
	// ResultCodeSuccess 成功结果码
	ResultCodeSuccess = "0000"
	// ResultCodeAutoApproved 网页支付已自动承认时的结果码，需要改走查询接口
	ResultCodeAutoApproved = "R102"

	DeviceTypeMobile = "mobile"
	DeviceTypePC     = "pc"

	defaultTimeout           = 12 * time.Second
	defaultGoodsName         = "상품"
	defaultPayMethodTypeCode = "11"
	currencyCodeKRW          = "00"
	clientTypeCodeWeb        = "00"

	registerEndpoint = "/api/ep9/trades/webpay"
	approveEndpoint  = "/api/ep9/trades/approval"
	queryEndpoint    = "/api/trades/query"
)

var (
	mobileUserAgentPattern = regexp.MustCompile(`(?i)mobile|android|iphone|ipad|phone`)
	kst                    = time.FixedZone("KST", 9*60*60)
	referenceLimit         = big.NewInt(1_000_000_000)
)

// Config EasyPay 商户配置。
type Config struct {
	MallID            string        `json:"mall_id"`
	APIKey            string        `json:"api_key"`
	APIURL            string        `json:"api_url"`
	ReturnURL         string        `json:"return_url"`
	PayMethodTypeCode string        `json:"pay_method_type_code"`
	Timeout           time.Duration `json:"-"`
	HTTPClient        *http.Client  `json:"-"`
}

// RejectError 网关返回的非成功结果。
type RejectError struct {
	Code    string
	Message string
	Raw     map[string]interface{}
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("easypay rejected: code=%s message=%s", e.Code, e.Message)
}

func (e *RejectError) Unwrap() error {
	return ErrRejected
}

// RegisterInput 交易登记输入。
type RegisterInput struct {
	ShopOrderNo string
	Amount      int64
	GoodsName   string
	DeviceType  string
	ReturnURL   string
	OrderInfo   map[string]interface{}
}

// RegisterResult 交易登记返回。
type RegisterResult struct {
	ShopOrderNo string
	AuthPageURL string
	Code        string
	Message     string
	Raw         map[string]interface{}
}

// ApproveInput 承认请求输入。
type ApproveInput struct {
	ShopOrderNo       string
	ShopTransactionID string
	ApprovalReqDate   string
	AuthorizationID   string
}

// ApprovalResult 承认/查询返回。
type ApprovalResult struct {
	ShopOrderNo       string
	PaymentID         string
	Amount            string
	AuthDate          string
	AuthTime          string
	PayMethodType     string
	PayMethodTypeName string
	Code              string
	Message           string
	Source            string
	Raw               map[string]interface{}
}

// ValidateConfig 校验配置；requireKey 为 true 时要求 api_key。
func ValidateConfig(cfg *Config, requireKey bool) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	cfg.normalize()
	if cfg.MallID == "" {
		return fmt.Errorf("%w: mall_id is required", ErrConfigInvalid)
	}
	if cfg.APIURL == "" {
		return fmt.Errorf("%w: api_url is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(cfg.APIURL); err != nil {
		return fmt.Errorf("%w: api_url is invalid", ErrConfigInvalid)
	}
	if requireKey && cfg.APIKey == "" {
		return fmt.Errorf("%w: api_key is required", ErrConfigInvalid)
	}
	return nil
}

// Register 向网关登记交易并取得托管支付页地址。
func Register(ctx context.Context, cfg *Config, input RegisterInput) (*RegisterResult, error) {
	if err := ValidateConfig(cfg, false); err != nil {
		return nil, err
	}
	shopOrderNo := strings.TrimSpace(input.ShopOrderNo)
	if shopOrderNo == "" || input.Amount <= 0 {
		return nil, fmt.Errorf("%w: register input is invalid", ErrConfigInvalid)
	}
	returnURL := strings.TrimSpace(input.ReturnURL)
	if returnURL == "" {
		returnURL = cfg.ReturnURL
	}
	if returnURL == "" {
		return nil, fmt.Errorf("%w: return_url is required", ErrConfigInvalid)
	}
	deviceType := strings.TrimSpace(input.DeviceType)
	if deviceType != DeviceTypeMobile {
		deviceType = DeviceTypePC
	}

	orderInfo := map[string]interface{}{}
	for k, v := range input.OrderInfo {
		orderInfo[k] = v
	}
	goodsName := strings.TrimSpace(input.GoodsName)
	if goodsName == "" {
		goodsName = defaultGoodsName
	}
	orderInfo["goodsName"] = goodsName

	payload := map[string]interface{}{
		"mallId":            cfg.MallID,
		"shopOrderNo":       shopOrderNo,
		"amount":            input.Amount,
		"payMethodTypeCode": cfg.PayMethodTypeCode,
		"currency":          currencyCodeKRW,
		"returnUrl":         returnURL,
		"deviceTypeCode":    deviceType,
		"clientTypeCode":    clientTypeCodeWeb,
		"orderInfo":         orderInfo,
	}

	raw, statusCode, err := postJSON(ctx, cfg, registerEndpoint, nil, payload)
	if err != nil {
		return nil, err
	}
	code := strings.TrimSpace(readString(raw, "resCd"))
	message := strings.TrimSpace(readString(raw, "resMsg"))
	authPageURL := strings.TrimSpace(readString(raw, "authPageUrl"))
	if !isSuccessStatus(statusCode) || code != ResultCodeSuccess || authPageURL == "" {
		return nil, newRejectError(raw, statusCode, code, message)
	}
	return &RegisterResult{
		ShopOrderNo: shopOrderNo,
		AuthPageURL: authPageURL,
		Code:        code,
		Message:     message,
		Raw:         raw,
	}, nil
}

// Approve 调用承认接口（变更类请求，不重试）。
func Approve(ctx context.Context, cfg *Config, input ApproveInput) (*ApprovalResult, error) {
	if err := ValidateConfig(cfg, true); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.ShopOrderNo) == "" || strings.TrimSpace(input.AuthorizationID) == "" {
		return nil, fmt.Errorf("%w: approve input is invalid", ErrConfigInvalid)
	}
	payload := map[string]interface{}{
		"mallId":            cfg.MallID,
		"shopOrderNo":       strings.TrimSpace(input.ShopOrderNo),
		"shopTransactionId": strings.TrimSpace(input.ShopTransactionID),
		"approvalReqDate":   strings.TrimSpace(input.ApprovalReqDate),
		"authorizationId":   strings.TrimSpace(input.AuthorizationID),
	}
	raw, statusCode, err := postJSON(ctx, cfg, approveEndpoint, nil, payload)
	if err != nil {
		return nil, err
	}
	return parseApproval(raw, statusCode, "approval")
}

// Query 查询交易状态；只读请求，传输失败时重试一次。
func Query(ctx context.Context, cfg *Config, shopOrderNo string) (*ApprovalResult, error) {
	if err := ValidateConfig(cfg, true); err != nil {
		return nil, err
	}
	shopOrderNo = strings.TrimSpace(shopOrderNo)
	if shopOrderNo == "" {
		return nil, fmt.Errorf("%w: shop order no is empty", ErrConfigInvalid)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload := map[string]interface{}{
		"mallId":      cfg.MallID,
		"shopOrderNo": shopOrderNo,
		"apiKey":      cfg.APIKey,
	}
	headers := map[string]string{
		"Authorization": cfg.APIKey,
		"apiKey":        cfg.APIKey,
	}

	var (
		raw        map[string]interface{}
		statusCode int
		err        error
	)
	for attempt := 0; attempt < 2; attempt++ {
		raw, statusCode, err = postJSON(ctx, cfg, queryEndpoint, headers, payload)
		if err == nil || !errors.Is(err, ErrRequestFailed) || ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return parseApproval(raw, statusCode, "query")
}

// DetectDeviceType 根据 User-Agent 判断终端类型。
func DetectDeviceType(userAgent string) string {
	if mobileUserAgentPattern.MatchString(userAgent) {
		return DeviceTypeMobile
	}
	return DeviceTypePC
}

// NewShopOrderNo 生成商户订单号：YYYYMMDD + 9 位随机数。
func NewShopOrderNo(now time.Time) (string, error) {
	return newDatedReference(now)
}

// NewShopTransactionID 生成承认请求流水号，格式同商户订单号。
func NewShopTransactionID(now time.Time) (string, error) {
	return newDatedReference(now)
}

// ApprovalReqDate 返回承认请求日期（韩国时区 YYYYMMDD）。
func ApprovalReqDate(now time.Time) string {
	return now.In(kst).Format("20060102")
}

func newDatedReference(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, referenceLimit)
	if err != nil {
		return "", fmt.Errorf("generate reference failed: %w", err)
	}
	return fmt.Sprintf("%s%09d", ApprovalReqDate(now), n.Int64()), nil
}

func (c *Config) normalize() {
	c.MallID = strings.TrimSpace(c.MallID)
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	c.ReturnURL = strings.TrimSpace(c.ReturnURL)
	c.PayMethodTypeCode = strings.TrimSpace(c.PayMethodTypeCode)
	if c.PayMethodTypeCode == "" {
		c.PayMethodTypeCode = defaultPayMethodTypeCode
	}
}

func parseApproval(raw map[string]interface{}, statusCode int, source string) (*ApprovalResult, error) {
	code := strings.TrimSpace(readString(raw, "resCd"))
	message := strings.TrimSpace(readString(raw, "resMsg"))
	if !isSuccessStatus(statusCode) || code != ResultCodeSuccess {
		return nil, newRejectError(raw, statusCode, code, message)
	}
	paymentID := strings.TrimSpace(readString(raw, "paymentId"))
	if paymentID == "" {
		paymentID = strings.TrimSpace(readString(raw, "ordNo"))
	}
	return &ApprovalResult{
		ShopOrderNo:       strings.TrimSpace(readString(raw, "shopOrderNo")),
		PaymentID:         paymentID,
		Amount:            strings.TrimSpace(readString(raw, "amount")),
		AuthDate:          strings.TrimSpace(readString(raw, "authDate")),
		AuthTime:          strings.TrimSpace(readString(raw, "authTime")),
		PayMethodType:     strings.TrimSpace(readString(raw, "payMethodType")),
		PayMethodTypeName: strings.TrimSpace(readString(raw, "payMethodTypeName")),
		Code:              code,
		Message:           message,
		Source:            source,
		Raw:               raw,
	}, nil
}

func newRejectError(raw map[string]interface{}, statusCode int, code, message string) *RejectError {
	if code == "" {
		code = "HTTP" + strconv.Itoa(statusCode)
	}
	if message == "" {
		message = "unknown error"
	}
	return &RejectError{Code: code, Message: message, Raw: raw}
}

func isSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

func postJSON(ctx context.Context, cfg *Config, endpoint string, headers map[string]string, payload map[string]interface{}) (map[string]interface{}, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: marshal request failed", ErrRequestFailed)
	}
	respBody, statusCode, err := doJSONRequest(ctx, cfg, endpoint, headers, body)
	if err != nil {
		return nil, statusCode, err
	}
	var raw map[string]interface{}
	if len(bytes.TrimSpace(respBody)) == 0 {
		raw = map[string]interface{}{}
	} else if err := json.Unmarshal(respBody, &raw); err != nil {
		if !isSuccessStatus(statusCode) {
			return map[string]interface{}{}, statusCode, nil
		}
		return nil, statusCode, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	return raw, statusCode, nil
}

func doJSONRequest(ctx context.Context, cfg *Config, endpoint string, headers map[string]string, body []byte) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := withDefaultTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Charset", "UTF-8")
	for k, v := range headers {
		if strings.TrimSpace(v) != "" {
			req.Header.Set(k, v)
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: http request failed: %v", ErrRequestFailed, err)
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

func readString(raw map[string]interface{}, key string) string {
	if raw == nil {
		return ""
	}
	value, ok := raw[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
