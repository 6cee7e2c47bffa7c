package public

import (
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/theunion-shop/internal/payment/easypay"

	"github.com/gin-gonic/gin"
)

const (
	callbackLogValueLimit       = 2048
	defaultFrontendCallbackPath = "/payment/callback"
	paymentCallbackEventType    = "PAYMENT_CALLBACK"
)

var paymentHandoffTemplate = template.Must(template.New("payment_handoff").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Payment</title></head>
<body>
<script>
(function () {
  var message = {type: {{.EventType}}, data: {{.Data}}};
  var redirectURL = {{.RedirectURL}};
  var targetOrigin = {{.TargetOrigin}} || window.location.origin;
  try {
    if (window.opener && !window.opener.closed) {
      window.opener.postMessage(message, targetOrigin);
      window.close();
      return;
    }
  } catch (e) {}
  window.location.replace(redirectURL);
})();
</script>
<noscript><a href="{{.RedirectURL}}">Continue</a></noscript>
</body>
</html>
`))

type paymentHandoffView struct {
	EventType    string
	Data         map[string]string
	RedirectURL  string
	TargetOrigin string
}

// EasyPayCallback 接收网关回调并交还给前端
// POST 返回弹窗交接页面；GET 直接重定向。回调本身不代表支付成功。
func (h *Handler) EasyPayCallback(c *gin.Context) {
	payload, err := readEasyPayCallback(c)
	if err != nil {
		requestLog(c).Warnw("payment_easypay_callback_parse_failed",
			"method", c.Request.Method,
			"content_type", strings.TrimSpace(c.GetHeader("Content-Type")),
			"error", err,
		)
	}
	requestLog(c).Infow("payment_easypay_callback_received",
		"method", c.Request.Method,
		"client_ip", c.ClientIP(),
		"shop_order_no", payload.ShopOrderNo,
		"res_cd", payload.ResCd,
		"res_msg", truncateCallbackLogValue(payload.ResMsg),
	)

	if payload.ShopOrderNo != "" {
		if _, err := h.PaymentService.HandleEasyPayCallback(c.Request.Context(), payload); err != nil {
			requestLog(c).Warnw("payment_easypay_callback_record_failed",
				"shop_order_no", payload.ShopOrderNo,
				"error", err,
			)
		}
	}

	frontendURL := h.frontendCallbackURL()
	if c.Request.Method == http.MethodGet {
		values := url.Values{}
		values.Set("resCd", payload.ResCd)
		values.Set("resMsg", payload.ResMsg)
		values.Set("shopOrderNo", payload.ShopOrderNo)
		c.Redirect(http.StatusFound, appendQuery(frontendURL, values))
		return
	}

	view := paymentHandoffView{
		EventType: paymentCallbackEventType,
		Data: map[string]string{
			"resCd":           payload.ResCd,
			"resMsg":          payload.ResMsg,
			"shopOrderNo":     payload.ShopOrderNo,
			"ordNo":           payload.OrdNo,
			"amount":          payload.Amount,
			"authDate":        payload.AuthDate,
			"authTime":        payload.AuthTime,
			"payMethodType":   payload.PayMethodType,
			"authorizationId": payload.AuthorizationID,
		},
		RedirectURL:  appendQuery(frontendURL, payload.QueryValues()),
		TargetOrigin: originOf(frontendURL),
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	if err := paymentHandoffTemplate.Execute(c.Writer, view); err != nil {
		requestLog(c).Errorw("payment_easypay_callback_render_failed", "error", err)
	}
}

func (h *Handler) frontendCallbackURL() string {
	if h != nil && h.Container != nil && h.PaymentService != nil {
		if raw := h.PaymentService.EasyPayFrontendCallbackURL(); raw != "" {
			return raw
		}
	}
	return defaultFrontendCallbackPath
}

// readEasyPayCallback 依次尝试 JSON、表单与查询参数
func readEasyPayCallback(c *gin.Context) (easypay.CallbackPayload, error) {
	if c.Request.Method == http.MethodGet {
		return easypay.ParseCallbackForm(c.Request.URL.Query()), nil
	}
	contentType := strings.ToLower(strings.TrimSpace(c.GetHeader("Content-Type")))
	if strings.Contains(contentType, "application/json") {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			return easypay.CallbackPayload{}, err
		}
		raw := map[string]interface{}{}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &raw); err != nil {
				requestLog(c).Warnw("payment_easypay_callback_body", "body", truncateCallbackLogValue(string(body)))
				return easypay.CallbackPayload{}, err
			}
		}
		return easypay.ParseCallbackMap(raw), nil
	}
	form, err := parseCallbackForm(c)
	if err != nil {
		return easypay.CallbackPayload{}, err
	}
	return easypay.ParseCallbackForm(form), nil
}

func parseCallbackForm(c *gin.Context) (url.Values, error) {
	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	if len(c.Request.PostForm) > 0 {
		return c.Request.PostForm, nil
	}
	return c.Request.Form, nil
}

func truncateCallbackLogValue(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) <= callbackLogValueLimit {
		return raw
	}
	return raw[:callbackLogValueLimit] + "...(truncated)"
}

func appendQuery(base string, values url.Values) string {
	encoded := values.Encode()
	if encoded == "" {
		return base
	}
	if strings.Contains(base, "?") {
		return base + "&" + encoded
	}
	return base + "?" + encoded
}

func originOf(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
