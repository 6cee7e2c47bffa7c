package shared

import (
	"strings"

	"github.com/theunion-shop/internal/http/response"
	"github.com/theunion-shop/internal/i18n"
	"github.com/theunion-shop/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorDetail 错误响应附加字段
type ErrorDetail struct {
	Kind            string
	Field           string
	ProviderCode    string
	ProviderMessage string
}

func (d ErrorDetail) empty() bool {
	return d.Kind == "" && d.Field == "" && d.ProviderCode == "" && d.ProviderMessage == ""
}

func (d ErrorDetail) toData() gin.H {
	data := gin.H{}
	if d.Kind != "" {
		data["kind"] = d.Kind
	}
	if d.Field != "" {
		data["field"] = d.Field
	}
	if d.ProviderCode != "" {
		data["code"] = d.ProviderCode
	}
	if msg := strings.TrimSpace(d.ProviderMessage); msg != "" {
		data["provider_message"] = msg
	}
	return data
}

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	RespondErrorWithDetail(c, code, key, ErrorDetail{}, err)
}

// RespondErrorWithDetail 返回带 kind / 渠道返回码的国际化错误响应。
func RespondErrorWithDetail(c *gin.Context, code int, key string, detail ErrorDetail, err error) {
	locale := i18n.ResolveLocale(c)
	msg := i18n.T(locale, key)
	if detail.Field != "" {
		msg = i18n.Sprintf(locale, "error.validation_field", detail.Field)
	}
	appErr := response.WrapError(code, msg, err).WithKind(detail.Kind)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"kind", appErr.Kind,
			"message", appErr.Message,
			"error", err,
		)
	}
	if detail.empty() {
		response.Error(c, appErr.Code, appErr.Message)
		return
	}
	response.ErrorWithData(c, appErr.Code, appErr.Message, detail.toData())
}
