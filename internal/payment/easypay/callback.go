package easypay

import (
	"net/url"
	"strings"
)

// CallbackPayload 网关回调字段（仅作为触发确认的信号，不能证明已支付）。
type CallbackPayload struct {
	ResCd           string `json:"resCd"`
	ResMsg          string `json:"resMsg"`
	ShopOrderNo     string `json:"shopOrderNo"`
	OrdNo           string `json:"ordNo"`
	Amount          string `json:"amount"`
	AuthDate        string `json:"authDate"`
	AuthTime        string `json:"authTime"`
	PayMethodType   string `json:"payMethodType"`
	AuthorizationID string `json:"authorizationId"`
}

// ParseCallbackMap 从 JSON 解码后的 map 读取回调字段。
func ParseCallbackMap(raw map[string]interface{}) CallbackPayload {
	return CallbackPayload{
		ResCd:           strings.TrimSpace(readString(raw, "resCd")),
		ResMsg:          strings.TrimSpace(readString(raw, "resMsg")),
		ShopOrderNo:     strings.TrimSpace(readString(raw, "shopOrderNo")),
		OrdNo:           strings.TrimSpace(readString(raw, "ordNo")),
		Amount:          strings.TrimSpace(readString(raw, "amount")),
		AuthDate:        strings.TrimSpace(readString(raw, "authDate")),
		AuthTime:        strings.TrimSpace(readString(raw, "authTime")),
		PayMethodType:   strings.TrimSpace(readString(raw, "payMethodType")),
		AuthorizationID: strings.TrimSpace(readString(raw, "authorizationId")),
	}
}

// ParseCallbackForm 从表单读取回调字段。
func ParseCallbackForm(values url.Values) CallbackPayload {
	raw := make(map[string]interface{}, len(values))
	for key := range values {
		raw[key] = values.Get(key)
	}
	return ParseCallbackMap(raw)
}

// Succeeded 回调结果码是否为成功。
func (p CallbackPayload) Succeeded() bool {
	return p.ResCd == ResultCodeSuccess
}

// QueryValues 转换为查询参数，忽略空字段。
func (p CallbackPayload) QueryValues() url.Values {
	values := url.Values{}
	set := func(key, value string) {
		if value != "" {
			values.Set(key, value)
		}
	}
	set("resCd", p.ResCd)
	set("resMsg", p.ResMsg)
	set("shopOrderNo", p.ShopOrderNo)
	set("ordNo", p.OrdNo)
	set("amount", p.Amount)
	set("authDate", p.AuthDate)
	set("authTime", p.AuthTime)
	set("payMethodType", p.PayMethodType)
	set("authorizationId", p.AuthorizationID)
	return values
}
