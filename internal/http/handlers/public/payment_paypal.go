package public

import (
	"strings"

	"github.com/theunion-shop/internal/http/response"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePayPalOrderRequest 创建 PayPal 订单请求
type CreatePayPalOrderRequest struct {
	Amount    models.Money `json:"amount"`
	Currency  string       `json:"currency"`
	GoodsName string       `json:"goods_name"`
	ReturnURL string       `json:"return_url"`
	CancelURL string       `json:"cancel_url"`
}

// CreatePayPalOrder 创建 PayPal 订单
func (h *Handler) CreatePayPalOrder(c *gin.Context) {
	var req CreatePayPalOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	result, err := h.PaymentService.CreatePayPalOrder(c.Request.Context(), service.CreatePayPalOrderInput{
		Amount:    req.Amount,
		Currency:  strings.ToUpper(strings.TrimSpace(req.Currency)),
		GoodsName: strings.TrimSpace(req.GoodsName),
		ReturnURL: strings.TrimSpace(req.ReturnURL),
		CancelURL: strings.TrimSpace(req.CancelURL),
	})
	if err != nil {
		respondPaymentRegisterError(c, err)
		return
	}
	response.Success(c, result)
}

// CapturePayPalOrder 捕获 PayPal 订单（幂等）
func (h *Handler) CapturePayPalOrder(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("id"))
	if orderID == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	result, err := h.PaymentService.CapturePayPalOrder(c.Request.Context(), orderID)
	if err != nil {
		respondPaymentVerifyError(c, err)
		return
	}
	response.Success(c, result)
}
