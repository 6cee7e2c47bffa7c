package public

import (
	"strings"

	"github.com/theunion-shop/internal/http/response"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/service"

	"github.com/gin-gonic/gin"
)

// RegisterEasyPayRequest EasyPay 交易登记请求
type RegisterEasyPayRequest struct {
	Amount    models.Money `json:"amount"`
	GoodsName string       `json:"goods_name"`
}

// ApproveEasyPayRequest EasyPay 承认请求
type ApproveEasyPayRequest struct {
	ShopOrderNo     string       `json:"shop_order_no" binding:"required,notblank"`
	Amount          models.Money `json:"amount"`
	AuthorizationID string       `json:"authorization_id"`
}

// RegisterEasyPay 登记交易并返回托管支付页地址
func (h *Handler) RegisterEasyPay(c *gin.Context) {
	var req RegisterEasyPayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	result, err := h.PaymentService.RegisterEasyPay(c.Request.Context(), service.RegisterEasyPayInput{
		Amount:    req.Amount,
		GoodsName: strings.TrimSpace(req.GoodsName),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		respondPaymentRegisterError(c, err)
		return
	}
	response.Success(c, result)
}

// ApproveEasyPay 服务端承认交易（幂等）
func (h *Handler) ApproveEasyPay(c *gin.Context) {
	var req ApproveEasyPayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	result, err := h.PaymentService.VerifyEasyPay(c.Request.Context(), service.VerifyEasyPayInput{
		ShopOrderNo:     strings.TrimSpace(req.ShopOrderNo),
		Amount:          req.Amount,
		AuthorizationID: strings.TrimSpace(req.AuthorizationID),
	})
	if err != nil {
		respondPaymentVerifyError(c, err)
		return
	}
	response.Success(c, result)
}

// GetEasyPayStatus 查询网关侧交易状态
func (h *Handler) GetEasyPayStatus(c *gin.Context) {
	shopOrderNo := strings.TrimSpace(c.Query("shop_order_no"))
	if shopOrderNo == "" {
		shopOrderNo = strings.TrimSpace(c.Query("shopOrderNo"))
	}
	result, err := h.PaymentService.QueryEasyPay(c.Request.Context(), shopOrderNo)
	if err != nil {
		respondPaymentVerifyError(c, err)
		return
	}
	response.Success(c, gin.H{
		"shop_order_no":  result.ShopOrderNo,
		"payment_id":     result.PaymentID,
		"amount":         result.Amount,
		"auth_date":      result.AuthDate,
		"auth_time":      result.AuthTime,
		"method_type":    result.PayMethodType,
		"method_name":    result.PayMethodTypeName,
		"result_code":    result.Code,
		"result_message": result.Message,
	})
}
