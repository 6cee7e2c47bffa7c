package public

import (
	"strings"

	"github.com/theunion-shop/internal/http/response"
	"github.com/theunion-shop/internal/service"

	"github.com/gin-gonic/gin"
)

// CartSessionHeader 购物车会话令牌请求/响应头
const CartSessionHeader = "X-Cart-Session"

// AddCartItemRequest 加入购物车请求
type AddCartItemRequest struct {
	ProductID      uint   `json:"product_id"`
	VariantID      uint   `json:"variant_id"`
	OptionLabel    string `json:"option_label"`
	Quantity       int    `json:"quantity" binding:"gte=0"`
	DeliveryMethod string `json:"delivery_method"`
}

// UpdateCartItemRequest 修改购物车数量请求
type UpdateCartItemRequest struct {
	ProductID   uint   `json:"product_id" binding:"required"`
	OptionLabel string `json:"option_label"`
	Quantity    int    `json:"quantity"`
}

// RemoveCartItemRequest 删除购物车行请求
type RemoveCartItemRequest struct {
	ProductID   uint   `form:"product_id" json:"product_id" binding:"required"`
	OptionLabel string `form:"option_label" json:"option_label"`
}

// CartDeliveryMethodRequest 设置配送方式请求
type CartDeliveryMethodRequest struct {
	DeliveryMethod string `json:"delivery_method" binding:"required,notblank"`
}

// cartSession 解析会话令牌，缺失或失效时签发新令牌并写回响应头
func (h *Handler) cartSession(c *gin.Context) (string, bool) {
	raw := strings.TrimSpace(c.GetHeader(CartSessionHeader))
	sessionID, token, issued, err := h.CartService.ResolveSession(raw)
	if err != nil {
		respondCartError(c, err)
		return "", false
	}
	if issued {
		requestLog(c).Infow("cart_session_issued", "session_id", sessionID, "had_token", raw != "")
	}
	c.Header(CartSessionHeader, token)
	return sessionID, true
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	sessionID, ok := h.cartSession(c)
	if !ok {
		return
	}
	response.Success(c, h.CartService.Summary(c.Request.Context(), sessionID))
}

// AddCartItem 加入购物车
func (h *Handler) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	sessionID, ok := h.cartSession(c)
	if !ok {
		return
	}
	summary, err := h.CartService.AddItem(c.Request.Context(), sessionID, toAddCartItemInput(req))
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, summary)
}

// UpdateCartItem 修改购物车数量（数量 <= 0 时删除）
func (h *Handler) UpdateCartItem(c *gin.Context) {
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	sessionID, ok := h.cartSession(c)
	if !ok {
		return
	}
	summary, err := h.CartService.SetQuantity(c.Request.Context(), sessionID, req.ProductID, req.OptionLabel, req.Quantity)
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, summary)
}

// RemoveCartItem 删除购物车行，支持 query 或 JSON
func (h *Handler) RemoveCartItem(c *gin.Context) {
	var req RemoveCartItemRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		if jsonErr := c.ShouldBindJSON(&req); jsonErr != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
	}
	sessionID, ok := h.cartSession(c)
	if !ok {
		return
	}
	summary, err := h.CartService.RemoveItem(c.Request.Context(), sessionID, req.ProductID, req.OptionLabel)
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, summary)
}

// SetCartDeliveryMethod 为购物车所有行设置配送方式
func (h *Handler) SetCartDeliveryMethod(c *gin.Context) {
	var req CartDeliveryMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	sessionID, ok := h.cartSession(c)
	if !ok {
		return
	}
	summary, err := h.CartService.SetDeliveryMethod(c.Request.Context(), sessionID, req.DeliveryMethod)
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, summary)
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	sessionID, ok := h.cartSession(c)
	if !ok {
		return
	}
	response.Success(c, h.CartService.Clear(c.Request.Context(), sessionID))
}

func toAddCartItemInput(req AddCartItemRequest) service.AddCartItemInput {
	return service.AddCartItemInput{
		ProductID:      req.ProductID,
		VariantID:      req.VariantID,
		OptionLabel:    strings.TrimSpace(req.OptionLabel),
		Quantity:       req.Quantity,
		DeliveryMethod: strings.TrimSpace(req.DeliveryMethod),
	}
}
