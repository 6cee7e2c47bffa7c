package public

import (
	"strings"

	"github.com/theunion-shop/internal/http/response"
	"github.com/theunion-shop/internal/i18n"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderItemRequest 下单商品行
type OrderItemRequest struct {
	ProductID   uint         `json:"product_id"`
	VariantID   uint         `json:"variant_id"`
	Quantity    int          `json:"quantity"`
	Price       models.Money `json:"price"`
	OptionLabel string       `json:"option_label"`
}

// CreateOrderRequest 结账下单请求
type CreateOrderRequest struct {
	Provider       string             `json:"provider" binding:"required,oneof=easypay paypal"`
	ShopOrderNo    string             `json:"shop_order_no"`
	PayPalOrderID  string             `json:"paypal_order_id"`
	CustomerName   string             `json:"customer_name"`
	Email          string             `json:"email"`
	Phone          string             `json:"phone"`
	Address        string             `json:"address"`
	DeliveryMethod string             `json:"delivery_method"`
	TotalAmount    models.Money       `json:"total_amount"`
	Currency       string             `json:"currency"`
	Items          []OrderItemRequest `json:"items"`
}

// CreateOrder 校验已确认的支付后创建订单
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	items := make([]service.CreateOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.CreateOrderItem{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			Quantity:    item.Quantity,
			Price:       item.Price,
			OptionLabel: strings.TrimSpace(item.OptionLabel),
		})
	}

	result, err := h.OrderService.PlaceOrder(c.Request.Context(), service.PlaceOrderInput{
		Provider:      strings.TrimSpace(req.Provider),
		ShopOrderNo:   strings.TrimSpace(req.ShopOrderNo),
		PayPalOrderID: strings.TrimSpace(req.PayPalOrderID),
		Order: service.CreateOrderInput{
			CustomerName:    strings.TrimSpace(req.CustomerName),
			CustomerEmail:   strings.TrimSpace(req.Email),
			CustomerPhone:   strings.TrimSpace(req.Phone),
			CustomerAddress: strings.TrimSpace(req.Address),
			DeliveryMethod:  strings.TrimSpace(req.DeliveryMethod),
			TotalAmount:     req.TotalAmount,
			Currency:        strings.ToUpper(strings.TrimSpace(req.Currency)),
			Locale:          i18n.ResolveLocale(c),
			Items:           items,
		},
	})
	if err != nil {
		respondOrderCreateError(c, err)
		return
	}
	if len(result.InventoryWarnings) > 0 {
		requestLog(c).Warnw("order_created_with_inventory_warnings",
			"order_id", result.OrderID,
			"warnings", len(result.InventoryWarnings),
		)
	}
	response.Success(c, result)
}
