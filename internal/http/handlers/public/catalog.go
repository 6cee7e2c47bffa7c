package public

import (
	"github.com/theunion-shop/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListProducts 获取商品目录
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.CatalogService.ListProducts(c.Request.Context())
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	response.Success(c, gin.H{"products": products})
}

// GetProduct 获取商品详情（含规格、图片与各配送方式库存）
func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.CatalogService.GetProductByRawID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	response.Success(c, product)
}

// ListDeliveryMethods 获取配送方式
func (h *Handler) ListDeliveryMethods(c *gin.Context) {
	methods, err := h.CatalogService.ListDeliveryMethods(c.Request.Context())
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	response.Success(c, gin.H{"delivery_methods": methods})
}
