package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/theunion-shop/internal/cache"
	"github.com/theunion-shop/internal/config"
	publichandlers "github.com/theunion-shop/internal/http/handlers/public"
	handlershared "github.com/theunion-shop/internal/http/handlers/shared"
	"github.com/theunion-shop/internal/http/response"
	"github.com/theunion-shop/internal/logger"
	"github.com/theunion-shop/internal/metrics"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/provider"

	"github.com/gin-gonic/gin"
)

const (
	defaultMetricsPath = "/metrics"
	healthCheckTimeout = 2 * time.Second
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	handlershared.RegisterValidators()
	r := gin.New()

	h := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "tu"
	}
	checkoutLimit := RateLimitMiddleware(cache.Client(), RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:checkout", redisPrefix),
		WindowSeconds: cfg.Security.CheckoutRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CheckoutRateLimit.MaxRequests,
		MessageKey:    "error.rate_limited",
	}, KeyByIP)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", healthz)
	if cfg.Metrics.Enabled {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = defaultMetricsPath
		}
		r.GET(path, gin.WrapH(metrics.Handler()))
	}

	apiV1 := r.Group("/api/v1")
	{
		// 商品目录
		apiV1.GET("/products", h.ListProducts)
		apiV1.GET("/products/:id", h.GetProduct)
		apiV1.GET("/delivery-methods", h.ListDeliveryMethods)

		// 购物车（X-Cart-Session 会话）
		apiV1.GET("/cart", h.GetCart)
		apiV1.DELETE("/cart", h.ClearCart)
		apiV1.POST("/cart/items", h.AddCartItem)
		apiV1.PUT("/cart/items", h.UpdateCartItem)
		apiV1.DELETE("/cart/items", h.RemoveCartItem)
		apiV1.PUT("/cart/delivery-method", h.SetCartDeliveryMethod)

		payments := apiV1.Group("/payments")
		{
			easypay := payments.Group("/easypay")
			easypay.POST("/register", checkoutLimit, h.RegisterEasyPay)
			easypay.POST("/callback", h.EasyPayCallback)
			easypay.GET("/callback", h.EasyPayCallback)
			easypay.POST("/approve", checkoutLimit, h.ApproveEasyPay)
			easypay.GET("/status", h.GetEasyPayStatus)

			paypal := payments.Group("/paypal")
			paypal.POST("/orders", checkoutLimit, h.CreatePayPalOrder)
			paypal.POST("/orders/:id/capture", checkoutLimit, h.CapturePayPalOrder)
		}

		apiV1.POST("/orders", checkoutLimit, h.CreateOrder)
	}

	return r
}

// healthz 检查数据库与 Redis（启用时）连通性
func healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := gin.H{"database": "ok"}
	healthy := true
	if err := pingDatabase(ctx); err != nil {
		status["database"] = err.Error()
		healthy = false
	}
	if cache.Enabled() {
		status["redis"] = "ok"
		if err := cache.Ping(ctx); err != nil {
			status["redis"] = err.Error()
			healthy = false
		}
	}
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, response.Response{
			StatusCode: response.CodeInternal,
			Msg:        "unhealthy",
			Data:       status,
		})
		return
	}
	response.Success(c, status)
}

func pingDatabase(ctx context.Context) error {
	if models.DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := models.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
