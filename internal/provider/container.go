package provider

import (
	"time"

	"github.com/theunion-shop/internal/cache"
	"github.com/theunion-shop/internal/cart"
	"github.com/theunion-shop/internal/config"
	"github.com/theunion-shop/internal/logger"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/queue"
	"github.com/theunion-shop/internal/repository"
	"github.com/theunion-shop/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	ProductRepo        repository.ProductRepository
	DeliveryMethodRepo repository.DeliveryMethodRepository
	InventoryRepo      repository.InventoryRepository
	OrderRepo          repository.OrderRepository
	PaymentRepo        repository.PaymentRepository
	CartRepo           repository.CartRepository

	// Services
	CatalogService *service.CatalogService
	CartService    *service.CartService
	PaymentService *service.PaymentService
	OrderService   *service.OrderService
	EmailService   *service.EmailService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}
	c.initRepositories()
	c.initServices()
	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.ProductRepo = repository.NewProductRepository(db)
	c.DeliveryMethodRepo = repository.NewDeliveryMethodRepository(db)
	c.InventoryRepo = repository.NewInventoryRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
}

func (c *Container) initServices() {
	sessionTTL := time.Duration(c.Config.Session.TTLHours) * time.Hour

	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.CatalogService = service.NewCatalogService(c.ProductRepo, c.DeliveryMethodRepo)
	c.CartService = service.NewCartService(&c.Config.Session, cart.NewStorage(c.CartRepo, sessionTTL), c.ProductRepo, c.InventoryRepo)
	c.PaymentService = service.NewPaymentService(&c.Config.Payment, c.PaymentRepo)
	c.OrderService = service.NewOrderService(&c.Config.Order, c.OrderRepo, c.ProductRepo, c.InventoryRepo, c.PaymentRepo, c.QueueClient)
	c.OrderService.SetEmailService(c.EmailService)
}

// Close 释放容器持有的外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
