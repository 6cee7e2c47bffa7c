package worker

import (
	"context"
	"errors"
	"time"

	"github.com/theunion-shop/internal/config"
	"github.com/theunion-shop/internal/logger"
	"github.com/theunion-shop/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	paymentExpireInterval     = 10 * time.Minute
	defaultPaymentExpireHours = 24
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.Logger = newAsynqLogger()
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.Container != nil && s.consumer.PaymentService != nil {
		go s.runPaymentExpireLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) paymentMaxAge() time.Duration {
	hours := defaultPaymentExpireHours
	if s.consumer.Config != nil && s.consumer.Config.Order.PaymentExpireHours > 0 {
		hours = s.consumer.Config.Order.PaymentExpireHours
	}
	return time.Duration(hours) * time.Hour
}

func (s *Service) runPaymentExpireLoop(ctx context.Context) {
	maxAge := s.paymentMaxAge()
	runOnce := func() {
		if _, err := s.consumer.PaymentService.ExpireStalePayments(maxAge); err != nil {
			logger.Warnw("worker_payment_expire_failed", "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(paymentExpireInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
