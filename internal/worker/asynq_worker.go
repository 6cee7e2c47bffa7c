package worker

import (
	"context"
	"encoding/json"

	"github.com/theunion-shop/internal/logger"
	"github.com/theunion-shop/internal/provider"
	"github.com/theunion-shop/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderCreated, c.handleOrderCreated)
	mux.HandleFunc(queue.TaskInventoryReconcile, c.handleInventoryReconcile)
}

func (c *Consumer) handleOrderCreated(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil {
		logger.Debugw("worker_order_created_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderCreatedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_created_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_created_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.OrderService == nil {
		logger.Warnw("worker_order_created_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.OrderService.NotifyOrderCreated(ctx, payload.OrderID, payload.Locale); err != nil {
		logger.Warnw("worker_order_created_notify_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleInventoryReconcile(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil {
		logger.Debugw("worker_inventory_reconcile_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.InventoryReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_inventory_reconcile_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 || c.OrderService == nil {
		logger.Debugw("worker_inventory_reconcile_skip", "order_id", payload.OrderID)
		return nil
	}
	resolved, err := c.OrderService.ReconcileInventory(ctx, payload.OrderID)
	if err != nil {
		logger.Warnw("worker_inventory_reconcile_failed", "order_id", payload.OrderID, "resolved", resolved, "error", err)
		return err
	}
	logger.Infow("worker_inventory_reconciled", "order_id", payload.OrderID, "resolved", resolved)
	return nil
}
