package queue

import (
	"encoding/json"

	"github.com/theunion-shop/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderCreated 订单创建后的确认邮件任务
	TaskOrderCreated = constants.TaskOrderCreated
	// TaskInventoryReconcile 库存告警复核任务
	TaskInventoryReconcile = constants.TaskInventoryReconcile
)

// OrderCreatedPayload 订单创建任务载荷
type OrderCreatedPayload struct {
	OrderID uint   `json:"order_id"`
	Locale  string `json:"locale,omitempty"`
}

// InventoryReconcilePayload 库存复核任务载荷
type InventoryReconcilePayload struct {
	OrderID uint `json:"order_id"`
}

// NewOrderCreatedTask 创建订单确认任务
func NewOrderCreatedTask(payload OrderCreatedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderCreated, body), nil
}

// NewInventoryReconcileTask 创建库存复核任务
func NewInventoryReconcileTask(payload InventoryReconcilePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryReconcile, body), nil
}
