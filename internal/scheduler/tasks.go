package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskNotificationOutboxDue = "notification.outbox.due"

const TaskBrokerReassign = "brokers.reassign"

type NotificationOutboxDuePayload struct {
	OutboxID string `json:"outboxId"`
}

type BrokerReassignPayload struct {
	BrokerID string `json:"brokerId"`
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data), nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, err
	}
	return payload, nil
}

func NewBrokerReassignTask(payload BrokerReassignPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBrokerReassign, data), nil
}

func ParseBrokerReassignPayload(task *asynq.Task) (BrokerReassignPayload, error) {
	var payload BrokerReassignPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return BrokerReassignPayload{}, err
	}
	return payload, nil
}
