package mq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// AlertMessage 维护任务发布到告警队列的消息体
type AlertMessage struct {
	Type      string    `json:"type"`
	Value     int64     `json:"value"`
	Threshold int64     `json:"threshold"`
	Message   string    `json:"message"`
	EmittedAt time.Time `json:"emitted_at"`
}

// AlertPublisher 告警发布接口，维护任务依赖它而不是具体的MQ客户端
type AlertPublisher interface {
	PublishAlert(msg AlertMessage) error
}

// QueueChannel 告警发布所需的最小 MQ 能力，RabbitMQClient 实现它
type QueueChannel interface {
	DeclareQueue(queueName string) (amqp.Queue, error)
	Publish(queueName string, body []byte) error
}

type rabbitAlertPublisher struct {
	channel   QueueChannel
	queueName string
}

// NewAlertPublisher 创建告警发布器并声明持久化队列
func NewAlertPublisher(channel QueueChannel, queueName string) (AlertPublisher, error) {
	if _, err := channel.DeclareQueue(queueName); err != nil {
		return nil, fmt.Errorf("declare alert queue: %w", err)
	}
	return &rabbitAlertPublisher{channel: channel, queueName: queueName}, nil
}

func (p *rabbitAlertPublisher) PublishAlert(msg AlertMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal alert message: %w", err)
	}
	return p.channel.Publish(p.queueName, body)
}
