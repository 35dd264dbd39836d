// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import "mindful-path-go/pkg/tasks"

// SessionEventPublisher 将包级生产者适配为业务层依赖的发布接口。
type SessionEventPublisher struct{}

// Publish 发送一条会话生命周期事件。
func (SessionEventPublisher) Publish(event tasks.SessionEvent) error {
	return ProduceSessionEvent(event)
}
