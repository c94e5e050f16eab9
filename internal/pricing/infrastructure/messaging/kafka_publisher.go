package messaging

import (
	"context"
	"strconv"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// Sender 消息发送接口，由 pkg/mq.KafkaProducer 实现
type Sender interface {
	SendMessage(ctx context.Context, key string, value any, headers map[string]string) error
}

// KafkaEventPublisher 实现 EventPublisher 接口，事件以 JSON 写入 Kafka
// 消息 key 为标的代码，无标的时退化为批次 ID
type KafkaEventPublisher struct {
	sender Sender
}

// NewKafkaEventPublisher 创建新的 KafkaEventPublisher 实例
func NewKafkaEventPublisher(sender Sender) *KafkaEventPublisher {
	return &KafkaEventPublisher{sender: sender}
}

// PublishOptionPriced 发布期权定价完成事件
func (p *KafkaEventPublisher) PublishOptionPriced(ctx context.Context, event domain.OptionPricedEvent) error {
	return p.publishEvent(ctx, domain.OptionPricedEventType, event.Symbol, event)
}

// PublishSurfaceGenerated 发布敏感度曲面生成事件
func (p *KafkaEventPublisher) PublishSurfaceGenerated(ctx context.Context, event domain.SurfaceGeneratedEvent) error {
	key := event.Symbol
	if key == "" {
		key = strconv.FormatInt(event.BatchID, 10)
	}
	return p.publishEvent(ctx, domain.SurfaceGeneratedEventType, key, event)
}

// publishEvent 通用事件发布方法
func (p *KafkaEventPublisher) publishEvent(ctx context.Context, eventType, key string, event any) error {
	return p.sender.SendMessage(ctx, key, event, map[string]string{
		"event_type": eventType,
	})
}
