package domain

import "context"

// EventPublisher 事件发布者接口
type EventPublisher interface {
	// PublishOptionPriced 发布期权定价完成事件
	PublishOptionPriced(ctx context.Context, event OptionPricedEvent) error

	// PublishSurfaceGenerated 发布敏感度曲面生成事件
	PublishSurfaceGenerated(ctx context.Context, event SurfaceGeneratedEvent) error
}
