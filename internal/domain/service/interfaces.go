package service

import (
	"context"
	"time"

	"github.com/turtacn/keyreg/internal/domain/models"
)

//go:generate mockery --name EventPublisher --output mocks --outpkg mocks
// EventPublisher delivers lifecycle events to notification collaborators.
// EventPublisher 将生命周期事件传递给通知协作方。
type EventPublisher interface {
	// PublishLifecycleEvent sends one applied transition downstream.
	// PublishLifecycleEvent 向下游发送一次已应用的状态转换。
	PublishLifecycleEvent(ctx context.Context, event models.LifecycleEvent) error

	// Close releases the underlying transport.
	// Close 释放底层传输资源。
	Close() error
}

// Clock abstracts wall time so expiry and token windows are testable.
// Clock 抽象了系统时间，使过期和令牌窗口可测试。
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real UTC wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// NoopPublisher discards every event.
type NoopPublisher struct{}

// PublishLifecycleEvent implements EventPublisher.
func (NoopPublisher) PublishLifecycleEvent(context.Context, models.LifecycleEvent) error { return nil }

// Close implements EventPublisher.
func (NoopPublisher) Close() error { return nil }
