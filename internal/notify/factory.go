package notify

import (
	"context"

	coreerrors "pubsub-core/internal/core/errors"
)

// BusType 总线类型
type BusType string

const (
	BusTypeNone   BusType = "none"
	BusTypeMemory BusType = "memory"
	BusTypeRedis  BusType = "redis"
)

// BusConfig 总线配置
type BusConfig struct {
	Type   BusType
	NodeID string
	Redis  *RedisConfig
}

// NewBus 按配置创建总线，Type 为 none 或空时返回 nil
func NewBus(ctx context.Context, config *BusConfig) (Bus, error) {
	if config == nil {
		return nil, coreerrors.New(coreerrors.CodeInvalidParam, "bus config is required")
	}

	switch config.Type {
	case "", BusTypeNone:
		return nil, nil
	case BusTypeMemory:
		return NewMemoryBus(config.NodeID), nil
	case BusTypeRedis:
		if config.Redis == nil {
			return nil, coreerrors.New(coreerrors.CodeConfigError, "redis config is required for redis bus")
		}
		return NewRedisBus(ctx, config.Redis, config.NodeID)
	default:
		return nil, coreerrors.Newf(coreerrors.CodeConfigError, "unsupported bus type: %s", config.Type)
	}
}
