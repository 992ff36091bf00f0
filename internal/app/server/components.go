package server

import (
	"context"

	"pubsub-core/internal/broker"
	"pubsub-core/internal/config/schema"
	"pubsub-core/internal/core/dispose"
	coreerrors "pubsub-core/internal/core/errors"
	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/core/metrics"
	"pubsub-core/internal/health"
	"pubsub-core/internal/httpservice"
	"pubsub-core/internal/httpservice/modules/management"
	"pubsub-core/internal/httpservice/modules/websocket"
	"pubsub-core/internal/netpoll"
	"pubsub-core/internal/notify"
	"pubsub-core/internal/topic"
	"pubsub-core/internal/version"
)

// ============================================================================
// MetricsComponent - 指标组件
// ============================================================================

type MetricsComponent struct{}

func (c *MetricsComponent) Name() string { return "Metrics" }

func (c *MetricsComponent) Initialize(ctx context.Context, deps *Dependencies) error {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewMemoryMetrics()
	}
	return deps.Resource.Register("metrics", dispose.DisposeFunc(deps.Metrics.Close))
}

// ============================================================================
// NotifyComponent - 生命周期通知
// ============================================================================

type NotifyComponent struct{}

func (c *NotifyComponent) Name() string { return "Notify" }

func (c *NotifyComponent) Initialize(ctx context.Context, deps *Dependencies) error {
	cfg := deps.Config.Notify
	bus, err := notify.NewBus(ctx, &notify.BusConfig{
		Type:   notify.BusType(cfg.Type),
		NodeID: deps.NodeID,
		Redis: &notify.RedisConfig{
			Addr:          cfg.Redis.Addr,
			Password:      cfg.Redis.Password.Value(),
			DB:            cfg.Redis.DB,
			PoolSize:      cfg.Redis.PoolSize,
			ChannelPrefix: cfg.ChannelPrefix,
		},
	})
	if err != nil {
		return err
	}

	deps.Bus = bus
	deps.Notifier = notify.NewNotifier(ctx, bus, cfg.BufferSize, deps.Metrics, deps.Logger.WithField("component", "notify"))
	if bus != nil {
		corelog.Infof("Notify: %s bus enabled", cfg.Type)
	}
	return deps.Resource.Register("notifier", dispose.DisposeFunc(deps.Notifier.Close))
}

// ============================================================================
// EngineComponent - 事件循环与引擎
// ============================================================================

type EngineComponent struct{}

func (c *EngineComponent) Name() string { return "Engine" }

func (c *EngineComponent) Initialize(ctx context.Context, deps *Dependencies) error {
	sc := deps.Config.Server

	loop, err := netpoll.NewLoop(netpoll.Options{
		ReadBufferSize: sc.ReadBufferSize,
		Logger:         deps.Logger.WithField("component", "loop"),
	})
	if err != nil {
		return err
	}

	mode, err := topic.ParseFanoutMode(sc.FanoutMode)
	if err != nil {
		loop.Close()
		return err
	}

	engine := broker.New(loop, broker.Options{
		FanoutMode:        mode,
		MaxConnections:    sc.MaxConnections,
		MaxPendingWrite:   sc.MaxPendingWrite,
		RetainOnSubscribe: sc.RetainOnSubscribe,
		PublishRate:       deps.Config.Limits.PublishRate,
		PublishBurst:      deps.Config.Limits.PublishBurst,
		Metrics:           deps.Metrics,
		Notifier:          deps.Notifier,
		Logger:            deps.Logger.WithField("component", "engine"),
	})

	addr, err := engine.Listen(sc.Host, sc.Port, sc.Backlog)
	if err != nil {
		loop.Close()
		return coreerrors.Wrapf(err, coreerrors.CodeNetworkError, "listen on %s:%d", sc.Host, sc.Port)
	}

	deps.Loop = loop
	deps.Engine = engine
	deps.TCPAddr = addr
	return nil
}

// ============================================================================
// HealthComponent - 健康检查
// ============================================================================

type HealthComponent struct{}

func (c *HealthComponent) Name() string { return "Health" }

func (c *HealthComponent) Initialize(ctx context.Context, deps *Dependencies) error {
	hm := health.NewHealthManager(ctx, deps.NodeID, version.GetShortVersion())
	hm.SetStatsProvider(health.NewEngineAdapter(deps.Engine))
	hm.RegisterChecker("loop", health.NewLoopHealthChecker(deps.Loop))
	hm.RegisterChecker("notify", health.NewNotifierHealthChecker(deps.Notifier))
	hm.SetDetail("fanout_mode", deps.Config.Server.FanoutMode)

	deps.HealthManager = hm
	return deps.Resource.Register("health", hm.Dispose)
}

// ============================================================================
// HTTPComponent - 管理 API 与 WebSocket
// ============================================================================

type HTTPComponent struct{}

func (c *HTTPComponent) Name() string { return "HTTP" }

func (c *HTTPComponent) Initialize(ctx context.Context, deps *Dependencies) error {
	hc := deps.Config.HTTP
	if !hc.Enabled {
		return nil
	}

	cfg := httpServiceConfig(&hc)
	svc := httpservice.NewHTTPService(ctx, cfg, &httpservice.ModuleDependencies{
		Engine:        deps.Engine,
		Metrics:       deps.Metrics,
		HealthManager: deps.HealthManager,
	})
	if cfg.Modules.ManagementAPI.Enabled {
		svc.RegisterModule(management.NewManagementModule(ctx, &cfg.Modules.ManagementAPI))
	}
	if cfg.Modules.WebSocket.Enabled {
		svc.RegisterModule(websocket.NewWebSocketModule(ctx, &cfg.Modules.WebSocket))
	}

	deps.HTTPService = svc
	return nil
}

// httpServiceConfig 由配置文件结构转换为 HTTP 服务配置
func httpServiceConfig(hc *schema.HTTPConfig) *httpservice.HTTPServiceConfig {
	cfg := httpservice.DefaultHTTPServiceConfig()
	cfg.Enabled = hc.Enabled
	cfg.ListenAddr = hc.Listen
	cfg.MaxBodySize = hc.MaxBodySize
	cfg.Modules.ManagementAPI.Enabled = hc.ManagementAPI.Enabled
	cfg.Modules.ManagementAPI.AllowPublish = hc.ManagementAPI.AllowPublish
	cfg.Modules.WebSocket.Enabled = hc.WebSocket.Enabled
	cfg.Modules.WebSocket.Path = hc.WebSocket.Path
	cfg.Modules.WebSocket.SendQueue = hc.WebSocket.SendQueue
	cfg.Modules.WebSocket.WriteTimeout = hc.WebSocket.WriteTimeout
	cfg.CORS.Enabled = hc.CORS.Enabled
	if len(hc.CORS.AllowedOrigins) > 0 {
		cfg.CORS.AllowedOrigins = hc.CORS.AllowedOrigins
	}
	return cfg
}
