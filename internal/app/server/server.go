package server

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"pubsub-core/internal/broker"
	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/health"
)

const defaultShutdownTimeout = 10 * time.Second

// Server 发布订阅服务器
type Server struct {
	deps   *Dependencies
	logger corelog.Logger
}

func newServer(deps *Dependencies) *Server {
	return &Server{
		deps:   deps,
		logger: deps.Logger.WithField("component", "server"),
	}
}

// Engine 返回引擎
func (s *Server) Engine() *broker.Engine { return s.deps.Engine }

// Health 返回健康状态管理器
func (s *Server) Health() *health.HealthManager { return s.deps.HealthManager }

// NodeID 节点 ID
func (s *Server) NodeID() string { return s.deps.NodeID }

// Addr 帧协议监听地址
func (s *Server) Addr() *net.TCPAddr { return s.deps.TCPAddr }

// HTTPAddr HTTP 监听地址，未启用或未启动时为 nil
func (s *Server) HTTPAddr() net.Addr {
	if s.deps.HTTPService == nil {
		return nil
	}
	return s.deps.HTTPService.Addr()
}

// Run 运行服务器直到 ctx 取消或收到 SIGINT/SIGTERM，然后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if s.deps.HTTPService != nil {
		if err := s.deps.HTTPService.Start(); err != nil {
			s.deps.Loop.Close()
			s.release()
			return err
		}
	}

	s.logger.Infof("Server: node %s listening on %s (fanout=%s)",
		s.deps.NodeID, s.deps.TCPAddr, s.deps.Config.Server.FanoutMode)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.deps.Loop.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		s.shutdown()
		return nil
	})

	err := g.Wait()
	s.release()
	if err != nil {
		s.logger.Errorf("Server: stopped with error: %v", err)
		return err
	}
	s.logger.Infof("Server: stopped")
	return nil
}

// shutdown 停止接入：先标记 draining，再关闭 HTTP 服务（断开 WebSocket 会话），
// 事件循环随 ctx 取消退出并关闭所有 TCP 连接
func (s *Server) shutdown() {
	s.logger.Infof("Server: shutting down")
	if s.deps.HealthManager != nil {
		s.deps.HealthManager.MarkDraining()
	}
	if s.deps.HTTPService != nil {
		if err := s.deps.HTTPService.Stop(); err != nil {
			s.logger.Warnf("Server: HTTP service stop: %v", err)
		}
	}
}

// release 事件循环退出后释放其余资源
func (s *Server) release() {
	timeout := s.deps.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	if result := s.deps.Resource.DisposeWithTimeout(timeout); result.HasErrors() {
		s.logger.Warnf("Server: release resources: %v", result.Error())
	}
	if s.deps.LogCloser != nil {
		_ = s.deps.LogCloser.Close()
	}
}
