// Package cmd 提供 pubsub 客户端的命令框架
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pubsub-core/internal/client"
	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/packet"
	"pubsub-core/internal/version"
)

// globalOptions 全局标志
type globalOptions struct {
	server   string
	format   string
	logLevel string
	timeout  time.Duration
}

// NewRootCommand 创建根命令
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "pubsub",
		Short: "PubSub - topic broker client",
		Long: `Command line client for the PubSub topic broker.

Quick Start:
  pubsub sub sensors/temp              Print values published to sensors/temp
  pubsub pub sensors/temp 21.5         Publish a value
  pubsub topics                        List topics known to the broker
  pubsub console                       Start the interactive console`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := corelog.Init(corelog.Config{Level: opts.logLevel, Console: true})
			return err
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.server, "server", "s", "localhost:5000", "Broker address (host:port)")
	flags.StringVarP(&opts.format, "format", "f", "json", "Serialization format: json/xml/msgpack")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug/info/warn/error")
	flags.DurationVar(&opts.timeout, "timeout", 5*time.Second, "Dial and request timeout")

	root.AddCommand(
		newPubCommand(opts),
		newSubCommand(opts),
		newTopicsCommand(opts),
		newConsoleCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute 执行根命令，SIGINT/SIGTERM 取消命令的上下文
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// dial 按全局标志建立队列
func (o *globalOptions) dial(ctx context.Context, topic string, kind client.Kind) (*client.Queue, error) {
	format, err := packet.ParseFormat(o.format)
	if err != nil {
		return nil, err
	}
	return client.Dial(ctx, o.server, client.QueueOptions{
		Topic:       topic,
		Format:      format,
		Kind:        kind,
		DialTimeout: o.timeout,
	})
}

// requestContext 单次请求的超时上下文
func (o *globalOptions) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.timeout)
}
