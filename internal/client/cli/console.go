// Package cli 提供交互式控制台
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"

	"pubsub-core/internal/core/safe"
	"pubsub-core/internal/packet"
)

const prompt = "\033[32mpubsub>\033[0m "

// Broker 控制台使用的队列操作
type Broker interface {
	Subscribe(topic string) error
	CancelTopic(topic string) error
	PushTo(topic, value string) error
	ListTopics(ctx context.Context) ([]string, error)
	Pull(ctx context.Context) (string, string, error)
	Format() packet.Format
	Err() error
}

// Console 交互式控制台
type Console struct {
	ctx    context.Context
	broker Broker
	addr   string
	output *Output

	mu        sync.Mutex
	subs      map[string]struct{}
	known     []string
	startTime time.Time
}

// NewConsole 创建控制台，output 为 nil 时输出到 stdout
func NewConsole(ctx context.Context, broker Broker, addr string, output *Output) *Console {
	if output == nil {
		output = NewOutput(false)
	}
	return &Console{
		ctx:       ctx,
		broker:    broker,
		addr:      addr,
		output:    output,
		subs:      make(map[string]struct{}),
		startTime: time.Now(),
	}
}

// Run 运行交互循环直到 exit、EOF 或 ctx 取消，要求 stdin 是终端
func (c *Console) Run() error {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return errors.New("stdin is not a terminal (TTY required for the interactive console)")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     os.ExpandEnv("$HOME/.pubsub_history"),
		HistoryLimit:    500,
		AutoComplete:    buildCompleter(c.completionTopics),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	// 发布在读取输入时到达，通过 readline 的 stdout 输出以保持提示符完整
	c.output = &Output{w: rl.Stdout()}
	ctx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	safe.Go("console-deliveries", func() { c.printDeliveries(ctx) })
	context.AfterFunc(ctx, func() { _ = rl.Close() })

	c.printWelcome()
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				c.output.Info("Use 'exit' or 'quit' to exit")
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !c.Execute(line) {
			return nil
		}
	}
}

// printDeliveries 持续输出收到的发布，连接断开时提示并返回
func (c *Console) printDeliveries(ctx context.Context) {
	for {
		topic, value, err := c.broker.Pull(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.output.Error("Connection lost: %v", err)
			}
			return
		}
		c.output.Delivery(topic, value)
	}
}

func (c *Console) printWelcome() {
	c.output.Header("PubSub Console")
	c.output.Plain("  Connected to %s (%s)", c.addr, c.broker.Format())
	c.output.Plain("  Type 'help' to see available commands, Tab for completion")
	c.output.Plain("")
}

// Execute 执行一行命令，返回 false 表示退出
func (c *Console) Execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	name, ok := resolveCommand(parts[0])
	if !ok {
		c.output.Error("Unknown command: %s", parts[0])
		c.output.Info("Type 'help' to see available commands")
		return true
	}
	args := parts[1:]

	switch name {
	case "help":
		c.cmdHelp()
	case "sub":
		c.cmdSubscribe(args)
	case "unsub":
		c.cmdCancel(args)
	case "pub":
		c.cmdPublish(args)
	case "topics":
		c.cmdTopics()
	case "status":
		c.cmdStatus()
	case "clear":
		fmt.Fprint(c.output.Writer(), "\033[2J\033[H")
	case "exit":
		return false
	}
	return true
}

func (c *Console) cmdHelp() {
	c.output.Header("Commands")
	for _, cmd := range consoleCommands {
		c.output.Plain("  %-24s %s", cmd.usage, colorFaint(cmd.help))
	}
}

func (c *Console) cmdSubscribe(args []string) {
	if len(args) != 1 {
		c.output.Error("Usage: sub <topic>")
		return
	}
	if err := c.broker.Subscribe(args[0]); err != nil {
		c.output.Error("Subscribe failed: %v", err)
		return
	}
	c.mu.Lock()
	c.subs[args[0]] = struct{}{}
	c.mu.Unlock()
	c.output.Success("Subscribed to %s", args[0])
}

func (c *Console) cmdCancel(args []string) {
	if len(args) != 1 {
		c.output.Error("Usage: unsub <topic>")
		return
	}
	if err := c.broker.CancelTopic(args[0]); err != nil {
		c.output.Error("Cancel failed: %v", err)
		return
	}
	c.mu.Lock()
	delete(c.subs, args[0])
	c.mu.Unlock()
	c.output.Success("Cancelled %s", args[0])
}

func (c *Console) cmdPublish(args []string) {
	if len(args) < 2 {
		c.output.Error("Usage: pub <topic> <value...>")
		return
	}
	value := strings.Join(args[1:], " ")
	if err := c.broker.PushTo(args[0], value); err != nil {
		c.output.Error("Publish failed: %v", err)
		return
	}
	c.output.Success("Published to %s", args[0])
}

func (c *Console) cmdTopics() {
	ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	defer cancel()
	topics, err := c.broker.ListTopics(ctx)
	if err != nil {
		c.output.Error("List topics failed: %v", err)
		return
	}
	c.mu.Lock()
	c.known = topics
	c.mu.Unlock()
	c.output.List(topics, "(no topics)")
}

func (c *Console) cmdStatus() {
	state := colorSuccess("connected")
	if err := c.broker.Err(); err != nil {
		state = colorError("disconnected: " + err.Error())
	}
	c.output.Plain("  %-14s %s", "Server:", c.addr)
	c.output.Plain("  %-14s %s", "Format:", c.broker.Format())
	c.output.Plain("  %-14s %s", "State:", state)
	c.output.Plain("  %-14s %s", "Uptime:", time.Since(c.startTime).Round(time.Second))
	c.output.Plain("  %-14s %s", "Subscriptions:", strings.Join(c.Subscriptions(), ", "))
}

// Subscriptions 当前订阅的主题，按名称排序
func (c *Console) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.subs))
	for t := range c.subs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// completionTopics 补全候选：已订阅和最近一次列出的主题
func (c *Console) completionTopics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]struct{}, len(c.subs)+len(c.known))
	out := make([]string, 0, len(c.subs)+len(c.known))
	for t := range c.subs {
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range c.known {
		if _, ok := seen[t]; !ok {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
