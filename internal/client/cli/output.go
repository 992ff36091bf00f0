package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 彩色输出工具
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorWarning = color.New(color.FgYellow).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorTopic   = color.New(color.FgMagenta).SprintFunc()
	colorBold    = color.New(color.Bold).SprintFunc()
	colorFaint   = color.New(color.Faint).SprintFunc()
)

// Output 提供结构化的输出接口
type Output struct {
	w io.Writer
}

// NewOutput 创建输出到 stdout 的输出工具，stdout 不是终端时关闭颜色
func NewOutput(noColor bool) *Output {
	if noColor || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
	return &Output{w: os.Stdout}
}

// NewWriterOutput 输出到指定 writer，不带颜色
func NewWriterOutput(w io.Writer) *Output {
	color.NoColor = true
	return &Output{w: w}
}

// Writer 底层 writer
func (o *Output) Writer() io.Writer { return o.w }

// Success 输出成功消息
func (o *Output) Success(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n", colorSuccess("✓"), fmt.Sprintf(format, args...))
}

// Error 输出错误消息
func (o *Output) Error(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n", colorError("✗"), fmt.Sprintf(format, args...))
}

// Warning 输出警告消息
func (o *Output) Warning(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n", colorWarning("!"), fmt.Sprintf(format, args...))
}

// Info 输出信息消息
func (o *Output) Info(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n", colorInfo("i"), fmt.Sprintf(format, args...))
}

// Plain 输出普通消息
func (o *Output) Plain(format string, args ...interface{}) {
	fmt.Fprintf(o.w, format+"\n", args...)
}

// Delivery 输出一条收到的发布
func (o *Output) Delivery(topic, value string) {
	fmt.Fprintf(o.w, "%s %s\n", colorTopic(topic), value)
}

// Header 输出标题
func (o *Output) Header(title string) {
	fmt.Fprintln(o.w)
	fmt.Fprintln(o.w, colorBold(title))
	fmt.Fprintln(o.w, strings.Repeat("━", len(title)))
}

// List 输出列表，空列表时输出提示
func (o *Output) List(items []string, empty string) {
	if len(items) == 0 {
		fmt.Fprintln(o.w, colorFaint(empty))
		return
	}
	for _, item := range items {
		fmt.Fprintf(o.w, "  • %s\n", item)
	}
}
