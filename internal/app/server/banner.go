package server

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"pubsub-core/internal/config/schema"
	"pubsub-core/internal/version"
)

const (
	bannerWidth = 60
)

var (
	bannerCyan    = color.New(color.FgCyan).SprintFunc()
	bannerBlue    = color.New(color.FgBlue).SprintFunc()
	bannerMagenta = color.New(color.FgMagenta).SprintFunc()
	bannerBold    = color.New(color.Bold).SprintFunc()
	bannerGreen   = color.New(color.FgGreen).SprintFunc()
	bannerFaint   = color.New(color.Faint).SprintFunc()
)

// DisplayStartupBanner 在标准输出显示启动信息，输出不是终端时不清屏
func (s *Server) DisplayStartupBanner(configPath string) {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Print("\033[2J\033[H")
	}
	s.WriteBanner(os.Stdout, configPath)
}

// WriteBanner 输出启动信息
func (s *Server) WriteBanner(w io.Writer, configPath string) {
	cfg := s.deps.Config
	writeLogo(w)
	writeServerInfo(w, s, configPath)
	writeListeners(w, s)
	writeHTTPService(w, &cfg.HTTP)
	fmt.Fprintln(w, bannerFaint("  "+strings.Repeat("━", bannerWidth)))
	fmt.Fprintln(w)
}

func writeLogo(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", bannerCyan(" ___ _   _ ___ ___ _   _ ___"))
	fmt.Fprintf(w, "  %s    %s\n", bannerCyan("| _ \\ | | | _ ) __| | | | _ )"), bannerBold("PubSub Core Server"))
	fmt.Fprintf(w, "  %s    %s\n", bannerBlue("|  _/ |_| | _ \\__ \\ |_| | _ \\"), bannerFaint("Version "+version.GetShortVersion()))
	fmt.Fprintf(w, "  %s\n", bannerMagenta("|_|  \\___/|___/___/\\___/|___/"))
	fmt.Fprintln(w)
}

func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, bannerBold("  "+title))
	fmt.Fprintln(w, bannerFaint("  "+strings.Repeat("─", bannerWidth)))
}

func writeRow(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-18s %s\n", bannerBold(label+":"), value)
}

func writeServerInfo(w io.Writer, s *Server, configPath string) {
	cfg := s.deps.Config
	writeSection(w, "Server Information")
	if configPath == "" {
		configPath = bannerFaint("(defaults)")
	}
	writeRow(w, "Node ID", s.deps.NodeID)
	writeRow(w, "Config File", configPath)
	writeRow(w, "Start Time", time.Now().Format("2006-01-02 15:04:05"))
	writeRow(w, "Fanout Mode", cfg.Server.FanoutMode)
	writeRow(w, "Notify", formatNotifyInfo(&cfg.Notify))
	writeRow(w, "Log File", formatLogFile(cfg.Log.File))
	fmt.Fprintln(w)
}

func writeListeners(w io.Writer, s *Server) {
	writeSection(w, "Listeners")
	fmt.Fprintf(w, "  %-12s %-24s %s\n", "TCP:", s.deps.TCPAddr.String(), bannerGreen("✓ Enabled"))
	fmt.Fprintln(w)
}

func writeHTTPService(w io.Writer, hc *schema.HTTPConfig) {
	writeSection(w, "HTTP Service")
	if !hc.Enabled {
		writeRow(w, "Status", bannerFaint("✗ Disabled"))
		fmt.Fprintln(w)
		return
	}
	writeRow(w, "Status", bannerGreen("✓ Enabled"))
	writeRow(w, "Address", "http://"+hc.Listen)
	fmt.Fprintf(w, "  %s\n", bannerBold("Modules:"))
	if hc.ManagementAPI.Enabled {
		fmt.Fprintf(w, "    • %s %s\n", "Management API", bannerFaint("(/api/v1)"))
	}
	if hc.WebSocket.Enabled {
		fmt.Fprintf(w, "    • %s %s\n", "WebSocket", bannerFaint("(ws://"+hc.Listen+hc.WebSocket.Path+")"))
	}
	fmt.Fprintln(w)
}

func formatNotifyInfo(nc *schema.NotifyConfig) string {
	switch nc.Type {
	case schema.NotifyRedis:
		return fmt.Sprintf("Redis (%s)", nc.Redis.Addr)
	case schema.NotifyMemory:
		return "Memory"
	default:
		return "None"
	}
}

func formatLogFile(configured string) string {
	if configured == "" {
		return "stderr"
	}
	abs, err := filepath.Abs(configured)
	if err != nil {
		return configured
	}
	return abs
}
