package version

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

var (
	// Version 版本号，默认从 VERSION 文件读取，构建时可通过 -ldflags 覆盖
	Version = "dev"

	// BuildTime 构建时间，通过 -ldflags 注入
	BuildTime = ""

	// GitCommit Git 提交哈希，通过 -ldflags 注入
	GitCommit = ""
)

func init() {
	if Version == "dev" {
		Version = readVersionFile("VERSION", "../VERSION")
	}
}

// readVersionFile 依次尝试读取候选文件，都不可用时返回 "dev"
func readVersionFile(paths ...string) string {
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		v := strings.TrimPrefix(strings.TrimSpace(string(data)), "v")
		if v != "" {
			return v
		}
	}
	return "dev"
}

// GetVersion 获取完整版本信息
func GetVersion() string {
	v := "v" + Version
	if BuildTime != "" {
		v += " (built " + BuildTime + ")"
	}
	if len(GitCommit) >= 8 {
		v += " commit " + GitCommit[:8]
	} else if GitCommit != "" {
		v += " commit " + GitCommit
	}
	return v
}

// GetShortVersion 获取简短版本号
func GetShortVersion() string {
	return "v" + Version
}

// Describe 返回程序名、版本与运行平台，用于 version 子命令
func Describe(program string) string {
	return fmt.Sprintf("%s %s %s/%s %s", program, GetVersion(), runtime.GOOS, runtime.GOARCH, runtime.Version())
}
