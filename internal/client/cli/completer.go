package cli

import (
	"strings"

	"github.com/chzyer/readline"
)

// consoleCommands 控制台命令及别名
var consoleCommands = []struct {
	name    string
	aliases []string
	usage   string
	help    string
}{
	{"help", []string{"h", "?"}, "help", "Show available commands"},
	{"sub", []string{"subscribe"}, "sub <topic>", "Subscribe to a topic"},
	{"unsub", []string{"cancel"}, "unsub <topic>", "Cancel a subscription"},
	{"pub", []string{"publish"}, "pub <topic> <value...>", "Publish a value to a topic"},
	{"topics", []string{"ls"}, "topics", "List topics known to the broker"},
	{"status", []string{"st"}, "status", "Show connection status"},
	{"clear", []string{"cls"}, "clear", "Clear the screen"},
	{"exit", []string{"quit", "q"}, "exit", "Leave the console"},
}

// resolveCommand 把别名解析为命令名
func resolveCommand(word string) (string, bool) {
	word = strings.ToLower(word)
	for _, c := range consoleCommands {
		if c.name == word {
			return c.name, true
		}
		for _, a := range c.aliases {
			if a == word {
				return c.name, true
			}
		}
	}
	return "", false
}

// buildCompleter 构建 readline 补全器，topics 返回补全用的主题名
func buildCompleter(topics func() []string) *readline.PrefixCompleter {
	dynamic := readline.PcItemDynamic(func(string) []string { return topics() })
	items := make([]readline.PrefixCompleterInterface, 0, len(consoleCommands))
	for _, c := range consoleCommands {
		switch c.name {
		case "sub", "unsub", "pub":
			items = append(items, readline.PcItem(c.name, dynamic))
		default:
			items = append(items, readline.PcItem(c.name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}
