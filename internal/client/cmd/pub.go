package cmd

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	"pubsub-core/internal/client"
)

func newPubCommand(opts *globalOptions) *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "pub <topic> [value...]",
		Short: "Publish a value to a topic",
		Long: `Publish a value to a topic. Words after the topic are joined with spaces.

Examples:
  pubsub pub sensors/temp 21.5
  pubsub pub -f msgpack logs "disk full"
  tail -f app.log | pubsub pub logs --stdin      # one publish per input line`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := opts.dial(cmd.Context(), args[0], client.Producer)
			if err != nil {
				return err
			}
			defer q.Close()

			if fromStdin {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					if err := q.Push(scanner.Text()); err != nil {
						return err
					}
				}
				if err := scanner.Err(); err != nil {
					return err
				}
			} else {
				if err := q.Push(strings.Join(args[1:], " ")); err != nil {
					return err
				}
			}

			// 收到列表应答说明之前的发布都已被处理
			ctx, cancel := opts.requestContext(cmd.Context())
			defer cancel()
			_, err = q.ListTopics(ctx)
			return err
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Publish each line read from stdin")
	return cmd
}
