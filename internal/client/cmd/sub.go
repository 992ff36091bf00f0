package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pubsub-core/internal/client"
	coreerrors "pubsub-core/internal/core/errors"
)

func newSubCommand(opts *globalOptions) *cobra.Command {
	var (
		count     int
		showTopic bool
	)

	cmd := &cobra.Command{
		Use:   "sub <topic> [topic...]",
		Short: "Subscribe and print published values",
		Long: `Subscribe to one or more topics and print each value as it arrives.
Runs until interrupted, or until --count values were received.

Examples:
  pubsub sub sensors
  pubsub sub -f xml sensors/temp sensors/humidity --count 10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := opts.dial(ctx, args[0], client.Consumer)
			if err != nil {
				return err
			}
			defer q.Close()
			for _, t := range args[1:] {
				if err := q.Subscribe(t); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for received := 0; count <= 0 || received < count; received++ {
				topic, value, err := q.Pull(ctx)
				if err != nil {
					if ctx.Err() != nil && coreerrors.IsCode(err, coreerrors.CodeTimeout) {
						return nil
					}
					return err
				}
				if showTopic || len(args) > 1 {
					fmt.Fprintf(out, "%s\t%s\n", topic, value)
				} else {
					fmt.Fprintln(out, value)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Exit after receiving this many values (0 = unlimited)")
	cmd.Flags().BoolVar(&showTopic, "show-topic", false, "Prefix each value with its topic")
	return cmd
}
