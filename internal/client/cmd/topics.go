package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pubsub-core/internal/client"
)

func newTopicsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List topics known to the broker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := opts.dial(cmd.Context(), "", client.Producer)
			if err != nil {
				return err
			}
			defer q.Close()

			ctx, cancel := opts.requestContext(cmd.Context())
			defer cancel()
			topics, err := q.ListTopics(ctx)
			if err != nil {
				return err
			}
			for _, t := range topics {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}
