package cmd

import (
	"github.com/spf13/cobra"

	"pubsub-core/internal/client"
	"pubsub-core/internal/client/cli"
)

func newConsoleCommand(opts *globalOptions) *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Start the interactive console",
		Long: `Start an interactive console on a single connection.
Subscribe, publish and list topics; published values are printed as they arrive.

Example:
  pubsub console -s broker:5000 -f msgpack`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := opts.dial(cmd.Context(), "", client.Producer)
			if err != nil {
				return err
			}
			defer q.Close()
			return cli.NewConsole(cmd.Context(), q, opts.server, cli.NewOutput(noColor)).Run()
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable coloured output")
	return cmd
}
