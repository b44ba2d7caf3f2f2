package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// NewRootCommand builds the apiprobe command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "apiprobe",
		Short:   "A timing-aware HTTP client for API testing",
		Version: version,
		Long: `apiprobe sends HTTP requests and reports where the time went:
DNS resolution, TCP connect, TLS handshake, request send and response
receive. Slow phases are flagged, and every exchange can be logged per
test case, exported as Prometheus metrics or stored in SQLite.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// If no subcommand is provided, print help
			return cmd.Help()
		},
	}

	root.AddCommand(newRequestCmd())
	for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
		root.AddCommand(newMethodCmd(method))
	}
	return root
}

// Execute runs the root command with the process arguments. Cancelling
// ctx aborts in-flight requests and repeated sampling.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
