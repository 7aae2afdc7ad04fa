package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tunaaoguzhann/fixedwindow/core"
)

func newCheckCommand(opts *rootOptions) *cobra.Command {
	var times int

	cmd := &cobra.Command{
		Use:   "check <client-id>...",
		Short: "Run checks against an in-process limiter with the configured limits",
		Long: `check feeds requests for each client id through a fresh limiter using
the configured max_requests and window, and prints every decision. An empty
client id ("") is counted against the shared "unknown" bucket.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if times <= 0 {
				return fmt.Errorf("--times must be positive")
			}

			limiter, err := core.NewMemoryLimiterWithOptions(core.Options{
				MaxRequests: cfg.Limit.MaxRequests,
				Window:      cfg.Limit.Window,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, clientID := range args {
				for i := 0; i < times; i++ {
					d, err := limiter.Allow(cmd.Context(), clientID)
					if err != nil {
						return err
					}
					if d.Admitted {
						fmt.Fprintf(out, "%s\t#%d\tadmitted\tremaining=%d\n", displayID(clientID), d.Count, d.Remaining)
						continue
					}
					fmt.Fprintf(out, "%s\t#%d\trejected\tretry_after=%ds\n", displayID(clientID), d.Count, d.RetryAfter)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&times, "times", "n", 1, "requests to send per client")
	return cmd
}

func displayID(clientID string) string {
	if clientID == "" {
		return core.UnknownClient
	}
	return clientID
}
