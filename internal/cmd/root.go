package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tunaaoguzhann/fixedwindow/internal/config"
)

type rootOptions struct {
	configFile string
	envFiles   []string
}

// NewRootCommand builds the fixedwindow CLI.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "fixedwindow",
		Short: "Fixed-window request limiter for HTTP APIs",
		Long: `fixedwindow sits in front of an HTTP API and rejects clients that exceed
a request quota within a fixed time window, answering 429 with
X-RateLimit-* and Retry-After headers.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default ./config/fixedwindow.yaml or ./fixedwindow.yaml)")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files to load before reading config")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newCheckCommand(opts))
	return root
}

func Execute() error {
	return NewRootCommand().Execute()
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configFile, o.envFiles...)
}
