package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/feed-harvester/pkg/config"
	"github.com/user/feed-harvester/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "harvester",
		Short:         "Harvest posts from a social feed and forward them to a collector",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.IntP("timeout", "t", 30, "seconds to wait for the feed and for new posts before backing off")
	flags.IntP("count", "c", 10, "number of posts to harvest")
	flags.Bool("headless", true, "run the browser without a window")
	flags.String("group", "", "group or page name to harvest")
	flags.String("metrics-addr", "", "address to expose Prometheus metrics on, e.g. :9090")
	flags.Int("concurrency", 10, "maximum concurrent forwards to the collector")

	root.AddCommand(newRunCmd(), newUploadCmd(), newServeCmd())
	return root
}

// loadConfig reads configuration with cmd's flags on top and installs the
// process logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger.Init(os.Stdout, logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}
