package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lonami/sf/pkg/transfer"
)

type ReceiveOpts struct {
	stripPrefix bool
	noBroadcast bool
	port        int
}

func ReceiveCommand() *cobra.Command {
	var opts ReceiveOpts

	cmd := &cobra.Command{
		Use:     "receive",
		Aliases: []string{"r", "recv"},
		Short:   "Wait for a sender and write the received files to disk",
		Long: `Binds the transfer port, announces this machine on the subnet broadcast
address (unless --no-broadcast) and accepts a single sender. Received paths
are written exactly as sent; with --strip-prefix the directory prefix common
to every file in the session is removed first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := GetAppConfig(cmd)
			port := cfg.TransferPort
			if cmd.Flags().Changed("port") {
				port = opts.port
			}

			srv := transfer.NewServer(transfer.ServerConfig{
				Port:                port,
				StripPrefix:         opts.stripPrefix,
				Broadcast:           !opts.noBroadcast,
				DiscoveryPort:       cfg.DiscoveryPort,
				BroadcastSourcePort: cfg.BroadcastSourcePort,
				BroadcastInterval:   time.Duration(cfg.BroadcastIntervalMs) * time.Millisecond,
				ChunkSize:           cfg.ChunkSize,
			})
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().BoolVarP(&opts.stripPrefix, "strip-prefix", "s", false,
		"strip the common prefix from the received file paths (useful when receiving absolute paths from a drive you don't have)")
	cmd.Flags().BoolVar(&opts.noBroadcast, "no-broadcast", false, "do not announce this receiver; senders must use the direct IP")
	cmd.Flags().IntVar(&opts.port, "port", 0, "transfer port to listen on (overrides config)")

	return cmd
}
