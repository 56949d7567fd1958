package cli

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lonami/sf/internal"
	"github.com/Lonami/sf/pkg/discovery"
	"github.com/Lonami/sf/pkg/transfer"
)

// autoIP is the destination token that enables receiver discovery.
const autoIP = "auto"

type SendOpts struct {
	port        int
	timeoutSecs int
}

func SendCommand() *cobra.Command {
	var opts SendOpts

	cmd := &cobra.Command{
		Use:     "send <ip|auto> FILES...",
		Aliases: []string{"s"},
		Short:   "Stream files to a receiver",
		Long: `Connects to the receiver at the given IP, or discovers one on the local
network when the destination is the literal 'auto'. Directory arguments are
expanded recursively; files are sent in the resulting order with their path
strings intact.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := GetAppConfig(cmd)
			port := cfg.TransferPort
			if cmd.Flags().Changed("port") {
				port = opts.port
			}
			timeout := time.Duration(cfg.DiscoveryTimeoutSecs) * time.Second
			if cmd.Flags().Changed("timeout") {
				timeout = time.Duration(opts.timeoutSecs) * time.Second
			}

			var addr *net.TCPAddr
			if args[0] == autoIP {
				internal.Info("attempting to discover the receiver", internal.Fields{
					internal.FieldPort: cfg.DiscoveryPort,
					"timeout":          timeout.String(),
				})
				resolved, err := discovery.Resolve(ctx, cfg.DiscoveryPort, timeout)
				if err != nil {
					return err
				}
				addr = resolved
			} else {
				ip := net.ParseIP(args[0])
				if ip == nil {
					return fmt.Errorf("invalid destination %q: must be an IP address or %q", args[0], autoIP)
				}
				addr = &net.TCPAddr{IP: ip, Port: port}
			}

			paths, err := ExpandPaths(args[1:])
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("nothing to send: the given arguments contain no files")
			}

			client := transfer.NewClient(transfer.ClientConfig{
				Addr:      addr,
				ChunkSize: cfg.ChunkSize,
				Progress:  true,
			})
			return client.Send(ctx, paths)
		},
	}

	cmd.Flags().IntVar(&opts.port, "port", 0, "receiver's transfer port (overrides config; ignored with 'auto')")
	cmd.Flags().IntVar(&opts.timeoutSecs, "timeout", 0, "discovery timeout in seconds (overrides config)")

	return cmd
}
