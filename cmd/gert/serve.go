package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gertlabs/gert/rpc"
)

func newServeCmd() *cobra.Command {
	var transport, addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose tools over JSON-RPC (stdio or HTTP)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg, err := a.Registry(ctx)
			if err != nil {
				return err
			}
			srv := rpc.NewServer(reg, a.settings.RPC.Tools,
				rpc.WithVersion(version),
				rpc.WithLogger(a.logger.With().Str("component", "rpc").Logger()),
			)

			switch transport {
			case "stdio":
				return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
			case "http":
				if addr == "" {
					addr = a.settings.RPC.Addr
				}
				return srv.ServeHTTP(ctx, addr)
			default:
				return fmt.Errorf("unknown transport %q (want stdio or http)", transport)
			}
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "stdio", "stdio or http")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address for http (default rpc.addr)")
	return cmd
}
