package main

import (
	"github.com/spf13/cobra"

	"github.com/codeper/playground/internal/infrastructure/server"
)

func newServeCmd(load configLoader) *cobra.Command {
	var (
		port      string
		ephemeral bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the playground HTTP and WebSocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("ephemeral") {
				cfg.Store.Ephemeral = ephemeral
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			srv, err := server.NewServer(cfg, server.Options{})
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "keep the project in memory only")
	return cmd
}
