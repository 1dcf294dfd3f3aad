package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yaan-ai/yaan/internal/logging"
	"github.com/yaan-ai/yaan/internal/server"
)

var serveFlags struct {
	host string
	port int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference YAAN server",
	Long:  "Serve the WebSocket chat endpoint at /ws and the status API at /api/status.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serveFlags.host
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serveFlags.port
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, closer, err := logging.New(logging.Options{
			Level:  cfg.Log.Level,
			File:   cfg.Log.File,
			Writer: os.Stderr,
		})
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(cfg.Server, version, logger)
		return srv.ListenAndServe(ctx, cfg.Addr())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "127.0.0.1", "Listen host")
	serveCmd.Flags().IntVar(&serveFlags.port, "port", 8000, "Listen port")
}
