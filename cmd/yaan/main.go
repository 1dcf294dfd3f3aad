package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yaan-ai/yaan/internal/config"
)

// version is set with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:   "yaan",
	Short: "Terminal client for the YAAN assistant",
	Long: `yaan talks to a YAAN assistant server over a WebSocket connection.

Run 'yaan chat' to open a conversation, or 'yaan serve' to start the
bundled reference server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (YAML, or TOML with a .toml extension)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads --config, or the per-user file when it exists, then
// applies the environment overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.Load(configFile)
	} else {
		cfg, err = config.LoadOptional(config.DefaultPath())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}
