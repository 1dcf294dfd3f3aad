package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yaan-ai/yaan/internal/client"
)

var restURL string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a YAAN server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		hc, err := httpClient(cmd)
		if err != nil {
			return err
		}
		st, err := hc.Status(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s: %s\n", st.Service, st.Version, st.Status)
		fmt.Fprintf(out, "user: %s\n", st.User)
		fmt.Fprintf(out, "connections: %d\n", st.Connections)
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <text>...",
	Short: "Send one command and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hc, err := httpClient(cmd)
		if err != nil {
			return err
		}
		reply, err := hc.Ask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{statusCmd, askCmd} {
		c.Flags().StringVar(&restURL, "url", client.DefaultURL, "WebSocket URL of the YAAN server")
		rootCmd.AddCommand(c)
	}
}

// httpClient derives the REST base from the configured WebSocket URL.
func httpClient(cmd *cobra.Command) (*client.HTTPClient, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("url") {
		cfg.Client.URL = restURL
	}
	base, err := client.HTTPBase(cfg.Client.URL)
	if err != nil {
		return nil, fmt.Errorf("client.url: %w", err)
	}
	return client.NewHTTPClient(base), nil
}
