package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/yaan-ai/yaan/internal/app"
	"github.com/yaan-ai/yaan/internal/client"
	"github.com/yaan-ai/yaan/internal/config"
	"github.com/yaan-ai/yaan/internal/console"
	"github.com/yaan-ai/yaan/internal/logging"
	"golang.org/x/term"
)

var chatFlags struct {
	url      string
	plain    bool
	markdown bool
	logFile  string
	logLevel string
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a YAAN server",
	Long: `Open a conversation with a YAAN assistant server.

The full-screen interface is used when stdin and stdout are terminals;
otherwise, or with --plain, lines are read from stdin and every event is
printed as "[HH:MM:SS] Sender: text".`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	f := chatCmd.Flags()
	f.StringVar(&chatFlags.url, "url", client.DefaultURL, "WebSocket URL of the YAAN server")
	f.BoolVar(&chatFlags.plain, "plain", false, "Line mode instead of the full-screen interface")
	f.BoolVar(&chatFlags.markdown, "markdown", true, "Render assistant replies as Markdown")
	f.StringVar(&chatFlags.logFile, "log-file", "", "Write JSON logs to this file")
	f.StringVar(&chatFlags.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error, off)")
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyChatFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	plain := cfg.UI.Plain || !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd()))

	logOpts := logging.Options{Level: cfg.Log.Level, File: cfg.Log.File}
	if plain {
		logOpts.Writer = os.Stderr
	}
	logger, closer, err := logging.New(logOpts)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if plain {
		return runConsole(ctx, cfg, logger)
	}
	return runTUI(cfg, logger)
}

// applyChatFlags lets explicitly set flags win over the config file and
// environment.
func applyChatFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("url") {
		cfg.Client.URL = chatFlags.url
	}
	if f.Changed("plain") {
		cfg.UI.Plain = chatFlags.plain
	}
	if f.Changed("markdown") {
		cfg.UI.Markdown = chatFlags.markdown
	}
	if f.Changed("log-file") {
		cfg.Log.File = chatFlags.logFile
	}
	if f.Changed("log-level") {
		cfg.Log.Level = chatFlags.logLevel
	}
}

func sessionOptions(cfg *config.Config, logger zerolog.Logger) []client.Option {
	return []client.Option{
		client.WithLogger(logger),
		client.WithReadLimit(cfg.Client.ReadLimit),
		client.WithCloseGrace(cfg.Client.CloseGrace),
	}
}

func runConsole(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	host := console.New(os.Stdout, cfg.UI.TimestampFormat, logger)
	s := client.NewSession(cfg.Client.URL, host.Handler(), sessionOptions(cfg, logger)...)
	return host.Run(ctx, s, os.Stdin)
}

func runTUI(cfg *config.Config, logger zerolog.Logger) error {
	// The handler needs the program and the model needs the session, so the
	// program is bound late. Connect only runs from Init, after p is set.
	var p *tea.Program
	s := client.NewSession(cfg.Client.URL,
		app.Forward(func(msg tea.Msg) { p.Send(msg) }),
		sessionOptions(cfg, logger)...,
	)

	m := app.New(s, app.Options{
		Markdown:      cfg.UI.Markdown,
		MarkdownStyle: cfg.UI.MarkdownStyle,
		TimeFormat:    cfg.UI.TimestampFormat,
		Logger:        logger,
	})
	p = tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
