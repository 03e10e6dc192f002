package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/n0ko/message-feed/internal/client"
	"github.com/n0ko/message-feed/internal/config"
	"github.com/n0ko/message-feed/internal/ledger"
	"github.com/n0ko/message-feed/internal/store"
	"github.com/n0ko/message-feed/internal/ui"
)

var version = "dev"

func main() {
	configURL := flag.String("config-url", "", "URL of the node's config.json (overrides config_url)")
	clearCache := flag.Bool("clear-cache", false, "Clear the saved feed and exit")
	showVersion := flag.Bool("version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `message-feed - Terminal client for the ledger message feed

Usage:
  message-feed [flags]

Flags:
  -config-url URL   Node config.json to load the feed from
  -clear-cache      Clear the saved feed and exit
  -version          Show version information
  -h, -help         Show this help message

Key Bindings:
  Enter             Post the message
  Ctrl+E            Compose in external editor
  Tab               Switch between input and feed
  j/k or ↑/↓        Scroll the feed
  Ctrl+R            Refresh now
  Ctrl+S            Show the feed URL as a QR code
  Ctrl+C            Quit

File Locations:
  Config:   ~/.config/message-feed/config.yaml
  Cache:    ~/.config/message-feed/feed.json
  Logs:     ~/.config/message-feed/message-feed.log

Polling pauses after a period without input and resumes on the next key.

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("message-feed %s\n", version)
		os.Exit(0)
	}

	st, err := store.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error locating config directory: %v\n", err)
		os.Exit(1)
	}

	if *clearCache {
		if err := st.ClearCache(); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing cache: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Feed cache cleared.")
		os.Exit(0)
	}

	logFile, err := setupLogging()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not set up logging: %v\n", err)
	} else {
		defer logFile.Close()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *configURL != "" {
		cfg.ConfigURL = *configURL
	}

	poster, err := ledger.NewKeypair()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create poster keypair")
	}
	log.Info().Str("poster", poster.Public.String()).Str("config_url", cfg.ConfigURL).Msg("starting")

	cl := client.New(st, cfg.ConfigURL, poster)
	defer cl.Close()

	app := ui.NewApp(cfg, cl)
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := tea.NewProgram(
		app,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.Error().Err(err).Msg("error running program")
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
	}
}

// setupLogging sends the global logger to the log file
func setupLogging() (*os.File, error) {
	if err := config.EnsureConfigDir(); err != nil {
		return nil, err
	}

	logPath, err := config.LogPath()
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}

	log.Logger = zerolog.New(f).With().Timestamp().Caller().Logger()
	return f, nil
}
