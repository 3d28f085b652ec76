package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/boardgame-console/internal/config"
	"github.com/jwebster45206/boardgame-console/internal/logger"
	"github.com/jwebster45206/boardgame-console/pkg/gateway"
	"github.com/jwebster45206/boardgame-console/pkg/match"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := logger.OpenFile(cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logFile.Close()
	}()
	log := logger.Setup(cfg, logFile)

	client, err := gateway.NewHTTPClient(cfg.APIBaseURL, cfg.HTTPTimeout, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid API URL: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := client.Ping(ctx); err != nil {
		log.Warn("Game service is not reachable yet", "api_base_url", cfg.APIBaseURL, "error", err)
	}
	cancel()

	log.Info("Starting boardgame console",
		"environment", cfg.Environment,
		"api_base_url", cfg.APIBaseURL)

	session := match.NewSession(client,
		match.WithSessionLogger(log),
		match.WithRand(match.NewRand(cfg.RandomSeed)))

	p := tea.NewProgram(NewConsoleUI(session, log),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		log.Error("Console exited with error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
