package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	_ "github.com/joho/godotenv/autoload"

	"github.com/octobees/tablemate/internal/app"
	"github.com/octobees/tablemate/internal/config"
	"github.com/octobees/tablemate/internal/privacy"
	"github.com/octobees/tablemate/internal/service"
	"github.com/octobees/tablemate/internal/tui"
)

const localOwner = "local"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.DatasetPath == "" {
		fmt.Fprintln(os.Stderr, "DATASET_PATH must point at a venue CSV")
		os.Exit(1)
	}

	// The TUI owns stdout, so diagnostics only go to a file when asked for.
	logOut, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if path := os.Getenv("CHAT_LOG_FILE"); path != "" {
		logOut, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log output: %v\n", err)
		os.Exit(1)
	}
	defer logOut.Close()
	logger := app.NewLogger(cfg.LogLevel, "json", logOut)

	venues, err := service.LoadVenuesFile(cfg.DatasetPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading venues: %v\n", err)
		os.Exit(1)
	}

	blobs, err := privacy.NewFileBlobs(cfg.PrefsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing preference directory: %v\n", err)
		os.Exit(1)
	}
	store, err := app.NewPreferenceStore(cfg.PrefsSecret, blobs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring preference store: %v\n", err)
		os.Exit(1)
	}

	engine, err := app.NewDialogManager(cfg.LexiconPath, cfg.DialogTopK, store, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building dialog: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(tui.NewChat(engine, localOwner, venues))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running chat: %v\n", err)
		os.Exit(1)
	}
}
