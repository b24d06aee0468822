// Package app holds the bootstrap shared by the tablemate binaries.
package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/octobees/tablemate/internal/dialog"
	"github.com/octobees/tablemate/internal/extract"
	"github.com/octobees/tablemate/internal/privacy"
)

// NewLogger builds the process logger and installs it as the global one.
// format "console" switches to human-readable output.
func NewLogger(level, format string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// NewDialogManager loads the lexicon and wires the extractor guard, the
// optional preference store and the result count.
func NewDialogManager(lexiconPath string, topK int, store dialog.PreferenceStore, logger zerolog.Logger) (*dialog.Manager, error) {
	lex, err := extract.LoadLexicon(lexiconPath)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}

	opts := []dialog.Option{dialog.WithTopK(topK), dialog.WithLogger(logger)}
	if store != nil {
		opts = append(opts, dialog.WithStore(store))
	}
	guarded := extract.NewGuard(extract.NewRules(lex), logger)
	return dialog.NewManager(guarded, opts...), nil
}

// NewPreferenceStore seals preferences into blobs. An empty secret disables
// the store and returns nil.
func NewPreferenceStore(secret string, blobs privacy.BlobStore) (dialog.PreferenceStore, error) {
	if secret == "" {
		return nil, nil
	}
	sealer, err := privacy.NewSealer(secret)
	if err != nil {
		return nil, err
	}
	return privacy.NewStore(sealer, blobs), nil
}
