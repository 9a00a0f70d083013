package main

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-webpub/internal/assets"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, logging, and asset loading.
type Environment struct {
	Now    func() time.Time
	Stdout io.Writer
	Stderr io.Writer
	Logger *log.Logger
	Assets assets.AssetLoader
}

// DefaultEnv returns the production environment with embedded assets.
func DefaultEnv() *Environment {
	return &Environment{
		Now:    time.Now,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: newLogger(os.Stderr, log.InfoLevel),
		Assets: assets.NewEmbeddedLoader(),
	}
}
