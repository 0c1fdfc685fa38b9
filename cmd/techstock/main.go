package main

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"techstock/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:           "techstock",
		Short:         "Bulk equipment intake for the shop inventory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), loadCmd())

	if err := root.Execute(); err != nil {
		log.Printf("[error] %v", err)
		os.Exit(1)
	}
}

// setupLogging tees the std logger into cfg.LogFile when one is configured.
func setupLogging(cfg config.Config) {
	if cfg.LogFile == "" {
		return
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
}
