package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the apilog command tree
func NewRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "apilog",
		Short: "Logging, error normalization and trace administration for the web API",
		Long: `apilog serves the application API behind a structured logger,
classified error responses and an access log.

Tracing is configured per component at runtime through /admin/trace/*
and can be seeded at boot from a YAML preset file (TRACE_PRESETS).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(envFile, cmd.Flags().Changed("env-file"))
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newServeCmd())
	root.AddCommand(newPresetsCmd())
	root.AddCommand(newSessionsCmd())

	return root
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		printError(err)
		return err
	}
	return nil
}

// loadEnvFile loads path into the environment. A missing default file is
// not an error; a missing file the user asked for is.
func loadEnvFile(path string, explicit bool) error {
	if err := godotenv.Load(path); err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
