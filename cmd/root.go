package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/markb/plcgate/internal/log"
)

// Version information set via ldflags at build time
var (
	Version   = "dev"
	BuildTime = ""
	GitCommit = ""
)

var rootCmd = &cobra.Command{
	Use:     "plcgate",
	Short:   "plcgate - PKCE-authenticated PLC command gateway",
	Long:    `A gateway and CLI for sending authenticated commands to industrial PLCs, with OAuth2 PKCE login against a Cognito-style provider.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate("plcgate version {{.Version}}\n")

	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text, json")
	rootCmd.PersistentFlags().String("env-file", "", "Path to .env file (default: .env if present)")

	cobra.OnInitialize(initConfig)
}

// initConfig loads the optional .env file and initializes logging.
// Priority: CLI flags > environment variables > defaults.
func initConfig() {
	if envFile, _ := rootCmd.PersistentFlags().GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", envFile, err)
		}
	} else {
		// Best-effort default; a missing .env is not an error
		_ = godotenv.Load()
	}

	cfg := log.DefaultConfig()
	if level := os.Getenv("PLCGATE_LOG_LEVEL"); level != "" {
		cfg.Level = level
	}
	if format := os.Getenv("PLCGATE_LOG_FORMAT"); format != "" {
		cfg.Format = format
	}
	if level, _ := rootCmd.PersistentFlags().GetString("log-level"); level != "" {
		cfg.Level = level
	}
	if format, _ := rootCmd.PersistentFlags().GetString("log-format"); format != "" {
		cfg.Format = format
	}
	log.Init(cfg)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
