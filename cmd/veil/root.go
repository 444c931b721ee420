package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "veil",
	Short: "Veil - anonymization policy governance and audit trail",
	Long: `Veil manages medical imaging anonymization policies and records a
tamper-evident audit trail of anonymization operations.

It provides:
  - Versioned anonymization policies (remove / pseudonymize / preserve)
  - Quorum-based approval workflows (single, dual, committee)
  - Emergency activation with mandatory post-hoc review
  - Rollback with full version lineage
  - PHI-free audit records with integrity hashing
  - HIPAA/GDPR compliance assessment and reporting`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
