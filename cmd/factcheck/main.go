package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "v1.0.0" // Overwritten at build time
)

// options shared by every subcommand
type options struct {
	server  string
	output  string
	timeout time.Duration
	noSpin  bool
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "factcheck",
		Short: "Fact-check text, web pages and images with an LLM",
		Long: `factcheck sends text, a URL or an image to a Fact Checker API server and
prints the verdict: a 0-10 rating, confidence, analysis and sources.`,
		SilenceUsage: true,
	}

	// Disable automatic 'completion' command added by cobra
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	server := "http://localhost:8000"
	if v := os.Getenv("FACTCHECK_SERVER"); v != "" {
		server = v
	}
	rootCmd.PersistentFlags().StringVar(&opts.server, "server", server, "Fact Checker API base URL (env FACTCHECK_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "human", "Output format (human, json, yaml)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 90*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&opts.noSpin, "no-spinner", false, "Disable the progress spinner")

	rootCmd.AddCommand(
		newTextCmd(opts),
		newURLCmd(opts),
		newImageCmd(opts),
		newHealthCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "factcheck version %s\n", version)
		},
	}
}
