package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/factcheck/internal/client"
	domain "github.com/bryanwahyu/factcheck/internal/domain/factcheck"
	"github.com/bryanwahyu/factcheck/internal/formatter"
)

func newTextCmd(opts *options) *cobra.Command {
	var extra string
	cmd := &cobra.Command{
		Use:   "text TEXT",
		Short: "Fact-check a statement",
		Long: `Fact-check a statement. Use "-" to read the text from stdin.

Examples:
  factcheck text "The Great Wall of China is visible from space"
  factcheck text "Vaccines cause autism" --context "Claim from a social media post"
  cat article.txt | factcheck text - -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := args[0]
			if text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("text cannot be empty")
			}
			return runCheck(cmd, opts, "Analyzing text...", func(ctx context.Context, c *client.Client) (*domain.Result, error) {
				return c.CheckText(ctx, text, extra)
			})
		},
	}
	cmd.Flags().StringVar(&extra, "context", "", "Additional context for the statement")
	return cmd
}

func newURLCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "url URL",
		Short: "Fact-check the content of a web page",
		Example: `  factcheck url https://example.com/news/article`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, "Fetching and analyzing page...", func(ctx context.Context, c *client.Client) (*domain.Result, error) {
				return c.CheckURL(ctx, args[0])
			})
		},
	}
}

func newImageCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "image PATH",
		Short:   "Fact-check claims visible in an image",
		Example: `  factcheck image ./screenshot.png`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			return runCheck(cmd, opts, "Analyzing image...", func(ctx context.Context, c *client.Client) (*domain.Result, error) {
				return c.CheckImage(ctx, args[0], data)
			})
		},
	}
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show server and LLM connectivity status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			h, err := client.New(opts.server, opts.timeout).Health(ctx)
			if err != nil {
				return err
			}
			if err := formatter.DisplayHealth(cmd.OutOrStdout(), h, opts.output); err != nil {
				return err
			}
			if h.Status != "healthy" {
				return fmt.Errorf("server is %s", h.Status)
			}
			return nil
		},
	}
}

// runCheck performs one request behind a spinner and prints the verdict.
func runCheck(cmd *cobra.Command, opts *options, label string, call func(context.Context, *client.Client) (*domain.Result, error)) error {
	if err := validateFormat(opts.output); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	var s *spinner.Spinner
	if !opts.noSpin && opts.output == formatter.Human {
		s = spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		s.Suffix = " " + label
		s.Start()
	}
	res, err := call(ctx, client.New(opts.server, opts.timeout))
	if s != nil {
		s.Stop()
	}
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return errors.New(apiErr.Detail)
		}
		return err
	}

	if opts.output == formatter.Human {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s Analysis complete\n", color.GreenString("✓"))
	}
	return formatter.DisplayResult(cmd.OutOrStdout(), res, opts.output)
}

func validateFormat(format string) error {
	switch format {
	case formatter.Human, formatter.JSON, formatter.YAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (human, json, yaml)", format)
}
