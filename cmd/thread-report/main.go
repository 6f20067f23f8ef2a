// Command thread-report analyzes a Reddit thread from a saved JSON payload or
// straight from the Reddit API and prints the result.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brettboylen/thread-analyzer/api"
	"github.com/brettboylen/thread-analyzer/report"
	"github.com/brettboylen/thread-analyzer/stats"
	"github.com/brettboylen/thread-analyzer/utils"
)

type options struct {
	format      string
	topComments int
	topAuthors  int
	topWords    int
	logLevel    string
	envPath     string
	savePath    string
	limit       int
	timeout     time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "thread-report",
		Short:        "Analyze Reddit discussion threads",
		Long:         "Score, author, time-of-day and word frequency analysis of a Reddit thread.",
		SilenceUsage: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.format, "format", "f", report.FormatTable, "output format (table, json)")
	flags.IntVar(&opts.topComments, "top", 10, "number of top comments to show")
	flags.IntVar(&opts.topAuthors, "authors", 10, "number of top authors to show")
	flags.IntVar(&opts.topWords, "words", 20, "number of frequent words to show")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "logging level (debug, info, warn, error)")

	root.AddCommand(newAnalyzeCmd(opts), newFetchCmd(opts))
	return root
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze a saved thread JSON file (reads stdin when file is omitted or \"-\")",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return analyzeAndRender(cmd, opts, data)
		},
	}
}

func newFetchCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <permalink>",
		Short: "Fetch a thread from Reddit and analyze it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd.ErrOrStderr(), opts.logLevel)

			config, err := utils.LoadConfig(opts.envPath, log)
			if err != nil {
				return err
			}

			limit := opts.limit
			if limit <= 0 {
				limit = config.Reddit.CommentLimit
			}

			client := api.NewRedditAPI(
				config.Reddit.ClientID,
				config.Reddit.ClientSecret,
				config.Reddit.UserAgent,
				config.Reddit.MaxRequestsPerMinute,
				log,
			)

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			data, err := client.FetchThread(ctx, args[0], limit)
			if err != nil {
				return err
			}

			if opts.savePath != "" {
				if err := os.WriteFile(opts.savePath, data, 0644); err != nil {
					return fmt.Errorf("failed to save thread: %w", err)
				}
				log.WithField("file", opts.savePath).Info("Saved thread payload")
			}

			return analyzeAndRender(cmd, opts, data)
		},
	}

	cmd.Flags().StringVar(&opts.envPath, "env", ".env", "path to .env file")
	cmd.Flags().StringVar(&opts.savePath, "save", "", "also write the raw thread JSON to this file")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "maximum comments to request (default from REDDIT_COMMENT_LIMIT)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "overall request timeout")
	return cmd
}

func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read thread file: %w", err)
	}
	return data, nil
}

func analyzeAndRender(cmd *cobra.Command, opts *options, data []byte) error {
	log := newLogger(cmd.ErrOrStderr(), opts.logLevel)

	analyzer := stats.NewAnalyzerWithOptions(stats.AnalyzerOptions{
		TopComments: opts.topComments,
		TopAuthors:  opts.topAuthors,
		TopWords:    opts.topWords,
	}, log)

	result, err := analyzer.AnalyzeThread(data)
	if err != nil {
		return err
	}

	return report.NewRenderer().Render(cmd.OutOrStdout(), result, opts.format)
}

func newLogger(out io.Writer, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.WarnLevel
	}
	log.SetLevel(parsed)
	return log
}
