package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/sigstrip/internal/config"
	"github.com/jmylchreest/sigstrip/internal/logger"
	"github.com/jmylchreest/sigstrip/internal/output"
	"github.com/jmylchreest/sigstrip/internal/progress"
	"github.com/jmylchreest/sigstrip/pkg/cleaner"
	"github.com/jmylchreest/sigstrip/pkg/llm"
	"github.com/jmylchreest/sigstrip/pkg/mailtext"
	"github.com/jmylchreest/sigstrip/pkg/pipeline"
)

func runClean(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	// Initialize logger based on flags
	logger.Init(logger.Options{
		Debug: cfg.Debug,
		Quiet: cfg.Quiet,
		JSON:  cfg.LogJSON,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Debug("clean command starting",
		"input", cfg.InputFolder,
		"backend", cfg.Backend,
		"provider", cfg.Provider,
		"model", cfg.Model,
		"max_content_size", cfg.MaxContentBytes,
		"dry_run", cfg.DryRun)

	usage := pipeline.NewUsageTracker()
	cl, err := buildCleaner(ctx, cfg, usage)
	if err != nil {
		logger.Error("failed to create cleaner", "error", err)
		return err
	}
	logger.Debug("cleaner ready", "cleaner", cl.Name())

	opts := []pipeline.Option{pipeline.WithUsage(usage)}

	var bar *progress.Bar
	switch {
	case cfg.Progress:
		bar = progress.NewBar(os.Stderr)
		opts = append(opts, pipeline.WithReporter(bar))
	case !cfg.Quiet:
		opts = append(opts, pipeline.WithReporter(progress.NewConsole(cmd.OutOrStdout())))
	}

	// Setup training data output if requested
	if cfg.TrainingDataPath != "" {
		w, err := output.Create(cfg.TrainingDataPath, output.FormatJSONL)
		if err != nil {
			logger.Error("failed to create training data file", "path", cfg.TrainingDataPath, "error", err)
			return err
		}
		defer func() { _ = w.Close() }()
		opts = append(opts, pipeline.WithTrainingData(w))
		logger.Info("saving training data", "path", cfg.TrainingDataPath)
	}

	runner := pipeline.NewRunner(
		pipeline.Config{InputFolder: cfg.InputFolder, OutputPath: cfg.OutputPath},
		pipeline.NewProcessor(mailtext.New(), cl),
		opts...,
	)

	sum, runErr := runner.Run(ctx)
	if bar != nil && !cfg.Quiet {
		reportFailures(os.Stderr, bar)
	}
	if sum != nil && sum.OutputPath != "" {
		printSummary(cmd.OutOrStdout(), sum)
		if err := writeSummary(cfg, sum); err != nil {
			logger.Error("failed to write summary", "path", cfg.SummaryPath, "error", err)
		}
	}

	if errors.Is(runErr, context.Canceled) {
		logInfo("Interrupted: %d of %d emails processed", sum.Processed, sum.Files)
	}
	return runErr
}

// buildCleaner selects the cleaner for the configured backend.
func buildCleaner(ctx context.Context, cfg *config.Config, obs llm.LLMObserver) (cleaner.TextCleaner, error) {
	if cfg.DryRun {
		logger.Info("dry run: no model calls, cleaned text equals original")
		return cleaner.NewNoop(), nil
	}

	provider, err := llm.NewProvider(cfg.Provider, cfg.ProviderConfig())
	if err != nil {
		return nil, err
	}

	opts := []cleaner.Option{
		cleaner.WithTemperature(cfg.Temperature),
		cleaner.WithMaxTokens(cfg.MaxTokens),
		cleaner.WithMaxContentSize(cfg.MaxContentBytes),
		cleaner.WithObserver(obs),
	}

	var cl cleaner.TextCleaner
	if cfg.Backend == config.BackendLocal {
		if p, ok := provider.(*llm.OllamaProvider); ok {
			if err := p.Ping(ctx); err != nil {
				logger.Warn("ollama not reachable, every email will fail until it is", "error", err)
			}
		}
		cl = cleaner.NewLocal(provider, opts...)
	} else {
		cl = cleaner.NewHosted(provider, opts...)
	}

	if cfg.MinOutputRatio > 0 {
		cl = cleaner.NewGuard(cl, cfg.MinOutputRatio)
	}
	return cl, nil
}

func printSummary(w io.Writer, sum *pipeline.Summary) {
	rule := strings.Repeat("=", 50)
	secs := sum.Duration.Seconds()

	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, "Signature removal started at: %s\n", formatTimestamp(sum.StartedAt))
	fmt.Fprintf(w, "Signature removal completed at: %s\n", formatTimestamp(sum.FinishedAt))
	fmt.Fprintf(w, "Total processing time: %.2f seconds (%.2f minutes)\n", secs, secs/60)
	if sum.Files > 0 {
		fmt.Fprintf(w, "Emails: %d processed, %d cleaned, %d without text, %d file errors, %d LLM errors\n",
			sum.Processed, sum.Succeeded, sum.NoContent, sum.FileErrors, sum.LLMErrors)
	}
	if sum.WriteErrors > 0 {
		fmt.Fprintf(w, "Rows lost to write errors: %d\n", sum.WriteErrors)
	}
	if sum.Usage.Calls > 0 {
		fmt.Fprintf(w, "Tokens: %s in, %s out (est. $%.4f)\n",
			humanize.Comma(int64(sum.Usage.InputTokens)),
			humanize.Comma(int64(sum.Usage.OutputTokens)),
			sum.Usage.Cost)
	}
	fmt.Fprintf(w, "Results saved to: %s\n", sum.OutputPath)
	fmt.Fprintf(w, "%s\n", rule)
}

// reportFailures points at the CSV when the progress bar hid per-email results.
func reportFailures(w io.Writer, bar *progress.Bar) {
	if n := bar.Failed(); n > 0 {
		fmt.Fprintf(w, "%d emails failed, see the Status column in the CSV\n", n)
	}
}

func writeSummary(cfg *config.Config, sum *pipeline.Summary) error {
	if cfg.SummaryPath == "" {
		return nil
	}
	format, err := output.ParseFormat(cfg.SummaryFormat)
	if err != nil {
		return err
	}
	if err := output.WriteFile(cfg.SummaryPath, format, sum); err != nil {
		return err
	}
	logger.Info("summary written", "path", cfg.SummaryPath)
	return nil
}
