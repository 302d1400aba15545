// Package commands implements the CLI commands for sigstrip.
package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/sigstrip/internal/config"
	"github.com/jmylchreest/sigstrip/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "sigstrip",
	Short: "Remove signatures from .eml files with an LLM",
	Long: `Sigstrip reads every .eml file in a folder, extracts the message text,
asks a language model to remove signature blocks and writes the original
and cleaned text side by side to a CSV file.

Examples:
  # Clean ./emails with OpenAI (OPENAI_API_KEY from the environment or .env)
  sigstrip

  # Use a local Ollama model
  sigstrip -i ./inbox --backend local -m qwq:32b

  # Use Anthropic and keep a JSON run summary
  sigstrip -p anthropic --summary run.json

  # Check extraction only, no model calls
  sigstrip --dry-run -o output/dry.csv`,
	Version:       version.String(),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runClean,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	pflags := rootCmd.PersistentFlags()
	pflags.String("config", "", "config file (default $HOME/.sigstrip.yaml or ./.sigstrip.yaml)")
	pflags.String("env-file", config.DefaultDotEnvFile, "dotenv file to load; variables already set win")
	pflags.Bool("debug", false, "enable debug logging")
	pflags.BoolP("quiet", "q", false, "only log errors and suppress per-email progress")
	pflags.Bool("log-json", false, "log as JSON")

	_ = viper.BindPFlag("config", pflags.Lookup("config"))
	_ = viper.BindPFlag("env_file", pflags.Lookup("env-file"))
	_ = viper.BindPFlag("debug", pflags.Lookup("debug"))
	_ = viper.BindPFlag("quiet", pflags.Lookup("quiet"))
	_ = viper.BindPFlag("log_json", pflags.Lookup("log-json"))

	flags := rootCmd.Flags()

	// Input/output
	flags.StringP("input", "i", config.DefaultInputFolder, "folder containing .eml files (env EML_EMAILS_FOLDER)")
	flags.StringP("output", "o", "", "CSV output path (default output/email_comparison_<timestamp>.csv)")
	flags.String("save-training-data", "", "save input/output pairs of cleaned emails to this file (JSONL)")
	flags.String("summary", "", "write the run summary to this file")
	flags.String("summary-format", config.DefaultSummaryFormat, "summary format: json, yaml")
	flags.Bool("progress", false, "show a progress bar instead of per-email lines")

	// LLM settings
	flags.String("backend", config.DefaultBackend, "model backend: hosted, local")
	flags.StringP("provider", "p", "", "LLM provider: openai, anthropic (hosted), ollama (local)")
	flags.StringP("model", "m", "", "model name (provider-specific)")
	flags.StringP("api-key", "k", "", "API key (or use the provider env var)")
	flags.String("base-url", "", "custom API base URL")
	flags.Float64("temperature", config.DefaultTemperature, "sampling temperature")
	flags.Int("max-tokens", 0, "max tokens in the model answer (0=provider default)")
	flags.Duration("timeout", config.DefaultTimeout, "per-request timeout")

	// Cleaning settings
	flags.String("max-content-size", "0", "max email text sent to the model (e.g., 64KB, 0=unlimited)")
	flags.Float64("min-output-ratio", 0, "reject answers shorter than this fraction of the input (0=off)")
	flags.Bool("dry-run", false, "skip the model; cleaned text equals the original")

	// Bind to viper
	for key, flag := range map[string]string{
		"input_folder":       "input",
		"output":             "output",
		"save_training_data": "save-training-data",
		"summary":            "summary",
		"summary_format":     "summary-format",
		"progress":           "progress",
		"backend":            "backend",
		"provider":           "provider",
		"model":              "model",
		"api_key":            "api-key",
		"base_url":           "base-url",
		"temperature":        "temperature",
		"max_tokens":         "max-tokens",
		"timeout":            "timeout",
		"max_content_size":   "max-content-size",
		"min_output_ratio":   "min-output-ratio",
		"dry_run":            "dry-run",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func initConfig() {
	if err := config.LoadDotEnv(viper.GetString("env_file")); err != nil {
		logError("%v", err)
	}

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".sigstrip")
		viper.SetConfigType("yaml")
	}

	config.SetDefaults(viper.GetViper())

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logError("%v", err)
	}
	return err
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
