package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rpad300/shortlistAI-sub000/internal/config"
	"github.com/rpad300/shortlistAI-sub000/internal/logging"
)

var (
	// Global flags
	verbose      bool
	configPath   string
	templatesDir string
	timeout      time.Duration

	// Set up in PersistentPreRunE
	cfg     *config.Config
	loggers *logging.Loggers
	logger  *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "shortlist",
	Short: "ShortlistAI provider manager",
	Long: `shortlist runs ShortlistAI prompts against the configured AI vendors
(Gemini, OpenAI, Claude, Kimi, MiniMax), walking the persisted fallback
chain until one of them answers.

API keys are read from the config file or from the environment
(GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY, KIMI_API_KEY,
MINIMAX_API_KEY). A .env file in the working directory or a parent is
loaded first.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loadEnvFile()

		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			c.Logging.DebugMode = true
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		l, err := logging.New(c.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg, loggers, logger = c, l, l.Get(logging.CategoryCLI)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if loggers != nil {
			_ = loggers.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "shortlist.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&templatesDir, "templates", "", "Directory of prompt template overrides")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Overall operation timeout")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(pricingCmd)
	rootCmd.AddCommand(promptsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadEnvFile loads the nearest .env file, searching the working directory
// and its parents. A missing file is not an error.
func loadEnvFile() {
	workDir, err := os.Getwd()
	if err != nil {
		return
	}
	for dir := workDir; ; dir = filepath.Dir(dir) {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", envPath, err)
			}
			return
		} else if !errors.Is(err, fs.ErrNotExist) {
			return
		}
		if parent := filepath.Dir(dir); parent == dir {
			return
		}
	}
}
