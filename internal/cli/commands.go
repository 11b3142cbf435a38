package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyike/BondCortex/config"
	"github.com/dyike/BondCortex/consts"
	"github.com/dyike/BondCortex/internal/bonds"
	"github.com/dyike/BondCortex/internal/display"
	"github.com/dyike/BondCortex/internal/logger"
	"github.com/dyike/BondCortex/internal/portfolio"
	"github.com/dyike/BondCortex/models"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	// Initialize configuration early
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "bondcortex",
		Short: "BondCortex - conversational bond portfolio advisor",
		Long: `BondCortex recommends bond portfolios from a natural-language description of
your investment preferences. The advisor searches a bond dataset through a
language model and explains the portfolio it builds.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				cfg.Debug = true
			}
		},
	}

	rootCmd.AddCommand(newServeCmd(cfg))
	rootCmd.AddCommand(newAskCmd(cfg))
	rootCmd.AddCommand(newChatCmd(cfg))
	rootCmd.AddCommand(newBondsCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")

	return rootCmd
}

// newAskCmd runs one advisor conversation locally, without a server.
func newAskCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [REQUEST]",
		Short: "Ask the advisor for a portfolio once",
		Long: `Run the advisor locally for a single request.
Example: bondcortex ask "I want a conservative 5-year portfolio yielding at least 3%"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showTranscript, _ := cmd.Flags().GetBool("transcript")
			saveDir, _ := cmd.Flags().GetString("save")
			return runAsk(cmd.Context(), cfg, strings.Join(args, " "), showTranscript, saveDir)
		},
	}

	cmd.Flags().Bool("transcript", false, "Print every turn exchanged with the model")
	cmd.Flags().String("save", "", "Directory to save the recommendation and transcript as markdown")
	return cmd
}

func runAsk(ctx context.Context, cfg *config.Config, request string, showTranscript bool, saveDir string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.New(cfg.Debug)
	defer log.Sync()

	rt, err := buildRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}

	history, err := portfolio.History([]models.ChatMessage{{Role: consts.RoleUser, Content: request}})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	result, err := rt.advisor.Run(ctx, history, rt.dataset)
	if err != nil {
		display.DisplayError(os.Stderr, err, "advisor")
		return err
	}

	turns := portfolio.Transcript(result.Transcript)
	display.Recommendation(os.Stdout, result.Recommendation)
	if showTranscript {
		display.Transcript(os.Stdout, turns)
	}
	if saveDir != "" {
		fileName := fmt.Sprintf("recommendation_%s.md", start.Format("20060102_150405"))
		path, err := display.WriteReport(saveDir, fileName, display.Report(request, result.Recommendation, turns))
		if err != nil {
			return err
		}
		display.DisplaySuccess(os.Stdout, "Saved to "+path)
	}
	log.Debug("advisor finished", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// newBondsCmd prints the dataset the advisor searches.
func newBondsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "bonds",
		Short: "List the bonds in the dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataset, err := bonds.Load(cfg.BondsPath)
			if err != nil {
				return err
			}
			fmt.Println(display.BondTable(dataset))
			display.DisplayInfo(os.Stdout, fmt.Sprintf("%d bonds from %s", dataset.Len(), cfg.BondsPath))
			return nil
		},
	}
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("BondCortex %s\n", consts.Version)
			fmt.Println("Conversational bond portfolio advisor")
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long: `Inspect, validate and edit BondCortex configuration settings.
Without --config, show and validate use the environment; init and set use the
per-user config file.`,
	}
	configCmd.PersistentFlags().String("config", "", "Configuration file path")

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := selectedConfig(cmd, cfg)
			if err != nil {
				return err
			}
			showConfig(current)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and the bond dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := selectedConfig(cmd, cfg)
			if err != nil {
				return err
			}
			return validateConfig(current)
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current settings to a config file",
		Long: `Write the current settings to a config file. API keys stay in the
environment and are never written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath(cmd)
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			if err := config.Init(path, *cfg, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "Replace an existing file")
	configCmd.AddCommand(initCmd)

	configCmd.AddCommand(&cobra.Command{
		Use:   "set key=value...",
		Short: "Change settings in a config file",
		Long: "Change settings in a config file. Valid keys: " + strings.Join(config.Keys(), ", ") + `.
Durations take Go syntax such as 90s. A running "serve --watch" picks the change up.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath(cmd)
			if err != nil {
				return err
			}
			manager, err := config.Open(path)
			if err != nil {
				return err
			}
			changed, err := manager.Set(args...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(changed) == 0 {
				fmt.Fprintln(out, "No changes")
				return nil
			}
			fmt.Fprintf(out, "✅ Updated %s: %s\n", path, strings.Join(changed, ", "))
			return nil
		},
	})

	return configCmd
}

// selectedConfig returns the --config file's configuration when the flag is
// set and the environment-derived one otherwise.
func selectedConfig(cmd *cobra.Command, cfg *config.Config) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return cfg, nil
	}
	manager, err := config.Open(path)
	if err != nil {
		return nil, err
	}
	loaded := manager.Get()
	return &loaded, nil
}

func configFilePath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

func showConfig(cfg *config.Config) {
	fmt.Println("📋 Current BondCortex Configuration:")
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("Data Directory:       %s\n", cfg.DataDir)
	fmt.Printf("Bonds File:           %s\n", cfg.BondsPath)
	fmt.Println()
	fmt.Printf("LLM Provider:         %s\n", cfg.LLMProvider)
	fmt.Printf("Advisor Model:        %s\n", cfg.AdvisorModel)
	fmt.Printf("Search Model:         %s\n", cfg.SearchModel)
	fmt.Printf("Backend URL:          %s\n", cfg.BackendURL)
	fmt.Printf("Search Sampling:      temperature %.2f, %d max tokens\n", cfg.SearchTemperature, cfg.SearchMaxTokens)
	fmt.Println()
	fmt.Printf("Max Tool Rounds:      %d\n", cfg.MaxToolRounds)
	fmt.Printf("First Tool Call Only: %t\n", cfg.FirstToolCallOnly)
	fmt.Printf("Instructions File:    %s\n", valueOr(cfg.InstructionsPath, "(built-in)"))
	fmt.Println()
	fmt.Printf("Listen Address:       %s\n", cfg.ListenAddr)
	fmt.Printf("Allowed Origins:      %s\n", cfg.AllowOrigins)
	fmt.Printf("Request Timeout:      %s\n", cfg.RequestTimeout)
	fmt.Printf("Debug Mode:           %t\n", cfg.Debug)
	fmt.Printf("Eino Debug:           %t\n", cfg.EinoDebugEnabled)
	fmt.Println()
	fmt.Println("🔑 API Keys:")
	fmt.Println("─────────────────────")
	fmt.Printf("OpenAI:               %s\n", keyStatus(cfg.OpenAIAPIKey))
	fmt.Printf("DeepSeek:             %s\n", keyStatus(cfg.DeepSeekAPIKey))
	fmt.Printf("Gemini:               %s\n", keyStatus(cfg.GeminiAPIKey))
}

func validateConfig(cfg *config.Config) error {
	fmt.Println("🔍 Validating BondCortex Configuration...")
	fmt.Println("═══════════════════════════════════════")

	fmt.Print("⚙️  Checking settings... ")
	if err := cfg.Validate(); err != nil {
		fmt.Println("❌")
		return fmt.Errorf("configuration invalid: %w", err)
	}
	fmt.Println("✅")

	fmt.Print("📄 Loading bond dataset... ")
	dataset, err := bonds.Load(cfg.BondsPath)
	if err != nil {
		fmt.Println("❌")
		return err
	}
	fmt.Printf("✅ (%d bonds)\n", dataset.Len())

	if cfg.InstructionsPath != "" {
		fmt.Print("📝 Reading advisor instructions... ")
		if _, err := os.Stat(cfg.InstructionsPath); err != nil {
			fmt.Println("❌")
			return fmt.Errorf("instructions file: %w", err)
		}
		fmt.Println("✅")
	}

	display.DisplaySuccess(os.Stdout, "Configuration is valid")
	return nil
}

func keyStatus(key string) string {
	if key == "" {
		return "❌ Not configured"
	}
	return "✅ Configured"
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
