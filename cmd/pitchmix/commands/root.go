package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	pitchmix "github.com/thadeu/go-pitchmix"
)

var (
	// Global flags
	cfgFile    string
	engineName string
	voicesFlag string
	tempDir    string
	workers    int
	timeout    int
	outputJSON bool
	verbose    bool

	// Global configuration
	globalConfig pitchmix.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pitchmix",
	Short: "Pitch-shifted voice mixer",
	Long: `pitchmix - superimpose pitch-shifted copies of an audio file over the original.

The default voices are a major third up (+4) and a minor third down (-3).
Duration and sample rate of the input are preserved; output is always
16-bit PCM WAV named <input>_filtered.wav.

Processing runs on ffmpeg (default) or SoX.

Examples:
  # Mix the default voices
  pitchmix process voice.ogg

  # Use SoX with a single octave-up voice
  pitchmix --engine sox --voices 12 process voice.ogg -o out.wav

  # Print the filter graph for 48 kHz input
  pitchmix graph --rate 48000
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (YAML)")
	flags.StringVar(&engineName, "engine", "", "processing engine: ffmpeg or sox")
	flags.StringVar(&voicesFlag, "voices", "", `semitone offsets, e.g. "4,-3" (empty or "none" for no voices)`)
	flags.StringVar(&tempDir, "temp-dir", "", "directory for job temp files")
	flags.IntVar(&workers, "workers", 0, "maximum concurrent engine runs")
	flags.IntVar(&timeout, "timeout", 0, "per-job timeout in seconds (0 = none)")
	flags.BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(checkCmd)
}

func initConfig() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
	globalConfig = cfg
}

// loadConfig reads the config file and environment, then applies flags.
func loadConfig() (pitchmix.Config, error) {
	cfg, err := pitchmix.LoadConfig(cfgFile)
	if err != nil {
		return cfg, err
	}

	flags := rootCmd.PersistentFlags()
	if engineName != "" {
		cfg.Engine = engineName
	}
	if flags.Changed("voices") {
		voices, err := parseVoicesFlag(voicesFlag)
		if err != nil {
			return cfg, fmt.Errorf("--voices: %w", err)
		}
		cfg.Voices = voices
	}
	if tempDir != "" {
		cfg.TempDir = tempDir
	}
	if flags.Changed("workers") {
		cfg.MaxWorkers = workers
	}
	if flags.Changed("timeout") {
		cfg.JobTimeout = timeout
	}
	if verbose {
		cfg.Verbose = true
	}

	return cfg, cfg.Validate()
}

func parseVoicesFlag(s string) ([]float64, error) {
	if s == "none" {
		return []float64{}, nil
	}
	return pitchmix.ParseVoices(s)
}

// getConfig returns the global configuration
func getConfig() pitchmix.Config {
	return globalConfig
}

// engineFactory builds the configured engine; tests replace it.
var engineFactory = func(cfg pitchmix.Config, monitor *pitchmix.ResourceMonitor) (pitchmix.Engine, error) {
	return pitchmix.NewEngine(cfg, monitor, slog.Default())
}

// newProcessor builds a processor and verifies the engine is installed.
func newProcessor(ctx context.Context) (*pitchmix.Processor, error) {
	cfg := getConfig()
	monitor := pitchmix.NewResourceMonitor()

	engine, err := engineFactory(cfg, monitor)
	if err != nil {
		return nil, err
	}
	if checker, ok := engine.(pitchmix.Checker); ok {
		if err := checker.CheckInstalled(ctx); err != nil {
			return nil, fmt.Errorf("failed to start %s engine: %w", engine.Name(), err)
		}
	}

	p, err := pitchmix.NewWithEngine(cfg, engine,
		pitchmix.WithLogger(slog.Default()),
		pitchmix.WithMonitor(monitor),
	)
	if err != nil {
		return nil, err
	}
	printVerbose("Engine: %s", p.Engine().Name())
	printVerbose("Voices: %v", p.Voices())
	return p, nil
}

// newEngine builds the configured engine without a processor.
func newEngine() (pitchmix.Engine, error) {
	return engineFactory(getConfig(), nil)
}

// isJSONOutput returns whether output should be JSON
func isJSONOutput() bool {
	return outputJSON
}

// isVerbose returns whether verbose mode is enabled
func isVerbose() bool {
	return verbose
}
