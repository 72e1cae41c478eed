package main

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile         string
	logLevel        string
	logFormat       string
	quiet           bool
	dispatchTimeout time.Duration
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "pluginlattice",
	Short: "Loads WebAssembly Component Model plugins into a cardinality-bound dependency graph",
	Long: `pluginlattice loads WebAssembly Component Model plugins described by a
lattice file, wires each plugin's imports to the plugins selected by its
declared interface bindings, and dispatches calls against the resulting
graph, aggregating results per the target interface's cardinality.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/pluginlattice/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all log output, errors included")
	rootCmd.PersistentFlags().DurationVar(&dispatchTimeout, "dispatch-timeout", 30*time.Second, "deadline for a single dispatch call across the whole plugin fan-out, 0 disables it")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			slog.Error("failed to read specified config file", "file", cfgFile, "error", err)
			os.Exit(1)
		}
		slog.Debug("using config file", "file", viper.ConfigFileUsed())
		return
	}

	// XDG_CONFIG_HOME (falling back to $HOME/.config, per os.UserConfigDir)
	// rather than a dotdir straight under $HOME: a lattice deployment
	// typically also wants a cache dir for compiled components and an XDG
	// layout gives that a natural sibling later without another flag.
	configDir, err := os.UserConfigDir()
	if err != nil {
		slog.Error("failed to find user config directory", "error", err)
		os.Exit(1)
	}

	viper.AddConfigPath(configDir + "/pluginlattice")
	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "file", viper.ConfigFileUsed())
	}
}

func setupLogging() {
	level := parseLogLevel(logLevel)
	if quiet {
		level = slog.LevelError + 1
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(logFormat, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
