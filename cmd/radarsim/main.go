package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/CZERTAINLY/radarsim/internal/log"
	"github.com/CZERTAINLY/radarsim/internal/model"
	"github.com/CZERTAINLY/radarsim/internal/service"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	userConfigPath string // /default/config/path/radarsim on given OS
	configPath     string // actual config file used (if loaded)
	config         model.Config

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
	flagLogFormat      string // value of --log-format flag

	overrides = viper.New()
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "radarsim")
}

func main() {
	// root flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is radarsim.yaml in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: text or json")

	runFlags(runCmd)
	if err := bindOverrides(overrides, runCmd.Flags()); err != nil {
		panic(err)
	}

	// never print messages
	rootCmd.SilenceErrors = true

	// parse or create a config, setup logging
	rootCmd.PersistentPreRunE = initRadarsim

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("radarsim failed", "error", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 when a component missed the grace period.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, service.ErrShutdownTimeout):
		return 2
	default:
		return 1
	}
}

var rootCmd = &cobra.Command{
	Use:          "radarsim",
	Short:        "Toy radar made of a transmitter and a receiver printing their status",
	SilenceUsage: true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "config prints the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printConfig(cmd.OutOrStdout(), config)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provide version of a radarsim",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Fprintln(out, "radarsim: version info not available")
			return
		}

		if configPath != "" {
			fmt.Fprintf(out, "config:   %s\n", configPath)
		}
		fmt.Fprintf(out, "radarsim: %s\n", info.Main.Version)
		fmt.Fprintf(out, "go:       %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Fprintf(out, "commit:   %s\n", s.Value)
			case "vcs.time":
				fmt.Fprintf(out, "date:     %s\n", s.Value)
			case "vcs.modified":
				fmt.Fprintf(out, "dirty:    %s\n", s.Value)
			}
		}
		fmt.Fprintln(out)
	},
}

func printConfig(w io.Writer, cfg model.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	return enc.Close()
}

func initRadarsim(cmd *cobra.Command, _ []string) error {
	if envConfig, ok := os.LookupEnv("RADARSIMCONFIG"); ok {
		configPath = envConfig
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, d := range []string{".", userConfigPath} {
			path := filepath.Join(d, "radarsim.yaml")
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	// store default configuration
	if configPath == "" {
		config = model.DefaultConfig()
		configPath = filepath.Join(userConfigPath, "radarsim.yaml")
		if err := storeConfig(configPath, config); err != nil {
			// a read only home is not a reason to refuse to run
			slog.Warn("storing default configuration has failed", "path", configPath, "error", err)
			configPath = ""
		}
	} else {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		config = cfg
	}

	if err := applyOverrides(overrides, &config); err != nil {
		return err
	}

	// --verbose and --log-format have a precedence over config file
	if flagVerbose {
		verbose := true
		config.Service.Verbose = &verbose
	}
	if flagLogFormat != "" {
		config.Service.LogFormat = flagLogFormat
	}

	logger := log.New(log.Config{
		Verbose: config.Service.Verbose != nil && *config.Service.Verbose,
		Format:  config.Service.LogFormat,
	})
	slog.SetDefault(logger)

	slog.Debug("radarsim run", "configPath", configPath)
	slog.Debug("radarsim run", "config", config)
	return nil
}

func loadConfig(path string) (model.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Config{}, fmt.Errorf("opening config file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	cfg, err := model.LoadConfig(f)
	if err != nil {
		for _, d := range model.CueErrDetails(err) {
			slog.Error("invalid configuration", d.Attr("detail"))
		}
		return model.Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return *cfg, nil
}

func storeConfig(path string, cfg model.Config) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	if err := printConfig(f, cfg); err != nil {
		return fmt.Errorf("storing configuration: %w", err)
	}
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
