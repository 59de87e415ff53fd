package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/tarkov-dev/site/internal/config"
	"github.com/tarkov-dev/site/internal/influx"
	"github.com/tarkov-dev/site/internal/logging"
	intOtel "github.com/tarkov-dev/site/internal/otel"
)

// BuildVersion and BuildDate can be set at build time via ldflags
var (
	BuildVersion = "0.0.1"
	BuildDate    = "unknown"
)

const appName = "tarkov_dev"

// global flags
var (
	configDir string
	logLevel  string
)

// runtime state shared by the subcommands
var (
	SlogManager  *logging.SlogManager
	Logger       *slog.Logger
	OTelProvider *intOtel.Provider

	// DBLogger is the zerolog logger handed to the database and influx managers
	DBLogger zerolog.Logger

	SessionStartTime = time.Now()

	logFile    *os.File
	gelfWriter *gelf.Writer
)

var rootCmd = &cobra.Command{
	Use:           "tarkovdev",
	Short:         "tarkov.dev map pages and data cache",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	// no config or logging needed
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	PersistentPostRun: func(*cobra.Command, []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (built %s)\n", appName, BuildVersion, BuildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing "+config.FileName)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(serveCmd, cacheCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if Logger != nil {
			Logger.Error("command failed", "error", err)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config and wires logging: a log file (or stdout), the OTel bridge and
// Graylog when enabled.
func setup() error {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", configDir)
	}

	level := config.GetString("logLevel")
	if logLevel != "" {
		level = logLevel
	}
	SlogManager.SetLevel(level)

	var out io.Writer
	if dir := config.GetString("logsDir"); dir != "" {
		f, err := logging.OpenFile(dir, appName, SessionStartTime)
		if err != nil {
			return err
		}
		logFile = f
		out = f
	}

	var err error
	OTelProvider, err = intOtel.New(intOtel.FromConfig(config.GetOTelConfig(), out))
	if err != nil {
		Logger.Error("Failed to initialize OTel provider", "error", err)
		OTelProvider = nil
	}

	var extra []slog.Handler
	if config.GetBool("graylog.enabled") {
		gelfWriter, err = logging.NewGelfWriter(config.GetString("graylog.address"))
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			extra = append(extra, logging.NewGelfHandler(gelfWriter, level))
		}
	}

	var provider *sdklog.LoggerProvider
	if OTelProvider != nil {
		provider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(out, level, provider, extra...)
	if out == nil {
		out = os.Stdout
	}
	DBLogger = zerolog.New(out).With().Timestamp().Logger()
	Logger = SlogManager.Logger().With("version", BuildVersion)
	return nil
}

func teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Warn("Failed to flush logs", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if gelfWriter != nil {
		_ = gelfWriter.Close()
	}
	if logFile != nil {
		_ = logFile.Close()
	}
}

// connectInflux returns a connected metrics manager, or nil when influx is disabled or
// unusable.
func connectInflux(ctx context.Context) *influx.Manager {
	backup := filepath.Join(config.GetString("logsDir"), appName+".influx.lp.gz")
	m := influx.NewManager(DBLogger, backup)
	if err := m.Connect(ctx, config.GetInfluxConfig()); err != nil {
		Logger.Debug("InfluxDB metrics disabled", "reason", err)
		_ = m.Close()
		return nil
	}
	return m
}
