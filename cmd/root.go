// Package cmd implements the ideaflow command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/josephgoksu/ideaflow/internal/app"
	"github.com/josephgoksu/ideaflow/internal/config"
	"github.com/josephgoksu/ideaflow/internal/logger"
)

// longRunning marks commands that log at Info level and, for mcp, to a file.
const longRunning = "ideaflow/long-running"

var (
	// cfgFile is the path to the configuration file.
	cfgFile string
	// verbose enables verbose output.
	verbose bool
	// version is the application version.
	version = "0.1.0"

	// Set up by PersistentPreRunE.
	appConfig *config.Config
	appLogger = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ideaflow",
	Short: "ideaflow - branch and snapshot your ideas",
	Long: `ideaflow captures ideas as notes, conversations, a synthesized document,
an architecture graph and a generated project folder.

Explore alternatives on branches: each branch has its own conversation and
its own folder under the idea's project root. Every version of an idea is
kept as a numbered snapshot you can list, diff and restore.

Run "ideaflow mcp" to expose branch and snapshot tools to an AI assistant.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupRuntime,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = appLogger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	defer logger.HandlePanic()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		HandleFatalError(userMessage(err), err)
	}
}

// GetVersion returns the application version.
func GetVersion() string {
	return version
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ~/.ideaflow/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().Bool("json", false, "print machine-readable JSON")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// setupRuntime loads the configuration and builds the logger.
func setupRuntime(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	if err := config.Init(v, cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	_, long := cmd.Annotations[longRunning]
	logFile := cfg.Log.File
	if cmd.Name() == "mcp" && logFile == "" {
		// stdout carries the protocol; keep the terminal clean too.
		logFile = filepath.Join(cfg.Data.Dir, "logs", "mcp.log")
	}

	l, err := logger.New(logger.Options{Verbose: cfg.Verbose, Quiet: !long, File: logFile})
	if err != nil {
		return err
	}

	appConfig = cfg
	appLogger = l
	logger.SetBasePath(cfg.CrashLogBase())
	logger.SetVersion(version)
	logger.SetCommand(cmd.CommandPath())
	logger.SetCrashLogger(l)
	return nil
}

// openApp opens the database and wires the services. The caller closes it.
func openApp(cmd *cobra.Command) (*app.Context, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	if err := os.MkdirAll(appConfig.Data.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return app.NewContext(cmd.Context(), appConfig, appLogger)
}

// withApp runs fn with an open application context.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, appCtx *app.Context) error) error {
	appCtx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = appCtx.Close() }()
	return fn(cmd.Context(), appCtx)
}
