// Package app provides the cobra command tree of the ovm CLI. The
// commands only parse arguments and render results; everything else
// happens in the manager.
package app

import (
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/overlay-tools/ovm/internal/config"
	"github.com/overlay-tools/ovm/internal/manager"
	"github.com/overlay-tools/ovm/internal/versions"
)

var rootCmd = &cobra.Command{
	Use:               "ovm",
	DisableAutoGenTag: true,
	Short:             "Manage overlay repositories",
	Long: `ovm keeps track of two overlay lists: the overlays installed on this
system and the overlays advertised by the configured remote lists. It
can enable, disable and synchronize overlays and inspect either list.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// NewRootCmd creates the root command of the ovm CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().IntP("verbosity", "v", 0, "Log verbosity (higher is chattier)")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress sync tool output")
	for _, flag := range []string{"config", "verbosity", "quiet"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			fmt.Fprintf(rootCmd.ErrOrStderr(), "Error binding %s flag: %v\n", flag, err)
		}
	}

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format version info: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "ovm %s (commit %s, built %s, %s, %s)\n",
			info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
		return nil
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}

// newLogger builds the message sink: logr verbosity levels map onto
// zap's negative debug levels.
func newLogger(verbosity int) logr.Logger {
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	zl, err := zc.Build()
	if err != nil {
		return logr.Discard()
	}
	return zapr.NewLogger(zl)
}

// newManager loads the configuration selected by the root flags and
// builds a manager on top of it.
func newManager(cmd *cobra.Command) (*manager.Manager, error) {
	verbosity, err := cmd.Flags().GetInt("verbosity")
	if err != nil {
		return nil, err
	}
	log := newLogger(verbosity)

	opts := []config.Option{config.WithDefaultConfigPath()}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		opts = []config.Option{config.WithConfigPath(path)}
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		cfg.Quiet = true
	}

	return manager.New(cfg, manager.WithLogger(log))
}

// reportErrors drains the manager's error queue to stderr.
func reportErrors(cmd *cobra.Command, m *manager.Manager) {
	for _, e := range m.GetErrors() {
		fmt.Fprintln(cmd.ErrOrStderr(), e.String())
	}
}
