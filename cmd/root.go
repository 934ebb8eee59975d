/*
Copyright © 2022 Daniils Petrovs <thedanpetrov@gmail.com>

*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/travisano/unite-heatmap/config"
	"github.com/travisano/unite-heatmap/logger"
)

// Version is the application version.
const Version = "0.2.0"

var (
	// cfg and log are shared by every subcommand once the root pre-run has loaded them
	cfg config.Config
	log *logger.Logger

	cfgFile string
	logDir  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "unite-heatmap",
	Short:   "Unite Heatmap",
	Long:    `Samples the minimap of a running match and renders where both teams, the camps and the objectives were.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if cmd.Flags().Changed("log-dir") {
			cfg.Paths.Logs = logDir
		}
		log, err = logger.New(cfg.Paths.Logs)
		if err != nil {
			return fmt.Errorf("opening logs: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Close()
		}
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Ctrl+C ends a session early; what was captured is still rendered
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML tuning file (defaults and environment are used without one)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for info/warning/error logs (console only when empty)")
}
