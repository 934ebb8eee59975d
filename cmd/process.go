package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/travisano/unite-heatmap/tracker"
	"github.com/travisano/unite-heatmap/utils"
)

var (
	processOpts Options
	processRate float64
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Render a heatmap from crops kept by an earlier session",
	Run: func(cmd *cobra.Command, args []string) {
		processOpts.apply(cmd)
		if cmd.Flags().Changed("rate") {
			cfg.Session.SampleRate = processRate
		}
		// the crops are the only copy, never delete them from here
		cfg.Session.KeepFrames = true
		runProcess(cmd)
	},
}

func init() {
	addSessionFlags(processCmd, &processOpts)
	processCmd.Flags().Float64VarP(&processRate, "rate", "r", 0, "Sample rate the crops were captured at")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command) {
	s, opts, deps := openSession()
	defer s.Close()

	controller := tracker.NewController(opts, deps)
	s.watch(controller)

	fmt.Printf("Processing %d frames from %s\n", s.frames.Len(), s.frames.Dir())
	start := time.Now()
	result, err := controller.ProcessStored(cmd.Context())
	if errors.Is(err, tracker.ErrNoFrames) {
		utils.Die(fmt.Sprintf("No frames in %s", s.frames.Dir()), err)
	}
	if err != nil {
		utils.Die("Processing failed", err)
	}
	printResult(result, time.Since(start))
}
