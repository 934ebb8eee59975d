package cmd

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/travisano/unite-heatmap/capture"
	"github.com/travisano/unite-heatmap/imgproc"
	"github.com/travisano/unite-heatmap/tracker"
	"github.com/travisano/unite-heatmap/utils"
)

var (
	trackOpts     Options
	trackDuration time.Duration
	trackRate     float64
	trackDisplay  int
	trackVideo    string
	trackInterval int
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Capture a match and render the heatmap",
	Long: `Finds the minimap on screen (or in a recording), samples it at a fixed rate for the
session duration, then analyses every sample and renders the heatmap over the reference map.
Ctrl+C stops capturing early and still renders what was captured.`,
	Run: func(cmd *cobra.Command, args []string) {
		trackOpts.apply(cmd)
		if cmd.Flags().Changed("duration") {
			cfg.Session.Duration = trackDuration
		}
		if cmd.Flags().Changed("rate") {
			cfg.Session.SampleRate = trackRate
		}
		if cmd.Flags().Changed("display") {
			cfg.Session.Display = trackDisplay
		}
		runTrack(cmd)
	},
}

func init() {
	addSessionFlags(trackCmd, &trackOpts)
	trackCmd.Flags().DurationVarP(&trackDuration, "duration", "d", 0, "Session length, e.g. 10m")
	trackCmd.Flags().Float64VarP(&trackRate, "rate", "r", 0, "Samples per second")
	trackCmd.Flags().IntVar(&trackDisplay, "display", 0, "Display to capture")
	trackCmd.Flags().StringVarP(&trackVideo, "video", "f", "", "Recording or device id to read instead of the screen")
	trackCmd.Flags().IntVarP(&trackInterval, "interval", "i", -1, "Video frames skipped between samples (derived from --rate when negative)")
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command) {
	s, opts, deps := openSession()
	defer s.Close()

	var source capture.Source
	if trackVideo != "" {
		video, err := capture.OpenVideo(trackVideo, 0)
		if err != nil {
			utils.Die("Failed to open the video", err)
		}
		interval := trackInterval
		if interval < 0 {
			interval = videoInterval(video.FPS(), cfg.Session.SampleRate)
		}
		video.Close()
		if video, err = capture.OpenVideo(trackVideo, interval); err != nil {
			utils.Die("Failed to open the video", err)
		}
		log.Info("reading %s, skipping %d frames between samples", trackVideo, interval)
		source = video
		// a recording is read as fast as it decodes
		opts.Unpaced = true
	} else {
		screen, err := capture.NewScreen(cfg.Session.Display)
		if err != nil {
			utils.Die("Failed to open the display", err)
		}
		log.Info("capturing display %d at %v", cfg.Session.Display, screen.Bounds())
		source = screen
	}
	defer source.Close()

	deps.Source = source
	deps.Localizer = imgproc.NewLocalizer(cfg.Detection.Localizer)

	if s.frames.Len() > 0 {
		log.Warning("%d frames from an earlier session in %s are replaced", s.frames.Len(), s.frames.Dir())
		if err := s.frames.Clear(); err != nil {
			utils.Die("Failed to clear old frames", err)
		}
	}

	controller := tracker.NewController(opts, deps)
	s.watch(controller)

	fmt.Printf("Tracking %s for %v at %.2f samples/s (Ctrl+C to stop early)\n",
		cfg.Paths.Map, cfg.Session.Duration, cfg.Session.SampleRate)
	start := time.Now()
	result, err := controller.Run(cmd.Context())
	if err != nil {
		utils.Die("Tracking failed", err)
	}
	printResult(result, time.Since(start))
}

// videoInterval returns how many frames to skip so a stream at fps yields rate samples per second
func videoInterval(fps, rate float64) int {
	if fps <= 0 || rate <= 0 || rate >= fps {
		return 0
	}
	return int(math.Round(fps/rate)) - 1
}
